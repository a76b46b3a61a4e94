package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"kelabpetani/internal/metrics"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaPublisher writes events to a topic, keyed by entity id so that the
// history of one order or project stays on one partition.
type KafkaPublisher struct {
	writer *kafka.Writer
	log    *zap.Logger
}

func NewKafkaPublisher(brokers []string, topic string, log *zap.Logger) *KafkaPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
		Async:        true,
	}
	writer.Completion = func(messages []kafka.Message, err error) {
		if err != nil {
			metrics.EventsPublishedTotal.WithLabelValues("kafka", metrics.ResultFailed).Add(float64(len(messages)))
			log.Warn("kafka write failed", zap.Int("messages", len(messages)), zap.Error(err))
			return
		}
		metrics.EventsPublishedTotal.WithLabelValues("kafka", metrics.ResultOK).Add(float64(len(messages)))
	}

	return &KafkaPublisher{writer: writer, log: log}
}

func (p *KafkaPublisher) Publish(ctx context.Context, evt Event) error {
	value, err := encode(evt)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(evt.EntityID.String()),
		Value: value,
		Time:  evt.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(evt.Type)},
		},
	}

	if err := p.writer.WriteMessages(context.WithoutCancel(ctx), msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}
	return nil
}

// Close flushes pending async writes.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func encode(evt Event) ([]byte, error) {
	b, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return b, nil
}
