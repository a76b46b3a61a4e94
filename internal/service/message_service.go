package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"kelabpetani/internal/events"
	"kelabpetani/internal/model"
	"kelabpetani/internal/repository"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

const maxMessageLength = 1000

type PostMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

type MessageService interface {
	Post(ctx context.Context, actor Actor, contextType string, contextID uuid.UUID, content string) (*model.Message, error)
	List(ctx context.Context, actor Actor, contextType string, contextID uuid.UUID) ([]model.Message, error)
}

type messageService struct {
	messages repository.MessageRepository
	orders   repository.OrderRepository
	projects repository.PawahRepository
	dispatch *Dispatcher
	guard    AccessGuard
	policy   *bluemonday.Policy
	log      *zap.Logger
}

func NewMessageService(
	messages repository.MessageRepository,
	orders repository.OrderRepository,
	projects repository.PawahRepository,
	dispatch *Dispatcher,
	log *zap.Logger,
) MessageService {
	if log == nil {
		log = zap.NewNop()
	}
	return &messageService{
		messages: messages,
		orders:   orders,
		projects: projects,
		dispatch: dispatch,
		policy:   bluemonday.StrictPolicy(),
		log:      log,
	}
}

// thread is a resolved message context: who may write in it and a label for
// notifications.
type thread struct {
	participants []uuid.UUID
	label        string
}

func (s *messageService) resolve(ctx context.Context, actor Actor, contextType string, contextID uuid.UUID) (*thread, error) {
	switch contextType {
	case model.ContextOrder:
		order, err := s.orders.FindByID(ctx, contextID)
		if err != nil {
			return nil, lookupErr("order", err)
		}
		if !s.guard.CanViewOrder(actor, order, order.Product) {
			return nil, fmt.Errorf("%w: order", ErrNotFound)
		}
		t := &thread{participants: []uuid.UUID{order.BuyerID}, label: "order " + order.ID.String()}
		if order.Product != nil {
			t.participants = append(t.participants, order.Product.SellerID)
			t.label = fmt.Sprintf("your order for %q", order.Product.Title)
		}
		return t, nil
	case model.ContextPawah:
		project, err := s.projects.FindByID(ctx, contextID)
		if err != nil {
			return nil, lookupErr("project", err)
		}
		if !project.IsParticipant(actor.ID) {
			return nil, fmt.Errorf("%w: not a participant of this project", ErrForbidden)
		}
		return &thread{participants: project.Participants(), label: fmt.Sprintf("project %q", project.Title)}, nil
	default:
		return nil, validationErr(fmt.Sprintf("unknown message context %q", contextType))
	}
}

// Post stores a plain-text message and tells the other participants.
func (s *messageService) Post(ctx context.Context, actor Actor, contextType string, contextID uuid.UUID, content string) (*model.Message, error) {
	t, err := s.resolve(ctx, actor, contextType, contextID)
	if err != nil {
		return nil, err
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, validationErr("message cannot be empty")
	}
	if utf8.RuneCountInString(content) > maxMessageLength {
		return nil, validationErr(fmt.Sprintf("message cannot be longer than %d characters", maxMessageLength))
	}
	// The limit applies to what the sender typed, not the escaped form.
	content = strings.TrimSpace(s.policy.Sanitize(content))
	if content == "" {
		return nil, validationErr("message cannot be empty")
	}

	msg := &model.Message{
		ContextType: contextType,
		ContextID:   contextID,
		SenderID:    actor.ID,
		Content:     content,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, failWith(s.log, err, "post message")
	}

	others := make([]uuid.UUID, 0, len(t.participants))
	for _, id := range t.participants {
		if id != actor.ID {
			others = append(others, id)
		}
	}
	s.dispatch.Notify(ctx, others, "New message", "You have a new message about "+t.label+".")
	s.dispatch.Publish(ctx, events.Event{
		Type:       events.TypeMessagePosted,
		EntityType: contextType,
		EntityID:   contextID,
		Action:     "message",
		ActorID:    actor.ptr(),
		Recipients: others,
	})
	return msg, nil
}

func (s *messageService) List(ctx context.Context, actor Actor, contextType string, contextID uuid.UUID) ([]model.Message, error) {
	if _, err := s.resolve(ctx, actor, contextType, contextID); err != nil {
		return nil, err
	}
	msgs, err := s.messages.List(ctx, contextType, contextID)
	if err != nil {
		return nil, failWith(s.log, err, "list messages")
	}
	return msgs, nil
}
