package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	got []Event
	err error
}

func (r *recorder) Publish(_ context.Context, evt Event) error {
	r.got = append(r.got, evt)
	return r.err
}

func TestMultiFansOutAndKeepsFirstError(t *testing.T) {
	a := &recorder{err: errors.New("first")}
	b := &recorder{err: errors.New("second")}
	c := &recorder{}

	evt := Event{Type: TypeOrderPlaced, EntityID: uuid.New()}
	err := Multi{a, nil, b, c}.Publish(context.Background(), evt)

	require.Error(t, err)
	assert.Equal(t, "first", err.Error())
	assert.Len(t, a.got, 1)
	assert.Len(t, b.got, 1)
	assert.Len(t, c.got, 1)
}

func TestEncodeOmitsRecipients(t *testing.T) {
	actor := uuid.New()
	evt := Event{
		Type:       TypeOrderStatusChanged,
		EntityType: "order",
		EntityID:   uuid.New(),
		Action:     "status_change",
		OldStatus:  "pending",
		NewStatus:  "paid",
		ActorID:    &actor,
		OccurredAt: time.Now().UTC(),
		Recipients: []uuid.UUID{uuid.New()},
	}

	b, err := encode(evt)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))
	assert.NotContains(t, raw, "recipients")
	assert.NotContains(t, raw, "Recipients")
	assert.Equal(t, "paid", raw["new_status"])
	assert.Equal(t, actor.String(), raw["actor_id"])
}
