package service

import (
	"context"
	"strings"
	"testing"

	"kelabpetani/internal/lifecycle"
	"kelabpetani/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderThread(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seller, buyer, stranger := env.user(t, "seller"), env.user(t, "buyer"), env.user(t, "stranger")
	order := env.orderIn(t, buyer, env.product(t, seller, nil), lifecycle.OrderPending)
	svc := env.messageService()

	msg, err := svc.Post(ctx, buyer, model.ContextOrder, order.ID, "  Kapan <b>dikirim</b>?  ")
	require.NoError(t, err)
	assert.Equal(t, "Kapan dikirim?", msg.Content)
	assert.Equal(t, []string{"seller@example.com"}, env.notifier.recipients())

	_, err = svc.Post(ctx, seller, model.ContextOrder, order.ID, "Besok pagi")
	require.NoError(t, err)

	thread, err := svc.List(ctx, seller, model.ContextOrder, order.ID)
	require.NoError(t, err)
	require.Len(t, thread, 2)
	require.NotNil(t, thread[0].Sender)

	_, err = svc.Post(ctx, stranger, model.ContextOrder, order.ID, "halo")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.List(ctx, stranger, model.ContextOrder, order.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPawahThread(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner, farmer, stranger := env.user(t, "owner"), env.user(t, "farmer"), env.user(t, "stranger")
	project := env.project(t, owner, lifecycle.PawahAccepted, &farmer, true)
	svc := env.messageService()

	_, err := svc.Post(ctx, farmer, model.ContextPawah, project.ID, "Bibit sudah datang")
	require.NoError(t, err)
	assert.Equal(t, []string{"owner@example.com"}, env.notifier.recipients())

	_, err = svc.Post(ctx, stranger, model.ContextPawah, project.ID, "halo")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestMessageValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seller, buyer := env.user(t, "seller"), env.user(t, "buyer")
	order := env.orderIn(t, buyer, env.product(t, seller, nil), lifecycle.OrderPending)
	svc := env.messageService()

	_, err := svc.Post(ctx, buyer, model.ContextOrder, order.ID, "   ")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Post(ctx, buyer, model.ContextOrder, order.ID, "<script></script>")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Post(ctx, buyer, model.ContextOrder, order.ID, strings.Repeat("a", maxMessageLength+1))
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Post(ctx, buyer, model.ContextOrder, order.ID, strings.Repeat("a", maxMessageLength))
	assert.NoError(t, err)

	// Escaping grows "&" to "&amp;"; the limit counts the raw input.
	_, err = svc.Post(ctx, buyer, model.ContextOrder, order.ID, strings.Repeat("&", 300))
	assert.NoError(t, err)

	// Tags are stripped after the length check, so oversized markup is refused.
	_, err = svc.Post(ctx, buyer, model.ContextOrder, order.ID, strings.Repeat("<b>x</b>", 200))
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Post(ctx, buyer, "invoice", order.ID, "hi")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Post(ctx, buyer, model.ContextPawah, uuid.New(), "hi")
	assert.ErrorIs(t, err, ErrNotFound)
}
