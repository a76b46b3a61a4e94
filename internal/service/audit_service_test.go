package service

import (
	"context"
	"testing"

	"kelabpetani/internal/lifecycle"
	"kelabpetani/internal/model"
	"kelabpetani/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditServiceList(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seller, buyer := env.user(t, "seller"), env.user(t, "buyer")
	admin := env.admin(t)
	product := env.product(t, seller, intPtr(3))

	order, err := env.orderService().PlaceOrder(ctx, buyer, product.ID, 1)
	require.NoError(t, err)
	_, err = env.orderService().ChangeStatus(ctx, seller, order.ID, lifecycle.ActionMarkPaid)
	require.NoError(t, err)
	_, err = env.moderationService().ReviewProduct(ctx, admin, product.ID, true, "")
	require.NoError(t, err)

	svc := NewAuditService(env.auditRepo, nil)

	_, _, err = svc.List(ctx, buyer, repository.AuditFilter{})
	assert.ErrorIs(t, err, ErrForbidden)

	all, total, err := svc.List(ctx, admin, repository.AuditFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, all, 3)

	orders, total, err := svc.List(ctx, admin, repository.AuditFilter{EntityType: model.EntityOrder})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, orders, 2)

	bySeller, _, err := svc.List(ctx, admin, repository.AuditFilter{ActorID: &seller.ID})
	require.NoError(t, err)
	require.Len(t, bySeller, 1)
	assert.Equal(t, model.ActionStatusChange, bySeller[0].Action)
	require.NotNil(t, bySeller[0].Actor)
	assert.Equal(t, "seller", bySeller[0].Actor.Name)

	page, total, err := svc.List(ctx, admin, repository.AuditFilter{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, page, 1)
}
