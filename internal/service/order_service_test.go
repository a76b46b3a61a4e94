package service

import (
	"context"
	"testing"

	"kelabpetani/internal/events"
	"kelabpetani/internal/lifecycle"
	"kelabpetani/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceOrderThenCancelRestoresStock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seller, buyer := env.user(t, "seller"), env.user(t, "buyer")
	product := env.product(t, seller, intPtr(5))
	svc := env.orderService()

	order, err := svc.PlaceOrder(ctx, buyer, product.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.OrderPending, order.Status)
	assert.True(t, decimal.RequireFromString("37501.50").Equal(order.TotalPrice))
	assert.Equal(t, 2, *env.reloadProduct(t, product.ID).Quantity)

	cancelled, err := svc.ChangeStatus(ctx, buyer, order.ID, lifecycle.ActionCancel)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.OrderCancelled, cancelled.Status)
	assert.Equal(t, 5, *env.reloadProduct(t, product.ID).Quantity)
	assert.Equal(t, lifecycle.OrderCancelled, env.reloadOrder(t, order.ID).Status)

	rows := env.auditRows(t, order.ID)
	require.Len(t, rows, 2)
	var change *model.AuditLog
	for i := range rows {
		if rows[i].Action == model.ActionStatusChange {
			change = &rows[i]
		}
	}
	require.NotNil(t, change)
	assert.Equal(t, "pending", *change.OldStatus)
	assert.Equal(t, "cancelled", *change.NewStatus)
	assert.Equal(t, buyer.ID, *change.ActorID)

	// cancelling again must fail the state check and not restore twice
	_, err = svc.ChangeStatus(ctx, buyer, order.ID, lifecycle.ActionCancel)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, 5, *env.reloadProduct(t, product.ID).Quantity)
	assert.Len(t, env.auditRows(t, order.ID), 2)
}

func TestPlaceOrderInsufficientStock(t *testing.T) {
	env := newTestEnv(t)
	seller, buyer := env.user(t, "seller"), env.user(t, "buyer")
	product := env.product(t, seller, intPtr(2))

	_, err := env.orderService().PlaceOrder(context.Background(), buyer, product.ID, 3)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 2, *env.reloadProduct(t, product.ID).Quantity)

	var count int64
	require.NoError(t, env.db.Model(&model.Order{}).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, env.db.Model(&model.AuditLog{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestPlaceOrderUntrackedStock(t *testing.T) {
	env := newTestEnv(t)
	seller, buyer := env.user(t, "seller"), env.user(t, "buyer")
	product := env.product(t, seller, nil)

	order, err := env.orderService().PlaceOrder(context.Background(), buyer, product.ID, 1000)
	require.NoError(t, err)
	assert.Equal(t, 1000, order.Quantity)
	assert.Nil(t, env.reloadProduct(t, product.ID).Quantity)
}

func TestPlaceOrderRejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seller, buyer := env.user(t, "seller"), env.user(t, "buyer")
	svc := env.orderService()

	product := env.product(t, seller, intPtr(10))
	product.MinOrderQty = intPtr(2)
	require.NoError(t, env.products.Update(ctx, product))

	_, err := svc.PlaceOrder(ctx, seller, product.ID, 2)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.PlaceOrder(ctx, buyer, product.ID, 0)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.PlaceOrder(ctx, buyer, product.ID, 1)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.PlaceOrder(ctx, buyer, uuid.New(), 2)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, env.products.SetActive(ctx, product.ID, false))
	_, err = svc.PlaceOrder(ctx, buyer, product.ID, 2)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, 10, *env.reloadProduct(t, product.ID).Quantity)
}

func TestPaidOrderShippedBySeller(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seller, buyer := env.user(t, "seller"), env.user(t, "buyer")
	product := env.product(t, seller, intPtr(5))
	order := env.orderIn(t, buyer, product, lifecycle.OrderPaid)

	updated, err := env.orderService().ChangeStatus(ctx, seller, order.ID, lifecycle.ActionMarkShipped)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.OrderShipped, updated.Status)

	rows := env.auditRows(t, order.ID)
	require.Len(t, rows, 1)
	assert.Equal(t, model.ActionStatusChange, rows[0].Action)
	assert.Equal(t, "paid", *rows[0].OldStatus)
	assert.Equal(t, "shipped", *rows[0].NewStatus)

	assert.ElementsMatch(t, []string{"seller@example.com", "buyer@example.com"}, env.notifier.recipients())

	require.Len(t, env.publisher.events, 1)
	evt := env.publisher.events[0]
	assert.Equal(t, events.TypeOrderStatusChanged, evt.Type)
	assert.ElementsMatch(t, []uuid.UUID{buyer.ID, seller.ID}, evt.Recipients)
	// stock is untouched outside pending -> cancelled
	assert.Equal(t, 5, *env.reloadProduct(t, product.ID).Quantity)
}

func TestShippedOrderCannotBeCancelled(t *testing.T) {
	env := newTestEnv(t)
	seller, buyer := env.user(t, "seller"), env.user(t, "buyer")
	product := env.product(t, seller, intPtr(5))
	order := env.orderIn(t, buyer, product, lifecycle.OrderShipped)

	_, err := env.orderService().ChangeStatus(context.Background(), buyer, order.ID, lifecycle.ActionCancel)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, err, ErrInvalidState)

	assert.Equal(t, lifecycle.OrderShipped, env.reloadOrder(t, order.ID).Status)
	assert.Empty(t, env.auditRows(t, order.ID))
	assert.Empty(t, env.notifier.recipients())
}

func TestChangeStatusChecks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seller, buyer, stranger := env.user(t, "seller"), env.user(t, "buyer"), env.user(t, "stranger")
	product := env.product(t, seller, intPtr(5))
	svc := env.orderService()

	cases := []struct {
		name   string
		status lifecycle.OrderStatus
		actor  Actor
		action string
		want   error
	}{
		{"stranger gets not found", lifecycle.OrderPending, stranger, lifecycle.ActionMarkPaid, ErrNotFound},
		{"unknown action", lifecycle.OrderPending, seller, "refund", ErrInvalidAction},
		{"seller cannot cancel", lifecycle.OrderPending, seller, lifecycle.ActionCancel, ErrForbidden},
		{"buyer cannot mark paid", lifecycle.OrderPending, buyer, lifecycle.ActionMarkPaid, ErrForbidden},
		{"pending cannot skip to shipped", lifecycle.OrderPending, seller, lifecycle.ActionMarkShipped, ErrInvalidState},
		{"completed is terminal", lifecycle.OrderCompleted, seller, lifecycle.ActionMarkShipped, ErrInvalidState},
		{"paid cannot be cancelled", lifecycle.OrderPaid, buyer, lifecycle.ActionCancel, ErrInvalidState},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			order := env.orderIn(t, buyer, product, tc.status)
			_, err := svc.ChangeStatus(ctx, tc.actor, order.ID, tc.action)
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, tc.status, env.reloadOrder(t, order.ID).Status)
			assert.Empty(t, env.auditRows(t, order.ID))
		})
	}
}

func TestChangeStatusRollsBackWhenAuditFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seller, buyer := env.user(t, "seller"), env.user(t, "buyer")
	product := env.product(t, seller, intPtr(5))

	order, err := env.orderService().PlaceOrder(ctx, buyer, product.ID, 3)
	require.NoError(t, err)

	env.breakAudit()
	env.notifier.sent = nil
	_, err = env.orderService().ChangeStatus(ctx, buyer, order.ID, lifecycle.ActionCancel)
	assert.ErrorIs(t, err, ErrPersistence)

	assert.Equal(t, lifecycle.OrderPending, env.reloadOrder(t, order.ID).Status)
	assert.Equal(t, 2, *env.reloadProduct(t, product.ID).Quantity)
	assert.Len(t, env.auditRows(t, order.ID), 1)
	assert.Empty(t, env.notifier.recipients())
}

func TestPlaceOrderRollsBackWhenAuditFails(t *testing.T) {
	env := newTestEnv(t)
	seller, buyer := env.user(t, "seller"), env.user(t, "buyer")
	product := env.product(t, seller, intPtr(5))
	env.breakAudit()

	_, err := env.orderService().PlaceOrder(context.Background(), buyer, product.ID, 2)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Equal(t, 5, *env.reloadProduct(t, product.ID).Quantity)

	var count int64
	require.NoError(t, env.db.Model(&model.Order{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestNotificationFailureDoesNotFailTransition(t *testing.T) {
	env := newTestEnv(t)
	env.notifier.fail = true
	env.dispatch = NewDispatcher(env.users, env.notifier, panickyPublisher{}, nil)

	seller, buyer := env.user(t, "seller"), env.user(t, "buyer")
	product := env.product(t, seller, intPtr(5))
	order := env.orderIn(t, buyer, product, lifecycle.OrderPending)

	updated, err := env.orderService().ChangeStatus(context.Background(), seller, order.ID, lifecycle.ActionMarkPaid)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.OrderPaid, updated.Status)
	assert.Len(t, env.auditRows(t, order.ID), 1)
}

func TestOrderQueries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seller, buyer, stranger := env.user(t, "seller"), env.user(t, "buyer"), env.user(t, "stranger")
	product := env.product(t, seller, nil)
	order := env.orderIn(t, buyer, product, lifecycle.OrderPending)
	svc := env.orderService()

	got, err := svc.GetOrder(ctx, seller, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	_, err = svc.GetOrder(ctx, stranger, order.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	purchases, err := svc.ListPurchases(ctx, buyer)
	require.NoError(t, err)
	assert.Len(t, purchases, 1)

	sales, err := svc.ListSales(ctx, seller)
	require.NoError(t, err)
	require.Len(t, sales, 1)
	require.NotNil(t, sales[0].Buyer)
	assert.Equal(t, "buyer", sales[0].Buyer.Name)

	none, err := svc.ListSales(ctx, buyer)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCancelLosingRaceTakesEffectOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seller, buyer := env.user(t, "seller"), env.user(t, "buyer")
	product := env.product(t, seller, intPtr(5))

	order, err := env.orderService().PlaceOrder(ctx, buyer, product.ID, 2)
	require.NoError(t, err)
	_, err = env.orderService().ChangeStatus(ctx, buyer, order.ID, lifecycle.ActionCancel)
	require.NoError(t, err)
	require.Equal(t, 5, *env.reloadProduct(t, product.ID).Quantity)
	sent := len(env.notifier.recipients())
	published := len(env.publisher.events)

	// A second cancel that loaded the order while it was still pending.
	stale := NewOrderService(staleOrders{env.orders, lifecycle.OrderPending}, env.products, env.writer, env.txManager, env.dispatch, nil)
	_, err = stale.ChangeStatus(ctx, buyer, order.ID, lifecycle.ActionCancel)
	assert.ErrorIs(t, err, ErrInvalidState)

	assert.Equal(t, 5, *env.reloadProduct(t, product.ID).Quantity)
	assert.Equal(t, lifecycle.OrderCancelled, env.reloadOrder(t, order.ID).Status)
	assert.Len(t, env.auditRows(t, order.ID), 2)
	assert.Len(t, env.notifier.recipients(), sent)
	assert.Len(t, env.publisher.events, published)
}

func TestStatusChangeLosingRaceIsRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seller, buyer := env.user(t, "seller"), env.user(t, "buyer")
	order := env.orderIn(t, buyer, env.product(t, seller, nil), lifecycle.OrderShipped)

	// The seller still sees the order as paid and tries to ship it again.
	stale := NewOrderService(staleOrders{env.orders, lifecycle.OrderPaid}, env.products, env.writer, env.txManager, env.dispatch, nil)
	_, err := stale.ChangeStatus(ctx, seller, order.ID, lifecycle.ActionMarkShipped)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.NotErrorIs(t, err, ErrForbidden)

	assert.Equal(t, lifecycle.OrderShipped, env.reloadOrder(t, order.ID).Status)
	assert.Empty(t, env.auditRows(t, order.ID))
	assert.Empty(t, env.notifier.recipients())
}
