package service

import (
	"context"
	"errors"
	"fmt"

	"kelabpetani/internal/events"
	"kelabpetani/internal/lifecycle"
	"kelabpetani/internal/metrics"
	"kelabpetani/internal/model"
	"kelabpetani/internal/repository"
	"kelabpetani/internal/tracing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// DTOs
type PlaceOrderRequest struct {
	ProductID string `json:"product_id" binding:"required,uuid"`
	Quantity  int    `json:"quantity" binding:"required"`
}

type ChangeOrderStatusRequest struct {
	Action string `json:"action" binding:"required"`
}

type OrderService interface {
	PlaceOrder(ctx context.Context, actor Actor, productID uuid.UUID, qty int) (*model.Order, error)
	ChangeStatus(ctx context.Context, actor Actor, orderID uuid.UUID, action string) (*model.Order, error)
	GetOrder(ctx context.Context, actor Actor, orderID uuid.UUID) (*model.Order, error)
	ListPurchases(ctx context.Context, actor Actor) ([]model.Order, error)
	ListSales(ctx context.Context, actor Actor) ([]model.Order, error)
}

type orderService struct {
	orders    repository.OrderRepository
	products  repository.ProductRepository
	audit     *AuditWriter
	txManager repository.TransactionManager
	dispatch  *Dispatcher
	guard     AccessGuard
	log       *zap.Logger
}

func NewOrderService(
	orders repository.OrderRepository,
	products repository.ProductRepository,
	audit *AuditWriter,
	txManager repository.TransactionManager,
	dispatch *Dispatcher,
	log *zap.Logger,
) OrderService {
	if log == nil {
		log = zap.NewNop()
	}
	return &orderService{
		orders:    orders,
		products:  products,
		audit:     audit,
		txManager: txManager,
		dispatch:  dispatch,
		log:       log,
	}
}

// PlaceOrder buys qty units of an approved, active listing. Stock, when the
// product tracks it, is taken with a conditional update in the same
// transaction as the order insert and its audit row.
func (s *orderService) PlaceOrder(ctx context.Context, actor Actor, productID uuid.UUID, qty int) (*model.Order, error) {
	ctx, span := tracing.Start(ctx, "OrderService.PlaceOrder")
	defer span.End()
	span.SetAttributes(attribute.String("product.id", productID.String()), attribute.Int("order.quantity", qty))

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, lookupErr("product", err)
	}
	if actor.Is(product.SellerID) {
		return nil, fmt.Errorf("%w: cannot buy your own listing", ErrForbidden)
	}
	if !product.IsActive || !product.IsApproved {
		return nil, fmt.Errorf("%w: product", ErrNotFound)
	}
	if qty < 1 {
		return nil, validationErr("quantity must be at least 1")
	}
	if product.MinOrderQty != nil && qty < *product.MinOrderQty {
		return nil, validationErr(fmt.Sprintf("minimum order quantity is %d", *product.MinOrderQty))
	}

	order := &model.Order{
		BuyerID:    actor.ID,
		ProductID:  product.ID,
		Quantity:   qty,
		TotalPrice: product.Price.Mul(decimal.NewFromInt(int64(qty))),
		Status:     lifecycle.OrderPending,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if product.TracksStock() {
			rows, err := s.products.DecrementStock(txCtx, product.ID, qty)
			if err != nil {
				return err
			}
			if rows == 0 {
				return fmt.Errorf("%w: only %d left", ErrInsufficientStock, *product.Quantity)
			}
		}
		if err := s.orders.Create(txCtx, order); err != nil {
			return err
		}
		return s.audit.Append(txCtx, AuditEntry{
			EntityType: model.EntityOrder,
			EntityID:   order.ID,
			Action:     model.ActionCreate,
			NewStatus:  string(lifecycle.OrderPending),
			Actor:      actor,
		})
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientStock) {
			metrics.StockRejectionsTotal.Inc()
		}
		metrics.Transition(model.EntityOrder, model.ActionCreate, resultOf(err))
		return nil, s.fail(err, "place order", zap.String("product_id", productID.String()))
	}

	metrics.OrdersPlacedTotal.Inc()
	metrics.Transition(model.EntityOrder, model.ActionCreate, metrics.ResultOK)
	if product.TracksStock() {
		left := *product.Quantity - qty
		product.Quantity = &left
	}
	order.Product = product

	s.dispatch.Notify(ctx, []uuid.UUID{product.SellerID},
		"New order received",
		fmt.Sprintf("You have a new order for %q: %d unit(s), total %s.", product.Title, qty, order.TotalPrice.StringFixed(2)),
	)
	s.dispatch.Publish(ctx, events.Event{
		Type:       events.TypeOrderPlaced,
		EntityType: model.EntityOrder,
		EntityID:   order.ID,
		Action:     model.ActionCreate,
		NewStatus:  string(order.Status),
		ActorID:    actor.ptr(),
		Recipients: []uuid.UUID{order.BuyerID, product.SellerID},
	})

	return order, nil
}

// ChangeStatus applies a buyer or seller action to an order. Checks run in
// order: visibility, action, role, then the transition table.
func (s *orderService) ChangeStatus(ctx context.Context, actor Actor, orderID uuid.UUID, action string) (*model.Order, error) {
	ctx, span := tracing.Start(ctx, "OrderService.ChangeStatus")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID.String()), attribute.String("order.action", action))

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, lookupErr("order", err)
	}
	product := order.Product
	if !s.guard.CanViewOrder(actor, order, product) {
		return nil, fmt.Errorf("%w: order", ErrNotFound)
	}

	target, ok := lifecycle.TargetForAction(action)
	if !ok {
		metrics.Transition(model.EntityOrder, action, metrics.ResultRejected)
		return nil, fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}

	if target == lifecycle.OrderCancelled {
		if !actor.Is(order.BuyerID) {
			metrics.Transition(model.EntityOrder, action, metrics.ResultRejected)
			return nil, fmt.Errorf("%w: only the buyer can cancel an order", ErrForbidden)
		}
	} else if !s.guard.IsSeller(actor, product) {
		metrics.Transition(model.EntityOrder, action, metrics.ResultRejected)
		return nil, fmt.Errorf("%w: only the seller can %s", ErrForbidden, action)
	}

	from := order.Status
	if !lifecycle.CanTransitionOrder(from, target) {
		metrics.Transition(model.EntityOrder, action, metrics.ResultRejected)
		return nil, fmt.Errorf("%w: %w: cannot move order from %s to %s", ErrForbidden, ErrInvalidState, from, target)
	}

	restock := from == lifecycle.OrderPending && target == lifecycle.OrderCancelled &&
		product != nil && product.TracksStock()

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		rows, err := s.orders.UpdateStatus(txCtx, order.ID, from, target)
		if err != nil {
			return err
		}
		if rows == 0 {
			return fmt.Errorf("%w: order is no longer %s", ErrInvalidState, from)
		}
		if restock {
			if _, err := s.products.RestoreStock(txCtx, product.ID, order.Quantity); err != nil {
				return err
			}
		}
		return s.audit.Append(txCtx, AuditEntry{
			EntityType: model.EntityOrder,
			EntityID:   order.ID,
			Action:     model.ActionStatusChange,
			OldStatus:  string(from),
			NewStatus:  string(target),
			Actor:      actor,
			Meta:       action,
		})
	})
	if err != nil {
		metrics.Transition(model.EntityOrder, action, resultOf(err))
		return nil, s.fail(err, "change order status", zap.String("order_id", orderID.String()))
	}
	metrics.Transition(model.EntityOrder, action, metrics.ResultOK)

	order.Status = target
	if restock {
		q := *product.Quantity + order.Quantity
		product.Quantity = &q
	}

	s.log.Info("order status changed",
		zap.String("order_id", order.ID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(target)),
	)

	parties := []uuid.UUID{order.BuyerID}
	if product != nil {
		parties = append(parties, product.SellerID)
	}
	s.dispatch.Notify(ctx, parties,
		"Order status updated",
		fmt.Sprintf("Order %s is now %s (was %s).", order.ID, target, from),
	)
	s.dispatch.Publish(ctx, events.Event{
		Type:       events.TypeOrderStatusChanged,
		EntityType: model.EntityOrder,
		EntityID:   order.ID,
		Action:     model.ActionStatusChange,
		OldStatus:  string(from),
		NewStatus:  string(target),
		ActorID:    actor.ptr(),
		Recipients: parties,
	})

	return order, nil
}

// GetOrder hides orders from everyone but their buyer and seller.
func (s *orderService) GetOrder(ctx context.Context, actor Actor, orderID uuid.UUID) (*model.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, lookupErr("order", err)
	}
	if !s.guard.CanViewOrder(actor, order, order.Product) {
		return nil, fmt.Errorf("%w: order", ErrNotFound)
	}
	return order, nil
}

func (s *orderService) ListPurchases(ctx context.Context, actor Actor) ([]model.Order, error) {
	orders, err := s.orders.ListByBuyer(ctx, actor.ID)
	if err != nil {
		return nil, s.fail(err, "list purchases")
	}
	return orders, nil
}

func (s *orderService) ListSales(ctx context.Context, actor Actor) ([]model.Order, error) {
	orders, err := s.orders.ListBySeller(ctx, actor.ID)
	if err != nil {
		return nil, s.fail(err, "list sales")
	}
	return orders, nil
}

// fail passes typed failures through and reports anything else as a
// generic persistence error, logging the cause.
func (s *orderService) fail(err error, op string, fields ...zap.Field) error {
	return failWith(s.log, err, op, fields...)
}

func failWith(log *zap.Logger, err error, op string, fields ...zap.Field) error {
	if isDomainErr(err) {
		return err
	}
	log.Error(op+" failed", append(fields, zap.Error(err))...)
	return fmt.Errorf("%w: %s", ErrPersistence, op)
}

func resultOf(err error) string {
	if isDomainErr(err) && !errors.Is(err, ErrPersistence) {
		return metrics.ResultRejected
	}
	return metrics.ResultFailed
}
