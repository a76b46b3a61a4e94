package repository

import (
	"context"

	"kelabpetani/internal/lifecycle"
	"kelabpetani/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to lifecycle.OrderStatus) (int64, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]model.Order, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]model.Order, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Create(order).Error
}

// FindByID loads the order together with its product.
func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var order model.Order
	if err := GetDB(ctx, r.db).Preload("Product").First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateStatus moves the order from -> to only if it is still in from.
// Zero rows affected means another request changed it first.
func (r *orderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to lifecycle.OrderStatus) (int64, error) {
	res := GetDB(ctx, r.db).Model(&model.Order{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	return res.RowsAffected, res.Error
}

func (r *orderRepository) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]model.Order, error) {
	var orders []model.Order
	err := GetDB(ctx, r.db).
		Preload("Product").
		Where("buyer_id = ?", buyerID).
		Order("created_at DESC").
		Find(&orders).Error
	return orders, err
}

func (r *orderRepository) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]model.Order, error) {
	var orders []model.Order
	err := GetDB(ctx, r.db).
		Preload("Product").
		Preload("Buyer").
		Joins("JOIN products ON products.id = orders.product_id").
		Where("products.seller_id = ?", sellerID).
		Order("orders.created_at DESC").
		Find(&orders).Error
	return orders, err
}
