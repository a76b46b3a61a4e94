package repository

import (
	"context"

	"kelabpetani/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductFilter drives the public marketplace listing.
type ProductFilter struct {
	Query    string
	Category string
	Location string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Page     int
	Limit    int
}

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	Update(ctx context.Context, product *model.Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	ListVisible(ctx context.Context, filter ProductFilter) ([]model.Product, int64, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]model.Product, error)
	ListPending(ctx context.Context) ([]model.Product, error)
	ListAll(ctx context.Context) ([]model.Product, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	SaveModeration(ctx context.Context, product *model.Product) error
	DecrementStock(ctx context.Context, id uuid.UUID, qty int) (int64, error)
	RestoreStock(ctx context.Context, id uuid.UUID, qty int) (int64, error)
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, product *model.Product) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Create(product).Error
}

func (r *productRepository) Update(ctx context.Context, product *model.Product) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Save(product).Error
}

func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := GetDB(ctx, r.db).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) ListVisible(ctx context.Context, filter ProductFilter) ([]model.Product, int64, error) {
	var products []model.Product
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Product{}).Where("is_active = ? AND is_approved = ?", true, true)
	if filter.Query != "" {
		like := "%" + filter.Query + "%"
		db = db.Where("LOWER(title) LIKE LOWER(?) OR LOWER(description) LIKE LOWER(?)", like, like)
	}
	if filter.Category != "" {
		db = db.Where("category = ?", filter.Category)
	}
	if filter.Location != "" {
		db = db.Where("location = ?", filter.Location)
	}
	if filter.MinPrice != nil {
		db = db.Where("price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		db = db.Where("price <= ?", *filter.MaxPrice)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := db.Order("created_at desc").Offset(offset).Limit(filter.Limit).Find(&products).Error; err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

func (r *productRepository) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]model.Product, error) {
	var products []model.Product
	err := GetDB(ctx, r.db).Where("seller_id = ?", sellerID).Order("created_at desc").Find(&products).Error
	return products, err
}

func (r *productRepository) ListPending(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	err := GetDB(ctx, r.db).Where("is_approved = ?", false).Order("created_at desc").Find(&products).Error
	return products, err
}

func (r *productRepository) ListAll(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	err := GetDB(ctx, r.db).Order("created_at desc").Find(&products).Error
	return products, err
}

func (r *productRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return GetDB(ctx, r.db).Model(&model.Product{}).Where("id = ?", id).Update("is_active", active).Error
}

func (r *productRepository) SaveModeration(ctx context.Context, product *model.Product) error {
	return GetDB(ctx, r.db).Model(product).Select(model.ModerationColumns).Updates(product).Error
}

// DecrementStock takes qty units only if at least qty remain. A zero result
// means there was not enough stock and nothing changed.
func (r *productRepository) DecrementStock(ctx context.Context, id uuid.UUID, qty int) (int64, error) {
	res := GetDB(ctx, r.db).Model(&model.Product{}).
		Where("id = ? AND quantity IS NOT NULL AND quantity >= ?", id, qty).
		UpdateColumn("quantity", gorm.Expr("quantity - ?", qty))
	return res.RowsAffected, res.Error
}

// RestoreStock gives qty units back to a stock-tracked product.
func (r *productRepository) RestoreStock(ctx context.Context, id uuid.UUID, qty int) (int64, error) {
	res := GetDB(ctx, r.db).Model(&model.Product{}).
		Where("id = ? AND quantity IS NOT NULL", id).
		UpdateColumn("quantity", gorm.Expr("quantity + ?", qty))
	return res.RowsAffected, res.Error
}
