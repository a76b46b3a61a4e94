package service

import (
	"context"
	"fmt"
	"strings"

	"kelabpetani/internal/model"
	"kelabpetani/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DTOs
type ProductRequest struct {
	Title        string          `json:"title" binding:"required"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	Quantity     *int            `json:"quantity"`
	Category     string          `json:"category"`
	ImageURL     string          `json:"image_url"`
	Location     string          `json:"location"`
	Unit         string          `json:"unit"`
	MinOrderQty  *int            `json:"min_order_qty"`
	ContactPhone string          `json:"contact_phone"`
}

type MarketplaceService interface {
	CreateProduct(ctx context.Context, actor Actor, req ProductRequest) (*model.Product, error)
	UpdateProduct(ctx context.Context, actor Actor, productID uuid.UUID, req ProductRequest) (*model.Product, error)
	Archive(ctx context.Context, actor Actor, productID uuid.UUID) (*model.Product, error)
	Unarchive(ctx context.Context, actor Actor, productID uuid.UUID) (*model.Product, error)
	GetProduct(ctx context.Context, actor Actor, productID uuid.UUID) (*model.Product, error)
	Browse(ctx context.Context, filter repository.ProductFilter) ([]model.Product, int64, error)
	MyListings(ctx context.Context, actor Actor) ([]model.Product, error)
}

type marketplaceService struct {
	products  repository.ProductRepository
	audit     *AuditWriter
	txManager repository.TransactionManager
	guard     AccessGuard
	log       *zap.Logger
}

func NewMarketplaceService(
	products repository.ProductRepository,
	audit *AuditWriter,
	txManager repository.TransactionManager,
	log *zap.Logger,
) MarketplaceService {
	if log == nil {
		log = zap.NewNop()
	}
	return &marketplaceService{
		products:  products,
		audit:     audit,
		txManager: txManager,
		log:       log,
	}
}

func validateProduct(req *ProductRequest) error {
	req.Title = strings.TrimSpace(req.Title)
	switch {
	case req.Title == "":
		return validationErr("title is required")
	case req.Price.IsNegative():
		return validationErr("price cannot be negative")
	case req.Quantity != nil && *req.Quantity < 0:
		return validationErr("quantity cannot be negative")
	case req.MinOrderQty != nil && *req.MinOrderQty < 1:
		return validationErr("minimum order quantity must be at least 1")
	}
	return nil
}

func (req ProductRequest) applyTo(p *model.Product) {
	p.Title = req.Title
	p.Description = strings.TrimSpace(req.Description)
	p.Price = req.Price
	p.Quantity = req.Quantity
	p.Category = strings.TrimSpace(req.Category)
	p.ImageURL = strings.TrimSpace(req.ImageURL)
	p.Location = strings.TrimSpace(req.Location)
	p.Unit = strings.TrimSpace(req.Unit)
	p.MinOrderQty = req.MinOrderQty
	p.ContactPhone = strings.TrimSpace(req.ContactPhone)
}

// CreateProduct submits a new listing for review.
func (s *marketplaceService) CreateProduct(ctx context.Context, actor Actor, req ProductRequest) (*model.Product, error) {
	if err := validateProduct(&req); err != nil {
		return nil, err
	}

	product := &model.Product{SellerID: actor.ID, IsActive: true}
	req.applyTo(product)

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.products.Create(txCtx, product); err != nil {
			return err
		}
		return s.audit.Append(txCtx, AuditEntry{
			EntityType: model.EntityProduct,
			EntityID:   product.ID,
			Action:     model.ActionCreate,
			Actor:      actor,
		})
	})
	if err != nil {
		return nil, failWith(s.log, err, "create product")
	}
	return product, nil
}

// UpdateProduct replaces the listing's fields and sends it back to the
// review queue.
func (s *marketplaceService) UpdateProduct(ctx context.Context, actor Actor, productID uuid.UUID, req ProductRequest) (*model.Product, error) {
	product, err := s.ownProduct(ctx, actor, productID)
	if err != nil {
		return nil, err
	}
	if err := validateProduct(&req); err != nil {
		return nil, err
	}

	req.applyTo(product)
	product.Resubmit()

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.products.Update(txCtx, product); err != nil {
			return err
		}
		return s.audit.Append(txCtx, AuditEntry{
			EntityType: model.EntityProduct,
			EntityID:   product.ID,
			Action:     model.ActionUpdate,
			Actor:      actor,
		})
	})
	if err != nil {
		return nil, failWith(s.log, err, "update product", zap.String("product_id", productID.String()))
	}
	return product, nil
}

func (s *marketplaceService) Archive(ctx context.Context, actor Actor, productID uuid.UUID) (*model.Product, error) {
	return s.setActive(ctx, actor, productID, false)
}

func (s *marketplaceService) Unarchive(ctx context.Context, actor Actor, productID uuid.UUID) (*model.Product, error) {
	return s.setActive(ctx, actor, productID, true)
}

func (s *marketplaceService) setActive(ctx context.Context, actor Actor, productID uuid.UUID, active bool) (*model.Product, error) {
	product, err := s.ownProduct(ctx, actor, productID)
	if err != nil {
		return nil, err
	}
	action := model.ActionArchive
	if active {
		action = model.ActionUnarchive
	}
	if product.IsActive == active {
		return product, nil
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.products.SetActive(txCtx, product.ID, active); err != nil {
			return err
		}
		return s.audit.Append(txCtx, AuditEntry{
			EntityType: model.EntityProduct,
			EntityID:   product.ID,
			Action:     action,
			Actor:      actor,
		})
	})
	if err != nil {
		return nil, failWith(s.log, err, action+" product", zap.String("product_id", productID.String()))
	}
	product.IsActive = active
	return product, nil
}

func (s *marketplaceService) GetProduct(ctx context.Context, actor Actor, productID uuid.UUID) (*model.Product, error) {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, lookupErr("product", err)
	}
	if !s.guard.CanViewProduct(actor, product) {
		return nil, fmt.Errorf("%w: product", ErrNotFound)
	}
	return product, nil
}

func (s *marketplaceService) Browse(ctx context.Context, filter repository.ProductFilter) ([]model.Product, int64, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 12
	}
	filter.Query = strings.TrimSpace(filter.Query)
	if filter.MinPrice != nil && filter.MaxPrice != nil && filter.MinPrice.GreaterThan(*filter.MaxPrice) {
		return nil, 0, validationErr("min_price is greater than max_price")
	}

	products, total, err := s.products.ListVisible(ctx, filter)
	if err != nil {
		return nil, 0, failWith(s.log, err, "browse products")
	}
	return products, total, nil
}

func (s *marketplaceService) MyListings(ctx context.Context, actor Actor) ([]model.Product, error) {
	products, err := s.products.ListBySeller(ctx, actor.ID)
	if err != nil {
		return nil, failWith(s.log, err, "list own products")
	}
	return products, nil
}

// ownProduct loads a listing the actor sells. Listings the actor cannot see
// are NotFound; visible listings of another seller are Forbidden.
func (s *marketplaceService) ownProduct(ctx context.Context, actor Actor, productID uuid.UUID) (*model.Product, error) {
	product, err := s.GetProduct(ctx, actor, productID)
	if err != nil {
		return nil, err
	}
	if !actor.Is(product.SellerID) {
		return nil, fmt.Errorf("%w: only the seller can change this listing", ErrForbidden)
	}
	return product, nil
}
