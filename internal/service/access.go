package service

import (
	"fmt"

	"kelabpetani/internal/model"
)

// AccessGuard answers who may see or act on an order, project or listing.
// It holds no state; the checks only look at the loaded entities.
type AccessGuard struct{}

// CanViewOrder allows the buyer and the product's seller.
func (AccessGuard) CanViewOrder(actor Actor, order *model.Order, product *model.Product) bool {
	if actor.Is(order.BuyerID) {
		return true
	}
	return product != nil && actor.Is(product.SellerID)
}

// IsSeller reports whether actor sells the product the order is for.
func (AccessGuard) IsSeller(actor Actor, product *model.Product) bool {
	return product != nil && actor.Is(product.SellerID)
}

// CanViewProject allows anyone on approved projects; unapproved ones only to
// the participants and admins.
func (AccessGuard) CanViewProject(actor Actor, project *model.PawahProject) bool {
	if project.IsApproved || actor.IsAdmin {
		return true
	}
	return project.IsParticipant(actor.ID)
}

// CanViewProduct hides inactive or unapproved listings from everyone but the
// seller and admins.
func (AccessGuard) CanViewProduct(actor Actor, product *model.Product) bool {
	if product.IsActive && product.IsApproved {
		return true
	}
	return actor.IsAdmin || actor.Is(product.SellerID)
}

// RequireAdmin fails with ErrForbidden for non-admins.
func (AccessGuard) RequireAdmin(actor Actor) error {
	if !actor.IsAdmin {
		return fmt.Errorf("%w: admin role required", ErrForbidden)
	}
	return nil
}
