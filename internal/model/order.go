package model

import (
	"time"

	"kelabpetani/internal/lifecycle"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Order is a single-product purchase. Quantity and TotalPrice are fixed at
// creation; Status only moves through lifecycle.OrderTransitions.
type Order struct {
	ID         uuid.UUID             `gorm:"type:uuid;primaryKey" json:"id"`
	BuyerID    uuid.UUID             `gorm:"type:uuid;not null;index" json:"buyer_id"`
	Buyer      *User                 `gorm:"foreignKey:BuyerID" json:"buyer,omitempty"`
	ProductID  uuid.UUID             `gorm:"type:uuid;not null;index" json:"product_id"`
	Product    *Product              `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Quantity   int                   `gorm:"type:int;not null" json:"quantity"`
	TotalPrice decimal.Decimal       `gorm:"type:decimal(10,2);not null" json:"total_price"`
	Status     lifecycle.OrderStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	CreatedAt  time.Time             `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time             `json:"updated_at"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	ensureID(&o.ID)
	return nil
}
