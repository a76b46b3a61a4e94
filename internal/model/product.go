package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a marketplace listing. A nil Quantity means the seller does not
// track stock.
type Product struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	SellerID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"seller_id"`
	Seller       *User           `gorm:"foreignKey:SellerID" json:"seller,omitempty"`
	Title        string          `gorm:"type:varchar(120);not null" json:"title"`
	Description  string          `gorm:"type:text" json:"description"`
	Price        decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	Quantity     *int            `gorm:"type:int" json:"quantity"`
	Category     string          `gorm:"type:varchar(50);index" json:"category"`
	ImageURL     string          `gorm:"type:varchar(255)" json:"image_url,omitempty"`
	Location     string          `gorm:"type:varchar(100);index" json:"location"`
	Unit         string          `gorm:"type:varchar(50)" json:"unit,omitempty"`
	MinOrderQty  *int            `gorm:"type:int" json:"min_order_qty"`
	ContactPhone string          `gorm:"type:varchar(30)" json:"contact_phone,omitempty"`
	IsActive     bool            `gorm:"not null;index" json:"is_active"`
	Moderation   `gorm:"embedded"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// TracksStock reports whether orders against p consume a finite quantity.
func (p *Product) TracksStock() bool {
	return p.Quantity != nil
}
