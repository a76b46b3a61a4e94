package model

import (
	"time"

	"kelabpetani/internal/lifecycle"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PawahProject is a profit-sharing arrangement between a capital owner and
// the farmer who accepts it. FarmerID stays nil until acceptance.
type PawahProject struct {
	ID                 uuid.UUID             `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID            uuid.UUID             `gorm:"type:uuid;not null;index" json:"owner_id"`
	Owner              *User                 `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	FarmerID           *uuid.UUID            `gorm:"type:uuid;index" json:"farmer_id"`
	Farmer             *User                 `gorm:"foreignKey:FarmerID" json:"farmer,omitempty"`
	Title              string                `gorm:"type:varchar(150);not null" json:"title"`
	Description        string                `gorm:"type:text" json:"description"`
	CropType           string                `gorm:"type:varchar(100);not null;index" json:"crop_type"`
	Location           string                `gorm:"type:varchar(120);not null;index" json:"location"`
	DurationMonths     int                   `gorm:"type:int;not null" json:"duration_months"`
	CapitalRequired    decimal.Decimal       `gorm:"type:decimal(12,2);not null" json:"capital_required"`
	OwnerSharePercent  int                   `gorm:"type:int;not null" json:"owner_share_percent"`
	FarmerSharePercent int                   `gorm:"type:int;not null" json:"farmer_share_percent"`
	Status             lifecycle.PawahStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	Moderation         `gorm:"embedded"`
	CreatedAt          time.Time `gorm:"index" json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func (p *PawahProject) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// IsParticipant reports whether userID is the owner or the assigned farmer.
func (p *PawahProject) IsParticipant(userID uuid.UUID) bool {
	if p.OwnerID == userID {
		return true
	}
	return p.FarmerID != nil && *p.FarmerID == userID
}

// Participants returns the owner and, once assigned, the farmer.
func (p *PawahProject) Participants() []uuid.UUID {
	ids := []uuid.UUID{p.OwnerID}
	if p.FarmerID != nil {
		ids = append(ids, *p.FarmerID)
	}
	return ids
}
