package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a member signed in through the identity provider.
type User struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	GoogleID       *string   `gorm:"type:varchar(100);uniqueIndex" json:"-"`
	Email          string    `gorm:"type:varchar(120);uniqueIndex;not null" json:"email"`
	Name           string    `gorm:"type:varchar(100);not null" json:"name"`
	ProfilePicture string    `gorm:"type:varchar(255)" json:"profile_picture,omitempty"`
	IsActive       bool      `gorm:"not null" json:"is_active"`
	IsAdmin        bool      `gorm:"not null" json:"is_admin"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	ensureID(&u.ID)
	return nil
}
