package model

import (
	"time"

	"github.com/google/uuid"
)

// Moderation holds the admin review state shared by listings and projects.
// ApprovedAt is only ever set on approval and RejectionReason only on
// rejection; Resubmit clears both.
type Moderation struct {
	IsApproved      bool       `gorm:"not null;index" json:"is_approved"`
	RejectionReason *string    `gorm:"type:text" json:"rejection_reason"`
	ReviewedByID    *uuid.UUID `gorm:"type:uuid" json:"reviewed_by_id"`
	ReviewedAt      *time.Time `json:"reviewed_at"`
	ApprovedAt      *time.Time `json:"approved_at"`
}

// ModerationColumns are the columns written by a review decision.
var ModerationColumns = []string{"is_approved", "rejection_reason", "reviewed_by_id", "reviewed_at", "approved_at"}

func (m *Moderation) Approve(reviewer *uuid.UUID, now time.Time) {
	m.IsApproved = true
	m.RejectionReason = nil
	m.ApprovedAt = &now
	m.ReviewedByID = reviewer
	m.ReviewedAt = &now
}

// Reject stores reason (nil when empty) and clears ApprovedAt.
func (m *Moderation) Reject(reviewer *uuid.UUID, reason string, now time.Time) {
	m.IsApproved = false
	m.RejectionReason = nil
	if reason != "" {
		r := reason
		m.RejectionReason = &r
	}
	m.ApprovedAt = nil
	m.ReviewedByID = reviewer
	m.ReviewedAt = &now
}

// Resubmit puts the record back into the review queue, e.g. after an edit.
func (m *Moderation) Resubmit() {
	m.IsApproved = false
	m.RejectionReason = nil
	m.ApprovedAt = nil
	m.ReviewedByID = nil
	m.ReviewedAt = nil
}
