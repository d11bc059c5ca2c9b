package models

import (
	"time"
)

// Payment statuses. Pending is the only non-terminal state.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

type Payment struct {
	ID     string  `gorm:"primaryKey;size:36"`
	UserID int64   `gorm:"not null;index"`
	Amount float64 `gorm:"not null"`
	Method string  `gorm:"size:32"`
	FileID string  `gorm:"size:255"`
	Status string  `gorm:"size:32;default:'pending';index"`

	ApprovedBy *int64
	RejectedBy *int64
	DecidedAt  *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}
