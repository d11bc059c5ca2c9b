package models

import (
	"time"
)

// Withdrawal statuses.
const (
	WithdrawalPending   = "pending"
	WithdrawalCompleted = "completed"
	WithdrawalRejected  = "rejected"
)

type Withdrawal struct {
	ID     string  `gorm:"primaryKey;size:36"`
	UserID int64   `gorm:"not null;index"`
	Amount float64 `gorm:"not null"`

	Method        string `gorm:"size:32"`
	AccountNumber string `gorm:"size:64"`
	AccountName   string `gorm:"size:255"`

	Status    string `gorm:"size:32;default:'pending';index"`
	DecidedBy *int64
	DecidedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}
