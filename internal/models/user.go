package models

import (
	"time"
)

// Registration flow steps persisted on the user record.
const (
	StepNotStarted            = "not_started"
	StepAwaitingName          = "awaiting_name"
	StepAwaitingPhone         = "awaiting_phone"
	StepAwaitingStream        = "awaiting_stream"
	StepAwaitingPaymentMethod = "awaiting_payment_method"
	StepAwaitingScreenshot    = "awaiting_screenshot"
	StepCompleted             = "completed"
)

// Payout-profile editing steps persisted on the user record.
const (
	PayoutStepNone            = ""
	PayoutStepAwaitingMethod  = "awaiting_method"
	PayoutStepAwaitingAccount = "awaiting_account"
	PayoutStepAwaitingName    = "awaiting_name"
)

// Payment lifecycle statuses mirrored onto the user record.
const (
	PaymentNotStarted = "not_started"
	PaymentPending    = "pending"
	PaymentApproved   = "approved"
	PaymentRejected   = "rejected"
)

// Student streams.
const (
	StreamNatural    = "natural"
	StreamSocial     = "social"
	StreamTechnology = "technology"
)

// Payment methods.
const (
	MethodTelebirr = "telebirr"
	MethodCBEBirr  = "cbebirr"
)

type User struct {
	TelegramID int64  `gorm:"primaryKey"`
	FirstName  string `gorm:"size:255"`
	Username   string `gorm:"size:255"`

	Name          string `gorm:"size:255"`
	Phone         string `gorm:"size:32"`
	StudentType   string `gorm:"size:32"`
	PaymentMethod string `gorm:"size:32"`

	RegistrationStep string `gorm:"size:32;default:'not_started'"`
	PaymentStatus    string `gorm:"size:32;default:'not_started'"`
	IsVerified       bool   `gorm:"default:false"`

	// ReferrerID is set at most once and never equals TelegramID.
	ReferrerID    *int64  `gorm:"index"`
	ReferralCount int     `gorm:"default:0"`
	Rewards       float64 `gorm:"default:0"`
	TotalRewards  float64 `gorm:"default:0"`

	PayoutMethod  string `gorm:"size:32"`
	AccountNumber string `gorm:"size:64"`
	AccountName   string `gorm:"size:255"`
	PayoutStep    string `gorm:"size:32;default:''"`

	Blocked  bool `gorm:"default:false"`
	JoinedAt time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}
