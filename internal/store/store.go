package store

import (
	"context"
	"time"

	"tutorbot/internal/models"
)

// UserStore is the keyed user document store. Get returns (nil, nil) when the
// user does not exist. Update performs a merge-write: only the listed fields
// are touched, so concurrent unrelated-field updates do not stomp each other.
type UserStore interface {
	Get(ctx context.Context, id int64) (*models.User, error)
	Save(ctx context.Context, u *models.User) error
	Update(ctx context.Context, id int64, fields map[string]any) error
	Delete(ctx context.Context, id int64) error

	// SetReferrer links a referrer exactly once. It is a no-op when the user
	// already has one or when the referrer is the user itself.
	SetReferrer(ctx context.Context, id, referrerID int64) error
	// CreditReferral atomically bumps referral_count, rewards and
	// total_rewards by the configured reward.
	CreditReferral(ctx context.Context, id int64, reward float64) error
	// AddRewards atomically adds to the withdrawable balance only.
	AddRewards(ctx context.Context, id int64, amount float64) error
	// ZeroRewards resets rewards to zero iff the balance still equals
	// expected. Reports whether the reset happened.
	ZeroRewards(ctx context.Context, id int64, expected float64) (bool, error)

	All(ctx context.Context) ([]models.User, error)
	ByVerified(ctx context.Context, verified bool) ([]models.User, error)
	ByReferrer(ctx context.Context, referrerID int64) ([]models.User, error)
	TopReferrers(ctx context.Context, n int) ([]models.User, error)
	Count(ctx context.Context) (int64, error)
	CountJoinedSince(ctx context.Context, since time.Time) (int64, error)
}

// PaymentStore is the append-only payment record store.
type PaymentStore interface {
	Create(ctx context.Context, p *models.Payment) error
	ByID(ctx context.Context, id string) (*models.Payment, error)
	ByStatus(ctx context.Context, status string) ([]models.Payment, error)
	Update(ctx context.Context, id string, fields map[string]any) error
}

// WithdrawalStore is the payout request store.
type WithdrawalStore interface {
	Create(ctx context.Context, w *models.Withdrawal) error
	ByID(ctx context.Context, id string) (*models.Withdrawal, error)
	ByStatus(ctx context.Context, status string) ([]models.Withdrawal, error)
	Update(ctx context.Context, id string, fields map[string]any) error
}

// TrialStore holds the free trial materials.
type TrialStore interface {
	Add(ctx context.Context, m *models.TrialMaterial) error
	All(ctx context.Context) ([]models.TrialMaterial, error)
	ByID(ctx context.Context, id string) (*models.TrialMaterial, error)
	Delete(ctx context.Context, id string) error
}
