package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutorbot/internal/models"
)

func TestPaymentsCreateAssignsID(t *testing.T) {
	payments := NewPayments(testDB(t))
	ctx := context.Background()

	p := &models.Payment{UserID: 1, Amount: 500, Status: models.StatusPending}
	require.NoError(t, payments.Create(ctx, p))
	assert.NotEmpty(t, p.ID)

	got, err := payments.ByID(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 500.0, got.Amount)
}

func TestPaymentsByIDMissingReturnsNil(t *testing.T) {
	payments := NewPayments(testDB(t))
	got, err := payments.ByID(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPaymentsStatusTransition(t *testing.T) {
	payments := NewPayments(testDB(t))
	ctx := context.Background()

	p := &models.Payment{UserID: 1, Amount: 500, Status: models.StatusPending}
	require.NoError(t, payments.Create(ctx, p))

	adminID := int64(900)
	now := time.Now()
	require.NoError(t, payments.Update(ctx, p.ID, map[string]any{
		"status":      models.StatusApproved,
		"approved_by": adminID,
		"decided_at":  now,
	}))

	got, _ := payments.ByID(ctx, p.ID)
	assert.Equal(t, models.StatusApproved, got.Status)
	require.NotNil(t, got.ApprovedBy)
	assert.Equal(t, adminID, *got.ApprovedBy)
	assert.NotNil(t, got.DecidedAt)
}

func TestPaymentsByStatus(t *testing.T) {
	payments := NewPayments(testDB(t))
	ctx := context.Background()

	require.NoError(t, payments.Create(ctx, &models.Payment{UserID: 1, Status: models.StatusPending}))
	require.NoError(t, payments.Create(ctx, &models.Payment{UserID: 2, Status: models.StatusApproved}))

	pending, err := payments.ByStatus(ctx, models.StatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, int64(1), pending[0].UserID)
}

func TestWithdrawalsRoundTrip(t *testing.T) {
	withdrawals := NewWithdrawals(testDB(t))
	ctx := context.Background()

	w := &models.Withdrawal{
		UserID:        1,
		Amount:        150,
		Method:        models.MethodTelebirr,
		AccountNumber: "0911000000",
		AccountName:   "Abebe",
		Status:        models.WithdrawalPending,
	}
	require.NoError(t, withdrawals.Create(ctx, w))
	require.NotEmpty(t, w.ID)

	require.NoError(t, withdrawals.Update(ctx, w.ID, map[string]any{
		"status": models.WithdrawalRejected,
	}))

	got, err := withdrawals.ByID(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalRejected, got.Status)

	pending, err := withdrawals.ByStatus(ctx, models.WithdrawalPending)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestTrialsRoundTrip(t *testing.T) {
	trials := NewTrials(testDB(t))
	ctx := context.Background()

	m := &models.TrialMaterial{Title: "Algebra Sample", Type: models.MaterialText, Content: "x + 1 = 2"}
	require.NoError(t, trials.Add(ctx, m))
	require.NotEmpty(t, m.ID)

	all, err := trials.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)

	got, err := trials.ByID(ctx, m.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Algebra Sample", got.Title)

	require.NoError(t, trials.Delete(ctx, m.ID))
	gone, err := trials.ByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}
