package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"tutorbot/internal/models"
)

type Withdrawals struct {
	db *gorm.DB
}

func NewWithdrawals(db *gorm.DB) *Withdrawals {
	return &Withdrawals{db: db}
}

func (s *Withdrawals) Create(ctx context.Context, w *models.Withdrawal) error {
	if w.ID == "" {
		w.ID = uuid.New().String()
	}
	if err := s.db.WithContext(ctx).Create(w).Error; err != nil {
		return fmt.Errorf("create withdrawal for user %d: %w", w.UserID, err)
	}
	return nil
}

func (s *Withdrawals) ByID(ctx context.Context, id string) (*models.Withdrawal, error) {
	var w models.Withdrawal
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get withdrawal %s: %w", id, err)
	}
	return &w, nil
}

func (s *Withdrawals) ByStatus(ctx context.Context, status string) ([]models.Withdrawal, error) {
	var withdrawals []models.Withdrawal
	err := s.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at ASC").
		Find(&withdrawals).Error
	if err != nil {
		return nil, fmt.Errorf("list withdrawals by status %s: %w", status, err)
	}
	return withdrawals, nil
}

func (s *Withdrawals) Update(ctx context.Context, id string, fields map[string]any) error {
	err := s.db.WithContext(ctx).
		Model(&models.Withdrawal{}).
		Where("id = ?", id).
		Updates(fields).Error
	if err != nil {
		return fmt.Errorf("update withdrawal %s: %w", id, err)
	}
	return nil
}
