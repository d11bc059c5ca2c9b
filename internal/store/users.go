package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"tutorbot/internal/models"
)

type Users struct {
	db *gorm.DB
}

func NewUsers(db *gorm.DB) *Users {
	return &Users{db: db}
}

func (s *Users) Get(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("telegram_id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return &user, nil
}

func (s *Users) Save(ctx context.Context, u *models.User) error {
	if err := s.db.WithContext(ctx).Save(u).Error; err != nil {
		return fmt.Errorf("save user %d: %w", u.TelegramID, err)
	}
	return nil
}

func (s *Users) Update(ctx context.Context, id int64, fields map[string]any) error {
	err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("telegram_id = ?", id).
		Updates(fields).Error
	if err != nil {
		return fmt.Errorf("update user %d: %w", id, err)
	}
	return nil
}

func (s *Users) Delete(ctx context.Context, id int64) error {
	err := s.db.WithContext(ctx).
		Where("telegram_id = ?", id).
		Delete(&models.User{}).Error
	if err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	return nil
}

func (s *Users) SetReferrer(ctx context.Context, id, referrerID int64) error {
	if id == referrerID {
		return nil
	}
	// The referrer_id IS NULL guard makes attribution write-once even under
	// duplicate update delivery.
	err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("telegram_id = ? AND referrer_id IS NULL", id).
		Update("referrer_id", referrerID).Error
	if err != nil {
		return fmt.Errorf("set referrer for user %d: %w", id, err)
	}
	return nil
}

func (s *Users) CreditReferral(ctx context.Context, id int64, reward float64) error {
	err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("telegram_id = ?", id).
		Updates(map[string]any{
			"referral_count": gorm.Expr("referral_count + 1"),
			"rewards":        gorm.Expr("rewards + ?", reward),
			"total_rewards":  gorm.Expr("total_rewards + ?", reward),
		}).Error
	if err != nil {
		return fmt.Errorf("credit referral for user %d: %w", id, err)
	}
	return nil
}

func (s *Users) AddRewards(ctx context.Context, id int64, amount float64) error {
	err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("telegram_id = ?", id).
		Update("rewards", gorm.Expr("rewards + ?", amount)).Error
	if err != nil {
		return fmt.Errorf("add rewards for user %d: %w", id, err)
	}
	return nil
}

func (s *Users) ZeroRewards(ctx context.Context, id int64, expected float64) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("telegram_id = ? AND rewards = ?", id, expected).
		Update("rewards", 0)
	if res.Error != nil {
		return false, fmt.Errorf("zero rewards for user %d: %w", id, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *Users) All(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *Users) ByVerified(ctx context.Context, verified bool) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).
		Where("is_verified = ?", verified).
		Order("created_at ASC").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("list users by verified=%v: %w", verified, err)
	}
	return users, nil
}

func (s *Users) ByReferrer(ctx context.Context, referrerID int64) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).
		Where("referrer_id = ?", referrerID).
		Order("created_at ASC").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("list referrals of %d: %w", referrerID, err)
	}
	return users, nil
}

func (s *Users) TopReferrers(ctx context.Context, n int) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).
		Order("referral_count DESC, created_at ASC").
		Limit(n).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("top referrers: %w", err)
	}
	return users, nil
}

func (s *Users) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

func (s *Users) CountJoinedSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("joined_at >= ?", since).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count users since %s: %w", since, err)
	}
	return count, nil
}
