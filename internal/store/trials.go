package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"tutorbot/internal/models"
)

type Trials struct {
	db *gorm.DB
}

func NewTrials(db *gorm.DB) *Trials {
	return &Trials{db: db}
}

func (s *Trials) Add(ctx context.Context, m *models.TrialMaterial) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("add trial material: %w", err)
	}
	return nil
}

func (s *Trials) All(ctx context.Context) ([]models.TrialMaterial, error) {
	var materials []models.TrialMaterial
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&materials).Error; err != nil {
		return nil, fmt.Errorf("list trial materials: %w", err)
	}
	return materials, nil
}

func (s *Trials) ByID(ctx context.Context, id string) (*models.TrialMaterial, error) {
	var m models.TrialMaterial
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get trial material %s: %w", id, err)
	}
	return &m, nil
}

func (s *Trials) Delete(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.TrialMaterial{}).Error; err != nil {
		return fmt.Errorf("delete trial material %s: %w", id, err)
	}
	return nil
}
