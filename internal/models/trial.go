package models

import (
	"time"
)

// Trial material types.
const (
	MaterialDocument = "document"
	MaterialPDF      = "pdf"
	MaterialText     = "text"
)

type TrialMaterial struct {
	ID      string `gorm:"primaryKey;size:36"`
	Title   string `gorm:"size:255"`
	Type    string `gorm:"size:32"`
	FileID  string `gorm:"size:255"`
	Content string `gorm:"type:text"`

	CreatedAt time.Time
}
