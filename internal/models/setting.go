package models

import (
	"time"
)

// Setting is one dynamic configuration entry. Values are stored as strings
// and parsed by the settings service.
type Setting struct {
	Key   string `gorm:"primaryKey;size:64"`
	Value string `gorm:"type:text"`

	UpdatedAt time.Time
}
