package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/trendforge/trendforge/utils"
	"gorm.io/gorm"
)

// Trend represents a raw trend record collected from an external source.
// Trends are append-only: once collected they are referenced by opportunities
// but never mutated.
type Trend struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UUID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_trends_uuid" json:"uuid"`
	Source      string    `gorm:"not null;index:idx_trends_source" json:"source"`
	Topic       string    `gorm:"type:text;not null" json:"topic"`
	Popularity  float64   `gorm:"not null" json:"popularity"` // 0-100
	GrowthRate  float64   `gorm:"not null" json:"growth_rate"`
	Category    string    `gorm:"index:idx_trends_category" json:"category"`
	Region      string    `json:"region"`
	CollectedAt time.Time `gorm:"not null;index:idx_trends_collected_at" json:"collected_at"`
	CreatedAt   time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
}

// TableName returns the table name for the model
func (Trend) TableName() string {
	return "trends"
}

// BeforeCreate is called before creating a new record
func (t *Trend) BeforeCreate(tx *gorm.DB) error {
	if t.UUID == uuid.Nil {
		t.UUID = uuid.New()
	}
	if t.CollectedAt.IsZero() {
		t.CollectedAt = utils.UTCNow()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = utils.UTCNow()
	}
	return nil
}

// TrendFilter represents filter criteria for trends
type TrendFilter struct {
	ID              *uint      `json:"id,omitempty"`
	UUID            *uuid.UUID `json:"uuid,omitempty"`
	Source          *string    `json:"source,omitempty"`
	Category        *string    `json:"category,omitempty"`
	Region          *string    `json:"region,omitempty"`
	MinPopularity   *float64   `json:"min_popularity,omitempty"`
	CollectedAfter  *time.Time `json:"collected_after,omitempty"`
	CollectedBefore *time.Time `json:"collected_before,omitempty"`
}
