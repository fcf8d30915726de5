package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/trendforge/trendforge/utils"
	"gorm.io/gorm"
)

// PlatformVariant holds the per-platform optimized metadata produced by the
// optimizing stage. A failed optimization is recorded here without failing
// the owning job.
type PlatformVariant struct {
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Hashtags    []string `json:"hashtags,omitempty"`
	Thumbnail   string   `json:"thumbnail,omitempty"`
	Error       *string  `json:"error,omitempty"`
}

// PlatformVariants maps platform name to its variant (stored as jsonb)
type PlatformVariants map[string]PlatformVariant

// Value implements the driver.Valuer interface for PlatformVariants
func (v PlatformVariants) Value() (driver.Value, error) {
	return json.Marshal(v)
}

// Scan implements the sql.Scanner interface for PlatformVariants
func (v *PlatformVariants) Scan(value any) error {
	if value == nil {
		*v = PlatformVariants{}
		return nil
	}

	var bytes []byte
	switch val := value.(type) {
	case []byte:
		bytes = val
	case string:
		bytes = []byte(val)
	default:
		return fmt.Errorf("cannot scan %T into PlatformVariants", value)
	}

	return json.Unmarshal(bytes, v)
}

// ContentItem is the finished asset produced by a generation job's assembly
// stage, plus the per-platform variants from optimizing.
type ContentItem struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	UUID      uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:uk_content_items_uuid" json:"uuid"`
	JobID     uint             `gorm:"not null;index:idx_content_items_job_id" json:"job_id"`
	Title     string           `gorm:"not null" json:"title"`
	AssetURL  string           `gorm:"not null" json:"asset_url"`
	ScriptRef string           `json:"script_ref"`
	ImageRefs pq.StringArray   `gorm:"type:text[]" json:"image_refs"`
	AudioRef  string           `json:"audio_ref"`
	Duration  int              `json:"duration_seconds"`
	Variants  PlatformVariants `gorm:"type:jsonb" json:"variants"`
	CreatedAt time.Time        `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt *time.Time       `json:"updated_at,omitempty"`

	// Relations
	Job *GenerationJob `gorm:"foreignKey:JobID;references:ID" json:"job,omitempty"`
}

// TableName returns the table name for the model
func (ContentItem) TableName() string {
	return "content_items"
}

// BeforeCreate is called before creating a new record
func (c *ContentItem) BeforeCreate(tx *gorm.DB) error {
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (c *ContentItem) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	c.UpdatedAt = &now
	return nil
}

// ContentItemFilter represents filter criteria for content items
type ContentItemFilter struct {
	ID            *uint      `json:"id,omitempty"`
	UUID          *uuid.UUID `json:"uuid,omitempty"`
	JobID         *uint      `json:"job_id,omitempty"`
	CreatedAfter  *time.Time `json:"created_after,omitempty"`
	CreatedBefore *time.Time `json:"created_before,omitempty"`
}
