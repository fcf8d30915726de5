package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/trendforge/trendforge/utils"
	"gorm.io/gorm"
)

// UploadStatus represents the status of an upload task
type UploadStatus string

const (
	UploadStatusPending   UploadStatus = "pending"
	UploadStatusScheduled UploadStatus = "scheduled"
	UploadStatusUploading UploadStatus = "uploading"
	UploadStatusCompleted UploadStatus = "completed"
	UploadStatusFailed    UploadStatus = "failed"
)

// String returns the string representation of the status
func (s UploadStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s UploadStatus) Valid() bool {
	switch s {
	case UploadStatusPending, UploadStatusScheduled, UploadStatusUploading,
		UploadStatusCompleted, UploadStatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal checks if the status is terminal
func (s UploadStatus) IsTerminal() bool {
	return s == UploadStatusCompleted || s == UploadStatusFailed
}

// Scan implements the sql.Scanner interface for UploadStatus
func (s *UploadStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = UploadStatus(v)
	case []byte:
		*s = UploadStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into UploadStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for UploadStatus
func (s UploadStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid UploadStatus: %s", s)
	}
	return string(s), nil
}

// UploadTask is one (content item, platform) upload. Platform identity is
// immutable after creation; only status fields mutate. A task whose retries
// are exhausted stays failed permanently; resubmission means a new task.
type UploadTask struct {
	ID            uint         `gorm:"primaryKey" json:"id"`
	UUID          uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:uk_upload_tasks_uuid" json:"uuid"`
	ContentItemID uint         `gorm:"not null;index:idx_upload_tasks_content_item_id" json:"content_item_id"`
	BatchID       *uuid.UUID   `gorm:"type:uuid;index:idx_upload_tasks_batch_id" json:"batch_id,omitempty"`
	Platform      string       `gorm:"not null;index:idx_upload_tasks_platform" json:"platform"`
	Status        UploadStatus `gorm:"type:upload_status;not null;default:'pending';index:idx_upload_tasks_status" json:"status"`
	ExternalID    *string      `json:"external_id,omitempty"`
	ExternalURL   *string      `json:"external_url,omitempty"`
	AttemptCount  int          `gorm:"not null;default:0" json:"attempt_count"`
	MaxRetries    int          `gorm:"not null" json:"max_retries"`
	ScheduledAt   *time.Time   `gorm:"index:idx_upload_tasks_scheduled_at" json:"scheduled_at,omitempty"`
	LastError     *string      `gorm:"type:text" json:"last_error,omitempty"`
	CreatedAt     time.Time    `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt     *time.Time   `json:"updated_at,omitempty"`

	// Relations
	ContentItem *ContentItem `gorm:"foreignKey:ContentItemID;references:ID" json:"content_item,omitempty"`
}

// TableName returns the table name for the model
func (UploadTask) TableName() string {
	return "upload_tasks"
}

// BeforeCreate is called before creating a new record
func (t *UploadTask) BeforeCreate(tx *gorm.DB) error {
	if t.UUID == uuid.Nil {
		t.UUID = uuid.New()
	}
	if t.Status == "" {
		if t.ScheduledAt != nil && t.ScheduledAt.After(utils.UTCNow()) {
			t.Status = UploadStatusScheduled
		} else {
			t.Status = UploadStatusPending
		}
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (t *UploadTask) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	t.UpdatedAt = &now
	return nil
}

// RetriesExhausted checks whether another invocation is allowed. Attempt
// count includes the initial try, so max_retries=3 permits 4 invocations.
func (t *UploadTask) RetriesExhausted() bool {
	return t.AttemptCount > t.MaxRetries
}

// UploadTaskFilter represents filter criteria for upload tasks
type UploadTaskFilter struct {
	ID              *uint         `json:"id,omitempty"`
	UUID            *uuid.UUID    `json:"uuid,omitempty"`
	ContentItemID   *uint         `json:"content_item_id,omitempty"`
	BatchID         *uuid.UUID    `json:"batch_id,omitempty"`
	Platform        *string       `json:"platform,omitempty"`
	Status          *UploadStatus `json:"status,omitempty"`
	ScheduledBefore *time.Time    `json:"scheduled_before,omitempty"`
	CreatedAfter    *time.Time    `json:"created_after,omitempty"`
	CreatedBefore   *time.Time    `json:"created_before,omitempty"`
}
