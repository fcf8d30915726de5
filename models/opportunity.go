package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/trendforge/trendforge/utils"
	"gorm.io/gorm"
)

// CompetitionLevel represents how contested a content niche is
type CompetitionLevel string

const (
	CompetitionLow    CompetitionLevel = "low"
	CompetitionMedium CompetitionLevel = "medium"
	CompetitionHigh   CompetitionLevel = "high"
)

// String returns the string representation of the level
func (l CompetitionLevel) String() string {
	return string(l)
}

// Valid checks if the level is valid
func (l CompetitionLevel) Valid() bool {
	switch l {
	case CompetitionLow, CompetitionMedium, CompetitionHigh:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for CompetitionLevel
func (l *CompetitionLevel) Scan(value any) error {
	if value == nil {
		*l = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*l = CompetitionLevel(v)
	case []byte:
		*l = CompetitionLevel(string(v))
	default:
		return fmt.Errorf("cannot scan %T into CompetitionLevel", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for CompetitionLevel
func (l CompetitionLevel) Value() (driver.Value, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("invalid CompetitionLevel: %s", l)
	}
	return string(l), nil
}

// OpportunityStatus represents the status of an opportunity
type OpportunityStatus string

const (
	OpportunityStatusPending   OpportunityStatus = "pending"
	OpportunityStatusAccepted  OpportunityStatus = "accepted"
	OpportunityStatusCompleted OpportunityStatus = "completed"
	OpportunityStatusExpired   OpportunityStatus = "expired"
)

// String returns the string representation of the status
func (s OpportunityStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s OpportunityStatus) Valid() bool {
	switch s {
	case OpportunityStatusPending, OpportunityStatusAccepted,
		OpportunityStatusCompleted, OpportunityStatusExpired:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for OpportunityStatus
func (s *OpportunityStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = OpportunityStatus(v)
	case []byte:
		*s = OpportunityStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into OpportunityStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for OpportunityStatus
func (s OpportunityStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid OpportunityStatus: %s", s)
	}
	return string(s), nil
}

// Opportunity represents a scored, actionable content idea derived from a trend.
// Opportunities are never deleted; stale pending ones are marked expired after
// a retention window.
type Opportunity struct {
	ID               uint              `gorm:"primaryKey" json:"id"`
	UUID             uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:uk_opportunities_uuid" json:"uuid"`
	TrendID          uint              `gorm:"not null;index:idx_opportunities_trend_id" json:"trend_id"`
	Angle            string            `gorm:"type:text;not null" json:"angle"`
	TargetPlatforms  pq.StringArray    `gorm:"type:text[];not null" json:"target_platforms"`
	EstimatedViews   int64             `gorm:"not null" json:"estimated_views"`
	EstimatedCost    float64           `gorm:"not null" json:"estimated_cost"`
	EstimatedRevenue float64           `gorm:"not null" json:"estimated_revenue"`
	EstimatedMinutes int               `gorm:"not null" json:"estimated_minutes"`
	Competition      CompetitionLevel  `gorm:"type:competition_level;not null" json:"competition"`
	PriorityScore    float64           `gorm:"not null;index:idx_opportunities_priority_score" json:"priority_score"`
	Status           OpportunityStatus `gorm:"type:opportunity_status;not null;default:'pending';index:idx_opportunities_status" json:"status"`
	CreatedAt        time.Time         `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_opportunities_created_at" json:"created_at"`
	UpdatedAt        *time.Time        `json:"updated_at,omitempty"`

	// Relations
	Trend *Trend `gorm:"foreignKey:TrendID;references:ID" json:"trend,omitempty"`
}

// TableName returns the table name for the model
func (Opportunity) TableName() string {
	return "opportunities"
}

// BeforeCreate is called before creating a new record
func (o *Opportunity) BeforeCreate(tx *gorm.DB) error {
	if o.UUID == uuid.Nil {
		o.UUID = uuid.New()
	}
	if o.Status == "" {
		o.Status = OpportunityStatusPending
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (o *Opportunity) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	o.UpdatedAt = &now
	return nil
}

// IsActionable checks if the opportunity can still be accepted
func (o *Opportunity) IsActionable() bool {
	return o.Status == OpportunityStatusPending
}

// CanTransitionTo checks if the opportunity can transition to the given status
func (o *Opportunity) CanTransitionTo(newStatus OpportunityStatus) bool {
	switch o.Status {
	case OpportunityStatusPending:
		return newStatus == OpportunityStatusAccepted ||
			newStatus == OpportunityStatusExpired
	case OpportunityStatusAccepted:
		return newStatus == OpportunityStatusCompleted ||
			newStatus == OpportunityStatusPending
	default:
		return false
	}
}

// OpportunityFilter represents filter criteria for opportunities
type OpportunityFilter struct {
	ID            *uint              `json:"id,omitempty"`
	UUID          *uuid.UUID         `json:"uuid,omitempty"`
	TrendID       *uint              `json:"trend_id,omitempty"`
	Status        *OpportunityStatus `json:"status,omitempty"`
	Competition   *CompetitionLevel  `json:"competition,omitempty"`
	MinScore      *float64           `json:"min_score,omitempty"`
	CreatedAfter  *time.Time         `json:"created_after,omitempty"`
	CreatedBefore *time.Time         `json:"created_before,omitempty"`
}
