package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/trendforge/trendforge/utils"
	"gorm.io/gorm"
)

// QualityTier represents a quality/cost bracket selecting which adapter pool
// serves a capability
type QualityTier string

const (
	TierBudget   QualityTier = "budget"
	TierBalanced QualityTier = "balanced"
	TierPremium  QualityTier = "premium"
)

// String returns the string representation of the tier
func (t QualityTier) String() string {
	return string(t)
}

// Valid checks if the tier is valid
func (t QualityTier) Valid() bool {
	switch t {
	case TierBudget, TierBalanced, TierPremium:
		return true
	default:
		return false
	}
}

// Below returns the next cheaper tier, or false when already at budget
func (t QualityTier) Below() (QualityTier, bool) {
	switch t {
	case TierPremium:
		return TierBalanced, true
	case TierBalanced:
		return TierBudget, true
	default:
		return "", false
	}
}

// Scan implements the sql.Scanner interface for QualityTier
func (t *QualityTier) Scan(value any) error {
	if value == nil {
		*t = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*t = QualityTier(v)
	case []byte:
		*t = QualityTier(string(v))
	default:
		return fmt.Errorf("cannot scan %T into QualityTier", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for QualityTier
func (t QualityTier) Value() (driver.Value, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid QualityTier: %s", t)
	}
	return string(t), nil
}

// JobStage represents the current stage of a generation job
type JobStage string

const (
	StageQueued     JobStage = "queued"
	StagePlanning   JobStage = "planning"
	StageScript     JobStage = "script"
	StageVisual     JobStage = "visual"
	StageAudio      JobStage = "audio"
	StageAssembly   JobStage = "assembly"
	StageOptimizing JobStage = "optimizing"
	StageCompleted  JobStage = "completed"
	StageFailed     JobStage = "failed"
	StageCancelled  JobStage = "cancelled"
)

// StageOrder is the strict forward ordering of pipeline stages
var StageOrder = []JobStage{
	StageQueued,
	StagePlanning,
	StageScript,
	StageVisual,
	StageAudio,
	StageAssembly,
	StageOptimizing,
	StageCompleted,
}

// String returns the string representation of the stage
func (s JobStage) String() string {
	return string(s)
}

// Valid checks if the stage is valid
func (s JobStage) Valid() bool {
	if s == StageFailed || s == StageCancelled {
		return true
	}
	return s.Index() >= 0
}

// Index returns the stage position within StageOrder, or -1 for terminal
// failure states
func (s JobStage) Index() int {
	for i, st := range StageOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// IsTerminal checks if the stage is a terminal state
func (s JobStage) IsTerminal() bool {
	return s == StageCompleted || s == StageFailed || s == StageCancelled
}

// CanAdvanceTo checks that the transition moves exactly one stage forward or
// into failed/cancelled from a non-terminal stage
func (s JobStage) CanAdvanceTo(next JobStage) bool {
	if s.IsTerminal() {
		return false
	}
	if next == StageFailed || next == StageCancelled {
		return true
	}
	return next.Index() == s.Index()+1
}

// Scan implements the sql.Scanner interface for JobStage
func (s *JobStage) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = JobStage(v)
	case []byte:
		*s = JobStage(string(v))
	default:
		return fmt.Errorf("cannot scan %T into JobStage", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for JobStage
func (s JobStage) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid JobStage: %s", s)
	}
	return string(s), nil
}

// StageStatus represents the per-stage execution status
type StageStatus string

const (
	StageStatusPending   StageStatus = "pending"
	StageStatusRunning   StageStatus = "running"
	StageStatusCompleted StageStatus = "completed"
	StageStatusFailed    StageStatus = "failed"
)

// StageRecord captures the outcome of one pipeline stage, including which
// adapter served it and what it actually cost
type StageRecord struct {
	Status       StageStatus `json:"status"`
	StartedAt    *time.Time  `json:"started_at,omitempty"`
	CompletedAt  *time.Time  `json:"completed_at,omitempty"`
	AssetRef     *string     `json:"asset_ref,omitempty"`
	Adapter      string      `json:"adapter,omitempty"`
	Tier         string      `json:"tier,omitempty"`
	DegradedFrom *string     `json:"degraded_from,omitempty"`
	Cost         float64     `json:"cost,omitempty"`
	LatencyMS    int64       `json:"latency_ms,omitempty"`
	Error        *string     `json:"error,omitempty"`
}

// StageRecords maps stage name to its record (stored as jsonb)
type StageRecords map[string]StageRecord

// Value implements the driver.Valuer interface for StageRecords
func (r StageRecords) Value() (driver.Value, error) {
	return json.Marshal(r)
}

// Scan implements the sql.Scanner interface for StageRecords
func (r *StageRecords) Scan(value any) error {
	if value == nil {
		*r = StageRecords{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into StageRecords", value)
	}

	return json.Unmarshal(bytes, r)
}

// ContentPlan is the planning-stage output: how the asset will be produced
type ContentPlan struct {
	SceneCount     int      `json:"scene_count"`
	TargetDuration int      `json:"target_duration_seconds"`
	Platforms      []string `json:"platforms"`
	Angle          string   `json:"angle"`
}

// Value implements the driver.Valuer interface for ContentPlan
func (p ContentPlan) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan implements the sql.Scanner interface for ContentPlan
func (p *ContentPlan) Scan(value any) error {
	if value == nil {
		*p = ContentPlan{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into ContentPlan", value)
	}

	return json.Unmarshal(bytes, p)
}

// GenerationJob is the stateful unit driving one opportunity through content
// creation stages. At most one non-terminal job exists per opportunity.
type GenerationJob struct {
	ID              uint         `gorm:"primaryKey" json:"id"`
	UUID            uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:uk_generation_jobs_uuid" json:"uuid"`
	OpportunityID   uint         `gorm:"not null;index:idx_generation_jobs_opportunity_id" json:"opportunity_id"`
	Tier            QualityTier  `gorm:"type:quality_tier;not null" json:"tier"`
	Stage           JobStage     `gorm:"type:job_stage;not null;default:'queued';index:idx_generation_jobs_stage" json:"stage"`
	Stages          StageRecords `gorm:"type:jsonb;not null" json:"stages"`
	Plan            ContentPlan  `gorm:"type:jsonb" json:"plan"`
	Cost            float64      `gorm:"not null;default:0" json:"cost"`
	ErrorDetail     *string      `gorm:"type:text" json:"error_detail,omitempty"`
	CancelRequested bool         `gorm:"not null;default:false" json:"cancel_requested"`
	CreatedAt       time.Time    `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_generation_jobs_created_at" json:"created_at"`
	UpdatedAt       *time.Time   `json:"updated_at,omitempty"`
	CompletedAt     *time.Time   `json:"completed_at,omitempty"`

	// Relations
	Opportunity *Opportunity `gorm:"foreignKey:OpportunityID;references:ID" json:"opportunity,omitempty"`
}

// TableName returns the table name for the model
func (GenerationJob) TableName() string {
	return "generation_jobs"
}

// BeforeCreate is called before creating a new record
func (j *GenerationJob) BeforeCreate(tx *gorm.DB) error {
	if j.UUID == uuid.Nil {
		j.UUID = uuid.New()
	}
	if j.Stage == "" {
		j.Stage = StageQueued
	}
	if j.Stages == nil {
		j.Stages = StageRecords{}
	}
	if j.CreatedAt.IsZero() {
		j.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (j *GenerationJob) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	j.UpdatedAt = &now
	return nil
}

// IsTerminal checks if the job reached a terminal state
func (j *GenerationJob) IsTerminal() bool {
	return j.Stage.IsTerminal()
}

// StageCompleted checks whether the named stage already completed, so a retry
// can skip it instead of re-invoking the capability
func (j *GenerationJob) StageCompleted(stage JobStage) bool {
	rec, ok := j.Stages[stage.String()]
	return ok && rec.Status == StageStatusCompleted
}

// Progress returns completion percentage based on the stage position
func (j *GenerationJob) Progress() int {
	switch j.Stage {
	case StageCompleted:
		return 100
	case StageFailed, StageCancelled:
		completed := 0
		for _, st := range StageOrder[1 : len(StageOrder)-1] {
			if j.StageCompleted(st) {
				completed++
			}
		}
		return completed * 100 / (len(StageOrder) - 2)
	default:
		return j.Stage.Index() * 100 / (len(StageOrder) - 1)
	}
}

// ResumeStage returns the first non-completed pipeline stage, used by manual
// retry and crash recovery
func (j *GenerationJob) ResumeStage() JobStage {
	for _, st := range StageOrder[1 : len(StageOrder)-1] {
		if !j.StageCompleted(st) {
			return st
		}
	}
	return StageCompleted
}

// GenerationJobFilter represents filter criteria for generation jobs
type GenerationJobFilter struct {
	ID            *uint        `json:"id,omitempty"`
	UUID          *uuid.UUID   `json:"uuid,omitempty"`
	OpportunityID *uint        `json:"opportunity_id,omitempty"`
	Tier          *QualityTier `json:"tier,omitempty"`
	Stage         *JobStage    `json:"stage,omitempty"`
	CreatedAfter  *time.Time   `json:"created_after,omitempty"`
	CreatedBefore *time.Time   `json:"created_before,omitempty"`
}
