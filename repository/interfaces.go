// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/trendforge/trendforge/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// TrendRepository defines operations for trends
type TrendRepository interface {
	Repository[models.Trend, models.TrendFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Trend, error)
	LatestCollectedAt(ctx context.Context, source string) (*time.Time, error)
}

// OpportunityRepository defines operations for opportunities
type OpportunityRepository interface {
	Repository[models.Opportunity, models.OpportunityFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Opportunity, error)
	Update(ctx context.Context, opportunity *models.Opportunity) error
	UpdateStatus(ctx context.Context, id uint, status models.OpportunityStatus) error
	ExpirePendingBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// GenerationJobRepository defines operations for generation jobs
type GenerationJobRepository interface {
	Repository[models.GenerationJob, models.GenerationJobFilter]
	ByUUID(ctx context.Context, uuid string) (*models.GenerationJob, error)
	Update(ctx context.Context, job *models.GenerationJob) error
	ActiveByOpportunityID(ctx context.Context, opportunityID uint) (*models.GenerationJob, error)
	ListNonTerminal(ctx context.Context, limit int) ([]*models.GenerationJob, error)
}

// ContentItemRepository defines operations for content items
type ContentItemRepository interface {
	Repository[models.ContentItem, models.ContentItemFilter]
	ByUUID(ctx context.Context, uuid string) (*models.ContentItem, error)
	ByJobID(ctx context.Context, jobID uint) (*models.ContentItem, error)
	Update(ctx context.Context, item *models.ContentItem) error
}

// UploadTaskRepository defines operations for upload tasks
type UploadTaskRepository interface {
	Repository[models.UploadTask, models.UploadTaskFilter]
	ByUUID(ctx context.Context, uuid string) (*models.UploadTask, error)
	Update(ctx context.Context, task *models.UploadTask) error
	ListDue(ctx context.Context, now time.Time, limit int) ([]*models.UploadTask, error)
	ListByBatchID(ctx context.Context, batchID uuid.UUID) ([]*models.UploadTask, error)
	ListStuckUploading(ctx context.Context, cutoff time.Time) ([]*models.UploadTask, error)
}
