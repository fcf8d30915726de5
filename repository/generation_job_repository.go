package repository

import (
	"context"
	"errors"

	"github.com/trendforge/trendforge/models"
	"github.com/trendforge/trendforge/utils"
	"gorm.io/gorm"
)

// GenerationJobRepositoryImpl implements the GenerationJobRepository interface
type GenerationJobRepositoryImpl struct {
	*BaseRepository[models.GenerationJob, models.GenerationJobFilter]
}

// NewGenerationJobRepository creates a new generation job repository
func NewGenerationJobRepository(db *gorm.DB) GenerationJobRepository {
	return &GenerationJobRepositoryImpl{
		BaseRepository: NewBaseRepository[models.GenerationJob, models.GenerationJobFilter](db),
	}
}

// ByUUID retrieves a generation job by UUID
func (r *GenerationJobRepositoryImpl) ByUUID(ctx context.Context, uuid string) (*models.GenerationJob, error) {
	parsedUUID, err := utils.ParseUUID(uuid)
	if err != nil {
		return nil, err
	}

	filter := models.GenerationJobFilter{UUID: &parsedUUID}
	jobs, err := r.ByFilter(ctx, filter, "", 1, 0)
	if err != nil {
		return nil, err
	}

	if len(jobs) == 0 {
		return nil, nil
	}

	return jobs[0], nil
}

// Update updates a generation job
func (r *GenerationJobRepositoryImpl) Update(ctx context.Context, job *models.GenerationJob) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	now := utils.UTCNow()
	job.UpdatedAt = &now

	err = db.Save(job).Error
	if err != nil {
		return err
	}

	return nil
}

// ActiveByOpportunityID returns the single non-terminal job for an
// opportunity, or nil when none exists
func (r *GenerationJobRepositoryImpl) ActiveByOpportunityID(ctx context.Context, opportunityID uint) (*models.GenerationJob, error) {
	db := r.getDB(ctx)

	var job models.GenerationJob
	err := db.Where("opportunity_id = ? AND stage NOT IN ?", opportunityID, terminalStages()).
		Order("created_at DESC").
		First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &job, nil
}

// ListNonTerminal returns jobs not yet in a terminal stage, oldest first.
// Used by crash recovery at startup.
func (r *GenerationJobRepositoryImpl) ListNonTerminal(ctx context.Context, limit int) ([]*models.GenerationJob, error) {
	db := r.getDB(ctx)

	var jobs []*models.GenerationJob
	query := db.Where("stage NOT IN ?", terminalStages()).Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	err := query.Find(&jobs).Error
	if err != nil {
		return nil, err
	}

	return jobs, nil
}

func terminalStages() []models.JobStage {
	return []models.JobStage{models.StageCompleted, models.StageFailed, models.StageCancelled}
}

// ByFilter retrieves generation jobs based on filter criteria
func (r *GenerationJobRepositoryImpl) ByFilter(ctx context.Context, filter models.GenerationJobFilter, orderBy string, limit, offset int) ([]*models.GenerationJob, error) {
	db := r.getDB(ctx)

	var jobs []*models.GenerationJob
	query := r.applyFilter(db, filter)

	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	query = query.Preload("Opportunity")

	err := query.Find(&jobs).Error
	if err != nil {
		return nil, err
	}

	return jobs, nil
}

// Count returns the number of generation jobs matching the filter
func (r *GenerationJobRepositoryImpl) Count(ctx context.Context, filter models.GenerationJobFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.GenerationJob{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any generation job matching the filter exists
func (r *GenerationJobRepositoryImpl) Exists(ctx context.Context, filter models.GenerationJobFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *GenerationJobRepositoryImpl) applyFilter(db *gorm.DB, filter models.GenerationJobFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.OpportunityID != nil {
		db = db.Where("opportunity_id = ?", *filter.OpportunityID)
	}
	if filter.Tier != nil {
		db = db.Where("tier = ?", *filter.Tier)
	}
	if filter.Stage != nil {
		db = db.Where("stage = ?", *filter.Stage)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at < ?", *filter.CreatedBefore)
	}

	return db
}
