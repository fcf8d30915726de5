package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/trendforge/trendforge/models"
	"github.com/trendforge/trendforge/utils"
	"gorm.io/gorm"
)

// UploadTaskRepositoryImpl implements the UploadTaskRepository interface
type UploadTaskRepositoryImpl struct {
	*BaseRepository[models.UploadTask, models.UploadTaskFilter]
}

// NewUploadTaskRepository creates a new upload task repository
func NewUploadTaskRepository(db *gorm.DB) UploadTaskRepository {
	return &UploadTaskRepositoryImpl{
		BaseRepository: NewBaseRepository[models.UploadTask, models.UploadTaskFilter](db),
	}
}

// ByUUID retrieves an upload task by UUID
func (r *UploadTaskRepositoryImpl) ByUUID(ctx context.Context, uuid string) (*models.UploadTask, error) {
	parsedUUID, err := utils.ParseUUID(uuid)
	if err != nil {
		return nil, err
	}

	filter := models.UploadTaskFilter{UUID: &parsedUUID}
	tasks, err := r.ByFilter(ctx, filter, "", 1, 0)
	if err != nil {
		return nil, err
	}

	if len(tasks) == 0 {
		return nil, nil
	}

	return tasks[0], nil
}

// Update updates an upload task
func (r *UploadTaskRepositoryImpl) Update(ctx context.Context, task *models.UploadTask) error {
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
	task.UpdatedAt = &now

	err = db.Save(task).Error
	if err != nil {
		return err
	}

	return nil
}

// ListDue returns scheduled tasks whose scheduled_at has passed, oldest first
func (r *UploadTaskRepositoryImpl) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.UploadTask, error) {
	db := r.getDB(ctx)

	var tasks []*models.UploadTask
	query := db.Where("status = ? AND scheduled_at <= ?", models.UploadStatusScheduled, now).
		Order("scheduled_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	err := query.Find(&tasks).Error
	if err != nil {
		return nil, err
	}

	return tasks, nil
}

// ListByBatchID retrieves all tasks belonging to a batch
func (r *UploadTaskRepositoryImpl) ListByBatchID(ctx context.Context, batchID uuid.UUID) ([]*models.UploadTask, error) {
	filter := models.UploadTaskFilter{BatchID: &batchID}
	return r.ByFilter(ctx, filter, "created_at ASC", 0, 0)
}

// ListStuckUploading returns tasks left in the uploading status before the
// cutoff. They belong to workers that died mid-upload.
func (r *UploadTaskRepositoryImpl) ListStuckUploading(ctx context.Context, cutoff time.Time) ([]*models.UploadTask, error) {
	db := r.getDB(ctx)

	var tasks []*models.UploadTask
	err := db.Where("status = ? AND updated_at <= ?", models.UploadStatusUploading, cutoff).
		Order("updated_at ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}

	return tasks, nil
}

// ByFilter retrieves upload tasks based on filter criteria
func (r *UploadTaskRepositoryImpl) ByFilter(ctx context.Context, filter models.UploadTaskFilter, orderBy string, limit, offset int) ([]*models.UploadTask, error) {
	db := r.getDB(ctx)

	var tasks []*models.UploadTask
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

	err := query.Find(&tasks).Error
	if err != nil {
		return nil, err
	}

	return tasks, nil
}

// Count returns the number of upload tasks matching the filter
func (r *UploadTaskRepositoryImpl) Count(ctx context.Context, filter models.UploadTaskFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.UploadTask{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any upload task matching the filter exists
func (r *UploadTaskRepositoryImpl) Exists(ctx context.Context, filter models.UploadTaskFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *UploadTaskRepositoryImpl) applyFilter(db *gorm.DB, filter models.UploadTaskFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.ContentItemID != nil {
		db = db.Where("content_item_id = ?", *filter.ContentItemID)
	}
	if filter.BatchID != nil {
		db = db.Where("batch_id = ?", *filter.BatchID)
	}
	if filter.Platform != nil {
		db = db.Where("platform = ?", *filter.Platform)
	}
	if filter.Status != nil {
		db = db.Where("status = ?", *filter.Status)
	}
	if filter.ScheduledBefore != nil {
		db = db.Where("scheduled_at < ?", *filter.ScheduledBefore)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at < ?", *filter.CreatedBefore)
	}

	return db
}
