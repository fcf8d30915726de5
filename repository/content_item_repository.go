package repository

import (
	"context"

	"github.com/trendforge/trendforge/models"
	"github.com/trendforge/trendforge/utils"
	"gorm.io/gorm"
)

// ContentItemRepositoryImpl implements the ContentItemRepository interface
type ContentItemRepositoryImpl struct {
	*BaseRepository[models.ContentItem, models.ContentItemFilter]
}

// NewContentItemRepository creates a new content item repository
func NewContentItemRepository(db *gorm.DB) ContentItemRepository {
	return &ContentItemRepositoryImpl{
		BaseRepository: NewBaseRepository[models.ContentItem, models.ContentItemFilter](db),
	}
}

// ByUUID retrieves a content item by UUID
func (r *ContentItemRepositoryImpl) ByUUID(ctx context.Context, uuid string) (*models.ContentItem, error) {
	parsedUUID, err := utils.ParseUUID(uuid)
	if err != nil {
		return nil, err
	}

	filter := models.ContentItemFilter{UUID: &parsedUUID}
	items, err := r.ByFilter(ctx, filter, "", 1, 0)
	if err != nil {
		return nil, err
	}

	if len(items) == 0 {
		return nil, nil
	}

	return items[0], nil
}

// ByJobID retrieves the content item produced by a generation job
func (r *ContentItemRepositoryImpl) ByJobID(ctx context.Context, jobID uint) (*models.ContentItem, error) {
	filter := models.ContentItemFilter{JobID: &jobID}
	items, err := r.ByFilter(ctx, filter, "created_at DESC", 1, 0)
	if err != nil {
		return nil, err
	}

	if len(items) == 0 {
		return nil, nil
	}

	return items[0], nil
}

// Update updates a content item
func (r *ContentItemRepositoryImpl) Update(ctx context.Context, item *models.ContentItem) error {
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
	item.UpdatedAt = &now

	err = db.Save(item).Error
	if err != nil {
		return err
	}

	return nil
}

// ByFilter retrieves content items based on filter criteria
func (r *ContentItemRepositoryImpl) ByFilter(ctx context.Context, filter models.ContentItemFilter, orderBy string, limit, offset int) ([]*models.ContentItem, error) {
	db := r.getDB(ctx)

	var items []*models.ContentItem
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

	err := query.Find(&items).Error
	if err != nil {
		return nil, err
	}

	return items, nil
}

// Count returns the number of content items matching the filter
func (r *ContentItemRepositoryImpl) Count(ctx context.Context, filter models.ContentItemFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.ContentItem{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any content item matching the filter exists
func (r *ContentItemRepositoryImpl) Exists(ctx context.Context, filter models.ContentItemFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *ContentItemRepositoryImpl) applyFilter(db *gorm.DB, filter models.ContentItemFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.JobID != nil {
		db = db.Where("job_id = ?", *filter.JobID)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at < ?", *filter.CreatedBefore)
	}

	return db
}
