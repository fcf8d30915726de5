package repository

import (
	"context"
	"time"

	"github.com/trendforge/trendforge/models"
	"github.com/trendforge/trendforge/utils"
	"gorm.io/gorm"
)

// OpportunityRepositoryImpl implements the OpportunityRepository interface
type OpportunityRepositoryImpl struct {
	*BaseRepository[models.Opportunity, models.OpportunityFilter]
}

// NewOpportunityRepository creates a new opportunity repository
func NewOpportunityRepository(db *gorm.DB) OpportunityRepository {
	return &OpportunityRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Opportunity, models.OpportunityFilter](db),
	}
}

// ByUUID retrieves an opportunity by UUID
func (r *OpportunityRepositoryImpl) ByUUID(ctx context.Context, uuid string) (*models.Opportunity, error) {
	parsedUUID, err := utils.ParseUUID(uuid)
	if err != nil {
		return nil, err
	}

	filter := models.OpportunityFilter{UUID: &parsedUUID}
	opportunities, err := r.ByFilter(ctx, filter, "", 1, 0)
	if err != nil {
		return nil, err
	}

	if len(opportunities) == 0 {
		return nil, nil
	}

	return opportunities[0], nil
}

// Update updates an opportunity
func (r *OpportunityRepositoryImpl) Update(ctx context.Context, opportunity *models.Opportunity) error {
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
	opportunity.UpdatedAt = &now

	err = db.Save(opportunity).Error
	if err != nil {
		return err
	}

	return nil
}

// UpdateStatus updates only the status of an opportunity
func (r *OpportunityRepositoryImpl) UpdateStatus(ctx context.Context, id uint, status models.OpportunityStatus) error {
	db := r.getDB(ctx)

	return db.Model(&models.Opportunity{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     status,
			"updated_at": utils.UTCNow(),
		}).Error
}

// ExpirePendingBefore marks pending opportunities created before the cutoff as
// expired and returns the number of rows affected
func (r *OpportunityRepositoryImpl) ExpirePendingBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	db := r.getDB(ctx)

	res := db.Model(&models.Opportunity{}).
		Where("status = ? AND created_at < ?", models.OpportunityStatusPending, cutoff).
		Updates(map[string]any{
			"status":     models.OpportunityStatusExpired,
			"updated_at": utils.UTCNow(),
		})
	if res.Error != nil {
		return 0, res.Error
	}

	return res.RowsAffected, nil
}

// ByFilter retrieves opportunities based on filter criteria
func (r *OpportunityRepositoryImpl) ByFilter(ctx context.Context, filter models.OpportunityFilter, orderBy string, limit, offset int) ([]*models.Opportunity, error) {
	db := r.getDB(ctx)

	var opportunities []*models.Opportunity
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

	query = query.Preload("Trend")

	err := query.Find(&opportunities).Error
	if err != nil {
		return nil, err
	}

	return opportunities, nil
}

// Count returns the number of opportunities matching the filter
func (r *OpportunityRepositoryImpl) Count(ctx context.Context, filter models.OpportunityFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.Opportunity{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any opportunity matching the filter exists
func (r *OpportunityRepositoryImpl) Exists(ctx context.Context, filter models.OpportunityFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *OpportunityRepositoryImpl) applyFilter(db *gorm.DB, filter models.OpportunityFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.TrendID != nil {
		db = db.Where("trend_id = ?", *filter.TrendID)
	}
	if filter.Status != nil {
		db = db.Where("status = ?", *filter.Status)
	}
	if filter.Competition != nil {
		db = db.Where("competition = ?", *filter.Competition)
	}
	if filter.MinScore != nil {
		db = db.Where("priority_score >= ?", *filter.MinScore)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at < ?", *filter.CreatedBefore)
	}

	return db
}
