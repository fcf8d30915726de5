package repository

import (
	"context"
	"errors"
	"time"

	"github.com/trendforge/trendforge/models"
	"github.com/trendforge/trendforge/utils"
	"gorm.io/gorm"
)

// TrendRepositoryImpl implements the TrendRepository interface
type TrendRepositoryImpl struct {
	*BaseRepository[models.Trend, models.TrendFilter]
}

// NewTrendRepository creates a new trend repository
func NewTrendRepository(db *gorm.DB) TrendRepository {
	return &TrendRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Trend, models.TrendFilter](db),
	}
}

// ByUUID retrieves a trend by UUID
func (r *TrendRepositoryImpl) ByUUID(ctx context.Context, uuid string) (*models.Trend, error) {
	parsedUUID, err := utils.ParseUUID(uuid)
	if err != nil {
		return nil, err
	}

	filter := models.TrendFilter{UUID: &parsedUUID}
	trends, err := r.ByFilter(ctx, filter, "", 1, 0)
	if err != nil {
		return nil, err
	}

	if len(trends) == 0 {
		return nil, nil
	}

	return trends[0], nil
}

// LatestCollectedAt returns the collected_at of the newest trend for a source
func (r *TrendRepositoryImpl) LatestCollectedAt(ctx context.Context, source string) (*time.Time, error) {
	db := r.getDB(ctx)

	var trend models.Trend
	err := db.Where("source = ?", source).Order("collected_at DESC").First(&trend).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &trend.CollectedAt, nil
}

// ByFilter retrieves trends based on filter criteria
func (r *TrendRepositoryImpl) ByFilter(ctx context.Context, filter models.TrendFilter, orderBy string, limit, offset int) ([]*models.Trend, error) {
	db := r.getDB(ctx)

	var trends []*models.Trend
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

	err := query.Find(&trends).Error
	if err != nil {
		return nil, err
	}

	return trends, nil
}

// Count returns the number of trends matching the filter
func (r *TrendRepositoryImpl) Count(ctx context.Context, filter models.TrendFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.Trend{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any trend matching the filter exists
func (r *TrendRepositoryImpl) Exists(ctx context.Context, filter models.TrendFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *TrendRepositoryImpl) applyFilter(db *gorm.DB, filter models.TrendFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.Source != nil {
		db = db.Where("source = ?", *filter.Source)
	}
	if filter.Category != nil {
		db = db.Where("category = ?", *filter.Category)
	}
	if filter.Region != nil {
		db = db.Where("region = ?", *filter.Region)
	}
	if filter.MinPopularity != nil {
		db = db.Where("popularity >= ?", *filter.MinPopularity)
	}
	if filter.CollectedAfter != nil {
		db = db.Where("collected_at > ?", *filter.CollectedAfter)
	}
	if filter.CollectedBefore != nil {
		db = db.Where("collected_at < ?", *filter.CollectedBefore)
	}

	return db
}
