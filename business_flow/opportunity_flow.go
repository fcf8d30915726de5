// Package businessflow contains the core business logic and use cases for opportunity workflows
package businessflow

import (
	"context"
	"time"

	"github.com/trendforge/trendforge/app/dto"
	"github.com/trendforge/trendforge/models"
	"github.com/trendforge/trendforge/repository"
	"github.com/trendforge/trendforge/utils"
	"gorm.io/gorm"
)

// OpportunityFlow handles the opportunity business logic
type OpportunityFlow interface {
	ListOpportunities(ctx context.Context, req *dto.ListOpportunitiesRequest, metadata *ClientMetadata) (*dto.ListOpportunitiesResponse, error)
	GetOpportunity(ctx context.Context, uuid string) (*dto.OpportunityDTO, error)
	ExpireStale(ctx context.Context, retention time.Duration) (int64, error)
}

// OpportunityFlowImpl implements the opportunity business flow
type OpportunityFlowImpl struct {
	opportunityRepo repository.OpportunityRepository
	trendRepo       repository.TrendRepository
	db              *gorm.DB
}

// NewOpportunityFlow creates a new opportunity flow instance
func NewOpportunityFlow(
	opportunityRepo repository.OpportunityRepository,
	trendRepo repository.TrendRepository,
	db *gorm.DB,
) OpportunityFlow {
	return &OpportunityFlowImpl{
		opportunityRepo: opportunityRepo,
		trendRepo:       trendRepo,
		db:              db,
	}
}

// ListOpportunities returns a page of opportunities ordered by priority score
func (s *OpportunityFlowImpl) ListOpportunities(ctx context.Context, req *dto.ListOpportunitiesRequest, metadata *ClientMetadata) (*dto.ListOpportunitiesResponse, error) {
	page := req.Page
	if page == 0 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize == 0 {
		pageSize = 20
	}
	if page < 1 {
		return nil, NewBusinessError("INVALID_PAGINATION", "Invalid pagination", ErrInvalidPage)
	}
	if pageSize < 1 || pageSize > 100 {
		return nil, NewBusinessError("INVALID_PAGINATION", "Invalid pagination", ErrInvalidPageSize)
	}

	filter := models.OpportunityFilter{}
	if req.Status != "" {
		status := models.OpportunityStatus(req.Status)
		filter.Status = &status
	}
	if req.MinScore > 0 {
		minScore := float64(req.MinScore)
		filter.MinScore = &minScore
	}

	total, err := s.opportunityRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("OPPORTUNITY_LIST_FAILED", "Failed to count opportunities", err)
	}

	opportunities, err := s.opportunityRepo.ByFilter(ctx, filter, "priority_score DESC, created_at DESC", pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, NewBusinessError("OPPORTUNITY_LIST_FAILED", "Failed to list opportunities", err)
	}

	items := make([]dto.OpportunityDTO, 0, len(opportunities))
	for _, o := range opportunities {
		items = append(items, ToOpportunityDTO(o))
	}

	return &dto.ListOpportunitiesResponse{
		Items: items,
		Pagination: dto.Pagination{
			Page:     page,
			PageSize: pageSize,
			Total:    total,
		},
	}, nil
}

// GetOpportunity returns one opportunity by UUID
func (s *OpportunityFlowImpl) GetOpportunity(ctx context.Context, uuid string) (*dto.OpportunityDTO, error) {
	opportunity, err := s.opportunityRepo.ByUUID(ctx, uuid)
	if err != nil {
		return nil, NewBusinessError("OPPORTUNITY_LOOKUP_FAILED", "Failed to lookup opportunity", err)
	}
	if opportunity == nil {
		return nil, NewBusinessError("OPPORTUNITY_NOT_FOUND", "Opportunity not found", ErrOpportunityNotFound)
	}

	result := ToOpportunityDTO(opportunity)
	return &result, nil
}

// ExpireStale marks pending opportunities older than the retention window as
// expired and returns how many were affected
func (s *OpportunityFlowImpl) ExpireStale(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := utils.UTCNow().Add(-retention)
	expired, err := s.opportunityRepo.ExpirePendingBefore(ctx, cutoff)
	if err != nil {
		return 0, NewBusinessError("OPPORTUNITY_EXPIRY_FAILED", "Failed to expire stale opportunities", err)
	}
	return expired, nil
}

// ToOpportunityDTO converts an opportunity model to its API representation
func ToOpportunityDTO(o *models.Opportunity) dto.OpportunityDTO {
	result := dto.OpportunityDTO{
		UUID:             o.UUID.String(),
		Angle:            o.Angle,
		TargetPlatforms:  o.TargetPlatforms,
		EstimatedViews:   o.EstimatedViews,
		EstimatedCost:    o.EstimatedCost,
		EstimatedRevenue: o.EstimatedRevenue,
		EstimatedMinutes: o.EstimatedMinutes,
		Competition:      o.Competition.String(),
		PriorityScore:    o.PriorityScore,
		Status:           o.Status.String(),
		CreatedAt:        o.CreatedAt.Format(time.RFC3339),
	}
	if o.Trend != nil {
		result.Trend = &dto.TrendDTO{
			UUID:        o.Trend.UUID.String(),
			Source:      o.Trend.Source,
			Topic:       o.Trend.Topic,
			Popularity:  o.Trend.Popularity,
			GrowthRate:  o.Trend.GrowthRate,
			Category:    o.Trend.Category,
			Region:      o.Trend.Region,
			CollectedAt: o.Trend.CollectedAt.Format(time.RFC3339),
		}
	}
	return result
}
