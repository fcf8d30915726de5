package testing

import (
	"context"

	"github.com/google/uuid"
	"github.com/trendforge/trendforge/models"
	"github.com/trendforge/trendforge/utils"
)

// NewTestTrend builds an unsaved trend with sensible defaults
func NewTestTrend(source, topic string) *models.Trend {
	return &models.Trend{
		UUID:        uuid.New(),
		Source:      source,
		Topic:       topic,
		Popularity:  75,
		GrowthRate:  20,
		Category:    "general",
		Region:      "global",
		CollectedAt: utils.UTCNow(),
	}
}

// NewTestOpportunity builds an unsaved pending opportunity for the trend
func NewTestOpportunity(trendID uint) *models.Opportunity {
	return &models.Opportunity{
		UUID:             uuid.New(),
		TrendID:          trendID,
		Angle:            "Short take on the test topic",
		TargetPlatforms:  []string{"youtube", "tiktok"},
		EstimatedViews:   150000,
		EstimatedCost:    12.5,
		EstimatedRevenue: 180,
		EstimatedMinutes: 25,
		Competition:      models.CompetitionLow,
		PriorityScore:    82,
		Status:           models.OpportunityStatusPending,
	}
}

// NewTestJob builds an unsaved queued generation job for the opportunity
func NewTestJob(opportunityID uint, tier models.QualityTier) *models.GenerationJob {
	return &models.GenerationJob{
		UUID:          uuid.New(),
		OpportunityID: opportunityID,
		Tier:          tier,
		Stage:         models.StageQueued,
		Stages:        models.StageRecords{},
	}
}

// NewTestContentItem builds an unsaved content item for the job
func NewTestContentItem(jobID uint) *models.ContentItem {
	return &models.ContentItem{
		UUID:      uuid.New(),
		JobID:     jobID,
		Title:     "Test content",
		AssetURL:  "https://assets.test/final.mp4",
		ScriptRef: "https://assets.test/script.txt",
		ImageRefs: []string{"https://assets.test/img-1.png"},
		AudioRef:  "https://assets.test/voice.mp3",
		Duration:  45,
		Variants:  models.PlatformVariants{},
	}
}

// NewTestUploadTask builds an unsaved pending upload task
func NewTestUploadTask(contentItemID uint, platform string) *models.UploadTask {
	batchID := uuid.New()
	return &models.UploadTask{
		UUID:          uuid.New(),
		ContentItemID: contentItemID,
		BatchID:       &batchID,
		Platform:      platform,
		Status:        models.UploadStatusPending,
		MaxRetries:    3,
	}
}

// SeedPipeline saves a trend, opportunity, and queued job wired together,
// returning the saved job
func SeedPipeline(
	ctx context.Context,
	trends *MemoryTrendRepository,
	opportunities *MemoryOpportunityRepository,
	jobs *MemoryGenerationJobRepository,
	tier models.QualityTier,
) (*models.GenerationJob, error) {
	trend := NewTestTrend("mock", "seed topic")
	if err := trends.Save(ctx, trend); err != nil {
		return nil, err
	}

	opportunity := NewTestOpportunity(trend.ID)
	opportunity.Status = models.OpportunityStatusAccepted
	if err := opportunities.Save(ctx, opportunity); err != nil {
		return nil, err
	}

	job := NewTestJob(opportunity.ID, tier)
	if err := jobs.Save(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}
