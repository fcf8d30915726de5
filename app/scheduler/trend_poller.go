package scheduler

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	businessflow "github.com/trendforge/trendforge/business_flow"
	"github.com/trendforge/trendforge/config"
	"github.com/trendforge/trendforge/models"
	"github.com/trendforge/trendforge/repository"
	"github.com/trendforge/trendforge/utils"
	"gorm.io/gorm"
)

// TrendSource pulls trend signals from one external provider
type TrendSource interface {
	Name() string
	Fetch(ctx context.Context, since *time.Time) ([]*models.Trend, error)
}

// TrendPoller periodically pulls trends from every source, scores them, and
// persists opportunity drafts. A second ticker expires stale pending
// opportunities.
type TrendPoller struct {
	sources          []TrendSource
	trendRepo        repository.TrendRepository
	opportunityRepo  repository.OpportunityRepository
	opportunityFlow  businessflow.OpportunityFlow
	scorer           *businessflow.Scorer
	rc               *redis.Client
	cacheCfg         *config.CacheConfig
	cfg              *config.SchedulerConfig
	db               *gorm.DB
	logger           *log.Logger
	defaultPlatforms []string
}

// NewTrendPoller creates the poller. defaultPlatforms seeds the target
// platform list of every opportunity draft.
func NewTrendPoller(
	sources []TrendSource,
	trendRepo repository.TrendRepository,
	opportunityRepo repository.OpportunityRepository,
	opportunityFlow businessflow.OpportunityFlow,
	scorer *businessflow.Scorer,
	db *gorm.DB,
	rc *redis.Client,
	cfg *config.SchedulerConfig,
	cacheCfg *config.CacheConfig,
	defaultPlatforms []string,
) *TrendPoller {
	return &TrendPoller{
		sources:          sources,
		trendRepo:        trendRepo,
		opportunityRepo:  opportunityRepo,
		opportunityFlow:  opportunityFlow,
		scorer:           scorer,
		rc:               rc,
		cacheCfg:         cacheCfg,
		cfg:              cfg,
		db:               db,
		logger:           newComponentLogger("poller"),
		defaultPlatforms: defaultPlatforms,
	}
}

// Start launches the poll and expiry loops, returning a stop func
func (p *TrendPoller) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		interval := p.cfg.TrendPollInterval
		if interval <= 0 {
			interval = 15 * time.Minute
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		p.runOnce(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.runOnce(ctx)
			}
		}
	}()

	go func() {
		interval := p.cfg.ExpiryInterval
		if interval <= 0 {
			interval = 10 * time.Minute
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.expireStale(ctx)
			}
		}
	}()

	return cancel
}

func (p *TrendPoller) runOnce(ctx context.Context) {
	for _, source := range p.sources {
		since, err := p.trendRepo.LatestCollectedAt(ctx, source.Name())
		if err != nil {
			p.logger.Printf("poller: latest collected_at for %s failed: %v", source.Name(), err)
			continue
		}

		trends, err := source.Fetch(ctx, since)
		if err != nil {
			p.logger.Printf("poller: fetch from %s failed: %v", source.Name(), err)
			continue
		}
		if len(trends) == 0 {
			continue
		}

		stored := 0
		for _, trend := range trends {
			if p.alreadySeen(ctx, trend) {
				continue
			}
			if err := p.ingest(ctx, trend); err != nil {
				p.logger.Printf("poller: ingest %q from %s failed: %v", trend.Topic, source.Name(), err)
				continue
			}
			stored++
		}
		if stored > 0 {
			trendsCollectedTotal.WithLabelValues(source.Name()).Add(float64(stored))
			p.logger.Printf("poller: stored %d trend(s) from %s", stored, source.Name())
		}
	}
}

// ingest persists the trend and, when it scores, an opportunity draft in the
// same transaction. Trends below the scoring floor are kept without a draft.
func (p *TrendPoller) ingest(ctx context.Context, trend *models.Trend) error {
	draft := p.buildDraft(trend)

	score, scoreErr := p.scorer.Score(businessflow.ScoreInput{
		Popularity:       trend.Popularity,
		GrowthRate:       trend.GrowthRate,
		Competition:      draft.Competition,
		EstimatedMinutes: draft.EstimatedMinutes,
		EstimatedViews:   draft.EstimatedViews,
		EstimatedCost:    draft.EstimatedCost,
	})
	if scoreErr != nil && !businessflow.IsInsufficientSignal(scoreErr) {
		return scoreErr
	}

	return repository.WithTransaction(ctx, p.db, func(txCtx context.Context) error {
		if err := p.trendRepo.Save(txCtx, trend); err != nil {
			return fmt.Errorf("failed to save trend: %w", err)
		}
		if scoreErr != nil {
			// below the floor: keep the trend, skip the draft
			return nil
		}

		draft.TrendID = trend.ID
		draft.PriorityScore = score.PriorityScore
		draft.EstimatedRevenue = score.EstimatedRevenue
		if err := p.opportunityRepo.Save(txCtx, draft); err != nil {
			return fmt.Errorf("failed to save opportunity draft: %w", err)
		}
		opportunitiesCreatedTotal.Inc()
		return nil
	})
}

// buildDraft derives opportunity estimates from the raw trend signal
func (p *TrendPoller) buildDraft(trend *models.Trend) *models.Opportunity {
	views := int64(trend.Popularity * 2000 * (1 + trend.GrowthRate/100))
	if views < 0 {
		views = 0
	}

	// crowded topics attract more creators
	competition := models.CompetitionLow
	switch {
	case trend.Popularity >= 80:
		competition = models.CompetitionHigh
	case trend.Popularity >= 50:
		competition = models.CompetitionMedium
	}

	return &models.Opportunity{
		Angle:            fmt.Sprintf("Short take on %q", trend.Topic),
		TargetPlatforms:  pq.StringArray(p.defaultPlatforms),
		EstimatedViews:   views,
		EstimatedCost:    5 + trend.Popularity*0.1,
		EstimatedMinutes: 25 + int(trend.Popularity/10)*5,
		Competition:      competition,
		Status:           models.OpportunityStatusPending,
	}
}

// alreadySeen dedupes by source and topic within the retention window
func (p *TrendPoller) alreadySeen(ctx context.Context, trend *models.Trend) bool {
	if p.rc == nil || p.cacheCfg == nil || !p.cacheCfg.Enabled {
		return false
	}
	key := p.cacheCfg.RedisPrefix + "trend:" + trend.Source + ":" + trend.Topic
	ttl := p.cfg.OpportunityRetention
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	set, err := p.rc.SetNX(ctx, key, trend.CollectedAt.Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false
	}
	return !set
}

func (p *TrendPoller) expireStale(ctx context.Context) {
	expired, err := p.opportunityFlow.ExpireStale(ctx, p.cfg.OpportunityRetention)
	if err != nil {
		p.logger.Printf("poller: opportunity expiry sweep failed: %v", err)
		return
	}
	if expired > 0 {
		p.logger.Printf("poller: expired %d stale opportunit(ies)", expired)
	}
}

// MockTrendSource emits synthetic trends for local and test environments
type MockTrendSource struct {
	name   string
	topics []string
	rng    *rand.Rand
}

// NewMockTrendSource creates a synthetic source
func NewMockTrendSource(name string) *MockTrendSource {
	return &MockTrendSource{
		name: name,
		topics: []string{
			"ai video editing",
			"budget travel hacks",
			"5 minute desk workouts",
			"retro gaming revival",
			"meal prep shortcuts",
			"urban gardening",
		},
		rng: rand.New(rand.NewSource(utils.UTCNow().UnixNano())),
	}
}

// Name returns the source identifier
func (s *MockTrendSource) Name() string {
	return s.name
}

// Fetch returns a small random batch of synthetic trends
func (s *MockTrendSource) Fetch(ctx context.Context, since *time.Time) ([]*models.Trend, error) {
	count := 1 + s.rng.Intn(3)
	now := utils.UTCNow()

	trends := make([]*models.Trend, 0, count)
	for i := 0; i < count; i++ {
		topic := s.topics[s.rng.Intn(len(s.topics))]
		trends = append(trends, &models.Trend{
			Source:      s.name,
			Topic:       topic,
			Popularity:  20 + s.rng.Float64()*80,
			GrowthRate:  s.rng.Float64()*60 - 10,
			Category:    "general",
			Region:      "global",
			CollectedAt: now,
		})
	}
	return trends, nil
}
