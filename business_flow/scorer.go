package businessflow

import (
	"github.com/trendforge/trendforge/config"
	"github.com/trendforge/trendforge/models"
)

// ScoreInput carries the signals that drive opportunity prioritization
type ScoreInput struct {
	Popularity       float64
	GrowthRate       float64
	Competition      models.CompetitionLevel
	EstimatedMinutes int
	EstimatedViews   int64
	EstimatedCost    float64
}

// ScoreResult is the scoring breakdown for one opportunity
type ScoreResult struct {
	PriorityScore    float64
	ViralPotential   float64
	ROI              float64
	EstimatedRevenue float64
}

// Scorer turns trend signals into a priority score. Scoring is pure: the
// same input always yields the same result.
type Scorer struct {
	config *config.ScoringConfig
}

// NewScorer creates a scorer with the given weights
func NewScorer(cfg *config.ScoringConfig) *Scorer {
	return &Scorer{config: cfg}
}

// Score computes the priority score for one opportunity. Trends whose
// popularity falls below the configured floor carry too little signal to
// rank and are rejected outright.
func (s *Scorer) Score(input ScoreInput) (*ScoreResult, error) {
	if input.Popularity < s.config.PopularityFloor {
		return nil, NewBusinessErrorf("INSUFFICIENT_SIGNAL",
			"popularity %.1f is below the scoring floor %.1f",
			ErrInsufficientSignal, input.Popularity, s.config.PopularityFloor)
	}

	viral := s.viralPotential(input.Popularity, input.GrowthRate)
	revenue := float64(input.EstimatedViews) / 1000 * s.config.RevenuePerMille
	roi := s.roi(revenue, input.EstimatedCost)

	score := s.config.ViralWeight*viral +
		s.config.ROIWeight*clamp(10*roi, 0, 100) +
		s.competitionBonus(input.Competition) +
		s.timeBonus(input.EstimatedMinutes)

	return &ScoreResult{
		PriorityScore:    clamp(score, 0, 100),
		ViralPotential:   viral,
		ROI:              roi,
		EstimatedRevenue: revenue,
	}, nil
}

// viralPotential amplifies raw popularity by the growth rate
func (s *Scorer) viralPotential(popularity, growthRate float64) float64 {
	return clamp(popularity*(1+growthRate/100), 0, 100)
}

// roi is return per unit of production cost
func (s *Scorer) roi(revenue, cost float64) float64 {
	if cost <= 0 {
		return 0
	}
	return (revenue - cost) / cost
}

func (s *Scorer) competitionBonus(competition models.CompetitionLevel) float64 {
	switch competition {
	case models.CompetitionLow:
		return s.config.LowCompetitionBonus
	case models.CompetitionMedium:
		return s.config.MedCompetitionBonus
	default:
		return s.config.HighCompetitionBonus
	}
}

// timeBonus rewards content that can ship while the trend is still hot
func (s *Scorer) timeBonus(minutes int) float64 {
	fast := s.config.FastProductionMinutes
	if fast <= 0 {
		fast = 30
	}
	switch {
	case minutes <= fast:
		return 10
	case minutes <= 2*fast:
		return 7
	case minutes <= 4*fast:
		return 4
	default:
		return 1
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
