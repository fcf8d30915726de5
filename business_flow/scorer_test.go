package businessflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trendforge/trendforge/config"
	"github.com/trendforge/trendforge/models"
)

func testScoringConfig() *config.ScoringConfig {
	return &config.ScoringConfig{
		PopularityFloor:       10,
		ViralWeight:           0.4,
		ROIWeight:             0.3,
		RevenuePerMille:       1.2,
		LowCompetitionBonus:   20,
		MedCompetitionBonus:   12,
		HighCompetitionBonus:  5,
		FastProductionMinutes: 30,
	}
}

func TestScorerRejectsWeakSignal(t *testing.T) {
	scorer := NewScorer(testScoringConfig())

	result, err := scorer.Score(ScoreInput{
		Popularity:       5,
		GrowthRate:       200,
		Competition:      models.CompetitionLow,
		EstimatedMinutes: 10,
		EstimatedViews:   1000000,
		EstimatedCost:    1,
	})

	assert.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, IsInsufficientSignal(err))
}

func TestScorerIsDeterministic(t *testing.T) {
	scorer := NewScorer(testScoringConfig())
	input := ScoreInput{
		Popularity:       63,
		GrowthRate:       17,
		Competition:      models.CompetitionMedium,
		EstimatedMinutes: 50,
		EstimatedViews:   80000,
		EstimatedCost:    9,
	}

	first, err := scorer.Score(input)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := scorer.Score(input)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestScorerHotLowCompetitionTrend(t *testing.T) {
	scorer := NewScorer(testScoringConfig())

	result, err := scorer.Score(ScoreInput{
		Popularity:       90,
		GrowthRate:       40,
		Competition:      models.CompetitionLow,
		EstimatedMinutes: 20,
		EstimatedViews:   150000,
		EstimatedCost:    12.5,
	})

	require.NoError(t, err)
	// viral saturates at 100, ROI saturates its weighted term, plus the low
	// competition and fast production bonuses
	assert.InDelta(t, 100.0, result.PriorityScore, 0.001)
	assert.InDelta(t, 100.0, result.ViralPotential, 0.001)
	assert.InDelta(t, 180.0, result.EstimatedRevenue, 0.001)
	assert.Greater(t, result.ROI, 10.0)
}

func TestScorerBounds(t *testing.T) {
	scorer := NewScorer(testScoringConfig())

	tests := []struct {
		name  string
		input ScoreInput
	}{
		{
			name: "everything maxed",
			input: ScoreInput{
				Popularity:       100,
				GrowthRate:       500,
				Competition:      models.CompetitionLow,
				EstimatedMinutes: 1,
				EstimatedViews:   100000000,
				EstimatedCost:    0.01,
			},
		},
		{
			name: "barely above the floor",
			input: ScoreInput{
				Popularity:       10,
				GrowthRate:       -90,
				Competition:      models.CompetitionHigh,
				EstimatedMinutes: 600,
				EstimatedViews:   100,
				EstimatedCost:    500,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := scorer.Score(tt.input)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, result.PriorityScore, 0.0)
			assert.LessOrEqual(t, result.PriorityScore, 100.0)
		})
	}
}

func TestScorerCompetitionOrdering(t *testing.T) {
	scorer := NewScorer(testScoringConfig())
	base := ScoreInput{
		Popularity:       55,
		GrowthRate:       10,
		EstimatedMinutes: 45,
		EstimatedViews:   40000,
		EstimatedCost:    20,
	}

	low := base
	low.Competition = models.CompetitionLow
	med := base
	med.Competition = models.CompetitionMedium
	high := base
	high.Competition = models.CompetitionHigh

	lowResult, err := scorer.Score(low)
	require.NoError(t, err)
	medResult, err := scorer.Score(med)
	require.NoError(t, err)
	highResult, err := scorer.Score(high)
	require.NoError(t, err)

	assert.Greater(t, lowResult.PriorityScore, medResult.PriorityScore)
	assert.Greater(t, medResult.PriorityScore, highResult.PriorityScore)
}

func TestScorerZeroCostHasNoROI(t *testing.T) {
	scorer := NewScorer(testScoringConfig())

	result, err := scorer.Score(ScoreInput{
		Popularity:       40,
		GrowthRate:       0,
		Competition:      models.CompetitionHigh,
		EstimatedMinutes: 45,
		EstimatedViews:   10000,
		EstimatedCost:    0,
	})

	require.NoError(t, err)
	assert.Equal(t, 0.0, result.ROI)
}
