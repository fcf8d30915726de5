package businessflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trendforge/trendforge/app/dto"
	"github.com/trendforge/trendforge/models"
	testingutil "github.com/trendforge/trendforge/testing"
)

func newOpportunityFlowFixture(t *testing.T) (OpportunityFlow, *testingutil.MemoryTrendRepository, *testingutil.MemoryOpportunityRepository) {
	t.Helper()

	trends := testingutil.NewMemoryTrendRepository()
	opportunities := testingutil.NewMemoryOpportunityRepository()
	return NewOpportunityFlow(opportunities, trends, nil), trends, opportunities
}

func seedOpportunities(t *testing.T, trends *testingutil.MemoryTrendRepository, opportunities *testingutil.MemoryOpportunityRepository, scores ...float64) []*models.Opportunity {
	t.Helper()

	ctx := context.Background()
	trend := testingutil.NewTestTrend("mock", "seed topic")
	require.NoError(t, trends.Save(ctx, trend))

	out := make([]*models.Opportunity, 0, len(scores))
	for _, score := range scores {
		o := testingutil.NewTestOpportunity(trend.ID)
		o.PriorityScore = score
		require.NoError(t, opportunities.Save(ctx, o))
		out = append(out, o)
	}
	return out
}

func TestListOpportunitiesOrdersByScore(t *testing.T) {
	flow, trends, opportunities := newOpportunityFlowFixture(t)
	seedOpportunities(t, trends, opportunities, 40, 95, 70)

	resp, err := flow.ListOpportunities(context.Background(), &dto.ListOpportunitiesRequest{}, nil)

	require.NoError(t, err)
	require.Len(t, resp.Items, 3)
	assert.Equal(t, float64(95), resp.Items[0].PriorityScore)
	assert.Equal(t, float64(70), resp.Items[1].PriorityScore)
	assert.Equal(t, float64(40), resp.Items[2].PriorityScore)
	assert.Equal(t, int64(3), resp.Pagination.Total)
	assert.Equal(t, 1, resp.Pagination.Page)
	assert.Equal(t, 20, resp.Pagination.PageSize)
}

func TestListOpportunitiesPaginatesAndFilters(t *testing.T) {
	flow, trends, opportunities := newOpportunityFlowFixture(t)
	seeded := seedOpportunities(t, trends, opportunities, 30, 60, 90)

	accepted := seeded[2]
	accepted.Status = models.OpportunityStatusAccepted
	require.NoError(t, opportunities.Update(context.Background(), accepted))

	resp, err := flow.ListOpportunities(context.Background(), &dto.ListOpportunitiesRequest{
		Status:   "pending",
		MinScore: 50,
		Page:     1,
		PageSize: 10,
	}, nil)

	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, float64(60), resp.Items[0].PriorityScore)
	assert.Equal(t, int64(1), resp.Pagination.Total)
}

func TestListOpportunitiesRejectsBadPagination(t *testing.T) {
	flow, _, _ := newOpportunityFlowFixture(t)

	_, err := flow.ListOpportunities(context.Background(), &dto.ListOpportunitiesRequest{Page: -1}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidPage)

	_, err = flow.ListOpportunities(context.Background(), &dto.ListOpportunitiesRequest{PageSize: 500}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidPageSize)
}

func TestGetOpportunityNotFound(t *testing.T) {
	flow, _, _ := newOpportunityFlowFixture(t)

	_, err := flow.GetOpportunity(context.Background(), "2e9c1a54-0000-0000-0000-000000000009")

	require.Error(t, err)
	assert.True(t, IsOpportunityNotFound(err))
}

func TestExpireStaleMarksOldPending(t *testing.T) {
	flow, trends, opportunities := newOpportunityFlowFixture(t)
	seeded := seedOpportunities(t, trends, opportunities, 50, 80)

	ctx := context.Background()
	stale := seeded[0]
	stale.CreatedAt = time.Now().UTC().Add(-72 * time.Hour)
	require.NoError(t, opportunities.Update(ctx, stale))

	expired, err := flow.ExpireStale(ctx, 48*time.Hour)

	require.NoError(t, err)
	assert.Equal(t, int64(1), expired)

	fresh, err := opportunities.ByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OpportunityStatusExpired, fresh.Status)

	kept, err := opportunities.ByID(ctx, seeded[1].ID)
	require.NoError(t, err)
	assert.Equal(t, models.OpportunityStatusPending, kept.Status)
}
