package businessflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trendforge/trendforge/app/dto"
	"github.com/trendforge/trendforge/config"
	"github.com/trendforge/trendforge/models"
	testingutil "github.com/trendforge/trendforge/testing"
)

type stubDispatcher struct {
	submitted  []*models.GenerationJob
	reserveErr error
}

func (d *stubDispatcher) Reserve() (int, func(), error) {
	if d.reserveErr != nil {
		return 0, nil, d.reserveErr
	}
	return 0, func() {}, nil
}

func (d *stubDispatcher) Submit(job *models.GenerationJob) {
	d.submitted = append(d.submitted, job)
}

func newJobFlowFixture(t *testing.T) (JobFlow, *testingutil.MemoryOpportunityRepository, *testingutil.MemoryGenerationJobRepository, *stubDispatcher) {
	t.Helper()

	opportunities := testingutil.NewMemoryOpportunityRepository()
	jobs := testingutil.NewMemoryGenerationJobRepository()
	dispatcher := &stubDispatcher{}
	flow := NewJobFlow(jobs, opportunities, dispatcher, nil, nil, &config.CacheConfig{Enabled: false})
	return flow, opportunities, jobs, dispatcher
}

func TestAcceptOpportunityCreatesJob(t *testing.T) {
	flow, opportunities, jobs, dispatcher := newJobFlowFixture(t)

	ctx := context.Background()
	opportunity := testingutil.NewTestOpportunity(1)
	require.NoError(t, opportunities.Save(ctx, opportunity))

	resp, err := flow.AcceptOpportunity(ctx, &dto.AcceptOpportunityRequest{
		UUID: opportunity.UUID.String(),
		Tier: "balanced",
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, "queued", resp.Stage)
	assert.Equal(t, 0, resp.QueuePosition)
	require.Len(t, dispatcher.submitted, 1)

	job, err := jobs.ByUUID(ctx, resp.JobUUID)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, []string(opportunity.TargetPlatforms), job.Plan.Platforms)

	fresh, err := opportunities.ByID(ctx, opportunity.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OpportunityStatusAccepted, fresh.Status)
}

func TestAcceptOpportunityRejectsSecondAccept(t *testing.T) {
	flow, opportunities, _, _ := newJobFlowFixture(t)

	ctx := context.Background()
	opportunity := testingutil.NewTestOpportunity(1)
	require.NoError(t, opportunities.Save(ctx, opportunity))

	req := &dto.AcceptOpportunityRequest{UUID: opportunity.UUID.String(), Tier: "budget"}
	_, err := flow.AcceptOpportunity(ctx, req, nil)
	require.NoError(t, err)

	_, err = flow.AcceptOpportunity(ctx, req, nil)
	require.Error(t, err)
	assert.True(t, IsOpportunityInProgress(err))
}

func TestAcceptOpportunityInvalidTier(t *testing.T) {
	flow, _, _, _ := newJobFlowFixture(t)

	_, err := flow.AcceptOpportunity(context.Background(), &dto.AcceptOpportunityRequest{
		UUID: "b1de98a2-0000-0000-0000-000000000001",
		Tier: "ultra",
	}, nil)

	require.Error(t, err)
	assert.True(t, IsInvalidTier(err))
}

func TestCancelJobRequestsCancellation(t *testing.T) {
	flow, _, jobs, _ := newJobFlowFixture(t)

	ctx := context.Background()
	job := testingutil.NewTestJob(1, models.TierBalanced)
	job.Stage = models.StageVisual
	require.NoError(t, jobs.Save(ctx, job))

	resp, err := flow.CancelJob(ctx, job.UUID.String(), nil)

	require.NoError(t, err)
	assert.Equal(t, "visual", resp.Stage)

	fresh, err := jobs.ByUUID(ctx, job.UUID.String())
	require.NoError(t, err)
	assert.True(t, fresh.CancelRequested)
}

func TestCancelJobIsIdempotentOnTerminalStages(t *testing.T) {
	flow, _, jobs, _ := newJobFlowFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		stage models.JobStage
	}{
		{"completed job", models.StageCompleted},
		{"failed job", models.StageFailed},
		{"cancelled job", models.StageCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := testingutil.NewTestJob(1, models.TierBalanced)
			job.Stage = tt.stage
			require.NoError(t, jobs.Save(ctx, job))

			resp, err := flow.CancelJob(ctx, job.UUID.String(), nil)

			require.NoError(t, err, "cancel must be a no-op on a terminal job")
			assert.Equal(t, tt.stage.String(), resp.Stage)
			assert.Contains(t, resp.Message, tt.stage.String())

			// the terminal stage is untouched
			fresh, err := jobs.ByUUID(ctx, job.UUID.String())
			require.NoError(t, err)
			assert.Equal(t, tt.stage, fresh.Stage)
			assert.False(t, fresh.CancelRequested)
		})
	}
}

func TestRetryJobOnlyFromFailed(t *testing.T) {
	flow, _, jobs, dispatcher := newJobFlowFixture(t)
	ctx := context.Background()

	running := testingutil.NewTestJob(1, models.TierBalanced)
	running.Stage = models.StageScript
	require.NoError(t, jobs.Save(ctx, running))

	_, err := flow.RetryJob(ctx, running.UUID.String(), nil)
	require.Error(t, err)
	assert.True(t, IsJobNotFailed(err))

	failed := testingutil.NewTestJob(1, models.TierBalanced)
	failed.Stage = models.StageFailed
	detail := "stage script: backend down"
	failed.ErrorDetail = &detail
	require.NoError(t, jobs.Save(ctx, failed))

	resp, err := flow.RetryJob(ctx, failed.UUID.String(), nil)
	require.NoError(t, err)
	assert.Equal(t, "planning", resp.Stage)
	require.Len(t, dispatcher.submitted, 1)

	fresh, err := jobs.ByUUID(ctx, failed.UUID.String())
	require.NoError(t, err)
	assert.Equal(t, models.StageQueued, fresh.Stage)
	assert.Nil(t, fresh.ErrorDetail)
}
