package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trendforge/trendforge/app/services"
	"github.com/trendforge/trendforge/config"
	"github.com/trendforge/trendforge/models"
	testingutil "github.com/trendforge/trendforge/testing"
)

type pipelineFixture struct {
	coordinator   *PipelineCoordinator
	admission     *AdmissionManager
	stop          func()
	trends        *testingutil.MemoryTrendRepository
	opportunities *testingutil.MemoryOpportunityRepository
	jobs          *testingutil.MemoryGenerationJobRepository
	items         *testingutil.MemoryContentItemRepository
	text          *services.MockAdapter
	image         *services.MockAdapter
	audio         *services.MockAdapter
	assembly      *services.MockAdapter
}

func newPipelineFixture(t *testing.T, registry *services.TierRegistry) *pipelineFixture {
	t.Helper()
	return newPipelineFixtureWithCapacity(t, registry, 2)
}

func newPipelineFixtureWithCapacity(t *testing.T, registry *services.TierRegistry, maxConcurrentJobs int) *pipelineFixture {
	t.Helper()

	f := &pipelineFixture{
		trends:        testingutil.NewMemoryTrendRepository(),
		opportunities: testingutil.NewMemoryOpportunityRepository(),
		jobs:          testingutil.NewMemoryGenerationJobRepository(),
		items:         testingutil.NewMemoryContentItemRepository(),
	}

	if registry == nil {
		registry = services.NewTierRegistry()
		f.text = services.NewMockAdapter("text-gen", services.CapabilityText, 0.5)
		f.image = services.NewMockAdapter("image-gen", services.CapabilityImage, 0.3)
		f.audio = services.NewMockAdapter("audio-gen", services.CapabilityAudio, 0.2)
		f.assembly = services.NewMockAdapter("assembler", services.CapabilityAssembly, 1.0)
		registry.Register(models.TierBalanced, f.text)
		registry.Register(models.TierBalanced, f.image)
		registry.Register(models.TierBalanced, f.audio)
		registry.Register(models.TierBalanced, f.assembly)
	}

	cfg := &config.PipelineConfig{
		MaxConcurrentJobs:  maxConcurrentJobs,
		QueueDepth:         4,
		StageTimeout:       5 * time.Second,
		DefaultSceneCount:  4,
		DefaultDuration:    45 * time.Second,
		StageRetryAttempts: 0,
	}

	f.admission = NewAdmissionManager(cfg.MaxConcurrentJobs, cfg.QueueDepth)
	f.coordinator = NewPipelineCoordinator(
		f.jobs, f.opportunities, f.items, registry, f.admission,
		nil, nil, cfg, &config.CacheConfig{Enabled: false},
	)
	f.stop = f.coordinator.Start(context.Background())
	t.Cleanup(f.stop)
	return f
}

func (f *pipelineFixture) seedJob(t *testing.T, platforms ...string) *models.GenerationJob {
	t.Helper()

	ctx := context.Background()
	job, err := testingutil.SeedPipeline(ctx, f.trends, f.opportunities, f.jobs, models.TierBalanced)
	require.NoError(t, err)

	if len(platforms) == 0 {
		platforms = []string{"youtube"}
	}
	job.Plan = models.ContentPlan{Platforms: platforms, Angle: "test angle"}
	require.NoError(t, f.jobs.Update(ctx, job))
	return job
}

func (f *pipelineFixture) waitTerminal(t *testing.T, jobUUID string) *models.GenerationJob {
	t.Helper()

	var job *models.GenerationJob
	require.Eventually(t, func() bool {
		fresh, err := f.jobs.ByUUID(context.Background(), jobUUID)
		if err != nil || fresh == nil {
			return false
		}
		job = fresh
		return fresh.IsTerminal()
	}, 3*time.Second, 10*time.Millisecond, "job never reached a terminal stage")
	return job
}

func TestPipelineCompletesJob(t *testing.T) {
	f := newPipelineFixture(t, nil)
	job := f.seedJob(t)

	_, _, err := f.coordinator.Reserve()
	require.NoError(t, err)
	f.coordinator.Submit(job)

	final := f.waitTerminal(t, job.UUID.String())
	assert.Equal(t, models.StageCompleted, final.Stage)
	require.NotNil(t, final.CompletedAt)
	assert.Equal(t, 100, final.Progress())

	for _, stage := range models.StageOrder[1 : len(models.StageOrder)-1] {
		record, ok := final.Stages[stage.String()]
		require.True(t, ok, "missing record for %s", stage)
		assert.Equal(t, models.StageStatusCompleted, record.Status)
	}
	assert.InDelta(t, 2.5, final.Cost, 0.0001)

	ctx := context.Background()
	item, err := f.items.ByJobID(ctx, final.ID)
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Contains(t, item.AssetURL, "mock://assembly/")
	assert.Contains(t, item.ScriptRef, "mock://text/")
	require.Contains(t, item.Variants, "youtube")
	assert.Nil(t, item.Variants["youtube"].Error)

	opportunity, err := f.opportunities.ByID(ctx, final.OpportunityID)
	require.NoError(t, err)
	require.NotNil(t, opportunity)
	assert.Equal(t, models.OpportunityStatusCompleted, opportunity.Status)
}

func TestPipelineResumeSkipsCompletedStages(t *testing.T) {
	f := newPipelineFixture(t, nil)
	job := f.seedJob(t)

	scriptRef := "mock://text/text-gen/previous"
	visualRef := "mock://image/image-gen/previous"
	now := time.Now().UTC()
	for stage, ref := range map[models.JobStage]string{
		models.StagePlanning: "",
		models.StageScript:   scriptRef,
		models.StageVisual:   visualRef,
	} {
		record := models.StageRecord{Status: models.StageStatusCompleted, CompletedAt: &now}
		if ref != "" {
			r := ref
			record.AssetRef = &r
		}
		job.Stages[stage.String()] = record
	}
	require.NoError(t, f.jobs.Update(context.Background(), job))

	_, _, err := f.coordinator.Reserve()
	require.NoError(t, err)
	f.coordinator.Submit(job)

	final := f.waitTerminal(t, job.UUID.String())
	assert.Equal(t, models.StageCompleted, final.Stage)

	// script was not re-run: the only text call is the optimize pass
	assert.Equal(t, 1, f.text.InvocationCount())
	assert.Equal(t, 0, f.image.InvocationCount())
	assert.Equal(t, 1, f.audio.InvocationCount())
	assert.Equal(t, 1, f.assembly.InvocationCount())

	// prior assets are carried into the content item
	item, err := f.items.ByJobID(context.Background(), final.ID)
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, scriptRef, item.ScriptRef)
}

func TestPipelineCancelBetweenStages(t *testing.T) {
	f := newPipelineFixture(t, nil)
	job := f.seedJob(t)

	// the flag lands in storage while the submitted copy still has it unset
	flagged, err := f.jobs.ByUUID(context.Background(), job.UUID.String())
	require.NoError(t, err)
	require.NotNil(t, flagged)
	flagged.CancelRequested = true
	require.NoError(t, f.jobs.Update(context.Background(), flagged))

	_, _, err = f.coordinator.Reserve()
	require.NoError(t, err)
	f.coordinator.Submit(job)

	final := f.waitTerminal(t, job.UUID.String())
	assert.Equal(t, models.StageCancelled, final.Stage)
	assert.Equal(t, 0, f.text.InvocationCount())

	opportunity, err := f.opportunities.ByID(context.Background(), final.OpportunityID)
	require.NoError(t, err)
	assert.Equal(t, models.OpportunityStatusPending, opportunity.Status)
}

func TestPipelineFailsOnPermanentError(t *testing.T) {
	f := newPipelineFixture(t, nil)
	f.text.FailAlways = services.NewAdapterError("text-gen", services.ReasonInvalidInput, false, errors.New("prompt rejected"))
	job := f.seedJob(t)

	_, _, err := f.coordinator.Reserve()
	require.NoError(t, err)
	f.coordinator.Submit(job)

	final := f.waitTerminal(t, job.UUID.String())
	assert.Equal(t, models.StageFailed, final.Stage)
	require.NotNil(t, final.ErrorDetail)
	assert.Contains(t, *final.ErrorDetail, "stage script")

	record := final.Stages[models.StageScript.String()]
	assert.Equal(t, models.StageStatusFailed, record.Status)
	require.NotNil(t, record.Error)

	// the opportunity stays accepted so a manual retry can pick it up
	opportunity, err := f.opportunities.ByID(context.Background(), final.OpportunityID)
	require.NoError(t, err)
	assert.Equal(t, models.OpportunityStatusAccepted, opportunity.Status)
}

// platformPickyAdapter rejects one platform's optimize pass outright
type platformPickyAdapter struct {
	*services.MockAdapter
	failPlatform string
}

func (a *platformPickyAdapter) Invoke(ctx context.Context, spec services.GenerationSpec) (*services.InvokeResult, error) {
	if spec.Params["platform"] == a.failPlatform {
		return nil, services.NewAdapterError(a.Name(), services.ReasonRejected, false, errors.New("platform policy"))
	}
	return a.MockAdapter.Invoke(ctx, spec)
}

func TestPipelineOptimizePartialFailureStillCompletes(t *testing.T) {
	registry := services.NewTierRegistry()
	registry.Register(models.TierBalanced, &platformPickyAdapter{
		MockAdapter:  services.NewMockAdapter("text-gen", services.CapabilityText, 0.5),
		failPlatform: "tiktok",
	})
	registry.Register(models.TierBalanced, services.NewMockAdapter("image-gen", services.CapabilityImage, 0.3))
	registry.Register(models.TierBalanced, services.NewMockAdapter("audio-gen", services.CapabilityAudio, 0.2))
	registry.Register(models.TierBalanced, services.NewMockAdapter("assembler", services.CapabilityAssembly, 1.0))

	f := newPipelineFixture(t, registry)
	job := f.seedJob(t, "youtube", "tiktok")

	_, _, err := f.coordinator.Reserve()
	require.NoError(t, err)
	f.coordinator.Submit(job)

	final := f.waitTerminal(t, job.UUID.String())
	assert.Equal(t, models.StageCompleted, final.Stage)

	item, err := f.items.ByJobID(context.Background(), final.ID)
	require.NoError(t, err)
	require.NotNil(t, item)
	require.Contains(t, item.Variants, "tiktok")
	require.NotNil(t, item.Variants["tiktok"].Error)
	assert.Contains(t, *item.Variants["tiktok"].Error, "platform policy")
	assert.Nil(t, item.Variants["youtube"].Error)
}

func TestPipelineResumedJobWaitsForSlot(t *testing.T) {
	f := newPipelineFixtureWithCapacity(t, nil, 1)
	job := f.seedJob(t)

	// simulate a resume landing past script: planning and script already done
	now := time.Now().UTC()
	scriptRef := "mock://text/text-gen/previous"
	job.Stages[models.StagePlanning.String()] = models.StageRecord{Status: models.StageStatusCompleted, CompletedAt: &now}
	job.Stages[models.StageScript.String()] = models.StageRecord{Status: models.StageStatusCompleted, CompletedAt: &now, AssetRef: &scriptRef}
	require.NoError(t, f.jobs.Update(context.Background(), job))

	// the only execution slot is taken by another job
	releaseSlot, err := f.admission.Generation().Acquire(context.Background())
	require.NoError(t, err)

	_, _, err = f.coordinator.Reserve()
	require.NoError(t, err)
	f.coordinator.Submit(job)

	time.Sleep(150 * time.Millisecond)
	held, err := f.jobs.ByUUID(context.Background(), job.UUID.String())
	require.NoError(t, err)
	assert.False(t, held.IsTerminal(), "resumed job ran its slot-requiring stages without a slot")
	assert.Equal(t, 0, f.image.InvocationCount())

	releaseSlot()

	final := f.waitTerminal(t, job.UUID.String())
	assert.Equal(t, models.StageCompleted, final.Stage)
	assert.Equal(t, 1, f.image.InvocationCount())
}

func TestPipelineCancelDuringStageFinishesCallThenStops(t *testing.T) {
	f := newPipelineFixture(t, nil)
	f.text.SetLatency(250 * time.Millisecond)
	job := f.seedJob(t)

	_, _, err := f.coordinator.Reserve()
	require.NoError(t, err)
	f.coordinator.Submit(job)

	// wait for the script stage to go in flight, then request cancellation
	require.Eventually(t, func() bool {
		fresh, err := f.jobs.ByUUID(context.Background(), job.UUID.String())
		if err != nil || fresh == nil {
			return false
		}
		return fresh.Stages[models.StageScript.String()].Status == models.StageStatusRunning
	}, 3*time.Second, 5*time.Millisecond)

	flagged, err := f.jobs.ByUUID(context.Background(), job.UUID.String())
	require.NoError(t, err)
	flagged.CancelRequested = true
	require.NoError(t, f.jobs.Update(context.Background(), flagged))

	final := f.waitTerminal(t, job.UUID.String())
	assert.Equal(t, models.StageCancelled, final.Stage)
	assert.True(t, final.CancelRequested, "end-of-stage persist must not clobber the cancel flag")

	// the in-flight call ran to completion before the cancel took effect
	assert.Equal(t, models.StageStatusCompleted, final.Stages[models.StageScript.String()].Status)
	assert.Equal(t, 0, f.image.InvocationCount())
}

func TestPipelineRecordsTierDegradation(t *testing.T) {
	registry := services.NewTierRegistry()
	premium := services.NewMockAdapter("premium-text", services.CapabilityText, 2.0)
	premium.FailAlways = services.NewAdapterError("premium-text", services.ReasonUnavailable, true, errors.New("backend down"))
	registry.Register(models.TierPremium, premium)
	registry.Register(models.TierBalanced, services.NewMockAdapter("text-gen", services.CapabilityText, 0.5))
	registry.Register(models.TierBalanced, services.NewMockAdapter("image-gen", services.CapabilityImage, 0.3))
	registry.Register(models.TierBalanced, services.NewMockAdapter("audio-gen", services.CapabilityAudio, 0.2))
	registry.Register(models.TierBalanced, services.NewMockAdapter("assembler", services.CapabilityAssembly, 1.0))

	f := newPipelineFixture(t, registry)

	ctx := context.Background()
	job, err := testingutil.SeedPipeline(ctx, f.trends, f.opportunities, f.jobs, models.TierPremium)
	require.NoError(t, err)
	job.Plan = models.ContentPlan{Platforms: []string{"youtube"}, Angle: "test angle"}
	require.NoError(t, f.jobs.Update(ctx, job))

	_, _, err = f.coordinator.Reserve()
	require.NoError(t, err)
	f.coordinator.Submit(job)

	final := f.waitTerminal(t, job.UUID.String())
	assert.Equal(t, models.StageCompleted, final.Stage)

	record := final.Stages[models.StageScript.String()]
	assert.Equal(t, "text-gen", record.Adapter)
	assert.Equal(t, models.TierBalanced.String(), record.Tier)
	require.NotNil(t, record.DegradedFrom)
	assert.Equal(t, models.TierPremium.String(), *record.DegradedFrom)
}
