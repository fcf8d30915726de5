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

type uploaderFixture struct {
	orchestrator *UploadOrchestrator
	uploads      *testingutil.MemoryUploadTaskRepository
	items        *testingutil.MemoryContentItemRepository
	adapter      *services.MockPlatformAdapter
}

func newUploaderFixture(t *testing.T) *uploaderFixture {
	t.Helper()

	f := &uploaderFixture{
		uploads: testingutil.NewMemoryUploadTaskRepository(),
		items:   testingutil.NewMemoryContentItemRepository(),
		adapter: services.NewMockPlatformAdapter("youtube"),
	}

	cfg := &config.UploadConfig{
		Platforms: []config.PlatformConfig{{
			Name:          "youtube",
			Workers:       1,
			RatePerMinute: 6000,
			Burst:         100,
			MaxRetries:    1,
		}},
		SchedulerTick:  20 * time.Millisecond,
		RetryBaseDelay: 10 * time.Millisecond,
		RetryMaxDelay:  50 * time.Millisecond,
	}

	f.orchestrator = NewUploadOrchestrator(
		f.uploads, f.items,
		map[string]services.PlatformAdapter{"youtube": f.adapter},
		NewAdmissionManager(2, 4), cfg,
	)
	stop := f.orchestrator.Start(context.Background())
	t.Cleanup(stop)
	return f
}

func (f *uploaderFixture) seedTask(t *testing.T, maxRetries int) *models.UploadTask {
	t.Helper()

	ctx := context.Background()
	item := testingutil.NewTestContentItem(1)
	item.Variants = models.PlatformVariants{"youtube": {Title: "Optimized title"}}
	require.NoError(t, f.items.Save(ctx, item))

	task := testingutil.NewTestUploadTask(item.ID, "youtube")
	task.MaxRetries = maxRetries
	require.NoError(t, f.uploads.Save(ctx, task))
	return task
}

func (f *uploaderFixture) waitStatus(t *testing.T, taskUUID string, want models.UploadStatus) *models.UploadTask {
	t.Helper()

	var task *models.UploadTask
	require.Eventually(t, func() bool {
		fresh, err := f.uploads.ByUUID(context.Background(), taskUUID)
		if err != nil || fresh == nil {
			return false
		}
		task = fresh
		return fresh.Status == want
	}, 3*time.Second, 10*time.Millisecond, "task never reached status %s", want)
	return task
}

func TestUploaderCompletesTask(t *testing.T) {
	f := newUploaderFixture(t)
	task := f.seedTask(t, 1)

	f.orchestrator.Dispatch(task)

	final := f.waitStatus(t, task.UUID.String(), models.UploadStatusCompleted)
	assert.Equal(t, 1, final.AttemptCount)
	require.NotNil(t, final.ExternalID)
	require.NotNil(t, final.ExternalURL)
	assert.Nil(t, final.LastError)

	require.Equal(t, 1, f.adapter.UploadCount())
	assert.Equal(t, "Optimized title", f.adapter.Uploads[0].Title)
}

func TestUploaderRecoversFromOneTransientFailure(t *testing.T) {
	f := newUploaderFixture(t)
	task := f.seedTask(t, 1)
	f.adapter.FailNext = services.NewAdapterError("youtube", services.ReasonRateLimited, true, errors.New("429"))

	f.orchestrator.Dispatch(task)

	final := f.waitStatus(t, task.UUID.String(), models.UploadStatusCompleted)
	assert.Equal(t, 2, final.AttemptCount)
	assert.Equal(t, 1, f.adapter.UploadCount())
}

func TestUploaderRecoversAfterThreeTransientFailures(t *testing.T) {
	f := newUploaderFixture(t)
	task := f.seedTask(t, 3)
	f.adapter.FailCount = 3
	f.adapter.FailWith = services.NewAdapterError("youtube", services.ReasonUnavailable, true, errors.New("503"))

	f.orchestrator.Dispatch(task)

	// max_retries=3 allows the initial try plus three retries
	final := f.waitStatus(t, task.UUID.String(), models.UploadStatusCompleted)
	assert.Equal(t, 4, final.AttemptCount)
	assert.Equal(t, 1, f.adapter.UploadCount())
	assert.Nil(t, final.LastError)
}

func TestUploaderExhaustsRetriesThenFails(t *testing.T) {
	f := newUploaderFixture(t)
	task := f.seedTask(t, 1)

	ctx := context.Background()
	item, err := f.items.ByID(ctx, task.ContentItemID)
	require.NoError(t, err)
	f.adapter.FailFor[item.UUID.String()] = services.NewAdapterError("youtube", services.ReasonUnavailable, true, errors.New("outage"))

	f.orchestrator.Dispatch(task)

	// max_retries=1 allows the initial try plus one retry
	final := f.waitStatus(t, task.UUID.String(), models.UploadStatusFailed)
	assert.Equal(t, 2, final.AttemptCount)
	require.NotNil(t, final.LastError)
	assert.Contains(t, *final.LastError, "outage")
	assert.Equal(t, 0, f.adapter.UploadCount())
}

func TestUploaderPermanentRejectionFailsFast(t *testing.T) {
	f := newUploaderFixture(t)
	task := f.seedTask(t, 3)

	ctx := context.Background()
	item, err := f.items.ByID(ctx, task.ContentItemID)
	require.NoError(t, err)
	f.adapter.FailFor[item.UUID.String()] = services.NewAdapterError("youtube", services.ReasonRejected, false, errors.New("content policy"))

	f.orchestrator.Dispatch(task)

	final := f.waitStatus(t, task.UUID.String(), models.UploadStatusFailed)
	assert.Equal(t, 1, final.AttemptCount, "permanent rejections must not retry")
	require.NotNil(t, final.LastError)
	assert.Contains(t, *final.LastError, "content policy")
}

func TestUploaderHoldsScheduledTaskUntilDue(t *testing.T) {
	f := newUploaderFixture(t)

	ctx := context.Background()
	item := testingutil.NewTestContentItem(1)
	item.Variants = models.PlatformVariants{"youtube": {Title: "Later"}}
	require.NoError(t, f.items.Save(ctx, item))

	due := time.Now().UTC().Add(150 * time.Millisecond)
	task := testingutil.NewTestUploadTask(item.ID, "youtube")
	task.Status = models.UploadStatusScheduled
	task.ScheduledAt = &due
	require.NoError(t, f.uploads.Save(ctx, task))

	f.orchestrator.Dispatch(task)

	time.Sleep(50 * time.Millisecond)
	early, err := f.uploads.ByUUID(ctx, task.UUID.String())
	require.NoError(t, err)
	assert.Equal(t, models.UploadStatusScheduled, early.Status, "task ran before its scheduled time")

	f.waitStatus(t, task.UUID.String(), models.UploadStatusCompleted)
	assert.Equal(t, 1, f.adapter.UploadCount())
}

func TestUploaderFallsBackToBaseTitle(t *testing.T) {
	f := newUploaderFixture(t)

	ctx := context.Background()
	item := testingutil.NewTestContentItem(1)
	item.Title = "Base title"
	item.Variants = models.PlatformVariants{}
	require.NoError(t, f.items.Save(ctx, item))

	task := testingutil.NewTestUploadTask(item.ID, "youtube")
	require.NoError(t, f.uploads.Save(ctx, task))

	f.orchestrator.Dispatch(task)

	f.waitStatus(t, task.UUID.String(), models.UploadStatusCompleted)
	require.Equal(t, 1, f.adapter.UploadCount())
	assert.Equal(t, "Base title", f.adapter.Uploads[0].Title)
}

func TestUploaderDropsUnsupportedPlatform(t *testing.T) {
	f := newUploaderFixture(t)

	ctx := context.Background()
	task := testingutil.NewTestUploadTask(1, "vimeo")
	require.NoError(t, f.uploads.Save(ctx, task))

	f.orchestrator.Dispatch(task)

	time.Sleep(50 * time.Millisecond)
	fresh, err := f.uploads.ByUUID(ctx, task.UUID.String())
	require.NoError(t, err)
	assert.Equal(t, models.UploadStatusPending, fresh.Status)
	assert.Equal(t, 0, f.adapter.UploadCount())
}

func TestUploaderSupportsAndMaxRetries(t *testing.T) {
	f := newUploaderFixture(t)

	assert.True(t, f.orchestrator.Supports("youtube"))
	assert.False(t, f.orchestrator.Supports("vimeo"))
	assert.Equal(t, 1, f.orchestrator.MaxRetries("youtube"))
	assert.Equal(t, 0, f.orchestrator.MaxRetries("vimeo"))
}
