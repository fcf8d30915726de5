package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trendforge/trendforge/models"
	testingutil "github.com/trendforge/trendforge/testing"
)

func TestRecoverInterruptedResumesJob(t *testing.T) {
	f := newPipelineFixture(t, nil)
	job := f.seedJob(t)

	// the previous process died mid-script with planning already done
	now := time.Now().UTC()
	job.Stage = models.StageScript
	job.Stages[models.StagePlanning.String()] = models.StageRecord{Status: models.StageStatusCompleted, CompletedAt: &now}
	require.NoError(t, f.jobs.Update(context.Background(), job))

	require.NoError(t, f.coordinator.RecoverInterrupted(context.Background(), true))

	final := f.waitTerminal(t, job.UUID.String())
	assert.Equal(t, models.StageCompleted, final.Stage)
	assert.Equal(t, models.StageStatusCompleted, final.Stages[models.StageScript.String()].Status)
}

func TestRecoverInterruptedMarksFailedWhenResumeDisabled(t *testing.T) {
	f := newPipelineFixture(t, nil)
	job := f.seedJob(t)

	job.Stage = models.StageVisual
	require.NoError(t, f.jobs.Update(context.Background(), job))

	require.NoError(t, f.coordinator.RecoverInterrupted(context.Background(), false))

	fresh, err := f.jobs.ByUUID(context.Background(), job.UUID.String())
	require.NoError(t, err)
	assert.Equal(t, models.StageFailed, fresh.Stage)
	require.NotNil(t, fresh.ErrorDetail)
	assert.Contains(t, *fresh.ErrorDetail, "interrupted")
	assert.Equal(t, 0, f.text.InvocationCount())
}

func TestRecoverInterruptedNoJobs(t *testing.T) {
	f := newPipelineFixture(t, nil)

	require.NoError(t, f.coordinator.RecoverInterrupted(context.Background(), true))
	assert.Equal(t, 0, f.text.InvocationCount())
}

func TestUploaderRecoverRequeuesPendingAndStuck(t *testing.T) {
	f := newUploaderFixture(t)

	ctx := context.Background()
	item := testingutil.NewTestContentItem(1)
	item.Variants = models.PlatformVariants{"youtube": {Title: "Recovered"}}
	require.NoError(t, f.items.Save(ctx, item))

	pending := testingutil.NewTestUploadTask(item.ID, "youtube")
	require.NoError(t, f.uploads.Save(ctx, pending))

	stuck := testingutil.NewTestUploadTask(item.ID, "youtube")
	stuck.Status = models.UploadStatusUploading
	stuck.AttemptCount = 1
	old := time.Now().UTC().Add(-2 * time.Hour)
	stuck.CreatedAt = old
	require.NoError(t, f.uploads.Save(ctx, stuck))

	require.NoError(t, f.orchestrator.Recover(ctx))

	f.waitStatus(t, pending.UUID.String(), models.UploadStatusCompleted)
	f.waitStatus(t, stuck.UUID.String(), models.UploadStatusCompleted)
	assert.Equal(t, 2, f.adapter.UploadCount())
}

func TestUploaderRecoverFailsExhaustedStuckTask(t *testing.T) {
	f := newUploaderFixture(t)

	ctx := context.Background()
	stuck := testingutil.NewTestUploadTask(1, "youtube")
	stuck.Status = models.UploadStatusUploading
	stuck.MaxRetries = 1
	stuck.AttemptCount = 2
	stuck.CreatedAt = time.Now().UTC().Add(-2 * time.Hour)
	require.NoError(t, f.uploads.Save(ctx, stuck))

	require.NoError(t, f.orchestrator.Recover(ctx))

	final := f.waitStatus(t, stuck.UUID.String(), models.UploadStatusFailed)
	require.NotNil(t, final.LastError)
	assert.Contains(t, *final.LastError, "retries exhausted")
	assert.Equal(t, 0, f.adapter.UploadCount())
}
