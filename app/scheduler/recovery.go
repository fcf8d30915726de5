package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	businessflow "github.com/trendforge/trendforge/business_flow"
	"github.com/trendforge/trendforge/models"
	"github.com/trendforge/trendforge/utils"
)

// RecoverInterrupted picks up jobs left non-terminal by a previous process.
// With resume enabled they are re-admitted and continue from their first
// non-completed stage; otherwise they are marked failed with the resumable
// stage recorded. Nothing is silently dropped.
func (c *PipelineCoordinator) RecoverInterrupted(ctx context.Context, resumeOnStart bool) error {
	jobs, err := c.jobRepo.ListNonTerminal(ctx, 500)
	if err != nil {
		return fmt.Errorf("failed to list interrupted jobs: %w", err)
	}
	if len(jobs) == 0 {
		return nil
	}
	c.logger.Printf("pipeline: found %d interrupted job(s)", len(jobs))

	for _, job := range jobs {
		resume := resumeOnStart
		if resume {
			_, _, err := c.gate.Reserve()
			if errors.Is(err, businessflow.ErrQueueFull) {
				// out of admission: the rest fail resumably instead of waiting
				resume = false
			} else if err != nil {
				return err
			}
		}

		if !resume {
			c.markInterrupted(ctx, job)
			continue
		}

		interrupted := job.Stage
		job.Stage = models.StageQueued
		if err := c.persistJob(ctx, job); err != nil {
			c.logger.Printf("pipeline: failed to re-enqueue job %s: %v", job.UUID, err)
			c.gate.Complete()
			continue
		}
		c.logger.Printf("pipeline: resuming job %s (was %s, resumes at %s)", job.UUID, interrupted, job.ResumeStage())
		c.Submit(job)
	}
	return nil
}

func (c *PipelineCoordinator) markInterrupted(ctx context.Context, job *models.GenerationJob) {
	now := utils.UTCNow()
	detail := fmt.Sprintf("%s: interrupted at %s, resumable from %s",
		businessflow.ErrJobInterrupted, job.Stage, job.ResumeStage())
	job.Stage = models.StageFailed
	job.ErrorDetail = &detail
	job.CompletedAt = &now

	if err := c.persistJob(ctx, job); err != nil {
		c.logger.Printf("pipeline: failed to mark job %s interrupted: %v", job.UUID, err)
		return
	}
	jobsFinishedTotal.WithLabelValues(models.StageFailed.String()).Inc()
	c.logger.Printf("pipeline: job %s marked interrupted", job.UUID)
}

// Recover re-seats upload tasks left behind by a previous process: stranded
// pending tasks go back to their queues, scheduled tasks back onto the heap,
// and tasks stuck uploading past the threshold are rescheduled for another
// attempt
func (o *UploadOrchestrator) Recover(ctx context.Context) error {
	pendingStatus := models.UploadStatusPending
	pending, err := o.uploadRepo.ByFilter(ctx, models.UploadTaskFilter{Status: &pendingStatus}, "created_at ASC", 0, 0)
	if err != nil {
		return fmt.Errorf("failed to list pending upload tasks: %w", err)
	}
	for _, task := range pending {
		o.enqueue(task)
	}

	scheduledStatus := models.UploadStatusScheduled
	scheduled, err := o.uploadRepo.ByFilter(ctx, models.UploadTaskFilter{Status: &scheduledStatus}, "scheduled_at ASC", 0, 0)
	if err != nil {
		return fmt.Errorf("failed to list scheduled upload tasks: %w", err)
	}
	for _, task := range scheduled {
		if task.ScheduledAt == nil {
			now := utils.UTCNow()
			task.ScheduledAt = &now
		}
		o.pushScheduled(task)
	}

	threshold := o.cfg.StuckThreshold
	if threshold <= 0 {
		threshold = 30 * time.Minute
	}
	stuck, err := o.uploadRepo.ListStuckUploading(ctx, utils.UTCNow().Add(-threshold))
	if err != nil {
		return fmt.Errorf("failed to list stuck upload tasks: %w", err)
	}
	for _, task := range stuck {
		if task.RetriesExhausted() {
			o.fail(ctx, task, "upload attempt lost to a restart, retries exhausted")
			continue
		}
		due := utils.UTCNow()
		task.Status = models.UploadStatusScheduled
		task.ScheduledAt = &due
		if err := o.uploadRepo.Update(ctx, task); err != nil {
			o.logger.Printf("uploader: failed to reschedule stuck task %s: %v", task.UUID, err)
			continue
		}
		o.pushScheduled(task)
		o.logger.Printf("uploader: rescheduled stuck task %s (attempt %d)", task.UUID, task.AttemptCount)
	}

	if n := len(pending) + len(scheduled) + len(stuck); n > 0 {
		o.logger.Printf("uploader: recovered %d upload task(s)", n)
	}
	return nil
}
