package scheduler

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/trendforge/trendforge/app/services"
	"github.com/trendforge/trendforge/config"
	"github.com/trendforge/trendforge/models"
	"github.com/trendforge/trendforge/repository"
	"github.com/trendforge/trendforge/utils"
	"gorm.io/gorm"
)

// PipelineCoordinator drives accepted jobs through the generation stages.
// Each submitted job runs in its own goroutine; real concurrency is bounded
// by the generation gate, which is held from script until assembly finishes.
// Planning and optimizing run without a slot.
type PipelineCoordinator struct {
	jobRepo         repository.GenerationJobRepository
	opportunityRepo repository.OpportunityRepository
	contentRepo     repository.ContentItemRepository
	registry        *services.TierRegistry
	gate            *Gate
	cfg             *config.PipelineConfig
	cacheCfg        *config.CacheConfig
	rc              *redis.Client
	db              *gorm.DB
	logger          *log.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPipelineCoordinator creates the coordinator. Admission comes from the
// manager's generation gate.
func NewPipelineCoordinator(
	jobRepo repository.GenerationJobRepository,
	opportunityRepo repository.OpportunityRepository,
	contentRepo repository.ContentItemRepository,
	registry *services.TierRegistry,
	admission *AdmissionManager,
	db *gorm.DB,
	rc *redis.Client,
	cfg *config.PipelineConfig,
	cacheCfg *config.CacheConfig,
) *PipelineCoordinator {
	return &PipelineCoordinator{
		jobRepo:         jobRepo,
		opportunityRepo: opportunityRepo,
		contentRepo:     contentRepo,
		registry:        registry,
		gate:            admission.Generation(),
		cfg:             cfg,
		cacheCfg:        cacheCfg,
		rc:              rc,
		db:              db,
		logger:          newComponentLogger("pipeline"),
	}
}

// Start binds the coordinator to a lifecycle context and returns a stop
// function that waits for in-flight jobs
func (c *PipelineCoordinator) Start(parent context.Context) func() {
	c.ctx, c.cancel = context.WithCancel(parent)
	return func() {
		c.cancel()
		c.wg.Wait()
	}
}

// Reserve claims pipeline admission for one job
func (c *PipelineCoordinator) Reserve() (int, func(), error) {
	return c.gate.Reserve()
}

// Submit hands an admitted job to the pipeline
func (c *PipelineCoordinator) Submit(job *models.GenerationJob) {
	pipelineQueueDepth.Set(float64(c.gate.Admitted()))

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer func() {
			c.gate.Complete()
			pipelineQueueDepth.Set(float64(c.gate.Admitted()))
		}()
		c.run(c.ctx, job)
	}()
}

func (c *PipelineCoordinator) run(ctx context.Context, job *models.GenerationJob) {
	c.logger.Printf("pipeline: job %s starting from stage %s", job.UUID, job.ResumeStage())

	var slotRelease func()
	defer func() {
		if slotRelease != nil {
			slotRelease()
		}
	}()

	for _, stage := range models.StageOrder[1 : len(models.StageOrder)-1] {
		if job.StageCompleted(stage) {
			// resume: keep the stage pointer moving without re-running
			job.Stage = stage
			continue
		}

		if c.cancelRequested(ctx, job) {
			c.finishCancelled(ctx, job)
			return
		}

		// the slot covers script through assembly, including resumes that
		// re-enter the window past script
		if slotRelease == nil &&
			stage.Index() >= models.StageScript.Index() && stage.Index() <= models.StageAssembly.Index() {
			release, err := c.gate.Acquire(ctx)
			if err != nil {
				c.finishFailed(ctx, job, stage, fmt.Errorf("pipeline shutting down: %w", err))
				return
			}
			slotRelease = release
		}

		if err := c.runStage(ctx, job, stage); err != nil {
			c.finishFailed(ctx, job, stage, err)
			return
		}

		if stage == models.StageAssembly && slotRelease != nil {
			slotRelease()
			slotRelease = nil
		}
	}

	c.complete(ctx, job)
}

// runStage transitions the job into the stage, executes it, and persists the
// outcome before the next stage starts
func (c *PipelineCoordinator) runStage(ctx context.Context, job *models.GenerationJob, stage models.JobStage) error {
	if !job.Stage.CanAdvanceTo(stage) {
		return fmt.Errorf("illegal stage transition %s -> %s", job.Stage, stage)
	}

	started := utils.UTCNow()
	record := job.Stages[stage.String()]
	record.Status = models.StageStatusRunning
	record.StartedAt = &started
	record.Error = nil
	job.Stages[stage.String()] = record
	job.Stage = stage
	if err := c.persistJob(ctx, job); err != nil {
		return err
	}

	stageCtx := ctx
	if c.cfg.StageTimeout > 0 {
		var cancel context.CancelFunc
		stageCtx, cancel = context.WithTimeout(ctx, c.cfg.StageTimeout)
		defer cancel()
	}

	var err error
	switch stage {
	case models.StagePlanning:
		err = c.runPlanning(stageCtx, job, &record)
	case models.StageScript:
		err = c.runCapabilityStage(stageCtx, job, &record, services.CapabilityText, c.scriptPrompt(job), nil)
	case models.StageVisual:
		err = c.runCapabilityStage(stageCtx, job, &record, services.CapabilityImage,
			fmt.Sprintf("storyboard frames for %d scenes", job.Plan.SceneCount), c.stageInputs(job, models.StageScript))
	case models.StageAudio:
		err = c.runCapabilityStage(stageCtx, job, &record, services.CapabilityAudio,
			"voiceover and soundtrack for the generated script", c.stageInputs(job, models.StageScript))
	case models.StageAssembly:
		err = c.runAssembly(stageCtx, job, &record)
	case models.StageOptimizing:
		err = c.runOptimizing(stageCtx, job, &record)
	default:
		err = fmt.Errorf("stage %s has no executor", stage)
	}

	now := utils.UTCNow()
	if err != nil {
		msg := err.Error()
		record.Status = models.StageStatusFailed
		record.CompletedAt = &now
		record.Error = &msg
		job.Stages[stage.String()] = record
		stageDuration.WithLabelValues(stage.String()).Observe(now.Sub(started).Seconds())
		return err
	}

	record.Status = models.StageStatusCompleted
	record.CompletedAt = &now
	job.Stages[stage.String()] = record
	job.Cost += record.Cost
	stageDuration.WithLabelValues(stage.String()).Observe(now.Sub(started).Seconds())

	if stage == models.StageAssembly {
		// content item creation and the stage record commit together
		return c.persistAssembly(ctx, job, record)
	}
	return c.persistJob(ctx, job)
}

// runPlanning fills in the content plan. Planning is pure and never touches
// an adapter.
func (c *PipelineCoordinator) runPlanning(ctx context.Context, job *models.GenerationJob, record *models.StageRecord) error {
	if job.Plan.SceneCount <= 0 {
		job.Plan.SceneCount = c.cfg.DefaultSceneCount
	}
	if job.Plan.TargetDuration <= 0 {
		job.Plan.TargetDuration = int(c.cfg.DefaultDuration.Seconds())
	}
	if len(job.Plan.Platforms) == 0 {
		return fmt.Errorf("content plan has no target platforms")
	}
	return nil
}

// runCapabilityStage invokes the tier registry for a single-output stage,
// retrying transient exhaustion a few times before giving up
func (c *PipelineCoordinator) runCapabilityStage(ctx context.Context, job *models.GenerationJob, record *models.StageRecord, capability services.Capability, prompt string, inputs []string) error {
	spec := services.GenerationSpec{
		JobUUID:    job.UUID.String(),
		Stage:      job.Stage,
		Prompt:     prompt,
		InputRefs:  inputs,
		Platforms:  job.Plan.Platforms,
		SceneCount: job.Plan.SceneCount,
		Duration:   time.Duration(job.Plan.TargetDuration) * time.Second,
	}

	result, audit, err := c.invokeWithRetry(ctx, capability, job.Tier, spec)
	if err != nil {
		return err
	}

	record.AssetRef = &result.AssetRef
	record.Adapter = audit.Adapter
	record.Tier = audit.Tier.String()
	record.Cost = audit.Cost
	record.LatencyMS = audit.Latency.Milliseconds()
	if audit.DegradedFrom != nil {
		from := audit.DegradedFrom.String()
		record.DegradedFrom = &from
		tierDegradationsTotal.WithLabelValues(capability.String()).Inc()
	}
	return nil
}

// runAssembly stitches the prior stage assets into the final cut. All three
// upstream assets must exist.
func (c *PipelineCoordinator) runAssembly(ctx context.Context, job *models.GenerationJob, record *models.StageRecord) error {
	inputs := make([]string, 0, 3)
	for _, st := range []models.JobStage{models.StageScript, models.StageVisual, models.StageAudio} {
		refs := c.stageInputs(job, st)
		if len(refs) == 0 {
			return fmt.Errorf("assembly requires a completed %s asset", st)
		}
		inputs = append(inputs, refs...)
	}
	return c.runCapabilityStage(ctx, job, record, services.CapabilityAssembly, "assemble final cut", inputs)
}

// runOptimizing produces per-platform variants. A single platform failing is
// recorded on its variant; the stage itself still completes.
func (c *PipelineCoordinator) runOptimizing(ctx context.Context, job *models.GenerationJob, record *models.StageRecord) error {
	item, err := c.contentRepo.ByJobID(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("failed to load content item: %w", err)
	}
	if item == nil {
		return fmt.Errorf("no content item for job %s", job.UUID)
	}
	if item.Variants == nil {
		item.Variants = models.PlatformVariants{}
	}

	for _, platform := range job.Plan.Platforms {
		spec := services.GenerationSpec{
			JobUUID:   job.UUID.String(),
			Stage:     job.Stage,
			Prompt:    fmt.Sprintf("optimize title, description and hashtags for %s", platform),
			InputRefs: []string{item.ScriptRef},
			Platforms: []string{platform},
			Params:    map[string]string{"platform": platform},
		}

		result, audit, err := c.invokeWithRetry(ctx, services.CapabilityText, job.Tier, spec)
		if err != nil {
			msg := err.Error()
			item.Variants[platform] = models.PlatformVariant{Error: &msg}
			c.logger.Printf("pipeline: job %s optimize %s failed: %v", job.UUID, platform, err)
			continue
		}

		variant := models.PlatformVariant{
			Title:       result.Meta["title"],
			Description: result.Meta["description"],
		}
		if variant.Title == "" {
			variant.Title = item.Title
		}
		if tags := result.Meta["hashtags"]; tags != "" {
			variant.Hashtags = strings.Split(tags, ",")
		}
		item.Variants[platform] = variant

		record.Cost += audit.Cost
		record.Adapter = audit.Adapter
		record.Tier = audit.Tier.String()
	}

	return c.contentRepo.Update(ctx, item)
}

// invokeWithRetry wraps registry invocation with a small bounded retry for
// transient exhaustion. Permanent failures return immediately.
func (c *PipelineCoordinator) invokeWithRetry(ctx context.Context, capability services.Capability, tier models.QualityTier, spec services.GenerationSpec) (*services.InvokeResult, *services.SelectionAudit, error) {
	policy := services.DefaultRetryPolicy()
	attempts := 1 + c.cfg.StageRetryAttempts

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		result, audit, err := c.registry.Invoke(ctx, capability, tier, spec)
		if err == nil {
			return result, audit, nil
		}
		if !services.IsRetryable(err) {
			return nil, nil, err
		}
		lastErr = err

		if attempt == attempts {
			break
		}
		select {
		case <-time.After(policy.Delay(attempt)):
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	}
	return nil, nil, lastErr
}

// persistAssembly commits the assembly stage record together with the new
// content item
func (c *PipelineCoordinator) persistAssembly(ctx context.Context, job *models.GenerationJob, record models.StageRecord) error {
	opportunity, err := c.opportunityRepo.ByID(ctx, job.OpportunityID)
	if err != nil {
		return fmt.Errorf("failed to load opportunity: %w", err)
	}

	title := "Untitled"
	if opportunity != nil {
		title = opportunity.Angle
	}

	item := &models.ContentItem{
		JobID:    job.ID,
		Title:    title,
		Duration: job.Plan.TargetDuration,
		Variants: models.PlatformVariants{},
	}
	if record.AssetRef != nil {
		item.AssetURL = *record.AssetRef
	}
	if refs := c.stageInputs(job, models.StageScript); len(refs) > 0 {
		item.ScriptRef = refs[0]
	}
	if refs := c.stageInputs(job, models.StageVisual); len(refs) > 0 {
		item.ImageRefs = pq.StringArray(refs)
	}
	if refs := c.stageInputs(job, models.StageAudio); len(refs) > 0 {
		item.AudioRef = refs[0]
	}

	err = repository.WithTransaction(ctx, c.db, func(txCtx context.Context) error {
		if err := c.contentRepo.Save(txCtx, item); err != nil {
			return err
		}
		return c.jobRepo.Update(txCtx, job)
	})
	if err != nil {
		return fmt.Errorf("failed to persist assembly output: %w", err)
	}
	c.invalidateJobCache(ctx, job)
	return nil
}

func (c *PipelineCoordinator) complete(ctx context.Context, job *models.GenerationJob) {
	now := utils.UTCNow()
	job.Stage = models.StageCompleted
	job.CompletedAt = &now

	err := repository.WithTransaction(ctx, c.db, func(txCtx context.Context) error {
		if err := c.jobRepo.Update(txCtx, job); err != nil {
			return err
		}
		opportunity, err := c.opportunityRepo.ByID(txCtx, job.OpportunityID)
		if err != nil || opportunity == nil {
			return err
		}
		opportunity.Status = models.OpportunityStatusCompleted
		return c.opportunityRepo.Update(txCtx, opportunity)
	})
	if err != nil {
		c.logger.Printf("pipeline: job %s completed but persist failed: %v", job.UUID, err)
		return
	}

	c.invalidateJobCache(ctx, job)
	jobsFinishedTotal.WithLabelValues(models.StageCompleted.String()).Inc()
	c.logger.Printf("pipeline: job %s completed, total cost %.4f", job.UUID, job.Cost)
}

func (c *PipelineCoordinator) finishFailed(ctx context.Context, job *models.GenerationJob, stage models.JobStage, cause error) {
	now := utils.UTCNow()
	detail := fmt.Sprintf("stage %s: %v", stage, cause)
	job.Stage = models.StageFailed
	job.ErrorDetail = &detail
	job.CompletedAt = &now

	if err := c.persistJob(ctx, job); err != nil {
		c.logger.Printf("pipeline: job %s failed and persist failed too: %v", job.UUID, err)
		return
	}
	jobsFinishedTotal.WithLabelValues(models.StageFailed.String()).Inc()
	c.logger.Printf("pipeline: job %s failed at %s: %v", job.UUID, stage, cause)
}

// finishCancelled marks the job cancelled and returns the opportunity to the
// pending pool
func (c *PipelineCoordinator) finishCancelled(ctx context.Context, job *models.GenerationJob) {
	now := utils.UTCNow()
	job.Stage = models.StageCancelled
	job.CompletedAt = &now

	err := repository.WithTransaction(ctx, c.db, func(txCtx context.Context) error {
		if err := c.jobRepo.Update(txCtx, job); err != nil {
			return err
		}
		opportunity, err := c.opportunityRepo.ByID(txCtx, job.OpportunityID)
		if err != nil || opportunity == nil {
			return err
		}
		if opportunity.CanTransitionTo(models.OpportunityStatusPending) {
			opportunity.Status = models.OpportunityStatusPending
			return c.opportunityRepo.Update(txCtx, opportunity)
		}
		return nil
	})
	if err != nil {
		c.logger.Printf("pipeline: job %s cancel persist failed: %v", job.UUID, err)
		return
	}

	c.invalidateJobCache(ctx, job)
	jobsFinishedTotal.WithLabelValues(models.StageCancelled.String()).Inc()
	c.logger.Printf("pipeline: job %s cancelled", job.UUID)
}

// cancelRequested reloads the cancellation flag between stages
func (c *PipelineCoordinator) cancelRequested(ctx context.Context, job *models.GenerationJob) bool {
	fresh, err := c.jobRepo.ByUUID(ctx, job.UUID.String())
	if err == nil && fresh != nil {
		job.CancelRequested = fresh.CancelRequested
	}
	return job.CancelRequested
}

func (c *PipelineCoordinator) stageInputs(job *models.GenerationJob, stage models.JobStage) []string {
	rec, ok := job.Stages[stage.String()]
	if !ok || rec.AssetRef == nil || *rec.AssetRef == "" {
		return nil
	}
	return []string{*rec.AssetRef}
}

func (c *PipelineCoordinator) scriptPrompt(job *models.GenerationJob) string {
	return fmt.Sprintf("write a %d second short-form video script in %d scenes about: %s",
		job.Plan.TargetDuration, job.Plan.SceneCount, job.Plan.Angle)
}

// persistJob writes the coordinator's view of the job back. A cancel flag
// set while a stage call was in flight must survive the write, so it is
// merged from storage first.
func (c *PipelineCoordinator) persistJob(ctx context.Context, job *models.GenerationJob) error {
	if !job.CancelRequested {
		if fresh, err := c.jobRepo.ByUUID(ctx, job.UUID.String()); err == nil && fresh != nil && fresh.CancelRequested {
			job.CancelRequested = true
		}
	}
	if err := c.jobRepo.Update(ctx, job); err != nil {
		return fmt.Errorf("failed to persist job state: %w", err)
	}
	c.invalidateJobCache(ctx, job)
	return nil
}

func (c *PipelineCoordinator) invalidateJobCache(ctx context.Context, job *models.GenerationJob) {
	if c.rc == nil || c.cacheCfg == nil || !c.cacheCfg.Enabled {
		return
	}
	_ = c.rc.Del(ctx, c.cacheCfg.RedisPrefix+"job:"+job.UUID.String()).Err()
}
