package scheduler

import (
	"container/heap"
	"context"
	"log"
	"sync"
	"time"

	"github.com/trendforge/trendforge/app/services"
	"github.com/trendforge/trendforge/config"
	"github.com/trendforge/trendforge/models"
	"github.com/trendforge/trendforge/repository"
	"github.com/trendforge/trendforge/utils"
)

// taskHeap orders scheduled upload tasks by due time
type taskHeap []*models.UploadTask

func (h taskHeap) Len() int { return len(h) }
func (h taskHeap) Less(i, j int) bool {
	return h[i].ScheduledAt.Before(*h[j].ScheduledAt)
}
func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *taskHeap) Push(x any) { *h = append(*h, x.(*models.UploadTask)) }
func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	task := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return task
}

// tokenBucket is a per-platform rate limiter refilling at a fixed rate
type tokenBucket struct {
	mu     sync.Mutex
	tokens float64
	burst  float64
	perSec float64
	last   time.Time
}

func newTokenBucket(ratePerMinute, burst int) *tokenBucket {
	if ratePerMinute <= 0 {
		ratePerMinute = 60
	}
	if burst <= 0 {
		burst = 1
	}
	return &tokenBucket{
		tokens: float64(burst),
		burst:  float64(burst),
		perSec: float64(ratePerMinute) / 60,
		last:   utils.UTCNow(),
	}
}

// Wait blocks until a token is available or the context ends
func (b *tokenBucket) Wait(ctx context.Context) error {
	for {
		b.mu.Lock()
		now := utils.UTCNow()
		b.tokens += now.Sub(b.last).Seconds() * b.perSec
		if b.tokens > b.burst {
			b.tokens = b.burst
		}
		b.last = now

		if b.tokens >= 1 {
			b.tokens--
			b.mu.Unlock()
			return nil
		}
		wait := time.Duration((1 - b.tokens) / b.perSec * float64(time.Second))
		b.mu.Unlock()

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// UploadOrchestrator dispatches upload tasks to platform adapters through
// per-platform worker pools. Scheduled tasks wait in a time-ordered heap
// drained by a single ticker; transient failures go back on the heap with
// exponential backoff.
type UploadOrchestrator struct {
	uploadRepo  repository.UploadTaskRepository
	contentRepo repository.ContentItemRepository
	admission   *AdmissionManager
	cfg         *config.UploadConfig
	logger      *log.Logger

	adapters map[string]services.PlatformAdapter
	configs  map[string]config.PlatformConfig
	queues   map[string]chan *models.UploadTask
	limiters map[string]*tokenBucket

	heapMu    sync.Mutex
	scheduled taskHeap
	wake      chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewUploadOrchestrator creates the orchestrator with one adapter per
// configured platform
func NewUploadOrchestrator(
	uploadRepo repository.UploadTaskRepository,
	contentRepo repository.ContentItemRepository,
	adapters map[string]services.PlatformAdapter,
	admission *AdmissionManager,
	cfg *config.UploadConfig,
) *UploadOrchestrator {
	o := &UploadOrchestrator{
		uploadRepo:  uploadRepo,
		contentRepo: contentRepo,
		admission:   admission,
		cfg:         cfg,
		logger:      newComponentLogger("uploader"),
		adapters:    make(map[string]services.PlatformAdapter),
		configs:     make(map[string]config.PlatformConfig),
		queues:      make(map[string]chan *models.UploadTask),
		limiters:    make(map[string]*tokenBucket),
		wake:        make(chan struct{}, 1),
	}

	for _, pc := range cfg.Platforms {
		adapter, ok := adapters[pc.Name]
		if !ok {
			continue
		}
		o.adapters[pc.Name] = adapter
		o.configs[pc.Name] = pc
		o.queues[pc.Name] = make(chan *models.UploadTask, 256)
		o.limiters[pc.Name] = newTokenBucket(pc.RatePerMinute, pc.Burst)
		admission.RegisterPlatform(pc.Name, pc.Workers)
	}
	heap.Init(&o.scheduled)
	return o
}

// Supports reports whether the platform has a configured adapter
func (o *UploadOrchestrator) Supports(platform string) bool {
	_, ok := o.adapters[platform]
	return ok
}

// MaxRetries returns the configured retry budget for the platform
func (o *UploadOrchestrator) MaxRetries(platform string) int {
	return o.configs[platform].MaxRetries
}

// Dispatch routes a task: pending goes straight to its platform queue,
// scheduled waits on the heap until due
func (o *UploadOrchestrator) Dispatch(task *models.UploadTask) {
	if !o.Supports(task.Platform) {
		o.logger.Printf("uploader: dropping task %s for unsupported platform %s", task.UUID, task.Platform)
		return
	}
	if task.Status == models.UploadStatusScheduled && task.ScheduledAt != nil && task.ScheduledAt.After(utils.UTCNow()) {
		o.pushScheduled(task)
		return
	}
	o.enqueue(task)
}

// Start launches workers and the scheduling ticker, returning a stop func
func (o *UploadOrchestrator) Start(parent context.Context) func() {
	o.ctx, o.cancel = context.WithCancel(parent)

	for platform, pc := range o.configs {
		workers := pc.Workers
		if workers <= 0 {
			workers = 1
		}
		for i := 0; i < workers; i++ {
			o.wg.Add(1)
			go o.worker(o.ctx, platform)
		}
	}

	o.wg.Add(1)
	go o.schedulerLoop(o.ctx)

	return func() {
		o.cancel()
		o.wg.Wait()
	}
}

func (o *UploadOrchestrator) worker(ctx context.Context, platform string) {
	defer o.wg.Done()

	queue := o.queues[platform]
	limiter := o.limiters[platform]
	gate := o.admission.Platform(platform)

	for {
		select {
		case <-ctx.Done():
			return
		case task := <-queue:
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			release, err := gate.Acquire(ctx)
			if err != nil {
				return
			}
			o.process(ctx, task)
			release()
		}
	}
}

// schedulerLoop drains due tasks from the heap on a single ticker
func (o *UploadOrchestrator) schedulerLoop(ctx context.Context) {
	defer o.wg.Done()

	tick := o.cfg.SchedulerTick
	if tick <= 0 {
		tick = 30 * time.Second
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	o.releaseDue(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.releaseDue(ctx)
		case <-o.wake:
			o.releaseDue(ctx)
		}
	}
}

func (o *UploadOrchestrator) pushScheduled(task *models.UploadTask) {
	o.heapMu.Lock()
	heap.Push(&o.scheduled, task)
	o.heapMu.Unlock()

	select {
	case o.wake <- struct{}{}:
	default:
	}
}

// releaseDue moves every due task from the heap into its platform queue
func (o *UploadOrchestrator) releaseDue(ctx context.Context) {
	now := utils.UTCNow()
	for {
		o.heapMu.Lock()
		if o.scheduled.Len() == 0 || o.scheduled[0].ScheduledAt.After(now) {
			o.heapMu.Unlock()
			return
		}
		task := heap.Pop(&o.scheduled).(*models.UploadTask)
		o.heapMu.Unlock()

		// the task leaves the scheduled state so recovery does not re-load it
		task.Status = models.UploadStatusPending
		if err := o.uploadRepo.Update(ctx, task); err != nil {
			o.logger.Printf("uploader: failed to release task %s: %v", task.UUID, err)
		}
		o.enqueue(task)
	}
}

func (o *UploadOrchestrator) enqueue(task *models.UploadTask) {
	queue, ok := o.queues[task.Platform]
	if !ok {
		return
	}
	select {
	case queue <- task:
	default:
		// queue saturated: nudge the task back onto the heap for the next tick
		now := utils.UTCNow().Add(5 * time.Second)
		task.ScheduledAt = &now
		o.pushScheduled(task)
	}
}

// process runs one upload attempt and persists the outcome
func (o *UploadOrchestrator) process(ctx context.Context, task *models.UploadTask) {
	pc := o.configs[task.Platform]
	adapter := o.adapters[task.Platform]

	task.Status = models.UploadStatusUploading
	task.AttemptCount++
	if err := o.uploadRepo.Update(ctx, task); err != nil {
		o.logger.Printf("uploader: task %s attempt persist failed: %v", task.UUID, err)
		return
	}

	item, err := o.contentRepo.ByID(ctx, task.ContentItemID)
	if err != nil || item == nil {
		o.fail(ctx, task, "content item unavailable")
		return
	}

	variant, ok := item.Variants[task.Platform]
	if !ok || variant.Error != nil {
		// optimizing failed for this platform: fall back to the base title
		variant = models.PlatformVariant{Title: item.Title}
	}

	uploadCtx := ctx
	if pc.Timeout > 0 {
		var cancel context.CancelFunc
		uploadCtx, cancel = context.WithTimeout(ctx, pc.Timeout)
		defer cancel()
	}

	result, err := adapter.Upload(uploadCtx, item, variant)
	if err == nil {
		task.Status = models.UploadStatusCompleted
		task.ExternalID = &result.ExternalID
		task.ExternalURL = &result.ExternalURL
		task.LastError = nil
		if err := o.uploadRepo.Update(ctx, task); err != nil {
			o.logger.Printf("uploader: task %s completion persist failed: %v", task.UUID, err)
		}
		uploadAttemptsTotal.WithLabelValues(task.Platform, "completed").Inc()
		o.logger.Printf("uploader: task %s uploaded to %s as %s", task.UUID, task.Platform, result.ExternalID)
		return
	}

	if !services.IsRetryable(err) {
		o.fail(ctx, task, err.Error())
		uploadAttemptsTotal.WithLabelValues(task.Platform, "rejected").Inc()
		return
	}

	if task.RetriesExhausted() {
		o.fail(ctx, task, err.Error())
		uploadAttemptsTotal.WithLabelValues(task.Platform, "exhausted").Inc()
		return
	}

	// transient failure: back off and reschedule
	policy := services.RetryPolicy{
		MaxAttempts: pc.MaxRetries,
		BaseDelay:   o.cfg.RetryBaseDelay,
		MaxDelay:    o.cfg.RetryMaxDelay,
		Multiplier:  2.0,
	}
	due := utils.UTCNow().Add(policy.Delay(task.AttemptCount))
	msg := err.Error()
	task.Status = models.UploadStatusScheduled
	task.ScheduledAt = &due
	task.LastError = &msg
	if err := o.uploadRepo.Update(ctx, task); err != nil {
		o.logger.Printf("uploader: task %s retry persist failed: %v", task.UUID, err)
		return
	}
	o.pushScheduled(task)
	uploadAttemptsTotal.WithLabelValues(task.Platform, "retried").Inc()
	uploadRetriesTotal.WithLabelValues(task.Platform).Inc()
	o.logger.Printf("uploader: task %s transient failure on attempt %d, retry at %s: %v",
		task.UUID, task.AttemptCount, due.Format(time.RFC3339), err)
}

func (o *UploadOrchestrator) fail(ctx context.Context, task *models.UploadTask, reason string) {
	task.Status = models.UploadStatusFailed
	task.LastError = &reason
	if err := o.uploadRepo.Update(ctx, task); err != nil {
		o.logger.Printf("uploader: task %s failure persist failed: %v", task.UUID, err)
	}
	o.logger.Printf("uploader: task %s failed permanently: %s", task.UUID, reason)
}
