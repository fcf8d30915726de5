// Package testing provides in-memory repositories and fixtures for exercising
// flows and schedulers without a database
package testing

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/trendforge/trendforge/models"
	"github.com/trendforge/trendforge/utils"
)

// MemoryTrendRepository is an in-memory stand-in for the trend repository.
// All accessors copy on the way in and out so concurrent workers and test
// assertions never share a struct.
type MemoryTrendRepository struct {
	mu     sync.Mutex
	nextID uint
	trends []*models.Trend
}

func NewMemoryTrendRepository() *MemoryTrendRepository {
	return &MemoryTrendRepository{}
}

func (r *MemoryTrendRepository) ByID(ctx context.Context, id uint) (*models.Trend, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.trends {
		if t.ID == id {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *MemoryTrendRepository) ByUUID(ctx context.Context, id string) (*models.Trend, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.trends {
		if t.UUID.String() == id {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *MemoryTrendRepository) ByFilter(ctx context.Context, filter models.TrendFilter, orderBy string, limit, offset int) ([]*models.Trend, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Trend
	for _, t := range r.trends {
		if !matchTrend(t, filter) {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	return page(out, limit, offset), nil
}

func (r *MemoryTrendRepository) Save(ctx context.Context, trend *models.Trend) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	trend.ID = r.nextID
	if trend.UUID == uuid.Nil {
		trend.UUID = uuid.New()
	}
	if trend.CollectedAt.IsZero() {
		trend.CollectedAt = utils.UTCNow()
	}
	if trend.CreatedAt.IsZero() {
		trend.CreatedAt = utils.UTCNow()
	}
	cp := *trend
	r.trends = append(r.trends, &cp)
	return nil
}

func (r *MemoryTrendRepository) SaveBatch(ctx context.Context, trends []*models.Trend) error {
	for _, t := range trends {
		if err := r.Save(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

func (r *MemoryTrendRepository) Count(ctx context.Context, filter models.TrendFilter) (int64, error) {
	items, err := r.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(items)), err
}

func (r *MemoryTrendRepository) Exists(ctx context.Context, filter models.TrendFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	return count > 0, err
}

func (r *MemoryTrendRepository) LatestCollectedAt(ctx context.Context, source string) (*time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *time.Time
	for _, t := range r.trends {
		if t.Source != source {
			continue
		}
		if latest == nil || t.CollectedAt.After(*latest) {
			ts := t.CollectedAt
			latest = &ts
		}
	}
	return latest, nil
}

func matchTrend(t *models.Trend, f models.TrendFilter) bool {
	if f.ID != nil && t.ID != *f.ID {
		return false
	}
	if f.UUID != nil && t.UUID != *f.UUID {
		return false
	}
	if f.Source != nil && t.Source != *f.Source {
		return false
	}
	if f.Category != nil && t.Category != *f.Category {
		return false
	}
	if f.MinPopularity != nil && t.Popularity < *f.MinPopularity {
		return false
	}
	if f.CollectedAfter != nil && !t.CollectedAt.After(*f.CollectedAfter) {
		return false
	}
	if f.CollectedBefore != nil && !t.CollectedAt.Before(*f.CollectedBefore) {
		return false
	}
	return true
}

// MemoryOpportunityRepository is an in-memory stand-in for the opportunity
// repository
type MemoryOpportunityRepository struct {
	mu            sync.Mutex
	nextID        uint
	opportunities []*models.Opportunity
}

func NewMemoryOpportunityRepository() *MemoryOpportunityRepository {
	return &MemoryOpportunityRepository{}
}

func (r *MemoryOpportunityRepository) ByID(ctx context.Context, id uint) (*models.Opportunity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.opportunities {
		if o.ID == id {
			cp := *o
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *MemoryOpportunityRepository) ByUUID(ctx context.Context, id string) (*models.Opportunity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.opportunities {
		if o.UUID.String() == id {
			cp := *o
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *MemoryOpportunityRepository) ByFilter(ctx context.Context, filter models.OpportunityFilter, orderBy string, limit, offset int) ([]*models.Opportunity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Opportunity
	for _, o := range r.opportunities {
		if !matchOpportunity(o, filter) {
			continue
		}
		cp := *o
		out = append(out, &cp)
	}
	if orderBy == "priority_score DESC, created_at DESC" {
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].PriorityScore != out[j].PriorityScore {
				return out[i].PriorityScore > out[j].PriorityScore
			}
			return out[i].CreatedAt.After(out[j].CreatedAt)
		})
	}
	return page(out, limit, offset), nil
}

func (r *MemoryOpportunityRepository) Save(ctx context.Context, opportunity *models.Opportunity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	opportunity.ID = r.nextID
	if opportunity.UUID == uuid.Nil {
		opportunity.UUID = uuid.New()
	}
	if opportunity.Status == "" {
		opportunity.Status = models.OpportunityStatusPending
	}
	if opportunity.CreatedAt.IsZero() {
		opportunity.CreatedAt = utils.UTCNow()
	}
	cp := *opportunity
	r.opportunities = append(r.opportunities, &cp)
	return nil
}

func (r *MemoryOpportunityRepository) SaveBatch(ctx context.Context, opportunities []*models.Opportunity) error {
	for _, o := range opportunities {
		if err := r.Save(ctx, o); err != nil {
			return err
		}
	}
	return nil
}

func (r *MemoryOpportunityRepository) Count(ctx context.Context, filter models.OpportunityFilter) (int64, error) {
	items, err := r.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(items)), err
}

func (r *MemoryOpportunityRepository) Exists(ctx context.Context, filter models.OpportunityFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	return count > 0, err
}

func (r *MemoryOpportunityRepository) Update(ctx context.Context, opportunity *models.Opportunity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := utils.UTCNow()
	opportunity.UpdatedAt = &now
	for i, o := range r.opportunities {
		if o.ID == opportunity.ID {
			cp := *opportunity
			r.opportunities[i] = &cp
			return nil
		}
	}
	return nil
}

func (r *MemoryOpportunityRepository) UpdateStatus(ctx context.Context, id uint, status models.OpportunityStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.opportunities {
		if o.ID == id {
			o.Status = status
			now := utils.UTCNow()
			o.UpdatedAt = &now
			return nil
		}
	}
	return nil
}

func (r *MemoryOpportunityRepository) ExpirePendingBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var expired int64
	for _, o := range r.opportunities {
		if o.Status == models.OpportunityStatusPending && o.CreatedAt.Before(cutoff) {
			o.Status = models.OpportunityStatusExpired
			expired++
		}
	}
	return expired, nil
}

func matchOpportunity(o *models.Opportunity, f models.OpportunityFilter) bool {
	if f.ID != nil && o.ID != *f.ID {
		return false
	}
	if f.UUID != nil && o.UUID != *f.UUID {
		return false
	}
	if f.TrendID != nil && o.TrendID != *f.TrendID {
		return false
	}
	if f.Status != nil && o.Status != *f.Status {
		return false
	}
	if f.Competition != nil && o.Competition != *f.Competition {
		return false
	}
	if f.MinScore != nil && o.PriorityScore < *f.MinScore {
		return false
	}
	if f.CreatedAfter != nil && !o.CreatedAt.After(*f.CreatedAfter) {
		return false
	}
	if f.CreatedBefore != nil && !o.CreatedAt.Before(*f.CreatedBefore) {
		return false
	}
	return true
}

// MemoryGenerationJobRepository is an in-memory stand-in for the generation
// job repository
type MemoryGenerationJobRepository struct {
	mu     sync.Mutex
	nextID uint
	jobs   []*models.GenerationJob
}

func NewMemoryGenerationJobRepository() *MemoryGenerationJobRepository {
	return &MemoryGenerationJobRepository{}
}

func (r *MemoryGenerationJobRepository) ByID(ctx context.Context, id uint) (*models.GenerationJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range r.jobs {
		if j.ID == id {
			return copyJob(j), nil
		}
	}
	return nil, nil
}

func (r *MemoryGenerationJobRepository) ByUUID(ctx context.Context, id string) (*models.GenerationJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range r.jobs {
		if j.UUID.String() == id {
			return copyJob(j), nil
		}
	}
	return nil, nil
}

func (r *MemoryGenerationJobRepository) ByFilter(ctx context.Context, filter models.GenerationJobFilter, orderBy string, limit, offset int) ([]*models.GenerationJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.GenerationJob
	for _, j := range r.jobs {
		if !matchJob(j, filter) {
			continue
		}
		out = append(out, copyJob(j))
	}
	return page(out, limit, offset), nil
}

func (r *MemoryGenerationJobRepository) Save(ctx context.Context, job *models.GenerationJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	job.ID = r.nextID
	if job.UUID == uuid.Nil {
		job.UUID = uuid.New()
	}
	if job.Stage == "" {
		job.Stage = models.StageQueued
	}
	if job.Stages == nil {
		job.Stages = models.StageRecords{}
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = utils.UTCNow()
	}
	r.jobs = append(r.jobs, copyJob(job))
	return nil
}

func (r *MemoryGenerationJobRepository) SaveBatch(ctx context.Context, jobs []*models.GenerationJob) error {
	for _, j := range jobs {
		if err := r.Save(ctx, j); err != nil {
			return err
		}
	}
	return nil
}

func (r *MemoryGenerationJobRepository) Count(ctx context.Context, filter models.GenerationJobFilter) (int64, error) {
	items, err := r.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(items)), err
}

func (r *MemoryGenerationJobRepository) Exists(ctx context.Context, filter models.GenerationJobFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	return count > 0, err
}

func (r *MemoryGenerationJobRepository) Update(ctx context.Context, job *models.GenerationJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := utils.UTCNow()
	job.UpdatedAt = &now
	for i, j := range r.jobs {
		if j.ID == job.ID {
			r.jobs[i] = copyJob(job)
			return nil
		}
	}
	return nil
}

func (r *MemoryGenerationJobRepository) ActiveByOpportunityID(ctx context.Context, opportunityID uint) (*models.GenerationJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range r.jobs {
		if j.OpportunityID == opportunityID && !j.Stage.IsTerminal() {
			return copyJob(j), nil
		}
	}
	return nil, nil
}

func (r *MemoryGenerationJobRepository) ListNonTerminal(ctx context.Context, limit int) ([]*models.GenerationJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.GenerationJob
	for _, j := range r.jobs {
		if j.Stage.IsTerminal() {
			continue
		}
		out = append(out, copyJob(j))
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func matchJob(j *models.GenerationJob, f models.GenerationJobFilter) bool {
	if f.ID != nil && j.ID != *f.ID {
		return false
	}
	if f.UUID != nil && j.UUID != *f.UUID {
		return false
	}
	if f.OpportunityID != nil && j.OpportunityID != *f.OpportunityID {
		return false
	}
	if f.Tier != nil && j.Tier != *f.Tier {
		return false
	}
	if f.Stage != nil && j.Stage != *f.Stage {
		return false
	}
	if f.CreatedAfter != nil && !j.CreatedAt.After(*f.CreatedAfter) {
		return false
	}
	if f.CreatedBefore != nil && !j.CreatedAt.Before(*f.CreatedBefore) {
		return false
	}
	return true
}

// copyJob deep-copies the mutable jsonb maps so a held reference cannot
// observe later writes
func copyJob(j *models.GenerationJob) *models.GenerationJob {
	cp := *j
	cp.Stages = make(models.StageRecords, len(j.Stages))
	for k, v := range j.Stages {
		cp.Stages[k] = v
	}
	cp.Plan.Platforms = append([]string(nil), j.Plan.Platforms...)
	return &cp
}

// MemoryContentItemRepository is an in-memory stand-in for the content item
// repository
type MemoryContentItemRepository struct {
	mu     sync.Mutex
	nextID uint
	items  []*models.ContentItem
}

func NewMemoryContentItemRepository() *MemoryContentItemRepository {
	return &MemoryContentItemRepository{}
}

func (r *MemoryContentItemRepository) ByID(ctx context.Context, id uint) (*models.ContentItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.items {
		if c.ID == id {
			return copyItem(c), nil
		}
	}
	return nil, nil
}

func (r *MemoryContentItemRepository) ByUUID(ctx context.Context, id string) (*models.ContentItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.items {
		if c.UUID.String() == id {
			return copyItem(c), nil
		}
	}
	return nil, nil
}

func (r *MemoryContentItemRepository) ByJobID(ctx context.Context, jobID uint) (*models.ContentItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.items {
		if c.JobID == jobID {
			return copyItem(c), nil
		}
	}
	return nil, nil
}

func (r *MemoryContentItemRepository) ByFilter(ctx context.Context, filter models.ContentItemFilter, orderBy string, limit, offset int) ([]*models.ContentItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.ContentItem
	for _, c := range r.items {
		if !matchItem(c, filter) {
			continue
		}
		out = append(out, copyItem(c))
	}
	return page(out, limit, offset), nil
}

func (r *MemoryContentItemRepository) Save(ctx context.Context, item *models.ContentItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	item.ID = r.nextID
	if item.UUID == uuid.Nil {
		item.UUID = uuid.New()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = utils.UTCNow()
	}
	r.items = append(r.items, copyItem(item))
	return nil
}

func (r *MemoryContentItemRepository) SaveBatch(ctx context.Context, items []*models.ContentItem) error {
	for _, c := range items {
		if err := r.Save(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

func (r *MemoryContentItemRepository) Count(ctx context.Context, filter models.ContentItemFilter) (int64, error) {
	items, err := r.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(items)), err
}

func (r *MemoryContentItemRepository) Exists(ctx context.Context, filter models.ContentItemFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	return count > 0, err
}

func (r *MemoryContentItemRepository) Update(ctx context.Context, item *models.ContentItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := utils.UTCNow()
	item.UpdatedAt = &now
	for i, c := range r.items {
		if c.ID == item.ID {
			r.items[i] = copyItem(item)
			return nil
		}
	}
	return nil
}

func matchItem(c *models.ContentItem, f models.ContentItemFilter) bool {
	if f.ID != nil && c.ID != *f.ID {
		return false
	}
	if f.UUID != nil && c.UUID != *f.UUID {
		return false
	}
	if f.JobID != nil && c.JobID != *f.JobID {
		return false
	}
	if f.CreatedAfter != nil && !c.CreatedAt.After(*f.CreatedAfter) {
		return false
	}
	if f.CreatedBefore != nil && !c.CreatedAt.Before(*f.CreatedBefore) {
		return false
	}
	return true
}

func copyItem(c *models.ContentItem) *models.ContentItem {
	cp := *c
	cp.ImageRefs = append(cp.ImageRefs[:0:0], c.ImageRefs...)
	cp.Variants = make(models.PlatformVariants, len(c.Variants))
	for k, v := range c.Variants {
		cp.Variants[k] = v
	}
	return &cp
}

// MemoryUploadTaskRepository is an in-memory stand-in for the upload task
// repository
type MemoryUploadTaskRepository struct {
	mu     sync.Mutex
	nextID uint
	tasks  []*models.UploadTask
}

func NewMemoryUploadTaskRepository() *MemoryUploadTaskRepository {
	return &MemoryUploadTaskRepository{}
}

func (r *MemoryUploadTaskRepository) ByID(ctx context.Context, id uint) (*models.UploadTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tasks {
		if t.ID == id {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *MemoryUploadTaskRepository) ByUUID(ctx context.Context, id string) (*models.UploadTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tasks {
		if t.UUID.String() == id {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *MemoryUploadTaskRepository) ByFilter(ctx context.Context, filter models.UploadTaskFilter, orderBy string, limit, offset int) ([]*models.UploadTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.UploadTask
	for _, t := range r.tasks {
		if !matchTask(t, filter) {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	switch orderBy {
	case "created_at ASC":
		sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	case "scheduled_at ASC":
		sort.SliceStable(out, func(i, j int) bool {
			var a, b time.Time
			if out[i].ScheduledAt != nil {
				a = *out[i].ScheduledAt
			}
			if out[j].ScheduledAt != nil {
				b = *out[j].ScheduledAt
			}
			return a.Before(b)
		})
	}
	return page(out, limit, offset), nil
}

func (r *MemoryUploadTaskRepository) Save(ctx context.Context, task *models.UploadTask) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	task.ID = r.nextID
	if task.UUID == uuid.Nil {
		task.UUID = uuid.New()
	}
	if task.Status == "" {
		if task.ScheduledAt != nil && task.ScheduledAt.After(utils.UTCNow()) {
			task.Status = models.UploadStatusScheduled
		} else {
			task.Status = models.UploadStatusPending
		}
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = utils.UTCNow()
	}
	cp := *task
	r.tasks = append(r.tasks, &cp)
	return nil
}

func (r *MemoryUploadTaskRepository) SaveBatch(ctx context.Context, tasks []*models.UploadTask) error {
	for _, t := range tasks {
		if err := r.Save(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

func (r *MemoryUploadTaskRepository) Count(ctx context.Context, filter models.UploadTaskFilter) (int64, error) {
	items, err := r.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(items)), err
}

func (r *MemoryUploadTaskRepository) Exists(ctx context.Context, filter models.UploadTaskFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	return count > 0, err
}

func (r *MemoryUploadTaskRepository) Update(ctx context.Context, task *models.UploadTask) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := utils.UTCNow()
	task.UpdatedAt = &now
	for i, t := range r.tasks {
		if t.ID == task.ID {
			cp := *task
			r.tasks[i] = &cp
			return nil
		}
	}
	return nil
}

func (r *MemoryUploadTaskRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.UploadTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.UploadTask
	for _, t := range r.tasks {
		if t.Status != models.UploadStatusScheduled {
			continue
		}
		if t.ScheduledAt != nil && t.ScheduledAt.After(now) {
			continue
		}
		cp := *t
		out = append(out, &cp)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *MemoryUploadTaskRepository) ListByBatchID(ctx context.Context, batchID uuid.UUID) ([]*models.UploadTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.UploadTask
	for _, t := range r.tasks {
		if t.BatchID != nil && *t.BatchID == batchID {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MemoryUploadTaskRepository) ListStuckUploading(ctx context.Context, cutoff time.Time) ([]*models.UploadTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.UploadTask
	for _, t := range r.tasks {
		if t.Status != models.UploadStatusUploading {
			continue
		}
		updated := t.CreatedAt
		if t.UpdatedAt != nil {
			updated = *t.UpdatedAt
		}
		if updated.After(cutoff) {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

func matchTask(t *models.UploadTask, f models.UploadTaskFilter) bool {
	if f.ID != nil && t.ID != *f.ID {
		return false
	}
	if f.UUID != nil && t.UUID != *f.UUID {
		return false
	}
	if f.ContentItemID != nil && t.ContentItemID != *f.ContentItemID {
		return false
	}
	if f.BatchID != nil && (t.BatchID == nil || *t.BatchID != *f.BatchID) {
		return false
	}
	if f.Platform != nil && t.Platform != *f.Platform {
		return false
	}
	if f.Status != nil && t.Status != *f.Status {
		return false
	}
	if f.ScheduledBefore != nil && (t.ScheduledAt == nil || !t.ScheduledAt.Before(*f.ScheduledBefore)) {
		return false
	}
	if f.CreatedAfter != nil && !t.CreatedAt.After(*f.CreatedAfter) {
		return false
	}
	if f.CreatedBefore != nil && !t.CreatedAt.Before(*f.CreatedBefore) {
		return false
	}
	return true
}

func page[T any](items []*T, limit, offset int) []*T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
