// Package businessflow contains the core business logic and use cases for generation job workflows
package businessflow

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/trendforge/trendforge/app/dto"
	"github.com/trendforge/trendforge/config"
	"github.com/trendforge/trendforge/models"
	"github.com/trendforge/trendforge/repository"
	"gorm.io/gorm"
)

// JobDispatcher hands accepted jobs to the pipeline. Reserve claims a queue
// slot up front so the job row is never persisted for a queue that cannot
// take it; Submit consumes the reservation.
type JobDispatcher interface {
	Reserve() (position int, release func(), err error)
	Submit(job *models.GenerationJob)
}

// JobFlow handles the generation job business logic
type JobFlow interface {
	AcceptOpportunity(ctx context.Context, req *dto.AcceptOpportunityRequest, metadata *ClientMetadata) (*dto.AcceptOpportunityResponse, error)
	GetJob(ctx context.Context, req *dto.GetJobRequest) (*dto.GenerationJobDTO, error)
	CancelJob(ctx context.Context, uuid string, metadata *ClientMetadata) (*dto.CancelJobResponse, error)
	RetryJob(ctx context.Context, uuid string, metadata *ClientMetadata) (*dto.RetryJobResponse, error)
}

// JobFlowImpl implements the generation job business flow
type JobFlowImpl struct {
	jobRepo         repository.GenerationJobRepository
	opportunityRepo repository.OpportunityRepository
	dispatcher      JobDispatcher
	cacheConfig     *config.CacheConfig
	rc              *redis.Client
	db              *gorm.DB
}

// NewJobFlow creates a new job flow instance
func NewJobFlow(
	jobRepo repository.GenerationJobRepository,
	opportunityRepo repository.OpportunityRepository,
	dispatcher JobDispatcher,
	db *gorm.DB,
	rc *redis.Client,
	cacheConfig *config.CacheConfig,
) JobFlow {
	return &JobFlowImpl{
		jobRepo:         jobRepo,
		opportunityRepo: opportunityRepo,
		dispatcher:      dispatcher,
		cacheConfig:     cacheConfig,
		rc:              rc,
		db:              db,
	}
}

// AcceptOpportunity turns a pending opportunity into a queued generation job.
// Exactly one non-terminal job may exist per opportunity.
func (s *JobFlowImpl) AcceptOpportunity(ctx context.Context, req *dto.AcceptOpportunityRequest, metadata *ClientMetadata) (*dto.AcceptOpportunityResponse, error) {
	tier := models.QualityTier(req.Tier)
	if !tier.Valid() {
		return nil, NewBusinessError("INVALID_TIER", "Invalid quality tier", ErrInvalidTier)
	}

	opportunity, err := s.opportunityRepo.ByUUID(ctx, req.UUID)
	if err != nil {
		return nil, NewBusinessError("OPPORTUNITY_LOOKUP_FAILED", "Failed to lookup opportunity", err)
	}
	if opportunity == nil {
		return nil, NewBusinessError("OPPORTUNITY_NOT_FOUND", "Opportunity not found", ErrOpportunityNotFound)
	}

	switch opportunity.Status {
	case models.OpportunityStatusPending:
		// actionable
	case models.OpportunityStatusAccepted:
		return nil, NewBusinessError("OPPORTUNITY_IN_PROGRESS", "Opportunity already has an active job", ErrOpportunityInProgress)
	case models.OpportunityStatusExpired:
		return nil, NewBusinessError("OPPORTUNITY_EXPIRED", "Opportunity has expired", ErrOpportunityExpired)
	default:
		return nil, NewBusinessError("OPPORTUNITY_NOT_PENDING", "Opportunity is not pending", ErrOpportunityNotPending)
	}

	active, err := s.jobRepo.ActiveByOpportunityID(ctx, opportunity.ID)
	if err != nil {
		return nil, NewBusinessError("JOB_LOOKUP_FAILED", "Failed to lookup active job", err)
	}
	if active != nil {
		return nil, NewBusinessError("OPPORTUNITY_IN_PROGRESS", "Opportunity already has an active job", ErrOpportunityInProgress)
	}

	// Claim a pipeline slot before touching the database
	position, release, err := s.dispatcher.Reserve()
	if err != nil {
		return nil, NewBusinessError("QUEUE_FULL", "Generation queue is full", err)
	}

	var job *models.GenerationJob
	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		job = &models.GenerationJob{
			OpportunityID: opportunity.ID,
			Tier:          tier,
			Stage:         models.StageQueued,
			Stages:        models.StageRecords{},
			Plan: models.ContentPlan{
				Platforms: opportunity.TargetPlatforms,
				Angle:     opportunity.Angle,
			},
		}
		if err := s.jobRepo.Save(txCtx, job); err != nil {
			return fmt.Errorf("failed to save generation job: %w", err)
		}

		opportunity.Status = models.OpportunityStatusAccepted
		if err := s.opportunityRepo.Update(txCtx, opportunity); err != nil {
			return fmt.Errorf("failed to update opportunity status: %w", err)
		}

		return nil
	})
	if err != nil {
		release()
		return nil, NewBusinessError("JOB_CREATION_FAILED", "Failed to create generation job", err)
	}

	s.dispatcher.Submit(job)

	return &dto.AcceptOpportunityResponse{
		Message:       "Generation job enqueued",
		JobUUID:       job.UUID.String(),
		Stage:         job.Stage.String(),
		QueuePosition: position,
		CreatedAt:     job.CreatedAt.Format(time.RFC3339),
	}, nil
}

// GetJob returns one generation job with its stage breakdown. Recent results
// are served from cache to absorb progress polling.
func (s *JobFlowImpl) GetJob(ctx context.Context, req *dto.GetJobRequest) (*dto.GenerationJobDTO, error) {
	if cached := s.getCachedJob(ctx, req.UUID); cached != nil {
		return cached, nil
	}

	job, err := s.jobRepo.ByUUID(ctx, req.UUID)
	if err != nil {
		return nil, NewBusinessError("JOB_LOOKUP_FAILED", "Failed to lookup generation job", err)
	}
	if job == nil {
		return nil, NewBusinessError("JOB_NOT_FOUND", "Generation job not found", ErrJobNotFound)
	}

	result := ToGenerationJobDTO(job)
	s.cacheJob(ctx, &result)
	return &result, nil
}

// CancelJob requests cancellation of a running job. Cancelling a job that
// already reached a terminal stage is a no-op reporting that stage.
func (s *JobFlowImpl) CancelJob(ctx context.Context, uuid string, metadata *ClientMetadata) (*dto.CancelJobResponse, error) {
	job, err := s.jobRepo.ByUUID(ctx, uuid)
	if err != nil {
		return nil, NewBusinessError("JOB_LOOKUP_FAILED", "Failed to lookup generation job", err)
	}
	if job == nil {
		return nil, NewBusinessError("JOB_NOT_FOUND", "Generation job not found", ErrJobNotFound)
	}

	if job.IsTerminal() {
		return &dto.CancelJobResponse{
			Message: "Generation job already " + job.Stage.String(),
			UUID:    job.UUID.String(),
			Stage:   job.Stage.String(),
		}, nil
	}

	job.CancelRequested = true
	if err := s.jobRepo.Update(ctx, job); err != nil {
		return nil, NewBusinessError("JOB_CANCEL_FAILED", "Failed to request cancellation", err)
	}
	s.invalidateCachedJob(ctx, uuid)

	return &dto.CancelJobResponse{
		Message: "Cancellation requested",
		UUID:    job.UUID.String(),
		Stage:   job.Stage.String(),
	}, nil
}

// RetryJob re-enqueues a failed job. Completed stages keep their assets and
// are skipped when the pipeline picks the job back up.
func (s *JobFlowImpl) RetryJob(ctx context.Context, uuid string, metadata *ClientMetadata) (*dto.RetryJobResponse, error) {
	job, err := s.jobRepo.ByUUID(ctx, uuid)
	if err != nil {
		return nil, NewBusinessError("JOB_LOOKUP_FAILED", "Failed to lookup generation job", err)
	}
	if job == nil {
		return nil, NewBusinessError("JOB_NOT_FOUND", "Generation job not found", ErrJobNotFound)
	}
	if job.Stage != models.StageFailed {
		return nil, NewBusinessError("JOB_NOT_FAILED", "Only failed jobs can be retried", ErrJobNotFailed)
	}

	_, release, err := s.dispatcher.Reserve()
	if err != nil {
		return nil, NewBusinessError("QUEUE_FULL", "Generation queue is full", err)
	}

	job.Stage = models.StageQueued
	job.ErrorDetail = nil
	job.CancelRequested = false
	job.CompletedAt = nil
	if err := s.jobRepo.Update(ctx, job); err != nil {
		release()
		return nil, NewBusinessError("JOB_RETRY_FAILED", "Failed to re-enqueue generation job", err)
	}
	s.invalidateCachedJob(ctx, uuid)

	s.dispatcher.Submit(job)

	return &dto.RetryJobResponse{
		Message: "Generation job re-enqueued",
		UUID:    job.UUID.String(),
		Stage:   job.ResumeStage().String(),
	}, nil
}

func (s *JobFlowImpl) jobCacheKey(uuid string) string {
	return s.cacheConfig.RedisPrefix + "job:" + uuid
}

func (s *JobFlowImpl) getCachedJob(ctx context.Context, uuid string) *dto.GenerationJobDTO {
	if s.rc == nil || !s.cacheConfig.Enabled {
		return nil
	}
	raw, err := s.rc.Get(ctx, s.jobCacheKey(uuid)).Result()
	if err != nil {
		return nil
	}
	var result dto.GenerationJobDTO
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil
	}
	return &result
}

func (s *JobFlowImpl) cacheJob(ctx context.Context, job *dto.GenerationJobDTO) {
	if s.rc == nil || !s.cacheConfig.Enabled {
		return
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return
	}
	// Short TTL so progress polling stays fresh
	_ = s.rc.Set(ctx, s.jobCacheKey(job.UUID), raw, 15*time.Second).Err()
}

func (s *JobFlowImpl) invalidateCachedJob(ctx context.Context, uuid string) {
	if s.rc == nil || !s.cacheConfig.Enabled {
		return
	}
	_ = s.rc.Del(ctx, s.jobCacheKey(uuid)).Err()
}

// ToGenerationJobDTO converts a generation job model to its API representation
func ToGenerationJobDTO(job *models.GenerationJob) dto.GenerationJobDTO {
	result := dto.GenerationJobDTO{
		UUID:      job.UUID.String(),
		Tier:      job.Tier.String(),
		Stage:     job.Stage.String(),
		Progress:  job.Progress(),
		TotalCost: job.Cost,
		CreatedAt: job.CreatedAt.Format(time.RFC3339),
	}
	if job.Opportunity != nil {
		result.OpportunityUUID = job.Opportunity.UUID.String()
	}
	if job.ErrorDetail != nil {
		result.ErrorDetail = *job.ErrorDetail
	}
	if job.CompletedAt != nil {
		result.CompletedAt = job.CompletedAt.Format(time.RFC3339)
	}

	for name, rec := range job.Stages {
		stageDTO := dto.StageRecordDTO{
			Stage:     name,
			Status:    string(rec.Status),
			Adapter:   rec.Adapter,
			Tier:      rec.Tier,
			Cost:      rec.Cost,
			LatencyMS: rec.LatencyMS,
		}
		if rec.DegradedFrom != nil {
			stageDTO.DegradedFrom = *rec.DegradedFrom
		}
		if rec.Error != nil {
			stageDTO.Error = *rec.Error
		}
		if rec.StartedAt != nil {
			stageDTO.StartedAt = rec.StartedAt.Format(time.RFC3339)
		}
		if rec.CompletedAt != nil {
			stageDTO.CompletedAt = rec.CompletedAt.Format(time.RFC3339)
		}
		result.Stages = append(result.Stages, stageDTO)
	}
	sort.Slice(result.Stages, func(i, j int) bool {
		return models.JobStage(result.Stages[i].Stage).Index() < models.JobStage(result.Stages[j].Stage).Index()
	})

	return result
}
