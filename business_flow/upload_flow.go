// Package businessflow contains the core business logic and use cases for upload workflows
package businessflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/trendforge/trendforge/app/dto"
	"github.com/trendforge/trendforge/models"
	"github.com/trendforge/trendforge/repository"
	"github.com/trendforge/trendforge/utils"
	"gorm.io/gorm"
)

// UploadDispatcher hands persisted upload tasks to the per-platform worker
// pools. Scheduled tasks are left for the scheduler tick; Dispatch is only
// called for tasks due immediately.
type UploadDispatcher interface {
	Supports(platform string) bool
	MaxRetries(platform string) int
	Dispatch(task *models.UploadTask)
}

// UploadFlow handles the upload business logic
type UploadFlow interface {
	RequestUpload(ctx context.Context, req *dto.RequestUploadRequest, metadata *ClientMetadata) (*dto.RequestUploadResponse, error)
	GetUpload(ctx context.Context, req *dto.GetUploadRequest) (*dto.UploadTaskDTO, error)
	BatchStatus(ctx context.Context, batchID string) (*dto.BatchStatusResponse, error)
}

// UploadFlowImpl implements the upload business flow
type UploadFlowImpl struct {
	uploadRepo  repository.UploadTaskRepository
	contentRepo repository.ContentItemRepository
	jobRepo     repository.GenerationJobRepository
	dispatcher  UploadDispatcher
	db          *gorm.DB
}

// NewUploadFlow creates a new upload flow instance
func NewUploadFlow(
	uploadRepo repository.UploadTaskRepository,
	contentRepo repository.ContentItemRepository,
	jobRepo repository.GenerationJobRepository,
	dispatcher UploadDispatcher,
	db *gorm.DB,
) UploadFlow {
	return &UploadFlowImpl{
		uploadRepo:  uploadRepo,
		contentRepo: contentRepo,
		jobRepo:     jobRepo,
		dispatcher:  dispatcher,
		db:          db,
	}
}

// RequestUpload creates one upload task per requested platform for a finished
// job's content and dispatches the ones due immediately
func (s *UploadFlowImpl) RequestUpload(ctx context.Context, req *dto.RequestUploadRequest, metadata *ClientMetadata) (*dto.RequestUploadResponse, error) {
	job, err := s.jobRepo.ByUUID(ctx, req.JobUUID)
	if err != nil {
		return nil, NewBusinessError("JOB_LOOKUP_FAILED", "Failed to lookup generation job", err)
	}
	if job == nil {
		return nil, NewBusinessError("JOB_NOT_FOUND", "Generation job not found", ErrJobNotFound)
	}
	if job.Stage != models.StageCompleted {
		return nil, NewBusinessError("JOB_NOT_COMPLETED", "Generation job has not completed", ErrJobNotTerminal)
	}

	item, err := s.contentRepo.ByJobID(ctx, job.ID)
	if err != nil {
		return nil, NewBusinessError("CONTENT_LOOKUP_FAILED", "Failed to lookup content item", err)
	}
	if item == nil {
		return nil, NewBusinessError("CONTENT_NOT_FOUND", "Content item not found", ErrContentNotFound)
	}

	platforms := req.Platforms
	if len(platforms) == 0 {
		platforms = job.Plan.Platforms
	}
	if len(platforms) == 0 {
		return nil, NewBusinessError("NO_TARGET_PLATFORMS", "No target platform to upload to", ErrTargetPlatformRequired)
	}
	for _, platform := range platforms {
		if !s.dispatcher.Supports(platform) {
			return nil, NewBusinessErrorf("PLATFORM_NOT_SUPPORTED", "Platform %s is not supported", ErrPlatformNotSupported, platform)
		}
	}

	var scheduledAt *time.Time
	if req.ScheduledAt != "" {
		parsed, err := time.Parse(time.RFC3339, req.ScheduledAt)
		if err != nil {
			return nil, NewBusinessError("INVALID_SCHEDULE_TIME", "scheduled_at must be RFC3339", err)
		}
		if parsed.Before(utils.UTCNow()) {
			return nil, NewBusinessError("INVALID_SCHEDULE_TIME", "Scheduled time is in the past", ErrScheduleInPast)
		}
		utc := parsed.UTC()
		scheduledAt = &utc
	}

	batchID := uuid.New()
	tasks := make([]*models.UploadTask, 0, len(platforms))
	for _, platform := range platforms {
		tasks = append(tasks, &models.UploadTask{
			ContentItemID: item.ID,
			BatchID:       &batchID,
			Platform:      platform,
			MaxRetries:    s.dispatcher.MaxRetries(platform),
			ScheduledAt:   scheduledAt,
		})
	}

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		if err := s.uploadRepo.SaveBatch(txCtx, tasks); err != nil {
			return fmt.Errorf("failed to save upload tasks: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, NewBusinessError("UPLOAD_CREATION_FAILED", "Failed to create upload tasks", err)
	}

	// Scheduled tasks wait for the scheduler tick
	// The dispatcher queues pending tasks immediately and holds scheduled
	// ones until their due time
	for _, task := range tasks {
		s.dispatcher.Dispatch(task)
	}

	taskDTOs := make([]dto.UploadTaskDTO, 0, len(tasks))
	for _, task := range tasks {
		taskDTOs = append(taskDTOs, ToUploadTaskDTO(task))
	}

	return &dto.RequestUploadResponse{
		Message: "Upload tasks created",
		BatchID: batchID.String(),
		Tasks:   taskDTOs,
	}, nil
}

// GetUpload returns one upload task by UUID
func (s *UploadFlowImpl) GetUpload(ctx context.Context, req *dto.GetUploadRequest) (*dto.UploadTaskDTO, error) {
	task, err := s.uploadRepo.ByUUID(ctx, req.UUID)
	if err != nil {
		return nil, NewBusinessError("UPLOAD_LOOKUP_FAILED", "Failed to lookup upload task", err)
	}
	if task == nil {
		return nil, NewBusinessError("UPLOAD_NOT_FOUND", "Upload task not found", ErrUploadNotFound)
	}

	result := ToUploadTaskDTO(task)
	return &result, nil
}

// BatchStatus aggregates the state of every task in an upload batch
func (s *UploadFlowImpl) BatchStatus(ctx context.Context, batchID string) (*dto.BatchStatusResponse, error) {
	parsed, err := utils.ParseUUID(batchID)
	if err != nil {
		return nil, NewBusinessError("INVALID_BATCH_ID", "Invalid batch ID", err)
	}

	tasks, err := s.uploadRepo.ListByBatchID(ctx, parsed)
	if err != nil {
		return nil, NewBusinessError("BATCH_LOOKUP_FAILED", "Failed to lookup upload batch", err)
	}
	if len(tasks) == 0 {
		return nil, NewBusinessError("BATCH_NOT_FOUND", "Upload batch not found", ErrBatchNotFound)
	}

	resp := &dto.BatchStatusResponse{
		BatchID: batchID,
		Total:   len(tasks),
	}
	for _, task := range tasks {
		switch task.Status {
		case models.UploadStatusCompleted:
			resp.Completed++
		case models.UploadStatusFailed:
			resp.Failed++
		default:
			resp.Pending++
		}
		resp.Tasks = append(resp.Tasks, ToUploadTaskDTO(task))
	}

	return resp, nil
}

// ToUploadTaskDTO converts an upload task model to its API representation
func ToUploadTaskDTO(task *models.UploadTask) dto.UploadTaskDTO {
	result := dto.UploadTaskDTO{
		UUID:         task.UUID.String(),
		Platform:     task.Platform,
		Status:       task.Status.String(),
		AttemptCount: task.AttemptCount,
		MaxRetries:   task.MaxRetries,
		CreatedAt:    task.CreatedAt.Format(time.RFC3339),
	}
	if task.ExternalID != nil {
		result.ExternalID = *task.ExternalID
	}
	if task.ExternalURL != nil {
		result.ExternalURL = *task.ExternalURL
	}
	if task.ScheduledAt != nil {
		result.ScheduledAt = task.ScheduledAt.Format(time.RFC3339)
	}
	if task.LastError != nil {
		result.LastError = *task.LastError
	}
	return result
}
