// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/trendforge/trendforge/app/dto"
	businessflow "github.com/trendforge/trendforge/business_flow"
)

// JobHandlerInterface defines the contract for generation job handlers
type JobHandlerInterface interface {
	GetJob(c fiber.Ctx) error
	CancelJob(c fiber.Ctx) error
	RetryJob(c fiber.Ctx) error
}

// JobHandler handles generation job HTTP requests
type JobHandler struct {
	jobFlow   businessflow.JobFlow
	validator *validator.Validate
}

// NewJobHandler creates a new job handler
func NewJobHandler(jobFlow businessflow.JobFlow) *JobHandler {
	return &JobHandler{
		jobFlow:   jobFlow,
		validator: validator.New(),
	}
}

func (h *JobHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *JobHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func (h *JobHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return context.WithValue(c.Context(), businessflow.RequestIDKey, c.Get("X-Request-ID"))
}

// GetJob returns the job's stage breakdown, progress and cost so far
func (h *JobHandler) GetJob(c fiber.Ctx) error {
	req := dto.GetJobRequest{UUID: c.Params("uuid")}
	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	result, err := h.jobFlow.GetJob(h.createRequestContext(c, "/api/v1/jobs/"+req.UUID), &req)
	if err != nil {
		if businessflow.IsJobNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Generation job not found", "JOB_NOT_FOUND", nil)
		}

		log.Println("Job lookup failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to get generation job", "JOB_LOOKUP_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Generation job retrieved successfully", result)
}

// CancelJob requests cooperative cancellation. Repeating the request for a
// job already in a terminal stage returns 200.
func (h *JobHandler) CancelJob(c fiber.Ctx) error {
	jobUUID := c.Params("uuid")
	if jobUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Job UUID is required", "MISSING_JOB_UUID", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.jobFlow.CancelJob(h.createRequestContext(c, "/api/v1/jobs/"+jobUUID), jobUUID, metadata)
	if err != nil {
		if businessflow.IsJobNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Generation job not found", "JOB_NOT_FOUND", nil)
		}

		log.Println("Job cancellation failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to cancel generation job", "JOB_CANCEL_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Cancellation requested", result)
}

// RetryJob re-enqueues a failed job from its first non-completed stage
func (h *JobHandler) RetryJob(c fiber.Ctx) error {
	jobUUID := c.Params("uuid")
	if jobUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Job UUID is required", "MISSING_JOB_UUID", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.jobFlow.RetryJob(h.createRequestContext(c, "/api/v1/jobs/"+jobUUID+"/retry"), jobUUID, metadata)
	if err != nil {
		if businessflow.IsJobNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Generation job not found", "JOB_NOT_FOUND", nil)
		}
		if businessflow.IsJobNotFailed(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Only failed jobs can be retried", "JOB_NOT_FAILED", nil)
		}
		if businessflow.IsQueueFull(err) {
			c.Set("Retry-After", "30")
			return h.ErrorResponse(c, fiber.StatusTooManyRequests, "Generation queue is full", "QUEUE_FULL", nil)
		}

		log.Println("Job retry failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to retry generation job", "JOB_RETRY_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Generation job re-enqueued", result)
}
