// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/trendforge/trendforge/app/dto"
	businessflow "github.com/trendforge/trendforge/business_flow"
)

// UploadHandlerInterface defines the contract for upload handlers
type UploadHandlerInterface interface {
	RequestUpload(c fiber.Ctx) error
	GetUpload(c fiber.Ctx) error
	BatchStatus(c fiber.Ctx) error
	ExportUploads(c fiber.Ctx) error
}

// UploadHandler handles upload-related HTTP requests
type UploadHandler struct {
	uploadFlow businessflow.UploadFlow
	reportFlow businessflow.ReportFlow
	validator  *validator.Validate
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(uploadFlow businessflow.UploadFlow, reportFlow businessflow.ReportFlow) *UploadHandler {
	return &UploadHandler{
		uploadFlow: uploadFlow,
		reportFlow: reportFlow,
		validator:  validator.New(),
	}
}

func (h *UploadHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *UploadHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func (h *UploadHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return context.WithValue(c.Context(), businessflow.RequestIDKey, c.Get("X-Request-ID"))
}

// RequestUpload enqueues one upload task per platform for a completed job
func (h *UploadHandler) RequestUpload(c fiber.Ctx) error {
	jobUUID := c.Params("uuid")
	if jobUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Job UUID is required", "MISSING_JOB_UUID", nil)
	}

	var req dto.RequestUploadRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	req.JobUUID = jobUUID

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.uploadFlow.RequestUpload(h.createRequestContext(c, "/api/v1/jobs/"+jobUUID+"/upload"), &req, metadata)
	if err != nil {
		if businessflow.IsJobNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Generation job not found", "JOB_NOT_FOUND", nil)
		}
		if businessflow.IsJobNotTerminal(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Generation job has not completed", "JOB_NOT_COMPLETED", nil)
		}
		if businessflow.IsContentNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Content item not found", "CONTENT_NOT_FOUND", nil)
		}
		if businessflow.IsPlatformNotSupported(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Platform is not supported", "PLATFORM_NOT_SUPPORTED", nil)
		}
		if businessflow.IsScheduleInPast(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Scheduled time is in the past", "SCHEDULE_IN_PAST", nil)
		}

		log.Println("Upload request failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to request upload", "UPLOAD_REQUEST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusAccepted, "Upload tasks enqueued", result)
}

// GetUpload returns the status of one upload task
func (h *UploadHandler) GetUpload(c fiber.Ctx) error {
	req := dto.GetUploadRequest{UUID: c.Params("uuid")}
	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	result, err := h.uploadFlow.GetUpload(h.createRequestContext(c, "/api/v1/uploads/"+req.UUID), &req)
	if err != nil {
		if businessflow.IsUploadNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Upload task not found", "UPLOAD_NOT_FOUND", nil)
		}

		log.Println("Upload lookup failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to get upload task", "UPLOAD_LOOKUP_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Upload task retrieved successfully", result)
}

// BatchStatus aggregates all tasks created by one upload request
func (h *UploadHandler) BatchStatus(c fiber.Ctx) error {
	batchID := c.Params("batch_id")
	if batchID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Batch ID is required", "MISSING_BATCH_ID", nil)
	}

	result, err := h.uploadFlow.BatchStatus(h.createRequestContext(c, "/api/v1/uploads/batches/"+batchID), batchID)
	if err != nil {
		if businessflow.IsBatchNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Upload batch not found", "BATCH_NOT_FOUND", nil)
		}

		log.Println("Batch status failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to get batch status", "BATCH_STATUS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Batch status retrieved successfully", result)
}

// ExportUploads streams an xlsx report of upload tasks grouped per platform
func (h *UploadHandler) ExportUploads(c fiber.Ctx) error {
	var after, before *time.Time
	if raw := c.Query("created_after"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "created_after must be RFC3339", "INVALID_REQUEST", nil)
		}
		after = &t
	}
	if raw := c.Query("created_before"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "created_before must be RFC3339", "INVALID_REQUEST", nil)
		}
		before = &t
	}

	filename, data, err := h.reportFlow.DownloadUploadsExcel(h.createRequestContext(c, "/api/v1/uploads/export"), after, before)
	if err != nil {
		log.Println("Upload export failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to generate Excel", "EXPORT_FAILED", nil)
	}

	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", "attachment; filename="+filename)
	return c.Send(data)
}
