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

// OpportunityHandlerInterface defines the contract for opportunity handlers
type OpportunityHandlerInterface interface {
	ListOpportunities(c fiber.Ctx) error
	GetOpportunity(c fiber.Ctx) error
	AcceptOpportunity(c fiber.Ctx) error
}

// OpportunityHandler handles opportunity-related HTTP requests
type OpportunityHandler struct {
	opportunityFlow businessflow.OpportunityFlow
	jobFlow         businessflow.JobFlow
	validator       *validator.Validate
}

// NewOpportunityHandler creates a new opportunity handler
func NewOpportunityHandler(opportunityFlow businessflow.OpportunityFlow, jobFlow businessflow.JobFlow) *OpportunityHandler {
	return &OpportunityHandler{
		opportunityFlow: opportunityFlow,
		jobFlow:         jobFlow,
		validator:       validator.New(),
	}
}

func (h *OpportunityHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *OpportunityHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func (h *OpportunityHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	ctx := context.WithValue(c.Context(), businessflow.RequestIDKey, c.Get("X-Request-ID"))
	return ctx
}

// ListOpportunities returns pending opportunities ranked by priority score
func (h *OpportunityHandler) ListOpportunities(c fiber.Ctx) error {
	var req dto.ListOpportunitiesRequest
	if err := c.Bind().Query(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.opportunityFlow.ListOpportunities(h.createRequestContext(c, "/api/v1/opportunities"), &req, metadata)
	if err != nil {
		log.Println("Opportunity listing failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list opportunities", "OPPORTUNITY_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Opportunities retrieved successfully", result)
}

// GetOpportunity returns a single opportunity with its source trend
func (h *OpportunityHandler) GetOpportunity(c fiber.Ctx) error {
	opportunityUUID := c.Params("uuid")
	if opportunityUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Opportunity UUID is required", "MISSING_OPPORTUNITY_UUID", nil)
	}

	result, err := h.opportunityFlow.GetOpportunity(h.createRequestContext(c, "/api/v1/opportunities/"+opportunityUUID), opportunityUUID)
	if err != nil {
		if businessflow.IsOpportunityNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Opportunity not found", "OPPORTUNITY_NOT_FOUND", nil)
		}

		log.Println("Opportunity lookup failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to get opportunity", "OPPORTUNITY_LOOKUP_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Opportunity retrieved successfully", result)
}

// AcceptOpportunity starts a generation job for a pending opportunity
func (h *OpportunityHandler) AcceptOpportunity(c fiber.Ctx) error {
	opportunityUUID := c.Params("uuid")
	if opportunityUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Opportunity UUID is required", "MISSING_OPPORTUNITY_UUID", nil)
	}

	var req dto.AcceptOpportunityRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	req.UUID = opportunityUUID

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.jobFlow.AcceptOpportunity(h.createRequestContext(c, "/api/v1/opportunities/"+opportunityUUID+"/accept"), &req, metadata)
	if err != nil {
		if businessflow.IsOpportunityNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Opportunity not found", "OPPORTUNITY_NOT_FOUND", nil)
		}
		if businessflow.IsOpportunityInProgress(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Opportunity already has an active job", "OPPORTUNITY_IN_PROGRESS", nil)
		}
		if businessflow.IsOpportunityExpired(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Opportunity has expired", "OPPORTUNITY_EXPIRED", nil)
		}
		if businessflow.IsOpportunityNotPending(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Opportunity is not pending", "OPPORTUNITY_NOT_PENDING", nil)
		}
		if businessflow.IsQueueFull(err) {
			c.Set("Retry-After", "30")
			return h.ErrorResponse(c, fiber.StatusTooManyRequests, "Generation queue is full", "QUEUE_FULL", nil)
		}
		if businessflow.IsInvalidTier(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid quality tier", "INVALID_TIER", nil)
		}

		log.Println("Opportunity acceptance failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to accept opportunity", "OPPORTUNITY_ACCEPT_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Generation job enqueued", fiber.Map{
		"message":        result.Message,
		"job_uuid":       result.JobUUID,
		"stage":          result.Stage,
		"queue_position": result.QueuePosition,
		"created_at":     result.CreatedAt,
	})
}
