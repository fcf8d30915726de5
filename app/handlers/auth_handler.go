package handlers

import (
	"crypto/subtle"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/trendforge/trendforge/app/dto"
	"github.com/trendforge/trendforge/app/services"
	"github.com/trendforge/trendforge/config"
)

// AuthHandlerInterface defines the contract for operator auth handlers
type AuthHandlerInterface interface {
	IssueToken(c fiber.Ctx) error
	RefreshToken(c fiber.Ctx) error
}

// AuthHandler exchanges operator API keys for JWT token pairs
type AuthHandler struct {
	tokenService services.TokenService
	jwtConfig    *config.JWTConfig
	validator    *validator.Validate
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(tokenService services.TokenService, jwtConfig *config.JWTConfig) *AuthHandler {
	return &AuthHandler{
		tokenService: tokenService,
		jwtConfig:    jwtConfig,
		validator:    validator.New(),
	}
}

func (h *AuthHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *AuthHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// IssueToken exchanges a configured operator API key for a token pair
func (h *AuthHandler) IssueToken(c fiber.Ctx) error {
	var req dto.IssueTokenRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST_BODY", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	operatorID, ok := h.lookupOperator(req.APIKey)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid operator API key", "INVALID_OPERATOR_KEY", nil)
	}

	accessToken, refreshToken, err := h.tokenService.GenerateTokens(operatorID)
	if err != nil {
		log.Println("Token generation failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to issue tokens", "TOKEN_ISSUE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Tokens issued successfully", h.tokenPair(accessToken, refreshToken))
}

// RefreshToken rotates a token pair using a valid refresh token
func (h *AuthHandler) RefreshToken(c fiber.Ctx) error {
	var req dto.RefreshTokenRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST_BODY", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	accessToken, refreshToken, err := h.tokenService.RefreshToken(req.RefreshToken)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid or expired refresh token", "INVALID_REFRESH_TOKEN", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Tokens refreshed successfully", h.tokenPair(accessToken, refreshToken))
}

func (h *AuthHandler) lookupOperator(apiKey string) (uint, bool) {
	for key, id := range h.jwtConfig.OperatorKeys {
		if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) == 1 {
			return id, true
		}
	}
	return 0, false
}

func (h *AuthHandler) tokenPair(accessToken, refreshToken string) dto.TokenPairResponse {
	return dto.TokenPairResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(h.jwtConfig.AccessTokenTTL / time.Second),
	}
}
