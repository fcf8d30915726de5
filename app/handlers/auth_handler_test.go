package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trendforge/trendforge/app/dto"
	"github.com/trendforge/trendforge/app/services"
	"github.com/trendforge/trendforge/config"
)

func newAuthTestApp(t *testing.T) (*fiber.App, services.TokenService) {
	t.Helper()

	svc, err := services.NewTokenService(
		time.Hour, 2*time.Hour,
		"trendforge", "trendforge-api",
		false, "", "",
		"test-secret-key-with-enough-length",
	)
	require.NoError(t, err)

	handler := NewAuthHandler(svc, &config.JWTConfig{
		AccessTokenTTL: time.Hour,
		OperatorKeys:   map[string]uint{"ops-key": 7},
	})

	app := fiber.New()
	app.Post("/api/v1/auth/token", handler.IssueToken)
	app.Post("/api/v1/auth/refresh", handler.RefreshToken)
	return app, svc
}

func postJSON(t *testing.T, app *fiber.App, path string, payload any) (int, dto.APIResponse) {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var api dto.APIResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&api))
	return resp.StatusCode, api
}

func tokenFromResponse(t *testing.T, api dto.APIResponse, field string) string {
	t.Helper()

	data, ok := api.Data.(map[string]any)
	require.True(t, ok, "response data is not an object")
	token, ok := data[field].(string)
	require.True(t, ok, "response data has no %s", field)
	return token
}

func errorCode(t *testing.T, api dto.APIResponse) string {
	t.Helper()

	errObj, ok := api.Error.(map[string]any)
	require.True(t, ok, "response has no error object")
	code, _ := errObj["code"].(string)
	return code
}

func TestIssueTokenWithValidOperatorKey(t *testing.T) {
	app, svc := newAuthTestApp(t)

	status, api := postJSON(t, app, "/api/v1/auth/token", dto.IssueTokenRequest{APIKey: "ops-key"})
	require.Equal(t, http.StatusOK, status)
	require.True(t, api.Success)

	accessToken := tokenFromResponse(t, api, "access_token")
	claims, err := svc.ValidateToken(accessToken)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.OperatorID)
	assert.Equal(t, "access", claims.TokenType)
}

func TestIssueTokenRejectsUnknownKey(t *testing.T) {
	app, _ := newAuthTestApp(t)

	status, api := postJSON(t, app, "/api/v1/auth/token", dto.IssueTokenRequest{APIKey: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.False(t, api.Success)
	assert.Equal(t, "INVALID_OPERATOR_KEY", errorCode(t, api))
}

func TestIssueTokenRequiresAPIKey(t *testing.T) {
	app, _ := newAuthTestApp(t)

	status, api := postJSON(t, app, "/api/v1/auth/token", dto.IssueTokenRequest{})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, api))
}

func TestRefreshTokenRotatesPair(t *testing.T) {
	app, svc := newAuthTestApp(t)

	_, issued := postJSON(t, app, "/api/v1/auth/token", dto.IssueTokenRequest{APIKey: "ops-key"})
	refreshToken := tokenFromResponse(t, issued, "refresh_token")

	status, api := postJSON(t, app, "/api/v1/auth/refresh", dto.RefreshTokenRequest{RefreshToken: refreshToken})
	require.Equal(t, http.StatusOK, status)
	require.True(t, api.Success)

	newAccess := tokenFromResponse(t, api, "access_token")
	claims, err := svc.ValidateToken(newAccess)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.OperatorID)
}

func TestRefreshTokenRejectsAccessToken(t *testing.T) {
	app, _ := newAuthTestApp(t)

	_, issued := postJSON(t, app, "/api/v1/auth/token", dto.IssueTokenRequest{APIKey: "ops-key"})
	accessToken := tokenFromResponse(t, issued, "access_token")

	status, api := postJSON(t, app, "/api/v1/auth/refresh", dto.RefreshTokenRequest{RefreshToken: accessToken})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "INVALID_REFRESH_TOKEN", errorCode(t, api))
}
