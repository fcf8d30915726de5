package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/trendforge/trendforge/config"
	"github.com/trendforge/trendforge/models"
	"github.com/trendforge/trendforge/utils"
)

// UploadResult is returned by a platform after a successful publish
type UploadResult struct {
	ExternalID  string
	ExternalURL string
}

// PlatformAdapter publishes finished content to one distribution platform
type PlatformAdapter interface {
	Platform() string
	Upload(ctx context.Context, item *models.ContentItem, variant models.PlatformVariant) (*UploadResult, error)
}

// HTTPPlatformAdapter publishes over a platform's JSON upload API
type HTTPPlatformAdapter struct {
	config *config.PlatformConfig
	client *http.Client
}

// uploadRequest represents the request payload for a platform upload API
type uploadRequest struct {
	AssetURL    string   `json:"assetUrl"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Hashtags    []string `json:"hashtags,omitempty"`
	Thumbnail   string   `json:"thumbnail,omitempty"`
}

// uploadResponse represents the response payload from a platform upload API
type uploadResponse struct {
	ID      string `json:"id"`
	URL     string `json:"url"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// NewHTTPPlatformAdapter creates a platform adapter for the configured platform
func NewHTTPPlatformAdapter(cfg *config.PlatformConfig) PlatformAdapter {
	return &HTTPPlatformAdapter{
		config: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Platform returns the platform name
func (a *HTTPPlatformAdapter) Platform() string {
	return a.config.Name
}

// Upload publishes the content item with its platform-specific variant
func (a *HTTPPlatformAdapter) Upload(ctx context.Context, item *models.ContentItem, variant models.PlatformVariant) (*UploadResult, error) {
	requestBody, err := json.Marshal(uploadRequest{
		AssetURL:    item.AssetURL,
		Title:       variant.Title,
		Description: variant.Description,
		Hashtags:    variant.Hashtags,
		Thumbnail:   variant.Thumbnail,
	})
	if err != nil {
		return nil, NewAdapterError(a.config.Name, ReasonInvalidInput, false, fmt.Errorf("failed to marshal upload request: %w", err))
	}

	url := fmt.Sprintf("%s/v1/uploads", a.config.Endpoint)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, NewAdapterError(a.config.Name, ReasonInvalidInput, false, fmt.Errorf("failed to create HTTP request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.config.APIKey)

	resp, err := a.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, NewAdapterError(a.config.Name, ReasonTimeout, true, err)
		}
		return nil, NewAdapterError(a.config.Name, ReasonUnavailable, true, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, NewAdapterError(a.config.Name, ReasonRateLimited, true, fmt.Errorf("platform returned %d", resp.StatusCode))
	case resp.StatusCode >= 500:
		return nil, NewAdapterError(a.config.Name, ReasonUnavailable, true, fmt.Errorf("platform returned %d", resp.StatusCode))
	case resp.StatusCode >= 400:
		return nil, NewAdapterError(a.config.Name, ReasonRejected, false, fmt.Errorf("platform returned %d", resp.StatusCode))
	}

	var result uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, NewAdapterError(a.config.Name, ReasonUnavailable, true, fmt.Errorf("failed to decode upload response: %w", err))
	}
	if result.ID == "" {
		return nil, NewAdapterError(a.config.Name, ReasonRejected, false, fmt.Errorf("platform accepted nothing: %s", result.Message))
	}

	return &UploadResult{ExternalID: result.ID, ExternalURL: result.URL}, nil
}

// MockPlatformAdapter implements PlatformAdapter for testing
type MockPlatformAdapter struct {
	name string

	mu        sync.Mutex
	Uploads   []MockUpload
	FailNext  error
	FailCount int
	FailWith  error
	FailFor   map[string]error
}

// MockUpload records one mock publish
type MockUpload struct {
	ItemUUID   string
	Title      string
	UploadedAt time.Time
}

// NewMockPlatformAdapter creates a mock platform adapter
func NewMockPlatformAdapter(name string) *MockPlatformAdapter {
	return &MockPlatformAdapter{
		name:    name,
		Uploads: make([]MockUpload, 0),
		FailFor: make(map[string]error),
	}
}

// Platform returns the platform name
func (m *MockPlatformAdapter) Platform() string {
	return m.name
}

// Upload records the publish and returns a synthetic external reference
func (m *MockPlatformAdapter) Upload(ctx context.Context, item *models.ContentItem, variant models.PlatformVariant) (*UploadResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailNext != nil {
		err := m.FailNext
		m.FailNext = nil
		return nil, err
	}
	if m.FailCount > 0 {
		m.FailCount--
		return nil, m.FailWith
	}
	if err, ok := m.FailFor[item.UUID.String()]; ok {
		return nil, err
	}

	m.Uploads = append(m.Uploads, MockUpload{
		ItemUUID:   item.UUID.String(),
		Title:      variant.Title,
		UploadedAt: utils.UTCNow(),
	})

	id := fmt.Sprintf("%s-%d", m.name, len(m.Uploads))
	return &UploadResult{
		ExternalID:  id,
		ExternalURL: fmt.Sprintf("https://%s.example.com/v/%s", m.name, id),
	}, nil
}

// UploadCount returns how many publishes succeeded
func (m *MockPlatformAdapter) UploadCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Uploads)
}
