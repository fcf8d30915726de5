package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/trendforge/trendforge/config"
)

// HTTPAdapter invokes a remote generation backend over its JSON API
type HTTPAdapter struct {
	config     *config.AdapterConfig
	capability Capability
	client     *http.Client
}

// generateRequest represents the request payload for the generation API
type generateRequest struct {
	JobID      string            `json:"jobId"`
	Stage      string            `json:"stage"`
	Prompt     string            `json:"prompt"`
	InputRefs  []string          `json:"inputRefs,omitempty"`
	Platforms  []string          `json:"platforms,omitempty"`
	SceneCount int               `json:"sceneCount,omitempty"`
	DurationMS int64             `json:"durationMs,omitempty"`
	Model      string            `json:"model,omitempty"`
	Params     map[string]string `json:"params,omitempty"`
}

// generateResponse represents the response payload from the generation API
type generateResponse struct {
	AssetRef string            `json:"assetRef"`
	Status   string            `json:"status"`
	Message  string            `json:"message,omitempty"`
	Meta     map[string]string `json:"meta,omitempty"`
}

// NewHTTPAdapter creates a new HTTP generation adapter
func NewHTTPAdapter(cfg *config.AdapterConfig, capability Capability) CapabilityAdapter {
	return &HTTPAdapter{
		config:     cfg,
		capability: capability,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Name returns the adapter name
func (a *HTTPAdapter) Name() string {
	return a.config.Name
}

// Capability returns the capability this adapter serves
func (a *HTTPAdapter) Capability() Capability {
	return a.capability
}

// CostPerCall returns the configured cost of one invocation
func (a *HTTPAdapter) CostPerCall() float64 {
	return a.config.CostPerCall
}

// Invoke calls the backend and blocks until it produces an asset or fails
func (a *HTTPAdapter) Invoke(ctx context.Context, spec GenerationSpec) (*InvokeResult, error) {
	started := time.Now()

	requestBody, err := json.Marshal(generateRequest{
		JobID:      spec.JobUUID,
		Stage:      spec.Stage.String(),
		Prompt:     spec.Prompt,
		InputRefs:  spec.InputRefs,
		Platforms:  spec.Platforms,
		SceneCount: spec.SceneCount,
		DurationMS: spec.Duration.Milliseconds(),
		Model:      a.config.Model,
		Params:     spec.Params,
	})
	if err != nil {
		return nil, NewAdapterError(a.config.Name, ReasonInvalidInput, false, fmt.Errorf("failed to marshal generation request: %w", err))
	}

	url := fmt.Sprintf("%s/v1/generate", a.config.Endpoint)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, NewAdapterError(a.config.Name, ReasonInvalidInput, false, fmt.Errorf("failed to create HTTP request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.config.APIKey)

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
		return nil, NewAdapterError(a.config.Name, ReasonRateLimited, true, fmt.Errorf("backend returned %d", resp.StatusCode))
	case resp.StatusCode >= 500:
		return nil, NewAdapterError(a.config.Name, ReasonUnavailable, true, fmt.Errorf("backend returned %d", resp.StatusCode))
	case resp.StatusCode >= 400:
		return nil, NewAdapterError(a.config.Name, ReasonRejected, false, fmt.Errorf("backend returned %d", resp.StatusCode))
	}

	var result generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, NewAdapterError(a.config.Name, ReasonUnavailable, true, fmt.Errorf("failed to decode generation response: %w", err))
	}
	if result.AssetRef == "" {
		return nil, NewAdapterError(a.config.Name, ReasonRejected, false, fmt.Errorf("backend returned no asset: %s", result.Message))
	}

	return &InvokeResult{
		AssetRef: result.AssetRef,
		Cost:     a.config.CostPerCall,
		Latency:  time.Since(started),
		Meta:     result.Meta,
	}, nil
}
