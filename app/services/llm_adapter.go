package services

import (
	"context"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/trendforge/trendforge/config"
)

// LLMAdapter produces scripts and platform copy through a hosted LLM.
// It serves the text capability on the premium tier.
type LLMAdapter struct {
	config *config.AdapterConfig
	llm    llms.Model
}

// NewLLMAdapter creates a text adapter backed by an OpenAI-compatible model
func NewLLMAdapter(cfg *config.AdapterConfig) (CapabilityAdapter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("LLM adapter %s requires an API key", cfg.Name)
	}

	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithModel(cfg.Model),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, openai.WithBaseURL(cfg.Endpoint))
	}

	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM model: %w", err)
	}

	return &LLMAdapter{config: cfg, llm: model}, nil
}

// Name returns the adapter name
func (a *LLMAdapter) Name() string {
	return a.config.Name
}

// Capability returns the text capability
func (a *LLMAdapter) Capability() Capability {
	return CapabilityText
}

// CostPerCall returns the configured cost of one invocation
func (a *LLMAdapter) CostPerCall() float64 {
	return a.config.CostPerCall
}

// Invoke generates a script for the spec and returns it as an inline asset
func (a *LLMAdapter) Invoke(ctx context.Context, spec GenerationSpec) (*InvokeResult, error) {
	started := time.Now()

	systemPrompt := `You are a short-form video script writer. Write a scene-by-scene script for the requested topic.
Keep each scene to one or two sentences of narration plus a one-line visual direction.
Output one scene per line as: SCENE|narration|visual direction`

	userPrompt := fmt.Sprintf("Topic: %s\nScenes: %d\nTarget duration: %s\nPlatforms: %v\n\nScript:",
		spec.Prompt, spec.SceneCount, spec.Duration, spec.Platforms)

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, userPrompt),
	}

	response, err := a.llm.GenerateContent(ctx, messages)
	if err != nil {
		if ctx.Err() != nil {
			return nil, NewAdapterError(a.config.Name, ReasonTimeout, true, err)
		}
		return nil, NewAdapterError(a.config.Name, ReasonUnavailable, true, err)
	}
	if len(response.Choices) == 0 || response.Choices[0].Content == "" {
		return nil, NewAdapterError(a.config.Name, ReasonRejected, false, fmt.Errorf("model returned no choices"))
	}

	return &InvokeResult{
		AssetRef: fmt.Sprintf("inline:script:%s", spec.JobUUID),
		Cost:     a.config.CostPerCall,
		Latency:  time.Since(started),
		Meta: map[string]string{
			"model":  a.config.Model,
			"script": response.Choices[0].Content,
		},
	}, nil
}
