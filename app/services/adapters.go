// Package services provides external service integrations and technical concerns like generation adapters and tokens
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/trendforge/trendforge/models"
)

// Capability identifies the kind of asset an adapter produces
type Capability string

const (
	CapabilityText     Capability = "text"
	CapabilityImage    Capability = "image"
	CapabilityAudio    Capability = "audio"
	CapabilityAssembly Capability = "assembly"
)

// String returns the string representation of the capability
func (c Capability) String() string {
	return string(c)
}

// Valid checks if the capability is valid
func (c Capability) Valid() bool {
	switch c {
	case CapabilityText, CapabilityImage, CapabilityAudio, CapabilityAssembly:
		return true
	default:
		return false
	}
}

// GenerationSpec describes one adapter invocation
type GenerationSpec struct {
	JobUUID    string
	Stage      models.JobStage
	Prompt     string
	InputRefs  []string
	Platforms  []string
	SceneCount int
	Duration   time.Duration
	Params     map[string]string
}

// InvokeResult is what a successful adapter invocation produced
type InvokeResult struct {
	AssetRef string
	Cost     float64
	Latency  time.Duration
	Meta     map[string]string
}

// Failure reasons reported by adapters
const (
	ReasonTimeout      = "timeout"
	ReasonRateLimited  = "rate_limited"
	ReasonUnavailable  = "unavailable"
	ReasonInvalidInput = "invalid_input"
	ReasonRejected     = "rejected"
)

// AdapterError wraps an adapter failure with its retryability. Transient
// reasons may be retried on the same or another adapter; permanent ones
// fail the invocation outright.
type AdapterError struct {
	Adapter   string
	Reason    string
	Retryable bool
	Err       error
}

func (e *AdapterError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("adapter %s: %s: %v", e.Adapter, e.Reason, e.Err)
	}
	return fmt.Sprintf("adapter %s: %s", e.Adapter, e.Reason)
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}

// NewAdapterError creates an adapter error with the given retryability
func NewAdapterError(adapter, reason string, retryable bool, err error) *AdapterError {
	return &AdapterError{Adapter: adapter, Reason: reason, Retryable: retryable, Err: err}
}

// IsRetryable reports whether the error is an adapter error marked retryable
func IsRetryable(err error) bool {
	var ae *AdapterError
	if errors.As(err, &ae) {
		return ae.Retryable
	}
	return false
}

// CapabilityAdapter is one concrete generation backend for a capability
type CapabilityAdapter interface {
	Name() string
	Capability() Capability
	CostPerCall() float64
	Invoke(ctx context.Context, spec GenerationSpec) (*InvokeResult, error)
}
