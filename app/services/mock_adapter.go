package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/trendforge/trendforge/utils"
)

// MockAdapter implements CapabilityAdapter for testing and local development
type MockAdapter struct {
	name       string
	capability Capability
	cost       float64
	latency    time.Duration

	mu          sync.Mutex
	Invocations []MockInvocation
	FailNext    error
	FailAlways  error
}

// MockInvocation records one adapter call
type MockInvocation struct {
	Spec      GenerationSpec
	InvokedAt time.Time
}

// NewMockAdapter creates a mock adapter that always succeeds
func NewMockAdapter(name string, capability Capability, cost float64) *MockAdapter {
	return &MockAdapter{
		name:        name,
		capability:  capability,
		cost:        cost,
		Invocations: make([]MockInvocation, 0),
	}
}

// Name returns the adapter name
func (m *MockAdapter) Name() string {
	return m.name
}

// Capability returns the capability this adapter serves
func (m *MockAdapter) Capability() Capability {
	return m.capability
}

// CostPerCall returns the configured cost of one invocation
func (m *MockAdapter) CostPerCall() float64 {
	return m.cost
}

// Invoke records the call and returns a synthetic asset reference
func (m *MockAdapter) Invoke(ctx context.Context, spec GenerationSpec) (*InvokeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Invocations = append(m.Invocations, MockInvocation{Spec: spec, InvokedAt: utils.UTCNow()})

	if m.FailNext != nil {
		err := m.FailNext
		m.FailNext = nil
		return nil, err
	}
	if m.FailAlways != nil {
		return nil, m.FailAlways
	}

	if m.latency > 0 {
		select {
		case <-time.After(m.latency):
		case <-ctx.Done():
			return nil, NewAdapterError(m.name, ReasonTimeout, true, ctx.Err())
		}
	}

	return &InvokeResult{
		AssetRef: fmt.Sprintf("mock://%s/%s/%s", m.capability, m.name, spec.JobUUID),
		Cost:     m.cost,
		Latency:  m.latency,
	}, nil
}

// InvocationCount returns how many times the adapter was invoked
func (m *MockAdapter) InvocationCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Invocations)
}

// SetLatency makes every invocation take the given duration
func (m *MockAdapter) SetLatency(d time.Duration) {
	m.latency = d
}
