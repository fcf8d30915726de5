package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/trendforge/trendforge/models"
	"github.com/trendforge/trendforge/utils"
)

const (
	circuitBaseCooldown = 30 * time.Second
	circuitMaxCooldown  = 5 * time.Minute
	latencyEWMAWeight   = 0.2
)

// SelectionAudit records which adapter actually served an invocation
type SelectionAudit struct {
	Adapter      string
	Tier         models.QualityTier
	DegradedFrom *models.QualityTier
	Cost         float64
	Latency      time.Duration
}

// adapterEntry is one registered adapter plus its circuit state
type adapterEntry struct {
	adapter CapabilityAdapter
	tier    models.QualityTier

	mu          sync.Mutex
	failures    int
	openUntil   time.Time
	latencyEWMA time.Duration
	lastSuccess time.Time
	totalCalls  int64
}

func (e *adapterEntry) available(now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return now.After(e.openUntil)
}

// recordFailure opens the circuit with an exponentially growing cooldown
func (e *adapterEntry) recordFailure(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.failures++
	e.totalCalls++

	cooldown := circuitBaseCooldown
	for i := 1; i < e.failures; i++ {
		cooldown *= 2
		if cooldown >= circuitMaxCooldown {
			cooldown = circuitMaxCooldown
			break
		}
	}
	e.openUntil = now.Add(cooldown)
}

func (e *adapterEntry) recordSuccess(now time.Time, latency time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.failures = 0
	e.openUntil = time.Time{}
	e.lastSuccess = now
	e.totalCalls++

	if e.latencyEWMA == 0 {
		e.latencyEWMA = latency
	} else {
		e.latencyEWMA = time.Duration(float64(e.latencyEWMA)*(1-latencyEWMAWeight) + float64(latency)*latencyEWMAWeight)
	}
}

// TierRegistry routes generation calls to adapters by capability and quality
// tier, with ordered fallback within a tier and single-step degradation to
// the tier below when a whole tier is unavailable.
type TierRegistry struct {
	mu    sync.RWMutex
	pools map[Capability]map[models.QualityTier][]*adapterEntry
}

// NewTierRegistry creates an empty registry
func NewTierRegistry() *TierRegistry {
	return &TierRegistry{
		pools: make(map[Capability]map[models.QualityTier][]*adapterEntry),
	}
}

// Register appends an adapter to the pool for its capability and tier.
// Registration order is fallback order.
func (r *TierRegistry) Register(tier models.QualityTier, adapter CapabilityAdapter) {
	r.mu.Lock()
	defer r.mu.Unlock()

	capability := adapter.Capability()
	if r.pools[capability] == nil {
		r.pools[capability] = make(map[models.QualityTier][]*adapterEntry)
	}
	r.pools[capability][tier] = append(r.pools[capability][tier], &adapterEntry{
		adapter: adapter,
		tier:    tier,
	})
}

// HasCapability reports whether any adapter serves the capability
func (r *TierRegistry) HasCapability(capability Capability) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, entries := range r.pools[capability] {
		if len(entries) > 0 {
			return true
		}
	}
	return false
}

// Invoke runs the spec against the requested tier, walking that tier's
// adapters in order and skipping open circuits. When every adapter in the
// tier is down or failing transiently, it degrades exactly one tier below
// and records the degradation in the audit. Permanent failures abort
// immediately without fallback.
func (r *TierRegistry) Invoke(ctx context.Context, capability Capability, tier models.QualityTier, spec GenerationSpec) (*InvokeResult, *SelectionAudit, error) {
	var degradedFrom *models.QualityTier
	currentTier := tier
	var lastErr error

	for {
		result, audit, err := r.invokeTier(ctx, capability, currentTier, spec)
		if err == nil {
			audit.DegradedFrom = degradedFrom
			return result, audit, nil
		}
		if !IsRetryable(err) {
			return nil, nil, err
		}
		lastErr = err

		below, ok := currentTier.Below()
		if !ok || degradedFrom != nil {
			break
		}
		t := tier
		degradedFrom = &t
		currentTier = below
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no adapter registered for %s/%s", capability, tier)
	}
	return nil, nil, fmt.Errorf("all adapters exhausted for %s: %w", capability, lastErr)
}

// invokeTier walks one tier's pool in registration order
func (r *TierRegistry) invokeTier(ctx context.Context, capability Capability, tier models.QualityTier, spec GenerationSpec) (*InvokeResult, *SelectionAudit, error) {
	r.mu.RLock()
	entries := r.pools[capability][tier]
	r.mu.RUnlock()

	if len(entries) == 0 {
		return nil, nil, NewAdapterError("", ReasonUnavailable, true, fmt.Errorf("no adapter registered for %s/%s", capability, tier))
	}

	var lastErr error
	now := utils.UTCNow()
	skipped := 0

	for _, entry := range entries {
		if !entry.available(now) {
			skipped++
			continue
		}

		result, err := entry.adapter.Invoke(ctx, spec)
		if err != nil {
			if !IsRetryable(err) {
				return nil, nil, err
			}
			entry.recordFailure(utils.UTCNow())
			lastErr = err
			continue
		}

		entry.recordSuccess(utils.UTCNow(), result.Latency)
		return result, &SelectionAudit{
			Adapter: entry.adapter.Name(),
			Tier:    tier,
			Cost:    result.Cost,
			Latency: result.Latency,
		}, nil
	}

	if lastErr == nil {
		lastErr = NewAdapterError("", ReasonUnavailable, true,
			fmt.Errorf("%d adapter(s) cooling down for %s/%s", skipped, capability, tier))
	}
	return nil, nil, lastErr
}

// AdapterHealth is a point-in-time snapshot of one adapter's circuit state
type AdapterHealth struct {
	Name        string             `json:"name"`
	Capability  Capability         `json:"capability"`
	Tier        models.QualityTier `json:"tier"`
	Open        bool               `json:"open"`
	Failures    int                `json:"failures"`
	LatencyEWMA time.Duration      `json:"latency_ewma"`
	LastSuccess *time.Time         `json:"last_success,omitempty"`
}

// Health returns circuit snapshots for every registered adapter
func (r *TierRegistry) Health() []AdapterHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := utils.UTCNow()
	var out []AdapterHealth
	for capability, tiers := range r.pools {
		for tier, entries := range tiers {
			for _, entry := range entries {
				entry.mu.Lock()
				h := AdapterHealth{
					Name:        entry.adapter.Name(),
					Capability:  capability,
					Tier:        tier,
					Open:        now.Before(entry.openUntil),
					Failures:    entry.failures,
					LatencyEWMA: entry.latencyEWMA,
				}
				if !entry.lastSuccess.IsZero() {
					ls := entry.lastSuccess
					h.LastSuccess = &ls
				}
				entry.mu.Unlock()
				out = append(out, h)
			}
		}
	}
	return out
}
