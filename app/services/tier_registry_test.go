package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trendforge/trendforge/models"
)

func transientErr(adapter string) error {
	return NewAdapterError(adapter, ReasonUnavailable, true, errors.New("backend down"))
}

func testSpec() GenerationSpec {
	return GenerationSpec{
		JobUUID: "9f1b2c3d-0000-0000-0000-000000000001",
		Stage:   models.StageScript,
		Prompt:  "60 second script about mechanical keyboards",
	}
}

func TestTierRegistryInvokeFirstAdapter(t *testing.T) {
	registry := NewTierRegistry()
	primary := NewMockAdapter("primary", CapabilityText, 0.5)
	secondary := NewMockAdapter("secondary", CapabilityText, 0.1)
	registry.Register(models.TierBalanced, primary)
	registry.Register(models.TierBalanced, secondary)

	result, audit, err := registry.Invoke(context.Background(), CapabilityText, models.TierBalanced, testSpec())

	require.NoError(t, err)
	assert.Equal(t, "primary", audit.Adapter)
	assert.Equal(t, models.TierBalanced, audit.Tier)
	assert.Nil(t, audit.DegradedFrom)
	assert.Equal(t, 0.5, audit.Cost)
	assert.Contains(t, result.AssetRef, "mock://text/primary/")
	assert.Equal(t, 0, secondary.InvocationCount())
}

func TestTierRegistryFallsBackWithinTier(t *testing.T) {
	registry := NewTierRegistry()
	primary := NewMockAdapter("primary", CapabilityText, 0.5)
	primary.FailAlways = transientErr("primary")
	secondary := NewMockAdapter("secondary", CapabilityText, 0.1)
	registry.Register(models.TierBalanced, primary)
	registry.Register(models.TierBalanced, secondary)

	_, audit, err := registry.Invoke(context.Background(), CapabilityText, models.TierBalanced, testSpec())

	require.NoError(t, err)
	assert.Equal(t, "secondary", audit.Adapter)
	assert.Nil(t, audit.DegradedFrom, "same-tier fallback is not a degradation")
	assert.Equal(t, 1, primary.InvocationCount())
	assert.Equal(t, 1, secondary.InvocationCount())
}

func TestTierRegistryDegradesOneTier(t *testing.T) {
	registry := NewTierRegistry()
	premium := NewMockAdapter("premium-gen", CapabilityText, 2.0)
	premium.FailAlways = transientErr("premium-gen")
	balanced := NewMockAdapter("balanced-gen", CapabilityText, 0.5)
	registry.Register(models.TierPremium, premium)
	registry.Register(models.TierBalanced, balanced)

	_, audit, err := registry.Invoke(context.Background(), CapabilityText, models.TierPremium, testSpec())

	require.NoError(t, err)
	assert.Equal(t, "balanced-gen", audit.Adapter)
	assert.Equal(t, models.TierBalanced, audit.Tier)
	require.NotNil(t, audit.DegradedFrom)
	assert.Equal(t, models.TierPremium, *audit.DegradedFrom)
}

func TestTierRegistryDegradesAtMostOnce(t *testing.T) {
	registry := NewTierRegistry()
	premium := NewMockAdapter("premium-gen", CapabilityText, 2.0)
	premium.FailAlways = transientErr("premium-gen")
	balanced := NewMockAdapter("balanced-gen", CapabilityText, 0.5)
	balanced.FailAlways = transientErr("balanced-gen")
	budget := NewMockAdapter("budget-gen", CapabilityText, 0.1)
	registry.Register(models.TierPremium, premium)
	registry.Register(models.TierBalanced, balanced)
	registry.Register(models.TierBudget, budget)

	_, _, err := registry.Invoke(context.Background(), CapabilityText, models.TierPremium, testSpec())

	require.Error(t, err)
	assert.Equal(t, 0, budget.InvocationCount(), "degradation must stop one tier below the request")
}

func TestTierRegistryPermanentErrorAborts(t *testing.T) {
	registry := NewTierRegistry()
	primary := NewMockAdapter("primary", CapabilityText, 0.5)
	primary.FailAlways = NewAdapterError("primary", ReasonInvalidInput, false, errors.New("prompt rejected"))
	secondary := NewMockAdapter("secondary", CapabilityText, 0.1)
	registry.Register(models.TierBalanced, primary)
	registry.Register(models.TierBalanced, secondary)

	_, _, err := registry.Invoke(context.Background(), CapabilityText, models.TierBalanced, testSpec())

	require.Error(t, err)
	assert.False(t, IsRetryable(err))
	assert.Equal(t, 0, secondary.InvocationCount(), "permanent failures must not fall back")
}

func TestTierRegistryCircuitSkipsFailedAdapter(t *testing.T) {
	registry := NewTierRegistry()
	primary := NewMockAdapter("primary", CapabilityText, 0.5)
	primary.FailNext = transientErr("primary")
	secondary := NewMockAdapter("secondary", CapabilityText, 0.1)
	registry.Register(models.TierBalanced, primary)
	registry.Register(models.TierBalanced, secondary)

	_, audit, err := registry.Invoke(context.Background(), CapabilityText, models.TierBalanced, testSpec())
	require.NoError(t, err)
	assert.Equal(t, "secondary", audit.Adapter)

	// primary recovered, but its circuit is still cooling down
	_, audit, err = registry.Invoke(context.Background(), CapabilityText, models.TierBalanced, testSpec())
	require.NoError(t, err)
	assert.Equal(t, "secondary", audit.Adapter)
	assert.Equal(t, 1, primary.InvocationCount())
}

func TestTierRegistryNoAdapterRegistered(t *testing.T) {
	registry := NewTierRegistry()
	registry.Register(models.TierBalanced, NewMockAdapter("img", CapabilityImage, 0.2))

	_, _, err := registry.Invoke(context.Background(), CapabilityText, models.TierBudget, testSpec())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "all adapters exhausted")
}

func TestTierRegistryHasCapability(t *testing.T) {
	registry := NewTierRegistry()
	registry.Register(models.TierBudget, NewMockAdapter("aud", CapabilityAudio, 0.3))

	assert.True(t, registry.HasCapability(CapabilityAudio))
	assert.False(t, registry.HasCapability(CapabilityAssembly))
}

func TestTierRegistryHealthTracksCircuits(t *testing.T) {
	registry := NewTierRegistry()
	broken := NewMockAdapter("broken", CapabilityText, 0.5)
	broken.FailAlways = transientErr("broken")
	healthy := NewMockAdapter("healthy", CapabilityText, 0.1)
	registry.Register(models.TierBalanced, broken)
	registry.Register(models.TierBalanced, healthy)

	_, _, err := registry.Invoke(context.Background(), CapabilityText, models.TierBalanced, testSpec())
	require.NoError(t, err)

	byName := make(map[string]AdapterHealth)
	for _, h := range registry.Health() {
		byName[h.Name] = h
	}

	require.Len(t, byName, 2)
	assert.True(t, byName["broken"].Open)
	assert.Equal(t, 1, byName["broken"].Failures)
	assert.False(t, byName["healthy"].Open)
	assert.NotNil(t, byName["healthy"].LastSuccess)
}
