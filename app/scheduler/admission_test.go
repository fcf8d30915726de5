package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	businessflow "github.com/trendforge/trendforge/business_flow"
)

func TestGateReservePositions(t *testing.T) {
	gate := NewGate(2, 2)

	tests := []struct {
		name         string
		wantPosition int
	}{
		{"first fills a slot", 0},
		{"second fills a slot", 0},
		{"third queues first", 1},
		{"fourth queues second", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			position, release, err := gate.Reserve()
			require.NoError(t, err)
			require.NotNil(t, release)
			assert.Equal(t, tt.wantPosition, position)
		})
	}

	_, _, err := gate.Reserve()
	require.Error(t, err)
	assert.ErrorIs(t, err, businessflow.ErrQueueFull)
}

func TestGateReleaseIsIdempotent(t *testing.T) {
	gate := NewGate(1, 0)

	_, release, err := gate.Reserve()
	require.NoError(t, err)
	assert.Equal(t, 1, gate.Admitted())

	release()
	release()
	release()
	assert.Equal(t, 0, gate.Admitted())
}

func TestGateCompleteReturnsAdmission(t *testing.T) {
	gate := NewGate(1, 1)

	_, _, err := gate.Reserve()
	require.NoError(t, err)
	_, _, err = gate.Reserve()
	require.NoError(t, err)

	gate.Complete()
	gate.Complete()
	assert.Equal(t, 0, gate.Admitted())

	// a drained gate stays at zero
	gate.Complete()
	assert.Equal(t, 0, gate.Admitted())
}

func TestGateTryAcquire(t *testing.T) {
	gate := NewGate(1, 0)

	release, ok := gate.TryAcquire()
	require.True(t, ok)

	_, ok = gate.TryAcquire()
	assert.False(t, ok)

	release()
	release()

	_, ok = gate.TryAcquire()
	assert.True(t, ok)
}

func TestGateAcquireBlocksUntilRelease(t *testing.T) {
	gate := NewGate(1, 0)

	release, err := gate.Acquire(context.Background())
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		second, err := gate.Acquire(context.Background())
		if err == nil {
			second()
		}
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second acquire should block while the slot is held")
	case <-time.After(50 * time.Millisecond):
	}

	release()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second acquire never completed after release")
	}
}

func TestGateAcquireHonorsContext(t *testing.T) {
	gate := NewGate(1, 0)

	_, err := gate.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = gate.Acquire(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAdmissionManagerPlatformGates(t *testing.T) {
	manager := NewAdmissionManager(4, 8)

	require.NotNil(t, manager.Generation())
	assert.Nil(t, manager.Platform("youtube"))

	manager.RegisterPlatform("youtube", 2)
	gate := manager.Platform("youtube")
	require.NotNil(t, gate)

	// workers slots plus a 4x queue before admission is refused
	for i := 0; i < 10; i++ {
		_, _, err := gate.Reserve()
		require.NoError(t, err)
	}
	_, _, err := gate.Reserve()
	assert.ErrorIs(t, err, businessflow.ErrQueueFull)
}
