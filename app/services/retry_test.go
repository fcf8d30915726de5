package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryPolicyDelay(t *testing.T) {
	policy := RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		MaxDelay:    10 * time.Second,
		Multiplier:  2.0,
	}

	tests := []struct {
		name    string
		attempt int
		want    time.Duration
	}{
		{"first retry uses base delay", 1, 2 * time.Second},
		{"second retry doubles", 2, 4 * time.Second},
		{"third retry doubles again", 3, 8 * time.Second},
		{"fourth retry caps at max", 4, 10 * time.Second},
		{"far beyond stays capped", 10, 10 * time.Second},
		{"zero is treated as the first retry", 0, 2 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.Delay(tt.attempt))
		})
	}
}

func TestRetryPolicyExhausted(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3}

	// attempt count includes the initial try: 3 retries allow 4 invocations
	assert.False(t, policy.Exhausted(1))
	assert.False(t, policy.Exhausted(3))
	assert.True(t, policy.Exhausted(4))
}

func TestDefaultRetryPolicy(t *testing.T) {
	policy := DefaultRetryPolicy()

	assert.Equal(t, 3, policy.MaxAttempts)
	assert.Equal(t, 2*time.Second, policy.BaseDelay)
	assert.Equal(t, 5*time.Minute, policy.MaxDelay)
}
