package services

import (
	"time"
)

// RetryPolicy controls exponential backoff between retry attempts
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
}

// DefaultRetryPolicy returns the backoff used when none is configured
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		MaxDelay:    5 * time.Minute,
		Multiplier:  2.0,
	}
}

// Delay returns the backoff before the given attempt. Attempt 1 is the first
// retry. Delays grow geometrically and cap at MaxDelay.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	delay := float64(p.BaseDelay)
	for i := 1; i < attempt; i++ {
		delay *= p.Multiplier
		if time.Duration(delay) >= p.MaxDelay {
			return p.MaxDelay
		}
	}

	d := time.Duration(delay)
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Exhausted reports whether the given attempt count has used up the policy.
// The count includes the initial try, so MaxAttempts retries allow
// MaxAttempts+1 invocations.
func (p RetryPolicy) Exhausted(attempts int) bool {
	return attempts > p.MaxAttempts
}
