package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadTaskBeforeCreateDerivesStatus(t *testing.T) {
	future := time.Now().UTC().Add(time.Hour)
	past := time.Now().UTC().Add(-time.Hour)

	tests := []struct {
		name string
		task UploadTask
		want UploadStatus
	}{
		{"future schedule becomes scheduled", UploadTask{ScheduledAt: &future}, UploadStatusScheduled},
		{"past schedule becomes pending", UploadTask{ScheduledAt: &past}, UploadStatusPending},
		{"no schedule becomes pending", UploadTask{}, UploadStatusPending},
		{"explicit status is kept", UploadTask{Status: UploadStatusFailed, ScheduledAt: &future}, UploadStatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.task.BeforeCreate(nil))
			assert.Equal(t, tt.want, tt.task.Status)
			assert.NotEqual(t, uuid.Nil, tt.task.UUID)
			assert.False(t, tt.task.CreatedAt.IsZero())
		})
	}
}

func TestUploadTaskRetriesExhausted(t *testing.T) {
	task := UploadTask{MaxRetries: 3}

	// max_retries=3 permits the initial try plus three retries
	for attempt := 1; attempt <= 3; attempt++ {
		task.AttemptCount = attempt
		assert.False(t, task.RetriesExhausted(), "attempt %d", attempt)
	}

	task.AttemptCount = 4
	assert.True(t, task.RetriesExhausted())
}
