package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentItemBeforeCreateDefaults(t *testing.T) {
	item := ContentItem{JobID: 7}

	require.NoError(t, item.BeforeCreate(nil))

	assert.NotEqual(t, uuid.Nil, item.UUID)
	assert.False(t, item.CreatedAt.IsZero())
	assert.Nil(t, item.UpdatedAt)
}

func TestContentItemBeforeUpdateStampsTime(t *testing.T) {
	item := ContentItem{JobID: 7}
	require.NoError(t, item.BeforeCreate(nil))

	require.NoError(t, item.BeforeUpdate(nil))

	require.NotNil(t, item.UpdatedAt)
	assert.False(t, item.UpdatedAt.Before(item.CreatedAt))
}
