package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpportunityCanTransitionTo(t *testing.T) {
	tests := []struct {
		name string
		from OpportunityStatus
		to   OpportunityStatus
		want bool
	}{
		{"pending can be accepted", OpportunityStatusPending, OpportunityStatusAccepted, true},
		{"pending can expire", OpportunityStatusPending, OpportunityStatusExpired, true},
		{"pending cannot complete directly", OpportunityStatusPending, OpportunityStatusCompleted, false},
		{"accepted can complete", OpportunityStatusAccepted, OpportunityStatusCompleted, true},
		{"accepted returns to pending on cancel", OpportunityStatusAccepted, OpportunityStatusPending, true},
		{"accepted cannot expire", OpportunityStatusAccepted, OpportunityStatusExpired, false},
		{"completed is terminal", OpportunityStatusCompleted, OpportunityStatusPending, false},
		{"expired is terminal", OpportunityStatusExpired, OpportunityStatusAccepted, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := Opportunity{Status: tt.from}
			assert.Equal(t, tt.want, o.CanTransitionTo(tt.to))
		})
	}
}

func TestOpportunityStatusValid(t *testing.T) {
	assert.True(t, OpportunityStatusPending.Valid())
	assert.True(t, OpportunityStatusExpired.Valid())
	assert.False(t, OpportunityStatus("archived").Valid())
	assert.False(t, OpportunityStatus("").Valid())
}
