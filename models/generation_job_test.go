package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJobStageCanAdvanceTo(t *testing.T) {
	tests := []struct {
		name string
		from JobStage
		to   JobStage
		want bool
	}{
		{"queued to planning", StageQueued, StagePlanning, true},
		{"planning to script", StagePlanning, StageScript, true},
		{"optimizing to completed", StageOptimizing, StageCompleted, true},
		{"skipping a stage", StageQueued, StageScript, false},
		{"moving backwards", StageVisual, StageScript, false},
		{"staying in place", StageAudio, StageAudio, false},
		{"any running stage can fail", StageVisual, StageFailed, true},
		{"any running stage can cancel", StageQueued, StageCancelled, true},
		{"completed is terminal", StageCompleted, StageFailed, false},
		{"failed is terminal", StageFailed, StageQueued, false},
		{"cancelled is terminal", StageCancelled, StageCancelled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanAdvanceTo(tt.to))
		})
	}
}

func TestJobStageIndexAndTerminal(t *testing.T) {
	assert.Equal(t, 0, StageQueued.Index())
	assert.Equal(t, 7, StageCompleted.Index())
	assert.Equal(t, -1, StageFailed.Index())
	assert.Equal(t, -1, StageCancelled.Index())

	assert.True(t, StageCompleted.IsTerminal())
	assert.True(t, StageFailed.IsTerminal())
	assert.True(t, StageCancelled.IsTerminal())
	assert.False(t, StageOptimizing.IsTerminal())
}

func TestQualityTierBelow(t *testing.T) {
	below, ok := TierPremium.Below()
	assert.True(t, ok)
	assert.Equal(t, TierBalanced, below)

	below, ok = TierBalanced.Below()
	assert.True(t, ok)
	assert.Equal(t, TierBudget, below)

	_, ok = TierBudget.Below()
	assert.False(t, ok)
}

func completedRecord() StageRecord {
	return StageRecord{Status: StageStatusCompleted}
}

func TestGenerationJobProgress(t *testing.T) {
	tests := []struct {
		name string
		job  GenerationJob
		want int
	}{
		{"queued", GenerationJob{Stage: StageQueued}, 0},
		{"script underway", GenerationJob{Stage: StageScript}, 28},
		{"optimizing", GenerationJob{Stage: StageOptimizing}, 85},
		{"completed", GenerationJob{Stage: StageCompleted}, 100},
		{
			"failed after two stages",
			GenerationJob{
				Stage: StageFailed,
				Stages: StageRecords{
					StagePlanning.String(): completedRecord(),
					StageScript.String():   completedRecord(),
				},
			},
			33,
		},
		{"cancelled before any stage", GenerationJob{Stage: StageCancelled, Stages: StageRecords{}}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.job.Progress())
		})
	}
}

func TestGenerationJobResumeStage(t *testing.T) {
	job := GenerationJob{Stage: StageFailed, Stages: StageRecords{}}
	assert.Equal(t, StagePlanning, job.ResumeStage())

	job.Stages[StagePlanning.String()] = completedRecord()
	job.Stages[StageScript.String()] = completedRecord()
	assert.Equal(t, StageVisual, job.ResumeStage())

	// a failed stage is re-run, not skipped
	job.Stages[StageVisual.String()] = StageRecord{Status: StageStatusFailed}
	assert.Equal(t, StageVisual, job.ResumeStage())

	for _, st := range StageOrder[1 : len(StageOrder)-1] {
		job.Stages[st.String()] = completedRecord()
	}
	assert.Equal(t, StageCompleted, job.ResumeStage())
}

func TestGenerationJobStageCompleted(t *testing.T) {
	job := GenerationJob{Stages: StageRecords{
		StageScript.String(): completedRecord(),
		StageVisual.String(): {Status: StageStatusRunning},
	}}

	assert.True(t, job.StageCompleted(StageScript))
	assert.False(t, job.StageCompleted(StageVisual))
	assert.False(t, job.StageCompleted(StageAudio))
}
