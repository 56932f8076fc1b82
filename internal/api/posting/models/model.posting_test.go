package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssignmentTransitionsOnlyMoveForward(t *testing.T) {
	assert.True(t, CanTransitionAssignment(AssignmentAssigned, AssignmentExecuting))
	assert.True(t, CanTransitionAssignment(AssignmentExecuting, AssignmentCompleted))
	assert.True(t, CanTransitionAssignment(AssignmentExecuting, AssignmentFailed))
	assert.True(t, CanTransitionAssignment(AssignmentAssigned, AssignmentCancelled))

	assert.False(t, CanTransitionAssignment(AssignmentExecuting, AssignmentAssigned))
	assert.False(t, CanTransitionAssignment(AssignmentExecuting, AssignmentCancelled))
	assert.False(t, CanTransitionAssignment(AssignmentCompleted, AssignmentFailed))
	assert.False(t, CanTransitionAssignment(AssignmentFailed, AssignmentExecuting))
	assert.True(t, IsTerminalAssignment(AssignmentCancelled))
	assert.False(t, IsTerminalAssignment(AssignmentExecuting))
}

func TestAccountCapsFoldsOverrides(t *testing.T) {
	f := PostingFormula{Caps: Caps{PerHour: 5, PerDay: 10}, MaxPerHour: 2}
	caps := f.AccountCaps(4)
	assert.Equal(t, 2, caps.PerHour)
	assert.Equal(t, 4, caps.PerDay)

	caps = PostingFormula{Caps: Caps{PerDay: 10}}.AccountCaps(0)
	assert.Equal(t, 0, caps.PerHour)
	assert.Equal(t, 10, caps.PerDay)
}

func TestRestPeriodBlocks(t *testing.T) {
	auto := RestPeriod{Status: RestStatusActive, StartAt: 100, EndAt: 200, ResumePolicy: ResumeAuto}
	assert.False(t, auto.Blocks(99))
	assert.True(t, auto.Blocks(100))
	assert.True(t, auto.Blocks(199))
	assert.False(t, auto.Blocks(200))

	manual := auto
	manual.ResumePolicy = ResumeManual
	assert.True(t, manual.Blocks(500))

	manual.Status = RestStatusCompleted
	assert.False(t, manual.Blocks(150))
}

func TestWorkerCapability(t *testing.T) {
	w := Worker{
		MaxConcurrentJobs: 4,
		Capabilities:      []Capability{{Platform: "facebook", Actions: []string{"post", "comment"}, MaxConcurrent: 2}},
	}
	c, ok := w.Capability("facebook", "post")
	assert.True(t, ok)
	assert.Equal(t, 2, w.SlotLimit(c))

	_, ok = w.Capability("facebook", "story")
	assert.False(t, ok)
	_, ok = w.Capability("tiktok", "post")
	assert.False(t, ok)
}
