package postingsvc

import (
	"sync"
	"testing"

	"meta_posting/internal/api/posting/models"
	"meta_posting/internal/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignmentMovesForwardOnly(t *testing.T) {
	f := newFixture(t)
	postID := dispatchSetup(f, true, 1)[0].ScheduledPostID

	a, err := f.e.Assignments.Advance(f.ctx, postID, "", models.AssignmentCompleted, "")
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentCompleted, a.Status)
	assert.Equal(t, int64(2), a.LockVersion)

	a, err = f.e.Assignments.Advance(f.ctx, postID, "", models.AssignmentFailed, "late")
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentCompleted, a.Status)
	assert.Empty(t, a.FailureReason)

	_, err = f.e.Assignments.Cancel(f.ctx, postID)
	assert.ErrorIs(t, err, common.ErrInvalidState)
}

func TestCancelAssignedAssignment(t *testing.T) {
	f := newFixture(t)
	postID := dispatchSetup(f, true, 1)[0].ScheduledPostID

	a, err := f.e.Assignments.Cancel(f.ctx, postID)
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentCancelled, a.Status)

	f.worker("w1", 1)
	_, err = f.e.Dispatcher.Dispatch(f.ctx, postID)
	assert.ErrorIs(t, err, common.ErrInvalidState)

	due, err := f.e.Assignments.ListDue(f.ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestConcurrentAdvanceKeepsSingleTerminalState(t *testing.T) {
	f := newFixture(t)
	postID := dispatchSetup(f, true, 1)[0].ScheduledPostID

	targets := []string{models.AssignmentCompleted, models.AssignmentFailed, models.AssignmentCancelled}
	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(target string) {
			defer wg.Done()
			if target == models.AssignmentCancelled {
				_, _ = f.e.Assignments.Cancel(f.ctx, postID)
				return
			}
			_, _ = f.e.Assignments.Advance(f.ctx, postID, "", target, "x")
		}(targets[i%len(targets)])
	}
	wg.Wait()

	a, err := f.e.Assignments.Get(f.ctx, postID)
	require.NoError(t, err)
	assert.True(t, models.IsTerminalAssignment(a.Status), a.Status)
}
