package postingsvc

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"meta_posting/config"
	"meta_posting/internal/api/posting/models"
	"meta_posting/internal/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dispatchSetup tạo group + account và n assignment đã đến giờ
func dispatchSetup(f *fixture, backoff bool, n int) []models.ScheduleAssignment {
	g := f.group(f.formula(models.PostingFormula{BackoffOnFail: backoff}))
	a := f.account(g, models.SocialAccount{}, models.GroupAccount{})
	out := make([]models.ScheduleAssignment, n)
	for i := range out {
		out[i] = f.dueAssignment(a, g)
	}
	return out
}

func TestDispatchConcurrentNeverOverloadsWorker(t *testing.T) {
	f := newFixture(t)
	list := dispatchSetup(f, true, 2)
	f.worker("w1", 1)

	var ok, busy atomic.Int32
	var wg sync.WaitGroup
	for _, a := range list {
		wg.Add(1)
		go func(a models.ScheduleAssignment) {
			defer wg.Done()
			_, err := f.e.Dispatcher.Dispatch(f.ctx, a.ScheduledPostID)
			switch {
			case err == nil:
				ok.Add(1)
			case assert.ErrorIs(t, err, common.ErrNoEligibleWorker):
				busy.Add(1)
			}
		}(a)
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(1), busy.Load())
	w, err := f.e.Registry.Get(f.ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, 1, w.CurrentLoad)

	// Assignment không được giao vẫn chờ dispatch
	due, err := f.e.Assignments.ListDue(f.ctx, 10)
	require.NoError(t, err)
	assert.Len(t, due, 1)
}

func TestDispatchManyRespectsSlotLimits(t *testing.T) {
	f := newFixture(t)
	list := dispatchSetup(f, true, 20)
	f.worker("w1", 3)
	f.worker("w2", 2, func(w *models.Worker) {
		w.Capabilities[0].MaxConcurrent = 1
	})

	var ok atomic.Int32
	var wg sync.WaitGroup
	for _, a := range list {
		wg.Add(1)
		go func(a models.ScheduleAssignment) {
			defer wg.Done()
			if _, err := f.e.Dispatcher.Dispatch(f.ctx, a.ScheduledPostID); err == nil {
				ok.Add(1)
			}
		}(a)
	}
	wg.Wait()

	assert.Equal(t, int32(4), ok.Load())
	w1, _ := f.e.Registry.Get(f.ctx, "w1")
	w2, _ := f.e.Registry.Get(f.ctx, "w2")
	assert.Equal(t, 3, w1.CurrentLoad)
	assert.Equal(t, 1, w2.CurrentLoad)
}

func TestDispatchIsIdempotentPerAssignment(t *testing.T) {
	f := newFixture(t)
	list := dispatchSetup(f, true, 1)
	f.worker("w1", 5)

	first, err := f.e.Dispatcher.Dispatch(f.ctx, list[0].ScheduledPostID)
	require.NoError(t, err)
	second, err := f.e.Dispatcher.Dispatch(f.ctx, list[0].ScheduledPostID)
	require.NoError(t, err)
	assert.Equal(t, first.JobID, second.JobID)

	w, _ := f.e.Registry.Get(f.ctx, "w1")
	assert.Equal(t, 1, w.CurrentLoad)
}

func TestDispatchHonoursMinJobInterval(t *testing.T) {
	f := newFixture(t)
	list := dispatchSetup(f, true, 2)
	f.worker("w1", 5, func(w *models.Worker) { w.MinJobInterval = 60 })

	_, err := f.e.Dispatcher.Dispatch(f.ctx, list[0].ScheduledPostID)
	require.NoError(t, err)
	_, err = f.e.Dispatcher.Dispatch(f.ctx, list[1].ScheduledPostID)
	assert.ErrorIs(t, err, common.ErrNoEligibleWorker)

	f.advance(time.Minute)
	_, err = f.e.Dispatcher.Dispatch(f.ctx, list[1].ScheduledPostID)
	assert.NoError(t, err)
}

func TestDispatchHonoursMaxJobsPerHour(t *testing.T) {
	f := newFixture(t)
	list := dispatchSetup(f, true, 3)
	f.worker("w1", 5, func(w *models.Worker) { w.MaxJobsPerHour = 2 })

	for _, a := range list[:2] {
		_, err := f.e.Dispatcher.Dispatch(f.ctx, a.ScheduledPostID)
		require.NoError(t, err)
	}
	_, err := f.e.Dispatcher.Dispatch(f.ctx, list[2].ScheduledPostID)
	assert.ErrorIs(t, err, common.ErrNoEligibleWorker)
}

func TestJobLifecycleCompletes(t *testing.T) {
	f := newFixture(t)
	list := dispatchSetup(f, true, 1)
	f.worker("w1", 1)
	postID := list[0].ScheduledPostID

	job, err := f.e.Dispatcher.Dispatch(f.ctx, postID)
	require.NoError(t, err)
	assert.Equal(t, models.JobAssigned, job.Status)

	_, err = f.e.Dispatcher.ReportJobResult(f.ctx, job.JobID, JobReport{Outcome: OutcomeStarted})
	require.NoError(t, err)
	a, _ := f.e.Assignments.Get(f.ctx, postID)
	assert.Equal(t, models.AssignmentExecuting, a.Status)

	done, err := f.e.Dispatcher.ReportJobResult(f.ctx, job.JobID, JobReport{
		Outcome: OutcomeCompleted, ExecutionTime: 1200, Result: map[string]interface{}{"postUrl": "https://fb.example/p/1"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.JobCompleted, done.Status)

	a, _ = f.e.Assignments.Get(f.ctx, postID)
	assert.Equal(t, models.AssignmentCompleted, a.Status)
	w, _ := f.e.Registry.Get(f.ctx, "w1")
	assert.Equal(t, 0, w.CurrentLoad)
	assert.Equal(t, int64(1), w.TotalCompleted)
	assert.Equal(t, 1.0, w.SuccessRate)

	// Kết quả trùng sau khi đã kết thúc bị từ chối
	_, err = f.e.Dispatcher.ReportJobResult(f.ctx, job.JobID, JobReport{Outcome: OutcomeFailed})
	assert.ErrorIs(t, err, common.ErrInvalidState)

	events, err := f.e.Store.Analytics.List(f.ctx, models.EventJobCompleted, 10)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestReportFromOtherWorkerRejected(t *testing.T) {
	f := newFixture(t)
	list := dispatchSetup(f, true, 1)
	f.worker("w1", 1)

	job, err := f.e.Dispatcher.Dispatch(f.ctx, list[0].ScheduledPostID)
	require.NoError(t, err)
	_, err = f.e.Dispatcher.ReportJobResult(f.ctx, job.JobID, JobReport{WorkerID: "intruder", Outcome: OutcomeCompleted})
	assert.ErrorIs(t, err, common.ErrInvalidOperation)
}

func TestRetryIsBoundedByMaxRetries(t *testing.T) {
	f := newFixture(t, func(c *config.Configuration) { c.JobMaxRetries = 2 })
	list := dispatchSetup(f, false, 1)
	f.worker("w1", 1)
	postID := list[0].ScheduledPostID

	job, err := f.e.Dispatcher.Dispatch(f.ctx, postID)
	require.NoError(t, err)

	for attempt := 1; attempt <= 2; attempt++ {
		job, err = f.e.Dispatcher.ReportJobResult(f.ctx, job.JobID, JobReport{Outcome: OutcomeFailed, Error: "network"})
		require.NoError(t, err)
		assert.Equal(t, models.JobAssigned, job.Status, "attempt %d", attempt)
		assert.Equal(t, attempt, job.RetryCount)
	}

	job, err = f.e.Dispatcher.ReportJobResult(f.ctx, job.JobID, JobReport{Outcome: OutcomeFailed, Error: "network"})
	require.NoError(t, err)
	assert.Equal(t, models.JobFailed, job.Status)
	assert.Equal(t, 2, job.RetryCount)
	assert.False(t, job.Retryable)

	a, _ := f.e.Assignments.Get(f.ctx, postID)
	assert.Equal(t, models.AssignmentFailed, a.Status)
	assert.Equal(t, "network", a.FailureReason)

	w, _ := f.e.Registry.Get(f.ctx, "w1")
	assert.Equal(t, 0, w.CurrentLoad)
	assert.Equal(t, int64(3), w.TotalFailed)
}

func TestRetryWithBackoffWaitsForNextRetryAt(t *testing.T) {
	f := newFixture(t, func(c *config.Configuration) { c.RetryBackoffBaseSeconds = 10 })
	list := dispatchSetup(f, true, 1)
	f.worker("w1", 1)

	job, err := f.e.Dispatcher.Dispatch(f.ctx, list[0].ScheduledPostID)
	require.NoError(t, err)
	job, err = f.e.Dispatcher.ReportJobResult(f.ctx, job.JobID, JobReport{Outcome: OutcomeFailed})
	require.NoError(t, err)
	assert.True(t, job.Retryable)
	assert.Equal(t, f.clock().Add(10*time.Second).UnixMilli(), job.NextRetryAt)

	n, err := f.e.Dispatcher.ProcessDueRetries(f.ctx, f.clock())
	require.NoError(t, err)
	assert.Zero(t, n)

	f.advance(10 * time.Second)
	n, err = f.e.Dispatcher.ProcessDueRetries(f.ctx, f.clock())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	job, err = f.e.Dispatcher.GetJob(f.ctx, job.JobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobAssigned, job.Status)
	assert.False(t, job.Retryable)

	// Lần lỗi thứ hai: backoff gấp đôi
	job, err = f.e.Dispatcher.ReportJobResult(f.ctx, job.JobID, JobReport{Outcome: OutcomeFailed})
	require.NoError(t, err)
	assert.Equal(t, f.clock().Add(20*time.Second).UnixMilli(), job.NextRetryAt)
}

func TestSweepTimeoutsThenLateResultIgnored(t *testing.T) {
	f := newFixture(t, func(c *config.Configuration) { c.JobMaxRetries = 0 })
	list := dispatchSetup(f, true, 1)
	f.worker("w1", 1)
	postID := list[0].ScheduledPostID

	job, err := f.e.Dispatcher.Dispatch(f.ctx, postID)
	require.NoError(t, err)

	f.advance(301 * time.Second)
	n, err := f.e.Dispatcher.SweepTimeouts(f.ctx, f.clock())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	job, _ = f.e.Dispatcher.GetJob(f.ctx, job.JobID)
	assert.Equal(t, models.JobFailed, job.Status)
	assert.False(t, job.Retryable)
	a, _ := f.e.Assignments.Get(f.ctx, postID)
	assert.Equal(t, models.AssignmentFailed, a.Status)
	w, _ := f.e.Registry.Get(f.ctx, "w1")
	assert.Equal(t, 0, w.CurrentLoad)

	_, err = f.e.Dispatcher.ReportJobResult(f.ctx, job.JobID, JobReport{Outcome: OutcomeCompleted})
	assert.ErrorIs(t, err, common.ErrInvalidState)
	a, _ = f.e.Assignments.Get(f.ctx, postID)
	assert.Equal(t, models.AssignmentFailed, a.Status)
}

func TestTimeoutsExhaustRetriesToFailed(t *testing.T) {
	f := newFixture(t, func(c *config.Configuration) { c.JobMaxRetries = 1 })
	list := dispatchSetup(f, false, 1)
	f.worker("w1", 1)
	postID := list[0].ScheduledPostID

	job, err := f.e.Dispatcher.Dispatch(f.ctx, postID)
	require.NoError(t, err)

	// Timeout lần đầu: retry ngay (không backoff)
	f.advance(301 * time.Second)
	n, err := f.e.Dispatcher.SweepTimeouts(f.ctx, f.clock())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	job, _ = f.e.Dispatcher.GetJob(f.ctx, job.JobID)
	assert.Equal(t, models.JobAssigned, job.Status)
	assert.Equal(t, 1, job.RetryCount)

	// Timeout lần hai: hết lượt retry, job kết thúc ở failed
	f.advance(301 * time.Second)
	n, err = f.e.Dispatcher.SweepTimeouts(f.ctx, f.clock())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	job, _ = f.e.Dispatcher.GetJob(f.ctx, job.JobID)
	assert.Equal(t, models.JobFailed, job.Status)
	assert.Equal(t, 1, job.RetryCount)
	assert.LessOrEqual(t, job.RetryCount, job.MaxRetries)
	assert.False(t, job.Retryable)

	a, _ := f.e.Assignments.Get(f.ctx, postID)
	assert.Equal(t, models.AssignmentFailed, a.Status)

	n, err = f.e.Dispatcher.ProcessDueRetries(f.ctx, f.clock())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestHeartbeatKeepsJobAlive(t *testing.T) {
	f := newFixture(t)
	list := dispatchSetup(f, true, 1)
	f.worker("w1", 1)

	job, err := f.e.Dispatcher.Dispatch(f.ctx, list[0].ScheduledPostID)
	require.NoError(t, err)

	f.advance(200 * time.Second)
	_, err = f.e.Registry.Heartbeat(f.ctx, "w1", models.WorkerHealth{ActiveJobIDs: []string{job.JobID}})
	require.NoError(t, err)

	f.advance(200 * time.Second)
	n, err := f.e.Dispatcher.SweepTimeouts(f.ctx, f.clock())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCancelDuringExecutionStopsRetry(t *testing.T) {
	f := newFixture(t)
	list := dispatchSetup(f, false, 1)
	f.worker("w1", 1)
	postID := list[0].ScheduledPostID

	job, err := f.e.Dispatcher.Dispatch(f.ctx, postID)
	require.NoError(t, err)
	_, err = f.e.Dispatcher.ReportJobResult(f.ctx, job.JobID, JobReport{Outcome: OutcomeStarted})
	require.NoError(t, err)

	a, err := f.e.Assignments.Cancel(f.ctx, postID)
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentExecuting, a.Status)
	assert.True(t, a.CancelRequested)

	job, err = f.e.Dispatcher.ReportJobResult(f.ctx, job.JobID, JobReport{Outcome: OutcomeFailed})
	require.NoError(t, err)
	assert.Equal(t, models.JobFailed, job.Status)
	assert.Zero(t, job.RetryCount)

	a, _ = f.e.Assignments.Get(f.ctx, postID)
	assert.Equal(t, models.AssignmentFailed, a.Status)
}

func TestDispatchDueSkipsWhenNoWorker(t *testing.T) {
	f := newFixture(t)
	dispatchSetup(f, true, 3)

	n, err := f.e.Dispatcher.DispatchDue(f.ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, n)

	f.worker("w1", 2)
	n, err = f.e.Dispatcher.DispatchDue(f.ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
