package worker

import (
	"context"
	"time"

	"meta_posting/config"
	postingsvc "meta_posting/internal/api/posting/service"
)

// dueBatch là số assignment đến giờ tối đa mỗi lượt dispatch
const dueBatch int64 = 100

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// NewRestPeriodCloser đóng rest period auto-resume đã hết hạn
func NewRestPeriodCloser(e *postingsvc.Engine, interval time.Duration) *PeriodicWorker {
	return NewPeriodicWorker("REST_PERIOD", "😴", interval, e.Now, func(ctx context.Context, now time.Time) (int, error) {
		return e.RestPeriods.CloseLapsed(ctx, now)
	})
}

// NewJobTimeoutSweeper chuyển job mất heartbeat sang timeout và lên lịch retry
func NewJobTimeoutSweeper(e *postingsvc.Engine, interval time.Duration) *PeriodicWorker {
	return NewPeriodicWorker("JOB_TIMEOUT", "⏱️", interval, e.Now, func(ctx context.Context, now time.Time) (int, error) {
		return e.Dispatcher.SweepTimeouts(ctx, now)
	})
}

// NewRetryDispatcher giao lại job có nextRetryAt đã tới
func NewRetryDispatcher(e *postingsvc.Engine, interval time.Duration) *PeriodicWorker {
	return NewPeriodicWorker("JOB_RETRY", "🔁", interval, e.Now, func(ctx context.Context, now time.Time) (int, error) {
		return e.Dispatcher.ProcessDueRetries(ctx, now)
	})
}

// NewDueDispatcher tạo job cho assignment đã tới scheduledAt
func NewDueDispatcher(e *postingsvc.Engine, interval time.Duration) *PeriodicWorker {
	return NewPeriodicWorker("DUE_DISPATCH", "📦", interval, e.Now, func(ctx context.Context, _ time.Time) (int, error) {
		return e.Dispatcher.DispatchDue(ctx, dueBatch)
	})
}

// NewCounterGC xoá limit counter có windowEnd đã qua
func NewCounterGC(e *postingsvc.Engine, interval time.Duration) *PeriodicWorker {
	return NewPeriodicWorker("COUNTER_GC", "🧹", interval, e.Now, func(ctx context.Context, now time.Time) (int, error) {
		n, err := e.Counters.DeleteExpired(ctx, now)
		return int(n), err
	})
}

// NewWorkerOfflineDetector đánh dấu offline worker không gửi heartbeat
func NewWorkerOfflineDetector(e *postingsvc.Engine, interval time.Duration) *PeriodicWorker {
	return NewPeriodicWorker("WORKER_HEALTH", "🤖", interval, e.Now, func(ctx context.Context, now time.Time) (int, error) {
		n, err := e.Registry.MarkOffline(ctx, now)
		return int(n), err
	})
}

// NewPostingWorkers dựng toàn bộ background worker theo chu kỳ trong config
func NewPostingWorkers(e *postingsvc.Engine, cfg *config.Configuration) *Group {
	return NewGroup(
		NewRestPeriodCloser(e, seconds(cfg.RestPeriodSweepInterval)),
		NewJobTimeoutSweeper(e, seconds(cfg.JobTimeoutSweepInterval)),
		NewRetryDispatcher(e, seconds(cfg.RetryDispatchInterval)),
		NewDueDispatcher(e, seconds(cfg.DueDispatchInterval)),
		NewCounterGC(e, seconds(cfg.CounterGCInterval)),
		NewWorkerOfflineDetector(e, seconds(cfg.WorkerHealthInterval)),
	)
}
