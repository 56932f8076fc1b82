// Package worker chứa các background worker chạy định kỳ của posting engine.
package worker

import (
	"context"
	"sync"
	"time"

	"meta_posting/internal/logger"

	"github.com/sirupsen/logrus"
)

// minInterval là chu kỳ nhỏ nhất cho phép, cấu hình nhỏ hơn bị nâng lên
const minInterval = time.Second

// Task là một lượt xử lý, trả về số bản ghi đã xử lý
type Task func(ctx context.Context, now time.Time) (int, error)

// PeriodicWorker chạy Task theo ticker; panic trong một lượt không làm dừng worker
type PeriodicWorker struct {
	name     string // tag log, ví dụ REST_PERIOD
	icon     string
	interval time.Duration
	task     Task
	clock    func() time.Time
}

// NewPeriodicWorker tạo worker; interval < 1s được nâng lên 1s
func NewPeriodicWorker(name, icon string, interval time.Duration, clock func() time.Time, task Task) *PeriodicWorker {
	if interval < minInterval {
		interval = minInterval
	}
	if clock == nil {
		clock = time.Now
	}
	return &PeriodicWorker{name: name, icon: icon, interval: interval, task: task, clock: clock}
}

// Name trả về tag của worker
func (w *PeriodicWorker) Name() string { return w.name }

// Interval trả về chu kỳ chạy
func (w *PeriodicWorker) Interval() time.Duration { return w.interval }

func (w *PeriodicWorker) prefix() string {
	return w.icon + " [" + w.name + "]"
}

// Start chạy cho tới khi ctx bị huỷ
func (w *PeriodicWorker) Start(ctx context.Context) {
	log := logger.GetAppLogger()
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	log.WithField("interval", w.interval.String()).Infof("%s Starting worker...", w.prefix())
	for {
		select {
		case <-ctx.Done():
			log.Infof("%s Worker stopped", w.prefix())
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce chạy một lượt, nuốt panic và log kết quả
func (w *PeriodicWorker) RunOnce(ctx context.Context) (count int) {
	log := logger.GetAppLogger()
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Errorf("%s Panic trong lượt chạy, sẽ tiếp tục ở lần sau", w.prefix())
			count = 0
		}
	}()

	n, err := w.task(ctx, w.clock())
	if err != nil {
		log.WithError(err).Errorf("%s Lượt chạy thất bại", w.prefix())
		return n
	}
	// n = 0 không log để giảm noise
	if n > 0 {
		log.WithFields(logrus.Fields{"count": n}).Infof("%s Đã xử lý", w.prefix())
	}
	return n
}

// Group quản lý nhiều worker dùng chung một context
type Group struct {
	workers []*PeriodicWorker
	wg      sync.WaitGroup
	cancel  context.CancelFunc
}

// NewGroup tạo nhóm worker
func NewGroup(workers ...*PeriodicWorker) *Group {
	return &Group{workers: workers}
}

// Start chạy mỗi worker trong goroutine riêng có recover
func (g *Group) Start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	g.cancel = cancel
	log := logger.GetAppLogger()
	for _, w := range g.workers {
		g.wg.Add(1)
		go func(w *PeriodicWorker) {
			defer g.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					log.WithField("panic", r).Errorf("%s Worker goroutine panic", w.prefix())
				}
			}()
			w.Start(ctx)
		}(w)
	}
}

// Stop huỷ context và chờ tất cả worker thoát
func (g *Group) Stop() {
	if g.cancel != nil {
		g.cancel()
	}
	g.wg.Wait()
}
