package postingstore

import (
	"context"
	"sync"
	"sync/atomic"

	"meta_posting/internal/api/posting/models"
	"meta_posting/internal/common"
)

// memWorkers giữ mỗi worker trong một entry riêng; currentLoad là atomic counter của entry đó
type memWorkers struct {
	entries sync.Map // workerID -> *workerEntry
}

type workerEntry struct {
	mu   sync.Mutex
	w    models.Worker
	load atomic.Int64
}

func (e *workerEntry) snapshot() models.Worker {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *workerEntry) snapshotLocked() models.Worker {
	w := e.w
	w.CurrentLoad = int(e.load.Load())
	w.Platforms = append([]string(nil), e.w.Platforms...)
	w.Capabilities = append([]models.Capability(nil), e.w.Capabilities...)
	if e.w.LastDispatchAt != nil {
		w.LastDispatchAt = make(map[string]int64, len(e.w.LastDispatchAt))
		for k, v := range e.w.LastDispatchAt {
			w.LastDispatchAt[k] = v
		}
	}
	return w
}

func (m *memWorkers) entry(workerID string) (*workerEntry, error) {
	v, ok := m.entries.Load(workerID)
	if !ok {
		return nil, common.ErrNotFound
	}
	return v.(*workerEntry), nil
}

func (m *memWorkers) Upsert(ctx context.Context, w models.Worker) (models.Worker, error) {
	now := nowMilli()
	fresh := &workerEntry{}
	v, loaded := m.entries.LoadOrStore(w.WorkerID, fresh)
	e := v.(*workerEntry)

	e.mu.Lock()
	defer e.mu.Unlock()
	if !loaded {
		w.CreatedAt = now
		w.CurrentLoad = 0
		e.w = w
	} else {
		// Giữ thống kê và trạng thái dispatch của lần đăng ký trước
		prev := e.w
		w.CreatedAt = prev.CreatedAt
		w.SuccessRate = prev.SuccessRate
		w.TotalCompleted = prev.TotalCompleted
		w.TotalFailed = prev.TotalFailed
		w.LastDispatchAt = prev.LastDispatchAt
		e.w = w
	}
	e.w.UpdatedAt = now
	return e.snapshotLocked(), nil
}

func (m *memWorkers) FindByID(ctx context.Context, workerID string) (models.Worker, error) {
	e, err := m.entry(workerID)
	if err != nil {
		return models.Worker{}, err
	}
	return e.snapshot(), nil
}

func (m *memWorkers) Heartbeat(ctx context.Context, workerID string, health models.WorkerHealth, at int64) (models.Worker, error) {
	e, err := m.entry(workerID)
	if err != nil {
		return models.Worker{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.w.Health = health
	e.w.LastHeartbeatAt = at
	e.w.IsOnline = true
	e.w.UpdatedAt = nowMilli()
	return e.snapshotLocked(), nil
}

func (m *memWorkers) SetStatus(ctx context.Context, workerID, status string) (models.Worker, error) {
	e, err := m.entry(workerID)
	if err != nil {
		return models.Worker{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.w.Status = status
	e.w.UpdatedAt = nowMilli()
	return e.snapshotLocked(), nil
}

func (m *memWorkers) ListOnline(ctx context.Context, platform string) ([]models.Worker, error) {
	var out []models.Worker
	m.entries.Range(func(_, v any) bool {
		w := v.(*workerEntry).snapshot()
		if w.Status != models.WorkerActive || !w.IsOnline {
			return true
		}
		for _, p := range w.Platforms {
			if p == platform {
				out = append(out, w)
				break
			}
		}
		return true
	})
	return out, nil
}

func (m *memWorkers) TryReserveSlot(ctx context.Context, workerID, platform string, limit int, now int64) (bool, error) {
	e, err := m.entry(workerID)
	if err != nil {
		return false, err
	}
	// mu chỉ khoá worker này, bảo vệ lastDispatchAt; load vẫn dùng CAS vì ReleaseSlot không giữ mu
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.w.Status != models.WorkerActive || !e.w.IsOnline {
		return false, nil
	}
	if last, ok := e.w.LastDispatchAt[platform]; ok && e.w.MinJobInterval > 0 && now-last < e.w.MinJobInterval*1000 {
		return false, nil
	}
	for {
		cur := e.load.Load()
		if cur >= int64(limit) {
			return false, nil
		}
		if e.load.CompareAndSwap(cur, cur+1) {
			break
		}
	}
	if e.w.LastDispatchAt == nil {
		e.w.LastDispatchAt = map[string]int64{}
	}
	e.w.LastDispatchAt[platform] = now
	return true, nil
}

func (m *memWorkers) ReleaseSlot(ctx context.Context, workerID string) error {
	e, err := m.entry(workerID)
	if err != nil {
		return err
	}
	for {
		cur := e.load.Load()
		if cur <= 0 {
			return nil
		}
		if e.load.CompareAndSwap(cur, cur-1) {
			return nil
		}
	}
}

func (m *memWorkers) RecordOutcome(ctx context.Context, workerID string, success bool) error {
	e, err := m.entry(workerID)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if success {
		e.w.TotalCompleted++
	} else {
		e.w.TotalFailed++
	}
	e.w.SuccessRate = float64(e.w.TotalCompleted) / float64(e.w.TotalCompleted+e.w.TotalFailed)
	return nil
}

func (m *memWorkers) MarkOffline(ctx context.Context, before int64) (int64, error) {
	var n int64
	m.entries.Range(func(_, v any) bool {
		e := v.(*workerEntry)
		e.mu.Lock()
		if e.w.IsOnline && e.w.LastHeartbeatAt < before {
			e.w.IsOnline = false
			n++
		}
		e.mu.Unlock()
		return true
	})
	return n, nil
}
