package postingstore

import (
	"context"
	"sort"
	"sync"

	"meta_posting/internal/api/posting/models"
	"meta_posting/internal/common"
)

type memJobs struct {
	entries sync.Map // jobID -> *jobEntry
}

type jobEntry struct {
	mu sync.Mutex
	j  models.WorkerJob
}

func (m *memJobs) Insert(ctx context.Context, j models.WorkerJob) (models.WorkerJob, error) {
	now := nowMilli()
	j.CreatedAt, j.UpdatedAt = now, now
	if _, loaded := m.entries.LoadOrStore(j.JobID, &jobEntry{j: j}); loaded {
		return models.WorkerJob{}, common.ErrDuplicate
	}
	return j, nil
}

func (m *memJobs) FindByID(ctx context.Context, jobID string) (models.WorkerJob, error) {
	v, ok := m.entries.Load(jobID)
	if !ok {
		return models.WorkerJob{}, common.ErrNotFound
	}
	e := v.(*jobEntry)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.j, nil
}

func (m *memJobs) Transition(ctx context.Context, jobID string, from []string, patch models.JobPatch) (models.WorkerJob, error) {
	v, ok := m.entries.Load(jobID)
	if !ok {
		return models.WorkerJob{}, common.ErrNotFound
	}
	e := v.(*jobEntry)
	e.mu.Lock()
	defer e.mu.Unlock()
	if !containsString(from, e.j.Status) {
		return e.j, common.ErrInvalidState
	}
	patch.Apply(&e.j)
	e.j.UpdatedAt = nowMilli()
	return e.j, nil
}

func (m *memJobs) Touch(ctx context.Context, jobIDs []string, workerID string, at int64) error {
	for _, id := range jobIDs {
		v, ok := m.entries.Load(id)
		if !ok {
			continue
		}
		e := v.(*jobEntry)
		e.mu.Lock()
		if e.j.WorkerID == workerID && e.j.IsRunning() && e.j.LastHeartbeatAt < at {
			e.j.LastHeartbeatAt = at
		}
		e.mu.Unlock()
	}
	return nil
}

func (m *memJobs) collect(keep func(models.WorkerJob) bool) []models.WorkerJob {
	var out []models.WorkerJob
	m.entries.Range(func(_, v any) bool {
		e := v.(*jobEntry)
		e.mu.Lock()
		j := e.j
		e.mu.Unlock()
		if keep(j) {
			out = append(out, j)
		}
		return true
	})
	return out
}

func (m *memJobs) CountAssignedSince(ctx context.Context, workerID string, since int64) (int64, error) {
	jobs := m.collect(func(j models.WorkerJob) bool {
		return j.WorkerID == workerID && j.AssignedAt >= since
	})
	return int64(len(jobs)), nil
}

func (m *memJobs) ListStale(ctx context.Context, before int64, limit int64) ([]models.WorkerJob, error) {
	jobs := m.collect(func(j models.WorkerJob) bool {
		return j.IsRunning() && j.LastHeartbeatAt < before
	})
	sort.Slice(jobs, func(a, b int) bool { return jobs[a].LastHeartbeatAt < jobs[b].LastHeartbeatAt })
	return limitSlice(jobs, limit), nil
}

func (m *memJobs) ListRetryDue(ctx context.Context, now int64, limit int64) ([]models.WorkerJob, error) {
	jobs := m.collect(func(j models.WorkerJob) bool {
		return j.Retryable && j.NextRetryAt <= now
	})
	sort.Slice(jobs, func(a, b int) bool { return jobs[a].NextRetryAt < jobs[b].NextRetryAt })
	return limitSlice(jobs, limit), nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
