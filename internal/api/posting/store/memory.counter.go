package postingstore

import (
	"context"
	"fmt"
	"sync"

	"meta_posting/internal/api/posting/models"
	"meta_posting/internal/common"
)

// memCounters giữ counter theo bucket (scope, scopeId, action), mỗi bucket có mutex riêng
type memCounters struct {
	buckets sync.Map // string -> *counterBucket
}

type counterBucket struct {
	mu   sync.Mutex
	rows map[models.CounterKey]*models.LimitCounter
}

func bucketKey(k models.CounterKey) string {
	return fmt.Sprintf("%s|%s|%s", k.Scope, k.ScopeID, k.Action)
}

func (m *memCounters) bucket(name string) *counterBucket {
	b, _ := m.buckets.LoadOrStore(name, &counterBucket{rows: make(map[models.CounterKey]*models.LimitCounter)})
	return b.(*counterBucket)
}

// lockBuckets khoá các bucket theo thứ tự tên để tránh deadlock
func (m *memCounters) lockBuckets(keys []models.CounterKey) func() {
	names := map[string]struct{}{}
	for _, k := range keys {
		names[bucketKey(k)] = struct{}{}
	}
	var locked []*counterBucket
	for _, name := range sortedKeys(names) {
		b := m.bucket(name)
		b.mu.Lock()
		locked = append(locked, b)
	}
	return func() {
		for i := len(locked) - 1; i >= 0; i-- {
			locked[i].mu.Unlock()
		}
	}
}

func (m *memCounters) Reserve(ctx context.Context, reqs []CounterRequest) (ReserveResult, error) {
	if len(reqs) == 0 {
		return ReserveResult{Approved: true}, nil
	}
	keys := make([]models.CounterKey, len(reqs))
	for i, r := range reqs {
		keys[i] = r.Key
	}
	unlock := m.lockBuckets(keys)
	defer unlock()

	now := nowMilli()
	rows := make([]*models.LimitCounter, len(reqs))
	for i, r := range reqs {
		b := m.bucket(bucketKey(r.Key))
		row, ok := b.rows[r.Key]
		if !ok {
			row = &models.LimitCounter{
				Scope: r.Key.Scope, ScopeID: r.Key.ScopeID, Action: r.Key.Action,
				Window: r.Key.Window, WindowStart: r.Key.WindowStart, WindowEnd: r.WindowEnd,
				Limit: r.Limit, CreatedAt: now, UpdatedAt: now,
			}
			b.rows[r.Key] = row
		}
		if row.Used >= row.Limit {
			violated := *row
			return ReserveResult{Violated: &violated}, nil
		}
		rows[i] = row
	}

	result := ReserveResult{Approved: true, Counters: make([]models.LimitCounter, len(rows))}
	for i, row := range rows {
		row.Used++
		row.UpdatedAt = now
		result.Counters[i] = *row
	}
	return result, nil
}

func (m *memCounters) Release(ctx context.Context, keys []models.CounterKey) error {
	unlock := m.lockBuckets(keys)
	defer unlock()
	for _, k := range keys {
		if row, ok := m.bucket(bucketKey(k)).rows[k]; ok && row.Used > 0 {
			row.Used--
			row.UpdatedAt = nowMilli()
		}
	}
	return nil
}

func (m *memCounters) Get(ctx context.Context, key models.CounterKey) (models.LimitCounter, error) {
	b := m.bucket(bucketKey(key))
	b.mu.Lock()
	defer b.mu.Unlock()
	row, ok := b.rows[key]
	if !ok {
		return models.LimitCounter{}, common.ErrNotFound
	}
	return *row, nil
}

func (m *memCounters) DeleteExpired(ctx context.Context, before int64) (int64, error) {
	var deleted int64
	m.buckets.Range(func(_, v any) bool {
		b := v.(*counterBucket)
		b.mu.Lock()
		for k, row := range b.rows {
			if row.WindowEnd <= before {
				delete(b.rows, k)
				deleted++
			}
		}
		b.mu.Unlock()
		return true
	})
	return deleted, nil
}
