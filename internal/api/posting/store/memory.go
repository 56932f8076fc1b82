package postingstore

import (
	"sort"
	"sync"
	"time"

	"meta_posting/internal/common"
)

// NewMemoryStore tạo store trong bộ nhớ.
// Không có lock toàn cục: counter khoá theo scope, worker/job/assignment khoá theo từng bản ghi.
func NewMemoryStore() *Store {
	return &Store{
		Counters:       &memCounters{},
		Formulas:       newMemFormulas(),
		Groups:         newMemGroups(),
		GroupAccounts:  newMemGroupAccounts(),
		Accounts:       newMemAccounts(),
		Contents:       newMemContents(),
		RestPeriods:    &memRestPeriods{},
		ScheduledPosts: newMemScheduledPosts(),
		Assignments:    &memAssignments{},
		Workers:        &memWorkers{},
		Jobs:           &memJobs{},
		Violations:     &memViolations{},
		Analytics:      &memAnalytics{},
	}
}

func nowMilli() int64 { return time.Now().UnixMilli() }

// table là map có khoá dùng cho các bảng CRUD đơn giản
type table[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]V
	order []K
}

func newTable[K comparable, V any]() *table[K, V] {
	return &table[K, V]{items: make(map[K]V)}
}

func (t *table[K, V]) get(k K) (V, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.items[k]
	if !ok {
		var zero V
		return zero, common.ErrNotFound
	}
	return v, nil
}

func (t *table[K, V]) put(k K, v V) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.items[k]; !ok {
		t.order = append(t.order, k)
	}
	t.items[k] = v
}

// insert trả ErrDuplicate nếu khoá đã tồn tại
func (t *table[K, V]) insert(k K, v V) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.items[k]; ok {
		return common.ErrDuplicate
	}
	t.order = append(t.order, k)
	t.items[k] = v
	return nil
}

func (t *table[K, V]) update(k K, fn func(*V) error) (V, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.items[k]
	if !ok {
		var zero V
		return zero, common.ErrNotFound
	}
	if err := fn(&v); err != nil {
		var zero V
		return zero, err
	}
	t.items[k] = v
	return v, nil
}

func (t *table[K, V]) remove(k K) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.items[k]; !ok {
		return false
	}
	delete(t.items, k)
	for i, key := range t.order {
		if key == k {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return true
}

// filter trả các item thoả điều kiện theo thứ tự chèn
func (t *table[K, V]) filter(keep func(V) bool) []V {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []V
	for _, k := range t.order {
		if v := t.items[k]; keep(v) {
			out = append(out, v)
		}
	}
	return out
}

func sortedKeys(keys map[string]struct{}) []string {
	out := make([]string, 0, len(keys))
	for k := range keys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func limitSlice[T any](items []T, limit int64) []T {
	if limit > 0 && int64(len(items)) > limit {
		return items[:limit]
	}
	return items
}
