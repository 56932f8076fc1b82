// Package registry cung cấp registry generic thread-safe để quản lý các singleton
// (mongo collections, services, workers) trong ứng dụng.
package registry

import (
	"fmt"
	"sync"

	"meta_posting/internal/common"
)

// Registry lưu các item theo tên, an toàn khi dùng đồng thời.
type Registry[T any] struct {
	items map[string]T
	mu    sync.RWMutex
}

// NewRegistry tạo registry rỗng.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{items: make(map[string]T)}
}

// Register đăng ký (hoặc ghi đè) một item. isNew = false nếu đã ghi đè item cũ.
func (r *Registry[T]) Register(name string, item T) (isNew bool, err error) {
	if name == "" {
		return false, fmt.Errorf("name cannot be empty: %w", common.ErrInvalidInput)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, exists := r.items[name]
	r.items[name] = item
	return !exists, nil
}

// Get lấy item theo tên.
func (r *Registry[T]) Get(name string) (item T, exists bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, exists = r.items[name]
	return item, exists
}

// MustGet lấy item theo tên, trả ErrNotFound nếu chưa đăng ký.
func (r *Registry[T]) MustGet(name string) (T, error) {
	item, ok := r.Get(name)
	if !ok {
		return item, fmt.Errorf("registry item %q: %w", name, common.ErrNotFound)
	}
	return item, nil
}

// GetOrCreate lấy item, nếu chưa có thì tạo bằng creator (giữ lock trong lúc tạo).
func (r *Registry[T]) GetOrCreate(name string, creator func() (T, error)) (item T, err error) {
	if name == "" {
		return item, fmt.Errorf("name cannot be empty: %w", common.ErrInvalidInput)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.items[name]; ok {
		return existing, nil
	}
	created, err := creator()
	if err != nil {
		return item, fmt.Errorf("failed to create item: %w", err)
	}
	r.items[name] = created
	return created, nil
}

// Names trả về danh sách tên đã đăng ký.
func (r *Registry[T]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.items))
	for name := range r.items {
		names = append(names, name)
	}
	return names
}

// ClearAll xoá toàn bộ item, gọi cleanup cho từng item nếu có.
func (r *Registry[T]) ClearAll(cleanup func(T) error) (count int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count = len(r.items)
	if cleanup != nil {
		var errs []error
		for name, item := range r.items {
			if err := cleanup(item); err != nil {
				errs = append(errs, fmt.Errorf("failed to cleanup %s: %w", name, err))
			}
		}
		if len(errs) > 0 {
			return 0, fmt.Errorf("cleanup errors occurred: %v", errs)
		}
	}
	r.items = make(map[string]T)
	return count, nil
}
