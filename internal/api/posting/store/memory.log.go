package postingstore

import (
	"context"
	"sync"

	"meta_posting/internal/api/posting/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memViolations là log append-only, đọc mới nhất trước
type memViolations struct {
	mu   sync.RWMutex
	rows []models.ViolationLog
}

func (m *memViolations) Append(ctx context.Context, v models.ViolationLog) (models.ViolationLog, error) {
	if v.ID.IsZero() {
		v.ID = primitive.NewObjectID()
	}
	m.mu.Lock()
	m.rows = append(m.rows, v)
	m.mu.Unlock()
	return v, nil
}

func (m *memViolations) List(ctx context.Context, f ViolationFilter) ([]models.ViolationLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.ViolationLog
	for i := len(m.rows) - 1; i >= 0; i-- {
		v := m.rows[i]
		if f.Scope != "" && v.Scope != f.Scope {
			continue
		}
		if f.ScopeID != "" && v.ScopeID != f.ScopeID {
			continue
		}
		if f.Code != "" && v.Code != f.Code {
			continue
		}
		out = append(out, v)
	}
	return limitSlice(out, f.Limit), nil
}

type memAnalytics struct {
	mu   sync.RWMutex
	rows []models.AnalyticsEvent
}

func (m *memAnalytics) Append(ctx context.Context, e models.AnalyticsEvent) (models.AnalyticsEvent, error) {
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	m.mu.Lock()
	m.rows = append(m.rows, e)
	m.mu.Unlock()
	return e, nil
}

func (m *memAnalytics) List(ctx context.Context, eventType string, limit int64) ([]models.AnalyticsEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.AnalyticsEvent
	for i := len(m.rows) - 1; i >= 0; i-- {
		if eventType == "" || m.rows[i].Type == eventType {
			out = append(out, m.rows[i])
		}
	}
	return limitSlice(out, limit), nil
}
