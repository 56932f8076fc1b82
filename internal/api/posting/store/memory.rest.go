package postingstore

import (
	"context"
	"sync"

	"meta_posting/internal/api/posting/models"
	"meta_posting/internal/common"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memRestPeriods khoá theo từng scope, đảm bảo tối đa một bản ghi active mỗi scope
type memRestPeriods struct {
	byScope sync.Map // models.ScopeRef -> *restBucket
	byID    sync.Map // primitive.ObjectID -> models.ScopeRef
}

type restBucket struct {
	mu    sync.Mutex
	items []*models.RestPeriod
}

func (m *memRestPeriods) bucket(ref models.ScopeRef) *restBucket {
	b, _ := m.byScope.LoadOrStore(ref, &restBucket{})
	return b.(*restBucket)
}

func (b *restBucket) active() *models.RestPeriod {
	for _, rp := range b.items {
		if rp.Status == models.RestStatusActive {
			return rp
		}
	}
	return nil
}

func (m *memRestPeriods) add(b *restBucket, rp models.RestPeriod) models.RestPeriod {
	if rp.ID.IsZero() {
		rp.ID = primitive.NewObjectID()
	}
	now := nowMilli()
	rp.Status = models.RestStatusActive
	rp.CreatedAt, rp.UpdatedAt = now, now
	stored := rp
	b.items = append(b.items, &stored)
	m.byID.Store(rp.ID, rp.Ref())
	return rp
}

func (m *memRestPeriods) Open(ctx context.Context, rp models.RestPeriod) (models.RestPeriod, error) {
	b := m.bucket(rp.Ref())
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.active() != nil {
		return models.RestPeriod{}, common.WithDetails(common.ErrDuplicate, map[string]interface{}{"scope": rp.Scope, "scopeId": rp.ScopeID})
	}
	return m.add(b, rp), nil
}

func (m *memRestPeriods) OpenIfAbsent(ctx context.Context, rp models.RestPeriod) (models.RestPeriod, bool, error) {
	b := m.bucket(rp.Ref())
	b.mu.Lock()
	defer b.mu.Unlock()
	if existing := b.active(); existing != nil {
		return *existing, false, nil
	}
	return m.add(b, rp), true, nil
}

func (m *memRestPeriods) FindActive(ctx context.Context, ref models.ScopeRef) (models.RestPeriod, error) {
	b := m.bucket(ref)
	b.mu.Lock()
	defer b.mu.Unlock()
	if rp := b.active(); rp != nil {
		return *rp, nil
	}
	return models.RestPeriod{}, common.ErrNotFound
}

// bucketOf trả bucket chứa rest period id, caller tự khoá
func (m *memRestPeriods) bucketOf(id primitive.ObjectID) *restBucket {
	v, ok := m.byID.Load(id)
	if !ok {
		return nil
	}
	return m.bucket(v.(models.ScopeRef))
}

func (m *memRestPeriods) FindByID(ctx context.Context, id primitive.ObjectID) (models.RestPeriod, error) {
	b := m.bucketOf(id)
	if b == nil {
		return models.RestPeriod{}, common.ErrNotFound
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, rp := range b.items {
		if rp.ID == id {
			return *rp, nil
		}
	}
	return models.RestPeriod{}, common.ErrNotFound
}

func (m *memRestPeriods) Close(ctx context.Context, id primitive.ObjectID, status string, at int64) (models.RestPeriod, error) {
	b := m.bucketOf(id)
	if b == nil {
		return models.RestPeriod{}, common.ErrNotFound
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, rp := range b.items {
		if rp.ID != id {
			continue
		}
		if rp.Status != models.RestStatusActive {
			return *rp, common.ErrInvalidState
		}
		rp.Status = status
		rp.CompletedAt = at
		rp.UpdatedAt = nowMilli()
		return *rp, nil
	}
	return models.RestPeriod{}, common.ErrNotFound
}

func (m *memRestPeriods) ListLapsed(ctx context.Context, now int64) ([]models.RestPeriod, error) {
	var out []models.RestPeriod
	m.byScope.Range(func(_, v any) bool {
		b := v.(*restBucket)
		b.mu.Lock()
		if rp := b.active(); rp != nil && rp.ResumePolicy != models.ResumeManual && rp.EndAt <= now {
			out = append(out, *rp)
		}
		b.mu.Unlock()
		return true
	})
	return out, nil
}

func (m *memRestPeriods) List(ctx context.Context, ref models.ScopeRef, status string) ([]models.RestPeriod, error) {
	b := m.bucket(ref)
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []models.RestPeriod
	for _, rp := range b.items {
		if status == "" || rp.Status == status {
			out = append(out, *rp)
		}
	}
	return out, nil
}
