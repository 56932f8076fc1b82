package postingstore

import (
	"context"
	"sort"
	"sync"

	"meta_posting/internal/api/posting/models"
	"meta_posting/internal/common"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type memAssignments struct {
	entries sync.Map // scheduledPostID -> *assignmentEntry
}

type assignmentEntry struct {
	mu sync.Mutex
	a  models.ScheduleAssignment
}

func (m *memAssignments) Insert(ctx context.Context, a models.ScheduleAssignment) (models.ScheduleAssignment, error) {
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	now := nowMilli()
	a.CreatedAt, a.UpdatedAt = now, now
	if _, loaded := m.entries.LoadOrStore(a.ScheduledPostID, &assignmentEntry{a: a}); loaded {
		return models.ScheduleAssignment{}, common.WithDetails(common.ErrDuplicate, map[string]interface{}{"scheduledPostId": a.ScheduledPostID.Hex()})
	}
	return a, nil
}

func (m *memAssignments) FindByPost(ctx context.Context, postID primitive.ObjectID) (models.ScheduleAssignment, error) {
	v, ok := m.entries.Load(postID)
	if !ok {
		return models.ScheduleAssignment{}, common.ErrNotFound
	}
	e := v.(*assignmentEntry)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.a, nil
}

func (m *memAssignments) CompareAndSwap(ctx context.Context, postID primitive.ObjectID, expectedVersion int64, patch models.AssignmentPatch) (models.ScheduleAssignment, error) {
	v, ok := m.entries.Load(postID)
	if !ok {
		return models.ScheduleAssignment{}, common.ErrNotFound
	}
	e := v.(*assignmentEntry)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.a.LockVersion != expectedVersion {
		return e.a, common.ErrVersionConflict
	}
	patch.Apply(&e.a)
	e.a.LockVersion++
	e.a.UpdatedAt = nowMilli()
	return e.a, nil
}

func (m *memAssignments) ListDue(ctx context.Context, now int64, limit int64) ([]models.ScheduleAssignment, error) {
	var out []models.ScheduleAssignment
	m.entries.Range(func(_, v any) bool {
		e := v.(*assignmentEntry)
		e.mu.Lock()
		a := e.a
		e.mu.Unlock()
		if a.Status == models.AssignmentAssigned && a.CurrentJobID == "" && !a.CancelRequested && a.ScheduledAt <= now {
			out = append(out, a)
		}
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt < out[j].ScheduledAt })
	return limitSlice(out, limit), nil
}
