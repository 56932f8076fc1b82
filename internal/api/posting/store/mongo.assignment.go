package postingstore

import (
	"context"
	"errors"

	basesvc "meta_posting/internal/api/base/service"
	"meta_posting/internal/api/posting/models"
	"meta_posting/internal/common"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoAssignments struct {
	base *basesvc.BaseServiceMongoImpl[models.ScheduleAssignment]
}

func (m *mongoAssignments) Insert(ctx context.Context, a models.ScheduleAssignment) (models.ScheduleAssignment, error) {
	created, err := m.base.InsertOne(ctx, a)
	if errors.Is(err, common.ErrDuplicate) {
		return models.ScheduleAssignment{}, common.WithDetails(common.ErrDuplicate, map[string]interface{}{"scheduledPostId": a.ScheduledPostID.Hex()})
	}
	return created, err
}

func (m *mongoAssignments) FindByPost(ctx context.Context, postID primitive.ObjectID) (models.ScheduleAssignment, error) {
	return m.base.FindOne(ctx, bson.M{"scheduledPostId": postID}, nil)
}

func assignmentPatchSet(p models.AssignmentPatch) map[string]interface{} {
	set := map[string]interface{}{}
	if p.Status != nil {
		set["status"] = *p.Status
	}
	if p.CurrentJobID != nil {
		set["currentJobId"] = *p.CurrentJobID
	}
	if p.CancelRequested != nil {
		set["cancelRequested"] = *p.CancelRequested
	}
	if p.FailureReason != nil {
		set["failureReason"] = *p.FailureReason
	}
	return set
}

func (m *mongoAssignments) CompareAndSwap(ctx context.Context, postID primitive.ObjectID, expectedVersion int64, patch models.AssignmentPatch) (models.ScheduleAssignment, error) {
	updated, err := m.base.FindOneAndUpdate(ctx,
		bson.M{"scheduledPostId": postID, "lockVersion": expectedVersion},
		basesvc.UpdateData{
			Set: assignmentPatchSet(patch),
			Inc: map[string]interface{}{"lockVersion": 1},
		}, nil)
	if !errors.Is(err, common.ErrNotFound) {
		return updated, err
	}
	current, findErr := m.FindByPost(ctx, postID)
	if findErr != nil {
		return models.ScheduleAssignment{}, findErr
	}
	return current, common.ErrVersionConflict
}

func (m *mongoAssignments) ListDue(ctx context.Context, now int64, limit int64) ([]models.ScheduleAssignment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "scheduledAt", Value: 1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	return m.base.Find(ctx, bson.M{
		"status":          models.AssignmentAssigned,
		"currentJobId":    bson.M{"$in": bson.A{nil, ""}},
		"cancelRequested": bson.M{"$ne": true},
		"scheduledAt":     bson.M{"$lte": now},
	}, opts)
}
