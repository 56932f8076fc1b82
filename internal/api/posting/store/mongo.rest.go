package postingstore

import (
	"context"
	"errors"
	"time"

	basesvc "meta_posting/internal/api/base/service"
	"meta_posting/internal/api/posting/models"
	"meta_posting/internal/common"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mongoRestPeriods dựa vào partial unique index rest_period_active_unique
type mongoRestPeriods struct {
	base *basesvc.BaseServiceMongoImpl[models.RestPeriod]
}

func activeFilter(ref models.ScopeRef) bson.M {
	return bson.M{"scope": ref.Scope, "scopeId": ref.ScopeID, "status": models.RestStatusActive}
}

func (m *mongoRestPeriods) Open(ctx context.Context, rp models.RestPeriod) (models.RestPeriod, error) {
	rp.ID = primitive.NilObjectID
	rp.Status = models.RestStatusActive
	created, err := m.base.InsertOne(ctx, rp)
	if errors.Is(err, common.ErrDuplicate) {
		return models.RestPeriod{}, common.WithDetails(common.ErrDuplicate, map[string]interface{}{"scope": rp.Scope, "scopeId": rp.ScopeID})
	}
	return created, err
}

func (m *mongoRestPeriods) OpenIfAbsent(ctx context.Context, rp models.RestPeriod) (models.RestPeriod, bool, error) {
	now := time.Now().UnixMilli()
	res, err := m.base.Collection().UpdateOne(ctx, activeFilter(rp.Ref()), bson.M{
		"$setOnInsert": bson.M{
			"startAt":      rp.StartAt,
			"endAt":        rp.EndAt,
			"reason":       rp.Reason,
			"resumePolicy": rp.ResumePolicy,
			"createdAt":    now,
			"updatedAt":    now,
		},
	}, options.Update().SetUpsert(true))
	created := false
	switch {
	case err == nil:
		created = res.UpsertedCount > 0
	case mongo.IsDuplicateKeyError(err):
		// caller khác vừa mở rest period cho scope này
	default:
		return models.RestPeriod{}, false, common.ConvertMongoError(err)
	}
	active, err := m.FindActive(ctx, rp.Ref())
	if err != nil {
		return models.RestPeriod{}, false, err
	}
	return active, created, nil
}

func (m *mongoRestPeriods) FindActive(ctx context.Context, ref models.ScopeRef) (models.RestPeriod, error) {
	return m.base.FindOne(ctx, activeFilter(ref), nil)
}

func (m *mongoRestPeriods) FindByID(ctx context.Context, id primitive.ObjectID) (models.RestPeriod, error) {
	return m.base.FindOne(ctx, bson.M{"_id": id}, nil)
}

func (m *mongoRestPeriods) Close(ctx context.Context, id primitive.ObjectID, status string, at int64) (models.RestPeriod, error) {
	closed, err := m.base.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": models.RestStatusActive},
		basesvc.UpdateData{Set: map[string]interface{}{"status": status, "completedAt": at}},
		nil)
	if !errors.Is(err, common.ErrNotFound) {
		return closed, err
	}
	current, findErr := m.FindByID(ctx, id)
	if findErr != nil {
		return models.RestPeriod{}, findErr
	}
	return current, common.ErrInvalidState
}

func (m *mongoRestPeriods) ListLapsed(ctx context.Context, now int64) ([]models.RestPeriod, error) {
	return m.base.Find(ctx, bson.M{
		"status":       models.RestStatusActive,
		"resumePolicy": bson.M{"$ne": models.ResumeManual},
		"endAt":        bson.M{"$lte": now},
	}, options.Find().SetSort(bson.D{{Key: "endAt", Value: 1}}))
}

func (m *mongoRestPeriods) List(ctx context.Context, ref models.ScopeRef, status string) ([]models.RestPeriod, error) {
	filter := bson.M{"scope": ref.Scope, "scopeId": ref.ScopeID}
	if status != "" {
		filter["status"] = status
	}
	return m.base.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "startAt", Value: 1}}))
}
