package postingstore

import (
	"context"
	"errors"
	"time"

	basesvc "meta_posting/internal/api/base/service"
	"meta_posting/internal/api/posting/models"
	"meta_posting/internal/common"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mongoWorkers giữ currentLoad trên document worker, chỉ đổi bằng $inc có điều kiện
type mongoWorkers struct {
	base *basesvc.BaseServiceMongoImpl[models.Worker]
}

func (m *mongoWorkers) Upsert(ctx context.Context, w models.Worker) (models.Worker, error) {
	return m.base.Upsert(ctx, bson.M{"workerId": w.WorkerID}, basesvc.UpdateData{
		Set: map[string]interface{}{
			"name":              w.Name,
			"platforms":         w.Platforms,
			"capabilities":      w.Capabilities,
			"maxConcurrentJobs": w.MaxConcurrentJobs,
			"minJobInterval":    w.MinJobInterval,
			"maxJobsPerHour":    w.MaxJobsPerHour,
			"status":            w.Status,
			"isOnline":          w.IsOnline,
			"priority":          w.Priority,
			"lastHeartbeatAt":   w.LastHeartbeatAt,
			"health":            w.Health,
		},
		SetOnInsert: map[string]interface{}{
			"currentLoad":    0,
			"successRate":    0.0,
			"totalCompleted": 0,
			"totalFailed":    0,
		},
	})
}

func (m *mongoWorkers) FindByID(ctx context.Context, workerID string) (models.Worker, error) {
	return m.base.FindOne(ctx, bson.M{"workerId": workerID}, nil)
}

func (m *mongoWorkers) Heartbeat(ctx context.Context, workerID string, health models.WorkerHealth, at int64) (models.Worker, error) {
	return m.base.FindOneAndUpdate(ctx, bson.M{"workerId": workerID}, basesvc.UpdateData{
		Set: map[string]interface{}{"health": health, "lastHeartbeatAt": at, "isOnline": true},
	}, nil)
}

func (m *mongoWorkers) SetStatus(ctx context.Context, workerID, status string) (models.Worker, error) {
	return m.base.FindOneAndUpdate(ctx, bson.M{"workerId": workerID}, basesvc.UpdateData{
		Set: map[string]interface{}{"status": status},
	}, nil)
}

func (m *mongoWorkers) ListOnline(ctx context.Context, platform string) ([]models.Worker, error) {
	return m.base.Find(ctx, bson.M{
		"status":    models.WorkerActive,
		"isOnline":  true,
		"platforms": platform,
	}, options.Find().SetSort(bson.D{{Key: "currentLoad", Value: 1}, {Key: "priority", Value: -1}}))
}

// TryReserveSlot tăng currentLoad trong cùng câu lệnh kiểm tra limit và minJobInterval
func (m *mongoWorkers) TryReserveSlot(ctx context.Context, workerID, platform string, limit int, now int64) (bool, error) {
	lastField := "lastDispatchAt." + platform
	filter := bson.M{
		"workerId": workerID,
		"status":   models.WorkerActive,
		"isOnline": true,
		"$expr": bson.M{"$and": bson.A{
			bson.M{"$lt": bson.A{"$currentLoad", limit}},
			bson.M{"$lte": bson.A{
				bson.M{"$ifNull": bson.A{"$" + lastField, 0}},
				bson.M{"$subtract": bson.A{now, bson.M{"$multiply": bson.A{bson.M{"$ifNull": bson.A{"$minJobInterval", 0}}, 1000}}}},
			}},
		}},
	}
	_, err := m.base.FindOneAndUpdate(ctx, filter, basesvc.UpdateData{
		Set: map[string]interface{}{lastField: now},
		Inc: map[string]interface{}{"currentLoad": 1},
	}, nil)
	if errors.Is(err, common.ErrNotFound) {
		ok, existErr := exists(ctx, m.base, bson.M{"workerId": workerID})
		if existErr != nil {
			return false, existErr
		}
		if !ok {
			return false, common.ErrNotFound
		}
		return false, nil
	}
	return err == nil, err
}

func (m *mongoWorkers) ReleaseSlot(ctx context.Context, workerID string) error {
	_, err := m.base.FindOneAndUpdate(ctx,
		bson.M{"workerId": workerID, "currentLoad": bson.M{"$gt": 0}},
		basesvc.UpdateData{Inc: map[string]interface{}{"currentLoad": -1}},
		nil)
	if errors.Is(err, common.ErrNotFound) {
		return nil
	}
	return err
}

// RecordOutcome cập nhật tổng số và successRate trong một pipeline update
func (m *mongoWorkers) RecordOutcome(ctx context.Context, workerID string, success bool) error {
	completed, failed := 0, 1
	if success {
		completed, failed = 1, 0
	}
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"totalCompleted": bson.M{"$add": bson.A{bson.M{"$ifNull": bson.A{"$totalCompleted", 0}}, completed}},
			"totalFailed":    bson.M{"$add": bson.A{bson.M{"$ifNull": bson.A{"$totalFailed", 0}}, failed}},
			"updatedAt":      time.Now().UnixMilli(),
		}}},
		{{Key: "$set", Value: bson.M{
			"successRate": bson.M{"$divide": bson.A{"$totalCompleted", bson.M{"$add": bson.A{"$totalCompleted", "$totalFailed"}}}},
		}}},
	}
	res, err := m.base.Collection().UpdateOne(ctx, bson.M{"workerId": workerID}, pipeline)
	if err != nil {
		return common.ConvertMongoError(err)
	}
	if res.MatchedCount == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (m *mongoWorkers) MarkOffline(ctx context.Context, before int64) (int64, error) {
	return m.base.UpdateMany(ctx,
		bson.M{"isOnline": true, "lastHeartbeatAt": bson.M{"$lt": before}},
		basesvc.UpdateData{Set: map[string]interface{}{"isOnline": false}})
}
