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

// mongoCounters reserve bằng $inc có điều kiện used < limit trong transaction (cần replica set)
type mongoCounters struct {
	base *basesvc.BaseServiceMongoImpl[models.LimitCounter]
}

func counterFilter(k models.CounterKey) bson.M {
	return bson.M{
		"scope":       k.Scope,
		"scopeId":     k.ScopeID,
		"action":      k.Action,
		"window":      k.Window,
		"windowStart": k.WindowStart,
	}
}

// ensure tạo counter nếu chưa có; limit chỉ được ghi khi tạo mới
func (m *mongoCounters) ensure(ctx context.Context, r CounterRequest) error {
	_, err := m.base.Upsert(ctx, counterFilter(r.Key), basesvc.UpdateData{
		SetOnInsert: map[string]interface{}{
			"windowEnd": r.WindowEnd,
			"limit":     r.Limit,
			"used":      0,
		},
	})
	// Hai caller cùng upsert: một bên nhận duplicate key, counter vẫn đã tồn tại
	if err != nil && !errors.Is(err, common.ErrDuplicate) {
		return err
	}
	return nil
}

// errCounterFull huỷ transaction khi một cửa sổ đã đầy
var errCounterFull = errors.New("counter full")

// Reserve tạo counter còn thiếu ngoài transaction, sau đó tăng mọi counter trong một transaction.
// Một counter đầy làm abort transaction nên không cửa sổ nào bị tăng.
func (m *mongoCounters) Reserve(ctx context.Context, reqs []CounterRequest) (ReserveResult, error) {
	if len(reqs) == 0 {
		return ReserveResult{Approved: true}, nil
	}
	for _, r := range reqs {
		if err := m.ensure(ctx, r); err != nil {
			return ReserveResult{}, err
		}
	}

	session, err := m.base.Collection().Database().Client().StartSession()
	if err != nil {
		return ReserveResult{}, common.ConvertMongoError(err)
	}
	defer session.EndSession(ctx)

	coll := m.base.Collection()
	var violated *models.LimitCounter
	out, err := session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		violated = nil
		counters := make([]models.LimitCounter, 0, len(reqs))
		for _, r := range reqs {
			filter := counterFilter(r.Key)
			filter["$expr"] = bson.M{"$lt": bson.A{"$used", "$limit"}}
			// Gọi thẳng collection để giữ error label, WithTransaction tự retry lỗi transient
			var row models.LimitCounter
			err := coll.FindOneAndUpdate(sc, filter, bson.M{
				"$inc": bson.M{"used": 1},
				"$set": bson.M{"updatedAt": time.Now().UnixMilli()},
			}, options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&row)
			if errors.Is(err, mongo.ErrNoDocuments) {
				var full models.LimitCounter
				if getErr := coll.FindOne(sc, counterFilter(r.Key)).Decode(&full); getErr != nil {
					return nil, getErr
				}
				violated = &full
				return nil, errCounterFull
			}
			if err != nil {
				return nil, err
			}
			counters = append(counters, row)
		}
		return counters, nil
	})
	if errors.Is(err, errCounterFull) {
		return ReserveResult{Violated: violated}, nil
	}
	if err != nil {
		return ReserveResult{}, common.ConvertMongoError(err)
	}
	return ReserveResult{Approved: true, Counters: out.([]models.LimitCounter)}, nil
}

func (m *mongoCounters) Release(ctx context.Context, keys []models.CounterKey) error {
	for _, k := range keys {
		filter := counterFilter(k)
		filter["used"] = bson.M{"$gt": 0}
		_, err := m.base.FindOneAndUpdate(ctx, filter, basesvc.UpdateData{
			Inc: map[string]interface{}{"used": -1},
		}, nil)
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			return err
		}
	}
	return nil
}

func (m *mongoCounters) Get(ctx context.Context, key models.CounterKey) (models.LimitCounter, error) {
	return m.base.FindOne(ctx, counterFilter(key), nil)
}

func (m *mongoCounters) DeleteExpired(ctx context.Context, before int64) (int64, error) {
	return m.base.DeleteMany(ctx, bson.M{"windowEnd": bson.M{"$lte": before}})
}
