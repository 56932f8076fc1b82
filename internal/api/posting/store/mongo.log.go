package postingstore

import (
	"context"

	basesvc "meta_posting/internal/api/base/service"
	"meta_posting/internal/api/posting/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoViolations struct {
	base *basesvc.BaseServiceMongoImpl[models.ViolationLog]
}

func (m *mongoViolations) Append(ctx context.Context, v models.ViolationLog) (models.ViolationLog, error) {
	return m.base.InsertOne(ctx, v)
}

func (m *mongoViolations) List(ctx context.Context, f ViolationFilter) ([]models.ViolationLog, error) {
	filter := bson.M{}
	if f.Scope != "" {
		filter["scope"] = f.Scope
	}
	if f.ScopeID != "" {
		filter["scopeId"] = f.ScopeID
	}
	if f.Code != "" {
		filter["code"] = f.Code
	}
	opts := options.Find().SetSort(bson.D{{Key: "eventTime", Value: -1}, {Key: "_id", Value: -1}})
	if f.Limit > 0 {
		opts.SetLimit(f.Limit)
	}
	return m.base.Find(ctx, filter, opts)
}

type mongoAnalytics struct {
	base *basesvc.BaseServiceMongoImpl[models.AnalyticsEvent]
}

func (m *mongoAnalytics) Append(ctx context.Context, e models.AnalyticsEvent) (models.AnalyticsEvent, error) {
	return m.base.InsertOne(ctx, e)
}

func (m *mongoAnalytics) List(ctx context.Context, eventType string, limit int64) ([]models.AnalyticsEvent, error) {
	filter := bson.M{}
	if eventType != "" {
		filter["type"] = eventType
	}
	opts := options.Find().SetSort(bson.D{{Key: "eventTime", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	return m.base.Find(ctx, filter, opts)
}
