package postingsvc

import (
	"context"

	"meta_posting/internal/analytics"
	"meta_posting/internal/api/posting/models"
	postingstore "meta_posting/internal/api/posting/store"
	"meta_posting/internal/logger"

	"github.com/sirupsen/logrus"
)

// EventRecorder ghi violation / analytics vào store rồi đẩy sang sink
type EventRecorder struct {
	store *postingstore.Store
	sink  analytics.Sink
}

// Violation ghi một dòng violation log; lỗi store được trả về, lỗi sink chỉ log
func (r *EventRecorder) Violation(ctx context.Context, v models.ViolationLog) (models.ViolationLog, error) {
	saved, err := r.store.Violations.Append(ctx, v)
	if err != nil {
		return models.ViolationLog{}, err
	}
	r.publish(ctx, saved.ScopeID, analytics.Message{Kind: "violation", EventTime: saved.EventTime, Payload: saved})
	return saved, nil
}

// Analytics ghi event analytics, lỗi chỉ được log
func (r *EventRecorder) Analytics(ctx context.Context, e models.AnalyticsEvent) {
	saved, err := r.store.Analytics.Append(ctx, e)
	if err != nil {
		logger.WithContext(ctx).WithError(err).WithField("type", e.Type).Error("📊 [ANALYTICS] Không ghi được analytics event")
		return
	}
	key := saved.JobID
	if key == "" {
		key = saved.ScheduledPostID
	}
	r.publish(ctx, key, analytics.Message{Kind: "analytics", EventTime: saved.EventTime, Payload: saved})
}

func (r *EventRecorder) publish(ctx context.Context, key string, msg analytics.Message) {
	if err := r.sink.Publish(ctx, key, msg); err != nil {
		logger.WithContext(ctx).WithFields(logrus.Fields{"kind": msg.Kind, "key": key}).WithError(err).
			Warn("📊 [ANALYTICS] Không đẩy được event ra sink")
	}
}

// defaultListLimit giới hạn số dòng log trả về khi caller không chỉ định
const defaultListLimit int64 = 100

// ListViolations đọc violation log mới nhất theo filter
func (r *EventRecorder) ListViolations(ctx context.Context, f postingstore.ViolationFilter) ([]models.ViolationLog, error) {
	if f.Limit <= 0 || f.Limit > 1000 {
		f.Limit = defaultListLimit
	}
	return r.store.Violations.List(ctx, f)
}

// ListAnalytics đọc analytics event mới nhất, eventType rỗng = mọi loại
func (r *EventRecorder) ListAnalytics(ctx context.Context, eventType string, limit int64) ([]models.AnalyticsEvent, error) {
	if limit <= 0 || limit > 1000 {
		limit = defaultListLimit
	}
	return r.store.Analytics.List(ctx, eventType, limit)
}
