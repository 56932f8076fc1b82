package database

import (
	"context"

	"meta_posting/internal/global"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CreatePostingAdditionalIndexes tạo các index không khai báo được qua struct tag (partial, compound nhiều chiều).
// Gọi sau CreateIndexes cho từng collection.
func CreatePostingAdditionalIndexes(ctx context.Context, db *mongo.Database) error {
	cols := global.MongoDB_ColNames
	indexes := []struct {
		collection string
		model      mongo.IndexModel
	}{
		// Tối đa một rest period active cho mỗi (scope, scopeId)
		{cols.RestPeriods, mongo.IndexModel{
			Keys: bson.D{{Key: "scope", Value: 1}, {Key: "scopeId", Value: 1}},
			Options: options.Index().SetName("rest_period_active_unique").SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": "active"}),
		}},
		// Quét rest period hết hạn
		{cols.RestPeriods, mongo.IndexModel{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "endAt", Value: 1}},
			Options: options.Index().SetName("rest_period_status_end"),
		}},
		// GC counter đã hết cửa sổ
		{cols.LimitCounters, mongo.IndexModel{
			Keys:    bson.D{{Key: "windowEnd", Value: 1}},
			Options: options.Index().SetName("limit_counter_window_end"),
		}},
		// Timeout sweep: job đang chạy theo heartbeat
		{cols.WorkerJobs, mongo.IndexModel{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "lastHeartbeatAt", Value: 1}},
			Options: options.Index().SetName("worker_job_status_heartbeat"),
		}},
		// Retry dispatcher
		{cols.WorkerJobs, mongo.IndexModel{
			Keys:    bson.D{{Key: "retryable", Value: 1}, {Key: "nextRetryAt", Value: 1}},
			Options: options.Index().SetName("worker_job_retry_due"),
		}},
		// maxJobsPerHour / minJobInterval
		{cols.WorkerJobs, mongo.IndexModel{
			Keys:    bson.D{{Key: "workerId", Value: 1}, {Key: "platform", Value: 1}, {Key: "assignedAt", Value: -1}},
			Options: options.Index().SetName("worker_job_worker_platform_assigned"),
		}},
		// Violation log đọc theo scope mới nhất trước
		{cols.ViolationLogs, mongo.IndexModel{
			Keys:    bson.D{{Key: "scope", Value: 1}, {Key: "scopeId", Value: 1}, {Key: "eventTime", Value: -1}},
			Options: options.Index().SetName("violation_scope_time"),
		}},
		{cols.ScheduleAssignments, mongo.IndexModel{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "scheduledAt", Value: 1}},
			Options: options.Index().SetName("assignment_status_scheduled"),
		}},
	}

	for _, idx := range indexes {
		if _, err := db.Collection(idx.collection).Indexes().CreateOne(ctx, idx.model); err != nil && !isIndexExistsError(err) {
			return err
		}
	}
	return nil
}
