package postingstore

import (
	"context"
	"errors"

	basesvc "meta_posting/internal/api/base/service"
	"meta_posting/internal/api/posting/models"
	"meta_posting/internal/common"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoJobs struct {
	base *basesvc.BaseServiceMongoImpl[models.WorkerJob]
}

func (m *mongoJobs) Insert(ctx context.Context, j models.WorkerJob) (models.WorkerJob, error) {
	return m.base.InsertOne(ctx, j)
}

func (m *mongoJobs) FindByID(ctx context.Context, jobID string) (models.WorkerJob, error) {
	return m.base.FindOne(ctx, bson.M{"jobId": jobID}, nil)
}

func jobPatchSet(p models.JobPatch) map[string]interface{} {
	set := map[string]interface{}{}
	if p.Status != "" {
		set["status"] = p.Status
	}
	if p.WorkerID != nil {
		set["workerId"] = *p.WorkerID
	}
	if p.AssignedAt != nil {
		set["assignedAt"] = *p.AssignedAt
	}
	if p.StartedAt != nil {
		set["startedAt"] = *p.StartedAt
	}
	if p.CompletedAt != nil {
		set["completedAt"] = *p.CompletedAt
	}
	if p.LastHeartbeatAt != nil {
		set["lastHeartbeatAt"] = *p.LastHeartbeatAt
	}
	if p.Result != nil {
		set["result"] = p.Result
	}
	if p.Error != nil {
		set["error"] = *p.Error
	}
	if p.ExecutionTime != nil {
		set["executionTime"] = *p.ExecutionTime
	}
	if p.RetryCount != nil {
		set["retryCount"] = *p.RetryCount
	}
	if p.Retryable != nil {
		set["retryable"] = *p.Retryable
	}
	if p.NextRetryAt != nil {
		set["nextRetryAt"] = *p.NextRetryAt
	}
	return set
}

func (m *mongoJobs) Transition(ctx context.Context, jobID string, from []string, patch models.JobPatch) (models.WorkerJob, error) {
	updated, err := m.base.FindOneAndUpdate(ctx,
		bson.M{"jobId": jobID, "status": bson.M{"$in": from}},
		basesvc.UpdateData{Set: jobPatchSet(patch)},
		nil)
	if !errors.Is(err, common.ErrNotFound) {
		return updated, err
	}
	current, findErr := m.FindByID(ctx, jobID)
	if findErr != nil {
		return models.WorkerJob{}, findErr
	}
	return current, common.ErrInvalidState
}

func (m *mongoJobs) Touch(ctx context.Context, jobIDs []string, workerID string, at int64) error {
	if len(jobIDs) == 0 {
		return nil
	}
	_, err := m.base.UpdateMany(ctx, bson.M{
		"jobId":           bson.M{"$in": jobIDs},
		"workerId":        workerID,
		"status":          bson.M{"$in": bson.A{models.JobAssigned, models.JobStarted}},
		"lastHeartbeatAt": bson.M{"$lt": at},
	}, basesvc.UpdateData{Set: map[string]interface{}{"lastHeartbeatAt": at}})
	return err
}

func (m *mongoJobs) CountAssignedSince(ctx context.Context, workerID string, since int64) (int64, error) {
	return m.base.CountDocuments(ctx, bson.M{"workerId": workerID, "assignedAt": bson.M{"$gte": since}})
}

func (m *mongoJobs) ListStale(ctx context.Context, before int64, limit int64) ([]models.WorkerJob, error) {
	opts := options.Find().SetSort(bson.D{{Key: "lastHeartbeatAt", Value: 1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	return m.base.Find(ctx, bson.M{
		"status":          bson.M{"$in": bson.A{models.JobAssigned, models.JobStarted}},
		"lastHeartbeatAt": bson.M{"$lt": before},
	}, opts)
}

func (m *mongoJobs) ListRetryDue(ctx context.Context, now int64, limit int64) ([]models.WorkerJob, error) {
	opts := options.Find().SetSort(bson.D{{Key: "nextRetryAt", Value: 1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	return m.base.Find(ctx, bson.M{
		"retryable":   true,
		"nextRetryAt": bson.M{"$lte": now},
	}, opts)
}
