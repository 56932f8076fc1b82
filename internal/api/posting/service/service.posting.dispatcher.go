package postingsvc

import (
	"context"
	"errors"
	"time"

	"meta_posting/internal/api/posting/models"
	"meta_posting/internal/common"
	"meta_posting/internal/logger"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Job outcome do worker báo về
const (
	OutcomeStarted   = "started"
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
)

// sweepBatch là số bản ghi tối đa mỗi lần quét (timeout, retry, due)
const sweepBatch int64 = 100

// JobReport là kết quả worker gửi về cho một job
type JobReport struct {
	WorkerID      string                 `json:"workerId,omitempty"`
	Outcome       string                 `json:"outcome" validate:"required,oneof=started completed failed"`
	Result        map[string]interface{} `json:"result,omitempty"`
	Error         string                 `json:"error,omitempty"`
	ExecutionTime int64                  `json:"executionTime,omitempty"` // ms
}

// DispatcherService chọn worker cho assignment đến giờ, theo dõi job và retry khi lỗi.
// Slot worker được reserve nguyên tử, không worker nào vượt maxConcurrentJobs.
type DispatcherService struct {
	d           *deps
	registry    *WorkerRegistryService
	assignments *AssignmentService
	formulas    *FormulaService
}

// Dispatch tạo job cho assignment của scheduled post; assignment đã có job thì trả job hiện tại
func (s *DispatcherService) Dispatch(ctx context.Context, postID primitive.ObjectID) (models.WorkerJob, error) {
	a, err := s.assignments.Get(ctx, postID)
	if err != nil {
		return models.WorkerJob{}, err
	}
	if a.CurrentJobID != "" {
		return s.d.store.Jobs.FindByID(ctx, a.CurrentJobID)
	}

	jobID := uuid.NewString()
	if a, err = s.assignments.claimJob(ctx, postID, jobID); err != nil {
		return models.WorkerJob{}, err
	}

	now := s.d.now()
	w, err := s.selectWorker(ctx, a.Platform, a.Action, now)
	if err != nil {
		if relErr := s.assignments.releaseJob(ctx, postID, jobID); relErr != nil {
			logger.WithContext(ctx).WithError(relErr).WithField("scheduled_post_id", postID.Hex()).
				Warn("📦 [DISPATCH] Không gỡ được job khỏi assignment")
		}
		return models.WorkerJob{}, err
	}

	nowMs := now.UnixMilli()
	job := models.WorkerJob{
		JobID:           jobID,
		WorkerID:        w.WorkerID,
		ScheduledPostID: postID.Hex(),
		Platform:        a.Platform,
		JobType:         a.Action,
		Priority:        w.Priority,
		Status:          models.JobAssigned,
		AssignedAt:      nowMs,
		LastHeartbeatAt: nowMs,
		MaxRetries:      s.d.cfg.JobMaxRetries,
		BackoffOnFail:   s.backoffFor(ctx, a.GroupID),
	}
	saved, err := s.d.store.Jobs.Insert(ctx, job)
	if err != nil {
		_ = s.d.store.Workers.ReleaseSlot(ctx, w.WorkerID)
		_ = s.assignments.releaseJob(ctx, postID, jobID)
		return models.WorkerJob{}, err
	}

	logger.WithContext(ctx).WithFields(logrus.Fields{
		"job_id": jobID, "worker_id": w.WorkerID, "scheduled_post_id": postID.Hex(), "platform": a.Platform,
	}).Info("📦 [DISPATCH] Đã giao job cho worker")
	s.event(ctx, models.EventJobDispatched, saved, nil)
	return saved, nil
}

// backoffFor đọc backoffOnFail từ formula của group, lỗi thì dùng backoff
func (s *DispatcherService) backoffFor(ctx context.Context, groupID primitive.ObjectID) bool {
	group, err := s.d.store.Groups.FindByID(ctx, groupID)
	if err != nil {
		return true
	}
	f, err := s.formulas.Resolve(ctx, group)
	if err != nil {
		return true
	}
	return f.BackoffOnFail
}

// selectWorker duyệt worker đủ điều kiện theo thứ tự ưu tiên và reserve slot của worker đầu tiên còn nhận được
func (s *DispatcherService) selectWorker(ctx context.Context, platform, action string, now time.Time) (models.Worker, error) {
	candidates, err := s.registry.eligible(ctx, platform, action, now)
	if err != nil {
		return models.Worker{}, err
	}
	nowMs := now.UnixMilli()
	for _, c := range candidates {
		w := c.worker
		if w.MaxJobsPerHour > 0 {
			n, err := s.d.store.Jobs.CountAssignedSince(ctx, w.WorkerID, now.Add(-time.Hour).UnixMilli())
			if err != nil {
				return models.Worker{}, err
			}
			if n >= int64(w.MaxJobsPerHour) {
				continue
			}
		}
		ok, err := s.d.store.Workers.TryReserveSlot(ctx, w.WorkerID, platform, w.SlotLimit(c.capability), nowMs)
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			return models.Worker{}, err
		}
		if ok {
			return w, nil
		}
	}
	return models.Worker{}, common.WithDetails(common.ErrNoEligibleWorker, map[string]interface{}{
		"platform": platform, "action": action, "candidates": len(candidates),
	})
}

// ReportJobResult nhận started / completed / failed từ worker.
// Kết quả đến sau khi job đã kết thúc (ví dụ đã timeout) trả ErrInvalidState và không đổi gì.
func (s *DispatcherService) ReportJobResult(ctx context.Context, jobID string, r JobReport) (models.WorkerJob, error) {
	job, err := s.d.store.Jobs.FindByID(ctx, jobID)
	if err != nil {
		return models.WorkerJob{}, err
	}
	if r.WorkerID != "" && r.WorkerID != job.WorkerID {
		return job, common.WithDetails(common.ErrInvalidOperation, map[string]interface{}{
			"jobId": jobID, "workerId": r.WorkerID, "assignedWorkerId": job.WorkerID,
		})
	}
	postID, err := primitive.ObjectIDFromHex(job.ScheduledPostID)
	if err != nil {
		return job, common.WithDetails(common.ErrInvalidFormat, map[string]interface{}{"scheduledPostId": job.ScheduledPostID})
	}
	nowMs := s.d.now().UnixMilli()

	switch r.Outcome {
	case OutcomeStarted:
		updated, err := s.d.store.Jobs.Transition(ctx, jobID, []string{models.JobAssigned}, models.JobPatch{
			Status: models.JobStarted, StartedAt: ptr(nowMs), LastHeartbeatAt: ptr(nowMs),
		})
		if err != nil {
			return updated, lateResult(err, jobID, updated.Status)
		}
		if _, err := s.assignments.Advance(ctx, postID, jobID, models.AssignmentExecuting, ""); err != nil {
			return updated, err
		}
		s.event(ctx, models.EventJobStarted, updated, nil)
		return updated, nil

	case OutcomeCompleted:
		updated, err := s.d.store.Jobs.Transition(ctx, jobID, []string{models.JobAssigned, models.JobStarted}, models.JobPatch{
			Status: models.JobCompleted, CompletedAt: ptr(nowMs), Result: r.Result, ExecutionTime: ptr(r.ExecutionTime),
		})
		if err != nil {
			return updated, lateResult(err, jobID, updated.Status)
		}
		s.finishSlot(ctx, updated, true)
		if _, err := s.assignments.Advance(ctx, postID, jobID, models.AssignmentCompleted, ""); err != nil {
			return updated, err
		}
		logger.WithContext(ctx).WithFields(logrus.Fields{
			"job_id": jobID, "worker_id": updated.WorkerID, "execution_ms": r.ExecutionTime,
		}).Info("✅ [DISPATCH] Job hoàn thành")
		s.event(ctx, models.EventJobCompleted, updated, nil)
		return updated, nil

	case OutcomeFailed:
		updated, err := s.d.store.Jobs.Transition(ctx, jobID, []string{models.JobAssigned, models.JobStarted}, models.JobPatch{
			Status: models.JobFailed, CompletedAt: ptr(nowMs), Error: ptr(r.Error), ExecutionTime: ptr(r.ExecutionTime),
		})
		if err != nil {
			return updated, lateResult(err, jobID, updated.Status)
		}
		s.finishSlot(ctx, updated, false)
		s.event(ctx, models.EventJobFailed, updated, map[string]interface{}{"error": r.Error})
		return s.handleRetry(ctx, updated, r.Error)
	}
	return job, common.WithDetails(common.ErrInvalidInput, map[string]interface{}{"outcome": r.Outcome})
}

func lateResult(err error, jobID, status string) error {
	if errors.Is(err, common.ErrInvalidState) {
		return common.WithDetails(common.ErrInvalidState, map[string]interface{}{"jobId": jobID, "status": status})
	}
	return err
}

// finishSlot trả slot cho worker và cập nhật successRate
func (s *DispatcherService) finishSlot(ctx context.Context, job models.WorkerJob, success bool) {
	log := logger.WithContext(ctx).WithFields(logrus.Fields{"job_id": job.JobID, "worker_id": job.WorkerID})
	if err := s.d.store.Workers.ReleaseSlot(ctx, job.WorkerID); err != nil {
		log.WithError(err).Warn("📦 [DISPATCH] Không trả được slot worker")
	}
	if err := s.d.store.Workers.RecordOutcome(ctx, job.WorkerID, success); err != nil {
		log.WithError(err).Warn("📦 [DISPATCH] Không cập nhật được thống kê worker")
	}
}

// retryDelay = base × 2^retryCount giây khi formula bật backoff, ngược lại retry ngay
func (s *DispatcherService) retryDelay(job models.WorkerJob) time.Duration {
	if !job.BackoffOnFail {
		return 0
	}
	base := time.Duration(s.d.cfg.RetryBackoffBaseSeconds) * time.Second
	return base << uint(job.RetryCount)
}

// handleRetry quyết định job failed/timeout được retry hay kết thúc.
// Assignment đã yêu cầu huỷ thì không retry.
func (s *DispatcherService) handleRetry(ctx context.Context, job models.WorkerJob, reason string) (models.WorkerJob, error) {
	postID, err := primitive.ObjectIDFromHex(job.ScheduledPostID)
	if err != nil {
		return job, err
	}
	a, err := s.assignments.Get(ctx, postID)
	if err != nil {
		return job, err
	}
	log := logger.WithContext(ctx).WithFields(logrus.Fields{
		"job_id": job.JobID, "scheduled_post_id": job.ScheduledPostID, "retry_count": job.RetryCount, "max_retries": job.MaxRetries,
	})

	if a.CancelRequested {
		final, err := s.terminate(ctx, job)
		if err != nil {
			return final, err
		}
		_, err = s.assignments.Advance(ctx, postID, job.JobID, models.AssignmentFailed, "cancelled")
		log.Info("🛑 [DISPATCH] Assignment đã yêu cầu huỷ, không retry")
		return final, err
	}

	if job.RetryCount >= job.MaxRetries {
		if reason == "" {
			reason = job.Status
		}
		final, err := s.terminate(ctx, job)
		if err != nil {
			return final, err
		}
		_, err = s.assignments.Advance(ctx, postID, job.JobID, models.AssignmentFailed, reason)
		log.WithField("reason", reason).Warn("❌ [DISPATCH] Hết lượt retry, job kết thúc ở failed")
		return final, err
	}

	delay := s.retryDelay(job)
	next := s.d.now().Add(delay).UnixMilli()
	updated, err := s.d.store.Jobs.Transition(ctx, job.JobID, []string{models.JobFailed, models.JobTimeout}, models.JobPatch{
		RetryCount: ptr(job.RetryCount + 1), Retryable: ptr(true), NextRetryAt: ptr(next),
	})
	if err != nil {
		return updated, err
	}
	log.WithField("delay", delay.String()).Info("🔁 [DISPATCH] Đã lên lịch retry")
	s.event(ctx, models.EventJobRetry, updated, map[string]interface{}{"nextRetryAt": next})

	if delay > 0 {
		return updated, nil
	}
	redone, err := s.redispatch(ctx, updated)
	if errors.Is(err, common.ErrNoEligibleWorker) {
		// Để lại cho vòng quét retry
		return updated, nil
	}
	return redone, err
}

// terminate chuyển job failed/timeout sang failed không retry được (trạng thái kết thúc)
func (s *DispatcherService) terminate(ctx context.Context, job models.WorkerJob) (models.WorkerJob, error) {
	return s.d.store.Jobs.Transition(ctx, job.JobID, []string{models.JobFailed, models.JobTimeout}, models.JobPatch{
		Status: models.JobFailed, Retryable: ptr(false), NextRetryAt: ptr(int64(0)),
	})
}

// redispatch giao lại job đang chờ retry cho một worker
func (s *DispatcherService) redispatch(ctx context.Context, job models.WorkerJob) (models.WorkerJob, error) {
	postID, err := primitive.ObjectIDFromHex(job.ScheduledPostID)
	if err != nil {
		return job, err
	}
	a, err := s.assignments.Get(ctx, postID)
	if err != nil {
		return job, err
	}
	if a.CancelRequested || a.CurrentJobID != job.JobID || models.IsTerminalAssignment(a.Status) {
		updated, err := s.terminate(ctx, job)
		if err != nil {
			return updated, err
		}
		if a.CancelRequested {
			_, err = s.assignments.Advance(ctx, postID, job.JobID, models.AssignmentFailed, "cancelled")
		}
		return updated, err
	}

	now := s.d.now()
	w, err := s.selectWorker(ctx, job.Platform, job.JobType, now)
	if err != nil {
		return job, err
	}
	nowMs := now.UnixMilli()
	updated, err := s.d.store.Jobs.Transition(ctx, job.JobID, []string{models.JobFailed, models.JobTimeout}, models.JobPatch{
		Status: models.JobAssigned, WorkerID: ptr(w.WorkerID), AssignedAt: ptr(nowMs), LastHeartbeatAt: ptr(nowMs),
		StartedAt: ptr(int64(0)), CompletedAt: ptr(int64(0)), Retryable: ptr(false), NextRetryAt: ptr(int64(0)),
	})
	if err != nil {
		// Tiến trình khác đã giao lại job này
		_ = s.d.store.Workers.ReleaseSlot(ctx, w.WorkerID)
		return updated, err
	}
	logger.WithContext(ctx).WithFields(logrus.Fields{
		"job_id": job.JobID, "worker_id": w.WorkerID, "retry_count": updated.RetryCount,
	}).Info("🔁 [DISPATCH] Đã giao lại job")
	s.event(ctx, models.EventJobDispatched, updated, map[string]interface{}{"retry": true})
	return updated, nil
}

// SweepTimeouts chuyển job không có heartbeat quá JOB_TIMEOUT_SECONDS sang timeout rồi xử lý retry
func (s *DispatcherService) SweepTimeouts(ctx context.Context, now time.Time) (int, error) {
	before := now.Add(-time.Duration(s.d.cfg.JobTimeoutSeconds) * time.Second).UnixMilli()
	stale, err := s.d.store.Jobs.ListStale(ctx, before, sweepBatch)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, j := range stale {
		updated, err := s.d.store.Jobs.Transition(ctx, j.JobID, []string{models.JobAssigned, models.JobStarted}, models.JobPatch{
			Status: models.JobTimeout, CompletedAt: ptr(now.UnixMilli()), Error: ptr("heartbeat timeout"),
		})
		if errors.Is(err, common.ErrInvalidState) {
			continue
		}
		if err != nil {
			return n, err
		}
		n++
		s.finishSlot(ctx, updated, false)
		logger.WithContext(ctx).WithFields(logrus.Fields{
			"job_id": j.JobID, "worker_id": j.WorkerID, "last_heartbeat_at": j.LastHeartbeatAt,
		}).Warn("⏱️ [DISPATCH] Job timeout")
		s.event(ctx, models.EventJobTimeout, updated, nil)
		if _, err := s.handleRetry(ctx, updated, "timeout"); err != nil {
			logger.WithContext(ctx).WithError(err).WithField("job_id", j.JobID).Error("⏱️ [DISPATCH] Xử lý retry sau timeout thất bại")
		}
	}
	return n, nil
}

// ProcessDueRetries giao lại các job chờ retry đã đến nextRetryAt
func (s *DispatcherService) ProcessDueRetries(ctx context.Context, now time.Time) (int, error) {
	due, err := s.d.store.Jobs.ListRetryDue(ctx, now.UnixMilli(), sweepBatch)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, j := range due {
		updated, err := s.redispatch(ctx, j)
		switch {
		case errors.Is(err, common.ErrNoEligibleWorker):
			logger.WithContext(ctx).WithField("job_id", j.JobID).Debug("🔁 [DISPATCH] Chưa có worker cho job retry")
		case errors.Is(err, common.ErrInvalidState):
		case err != nil:
			return n, err
		case updated.Status == models.JobAssigned:
			n++
		}
	}
	return n, nil
}

// DispatchDue tạo job cho các assignment đã đến giờ
func (s *DispatcherService) DispatchDue(ctx context.Context, limit int64) (int, error) {
	if limit <= 0 {
		limit = sweepBatch
	}
	due, err := s.assignments.ListDue(ctx, limit)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, a := range due {
		_, err := s.Dispatch(ctx, a.ScheduledPostID)
		switch {
		case errors.Is(err, common.ErrNoEligibleWorker), errors.Is(err, common.ErrInvalidState):
		case err != nil:
			return n, err
		default:
			n++
		}
	}
	return n, nil
}

// GetJob lấy job theo id
func (s *DispatcherService) GetJob(ctx context.Context, jobID string) (models.WorkerJob, error) {
	return s.d.store.Jobs.FindByID(ctx, jobID)
}

func (s *DispatcherService) event(ctx context.Context, eventType string, j models.WorkerJob, meta map[string]interface{}) {
	s.d.events.Analytics(ctx, models.AnalyticsEvent{
		Type:            eventType,
		WorkerID:        j.WorkerID,
		JobID:           j.JobID,
		ScheduledPostID: j.ScheduledPostID,
		Platform:        j.Platform,
		Status:          j.Status,
		ExecutionTime:   j.ExecutionTime,
		RetryCount:      j.RetryCount,
		EventTime:       s.d.now().UnixMilli(),
		Metadata:        meta,
	})
}
