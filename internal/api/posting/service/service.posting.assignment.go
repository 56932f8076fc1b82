package postingsvc

import (
	"context"
	"errors"

	"meta_posting/internal/api/posting/models"
	"meta_posting/internal/common"
	"meta_posting/internal/logger"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AssignmentService đổi trạng thái assignment bằng compare-and-swap trên lockVersion.
// Trạng thái chỉ đi tới: assigned -> executing -> {completed, failed}, assigned -> cancelled.
type AssignmentService struct {
	d *deps
}

// errStop dừng vòng CAS mà không đổi gì
var errStop = errors.New("stop")

// mutate đọc assignment, để fn quyết định patch rồi CAS; lệch version thì đọc lại (có giới hạn)
func (s *AssignmentService) mutate(ctx context.Context, postID primitive.ObjectID, fn func(a models.ScheduleAssignment) (models.AssignmentPatch, error)) (models.ScheduleAssignment, error) {
	for attempt := 0; attempt < s.d.conflictAttempts(); attempt++ {
		a, err := s.d.store.Assignments.FindByPost(ctx, postID)
		if err != nil {
			return models.ScheduleAssignment{}, err
		}
		patch, err := fn(a)
		if errors.Is(err, errStop) {
			return a, nil
		}
		if err != nil {
			return a, err
		}
		updated, err := s.d.store.Assignments.CompareAndSwap(ctx, postID, a.LockVersion, patch)
		if errors.Is(err, common.ErrVersionConflict) {
			continue
		}
		return updated, err
	}
	return models.ScheduleAssignment{}, common.ErrVersionConflict
}

// Get lấy assignment theo scheduled post
func (s *AssignmentService) Get(ctx context.Context, postID primitive.ObjectID) (models.ScheduleAssignment, error) {
	return s.d.store.Assignments.FindByPost(ctx, postID)
}

// Cancel huỷ assignment khi còn assigned; khi executing chỉ đặt cancelRequested
func (s *AssignmentService) Cancel(ctx context.Context, postID primitive.ObjectID) (models.ScheduleAssignment, error) {
	return s.mutate(ctx, postID, func(a models.ScheduleAssignment) (models.AssignmentPatch, error) {
		switch a.Status {
		case models.AssignmentAssigned:
			return models.AssignmentPatch{Status: ptr(models.AssignmentCancelled), CancelRequested: ptr(true)}, nil
		case models.AssignmentExecuting:
			if a.CancelRequested {
				return models.AssignmentPatch{}, errStop
			}
			return models.AssignmentPatch{CancelRequested: ptr(true)}, nil
		default:
			return models.AssignmentPatch{}, common.WithDetails(common.ErrInvalidState, map[string]interface{}{
				"scheduledPostId": postID.Hex(), "status": a.Status,
			})
		}
	})
}

// Advance đưa assignment tới target, đi qua executing khi cần.
// jobID khác rỗng: chỉ áp khi assignment vẫn thuộc job đó, kết quả của job cũ bị bỏ qua.
func (s *AssignmentService) Advance(ctx context.Context, postID primitive.ObjectID, jobID, target, reason string) (models.ScheduleAssignment, error) {
	var current models.ScheduleAssignment
	for step := 0; step < 2; step++ {
		reached := false
		a, err := s.mutate(ctx, postID, func(a models.ScheduleAssignment) (models.AssignmentPatch, error) {
			if (jobID != "" && a.CurrentJobID != jobID) || a.Status == target || models.IsTerminalAssignment(a.Status) {
				reached = true
				return models.AssignmentPatch{}, errStop
			}
			next := target
			if !models.CanTransitionAssignment(a.Status, target) {
				if !models.CanTransitionAssignment(a.Status, models.AssignmentExecuting) {
					return models.AssignmentPatch{}, common.WithDetails(common.ErrInvalidState, map[string]interface{}{
						"scheduledPostId": postID.Hex(), "from": a.Status, "to": target,
					})
				}
				next = models.AssignmentExecuting
			}
			reached = next == target
			patch := models.AssignmentPatch{Status: ptr(next)}
			if next == models.AssignmentFailed && reason != "" {
				patch.FailureReason = ptr(reason)
			}
			return patch, nil
		})
		if err != nil {
			return a, err
		}
		current = a
		if reached {
			break
		}
	}
	if current.Status == target {
		logger.WithContext(ctx).WithFields(logrus.Fields{
			"scheduled_post_id": postID.Hex(), "status": target, "job_id": jobID,
		}).Debug("📌 [ASSIGNMENT] Chuyển trạng thái")
	}
	return current, nil
}

// claimJob gắn jobID vào assignment đang chờ dispatch
func (s *AssignmentService) claimJob(ctx context.Context, postID primitive.ObjectID, jobID string) (models.ScheduleAssignment, error) {
	return s.mutate(ctx, postID, func(a models.ScheduleAssignment) (models.AssignmentPatch, error) {
		if a.Status != models.AssignmentAssigned || a.CancelRequested || a.CurrentJobID != "" {
			return models.AssignmentPatch{}, common.WithDetails(common.ErrInvalidState, map[string]interface{}{
				"scheduledPostId": postID.Hex(), "status": a.Status, "currentJobId": a.CurrentJobID,
			})
		}
		return models.AssignmentPatch{CurrentJobID: ptr(jobID)}, nil
	})
}

// releaseJob gỡ jobID khi dispatch không thành
func (s *AssignmentService) releaseJob(ctx context.Context, postID primitive.ObjectID, jobID string) error {
	_, err := s.mutate(ctx, postID, func(a models.ScheduleAssignment) (models.AssignmentPatch, error) {
		if a.CurrentJobID != jobID {
			return models.AssignmentPatch{}, errStop
		}
		return models.AssignmentPatch{CurrentJobID: ptr("")}, nil
	})
	return err
}

// ListDue trả assignment đến giờ mà chưa có job
func (s *AssignmentService) ListDue(ctx context.Context, limit int64) ([]models.ScheduleAssignment, error) {
	return s.d.store.Assignments.ListDue(ctx, s.d.now().UnixMilli(), limit)
}
