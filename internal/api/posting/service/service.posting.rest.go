package postingsvc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"meta_posting/internal/api/posting/models"
	"meta_posting/internal/common"
	"meta_posting/internal/logger"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RestPeriodService quản lý vòng đời rest period: none -> active -> completed | cancelled
type RestPeriodService struct {
	d *deps
}

// Blocking trả rest period đang chặn at, kiểm tra theo thứ tự chain (app -> group -> account)
func (s *RestPeriodService) Blocking(ctx context.Context, chain []models.ScopeRef, at int64) (*models.RestPeriod, error) {
	for _, ref := range chain {
		rp, err := s.d.store.RestPeriods.FindActive(ctx, ref)
		if errors.Is(err, common.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if rp.Blocks(at) {
			return &rp, nil
		}
	}
	return nil, nil
}

// MaybeOpen mở rest period cho scope khi usage cửa sổ ngày chạm ngưỡng restStrategy.
// Chỉ xét cửa sổ ngày.
func (s *RestPeriodService) MaybeOpen(ctx context.Context, scope models.ScopeRef, strategy models.RestStrategy, day models.LimitCounter, when time.Time) (*models.RestPeriod, error) {
	if !strategy.Enabled() || day.Limit <= 0 || day.Fraction() < strategy.Threshold {
		return nil, nil
	}
	policy := strategy.ResumePolicy
	if policy == "" {
		policy = models.ResumeAuto
	}
	startAt := when.UnixMilli()
	rp := models.RestPeriod{
		Scope:        scope.Scope,
		ScopeID:      scope.ScopeID,
		StartAt:      startAt,
		EndAt:        startAt + int64(strategy.RestDurationHours*float64(time.Hour/time.Millisecond)),
		Reason:       fmt.Sprintf("daily usage %d/%d reached threshold %.2f", day.Used, day.Limit, strategy.Threshold),
		ResumePolicy: policy,
	}

	for attempt := 0; attempt < 2; attempt++ {
		opened, created, err := s.d.store.RestPeriods.OpenIfAbsent(ctx, rp)
		if err != nil {
			return nil, err
		}
		if created {
			s.logOpened(ctx, opened)
			return &opened, nil
		}
		// Bản ghi active cũ đã hết hạn (auto) nhưng closer chưa chạy: đóng rồi mở lại
		if opened.ResumePolicy == models.ResumeAuto && opened.EndAt <= startAt {
			if _, err := s.close(ctx, opened.ID, models.RestStatusCompleted, startAt); err != nil && !errors.Is(err, common.ErrInvalidState) {
				return nil, err
			}
			continue
		}
		return &opened, nil
	}
	return nil, nil
}

// Open mở rest period thủ công; scope đã có rest period active trả ErrDuplicate
func (s *RestPeriodService) Open(ctx context.Context, rp models.RestPeriod) (models.RestPeriod, error) {
	if rp.EndAt <= rp.StartAt {
		return models.RestPeriod{}, common.WithDetails(common.ErrInvalidInput, "endAt must be after startAt")
	}
	if rp.ResumePolicy == "" {
		rp.ResumePolicy = models.ResumeManual
	}
	opened, err := s.d.store.RestPeriods.Open(ctx, rp)
	if err != nil {
		return models.RestPeriod{}, err
	}
	s.logOpened(ctx, opened)
	return opened, nil
}

// Resume kết thúc rest period (bắt buộc với resumePolicy=manual)
func (s *RestPeriodService) Resume(ctx context.Context, id primitive.ObjectID) (models.RestPeriod, error) {
	return s.close(ctx, id, models.RestStatusCompleted, s.d.now().UnixMilli())
}

// Cancel huỷ rest period bởi operator
func (s *RestPeriodService) Cancel(ctx context.Context, id primitive.ObjectID) (models.RestPeriod, error) {
	return s.close(ctx, id, models.RestStatusCancelled, s.d.now().UnixMilli())
}

// List liệt kê rest period của scope, status rỗng = mọi trạng thái
func (s *RestPeriodService) List(ctx context.Context, ref models.ScopeRef, status string) ([]models.RestPeriod, error) {
	return s.d.store.RestPeriods.List(ctx, ref, status)
}

// CloseLapsed đóng các rest period auto đã qua endAt
func (s *RestPeriodService) CloseLapsed(ctx context.Context, now time.Time) (int, error) {
	lapsed, err := s.d.store.RestPeriods.ListLapsed(ctx, now.UnixMilli())
	if err != nil {
		return 0, err
	}
	closed := 0
	for _, rp := range lapsed {
		if _, err := s.close(ctx, rp.ID, models.RestStatusCompleted, now.UnixMilli()); err != nil {
			if errors.Is(err, common.ErrInvalidState) {
				continue
			}
			return closed, err
		}
		closed++
	}
	return closed, nil
}

func (s *RestPeriodService) close(ctx context.Context, id primitive.ObjectID, status string, at int64) (models.RestPeriod, error) {
	rp, err := s.d.store.RestPeriods.Close(ctx, id, status, at)
	if err != nil {
		return rp, err
	}
	logger.WithContext(ctx).WithFields(logrus.Fields{
		"scope": rp.Scope, "scope_id": rp.ScopeID, "rest_period_id": rp.ID.Hex(), "status": status,
	}).Info("😴 [REST_PERIOD] Kết thúc rest period")
	s.d.events.Analytics(ctx, models.AnalyticsEvent{
		Type:      models.EventRestClosed,
		Status:    status,
		EventTime: at,
		Metadata:  map[string]interface{}{"scope": rp.Scope, "scopeId": rp.ScopeID, "restPeriodId": rp.ID.Hex()},
	})
	return rp, nil
}

func (s *RestPeriodService) logOpened(ctx context.Context, rp models.RestPeriod) {
	logger.WithContext(ctx).WithFields(logrus.Fields{
		"scope": rp.Scope, "scope_id": rp.ScopeID, "rest_period_id": rp.ID.Hex(),
		"end_at": rp.EndAt, "resume_policy": rp.ResumePolicy,
	}).Info("😴 [REST_PERIOD] Mở rest period")
	s.d.events.Analytics(ctx, models.AnalyticsEvent{
		Type:      models.EventRestOpened,
		Status:    models.RestStatusActive,
		EventTime: rp.StartAt,
		Metadata:  map[string]interface{}{"scope": rp.Scope, "scopeId": rp.ScopeID, "restPeriodId": rp.ID.Hex(), "reason": rp.Reason},
	})
}
