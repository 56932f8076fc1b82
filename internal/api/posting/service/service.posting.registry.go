package postingsvc

import (
	"context"
	"errors"
	"sort"
	"time"

	"meta_posting/internal/api/posting/models"
	"meta_posting/internal/common"
	"meta_posting/internal/logger"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// WorkerRegistryService theo dõi worker: đăng ký, heartbeat, trạng thái, lọc worker đủ điều kiện
type WorkerRegistryService struct {
	d *deps
}

var workerStatuses = map[string]bool{
	models.WorkerActive: true, models.WorkerPaused: true, models.WorkerMaintenance: true, models.WorkerFailed: true,
}

// Register đăng ký (hoặc đăng ký lại) worker; workerId rỗng thì sinh mới
func (s *WorkerRegistryService) Register(ctx context.Context, w models.Worker) (models.Worker, error) {
	if len(w.Capabilities) == 0 {
		return models.Worker{}, common.WithDetails(common.ErrInvalidInput, "capabilities are required")
	}
	if w.WorkerID == "" {
		w.WorkerID = uuid.NewString()
	}
	if w.Status == "" {
		w.Status = models.WorkerActive
	}
	if !workerStatuses[w.Status] {
		return models.Worker{}, common.WithDetails(common.ErrInvalidInput, map[string]interface{}{"status": w.Status})
	}
	if w.MaxConcurrentJobs <= 0 {
		w.MaxConcurrentJobs = 1
	}
	if len(w.Platforms) == 0 {
		seen := map[string]bool{}
		for _, c := range w.Capabilities {
			if !seen[c.Platform] {
				seen[c.Platform] = true
				w.Platforms = append(w.Platforms, c.Platform)
			}
		}
	}
	w.IsOnline = true
	w.LastHeartbeatAt = s.d.now().UnixMilli()

	saved, err := s.d.store.Workers.Upsert(ctx, w)
	if err != nil {
		return models.Worker{}, err
	}
	logger.WithContext(ctx).WithFields(logrus.Fields{
		"worker_id": saved.WorkerID, "platforms": saved.Platforms, "max_concurrent": saved.MaxConcurrentJobs,
	}).Info("🤖 [WORKER] Worker đăng ký")
	return saved, nil
}

// Heartbeat cập nhật health và làm mới heartbeat của các job đang chạy; worker lạ bị từ chối
func (s *WorkerRegistryService) Heartbeat(ctx context.Context, workerID string, health models.WorkerHealth) (models.Worker, error) {
	now := s.d.now().UnixMilli()
	w, err := s.d.store.Workers.Heartbeat(ctx, workerID, health, now)
	if errors.Is(err, common.ErrNotFound) {
		return models.Worker{}, common.WithDetails(common.ErrUnknownWorker, map[string]interface{}{"workerId": workerID})
	}
	if err != nil {
		return models.Worker{}, err
	}
	if len(health.ActiveJobIDs) > 0 {
		if err := s.d.store.Jobs.Touch(ctx, health.ActiveJobIDs, workerID, now); err != nil {
			return w, err
		}
	}
	return w, nil
}

// SetStatus đổi trạng thái worker (operator loại worker khỏi dispatch bằng paused / maintenance / failed)
func (s *WorkerRegistryService) SetStatus(ctx context.Context, workerID, status string) (models.Worker, error) {
	if !workerStatuses[status] {
		return models.Worker{}, common.WithDetails(common.ErrInvalidInput, map[string]interface{}{"status": status})
	}
	w, err := s.d.store.Workers.SetStatus(ctx, workerID, status)
	if errors.Is(err, common.ErrNotFound) {
		return models.Worker{}, common.WithDetails(common.ErrUnknownWorker, map[string]interface{}{"workerId": workerID})
	}
	return w, err
}

// Get lấy worker theo id
func (s *WorkerRegistryService) Get(ctx context.Context, workerID string) (models.Worker, error) {
	w, err := s.d.store.Workers.FindByID(ctx, workerID)
	if errors.Is(err, common.ErrNotFound) {
		return models.Worker{}, common.WithDetails(common.ErrUnknownWorker, map[string]interface{}{"workerId": workerID})
	}
	return w, err
}

// eligibleWorker là worker đủ điều kiện kèm capability khớp
type eligibleWorker struct {
	worker     models.Worker
	capability models.Capability
}

// ListEligible trả worker active, online, còn slot, có capability (platform, action) và đã qua minJobInterval.
// Thứ tự: currentLoad tăng dần, priority giảm dần, successRate giảm dần.
func (s *WorkerRegistryService) ListEligible(ctx context.Context, platform, action string) ([]models.Worker, error) {
	list, err := s.eligible(ctx, platform, action, s.d.now())
	if err != nil {
		return nil, err
	}
	out := make([]models.Worker, len(list))
	for i, e := range list {
		out[i] = e.worker
	}
	return out, nil
}

func (s *WorkerRegistryService) eligible(ctx context.Context, platform, action string, now time.Time) ([]eligibleWorker, error) {
	online, err := s.d.store.Workers.ListOnline(ctx, platform)
	if err != nil {
		return nil, err
	}
	nowMs := now.UnixMilli()
	var out []eligibleWorker
	for _, w := range online {
		c, ok := w.Capability(platform, action)
		if !ok || w.CurrentLoad >= w.SlotLimit(c) {
			continue
		}
		if last, ok := w.LastDispatchAt[platform]; ok && w.MinJobInterval > 0 && nowMs-last < w.MinJobInterval*1000 {
			continue
		}
		out = append(out, eligibleWorker{worker: w, capability: c})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].worker, out[j].worker
		if a.CurrentLoad != b.CurrentLoad {
			return a.CurrentLoad < b.CurrentLoad
		}
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if a.SuccessRate != b.SuccessRate {
			return a.SuccessRate > b.SuccessRate
		}
		return a.WorkerID < b.WorkerID
	})
	return out, nil
}

// MarkOffline đặt isOnline=false cho worker không gửi heartbeat trong WORKER_OFFLINE_SECONDS
func (s *WorkerRegistryService) MarkOffline(ctx context.Context, now time.Time) (int64, error) {
	before := now.Add(-time.Duration(s.d.cfg.WorkerOfflineSeconds) * time.Second).UnixMilli()
	return s.d.store.Workers.MarkOffline(ctx, before)
}
