package postingsvc

import (
	"context"
	"time"

	"meta_posting/internal/api/posting/models"
	postingstore "meta_posting/internal/api/posting/store"
)

// Reservation là kết quả CheckAndReserve cho một scope
type Reservation struct {
	Scope    models.ScopeRef
	Approved bool
	Violated *models.LimitCounter
	Counters []models.LimitCounter
}

// Keys trả về khoá các counter đã tăng (để release khi scope sau từ chối)
func (r Reservation) Keys() []models.CounterKey {
	keys := make([]models.CounterKey, len(r.Counters))
	for i, c := range r.Counters {
		keys[i] = c.Key()
	}
	return keys
}

// DayCounter trả counter cửa sổ ngày trong reservation
func (r Reservation) DayCounter() (models.LimitCounter, bool) {
	for _, c := range r.Counters {
		if c.Window == models.WindowDay {
			return c, true
		}
	}
	return models.LimitCounter{}, false
}

// CounterService kiểm tra và giữ quota cho mọi scope bằng cùng một đường đi
type CounterService struct {
	d *deps
}

// CheckAndReserve tăng used của mọi cửa sổ có cap > 0 (hour -> year) hoặc không tăng gì.
// Khi bị từ chối, Violated là cửa sổ đầu tiên đã đầy.
func (s *CounterService) CheckAndReserve(ctx context.Context, scope models.ScopeRef, action string, when time.Time, caps models.Caps, loc *time.Location) (Reservation, error) {
	reqs := counterRequests(scope, action, when, caps, loc)
	if len(reqs) == 0 {
		return Reservation{Scope: scope, Approved: true}, nil
	}
	res, err := s.d.store.Counters.Reserve(ctx, reqs)
	if err != nil {
		return Reservation{}, err
	}
	return Reservation{Scope: scope, Approved: res.Approved, Violated: res.Violated, Counters: res.Counters}, nil
}

// Release trả lại quota đã giữ
func (s *CounterService) Release(ctx context.Context, reservations ...Reservation) error {
	for _, r := range reservations {
		if !r.Approved || len(r.Counters) == 0 {
			continue
		}
		if err := s.d.store.Counters.Release(ctx, r.Keys()); err != nil {
			return err
		}
	}
	return nil
}

// Usage đọc counter hiện hành của scope cho từng cửa sổ (counter hết hạn không được trả về)
func (s *CounterService) Usage(ctx context.Context, scope models.ScopeRef, action string, at time.Time, loc *time.Location) ([]models.LimitCounter, error) {
	out := make([]models.LimitCounter, 0, len(models.WindowOrder))
	for _, w := range models.WindowOrder {
		start, end := WindowBounds(w, at, loc)
		c, err := s.d.store.Counters.Get(ctx, models.CounterKey{
			Scope: scope.Scope, ScopeID: scope.ScopeID, Action: action, Window: w, WindowStart: start,
		})
		if err != nil || c.WindowEnd != end {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// DeleteExpired xoá counter có windowEnd <= now
func (s *CounterService) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return s.d.store.Counters.DeleteExpired(ctx, now.UnixMilli())
}

func counterRequests(scope models.ScopeRef, action string, when time.Time, caps models.Caps, loc *time.Location) []postingstore.CounterRequest {
	var reqs []postingstore.CounterRequest
	for _, w := range models.WindowOrder {
		limit := caps.For(w)
		if limit <= 0 {
			continue
		}
		start, end := WindowBounds(w, when, loc)
		reqs = append(reqs, postingstore.CounterRequest{
			Key: models.CounterKey{
				Scope: scope.Scope, ScopeID: scope.ScopeID, Action: action, Window: w, WindowStart: start,
			},
			WindowEnd: end,
			Limit:     limit,
		})
	}
	return reqs
}

// appCaps là quota toàn ứng dụng lấy từ cấu hình
func (d *deps) appCaps() models.Caps {
	return models.Caps{
		PerHour:  d.cfg.AppCapPerHour,
		PerDay:   d.cfg.AppCapPerDay,
		PerWeek:  d.cfg.AppCapPerWeek,
		PerMonth: d.cfg.AppCapPerMonth,
		PerYear:  d.cfg.AppCapPerYear,
	}
}
