// Package postingsvc chứa logic của posting engine: admission theo quota/rest period,
// planner phân bổ bài đăng, worker registry và job dispatcher
package postingsvc

import (
	"time"

	"meta_posting/config"
	"meta_posting/internal/analytics"
	postingstore "meta_posting/internal/api/posting/store"
)

// deps dùng chung giữa các service của engine
type deps struct {
	store  *postingstore.Store
	cfg    *config.Configuration
	events *EventRecorder
	appLoc *time.Location
	clock  func() time.Time
}

func (d *deps) now() time.Time { return d.clock() }

func (d *deps) conflictAttempts() int {
	if d.cfg.ConflictRetryAttempts <= 0 {
		return 1
	}
	return d.cfg.ConflictRetryAttempts
}

// Engine gom các service của posting engine trên cùng một store
type Engine struct {
	d *deps

	Store       *postingstore.Store
	Events      *EventRecorder
	Formulas    *FormulaService
	Groups      *GroupService
	Counters    *CounterService
	RestPeriods *RestPeriodService
	Admission   *AdmissionService
	Planner     *PlannerService
	Assignments *AssignmentService
	Registry    *WorkerRegistryService
	Dispatcher  *DispatcherService
}

// NewEngine khởi tạo engine; sink nil = không đẩy event ra ngoài
func NewEngine(store *postingstore.Store, cfg *config.Configuration, sink analytics.Sink) *Engine {
	if sink == nil {
		sink = analytics.NoopSink{}
	}
	d := &deps{
		store:  store,
		cfg:    cfg,
		appLoc: loadLocation(cfg.AppTimezone, time.UTC),
		clock:  time.Now,
	}
	d.events = &EventRecorder{store: store, sink: sink}

	e := &Engine{d: d, Store: store, Events: d.events}
	e.Formulas = &FormulaService{d: d}
	e.Groups = &GroupService{d: d, formulas: e.Formulas}
	e.Counters = &CounterService{d: d}
	e.RestPeriods = &RestPeriodService{d: d}
	e.Admission = &AdmissionService{d: d, formulas: e.Formulas, counters: e.Counters, rest: e.RestPeriods}
	e.Assignments = &AssignmentService{d: d}
	e.Planner = &PlannerService{d: d, formulas: e.Formulas, groups: e.Groups, admission: e.Admission}
	e.Registry = &WorkerRegistryService{d: d}
	e.Dispatcher = &DispatcherService{d: d, registry: e.Registry, assignments: e.Assignments, formulas: e.Formulas}
	return e
}

// SetClock thay nguồn thời gian (dùng trong test và khi replay)
func (e *Engine) SetClock(clock func() time.Time) {
	e.d.clock = clock
}

// AppLocation là timezone mặc định của ứng dụng
func (e *Engine) AppLocation() *time.Location {
	return e.d.appLoc
}

func ptr[T any](v T) *T { return &v }

// Now là thời điểm hiện tại theo clock của engine
func (e *Engine) Now() time.Time {
	return e.d.now()
}
