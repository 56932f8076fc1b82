// Package postingstore định nghĩa repository cho posting engine cùng hai backend:
// MemoryStore (test, chạy đơn lẻ) và MongoStore (production, dùng transaction / conditional update).
package postingstore

import (
	"context"

	"meta_posting/internal/api/posting/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CounterRequest là một cửa sổ cần reserve
type CounterRequest struct {
	Key       models.CounterKey
	WindowEnd int64
	Limit     int // chỉ dùng khi tạo counter mới
}

// ReserveResult là kết quả reserve all-or-nothing
type ReserveResult struct {
	Approved bool
	// Violated là counter đầy đầu tiên theo thứ tự request (khi bị từ chối)
	Violated *models.LimitCounter
	// Counters là trạng thái sau khi tăng (khi được duyệt)
	Counters []models.LimitCounter
}

// CounterRepository lưu limit counter
type CounterRepository interface {
	// Reserve tăng used của mọi request trong một thao tác nguyên tử, hoặc không tăng gì
	Reserve(ctx context.Context, reqs []CounterRequest) (ReserveResult, error)
	// Release giảm used (bù trừ khi scope sau từ chối), không xuống dưới 0
	Release(ctx context.Context, keys []models.CounterKey) error
	Get(ctx context.Context, key models.CounterKey) (models.LimitCounter, error)
	DeleteExpired(ctx context.Context, before int64) (int64, error)
}

// FormulaRepository lưu posting formula
type FormulaRepository interface {
	Insert(ctx context.Context, f models.PostingFormula) (models.PostingFormula, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (models.PostingFormula, error)
	FindByName(ctx context.Context, name string) (models.PostingFormula, error)
	FindSystemDefault(ctx context.Context) (models.PostingFormula, error)
	Replace(ctx context.Context, f models.PostingFormula) (models.PostingFormula, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context) ([]models.PostingFormula, error)
}

// GroupRepository lưu account group
type GroupRepository interface {
	Insert(ctx context.Context, g models.AccountGroup) (models.AccountGroup, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (models.AccountGroup, error)
	SetFormula(ctx context.Context, id primitive.ObjectID, formulaID *primitive.ObjectID) error
	RecordPost(ctx context.Context, id primitive.ObjectID, at int64) error
}

// GroupAccountRepository lưu liên kết group - account
type GroupAccountRepository interface {
	// Insert trả ErrDuplicate nếu cặp (group, account) đã tồn tại
	Insert(ctx context.Context, ga models.GroupAccount) (models.GroupAccount, error)
	Find(ctx context.Context, groupID, accountID primitive.ObjectID) (models.GroupAccount, error)
	ListByGroup(ctx context.Context, groupID primitive.ObjectID) ([]models.GroupAccount, error)
	ListByAccount(ctx context.Context, accountID primitive.ObjectID) ([]models.GroupAccount, error)
}

// AccountRepository là account directory
type AccountRepository interface {
	Insert(ctx context.Context, a models.SocialAccount) (models.SocialAccount, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (models.SocialAccount, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.SocialAccount, error)
	// TouchLastPost đặt lastPostAt = max(lastPostAt, at) khi không có bài nào cách at dưới minGapMs.
	// Trả false (không cập nhật) nếu điều kiện gap không thoả; minGapMs <= 0 luôn cập nhật.
	TouchLastPost(ctx context.Context, id primitive.ObjectID, at, minGapMs int64) (bool, error)
}

// ContentRepository là content source
type ContentRepository interface {
	Insert(ctx context.Context, c models.ContentItem) (models.ContentItem, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.ContentItem, error)
	// ListReady trả content status=ready cho platform (hoặc không gắn platform), theo thứ tự tạo
	ListReady(ctx context.Context, platform string, limit int64) ([]models.ContentItem, error)
}

// RestPeriodRepository lưu rest period
type RestPeriodRepository interface {
	// Open tạo rest period active, trả ErrDuplicate nếu scope đã có bản ghi active
	Open(ctx context.Context, rp models.RestPeriod) (models.RestPeriod, error)
	// OpenIfAbsent là upsert theo (scope, scopeId, status=active), an toàn khi nhiều caller cùng vượt ngưỡng
	OpenIfAbsent(ctx context.Context, rp models.RestPeriod) (models.RestPeriod, bool, error)
	FindActive(ctx context.Context, ref models.ScopeRef) (models.RestPeriod, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (models.RestPeriod, error)
	// Close chuyển active -> status (completed|cancelled), ErrInvalidState nếu không còn active
	Close(ctx context.Context, id primitive.ObjectID, status string, at int64) (models.RestPeriod, error)
	// ListLapsed trả các bản ghi active, resumePolicy=auto, endAt <= now
	ListLapsed(ctx context.Context, now int64) ([]models.RestPeriod, error)
	List(ctx context.Context, ref models.ScopeRef, status string) ([]models.RestPeriod, error)
}

// ScheduledPostRepository lưu scheduled post
type ScheduledPostRepository interface {
	Insert(ctx context.Context, p models.ScheduledPost) (models.ScheduledPost, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (models.ScheduledPost, error)
}

// AssignmentRepository lưu schedule assignment
type AssignmentRepository interface {
	// Insert trả ErrDuplicate nếu scheduledPostId đã có assignment
	Insert(ctx context.Context, a models.ScheduleAssignment) (models.ScheduleAssignment, error)
	FindByPost(ctx context.Context, postID primitive.ObjectID) (models.ScheduleAssignment, error)
	// CompareAndSwap áp patch khi lockVersion khớp, tăng lockVersion; ErrVersionConflict nếu lệch
	CompareAndSwap(ctx context.Context, postID primitive.ObjectID, expectedVersion int64, patch models.AssignmentPatch) (models.ScheduleAssignment, error)
	// ListDue trả assignment assigned, chưa có job, chưa bị huỷ, scheduledAt <= now
	ListDue(ctx context.Context, now int64, limit int64) ([]models.ScheduleAssignment, error)
}

// WorkerRepository là worker registry
type WorkerRepository interface {
	// Upsert đăng ký hoặc cập nhật descriptor, giữ nguyên currentLoad và thống kê
	Upsert(ctx context.Context, w models.Worker) (models.Worker, error)
	FindByID(ctx context.Context, workerID string) (models.Worker, error)
	// Heartbeat trả ErrNotFound với worker chưa đăng ký
	Heartbeat(ctx context.Context, workerID string, health models.WorkerHealth, at int64) (models.Worker, error)
	SetStatus(ctx context.Context, workerID, status string) (models.Worker, error)
	ListOnline(ctx context.Context, platform string) ([]models.Worker, error)
	// TryReserveSlot tăng currentLoad nếu currentLoad < limit và minJobInterval đã trôi qua cho platform
	TryReserveSlot(ctx context.Context, workerID, platform string, limit int, now int64) (bool, error)
	// ReleaseSlot giảm currentLoad, không xuống dưới 0
	ReleaseSlot(ctx context.Context, workerID string) error
	RecordOutcome(ctx context.Context, workerID string, success bool) error
	// MarkOffline đặt isOnline=false cho worker có heartbeat cũ hơn before
	MarkOffline(ctx context.Context, before int64) (int64, error)
}

// JobRepository lưu worker job
type JobRepository interface {
	Insert(ctx context.Context, j models.WorkerJob) (models.WorkerJob, error)
	FindByID(ctx context.Context, jobID string) (models.WorkerJob, error)
	// Transition áp patch khi status hiện tại thuộc from; ErrInvalidState nếu không
	Transition(ctx context.Context, jobID string, from []string, patch models.JobPatch) (models.WorkerJob, error)
	Touch(ctx context.Context, jobIDs []string, workerID string, at int64) error
	CountAssignedSince(ctx context.Context, workerID string, since int64) (int64, error)
	// ListStale trả job assigned/started có lastHeartbeatAt < before
	ListStale(ctx context.Context, before int64, limit int64) ([]models.WorkerJob, error)
	// ListRetryDue trả job chờ retry có nextRetryAt <= now
	ListRetryDue(ctx context.Context, now int64, limit int64) ([]models.WorkerJob, error)
}

// ViolationFilter lọc violation log
type ViolationFilter struct {
	Scope   models.Scope
	ScopeID string
	Code    models.DenialCode
	Limit   int64
}

// ViolationRepository là violation log append-only
type ViolationRepository interface {
	Append(ctx context.Context, v models.ViolationLog) (models.ViolationLog, error)
	List(ctx context.Context, f ViolationFilter) ([]models.ViolationLog, error)
}

// AnalyticsRepository là analytics log append-only
type AnalyticsRepository interface {
	Append(ctx context.Context, e models.AnalyticsEvent) (models.AnalyticsEvent, error)
	List(ctx context.Context, eventType string, limit int64) ([]models.AnalyticsEvent, error)
}

// Store gom tất cả repository của posting engine
type Store struct {
	Counters       CounterRepository
	Formulas       FormulaRepository
	Groups         GroupRepository
	GroupAccounts  GroupAccountRepository
	Accounts       AccountRepository
	Contents       ContentRepository
	RestPeriods    RestPeriodRepository
	ScheduledPosts ScheduledPostRepository
	Assignments    AssignmentRepository
	Workers        WorkerRepository
	Jobs           JobRepository
	Violations     ViolationRepository
	Analytics      AnalyticsRepository
}
