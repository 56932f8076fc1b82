package global

import (
	"meta_posting/config"
	"meta_posting/internal/registry"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoDB_CollectionName chứa tên các collection trong MongoDB
type MongoDB_CollectionName struct {
	AccountGroups       string // Nhóm tài khoản
	GroupAccounts       string // Liên kết nhóm - tài khoản
	SocialAccounts      string // Tài khoản mạng xã hội (account directory)
	ContentItems        string // Nội dung đăng (content source)
	PostingFormulas     string // Công thức đăng bài
	LimitCounters       string // Bộ đếm quota theo cửa sổ thời gian
	RestPeriods         string // Thời gian nghỉ
	ScheduledPosts      string // Bài đăng đã lên lịch
	ScheduleAssignments string // Gán bài đăng cho tài khoản
	Workers             string // Worker registry
	WorkerJobs          string // Job gửi cho worker
	ViolationLogs       string // Log vi phạm
	AnalyticsEvents     string // Sự kiện analytics
}

// Các biến toàn cục
var Validate *validator.Validate                          // Biến để xác thực dữ liệu
var MongoDB_Session *mongo.Client                         // Phiên kết nối tới MongoDB
var MongoDB_ServerConfig *config.Configuration            // Cấu hình của server
var MongoDB_ColNames = DefaultCollectionNames()           // Tên các collection

// Các Registry
var RegistryCollections = registry.NewRegistry[*mongo.Collection]() // Registry chứa các collections

// DefaultCollectionNames trả về tên collection mặc định
func DefaultCollectionNames() MongoDB_CollectionName {
	return MongoDB_CollectionName{
		AccountGroups:       "posting_account_groups",
		GroupAccounts:       "posting_group_accounts",
		SocialAccounts:      "posting_social_accounts",
		ContentItems:        "posting_content_items",
		PostingFormulas:     "posting_formulas",
		LimitCounters:       "posting_limit_counters",
		RestPeriods:         "posting_rest_periods",
		ScheduledPosts:      "posting_scheduled_posts",
		ScheduleAssignments: "posting_schedule_assignments",
		Workers:             "posting_workers",
		WorkerJobs:          "posting_worker_jobs",
		ViolationLogs:       "posting_violation_logs",
		AnalyticsEvents:     "posting_analytics_events",
	}
}

// AllCollectionNames trả về danh sách tên collection để đăng ký registry
func (c MongoDB_CollectionName) AllCollectionNames() []string {
	return []string{
		c.AccountGroups, c.GroupAccounts, c.SocialAccounts, c.ContentItems,
		c.PostingFormulas, c.LimitCounters, c.RestPeriods, c.ScheduledPosts,
		c.ScheduleAssignments, c.Workers, c.WorkerJobs, c.ViolationLogs, c.AnalyticsEvents,
	}
}
