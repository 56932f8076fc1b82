package models

// Worker status
const (
	WorkerActive      = "active"
	WorkerPaused      = "paused"
	WorkerMaintenance = "maintenance"
	WorkerFailed      = "failed"
)

// Capability khai báo worker làm được gì trên một platform
type Capability struct {
	Platform         string   `json:"platform" bson:"platform" validate:"required,alphanum"`
	Actions          []string `json:"actions" bson:"actions" validate:"required,min=1"`
	MaxConcurrent    int      `json:"maxConcurrent,omitempty" bson:"maxConcurrent,omitempty" validate:"gte=0"`
	AvgExecutionTime int64    `json:"avgExecutionTime,omitempty" bson:"avgExecutionTime,omitempty"` // ms
}

// WorkerHealth là snapshot gửi kèm heartbeat
type WorkerHealth struct {
	CPUPercent    float64  `json:"cpuPercent,omitempty" bson:"cpuPercent,omitempty"`
	MemoryPercent float64  `json:"memoryPercent,omitempty" bson:"memoryPercent,omitempty"`
	ActiveJobIDs  []string `json:"activeJobIds,omitempty" bson:"activeJobIds,omitempty"`
	Message       string   `json:"message,omitempty" bson:"message,omitempty"`
}

// Worker là tiến trình thực thi đăng bài, tự đăng ký qua API.
// currentLoad chỉ được đổi bằng reserve/release nguyên tử.
// Collection: posting_workers
type Worker struct {
	WorkerID          string           `json:"workerId" bson:"workerId" index:"unique"`
	Name              string           `json:"name,omitempty" bson:"name,omitempty"`
	Platforms         []string         `json:"platforms" bson:"platforms" index:"single:1"`
	Capabilities      []Capability     `json:"capabilities" bson:"capabilities"`
	MaxConcurrentJobs int              `json:"maxConcurrentJobs" bson:"maxConcurrentJobs"`
	MinJobInterval    int64            `json:"minJobInterval" bson:"minJobInterval"` // giây
	MaxJobsPerHour    int              `json:"maxJobsPerHour" bson:"maxJobsPerHour"` // 0 = không giới hạn
	Status            string           `json:"status" bson:"status"`
	IsOnline          bool             `json:"isOnline" bson:"isOnline"`
	CurrentLoad       int              `json:"currentLoad" bson:"currentLoad"`
	SuccessRate       float64          `json:"successRate" bson:"successRate"`
	TotalCompleted    int64            `json:"totalCompleted" bson:"totalCompleted"`
	TotalFailed       int64            `json:"totalFailed" bson:"totalFailed"`
	Priority          int              `json:"priority" bson:"priority"`
	LastHeartbeatAt   int64            `json:"lastHeartbeatAt" bson:"lastHeartbeatAt"`
	LastDispatchAt    map[string]int64 `json:"lastDispatchAt,omitempty" bson:"lastDispatchAt,omitempty"` // platform -> unix
	Health            WorkerHealth     `json:"health" bson:"health"`
	CreatedAt         int64            `json:"createdAt" bson:"createdAt"`
	UpdatedAt         int64            `json:"updatedAt" bson:"updatedAt"`
}

// Capability tìm capability cho (platform, action)
func (w Worker) Capability(platform, action string) (Capability, bool) {
	for _, c := range w.Capabilities {
		if c.Platform != platform {
			continue
		}
		for _, a := range c.Actions {
			if a == action {
				return c, true
			}
		}
	}
	return Capability{}, false
}

// SlotLimit là số job đồng thời tối đa cho platform (min của worker và capability)
func (w Worker) SlotLimit(c Capability) int {
	return minPositive(w.MaxConcurrentJobs, c.MaxConcurrent)
}
