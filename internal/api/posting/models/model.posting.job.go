package models

// WorkerJob status
const (
	JobAssigned  = "assigned"
	JobStarted   = "started"
	JobCompleted = "completed"
	JobFailed    = "failed"
	JobTimeout   = "timeout"
)

// WorkerJob là một lần thực thi scheduled post trên worker.
// retryCount không bao giờ vượt maxRetries, hết retry thì kết thúc ở failed.
// Collection: posting_worker_jobs
type WorkerJob struct {
	JobID           string                 `json:"jobId" bson:"jobId" index:"unique"`
	WorkerID        string                 `json:"workerId" bson:"workerId" index:"single:1"`
	ScheduledPostID string                 `json:"scheduledPostId" bson:"scheduledPostId" index:"single:1"`
	Platform        string                 `json:"platform" bson:"platform"`
	JobType         string                 `json:"jobType" bson:"jobType"`
	Priority        int                    `json:"priority" bson:"priority"`
	Status          string                 `json:"status" bson:"status" index:"single:1"`
	AssignedAt      int64                  `json:"assignedAt" bson:"assignedAt"`
	StartedAt       int64                  `json:"startedAt,omitempty" bson:"startedAt,omitempty"`
	CompletedAt     int64                  `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
	LastHeartbeatAt int64                  `json:"lastHeartbeatAt" bson:"lastHeartbeatAt"`
	Result          map[string]interface{} `json:"result,omitempty" bson:"result,omitempty"`
	Error           string                 `json:"error,omitempty" bson:"error,omitempty"`
	ExecutionTime   int64                  `json:"executionTime,omitempty" bson:"executionTime,omitempty"` // ms
	RetryCount      int                    `json:"retryCount" bson:"retryCount"`
	MaxRetries      int                    `json:"maxRetries" bson:"maxRetries"`
	BackoffOnFail   bool                   `json:"backoffOnFail" bson:"backoffOnFail"`
	Retryable       bool                   `json:"retryable" bson:"retryable"` // đang chờ retry
	NextRetryAt     int64                  `json:"nextRetryAt,omitempty" bson:"nextRetryAt,omitempty"`
	CreatedAt       int64                  `json:"createdAt" bson:"createdAt"`
	UpdatedAt       int64                  `json:"updatedAt" bson:"updatedAt"`
}

// IsRunning true khi job đang chiếm slot của worker
func (j WorkerJob) IsRunning() bool {
	return j.Status == JobAssigned || j.Status == JobStarted
}

// JobPatch là thay đổi áp cho job trong một lần chuyển trạng thái có điều kiện
type JobPatch struct {
	Status          string
	WorkerID        *string
	AssignedAt      *int64
	StartedAt       *int64
	CompletedAt     *int64
	LastHeartbeatAt *int64
	Result          map[string]interface{}
	Error           *string
	ExecutionTime   *int64
	RetryCount      *int
	Retryable       *bool
	NextRetryAt     *int64
}

// Apply áp patch lên job (dùng cho memory store)
func (p JobPatch) Apply(j *WorkerJob) {
	if p.Status != "" {
		j.Status = p.Status
	}
	if p.WorkerID != nil {
		j.WorkerID = *p.WorkerID
	}
	if p.AssignedAt != nil {
		j.AssignedAt = *p.AssignedAt
	}
	if p.StartedAt != nil {
		j.StartedAt = *p.StartedAt
	}
	if p.CompletedAt != nil {
		j.CompletedAt = *p.CompletedAt
	}
	if p.LastHeartbeatAt != nil {
		j.LastHeartbeatAt = *p.LastHeartbeatAt
	}
	if p.Result != nil {
		j.Result = p.Result
	}
	if p.Error != nil {
		j.Error = *p.Error
	}
	if p.ExecutionTime != nil {
		j.ExecutionTime = *p.ExecutionTime
	}
	if p.RetryCount != nil {
		j.RetryCount = *p.RetryCount
	}
	if p.Retryable != nil {
		j.Retryable = *p.Retryable
	}
	if p.NextRetryAt != nil {
		j.NextRetryAt = *p.NextRetryAt
	}
}
