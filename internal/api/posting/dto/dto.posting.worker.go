package postingdto

import (
	"meta_posting/internal/api/posting/models"
	postingsvc "meta_posting/internal/api/posting/service"
)

// WorkerRegisterInput là input của POST /workers/register; workerId rỗng = server sinh
type WorkerRegisterInput struct {
	WorkerID          string              `json:"workerId,omitempty" validate:"omitempty,max=100"`
	Name              string              `json:"name,omitempty" validate:"max=200,no_xss"`
	Capabilities      []models.Capability `json:"capabilities" validate:"required,min=1,dive"`
	MaxConcurrentJobs int                 `json:"maxConcurrentJobs,omitempty" validate:"gte=0"`
	MinJobInterval    int64               `json:"minJobInterval,omitempty" validate:"gte=0"` // giây
	MaxJobsPerHour    int                 `json:"maxJobsPerHour,omitempty" validate:"gte=0"`
	Priority          int                 `json:"priority,omitempty"`
	Status            string              `json:"status,omitempty" validate:"omitempty,oneof=active paused maintenance failed"`
}

// ToModel chuyển input sang Worker descriptor
func (in WorkerRegisterInput) ToModel() models.Worker {
	return models.Worker{
		WorkerID:          in.WorkerID,
		Name:              in.Name,
		Capabilities:      in.Capabilities,
		MaxConcurrentJobs: in.MaxConcurrentJobs,
		MinJobInterval:    in.MinJobInterval,
		MaxJobsPerHour:    in.MaxJobsPerHour,
		Priority:          in.Priority,
		Status:            in.Status,
	}
}

// WorkerStatusInput là input của PUT /workers/:workerId/status
type WorkerStatusInput struct {
	Status string `json:"status" validate:"required,oneof=active paused maintenance failed"`
}

// DispatchInput là input của POST /workers/jobs/dispatch
type DispatchInput struct {
	ScheduledPostID string `json:"scheduledPostId" validate:"required,hexadecimal,len=24"`
}

// JobResultInput là input của POST /workers/jobs/:jobId/result
type JobResultInput struct {
	WorkerID      string                 `json:"workerId,omitempty"`
	Outcome       string                 `json:"outcome" validate:"required,oneof=started completed failed"`
	Result        map[string]interface{} `json:"result,omitempty"`
	Error         string                 `json:"error,omitempty" validate:"max=2000"`
	ExecutionTime int64                  `json:"executionTime,omitempty" validate:"gte=0"` // ms
}

// ToReport chuyển input sang JobReport; workerId trong body ưu tiên hơn header
func (in JobResultInput) ToReport(headerWorkerID string) postingsvc.JobReport {
	wid := in.WorkerID
	if wid == "" {
		wid = headerWorkerID
	}
	return postingsvc.JobReport{
		WorkerID:      wid,
		Outcome:       in.Outcome,
		Result:        in.Result,
		Error:         in.Error,
		ExecutionTime: in.ExecutionTime,
	}
}
