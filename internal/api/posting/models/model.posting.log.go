package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// ViolationLog ghi lại mỗi lần admission từ chối (append-only)
// Collection: posting_violation_logs
type ViolationLog struct {
	ID        primitive.ObjectID     `json:"id,omitempty" bson:"_id,omitempty"`
	Scope     Scope                  `json:"scope" bson:"scope"`
	ScopeID   string                 `json:"scopeId" bson:"scopeId"`
	Code      DenialCode             `json:"code" bson:"code" index:"single:1"`
	Message   string                 `json:"message" bson:"message"`
	EventTime int64                  `json:"eventTime" bson:"eventTime"`
	Metadata  map[string]interface{} `json:"metadata,omitempty" bson:"metadata,omitempty"`
}

// Analytics event types
const (
	EventJobDispatched = "job_dispatched"
	EventJobStarted    = "job_started"
	EventJobCompleted  = "job_completed"
	EventJobFailed     = "job_failed"
	EventJobTimeout    = "job_timeout"
	EventJobRetry      = "job_retry_scheduled"
	EventRestOpened    = "rest_period_opened"
	EventRestClosed    = "rest_period_closed"
	EventAdmissionDeny = "admission_denied"
)

// AnalyticsEvent ghi lại kết quả worker/job cho dashboard (append-only)
// Collection: posting_analytics_events
type AnalyticsEvent struct {
	ID              primitive.ObjectID     `json:"id,omitempty" bson:"_id,omitempty"`
	Type            string                 `json:"type" bson:"type" index:"single:1"`
	WorkerID        string                 `json:"workerId,omitempty" bson:"workerId,omitempty"`
	JobID           string                 `json:"jobId,omitempty" bson:"jobId,omitempty"`
	ScheduledPostID string                 `json:"scheduledPostId,omitempty" bson:"scheduledPostId,omitempty"`
	Platform        string                 `json:"platform,omitempty" bson:"platform,omitempty"`
	Status          string                 `json:"status,omitempty" bson:"status,omitempty"`
	ExecutionTime   int64                  `json:"executionTime,omitempty" bson:"executionTime,omitempty"`
	RetryCount      int                    `json:"retryCount,omitempty" bson:"retryCount,omitempty"`
	EventTime       int64                  `json:"eventTime" bson:"eventTime" index:"single:-1"`
	Metadata        map[string]interface{} `json:"metadata,omitempty" bson:"metadata,omitempty"`
}
