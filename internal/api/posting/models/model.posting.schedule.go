package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// ScheduledPost là bài đăng đã được planner lên lịch
// Collection: posting_scheduled_posts
type ScheduledPost struct {
	ID          primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	PlanID      string             `json:"planId" bson:"planId" index:"single:1"`
	ContentID   primitive.ObjectID `json:"contentId" bson:"contentId"`
	AccountID   primitive.ObjectID `json:"accountId" bson:"accountId"`
	GroupID     primitive.ObjectID `json:"groupId" bson:"groupId"`
	Platform    string             `json:"platform" bson:"platform"`
	Action      string             `json:"action" bson:"action"`
	ScheduledAt int64              `json:"scheduledAt" bson:"scheduledAt"`
	MediaRefs   []string           `json:"mediaRefs,omitempty" bson:"mediaRefs,omitempty"`
	CreatedAt   int64              `json:"createdAt" bson:"createdAt"`
	UpdatedAt   int64              `json:"updatedAt" bson:"updatedAt"`
}

// Assignment status
const (
	AssignmentAssigned  = "assigned"
	AssignmentExecuting = "executing"
	AssignmentCompleted = "completed"
	AssignmentFailed    = "failed"
	AssignmentCancelled = "cancelled"
)

// assignmentNext liệt kê các bước chuyển hợp lệ, chỉ đi tới
var assignmentNext = map[string][]string{
	AssignmentAssigned:  {AssignmentExecuting, AssignmentFailed, AssignmentCancelled},
	AssignmentExecuting: {AssignmentCompleted, AssignmentFailed},
}

// CanTransitionAssignment kiểm tra bước chuyển from -> to
func CanTransitionAssignment(from, to string) bool {
	for _, s := range assignmentNext[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminalAssignment true với completed, failed, cancelled
func IsTerminalAssignment(status string) bool {
	return len(assignmentNext[status]) == 0
}

// ScheduleAssignment gắn một scheduled post với đúng một account.
// Mọi thay đổi đi qua compare-and-swap trên lockVersion.
// Collection: posting_schedule_assignments
type ScheduleAssignment struct {
	ID              primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	ScheduledPostID primitive.ObjectID `json:"scheduledPostId" bson:"scheduledPostId" index:"unique"`
	SocialAccountID primitive.ObjectID `json:"socialAccountId" bson:"socialAccountId" index:"single:1"`
	GroupID         primitive.ObjectID `json:"groupId" bson:"groupId"`
	Platform        string             `json:"platform" bson:"platform"`
	Action          string             `json:"action" bson:"action"`
	ScheduledAt     int64              `json:"scheduledAt" bson:"scheduledAt"`
	AssignedAt      int64              `json:"assignedAt" bson:"assignedAt"`
	Status          string             `json:"status" bson:"status"`
	CurrentJobID    string             `json:"currentJobId,omitempty" bson:"currentJobId,omitempty"`
	CancelRequested bool               `json:"cancelRequested" bson:"cancelRequested"`
	FailureReason   string             `json:"failureReason,omitempty" bson:"failureReason,omitempty"`
	LockVersion     int64              `json:"lockVersion" bson:"lockVersion"`
	CreatedAt       int64              `json:"createdAt" bson:"createdAt"`
	UpdatedAt       int64              `json:"updatedAt" bson:"updatedAt"`
}

// AssignmentPatch là các field được đổi trong một lần CAS, nil = giữ nguyên
type AssignmentPatch struct {
	Status          *string
	CurrentJobID    *string
	CancelRequested *bool
	FailureReason   *string
}

// Apply áp patch lên assignment (dùng cho memory store)
func (p AssignmentPatch) Apply(a *ScheduleAssignment) {
	if p.Status != nil {
		a.Status = *p.Status
	}
	if p.CurrentJobID != nil {
		a.CurrentJobID = *p.CurrentJobID
	}
	if p.CancelRequested != nil {
		a.CancelRequested = *p.CancelRequested
	}
	if p.FailureReason != nil {
		a.FailureReason = *p.FailureReason
	}
}
