package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// RestPeriod status
const (
	RestStatusActive    = "active"
	RestStatusCompleted = "completed"
	RestStatusCancelled = "cancelled"
)

// RestPeriod là giai đoạn tạm dừng đăng bài của một scope.
// Mỗi (scope, scopeId) có tối đa một bản ghi active (partial unique index).
// Collection: posting_rest_periods
type RestPeriod struct {
	ID           primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Scope        Scope              `json:"scope" bson:"scope"`
	ScopeID      string             `json:"scopeId" bson:"scopeId"`
	StartAt      int64              `json:"startAt" bson:"startAt"`
	EndAt        int64              `json:"endAt" bson:"endAt"`
	Reason       string             `json:"reason" bson:"reason"`
	ResumePolicy string             `json:"resumePolicy" bson:"resumePolicy"`
	Status       string             `json:"status" bson:"status" index:"single:1"`
	CompletedAt  int64              `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
	CreatedAt    int64              `json:"createdAt" bson:"createdAt"`
	UpdatedAt    int64              `json:"updatedAt" bson:"updatedAt"`
}

// Ref trả về scope của rest period
func (r RestPeriod) Ref() ScopeRef {
	return ScopeRef{Scope: r.Scope, ScopeID: r.ScopeID}
}

// Blocks cho biết rest period có chặn tại thời điểm at không.
// Manual resume tiếp tục chặn sau endAt cho đến khi được xác nhận.
func (r RestPeriod) Blocks(at int64) bool {
	if r.Status != RestStatusActive || at < r.StartAt {
		return false
	}
	if at < r.EndAt {
		return true
	}
	return r.ResumePolicy == ResumeManual
}
