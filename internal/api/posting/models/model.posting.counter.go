package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// CounterKey định danh duy nhất một counter
type CounterKey struct {
	Scope       Scope  `json:"scope" bson:"scope"`
	ScopeID     string `json:"scopeId" bson:"scopeId"`
	Action      string `json:"action" bson:"action"`
	Window      Window `json:"window" bson:"window"`
	WindowStart int64  `json:"windowStart" bson:"windowStart"`
}

// LimitCounter đếm usage của một scope trong một cửa sổ.
// Counter hết hạn (windowEnd <= now) không bao giờ được đọc như dữ liệu hiện hành.
// Collection: posting_limit_counters
type LimitCounter struct {
	ID          primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Scope       Scope              `json:"scope" bson:"scope" index:"compound:limit_counter_key_unique"`
	ScopeID     string             `json:"scopeId" bson:"scopeId" index:"compound:limit_counter_key_unique"`
	Action      string             `json:"action" bson:"action" index:"compound:limit_counter_key_unique"`
	Window      Window             `json:"window" bson:"window" index:"compound:limit_counter_key_unique"`
	WindowStart int64              `json:"windowStart" bson:"windowStart" index:"compound:limit_counter_key_unique"`
	WindowEnd   int64              `json:"windowEnd" bson:"windowEnd"`
	Used        int                `json:"used" bson:"used"`
	Limit       int                `json:"limit" bson:"limit"`
	CreatedAt   int64              `json:"createdAt" bson:"createdAt"`
	UpdatedAt   int64              `json:"updatedAt" bson:"updatedAt"`
}

// Key trả về khoá của counter
func (c LimitCounter) Key() CounterKey {
	return CounterKey{Scope: c.Scope, ScopeID: c.ScopeID, Action: c.Action, Window: c.Window, WindowStart: c.WindowStart}
}

// Fraction trả về used/limit
func (c LimitCounter) Fraction() float64 {
	if c.Limit <= 0 {
		return 0
	}
	return float64(c.Used) / float64(c.Limit)
}
