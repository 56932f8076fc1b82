package postingdto

import (
	"meta_posting/internal/api/posting/models"
)

// RestPeriodOpenInput là input mở rest period thủ công; startAt = 0 nghĩa là ngay bây giờ
type RestPeriodOpenInput struct {
	Scope        string `json:"scope" validate:"required,oneof=app group account"`
	ScopeID      string `json:"scopeId,omitempty" validate:"required_unless=Scope app"`
	StartAt      int64  `json:"startAt,omitempty" validate:"gte=0"`
	EndAt        int64  `json:"endAt" validate:"required,gt=0"`
	Reason       string `json:"reason,omitempty" validate:"max=500,no_xss"`
	ResumePolicy string `json:"resumePolicy,omitempty" validate:"omitempty,oneof=auto manual"`
}

// ToModel chuyển input sang RestPeriod, now (ms) dùng khi startAt = 0
func (in RestPeriodOpenInput) ToModel(now int64) models.RestPeriod {
	ref := models.ScopeRef{Scope: models.Scope(in.Scope), ScopeID: in.ScopeID}
	if ref.Scope == models.ScopeApp {
		ref = models.AppScope()
	}
	start := in.StartAt
	if start == 0 {
		start = now
	}
	reason := in.Reason
	if reason == "" {
		reason = "manual"
	}
	return models.RestPeriod{
		Scope:        ref.Scope,
		ScopeID:      ref.ScopeID,
		StartAt:      start,
		EndAt:        in.EndAt,
		Reason:       reason,
		ResumePolicy: in.ResumePolicy,
	}
}

// ScopeQuery là query chung của các endpoint lọc theo scope
type ScopeQuery struct {
	Scope   string `query:"scope" validate:"omitempty,oneof=app group account"`
	ScopeID string `query:"scopeId"`
	Status  string `query:"status" validate:"omitempty,oneof=active completed cancelled"`
}

// Ref trả về ScopeRef; scope app luôn có scopeId "app"
func (q ScopeQuery) Ref() models.ScopeRef {
	if models.Scope(q.Scope) == models.ScopeApp {
		return models.AppScope()
	}
	return models.ScopeRef{Scope: models.Scope(q.Scope), ScopeID: q.ScopeID}
}
