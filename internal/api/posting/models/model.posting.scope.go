package models

import "fmt"

// Scope là cấp áp dụng quota / rest period
type Scope string

const (
	ScopeApp     Scope = "app"
	ScopeGroup   Scope = "group"
	ScopeAccount Scope = "account"
)

// AppScopeID là scopeId duy nhất của scope app
const AppScopeID = "app"

// ScopeRef định danh một scope cụ thể (scope + scopeId)
type ScopeRef struct {
	Scope   Scope  `json:"scope" bson:"scope"`
	ScopeID string `json:"scopeId" bson:"scopeId"`
}

func (s ScopeRef) String() string {
	return fmt.Sprintf("%s:%s", s.Scope, s.ScopeID)
}

// AppScope trả về scope toàn ứng dụng
func AppScope() ScopeRef { return ScopeRef{Scope: ScopeApp, ScopeID: AppScopeID} }

// GroupScope trả về scope của một nhóm
func GroupScope(groupID string) ScopeRef { return ScopeRef{Scope: ScopeGroup, ScopeID: groupID} }

// AccountScope trả về scope của một tài khoản
func AccountScope(accountID string) ScopeRef { return ScopeRef{Scope: ScopeAccount, ScopeID: accountID} }

// ScopeChain trả về chuỗi scope theo thứ tự app -> group -> account
func ScopeChain(groupID, accountID string) []ScopeRef {
	return []ScopeRef{AppScope(), GroupScope(groupID), AccountScope(accountID)}
}

// Window là độ dài cửa sổ thời gian của một quota
type Window string

const (
	WindowHour  Window = "hour"
	WindowDay   Window = "day"
	WindowWeek  Window = "week"
	WindowMonth Window = "month"
	WindowYear  Window = "year"
)

// WindowOrder là thứ tự kiểm tra cửa sổ (hour -> year)
var WindowOrder = []Window{WindowHour, WindowDay, WindowWeek, WindowMonth, WindowYear}

// DenialCode là mã từ chối của admission
type DenialCode string

const (
	DenialQuietHours    DenialCode = "QUIET_HOURS"
	DenialDisallowedDay DenialCode = "DISALLOWED_DAY"
	DenialResting       DenialCode = "RESTING"
	DenialMinGap        DenialCode = "MIN_GAP_VIOLATION"
)

// LimitExceededCode trả về mã <SCOPE>_LIMIT_EXCEEDED
func LimitExceededCode(scope Scope) DenialCode {
	switch scope {
	case ScopeAccount:
		return "ACCOUNT_LIMIT_EXCEEDED"
	case ScopeGroup:
		return "GROUP_LIMIT_EXCEEDED"
	default:
		return "APP_LIMIT_EXCEEDED"
	}
}

// ActionPost là action mặc định khi đăng bài
const ActionPost = "post"
