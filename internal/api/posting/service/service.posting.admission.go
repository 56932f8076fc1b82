package postingsvc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"meta_posting/internal/api/posting/models"
	"meta_posting/internal/common"
	"meta_posting/internal/logger"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Candidate là một bài đăng cần xin phép
type Candidate struct {
	AccountID primitive.ObjectID
	GroupID   primitive.ObjectID
	Action    string
	When      time.Time
}

// Decision là kết quả admission; từ chối là giá trị, không phải error
type Decision struct {
	Approved bool              `json:"approved"`
	Code     models.DenialCode `json:"code,omitempty"`
	Message  string            `json:"message,omitempty"`
	Scope    models.Scope      `json:"scope,omitempty"`
	ScopeID  string            `json:"scopeId,omitempty"`
	Window   models.Window     `json:"window,omitempty"`
	Used     int               `json:"used,omitempty"`
	Limit    int               `json:"limit,omitempty"`
	// RestPeriodID là rest period chặn (RESTING) hoặc vừa được mở sau lần duyệt này
	RestPeriodID string `json:"restPeriodId,omitempty"`
}

// AdmissionService quyết định một bài đăng có được đi tiếp không
type AdmissionService struct {
	d        *deps
	formulas *FormulaService
	counters *CounterService
	rest     *RestPeriodService
}

// admitContext là dữ liệu đã nạp cho một lần admit
type admitContext struct {
	group   models.AccountGroup
	link    models.GroupAccount
	account models.SocialAccount
	formula models.PostingFormula
	loc     *time.Location
}

func (s *AdmissionService) load(ctx context.Context, c Candidate) (admitContext, error) {
	var ac admitContext
	group, err := s.d.store.Groups.FindByID(ctx, c.GroupID)
	if err != nil {
		return ac, err
	}
	link, err := s.d.store.GroupAccounts.Find(ctx, c.GroupID, c.AccountID)
	if errors.Is(err, common.ErrNotFound) || (err == nil && !link.IsActive) {
		return ac, common.WithDetails(common.ErrInvalidInput, map[string]interface{}{
			"reason": "account is not an active member of group", "accountId": c.AccountID.Hex(), "groupId": c.GroupID.Hex(),
		})
	}
	if err != nil {
		return ac, err
	}
	account, err := s.d.store.Accounts.FindByID(ctx, c.AccountID)
	if err != nil {
		return ac, err
	}
	formula, err := s.formulas.Resolve(ctx, group)
	if err != nil {
		return ac, err
	}
	return admitContext{
		group: group, link: link, account: account, formula: formula,
		loc: loadLocation(group.Timezone, s.d.appLoc),
	}, nil
}

// Admit chạy các bước theo thứ tự: formula -> quiet hours / allowed days -> rest period
// app -> group -> account -> min gap -> counter account -> group -> app.
// Scope sau từ chối thì quota đã giữ ở scope trước được trả lại.
func (s *AdmissionService) Admit(ctx context.Context, c Candidate) (Decision, error) {
	if c.Action == "" {
		c.Action = models.ActionPost
	}
	if c.When.IsZero() {
		c.When = s.d.now()
	}
	ac, err := s.load(ctx, c)
	if err != nil {
		return Decision{}, err
	}

	accountRef := models.AccountScope(c.AccountID.Hex())
	groupRef := models.GroupScope(c.GroupID.Hex())
	whenMs := c.When.UnixMilli()
	local := c.When.In(ac.loc)
	sinceLast := int64(-1)
	if ac.account.LastPostAt > 0 {
		sinceLast = absInt64(whenMs-ac.account.LastPostAt) / 1000
	}

	deny := func(d Decision) (Decision, error) {
		return s.deny(ctx, c, d, sinceLast)
	}

	if inQuietHours(ac.formula.QuietHours, local) {
		return deny(Decision{Code: models.DenialQuietHours, Scope: accountRef.Scope, ScopeID: accountRef.ScopeID,
			Message: fmt.Sprintf("%s nằm trong quiet hours", local.Format("15:04"))})
	}
	if !allowedDay(ac.formula.AllowedDays, local) {
		return deny(Decision{Code: models.DenialDisallowedDay, Scope: accountRef.Scope, ScopeID: accountRef.ScopeID,
			Message: fmt.Sprintf("%s không nằm trong allowedDays", local.Weekday())})
	}

	resting, err := s.rest.Blocking(ctx, models.ScopeChain(groupRef.ScopeID, accountRef.ScopeID), whenMs)
	if err != nil {
		return Decision{}, err
	}
	if resting != nil {
		return deny(Decision{Code: models.DenialResting, Scope: resting.Scope, ScopeID: resting.ScopeID, RestPeriodID: resting.ID.Hex(),
			Message: fmt.Sprintf("scope %s:%s đang nghỉ đến %d", resting.Scope, resting.ScopeID, resting.EndAt)})
	}

	gapMinutes := ac.formula.MinGapMinutes
	if ac.link.CooldownMinutes > gapMinutes {
		gapMinutes = ac.link.CooldownMinutes
	}
	if gapMinutes > 0 && sinceLast >= 0 && sinceLast < int64(gapMinutes)*60 {
		return deny(Decision{Code: models.DenialMinGap, Scope: accountRef.Scope, ScopeID: accountRef.ScopeID,
			Message: fmt.Sprintf("cách bài trước %ds, tối thiểu %d phút", sinceLast, gapMinutes)})
	}

	scopes := []struct {
		ref  models.ScopeRef
		caps models.Caps
	}{
		{accountRef, ac.formula.AccountCaps(ac.link.DailyCapOverride)},
		{groupRef, ac.formula.GroupCaps},
		{models.AppScope(), s.d.appCaps()},
	}
	held := make([]Reservation, 0, len(scopes))
	for _, sc := range scopes {
		r, err := s.counters.CheckAndReserve(ctx, sc.ref, c.Action, c.When, sc.caps, ac.loc)
		if err != nil {
			_ = s.counters.Release(ctx, held...)
			return Decision{}, err
		}
		if !r.Approved {
			if err := s.counters.Release(ctx, held...); err != nil {
				return Decision{}, err
			}
			v := r.Violated
			return deny(Decision{Code: models.LimitExceededCode(sc.ref.Scope), Scope: sc.ref.Scope, ScopeID: sc.ref.ScopeID,
				Window: v.Window, Used: v.Used, Limit: v.Limit,
				Message: fmt.Sprintf("quota %s của %s đã đủ %d/%d", v.Window, sc.ref, v.Used, v.Limit)})
		}
		held = append(held, r)
	}

	// Gap được kiểm lại có điều kiện khi ghi lastPostAt, hai admit đồng thời không cùng lọt
	claimed, err := s.d.store.Accounts.TouchLastPost(ctx, c.AccountID, whenMs, int64(gapMinutes)*60*1000)
	if err != nil {
		_ = s.counters.Release(ctx, held...)
		return Decision{}, err
	}
	if !claimed {
		if err := s.counters.Release(ctx, held...); err != nil {
			return Decision{}, err
		}
		if fresh, err := s.d.store.Accounts.FindByID(ctx, c.AccountID); err == nil && fresh.LastPostAt > 0 {
			sinceLast = absInt64(whenMs-fresh.LastPostAt) / 1000
		}
		return deny(Decision{Code: models.DenialMinGap, Scope: accountRef.Scope, ScopeID: accountRef.ScopeID,
			Message: fmt.Sprintf("cách bài trước %ds, tối thiểu %d phút", sinceLast, gapMinutes)})
	}
	if err := s.d.store.Groups.RecordPost(ctx, c.GroupID, whenMs); err != nil {
		_ = s.counters.Release(ctx, held...)
		return Decision{}, err
	}

	decision := Decision{Approved: true}
	// Rest trigger chỉ xét cửa sổ ngày của scope account và group
	for _, r := range held[:2] {
		day, ok := r.DayCounter()
		if !ok {
			continue
		}
		rp, err := s.rest.MaybeOpen(ctx, r.Scope, ac.formula.RestStrategy, day, c.When)
		if err != nil {
			logger.WithContext(ctx).WithError(err).WithField("scope", r.Scope.String()).Error("😴 [REST_PERIOD] Không mở được rest period")
			continue
		}
		if rp != nil && r.Scope == accountRef {
			decision.RestPeriodID = rp.ID.Hex()
		}
	}

	logger.WithContext(ctx).WithFields(logrus.Fields{
		"account_id": c.AccountID.Hex(), "group_id": c.GroupID.Hex(), "action": c.Action, "when": whenMs,
	}).Debug("✅ [ADMISSION] Chấp nhận")
	return decision, nil
}

func (s *AdmissionService) deny(ctx context.Context, c Candidate, d Decision, sinceLast int64) (Decision, error) {
	meta := map[string]interface{}{
		"action":    c.Action,
		"accountId": c.AccountID.Hex(),
		"groupId":   c.GroupID.Hex(),
		"when":      c.When.UnixMilli(),
	}
	if d.Window != "" {
		meta["window"] = string(d.Window)
		meta["used"] = d.Used
		meta["limit"] = d.Limit
	}
	if sinceLast >= 0 {
		meta["sinceLastPostSeconds"] = sinceLast
	}
	if d.RestPeriodID != "" {
		meta["restPeriodId"] = d.RestPeriodID
	}
	if _, err := s.d.events.Violation(ctx, models.ViolationLog{
		Scope:     d.Scope,
		ScopeID:   d.ScopeID,
		Code:      d.Code,
		Message:   d.Message,
		EventTime: s.d.now().UnixMilli(),
		Metadata:  meta,
	}); err != nil {
		return Decision{}, err
	}

	logger.WithContext(ctx).WithFields(logrus.Fields{
		"code": d.Code, "scope": d.Scope, "scope_id": d.ScopeID,
		"account_id": c.AccountID.Hex(), "group_id": c.GroupID.Hex(), "action": c.Action,
	}).Info("🚫 [ADMISSION] Từ chối: " + d.Message)
	d.Approved = false
	return d, nil
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
