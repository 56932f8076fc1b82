package postingsvc

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"sort"
	"time"

	"meta_posting/internal/api/posting/models"
	"meta_posting/internal/common"
	"meta_posting/internal/logger"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Skip code của planner (ngoài DenialCode của admission)
const (
	SkipNoGroup          = "NO_GROUP"
	SkipNoContent        = "NO_CONTENT"
	SkipPlatformMismatch = "PLATFORM_MISMATCH"
	SkipInactiveAccount  = "ACCOUNT_INACTIVE"
)

const planDateLayout = "2006-01-02"

// PlanRequest là yêu cầu lên lịch một batch bài đăng.
// StartDate / EndDate dạng YYYY-MM-DD theo timezone của group chính, EndDate được tính.
// ContentIDs rỗng = lấy content ready của platform.
type PlanRequest struct {
	Platform       string
	Action         string
	PostCount      int
	AccountPoolIDs []primitive.ObjectID
	StartDate      string
	EndDate        string
	ContentIDs     []primitive.ObjectID
}

// PlannedPost là một bài đã được duyệt và gán
type PlannedPost struct {
	Post       models.ScheduledPost      `json:"post"`
	Assignment models.ScheduleAssignment `json:"assignment"`
}

// SkippedSlot ghi lại slot / account bị bỏ qua
type SkippedSlot struct {
	SlotAt    int64  `json:"slotAt,omitempty"`
	AccountID string `json:"accountId,omitempty"`
	Code      string `json:"code"`
	Message   string `json:"message,omitempty"`
}

// PlanResult là kết quả planBatch
type PlanResult struct {
	PlanID      string        `json:"planId"`
	Assignments []PlannedPost `json:"assignments"`
	Shortfall   int           `json:"shortfall"`
	Skipped     []SkippedSlot `json:"skipped,omitempty"`
}

// PlannerService phân bổ bài đăng vào các slot và account
type PlannerService struct {
	d         *deps
	formulas  *FormulaService
	groups    *GroupService
	admission *AdmissionService
}

// planAccount là account ứng viên kèm group của nó
type planAccount struct {
	account models.SocialAccount
	link    models.GroupAccount
	group   models.AccountGroup
	weight  float64
}

// Plan sinh slot theo ngày và peak slot, chọn account theo distribution mode,
// chọn content theo tag, rồi admit từng cặp. Mỗi slot chỉ thử một lần.
func (s *PlannerService) Plan(ctx context.Context, req PlanRequest) (PlanResult, error) {
	if req.Platform == "" || req.PostCount <= 0 || len(req.AccountPoolIDs) == 0 {
		return PlanResult{}, common.WithDetails(common.ErrInvalidInput, "platform, postCount > 0 and accountPoolIds are required")
	}
	if req.Action == "" {
		req.Action = models.ActionPost
	}
	result := PlanResult{PlanID: uuid.NewString()}

	pool, skipped, err := s.loadPool(ctx, req)
	if err != nil {
		return PlanResult{}, err
	}
	result.Skipped = append(result.Skipped, skipped...)
	if len(pool) == 0 {
		result.Shortfall = req.PostCount
		return result, nil
	}

	// Group của account đầu tiên quyết định slot, timezone và distribution mode
	primary := pool[0].group
	formula, err := s.formulas.Resolve(ctx, primary)
	if err != nil {
		return PlanResult{}, err
	}
	loc := loadLocation(primary.Timezone, s.d.appLoc)
	slots, err := buildSlots(req.StartDate, req.EndDate, req.Platform, formula, loc)
	if err != nil {
		return PlanResult{}, err
	}

	contents, err := s.loadContents(ctx, req)
	if err != nil {
		return PlanResult{}, err
	}
	picker := newContentPicker(contents)
	selector := newAccountSelector(formula.Mode(), pool, req.PostCount)

	log := logger.WithContext(ctx).WithFields(logrus.Fields{
		"plan_id": result.PlanID, "platform": req.Platform, "post_count": req.PostCount,
		"slots": len(slots), "accounts": len(pool), "mode": formula.Mode(),
	})
	log.Info("🗓️ [PLANNER] Bắt đầu lên lịch")

	for _, slot := range slots {
		if len(result.Assignments) >= req.PostCount {
			break
		}
		idx := selector.next()
		if idx < 0 {
			break
		}
		pa := pool[idx]
		content, ok := picker.pick(pa.account)
		if !ok {
			selector.skip(idx)
			result.Skipped = append(result.Skipped, SkippedSlot{SlotAt: slot.UnixMilli(), AccountID: pa.account.ID.Hex(), Code: SkipNoContent})
			continue
		}

		decision, err := s.admission.Admit(ctx, Candidate{
			AccountID: pa.account.ID, GroupID: pa.group.ID, Action: req.Action, When: slot,
		})
		if err != nil {
			return PlanResult{}, err
		}
		if !decision.Approved {
			selector.skip(idx)
			result.Skipped = append(result.Skipped, SkippedSlot{
				SlotAt: slot.UnixMilli(), AccountID: pa.account.ID.Hex(), Code: string(decision.Code), Message: decision.Message,
			})
			continue
		}

		planned, err := s.assign(ctx, result.PlanID, req, pa, content, slot)
		if err != nil {
			return PlanResult{}, err
		}
		picker.consume(content.ID)
		selector.commit(idx)
		result.Assignments = append(result.Assignments, planned)
	}

	result.Shortfall = req.PostCount - len(result.Assignments)
	log.WithFields(logrus.Fields{"assigned": len(result.Assignments), "shortfall": result.Shortfall}).Info("🗓️ [PLANNER] Hoàn tất lên lịch")
	return result, nil
}

func (s *PlannerService) loadPool(ctx context.Context, req PlanRequest) ([]planAccount, []SkippedSlot, error) {
	accounts, err := s.d.store.Accounts.FindByIDs(ctx, req.AccountPoolIDs)
	if err != nil {
		return nil, nil, err
	}
	var pool []planAccount
	var skipped []SkippedSlot
	for _, a := range accounts {
		switch {
		case a.Platform != req.Platform:
			skipped = append(skipped, SkippedSlot{AccountID: a.ID.Hex(), Code: SkipPlatformMismatch})
			continue
		case a.Status != "" && a.Status != "active":
			skipped = append(skipped, SkippedSlot{AccountID: a.ID.Hex(), Code: SkipInactiveAccount})
			continue
		}
		link, group, err := s.groups.Membership(ctx, a.ID)
		if errors.Is(err, common.ErrNotFound) {
			skipped = append(skipped, SkippedSlot{AccountID: a.ID.Hex(), Code: SkipNoGroup})
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		pool = append(pool, planAccount{account: a, link: link, group: group, weight: models.EffectiveWeight(group, link)})
	}
	return pool, skipped, nil
}

func (s *PlannerService) loadContents(ctx context.Context, req PlanRequest) ([]models.ContentItem, error) {
	if len(req.ContentIDs) > 0 {
		items, err := s.d.store.Contents.FindByIDs(ctx, req.ContentIDs)
		if err != nil {
			return nil, err
		}
		out := items[:0]
		for _, c := range items {
			if c.Status == "ready" && (c.Platform == "" || c.Platform == req.Platform) {
				out = append(out, c)
			}
		}
		return out, nil
	}
	return s.d.store.Contents.ListReady(ctx, req.Platform, 0)
}

func (s *PlannerService) assign(ctx context.Context, planID string, req PlanRequest, pa planAccount, content models.ContentItem, slot time.Time) (PlannedPost, error) {
	post, err := s.d.store.ScheduledPosts.Insert(ctx, models.ScheduledPost{
		PlanID:      planID,
		ContentID:   content.ID,
		AccountID:   pa.account.ID,
		GroupID:     pa.group.ID,
		Platform:    req.Platform,
		Action:      req.Action,
		ScheduledAt: slot.UnixMilli(),
		MediaRefs:   content.MediaRefs,
	})
	if err != nil {
		return PlannedPost{}, err
	}
	assignment, err := s.d.store.Assignments.Insert(ctx, models.ScheduleAssignment{
		ScheduledPostID: post.ID,
		SocialAccountID: pa.account.ID,
		GroupID:         pa.group.ID,
		Platform:        req.Platform,
		Action:          req.Action,
		ScheduledAt:     post.ScheduledAt,
		AssignedAt:      s.d.now().UnixMilli(),
		Status:          models.AssignmentAssigned,
	})
	if err != nil {
		return PlannedPost{}, err
	}
	return PlannedPost{Post: post, Assignment: assignment}, nil
}

// buildSlots sinh slot theo ngày [start, end] và peak slot, bỏ quiet hours / ngày không cho phép
func buildSlots(startDate, endDate, platform string, f models.PostingFormula, loc *time.Location) ([]time.Time, error) {
	start, err := time.ParseInLocation(planDateLayout, startDate, loc)
	if err != nil {
		return nil, common.WithDetails(common.ErrInvalidFormat, fmt.Sprintf("startDate: %v", err))
	}
	end, err := time.ParseInLocation(planDateLayout, endDate, loc)
	if err != nil {
		return nil, common.WithDetails(common.ErrInvalidFormat, fmt.Sprintf("endDate: %v", err))
	}
	if end.Before(start) {
		return nil, common.WithDetails(common.ErrInvalidInput, "endDate must not be before startDate")
	}

	peaks := append([]models.PeakSlot(nil), f.Slots()...)
	sort.SliceStable(peaks, func(i, j int) bool {
		return peaks[i].Hour*60+peaks[i].Minute < peaks[j].Hour*60+peaks[j].Minute
	})

	var slots []time.Time
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		for _, p := range peaks {
			base := time.Date(day.Year(), day.Month(), day.Day(), p.Hour, p.Minute, 0, 0, loc)
			at := base.Add(jitter(platform, base, f.JitterSeconds))
			if inQuietHours(f.QuietHours, at) || !allowedDay(f.AllowedDays, at) {
				continue
			}
			slots = append(slots, at)
		}
	}
	sort.SliceStable(slots, func(i, j int) bool { return slots[i].Before(slots[j]) })
	return slots, nil
}

// jitter lệch slot trong [-seconds, +seconds], xác định theo (platform, slot)
func jitter(platform string, slot time.Time, seconds int) time.Duration {
	if seconds <= 0 {
		return 0
	}
	h := fnv.New64a()
	_, _ = fmt.Fprintf(h, "%s|%d", platform, slot.Unix())
	span := uint64(2*seconds + 1)
	return time.Duration(int64(h.Sum64()%span)-int64(seconds)) * time.Second
}

// accountSelector chọn account cho slot tiếp theo
type accountSelector interface {
	next() int      // -1 khi không còn account
	commit(idx int) // gọi khi slot được gán cho account idx
	skip(idx int)   // gọi khi cặp slot / account idx bị từ chối
}

func newAccountSelector(mode string, pool []planAccount, postCount int) accountSelector {
	switch mode {
	case models.DistributionWeighted:
		weights := make([]float64, len(pool))
		for i, pa := range pool {
			weights[i] = pa.weight
		}
		return &weightedSelector{weights: weights, current: make([]float64, len(pool))}
	case models.DistributionPerformance:
		share := int(math.Ceil(float64(postCount) / float64(len(pool))))
		return &performanceSelector{
			pool:  pool,
			tried: make([]int, len(pool)),
			share: share,
			limit: share,
		}
	default:
		return &evenSelector{n: len(pool)}
	}
}

// evenSelector xoay vòng theo thứ tự pool
type evenSelector struct {
	n, cursor int
}

func (s *evenSelector) next() int {
	if s.n == 0 {
		return -1
	}
	idx := s.cursor % s.n
	s.cursor++
	return idx
}

func (s *evenSelector) commit(int) {}
func (s *evenSelector) skip(int) {}

// weightedSelector là smooth weighted round-robin
type weightedSelector struct {
	weights []float64
	current []float64
}

func (s *weightedSelector) next() int {
	if len(s.weights) == 0 {
		return -1
	}
	total, best := 0.0, -1
	for i, w := range s.weights {
		s.current[i] += w
		total += w
		if best < 0 || s.current[i] > s.current[best] {
			best = i
		}
	}
	s.current[best] -= total
	return best
}

func (s *weightedSelector) commit(int) {}
func (s *weightedSelector) skip(int) {}

// performanceSelector ưu tiên performanceScore cao. Mỗi account được thử tối đa share lần mỗi vòng,
// lần bị từ chối cũng tính là một lần thử để slot sau chuyển sang account kế tiếp.
// Khi mọi account đã hết lượt, mở vòng mới.
type performanceSelector struct {
	pool  []planAccount
	tried []int
	share int
	limit int
}

func (s *performanceSelector) next() int {
	if len(s.pool) == 0 {
		return -1
	}
	for {
		best := -1
		for i, pa := range s.pool {
			if s.tried[i] >= s.limit {
				continue
			}
			if best < 0 || pa.account.PerformanceScore > s.pool[best].account.PerformanceScore {
				best = i
			}
		}
		if best >= 0 {
			return best
		}
		s.limit += s.share
	}
}

func (s *performanceSelector) commit(idx int) { s.tried[idx]++ }
func (s *performanceSelector) skip(idx int) { s.tried[idx]++ }

// contentPicker chọn content: ưu tiên item chưa dùng có tag trùng preferredTags,
// rồi item chưa dùng bất kỳ, cuối cùng xoay vòng mọi item không bị loại (cho phép dùng lại)
type contentPicker struct {
	items  []models.ContentItem
	used   map[primitive.ObjectID]bool
	cursor int
}

func newContentPicker(items []models.ContentItem) *contentPicker {
	return &contentPicker{items: items, used: make(map[primitive.ObjectID]bool)}
}

func (p *contentPicker) pick(a models.SocialAccount) (models.ContentItem, bool) {
	for _, c := range p.items {
		if p.used[c.ID] || hasAny(c.Tags, a.ExcludedTags) {
			continue
		}
		if len(a.PreferredTags) == 0 || hasAny(c.Tags, a.PreferredTags) {
			return c, true
		}
	}
	// Chưa dùng, không bị loại, theo thứ tự pool
	for _, c := range p.items {
		if !p.used[c.ID] && !hasAny(c.Tags, a.ExcludedTags) {
			return c, true
		}
	}
	// Hết item chưa dùng: xoay vòng, cho phép dùng lại
	for i := 0; i < len(p.items); i++ {
		c := p.items[(p.cursor+i)%len(p.items)]
		if hasAny(c.Tags, a.ExcludedTags) {
			continue
		}
		p.cursor = (p.cursor + i + 1) % len(p.items)
		return c, true
	}
	return models.ContentItem{}, false
}

func (p *contentPicker) consume(id primitive.ObjectID) { p.used[id] = true }

func hasAny(tags, wanted []string) bool {
	for _, t := range tags {
		for _, w := range wanted {
			if t == w {
				return true
			}
		}
	}
	return false
}
