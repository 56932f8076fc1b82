package postingsvc

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"meta_posting/config"
	"meta_posting/internal/api/posting/models"
	postingstore "meta_posting/internal/api/posting/store"
	"meta_posting/internal/logger"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestMain(m *testing.M) {
	_ = logger.Init(&logger.LogConfig{Level: "error", Format: "text", Output: "stdout", FilterModules: "*", FilterLogTypes: "*"})
	os.Exit(m.Run())
}

// fixture dựng engine trên memory store với đồng hồ cố định
type fixture struct {
	t   *testing.T
	ctx context.Context
	cfg *config.Configuration
	e   *Engine

	mu  sync.Mutex
	now time.Time
}

func newFixture(t *testing.T, tweak ...func(*config.Configuration)) *fixture {
	t.Helper()
	cfg := &config.Configuration{
		AppTimezone:             "UTC",
		JobTimeoutSeconds:       300,
		JobMaxRetries:           3,
		RetryBackoffBaseSeconds: 1,
		WorkerOfflineSeconds:    90,
		ConflictRetryAttempts:   50,
	}
	for _, fn := range tweak {
		fn(cfg)
	}
	f := &fixture{
		t:   t,
		ctx: context.Background(),
		cfg: cfg,
		e:   NewEngine(postingstore.NewMemoryStore(), cfg, nil),
		now: time.Date(2025, 3, 12, 8, 0, 0, 0, time.UTC), // thứ Tư
	}
	f.e.SetClock(f.clock)
	return f
}

func (f *fixture) clock() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fixture) advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func (f *fixture) at(hour, minute int) time.Time {
	n := f.clock()
	return time.Date(n.Year(), n.Month(), n.Day(), hour, minute, 0, 0, time.UTC)
}

func (f *fixture) formula(pf models.PostingFormula) models.PostingFormula {
	f.t.Helper()
	if pf.Name == "" {
		pf.Name = "test-" + primitive.NewObjectID().Hex()
	}
	created, err := f.e.Formulas.Create(f.ctx, pf)
	require.NoError(f.t, err)
	return created
}

func (f *fixture) group(formula models.PostingFormula) models.AccountGroup {
	f.t.Helper()
	id := formula.ID
	g, err := f.e.Groups.CreateGroup(f.ctx, models.AccountGroup{Name: "group", Platform: "facebook", FormulaID: &id, Timezone: "UTC"})
	require.NoError(f.t, err)
	return g
}

func (f *fixture) account(g models.AccountGroup, a models.SocialAccount, link models.GroupAccount) models.SocialAccount {
	f.t.Helper()
	a.Platform = g.Platform
	if a.Name == "" {
		a.Name = "acc"
	}
	saved, err := f.e.Groups.RegisterAccount(f.ctx, a)
	require.NoError(f.t, err)
	link.GroupID, link.AccountID = g.ID, saved.ID
	_, err = f.e.Groups.AddAccount(f.ctx, link)
	require.NoError(f.t, err)
	return saved
}

func (f *fixture) content(tags ...string) models.ContentItem {
	f.t.Helper()
	c, err := f.e.Groups.AddContent(f.ctx, models.ContentItem{Platform: "facebook", Title: "content", Tags: tags})
	require.NoError(f.t, err)
	return c
}

func (f *fixture) admit(a models.SocialAccount, g models.AccountGroup, when time.Time) Decision {
	f.t.Helper()
	d, err := f.e.Admission.Admit(f.ctx, Candidate{AccountID: a.ID, GroupID: g.ID, Action: models.ActionPost, When: when})
	require.NoError(f.t, err)
	return d
}

// dayUsed trả used của counter ngày hiện hành, 0 nếu chưa có
func (f *fixture) dayUsed(ref models.ScopeRef, when time.Time) int {
	f.t.Helper()
	counters, err := f.e.Counters.Usage(f.ctx, ref, models.ActionPost, when, time.UTC)
	require.NoError(f.t, err)
	for _, c := range counters {
		if c.Window == models.WindowDay {
			return c.Used
		}
	}
	return 0
}

// dueAssignment tạo scheduled post + assignment đã đến giờ cho account
func (f *fixture) dueAssignment(a models.SocialAccount, g models.AccountGroup) models.ScheduleAssignment {
	f.t.Helper()
	post, err := f.e.Store.ScheduledPosts.Insert(f.ctx, models.ScheduledPost{
		PlanID: "plan", AccountID: a.ID, GroupID: g.ID, Platform: g.Platform, Action: models.ActionPost,
		ScheduledAt: f.clock().UnixMilli(),
	})
	require.NoError(f.t, err)
	as, err := f.e.Store.Assignments.Insert(f.ctx, models.ScheduleAssignment{
		ScheduledPostID: post.ID, SocialAccountID: a.ID, GroupID: g.ID, Platform: g.Platform, Action: models.ActionPost,
		ScheduledAt: post.ScheduledAt, AssignedAt: post.ScheduledAt, Status: models.AssignmentAssigned,
	})
	require.NoError(f.t, err)
	return as
}

func (f *fixture) worker(id string, maxConcurrent int, tweak ...func(*models.Worker)) models.Worker {
	f.t.Helper()
	w := models.Worker{
		WorkerID:          id,
		Capabilities:      []models.Capability{{Platform: "facebook", Actions: []string{models.ActionPost}}},
		MaxConcurrentJobs: maxConcurrent,
	}
	for _, fn := range tweak {
		fn(&w)
	}
	saved, err := f.e.Registry.Register(f.ctx, w)
	require.NoError(f.t, err)
	return saved
}
