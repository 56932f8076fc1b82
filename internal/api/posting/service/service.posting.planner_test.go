package postingsvc

import (
	"testing"
	"time"

	"meta_posting/internal/api/posting/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var threeSlots = []models.PeakSlot{{Hour: 9}, {Hour: 13}, {Hour: 18}}

func TestPlanEvenDistributesAcrossAccounts(t *testing.T) {
	f := newFixture(t)
	g := f.group(f.formula(models.PostingFormula{Caps: models.Caps{PerDay: 5}, PeakSlots: threeSlots}))
	accounts := []models.SocialAccount{
		f.account(g, models.SocialAccount{Name: "a"}, models.GroupAccount{}),
		f.account(g, models.SocialAccount{Name: "b"}, models.GroupAccount{}),
		f.account(g, models.SocialAccount{Name: "c"}, models.GroupAccount{}),
	}
	for i := 0; i < 6; i++ {
		f.content("news")
	}

	res, err := f.e.Planner.Plan(f.ctx, PlanRequest{
		Platform: "facebook", PostCount: 6, StartDate: "2025-03-12", EndDate: "2025-03-13",
		AccountPoolIDs: []primitive.ObjectID{accounts[0].ID, accounts[1].ID, accounts[2].ID},
	})
	require.NoError(t, err)
	require.Len(t, res.Assignments, 6)
	assert.Zero(t, res.Shortfall)
	assert.NotEmpty(t, res.PlanID)

	perAccount := map[primitive.ObjectID]int{}
	usedContent := map[primitive.ObjectID]bool{}
	for _, p := range res.Assignments {
		perAccount[p.Assignment.SocialAccountID]++
		usedContent[p.Post.ContentID] = true
		assert.Equal(t, models.AssignmentAssigned, p.Assignment.Status)
		assert.Equal(t, p.Post.ID, p.Assignment.ScheduledPostID)
		assert.Equal(t, res.PlanID, p.Post.PlanID)
	}
	for _, a := range accounts {
		assert.Equal(t, 2, perAccount[a.ID], a.Name)
	}
	assert.Len(t, usedContent, 6)
}

func TestPlanNeverPicksExcludedTags(t *testing.T) {
	f := newFixture(t)
	g := f.group(f.formula(models.PostingFormula{Caps: models.Caps{PerDay: 5}, PeakSlots: threeSlots}))
	a := f.account(g, models.SocialAccount{ExcludedTags: []string{"promo"}}, models.GroupAccount{})

	promo := map[primitive.ObjectID]bool{}
	for i := 0; i < 3; i++ {
		promo[f.content("promo", "sale").ID] = true
	}
	f.content("news")
	f.content("tips")

	res, err := f.e.Planner.Plan(f.ctx, PlanRequest{
		Platform: "facebook", PostCount: 4, StartDate: "2025-03-12", EndDate: "2025-03-13",
		AccountPoolIDs: []primitive.ObjectID{a.ID},
	})
	require.NoError(t, err)
	require.Len(t, res.Assignments, 4)
	for _, p := range res.Assignments {
		assert.False(t, promo[p.Post.ContentID], "promo content assigned at %d", p.Post.ScheduledAt)
	}
}

func TestPlanPrefersTaggedContent(t *testing.T) {
	f := newFixture(t)
	g := f.group(f.formula(models.PostingFormula{PeakSlots: threeSlots}))
	a := f.account(g, models.SocialAccount{PreferredTags: []string{"tech"}}, models.GroupAccount{})
	f.content("food")
	tech := f.content("tech")

	res, err := f.e.Planner.Plan(f.ctx, PlanRequest{
		Platform: "facebook", PostCount: 1, StartDate: "2025-03-12", EndDate: "2025-03-12",
		AccountPoolIDs: []primitive.ObjectID{a.ID},
	})
	require.NoError(t, err)
	require.Len(t, res.Assignments, 1)
	assert.Equal(t, tech.ID, res.Assignments[0].Post.ContentID)
}

func TestPlanReportsShortfallAndSkips(t *testing.T) {
	f := newFixture(t)
	g := f.group(f.formula(models.PostingFormula{Caps: models.Caps{PerDay: 1}, PeakSlots: threeSlots}))
	a := f.account(g, models.SocialAccount{}, models.GroupAccount{})
	orphan, err := f.e.Groups.RegisterAccount(f.ctx, models.SocialAccount{Platform: "facebook", Name: "orphan"})
	require.NoError(t, err)
	other, err := f.e.Groups.RegisterAccount(f.ctx, models.SocialAccount{Platform: "tiktok", Name: "other"})
	require.NoError(t, err)
	f.content("news")
	f.content("news")

	res, err := f.e.Planner.Plan(f.ctx, PlanRequest{
		Platform: "facebook", PostCount: 3, StartDate: "2025-03-12", EndDate: "2025-03-12",
		AccountPoolIDs: []primitive.ObjectID{a.ID, orphan.ID, other.ID},
	})
	require.NoError(t, err)
	assert.Len(t, res.Assignments, 1)
	assert.Equal(t, 2, res.Shortfall)

	codes := map[string]int{}
	for _, s := range res.Skipped {
		codes[s.Code]++
	}
	assert.Equal(t, 1, codes[SkipNoGroup])
	assert.Equal(t, 1, codes[SkipPlatformMismatch])
	assert.Equal(t, 2, codes["ACCOUNT_LIMIT_EXCEEDED"])
}

func TestPlanWeightedFavoursHeavierAccount(t *testing.T) {
	f := newFixture(t)
	g := f.group(f.formula(models.PostingFormula{DistributionMode: models.DistributionWeighted, PeakSlots: threeSlots}))
	heavy := f.account(g, models.SocialAccount{Name: "heavy"}, models.GroupAccount{Weight: 2})
	light := f.account(g, models.SocialAccount{Name: "light"}, models.GroupAccount{Weight: 1})
	for i := 0; i < 6; i++ {
		f.content()
	}

	res, err := f.e.Planner.Plan(f.ctx, PlanRequest{
		Platform: "facebook", PostCount: 6, StartDate: "2025-03-12", EndDate: "2025-03-13",
		AccountPoolIDs: []primitive.ObjectID{light.ID, heavy.ID},
	})
	require.NoError(t, err)
	require.Len(t, res.Assignments, 6)

	perAccount := map[primitive.ObjectID]int{}
	for _, p := range res.Assignments {
		perAccount[p.Assignment.SocialAccountID]++
	}
	assert.Equal(t, 4, perAccount[heavy.ID])
	assert.Equal(t, 2, perAccount[light.ID])
}

func TestPlanRejectsBadDates(t *testing.T) {
	f := newFixture(t)
	g := f.group(f.formula(models.PostingFormula{}))
	a := f.account(g, models.SocialAccount{}, models.GroupAccount{})

	_, err := f.e.Planner.Plan(f.ctx, PlanRequest{
		Platform: "facebook", PostCount: 1, StartDate: "2025-03-13", EndDate: "2025-03-12",
		AccountPoolIDs: []primitive.ObjectID{a.ID},
	})
	assert.Error(t, err)
}

func TestBuildSlotsSkipsQuietHoursAndKeepsJitterBounded(t *testing.T) {
	f := models.PostingFormula{
		PeakSlots:     []models.PeakSlot{{Hour: 9}, {Hour: 23, Minute: 30}},
		QuietHours:    []models.TimeRange{{Start: "23:00", End: "06:00"}},
		JitterSeconds: 300,
	}
	slots, err := buildSlots("2025-03-12", "2025-03-14", "facebook", f, time.UTC)
	require.NoError(t, err)
	require.Len(t, slots, 3)
	for _, s := range slots {
		base := time.Date(s.Year(), s.Month(), s.Day(), 9, 0, 0, 0, time.UTC)
		assert.LessOrEqual(t, absInt64(s.Sub(base).Milliseconds()), int64(300_000))
	}

	again, err := buildSlots("2025-03-12", "2025-03-14", "facebook", f, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, slots, again)
}

func TestPlanEvenWithDefaultSlots(t *testing.T) {
	f := newFixture(t)
	g := f.group(f.formula(models.PostingFormula{}))
	accounts := []models.SocialAccount{
		f.account(g, models.SocialAccount{Name: "a"}, models.GroupAccount{}),
		f.account(g, models.SocialAccount{Name: "b"}, models.GroupAccount{}),
		f.account(g, models.SocialAccount{Name: "c"}, models.GroupAccount{}),
	}
	for i := 0; i < 6; i++ {
		f.content()
	}

	res, err := f.e.Planner.Plan(f.ctx, PlanRequest{
		Platform: "facebook", PostCount: 6, StartDate: "2025-03-12", EndDate: "2025-03-13",
		AccountPoolIDs: []primitive.ObjectID{accounts[0].ID, accounts[1].ID, accounts[2].ID},
	})
	require.NoError(t, err)
	require.Len(t, res.Assignments, 6)
	assert.Zero(t, res.Shortfall)

	perAccount := map[primitive.ObjectID]int{}
	hours := map[int]int{}
	for _, p := range res.Assignments {
		perAccount[p.Assignment.SocialAccountID]++
		hours[time.UnixMilli(p.Post.ScheduledAt).UTC().Hour()]++
	}
	for _, a := range accounts {
		assert.Equal(t, 2, perAccount[a.ID], a.Name)
	}
	assert.Equal(t, map[int]int{9: 2, 14: 2, 21: 2}, hours)
}

func TestPlanPerformancePrefersHighScoreWithinShare(t *testing.T) {
	f := newFixture(t)
	g := f.group(f.formula(models.PostingFormula{DistributionMode: models.DistributionPerformance, PeakSlots: threeSlots}))
	low := f.account(g, models.SocialAccount{Name: "low", PerformanceScore: 1}, models.GroupAccount{})
	top := f.account(g, models.SocialAccount{Name: "top", PerformanceScore: 9}, models.GroupAccount{})
	for i := 0; i < 4; i++ {
		f.content()
	}

	res, err := f.e.Planner.Plan(f.ctx, PlanRequest{
		Platform: "facebook", PostCount: 4, StartDate: "2025-03-12", EndDate: "2025-03-13",
		AccountPoolIDs: []primitive.ObjectID{low.ID, top.ID},
	})
	require.NoError(t, err)
	require.Len(t, res.Assignments, 4)

	got := make([]primitive.ObjectID, len(res.Assignments))
	for i, p := range res.Assignments {
		got[i] = p.Assignment.SocialAccountID
	}
	assert.Equal(t, []primitive.ObjectID{top.ID, top.ID, low.ID, low.ID}, got)
}

func TestPlanPerformanceMovesOnWhenTopAccountIsDenied(t *testing.T) {
	f := newFixture(t)
	g := f.group(f.formula(models.PostingFormula{DistributionMode: models.DistributionPerformance, PeakSlots: threeSlots}))
	top := f.account(g, models.SocialAccount{Name: "top", PerformanceScore: 9}, models.GroupAccount{})
	other := f.account(g, models.SocialAccount{Name: "other", PerformanceScore: 1}, models.GroupAccount{})
	f.content()
	f.content()

	_, err := f.e.RestPeriods.Open(f.ctx, models.RestPeriod{
		Scope: models.ScopeAccount, ScopeID: top.ID.Hex(),
		StartAt: f.clock().UnixMilli(), EndAt: f.clock().Add(time.Hour).UnixMilli(), Reason: "manual",
	})
	require.NoError(t, err)

	res, err := f.e.Planner.Plan(f.ctx, PlanRequest{
		Platform: "facebook", PostCount: 2, StartDate: "2025-03-12", EndDate: "2025-03-13",
		AccountPoolIDs: []primitive.ObjectID{top.ID, other.ID},
	})
	require.NoError(t, err)
	require.Len(t, res.Assignments, 2)
	assert.Zero(t, res.Shortfall)
	for _, p := range res.Assignments {
		assert.Equal(t, other.ID, p.Assignment.SocialAccountID)
	}

	resting := 0
	for _, s := range res.Skipped {
		if s.Code == string(models.DenialResting) {
			assert.Equal(t, top.ID.Hex(), s.AccountID)
			resting++
		}
	}
	assert.Equal(t, 2, resting)
}

func TestPlanFallsBackToUnusedContentBeforeReuse(t *testing.T) {
	f := newFixture(t)
	g := f.group(f.formula(models.PostingFormula{PeakSlots: threeSlots}))
	a := f.account(g, models.SocialAccount{PreferredTags: []string{"tech"}}, models.GroupAccount{})
	tech := f.content("tech")
	food := f.content("food")
	news := f.content("news")

	res, err := f.e.Planner.Plan(f.ctx, PlanRequest{
		Platform: "facebook", PostCount: 3, StartDate: "2025-03-12", EndDate: "2025-03-12",
		AccountPoolIDs: []primitive.ObjectID{a.ID},
	})
	require.NoError(t, err)
	require.Len(t, res.Assignments, 3)

	got := []primitive.ObjectID{}
	for _, p := range res.Assignments {
		got = append(got, p.Post.ContentID)
	}
	assert.Equal(t, []primitive.ObjectID{tech.ID, food.ID, news.ID}, got)
}

func TestContentPickerReusesOnlyWhenPoolExhausted(t *testing.T) {
	items := []models.ContentItem{
		{ID: primitive.NewObjectID(), Tags: []string{"a"}},
		{ID: primitive.NewObjectID(), Tags: []string{"b"}},
	}
	p := newContentPicker(items)
	acc := models.SocialAccount{}

	first, ok := p.pick(acc)
	require.True(t, ok)
	p.consume(first.ID)
	second, ok := p.pick(acc)
	require.True(t, ok)
	p.consume(second.ID)
	assert.NotEqual(t, first.ID, second.ID)

	// Hết item chưa dùng: vẫn trả về item (dùng lại)
	_, ok = p.pick(acc)
	assert.True(t, ok)
	_, ok = p.pick(models.SocialAccount{ExcludedTags: []string{"a", "b"}})
	assert.False(t, ok)
}
