package postingsvc

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"meta_posting/config"
	"meta_posting/internal/api/posting/models"
	postingstore "meta_posting/internal/api/posting/store"
	"meta_posting/internal/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestAdmitDeniesWhenAccountDailyCapReached(t *testing.T) {
	f := newFixture(t)
	g := f.group(f.formula(models.PostingFormula{Caps: models.Caps{PerDay: 2}}))
	a := f.account(g, models.SocialAccount{}, models.GroupAccount{})

	assert.True(t, f.admit(a, g, f.at(9, 0)).Approved)
	assert.True(t, f.admit(a, g, f.at(11, 0)).Approved)

	d := f.admit(a, g, f.at(13, 0))
	assert.False(t, d.Approved)
	assert.Equal(t, models.DenialCode("ACCOUNT_LIMIT_EXCEEDED"), d.Code)
	assert.Equal(t, models.WindowDay, d.Window)
	assert.Equal(t, 2, d.Used)
	assert.Equal(t, 2, d.Limit)

	rows, err := f.e.Store.Violations.List(f.ctx, postingstore.ViolationFilter{Code: "ACCOUNT_LIMIT_EXCEEDED"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, a.ID.Hex(), rows[0].ScopeID)
	assert.Equal(t, "day", rows[0].Metadata["window"])

	// Lần bị từ chối không làm tăng counter
	assert.Equal(t, 2, f.dayUsed(models.AccountScope(a.ID.Hex()), f.at(13, 0)))
}

func TestAdmitConcurrentCandidatesNeverExceedCap(t *testing.T) {
	f := newFixture(t)
	g := f.group(f.formula(models.PostingFormula{Caps: models.Caps{PerDay: 5}}))
	a := f.account(g, models.SocialAccount{}, models.GroupAccount{})

	var approved atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d, err := f.e.Admission.Admit(f.ctx, Candidate{AccountID: a.ID, GroupID: g.ID, When: f.at(10, i)})
			if err == nil && d.Approved {
				approved.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(5), approved.Load())
	assert.Equal(t, 5, f.dayUsed(models.AccountScope(a.ID.Hex()), f.at(10, 0)))
	rows, err := f.e.Store.Violations.List(f.ctx, postingstore.ViolationFilter{ScopeID: a.ID.Hex()})
	require.NoError(t, err)
	assert.Len(t, rows, 35)
}

func TestAdmitReleasesAccountQuotaWhenGroupDenies(t *testing.T) {
	f := newFixture(t)
	g := f.group(f.formula(models.PostingFormula{Caps: models.Caps{PerDay: 5}, GroupCaps: models.Caps{PerDay: 1}}))
	a := f.account(g, models.SocialAccount{}, models.GroupAccount{})
	b := f.account(g, models.SocialAccount{}, models.GroupAccount{})

	assert.True(t, f.admit(a, g, f.at(9, 0)).Approved)
	d := f.admit(b, g, f.at(9, 30))
	assert.False(t, d.Approved)
	assert.Equal(t, models.DenialCode("GROUP_LIMIT_EXCEEDED"), d.Code)
	assert.Equal(t, g.ID.Hex(), d.ScopeID)

	assert.Equal(t, 0, f.dayUsed(models.AccountScope(b.ID.Hex()), f.at(9, 30)))
	assert.Equal(t, 1, f.dayUsed(models.GroupScope(g.ID.Hex()), f.at(9, 30)))
}

func TestAdmitReleasesLowerScopesWhenAppDenies(t *testing.T) {
	f := newFixture(t, func(c *config.Configuration) { c.AppCapPerDay = 1 })
	g := f.group(f.formula(models.PostingFormula{Caps: models.Caps{PerDay: 5}, GroupCaps: models.Caps{PerDay: 5}}))
	a := f.account(g, models.SocialAccount{}, models.GroupAccount{})
	b := f.account(g, models.SocialAccount{}, models.GroupAccount{})

	assert.True(t, f.admit(a, g, f.at(9, 0)).Approved)
	d := f.admit(b, g, f.at(9, 30))
	assert.Equal(t, models.DenialCode("APP_LIMIT_EXCEEDED"), d.Code)
	assert.Equal(t, models.AppScopeID, d.ScopeID)

	assert.Equal(t, 0, f.dayUsed(models.AccountScope(b.ID.Hex()), f.at(9, 30)))
	assert.Equal(t, 1, f.dayUsed(models.GroupScope(g.ID.Hex()), f.at(9, 30)))
	assert.Equal(t, 1, f.dayUsed(models.AppScope(), f.at(9, 30)))
}

func TestAdmitQuietHoursAndAllowedDays(t *testing.T) {
	f := newFixture(t)
	g := f.group(f.formula(models.PostingFormula{
		QuietHours:  []models.TimeRange{{Start: "22:00", End: "06:00"}},
		AllowedDays: []int{1, 2, 3, 4, 5},
	}))
	a := f.account(g, models.SocialAccount{}, models.GroupAccount{})

	assert.Equal(t, models.DenialQuietHours, f.admit(a, g, f.at(23, 15)).Code)
	assert.Equal(t, models.DenialQuietHours, f.admit(a, g, f.at(5, 0)).Code)

	saturday := time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, models.DenialDisallowedDay, f.admit(a, g, saturday).Code)

	assert.True(t, f.admit(a, g, f.at(10, 0)).Approved)
}

func TestAdmitMinGapAndCooldownOverride(t *testing.T) {
	f := newFixture(t)
	g := f.group(f.formula(models.PostingFormula{MinGapMinutes: 30}))
	a := f.account(g, models.SocialAccount{}, models.GroupAccount{})
	b := f.account(g, models.SocialAccount{}, models.GroupAccount{CooldownMinutes: 60})

	assert.True(t, f.admit(a, g, f.at(10, 0)).Approved)
	d := f.admit(a, g, f.at(10, 10))
	assert.Equal(t, models.DenialMinGap, d.Code)
	assert.True(t, f.admit(a, g, f.at(10, 40)).Approved)

	// Slot trước lastPostAt cũng bị tính khoảng cách
	assert.Equal(t, models.DenialMinGap, f.admit(a, g, f.at(10, 20)).Code)

	assert.True(t, f.admit(b, g, f.at(10, 0)).Approved)
	assert.Equal(t, models.DenialMinGap, f.admit(b, g, f.at(10, 40)).Code)
	assert.True(t, f.admit(b, g, f.at(11, 0)).Approved)

	rows, err := f.e.Store.Violations.List(f.ctx, postingstore.ViolationFilter{Code: models.DenialMinGap, ScopeID: a.ID.Hex()})
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	assert.Contains(t, rows[0].Metadata, "sinceLastPostSeconds")
}

func TestAdmitConcurrentMinGapAdmitsOne(t *testing.T) {
	f := newFixture(t)
	g := f.group(f.formula(models.PostingFormula{
		MinGapMinutes: 30, Caps: models.Caps{PerDay: 50}, GroupCaps: models.Caps{PerDay: 50},
	}))
	a := f.account(g, models.SocialAccount{}, models.GroupAccount{})

	var approved atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d, err := f.e.Admission.Admit(f.ctx, Candidate{AccountID: a.ID, GroupID: g.ID, When: f.at(10, i)})
			if err == nil && d.Approved {
				approved.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), approved.Load())
	// Các lần thua gap phải trả lại quota đã giữ
	assert.Equal(t, 1, f.dayUsed(models.AccountScope(a.ID.Hex()), f.at(10, 0)))
	assert.Equal(t, 1, f.dayUsed(models.GroupScope(g.ID.Hex()), f.at(10, 0)))
	rows, err := f.e.Store.Violations.List(f.ctx, postingstore.ViolationFilter{Code: models.DenialMinGap, ScopeID: a.ID.Hex()})
	require.NoError(t, err)
	assert.Len(t, rows, 19)
}

// failingGroups giả lập lỗi ghi thống kê group sau khi quota đã được giữ
type failingGroups struct {
	postingstore.GroupRepository
}

func (failingGroups) RecordPost(context.Context, primitive.ObjectID, int64) error {
	return errors.New("write failed")
}

func TestAdmitReleasesQuotaWhenRecordPostFails(t *testing.T) {
	f := newFixture(t)
	g := f.group(f.formula(models.PostingFormula{Caps: models.Caps{PerDay: 2}, GroupCaps: models.Caps{PerDay: 5}}))
	a := f.account(g, models.SocialAccount{}, models.GroupAccount{})
	f.e.Store.Groups = failingGroups{GroupRepository: f.e.Store.Groups}

	_, err := f.e.Admission.Admit(f.ctx, Candidate{AccountID: a.ID, GroupID: g.ID, When: f.at(10, 0)})
	require.Error(t, err)

	assert.Zero(t, f.dayUsed(models.AccountScope(a.ID.Hex()), f.at(10, 0)))
	assert.Zero(t, f.dayUsed(models.GroupScope(g.ID.Hex()), f.at(10, 0)))

	// Quota đã được trả nên vẫn đủ hai lượt khi ghi thống kê hoạt động lại
	f.e.Store.Groups = f.e.Store.Groups.(failingGroups).GroupRepository
	assert.True(t, f.admit(a, g, f.at(10, 0)).Approved)
	assert.True(t, f.admit(a, g, f.at(12, 0)).Approved)
}

func TestAdmitRequiresActiveMembership(t *testing.T) {
	f := newFixture(t)
	g := f.group(f.formula(models.PostingFormula{}))
	stray, err := f.e.Groups.RegisterAccount(f.ctx, models.SocialAccount{Platform: "facebook", Name: "stray"})
	require.NoError(t, err)

	_, err = f.e.Admission.Admit(f.ctx, Candidate{AccountID: stray.ID, GroupID: g.ID, When: f.at(10, 0)})
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = f.e.Admission.Admit(f.ctx, Candidate{AccountID: stray.ID, GroupID: primitive.NewObjectID(), When: f.at(10, 0)})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestAdmitOpensRestPeriodAtThreshold(t *testing.T) {
	f := newFixture(t)
	g := f.group(f.formula(models.PostingFormula{
		Caps:         models.Caps{PerDay: 10},
		RestStrategy: models.RestStrategy{Threshold: 0.8, RestDurationHours: 12, ResumePolicy: models.ResumeAuto},
	}))
	a := f.account(g, models.SocialAccount{}, models.GroupAccount{})

	var last Decision
	for i := 0; i < 8; i++ {
		last = f.admit(a, g, f.at(1, i*5))
		require.True(t, last.Approved, "post %d", i+1)
		if i < 7 {
			assert.Empty(t, last.RestPeriodID, "post %d", i+1)
		}
	}
	require.NotEmpty(t, last.RestPeriodID)

	d := f.admit(a, g, f.at(2, 0))
	assert.False(t, d.Approved)
	assert.Equal(t, models.DenialResting, d.Code)
	assert.Equal(t, last.RestPeriodID, d.RestPeriodID)
	assert.Equal(t, 8, f.dayUsed(models.AccountScope(a.ID.Hex()), f.at(2, 0)))

	rp, err := f.e.Store.RestPeriods.FindActive(f.ctx, models.AccountScope(a.ID.Hex()))
	require.NoError(t, err)
	assert.Equal(t, f.at(1, 35).Add(12*time.Hour).UnixMilli(), rp.EndAt)

	// Hết 12 giờ, closer đóng rest period và account đăng tiếp được
	closed, err := f.e.RestPeriods.CloseLapsed(f.ctx, f.at(13, 40))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, closed, 1)
	assert.True(t, f.admit(a, g, f.at(14, 0)).Approved)
}

func TestAdmitManualRestBlocksUntilResumed(t *testing.T) {
	f := newFixture(t)
	g := f.group(f.formula(models.PostingFormula{}))
	a := f.account(g, models.SocialAccount{}, models.GroupAccount{})

	rp, err := f.e.RestPeriods.Open(f.ctx, models.RestPeriod{
		Scope: models.ScopeGroup, ScopeID: g.ID.Hex(),
		StartAt: f.at(9, 0).UnixMilli(), EndAt: f.at(10, 0).UnixMilli(), Reason: "maintenance",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ResumeManual, rp.ResumePolicy)

	_, err = f.e.RestPeriods.Open(f.ctx, models.RestPeriod{
		Scope: models.ScopeGroup, ScopeID: g.ID.Hex(), StartAt: f.at(9, 0).UnixMilli(), EndAt: f.at(11, 0).UnixMilli(),
	})
	assert.ErrorIs(t, err, common.ErrDuplicate)

	// Manual: vẫn chặn sau endAt
	d := f.admit(a, g, f.at(12, 0))
	assert.Equal(t, models.DenialResting, d.Code)
	assert.Equal(t, models.ScopeGroup, d.Scope)

	_, err = f.e.RestPeriods.Resume(f.ctx, rp.ID)
	require.NoError(t, err)
	assert.True(t, f.admit(a, g, f.at(12, 30)).Approved)

	_, err = f.e.RestPeriods.Cancel(f.ctx, rp.ID)
	assert.ErrorIs(t, err, common.ErrInvalidState)
}
