package postingsvc

import (
	"testing"

	"meta_posting/internal/api/posting/models"
	"meta_posting/internal/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestSeedPresetsIsIdempotent(t *testing.T) {
	f := newFixture(t)
	presets, err := LoadPresets("../../../../config/formulas.yaml")
	require.NoError(t, err)
	require.Len(t, presets, 3)

	created, err := f.e.Formulas.SeedPresets(f.ctx, presets)
	require.NoError(t, err)
	assert.Equal(t, 3, created)

	created, err = f.e.Formulas.SeedPresets(f.ctx, presets)
	require.NoError(t, err)
	assert.Zero(t, created)

	all, err := f.e.Formulas.List(f.ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	warmup, err := f.e.Store.Formulas.FindByName(f.ctx, "facebook-warmup")
	require.NoError(t, err)
	assert.Equal(t, 0.8, warmup.RestStrategy.Threshold)
	assert.Len(t, warmup.PeakSlots, 3)
	assert.Len(t, warmup.QuietHours, 1)
}

func TestDeleteSystemDefaultRejected(t *testing.T) {
	f := newFixture(t)
	sys := f.formula(models.PostingFormula{Name: "sys", IsSystemDefault: true})
	custom := f.formula(models.PostingFormula{Name: "custom"})

	err := f.e.Formulas.Delete(f.ctx, sys.ID)
	assert.ErrorIs(t, err, common.ErrInvalidOperation)
	_, err = f.e.Formulas.Get(f.ctx, sys.ID)
	assert.NoError(t, err)

	require.NoError(t, f.e.Formulas.Delete(f.ctx, custom.ID))
	_, err = f.e.Formulas.Get(f.ctx, custom.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestUpdateKeepsSystemFlag(t *testing.T) {
	f := newFixture(t)
	sys := f.formula(models.PostingFormula{Name: "sys", IsSystemDefault: true, MinGapMinutes: 30})

	updated, err := f.e.Formulas.Update(f.ctx, sys.ID, models.PostingFormula{Name: "sys", MinGapMinutes: 45})
	require.NoError(t, err)
	assert.Equal(t, sys.ID, updated.ID)
	assert.True(t, updated.IsSystemDefault)
	assert.Equal(t, 45, updated.MinGapMinutes)
}

func TestCreateValidatesFormula(t *testing.T) {
	f := newFixture(t)
	bad := []models.PostingFormula{
		{Name: ""},
		{Name: "<script>alert(1)</script>"},
		{Name: "quiet", QuietHours: []models.TimeRange{{Start: "25:00", End: "06:00"}}},
		{Name: "days", AllowedDays: []int{7}},
		{Name: "mode", DistributionMode: "random"},
		{Name: "rest", RestStrategy: models.RestStrategy{Threshold: 0.5}},
		{Name: "neg", Caps: models.Caps{PerDay: -1}},
	}
	for _, pf := range bad {
		_, err := f.e.Formulas.Create(f.ctx, pf)
		assert.ErrorIs(t, err, common.ErrInvalidInput, pf.Name)
	}
}

func TestResolveFallsBackToSystemDefault(t *testing.T) {
	f := newFixture(t)

	// Chưa có formula nào: dùng fallback bảo thủ
	resolved, err := f.e.Formulas.Resolve(f.ctx, models.AccountGroup{})
	require.NoError(t, err)
	assert.Equal(t, models.FallbackFormula().Name, resolved.Name)

	sys := f.formula(models.PostingFormula{Name: "sys", IsSystemDefault: true})
	missing := primitive.NewObjectID()
	resolved, err = f.e.Formulas.Resolve(f.ctx, models.AccountGroup{FormulaID: &missing})
	require.NoError(t, err)
	assert.Equal(t, sys.ID, resolved.ID)

	own := f.formula(models.PostingFormula{Name: "own"})
	resolved, err = f.e.Formulas.Resolve(f.ctx, models.AccountGroup{FormulaID: &own.ID})
	require.NoError(t, err)
	assert.Equal(t, own.ID, resolved.ID)
}
