package postingsvc

import (
	"testing"
	"time"

	"meta_posting/internal/api/posting/models"
	"meta_posting/internal/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterGeneratesIDAndDerivesPlatforms(t *testing.T) {
	f := newFixture(t)
	w, err := f.e.Registry.Register(f.ctx, models.Worker{
		Capabilities: []models.Capability{
			{Platform: "facebook", Actions: []string{"post"}},
			{Platform: "tiktok", Actions: []string{"post", "comment"}},
			{Platform: "facebook", Actions: []string{"comment"}},
		},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, w.WorkerID)
	assert.Equal(t, []string{"facebook", "tiktok"}, w.Platforms)
	assert.Equal(t, models.WorkerActive, w.Status)
	assert.Equal(t, 1, w.MaxConcurrentJobs)
	assert.True(t, w.IsOnline)

	_, err = f.e.Registry.Register(f.ctx, models.Worker{WorkerID: "empty"})
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestHeartbeatFromUnknownWorkerRejected(t *testing.T) {
	f := newFixture(t)
	_, err := f.e.Registry.Heartbeat(f.ctx, "ghost", models.WorkerHealth{})
	assert.ErrorIs(t, err, common.ErrUnknownWorker)
}

func TestListEligibleOrdering(t *testing.T) {
	f := newFixture(t)
	f.worker("busy", 3)
	f.worker("low", 3, func(w *models.Worker) { w.Priority = 1 })
	f.worker("high", 3, func(w *models.Worker) { w.Priority = 5 })
	f.worker("paused", 3, func(w *models.Worker) { w.Status = models.WorkerPaused })
	f.worker("tiktok", 3, func(w *models.Worker) {
		w.Capabilities = []models.Capability{{Platform: "tiktok", Actions: []string{models.ActionPost}}}
	})
	ok, err := f.e.Store.Workers.TryReserveSlot(f.ctx, "busy", "facebook", 3, f.clock().UnixMilli())
	require.NoError(t, err)
	require.True(t, ok)

	list, err := f.e.Registry.ListEligible(f.ctx, "facebook", models.ActionPost)
	require.NoError(t, err)
	ids := make([]string, len(list))
	for i, w := range list {
		ids[i] = w.WorkerID
	}
	assert.Equal(t, []string{"high", "low", "busy"}, ids)

	none, err := f.e.Registry.ListEligible(f.ctx, "facebook", "comment")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSetStatusRemovesWorkerFromDispatch(t *testing.T) {
	f := newFixture(t)
	f.worker("w1", 1)

	_, err := f.e.Registry.SetStatus(f.ctx, "w1", "sleeping")
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	w, err := f.e.Registry.SetStatus(f.ctx, "w1", models.WorkerMaintenance)
	require.NoError(t, err)
	assert.Equal(t, models.WorkerMaintenance, w.Status)

	list, err := f.e.Registry.ListEligible(f.ctx, "facebook", models.ActionPost)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestMarkOfflineAfterMissedHeartbeats(t *testing.T) {
	f := newFixture(t)
	f.worker("w1", 1)
	f.worker("w2", 1)

	f.advance(60 * time.Second)
	_, err := f.e.Registry.Heartbeat(f.ctx, "w2", models.WorkerHealth{CPUPercent: 12})
	require.NoError(t, err)

	f.advance(60 * time.Second)
	n, err := f.e.Registry.MarkOffline(f.ctx, f.clock())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	w1, _ := f.e.Registry.Get(f.ctx, "w1")
	w2, _ := f.e.Registry.Get(f.ctx, "w2")
	assert.False(t, w1.IsOnline)
	assert.True(t, w2.IsOnline)

	// Heartbeat đưa worker online lại
	_, err = f.e.Registry.Heartbeat(f.ctx, "w1", models.WorkerHealth{})
	require.NoError(t, err)
	w1, _ = f.e.Registry.Get(f.ctx, "w1")
	assert.True(t, w1.IsOnline)
}
