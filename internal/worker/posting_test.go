package worker

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"meta_posting/config"
	"meta_posting/internal/api/posting/models"
	postingsvc "meta_posting/internal/api/posting/service"
	postingstore "meta_posting/internal/api/posting/store"
	"meta_posting/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	_ = logger.Init(&logger.LogConfig{Level: "error", Format: "text", Output: "stdout", FilterModules: "*", FilterLogTypes: "*"})
	os.Exit(m.Run())
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newEngine(t *testing.T) (*postingsvc.Engine, *testClock) {
	t.Helper()
	cfg := &config.Configuration{
		AppTimezone:             "UTC",
		JobTimeoutSeconds:       300,
		JobMaxRetries:           3,
		RetryBackoffBaseSeconds: 1,
		WorkerOfflineSeconds:    90,
		ConflictRetryAttempts:   10,
	}
	clock := &testClock{now: time.Date(2025, 3, 12, 8, 0, 0, 0, time.UTC)}
	e := postingsvc.NewEngine(postingstore.NewMemoryStore(), cfg, nil)
	e.SetClock(clock.Now)
	return e, clock
}

func TestRestPeriodCloser(t *testing.T) {
	e, clock := newEngine(t)
	ctx := context.Background()
	start := clock.Now().UnixMilli()
	_, err := e.RestPeriods.Open(ctx, models.RestPeriod{
		Scope: models.ScopeGroup, ScopeID: "g1", StartAt: start, EndAt: start + time.Hour.Milliseconds(),
		Reason: "manual", ResumePolicy: models.ResumeAuto,
	})
	require.NoError(t, err)

	w := NewRestPeriodCloser(e, time.Minute)
	assert.Equal(t, 0, w.RunOnce(ctx))

	clock.Advance(2 * time.Hour)
	assert.Equal(t, 1, w.RunOnce(ctx))
	rows, err := e.RestPeriods.List(ctx, models.GroupScope("g1"), models.RestStatusActive)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestWorkerOfflineDetector(t *testing.T) {
	e, clock := newEngine(t)
	ctx := context.Background()
	_, err := e.Registry.Register(ctx, models.Worker{
		WorkerID:     "w1",
		Capabilities: []models.Capability{{Platform: "facebook", Actions: []string{models.ActionPost}}},
	})
	require.NoError(t, err)

	w := NewWorkerOfflineDetector(e, 30*time.Second)
	assert.Equal(t, 0, w.RunOnce(ctx))

	clock.Advance(2 * time.Minute)
	assert.Equal(t, 1, w.RunOnce(ctx))
	got, err := e.Registry.Get(ctx, "w1")
	require.NoError(t, err)
	assert.False(t, got.IsOnline)

	_, err = e.Registry.Heartbeat(ctx, "w1", models.WorkerHealth{})
	require.NoError(t, err)
	got, err = e.Registry.Get(ctx, "w1")
	require.NoError(t, err)
	assert.True(t, got.IsOnline)
}

func TestRunOnceSurvivesPanicAndError(t *testing.T) {
	ctx := context.Background()
	panicky := NewPeriodicWorker("TEST", "🧪", time.Second, nil, func(context.Context, time.Time) (int, error) {
		panic("boom")
	})
	assert.NotPanics(t, func() { assert.Equal(t, 0, panicky.RunOnce(ctx)) })

	failing := NewPeriodicWorker("TEST", "🧪", time.Second, nil, func(context.Context, time.Time) (int, error) {
		return 0, errors.New("store down")
	})
	assert.Equal(t, 0, failing.RunOnce(ctx))
}

func TestIntervalFloor(t *testing.T) {
	w := NewPeriodicWorker("TEST", "🧪", 0, nil, func(context.Context, time.Time) (int, error) { return 0, nil })
	assert.Equal(t, time.Second, w.Interval())
}

func TestGroupStartStop(t *testing.T) {
	e, _ := newEngine(t)
	g := NewPostingWorkers(e, &config.Configuration{})

	done := make(chan struct{})
	g.Start(context.Background())
	go func() {
		g.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("worker group did not stop")
	}
}
