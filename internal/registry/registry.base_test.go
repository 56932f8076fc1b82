package registry

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meta_posting/internal/common"
)

func TestRegisterAndGet(t *testing.T) {
	r := NewRegistry[int]()

	isNew, err := r.Register("a", 1)
	require.NoError(t, err)
	assert.True(t, isNew)

	isNew, err = r.Register("a", 2)
	require.NoError(t, err)
	assert.False(t, isNew)

	v, ok := r.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 2, v)

	_, err = r.Register("", 3)
	assert.True(t, errors.Is(err, common.ErrInvalidInput))

	_, err = r.MustGet("missing")
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestGetOrCreateCallsCreatorOnce(t *testing.T) {
	r := NewRegistry[*int]()
	calls := 0
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = r.GetOrCreate("x", func() (*int, error) {
				mu.Lock()
				calls++
				mu.Unlock()
				v := 1
				return &v, nil
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, calls)
	assert.Len(t, r.Names(), 1)
}
