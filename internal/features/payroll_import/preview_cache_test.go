package payroll_import

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func countingParse(n *int32) ParseFunc {
	return func(context.Context) (*PreviewResult, error) {
		atomic.AddInt32(n, 1)
		return &PreviewResult{Summary: Summary{Total: 1}}, nil
	}
}

func TestPreviewCacheHitWithinTTL(t *testing.T) {
	clock := newFakeClock()
	cache := NewPreviewCache(30*time.Minute, 10)
	cache.now = clock.Now
	data := []byte("workbook bytes")
	var parses int32

	first, err := cache.GetOrParse(context.Background(), data, countingParse(&parses))
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	assert.Equal(t, ContentHash(data), first.ContentHash)
	assert.Len(t, first.ContentHash, 32)

	clock.Advance(29 * time.Minute)
	second, err := cache.GetOrParse(context.Background(), data, countingParse(&parses))
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.GeneratedAt, second.GeneratedAt)
	assert.EqualValues(t, 1, parses)

	clock.Advance(2 * time.Minute)
	third, err := cache.GetOrParse(context.Background(), data, countingParse(&parses))
	require.NoError(t, err)
	assert.False(t, third.FromCache)
	assert.EqualValues(t, 2, parses)

	stats := cache.Stats()
	assert.EqualValues(t, 1, stats.Hits)
	assert.EqualValues(t, 2, stats.Misses)
	assert.InDelta(t, 1.0/3, stats.HitRate, 1e-9)
	assert.Equal(t, 1, stats.Size)
}

func TestPreviewCacheEvictsOldestFirst(t *testing.T) {
	clock := newFakeClock()
	cache := NewPreviewCache(time.Hour, 2)
	cache.now = clock.Now
	var parses int32

	for _, d := range []string{"a", "b", "c"} {
		_, err := cache.GetOrParse(context.Background(), []byte(d), countingParse(&parses))
		require.NoError(t, err)
		clock.Advance(time.Second)
	}
	assert.Equal(t, 2, cache.Stats().Size)

	res, err := cache.GetOrParse(context.Background(), []byte("c"), countingParse(&parses))
	require.NoError(t, err)
	assert.True(t, res.FromCache)

	res, err = cache.GetOrParse(context.Background(), []byte("a"), countingParse(&parses))
	require.NoError(t, err)
	assert.False(t, res.FromCache)
	assert.EqualValues(t, 4, parses)
}

func TestPreviewCacheSharesConcurrentParse(t *testing.T) {
	cache := NewPreviewCache(time.Hour, 10)
	var parses int32
	release := make(chan struct{})
	parse := func(context.Context) (*PreviewResult, error) {
		atomic.AddInt32(&parses, 1)
		<-release
		return &PreviewResult{}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cache.GetOrParse(context.Background(), []byte("same"), parse)
			assert.NoError(t, err)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, parses)
}

func TestPreviewCacheDoesNotStoreFailures(t *testing.T) {
	cache := NewPreviewCache(time.Hour, 10)
	boom := errors.New("boom")

	_, err := cache.GetOrParse(context.Background(), []byte("x"), func(context.Context) (*PreviewResult, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, cache.Stats().Size)

	var parses int32
	_, err = cache.GetOrParse(context.Background(), []byte("x"), countingParse(&parses))
	require.NoError(t, err)
	assert.EqualValues(t, 1, parses)
}

func TestPreviewCachePurge(t *testing.T) {
	clock := newFakeClock()
	cache := NewPreviewCache(time.Minute, 10)
	cache.now = clock.Now
	var parses int32

	_, _ = cache.GetOrParse(context.Background(), []byte("old"), countingParse(&parses))
	clock.Advance(50 * time.Second)
	_, _ = cache.GetOrParse(context.Background(), []byte("new"), countingParse(&parses))
	clock.Advance(20 * time.Second)

	assert.Equal(t, 1, cache.Purge())
	assert.Equal(t, 1, cache.Stats().Size)
}
