package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolRunsAllPaths(t *testing.T) {
	t.Parallel()

	paths := []string{"a.epub", "b.epub", "c.epub", "d.epub", "e.epub"}

	var mu sync.Mutex
	seen := map[string]int{}

	pool := &Pool{Workers: 3}
	pool.Run(context.Background(), paths, func(_ context.Context, path string) {
		mu.Lock()
		seen[path]++
		mu.Unlock()
	})

	require.Len(t, seen, len(paths))
	for _, path := range paths {
		assert.Equal(t, 1, seen[path], "each path should be processed exactly once")
	}
}

func TestPoolBoundsConcurrency(t *testing.T) {
	t.Parallel()

	var current, peak int32

	paths := make([]string, 20)
	for i := range paths {
		paths[i] = "book.epub"
	}

	pool := &Pool{Workers: 2}
	pool.Run(context.Background(), paths, func(_ context.Context, _ string) {
		c := atomic.AddInt32(&current, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if c <= p || atomic.CompareAndSwapInt32(&peak, p, c) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&current, -1)
	})

	assert.Positive(t, atomic.LoadInt32(&peak))
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestPoolZeroWorkersRunsSequentially(t *testing.T) {
	t.Parallel()

	var count int32
	pool := &Pool{}
	pool.Run(context.Background(), []string{"a.epub", "b.epub", "c.epub"}, func(_ context.Context, _ string) {
		atomic.AddInt32(&count, 1)
	})

	assert.Equal(t, int32(3), atomic.LoadInt32(&count))
}

func TestPoolStopsDispatchingOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	paths := make([]string, 50)
	for i := range paths {
		paths[i] = "book.epub"
	}

	var count int32
	pool := &Pool{Workers: 1}
	pool.Run(ctx, paths, func(_ context.Context, _ string) {
		if atomic.AddInt32(&count, 1) == 5 {
			cancel()
		}
	})

	processed := atomic.LoadInt32(&count)
	assert.GreaterOrEqual(t, processed, int32(5))
	assert.Less(t, processed, int32(50))
}

func TestPoolEmptyBatch(t *testing.T) {
	t.Parallel()

	called := false
	pool := &Pool{Workers: 4}
	pool.Run(context.Background(), nil, func(_ context.Context, _ string) {
		called = true
	})

	assert.False(t, called)
}
