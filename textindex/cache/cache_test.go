package cache

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nonibytes/textindex/textindex/ops"
)

func newLRU(t *testing.T) *LRU {
	t.Helper()
	l, err := NewLRU(16)
	require.NoError(t, err)
	return l
}

func TestKey(t *testing.T) {
	a := Key("notes", "apple", "limit=10")
	b := Key("notes", "apple", "limit=20")

	assert.NotEqual(t, a, b)
	assert.Equal(t, a, Key("notes", "apple", "limit=10"))
	assert.Contains(t, a, "textindex:notes:")
}

func TestResults_GetOrCompute(t *testing.T) {
	// Given an empty cache
	r := NewResults(newLRU(t), nil)
	ctx := context.Background()
	key := Key("idx", "apple")
	want := []ops.ScoredID{{ID: "1", Score: 1}}
	calls := 0
	compute := func() ([]ops.ScoredID, error) {
		calls++
		return want, nil
	}

	// When computed twice
	got, hit, err := r.GetOrCompute(ctx, "idx", key, compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, want, got)

	got, hit, err = r.GetOrCompute(ctx, "idx", key, compute)
	require.NoError(t, err)

	// Then the second call is served from the cache
	assert.True(t, hit)
	assert.Equal(t, want, got)
	assert.Equal(t, 1, calls)
	hits, misses := r.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestResults_ComputeErrorNotCached(t *testing.T) {
	r := NewResults(newLRU(t), nil)
	boom := errors.New("boom")

	_, _, err := r.GetOrCompute(context.Background(), "idx", "k", func() ([]ops.ScoredID, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	_, hit, err := r.GetOrCompute(context.Background(), "idx", "k", func() ([]ops.ScoredID, error) {
		return []ops.ScoredID{}, nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestResults_Coalesces(t *testing.T) {
	r := NewResults(newLRU(t), nil)
	var calls atomic.Int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := r.GetOrCompute(context.Background(), "idx", "k", func() ([]ops.ScoredID, error) {
				calls.Add(1)
				<-release
				return []ops.ScoredID{{ID: "1"}}, nil
			})
			assert.NoError(t, err)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestResults_Invalidate(t *testing.T) {
	l := newLRU(t)
	r := NewResults(l, nil)
	ctx := context.Background()
	compute := func() ([]ops.ScoredID, error) { return []ops.ScoredID{}, nil }

	_, _, _ = r.GetOrCompute(ctx, "a", Key("a", "q1"), compute)
	_, _, _ = r.GetOrCompute(ctx, "a", Key("a", "q2"), compute)
	_, _, _ = r.GetOrCompute(ctx, "ab", Key("ab", "q1"), compute)
	require.Equal(t, 3, l.Len())

	require.NoError(t, r.Invalidate(ctx, "a"))
	assert.Equal(t, 1, l.Len(), "only index a is dropped, not ab")
}

func TestResults_InvalidateDuringCompute(t *testing.T) {
	l := newLRU(t)
	r := NewResults(l, nil)
	ctx := context.Background()
	key := Key("idx", "apple")
	started := make(chan struct{})
	release := make(chan struct{})

	// Given a compute that is still running
	done := make(chan []ops.ScoredID)
	go func() {
		got, _, err := r.GetOrCompute(ctx, "idx", key, func() ([]ops.ScoredID, error) {
			close(started)
			<-release
			return []ops.ScoredID{{ID: "1", Score: 1}}, nil
		})
		assert.NoError(t, err)
		done <- got
	}()
	<-started

	// When the index is invalidated before it finishes
	require.NoError(t, r.Invalidate(ctx, "idx"))
	close(release)

	// Then the caller still gets its value but nothing stale is stored
	assert.Len(t, <-done, 1)
	assert.Equal(t, 0, l.Len())

	// And the next lookup computes afresh and is cached again
	fresh := []ops.ScoredID{{ID: "1", Score: 1}, {ID: "2", Score: 1}}
	got, hit, err := r.GetOrCompute(ctx, "idx", key, func() ([]ops.ScoredID, error) { return fresh, nil })
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, fresh, got)
	assert.Equal(t, 1, l.Len())
}

func TestEscapeGlob(t *testing.T) {
	assert.Equal(t, `textindex:a\*b\?:`, escapeGlob("textindex:a*b?:"))
}

// TestRedis needs a reachable server in TEXTINDEX_TEST_REDIS_ADDR.
func TestRedis(t *testing.T) {
	addr := os.Getenv("TEXTINDEX_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEXTINDEX_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	rc, err := NewRedis(ctx, RedisOptions{Addr: addr, TTL: time.Minute})
	require.NoError(t, err)
	defer rc.Close()

	key := Key("redis_test", time.Now().String())
	require.NoError(t, rc.Set(ctx, key, []byte("v")))
	v, ok, err := rc.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), v)

	n, err := rc.DeletePrefix(ctx, indexPrefix("redis_test"))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 1)
	_, ok, err = rc.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}
