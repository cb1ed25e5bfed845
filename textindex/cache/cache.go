// Package cache memoises ranked search results. Backends store opaque
// bytes; Results adds key derivation, request coalescing and per-index
// invalidation on top.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/nonibytes/textindex/textindex/ops"
)

const keyPrefix = "textindex:"

// Cache is a byte-valued store.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	// DeletePrefix removes every key starting with prefix and returns how
	// many went.
	DeletePrefix(ctx context.Context, prefix string) (int, error)
	Close() error
}

// Key derives the cache key for one search of indexID. parts must capture
// every input that changes the result.
func Key(indexID string, parts ...string) string {
	h := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return fmt.Sprintf("%s%s:%x", keyPrefix, indexID, h[:16])
}

func indexPrefix(indexID string) string {
	return keyPrefix + indexID + ":"
}

// Results caches []ops.ScoredID per search key.
//
// Each index has a generation that Invalidate bumps. A value computed
// under an older generation is returned to its callers but never stored.
type Results struct {
	backend Cache
	group   singleflight.Group
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64

	// mu orders generation checks in set against bumps in Invalidate.
	mu  sync.RWMutex
	gen map[string]uint64
}

func NewResults(backend Cache, logger *slog.Logger) *Results {
	if logger == nil {
		logger = slog.Default()
	}
	return &Results{
		backend: backend,
		logger:  logger.With("component", "result-cache"),
		gen:     make(map[string]uint64),
	}
}

func (r *Results) get(ctx context.Context, key string) ([]ops.ScoredID, bool) {
	b, ok, err := r.backend.Get(ctx, key)
	if err != nil {
		r.logger.Error("cache get failed", "key", key, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var out []ops.ScoredID
	if err := json.Unmarshal(b, &out); err != nil {
		r.logger.Error("cache unmarshal failed", "key", key, "error", err)
		return nil, false
	}
	return out, true
}

func (r *Results) generation(indexID string) uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.gen[indexID]
}

// set stores v unless indexID was invalidated after gen was read.
func (r *Results) set(ctx context.Context, indexID string, gen uint64, key string, v []ops.ScoredID) {
	b, err := json.Marshal(v)
	if err != nil {
		r.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.gen[indexID] != gen {
		r.logger.Debug("cache set skipped", "key", key, "index", indexID)
		return
	}
	if err := r.backend.Set(ctx, key, b); err != nil {
		r.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached value for key or computes it once for
// all concurrent callers. hit reports a cache hit. key must come from Key
// with the same indexID.
func (r *Results) GetOrCompute(ctx context.Context, indexID, key string, compute func() ([]ops.ScoredID, error)) (res []ops.ScoredID, hit bool, err error) {
	if v, ok := r.get(ctx, key); ok {
		r.hits.Add(1)
		return v, true, nil
	}
	r.misses.Add(1)
	gen := r.generation(indexID)
	flight := key + "@" + strconv.FormatUint(gen, 10)
	val, err, _ := r.group.Do(flight, func() (any, error) {
		if v, ok := r.get(ctx, key); ok {
			return v, nil
		}
		v, err := compute()
		if err != nil {
			return nil, err
		}
		r.set(ctx, indexID, gen, key, v)
		return v, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.([]ops.ScoredID), false, nil
}

// Invalidate drops every cached search of indexID.
func (r *Results) Invalidate(ctx context.Context, indexID string) error {
	r.mu.Lock()
	r.gen[indexID]++
	r.mu.Unlock()

	n, err := r.backend.DeletePrefix(ctx, indexPrefix(indexID))
	if err != nil {
		return fmt.Errorf("invalidate cache for %s: %w", indexID, err)
	}
	r.logger.Debug("cache invalidate", "index", indexID, "keys_deleted", n)
	return nil
}

func (r *Results) Stats() (hits, misses int64) {
	return r.hits.Load(), r.misses.Load()
}

func (r *Results) Close() error {
	return r.backend.Close()
}
