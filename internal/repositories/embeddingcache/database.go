package embeddingcache

import (
	"context"

	"github.com/reelstack/recoserve/internal/repositories"
)

// ComputeFunc produces a subject embedding on cache miss.
type ComputeFunc func(ctx context.Context) ([]float32, error)

// Database is the subject embedding cache. Entries age in two stages: an
// entry is fresh within the configured TTL and stale (but still usable as a
// fallback) up to the staleness bound, after which it is evicted.
type Database interface {
	// GetFresh returns the embedding if present and within the fresh TTL.
	GetFresh(subject int64) (*repositories.Embedding, bool)
	// GetStale returns the embedding if present at all, regardless of
	// freshness. Used when the model is unavailable.
	GetStale(subject int64) (*repositories.Embedding, bool)
	// GetOrCompute returns a fresh embedding, invoking compute on miss.
	// Concurrent calls for the same subject share one compute invocation;
	// its failure propagates to every waiter.
	GetOrCompute(ctx context.Context, subject int64, compute ComputeFunc) ([]float32, error)
	// Put stores the embedding with the current timestamp.
	Put(subject int64, vector []float32) error
	// Invalidate removes the subject's entry from every tier.
	Invalidate(subject int64)
}
