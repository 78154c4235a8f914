package embeddingcache

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/reelstack/recoserve/internal/repositories"
	"github.com/reelstack/recoserve/pkg/inmemorycache"
	"github.com/reelstack/recoserve/pkg/metric"
	"github.com/rs/zerolog/log"
)

const redisOpTimeout = 50 * time.Millisecond

// flightCall is one in-progress embedding computation shared by all waiters.
type flightCall struct {
	done   chan struct{}
	vector []float32
	err    error
}

type V1 struct {
	inMemCache   inmemorycache.InMemoryCache
	redisClient  *redis.Client
	freshSeconds int64
	staleSeconds int64
	nowFn        func() int64

	mu      sync.Mutex
	flights map[int64]*flightCall
}

func newV1(inMemCache inmemorycache.InMemoryCache, redisClient *redis.Client, freshSeconds, staleSeconds int) *V1 {
	if freshSeconds <= 0 {
		log.Panic().Msgf("embedding cache fresh TTL must be positive, got %d", freshSeconds)
	}
	if staleSeconds < freshSeconds {
		staleSeconds = freshSeconds
	}
	return &V1{
		inMemCache:   inMemCache,
		redisClient:  redisClient,
		freshSeconds: int64(freshSeconds),
		staleSeconds: int64(staleSeconds),
		nowFn:        func() int64 { return time.Now().Unix() },
		flights:      make(map[int64]*flightCall),
	}
}

// lookup reads the entry from the in-process tier, falling back to Redis.
func (c *V1) lookup(subject int64) (int64, []float32, bool) {
	key := cacheKey(subject)
	buf, err := c.inMemCache.Get(key)
	if err != nil && c.redisClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
		defer cancel()
		var redisErr error
		buf, redisErr = c.redisClient.Get(ctx, string(key)).Bytes()
		if redisErr != nil {
			return 0, nil, false
		}
		// repopulate the local tier
		_ = c.inMemCache.SetEx(key, buf, int(c.staleSeconds))
	} else if err != nil {
		return 0, nil, false
	}
	computedAt, vector, decodeErr := decodeFrame(buf)
	if decodeErr != nil {
		log.Error().Err(decodeErr).Int64("subject", subject).Msg("dropping malformed embedding cache entry")
		c.Invalidate(subject)
		return 0, nil, false
	}
	return computedAt, vector, true
}

func (c *V1) GetFresh(subject int64) (*repositories.Embedding, bool) {
	computedAt, vector, ok := c.lookup(subject)
	if !ok || c.nowFn()-computedAt > c.freshSeconds {
		metric.Incr("embedding_cache_miss", nil)
		return nil, false
	}
	metric.Incr("embedding_cache_hit", nil)
	return &repositories.Embedding{Subject: subject, Vector: vector, ComputedAt: computedAt}, true
}

func (c *V1) GetStale(subject int64) (*repositories.Embedding, bool) {
	computedAt, vector, ok := c.lookup(subject)
	if !ok {
		return nil, false
	}
	metric.Incr("embedding_cache_stale_hit", nil)
	return &repositories.Embedding{Subject: subject, Vector: vector, ComputedAt: computedAt}, true
}

// GetOrCompute returns a fresh embedding, collapsing concurrent misses for
// the same subject into a single compute call.
func (c *V1) GetOrCompute(ctx context.Context, subject int64, compute ComputeFunc) ([]float32, error) {
	if emb, ok := c.GetFresh(subject); ok {
		return emb.Vector, nil
	}

	c.mu.Lock()
	if fc, inFlight := c.flights[subject]; inFlight {
		c.mu.Unlock()
		metric.Incr("embedding_compute_coalesced", nil)
		select {
		case <-fc.done:
			return fc.vector, fc.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	fc := &flightCall{done: make(chan struct{})}
	c.flights[subject] = fc
	c.mu.Unlock()

	// Re-check after winning the flight: another goroutine may have stored
	// the value between our miss and the lock.
	if emb, ok := c.GetFresh(subject); ok {
		fc.vector = emb.Vector
	} else {
		startTime := time.Now()
		fc.vector, fc.err = compute(ctx)
		metric.Timing("embedding_compute_latency", time.Since(startTime), nil)
		if fc.err == nil {
			if putErr := c.Put(subject, fc.vector); putErr != nil {
				log.Error().Err(putErr).Int64("subject", subject).Msg("failed to cache computed embedding")
			}
		}
	}

	c.mu.Lock()
	delete(c.flights, subject)
	c.mu.Unlock()
	close(fc.done)
	return fc.vector, fc.err
}

func (c *V1) Put(subject int64, vector []float32) error {
	buf := encodeFrame(c.nowFn(), vector)
	key := cacheKey(subject)
	if err := c.inMemCache.SetEx(key, buf, int(c.staleSeconds)); err != nil {
		return err
	}
	if c.redisClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
		defer cancel()
		if err := c.redisClient.Set(ctx, string(key), buf, time.Duration(c.staleSeconds)*time.Second).Err(); err != nil {
			log.Error().Err(err).Int64("subject", subject).Msg("failed to write embedding to redis tier")
		}
	}
	return nil
}

func (c *V1) Invalidate(subject int64) {
	key := cacheKey(subject)
	c.inMemCache.Delete(key)
	if c.redisClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
		defer cancel()
		if err := c.redisClient.Del(ctx, string(key)).Err(); err != nil {
			log.Error().Err(err).Int64("subject", subject).Msg("failed to invalidate embedding in redis tier")
		}
	}
	metric.Incr("embedding_cache_invalidate", nil)
}
