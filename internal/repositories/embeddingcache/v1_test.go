package embeddingcache

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

// fakeInMemCache is a map-backed InMemoryCache for tests. TTLs are ignored;
// freshness is exercised through the injected clock instead.
type fakeInMemCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newFakeInMemCache() *fakeInMemCache {
	return &fakeInMemCache{data: make(map[string][]byte)}
}

func (f *fakeInMemCache) Get(key []byte) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[string(key)]
	if !ok {
		return nil, errors.New("not found")
	}
	return v, nil
}

func (f *fakeInMemCache) Set(key, value []byte) error {
	return f.SetEx(key, value, 0)
}

func (f *fakeInMemCache) SetEx(key, value []byte, expiryInSec int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[string(key)] = value
	return nil
}

func (f *fakeInMemCache) Delete(key []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.data[string(key)]
	delete(f.data, string(key))
	return ok
}

func newTestCache(t *testing.T) (*V1, *int64) {
	t.Helper()
	now := int64(1_000_000)
	c := newV1(newFakeInMemCache(), nil, 60, 600)
	c.nowFn = func() int64 { return atomic.LoadInt64(&now) }
	return c, &now
}

// ==================== codec ====================

func TestCodecRoundTrip(t *testing.T) {
	vector := []float32{0.25, -1.5, 3.75}
	buf := encodeFrame(42, vector)
	computedAt, decoded, err := decodeFrame(buf)
	require.NoError(t, err)
	assert.Equal(t, int64(42), computedAt)
	assert.Equal(t, vector, decoded)
}

func TestCodecMalformedFrame(t *testing.T) {
	_, _, err := decodeFrame([]byte{1, 2, 3})
	assert.Error(t, err)

	_, _, err = decodeFrame(make([]byte, frameHeaderSize+3))
	assert.Error(t, err)
}

// ==================== freshness ====================

func TestGetFreshWithinTTL(t *testing.T) {
	c, _ := newTestCache(t)
	require.NoError(t, c.Put(7, []float32{1, 2}))

	emb, ok := c.GetFresh(7)
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2}, emb.Vector)
}

func TestGetFreshExpiresButStaleSurvives(t *testing.T) {
	c, now := newTestCache(t)
	require.NoError(t, c.Put(7, []float32{1, 2}))

	atomic.AddInt64(now, 120) // past the 60s fresh TTL

	_, ok := c.GetFresh(7)
	assert.False(t, ok)

	emb, ok := c.GetStale(7)
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2}, emb.Vector)
}

func TestInvalidateRemovesEntry(t *testing.T) {
	c, _ := newTestCache(t)
	require.NoError(t, c.Put(7, []float32{1}))

	c.Invalidate(7)

	_, ok := c.GetFresh(7)
	assert.False(t, ok)
	_, ok = c.GetStale(7)
	assert.False(t, ok)
}

// ==================== single flight ====================

func TestGetOrComputeSingleFlight(t *testing.T) {
	c, _ := newTestCache(t)
	var calls int32
	release := make(chan struct{})
	compute := func(ctx context.Context) ([]float32, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return []float32{0.5, 0.5}, nil
	}

	const waiters = 16
	results := make([][]float32, waiters)
	errs := make([]error, waiters)
	var wg sync.WaitGroup
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.GetOrCompute(context.Background(), 99, compute)
		}(i)
	}

	// Let every goroutine reach the flight before releasing the compute.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for i := 0; i < waiters; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, []float32{0.5, 0.5}, results[i])
	}
}

func TestGetOrComputeFailurePropagatesToAllWaiters(t *testing.T) {
	c, _ := newTestCache(t)
	computeErr := errors.New("model exploded")
	release := make(chan struct{})
	compute := func(ctx context.Context) ([]float32, error) {
		<-release
		return nil, computeErr
	}

	const waiters = 8
	errs := make([]error, waiters)
	var wg sync.WaitGroup
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.GetOrCompute(context.Background(), 99, compute)
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := 0; i < waiters; i++ {
		assert.ErrorIs(t, errs[i], computeErr)
	}

	// A failed flight must not poison the cache.
	_, ok := c.GetStale(99)
	assert.False(t, ok)
}

func TestGetOrComputeHitSkipsCompute(t *testing.T) {
	c, _ := newTestCache(t)
	require.NoError(t, c.Put(5, []float32{9}))

	vector, err := c.GetOrCompute(context.Background(), 5, func(ctx context.Context) ([]float32, error) {
		t.Fatal("compute must not be called on a fresh hit")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []float32{9}, vector)
}

func TestGetOrComputeCachesResult(t *testing.T) {
	c, _ := newTestCache(t)
	var calls int32
	compute := func(ctx context.Context) ([]float32, error) {
		atomic.AddInt32(&calls, 1)
		return []float32{1, 1}, nil
	}

	_, err := c.GetOrCompute(context.Background(), 3, compute)
	require.NoError(t, err)
	_, err = c.GetOrCompute(context.Background(), 3, compute)
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
