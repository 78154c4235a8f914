package index

import (
	"sync"
	"testing"

	"github.com/reelstack/recoserve/internal/apperr"
	"github.com/reelstack/recoserve/internal/config/enums"
	"github.com/reelstack/recoserve/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==================== generation lifecycle ====================

func TestSearchWithoutGenerationIsTransient(t *testing.T) {
	m := NewManager(enums.FLAT, EngineConfig{})
	assert.False(t, m.Ready())

	_, err := m.Search([]float32{1, 0}, 3, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrTransientBackend)
}

func TestBuildAndSwapActivates(t *testing.T) {
	m := NewManager(enums.FLAT, EngineConfig{})
	require.NoError(t, m.BuildAndSwap(fiveItemCorpus()))
	assert.True(t, m.Ready())

	results, err := m.Search([]float32{1, 0}, 3, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 4}, resultIDs(results))

	stats := m.Stats()
	assert.Equal(t, uint64(1), stats.ActiveGeneration)
	assert.Equal(t, 5, stats.EntryCount)
	assert.Equal(t, enums.FLAT, stats.Engine)
}

func TestSwapRetiresPreviousGeneration(t *testing.T) {
	m := NewManager(enums.FLAT, EngineConfig{})
	require.NoError(t, m.BuildAndSwap(fiveItemCorpus()))

	first, ok := m.Acquire()
	require.True(t, ok)

	require.NoError(t, m.BuildAndSwap(fiveItemCorpus()[:2]))

	// The pinned generation is retired but still readable until released.
	assert.True(t, first.Retired())
	assert.Equal(t, int64(1), first.Refs())
	assert.Equal(t, 5, first.Engine.Size())
	m.Release(first)
	assert.Equal(t, int64(0), first.Refs())

	second, ok := m.Acquire()
	require.True(t, ok)
	defer m.Release(second)
	assert.Equal(t, uint64(2), second.Number)
	assert.Equal(t, 2, second.Engine.Size())
	assert.False(t, second.Retired())
}

func TestFailedBuildKeepsActiveGeneration(t *testing.T) {
	m := NewManager(enums.FLAT, EngineConfig{})
	require.NoError(t, m.BuildAndSwap(fiveItemCorpus()))

	bad := []repositories.Entry{
		{ID: 1, Vector: []float32{1, 0}},
		{ID: 2, Vector: []float32{1, 0, 0}},
	}
	err := m.BuildAndSwap(bad)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrIndexBuild)

	// Old generation still serves.
	stats := m.Stats()
	assert.Equal(t, uint64(1), stats.ActiveGeneration)
	results, err := m.Search([]float32{1, 0}, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, resultIDs(results))
}

func TestLookup(t *testing.T) {
	m := NewManager(enums.FLAT, EngineConfig{})

	_, ok := m.Lookup(1)
	assert.False(t, ok)

	require.NoError(t, m.BuildAndSwap(fiveItemCorpus()))
	v, ok := m.Lookup(3)
	require.True(t, ok)
	assert.InDelta(t, 1.0, float64(v[1]), 1e-6)

	_, ok = m.Lookup(404)
	assert.False(t, ok)
}

// ==================== concurrency ====================

func TestConcurrentSearchDuringSwaps(t *testing.T) {
	m := NewManager(enums.FLAT, EngineConfig{})
	require.NoError(t, m.BuildAndSwap(fiveItemCorpus()))

	var wg sync.WaitGroup
	stop := make(chan struct{})

	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				results, err := m.Search([]float32{1, 0}, 1, nil)
				assert.NoError(t, err)
				assert.Equal(t, []int64{1}, resultIDs(results))
			}
		}()
	}

	for i := 0; i < 50; i++ {
		require.NoError(t, m.BuildAndSwap(fiveItemCorpus()))
	}
	close(stop)
	wg.Wait()

	gen, ok := m.Acquire()
	require.True(t, ok)
	defer m.Release(gen)
	assert.Equal(t, uint64(51), gen.Number)
}

func TestParseEngineKind(t *testing.T) {
	assert.Equal(t, enums.FLAT, ParseEngineKind("FLAT"))
	assert.Equal(t, enums.IVF, ParseEngineKind("IVF"))
	assert.Equal(t, enums.HNSW, ParseEngineKind("HNSW"))
	assert.Equal(t, enums.FLAT, ParseEngineKind(""))
	assert.Equal(t, enums.FLAT, ParseEngineKind("ANNOY"))
}
