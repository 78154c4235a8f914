package index

import (
	"math"
	"testing"

	"github.com/reelstack/recoserve/internal/apperr"
	"github.com/reelstack/recoserve/internal/config/enums"
	"github.com/reelstack/recoserve/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allEngineKinds = []enums.IndexEngineType{enums.FLAT, enums.IVF, enums.HNSW}

// fiveItemCorpus is a tiny corpus with hand-checkable cosine ordering
// against the query (1, 0).
func fiveItemCorpus() []repositories.Entry {
	return []repositories.Entry{
		{ID: 1, Vector: []float32{1, 0}},
		{ID: 2, Vector: []float32{0.9, 0.1}},
		{ID: 3, Vector: []float32{0, 1}},
		{ID: 4, Vector: []float32{0.7, 0.7}},
		{ID: 5, Vector: []float32{-1, 0}},
	}
}

func resultIDs(results []Result) []int64 {
	ids := make([]int64, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.ID)
	}
	return ids
}

// ==================== known-vector scenario ====================

func TestKnownVectorOrdering_AllEngines(t *testing.T) {
	for _, kind := range allEngineKinds {
		engine, err := BuildEngine(kind, fiveItemCorpus(), EngineConfig{})
		require.NoError(t, err, "engine %s", kind)

		results := engine.Search([]float32{1, 0}, 5, nil)
		assert.Equal(t, []int64{1, 2, 4, 3, 5}, resultIDs(results), "engine %s", kind)
	}
}

func TestSearchRespectsK_AllEngines(t *testing.T) {
	for _, kind := range allEngineKinds {
		engine, err := BuildEngine(kind, fiveItemCorpus(), EngineConfig{})
		require.NoError(t, err)

		results := engine.Search([]float32{1, 0}, 2, nil)
		assert.Equal(t, []int64{1, 2}, resultIDs(results), "engine %s", kind)
	}
}

func TestSearchExclusion_AllEngines(t *testing.T) {
	exclude := map[int64]struct{}{1: {}, 4: {}}
	for _, kind := range allEngineKinds {
		engine, err := BuildEngine(kind, fiveItemCorpus(), EngineConfig{})
		require.NoError(t, err)

		results := engine.Search([]float32{1, 0}, 5, exclude)
		assert.Equal(t, []int64{2, 3, 5}, resultIDs(results), "engine %s", kind)
	}
}

func TestTieBreakByAscendingId_AllEngines(t *testing.T) {
	entries := []repositories.Entry{
		{ID: 30, Vector: []float32{0, 1}},
		{ID: 21, Vector: []float32{1, 0}},
		{ID: 12, Vector: []float32{1, 0}},
		{ID: 7, Vector: []float32{2, 0}}, // same direction as 12/21 after normalization
	}
	for _, kind := range allEngineKinds {
		engine, err := BuildEngine(kind, entries, EngineConfig{})
		require.NoError(t, err)

		results := engine.Search([]float32{1, 0}, 3, nil)
		assert.Equal(t, []int64{7, 12, 21}, resultIDs(results), "engine %s", kind)
	}
}

// ==================== build validation ====================

func TestBuildRejectsDimensionMismatch(t *testing.T) {
	entries := []repositories.Entry{
		{ID: 1, Vector: []float32{1, 0}},
		{ID: 2, Vector: []float32{1, 0, 0}},
	}
	_, err := BuildEngine(enums.FLAT, entries, EngineConfig{})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrIndexBuild)
}

func TestBuildRejectsDuplicateIds(t *testing.T) {
	entries := []repositories.Entry{
		{ID: 1, Vector: []float32{1, 0}},
		{ID: 1, Vector: []float32{0, 1}},
	}
	_, err := BuildEngine(enums.FLAT, entries, EngineConfig{})
	assert.ErrorIs(t, err, apperr.ErrIndexBuild)
}

func TestBuildRejectsEmptyVector(t *testing.T) {
	entries := []repositories.Entry{{ID: 1, Vector: nil}}
	_, err := BuildEngine(enums.FLAT, entries, EngineConfig{})
	assert.ErrorIs(t, err, apperr.ErrIndexBuild)
}

func TestBuildEmptyCorpus_AllEngines(t *testing.T) {
	for _, kind := range allEngineKinds {
		engine, err := BuildEngine(kind, nil, EngineConfig{})
		require.NoError(t, err, "engine %s", kind)
		assert.Equal(t, 0, engine.Size())
		assert.Empty(t, engine.Search([]float32{1, 0}, 3, nil))
	}
}

// ==================== query validation ====================

func TestSearchWrongDimensionReturnsNothing(t *testing.T) {
	engine, err := BuildEngine(enums.FLAT, fiveItemCorpus(), EngineConfig{})
	require.NoError(t, err)
	assert.Empty(t, engine.Search([]float32{1, 0, 0}, 3, nil))
}

func TestSearchNonPositiveK(t *testing.T) {
	engine, err := BuildEngine(enums.FLAT, fiveItemCorpus(), EngineConfig{})
	require.NoError(t, err)
	assert.Empty(t, engine.Search([]float32{1, 0}, 0, nil))
}

// ==================== normalization ====================

func TestScoresAreScaleInvariant(t *testing.T) {
	engine, err := BuildEngine(enums.FLAT, fiveItemCorpus(), EngineConfig{})
	require.NoError(t, err)

	small := engine.Search([]float32{0.001, 0}, 3, nil)
	large := engine.Search([]float32{1000, 0}, 3, nil)
	require.Equal(t, resultIDs(small), resultIDs(large))
	for i := range small {
		assert.InDelta(t, small[i].Score, large[i].Score, 1e-5)
	}
}

func TestVectorLookup(t *testing.T) {
	engine, err := BuildEngine(enums.FLAT, fiveItemCorpus(), EngineConfig{})
	require.NoError(t, err)

	v, ok := engine.Vector(1)
	require.True(t, ok)
	assert.InDelta(t, 1.0, float64(v[0]), 1e-6)

	_, ok = engine.Vector(404)
	assert.False(t, ok)
}

// ==================== larger corpus recall sanity ====================

func TestApproximateEnginesFindTrueNeighborhood(t *testing.T) {
	// A ring of unit vectors; nearest neighbors of the query direction are
	// unambiguous.
	entries := make([]repositories.Entry, 0, 200)
	for i := 0; i < 200; i++ {
		angle := float64(i) * 0.0314
		entries = append(entries, repositories.Entry{
			ID:     int64(i + 1),
			Vector: []float32{float32(math.Cos(angle)), float32(math.Sin(angle))},
		})
	}
	flat, err := BuildEngine(enums.FLAT, entries, EngineConfig{})
	require.NoError(t, err)
	expected := resultIDs(flat.Search([]float32{1, 0.1}, 10, nil))

	for _, kind := range []enums.IndexEngineType{enums.IVF, enums.HNSW} {
		engine, err := BuildEngine(kind, entries, EngineConfig{IvfNprobe: 4, HnswEfSearch: 64})
		require.NoError(t, err)
		got := resultIDs(engine.Search([]float32{1, 0.1}, 10, nil))

		// Approximate engines must recover most of the exact top 10.
		overlap := 0
		want := make(map[int64]struct{}, len(expected))
		for _, id := range expected {
			want[id] = struct{}{}
		}
		for _, id := range got {
			if _, ok := want[id]; ok {
				overlap++
			}
		}
		assert.GreaterOrEqual(t, overlap, 8, "engine %s recall too low", kind)
	}
}
