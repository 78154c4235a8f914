package index

import (
	"math"
	"sort"

	"github.com/reelstack/recoserve/internal/apperr"
	"github.com/reelstack/recoserve/internal/config/enums"
	"github.com/reelstack/recoserve/internal/repositories"
)

// Result is a single search hit. Score is cosine similarity.
type Result struct {
	ID    int64
	Score float32
}

// Engine is an immutable in-process ANN index over a fixed entry set.
// Implementations are safe for concurrent Search calls once built.
type Engine interface {
	Kind() enums.IndexEngineType
	// Search returns up to k results ordered by score descending, ties
	// broken by ascending id. Excluded ids never appear.
	Search(vector []float32, k int, exclude map[int64]struct{}) []Result
	// Vector returns the stored (normalized) vector for an id.
	Vector(id int64) ([]float32, bool)
	Size() int
}

// EngineConfig carries per-engine tuning knobs.
type EngineConfig struct {
	IvfNlist           int
	IvfNprobe          int
	HnswM              int
	HnswEfConstruction int
	HnswEfSearch       int
}

// BuildEngine constructs the engine of the given kind over the entries.
// Vectors are copied and L2-normalized; the caller's slices are not retained.
func BuildEngine(kind enums.IndexEngineType, entries []repositories.Entry, cfg EngineConfig) (Engine, error) {
	base, err := newBaseIndex(entries)
	if err != nil {
		return nil, err
	}
	switch kind {
	case enums.FLAT:
		return newFlatEngine(base), nil
	case enums.IVF:
		return newIvfEngine(base, cfg)
	case enums.HNSW:
		return newHnswEngine(base, cfg)
	default:
		return nil, apperr.IndexBuild("unknown index engine %q", kind)
	}
}

// baseIndex holds the normalized vector matrix shared by all engines.
// Entries are stored in ascending id order.
type baseIndex struct {
	ids     []int64
	vectors [][]float32
	byId    map[int64]int
	dim     int
}

func newBaseIndex(entries []repositories.Entry) (*baseIndex, error) {
	sorted := make([]repositories.Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	b := &baseIndex{
		ids:     make([]int64, 0, len(sorted)),
		vectors: make([][]float32, 0, len(sorted)),
		byId:    make(map[int64]int, len(sorted)),
	}
	for _, e := range sorted {
		if len(e.Vector) == 0 {
			return nil, apperr.IndexBuild("entry %d has an empty vector", e.ID)
		}
		if b.dim == 0 {
			b.dim = len(e.Vector)
		} else if len(e.Vector) != b.dim {
			return nil, apperr.IndexBuild("entry %d has dimension %d, index dimension is %d", e.ID, len(e.Vector), b.dim)
		}
		if _, dup := b.byId[e.ID]; dup {
			return nil, apperr.IndexBuild("duplicate entry id %d", e.ID)
		}
		b.byId[e.ID] = len(b.ids)
		b.ids = append(b.ids, e.ID)
		b.vectors = append(b.vectors, normalize(e.Vector))
	}
	return b, nil
}

func (b *baseIndex) vector(id int64) ([]float32, bool) {
	idx, ok := b.byId[id]
	if !ok {
		return nil, false
	}
	return b.vectors[idx], true
}

// normalize returns a fresh L2-normalized copy. Zero vectors are returned
// as a zero copy so they score 0 against everything.
func normalize(v []float32) []float32 {
	out := make([]float32, len(v))
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return out
	}
	inv := float32(1 / math.Sqrt(sum))
	for i, x := range v {
		out[i] = x * inv
	}
	return out
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// sortResults orders by score descending, ties by ascending id.
func sortResults(results []Result) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})
}

// topK sorts and truncates results in place.
func topK(results []Result, k int) []Result {
	sortResults(results)
	if len(results) > k {
		results = results[:k]
	}
	return results
}
