package index

import (
	"github.com/reelstack/recoserve/internal/config/enums"
)

// flatEngine scans every vector. Exact, and fast enough for small corpora.
type flatEngine struct {
	*baseIndex
}

func newFlatEngine(base *baseIndex) *flatEngine {
	return &flatEngine{baseIndex: base}
}

func (f *flatEngine) Kind() enums.IndexEngineType {
	return enums.FLAT
}

func (f *flatEngine) Search(vector []float32, k int, exclude map[int64]struct{}) []Result {
	if k <= 0 || len(f.ids) == 0 || len(vector) != f.dim {
		return nil
	}
	query := normalize(vector)
	results := make([]Result, 0, len(f.ids))
	for i, id := range f.ids {
		if _, skip := exclude[id]; skip {
			continue
		}
		results = append(results, Result{ID: id, Score: dot(query, f.vectors[i])})
	}
	return topK(results, k)
}

func (f *flatEngine) Vector(id int64) ([]float32, bool) {
	return f.vector(id)
}

func (f *flatEngine) Size() int {
	return len(f.ids)
}
