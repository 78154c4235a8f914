package index

import (
	"math"
	"sort"

	"github.com/reelstack/recoserve/internal/config/enums"
)

const (
	defaultNprobe   = 8
	kmeansMaxRounds = 10
)

// ivfEngine partitions the corpus into nlist cells around k-means centroids
// and probes only the nprobe closest cells at query time.
type ivfEngine struct {
	*baseIndex
	centroids [][]float32
	cells     [][]int // centroid index -> entry indexes
	nprobe    int
}

func newIvfEngine(base *baseIndex, cfg EngineConfig) (*ivfEngine, error) {
	n := len(base.ids)
	nlist := cfg.IvfNlist
	if nlist <= 0 {
		nlist = int(math.Sqrt(float64(n)))
	}
	if nlist < 1 {
		nlist = 1
	}
	if nlist > n {
		nlist = n
	}
	nprobe := cfg.IvfNprobe
	if nprobe <= 0 {
		nprobe = defaultNprobe
	}
	if nprobe > nlist {
		nprobe = nlist
	}

	e := &ivfEngine{
		baseIndex: base,
		nprobe:    nprobe,
	}
	if n > 0 {
		e.train(nlist)
	}
	return e, nil
}

// train runs a few k-means rounds. Centroids are seeded with evenly spaced
// entries, which keeps builds deterministic.
func (e *ivfEngine) train(nlist int) {
	n := len(e.ids)
	e.centroids = make([][]float32, nlist)
	for c := 0; c < nlist; c++ {
		seed := e.vectors[c*n/nlist]
		centroid := make([]float32, e.dim)
		copy(centroid, seed)
		e.centroids[c] = centroid
	}

	assignments := make([]int, n)
	for round := 0; round < kmeansMaxRounds; round++ {
		changed := false
		for i, v := range e.vectors {
			best := e.nearestCentroid(v)
			if assignments[i] != best {
				assignments[i] = best
				changed = true
			}
		}
		if !changed && round > 0 {
			break
		}
		sums := make([][]float64, nlist)
		counts := make([]int, nlist)
		for c := range sums {
			sums[c] = make([]float64, e.dim)
		}
		for i, v := range e.vectors {
			c := assignments[i]
			counts[c]++
			for d, x := range v {
				sums[c][d] += float64(x)
			}
		}
		for c := range e.centroids {
			if counts[c] == 0 {
				continue // empty cell keeps its previous centroid
			}
			mean := make([]float32, e.dim)
			for d := range mean {
				mean[d] = float32(sums[c][d] / float64(counts[c]))
			}
			e.centroids[c] = normalize(mean)
		}
	}

	e.cells = make([][]int, nlist)
	for i := range e.vectors {
		c := assignments[i]
		e.cells[c] = append(e.cells[c], i)
	}
}

func (e *ivfEngine) nearestCentroid(v []float32) int {
	best, bestScore := 0, float32(math.Inf(-1))
	for c, centroid := range e.centroids {
		if s := dot(v, centroid); s > bestScore {
			best, bestScore = c, s
		}
	}
	return best
}

func (e *ivfEngine) Kind() enums.IndexEngineType {
	return enums.IVF
}

func (e *ivfEngine) Search(vector []float32, k int, exclude map[int64]struct{}) []Result {
	if k <= 0 || len(e.ids) == 0 || len(vector) != e.dim {
		return nil
	}
	query := normalize(vector)

	type rankedCell struct {
		cell  int
		score float32
	}
	ranked := make([]rankedCell, len(e.centroids))
	for c, centroid := range e.centroids {
		ranked[c] = rankedCell{cell: c, score: dot(query, centroid)}
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	results := make([]Result, 0, k*e.nprobe)
	for p := 0; p < e.nprobe && p < len(ranked); p++ {
		for _, idx := range e.cells[ranked[p].cell] {
			id := e.ids[idx]
			if _, skip := exclude[id]; skip {
				continue
			}
			results = append(results, Result{ID: id, Score: dot(query, e.vectors[idx])})
		}
	}
	return topK(results, k)
}

func (e *ivfEngine) Vector(id int64) ([]float32, bool) {
	return e.vector(id)
}

func (e *ivfEngine) Size() int {
	return len(e.ids)
}
