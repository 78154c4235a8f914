package index

import (
	"container/heap"
	"math"
	"math/rand"

	"github.com/reelstack/recoserve/internal/config/enums"
)

const (
	defaultHnswM       = 16
	defaultEfConstruct = 200
	defaultEfSearch    = 64
	hnswBuildSeed      = 42
)

// hnswEngine is a hierarchical navigable small world graph. The graph is
// built once and never mutated, so searches need no locking.
type hnswEngine struct {
	*baseIndex
	m          int
	mMax0      int
	efSearch   int
	levelMult  float64
	entryPoint int
	maxLevel   int
	// neighbors[level][node] -> neighbor node indexes; nodes absent from a
	// level have a nil slice.
	neighbors []map[int][]int
	levels    []int
}

func newHnswEngine(base *baseIndex, cfg EngineConfig) (*hnswEngine, error) {
	m := cfg.HnswM
	if m <= 0 {
		m = defaultHnswM
	}
	efConstruct := cfg.HnswEfConstruction
	if efConstruct <= 0 {
		efConstruct = defaultEfConstruct
	}
	efSearch := cfg.HnswEfSearch
	if efSearch <= 0 {
		efSearch = defaultEfSearch
	}

	e := &hnswEngine{
		baseIndex:  base,
		m:          m,
		mMax0:      2 * m,
		efSearch:   efSearch,
		levelMult:  1 / math.Log(float64(m)),
		entryPoint: -1,
		maxLevel:   -1,
	}

	// Fixed seed keeps builds reproducible for the same entry set.
	rng := rand.New(rand.NewSource(hnswBuildSeed))
	e.levels = make([]int, len(base.ids))
	for i := range e.levels {
		e.levels[i] = e.randomLevel(rng)
	}
	for i := range base.ids {
		e.insert(i, efConstruct)
	}
	return e, nil
}

func (e *hnswEngine) randomLevel(rng *rand.Rand) int {
	return int(math.Floor(-math.Log(rng.Float64()+1e-12) * e.levelMult))
}

func (e *hnswEngine) ensureLevel(level int) {
	for len(e.neighbors) <= level {
		e.neighbors = append(e.neighbors, make(map[int][]int))
	}
}

func (e *hnswEngine) insert(node, efConstruct int) {
	level := e.levels[node]
	e.ensureLevel(level)

	if e.entryPoint < 0 {
		e.entryPoint = node
		e.maxLevel = level
		for l := 0; l <= level; l++ {
			e.neighbors[l][node] = nil
		}
		return
	}

	vector := e.vectors[node]
	ep := e.entryPoint

	// Greedy descent through layers above the node's level.
	for l := e.maxLevel; l > level; l-- {
		ep = e.greedyClosest(vector, ep, l)
	}

	for l := min(level, e.maxLevel); l >= 0; l-- {
		candidates := e.searchLayer(vector, ep, efConstruct, l)
		maxConn := e.m
		if l == 0 {
			maxConn = e.mMax0
		}
		selected := e.selectNeighbors(candidates, e.m)
		e.neighbors[l][node] = selected
		for _, nb := range selected {
			e.neighbors[l][nb] = append(e.neighbors[l][nb], node)
			if len(e.neighbors[l][nb]) > maxConn {
				e.neighbors[l][nb] = e.pruneNeighbors(nb, e.neighbors[l][nb], maxConn)
			}
		}
		if len(candidates) > 0 {
			ep = candidates[0].node
		}
	}

	if level > e.maxLevel {
		e.maxLevel = level
		e.entryPoint = node
	}
}

// pruneNeighbors keeps the maxConn closest neighbors of node.
func (e *hnswEngine) pruneNeighbors(node int, neighbors []int, maxConn int) []int {
	scored := make([]scoredNode, 0, len(neighbors))
	for _, nb := range neighbors {
		scored = append(scored, scoredNode{node: nb, score: dot(e.vectors[node], e.vectors[nb])})
	}
	sortScoredNodes(scored)
	out := make([]int, 0, maxConn)
	for i := 0; i < maxConn && i < len(scored); i++ {
		out = append(out, scored[i].node)
	}
	return out
}

func (e *hnswEngine) selectNeighbors(candidates []scoredNode, m int) []int {
	out := make([]int, 0, m)
	for i := 0; i < m && i < len(candidates); i++ {
		out = append(out, candidates[i].node)
	}
	return out
}

// greedyClosest walks level l toward the query until no neighbor improves.
func (e *hnswEngine) greedyClosest(vector []float32, ep, l int) int {
	cur := ep
	curScore := dot(vector, e.vectors[cur])
	for {
		improved := false
		for _, nb := range e.neighbors[l][cur] {
			if s := dot(vector, e.vectors[nb]); s > curScore {
				cur, curScore = nb, s
				improved = true
			}
		}
		if !improved {
			return cur
		}
	}
}

type scoredNode struct {
	node  int
	score float32
}

// sortScoredNodes orders by score descending, ties by node ascending.
func sortScoredNodes(nodes []scoredNode) {
	for i := 1; i < len(nodes); i++ {
		for j := i; j > 0; j-- {
			if nodes[j].score > nodes[j-1].score ||
				(nodes[j].score == nodes[j-1].score && nodes[j].node < nodes[j-1].node) {
				nodes[j], nodes[j-1] = nodes[j-1], nodes[j]
			} else {
				break
			}
		}
	}
}

// candidateHeap is a max-heap on score (closest first).
type candidateHeap []scoredNode

func (h candidateHeap) Len() int            { return len(h) }
func (h candidateHeap) Less(i, j int) bool  { return h[i].score > h[j].score }
func (h candidateHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *candidateHeap) Push(x interface{}) { *h = append(*h, x.(scoredNode)) }
func (h *candidateHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// resultHeap is a min-heap on score (worst of the kept set first).
type resultHeap []scoredNode

func (h resultHeap) Len() int            { return len(h) }
func (h resultHeap) Less(i, j int) bool  { return h[i].score < h[j].score }
func (h resultHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *resultHeap) Push(x interface{}) { *h = append(*h, x.(scoredNode)) }
func (h *resultHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// searchLayer is the standard beam search over one layer, returning up to ef
// nodes ordered closest first.
func (e *hnswEngine) searchLayer(vector []float32, ep, ef, l int) []scoredNode {
	visited := map[int]struct{}{ep: {}}
	epScore := dot(vector, e.vectors[ep])

	candidates := &candidateHeap{{node: ep, score: epScore}}
	results := &resultHeap{{node: ep, score: epScore}}
	heap.Init(candidates)
	heap.Init(results)

	for candidates.Len() > 0 {
		c := heap.Pop(candidates).(scoredNode)
		worst := (*results)[0].score
		if c.score < worst && results.Len() >= ef {
			break
		}
		for _, nb := range e.neighbors[l][c.node] {
			if _, seen := visited[nb]; seen {
				continue
			}
			visited[nb] = struct{}{}
			s := dot(vector, e.vectors[nb])
			if results.Len() < ef || s > (*results)[0].score {
				heap.Push(candidates, scoredNode{node: nb, score: s})
				heap.Push(results, scoredNode{node: nb, score: s})
				if results.Len() > ef {
					heap.Pop(results)
				}
			}
		}
	}

	out := make([]scoredNode, results.Len())
	copy(out, *results)
	sortScoredNodes(out)
	return out
}

func (e *hnswEngine) Kind() enums.IndexEngineType {
	return enums.HNSW
}

func (e *hnswEngine) Search(vector []float32, k int, exclude map[int64]struct{}) []Result {
	if k <= 0 || len(e.ids) == 0 || len(vector) != e.dim || e.entryPoint < 0 {
		return nil
	}
	query := normalize(vector)

	ep := e.entryPoint
	for l := e.maxLevel; l > 0; l-- {
		ep = e.greedyClosest(query, ep, l)
	}
	ef := e.efSearch
	// Excluded nodes still participate in graph traversal, so widen the
	// beam enough to have k survivors after filtering.
	if need := k + len(exclude); ef < need {
		ef = need
	}
	candidates := e.searchLayer(query, ep, ef, 0)

	results := make([]Result, 0, k)
	for _, c := range candidates {
		id := e.ids[c.node]
		if _, skip := exclude[id]; skip {
			continue
		}
		results = append(results, Result{ID: id, Score: c.score})
	}
	return topK(results, k)
}

func (e *hnswEngine) Vector(id int64) ([]float32, bool) {
	return e.vector(id)
}

func (e *hnswEngine) Size() int {
	return len(e.ids)
}
