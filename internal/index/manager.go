package index

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/reelstack/recoserve/internal/apperr"
	"github.com/reelstack/recoserve/internal/config/enums"
	"github.com/reelstack/recoserve/internal/repositories"
	"github.com/reelstack/recoserve/pkg/metric"
	"github.com/rs/zerolog/log"
)

// Manager owns the active generation and serializes builds. Search never
// blocks on a build; a build failure leaves the active generation in place.
type Manager struct {
	engineKind enums.IndexEngineType
	engineCfg  EngineConfig

	active     atomic.Pointer[Generation]
	nextNumber atomic.Uint64
	buildMu    sync.Mutex
}

// Stats is a snapshot of the manager for the stats surface.
type Stats struct {
	ActiveGeneration uint64
	EntryCount       int
	BuiltAt          time.Time
	Engine           enums.IndexEngineType
}

func NewManager(engineKind enums.IndexEngineType, engineCfg EngineConfig) *Manager {
	return &Manager{
		engineKind: engineKind,
		engineCfg:  engineCfg,
	}
}

// Build constructs a new generation without activating it.
func (m *Manager) Build(entries []repositories.Entry) (*Generation, error) {
	m.buildMu.Lock()
	defer m.buildMu.Unlock()

	startTime := time.Now()
	engine, err := BuildEngine(m.engineKind, entries, m.engineCfg)
	if err != nil {
		metric.Incr("index_build_failure", metric.BuildTag(metric.NewTag(metric.TagEngine, string(m.engineKind))))
		return nil, err
	}
	gen := newGeneration(m.nextNumber.Add(1), engine)
	metric.Timing("index_build_latency", time.Since(startTime),
		metric.BuildTag(metric.NewTag(metric.TagEngine, string(m.engineKind))))
	log.Info().Msgf("Built index generation %d with %d entries in %v", gen.Number, engine.Size(), time.Since(startTime))
	return gen, nil
}

// Swap activates the generation and retires the previous one.
func (m *Manager) Swap(gen *Generation) {
	old := m.active.Swap(gen)
	if old != nil {
		old.retire()
	}
	metric.Gauge("index_active_generation", float64(gen.Number), nil)
	metric.Gauge("index_entry_count", float64(gen.Engine.Size()), nil)
}

// BuildAndSwap rebuilds from the entry set and activates the result.
func (m *Manager) BuildAndSwap(entries []repositories.Entry) error {
	gen, err := m.Build(entries)
	if err != nil {
		return err
	}
	m.Swap(gen)
	return nil
}

// Acquire pins the active generation for reading. Callers must Release.
func (m *Manager) Acquire() (*Generation, bool) {
	for {
		gen := m.active.Load()
		if gen == nil {
			return nil, false
		}
		gen.acquire()
		// A swap may have retired the generation between Load and acquire;
		// retry on the new active one.
		if m.active.Load() == gen {
			return gen, true
		}
		gen.release()
	}
}

// Release unpins a generation returned by Acquire.
func (m *Manager) Release(gen *Generation) {
	gen.release()
}

// Search runs a query against the active generation.
func (m *Manager) Search(vector []float32, k int, exclude map[int64]struct{}) ([]Result, error) {
	gen, ok := m.Acquire()
	if !ok {
		return nil, apperr.Transient("no active index generation")
	}
	defer m.Release(gen)
	return gen.Engine.Search(vector, k, exclude), nil
}

// Lookup returns the stored vector for an id from the active generation.
func (m *Manager) Lookup(id int64) ([]float32, bool) {
	gen, ok := m.Acquire()
	if !ok {
		return nil, false
	}
	defer m.Release(gen)
	return gen.Engine.Vector(id)
}

// Ready reports whether a generation is active.
func (m *Manager) Ready() bool {
	return m.active.Load() != nil
}

// Stats snapshots the active generation.
func (m *Manager) Stats() Stats {
	gen, ok := m.Acquire()
	if !ok {
		return Stats{Engine: m.engineKind}
	}
	defer m.Release(gen)
	return Stats{
		ActiveGeneration: gen.Number,
		EntryCount:       gen.Engine.Size(),
		BuiltAt:          gen.BuiltAt,
		Engine:           m.engineKind,
	}
}

// ParseEngineKind maps a config string to an engine type, defaulting to FLAT.
func ParseEngineKind(s string) enums.IndexEngineType {
	switch enums.IndexEngineType(s) {
	case enums.FLAT, enums.IVF, enums.HNSW:
		return enums.IndexEngineType(s)
	case "":
		return enums.FLAT
	default:
		log.Warn().Msgf("Unknown index engine %q, defaulting to FLAT", s)
		return enums.FLAT
	}
}
