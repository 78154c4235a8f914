package index

import (
	"sync/atomic"
	"time"
)

// Generation is one immutable build of the index. Readers hold a reference
// while searching so a retired generation is only released once the last
// in-flight search finishes.
type Generation struct {
	Number  uint64
	Engine  Engine
	BuiltAt time.Time

	refs    atomic.Int64
	retired atomic.Bool
}

func newGeneration(number uint64, engine Engine) *Generation {
	return &Generation{
		Number:  number,
		Engine:  engine,
		BuiltAt: time.Now(),
	}
}

func (g *Generation) acquire() {
	g.refs.Add(1)
}

func (g *Generation) release() {
	g.refs.Add(-1)
}

func (g *Generation) retire() {
	g.retired.Store(true)
}

// Retired reports whether this generation has been swapped out.
func (g *Generation) Retired() bool {
	return g.retired.Load()
}

// Refs returns the number of in-flight readers.
func (g *Generation) Refs() int64 {
	return g.refs.Load()
}
