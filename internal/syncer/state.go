package syncer

import (
	"sync"

	"github.com/reelstack/recoserve/internal/config/enums"
	"github.com/reelstack/recoserve/pkg/metric"
)

// stateTracker counts records as they move through the sync pipeline.
// PENDING on drain, APPLIED_STORE once the vector store accepted them,
// APPLIED_BOTH once a rebuild picked them up, COMMITTED when the rebuilt
// generation is active, RETRYING on requeue and DEAD when a record exhausts
// its redelivery budget.
type stateTracker struct {
	mu     sync.Mutex
	counts map[enums.EntryState]int64
}

func newStateTracker() *stateTracker {
	return &stateTracker{counts: make(map[enums.EntryState]int64)}
}

func (t *stateTracker) mark(state enums.EntryState, n int) {
	if n == 0 {
		return
	}
	t.mu.Lock()
	t.counts[state] += int64(n)
	t.mu.Unlock()
	metric.Count("sync_records", int64(n), metric.BuildTag(metric.NewTag("state", string(state))))
}

func (t *stateTracker) count(state enums.EntryState) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[state]
}

func (t *stateTracker) snapshot() map[enums.EntryState]int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[enums.EntryState]int64, len(t.counts))
	for k, v := range t.counts {
		out[k] = v
	}
	return out
}
