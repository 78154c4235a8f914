package journal

import (
	"sort"
	"sync"
	"time"

	"github.com/reelstack/recoserve/pkg/metric"
)

// Journal is an in-process buffer of catalog mutations awaiting a sync
// cycle. Ingestion assigns monotonically increasing timestamps so consumers
// can apply records idempotently; redelivery of a drained record is safe as
// long as the consumer treats same-or-older timestamps as no-ops.
type Journal struct {
	mu      sync.Mutex
	pending []Record
	lastTs  int64
	nowFn   func() time.Time
}

func New() *Journal {
	return &Journal{nowFn: time.Now}
}

// Append ingests a locally produced record, stamping it with the next
// logical timestamp. Returns the stamped record.
func (j *Journal) Append(rec Record) Record {
	j.mu.Lock()
	defer j.mu.Unlock()
	rec.Timestamp = j.nextTimestamp()
	j.pending = append(j.pending, rec)
	metric.Incr("journal_append", metric.BuildTag(metric.NewTag("op", string(rec.Op))))
	return rec
}

// Ingest accepts a record arriving from an external feed. A record that
// already carries a timestamp keeps it; the journal clock advances past it
// so locally appended records never sort behind replayed ones.
func (j *Journal) Ingest(rec Record) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if rec.Timestamp == 0 {
		rec.Timestamp = j.nextTimestamp()
	} else if rec.Timestamp > j.lastTs {
		j.lastTs = rec.Timestamp
	}
	j.pending = append(j.pending, rec)
}

// nextTimestamp returns wall-clock millis, bumped past lastTs when the clock
// has not advanced. Callers hold j.mu.
func (j *Journal) nextTimestamp() int64 {
	ts := j.nowFn().UnixMilli()
	if ts <= j.lastTs {
		ts = j.lastTs + 1
	}
	j.lastTs = ts
	return ts
}

// Drain removes and returns all pending records ordered by timestamp, ties
// broken by id. The caller owns the returned slice.
func (j *Journal) Drain() []Record {
	j.mu.Lock()
	out := j.pending
	j.pending = nil
	j.mu.Unlock()

	sort.Slice(out, func(a, b int) bool {
		if out[a].Timestamp != out[b].Timestamp {
			return out[a].Timestamp < out[b].Timestamp
		}
		return out[a].ID < out[b].ID
	})
	return out
}

// Requeue puts records back at the head of the pending set, typically after
// a failed apply. Timestamps are preserved so the next Drain re-emits them
// in their original order.
func (j *Journal) Requeue(records []Record) {
	if len(records) == 0 {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.pending = append(records, j.pending...)
	metric.Count("journal_requeue", int64(len(records)), nil)
}

// Len returns the number of pending records.
func (j *Journal) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.pending)
}
