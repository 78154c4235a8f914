package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/reelstack/recoserve/internal/apperr"
	"github.com/reelstack/recoserve/internal/config/enums"
	"github.com/reelstack/recoserve/internal/index"
	"github.com/reelstack/recoserve/internal/journal"
	"github.com/reelstack/recoserve/internal/repositories"
	"github.com/reelstack/recoserve/internal/repositories/vector"
	"github.com/reelstack/recoserve/pkg/metric"
	"github.com/rs/zerolog/log"
)

const syncCycleInterval = 5 * time.Second

// Coordinator drains the mutation journal, applies the records to the vector
// store and rebuilds the in-process index when enough mutations accumulate
// or the rebuild interval elapses. Apply is idempotent: a record whose
// timestamp is not newer than the last applied one for its id is a no-op, so
// redelivered records are harmless.
type Coordinator struct {
	store   vector.Database
	manager *index.Manager
	journal *journal.Journal

	retryMax         int
	backoffBase      time.Duration
	rebuildThreshold int
	sleepFn          func(time.Duration)

	mu                sync.Mutex
	lastApplied       map[int64]int64 // id -> newest applied timestamp
	attempts          map[string]int  // id:ts -> delivery attempts
	pendingSinceBuild int
	lastSyncAt        time.Time
	lastBuildAt       time.Time

	tracker *stateTracker
}

// Stats is a snapshot of the coordinator for the stats surface.
type Stats struct {
	PendingSinceBuild int
	LastSyncAt        time.Time
	LastBuildAt       time.Time
	States            map[enums.EntryState]int64
}

func NewCoordinator(store vector.Database, manager *index.Manager, j *journal.Journal,
	retryMax int, backoffBase time.Duration, rebuildThreshold int) *Coordinator {
	if retryMax < 0 {
		retryMax = 0
	}
	if rebuildThreshold <= 0 {
		rebuildThreshold = 1
	}
	return &Coordinator{
		store:            store,
		manager:          manager,
		journal:          j,
		retryMax:         retryMax,
		backoffBase:      backoffBase,
		rebuildThreshold: rebuildThreshold,
		sleepFn:          time.Sleep,
		lastApplied:      make(map[int64]int64),
		attempts:         make(map[string]int),
		tracker:          newStateTracker(),
	}
}

// Run drives periodic sync cycles and interval rebuilds until the context is
// cancelled.
func (c *Coordinator) Run(ctx context.Context, rebuildInterval time.Duration) {
	syncTicker := time.NewTicker(syncCycleInterval)
	rebuildTicker := time.NewTicker(rebuildInterval)
	defer syncTicker.Stop()
	defer rebuildTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Sync coordinator stopping")
			return
		case <-syncTicker.C:
			if err := c.RunCycle(); err != nil {
				log.Error().Err(err).Msg("Sync cycle failed")
			}
		case <-rebuildTicker.C:
			if err := c.Rebuild(); err != nil {
				log.Error().Err(err).Msg("Interval rebuild failed")
			}
		}
	}
}

// RunCycle drains the journal, applies the batch to the vector store and
// triggers a rebuild when the accumulated mutation count crosses the
// threshold. Failed batches are requeued for the next cycle.
func (c *Coordinator) RunCycle() error {
	records := c.journal.Drain()
	if len(records) == 0 {
		return nil
	}
	c.tracker.mark(enums.PENDING, len(records))

	fresh := c.filterDuplicates(records)
	if len(fresh) == 0 {
		return nil
	}

	upserts, deletes := coalesce(fresh)
	if err := c.applyWithRetry(upserts, deletes); err != nil {
		c.requeueOrDrop(fresh)
		return err
	}

	c.mu.Lock()
	for _, rec := range fresh {
		c.lastApplied[rec.ID] = rec.Timestamp
		delete(c.attempts, attemptKey(rec))
	}
	c.pendingSinceBuild += len(fresh)
	c.lastSyncAt = time.Now()
	shouldRebuild := c.pendingSinceBuild >= c.rebuildThreshold
	c.mu.Unlock()

	c.tracker.mark(enums.APPLIED_STORE, len(fresh))
	metric.Gauge("sync_pending_since_build", float64(c.PendingSinceBuild()), nil)

	if shouldRebuild {
		return c.Rebuild()
	}
	return nil
}

// Rebuild snapshots the vector store and swaps in a fresh index generation.
// Any failure leaves the active generation serving.
func (c *Coordinator) Rebuild() error {
	c.mu.Lock()
	pending := c.pendingSinceBuild
	c.mu.Unlock()
	if pending == 0 && c.manager.Ready() {
		return nil
	}

	entries, err := c.store.ScrollAll()
	if err != nil {
		metric.Incr("index_rebuild_snapshot_failure", nil)
		return fmt.Errorf("snapshot for rebuild: %w", err)
	}
	if err := c.manager.BuildAndSwap(entries); err != nil {
		return err
	}

	c.mu.Lock()
	committed := c.pendingSinceBuild
	c.pendingSinceBuild = 0
	c.lastBuildAt = time.Now()
	c.mu.Unlock()

	c.tracker.mark(enums.APPLIED_BOTH, committed)
	c.tracker.mark(enums.COMMITTED, committed)
	log.Info().Int("entries", len(entries)).Int("mutations", committed).Msg("Index rebuilt from store snapshot")
	return nil
}

// filterDuplicates drops records whose timestamp is not newer than the last
// applied one for the same id.
func (c *Coordinator) filterDuplicates(records []journal.Record) []journal.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	fresh := make([]journal.Record, 0, len(records))
	dropped := 0
	for _, rec := range records {
		if rec.Timestamp <= c.lastApplied[rec.ID] {
			dropped++
			continue
		}
		fresh = append(fresh, rec)
	}
	if dropped > 0 {
		metric.Count("sync_duplicates_skipped", int64(dropped), nil)
	}
	return fresh
}

// coalesce reduces a timestamp-ordered batch to one terminal operation per
// id. Later records win, so an upsert followed by a delete nets a delete.
func coalesce(records []journal.Record) ([]repositories.Entry, []int64) {
	final := make(map[int64]journal.Record, len(records))
	order := make([]int64, 0, len(records))
	for _, rec := range records {
		if _, seen := final[rec.ID]; !seen {
			order = append(order, rec.ID)
		}
		final[rec.ID] = rec
	}

	upserts := make([]repositories.Entry, 0, len(final))
	deletes := make([]int64, 0)
	for _, id := range order {
		rec := final[id]
		if rec.Op == enums.DELETE {
			deletes = append(deletes, id)
		} else {
			upserts = append(upserts, rec.ToEntry())
		}
	}
	return upserts, deletes
}

func (c *Coordinator) applyWithRetry(upserts []repositories.Entry, deletes []int64) error {
	var err error
	for attempt := 0; attempt <= c.retryMax; attempt++ {
		if attempt > 0 {
			c.sleepFn(c.backoffBase << (attempt - 1))
			metric.Incr("sync_apply_retry", nil)
		}
		if err = c.applyOnce(upserts, deletes); err == nil {
			return nil
		}
		if apperr.IsPermanent(err) {
			break
		}
		log.Warn().Err(err).Int("attempt", attempt+1).Msg("Store apply failed")
	}
	return apperr.SyncApply("store apply exhausted retries: %v", err)
}

func (c *Coordinator) applyOnce(upserts []repositories.Entry, deletes []int64) error {
	if len(upserts) > 0 {
		if err := c.store.BulkUpsert(upserts); err != nil {
			return err
		}
	}
	if len(deletes) > 0 {
		if err := c.store.BulkDelete(deletes); err != nil {
			return err
		}
	}
	return nil
}

// requeueOrDrop puts failed records back for the next cycle. A record seen
// more times than the retry budget is dropped as dead instead of poisoning
// every subsequent cycle.
func (c *Coordinator) requeueOrDrop(records []journal.Record) {
	c.mu.Lock()
	retry := make([]journal.Record, 0, len(records))
	dead := 0
	for _, rec := range records {
		key := attemptKey(rec)
		c.attempts[key]++
		if c.attempts[key] > c.retryMax {
			delete(c.attempts, key)
			dead++
			log.Error().Int64("id", rec.ID).Int64("ts", rec.Timestamp).Msg("Dropping mutation after repeated apply failures")
			continue
		}
		retry = append(retry, rec)
	}
	c.mu.Unlock()

	c.journal.Requeue(retry)
	c.tracker.mark(enums.RETRYING, len(retry))
	c.tracker.mark(enums.DEAD, dead)
}

func attemptKey(rec journal.Record) string {
	return fmt.Sprintf("%d:%d", rec.ID, rec.Timestamp)
}

// PendingSinceBuild returns the mutation count applied to the store but not
// yet reflected in the active index generation.
func (c *Coordinator) PendingSinceBuild() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingSinceBuild
}

// Stats snapshots the coordinator.
func (c *Coordinator) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		PendingSinceBuild: c.pendingSinceBuild,
		LastSyncAt:        c.lastSyncAt,
		LastBuildAt:       c.lastBuildAt,
		States:            c.tracker.snapshot(),
	}
}
