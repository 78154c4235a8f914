package syncer

import (
	"testing"
	"time"

	"github.com/reelstack/recoserve/internal/apperr"
	"github.com/reelstack/recoserve/internal/config/enums"
	"github.com/reelstack/recoserve/internal/index"
	"github.com/reelstack/recoserve/internal/journal"
	"github.com/reelstack/recoserve/internal/repositories"
	"github.com/reelstack/recoserve/internal/repositories/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testEntry(id int64) repositories.Entry {
	return repositories.Entry{ID: id, Vector: []float32{float32(id), 1}}
}

func newTestCoordinator(store vector.Database, threshold int) (*Coordinator, *index.Manager, *journal.Journal) {
	manager := index.NewManager(enums.FLAT, index.EngineConfig{})
	j := journal.New()
	c := NewCoordinator(store, manager, j, 2, time.Millisecond, threshold)
	c.sleepFn = func(time.Duration) {}
	return c, manager, j
}

// ==================== apply path ====================

func TestCycleAppliesUpsertsAndDeletes(t *testing.T) {
	store := new(vector.MockDatabase)
	c, _, j := newTestCoordinator(store, 100)

	j.Append(journal.NewUpsert(testEntry(1)))
	j.Append(journal.NewUpsert(testEntry(2)))
	j.Append(journal.NewDelete(3))

	store.On("BulkUpsert", mock.MatchedBy(func(entries []repositories.Entry) bool {
		return len(entries) == 2 && entries[0].ID == 1 && entries[1].ID == 2
	})).Return(nil).Once()
	store.On("BulkDelete", []int64{3}).Return(nil).Once()

	require.NoError(t, c.RunCycle())
	store.AssertExpectations(t)
	assert.Equal(t, 3, c.PendingSinceBuild())
	assert.Equal(t, 0, j.Len())
}

func TestCoalesceLastWritePerIdWins(t *testing.T) {
	store := new(vector.MockDatabase)
	c, _, j := newTestCoordinator(store, 100)

	j.Append(journal.NewUpsert(testEntry(1)))
	j.Append(journal.NewDelete(1))
	j.Append(journal.NewDelete(2))
	j.Append(journal.NewUpsert(testEntry(2)))

	// Per id only the newest operation reaches the store.
	store.On("BulkUpsert", mock.MatchedBy(func(entries []repositories.Entry) bool {
		return len(entries) == 1 && entries[0].ID == 2
	})).Return(nil).Once()
	store.On("BulkDelete", []int64{1}).Return(nil).Once()

	require.NoError(t, c.RunCycle())
	store.AssertExpectations(t)
}

// ==================== idempotence ====================

func TestRedeliveredRecordIsNoOp(t *testing.T) {
	store := new(vector.MockDatabase)
	c, _, j := newTestCoordinator(store, 100)

	rec := j.Append(journal.NewUpsert(testEntry(1)))
	store.On("BulkUpsert", mock.Anything).Return(nil).Once()
	require.NoError(t, c.RunCycle())

	// The same record delivered again, and an older one for the same id.
	j.Ingest(rec)
	older := rec
	older.Timestamp = rec.Timestamp - 10
	j.Ingest(older)

	require.NoError(t, c.RunCycle())
	store.AssertNumberOfCalls(t, "BulkUpsert", 1)
}

func TestNewerRecordForSameIdApplies(t *testing.T) {
	store := new(vector.MockDatabase)
	c, _, j := newTestCoordinator(store, 100)

	j.Append(journal.NewUpsert(testEntry(1)))
	store.On("BulkUpsert", mock.Anything).Return(nil).Twice()
	require.NoError(t, c.RunCycle())

	j.Append(journal.NewUpsert(testEntry(1)))
	require.NoError(t, c.RunCycle())
	store.AssertNumberOfCalls(t, "BulkUpsert", 2)
}

// ==================== retry and requeue ====================

func TestTransientApplyFailureRetriesThenSucceeds(t *testing.T) {
	store := new(vector.MockDatabase)
	c, _, j := newTestCoordinator(store, 100)

	j.Append(journal.NewUpsert(testEntry(1)))
	store.On("BulkUpsert", mock.Anything).Return(apperr.Transient("backend down")).Twice()
	store.On("BulkUpsert", mock.Anything).Return(nil).Once()

	require.NoError(t, c.RunCycle())
	store.AssertNumberOfCalls(t, "BulkUpsert", 3)
	assert.Equal(t, 0, j.Len())
}

func TestExhaustedRetriesRequeueBatch(t *testing.T) {
	store := new(vector.MockDatabase)
	c, _, j := newTestCoordinator(store, 100)

	j.Append(journal.NewUpsert(testEntry(1)))
	store.On("BulkUpsert", mock.Anything).Return(apperr.Transient("backend down"))

	err := c.RunCycle()
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrSyncApply)

	// Record is back in the journal for the next cycle.
	assert.Equal(t, 1, j.Len())
	assert.Equal(t, 0, c.PendingSinceBuild())
}

func TestPoisonRecordEventuallyDropped(t *testing.T) {
	store := new(vector.MockDatabase)
	c, _, j := newTestCoordinator(store, 100)
	store.On("BulkUpsert", mock.Anything).Return(apperr.Transient("backend down"))

	j.Append(journal.NewUpsert(testEntry(1)))

	// retryMax is 2, so the record dies on its third failed delivery.
	for i := 0; i < 3; i++ {
		require.Error(t, c.RunCycle())
	}
	assert.Equal(t, 0, j.Len())
	assert.Equal(t, int64(1), c.tracker.count(enums.DEAD))
}

// ==================== rebuild ====================

func TestThresholdTriggersRebuild(t *testing.T) {
	store := new(vector.MockDatabase)
	c, manager, j := newTestCoordinator(store, 2)

	j.Append(journal.NewUpsert(testEntry(1)))
	j.Append(journal.NewUpsert(testEntry(2)))

	store.On("BulkUpsert", mock.Anything).Return(nil).Once()
	store.On("ScrollAll").Return([]repositories.Entry{testEntry(1), testEntry(2)}, nil).Once()

	require.NoError(t, c.RunCycle())
	store.AssertExpectations(t)

	assert.True(t, manager.Ready())
	stats := manager.Stats()
	assert.Equal(t, 2, stats.EntryCount)
	assert.Equal(t, 0, c.PendingSinceBuild())
}

func TestBelowThresholdDoesNotRebuild(t *testing.T) {
	store := new(vector.MockDatabase)
	c, manager, j := newTestCoordinator(store, 10)

	j.Append(journal.NewUpsert(testEntry(1)))
	store.On("BulkUpsert", mock.Anything).Return(nil).Once()

	require.NoError(t, c.RunCycle())
	assert.False(t, manager.Ready())
	assert.Equal(t, 1, c.PendingSinceBuild())
}

func TestFailedSnapshotKeepsActiveGeneration(t *testing.T) {
	store := new(vector.MockDatabase)
	c, manager, j := newTestCoordinator(store, 1)

	// First cycle builds generation 1.
	j.Append(journal.NewUpsert(testEntry(1)))
	store.On("BulkUpsert", mock.Anything).Return(nil)
	store.On("ScrollAll").Return([]repositories.Entry{testEntry(1)}, nil).Once()
	require.NoError(t, c.RunCycle())
	require.True(t, manager.Ready())

	// Second cycle fails the snapshot; generation 1 keeps serving.
	j.Append(journal.NewUpsert(testEntry(2)))
	store.On("ScrollAll").Return(nil, apperr.Transient("scroll failed")).Once()
	err := c.RunCycle()
	require.Error(t, err)

	stats := manager.Stats()
	assert.Equal(t, uint64(1), stats.ActiveGeneration)
	// Mutations stay pending so the next rebuild picks them up.
	assert.Equal(t, 1, c.PendingSinceBuild())
}

func TestFailedBuildKeepsActiveGenerationAndPending(t *testing.T) {
	store := new(vector.MockDatabase)
	c, manager, j := newTestCoordinator(store, 1)

	j.Append(journal.NewUpsert(testEntry(1)))
	store.On("BulkUpsert", mock.Anything).Return(nil)
	store.On("ScrollAll").Return([]repositories.Entry{testEntry(1)}, nil).Once()
	require.NoError(t, c.RunCycle())

	// Snapshot returns a corrupt entry set, the build fails.
	j.Append(journal.NewUpsert(testEntry(2)))
	bad := []repositories.Entry{{ID: 5, Vector: []float32{1}}, {ID: 6, Vector: []float32{1, 2, 3}}}
	store.On("ScrollAll").Return(bad, nil).Once()

	err := c.RunCycle()
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrIndexBuild)
	assert.Equal(t, uint64(1), manager.Stats().ActiveGeneration)
	assert.Equal(t, 1, c.PendingSinceBuild())
}

func TestRebuildNoOpWhenNothingPending(t *testing.T) {
	store := new(vector.MockDatabase)
	c, manager, j := newTestCoordinator(store, 1)

	j.Append(journal.NewUpsert(testEntry(1)))
	store.On("BulkUpsert", mock.Anything).Return(nil)
	store.On("ScrollAll").Return([]repositories.Entry{testEntry(1)}, nil).Once()
	require.NoError(t, c.RunCycle())
	require.True(t, manager.Ready())

	// No mutations since the last build; the interval rebuild is skipped.
	require.NoError(t, c.Rebuild())
	store.AssertNumberOfCalls(t, "ScrollAll", 1)
}

func TestStatsSnapshot(t *testing.T) {
	store := new(vector.MockDatabase)
	c, _, j := newTestCoordinator(store, 100)

	j.Append(journal.NewUpsert(testEntry(1)))
	store.On("BulkUpsert", mock.Anything).Return(nil).Once()
	require.NoError(t, c.RunCycle())

	stats := c.Stats()
	assert.Equal(t, 1, stats.PendingSinceBuild)
	assert.False(t, stats.LastSyncAt.IsZero())
	assert.Equal(t, int64(1), stats.States[enums.APPLIED_STORE])
}
