package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIndexEngineTypeConstants(t *testing.T) {
	assert.Equal(t, IndexEngineType("FLAT"), FLAT)
	assert.Equal(t, IndexEngineType("IVF"), IVF)
	assert.Equal(t, IndexEngineType("HNSW"), HNSW)
}

func TestStrategyTypeConstants(t *testing.T) {
	assert.Equal(t, StrategyType("FAST_INDEX"), FAST_INDEX)
	assert.Equal(t, StrategyType("FILTERED_STORE"), FILTERED_STORE)
	assert.Equal(t, StrategyType("POPULARITY"), POPULARITY)
}

func TestJournalOpConstants(t *testing.T) {
	assert.Equal(t, JournalOp("UPSERT"), UPSERT)
	assert.Equal(t, JournalOp("DELETE"), DELETE)
}

func TestEntryStateConstants(t *testing.T) {
	assert.Equal(t, EntryState("PENDING"), PENDING)
	assert.Equal(t, EntryState("APPLIED_STORE"), APPLIED_STORE)
	assert.Equal(t, EntryState("APPLIED_BOTH"), APPLIED_BOTH)
	assert.Equal(t, EntryState("COMMITTED"), COMMITTED)
	assert.Equal(t, EntryState("FAILED"), FAILED)
	assert.Equal(t, EntryState("RETRYING"), RETRYING)
	assert.Equal(t, EntryState("DEAD"), DEAD)
}
