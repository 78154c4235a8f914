package enums

// IndexEngineType selects the in-process ANN engine.
type IndexEngineType string

const (
	FLAT IndexEngineType = "FLAT"
	IVF  IndexEngineType = "IVF"
	HNSW IndexEngineType = "HNSW"
)

// StrategyType identifies a retrieval backend.
type StrategyType string

const (
	FAST_INDEX     StrategyType = "FAST_INDEX"
	FILTERED_STORE StrategyType = "FILTERED_STORE"
	POPULARITY     StrategyType = "POPULARITY"
)

// JournalOp is the kind of mutation carried by a journal entry.
type JournalOp string

const (
	UPSERT JournalOp = "UPSERT"
	DELETE JournalOp = "DELETE"
)

// EntryState tracks a journal entry through the sync pipeline.
type EntryState string

const (
	PENDING       EntryState = "PENDING"
	APPLIED_STORE EntryState = "APPLIED_STORE"
	APPLIED_BOTH  EntryState = "APPLIED_BOTH"
	COMMITTED     EntryState = "COMMITTED"
	FAILED        EntryState = "FAILED"
	RETRYING      EntryState = "RETRYING"
	DEAD          EntryState = "DEAD"
)
