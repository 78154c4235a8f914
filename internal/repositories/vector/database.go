package vector

import (
	"github.com/reelstack/recoserve/internal/repositories"
)

type Database interface {
	// EnsureCollection creates the collection and its payload field indexes
	// if they do not exist yet.
	EnsureCollection() error
	BulkUpsert(entries []repositories.Entry) error
	BulkDelete(ids []int64) error
	// SearchFiltered runs a vector search with payload filtering and id
	// exclusion pushed down to the store.
	SearchFiltered(request *SearchRequest, metricTags []string) ([]repositories.Candidate, error)
	// ScrollAll pages through every point and returns the authoritative
	// entry set, used for index rebuilds.
	ScrollAll() ([]repositories.Entry, error)
	CollectionInfo() (*CollectionInfoResponse, error)
	HealthCheck() error
}
