package recordstore

import (
	"github.com/reelstack/recoserve/internal/repositories"
)

const (
	RatingsTable    = "ratings"
	PopularityTable = "popularity"

	popularityBucketGlobal = "global"
)

// Store exposes interaction history, ratings and the popularity aggregate.
type Store interface {
	// SeenItems returns items the subject has interacted with, most recent
	// first. Used for seen-item exclusion.
	SeenItems(subject int64, limit int) ([]int64, error)
	// RecentInteractions returns the subject's most recent item sequence,
	// oldest first, as model input.
	RecentInteractions(subject int64, limit int) ([]int64, error)
	InteractionCount(subject int64) (int, error)
	SaveRating(subject, item int64, rating float64) error
	// PopularItems returns the precomputed global popularity list in rank
	// order with normalized scores.
	PopularItems(limit int) ([]repositories.Candidate, error)
	HealthCheck() error
}
