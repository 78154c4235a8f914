package vector

import (
	"github.com/qdrant/go-client/qdrant"
	"github.com/reelstack/recoserve/internal/repositories"
)

// Payload field keys as stored in the collection.
const (
	FieldGenres = "genres"
	FieldYear   = "year"
	FieldRating = "rating"
)

type SearchRequest struct {
	Vector  []float32
	Limit   int
	Filter  *repositories.Filter
	Exclude []int64
}

type CollectionInfoResponse struct {
	Status              string
	PointsCount         float64
	IndexedVectorsCount float64
}

type FilterCondition struct {
	Condition *qdrant.Condition
	IsNegated bool
}
