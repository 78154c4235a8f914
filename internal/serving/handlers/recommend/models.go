package recommend

import (
	"github.com/reelstack/recoserve/internal/repositories"
)

type FilterPayload struct {
	Genres    []string `json:"genres,omitempty"`
	YearMin   int64    `json:"year_min,omitempty"`
	YearMax   int64    `json:"year_max,omitempty"`
	RatingMin float64  `json:"rating_min,omitempty"`
}

func (f *FilterPayload) toFilter() *repositories.Filter {
	if f == nil {
		return nil
	}
	return &repositories.Filter{
		Genres:    f.Genres,
		YearMin:   f.YearMin,
		YearMax:   f.YearMax,
		RatingMin: f.RatingMin,
	}
}

type RecommendRequest struct {
	SubjectID   int64          `json:"subject_id"`
	K           int            `json:"k"`
	Filter      *FilterPayload `json:"filter,omitempty"`
	ExcludeSeen *bool          `json:"exclude_seen,omitempty"` // default true
}

func (r *RecommendRequest) excludeSeen() bool {
	return r.ExcludeSeen == nil || *r.ExcludeSeen
}

type RecommendedItem struct {
	ID    int64   `json:"id"`
	Score float32 `json:"score"`
}

type RecommendResponse struct {
	SubjectID int64             `json:"subject_id"`
	Items     []RecommendedItem `json:"items"`
	ServedBy  string            `json:"served_by"`
}

type BatchRequest struct {
	Requests []RecommendRequest `json:"requests"`
}

type BatchItemResponse struct {
	SubjectID int64             `json:"subject_id"`
	Items     []RecommendedItem `json:"items,omitempty"`
	ServedBy  string            `json:"served_by,omitempty"`
	Error     string            `json:"error,omitempty"`
}

type BatchResponse struct {
	Responses []BatchItemResponse `json:"responses"`
}

type SimilarRequest struct {
	ItemID int64 `json:"item_id"`
	K      int   `json:"k"`
}

type SimilarResponse struct {
	ItemID int64             `json:"item_id"`
	Items  []RecommendedItem `json:"items"`
}

type RatingRequest struct {
	SubjectID int64   `json:"subject_id"`
	ItemID    int64   `json:"item_id"`
	Rating    float64 `json:"rating"`
}

type PopularResponse struct {
	Items []RecommendedItem `json:"items"`
}
