package recommend

import (
	"strings"

	"github.com/reelstack/recoserve/internal/apperr"
)

const (
	maxK         = 1000
	minRating    = 0.5
	maxRating    = 5.0
	minValidYear = 1800
)

func validateRecommend(req *RecommendRequest) error {
	if req.SubjectID <= 0 {
		return apperr.Permanent("subject_id must be positive, got %d", req.SubjectID)
	}
	if err := validateK(req.K); err != nil {
		return err
	}
	return validateFilter(req.Filter)
}

func validateK(k int) error {
	if k <= 0 {
		return apperr.Permanent("k must be positive, got %d", k)
	}
	if k > maxK {
		return apperr.Permanent("k must be at most %d, got %d", maxK, k)
	}
	return nil
}

func validateFilter(f *FilterPayload) error {
	if f == nil {
		return nil
	}
	for _, g := range f.Genres {
		if strings.TrimSpace(g) == "" {
			return apperr.Permanent("filter genres must not contain blank values")
		}
	}
	if f.YearMin < 0 || f.YearMax < 0 {
		return apperr.Permanent("filter years must not be negative")
	}
	if f.YearMin > 0 && f.YearMin < minValidYear {
		return apperr.Permanent("filter year_min %d is out of range", f.YearMin)
	}
	if f.YearMin > 0 && f.YearMax > 0 && f.YearMin > f.YearMax {
		return apperr.Permanent("filter year_min %d exceeds year_max %d", f.YearMin, f.YearMax)
	}
	if f.RatingMin < 0 || f.RatingMin > maxRating {
		return apperr.Permanent("filter rating_min %.2f is out of range [0, %.1f]", f.RatingMin, maxRating)
	}
	return nil
}

func validateSimilar(req *SimilarRequest) error {
	if req.ItemID <= 0 {
		return apperr.Permanent("item_id must be positive, got %d", req.ItemID)
	}
	return validateK(req.K)
}

func validateRating(req *RatingRequest) error {
	if req.SubjectID <= 0 {
		return apperr.Permanent("subject_id must be positive, got %d", req.SubjectID)
	}
	if req.ItemID <= 0 {
		return apperr.Permanent("item_id must be positive, got %d", req.ItemID)
	}
	if req.Rating < minRating || req.Rating > maxRating {
		return apperr.Permanent("rating %.2f is out of range [%.1f, %.1f]", req.Rating, minRating, maxRating)
	}
	return nil
}
