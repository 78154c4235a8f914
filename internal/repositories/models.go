package repositories

// Embedding is a cached subject vector with the time it was computed.
type Embedding struct {
	Subject    int64
	Vector     []float32
	ComputedAt int64 // unix seconds
}

// Entry is a catalog item as stored in the vector backends.
type Entry struct {
	ID     int64
	Vector []float32
	Genres []string
	Year   int64
	Rating float64
}

// Candidate is a scored retrieval result.
type Candidate struct {
	ID     int64
	Score  float32
	Source string
}

// Filter is a conjunction of attribute constraints. Zero values mean
// "no constraint" for the corresponding field.
type Filter struct {
	Genres    []string
	YearMin   int64
	YearMax   int64
	RatingMin float64
}

// IsEmpty reports whether the filter constrains anything.
func (f *Filter) IsEmpty() bool {
	if f == nil {
		return true
	}
	return len(f.Genres) == 0 && f.YearMin == 0 && f.YearMax == 0 && f.RatingMin == 0
}
