package journal

import (
	"fmt"

	"github.com/reelstack/recoserve/internal/config/enums"
	"github.com/reelstack/recoserve/internal/repositories"
)

// Record is one catalog mutation flowing through the sync pipeline. Upserts
// carry the full entry payload; deletes carry only the id.
type Record struct {
	Op        enums.JournalOp `json:"op"`
	ID        int64           `json:"id"`
	Vector    []float32       `json:"vector,omitempty"`
	Genres    []string        `json:"genres,omitempty"`
	Year      int64           `json:"year,omitempty"`
	Rating    float64         `json:"rating,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// NewUpsert builds an upsert record from a catalog entry. The timestamp is
// assigned on journal ingestion.
func NewUpsert(entry repositories.Entry) Record {
	return Record{
		Op:     enums.UPSERT,
		ID:     entry.ID,
		Vector: entry.Vector,
		Genres: entry.Genres,
		Year:   entry.Year,
		Rating: entry.Rating,
	}
}

// NewDelete builds a delete record for an id.
func NewDelete(id int64) Record {
	return Record{Op: enums.DELETE, ID: id}
}

// ToEntry converts an upsert record back into a catalog entry.
func (r *Record) ToEntry() repositories.Entry {
	return repositories.Entry{
		ID:     r.ID,
		Vector: r.Vector,
		Genres: r.Genres,
		Year:   r.Year,
		Rating: r.Rating,
	}
}

// Validate rejects records that can never be applied.
func (r *Record) Validate() error {
	switch r.Op {
	case enums.UPSERT:
		if len(r.Vector) == 0 {
			return fmt.Errorf("upsert record %d has no vector", r.ID)
		}
	case enums.DELETE:
	default:
		return fmt.Errorf("unknown journal op %q for record %d", r.Op, r.ID)
	}
	if r.ID <= 0 {
		return fmt.Errorf("journal record has non-positive id %d", r.ID)
	}
	return nil
}
