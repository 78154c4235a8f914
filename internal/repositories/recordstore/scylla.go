package recordstore

import (
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/reelstack/recoserve/internal/apperr"
	"github.com/reelstack/recoserve/internal/repositories"
	"github.com/reelstack/recoserve/pkg/metric"
	"github.com/rs/zerolog/log"
)

type ScyllaStore struct {
	session  *gocql.Session
	keyspace string

	seenQuery        string
	countQuery       string
	saveRatingQuery  string
	popularityQuery  string
	healthCheckQuery string
}

func newScyllaStore(session *gocql.Session, keyspace string) *ScyllaStore {
	return &ScyllaStore{
		session:  session,
		keyspace: keyspace,
		seenQuery: fmt.Sprintf("SELECT item_id FROM %s.%s WHERE subject_id = ? LIMIT ?",
			keyspace, RatingsTable),
		countQuery: fmt.Sprintf("SELECT COUNT(*) FROM %s.%s WHERE subject_id = ?",
			keyspace, RatingsTable),
		saveRatingQuery: fmt.Sprintf("INSERT INTO %s.%s (subject_id, item_id, rating, rated_at) VALUES (?, ?, ?, ?)",
			keyspace, RatingsTable),
		popularityQuery: fmt.Sprintf("SELECT item_id, score FROM %s.%s WHERE bucket = ? LIMIT ?",
			keyspace, PopularityTable),
		healthCheckQuery: "SELECT release_version FROM system.local",
	}
}

// SeenItems relies on the ratings table clustering order (rated_at DESC) so
// the first rows are the most recent interactions.
func (s *ScyllaStore) SeenItems(subject int64, limit int) ([]int64, error) {
	startTime := time.Now()
	iter := s.session.Query(s.seenQuery, subject, limit).Iter()
	items := make([]int64, 0, limit)
	var item int64
	for iter.Scan(&item) {
		items = append(items, item)
	}
	if err := iter.Close(); err != nil {
		metric.Incr("record_store_query_error", []string{"query:seen_items"})
		log.Error().Err(err).Int64("subject", subject).Msg("failed to fetch seen items")
		return nil, apperr.Transient("record store seen items: %v", err)
	}
	metric.Timing("record_store_query_latency", time.Since(startTime), []string{"query:seen_items"})
	return items, nil
}

// RecentInteractions returns the same rows as SeenItems but oldest first,
// which is the order the sequence model expects.
func (s *ScyllaStore) RecentInteractions(subject int64, limit int) ([]int64, error) {
	items, err := s.SeenItems(subject, limit)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
	return items, nil
}

func (s *ScyllaStore) InteractionCount(subject int64) (int, error) {
	var count int
	if err := s.session.Query(s.countQuery, subject).Scan(&count); err != nil {
		metric.Incr("record_store_query_error", []string{"query:interaction_count"})
		return 0, apperr.Transient("record store interaction count: %v", err)
	}
	return count, nil
}

func (s *ScyllaStore) SaveRating(subject, item int64, rating float64) error {
	startTime := time.Now()
	err := s.session.Query(s.saveRatingQuery, subject, item, rating, time.Now().UnixMilli()).Exec()
	if err != nil {
		metric.Incr("record_store_query_error", []string{"query:save_rating"})
		log.Error().Err(err).Int64("subject", subject).Int64("item", item).Msg("failed to save rating")
		return apperr.Transient("record store save rating: %v", err)
	}
	metric.Timing("record_store_query_latency", time.Since(startTime), []string{"query:save_rating"})
	return nil
}

func (s *ScyllaStore) PopularItems(limit int) ([]repositories.Candidate, error) {
	startTime := time.Now()
	iter := s.session.Query(s.popularityQuery, popularityBucketGlobal, limit).Iter()
	candidates := make([]repositories.Candidate, 0, limit)
	var item int64
	var score float32
	for iter.Scan(&item, &score) {
		candidates = append(candidates, repositories.Candidate{ID: item, Score: score})
	}
	if err := iter.Close(); err != nil {
		metric.Incr("record_store_query_error", []string{"query:popular_items"})
		log.Error().Err(err).Msg("failed to fetch popularity list")
		return nil, apperr.Transient("record store popular items: %v", err)
	}
	metric.Timing("record_store_query_latency", time.Since(startTime), []string{"query:popular_items"})
	return candidates, nil
}

func (s *ScyllaStore) HealthCheck() error {
	if err := s.session.Query(s.healthCheckQuery).Exec(); err != nil {
		return apperr.Transient("record store health check: %v", err)
	}
	return nil
}
