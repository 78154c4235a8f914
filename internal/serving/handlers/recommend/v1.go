package recommend

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"github.com/reelstack/recoserve/internal/apperr"
	"github.com/reelstack/recoserve/internal/config/enums"
	"github.com/reelstack/recoserve/internal/embedder"
	"github.com/reelstack/recoserve/internal/index"
	"github.com/reelstack/recoserve/internal/repositories"
	"github.com/reelstack/recoserve/internal/repositories/embeddingcache"
	"github.com/reelstack/recoserve/internal/repositories/recordstore"
	"github.com/reelstack/recoserve/internal/repositories/vector"
	"github.com/reelstack/recoserve/internal/serving/strategy"
	"github.com/reelstack/recoserve/pkg/inmemorycache"
	"github.com/reelstack/recoserve/pkg/kafka"
	"github.com/reelstack/recoserve/pkg/metric"
	"github.com/rs/zerolog/log"
)

const (
	seenItemsLimit    = 500
	sequenceLimit     = 50
	popularFetchLimit = 500
)

var popularCacheKey = []byte("popular:v1")

// HandlerV1 orchestrates retrieval: embedding resolution, strategy
// fall-through, seen-item exclusion and fusion of partial results.
type HandlerV1 struct {
	cache    embeddingcache.Database
	model    embedder.Client
	manager  *index.Manager
	vectorDb vector.Database
	store    recordstore.Store
	health   *strategy.HealthTracker

	popCache        inmemorycache.InMemoryCache
	popTTLSeconds   int
	minInteractions int
	fanoutLimit     int
	ratingKafkaId   int // 0 disables rating event publishing
}

func NewHandlerV1(cache embeddingcache.Database, model embedder.Client, manager *index.Manager,
	vectorDb vector.Database, store recordstore.Store, health *strategy.HealthTracker,
	popCache inmemorycache.InMemoryCache, popTTLSeconds, minInteractions, fanoutLimit, ratingKafkaId int) *HandlerV1 {
	if fanoutLimit <= 0 {
		fanoutLimit = 8
	}
	if minInteractions < 0 {
		minInteractions = 0
	}
	return &HandlerV1{
		cache:           cache,
		model:           model,
		manager:         manager,
		vectorDb:        vectorDb,
		store:           store,
		health:          health,
		popCache:        popCache,
		popTTLSeconds:   popTTLSeconds,
		minInteractions: minInteractions,
		fanoutLimit:     fanoutLimit,
		ratingKafkaId:   ratingKafkaId,
	}
}

// Recommend resolves the subject embedding and walks the strategy chain,
// fusing partial results until k unique candidates are collected.
func (h *HandlerV1) Recommend(ctx context.Context, req *RecommendRequest) (*RecommendResponse, error) {
	if err := validateRecommend(req); err != nil {
		return nil, err
	}
	filter := req.Filter.toFilter()
	hasFilters := !filter.IsEmpty()

	queryVector, err := h.resolveEmbedding(ctx, req.SubjectID)
	if err != nil {
		if apperr.IsPermanent(err) {
			return nil, err
		}
		// Degraded: continue without an embedding, the chain ends at
		// popularity for unfiltered requests.
		log.Warn().Err(err).Int64("subject", req.SubjectID).Msg("Embedding unavailable, serving without it")
		metric.Incr("embedding_resolution_degraded", nil)
	}

	var seen []int64
	if req.excludeSeen() {
		seen, err = h.store.SeenItems(req.SubjectID, seenItemsLimit)
		if err != nil {
			log.Warn().Err(err).Int64("subject", req.SubjectID).Msg("Seen-item lookup failed, serving without exclusion")
			seen = nil
		}
	}

	fused := make(map[int64]float32)
	fusedOrder := make([]int64, 0, req.K)
	served := make([]string, 0, 2)
	var lastErr error

	for _, strat := range strategy.Order(hasFilters, h.health) {
		candidates, err := h.retrieve(ctx, strat, queryVector, req.K, filter, seen)
		if err != nil {
			lastErr = err
			if strat != enums.POPULARITY {
				h.health.ReportFailure(strat)
			}
			log.Warn().Err(err).Str("strategy", string(strat)).Msg("Retrieval strategy failed, falling through")
			metric.Incr("strategy_fallthrough", metric.BuildTag(metric.NewTag(metric.TagStrategy, string(strat))))
			continue
		}
		if strat != enums.POPULARITY {
			h.health.ReportSuccess(strat)
		}
		if len(candidates) == 0 {
			continue
		}
		served = append(served, strings.ToLower(string(strat)))
		for _, c := range candidates {
			if prev, ok := fused[c.ID]; ok {
				if c.Score > prev {
					fused[c.ID] = c.Score
				}
				continue
			}
			fused[c.ID] = c.Score
			fusedOrder = append(fusedOrder, c.ID)
		}
		if len(fusedOrder) >= req.K {
			break
		}
	}

	if len(fusedOrder) == 0 && lastErr != nil {
		return nil, lastErr
	}

	items := make([]RecommendedItem, 0, len(fusedOrder))
	for _, id := range fusedOrder {
		items = append(items, RecommendedItem{ID: id, Score: fused[id]})
	}
	sort.Slice(items, func(a, b int) bool {
		if items[a].Score != items[b].Score {
			return items[a].Score > items[b].Score
		}
		return items[a].ID < items[b].ID
	})
	if len(items) > req.K {
		items = items[:req.K]
	}

	servedBy := strings.Join(served, "+")
	metric.Incr("recommend_served", metric.BuildTag(metric.NewTag(metric.TagStrategy, servedBy)))
	return &RecommendResponse{SubjectID: req.SubjectID, Items: items, ServedBy: servedBy}, nil
}

// resolveEmbedding returns the subject's query vector, or nil without error
// for cold subjects below the interaction threshold. When the model is down
// it falls back to the last cached embedding within the staleness bound.
func (h *HandlerV1) resolveEmbedding(ctx context.Context, subject int64) ([]float32, error) {
	count, err := h.store.InteractionCount(subject)
	if err == nil && count < h.minInteractions {
		metric.Incr("embedding_cold_subject", nil)
		return nil, nil
	}
	if err != nil {
		log.Warn().Err(err).Int64("subject", subject).Msg("Interaction count lookup failed")
	}

	vec, err := h.cache.GetOrCompute(ctx, subject, func(ctx context.Context) ([]float32, error) {
		sequence, err := h.store.RecentInteractions(subject, sequenceLimit)
		if err != nil {
			return nil, err
		}
		return h.model.Embed(ctx, subject, sequence)
	})
	if err == nil {
		return vec, nil
	}
	if apperr.IsModelUnavailable(err) {
		// The cache evicts entries past the staleness bound, so anything it
		// still holds is usable.
		if emb, ok := h.cache.GetStale(subject); ok {
			metric.Incr("embedding_stale_fallback", nil)
			return emb.Vector, nil
		}
	}
	return nil, err
}

func (h *HandlerV1) retrieve(ctx context.Context, strat enums.StrategyType, queryVector []float32,
	k int, filter *repositories.Filter, seen []int64) ([]repositories.Candidate, error) {
	switch strat {
	case enums.FAST_INDEX:
		if queryVector == nil || !h.manager.Ready() {
			return nil, nil
		}
		results, err := h.manager.Search(queryVector, k, toSet(seen))
		if err != nil {
			return nil, err
		}
		candidates := make([]repositories.Candidate, 0, len(results))
		for _, r := range results {
			candidates = append(candidates, repositories.Candidate{ID: r.ID, Score: r.Score, Source: string(strat)})
		}
		return candidates, nil

	case enums.FILTERED_STORE:
		if queryVector == nil {
			return nil, nil
		}
		return h.vectorDb.SearchFiltered(&vector.SearchRequest{
			Vector:  queryVector,
			Limit:   k,
			Filter:  filter,
			Exclude: seen,
		}, metric.BuildTag(metric.NewTag(metric.TagStrategy, string(strat))))

	case enums.POPULARITY:
		candidates, err := h.popularCandidates(k + len(seen))
		if err != nil {
			return nil, err
		}
		seenSet := toSet(seen)
		out := make([]repositories.Candidate, 0, k)
		for _, c := range candidates {
			if _, skip := seenSet[c.ID]; skip {
				continue
			}
			out = append(out, c)
			if len(out) == k {
				break
			}
		}
		return out, nil

	default:
		return nil, apperr.Permanent("unknown strategy %s", strat)
	}
}

// popularCandidates serves the global popularity list through a short-lived
// in-process cache.
func (h *HandlerV1) popularCandidates(limit int) ([]repositories.Candidate, error) {
	if limit > popularFetchLimit {
		limit = popularFetchLimit
	}
	if cached, err := h.popCache.Get(popularCacheKey); err == nil {
		var candidates []repositories.Candidate
		if err := json.Unmarshal(cached, &candidates); err == nil {
			metric.Incr(metric.CacheHitCount, metric.BuildTag(metric.NewTag(metric.TagCacheName, "popular")))
			return head(candidates, limit), nil
		}
	}

	candidates, err := h.store.PopularItems(popularFetchLimit)
	if err != nil {
		return nil, err
	}
	if encoded, err := json.Marshal(candidates); err == nil {
		if err := h.popCache.SetEx(popularCacheKey, encoded, h.popTTLSeconds); err != nil {
			log.Warn().Err(err).Msg("Failed to cache popularity list")
		}
	}
	metric.Incr(metric.CacheMissCount, metric.BuildTag(metric.NewTag(metric.TagCacheName, "popular")))
	return head(candidates, limit), nil
}

// RecommendBatch fans requests out over a bounded worker pool. Each request
// is isolated: one subject's failure becomes an inline error entry, not a
// batch failure.
func (h *HandlerV1) RecommendBatch(ctx context.Context, req *BatchRequest) (*BatchResponse, error) {
	if len(req.Requests) == 0 {
		return nil, apperr.Permanent("batch must contain at least one request")
	}

	out := make([]BatchItemResponse, len(req.Requests))
	sem := make(chan struct{}, h.fanoutLimit)
	var wg sync.WaitGroup
	for i := range req.Requests {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			resp, err := h.Recommend(ctx, &req.Requests[i])
			if err != nil {
				out[i] = BatchItemResponse{SubjectID: req.Requests[i].SubjectID, Error: err.Error()}
				return
			}
			out[i] = BatchItemResponse{SubjectID: resp.SubjectID, Items: resp.Items, ServedBy: resp.ServedBy}
		}(i)
	}
	wg.Wait()
	return &BatchResponse{Responses: out}, nil
}

// Similar returns the nearest neighbors of a catalog item from the active
// index generation, excluding the item itself.
func (h *HandlerV1) Similar(req *SimilarRequest) (*SimilarResponse, error) {
	if err := validateSimilar(req); err != nil {
		return nil, err
	}
	if !h.manager.Ready() {
		return nil, apperr.Transient("index not ready")
	}
	itemVector, ok := h.manager.Lookup(req.ItemID)
	if !ok {
		return nil, apperr.Permanent("item %d not in index", req.ItemID)
	}
	results, err := h.manager.Search(itemVector, req.K, map[int64]struct{}{req.ItemID: {}})
	if err != nil {
		return nil, err
	}
	items := make([]RecommendedItem, 0, len(results))
	for _, r := range results {
		items = append(items, RecommendedItem{ID: r.ID, Score: r.Score})
	}
	return &SimilarResponse{ItemID: req.ItemID, Items: items}, nil
}

// ratingEvent is published for downstream popularity and catalog
// aggregation.
type ratingEvent struct {
	SubjectID int64   `json:"subject_id"`
	ItemID    int64   `json:"item_id"`
	Rating    float64 `json:"rating"`
}

// PutRating persists the rating, drops the subject's cached embedding so the
// next request recomputes it, and emits a rating event when a producer is
// configured.
func (h *HandlerV1) PutRating(req *RatingRequest) error {
	if err := validateRating(req); err != nil {
		return err
	}
	if err := h.store.SaveRating(req.SubjectID, req.ItemID, req.Rating); err != nil {
		return err
	}
	h.cache.Invalidate(req.SubjectID)
	metric.Incr("rating_saved", nil)

	if h.ratingKafkaId > 0 {
		payload, err := json.Marshal(ratingEvent{SubjectID: req.SubjectID, ItemID: req.ItemID, Rating: req.Rating})
		if err == nil {
			if err := kafka.SendAndForget(h.ratingKafkaId, []kafka.ProducerMessage{{Value: payload}}); err != nil {
				log.Error().Err(err).Msg("Failed to publish rating event")
			}
		}
	}
	return nil
}

// Popular returns the cached global popularity list.
func (h *HandlerV1) Popular(k int) (*PopularResponse, error) {
	if err := validateK(k); err != nil {
		return nil, err
	}
	candidates, err := h.popularCandidates(k)
	if err != nil {
		return nil, err
	}
	items := make([]RecommendedItem, 0, len(candidates))
	for _, c := range candidates {
		items = append(items, RecommendedItem{ID: c.ID, Score: c.Score})
	}
	return &PopularResponse{Items: items}, nil
}

func toSet(ids []int64) map[int64]struct{} {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func head(candidates []repositories.Candidate, limit int) []repositories.Candidate {
	if len(candidates) > limit {
		return candidates[:limit]
	}
	return candidates
}
