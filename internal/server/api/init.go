package api

import (
	"github.com/reelstack/recoserve/internal/index"
	"github.com/reelstack/recoserve/internal/journal"
	"github.com/reelstack/recoserve/internal/serving/handlers/recommend"
	"github.com/reelstack/recoserve/internal/syncer"
	"github.com/reelstack/recoserve/pkg/httpframework"
)

var (
	indexManager    *index.Manager
	coordinator     *syncer.Coordinator
	mutationJournal *journal.Journal
)

// Init registers all routes on the shared gin engine.
func Init(manager *index.Manager, coord *syncer.Coordinator, j *journal.Journal) {
	indexManager = manager
	coordinator = coord
	mutationJournal = j

	router := httpframework.Instance()
	router.GET("/health", healthCheckHandler)
	router.GET("/stats", statsHandler)

	router.POST("/recommend", recommend.HTTPRecommend)
	router.POST("/recommend_batch", recommend.HTTPRecommendBatch)
	router.POST("/similar", recommend.HTTPSimilar)
	router.POST("/rating", recommend.HTTPRating)
	router.GET("/popular", recommend.HTTPPopular)

	router.POST("/internal/sync", syncTriggerHandler)
	router.POST("/internal/catalog", catalogMutationHandler)
}
