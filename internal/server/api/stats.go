package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/reelstack/recoserve/internal/repositories/vector"
	"github.com/rs/zerolog/log"
)

func statsHandler(c *gin.Context) {
	indexStats := indexManager.Stats()
	syncStats := coordinator.Stats()

	stats := gin.H{
		"index": gin.H{
			"engine":            indexStats.Engine,
			"active_generation": indexStats.ActiveGeneration,
			"entry_count":       indexStats.EntryCount,
			"built_at":          indexStats.BuiltAt,
		},
		"sync": gin.H{
			"pending_since_build": syncStats.PendingSinceBuild,
			"last_sync_at":        syncStats.LastSyncAt,
			"last_build_at":       syncStats.LastBuildAt,
			"states":              syncStats.States,
		},
	}
	if info, err := vector.GetRepository().CollectionInfo(); err == nil {
		stats["vector_store"] = gin.H{
			"status":                info.Status,
			"points_count":          info.PointsCount,
			"indexed_vectors_count": info.IndexedVectorsCount,
		}
	} else {
		log.Warn().Err(err).Msg("Collection info unavailable for stats")
	}
	c.JSON(http.StatusOK, stats)
}

// syncTriggerHandler forces a sync cycle outside the schedule.
func syncTriggerHandler(c *gin.Context) {
	if err := coordinator.RunCycle(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "stats": coordinator.Stats()})
}
