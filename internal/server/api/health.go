package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/reelstack/recoserve/internal/repositories/recordstore"
	"github.com/reelstack/recoserve/internal/repositories/vector"
)

func healthCheckHandler(c *gin.Context) {
	components := gin.H{
		"vector_store": "ok",
		"record_store": "ok",
		"index_ready":  indexManager.Ready(),
	}
	healthy := true

	if err := vector.GetRepository().HealthCheck(); err != nil {
		components["vector_store"] = err.Error()
		healthy = false
	}
	if err := recordstore.NewRepository(recordstore.DefaultVersion).HealthCheck(); err != nil {
		components["record_store"] = err.Error()
		healthy = false
	}

	status := http.StatusOK
	overall := "ok"
	if !healthy {
		status = http.StatusServiceUnavailable
		overall = "degraded"
	}
	c.JSON(status, gin.H{"status": overall, "components": components})
}
