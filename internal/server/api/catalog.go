package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/reelstack/recoserve/internal/config/structs"
	"github.com/reelstack/recoserve/internal/journal"
)

type catalogMutationRequest struct {
	Records []journal.Record `json:"records"`
}

// catalogMutationHandler ingests catalog mutations directly. Records are
// appended to the local journal and, when a producer is configured, fanned
// out to the mutation topic so every replica picks them up.
func catalogMutationHandler(c *gin.Context) {
	var req catalogMutationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if len(req.Records) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "records must not be empty"})
		return
	}
	for _, rec := range req.Records {
		if err := rec.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	stamped := make([]journal.Record, 0, len(req.Records))
	for _, rec := range req.Records {
		stamped = append(stamped, mutationJournal.Append(rec))
	}
	if kafkaId := structs.GetAppConfig().Configs.MutationProducerKafkaId; kafkaId > 0 {
		journal.PublishRecords(kafkaId, stamped)
	}
	c.JSON(http.StatusAccepted, gin.H{"accepted": len(stamped)})
}
