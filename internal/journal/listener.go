package journal

import (
	"encoding/json"

	ckafka "github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/reelstack/recoserve/pkg/kafka"
	"github.com/reelstack/recoserve/pkg/metric"
	"github.com/rs/zerolog/log"
)

// StartMutationConsumers subscribes to the catalog mutation topics and feeds
// decoded records into the journal. Malformed events are dropped after
// logging; a poison message must not wedge the partition.
func StartMutationConsumers(kafkaIds string, j *Journal) {
	kafka.StartConsumers(kafkaIds, "catalog-mutation", func(msgs []*ckafka.Message, _ *ckafka.Consumer) error {
		records := kafka.MessagesToRecordBytes(msgs)
		ingested := 0
		for _, raw := range records {
			var rec Record
			if err := json.Unmarshal(raw.Value, &rec); err != nil {
				log.Error().Err(err).Str("key", raw.Key).Msg("Dropping undecodable mutation event")
				metric.Incr("journal_decode_failure", nil)
				continue
			}
			if err := rec.Validate(); err != nil {
				log.Error().Err(err).Msg("Dropping invalid mutation event")
				metric.Incr("journal_invalid_event", nil)
				continue
			}
			j.Ingest(rec)
			ingested++
		}
		metric.Count("journal_ingested_events", int64(ingested), nil)
		return nil
	})
}

// PublishRecords emits records to the mutation topic for downstream
// consumers. Best effort, the journal itself is the source of truth for the
// local sync loop.
func PublishRecords(kafkaId int, records []Record) {
	if len(records) == 0 {
		return
	}
	msgs := make([]kafka.ProducerMessage, 0, len(records))
	for _, rec := range records {
		payload, err := json.Marshal(rec)
		if err != nil {
			log.Error().Err(err).Int64("id", rec.ID).Msg("Failed to encode mutation record")
			continue
		}
		msgs = append(msgs, kafka.ProducerMessage{Value: payload})
	}
	if err := kafka.SendAndForget(kafkaId, msgs); err != nil {
		log.Error().Err(err).Msg("Failed to publish mutation records")
		metric.Incr("journal_publish_failure", nil)
	}
}
