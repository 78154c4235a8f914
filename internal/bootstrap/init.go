package bootstrap

import (
	"context"
	"time"

	"github.com/reelstack/recoserve/internal/config"
	"github.com/reelstack/recoserve/internal/config/structs"
	"github.com/reelstack/recoserve/internal/embedder"
	"github.com/reelstack/recoserve/internal/index"
	"github.com/reelstack/recoserve/internal/journal"
	"github.com/reelstack/recoserve/internal/repositories/recordstore"
	"github.com/reelstack/recoserve/internal/repositories/vector"
	"github.com/reelstack/recoserve/internal/server/api"
	"github.com/reelstack/recoserve/internal/serving/handlers/recommend"
	"github.com/reelstack/recoserve/internal/syncer"
	"github.com/reelstack/recoserve/pkg/httpframework"
	"github.com/reelstack/recoserve/pkg/infra"
	"github.com/reelstack/recoserve/pkg/inmemorycache"
	"github.com/reelstack/recoserve/pkg/kafka"
	"github.com/reelstack/recoserve/pkg/logger"
	"github.com/reelstack/recoserve/pkg/metric"
	"github.com/rs/zerolog/log"
)

const defaultRebuildInterval = 6 * time.Hour

// initCommon brings up the pieces both binaries need: config, logging,
// metrics, caches and the backend repositories.
func initCommon() {
	logger.Init()
	config.InitConfig(structs.GetAppConfig())
	metric.Init()
	inmemorycache.Init(1)

	cfg := structs.GetAppConfig().Configs
	if cfg.RedisEnabled {
		infra.InitRedis()
	}

	if err := vector.GetRepository().EnsureCollection(); err != nil {
		log.Panic().Err(err).Msg("Failed to ensure vector collection")
	}
	recordstore.NewRepository(recordstore.DefaultVersion)
}

// newSyncPipeline builds the shared journal, index manager and coordinator,
// starts the mutation consumers and kicks off an initial index build.
func newSyncPipeline() (*index.Manager, *journal.Journal, *syncer.Coordinator) {
	cfg := structs.GetAppConfig().Configs

	manager := index.NewManager(index.ParseEngineKind(cfg.IndexEngine), index.EngineConfig{
		IvfNlist:           cfg.IvfNlist,
		IvfNprobe:          cfg.IvfNprobe,
		HnswM:              cfg.HnswM,
		HnswEfConstruction: cfg.HnswEfConstruction,
		HnswEfSearch:       cfg.HnswEfSearch,
	})
	j := journal.New()
	coordinator := syncer.NewCoordinator(
		vector.GetRepository(),
		manager,
		j,
		cfg.SyncRetryMax,
		time.Duration(cfg.SyncBackoffBaseMs)*time.Millisecond,
		cfg.IndexRebuildThreshold,
	)

	if cfg.MutationConsumerKafkaIds != "" {
		journal.StartMutationConsumers(cfg.MutationConsumerKafkaIds, j)
	}

	// Serve from whatever the store already holds.
	if err := coordinator.Rebuild(); err != nil {
		log.Warn().Err(err).Msg("Initial index build failed, serving store-only until next cycle")
	}
	return manager, j, coordinator
}

func rebuildInterval() time.Duration {
	cfg := structs.GetAppConfig().Configs
	if cfg.IndexRebuildIntervalSeconds > 0 {
		return time.Duration(cfg.IndexRebuildIntervalSeconds) * time.Second
	}
	return defaultRebuildInterval
}

// InitServing wires the full serving stack and returns once routes are
// registered; the caller runs the HTTP server.
func InitServing(ctx context.Context) {
	initCommon()
	httpframework.Init()

	cfg := structs.GetAppConfig().Configs
	embedder.Init()
	if cfg.MutationProducerKafkaId > 0 {
		kafka.InitProducer(cfg.MutationProducerKafkaId)
	}

	manager, j, coordinator := newSyncPipeline()
	go coordinator.Run(ctx, rebuildInterval())

	recommend.Init(manager)
	api.Init(manager, coordinator, j)
}

// InitSyncer wires the headless sync worker: consumers, coordinator and the
// store, without the serving surface.
func InitSyncer(ctx context.Context) *syncer.Coordinator {
	initCommon()
	_, _, coordinator := newSyncPipeline()
	go coordinator.Run(ctx, rebuildInterval())
	return coordinator
}
