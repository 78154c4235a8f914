package recommend

import (
	"sync"
	"time"

	"github.com/reelstack/recoserve/internal/config/structs"
	"github.com/reelstack/recoserve/internal/embedder"
	"github.com/reelstack/recoserve/internal/index"
	"github.com/reelstack/recoserve/internal/repositories/embeddingcache"
	"github.com/reelstack/recoserve/internal/repositories/recordstore"
	"github.com/reelstack/recoserve/internal/repositories/vector"
	"github.com/reelstack/recoserve/internal/serving/strategy"
	"github.com/reelstack/recoserve/pkg/inmemorycache"
)

const backendCooldown = 30 * time.Second

var (
	handler  *HandlerV1
	syncOnce sync.Once
)

// Init wires the handler from the package singletons. The index manager is
// owned by the caller since it is shared with the sync coordinator.
func Init(manager *index.Manager) {
	syncOnce.Do(func() {
		cfg := structs.GetAppConfig().Configs
		handler = NewHandlerV1(
			embeddingcache.NewRepository(embeddingcache.DefaultVersion),
			embedder.Instance(),
			manager,
			vector.GetRepository(),
			recordstore.NewRepository(recordstore.DefaultVersion),
			strategy.NewHealthTracker(backendCooldown),
			inmemorycache.Instance(),
			cfg.PopularCacheTTLSeconds,
			cfg.MinInteractions,
			cfg.BatchFanoutLimit,
			cfg.MutationProducerKafkaId,
		)
	})
}

func Instance() *HandlerV1 {
	return handler
}

// SetTestInstance sets the package-level handler singleton. Use only in tests.
func SetTestInstance(h *HandlerV1) {
	syncOnce.Do(func() {})
	handler = h
}
