package embedder

import (
	"sync"
	"time"

	"github.com/reelstack/recoserve/internal/config/structs"
	"github.com/rs/zerolog/log"
)

var (
	client   Client
	syncOnce sync.Once
)

// Init builds the model client from app config.
func Init() {
	syncOnce.Do(func() {
		cfg := structs.GetAppConfig().Configs
		if cfg.ModelServerURL == "" {
			log.Panic().Msg("MODEL_SERVER_URL not set")
		}
		client = NewHTTPClient(
			cfg.ModelServerURL,
			cfg.ModelName,
			cfg.EmbeddingDim,
			time.Duration(cfg.ModelTimeoutMs)*time.Millisecond,
			cfg.ModelMaxRps,
			cfg.ModelRetryMax,
		)
	})
}

func Instance() Client {
	return client
}

// SetTestInstance sets the package-level client singleton to the given mock.
// Use only in tests.
func SetTestInstance(c Client) {
	client = c
}
