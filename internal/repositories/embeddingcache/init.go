package embeddingcache

import (
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/reelstack/recoserve/internal/config/structs"
	"github.com/reelstack/recoserve/pkg/infra"
	"github.com/reelstack/recoserve/pkg/inmemorycache"
)

var (
	embeddingCache Database
	once           sync.Once
	DefaultVersion = 1
)

func NewRepository(version int) Database {
	switch version {
	case DefaultVersion:
		return initV1()
	default:
		return nil
	}
}

func initV1() Database {
	once.Do(func() {
		cfg := structs.GetAppConfig().Configs
		var redisClient *redis.Client
		if cfg.RedisEnabled {
			redisClient = infra.GetRedisClient()
		}
		embeddingCache = newV1(
			inmemorycache.Instance(),
			redisClient,
			cfg.EmbeddingCacheTTLSeconds,
			cfg.EmbeddingStalenessSeconds,
		)
	})
	return embeddingCache
}

// SetTestInstance sets the package-level cache singleton. Use only in tests.
func SetTestInstance(db Database) {
	once.Do(func() {})
	embeddingCache = db
}
