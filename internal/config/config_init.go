package config

import (
	"log"

	"github.com/reelstack/recoserve/internal/config/structs"
	"github.com/spf13/viper"
)

func InitConfig(appConfig *structs.AppConfig) {
	viper.AutomaticEnv()
	staticConfig := appConfig.GetStaticConfig()
	cfg, ok := staticConfig.(*structs.Configs)
	if !ok {
		log.Fatal("Failed to cast static config to *Configs")
	}
	bindEnvVars()
	if err := viper.Unmarshal(cfg); err != nil {
		log.Fatalf("Failed to unmarshal config from environment: %v", err)
	}
}

func bindEnvVars() {
	viper.BindEnv("app_name", "APP_NAME")
	viper.BindEnv("app_env", "APP_ENV")
	viper.BindEnv("port", "PORT")
	viper.BindEnv("model_server_url", "MODEL_SERVER_URL")
	viper.BindEnv("model_name", "MODEL_NAME")
	viper.BindEnv("model_timeout_ms", "MODEL_TIMEOUT_MS")
	viper.BindEnv("model_max_rps", "MODEL_MAX_RPS")
	viper.BindEnv("model_retry_max", "MODEL_RETRY_MAX")
	viper.BindEnv("embedding_dim", "EMBEDDING_DIM")
	viper.BindEnv("embedding_cache_ttl_seconds", "EMBEDDING_CACHE_TTL_SECONDS")
	viper.BindEnv("embedding_staleness_seconds", "EMBEDDING_STALENESS_SECONDS")
	viper.BindEnv("redis_addr", "REDIS_ADDR")
	viper.BindEnv("redis_password", "REDIS_PASSWORD")
	viper.BindEnv("redis_db", "REDIS_DB")
	viper.BindEnv("redis_enabled", "REDIS_ENABLED")
	viper.BindEnv("index_engine", "INDEX_ENGINE")
	viper.BindEnv("index_rebuild_threshold", "INDEX_REBUILD_THRESHOLD")
	viper.BindEnv("index_rebuild_interval_seconds", "INDEX_REBUILD_INTERVAL_SECONDS")
	viper.BindEnv("ivf_nlist", "IVF_NLIST")
	viper.BindEnv("ivf_nprobe", "IVF_NPROBE")
	viper.BindEnv("hnsw_m", "HNSW_M")
	viper.BindEnv("hnsw_ef_construction", "HNSW_EF_CONSTRUCTION")
	viper.BindEnv("hnsw_ef_search", "HNSW_EF_SEARCH")
	viper.BindEnv("sync_retry_max", "SYNC_RETRY_MAX")
	viper.BindEnv("sync_backoff_base_ms", "SYNC_BACKOFF_BASE_MS")
	viper.BindEnv("batch_fanout_limit", "BATCH_FANOUT_LIMIT")
	viper.BindEnv("mutation_consumer_kafka_ids", "MUTATION_CONSUMER_KAFKA_IDS")
	viper.BindEnv("mutation_producer_kafka_id", "MUTATION_PRODUCER_KAFKA_ID")
	viper.BindEnv("popular_cache_ttl_seconds", "POPULAR_CACHE_TTL_SECONDS")
	viper.BindEnv("min_interactions", "MIN_INTERACTIONS")
}
