package structs

var (
	appConfig AppConfig
)

type AppConfig struct {
	Configs Configs
}

func (cfg *AppConfig) GetStaticConfig() interface{} {
	return &cfg.Configs
}

func GetAppConfig() *AppConfig {
	return &appConfig
}

type Configs struct {
	AppName string `mapstructure:"app_name"`
	AppEnv  string `mapstructure:"app_env"`
	Port    int    `mapstructure:"port"`

	ModelServerURL string `mapstructure:"model_server_url"`
	ModelName      string `mapstructure:"model_name"`
	ModelTimeoutMs int    `mapstructure:"model_timeout_ms"`
	ModelMaxRps    int    `mapstructure:"model_max_rps"`
	ModelRetryMax  int    `mapstructure:"model_retry_max"`
	EmbeddingDim   int    `mapstructure:"embedding_dim"`

	EmbeddingCacheTTLSeconds  int `mapstructure:"embedding_cache_ttl_seconds"`
	EmbeddingStalenessSeconds int `mapstructure:"embedding_staleness_seconds"`

	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	RedisEnabled  bool   `mapstructure:"redis_enabled"`

	IndexEngine                 string `mapstructure:"index_engine"`
	IndexRebuildThreshold       int    `mapstructure:"index_rebuild_threshold"`
	IndexRebuildIntervalSeconds int    `mapstructure:"index_rebuild_interval_seconds"`
	IvfNlist                    int    `mapstructure:"ivf_nlist"`
	IvfNprobe                   int    `mapstructure:"ivf_nprobe"`
	HnswM                       int    `mapstructure:"hnsw_m"`
	HnswEfConstruction          int    `mapstructure:"hnsw_ef_construction"`
	HnswEfSearch                int    `mapstructure:"hnsw_ef_search"`

	SyncRetryMax      int `mapstructure:"sync_retry_max"`
	SyncBackoffBaseMs int `mapstructure:"sync_backoff_base_ms"`

	BatchFanoutLimit int `mapstructure:"batch_fanout_limit"`

	MutationConsumerKafkaIds string `mapstructure:"mutation_consumer_kafka_ids"`
	MutationProducerKafkaId  int    `mapstructure:"mutation_producer_kafka_id"`

	PopularCacheTTLSeconds int `mapstructure:"popular_cache_ttl_seconds"`
	MinInteractions        int `mapstructure:"min_interactions"`
}
