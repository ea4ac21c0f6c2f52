package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AppInfo holds basic information about the running application.
type AppInfo struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"` // e.g. "development", "production"
}

// LoggerConfig configures the log output.
type LoggerConfig struct {
	Level string `yaml:"level"` // "debug", "info", "warn", "error"
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Address string `yaml:"address"` // listen address, e.g. ":8080"
}

// ProviderConfig holds the settings shared by all LLM/embedding providers.
type ProviderConfig struct {
	APIKey  string `yaml:"apiKey"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"baseURL,omitempty"` // only used by self-hosted providers
}

// LLMConfig selects and configures the reasoning provider.
type LLMConfig struct {
	Provider string         `yaml:"provider"` // "openai", "gemini", "ollama"
	OpenAI   ProviderConfig `yaml:"openai"`
	Gemini   ProviderConfig `yaml:"gemini"`
	Ollama   ProviderConfig `yaml:"ollama"`
}

// EmbeddingCacheConfig configures the Redis-backed embedding cache.
// Embeddings are deterministic per text and model version, so cached
// vectors never go stale while the model name is unchanged.
type EmbeddingCacheConfig struct {
	Enabled    bool   `yaml:"enabled"`
	TTLSeconds int    `yaml:"ttlSeconds"` // 0 means no expiry
	KeyPrefix  string `yaml:"keyPrefix"`
}

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	Provider  string               `yaml:"provider"` // "openai", "gemini", "ollama"
	OpenAI    ProviderConfig       `yaml:"openai"`
	Gemini    ProviderConfig       `yaml:"gemini"`
	Ollama    ProviderConfig       `yaml:"ollama"`
	Cache     EmbeddingCacheConfig `yaml:"cache"`
	RateRPS   float64              `yaml:"rateRPS"`   // embedding calls per second, 0 disables limiting
	RateBurst int                  `yaml:"rateBurst"` // burst size for the token bucket
}

// ConsolidationConfig tunes the consolidation pipeline.
type ConsolidationConfig struct {
	TopK                int     `yaml:"topK"`                // nearest neighbors per fact
	MinScore            float32 `yaml:"minScore"`            // similarity floor for candidates
	MaxConcurrentEmbeds int     `yaml:"maxConcurrentEmbeds"` // per-fact fan-out bound
}

// MilvusConfig configures the vector store connection and collection.
type MilvusConfig struct {
	Address        string `yaml:"address"`
	CollectionName string `yaml:"collectionName"`
	VectorDim      int    `yaml:"vectorDim"`
	IndexType      string `yaml:"indexType"`  // "IVF_FLAT", "HNSW", "AUTOINDEX"
	MetricType     string `yaml:"metricType"` // "COSINE", "IP", "L2"
	Nlist          int    `yaml:"nlist"`
}

// RedisConfig configures the Redis connection used by the embedding cache.
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// MongoConfig configures the MongoDB connection used by the change history.
type MongoConfig struct {
	Address    string `yaml:"address"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

// KafkaConfig configures the ingestion topic consumer.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	GroupID string   `yaml:"groupID"`
}

// DatabaseConfigs groups all backing-store configuration.
type DatabaseConfigs struct {
	Milvus  MilvusConfig `yaml:"milvus"`
	Redis   RedisConfig  `yaml:"redis"`
	MongoDB MongoConfig  `yaml:"mongodb"`
	Kafka   KafkaConfig  `yaml:"kafka"`
}

// AppConfig is the root of the YAML configuration file.
type AppConfig struct {
	App           AppInfo             `yaml:"app"`
	Logger        LoggerConfig        `yaml:"logger"`
	Server        ServerConfig        `yaml:"server"`
	LLM           LLMConfig           `yaml:"llm"`
	Embedding     EmbeddingConfig     `yaml:"embedding"`
	Consolidation ConsolidationConfig `yaml:"consolidation"`
	Databases     DatabaseConfigs     `yaml:"databases"`
}

// LoadConfig reads and parses the YAML configuration file at path, then
// fills in defaults for unset pipeline tunables.
func LoadConfig(path string) (*AppConfig, error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(yamlFile, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file %q: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *AppConfig) applyDefaults() {
	if c.Consolidation.TopK <= 0 {
		c.Consolidation.TopK = 5
	}
	if c.Consolidation.MinScore <= 0 {
		c.Consolidation.MinScore = 0.5
	}
	if c.Consolidation.MaxConcurrentEmbeds <= 0 {
		c.Consolidation.MaxConcurrentEmbeds = 4
	}
	if c.Databases.Milvus.MetricType == "" {
		c.Databases.Milvus.MetricType = "COSINE"
	}
	if c.Databases.Milvus.IndexType == "" {
		c.Databases.Milvus.IndexType = "AUTOINDEX"
	}
	if c.Embedding.Cache.KeyPrefix == "" {
		c.Embedding.Cache.KeyPrefix = "emb"
	}
}
