package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Defaults applied by Load before validation. Dimension 1536 matches the
// embedding model family the index was built with and must not change for
// the lifetime of an index.
const (
	DefaultTopN              = 5
	DefaultTopK              = 5
	DefaultMaxHops           = 1
	DefaultGraphFactsPerNode = 10
	DefaultDimensions        = 1536
	DefaultVectorWeight      = 0.6
	DefaultGraphWeight       = 0.4
	DefaultMaxAttempts       = 5
	DefaultBackoffBaseMs     = 500
	DefaultBackoffMultiplier = 2.0
	DefaultBackoffMaxMs      = 30000
	DefaultFailureThreshold  = 3
	DefaultCooldownSeconds   = 60
	DefaultCacheTTLHours     = 48
	DefaultCacheMaxEntries   = 512
	DefaultMaxContextTokens  = 3000
)

// Load reads a yaml config file, applies defaults, and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills zero values with the documented defaults.
func (c *Config) ApplyDefaults() {
	if c.Retrieval.TopN <= 0 {
		c.Retrieval.TopN = DefaultTopN
	}
	if c.Retrieval.TopK <= 0 {
		c.Retrieval.TopK = DefaultTopK
	}
	if c.Retrieval.MaxHops <= 0 {
		c.Retrieval.MaxHops = DefaultMaxHops
	}
	if c.Retrieval.GraphFactsPerNode <= 0 {
		c.Retrieval.GraphFactsPerNode = DefaultGraphFactsPerNode
	}
	if c.Fusion.VectorWeight <= 0 && c.Fusion.GraphWeight <= 0 {
		c.Fusion.VectorWeight = DefaultVectorWeight
		c.Fusion.GraphWeight = DefaultGraphWeight
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = DefaultDimensions
	}
	if c.Resilience.MaxAttempts <= 0 {
		c.Resilience.MaxAttempts = DefaultMaxAttempts
	}
	if c.Resilience.BackoffBaseMs <= 0 {
		c.Resilience.BackoffBaseMs = DefaultBackoffBaseMs
	}
	if c.Resilience.BackoffMultiplier <= 1 {
		c.Resilience.BackoffMultiplier = DefaultBackoffMultiplier
	}
	if c.Resilience.BackoffMaxMs <= 0 {
		c.Resilience.BackoffMaxMs = DefaultBackoffMaxMs
	}
	if c.Resilience.FailureThreshold <= 0 {
		c.Resilience.FailureThreshold = DefaultFailureThreshold
	}
	if c.Resilience.CooldownSeconds <= 0 {
		c.Resilience.CooldownSeconds = DefaultCooldownSeconds
	}
	if c.Cache.Store == "" {
		c.Cache.Store = "memory"
	}
	if c.Cache.EmbeddingTTLHours <= 0 {
		c.Cache.EmbeddingTTLHours = DefaultCacheTTLHours
	}
	if c.Cache.AnswerTTLHours <= 0 {
		c.Cache.AnswerTTLHours = DefaultCacheTTLHours
	}
	if c.Cache.MaxEntries <= 0 {
		c.Cache.MaxEntries = DefaultCacheMaxEntries
	}
	if c.LLM.MaxContextTokens <= 0 {
		c.LLM.MaxContextTokens = DefaultMaxContextTokens
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.Embedding.Provider == "" {
		return fmt.Errorf("embedding provider is required")
	}
	if c.VectorDB.Provider == "" {
		return fmt.Errorf("vectordb provider is required")
	}
	switch c.VectorDB.Provider {
	case "pinecone":
		if c.VectorDB.Host == "" {
			return fmt.Errorf("pinecone host is required")
		}
	case "milvus":
		if c.VectorDB.Host == "" || c.VectorDB.Port <= 0 {
			return fmt.Errorf("milvus host and port are required")
		}
	default:
		return fmt.Errorf("unknown vectordb provider %q", c.VectorDB.Provider)
	}
	if c.Graph.Provider != "" && c.Graph.Provider != "neo4j" {
		return fmt.Errorf("unknown graph provider %q", c.Graph.Provider)
	}
	if c.Graph.Provider == "neo4j" && c.Graph.URI == "" {
		return fmt.Errorf("neo4j uri is required")
	}
	if c.Cache.Store == "redis" && c.Cache.Redis.Addr == "" {
		return fmt.Errorf("redis addr is required for redis cache store")
	}
	if c.Fusion.VectorWeight < 0 || c.Fusion.GraphWeight < 0 {
		return fmt.Errorf("fusion weights must be non-negative")
	}
	if c.Fusion.VectorWeight+c.Fusion.GraphWeight <= 0 {
		return fmt.Errorf("at least one fusion weight must be positive")
	}
	return nil
}
