package config

// Config is the root configuration for the hybrid retrieval orchestrator.
type Config struct {
	Retrieval  RetrievalConfig  `json:"retrieval" yaml:"retrieval"`
	Fusion     FusionConfig     `json:"fusion" yaml:"fusion"`
	Embedding  EmbeddingConfig  `json:"embedding" yaml:"embedding"`
	VectorDB   VectorDBConfig   `json:"vectordb" yaml:"vectordb"`
	Graph      GraphConfig      `json:"graph" yaml:"graph"`
	LLM        LLMConfig        `json:"llm" yaml:"llm"`
	Cache      CacheConfig      `json:"cache" yaml:"cache"`
	Resilience ResilienceConfig `json:"resilience" yaml:"resilience"`
	Session    *SessionConfig   `json:"session,omitempty" yaml:"session,omitempty"`
	LogLevel   string           `json:"log_level,omitempty" yaml:"log_level,omitempty"`
}

// RetrievalConfig holds the retrieval fan-out parameters.
type RetrievalConfig struct {
	// TopN candidates requested from each backing store.
	TopN int `json:"top_n,omitempty" yaml:"top_n,omitempty"`
	// TopK is the size cap of the fused context set.
	TopK int `json:"top_k,omitempty" yaml:"top_k,omitempty"`
	// MaxHops bounds graph neighborhood traversal depth.
	MaxHops int `json:"max_hops,omitempty" yaml:"max_hops,omitempty"`
	// GraphFactsPerNode caps facts fetched per seed entity.
	GraphFactsPerNode int `json:"graph_facts_per_node,omitempty" yaml:"graph_facts_per_node,omitempty"`
}

// FusionConfig holds the score combination weights. Weights are fixed
// configuration, never learned at runtime.
type FusionConfig struct {
	VectorWeight float64 `json:"vector_weight,omitempty" yaml:"vector_weight,omitempty"`
	GraphWeight  float64 `json:"graph_weight,omitempty" yaml:"graph_weight,omitempty"`
}

// EmbeddingConfig defines the embedding provider.
type EmbeddingConfig struct {
	Provider   string `json:"provider" yaml:"provider"` // Available options: openai
	APIKey     string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	BaseURL    string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Model      string `json:"model,omitempty" yaml:"model,omitempty"`
	Dimensions int    `json:"dimensions,omitempty" yaml:"dimensions,omitempty"`
}

// VectorDBConfig defines the vector index backend.
type VectorDBConfig struct {
	Provider  string `json:"provider" yaml:"provider"` // Available options: pinecone, milvus
	Host      string `json:"host,omitempty" yaml:"host,omitempty"`
	Port      int    `json:"port,omitempty" yaml:"port,omitempty"`
	APIKey    string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	Index     string `json:"index,omitempty" yaml:"index,omitempty"`
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	Username  string `json:"username,omitempty" yaml:"username,omitempty"`
	Password  string `json:"password,omitempty" yaml:"password,omitempty"`
	TimeoutMs int    `json:"timeout_ms,omitempty" yaml:"timeout_ms,omitempty"`
}

// GraphConfig defines the knowledge graph backend.
type GraphConfig struct {
	Provider         string `json:"provider" yaml:"provider"` // Available options: neo4j
	URI              string `json:"uri,omitempty" yaml:"uri,omitempty"`
	Username         string `json:"username,omitempty" yaml:"username,omitempty"`
	Password         string `json:"password,omitempty" yaml:"password,omitempty"`
	ConnectTimeoutMs int    `json:"connect_timeout_ms,omitempty" yaml:"connect_timeout_ms,omitempty"`
}

// LLMConfig defines the generation provider.
type LLMConfig struct {
	Provider         string  `json:"provider" yaml:"provider"` // Available options: openai
	APIKey           string  `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	BaseURL          string  `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Model            string  `json:"model,omitempty" yaml:"model,omitempty"`
	Temperature      float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	MaxTokens        int     `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
	MaxContextTokens int     `json:"max_context_tokens,omitempty" yaml:"max_context_tokens,omitempty"`
}

// CacheConfig controls the embedding and answer caches.
type CacheConfig struct {
	Store string      `json:"store,omitempty" yaml:"store,omitempty"` // Available options: memory, redis
	Redis RedisConfig `json:"redis,omitempty" yaml:"redis,omitempty"`
	// EmbeddingTTLHours / AnswerTTLHours default to 48h, expired = miss.
	EmbeddingTTLHours int `json:"embedding_ttl_hours,omitempty" yaml:"embedding_ttl_hours,omitempty"`
	AnswerTTLHours    int `json:"answer_ttl_hours,omitempty" yaml:"answer_ttl_hours,omitempty"`
	// MaxEntries caps the in-memory store.
	MaxEntries int `json:"max_entries,omitempty" yaml:"max_entries,omitempty"`
}

// RedisConfig holds Redis connection settings for cache and session stores.
type RedisConfig struct {
	Addr     string `json:"addr,omitempty" yaml:"addr,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
	DB       int    `json:"db,omitempty" yaml:"db,omitempty"`
}

// ResilienceConfig holds retry and breaker parameters.
type ResilienceConfig struct {
	MaxAttempts       int     `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty"`
	BackoffBaseMs     int     `json:"backoff_base_ms,omitempty" yaml:"backoff_base_ms,omitempty"`
	BackoffMultiplier float64 `json:"backoff_multiplier,omitempty" yaml:"backoff_multiplier,omitempty"`
	BackoffMaxMs      int     `json:"backoff_max_ms,omitempty" yaml:"backoff_max_ms,omitempty"`
	// FailureThreshold consecutive graph failures trip the breaker.
	FailureThreshold int `json:"failure_threshold,omitempty" yaml:"failure_threshold,omitempty"`
	// CooldownSeconds before a single probe may attempt recovery.
	CooldownSeconds int `json:"cooldown_seconds,omitempty" yaml:"cooldown_seconds,omitempty"`
}

// SessionConfig holds the conversation session store settings.
type SessionConfig struct {
	Store      string      `json:"store,omitempty" yaml:"store,omitempty"` // Available options: memory, redis
	Redis      RedisConfig `json:"redis,omitempty" yaml:"redis,omitempty"`
	TTLSeconds int         `json:"ttl_seconds,omitempty" yaml:"ttl_seconds,omitempty"`
	MaxKept    int         `json:"max_kept,omitempty" yaml:"max_kept,omitempty"`
}
