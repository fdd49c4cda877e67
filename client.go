package tripmesh

import (
	"context"
	"fmt"
	"time"

	"github.com/tripmesh/tripmesh/cache"
	"github.com/tripmesh/tripmesh/common/logger"
	"github.com/tripmesh/tripmesh/config"
	"github.com/tripmesh/tripmesh/embedding"
	"github.com/tripmesh/tripmesh/fusion"
	"github.com/tripmesh/tripmesh/graph"
	"github.com/tripmesh/tripmesh/llm"
	"github.com/tripmesh/tripmesh/orchestrator"
	"github.com/tripmesh/tripmesh/resilience"
	"github.com/tripmesh/tripmesh/retriever"
	"github.com/tripmesh/tripmesh/schema"
	"github.com/tripmesh/tripmesh/vectordb"
)

// Client wires the providers, caches, and the orchestrator from config.
type Client struct {
	config   *config.Config
	vector   vectordb.Provider
	graph    graph.Provider
	sessions SessionStore
	orch     *orchestrator.Orchestrator
}

// NewClient builds the full pipeline from a validated config.
func NewClient(cfg *config.Config) (*Client, error) {
	if cfg.LogLevel != "" {
		logger.SetLevel(cfg.LogLevel)
	}

	c := &Client{config: cfg}

	store, err := cache.NewStore(cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("create cache store failed, err: %w", err)
	}

	embeddingProvider, err := embedding.NewProvider(cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("create embedding provider failed, err: %w", err)
	}

	vectorProvider, err := vectordb.NewProvider(cfg.VectorDB)
	if err != nil {
		return nil, fmt.Errorf("create vector store provider failed, err: %w", err)
	}
	c.vector = vectorProvider

	var graphLeg orchestrator.GraphTraverser
	if cfg.Graph.Provider != "" {
		graphProvider, err := graph.NewProvider(cfg.Graph)
		if err != nil {
			return nil, fmt.Errorf("create graph provider failed, err: %w", err)
		}
		c.graph = graphProvider
		graphLeg = retriever.NewGraphRetriever(graphProvider, cfg.Retrieval.GraphFactsPerNode)
	}

	var llmProvider llm.Provider
	if cfg.LLM.Provider != "" || cfg.LLM.APIKey != "" {
		llmProvider, err = llm.NewProvider(cfg.LLM)
		if err != nil {
			return nil, fmt.Errorf("create llm provider failed, err: %w", err)
		}
	}

	sessions, err := NewSessionStore(cfg.Session)
	if err != nil {
		return nil, fmt.Errorf("create session store failed, err: %w", err)
	}
	c.sessions = sessions

	retryer := resilience.NewRetryer(resilience.PolicyFromConfig(cfg.Resilience))
	breaker := resilience.NewBreaker(
		cfg.Resilience.FailureThreshold,
		time.Duration(cfg.Resilience.CooldownSeconds)*time.Second,
	)

	embedFn := func(ctx context.Context, text string) (schema.Embedding, error) {
		var vec schema.Embedding
		err := retryer.Do(ctx, schema.IsRateLimited, func(ctx context.Context) error {
			var err error
			vec, err = embeddingProvider.GetEmbedding(ctx, text)
			return err
		})
		return vec, err
	}

	embTTL := time.Duration(cfg.Cache.EmbeddingTTLHours) * time.Hour
	ansTTL := time.Duration(cfg.Cache.AnswerTTLHours) * time.Hour

	maxKept := 0
	if cfg.Session != nil {
		maxKept = cfg.Session.MaxKept
	}

	c.orch = orchestrator.New(orchestrator.Params{
		Embeddings:   cache.NewEmbeddingCache(store, embedFn, embTTL),
		Answers:      cache.NewAnswerCache(store, ansTTL),
		ModelVersion: embeddingProvider.ModelVersion(),
		Vector:       retriever.NewVectorRetriever(vectorProvider),
		Graph:        graphLeg,
		Extractor:    graph.NewHeuristicExtractor(cfg.Retrieval.TopN),
		Fuser:        fusion.NewEngine(cfg.Fusion.VectorWeight, cfg.Fusion.GraphWeight),
		Breaker:      breaker,
		Retryer:      retryer,
		Generator:    llmProvider,
		Prompts:      llm.NewPromptBuilder(cfg.LLM.Model, cfg.LLM.MaxContextTokens),
		History:      &sessionHistory{store: sessions, maxTurns: maxKept},
		Options: orchestrator.Options{
			TopN:    cfg.Retrieval.TopN,
			TopK:    cfg.Retrieval.TopK,
			MaxHops: cfg.Retrieval.MaxHops,
		},
	})
	return c, nil
}

// Chat answers a user query, threading conversation history when a session
// id is given.
func (c *Client) Chat(ctx context.Context, query, sessionID string) (*orchestrator.Answer, error) {
	return c.orch.Answer(ctx, query, sessionID)
}

// Search runs retrieval and fusion only, returning the ranked context set.
func (c *Client) Search(ctx context.Context, query string) (*schema.FusedContext, error) {
	return c.orch.Retrieve(ctx, query)
}

// Sessions exposes the session store for the server tool surface.
func (c *Client) Sessions() SessionStore { return c.sessions }

// Close releases the backing store connections.
func (c *Client) Close(ctx context.Context) error {
	var firstErr error
	if c.vector != nil {
		if err := c.vector.Close(); err != nil {
			firstErr = err
		}
	}
	if c.graph != nil {
		if err := c.graph.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// sessionHistory adapts the session store to the orchestrator's view of
// conversation history.
type sessionHistory struct {
	store    SessionStore
	maxTurns int
}

func (h *sessionHistory) History(ctx context.Context, conversationID string) ([]llm.Message, error) {
	sess, ok := h.store.Get(ctx, conversationID)
	if !ok {
		return nil, nil
	}
	messages := sess.Messages()
	if h.maxTurns > 0 && len(messages) > h.maxTurns {
		messages = messages[len(messages)-h.maxTurns:]
	}
	return messages, nil
}

func (h *sessionHistory) Append(ctx context.Context, conversationID string, turns ...llm.Message) error {
	now := time.Now()
	chatTurns := make([]ChatTurn, 0, len(turns))
	for _, t := range turns {
		chatTurns = append(chatTurns, ChatTurn{Role: t.Role, Content: t.Content, Timestamp: now})
	}
	if !h.store.AddTurns(ctx, conversationID, chatTurns...) {
		return fmt.Errorf("session %s not found", conversationID)
	}
	return nil
}
