package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tripmesh/tripmesh/cache"
	"github.com/tripmesh/tripmesh/common/logger"
	"github.com/tripmesh/tripmesh/fusion"
	"github.com/tripmesh/tripmesh/graph"
	"github.com/tripmesh/tripmesh/llm"
	"github.com/tripmesh/tripmesh/metrics"
	"github.com/tripmesh/tripmesh/resilience"
	"github.com/tripmesh/tripmesh/schema"
)

// VectorSearcher is the vector retrieval leg.
type VectorSearcher interface {
	Search(ctx context.Context, embedding schema.Embedding, topN int) ([]schema.RetrievalCandidate, error)
}

// GraphTraverser is the graph retrieval leg.
type GraphTraverser interface {
	Traverse(ctx context.Context, seeds []string, maxHops int) ([]schema.RetrievalCandidate, error)
}

// HistoryStore supplies and records conversation turns. Nil disables history.
type HistoryStore interface {
	History(ctx context.Context, conversationID string) ([]llm.Message, error)
	Append(ctx context.Context, conversationID string, turns ...llm.Message) error
}

// Answer is the orchestrator's reply payload.
type Answer struct {
	Text     string               `json:"text"`
	Mode     schema.RetrievalMode `json:"mode"`
	Context  schema.FusedContext  `json:"context"`
	CacheHit bool                 `json:"cache_hit"`
	QueryID  string               `json:"query_id"`
}

// Options bundle the tunables the pipeline reads per query.
type Options struct {
	TopN    int
	TopK    int
	MaxHops int
}

// Orchestrator runs the query pipeline: caches, parallel retrieval, fusion,
// prompt assembly, generation.
type Orchestrator struct {
	embeddings   *cache.EmbeddingCache
	answers      *cache.AnswerCache
	modelVersion string

	vector    VectorSearcher
	graphLeg  GraphTraverser
	extractor graph.EntityExtractor

	fuser   *fusion.Engine
	breaker *resilience.Breaker
	retryer *resilience.Retryer

	generator llm.Provider
	prompts   *llm.PromptBuilder
	history   HistoryStore

	opts Options
}

// Params collects the orchestrator's collaborators, wired by the client.
type Params struct {
	Embeddings   *cache.EmbeddingCache
	Answers      *cache.AnswerCache
	ModelVersion string
	Vector       VectorSearcher
	Graph        GraphTraverser
	Extractor    graph.EntityExtractor
	Fuser        *fusion.Engine
	Breaker      *resilience.Breaker
	Retryer      *resilience.Retryer
	Generator    llm.Provider
	Prompts      *llm.PromptBuilder
	History      HistoryStore
	Options      Options
}

func New(p Params) *Orchestrator {
	return &Orchestrator{
		embeddings:   p.Embeddings,
		answers:      p.Answers,
		modelVersion: p.ModelVersion,
		vector:       p.Vector,
		graphLeg:     p.Graph,
		extractor:    p.Extractor,
		fuser:        p.Fuser,
		breaker:      p.Breaker,
		retryer:      p.Retryer,
		generator:    p.Generator,
		prompts:      p.Prompts,
		history:      p.History,
		opts:         p.Options,
	}
}

// Retrieve runs the pipeline through fusion and returns the context set
// without invoking generation.
func (o *Orchestrator) Retrieve(ctx context.Context, rawQuery string) (*schema.FusedContext, error) {
	query := schema.NewQuery(rawQuery, "")
	mode := o.breaker.Mode()
	m := metrics.NewRetrievalMetrics(mode)
	fused, err := o.retrieve(ctx, query, mode, m)
	m.Finish(err)
	return fused, err
}

// Answer runs the full pipeline for one user query. Graph-side degradation
// is absorbed: the caller sees a vector-only or cache-only answer, never a
// graph error. Vector failure after retries is fatal for the query unless
// the pipeline is already in degraded mode, where a cooled-down recovery
// attempt may run a full retrieval before falling back to cache-only.
func (o *Orchestrator) Answer(ctx context.Context, rawQuery, conversationID string) (*Answer, error) {
	query := schema.NewQuery(rawQuery, conversationID)
	mode := o.breaker.Mode()
	m := metrics.NewRetrievalMetrics(mode)

	ans, err := o.answer(ctx, query, mode, m)
	if ans != nil {
		ans.QueryID = m.QueryID
	}
	m.Finish(err)
	return ans, err
}

func (o *Orchestrator) answer(ctx context.Context, query schema.Query, mode schema.RetrievalMode, m *metrics.RetrievalMetrics) (*Answer, error) {
	fingerprint := cache.Fingerprint(query.Normalized, mode, o.modelVersion)
	if cached, ok := o.answers.Lookup(ctx, fingerprint); ok {
		m.AnswerCacheHit = true
		text, err := o.generate(ctx, query, *cached)
		if err != nil {
			if schema.IsRateLimited(err) {
				logger.Warnf("generation rate limited after retries, serving fallback")
				return &Answer{Text: llm.FallbackAnswer, Mode: mode, Context: *cached, CacheHit: true}, nil
			}
			return nil, err
		}
		return &Answer{Text: text, Mode: mode, Context: *cached, CacheHit: true}, nil
	}

	if mode == schema.ModeDegraded {
		if ans, ok := o.probeRecovery(ctx, query, m); ok {
			return ans, nil
		}
		// Cache-only: with both stores down the answer is generated from
		// an empty context rather than failing the query outright.
		empty := schema.FusedContext{Mode: mode, CreatedAt: time.Now().UTC()}
		text, err := o.generate(ctx, query, empty)
		if err != nil {
			logger.Errorf("degraded generation failed: %v", err)
			return &Answer{Text: llm.FallbackAnswer, Mode: mode, Context: empty}, nil
		}
		return &Answer{Text: text, Mode: mode, Context: empty}, nil
	}

	fused, err := o.retrieve(ctx, query, mode, m)
	if err != nil {
		return nil, err
	}
	o.answers.Store(ctx, o.storeFingerprint(query, mode, fused), fused)

	text, err := o.generate(ctx, query, *fused)
	if err != nil {
		if schema.IsRateLimited(err) {
			logger.Warnf("generation rate limited after retries, serving fallback")
			return &Answer{Text: llm.FallbackAnswer, Mode: fused.Mode, Context: *fused}, nil
		}
		return nil, err
	}
	return &Answer{Text: text, Mode: fused.Mode, Context: *fused}, nil
}

// storeFingerprint keys the answer-cache write on the mode the context was
// actually built in. A hybrid query whose graph leg failed mid-flight fused
// vector-only; caching that under the hybrid fingerprint would keep serving
// the thinner context after the graph recovers.
func (o *Orchestrator) storeFingerprint(query schema.Query, mode schema.RetrievalMode, fused *schema.FusedContext) string {
	if fused.Mode == mode {
		return cache.Fingerprint(query.Normalized, mode, o.modelVersion)
	}
	return cache.Fingerprint(query.Normalized, fused.Mode, o.modelVersion)
}

// probeRecovery attempts one full retrieval from degraded mode once the
// vector cool-down has elapsed. Success re-opens the pipeline and serves a
// real answer; failure stays silent and restarts the cool-down, leaving the
// caller to the cache-only path.
func (o *Orchestrator) probeRecovery(ctx context.Context, query schema.Query, m *metrics.RetrievalMetrics) (*Answer, bool) {
	if !o.breaker.AllowVector() {
		return nil, false
	}
	fused, err := o.retrieve(ctx, query, schema.ModeDegraded, m)
	if err != nil {
		var emb *schema.EmbeddingUnavailableError
		if errors.As(err, &emb) {
			// no store call happened, the permit goes back
			o.breaker.ReleaseVector()
		}
		logger.Warnf("recovery attempt failed, serving cache-only: %v", err)
		return nil, false
	}
	o.answers.Store(ctx, cache.Fingerprint(query.Normalized, fused.Mode, o.modelVersion), fused)

	text, gerr := o.generate(ctx, query, *fused)
	if gerr != nil {
		logger.Errorf("generation after recovery failed: %v", gerr)
		return &Answer{Text: llm.FallbackAnswer, Mode: fused.Mode, Context: *fused}, true
	}
	return &Answer{Text: text, Mode: fused.Mode, Context: *fused}, true
}

// retrieve embeds the query and runs the vector and graph legs concurrently,
// then fuses the results.
func (o *Orchestrator) retrieve(ctx context.Context, query schema.Query, mode schema.RetrievalMode, m *metrics.RetrievalMetrics) (*schema.FusedContext, error) {
	embedding, hit, err := o.embeddings.GetOrCompute(ctx, query.Normalized)
	if err != nil {
		return nil, &schema.EmbeddingUnavailableError{Err: err}
	}
	m.EmbCacheHit = hit

	graphAllowed := o.graphLeg != nil && o.breaker.AllowGraph()
	m.Graph.Skipped = !graphAllowed

	var (
		wg          sync.WaitGroup
		vectorRes   []schema.RetrievalCandidate
		vectorErr   error
		graphRes    []schema.RetrievalCandidate
		graphErr    error
		graphCalled bool
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		started := time.Now()
		vectorRes, vectorErr = o.searchVector(ctx, embedding)
		m.RecordLeg(&m.Vector, started, vectorRes, vectorErr)
	}()

	if graphAllowed {
		wg.Add(1)
		go func() {
			defer wg.Done()
			started := time.Now()
			seeds, serr := o.extractor.Extract(ctx, query)
			if serr != nil || len(seeds) == 0 {
				// no store call happened: a probe permit granted while
				// tripped must go back or recovery stalls on this window
				o.breaker.ReleaseGraph()
				m.RecordLeg(&m.Graph, started, nil, serr)
				return
			}
			graphCalled = true
			graphRes, graphErr = o.traverseGraph(ctx, seeds, o.opts.MaxHops)
			m.RecordLeg(&m.Graph, started, graphRes, graphErr)
		}()
	}
	wg.Wait()

	// record the graph outcome first so a failing burst still advances the
	// breaker even when the vector leg is also failing
	if graphCalled {
		if graphErr != nil {
			o.breaker.RecordGraphFailure()
			logger.Warnf("graph leg failed, continuing vector-only: %v", graphErr)
			graphRes = nil
		} else {
			o.breaker.RecordGraphSuccess()
		}
	}

	if vectorErr != nil {
		o.breaker.RecordVectorFailure()
		var verr *schema.VectorStoreError
		if !errors.As(vectorErr, &verr) {
			vectorErr = &schema.VectorStoreError{Op: "search", Err: vectorErr}
		}
		return nil, vectorErr
	}
	o.breaker.RecordVectorSuccess()

	if graphCalled && graphErr == nil && len(graphRes) == 0 {
		graphRes = o.expandFromVector(ctx, vectorRes, m)
	}

	// fuse under the mode the context was actually built in
	effective := mode
	switch {
	case mode == schema.ModeDegraded:
		effective = o.breaker.Mode()
	case graphCalled && graphErr != nil:
		effective = schema.ModeVectorOnly
	case mode == schema.ModeVectorOnly && graphCalled && graphErr == nil:
		// successful graph probe: the context carries both legs
		effective = schema.ModeHybrid
	}

	fused := o.fuser.Fuse(vectorRes, graphRes, effective, o.opts.TopK)
	m.FusedCount = len(fused.Candidates)
	return &fused, nil
}

// expandFromVector feeds vector provenance ids through a single bounded hop
// when entity extraction found nothing in the graph. Failures here never
// fail the query and do not count against the breaker threshold twice.
func (o *Orchestrator) expandFromVector(ctx context.Context, vectorRes []schema.RetrievalCandidate, m *metrics.RetrievalMetrics) []schema.RetrievalCandidate {
	if len(vectorRes) == 0 || !o.breaker.AllowGraph() {
		return nil
	}
	ids := make([]string, 0, len(vectorRes))
	for _, c := range vectorRes {
		if c.Provenance.DocumentID != "" {
			ids = append(ids, c.Provenance.DocumentID)
		}
	}
	started := time.Now()
	expanded, err := o.traverseGraph(ctx, ids, 1)
	if err != nil {
		o.breaker.RecordGraphFailure()
		logger.Warnf("graph expansion from vector ids failed: %v", err)
		return nil
	}
	o.breaker.RecordGraphSuccess()
	m.RecordLeg(&m.Graph, started, expanded, nil)
	return expanded
}

func (o *Orchestrator) traverseGraph(ctx context.Context, seeds []string, maxHops int) ([]schema.RetrievalCandidate, error) {
	var out []schema.RetrievalCandidate
	err := o.retryer.Do(ctx, schema.IsRateLimited, func(ctx context.Context) error {
		var err error
		out, err = o.graphLeg.Traverse(ctx, seeds, maxHops)
		return err
	})
	return out, err
}

func (o *Orchestrator) searchVector(ctx context.Context, embedding schema.Embedding) ([]schema.RetrievalCandidate, error) {
	var out []schema.RetrievalCandidate
	err := o.retryer.Do(ctx, schema.IsRateLimited, func(ctx context.Context) error {
		var err error
		out, err = o.vector.Search(ctx, embedding, o.opts.TopN)
		return err
	})
	return out, err
}

func (o *Orchestrator) generate(ctx context.Context, query schema.Query, fused schema.FusedContext) (string, error) {
	if o.generator == nil {
		return "", nil
	}
	var history []llm.Message
	if o.history != nil && query.ConversationID != "" {
		h, err := o.history.History(ctx, query.ConversationID)
		if err != nil {
			logger.Warnf("session history read failed: %v", err)
		} else {
			history = h
		}
	}
	messages := o.prompts.Build(query, fused, history)

	var text string
	err := o.retryer.Do(ctx, schema.IsRateLimited, func(ctx context.Context) error {
		var err error
		text, err = o.generator.Chat(ctx, messages)
		return err
	})
	if err != nil {
		return "", err
	}

	if o.history != nil && query.ConversationID != "" {
		if aerr := o.history.Append(ctx, query.ConversationID,
			llm.Message{Role: llm.RoleUser, Content: query.Raw},
			llm.Message{Role: llm.RoleAssistant, Content: text},
		); aerr != nil {
			logger.Warnf("session history append failed: %v", aerr)
		}
	}
	return text, nil
}
