package metrics

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/tripmesh/tripmesh/common/logger"
	"github.com/tripmesh/tripmesh/schema"
)

// LegMetrics records one retrieval leg of a query.
type LegMetrics struct {
	LatencyMs   int64   `json:"latency_ms"`
	ResultCount int     `json:"result_count"`
	TopScore    float64 `json:"top_score,omitempty"`
	Skipped     bool    `json:"skipped,omitempty"`
	Error       string  `json:"error,omitempty"`
}

// RetrievalMetrics is the per-query observability record, emitted as one
// JSON log line when the query finishes.
type RetrievalMetrics struct {
	QueryID        string     `json:"query_id"`
	Mode           string     `json:"mode"`
	AnswerCacheHit bool       `json:"answer_cache_hit"`
	EmbCacheHit    bool       `json:"emb_cache_hit"`
	Vector         LegMetrics `json:"vector"`
	Graph          LegMetrics `json:"graph"`
	FusedCount     int        `json:"fused_count"`
	TotalLatencyMs int64      `json:"total_latency_ms"`
	Success        bool       `json:"success"`
	Error          string     `json:"error,omitempty"`

	start time.Time
}

func NewRetrievalMetrics(mode schema.RetrievalMode) *RetrievalMetrics {
	return &RetrievalMetrics{
		QueryID: uuid.NewString(),
		Mode:    mode.String(),
		start:   time.Now(),
	}
}

// RecordLeg fills a leg from its outcome. A skipped leg carries no latency.
func (m *RetrievalMetrics) RecordLeg(leg *LegMetrics, started time.Time, candidates []schema.RetrievalCandidate, err error) {
	leg.LatencyMs = time.Since(started).Milliseconds()
	leg.ResultCount = len(candidates)
	if len(candidates) > 0 {
		leg.TopScore = candidates[0].RawScore
	}
	if err != nil {
		leg.Error = err.Error()
	}
}

// Finish stamps the total latency and outcome, then logs the record.
func (m *RetrievalMetrics) Finish(err error) {
	m.TotalLatencyMs = time.Since(m.start).Milliseconds()
	m.Success = err == nil
	if err != nil {
		m.Error = err.Error()
	}
	m.LogJSON()
}

func (m *RetrievalMetrics) LogJSON() {
	raw, err := json.Marshal(m)
	if err != nil {
		logger.Errorf("metrics: marshal: %v", err)
		return
	}
	logger.Infof("retrieval_metrics: %s", raw)
}
