package resilience

import (
	"sync"
	"time"

	"github.com/tripmesh/tripmesh/common/logger"
	"github.com/tripmesh/tripmesh/schema"
)

// Breaker tracks the process-wide health of the backing stores and derives
// the retrieval mode. Transitions are per process lifetime, not per query,
// so the graph store is not re-probed on every call.
//
// Hybrid: both stores healthy. N consecutive graph failures trip to
// VectorOnly, where graph calls are skipped for a cool-down window; after
// the window a single probe call may attempt recovery. If the vector store
// also accumulates N consecutive failures while the graph is tripped, the
// mode is Degraded; a vector probe after its own cool-down lets a query
// attempt a full retrieval again, so recovery never depends on the answer
// cache expiring.
//
// A probe permit must be spent or returned: the holder either makes the
// store call and records its outcome, or hands the permit back through the
// matching Release method so the next query can probe instead.
//
// The counter-and-flip is a single locked step: concurrent queries observing
// the same failure burst cannot each trip a redundant transition.
type Breaker struct {
	mu              sync.Mutex
	threshold       int
	cooldown        time.Duration
	graphFails      int
	vectorFails     int
	graphTripped    bool
	vectorTripped   bool
	graphTrippedAt  time.Time
	vectorTrippedAt time.Time
	graphProbe      bool
	vectorProbe     bool
	now             func() time.Time
}

// NewBreaker creates a breaker that trips after threshold consecutive
// failures and probes for recovery after cooldown.
func NewBreaker(threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 3
	}
	if cooldown <= 0 {
		cooldown = time.Minute
	}
	return &Breaker{threshold: threshold, cooldown: cooldown, now: time.Now}
}

// Mode returns the current retrieval mode.
func (b *Breaker) Mode() schema.RetrievalMode {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.modeLocked()
}

func (b *Breaker) modeLocked() schema.RetrievalMode {
	switch {
	case b.graphTripped && b.vectorTripped:
		return schema.ModeDegraded
	case b.graphTripped:
		return schema.ModeVectorOnly
	default:
		return schema.ModeHybrid
	}
}

// AllowGraph reports whether the graph leg may run. While tripped, it grants
// exactly one probe permit per elapsed cool-down window.
func (b *Breaker) AllowGraph() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.graphTripped {
		return true
	}
	if b.graphProbe {
		return false
	}
	if b.now().Sub(b.graphTrippedAt) >= b.cooldown {
		b.graphProbe = true
		logger.Infof("breaker: cool-down elapsed, probing graph store")
		return true
	}
	return false
}

// ReleaseGraph returns an unspent graph probe permit, for holders that ended
// up not calling the graph store at all. The cool-down clock is untouched so
// the next query may probe immediately.
func (b *Breaker) ReleaseGraph() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.graphProbe = false
}

// RecordGraphSuccess resets the graph failure counter and, if the store was
// tripped, closes it again.
func (b *Breaker) RecordGraphSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	before := b.modeLocked()
	b.graphFails = 0
	b.graphProbe = false
	if b.graphTripped {
		b.graphTripped = false
		logger.Infof("breaker: graph store recovered, mode %s -> %s", before, b.modeLocked())
	}
}

// RecordGraphFailure counts a consecutive graph failure and trips the
// breaker once the threshold is crossed. A failed probe restarts the
// cool-down window.
func (b *Breaker) RecordGraphFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	before := b.modeLocked()
	b.graphFails++
	if b.graphProbe {
		b.graphProbe = false
		b.graphTrippedAt = b.now()
		logger.Warnf("breaker: graph probe failed, cool-down restarted")
		return
	}
	if !b.graphTripped && b.graphFails >= b.threshold {
		b.graphTripped = true
		b.graphTrippedAt = b.now()
		logger.Warnf("breaker: %d consecutive graph failures, mode %s -> %s", b.graphFails, before, b.modeLocked())
	}
}

// AllowVector reports whether a retrieval attempt may run. A healthy vector
// store always allows; while tripped, it grants exactly one probe permit per
// elapsed cool-down window, which is the only way out of Degraded.
func (b *Breaker) AllowVector() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.vectorTripped {
		return true
	}
	if b.vectorProbe {
		return false
	}
	if b.now().Sub(b.vectorTrippedAt) >= b.cooldown {
		b.vectorProbe = true
		logger.Infof("breaker: cool-down elapsed, probing vector store")
		return true
	}
	return false
}

// ReleaseVector returns an unspent vector probe permit.
func (b *Breaker) ReleaseVector() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.vectorProbe = false
}

// RecordVectorSuccess resets the vector failure counter and leaves Degraded.
func (b *Breaker) RecordVectorSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	before := b.modeLocked()
	b.vectorFails = 0
	b.vectorProbe = false
	if b.vectorTripped {
		b.vectorTripped = false
		logger.Infof("breaker: vector store recovered, mode %s -> %s", before, b.modeLocked())
	}
}

// RecordVectorFailure counts a consecutive vector failure. With the graph
// already tripped, crossing the threshold enters Degraded. A failed vector
// probe restarts the cool-down window.
func (b *Breaker) RecordVectorFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	before := b.modeLocked()
	b.vectorFails++
	if b.vectorProbe {
		b.vectorProbe = false
		b.vectorTrippedAt = b.now()
		logger.Warnf("breaker: vector probe failed, cool-down restarted")
		return
	}
	if b.graphTripped && !b.vectorTripped && b.vectorFails >= b.threshold {
		b.vectorTripped = true
		b.vectorTrippedAt = b.now()
		logger.Warnf("breaker: %d consecutive vector failures, mode %s -> %s", b.vectorFails, before, b.modeLocked())
	}
}

// GraphFailures returns the current consecutive graph failure count.
func (b *Breaker) GraphFailures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.graphFails
}
