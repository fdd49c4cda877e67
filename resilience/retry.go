package resilience

import (
	"context"
	"time"

	"github.com/tripmesh/tripmesh/common/logger"
	"github.com/tripmesh/tripmesh/config"
	"github.com/tripmesh/tripmesh/schema"
)

// Policy is an exponential backoff schedule: BaseDelay doubled (or scaled by
// Multiplier) per attempt, capped at MaxDelay, for at most MaxAttempts.
type Policy struct {
	BaseDelay   time.Duration
	Multiplier  float64
	MaxDelay    time.Duration
	MaxAttempts int
}

// PolicyFromConfig builds a Policy from the resilience config section.
func PolicyFromConfig(cfg config.ResilienceConfig) Policy {
	return Policy{
		BaseDelay:   time.Duration(cfg.BackoffBaseMs) * time.Millisecond,
		Multiplier:  cfg.BackoffMultiplier,
		MaxDelay:    time.Duration(cfg.BackoffMaxMs) * time.Millisecond,
		MaxAttempts: cfg.MaxAttempts,
	}
}

// Delay returns the backoff before retry number attempt (1-based: the delay
// taken after the attempt-th failure).
func (p Policy) Delay(attempt int) time.Duration {
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d = time.Duration(float64(d) * p.Multiplier)
		if p.MaxDelay > 0 && d > p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Classifier reports whether an error is retriable. Fatal errors abort the
// loop immediately and are returned as-is.
type Classifier func(error) bool

// Retryer decorates outbound calls with the backoff schedule. The same
// decorator wraps every provider call (embedding, vector search, graph
// query, generation) instead of each provider duplicating retry loops.
type Retryer struct {
	Policy Policy
	// Sleep is injectable for tests; the default honors context cancellation.
	Sleep func(ctx context.Context, d time.Duration) error
}

// NewRetryer creates a Retryer with the default context-aware sleep.
func NewRetryer(policy Policy) *Retryer {
	return &Retryer{Policy: policy, Sleep: sleepCtx}
}

// Do runs op up to MaxAttempts times. Retriable failures wait out the
// exponential schedule; a rate-limited failure first waits the provider's
// retry-after hint when it exceeds the scheduled delay. Exhausting retries
// returns the last error, never an empty result.
func (r *Retryer) Do(ctx context.Context, retriable Classifier, op func(ctx context.Context) error) error {
	attempts := r.Policy.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if retriable != nil && !retriable(err) {
			return err
		}
		if attempt == attempts {
			break
		}
		delay := r.Policy.Delay(attempt)
		if hint := schema.RetryAfterHint(err); hint > delay {
			delay = hint
		}
		logger.Warnf("retry: attempt %d/%d failed, backing off %s: %v", attempt, attempts, delay, err)
		if serr := r.sleep(ctx, delay); serr != nil {
			return serr
		}
	}
	return lastErr
}

func (r *Retryer) sleep(ctx context.Context, d time.Duration) error {
	if r.Sleep != nil {
		return r.Sleep(ctx, d)
	}
	return sleepCtx(ctx, d)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
