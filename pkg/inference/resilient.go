package inference

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// Gateway is the behavior the session layer depends on. Both the plain
// Client and the ResilientClient satisfy it.
type Gateway interface {
	ProbeHealth(ctx context.Context) HealthOutcome
	SubmitAnalysis(ctx context.Context, text string) AnalyzeOutcome
}

// ResilientConfig configures the optional circuit breaker and response cache
// around the gateway. Both are disabled by default so the baseline
// single-attempt, always-dispatch semantics hold unless explicitly enabled.
type ResilientConfig struct {
	BreakerEnabled bool
	CacheEnabled   bool
	CacheSize      int
	CacheTTL       time.Duration
}

// ResilientClient wraps a gateway with a circuit breaker per endpoint and an
// in-process cache of successful analyze outcomes. An open breaker
// short-circuits to Unreachable/Failure without issuing a network call.
type ResilientClient struct {
	inner  Gateway
	config ResilientConfig
	logger *logrus.Logger

	healthBreaker  *gobreaker.CircuitBreaker
	analyzeBreaker *gobreaker.CircuitBreaker
	cache          *expirable.LRU[string, AnalyzeOutcome]
}

// NewResilientClient creates a resilient wrapper around the given gateway.
func NewResilientClient(inner Gateway, config ResilientConfig, logger *logrus.Logger) *ResilientClient {
	r := &ResilientClient{
		inner:  inner,
		config: config,
		logger: logger,
	}

	if config.BreakerEnabled {
		r.healthBreaker = gobreaker.NewCircuitBreaker(r.breakerSettings("inference-health"))
		r.analyzeBreaker = gobreaker.NewCircuitBreaker(r.breakerSettings("inference-analyze"))
	}

	if config.CacheEnabled {
		size := config.CacheSize
		if size <= 0 {
			size = 256
		}
		ttl := config.CacheTTL
		if ttl <= 0 {
			ttl = 15 * time.Minute
		}
		r.cache = expirable.NewLRU[string, AnalyzeOutcome](size, nil, ttl)
	}

	return r
}

func (r *ResilientClient) breakerSettings(name string) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if r.logger != nil {
				r.logger.WithFields(logrus.Fields{
					"breaker": name,
					"from":    from.String(),
					"to":      to.String(),
				}).Warn("circuit breaker state changed")
			}
		},
	}
}

// ProbeHealth delegates to the inner gateway, tripping the health breaker on
// Unreachable outcomes when the breaker is enabled.
func (r *ResilientClient) ProbeHealth(ctx context.Context) HealthOutcome {
	if r.healthBreaker == nil {
		return r.inner.ProbeHealth(ctx)
	}

	result, err := r.healthBreaker.Execute(func() (interface{}, error) {
		outcome := r.inner.ProbeHealth(ctx)
		if outcome == Unreachable {
			return outcome, fmt.Errorf("backend unreachable")
		}
		return outcome, nil
	})
	if err != nil {
		return Unreachable
	}
	return result.(HealthOutcome)
}

// SubmitAnalysis serves repeated submissions of identical text from the cache
// when enabled, and otherwise delegates through the analyze breaker. Only
// successful outcomes are cached.
func (r *ResilientClient) SubmitAnalysis(ctx context.Context, text string) AnalyzeOutcome {
	key := cacheKey(text)
	if r.cache != nil {
		if cached, ok := r.cache.Get(key); ok {
			return cached
		}
	}

	outcome := r.submit(ctx, text)
	if r.cache != nil && outcome.Success {
		r.cache.Add(key, outcome)
	}
	return outcome
}

func (r *ResilientClient) submit(ctx context.Context, text string) AnalyzeOutcome {
	if r.analyzeBreaker == nil {
		return r.inner.SubmitAnalysis(ctx, text)
	}

	result, err := r.analyzeBreaker.Execute(func() (interface{}, error) {
		outcome := r.inner.SubmitAnalysis(ctx, text)
		if !outcome.Success {
			return outcome, fmt.Errorf("analyze failed with status %d", outcome.StatusCode)
		}
		return outcome, nil
	})
	if err != nil {
		if result != nil {
			return result.(AnalyzeOutcome)
		}
		// Breaker rejected the call before dispatch.
		return AnalyzeOutcome{Success: false, Reason: err}
	}
	return result.(AnalyzeOutcome)
}

func cacheKey(text string) string {
	hash := sha256.Sum256([]byte(text))
	return fmt.Sprintf("analyze:%x", hash[:8])
}
