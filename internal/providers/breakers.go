package providers

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

// BreakerConfig tunes one provider's circuit breaker.
type BreakerConfig struct {
	MaxRequests         uint32        // probes allowed while half-open
	Interval            time.Duration // closed-state count reset window
	Timeout             time.Duration // open-state cool-off
	ErrorRateThreshold  float64       // percent, evaluated once 10+ requests seen
	ConsecutiveFailures uint32
}

// DefaultBreakerConfig suits the free-tier upstreams the snapshot providers
// wrap.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:         3,
		Interval:            60 * time.Second,
		Timeout:             30 * time.Second,
		ErrorRateThreshold:  50.0,
		ConsecutiveFailures: 5,
	}
}

// BreakerStatus is a point-in-time view of one breaker for the status
// surface.
type BreakerStatus struct {
	Name      string  `json:"name"`
	State     string  `json:"state"`
	Requests  uint32  `json:"requests"`
	Failures  uint32  `json:"failures"`
	ErrorRate float64 `json:"error_rate"`
}

// BreakerManager holds one circuit breaker per provider.
type BreakerManager struct {
	mu       sync.RWMutex
	breakers map[string]*gobreaker.CircuitBreaker
}

func NewBreakerManager() *BreakerManager {
	return &BreakerManager{breakers: make(map[string]*gobreaker.CircuitBreaker)}
}

// Register creates the breaker for one provider.
func (bm *BreakerManager) Register(provider string, cfg BreakerConfig) {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	bm.breakers[provider] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        provider,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures >= cfg.ConsecutiveFailures {
				return true
			}
			if counts.Requests >= 10 {
				errorRate := float64(counts.TotalFailures) / float64(counts.Requests) * 100
				return errorRate >= cfg.ErrorRateThreshold
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("provider", name).
				Str("from", from.String()).Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	})
}

// Execute runs fn through the provider's breaker. Unregistered providers run
// unguarded.
func (bm *BreakerManager) Execute(provider string, fn func() (interface{}, error)) (interface{}, error) {
	bm.mu.RLock()
	cb := bm.breakers[provider]
	bm.mu.RUnlock()

	if cb == nil {
		return fn()
	}
	return cb.Execute(fn)
}

// Status reports every registered breaker, keyed by provider name.
func (bm *BreakerManager) Status() map[string]BreakerStatus {
	bm.mu.RLock()
	defer bm.mu.RUnlock()

	out := make(map[string]BreakerStatus, len(bm.breakers))
	for name, cb := range bm.breakers {
		counts := cb.Counts()
		var errorRate float64
		if counts.Requests > 0 {
			errorRate = float64(counts.TotalFailures) / float64(counts.Requests) * 100
		}
		out[name] = BreakerStatus{
			Name:      name,
			State:     cb.State().String(),
			Requests:  counts.Requests,
			Failures:  counts.TotalFailures,
			ErrorRate: errorRate,
		}
	}
	return out
}
