package providers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Budget tracks per-minute request usage for one provider.
type Budget struct {
	Name      string    `json:"name"`
	Used      int       `json:"used"`
	Limit     int       `json:"limit"`
	ResetAt   time.Time `json:"reset_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RateLimiter applies a token-bucket limit per provider and tracks rolling
// per-minute budgets for the status surface.
type RateLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	budgets  map[string]*Budget
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		budgets:  make(map[string]*Budget),
	}
}

// Register configures a provider with a per-minute request budget.
func (rl *RateLimiter) Register(provider string, perMinute, burst int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.limiters[provider] = rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), burst)
	rl.budgets[provider] = &Budget{
		Name:    provider,
		Limit:   perMinute,
		ResetAt: time.Now().Add(time.Minute),
	}
}

// Acquire blocks until the provider's bucket grants a token or the context
// ends. Unregistered providers pass unthrottled.
func (rl *RateLimiter) Acquire(ctx context.Context, provider string) error {
	rl.mu.RLock()
	limiter := rl.limiters[provider]
	rl.mu.RUnlock()

	if limiter == nil {
		return nil
	}
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait for %s: %w", provider, err)
	}
	rl.spend(provider)
	return nil
}

func (rl *RateLimiter) spend(provider string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b := rl.budgets[provider]
	if b == nil {
		return
	}
	now := time.Now()
	if now.After(b.ResetAt) {
		b.Used = 0
		b.ResetAt = now.Add(time.Minute)
	}
	b.Used++
	b.UpdatedAt = now
}

// Budgets returns a copy of every provider budget, keyed by name.
func (rl *RateLimiter) Budgets() map[string]Budget {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	out := make(map[string]Budget, len(rl.budgets))
	for name, b := range rl.budgets {
		out[name] = *b
	}
	return out
}
