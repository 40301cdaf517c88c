package providers

import (
	"context"

	"github.com/sawpanic/stockrun/internal/domain"
)

// Guard layers the shared rate limiter and per-provider circuit breakers
// over provider calls.
type Guard struct {
	limiter  *RateLimiter
	breakers *BreakerManager
}

// NewGuard registers every snapshot domain plus the chart source with the
// given per-minute budget and breaker configuration.
func NewGuard(perMinute, burst int, cfg BreakerConfig) *Guard {
	limiter := NewRateLimiter()
	breakers := NewBreakerManager()
	for _, name := range []string{NameSocial, NameTechnical, NameFundamental, NameAnalyst, NameStructure, NameChart} {
		limiter.Register(name, perMinute, burst)
		breakers.Register(name, cfg)
	}
	return &Guard{limiter: limiter, breakers: breakers}
}

// Do acquires a rate token, then runs fn through the provider's breaker.
func (g *Guard) Do(ctx context.Context, provider string, fn func() (interface{}, error)) (interface{}, error) {
	if err := g.limiter.Acquire(ctx, provider); err != nil {
		return nil, err
	}
	return g.breakers.Execute(provider, fn)
}

// Budgets exposes the rate limiter budgets for the status surface.
func (g *Guard) Budgets() map[string]Budget { return g.limiter.Budgets() }

// Breakers exposes the circuit breaker states for the status surface.
func (g *Guard) Breakers() map[string]BreakerStatus { return g.breakers.Status() }

// WrapSet returns a Set whose every fetch passes through the guard.
func (g *Guard) WrapSet(s Set) Set {
	return Set{
		Social:      guardedSocial{g, s.Social},
		Technical:   guardedTechnical{g, s.Technical},
		Fundamental: guardedFundamental{g, s.Fundamental},
		Analyst:     guardedAnalyst{g, s.Analyst},
		Structure:   guardedStructure{g, s.Structure},
	}
}

type guardedSocial struct {
	guard *Guard
	next  SocialProvider
}

func (p guardedSocial) FetchSocial(ctx context.Context, symbol string) (*domain.SocialSnapshot, error) {
	out, err := p.guard.Do(ctx, NameSocial, func() (interface{}, error) {
		return p.next.FetchSocial(ctx, symbol)
	})
	if err != nil {
		return nil, err
	}
	return out.(*domain.SocialSnapshot), nil
}

type guardedTechnical struct {
	guard *Guard
	next  TechnicalProvider
}

func (p guardedTechnical) FetchTechnical(ctx context.Context, symbol string) (*domain.TechnicalSnapshot, error) {
	out, err := p.guard.Do(ctx, NameTechnical, func() (interface{}, error) {
		return p.next.FetchTechnical(ctx, symbol)
	})
	if err != nil {
		return nil, err
	}
	return out.(*domain.TechnicalSnapshot), nil
}

type guardedFundamental struct {
	guard *Guard
	next  FundamentalProvider
}

func (p guardedFundamental) FetchFundamental(ctx context.Context, symbol string) (*domain.FundamentalSnapshot, error) {
	out, err := p.guard.Do(ctx, NameFundamental, func() (interface{}, error) {
		return p.next.FetchFundamental(ctx, symbol)
	})
	if err != nil {
		return nil, err
	}
	return out.(*domain.FundamentalSnapshot), nil
}

type guardedAnalyst struct {
	guard *Guard
	next  AnalystProvider
}

func (p guardedAnalyst) FetchAnalyst(ctx context.Context, symbol string) (*domain.AnalystSnapshot, error) {
	out, err := p.guard.Do(ctx, NameAnalyst, func() (interface{}, error) {
		return p.next.FetchAnalyst(ctx, symbol)
	})
	if err != nil {
		return nil, err
	}
	return out.(*domain.AnalystSnapshot), nil
}

type guardedStructure struct {
	guard *Guard
	next  StructureProvider
}

func (p guardedStructure) FetchStructure(ctx context.Context, symbol string) (*domain.StructureSnapshot, error) {
	out, err := p.guard.Do(ctx, NameStructure, func() (interface{}, error) {
		return p.next.FetchStructure(ctx, symbol)
	})
	if err != nil {
		return nil, err
	}
	return out.(*domain.StructureSnapshot), nil
}
