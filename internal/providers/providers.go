package providers

import (
	"context"
	"fmt"

	"github.com/sawpanic/stockrun/internal/domain"
)

// Provider names shared by the rate limiter, circuit breakers, and metrics.
const (
	NameSocial      = "social"
	NameTechnical   = "technical"
	NameFundamental = "fundamental"
	NameAnalyst     = "analyst"
	NameStructure   = "structure"
	NameChart       = "chart"
)

// SocialProvider fetches the social sentiment snapshot for one symbol.
type SocialProvider interface {
	FetchSocial(ctx context.Context, symbol string) (*domain.SocialSnapshot, error)
}

// TechnicalProvider fetches the price/indicator snapshot for one symbol.
type TechnicalProvider interface {
	FetchTechnical(ctx context.Context, symbol string) (*domain.TechnicalSnapshot, error)
}

// FundamentalProvider fetches the financials snapshot for one symbol.
type FundamentalProvider interface {
	FetchFundamental(ctx context.Context, symbol string) (*domain.FundamentalSnapshot, error)
}

// AnalystProvider fetches the sell-side coverage snapshot for one symbol.
type AnalystProvider interface {
	FetchAnalyst(ctx context.Context, symbol string) (*domain.AnalystSnapshot, error)
}

// StructureProvider fetches the ownership/short-interest snapshot for one
// symbol.
type StructureProvider interface {
	FetchStructure(ctx context.Context, symbol string) (*domain.StructureSnapshot, error)
}

// Set groups one provider per analytical domain. The analyzer fans out one
// fetch per member and substitutes defaults for failures.
type Set struct {
	Social      SocialProvider
	Technical   TechnicalProvider
	Fundamental FundamentalProvider
	Analyst     AnalystProvider
	Structure   StructureProvider
}

// Validate reports the first missing member. The analyzer requires all five.
func (s Set) Validate() error {
	switch {
	case s.Social == nil:
		return fmt.Errorf("provider set missing %s", NameSocial)
	case s.Technical == nil:
		return fmt.Errorf("provider set missing %s", NameTechnical)
	case s.Fundamental == nil:
		return fmt.Errorf("provider set missing %s", NameFundamental)
	case s.Analyst == nil:
		return fmt.Errorf("provider set missing %s", NameAnalyst)
	case s.Structure == nil:
		return fmt.Errorf("provider set missing %s", NameStructure)
	}
	return nil
}
