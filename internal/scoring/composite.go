package scoring

import (
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/stockrun/internal/domain"
)

// Components carries the five domain scores produced for one snapshot set.
type Components struct {
	Social      float64 `json:"social"`
	Technical   float64 `json:"technical"`
	Fundamental float64 `json:"fundamental"`
	Analyst     float64 `json:"analyst"`
	Structure   float64 `json:"structure"`
}

// Aggregator combines the five component scores into a CompositeScore and
// derives risk level, opportunity type and confidence from the full snapshot
// set, not just the scores.
type Aggregator struct {
	weights Weights
}

// NewAggregator creates an aggregator with the given weight allocation.
func NewAggregator(weights Weights) *Aggregator {
	return &Aggregator{weights: weights}
}

// opportunityRule pairs a classification with its predicate. Rules are
// evaluated in slice order and the first match wins, so precedence is
// explicit rather than depending on map iteration.
type opportunityRule struct {
	opportunity domain.OpportunityType
	matches     func(*domain.SnapshotSet) bool
}

var opportunityRules = []opportunityRule{
	{domain.OpportunityShortSqueeze, func(s *domain.SnapshotSet) bool {
		return s.Structure.ShortInterest > 20 &&
			s.Social.SentimentScore > 0.3 &&
			s.Social.Mentions > 100
	}},
	{domain.OpportunityMomentum, func(s *domain.SnapshotSet) bool {
		return s.Social.SentimentScore > 0.5 &&
			s.Technical.TrendDirection == domain.TrendBullish &&
			s.Technical.VolumeSpike
	}},
	{domain.OpportunityValue, func(s *domain.SnapshotSet) bool {
		return s.Fundamental.PERatio != nil && *s.Fundamental.PERatio < 20 &&
			isAnalystBullish(s.Analyst.ConsensusRating)
	}},
	{domain.OpportunityGrowth, func(s *domain.SnapshotSet) bool {
		return s.Fundamental.RevenueGrowthYoY != nil && *s.Fundamental.RevenueGrowthYoY > 20 &&
			s.Analyst.PriceTargetUpside > 15
	}},
	{domain.OpportunityContrarian, func(s *domain.SnapshotSet) bool {
		return s.Social.SentimentScore < -0.3 &&
			isAnalystBullish(s.Analyst.ConsensusRating)
	}},
}

// Aggregate builds the CompositeScore for one snapshot set. Any internal
// panic degrades to an all-zero score tagged unknown instead of propagating.
func (a *Aggregator) Aggregate(set *domain.SnapshotSet, comps Components) (score *domain.CompositeScore) {
	symbol := ""
	if set != nil {
		symbol = set.Symbol
	}
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("symbol", symbol).Interface("panic", r).
				Msg("composite aggregation failed, returning zero score")
			score = zeroCompositeScore()
		}
	}()

	total := comps.Social*a.weights.Social +
		comps.Technical*a.weights.Technical +
		comps.Fundamental*a.weights.Fundamental +
		comps.Analyst*a.weights.Analyst +
		comps.Structure*a.weights.Structure

	return &domain.CompositeScore{
		TotalScore:       total,
		SocialScore:      comps.Social,
		TechnicalScore:   comps.Technical,
		FundamentalScore: comps.Fundamental,
		AnalystScore:     comps.Analyst,
		StructureScore:   comps.Structure,
		RiskLevel:        a.riskLevel(set, total),
		OpportunityType:  a.opportunityType(set),
		ConfidenceLevel:  a.confidence(set),
		Timestamp:        time.Now().UTC(),
	}
}

// riskLevel counts independent risk indicators over the snapshot set and maps
// the count to a level: >=3 high, >=1 medium, otherwise low.
func (a *Aggregator) riskLevel(set *domain.SnapshotSet, total float64) domain.RiskLevel {
	riskFactors := 0

	// Volatility extremes
	if set.Technical.RSI > 80 || set.Technical.RSI < 20 {
		riskFactors++
	}

	// Stretched valuation
	if set.Fundamental.PERatio != nil && *set.Fundamental.PERatio > 50 {
		riskFactors++
	}

	// Overheated social hype
	if set.Social.SentimentScore > 0.8 {
		riskFactors++
	}

	// Crowded short
	if set.Structure.ShortInterest > 30 {
		riskFactors++
	}

	// Weak overall setup
	if total < 30 {
		riskFactors++
	}

	switch {
	case riskFactors >= 3:
		return domain.RiskHigh
	case riskFactors >= 1:
		return domain.RiskMedium
	}
	return domain.RiskLow
}

// opportunityType returns the first matching classification rule, falling
// back to general.
func (a *Aggregator) opportunityType(set *domain.SnapshotSet) domain.OpportunityType {
	for _, rule := range opportunityRules {
		if rule.matches(set) {
			return rule.opportunity
		}
	}
	return domain.OpportunityGeneral
}

// confidence sums independent evidence weights of 0.2 each, capped at 1.0.
func (a *Aggregator) confidence(set *domain.SnapshotSet) float64 {
	var confidence float64

	if set.Social.Mentions > 50 {
		confidence += 0.2
	}
	if set.Analyst.AnalystCount > 5 {
		confidence += 0.2
	}
	if set.Technical.ChartPattern != "" {
		confidence += set.Technical.PatternConfidence * 0.2
	}
	if set.Fundamental.MarketCap > 1_000_000_000 {
		confidence += 0.2
	}
	if set.Structure.SharesOutstanding > 0 {
		confidence += 0.2
	}

	return math.Min(confidence, 1.0)
}

// zeroCompositeScore is the degraded result used when aggregation fails.
func zeroCompositeScore() *domain.CompositeScore {
	return &domain.CompositeScore{
		RiskLevel:       domain.RiskUnknown,
		OpportunityType: domain.OpportunityUnknown,
		Timestamp:       time.Now().UTC(),
	}
}

func isAnalystBullish(rating domain.AnalystRating) bool {
	return rating == domain.RatingBuy || rating == domain.RatingStrongBuy
}
