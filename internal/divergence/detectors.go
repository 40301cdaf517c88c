package divergence

import (
	"fmt"
	"math"
	"time"

	"github.com/sawpanic/stockrun/internal/domain"
)

// Detector is one pure mismatch rule over a snapshot set. Detectors return
// zero or more signals with the symbol left blank; the engine stamps it.
type Detector interface {
	Name() string
	Detect(set *domain.SnapshotSet) []domain.DivergenceSignal
}

// ratingRank maps consensus ratings onto a 1-5 scale, strong_sell lowest.
// Unrecognized ratings rank as hold.
func ratingRank(r domain.AnalystRating) int {
	switch r {
	case domain.RatingStrongSell:
		return 1
	case domain.RatingSell:
		return 2
	case domain.RatingHold:
		return 3
	case domain.RatingBuy:
		return 4
	case domain.RatingStrongBuy:
		return 5
	default:
		return 3
	}
}

// RetailVsInstitutional flags symbols where retail sentiment and the analyst
// consensus point in opposite directions.
type RetailVsInstitutional struct{}

func (RetailVsInstitutional) Name() string { return "retail_vs_institutional" }

func (RetailVsInstitutional) Detect(set *domain.SnapshotSet) []domain.DivergenceSignal {
	social, analyst := set.Social, set.Analyst
	rank := ratingRank(analyst.ConsensusRating)

	// Retail bullish, institutions bearish
	if social.SentimentScore > 0.4 &&
		(analyst.ConsensusRating == domain.RatingSell || analyst.ConsensusRating == domain.RatingStrongSell) {
		strength := math.Min(social.SentimentScore+float64(5-rank)/5, 1.0)
		confidence := 0.5
		if analyst.AnalystCount > 5 {
			confidence = 0.7
		}
		move := -10.0
		return []domain.DivergenceSignal{{
			DivergenceType: domain.DivergenceRetailBullishInstBearish,
			Strength:       strength,
			Confidence:     confidence,
			Description:    fmt.Sprintf("High retail optimism (sentiment: %.2f) vs analyst pessimism", social.SentimentScore),
			Catalyst:       "Retail FOMO vs institutional concerns",
			Timeframe:      domain.TimeframeShort,
			RiskLevel:      domain.RiskHigh,
			ExpectedMove:   &move,
			SupportingFactors: []string{
				fmt.Sprintf("Retail sentiment: %.2f", social.SentimentScore),
				fmt.Sprintf("Analyst rating: %s", analyst.ConsensusRating),
				fmt.Sprintf("Social mentions: %d", social.Mentions),
			},
			WarningFactors: []string{
				"Potential bubble formation",
				"Institutional selling pressure",
				"Overvaluation risk",
			},
			Timestamp: time.Now().UTC(),
		}}
	}

	// Retail bearish, institutions bullish
	if social.SentimentScore < -0.3 &&
		(analyst.ConsensusRating == domain.RatingBuy || analyst.ConsensusRating == domain.RatingStrongBuy) {
		strength := math.Min(math.Abs(social.SentimentScore)+float64(rank)/5, 1.0)
		confidence := 0.6
		if analyst.AnalystCount > 8 {
			confidence = 0.8
		}
		move := analyst.PriceTargetUpside * 0.7
		return []domain.DivergenceSignal{{
			DivergenceType: domain.DivergenceRetailBearishInstBullish,
			Strength:       strength,
			Confidence:     confidence,
			Description:    fmt.Sprintf("Retail pessimism (sentiment: %.2f) vs analyst optimism", social.SentimentScore),
			Catalyst:       "Institutional accumulation opportunity",
			Timeframe:      domain.TimeframeMedium,
			RiskLevel:      domain.RiskMedium,
			ExpectedMove:   &move,
			SupportingFactors: []string{
				fmt.Sprintf("Strong analyst consensus: %s", analyst.ConsensusRating),
				fmt.Sprintf("Price target upside: %.1f%%", analyst.PriceTargetUpside),
				fmt.Sprintf("Low retail interest: %d mentions", social.Mentions),
			},
			WarningFactors: []string{
				"Need catalysts for retail adoption",
				"May take time to materialize",
			},
			Timestamp: time.Now().UTC(),
		}}
	}

	return nil
}

// ShortSqueeze flags heavily shorted symbols with active, positive retail
// attention.
type ShortSqueeze struct{}

func (ShortSqueeze) Name() string { return "short_squeeze" }

func (ShortSqueeze) Detect(set *domain.SnapshotSet) []domain.DivergenceSignal {
	social, structure, technical := set.Social, set.Structure, set.Technical

	highShortInterest := structure.ShortInterest > 15
	highUtilization := structure.Utilization != nil && *structure.Utilization > 80
	retailInterest := social.Mentions > 100
	positiveSentiment := social.SentimentScore > 0.2

	if !highShortInterest || !retailInterest || !positiveSentiment {
		return nil
	}

	timeframe := domain.TimeframeMedium
	if social.VolumeTrend == domain.TrendBullish {
		timeframe = domain.TimeframeShort
	}
	risk := domain.RiskMedium
	if structure.ShortInterest > 30 {
		risk = domain.RiskHigh
	}
	move := math.Min(structure.ShortInterest*2, 100.0)

	supporting := []string{
		fmt.Sprintf("Short interest: %.1f%%", structure.ShortInterest),
		fmt.Sprintf("Social mentions: %d", social.Mentions),
		fmt.Sprintf("Sentiment: %.2f", social.SentimentScore),
	}
	if highUtilization {
		supporting = append(supporting, fmt.Sprintf("Utilization: %.1f%%", *structure.Utilization))
	}
	if structure.CostToBorrow != nil && *structure.CostToBorrow > 10 {
		supporting = append(supporting, fmt.Sprintf("Cost to borrow: %.1f%%", *structure.CostToBorrow))
	}
	if technical.VolumeSpike {
		supporting = append(supporting, "Volume spike detected")
	}

	warnings := []string{
		"High volatility expected",
		"Risk of rapid reversal",
		"Timing is crucial",
	}
	if structure.SharesOutstanding > 0 && structure.FloatShares/structure.SharesOutstanding > 0.8 {
		warnings = append(warnings, "Large float may limit squeeze")
	}

	confidence := 0.6
	if highUtilization {
		confidence += 0.3
	}
	if technical.VolumeSpike {
		confidence += 0.1
	}

	return []domain.DivergenceSignal{{
		DivergenceType:    domain.DivergenceShortSqueezeSetup,
		Strength:          squeezeStrength(social, structure, technical),
		Confidence:        confidence,
		Description:       fmt.Sprintf("Short squeeze setup: %.1f%% SI, %d mentions", structure.ShortInterest, social.Mentions),
		Catalyst:          "Retail buying pressure vs short covering",
		Timeframe:         timeframe,
		RiskLevel:         risk,
		ExpectedMove:      &move,
		SupportingFactors: supporting,
		WarningFactors:    warnings,
		Timestamp:         time.Now().UTC(),
	}}
}

// squeezeStrength allocates the 0-1 strength budget: short interest up to
// 0.4 (saturating at 20% SI), sentiment up to 0.3, mention volume up to 0.2,
// volume spike 0.1.
func squeezeStrength(social *domain.SocialSnapshot, structure *domain.StructureSnapshot, technical *domain.TechnicalSnapshot) float64 {
	score := math.Min(structure.ShortInterest/50, 0.4)
	score += math.Max(0, social.SentimentScore) * 0.3

	switch {
	case social.Mentions > 500:
		score += 0.2
	case social.Mentions > 200:
		score += 0.15
	case social.Mentions > 100:
		score += 0.1
	}

	if technical.VolumeSpike {
		score += 0.1
	}

	return math.Min(score, 1.0)
}

// MomentumDivergence flags strong social momentum that price action has not
// confirmed.
type MomentumDivergence struct{}

func (MomentumDivergence) Name() string { return "momentum_divergence" }

func (MomentumDivergence) Detect(set *domain.SnapshotSet) []domain.DivergenceSignal {
	social, technical := set.Social, set.Technical

	if social.SentimentScore <= 0.6 ||
		social.VolumeTrend != domain.TrendBullish ||
		technical.TrendDirection == domain.TrendBullish {
		return nil
	}

	return []domain.DivergenceSignal{{
		DivergenceType: domain.DivergenceMomentum,
		Strength:       0.7,
		Confidence:     0.6,
		Description:    "Strong social momentum not confirmed by technical analysis",
		Catalyst:       "Social media hype",
		Timeframe:      domain.TimeframeShort,
		RiskLevel:      domain.RiskHigh,
		SupportingFactors: []string{
			fmt.Sprintf("Social sentiment: %.2f", social.SentimentScore),
			fmt.Sprintf("Social trend: %s", social.VolumeTrend),
			fmt.Sprintf("Mentions: %d", social.Mentions),
		},
		WarningFactors: []string{
			"Technical indicators not supportive",
			"Momentum may be artificial",
			"Risk of rapid reversal",
		},
		Timestamp: time.Now().UTC(),
	}}
}

// ValueTrap flags symbols that screen cheap while the underlying business
// deteriorates or analysts turn away.
type ValueTrap struct{}

func (ValueTrap) Name() string { return "value_trap" }

func (ValueTrap) Detect(set *domain.SnapshotSet) []domain.DivergenceSignal {
	fundamental, analyst := set.Fundamental, set.Analyst

	appearsCheap := (fundamental.PERatio != nil && *fundamental.PERatio < 15) ||
		(fundamental.PSRatio != nil && *fundamental.PSRatio < 2)
	decliningBusiness := (fundamental.RevenueGrowthYoY != nil && *fundamental.RevenueGrowthYoY < -10) ||
		(fundamental.ProfitMargin != nil && *fundamental.ProfitMargin < 0)
	analystConcerns := analyst.RecentDowngrades > analyst.RecentUpgrades

	if !appearsCheap || (!decliningBusiness && !analystConcerns) {
		return nil
	}

	valuationFactor := "Low P/S ratio"
	if fundamental.PERatio != nil {
		valuationFactor = fmt.Sprintf("P/E ratio: %.1f", *fundamental.PERatio)
	}
	move := -15.0

	return []domain.DivergenceSignal{{
		DivergenceType: domain.DivergenceValueTrap,
		Strength:       0.6,
		Confidence:     0.7,
		Description:    "Appears cheap but fundamental issues present",
		Catalyst:       "Business deterioration",
		Timeframe:      domain.TimeframeLong,
		RiskLevel:      domain.RiskMedium,
		ExpectedMove:   &move,
		SupportingFactors: []string{
			valuationFactor,
			fmt.Sprintf("Recent downgrades: %d", analyst.RecentDowngrades),
		},
		WarningFactors: []string{
			"Declining fundamentals",
			"Analyst skepticism",
			"Value may be deserved",
		},
		Timestamp: time.Now().UTC(),
	}}
}

// HiddenGem flags fundamentally strong, analyst-backed symbols the retail
// crowd has not discovered yet.
type HiddenGem struct{}

func (HiddenGem) Name() string { return "hidden_gem" }

func (HiddenGem) Detect(set *domain.SnapshotSet) []domain.DivergenceSignal {
	social, fundamental, analyst := set.Social, set.Fundamental, set.Analyst

	goodFundamentals := fundamental.RevenueGrowthYoY != nil && *fundamental.RevenueGrowthYoY > 15 &&
		fundamental.ProfitMargin != nil && *fundamental.ProfitMargin > 10 &&
		fundamental.ROE != nil && *fundamental.ROE > 15
	strongAnalystSupport := (analyst.ConsensusRating == domain.RatingBuy || analyst.ConsensusRating == domain.RatingStrongBuy) &&
		analyst.PriceTargetUpside > 20
	lowRetailAttention := social.Mentions < 50 && math.Abs(social.SentimentScore) < 0.3

	if !goodFundamentals || !strongAnalystSupport || !lowRetailAttention {
		return nil
	}

	move := analyst.PriceTargetUpside * 0.8

	return []domain.DivergenceSignal{{
		DivergenceType: domain.DivergenceHiddenGem,
		Strength:       0.8,
		Confidence:     0.8,
		Description:    "Strong fundamentals and analyst support with low retail attention",
		Catalyst:       "Institutional accumulation",
		Timeframe:      domain.TimeframeLong,
		RiskLevel:      domain.RiskLow,
		ExpectedMove:   &move,
		SupportingFactors: []string{
			fmt.Sprintf("Revenue growth: %.1f%%", *fundamental.RevenueGrowthYoY),
			fmt.Sprintf("ROE: %.1f%%", *fundamental.ROE),
			fmt.Sprintf("Price target upside: %.1f%%", analyst.PriceTargetUpside),
			fmt.Sprintf("Analyst rating: %s", analyst.ConsensusRating),
		},
		WarningFactors: []string{
			"May take time for market recognition",
			"Requires patience",
		},
		Timestamp: time.Now().UTC(),
	}}
}
