package domain

import "time"

// TrendDirection labels the direction of a price or volume trend.
type TrendDirection string

const (
	TrendBullish TrendDirection = "bullish"
	TrendBearish TrendDirection = "bearish"
	TrendNeutral TrendDirection = "neutral"
)

// AnalystRating is the consensus rating bucket used by sell-side coverage.
type AnalystRating string

const (
	RatingStrongBuy  AnalystRating = "strong_buy"
	RatingBuy        AnalystRating = "buy"
	RatingHold       AnalystRating = "hold"
	RatingSell       AnalystRating = "sell"
	RatingStrongSell AnalystRating = "strong_sell"
)

// SocialSnapshot represents aggregated social-media activity for one symbol.
// Sentiment is normalized to [-1, 1] by the collectors.
type SocialSnapshot struct {
	Platform           string             `json:"platform"`
	Mentions           int                `json:"mentions"`
	SentimentScore     float64            `json:"sentiment_score"`
	VolumeTrend        TrendDirection     `json:"volume_trend"`
	TopKeywords        []string           `json:"top_keywords"`
	InfluencerMentions int                `json:"influencer_mentions"`
	SourceScores       map[string]float64 `json:"source_scores,omitempty"`
	Timestamp          time.Time          `json:"timestamp"`
}

// TechnicalSnapshot represents point-in-time technical indicators for one symbol.
// BollingerPosition is 0 at the lower band and 1 at the upper band.
type TechnicalSnapshot struct {
	Price             float64            `json:"price"`
	Volume            float64            `json:"volume"`
	RSI               float64            `json:"rsi"`
	MACDSignal        TrendDirection     `json:"macd_signal"`
	BollingerPosition float64            `json:"bollinger_position"`
	MovingAverages    map[string]float64 `json:"moving_averages"`
	SupportResistance map[string]float64 `json:"support_resistance"`
	ChartPattern      string             `json:"chart_pattern,omitempty"`
	PatternConfidence float64            `json:"pattern_confidence"`
	TrendDirection    TrendDirection     `json:"trend_direction"`
	VolumeSpike       bool               `json:"volume_spike"`
	Timestamp         time.Time          `json:"timestamp"`
}

// FundamentalSnapshot represents financial fundamentals for one symbol.
// Ratios the upstream source could not produce are nil, not zero.
type FundamentalSnapshot struct {
	MarketCap        float64   `json:"market_cap"`
	PERatio          *float64  `json:"pe_ratio,omitempty"`
	PSRatio          *float64  `json:"ps_ratio,omitempty"`
	RevenueGrowthYoY *float64  `json:"revenue_growth_yoy,omitempty"`
	ProfitMargin     *float64  `json:"profit_margin,omitempty"`
	DebtToEquity     *float64  `json:"debt_to_equity,omitempty"`
	CurrentRatio     *float64  `json:"current_ratio,omitempty"`
	ROE              *float64  `json:"roe,omitempty"`
	FreeCashFlow     *float64  `json:"free_cash_flow,omitempty"`
	EnterpriseValue  *float64  `json:"enterprise_value,omitempty"`
	BookValue        *float64  `json:"book_value,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

// AnalystSnapshot represents sell-side coverage for one symbol.
// PriceTargetUpside is the signed percent distance from price to the average target.
type AnalystSnapshot struct {
	ConsensusRating   AnalystRating `json:"consensus_rating"`
	AnalystCount      int           `json:"analyst_count"`
	PriceTargetAvg    float64       `json:"price_target_avg"`
	PriceTargetHigh   float64       `json:"price_target_high"`
	PriceTargetLow    float64       `json:"price_target_low"`
	PriceTargetUpside float64       `json:"price_target_upside"`
	RecentUpgrades    int           `json:"recent_upgrades"`
	RecentDowngrades  int           `json:"recent_downgrades"`
	CoveringFirms     []string      `json:"covering_firms"`
	Timestamp         time.Time     `json:"timestamp"`
}

// StructureSnapshot represents share structure and short-interest data for one
// symbol. ShortSqueezeScore is precomputed upstream from short interest,
// utilization, cost to borrow and days to cover; it is consumed here, never
// recomputed.
type StructureSnapshot struct {
	SharesOutstanding      float64   `json:"shares_outstanding"`
	FloatShares            float64   `json:"float_shares"`
	ShortInterest          float64   `json:"short_interest"`
	ShortRatio             float64   `json:"short_ratio"`
	CostToBorrow           *float64  `json:"cost_to_borrow,omitempty"`
	Utilization            *float64  `json:"utilization,omitempty"`
	DaysToCover            *float64  `json:"days_to_cover,omitempty"`
	InstitutionalOwnership float64   `json:"institutional_ownership"`
	InsiderOwnership       float64   `json:"insider_ownership"`
	ShortSqueezeScore      float64   `json:"short_squeeze_score"`
	Timestamp              time.Time `json:"timestamp"`
}

// SnapshotSet bundles the five domain snapshots consumed by scoring and
// divergence detection for a single symbol.
type SnapshotSet struct {
	Symbol      string               `json:"symbol"`
	Social      *SocialSnapshot      `json:"social"`
	Technical   *TechnicalSnapshot   `json:"technical"`
	Fundamental *FundamentalSnapshot `json:"fundamental"`
	Analyst     *AnalystSnapshot     `json:"analyst"`
	Structure   *StructureSnapshot   `json:"structure"`
}

// DefaultSocialSnapshot returns the neutral substitute used when the social
// provider fails.
func DefaultSocialSnapshot() *SocialSnapshot {
	return &SocialSnapshot{
		Platform:    "aggregated",
		VolumeTrend: TrendNeutral,
		TopKeywords: []string{},
		Timestamp:   time.Now().UTC(),
	}
}

// DefaultTechnicalSnapshot returns the neutral substitute used when the
// technical provider fails: RSI at midpoint, Bollinger at mid-band, no trend.
func DefaultTechnicalSnapshot() *TechnicalSnapshot {
	return &TechnicalSnapshot{
		RSI:               50.0,
		MACDSignal:        TrendNeutral,
		BollingerPosition: 0.5,
		MovingAverages:    map[string]float64{},
		SupportResistance: map[string]float64{},
		TrendDirection:    TrendNeutral,
		Timestamp:         time.Now().UTC(),
	}
}

// DefaultFundamentalSnapshot returns the neutral substitute used when the
// fundamental provider fails. All optional ratios stay nil.
func DefaultFundamentalSnapshot() *FundamentalSnapshot {
	return &FundamentalSnapshot{Timestamp: time.Now().UTC()}
}

// DefaultAnalystSnapshot returns the neutral substitute used when the analyst
// provider fails.
func DefaultAnalystSnapshot() *AnalystSnapshot {
	return &AnalystSnapshot{
		ConsensusRating: RatingHold,
		CoveringFirms:   []string{},
		Timestamp:       time.Now().UTC(),
	}
}

// DefaultStructureSnapshot returns the neutral substitute used when the
// structure provider fails.
func DefaultStructureSnapshot() *StructureSnapshot {
	return &StructureSnapshot{Timestamp: time.Now().UTC()}
}
