package domain

import "time"

// RiskLevel classifies how risky an opportunity looks.
type RiskLevel string

const (
	RiskLow     RiskLevel = "low"
	RiskMedium  RiskLevel = "medium"
	RiskHigh    RiskLevel = "high"
	RiskUnknown RiskLevel = "unknown"
)

// OpportunityType is the coarse classification chosen by fixed-priority rule
// matching over the snapshot set.
type OpportunityType string

const (
	OpportunityShortSqueeze OpportunityType = "short_squeeze"
	OpportunityMomentum     OpportunityType = "momentum"
	OpportunityValue        OpportunityType = "value"
	OpportunityGrowth       OpportunityType = "growth"
	OpportunityContrarian   OpportunityType = "contrarian"
	OpportunityGeneral      OpportunityType = "general"
	OpportunityUnknown      OpportunityType = "unknown"
)

// DivergenceType enumerates the mismatch patterns the detectors can emit.
type DivergenceType string

const (
	DivergenceRetailBullishInstBearish DivergenceType = "retail_bullish_institutional_bearish"
	DivergenceRetailBearishInstBullish DivergenceType = "retail_bearish_institutional_bullish"
	DivergenceShortSqueezeSetup        DivergenceType = "short_squeeze_setup"
	DivergenceMomentum                 DivergenceType = "momentum_divergence"
	DivergenceValueTrap                DivergenceType = "value_trap"
	DivergenceHiddenGem                DivergenceType = "hidden_gem"
	DivergenceHypeBubble               DivergenceType = "hype_bubble"
	DivergenceOversoldReversal         DivergenceType = "oversold_reversal"
)

// Timeframe is the horizon over which a signal is expected to play out.
type Timeframe string

const (
	TimeframeShort  Timeframe = "short"
	TimeframeMedium Timeframe = "medium"
	TimeframeLong   Timeframe = "long"
)

// Priority orders alerts for presentation.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// CompositeScore is the weighted 0-100 summary of the five domain scores for
// one symbol. Instances are immutable once built; a fresh snapshot set always
// produces a fresh CompositeScore.
type CompositeScore struct {
	TotalScore       float64         `json:"total_score"`
	SocialScore      float64         `json:"social_score"`
	TechnicalScore   float64         `json:"technical_score"`
	FundamentalScore float64         `json:"fundamental_score"`
	AnalystScore     float64         `json:"analyst_score"`
	StructureScore   float64         `json:"structure_score"`
	RiskLevel        RiskLevel       `json:"risk_level"`
	OpportunityType  OpportunityType `json:"opportunity_type"`
	ConfidenceLevel  float64         `json:"confidence_level"`
	Timestamp        time.Time       `json:"timestamp"`
}

// DivergenceSignal is one detected mismatch between retail sentiment and
// institutional positioning. Strength and Confidence lie in [0, 1].
type DivergenceSignal struct {
	Symbol            string         `json:"symbol"`
	DivergenceType    DivergenceType `json:"divergence_type"`
	Strength          float64        `json:"strength"`
	Confidence        float64        `json:"confidence"`
	Description       string         `json:"description"`
	Catalyst          string         `json:"catalyst,omitempty"`
	Timeframe         Timeframe      `json:"timeframe"`
	RiskLevel         RiskLevel      `json:"risk_level"`
	ExpectedMove      *float64       `json:"expected_move,omitempty"`
	SupportingFactors []string       `json:"supporting_factors"`
	WarningFactors    []string       `json:"warning_factors"`
	Timestamp         time.Time      `json:"timestamp"`
}

// Alert is the user-facing record synthesized from a ranked signal plus the
// composite score. The five catalyst fields are filled independently by
// substring matching the signal catalyst; any subset may be set.
type Alert struct {
	Symbol                string         `json:"symbol"`
	AlertType             DivergenceType `json:"alert_type"`
	Score                 float64        `json:"score"`
	TriggerReason         string         `json:"trigger_reason"`
	Priority              Priority       `json:"priority"`
	SocialCatalyst        string         `json:"social_catalyst,omitempty"`
	TechnicalCatalyst     string         `json:"technical_catalyst,omitempty"`
	FundamentalCatalyst   string         `json:"fundamental_catalyst,omitempty"`
	AnalystCatalyst       string         `json:"analyst_catalyst,omitempty"`
	ShortInterestCatalyst string         `json:"short_interest_catalyst,omitempty"`
	ChartImageURL         string         `json:"chart_image_url,omitempty"`
	Timestamp             time.Time      `json:"timestamp"`
}

// Analysis is the complete output of one analysis run for one symbol.
type Analysis struct {
	Symbol            string             `json:"symbol"`
	CompanyName       string             `json:"company_name,omitempty"`
	Snapshots         *SnapshotSet       `json:"snapshots"`
	CompositeScore    *CompositeScore    `json:"composite_score"`
	DivergenceSignals []DivergenceSignal `json:"divergence_signals"`
	Alerts            []Alert            `json:"alerts"`
	AnalyzedAt        time.Time          `json:"analysis_timestamp"`
}
