package divergence

import (
	"sort"

	"github.com/sawpanic/stockrun/internal/domain"
)

// typeMultipliers weight signal kinds by how actionable they historically
// are. Types without an entry multiply by 1.0.
var typeMultipliers = map[domain.DivergenceType]float64{
	domain.DivergenceShortSqueezeSetup:        1.5,
	domain.DivergenceHiddenGem:                1.3,
	domain.DivergenceRetailBearishInstBullish: 1.2,
	domain.DivergenceMomentum:                 1.0,
	domain.DivergenceRetailBullishInstBearish: 0.8,
	domain.DivergenceValueTrap:                0.7,
	domain.DivergenceHypeBubble:               0.6,
}

// riskAdjustments favor lower-risk signals. Levels without an entry adjust
// by 1.0.
var riskAdjustments = map[domain.RiskLevel]float64{
	domain.RiskLow:    1.2,
	domain.RiskMedium: 1.0,
	domain.RiskHigh:   0.8,
}

// Importance scores a signal for ranking: the strength/confidence average
// scaled by type and risk.
func Importance(s domain.DivergenceSignal) float64 {
	mult, ok := typeMultipliers[s.DivergenceType]
	if !ok {
		mult = 1.0
	}
	adj, ok := riskAdjustments[s.RiskLevel]
	if !ok {
		adj = 1.0
	}
	return (s.Strength + s.Confidence) / 2 * mult * adj
}

// Rank returns the signals ordered by descending importance. The sort is
// stable, so equal-importance signals keep their emission order. The input
// slice is not modified.
func Rank(signals []domain.DivergenceSignal) []domain.DivergenceSignal {
	ranked := make([]domain.DivergenceSignal, len(signals))
	copy(ranked, signals)
	sort.SliceStable(ranked, func(i, j int) bool {
		return Importance(ranked[i]) > Importance(ranked[j])
	})
	return ranked
}
