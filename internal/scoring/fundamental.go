package scoring

import "github.com/sawpanic/stockrun/internal/domain"

// FundamentalScorer maps a fundamental snapshot to a 0-100 score. Sub-factors
// are graded on an internal 0-10 scale and rescaled into the budget:
// valuation 0-30, growth 0-25, profitability 0-25, financial health 0-20.
// Health only averages the sub-components that are present so missing data is
// not penalized.
type FundamentalScorer struct{}

// NewFundamentalScorer creates a fundamental analysis scorer.
func NewFundamentalScorer() *FundamentalScorer {
	return &FundamentalScorer{}
}

// Score computes the fundamental score, clamped to [0, 100].
func (f *FundamentalScorer) Score(snap *domain.FundamentalSnapshot) float64 {
	var score float64

	// Valuation (0-30 points): average of the PE and PS grades rescaled.
	peScore := f.scorePERatio(snap.PERatio)
	psScore := f.scorePSRatio(snap.PSRatio)
	score += (peScore + psScore) / 2 * 3

	// Growth (0-25 points)
	if snap.RevenueGrowthYoY != nil {
		score += f.scoreGrowth(*snap.RevenueGrowthYoY) * 25 / 10
	}

	// Profitability (0-25 points)
	if snap.ProfitMargin != nil {
		score += f.scoreProfitMargin(*snap.ProfitMargin) * 25 / 10
	}

	// Financial health (0-20 points): average of present sub-grades.
	var healthTotal float64
	var healthCount int
	if snap.DebtToEquity != nil {
		healthTotal += f.scoreDebtRatio(*snap.DebtToEquity)
		healthCount++
	}
	if snap.CurrentRatio != nil {
		healthTotal += f.scoreCurrentRatio(*snap.CurrentRatio)
		healthCount++
	}
	if snap.ROE != nil {
		healthTotal += f.scoreROE(*snap.ROE)
		healthCount++
	}
	if healthCount > 0 {
		score += healthTotal / float64(healthCount) * 20 / 10
	}

	return clampScore(score)
}

// scorePERatio grades the P/E ratio 0-10. Missing or negative earns the floor.
func (f *FundamentalScorer) scorePERatio(pe *float64) float64 {
	switch {
	case pe == nil || *pe < 0:
		return 1
	case *pe < 15:
		return 9
	case *pe < 25:
		return 7
	case *pe < 40:
		return 5
	case *pe < 60:
		return 3
	}
	return 1
}

// scorePSRatio grades the P/S ratio 0-10. Missing is treated as neutral.
func (f *FundamentalScorer) scorePSRatio(ps *float64) float64 {
	switch {
	case ps == nil:
		return 5
	case *ps < 2:
		return 9
	case *ps < 5:
		return 7
	case *ps < 10:
		return 5
	case *ps < 20:
		return 3
	}
	return 1
}

// scoreGrowth grades the YoY revenue growth percent 0-10.
func (f *FundamentalScorer) scoreGrowth(growth float64) float64 {
	switch {
	case growth > 50:
		return 10
	case growth > 25:
		return 8
	case growth > 15:
		return 6
	case growth > 5:
		return 5
	case growth > 0:
		return 3
	}
	return 1
}

// scoreProfitMargin grades the profit margin percent 0-10.
func (f *FundamentalScorer) scoreProfitMargin(margin float64) float64 {
	switch {
	case margin > 20:
		return 10
	case margin > 15:
		return 8
	case margin > 10:
		return 6
	case margin > 5:
		return 4
	case margin > 0:
		return 2
	}
	return 1
}

// scoreDebtRatio grades debt-to-equity 0-10, lower is better.
func (f *FundamentalScorer) scoreDebtRatio(ratio float64) float64 {
	switch {
	case ratio < 0.3:
		return 9
	case ratio < 0.6:
		return 7
	case ratio < 1.0:
		return 5
	case ratio < 2.0:
		return 3
	}
	return 1
}

// scoreCurrentRatio grades the current ratio 0-10, higher is better.
func (f *FundamentalScorer) scoreCurrentRatio(ratio float64) float64 {
	switch {
	case ratio > 2.5:
		return 9
	case ratio > 1.5:
		return 7
	case ratio > 1.0:
		return 5
	case ratio > 0.5:
		return 3
	}
	return 1
}

// scoreROE grades return on equity percent 0-10.
func (f *FundamentalScorer) scoreROE(roe float64) float64 {
	switch {
	case roe > 20:
		return 10
	case roe > 15:
		return 8
	case roe > 10:
		return 6
	case roe > 5:
		return 4
	case roe > 0:
		return 2
	}
	return 1
}
