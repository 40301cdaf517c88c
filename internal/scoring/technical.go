package scoring

import "github.com/sawpanic/stockrun/internal/domain"

// TechnicalScorer maps a technical snapshot to a 0-100 score: RSI band
// (0-25), MACD signal (0-15), Bollinger position (0-15), trend (0-20),
// pattern confidence (0-15), volume spike (0-10), MA alignment (0-5).
type TechnicalScorer struct{}

// NewTechnicalScorer creates a technical analysis scorer.
func NewTechnicalScorer() *TechnicalScorer {
	return &TechnicalScorer{}
}

// Score computes the technical score, clamped to [0, 100].
func (t *TechnicalScorer) Score(snap *domain.TechnicalSnapshot) float64 {
	var score float64

	score += t.scoreRSI(snap.RSI)
	score += t.scoreMACD(snap.MACDSignal)
	score += t.scoreBollinger(snap.BollingerPosition)
	score += t.scoreTrend(snap.TrendDirection)

	if snap.ChartPattern != "" {
		score += snap.PatternConfidence * 15
	}
	if snap.VolumeSpike {
		score += 10
	}

	score += t.scoreMAAlignment(snap.Price, snap.MovingAverages)

	return clampScore(score)
}

// scoreRSI awards points by RSI band. Boundaries resolve to the band whose
// lower bound is met: RSI 30 is neutral, RSI 80 is slightly overbought.
func (t *TechnicalScorer) scoreRSI(rsi float64) float64 {
	switch {
	case rsi >= 30 && rsi <= 70:
		return 20 // neutral
	case (rsi >= 20 && rsi < 30) || (rsi > 70 && rsi <= 80):
		return 15 // slightly oversold/overbought
	case rsi < 20:
		return 25 // very oversold, potential bounce
	case rsi > 80:
		return 5 // very overbought
	}
	return 0
}

// scoreMACD awards 0-15 points for the MACD signal.
func (t *TechnicalScorer) scoreMACD(signal domain.TrendDirection) float64 {
	switch signal {
	case domain.TrendBullish:
		return 15
	case domain.TrendNeutral:
		return 7
	}
	return 0
}

// scoreBollinger awards 0-15 points by band position.
func (t *TechnicalScorer) scoreBollinger(pos float64) float64 {
	switch {
	case pos < 0.2:
		return 15 // near lower band
	case pos <= 0.8:
		return 10 // mid band
	}
	return 5 // near upper band
}

// scoreTrend awards 0-20 points for the price trend direction.
func (t *TechnicalScorer) scoreTrend(trend domain.TrendDirection) float64 {
	switch trend {
	case domain.TrendBullish:
		return 20
	case domain.TrendNeutral:
		return 10
	}
	return 0
}

// scoreMAAlignment awards 0-5 points for moving-average stacking. Missing
// averages default to the current price and earn nothing.
func (t *TechnicalScorer) scoreMAAlignment(price float64, averages map[string]float64) float64 {
	if len(averages) == 0 {
		return 0
	}

	sma20, ok := averages["sma_20"]
	if !ok {
		sma20 = price
	}
	sma50, ok := averages["sma_50"]
	if !ok {
		sma50 = price
	}

	if price > sma20 && sma20 > sma50 {
		return 5
	}
	if price > sma20 {
		return 2
	}
	return 0
}
