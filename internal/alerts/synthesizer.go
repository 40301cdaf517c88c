package alerts

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/stockrun/internal/domain"
)

// DefaultScoreThreshold is the composite score above which scan reporting
// treats an analysis as alert-worthy.
const DefaultScoreThreshold = 75.0

// fallbackChartTemplate serves when the chart source is absent or fails.
const fallbackChartTemplate = "https://chart-img.com/chart/%s"

// ChartSource supplies a chart image URL for one symbol and signal kind.
type ChartSource interface {
	AlertChart(symbol string, kind domain.DivergenceType) (string, error)
}

// Synthesizer converts ranked divergence signals plus the composite score
// into prioritized, catalyst-tagged alerts.
type Synthesizer struct {
	charts ChartSource
}

// NewSynthesizer creates a synthesizer. A nil chart source means every alert
// gets the fallback chart URL.
func NewSynthesizer(charts ChartSource) *Synthesizer {
	return &Synthesizer{charts: charts}
}

// Synthesize builds one alert per ranked signal, preserving signal order.
// Priority combines signal strength with the composite total; catalyst
// category fields are filled by substring matching the signal's catalyst
// text.
func (s *Synthesizer) Synthesize(symbol string, score *domain.CompositeScore, signals []domain.DivergenceSignal) []domain.Alert {
	total := 0.0
	if score != nil {
		total = score.TotalScore
	}

	alerts := make([]domain.Alert, 0, len(signals))
	for _, sig := range signals {
		alert := domain.Alert{
			Symbol:        symbol,
			AlertType:     sig.DivergenceType,
			Score:         total,
			TriggerReason: sig.Description,
			Priority:      priorityFor(sig.Strength, total),
			ChartImageURL: s.chartURL(symbol, sig.DivergenceType),
			Timestamp:     time.Now().UTC(),
		}
		tagCatalysts(&alert, sig.Catalyst)
		alerts = append(alerts, alert)
	}
	return alerts
}

// priorityFor maps signal strength and composite total onto a priority
// bucket. Both legs must hold for the higher buckets.
func priorityFor(strength, total float64) domain.Priority {
	switch {
	case strength > 0.8 && total > 70:
		return domain.PriorityHigh
	case strength > 0.6 && total > 50:
		return domain.PriorityMedium
	default:
		return domain.PriorityLow
	}
}

// tagCatalysts fills the five catalyst-category fields independently; a
// catalyst text mentioning several categories populates all of them.
func tagCatalysts(alert *domain.Alert, catalyst string) {
	if catalyst == "" {
		return
	}
	lower := strings.ToLower(catalyst)
	if strings.Contains(lower, "social") {
		alert.SocialCatalyst = catalyst
	}
	if strings.Contains(lower, "technical") {
		alert.TechnicalCatalyst = catalyst
	}
	if strings.Contains(lower, "fundamental") {
		alert.FundamentalCatalyst = catalyst
	}
	if strings.Contains(lower, "analyst") {
		alert.AnalystCatalyst = catalyst
	}
	if strings.Contains(lower, "short") {
		alert.ShortInterestCatalyst = catalyst
	}
}

func (s *Synthesizer) chartURL(symbol string, kind domain.DivergenceType) string {
	if s.charts == nil {
		return FallbackChartURL(symbol)
	}
	url, err := s.charts.AlertChart(symbol, kind)
	if err != nil || url == "" {
		log.Debug().Str("symbol", symbol).Str("kind", string(kind)).
			Err(err).Msg("chart source unavailable, using fallback URL")
		return FallbackChartURL(symbol)
	}
	return url
}

// FallbackChartURL is the fixed chart location used when no chart source
// answers for a symbol.
func FallbackChartURL(symbol string) string {
	return fmt.Sprintf(fallbackChartTemplate, strings.ToUpper(symbol))
}

// CountByPriority tallies alerts per priority bucket. All three buckets are
// always present in the result.
func CountByPriority(alerts []domain.Alert) map[domain.Priority]int {
	counts := map[domain.Priority]int{
		domain.PriorityHigh:   0,
		domain.PriorityMedium: 0,
		domain.PriorityLow:    0,
	}
	for _, a := range alerts {
		counts[a.Priority]++
	}
	return counts
}
