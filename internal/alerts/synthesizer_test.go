package alerts

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/stockrun/internal/domain"
)

type chartStub struct {
	url string
	err error
}

func (c chartStub) AlertChart(symbol string, kind domain.DivergenceType) (string, error) {
	return c.url, c.err
}

func compositeWithTotal(total float64) *domain.CompositeScore {
	return &domain.CompositeScore{TotalScore: total, Timestamp: time.Now().UTC()}
}

func squeezeSignal(strength float64) domain.DivergenceSignal {
	return domain.DivergenceSignal{
		Symbol:         "GME",
		DivergenceType: domain.DivergenceShortSqueezeSetup,
		Strength:       strength,
		Confidence:     0.8,
		Description:    "Short squeeze setup: 25.0% SI, 600 mentions",
		Catalyst:       "Retail buying pressure vs short covering",
		Timeframe:      domain.TimeframeShort,
		RiskLevel:      domain.RiskMedium,
	}
}

func TestSynthesizer_Synthesize_FieldMapping(t *testing.T) {
	s := NewSynthesizer(chartStub{url: "https://charts.example.com/GME/squeeze.png"})
	alerts := s.Synthesize("GME", compositeWithTotal(82.0), []domain.DivergenceSignal{squeezeSignal(0.85)})
	require.Len(t, alerts, 1)

	alert := alerts[0]
	assert.Equal(t, "GME", alert.Symbol)
	assert.Equal(t, domain.DivergenceShortSqueezeSetup, alert.AlertType)
	assert.Equal(t, 82.0, alert.Score)
	assert.Equal(t, "Short squeeze setup: 25.0% SI, 600 mentions", alert.TriggerReason)
	assert.Equal(t, domain.PriorityHigh, alert.Priority)
	assert.Equal(t, "https://charts.example.com/GME/squeeze.png", alert.ChartImageURL)
	assert.False(t, alert.Timestamp.IsZero())
}

func TestSynthesizer_Synthesize_PriorityBuckets(t *testing.T) {
	tests := []struct {
		name     string
		strength float64
		total    float64
		want     domain.Priority
	}{
		{"strong signal strong score", 0.9, 80.0, domain.PriorityHigh},
		{"strong signal at score boundary", 0.9, 70.0, domain.PriorityMedium},
		{"medium signal", 0.7, 60.0, domain.PriorityMedium},
		{"medium signal weak score", 0.7, 45.0, domain.PriorityLow},
		{"weak signal strong score", 0.5, 95.0, domain.PriorityLow},
		{"strength at medium boundary", 0.6, 90.0, domain.PriorityLow},
	}
	s := NewSynthesizer(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alerts := s.Synthesize("GME", compositeWithTotal(tt.total), []domain.DivergenceSignal{squeezeSignal(tt.strength)})
			require.Len(t, alerts, 1)
			assert.Equal(t, tt.want, alerts[0].Priority)
		})
	}
}

func TestSynthesizer_Synthesize_CatalystTagging(t *testing.T) {
	tests := []struct {
		name     string
		catalyst string
		check    func(t *testing.T, a domain.Alert)
	}{
		{
			name:     "short interest catalyst",
			catalyst: "Retail buying pressure vs short covering",
			check: func(t *testing.T, a domain.Alert) {
				assert.Equal(t, "Retail buying pressure vs short covering", a.ShortInterestCatalyst)
				assert.Empty(t, a.SocialCatalyst)
				assert.Empty(t, a.TechnicalCatalyst)
				assert.Empty(t, a.FundamentalCatalyst)
				assert.Empty(t, a.AnalystCatalyst)
			},
		},
		{
			name:     "social catalyst case-insensitive",
			catalyst: "SOCIAL media hype",
			check: func(t *testing.T, a domain.Alert) {
				assert.Equal(t, "SOCIAL media hype", a.SocialCatalyst)
				assert.Empty(t, a.ShortInterestCatalyst)
			},
		},
		{
			name:     "multiple categories in one catalyst",
			catalyst: "Social momentum vs technical breakdown",
			check: func(t *testing.T, a domain.Alert) {
				assert.NotEmpty(t, a.SocialCatalyst)
				assert.NotEmpty(t, a.TechnicalCatalyst)
				assert.Empty(t, a.AnalystCatalyst)
			},
		},
		{
			name:     "no category keywords",
			catalyst: "Business deterioration",
			check: func(t *testing.T, a domain.Alert) {
				assert.Empty(t, a.SocialCatalyst)
				assert.Empty(t, a.TechnicalCatalyst)
				assert.Empty(t, a.FundamentalCatalyst)
				assert.Empty(t, a.AnalystCatalyst)
				assert.Empty(t, a.ShortInterestCatalyst)
			},
		},
	}
	s := NewSynthesizer(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := squeezeSignal(0.7)
			sig.Catalyst = tt.catalyst
			alerts := s.Synthesize("GME", compositeWithTotal(60), []domain.DivergenceSignal{sig})
			require.Len(t, alerts, 1)
			tt.check(t, alerts[0])
		})
	}
}

func TestSynthesizer_Synthesize_ChartFallback(t *testing.T) {
	t.Run("source error", func(t *testing.T) {
		s := NewSynthesizer(chartStub{err: errors.New("upstream 503")})
		alerts := s.Synthesize("gme", compositeWithTotal(60), []domain.DivergenceSignal{squeezeSignal(0.7)})
		require.Len(t, alerts, 1)
		assert.Equal(t, "https://chart-img.com/chart/GME", alerts[0].ChartImageURL)
	})
	t.Run("nil source", func(t *testing.T) {
		s := NewSynthesizer(nil)
		alerts := s.Synthesize("amc", compositeWithTotal(60), []domain.DivergenceSignal{squeezeSignal(0.7)})
		require.Len(t, alerts, 1)
		assert.Equal(t, "https://chart-img.com/chart/AMC", alerts[0].ChartImageURL)
	})
	t.Run("empty url from source", func(t *testing.T) {
		s := NewSynthesizer(chartStub{url: ""})
		alerts := s.Synthesize("BB", compositeWithTotal(60), []domain.DivergenceSignal{squeezeSignal(0.7)})
		require.Len(t, alerts, 1)
		assert.Equal(t, "https://chart-img.com/chart/BB", alerts[0].ChartImageURL)
	})
}

func TestSynthesizer_Synthesize_PreservesSignalOrder(t *testing.T) {
	first := squeezeSignal(0.9)
	first.Description = "first"
	second := squeezeSignal(0.4)
	second.Description = "second"

	s := NewSynthesizer(nil)
	alerts := s.Synthesize("GME", compositeWithTotal(80), []domain.DivergenceSignal{first, second})
	require.Len(t, alerts, 2)
	assert.Equal(t, "first", alerts[0].TriggerReason)
	assert.Equal(t, "second", alerts[1].TriggerReason)
}

func TestSynthesizer_Synthesize_NilScore(t *testing.T) {
	s := NewSynthesizer(nil)
	alerts := s.Synthesize("GME", nil, []domain.DivergenceSignal{squeezeSignal(0.9)})
	require.Len(t, alerts, 1)
	assert.Equal(t, 0.0, alerts[0].Score)
	assert.Equal(t, domain.PriorityLow, alerts[0].Priority)
}

func TestCountByPriority(t *testing.T) {
	alerts := []domain.Alert{
		{Priority: domain.PriorityHigh},
		{Priority: domain.PriorityMedium},
		{Priority: domain.PriorityMedium},
		{Priority: domain.PriorityLow},
	}
	counts := CountByPriority(alerts)
	assert.Equal(t, 1, counts[domain.PriorityHigh])
	assert.Equal(t, 2, counts[domain.PriorityMedium])
	assert.Equal(t, 1, counts[domain.PriorityLow])

	empty := CountByPriority(nil)
	assert.Equal(t, 0, empty[domain.PriorityHigh])
	assert.Equal(t, 0, empty[domain.PriorityMedium])
	assert.Equal(t, 0, empty[domain.PriorityLow])
}
