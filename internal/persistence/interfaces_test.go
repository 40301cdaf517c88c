package persistence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/stockrun/internal/domain"
)

func TestNormalizeSymbol(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"gme", "GME"},
		{"  amc ", "AMC"},
		{"TSLA", "TSLA"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeSymbol(tt.in))
	}
}

func TestTargetDistances(t *testing.T) {
	t.Run("all_targets_set", func(t *testing.T) {
		// Price 110 against entry 100, exit 150, stop 90.
		toEntry, toExit, toStop := TargetDistances(110, floatPtr(100), floatPtr(150), floatPtr(90))

		require.NotNil(t, toEntry)
		assert.InDelta(t, 10.0, *toEntry, 1e-9, "entry distance is measured against the entry target")

		require.NotNil(t, toExit)
		assert.InDelta(t, (150.0-110.0)/110.0*100, *toExit, 1e-9, "exit distance is measured against the current price")

		require.NotNil(t, toStop)
		assert.InDelta(t, (110.0-90.0)/90.0*100, *toStop, 1e-9)
	})

	t.Run("below_entry_is_negative", func(t *testing.T) {
		toEntry, _, _ := TargetDistances(80, floatPtr(100), nil, nil)
		require.NotNil(t, toEntry)
		assert.InDelta(t, -20.0, *toEntry, 1e-9)
	})

	t.Run("nil_targets_yield_nil", func(t *testing.T) {
		toEntry, toExit, toStop := TargetDistances(50, nil, nil, nil)
		assert.Nil(t, toEntry)
		assert.Nil(t, toExit)
		assert.Nil(t, toStop)
	})

	t.Run("partial_targets", func(t *testing.T) {
		toEntry, toExit, toStop := TargetDistances(50, nil, floatPtr(60), nil)
		assert.Nil(t, toEntry)
		require.NotNil(t, toExit)
		assert.InDelta(t, 20.0, *toExit, 1e-9)
		assert.Nil(t, toStop)
	})

	t.Run("nonpositive_price_yields_nil", func(t *testing.T) {
		toEntry, toExit, toStop := TargetDistances(0, floatPtr(100), floatPtr(150), floatPtr(90))
		assert.Nil(t, toEntry)
		assert.Nil(t, toExit)
		assert.Nil(t, toStop)
	})

	t.Run("nonpositive_entry_skipped", func(t *testing.T) {
		toEntry, _, toStop := TargetDistances(50, floatPtr(0), nil, floatPtr(-1))
		assert.Nil(t, toEntry)
		assert.Nil(t, toStop)
	})
}

func TestNearEntry(t *testing.T) {
	tests := []struct {
		name  string
		price float64
		entry *float64
		want  bool
	}{
		{"exactly_on_target", 100, floatPtr(100), true},
		{"within_band_above", 104.9, floatPtr(100), true},
		{"within_band_below", 95.1, floatPtr(100), true},
		{"on_band_edge", 105, floatPtr(100), true},
		{"outside_band", 106, floatPtr(100), false},
		{"no_target", 100, nil, false},
		{"zero_target", 100, floatPtr(0), false},
		{"zero_price", 0, floatPtr(100), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NearEntry(tt.price, tt.entry))
		})
	}
}

func TestTickerRecord_Structure(t *testing.T) {
	record := TickerRecord{
		ID:          1,
		Symbol:      "GME",
		CompanyName: "GameStop Corp",
		Priority:    domain.PriorityHigh,
		Active:      true,
		ReasonAdded: "short interest above 20%",
		EntryTarget: floatPtr(18.50),
		ExitTarget:  floatPtr(32.00),
		StopLoss:    floatPtr(15.00),
		LastPrice:   floatPtr(21.40),
		LastScore:   floatPtr(82.5),
		MinPrice:    floatPtr(16.80),
		MaxPrice:    floatPtr(24.10),
		AddedAt:     time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}

	t.Run("valid_record", func(t *testing.T) {
		assert.Equal(t, "GME", record.Symbol)
		assert.Equal(t, domain.PriorityHigh, record.Priority)
		assert.True(t, record.Active)
		require.NotNil(t, record.MinPrice)
		require.NotNil(t, record.MaxPrice)
		assert.LessOrEqual(t, *record.MinPrice, *record.MaxPrice)
	})

	t.Run("score_bounds", func(t *testing.T) {
		require.NotNil(t, record.LastScore)
		assert.GreaterOrEqual(t, *record.LastScore, 0.0)
		assert.LessOrEqual(t, *record.LastScore, 100.0)
	})
}

func TestHealthCheck_Structure(t *testing.T) {
	healthCheck := HealthCheck{
		Healthy: true,
		Errors:  []string{},
		ConnectionPool: map[string]int{
			"open":   5,
			"idle":   3,
			"in_use": 2,
		},
		LastCheck:      time.Now(),
		ResponseTimeMS: 12,
	}

	assert.True(t, healthCheck.Healthy)
	assert.Empty(t, healthCheck.Errors)
	assert.Contains(t, healthCheck.ConnectionPool, "open")
	assert.Contains(t, healthCheck.ConnectionPool, "idle")
	assert.Greater(t, healthCheck.ResponseTimeMS, int64(0))
}

func floatPtr(f float64) *float64 {
	return &f
}
