package redisstore

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/stockrun/internal/domain"
)

func sampleAnalysis(symbol string, total float64) *domain.Analysis {
	return &domain.Analysis{
		Symbol:      symbol,
		CompanyName: symbol,
		CompositeScore: &domain.CompositeScore{
			TotalScore:      total,
			RiskLevel:       domain.RiskLow,
			OpportunityType: domain.OpportunityShortSqueeze,
			ConfidenceLevel: 0.8,
		},
		Alerts: []domain.Alert{
			{
				Symbol:    symbol,
				AlertType: domain.DivergenceShortSqueezeSetup,
				Score:     total,
				Priority:  domain.PriorityMedium,
			},
		},
		AnalyzedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestStore_CacheAnalysis_RoundTrip(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := newWithClient(db, Options{AnalysisTTL: time.Minute})

	analysis := sampleAnalysis("GME", 74.2)
	data, err := json.Marshal(analysis)
	require.NoError(t, err)

	mock.ExpectSet("stockrun:analysis:GME", data, time.Minute).SetVal("OK")
	require.NoError(t, store.CacheAnalysis(context.Background(), analysis))

	mock.ExpectGet("stockrun:analysis:GME").SetVal(string(data))
	got, found, err := store.GetCachedAnalysis(context.Background(), "GME")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "GME", got.Symbol)
	assert.InDelta(t, 74.2, got.CompositeScore.TotalScore, 1e-9)
	require.Len(t, got.Alerts, 1)
	assert.Equal(t, domain.DivergenceShortSqueezeSetup, got.Alerts[0].AlertType)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_CacheAnalysis_NilAnalysis(t *testing.T) {
	db, _ := redismock.NewClientMock()
	store := newWithClient(db, Options{})

	assert.Error(t, store.CacheAnalysis(context.Background(), nil))
}

func TestStore_GetCachedAnalysis_Miss(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := newWithClient(db, Options{})

	mock.ExpectGet("stockrun:analysis:AMC").RedisNil()

	got, found, err := store.GetCachedAnalysis(context.Background(), "AMC")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetCachedAnalysis_RedisError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := newWithClient(db, Options{})

	mock.ExpectGet("stockrun:analysis:GME").SetErr(redis.TxFailedErr)

	_, _, err := store.GetCachedAnalysis(context.Background(), "GME")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis get")
}

func TestStore_GetCachedAnalysis_CorruptPayload(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := newWithClient(db, Options{})

	mock.ExpectGet("stockrun:analysis:GME").SetVal("{not json")

	_, _, err := store.GetCachedAnalysis(context.Background(), "GME")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal analysis")
}

func TestStore_CacheAlerts_RoundTrip(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := newWithClient(db, Options{})

	alerts := sampleAnalysis("GME", 80).Alerts
	data, err := json.Marshal(alerts)
	require.NoError(t, err)

	mock.ExpectSet("stockrun:alerts:GME", data, DefaultAlertsTTL).SetVal("OK")
	require.NoError(t, store.CacheAlerts(context.Background(), "gme", alerts))

	mock.ExpectGet("stockrun:alerts:GME").SetVal(string(data))
	got, found, err := store.GetCachedAlerts(context.Background(), "GME")
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, got, 1)
	assert.Equal(t, domain.PriorityMedium, got[0].Priority)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Delete(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := newWithClient(db, Options{})

	mock.ExpectDel("stockrun:analysis:GME", "stockrun:alerts:GME").SetVal(2)

	require.NoError(t, store.Delete(context.Background(), "GME"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Symbols(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := newWithClient(db, Options{})

	mock.ExpectKeys("stockrun:analysis:*").SetVal([]string{
		"stockrun:analysis:GME",
		"stockrun:analysis:AMC",
	})

	symbols, err := store.Symbols(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"AMC", "GME"}, symbols)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestKeys_NormalizeSymbol(t *testing.T) {
	assert.Equal(t, "stockrun:analysis:GME", AnalysisKey(" gme "))
	assert.Equal(t, "stockrun:alerts:GME", AlertsKey("gme"))
}

func TestNewWithClient_DefaultTTLs(t *testing.T) {
	db, _ := redismock.NewClientMock()
	store := newWithClient(db, Options{})

	assert.Equal(t, DefaultAnalysisTTL, store.analysisTTL)
	assert.Equal(t, DefaultAlertsTTL, store.alertsTTL)
}
