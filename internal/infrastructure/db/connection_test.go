package db

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/stockrun/internal/config"
)

func TestNewManager_Disabled(t *testing.T) {
	manager, err := NewManager(config.DatabaseConfig{Enabled: false})
	require.NoError(t, err)

	assert.False(t, manager.IsEnabled())
	assert.Nil(t, manager.Repository())
	assert.Nil(t, manager.DB())

	// Health answers even without a connection
	check := manager.Health().Health(context.Background())
	assert.True(t, check.Healthy)
	require.Len(t, check.Errors, 1)
	assert.Contains(t, check.Errors[0], "disabled")

	assert.NoError(t, manager.Health().Ping(context.Background()))

	stats := manager.Health().Stats(context.Background())
	assert.False(t, stats["enabled"].(bool))
	assert.Equal(t, "disabled", stats["status"])

	assert.ErrorContains(t, manager.EnsureSchema(context.Background()), "disabled")
	assert.NoError(t, manager.Close())
}

func TestNewManager_MissingDSN(t *testing.T) {
	_, err := NewManager(config.DatabaseConfig{Enabled: true})
	assert.ErrorContains(t, err, "DSN is required")
}

func newMockChecker(t *testing.T) (*healthChecker, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	checker := &healthChecker{
		enabled: true,
		db:      sqlx.NewDb(mockDB, "postgres"),
		timeout: 5 * time.Second,
	}
	return checker, mock
}

func TestHealthChecker_Ping(t *testing.T) {
	checker, mock := newMockChecker(t)

	mock.ExpectPing()

	check := checker.Health(context.Background())
	assert.True(t, check.Healthy)
	assert.Empty(t, check.Errors)
	assert.Contains(t, check.ConnectionPool, "open")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealthChecker_PingFailure(t *testing.T) {
	checker, mock := newMockChecker(t)

	mock.ExpectPing().WillReturnError(sqlmock.ErrCancelled)

	check := checker.Health(context.Background())
	assert.False(t, check.Healthy)
	require.Len(t, check.Errors, 1)
	assert.Contains(t, check.Errors[0], "ping failed")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealthChecker_Stats(t *testing.T) {
	checker, mock := newMockChecker(t)

	stats := checker.Stats(context.Background())
	assert.True(t, stats["enabled"].(bool))
	assert.Contains(t, stats, "max_open_connections")
	assert.Contains(t, stats, "open_connections")
	assert.Contains(t, stats, "in_use")
	assert.Contains(t, stats, "idle")

	// Pool stats read no queries
	assert.NoError(t, mock.ExpectationsWereMet())
}
