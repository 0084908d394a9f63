package container

import (
	"context"
	"testing"

	"clinstat/adapters/memory"
	"clinstat/internal"
	"clinstat/internal/config"
	"clinstat/internal/errors"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{Server: config.ServerConfig{Port: "8080", CacheSize: 4}}
}

func TestNewUsesMemoryStore(t *testing.T) {
	c, err := New(testConfig(), config.DefaultAnalysisPlan(), internal.NewDiscardLogger())
	require.NoError(t, err)

	_, ok := c.Store.(*memory.ReportStore)
	assert.True(t, ok)
	assert.NotNil(t, c.Pipeline)
	assert.NoError(t, c.Shutdown(context.Background()))
}

func TestNewRejectsNilConfig(t *testing.T) {
	_, err := New(nil, config.DefaultAnalysisPlan(), nil)
	assert.ErrorIs(t, err, errors.ErrConfigInvalid)
}

func TestInitWithDatabaseWrapsPostgresInCache(t *testing.T) {
	raw, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	mock.ExpectPing()
	mock.ExpectClose()

	c, err := New(testConfig(), config.DefaultAnalysisPlan(), internal.NewDiscardLogger())
	require.NoError(t, err)
	require.NoError(t, c.InitWithDatabase(context.Background(), sqlx.NewDb(raw, "postgres")))

	_, ok := c.Store.(*memory.CachingStore)
	assert.True(t, ok)
	require.NoError(t, c.Shutdown(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConnectRequiresURL(t *testing.T) {
	_, err := Connect(context.Background(), "")
	assert.ErrorIs(t, err, errors.ErrConfigInvalid)
}
