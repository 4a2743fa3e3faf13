package database

import (
	"path/filepath"
	"testing"

	"order_service/internal/config"
	"order_service/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOpen_SQLite(t *testing.T) {
	cfg := config.AppConfig{
		StoreDriver:    config.StoreSQLite,
		DBPath:         filepath.Join(t.TempDir(), "orders.db"),
		DBMaxOpenConns: 1,
		DBMaxIdleConns: 1,
	}

	db, err := Open(cfg)
	require.NoError(t, err)
	defer func() { _ = Close(db) }()

	require.NoError(t, Migrate(db, zap.NewNop()))
	assert.True(t, db.Migrator().HasTable(&model.Order{}))
}

func TestOpen_RejectsNonRelationalDriver(t *testing.T) {
	_, err := Open(config.AppConfig{StoreDriver: config.StoreRedis})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `store driver "redis" is not relational`)
}
