package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/spin-engine/internal/config"
	"github.com/wfunc/spin-engine/internal/models"
	gormlogger "gorm.io/gorm/logger"
)

func TestOpenAndMigrate(t *testing.T) {
	db, err := Open(&config.DatabaseConfig{Driver: "sqlite", DSN: "file::memory:", LogLevel: "silent", MaxOpenConns: 1}, nil)
	require.NoError(t, err)
	defer Close(db)

	require.NoError(t, AutoMigrate(db, nil))
	for _, m := range Models() {
		assert.True(t, db.Migrator().HasTable(m), "%T", m)
	}
	assert.True(t, db.Migrator().HasIndex(&models.SpinRecord{}, "idx_session_spin"))
	assert.NoError(t, Ping(context.Background(), db))

	require.NoError(t, DropAllTables(db))
	assert.False(t, db.Migrator().HasTable(&models.SpinRecord{}))
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(&config.DatabaseConfig{Driver: "oracle"}, nil)
	assert.ErrorContains(t, err, "不支持的数据库驱动")
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, parseLogLevel("silent"))
	assert.Equal(t, gormlogger.Info, parseLogLevel("info"))
	assert.Equal(t, gormlogger.Warn, parseLogLevel(""))
}
