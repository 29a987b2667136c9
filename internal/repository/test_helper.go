package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wfunc/spin-engine/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB 创建迁移好的内存数据库。
// 内存 SQLite 每个连接是独立的库，连接池固定为1。
func SetupTestDB() *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		panic(err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		panic(err)
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.Wallet{},
		&models.Transaction{},
		&models.GameSession{},
		&models.SpinRecord{},
		&models.GameDefinition{},
	)
	if err != nil {
		panic(err)
	}
	return db
}

// CleanupTestDB 关闭测试数据库
func CleanupTestDB(db *gorm.DB) {
	sqlDB, _ := db.DB()
	if sqlDB != nil {
		sqlDB.Close()
	}
}

// SeedPlayer 创建带余额的钱包和活跃会话
func SeedPlayer(t testing.TB, db *gorm.DB, playerID, sessionID, gameID string, balance int64) *models.GameSession {
	t.Helper()
	ctx := context.Background()

	_, err := NewWalletRepository(db).GetOrCreate(ctx, playerID, balance)
	require.NoError(t, err)

	session := &models.GameSession{SessionID: sessionID, PlayerID: playerID, GameID: gameID}
	require.NoError(t, NewGameSessionRepository(db).Create(ctx, session))
	return session
}

// CreateTestCommit 构造一条测试提交
func CreateTestCommit(sessionID, playerID, gameID, spinID string, wager, payout int64) *SpinCommit {
	return &SpinCommit{
		SessionID:      sessionID,
		SpinID:         spinID,
		PlayerID:       playerID,
		GameID:         gameID,
		Wager:          wager,
		Payout:         payout,
		Seed:           "seed-" + spinID,
		SeedCommitment: "commit-" + spinID,
		Outcome:        `{"spinId":"` + spinID + `"}`,
	}
}
