package database

import (
	"fmt"

	"github.com/wfunc/spin-engine/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Models 需要迁移的模型
func Models() []interface{} {
	return []interface{}{
		&models.Wallet{},
		&models.Transaction{},
		&models.GameSession{},
		&models.SpinRecord{},
		&models.GameDefinition{},
	}
}

// AutoMigrate 自动迁移数据库表结构
func AutoMigrate(db *gorm.DB, log *zap.Logger) error {
	if db == nil {
		return fmt.Errorf("数据库未初始化")
	}
	if log == nil {
		log = zap.NewNop()
	}

	log.Info("开始数据库迁移...")
	for _, model := range Models() {
		if err := db.AutoMigrate(model); err != nil {
			log.Error("迁移失败",
				zap.String("model", fmt.Sprintf("%T", model)),
				zap.Error(err),
			)
			return fmt.Errorf("迁移 %T 失败: %w", model, err)
		}
		log.Debug("迁移成功", zap.String("model", fmt.Sprintf("%T", model)))
	}

	createIndexes(db, log)
	log.Info("数据库迁移完成")
	return nil
}

// createIndexes 创建模型标签之外的组合索引
func createIndexes(db *gorm.DB, log *zap.Logger) {
	indexes := map[string]string{
		"idx_spin_ledger_game_created": "CREATE INDEX IF NOT EXISTS idx_spin_ledger_game_created ON spin_ledger(game_id, created_at)",
		"idx_transactions_player_type": "CREATE INDEX IF NOT EXISTS idx_transactions_player_type ON transactions(player_id, type)",
	}
	for name, stmt := range indexes {
		if err := db.Exec(stmt).Error; err != nil {
			log.Warn("创建索引失败", zap.String("index", name), zap.Error(err))
		}
	}
}

// DropAllTables 删除所有表，仅测试使用
func DropAllTables(db *gorm.DB) error {
	return db.Migrator().DropTable(Models()...)
}
