package repository

import (
	"sync"

	"gorm.io/gorm"
)

// Manager 仓储管理器，提供所有仓储的统一访问接口
type Manager struct {
	db *gorm.DB

	// 仓储实例（懒加载）
	walletOnce sync.Once
	wallet     WalletRepository

	gameSessionOnce sync.Once
	gameSession     GameSessionRepository

	spinRecordOnce sync.Once
	spinRecord     SpinRecordRepository

	gameDefinitionOnce sync.Once
	gameDefinition     GameDefinitionRepository

	ledgerOnce sync.Once
	ledger     *SpinLedger
}

// NewManager 创建仓储管理器
func NewManager(db *gorm.DB) *Manager {
	return &Manager{db: db}
}

// GetDB 获取数据库实例
func (m *Manager) GetDB() *gorm.DB {
	return m.db
}

// Wallet 获取钱包仓储
func (m *Manager) Wallet() WalletRepository {
	m.walletOnce.Do(func() {
		m.wallet = NewWalletRepository(m.db)
	})
	return m.wallet
}

// GameSession 获取游戏会话仓储
func (m *Manager) GameSession() GameSessionRepository {
	m.gameSessionOnce.Do(func() {
		m.gameSession = NewGameSessionRepository(m.db)
	})
	return m.gameSession
}

// SpinRecord 获取旋转账本仓储
func (m *Manager) SpinRecord() SpinRecordRepository {
	m.spinRecordOnce.Do(func() {
		m.spinRecord = NewSpinRecordRepository(m.db)
	})
	return m.spinRecord
}

// GameDefinition 获取游戏配置仓储
func (m *Manager) GameDefinition() GameDefinitionRepository {
	m.gameDefinitionOnce.Do(func() {
		m.gameDefinition = NewGameDefinitionRepository(m.db)
	})
	return m.gameDefinition
}

// Ledger 获取旋转账本
func (m *Manager) Ledger() *SpinLedger {
	m.ledgerOnce.Do(func() {
		m.ledger = NewSpinLedger(m.db)
	})
	return m.ledger
}
