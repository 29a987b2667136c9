package models

import (
	"time"
)

// 会话状态
const (
	SessionStatusActive = "active"
	SessionStatusEnded  = "ended"
)

// GameSession 游戏会话表
type GameSession struct {
	BaseModel
	SessionID    string     `gorm:"uniqueIndex;size:64;not null" json:"session_id"`
	PlayerID     string     `gorm:"not null;index;size:64" json:"player_id"`
	GameID       string     `gorm:"not null;index;size:64" json:"game_id"`
	Status       string     `gorm:"size:20;default:'active';index" json:"status"`
	StartedAt    time.Time  `json:"started_at"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
	LastActiveAt time.Time  `json:"last_active_at"`
	TotalBet     int64      `gorm:"default:0" json:"total_bet"`
	TotalWin     int64      `gorm:"default:0" json:"total_win"`
	SpinCount    int64      `gorm:"default:0" json:"spin_count"`
	PeakWin      int64      `gorm:"default:0" json:"peak_win"`
}

// IsActive 会话是否仍可旋转
func (s *GameSession) IsActive() bool {
	return s.Status == SessionStatusActive
}

// SpinRecord 旋转账本：每个 (session_id, spin_index) 至多一条
type SpinRecord struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	SessionID      string    `gorm:"not null;size:64;uniqueIndex:idx_session_spin,priority:1" json:"session_id"`
	SpinIndex      int64     `gorm:"not null;uniqueIndex:idx_session_spin,priority:2" json:"spin_index"`
	SpinID         string    `gorm:"uniqueIndex;size:64;not null" json:"spin_id"`
	PlayerID       string    `gorm:"not null;index;size:64" json:"player_id"`
	GameID         string    `gorm:"not null;index;size:64" json:"game_id"`
	Wager          int64     `gorm:"not null" json:"wager"`
	Payout         int64     `gorm:"not null;default:0" json:"payout"`
	BalanceAfter   int64     `json:"balance_after"`
	Seed           string    `gorm:"size:128;not null" json:"seed"`
	SeedCommitment string    `gorm:"size:128" json:"seed_commitment"`
	FeatureType    string    `gorm:"size:20" json:"feature_type,omitempty"`
	Outcome        string    `gorm:"type:text;not null" json:"-"` // SpinOutcome 的 JSON 快照
	CreatedAt      time.Time `gorm:"index" json:"created_at"`
}

// TableName 账本表名
func (SpinRecord) TableName() string {
	return "spin_ledger"
}

// GameDefinition 远程游戏配置表，Config 为 GameConfig 的 JSON
type GameDefinition struct {
	BaseModel
	GameID  string `gorm:"uniqueIndex;size:64;not null" json:"game_id"`
	Name    string `gorm:"size:100" json:"name"`
	Version int    `gorm:"default:1" json:"version"`
	Enabled bool   `gorm:"not null" json:"enabled"`
	Config  string `gorm:"type:text;not null" json:"-"`
}
