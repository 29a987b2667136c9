package game

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/wfunc/spin-engine/internal/game/slot"
)

// CreateSessionRequest 创建会话请求
type CreateSessionRequest struct {
	PlayerID string `json:"player_id" binding:"required,max=64"`
	GameID   string `json:"game_id" binding:"required,max=64"`
}

// SpinRequest 旋转请求。SpinIndex 为0时由账本分配，重试时带上同一序号保证至多一次
type SpinRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	GameID    string `json:"game_id" binding:"required"`
	Wager     int64  `json:"wager" binding:"required,gt=0"`
	SpinIndex int64  `json:"spin_index" binding:"omitempty,gte=0"`
}

// SpinResponse 旋转结果
type SpinResponse struct {
	SessionID      string            `json:"session_id"`
	SpinIndex      int64             `json:"spin_index"`
	Outcome        *slot.SpinOutcome `json:"outcome"`
	Balance        int64             `json:"balance"`
	SeedCommitment string            `json:"seed_commitment"`
	// Replayed 为true表示该序号已提交过，本次返回已存储的结果，没有新的扣款
	Replayed bool `json:"replayed"`
}

// SpinHistoryItem 账本记录
type SpinHistoryItem struct {
	SpinIndex      int64             `json:"spin_index"`
	SpinID         string            `json:"spin_id"`
	Wager          int64             `json:"wager"`
	Payout         int64             `json:"payout"`
	BalanceAfter   int64             `json:"balance_after"`
	FeatureType    string            `json:"feature_type,omitempty"`
	SeedCommitment string            `json:"seed_commitment"`
	Outcome        *slot.SpinOutcome `json:"outcome,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// SpinHistory 分页账本
type SpinHistory struct {
	SessionID string             `json:"session_id"`
	Page      int                `json:"page"`
	PageSize  int                `json:"page_size"`
	Total     int64              `json:"total"`
	Items     []*SpinHistoryItem `json:"items"`
}

// VerifyResult 重放校验结果
type VerifyResult struct {
	SessionID       string            `json:"session_id"`
	SpinIndex       int64             `json:"spin_index"`
	SpinID          string            `json:"spin_id"`
	Seed            string            `json:"seed"`
	SeedCommitment  string            `json:"seed_commitment"`
	CommitmentValid bool              `json:"commitment_valid"`
	OutcomeMatch    bool              `json:"outcome_match"`
	Outcome         *slot.SpinOutcome `json:"outcome"`
}

// RTPReport 实际回报率与目标回报率
type RTPReport struct {
	GameID      string          `json:"game_id"`
	Spins       int64           `json:"spins"`
	TotalWager  int64           `json:"total_wager"`
	TotalPayout int64           `json:"total_payout"`
	ActualRTP   decimal.Decimal `json:"actual_rtp"`
	TargetRTP   decimal.Decimal `json:"target_rtp"`
	Deviation   decimal.Decimal `json:"deviation"`
	FirstSpinAt *time.Time      `json:"first_spin_at,omitempty"`
	LastSpinAt  *time.Time      `json:"last_spin_at,omitempty"`
}
