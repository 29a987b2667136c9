package models

import (
	"time"
)

// 交易类型
const (
	TxTypeBet     = "bet"
	TxTypeWin     = "win"
	TxTypeDeposit = "deposit"
)

// 交易状态
const (
	TxStatusSuccess = "success"
)

// Wallet 玩家钱包表，金额均为最小货币单位
type Wallet struct {
	BaseModel
	PlayerID   string    `gorm:"uniqueIndex;size:64;not null" json:"player_id"`
	Balance    int64     `gorm:"not null;default:0" json:"balance"`
	Currency   string    `gorm:"size:10;default:'CNY'" json:"currency"`
	TotalBet   int64     `gorm:"default:0" json:"total_bet"`
	TotalWin   int64     `gorm:"default:0" json:"total_win"`
	SpinCount  int64     `gorm:"default:0" json:"spin_count"`
	LastSpinAt time.Time `json:"last_spin_at"`
}

// CanBet 检查余额是否足够下注
func (w *Wallet) CanBet(amount int64) bool {
	return w.Balance >= amount
}

// Transaction 钱包流水表
type Transaction struct {
	BaseModel
	PlayerID      string  `gorm:"not null;index;size:64" json:"player_id"`
	OrderNo       string  `gorm:"uniqueIndex;size:96;not null" json:"order_no"`
	Type          string  `gorm:"size:20;not null;index" json:"type"`
	Amount        int64   `gorm:"not null" json:"amount"`
	BeforeBalance int64   `json:"before_balance"`
	AfterBalance  int64   `json:"after_balance"`
	Status        string  `gorm:"size:20;default:'success';index" json:"status"`
	RefType       string  `gorm:"size:50" json:"ref_type"`
	RefID         string  `gorm:"size:100;index" json:"ref_id"`
	Description   string  `gorm:"size:255" json:"description"`
	Metadata      JSONMap `gorm:"type:text" json:"metadata,omitempty"`
}
