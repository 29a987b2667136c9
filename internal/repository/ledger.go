package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/wfunc/spin-engine/internal/models"
	"gorm.io/gorm"
)

// ErrSpinIndexMismatch 请求的旋转序号不是会话的下一个序号
var ErrSpinIndexMismatch = errors.New("旋转序号不连续")

// SpinCommit 一次旋转需要持久化的全部内容
type SpinCommit struct {
	SessionID      string
	SpinIndex      int64 // 0 表示由账本分配下一个序号
	SpinID         string
	PlayerID       string
	GameID         string
	Wager          int64
	Payout         int64
	Seed           string
	SeedCommitment string
	FeatureType    string
	Outcome        string
}

// CommitResult 提交结果
type CommitResult struct {
	Record  *models.SpinRecord
	Balance int64
}

// SpinLedger 旋转账本：在一个事务内完成序号分配、账本写入、余额结算、流水与会话统计。
// 任一步失败整体回滚，余额不变。
type SpinLedger struct {
	db       *gorm.DB
	wallets  WalletRepository
	sessions GameSessionRepository
	records  SpinRecordRepository
}

// NewSpinLedger 创建旋转账本
func NewSpinLedger(db *gorm.DB) *SpinLedger {
	return &SpinLedger{
		db:       db,
		wallets:  NewWalletRepository(db),
		sessions: NewGameSessionRepository(db),
		records:  NewSpinRecordRepository(db),
	}
}

// Commit 原子提交一次旋转
func (l *SpinLedger) Commit(ctx context.Context, c *SpinCommit) (*CommitResult, error) {
	var result *CommitResult
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		records := l.records.WithTx(tx)
		wallets := l.wallets.WithTx(tx)
		sessions := l.sessions.WithTx(tx)

		next, err := records.NextSpinIndex(ctx, c.SessionID)
		if err != nil {
			return fmt.Errorf("分配旋转序号失败: %w", err)
		}
		index := c.SpinIndex
		if index == 0 {
			index = next
		} else if index != next {
			return fmt.Errorf("%w: 期望 %d, 实际 %d", ErrSpinIndexMismatch, next, index)
		}

		balance, err := wallets.ApplySpin(ctx, c.PlayerID, c.Wager, c.Payout)
		if err != nil {
			return err
		}

		record := &models.SpinRecord{
			SessionID:      c.SessionID,
			SpinIndex:      index,
			SpinID:         c.SpinID,
			PlayerID:       c.PlayerID,
			GameID:         c.GameID,
			Wager:          c.Wager,
			Payout:         c.Payout,
			BalanceAfter:   balance,
			Seed:           c.Seed,
			SeedCommitment: c.SeedCommitment,
			FeatureType:    c.FeatureType,
			Outcome:        c.Outcome,
		}
		if err := records.Create(ctx, record); err != nil {
			return err
		}

		before := balance + c.Wager - c.Payout
		if err := wallets.CreateTransaction(ctx, &models.Transaction{
			PlayerID:      c.PlayerID,
			OrderNo:       "BET-" + c.SpinID,
			Type:          models.TxTypeBet,
			Amount:        c.Wager,
			BeforeBalance: before,
			AfterBalance:  before - c.Wager,
			Status:        models.TxStatusSuccess,
			RefType:       "spin",
			RefID:         c.SpinID,
			Description:   "旋转投注",
		}); err != nil {
			return fmt.Errorf("记录投注流水失败: %w", err)
		}
		if c.Payout > 0 {
			if err := wallets.CreateTransaction(ctx, &models.Transaction{
				PlayerID:      c.PlayerID,
				OrderNo:       "WIN-" + c.SpinID,
				Type:          models.TxTypeWin,
				Amount:        c.Payout,
				BeforeBalance: before - c.Wager,
				AfterBalance:  balance,
				Status:        models.TxStatusSuccess,
				RefType:       "spin",
				RefID:         c.SpinID,
				Description:   "旋转派彩",
				Metadata:      models.JSONMap{"feature": c.FeatureType},
			}); err != nil {
				return fmt.Errorf("记录派彩流水失败: %w", err)
			}
		}

		if err := sessions.RecordSpin(ctx, c.SessionID, c.Wager, c.Payout); err != nil {
			return fmt.Errorf("更新会话统计失败: %w", err)
		}

		result = &CommitResult{Record: record, Balance: balance}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
