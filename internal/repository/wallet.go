package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wfunc/spin-engine/internal/models"
	"gorm.io/gorm"
)

// WalletRepository 钱包仓储接口
type WalletRepository interface {
	BaseRepository
	WithTx(tx *gorm.DB) WalletRepository
	Create(ctx context.Context, wallet *models.Wallet) error
	FindByPlayerID(ctx context.Context, playerID string) (*models.Wallet, error)
	GetOrCreate(ctx context.Context, playerID string, initialBalance int64) (*models.Wallet, error)
	ApplySpin(ctx context.Context, playerID string, wager, payout int64) (int64, error)
	CreateTransaction(ctx context.Context, tx *models.Transaction) error
	ListTransactions(ctx context.Context, playerID string, p *Pagination) ([]*models.Transaction, error)
}

// walletRepo 钱包仓储实现
type walletRepo struct {
	*BaseRepo
}

// NewWalletRepository 创建钱包仓储
func NewWalletRepository(db *gorm.DB) WalletRepository {
	return &walletRepo{BaseRepo: NewBaseRepo(db)}
}

// WithTx 使用事务
func (r *walletRepo) WithTx(tx *gorm.DB) WalletRepository {
	return &walletRepo{BaseRepo: NewBaseRepo(tx)}
}

// Create 创建钱包
func (r *walletRepo) Create(ctx context.Context, wallet *models.Wallet) error {
	if err := r.db.WithContext(ctx).Create(wallet).Error; err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// FindByPlayerID 根据玩家ID查找钱包
func (r *walletRepo) FindByPlayerID(ctx context.Context, playerID string) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.db.WithContext(ctx).Where("player_id = ?", playerID).First(&wallet).Error; err != nil {
		return nil, notFound(err)
	}
	return &wallet, nil
}

// GetOrCreate 查找钱包，不存在时按初始余额开户并记一笔充值流水
func (r *walletRepo) GetOrCreate(ctx context.Context, playerID string, initialBalance int64) (*models.Wallet, error) {
	wallet, err := r.FindByPlayerID(ctx, playerID)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	wallet = &models.Wallet{PlayerID: playerID, Balance: initialBalance}
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := r.WithTx(tx)
		if err := txRepo.Create(ctx, wallet); err != nil {
			return err
		}
		if initialBalance <= 0 {
			return nil
		}
		return txRepo.CreateTransaction(ctx, &models.Transaction{
			PlayerID:     playerID,
			OrderNo:      fmt.Sprintf("DEP-%s-%d", playerID, time.Now().UnixNano()),
			Type:         models.TxTypeDeposit,
			Amount:       initialBalance,
			AfterBalance: initialBalance,
			Status:       models.TxStatusSuccess,
			RefType:      "wallet",
			Description:  "初始余额",
		})
	})
	if errors.Is(err, ErrDuplicate) {
		// 并发开户，另一方已创建
		return r.FindByPlayerID(ctx, playerID)
	}
	if err != nil {
		return nil, err
	}
	return wallet, nil
}

// ApplySpin 原子结算一次旋转：balance = balance - wager + payout，仅当 balance >= wager。
// 返回结算后的余额。
func (r *walletRepo) ApplySpin(ctx context.Context, playerID string, wager, payout int64) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Wallet{}).
		Where("player_id = ? AND balance >= ?", playerID, wager).
		Updates(map[string]interface{}{
			"balance":      gorm.Expr("balance - ? + ?", wager, payout),
			"total_bet":    gorm.Expr("total_bet + ?", wager),
			"total_win":    gorm.Expr("total_win + ?", payout),
			"spin_count":   gorm.Expr("spin_count + 1"),
			"last_spin_at": time.Now(),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := r.FindByPlayerID(ctx, playerID); err != nil {
			return 0, err
		}
		return 0, ErrInsufficientBalance
	}

	var balance int64
	err := r.db.WithContext(ctx).
		Model(&models.Wallet{}).
		Where("player_id = ?", playerID).
		Pluck("balance", &balance).Error
	return balance, err
}

// CreateTransaction 创建交易记录
func (r *walletRepo) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	return r.db.WithContext(ctx).Create(tx).Error
}

// ListTransactions 分页查询玩家流水，最新在前
func (r *walletRepo) ListTransactions(ctx context.Context, playerID string, p *Pagination) ([]*models.Transaction, error) {
	var txs []*models.Transaction
	byPlayer := func(db *gorm.DB) *gorm.DB { return db.Where("player_id = ?", playerID) }
	if err := r.db.WithContext(ctx).Model(&models.Transaction{}).Scopes(byPlayer).Count(&p.Total).Error; err != nil {
		return nil, err
	}
	err := r.db.WithContext(ctx).Scopes(byPlayer, Paginate(p)).Order("id DESC").Find(&txs).Error
	return txs, err
}
