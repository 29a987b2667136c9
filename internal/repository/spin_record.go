package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wfunc/spin-engine/internal/game/slot"
	"github.com/wfunc/spin-engine/internal/models"
	"gorm.io/gorm"
)

// SpinRecordRepository 旋转账本仓储接口
type SpinRecordRepository interface {
	BaseRepository
	WithTx(tx *gorm.DB) SpinRecordRepository
	NextSpinIndex(ctx context.Context, sessionID string) (int64, error)
	Create(ctx context.Context, record *models.SpinRecord) error
	Get(ctx context.Context, sessionID string, spinIndex int64) (*models.SpinRecord, error)
	ListBySession(ctx context.Context, sessionID string, p *Pagination) ([]*models.SpinRecord, error)
	AuditRTP(ctx context.Context, gameID string) (*RTPAudit, error)
}

// RTPAudit 按游戏汇总的实际回报率
type RTPAudit struct {
	GameID      string          `json:"game_id"`
	Spins       int64           `json:"spins"`
	TotalWager  int64           `json:"total_wager"`
	TotalPayout int64           `json:"total_payout"`
	ActualRTP   decimal.Decimal `json:"actual_rtp"`
	FirstSpinAt *time.Time      `json:"first_spin_at,omitempty"`
	LastSpinAt  *time.Time      `json:"last_spin_at,omitempty"`
}

type spinRecordRepo struct {
	*BaseRepo
}

// NewSpinRecordRepository 创建旋转账本仓储
func NewSpinRecordRepository(db *gorm.DB) SpinRecordRepository {
	return &spinRecordRepo{BaseRepo: NewBaseRepo(db)}
}

// WithTx 使用事务
func (r *spinRecordRepo) WithTx(tx *gorm.DB) SpinRecordRepository {
	return &spinRecordRepo{BaseRepo: NewBaseRepo(tx)}
}

// NextSpinIndex 会话的下一个旋转序号，从1开始连续递增
func (r *spinRecordRepo) NextSpinIndex(ctx context.Context, sessionID string) (int64, error) {
	var last int64
	err := r.db.WithContext(ctx).
		Model(&models.SpinRecord{}).
		Where("session_id = ?", sessionID).
		Select("COALESCE(MAX(spin_index), 0)").
		Scan(&last).Error
	if err != nil {
		return 0, err
	}
	return last + 1, nil
}

// Create 写入账本，(session_id, spin_index) 冲突返回 ErrDuplicate
func (r *spinRecordRepo) Create(ctx context.Context, record *models.SpinRecord) error {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// Get 查询一条账本记录
func (r *spinRecordRepo) Get(ctx context.Context, sessionID string, spinIndex int64) (*models.SpinRecord, error) {
	var record models.SpinRecord
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND spin_index = ?", sessionID, spinIndex).
		First(&record).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &record, nil
}

// ListBySession 分页查询会话账本，最新在前
func (r *spinRecordRepo) ListBySession(ctx context.Context, sessionID string, p *Pagination) ([]*models.SpinRecord, error) {
	bySession := func(db *gorm.DB) *gorm.DB { return db.Where("session_id = ?", sessionID) }
	if err := r.db.WithContext(ctx).Model(&models.SpinRecord{}).Scopes(bySession).Count(&p.Total).Error; err != nil {
		return nil, err
	}

	var records []*models.SpinRecord
	err := r.db.WithContext(ctx).
		Scopes(bySession, Paginate(p)).
		Order("spin_index DESC").
		Find(&records).Error
	return records, err
}

// AuditRTP 汇总游戏的投注、派彩与实际回报率
func (r *spinRecordRepo) AuditRTP(ctx context.Context, gameID string) (*RTPAudit, error) {
	var row struct {
		Spins       int64
		TotalWager  int64
		TotalPayout int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.SpinRecord{}).
		Select("COUNT(*) AS spins, COALESCE(SUM(wager), 0) AS total_wager, COALESCE(SUM(payout), 0) AS total_payout").
		Where("game_id = ?", gameID).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}

	audit := &RTPAudit{
		GameID:      gameID,
		Spins:       row.Spins,
		TotalWager:  row.TotalWager,
		TotalPayout: row.TotalPayout,
		ActualRTP:   slot.RTP(row.TotalPayout, row.TotalWager),
	}
	if row.Spins == 0 {
		return audit, nil
	}

	var first, last models.SpinRecord
	if err := r.db.WithContext(ctx).Where("game_id = ?", gameID).Order("id ASC").First(&first).Error; err == nil {
		audit.FirstSpinAt = &first.CreatedAt
	}
	if err := r.db.WithContext(ctx).Where("game_id = ?", gameID).Order("id DESC").First(&last).Error; err == nil {
		audit.LastSpinAt = &last.CreatedAt
	}
	return audit, nil
}
