package repository

import (
	"context"
	"time"

	"github.com/wfunc/spin-engine/internal/models"
	"gorm.io/gorm"
)

// GameSessionRepository 游戏会话仓储接口
type GameSessionRepository interface {
	BaseRepository
	WithTx(tx *gorm.DB) GameSessionRepository
	Create(ctx context.Context, session *models.GameSession) error
	FindBySessionID(ctx context.Context, sessionID string) (*models.GameSession, error)
	FindActiveByPlayer(ctx context.Context, playerID, gameID string, activeSince time.Time) (*models.GameSession, error)
	RecordSpin(ctx context.Context, sessionID string, wager, payout int64) error
	EndSession(ctx context.Context, sessionID string) error
	ListActive(ctx context.Context, activeSince time.Time) ([]*models.GameSession, error)
	EndExpired(ctx context.Context, inactiveBefore time.Time, keep []string) (int64, error)
}

// gameSessionRepo 游戏会话仓储实现
type gameSessionRepo struct {
	*BaseRepo
}

// NewGameSessionRepository 创建游戏会话仓储
func NewGameSessionRepository(db *gorm.DB) GameSessionRepository {
	return &gameSessionRepo{BaseRepo: NewBaseRepo(db)}
}

// WithTx 使用事务
func (r *gameSessionRepo) WithTx(tx *gorm.DB) GameSessionRepository {
	return &gameSessionRepo{BaseRepo: NewBaseRepo(tx)}
}

// Create 创建游戏会话
func (r *gameSessionRepo) Create(ctx context.Context, session *models.GameSession) error {
	now := time.Now()
	if session.StartedAt.IsZero() {
		session.StartedAt = now
	}
	if session.LastActiveAt.IsZero() {
		session.LastActiveAt = now
	}
	if session.Status == "" {
		session.Status = models.SessionStatusActive
	}
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// FindBySessionID 根据会话ID查找
func (r *gameSessionRepo) FindBySessionID(ctx context.Context, sessionID string) (*models.GameSession, error) {
	var session models.GameSession
	if err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&session).Error; err != nil {
		return nil, notFound(err)
	}
	return &session, nil
}

// FindActiveByPlayer 查找玩家在该游戏最近活跃的会话
func (r *gameSessionRepo) FindActiveByPlayer(ctx context.Context, playerID, gameID string, activeSince time.Time) (*models.GameSession, error) {
	var session models.GameSession
	err := r.db.WithContext(ctx).
		Where("player_id = ? AND game_id = ? AND status = ? AND last_active_at >= ?",
			playerID, gameID, models.SessionStatusActive, activeSince).
		Order("last_active_at DESC").
		First(&session).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &session, nil
}

// RecordSpin 累加会话统计
func (r *gameSessionRepo) RecordSpin(ctx context.Context, sessionID string, wager, payout int64) error {
	result := r.db.WithContext(ctx).
		Model(&models.GameSession{}).
		Where("session_id = ?", sessionID).
		Updates(map[string]interface{}{
			"total_bet":      gorm.Expr("total_bet + ?", wager),
			"total_win":      gorm.Expr("total_win + ?", payout),
			"spin_count":     gorm.Expr("spin_count + 1"),
			"peak_win":       gorm.Expr("CASE WHEN peak_win < ? THEN ? ELSE peak_win END", payout, payout),
			"last_active_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// EndSession 结束会话
func (r *gameSessionRepo) EndSession(ctx context.Context, sessionID string) error {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.GameSession{}).
		Where("session_id = ? AND status = ?", sessionID, models.SessionStatusActive).
		Updates(map[string]interface{}{
			"status":   models.SessionStatusEnded,
			"ended_at": &now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListActive 查询指定时间后仍活跃的会话，启动恢复时使用
func (r *gameSessionRepo) ListActive(ctx context.Context, activeSince time.Time) ([]*models.GameSession, error) {
	var sessions []*models.GameSession
	err := r.db.WithContext(ctx).
		Where("status = ? AND last_active_at >= ?", models.SessionStatusActive, activeSince).
		Order("last_active_at DESC").
		Find(&sessions).Error
	return sessions, err
}

// EndExpired 结束长时间不活跃的会话，keep 中的会话仍在使用，跳过
func (r *gameSessionRepo) EndExpired(ctx context.Context, inactiveBefore time.Time, keep []string) (int64, error) {
	now := time.Now()
	q := r.db.WithContext(ctx).
		Model(&models.GameSession{}).
		Where("status = ? AND last_active_at < ?", models.SessionStatusActive, inactiveBefore)
	if len(keep) > 0 {
		q = q.Where("session_id NOT IN ?", keep)
	}
	result := q.Updates(map[string]interface{}{
			"status":   models.SessionStatusEnded,
			"ended_at": &now,
		})
	return result.RowsAffected, result.Error
}
