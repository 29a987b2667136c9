package game

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/wfunc/spin-engine/internal/errors"
	"github.com/wfunc/spin-engine/internal/metrics"
	"github.com/wfunc/spin-engine/internal/models"
	"github.com/wfunc/spin-engine/internal/repository"
	"go.uber.org/zap"
)

// Session 内存中的活跃会话，一个会话一个状态机
type Session struct {
	ID        string
	PlayerID  string
	GameID    string
	Machine   *StateMachine
	StartedAt time.Time

	lastActive atomic.Int64
	// spinMu 同一会话同一时刻只处理一个旋转
	spinMu sync.Mutex
}

func newSession(id, playerID, gameID string, startedAt time.Time, logger *zap.Logger) *Session {
	s := &Session{
		ID:        id,
		PlayerID:  playerID,
		GameID:    gameID,
		Machine:   NewStateMachine(id, logger),
		StartedAt: startedAt,
	}
	s.Touch()
	return s
}

// Touch 更新活动时间
func (s *Session) Touch() {
	s.lastActive.Store(time.Now().UnixNano())
}

// LastActive 最后活动时间
func (s *Session) LastActive() time.Time {
	return time.Unix(0, s.lastActive.Load())
}

// SessionInfo 会话信息
type SessionInfo struct {
	SessionID string    `json:"session_id"`
	PlayerID  string    `json:"player_id"`
	GameID    string    `json:"game_id"`
	Balance   int64     `json:"balance"`
	State     State     `json:"state"`
	StartedAt time.Time `json:"started_at"`
	SpinCount int64     `json:"spin_count"`
	TotalBet  int64     `json:"total_bet"`
	TotalWin  int64     `json:"total_win"`
}

// SessionConfig 会话管理器配置
type SessionConfig struct {
	Repos          *repository.Manager
	Logger         *zap.Logger
	SessionTimeout time.Duration
	MaxSessions    int
	InitialBalance int64
}

// SessionManager 会话管理器
type SessionManager struct {
	mu        sync.RWMutex
	sessions  map[string]*Session
	listeners []Listener
	// createMu 串行化“查库再创建”，同一玩家并发开局只落一条会话
	createMu sync.Mutex

	repos          *repository.Manager
	logger         *zap.Logger
	sessionTimeout time.Duration
	maxSessions    int
	initialBalance int64
}

// NewSessionManager 创建会话管理器
func NewSessionManager(cfg *SessionConfig) *SessionManager {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.SessionTimeout
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	return &SessionManager{
		sessions:       make(map[string]*Session),
		repos:          cfg.Repos,
		logger:         logger,
		sessionTimeout: timeout,
		maxSessions:    cfg.MaxSessions,
		initialBalance: cfg.InitialBalance,
	}
}

// AddListener 为所有会话的状态机注册监听器，包括之后创建的会话
func (sm *SessionManager) AddListener(l Listener) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.listeners = append(sm.listeners, l)
	for _, s := range sm.sessions {
		s.Machine.Register(l)
	}
}

// GetOrCreate 获取玩家在该游戏的活跃会话，不存在时开户并创建会话
func (sm *SessionManager) GetOrCreate(ctx context.Context, playerID, gameID string) (*SessionInfo, error) {
	if playerID == "" || gameID == "" {
		return nil, apperrors.New(apperrors.ErrInvalidParam, "player_id 和 game_id 不能为空")
	}

	if s := sm.findByPlayer(playerID, gameID); s != nil {
		wallet, err := sm.repos.Wallet().GetOrCreate(ctx, playerID, sm.initialBalance)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery, "获取钱包失败")
		}
		s.Touch()
		return sm.info(ctx, s, wallet.Balance)
	}

	sm.createMu.Lock()
	defer sm.createMu.Unlock()
	// 开户也在锁内，避免并发重复开户
	wallet, err := sm.repos.Wallet().GetOrCreate(ctx, playerID, sm.initialBalance)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery, "获取钱包失败")
	}
	if s := sm.findByPlayer(playerID, gameID); s != nil {
		s.Touch()
		return sm.info(ctx, s, wallet.Balance)
	}

	if sm.maxSessions > 0 && sm.Count() >= sm.maxSessions {
		sm.logger.Warn("会话数量已达上限", zap.Int("max_sessions", sm.maxSessions))
		return nil, apperrors.Newf(apperrors.ErrTooManySessions, "上限 %d", sm.maxSessions)
	}

	// 内存中没有但库里仍活跃（被清理出内存或启动时超过上限未恢复），沿用原会话
	existing, err := sm.repos.GameSession().FindActiveByPlayer(ctx, playerID, gameID, time.Now().Add(-sm.sessionTimeout))
	switch {
	case err == nil:
		s := sm.attach(existing)
		s.Touch()
		sm.logger.Info("沿用数据库中的活跃会话",
			zap.String("session_id", s.ID),
			zap.String("player_id", playerID),
			zap.String("game_id", gameID))
		return sm.info(ctx, s, wallet.Balance)
	case !errors.Is(err, repository.ErrNotFound):
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery, "查询会话失败")
	}

	record := &models.GameSession{
		SessionID: uuid.NewString(),
		PlayerID:  playerID,
		GameID:    gameID,
	}
	if err := sm.repos.GameSession().Create(ctx, record); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseInsert, "创建会话失败")
	}

	s := sm.attach(record)
	sm.logger.Info("创建游戏会话",
		zap.String("session_id", s.ID),
		zap.String("player_id", playerID),
		zap.String("game_id", gameID))
	return sm.info(ctx, s, wallet.Balance)
}

func (sm *SessionManager) findByPlayer(playerID, gameID string) *Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	for _, s := range sm.sessions {
		if s.PlayerID == playerID && s.GameID == gameID {
			return s
		}
	}
	return nil
}

// attach 为数据库中的会话创建状态机并放入内存
func (sm *SessionManager) attach(record *models.GameSession) *Session {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if s, ok := sm.sessions[record.SessionID]; ok {
		return s
	}
	s := newSession(record.SessionID, record.PlayerID, record.GameID, record.StartedAt, sm.logger)
	for _, l := range sm.listeners {
		s.Machine.Register(l)
	}
	sm.sessions[s.ID] = s
	metrics.ActiveSessions.Set(float64(len(sm.sessions)))
	return s
}

// Get 获取会话。内存中没有时从数据库恢复仍活跃且未超时的会话
func (sm *SessionManager) Get(ctx context.Context, sessionID string) (*Session, error) {
	sm.mu.RLock()
	s, ok := sm.sessions[sessionID]
	sm.mu.RUnlock()
	if ok {
		return s, nil
	}

	record, err := sm.repos.GameSession().FindBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Newf(apperrors.ErrSessionNotFound, "会话 %s", sessionID)
		}
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery, "查询会话失败")
	}
	if !record.IsActive() || time.Since(record.LastActiveAt) > sm.sessionTimeout {
		return nil, apperrors.Newf(apperrors.ErrSessionNotFound, "会话 %s 已结束", sessionID)
	}

	s = sm.attach(record)
	sm.logger.Info("从数据库恢复会话", zap.String("session_id", sessionID))
	return s, nil
}

// Info 会话信息，含当前余额和统计
func (sm *SessionManager) Info(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s, err := sm.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	wallet, err := sm.repos.Wallet().FindByPlayerID(ctx, s.PlayerID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery, "查询钱包失败")
	}
	return sm.info(ctx, s, wallet.Balance)
}

func (sm *SessionManager) info(ctx context.Context, s *Session, balance int64) (*SessionInfo, error) {
	info := &SessionInfo{
		SessionID: s.ID,
		PlayerID:  s.PlayerID,
		GameID:    s.GameID,
		Balance:   balance,
		State:     s.Machine.State(),
		StartedAt: s.StartedAt,
	}
	record, err := sm.repos.GameSession().FindBySessionID(ctx, s.ID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery, "查询会话失败")
	}
	info.SpinCount = record.SpinCount
	info.TotalBet = record.TotalBet
	info.TotalWin = record.TotalWin
	return info, nil
}

// End 结束会话
func (sm *SessionManager) End(ctx context.Context, sessionID string) error {
	s, err := sm.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if !s.Machine.CanAcceptInput() {
		return apperrors.Newf(apperrors.ErrSpinInProgress, "状态 %s", s.Machine.State())
	}
	if err := sm.repos.GameSession().EndSession(ctx, sessionID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return apperrors.Wrap(err, apperrors.ErrDatabaseUpdate, "结束会话失败")
	}
	sm.remove(sessionID)
	sm.logger.Info("结束游戏会话", zap.String("session_id", sessionID))
	return nil
}

func (sm *SessionManager) remove(sessionID string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.sessions, sessionID)
	metrics.ActiveSessions.Set(float64(len(sm.sessions)))
}

// CleanupInactiveSessions 移出超时的空闲会话并在数据库中结束它们，返回移出数量
func (sm *SessionManager) CleanupInactiveSessions(ctx context.Context) int {
	cutoff := time.Now().Add(-sm.sessionTimeout)

	sm.mu.Lock()
	var removed, kept []string
	for id, s := range sm.sessions {
		// 旋转中的会话不能丢弃
		if s.LastActive().Before(cutoff) && s.Machine.CanAcceptInput() {
			delete(sm.sessions, id)
			removed = append(removed, id)
			continue
		}
		kept = append(kept, id)
	}
	metrics.ActiveSessions.Set(float64(len(sm.sessions)))
	sm.mu.Unlock()

	ended, err := sm.repos.GameSession().EndExpired(ctx, cutoff, kept)
	if err != nil {
		sm.logger.Error("结束超时会话失败", zap.Error(err))
	}
	if len(removed) > 0 || ended > 0 {
		sm.logger.Info("清理超时会话", zap.Int("evicted", len(removed)), zap.Int64("ended", ended))
	}
	return len(removed)
}

// StartCleanupTask 启动定时清理，ctx 取消时退出
func (sm *SessionManager) StartCleanupTask(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				sm.logger.Info("停止会话清理任务")
				return
			case <-ticker.C:
				sm.CleanupInactiveSessions(ctx)
			}
		}
	}()
}

// Count 内存中的会话数
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// TransitionMetrics 状态机监听器，按进入的状态计数
func TransitionMetrics(n Notification) {
	metrics.StateTransitions.WithLabelValues(string(n.State)).Inc()
}
