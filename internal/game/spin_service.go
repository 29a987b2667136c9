package game

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	apperrors "github.com/wfunc/spin-engine/internal/errors"
	"github.com/wfunc/spin-engine/internal/game/slot"
	"github.com/wfunc/spin-engine/internal/models"
	"github.com/wfunc/spin-engine/internal/repository"
	"go.uber.org/zap"
)

// ConfigProvider 只读的游戏配置来源
type ConfigProvider interface {
	GetConfig(ctx context.Context, gameID string) (*slot.GameConfig, error)
}

// SpinObserver 旋转指标
type SpinObserver interface {
	ObserveSpin(gameID string, wager, payout int64, feature string, elapsed time.Duration)
	ObserveFailure(gameID string, code int)
	ObserveCommit(elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveSpin(string, int64, int64, string, time.Duration) {}
func (nopObserver) ObserveFailure(string, int)                              {}
func (nopObserver) ObserveCommit(time.Duration)                             {}

// SpinServiceConfig 旋转服务配置
type SpinServiceConfig struct {
	Configs       ConfigProvider
	Sessions      *SessionManager
	Repos         *repository.Manager
	Seeds         *slot.SeedSource
	LedgerTimeout time.Duration
	Observer      SpinObserver
	Logger        *zap.Logger
}

// SpinService 旋转流水线：校验、生成结果、提交账本、驱动状态机
type SpinService struct {
	configs       ConfigProvider
	sessions      *SessionManager
	repos         *repository.Manager
	seeds         *slot.SeedSource
	ledgerTimeout time.Duration
	observer      SpinObserver
	logger        *zap.Logger
	now           func() time.Time
}

// NewSpinService 创建旋转服务
func NewSpinService(cfg *SpinServiceConfig) *SpinService {
	s := &SpinService{
		configs:       cfg.Configs,
		sessions:      cfg.Sessions,
		repos:         cfg.Repos,
		seeds:         cfg.Seeds,
		ledgerTimeout: cfg.LedgerTimeout,
		observer:      cfg.Observer,
		logger:        cfg.Logger,
		now:           func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.observer == nil {
		s.observer = nopObserver{}
	}
	if s.ledgerTimeout <= 0 {
		s.ledgerTimeout = 3 * time.Second
	}
	if s.seeds == nil {
		s.seeds = slot.NewSeedSource("")
	}
	return s
}

// Spin 执行一次旋转
func (s *SpinService) Spin(ctx context.Context, req *SpinRequest) (*SpinResponse, error) {
	start := time.Now()
	resp, err := s.spin(ctx, req)
	if err != nil {
		s.observer.ObserveFailure(req.GameID, int(apperrors.GetCode(err)))
		return nil, err
	}
	if !resp.Replayed {
		s.observer.ObserveSpin(req.GameID, req.Wager, resp.Outcome.TotalWin, featureType(resp.Outcome), time.Since(start))
	}
	return resp, nil
}

func (s *SpinService) spin(ctx context.Context, req *SpinRequest) (*SpinResponse, error) {
	cfg, err := s.configs.GetConfig(ctx, req.GameID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrConfigLoad)
	}
	if req.Wager <= 0 || req.Wager < cfg.MinBet || req.Wager > cfg.MaxBet {
		return nil, apperrors.Newf(apperrors.ErrInvalidBet, "%d 不在 [%d, %d] 范围内", req.Wager, cfg.MinBet, cfg.MaxBet)
	}
	if req.SpinIndex < 0 {
		return nil, apperrors.New(apperrors.ErrInvalidParam, "spin_index 不能为负")
	}

	session, err := s.sessions.Get(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if session.GameID != req.GameID {
		return nil, apperrors.Newf(apperrors.ErrSessionMismatch, "会话属于 %s", session.GameID)
	}
	if !session.spinMu.TryLock() {
		return nil, apperrors.New(apperrors.ErrSpinInProgress)
	}
	defer session.spinMu.Unlock()
	session.Touch()

	log := s.logger.With(zap.String("session_id", session.ID), zap.String("game_id", req.GameID))

	// 同一序号已提交：返回已存储的结果，不扣款也不驱动状态机
	if req.SpinIndex > 0 {
		record, err := s.repos.SpinRecord().Get(ctx, session.ID, req.SpinIndex)
		if err == nil {
			return s.replayStored(ctx, session, record, req)
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery, "查询账本失败")
		}
	}

	machine := session.Machine
	if !machine.RequestSpin() {
		return nil, machine.Err()
	}

	wallet, err := s.repos.Wallet().FindByPlayerID(ctx, session.PlayerID)
	if err != nil {
		machine.Cancel()
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery, "查询余额失败")
	}
	if wallet.Balance < req.Wager {
		machine.Cancel()
		log.Info("余额不足", zap.Int64("balance", wallet.Balance), zap.Int64("wager", req.Wager))
		return nil, apperrors.Newf(apperrors.ErrInsufficientBalance, "余额 %d, 投注 %d", wallet.Balance, req.Wager)
	}

	machine.StartSpinning()
	outcome, seed, err := s.generate(ctx, cfg, session.ID, req)
	if err != nil {
		machine.Reset()
		return nil, err
	}
	payload, err := json.Marshal(outcome)
	if err != nil {
		machine.Reset()
		return nil, apperrors.Wrap(err, apperrors.ErrUnknown, "序列化结果失败")
	}

	commitCtx, cancel := context.WithTimeout(ctx, s.ledgerTimeout)
	defer cancel()
	commitStart := time.Now()
	result, err := s.repos.Ledger().Commit(commitCtx, &repository.SpinCommit{
		SessionID:      session.ID,
		SpinIndex:      req.SpinIndex,
		SpinID:         outcome.SpinID,
		PlayerID:       session.PlayerID,
		GameID:         req.GameID,
		Wager:          req.Wager,
		Payout:         outcome.TotalWin,
		Seed:           seed.Value,
		SeedCommitment: seed.Commitment,
		FeatureType:    featureType(outcome),
		Outcome:        string(payload),
	})
	s.observer.ObserveCommit(time.Since(commitStart))
	if err != nil {
		// 未提交的结果作废，余额未变
		machine.Reset()
		appErr := commitError(err)
		log.Error("旋转提交失败", zap.String("spin_id", outcome.SpinID), zap.Error(err))
		return nil, appErr
	}

	if machine.StopReels(outcome) && machine.Evaluate() {
		if err := machine.RunToIdle(); err != nil {
			log.Error("状态机推进失败", zap.Error(err))
			machine.Reset()
		}
	} else {
		log.Error("状态机停轮失败", zap.Error(machine.Err()))
		machine.Reset()
	}

	log.Info("旋转完成",
		zap.Int64("spin_index", result.Record.SpinIndex),
		zap.String("spin_id", outcome.SpinID),
		zap.Int64("wager", req.Wager),
		zap.Int64("payout", outcome.TotalWin),
		zap.Int64("balance", result.Balance))

	return &SpinResponse{
		SessionID:      session.ID,
		SpinIndex:      result.Record.SpinIndex,
		Outcome:        outcome,
		Balance:        result.Balance,
		SeedCommitment: seed.Commitment,
	}, nil
}

// generate 生成种子和结果
func (s *SpinService) generate(ctx context.Context, cfg *slot.GameConfig, sessionID string, req *SpinRequest) (*slot.SpinOutcome, slot.Seed, error) {
	index := req.SpinIndex
	if index == 0 {
		next, err := s.repos.SpinRecord().NextSpinIndex(ctx, sessionID)
		if err != nil {
			return nil, slot.Seed{}, apperrors.Wrap(err, apperrors.ErrPersistence, "分配旋转序号失败")
		}
		index = next
	}

	seed, err := s.seeds.Next(sessionID, index)
	if err != nil {
		return nil, slot.Seed{}, apperrors.Wrap(err, apperrors.ErrUnknown, "生成种子失败")
	}
	outcome, err := slot.GenerateOutcome(cfg, req.Wager, seed.Value,
		slot.WithSpinID(uuid.NewString()),
		slot.WithTimestamp(s.now()))
	if err != nil {
		return nil, slot.Seed{}, apperrors.Wrap(err, apperrors.ErrInvalidBet)
	}
	return outcome, seed, nil
}

// commitError 账本错误映射为对外错误码
func commitError(err error) *apperrors.AppError {
	switch {
	case errors.Is(err, repository.ErrInsufficientBalance):
		return apperrors.New(apperrors.ErrInsufficientBalance)
	case errors.Is(err, repository.ErrSpinIndexMismatch), errors.Is(err, repository.ErrDuplicate):
		return apperrors.Wrap(err, apperrors.ErrSpinIndexConflict)
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.Wrap(err, apperrors.ErrPersistence, "账本提交超时")
	default:
		return apperrors.Wrap(err, apperrors.ErrPersistence)
	}
}

func (s *SpinService) replayStored(ctx context.Context, session *Session, record *models.SpinRecord, req *SpinRequest) (*SpinResponse, error) {
	if record.Wager != req.Wager || record.GameID != req.GameID {
		return nil, apperrors.Newf(apperrors.ErrSpinIndexConflict, "序号 %d 已用于另一笔投注", req.SpinIndex)
	}
	outcome, err := decodeOutcome(record)
	if err != nil {
		return nil, err
	}
	wallet, err := s.repos.Wallet().FindByPlayerID(ctx, session.PlayerID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery, "查询余额失败")
	}
	s.logger.Info("重复的旋转请求，返回已提交结果",
		zap.String("session_id", session.ID),
		zap.Int64("spin_index", record.SpinIndex))
	return &SpinResponse{
		SessionID:      session.ID,
		SpinIndex:      record.SpinIndex,
		Outcome:        outcome,
		Balance:        wallet.Balance,
		SeedCommitment: record.SeedCommitment,
		Replayed:       true,
	}, nil
}

func decodeOutcome(record *models.SpinRecord) (*slot.SpinOutcome, error) {
	var outcome slot.SpinOutcome
	if err := json.Unmarshal([]byte(record.Outcome), &outcome); err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrDataIntegrity, "账本 %s/%d 结果损坏", record.SessionID, record.SpinIndex)
	}
	return &outcome, nil
}

// Verify 用存储的种子重新生成结果，并与账本中的快照逐字节比较
func (s *SpinService) Verify(ctx context.Context, sessionID string, spinIndex int64) (*VerifyResult, error) {
	record, err := s.repos.SpinRecord().Get(ctx, sessionID, spinIndex)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Newf(apperrors.ErrNotFound, "旋转 %s/%d", sessionID, spinIndex)
		}
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	stored, err := decodeOutcome(record)
	if err != nil {
		return nil, err
	}
	cfg, err := s.configs.GetConfig(ctx, record.GameID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrConfigLoad)
	}

	regenerated, err := slot.GenerateOutcome(cfg, record.Wager, record.Seed,
		slot.WithSpinID(stored.SpinID),
		slot.WithTimestamp(stored.Timestamp))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrReplayMismatch)
	}

	storedJSON, err := json.Marshal(stored)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrUnknown)
	}
	regeneratedJSON, err := json.Marshal(regenerated)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrUnknown)
	}

	result := &VerifyResult{
		SessionID:       sessionID,
		SpinIndex:       spinIndex,
		SpinID:          stored.SpinID,
		Seed:            record.Seed,
		SeedCommitment:  record.SeedCommitment,
		CommitmentValid: slot.VerifyCommitment(record.Seed, record.SeedCommitment),
		OutcomeMatch:    bytes.Equal(storedJSON, regeneratedJSON),
		Outcome:         regenerated,
	}
	if !result.CommitmentValid || !result.OutcomeMatch {
		s.logger.Error("旋转重放校验失败",
			zap.String("session_id", sessionID),
			zap.Int64("spin_index", spinIndex),
			zap.Bool("commitment_valid", result.CommitmentValid),
			zap.Bool("outcome_match", result.OutcomeMatch))
		return result, apperrors.Newf(apperrors.ErrReplayMismatch, "旋转 %s/%d", sessionID, spinIndex)
	}
	return result, nil
}

// History 分页查询会话账本，最新在前
func (s *SpinService) History(ctx context.Context, sessionID string, page, pageSize int) (*SpinHistory, error) {
	if _, err := s.repos.GameSession().FindBySessionID(ctx, sessionID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Newf(apperrors.ErrSessionNotFound, "会话 %s", sessionID)
		}
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}

	p := repository.NewPagination(page, pageSize)
	records, err := s.repos.SpinRecord().ListBySession(ctx, sessionID, p)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery, "查询账本失败")
	}

	history := &SpinHistory{SessionID: sessionID, Page: p.Page, PageSize: p.PageSize, Total: p.Total}
	for _, r := range records {
		item := &SpinHistoryItem{
			SpinIndex:      r.SpinIndex,
			SpinID:         r.SpinID,
			Wager:          r.Wager,
			Payout:         r.Payout,
			BalanceAfter:   r.BalanceAfter,
			FeatureType:    r.FeatureType,
			SeedCommitment: r.SeedCommitment,
			CreatedAt:      r.CreatedAt,
		}
		if outcome, err := decodeOutcome(r); err == nil {
			item.Outcome = outcome
		} else {
			s.logger.Warn("账本结果无法解析", zap.String("session_id", sessionID), zap.Int64("spin_index", r.SpinIndex))
		}
		history.Items = append(history.Items, item)
	}
	return history, nil
}

// AuditRTP 按游戏汇总实际回报率并与目标比较
func (s *SpinService) AuditRTP(ctx context.Context, gameID string) (*RTPReport, error) {
	audit, err := s.repos.SpinRecord().AuditRTP(ctx, gameID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery, "汇总回报率失败")
	}
	report := &RTPReport{
		GameID:      gameID,
		Spins:       audit.Spins,
		TotalWager:  audit.TotalWager,
		TotalPayout: audit.TotalPayout,
		ActualRTP:   audit.ActualRTP,
		FirstSpinAt: audit.FirstSpinAt,
		LastSpinAt:  audit.LastSpinAt,
	}
	if cfg, err := s.configs.GetConfig(ctx, gameID); err == nil {
		report.TargetRTP = decimal.NewFromFloat(cfg.RTP)
		report.Deviation = report.ActualRTP.Sub(report.TargetRTP)
	} else if audit.Spins == 0 {
		return nil, err
	} else {
		s.logger.Warn("游戏已下线，只返回实际回报率", zap.String("game_id", gameID), zap.Error(err))
	}
	return report, nil
}

func featureType(o *slot.SpinOutcome) string {
	if o == nil || o.FeatureTrigger == nil {
		return ""
	}
	return string(o.FeatureTrigger.Type)
}
