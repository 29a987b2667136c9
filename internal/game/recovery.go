package game

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// RecoveryReport 启动恢复结果
type RecoveryReport struct {
	Expired  int64 `json:"expired"`
	Restored int   `json:"restored"`
	Skipped  int   `json:"skipped"`
}

// RecoverSessions 服务启动时恢复会话。
// 旋转在一个事务内提交，进程退出时不存在半完成的旋转，恢复的状态机一律从 IDLE 开始：
// 先结束超时的会话，再把仍活跃的会话装入内存，超过会话上限的部分留在数据库中按需恢复。
func (sm *SessionManager) RecoverSessions(ctx context.Context) (*RecoveryReport, error) {
	cutoff := time.Now().Add(-sm.sessionTimeout)
	report := &RecoveryReport{}

	expired, err := sm.repos.GameSession().EndExpired(ctx, cutoff, nil)
	if err != nil {
		return nil, fmt.Errorf("结束超时会话失败: %w", err)
	}
	report.Expired = expired

	active, err := sm.repos.GameSession().ListActive(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("加载活跃会话失败: %w", err)
	}
	for _, record := range active {
		if sm.maxSessions > 0 && sm.Count() >= sm.maxSessions {
			report.Skipped++
			continue
		}
		sm.attach(record)
		report.Restored++
	}

	sm.logger.Info("会话恢复完成",
		zap.Int64("expired", report.Expired),
		zap.Int("restored", report.Restored),
		zap.Int("skipped", report.Skipped))
	return report, nil
}
