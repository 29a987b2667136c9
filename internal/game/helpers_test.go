package game

import (
	"context"
	"sync"
	"testing"
	"time"

	apperrors "github.com/wfunc/spin-engine/internal/errors"
	"github.com/wfunc/spin-engine/internal/game/slot"
	"github.com/wfunc/spin-engine/internal/repository"
	"gorm.io/gorm"
)

// mapProvider 测试用配置来源
type mapProvider map[string]*slot.GameConfig

func (m mapProvider) GetConfig(_ context.Context, gameID string) (*slot.GameConfig, error) {
	cfg, ok := m[gameID]
	if !ok {
		return nil, apperrors.Newf(apperrors.ErrNotFound, "游戏 %s 不存在", gameID)
	}
	return cfg, nil
}

// plainConfig 关闭全部特殊功能
func plainConfig() *slot.GameConfig {
	cfg := slot.GetDefaultConfig()
	cfg.GameID = "plain"
	cfg.Features = slot.Features{}
	return cfg
}

// alwaysMultiplierConfig 每次旋转都触发倍率功能
func alwaysMultiplierConfig() *slot.GameConfig {
	cfg := plainConfig()
	cfg.GameID = "always_multiplier"
	cfg.Features.Multiplier = slot.MultiplierConfig{
		Enabled:     true,
		Probability: 1,
		Values:      []slot.WeightedValue{{Value: 2, Weight: 1}},
	}
	return cfg
}

// recorder 收集状态通知
type recorder struct {
	mu    sync.Mutex
	items []Notification
}

func (r *recorder) listen(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

func (r *recorder) states(sessionID string) []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []State
	for _, n := range r.items {
		if n.SessionID == sessionID {
			out = append(out, n.State)
		}
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = nil
}

type testEnv struct {
	db       *gorm.DB
	repos    *repository.Manager
	sessions *SessionManager
	service  *SpinService
	recorder *recorder
}

func newTestEnv(t *testing.T, initialBalance int64) *testEnv {
	t.Helper()
	db := repository.SetupTestDB()
	t.Cleanup(func() { repository.CleanupTestDB(db) })

	repos := repository.NewManager(db)
	sessions := NewSessionManager(&SessionConfig{
		Repos:          repos,
		SessionTimeout: time.Hour,
		MaxSessions:    10,
		InitialBalance: initialBalance,
	})
	rec := &recorder{}
	sessions.AddListener(rec.listen)

	provider := mapProvider{}
	for _, id := range slot.PresetIDs() {
		provider[id] = slot.GetConfigByID(id)
	}
	for _, cfg := range []*slot.GameConfig{plainConfig(), alwaysMultiplierConfig()} {
		provider[cfg.GameID] = cfg
	}

	service := NewSpinService(&SpinServiceConfig{
		Configs:       provider,
		Sessions:      sessions,
		Repos:         repos,
		Seeds:         slot.NewSeedSource("test-key"),
		LedgerTimeout: time.Second,
	})
	return &testEnv{db: db, repos: repos, sessions: sessions, service: service, recorder: rec}
}
