// Package catalog 游戏配置目录：先查远程配置库，未收录或不可用时回退到静态配置。
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	apperrors "github.com/wfunc/spin-engine/internal/errors"
	"github.com/wfunc/spin-engine/internal/game/slot"
	"github.com/wfunc/spin-engine/internal/metrics"
	"github.com/wfunc/spin-engine/internal/models"
	"github.com/wfunc/spin-engine/internal/repository"
	"go.uber.org/zap"
)

// Source 配置来源
type Source string

const (
	SourceRemote Source = "remote"
	SourceStatic Source = "static"
)

// RemoteStore 远程配置库。Find/List 返回停用的记录，停用的游戏不回退到静态配置
type RemoteStore interface {
	Find(ctx context.Context, gameID string) (*models.GameDefinition, error)
	List(ctx context.Context) ([]*models.GameDefinition, error)
	Upsert(ctx context.Context, def *models.GameDefinition) error
}

// Resolved 解析结果
type Resolved struct {
	Config  *slot.GameConfig
	Source  Source
	Version int
}

// GameSummary 游戏列表项
type GameSummary struct {
	GameID     string          `json:"game_id"`
	Name       string          `json:"name"`
	RTP        float64         `json:"rtp"`
	Volatility slot.Volatility `json:"volatility"`
	MinBet     int64           `json:"min_bet"`
	MaxBet     int64           `json:"max_bet"`
	Reels      int             `json:"reels"`
	Rows       int             `json:"rows"`
	Ways       bool            `json:"ways"`
	Features   []string        `json:"features"`
	Source     Source          `json:"source"`
	Version    int             `json:"version"`
}

// Options 缓存参数
type Options struct {
	CacheSize int
	CacheTTL  time.Duration
}

// Catalog 显式构造、按依赖注入传递的游戏目录，配置只读，可并发使用
type Catalog struct {
	remote RemoteStore
	static *StaticStore
	cache  *expirable.LRU[string, *Resolved]
	logger *zap.Logger
}

// New 创建目录。remote 可以为 nil，此时只使用静态配置
func New(remote RemoteStore, static *StaticStore, opts Options, logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 64
	}
	if static == nil {
		static = &StaticStore{configs: map[string]*slot.GameConfig{}}
	}
	return &Catalog{
		remote: remote,
		static: static,
		cache:  expirable.NewLRU[string, *Resolved](opts.CacheSize, nil, opts.CacheTTL),
		logger: logger,
	}
}

// GetConfig 获取游戏配置
func (c *Catalog) GetConfig(ctx context.Context, gameID string) (*slot.GameConfig, error) {
	r, err := c.Resolve(ctx, gameID)
	if err != nil {
		return nil, err
	}
	return r.Config, nil
}

// Resolve 两级解析：缓存 -> 远程 -> 静态
func (c *Catalog) Resolve(ctx context.Context, gameID string) (*Resolved, error) {
	if gameID == "" {
		return nil, apperrors.New(apperrors.ErrInvalidParam, "game_id 不能为空")
	}
	if r, ok := c.cache.Get(gameID); ok {
		metrics.CatalogLookups.WithLabelValues("cache").Inc()
		return r, nil
	}

	r, err := c.resolveRemote(ctx, gameID)
	switch {
	case err == nil:
	case errors.Is(err, errRemoteMiss):
		r, err = c.resolveStatic(gameID)
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	metrics.CatalogLookups.WithLabelValues(string(r.Source)).Inc()
	c.cache.Add(gameID, r)
	return r, nil
}

// errRemoteMiss 远程未收录、未配置或不可达，应回退到静态配置
var errRemoteMiss = errors.New("远程配置未命中")

func (c *Catalog) resolveRemote(ctx context.Context, gameID string) (*Resolved, error) {
	if c.remote == nil {
		return nil, errRemoteMiss
	}
	def, err := c.remote.Find(ctx, gameID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			c.logger.Warn("远程配置库不可用，回退到静态配置", zap.String("game_id", gameID), zap.Error(err))
		}
		return nil, errRemoteMiss
	}
	if !def.Enabled {
		return nil, apperrors.Newf(apperrors.ErrNotFound, "游戏 %s 已停用", gameID)
	}

	cfg, err := decodeDefinition(def)
	if err != nil {
		// 远程配置损坏时该游戏下线，不回退
		c.logger.Error("远程游戏配置无效", zap.String("game_id", gameID), zap.Int("version", def.Version), zap.Error(err))
		return nil, apperrors.Wrap(err, apperrors.ErrConfigValidate, gameID)
	}
	return &Resolved{Config: cfg, Source: SourceRemote, Version: def.Version}, nil
}

func (c *Catalog) resolveStatic(gameID string) (*Resolved, error) {
	cfg, ok := c.static.Get(gameID)
	if !ok {
		return nil, apperrors.Newf(apperrors.ErrNotFound, "游戏 %s 不存在", gameID)
	}
	return &Resolved{Config: cfg, Source: SourceStatic}, nil
}

func decodeDefinition(def *models.GameDefinition) (*slot.GameConfig, error) {
	var cfg slot.GameConfig
	if err := json.Unmarshal([]byte(def.Config), &cfg); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrConfigParse, "解析远程配置失败")
	}
	if cfg.GameID != def.GameID {
		return nil, fmt.Errorf("配置中的 gameId %q 与记录 %q 不一致", cfg.GameID, def.GameID)
	}
	if err := slot.ValidateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// List 列出所有可提供的游戏，远程配置覆盖同名静态配置
func (c *Catalog) List(ctx context.Context) ([]GameSummary, error) {
	games := make(map[string]GameSummary)
	for _, id := range c.static.IDs() {
		cfg, _ := c.static.Get(id)
		games[id] = Summarize(cfg, SourceStatic, 0)
	}

	if c.remote != nil {
		defs, err := c.remote.List(ctx)
		if err != nil {
			c.logger.Warn("读取远程游戏列表失败，仅返回静态配置", zap.Error(err))
		}
		for _, def := range defs {
			if !def.Enabled {
				delete(games, def.GameID)
				continue
			}
			cfg, err := decodeDefinition(def)
			if err != nil {
				c.logger.Error("远程游戏配置无效，不予提供", zap.String("game_id", def.GameID), zap.Error(err))
				delete(games, def.GameID)
				continue
			}
			games[def.GameID] = Summarize(cfg, SourceRemote, def.Version)
		}
	}

	out := make([]GameSummary, 0, len(games))
	for _, g := range games {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GameID < out[j].GameID })
	return out, nil
}

// Publish 校验后写入远程配置库并使缓存失效
func (c *Catalog) Publish(ctx context.Context, cfg *slot.GameConfig, enabled bool) error {
	if c.remote == nil {
		return apperrors.New(apperrors.ErrConfigMissing, "未配置远程配置库")
	}
	if err := slot.ValidateConfig(cfg); err != nil {
		return apperrors.Wrap(err, apperrors.ErrConfigValidate)
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("序列化游戏配置失败: %w", err)
	}
	def := &models.GameDefinition{GameID: cfg.GameID, Name: cfg.Name, Enabled: enabled, Config: string(data)}
	if err := c.remote.Upsert(ctx, def); err != nil {
		return apperrors.Wrap(err, apperrors.ErrDatabaseUpdate, "发布游戏配置失败")
	}
	c.Invalidate(cfg.GameID)
	c.logger.Info("游戏配置已发布", zap.String("game_id", cfg.GameID), zap.Bool("enabled", enabled))
	return nil
}

// Invalidate 使单个游戏的缓存失效
func (c *Catalog) Invalidate(gameID string) {
	c.cache.Remove(gameID)
}

// Purge 清空缓存，配置热更新时调用
func (c *Catalog) Purge() {
	c.cache.Purge()
}

// Summarize 配置摘要
func Summarize(cfg *slot.GameConfig, source Source, version int) GameSummary {
	return GameSummary{
		GameID:     cfg.GameID,
		Name:       cfg.Name,
		RTP:        cfg.RTP,
		Volatility: cfg.Volatility,
		MinBet:     cfg.MinBet,
		MaxBet:     cfg.MaxBet,
		Reels:      cfg.ReelLayout.Reels,
		Rows:       cfg.ReelLayout.Rows,
		Ways:       cfg.IsWays(),
		Features:   enabledFeatures(cfg),
		Source:     source,
		Version:    version,
	}
}

func enabledFeatures(cfg *slot.GameConfig) []string {
	f := cfg.Features
	var out []string
	if f.FreeSpins.Enabled {
		out = append(out, string(slot.FeatureFreeSpins))
	}
	if f.HoldAndWin.Enabled {
		out = append(out, string(slot.FeatureHoldAndWin))
	}
	if f.Multiplier.Enabled {
		out = append(out, string(slot.FeatureMultiplier))
	}
	if f.Tumble.Enabled {
		out = append(out, string(slot.FeatureTumble))
	}
	if f.Megaways.Enabled {
		out = append(out, "MEGAWAYS")
	}
	return out
}
