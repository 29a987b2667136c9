package slot

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidConfig 配置结构校验失败
var ErrInvalidConfig = errors.New("无效的游戏配置")

var validate = validator.New()

// ConfigError 配置校验错误，列出所有问题
type ConfigError struct {
	GameID   string
	Problems []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("游戏 %q 配置无效: %s", e.GameID, strings.Join(e.Problems, "; "))
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}

// ValidateConfig 校验配置：先做字段级校验，再做结构性校验。
// 校验失败的游戏不得上线。
func ValidateConfig(cfg *GameConfig) error {
	if cfg == nil {
		return &ConfigError{Problems: []string{"配置为空"}}
	}

	cerr := &ConfigError{GameID: cfg.GameID}
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				cerr.add("字段 %s 不满足 %s=%s", fe.Namespace(), fe.Tag(), fe.Param())
			}
		} else {
			cerr.add("%v", err)
		}
		// 字段不合法时结构性校验没有意义
		return cerr
	}

	checkSymbols(cfg, cerr)
	checkPaytable(cfg, cerr)
	checkFeatures(cfg, cerr)

	if len(cerr.Problems) > 0 {
		return cerr
	}
	return nil
}

func (e *ConfigError) add(format string, args ...interface{}) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

func symbolTypes(cfg *GameConfig) map[string]SymbolType {
	types := make(map[string]SymbolType, len(cfg.SymbolWeights))
	for _, sw := range cfg.SymbolWeights {
		types[sw.ID] = sw.Type
	}
	return types
}

func checkSymbols(cfg *GameConfig, cerr *ConfigError) {
	seen := make(map[string]bool, len(cfg.SymbolWeights))
	normals := 0
	for _, sw := range cfg.SymbolWeights {
		if seen[sw.ID] {
			cerr.add("符号 %s 重复声明", sw.ID)
		}
		seen[sw.ID] = true
		if sw.Type == SymbolNormal {
			normals++
		}
	}
	if normals == 0 {
		cerr.add("至少需要一个普通符号")
	}
}

func checkPaytable(cfg *GameConfig, cerr *ConfigError) {
	types := symbolTypes(cfg)
	pt := cfg.Paytable
	ways := pt.Ways || cfg.Features.Megaways.Enabled

	rows := make(map[string]bool, len(pt.Symbols))
	for _, row := range pt.Symbols {
		typ, ok := types[row.Symbol]
		switch {
		case !ok:
			cerr.add("赔率表引用了未声明的符号 %s", row.Symbol)
		case typ == SymbolScatter || typ == SymbolBonus:
			cerr.add("符号 %s 类型为 %s，不能出现在线赔率表中", row.Symbol, typ)
		}
		if rows[row.Symbol] {
			cerr.add("符号 %s 的赔率行重复", row.Symbol)
		}
		rows[row.Symbol] = true
		if len(row.Payouts) != cfg.ReelLayout.Reels {
			cerr.add("符号 %s 的赔率行长度 %d 与轴数 %d 不一致", row.Symbol, len(row.Payouts), cfg.ReelLayout.Reels)
		}
	}
	for _, sw := range cfg.SymbolWeights {
		if sw.Type == SymbolNormal && !rows[sw.ID] {
			cerr.add("普通符号 %s 缺少赔率行", sw.ID)
		}
	}

	for _, id := range pt.WildRules.CanSubstitute {
		if types[id] != SymbolNormal {
			cerr.add("百搭可替代符号 %s 不是普通符号", id)
		}
	}
	if pt.WildRules.Expanding && ways {
		cerr.add("扩展百搭仅支持支付线模式")
	}

	if !ways {
		if len(pt.Paylines) == 0 {
			cerr.add("支付线模式至少需要一条支付线")
		}
		ids := make(map[int]bool, len(pt.Paylines))
		for _, line := range pt.Paylines {
			if ids[line.ID] {
				cerr.add("支付线 %d 重复", line.ID)
			}
			ids[line.ID] = true
			if len(line.Rows) != cfg.ReelLayout.Reels {
				cerr.add("支付线 %d 长度 %d 与轴数 %d 不一致", line.ID, len(line.Rows), cfg.ReelLayout.Reels)
				continue
			}
			for reel, row := range line.Rows {
				if row >= cfg.ReelLayout.Rows {
					cerr.add("支付线 %d 第 %d 轴行号 %d 越界", line.ID, reel, row)
				}
			}
		}
	}

	if len(pt.ScatterPayouts) > 0 {
		hasScatter := false
		for _, typ := range types {
			if typ == SymbolScatter {
				hasScatter = true
			}
		}
		if !hasScatter {
			cerr.add("配置了分散赔付但没有分散符号")
		}
		counts := make([]int, 0, len(pt.ScatterPayouts))
		for count := range pt.ScatterPayouts {
			counts = append(counts, count)
		}
		sort.Ints(counts)
		for _, count := range counts {
			if count <= 0 {
				cerr.add("分散赔付数量 %d 无效", count)
			}
			if pt.ScatterPayouts[count] < 0 {
				cerr.add("分散赔付 %d 的赔率为负", count)
			}
		}
	}
}

func checkFeatures(cfg *GameConfig, cerr *ConfigError) {
	types := symbolTypes(cfg)
	f := cfg.Features

	if fs := f.FreeSpins; fs.Enabled {
		if types[fs.TriggerSymbol] != SymbolScatter {
			cerr.add("免费旋转触发符号 %q 必须是分散符号", fs.TriggerSymbol)
		}
		if fs.TriggerCount < 1 || fs.Spins < 1 {
			cerr.add("免费旋转需要 triggerCount>=1 且 spins>=1")
		}
	}
	if hw := f.HoldAndWin; hw.Enabled {
		if types[hw.TriggerSymbol] != SymbolBonus {
			cerr.add("锁定重转触发符号 %q 必须是奖励符号", hw.TriggerSymbol)
		}
		if hw.TriggerCount < 1 || hw.Respins < 1 {
			cerr.add("锁定重转需要 triggerCount>=1 且 respins>=1")
		}
		if len(hw.PrizeValues) == 0 {
			cerr.add("锁定重转缺少奖金配置")
		}
	}
	if m := f.Multiplier; m.Enabled && len(m.Values) == 0 {
		cerr.add("随机倍率缺少倍率配置")
	}
	if mw := f.Megaways; mw.Enabled {
		if mw.MinRows < 1 || mw.MaxRows < mw.MinRows || mw.MaxRows > 12 {
			cerr.add("megaways 行数范围 [%d, %d] 无效", mw.MinRows, mw.MaxRows)
		}
	}
	if t := f.Tumble; t.Enabled && t.MaxCascades < 1 {
		cerr.add("消除掉落需要 maxCascades>=1")
	}
	if rb := f.RandomBonus; rb.Enabled && rb.FreeSpins < 1 {
		cerr.add("随机奖励需要 freeSpins>=1")
	}
}

// IsWays 是否按路计算
func (c *GameConfig) IsWays() bool {
	return c.Paytable.Ways || c.Features.Megaways.Enabled
}
