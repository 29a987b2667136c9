package slot

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestPresetsAreValid(t *testing.T) {
	for _, id := range PresetIDs() {
		cfg := GetConfigByID(id)
		if cfg == nil {
			t.Fatalf("GetConfigByID(%q) returned nil", id)
		}
		if cfg.GameID != id {
			t.Errorf("GameID = %v, want %v", cfg.GameID, id)
		}
		if err := ValidateConfig(cfg); err != nil {
			t.Errorf("预设 %s 校验失败: %v", id, err)
		}
	}
	assert.Nil(t, GetConfigByID("missing"))
}

func TestGetConfigByID_ReturnsFreshCopy(t *testing.T) {
	a := GetConfigByID("classic_fruit")
	a.Paytable.Symbols[0].Payouts[2] = 999
	b := GetConfigByID("classic_fruit")
	assert.NotEqual(t, 999.0, b.Paytable.Symbols[0].Payouts[2])
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*GameConfig)
		problem string
	}{
		{"缺少游戏ID", func(c *GameConfig) { c.GameID = "" }, "GameID"},
		{"RTP超过1", func(c *GameConfig) { c.RTP = 1.2 }, "RTP"},
		{"最大投注小于最小投注", func(c *GameConfig) { c.MaxBet = 1 }, "MaxBet"},
		{"未知波动性", func(c *GameConfig) { c.Volatility = "wild" }, "Volatility"},
		{"零权重", func(c *GameConfig) { c.SymbolWeights[0].Weight = 0 }, "Weight"},
		{"未知符号类型", func(c *GameConfig) { c.SymbolWeights[0].Type = "golden" }, "Type"},
		{"轴数为0", func(c *GameConfig) { c.ReelLayout.Reels = 0 }, "Reels"},
		{"符号重复", func(c *GameConfig) {
			c.SymbolWeights = append(c.SymbolWeights, SymbolWeight{ID: "CHERRY", Weight: 1, Type: SymbolNormal})
		}, "重复声明"},
		{"普通符号缺少赔率行", func(c *GameConfig) {
			c.Paytable.Symbols = c.Paytable.Symbols[1:]
		}, "CHERRY 缺少赔率行"},
		{"赔率行引用未声明符号", func(c *GameConfig) {
			c.Paytable.Symbols = append(c.Paytable.Symbols, PaytableRow{Symbol: "GHOST", Payouts: []float64{0, 0, 1}})
		}, "未声明的符号 GHOST"},
		{"分散符号出现在线赔率表", func(c *GameConfig) {
			c.Paytable.Symbols = append(c.Paytable.Symbols, PaytableRow{Symbol: "SCATTER", Payouts: []float64{0, 0, 1}})
		}, "不能出现在线赔率表"},
		{"赔率行长度不符", func(c *GameConfig) { c.Paytable.Symbols[0].Payouts = []float64{1} }, "赔率行长度"},
		{"支付线越界", func(c *GameConfig) { c.Paytable.Paylines[0].Rows = []int{0, 3, 0} }, "越界"},
		{"支付线长度不符", func(c *GameConfig) { c.Paytable.Paylines[0].Rows = []int{0, 0} }, "长度"},
		{"支付线重复", func(c *GameConfig) { c.Paytable.Paylines[1].ID = c.Paytable.Paylines[0].ID }, "支付线 1 重复"},
		{"没有支付线", func(c *GameConfig) { c.Paytable.Paylines = nil }, "至少需要一条支付线"},
		{"百搭替代分散", func(c *GameConfig) { c.Paytable.WildRules.CanSubstitute = []string{"SCATTER"} }, "不是普通符号"},
		{"免费旋转触发符号不是分散", func(c *GameConfig) { c.Features.FreeSpins.TriggerSymbol = "BAR" }, "必须是分散符号"},
		{"锁定重转缺少奖金", func(c *GameConfig) {
			c.SymbolWeights = append(c.SymbolWeights, SymbolWeight{ID: "COIN", Weight: 1, Type: SymbolBonus})
			c.Features.HoldAndWin = HoldAndWinConfig{Enabled: true, TriggerSymbol: "COIN", TriggerCount: 3, Respins: 3}
		}, "缺少奖金配置"},
		{"megaways行数范围无效", func(c *GameConfig) {
			c.Features.Megaways = MegawaysConfig{Enabled: true, MinRows: 5, MaxRows: 2}
		}, "megaways"},
		{"扩展百搭与按路冲突", func(c *GameConfig) {
			c.Paytable.Ways = true
			c.Paytable.WildRules.Expanding = true
		}, "扩展百搭"},
		{"随机奖励没有免费次数", func(c *GameConfig) { c.Features.RandomBonus.Enabled = true }, "随机奖励"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)
			err := ValidateConfig(cfg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))

			var cerr *ConfigError
			require.True(t, errors.As(err, &cerr))
			assert.True(t, strings.Contains(cerr.Error(), tt.problem), "错误 %q 不包含 %q", cerr.Error(), tt.problem)
		})
	}
}

func TestValidateConfig_Nil(t *testing.T) {
	assert.ErrorIs(t, ValidateConfig(nil), ErrInvalidConfig)
}

func TestGameConfig_YAMLRoundTrip(t *testing.T) {
	const doc = `
gameId: yaml_fruit
name: YAML 水果
reelLayout: {reels: 3, rows: 1}
symbolWeights:
  - {id: A, weight: 1, type: normal}
  - {id: B, weight: 1, type: normal}
  - {id: S, weight: 1, type: scatter}
paytable:
  paylines:
    - {id: 1, rows: [0, 0, 0]}
  symbols:
    - {symbol: A, payouts: [0, 0, 4]}
    - {symbol: B, payouts: [0, 0, 3.6]}
  scatterPayouts: {3: 5}
features:
  randomBonus: {enabled: false, probability: 0.05, freeSpins: 5}
rtp: 0.95
volatility: low
minBet: 10
maxBet: 100
`
	var cfg GameConfig
	require.NoError(t, yaml.Unmarshal([]byte(doc), &cfg))
	require.NoError(t, ValidateConfig(&cfg))
	assert.Equal(t, "yaml_fruit", cfg.GameID)
	assert.Equal(t, 5.0, cfg.Paytable.ScatterPayouts[3])
	assert.Equal(t, 0.05, cfg.Features.RandomBonus.Probability)
	assert.False(t, cfg.Features.RandomBonus.Enabled)
}
