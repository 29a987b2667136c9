package slot

import "sort"

// 内置游戏，作为远程配置不可用时的静态兜底。
// RTP 目标值由离线模拟得出，见 Simulate。

// GetDefaultConfig 经典水果机：3x3，5条支付线，分散符号触发免费旋转
func GetDefaultConfig() *GameConfig {
	return &GameConfig{
		GameID:     "classic_fruit",
		Name:       "经典水果机",
		ReelLayout: ReelLayout{Reels: 3, Rows: 3},
		SymbolWeights: []SymbolWeight{
			{ID: "CHERRY", Weight: 30, Type: SymbolNormal},
			{ID: "LEMON", Weight: 26, Type: SymbolNormal},
			{ID: "ORANGE", Weight: 22, Type: SymbolNormal},
			{ID: "PLUM", Weight: 18, Type: SymbolNormal},
			{ID: "BELL", Weight: 12, Type: SymbolNormal},
			{ID: "BAR", Weight: 8, Type: SymbolNormal},
			{ID: "SEVEN", Weight: 4, Type: SymbolNormal},
			{ID: "WILD", Weight: 3, Type: SymbolWild},
			{ID: "SCATTER", Weight: 4, Type: SymbolScatter},
		},
		Paytable: Paytable{
			Paylines: StandardPaylines(3, 3, 5),
			Symbols: []PaytableRow{
				{Symbol: "CHERRY", Payouts: []float64{0, 0, 2.2}},
				{Symbol: "LEMON", Payouts: []float64{0, 0, 3.3}},
				{Symbol: "ORANGE", Payouts: []float64{0, 0, 4.4}},
				{Symbol: "PLUM", Payouts: []float64{0, 0, 6.6}},
				{Symbol: "BELL", Payouts: []float64{0, 0, 11}},
				{Symbol: "BAR", Payouts: []float64{0, 0, 22}},
				{Symbol: "SEVEN", Payouts: []float64{0, 0, 55}},
				{Symbol: "WILD", Payouts: []float64{0, 0, 110}},
			},
			ScatterPayouts: map[int]float64{3: 2},
		},
		Features: Features{
			FreeSpins: FreeSpinsConfig{
				Enabled:       true,
				TriggerSymbol: "SCATTER",
				TriggerCount:  3,
				Spins:         8,
				Multiplier:    2,
			},
		},
		RTP:        0.96,
		Volatility: VolatilityMedium,
		MinBet:     10,
		MaxBet:     10000,
	}
}

// GetDragonHoldConfig 5x3，扩展百搭，金币锁定重转，随机倍率
func GetDragonHoldConfig() *GameConfig {
	return &GameConfig{
		GameID:     "dragon_hold",
		Name:       "金龙锁定",
		ReelLayout: ReelLayout{Reels: 5, Rows: 3},
		SymbolWeights: []SymbolWeight{
			{ID: "TEN", Weight: 30, Type: SymbolNormal},
			{ID: "J", Weight: 28, Type: SymbolNormal},
			{ID: "Q", Weight: 26, Type: SymbolNormal},
			{ID: "K", Weight: 24, Type: SymbolNormal},
			{ID: "A", Weight: 20, Type: SymbolNormal},
			{ID: "PHOENIX", Weight: 12, Type: SymbolNormal},
			{ID: "TIGER", Weight: 10, Type: SymbolNormal},
			{ID: "DRAGON", Weight: 8, Type: SymbolNormal},
			{ID: "WILD", Weight: 3, Type: SymbolWild},
			{ID: "COIN", Weight: 12, Type: SymbolBonus},
		},
		Paytable: Paytable{
			Paylines: StandardPaylines(5, 3, 7),
			Symbols: []PaytableRow{
				{Symbol: "TEN", Payouts: []float64{0, 0, 1.3, 2.6, 6.5}},
				{Symbol: "J", Payouts: []float64{0, 0, 1.3, 2.6, 6.5}},
				{Symbol: "Q", Payouts: []float64{0, 0, 1.3, 3.9, 7.8}},
				{Symbol: "K", Payouts: []float64{0, 0, 2.6, 5.2, 10.4}},
				{Symbol: "A", Payouts: []float64{0, 0, 2.6, 6.5, 13}},
				{Symbol: "PHOENIX", Payouts: []float64{0, 0, 5.2, 13, 39}},
				{Symbol: "TIGER", Payouts: []float64{0, 0, 6.5, 19.5, 65}},
				{Symbol: "DRAGON", Payouts: []float64{0, 0, 13, 39, 130}},
				{Symbol: "WILD", Payouts: []float64{0, 0, 26, 65, 260}},
			},
			WildRules: WildRules{Expanding: true},
		},
		Features: Features{
			HoldAndWin: HoldAndWinConfig{
				Enabled:       true,
				TriggerSymbol: "COIN",
				TriggerCount:  5,
				Respins:       3,
				LandChance:    0.05,
				PrizeValues: []WeightedValue{
					{Value: 1, Weight: 50},
					{Value: 2, Weight: 25},
					{Value: 5, Weight: 15},
					{Value: 10, Weight: 7},
					{Value: 50, Weight: 3},
				},
			},
			Multiplier: MultiplierConfig{
				Enabled:     true,
				Probability: 0.03,
				Values: []WeightedValue{
					{Value: 2, Weight: 70},
					{Value: 3, Weight: 25},
					{Value: 5, Weight: 5},
				},
			},
		},
		RTP:        0.945,
		Volatility: VolatilityHigh,
		MinBet:     10,
		MaxBet:     10000,
	}
}

// GetMegaCascadeConfig 6轴megaways（每轴2-7行），按路计算，消除掉落递增倍率
func GetMegaCascadeConfig() *GameConfig {
	return &GameConfig{
		GameID:     "mega_cascade",
		Name:       "宝石连消",
		ReelLayout: ReelLayout{Reels: 6, Rows: 7},
		SymbolWeights: []SymbolWeight{
			{ID: "NINE", Weight: 24, Type: SymbolNormal},
			{ID: "TEN", Weight: 24, Type: SymbolNormal},
			{ID: "J", Weight: 22, Type: SymbolNormal},
			{ID: "Q", Weight: 22, Type: SymbolNormal},
			{ID: "K", Weight: 20, Type: SymbolNormal},
			{ID: "A", Weight: 20, Type: SymbolNormal},
			{ID: "EMERALD", Weight: 14, Type: SymbolNormal},
			{ID: "SAPPHIRE", Weight: 12, Type: SymbolNormal},
			{ID: "RUBY", Weight: 10, Type: SymbolNormal},
			{ID: "CROWN", Weight: 8, Type: SymbolNormal},
			{ID: "WILD", Weight: 3, Type: SymbolWild},
			{ID: "SCATTER", Weight: 3, Type: SymbolScatter},
		},
		Paytable: Paytable{
			Ways: true,
			Symbols: []PaytableRow{
				{Symbol: "NINE", Payouts: []float64{0, 0, 0.032, 0.064, 0.128, 0.32}},
				{Symbol: "TEN", Payouts: []float64{0, 0, 0.032, 0.064, 0.128, 0.32}},
				{Symbol: "J", Payouts: []float64{0, 0, 0.032, 0.08, 0.16, 0.4}},
				{Symbol: "Q", Payouts: []float64{0, 0, 0.032, 0.08, 0.16, 0.4}},
				{Symbol: "K", Payouts: []float64{0, 0, 0.048, 0.096, 0.24, 0.48}},
				{Symbol: "A", Payouts: []float64{0, 0, 0.048, 0.096, 0.24, 0.48}},
				{Symbol: "EMERALD", Payouts: []float64{0, 0, 0.064, 0.16, 0.32, 0.8}},
				{Symbol: "SAPPHIRE", Payouts: []float64{0, 0, 0.08, 0.24, 0.48, 1.28}},
				{Symbol: "RUBY", Payouts: []float64{0, 0, 0.128, 0.32, 0.8, 1.92}},
				{Symbol: "CROWN", Payouts: []float64{0, 0, 0.16, 0.48, 1.6, 3.2}},
			},
		},
		Features: Features{
			FreeSpins: FreeSpinsConfig{
				Enabled:       true,
				TriggerSymbol: "SCATTER",
				TriggerCount:  4,
				Spins:         10,
				Multiplier:    1,
			},
			Megaways: MegawaysConfig{Enabled: true, MinRows: 2, MaxRows: 7},
			Tumble:   TumbleConfig{Enabled: true, MaxCascades: 8, MultiplierStep: 1},
		},
		RTP:        0.935,
		Volatility: VolatilityExtreme,
		MinBet:     500,
		MaxBet:     50000,
	}
}

// ConfigPresets 内置游戏
var ConfigPresets = map[string]func() *GameConfig{
	"classic_fruit": GetDefaultConfig,
	"dragon_hold":   GetDragonHoldConfig,
	"mega_cascade":  GetMegaCascadeConfig,
}

// GetConfigByID 根据ID获取内置配置，每次返回新副本
func GetConfigByID(gameID string) *GameConfig {
	if build, ok := ConfigPresets[gameID]; ok {
		return build()
	}
	return nil
}

// PresetIDs 内置游戏ID（排序）
func PresetIDs() []string {
	ids := make([]string, 0, len(ConfigPresets))
	for id := range ConfigPresets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
