package slot

// seqRng 按顺序循环返回给定值，用于强制符号
func seqRng(values ...float64) Rng {
	i := 0
	return func() float64 {
		v := values[i%len(values)]
		i++
		return v
	}
}

// twoSymbolConfig 3x1 单支付线，A、B 等权重；AAA 赔 4，BBB 赔 3.6，理论 RTP 0.95
func twoSymbolConfig() *GameConfig {
	return &GameConfig{
		GameID:     "two_symbol",
		ReelLayout: ReelLayout{Reels: 3, Rows: 1},
		SymbolWeights: []SymbolWeight{
			{ID: "A", Weight: 1, Type: SymbolNormal},
			{ID: "B", Weight: 1, Type: SymbolNormal},
		},
		Paytable: Paytable{
			Paylines: []Payline{{ID: 1, Rows: []int{0, 0, 0}}},
			Symbols: []PaytableRow{
				{Symbol: "A", Payouts: []float64{0, 0, 4}},
				{Symbol: "B", Payouts: []float64{0, 0, 3.6}},
			},
		},
		RTP:        0.95,
		Volatility: VolatilityLow,
		MinBet:     10,
		MaxBet:     100,
	}
}

// wildConfig 3x3 中线，含百搭和分散
func wildConfig() *GameConfig {
	return &GameConfig{
		GameID:     "wild_test",
		ReelLayout: ReelLayout{Reels: 3, Rows: 3},
		SymbolWeights: []SymbolWeight{
			{ID: "CHERRY", Weight: 5, Type: SymbolNormal},
			{ID: "LEMON", Weight: 5, Type: SymbolNormal},
			{ID: "WILD", Weight: 1, Type: SymbolWild},
			{ID: "SCATTER", Weight: 1, Type: SymbolScatter},
		},
		Paytable: Paytable{
			Paylines: []Payline{{ID: 1, Rows: []int{1, 1, 1}}},
			Symbols: []PaytableRow{
				{Symbol: "CHERRY", Payouts: []float64{0, 2, 5}},
				{Symbol: "LEMON", Payouts: []float64{0, 0, 1}},
				{Symbol: "WILD", Payouts: []float64{0, 20, 50}},
			},
			ScatterPayouts: map[int]float64{3: 2, 5: 10},
		},
		Features: Features{
			FreeSpins: FreeSpinsConfig{Enabled: true, TriggerSymbol: "SCATTER", TriggerCount: 3, Spins: 5, Multiplier: 2},
		},
		RTP:        0.9,
		Volatility: VolatilityMedium,
		MinBet:     10,
		MaxBet:     1000,
	}
}
