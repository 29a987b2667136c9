package slot

import (
	"slices"
)

// resolveFeatures 检测并同步结算所有特殊功能，返回功能数据、主功能类型和功能奖金。
// 多个功能同时触发时主类型优先级：锁定重转 > 免费旋转 > 消除掉落 > 倍率。
func (s *spin) resolveFeatures(reels [][]string, lineWins []PaylineWin, multiplier float64) (FeatureData, FeatureType, int64) {
	var (
		data       FeatureData
		featureWin int64
		types      []FeatureType
	)
	f := s.cfg.Features

	if multiplier != 1 {
		data.Multiplier = multiplier
		types = append(types, FeatureMultiplier)
	}

	if f.Tumble.Enabled && len(lineWins) > 0 {
		data.Cascades = s.tumble(reels, lineWins, multiplier)
		for _, step := range data.Cascades {
			featureWin += step.Win
		}
		types = append(types, FeatureTumble)
	}

	if hw := f.HoldAndWin; hw.Enabled {
		held := positionsOf(reels, hw.TriggerSymbol)
		if len(held) >= hw.TriggerCount {
			data.HoldAndWin = s.playHoldAndWin(reels, held)
			featureWin += data.HoldAndWin.TotalWin
			types = append(types, FeatureHoldAndWin)
		}
	}

	freeSpins := 0
	fsMultiplier := 1.0
	if fs := f.FreeSpins; fs.Enabled {
		if fs.Multiplier > 0 {
			fsMultiplier = fs.Multiplier
		}
		if len(positionsOf(reels, fs.TriggerSymbol)) >= fs.TriggerCount {
			freeSpins = fs.Spins
		}
	}
	if rb := f.RandomBonus; rb.Enabled && freeSpins == 0 && s.rng() < rb.Probability {
		freeSpins = rb.FreeSpins
		data.RandomBonus = true
	}
	if freeSpins > 0 {
		data.FreeSpins = s.playFreeSpins(freeSpins, fsMultiplier)
		featureWin += data.FreeSpins.TotalWin
		types = append(types, FeatureFreeSpins)
	}

	return data, primaryFeature(types), featureWin
}

var featurePriority = []FeatureType{FeatureHoldAndWin, FeatureFreeSpins, FeatureTumble, FeatureMultiplier}

func primaryFeature(triggered []FeatureType) FeatureType {
	for _, candidate := range featurePriority {
		for _, t := range triggered {
			if t == candidate {
				return t
			}
		}
	}
	return ""
}

// tumble 消除中奖符号，上方符号下落，顶部补新符号，直到无新奖或达到上限。
// 最后一步无中奖时也会记录，用于展示最终盘面。
func (s *spin) tumble(reels [][]string, wins []PaylineWin, multiplier float64) []CascadeStep {
	tc := s.cfg.Features.Tumble
	current := copyGrid(reels)
	var steps []CascadeStep

	for step := 1; step <= tc.MaxCascades && len(wins) > 0; step++ {
		removed := winningPositions(wins)
		current = s.collapse(current, removed)

		stepMultiplier := multiplier * (1 + tc.MultiplierStep*float64(step))
		wins, _ = s.evaluate(current, stepMultiplier)
		steps = append(steps, CascadeStep{
			Step:        step,
			Removed:     removed,
			Reels:       copyGrid(current),
			PaylineWins: wins,
			Multiplier:  stepMultiplier,
			Win:         sumWins(wins),
		})
	}
	return steps
}

// winningPositions 中奖位置去重，按轴、行排序
func winningPositions(wins []PaylineWin) []Position {
	seen := make(map[Position]bool)
	var positions []Position
	for _, w := range wins {
		for _, p := range w.Positions {
			if !seen[p] {
				seen[p] = true
				positions = append(positions, p)
			}
		}
	}
	slices.SortFunc(positions, func(a, b Position) int {
		if a.Reel != b.Reel {
			return a.Reel - b.Reel
		}
		return a.Row - b.Row
	})
	return positions
}

// collapse 行0在顶部：幸存符号下落到底部，顶部按轴顺序补新符号
func (s *spin) collapse(grid [][]string, removed []Position) [][]string {
	gone := make(map[Position]bool, len(removed))
	for _, p := range removed {
		gone[p] = true
	}

	out := make([][]string, len(grid))
	for r, reel := range grid {
		survivors := make([]string, 0, len(reel))
		for row, id := range reel {
			if !gone[Position{Reel: r, Row: row}] {
				survivors = append(survivors, id)
			}
		}
		fresh := make([]string, 0, len(reel))
		for i := len(survivors); i < len(reel); i++ {
			fresh = append(fresh, s.table.draw(s.rng))
		}
		out[r] = append(fresh, survivors...)
	}
	return out
}

// playHoldAndWin 锁定奖励符号后重转：每次重转在空格按概率落下新奖励符号，
// 有新符号落下时重转次数重置，否则递减，直到次数用尽或盘面填满。
func (s *spin) playHoldAndWin(reels [][]string, held []Position) *HoldAndWinData {
	hw := s.cfg.Features.HoldAndWin
	data := &HoldAndWinData{HoldPositions: append([]Position(nil), held...)}
	locked := make(map[Position]bool, len(held))
	for _, p := range held {
		locked[p] = true
		data.Prizes = append(data.Prizes, pickValue(hw.PrizeValues, s.rng))
	}

	total := cellCount(reels)
	left := hw.Respins
	for left > 0 && len(data.HoldPositions) < total {
		data.RespinsPlayed++
		landed := false
		for r, reel := range reels {
			for row := range reel {
				p := Position{Reel: r, Row: row}
				if locked[p] {
					continue
				}
				if s.rng() < hw.LandChance {
					locked[p] = true
					landed = true
					data.HoldPositions = append(data.HoldPositions, p)
					data.Prizes = append(data.Prizes, pickValue(hw.PrizeValues, s.rng))
				}
			}
		}
		if landed {
			left = hw.Respins
		} else {
			left--
		}
	}

	for _, prize := range data.Prizes {
		data.TotalWin += winAmount(s.wager, prize, 1, 1)
	}
	return data
}

// playFreeSpins 免费旋转同步结算：每轮重新抽取网格，只计线奖，不可再触发
func (s *spin) playFreeSpins(spins int, multiplier float64) *FreeSpinsData {
	data := &FreeSpinsData{Spins: spins, Multiplier: multiplier}
	for i := 0; i < spins; i++ {
		grid := s.drawGrid()
		wins, _ := s.evaluate(grid, multiplier)
		round := FreeSpinRound{Reels: grid, PaylineWins: wins, Win: sumWins(wins)}
		data.Rounds = append(data.Rounds, round)
		data.TotalWin += round.Win
	}
	return data
}
