package slot

import (
	"slices"
)

// StandardPaylines 生成常用支付线：中线、上下线、V型、倒V型、之字形，其余水平线补齐。
// 相同形状只保留一条，最多返回 n 条。
func StandardPaylines(reels, rows, n int) []Payline {
	candidates := [][]int{
		horizontalLine(reels, rows/2),
		horizontalLine(reels, 0),
		horizontalLine(reels, rows-1),
		vLine(reels, rows, false),
		vLine(reels, rows, true),
		zigzagLine(reels, rows, true),
		zigzagLine(reels, rows, false),
	}
	for row := 1; row < rows-1; row++ {
		candidates = append(candidates, horizontalLine(reels, row))
	}

	lines := make([]Payline, 0, n)
	for _, rowsOf := range candidates {
		if len(lines) >= n {
			break
		}
		dup := false
		for _, existing := range lines {
			if slices.Equal(existing.Rows, rowsOf) {
				dup = true
				break
			}
		}
		if !dup {
			lines = append(lines, Payline{ID: len(lines) + 1, Rows: rowsOf})
		}
	}
	return lines
}

func horizontalLine(reels, row int) []int {
	line := make([]int, reels)
	for i := range line {
		line[i] = row
	}
	return line
}

// vLine 从两端向中间下探，inverted 时从底部向上
func vLine(reels, rows int, inverted bool) []int {
	line := make([]int, reels)
	for i := range line {
		row := min(i, reels-1-i, rows-1)
		if inverted {
			row = rows - 1 - row
		}
		line[i] = row
	}
	return line
}

func zigzagLine(reels, rows int, startTop bool) []int {
	line := make([]int, reels)
	for i := range line {
		top := i%2 == 0
		if !startTop {
			top = !top
		}
		if top {
			line[i] = 0
		} else {
			line[i] = rows - 1
		}
	}
	return line
}

// expandWilds 扩展百搭：任意格出现百搭的轴整轴变为该百搭
func (s *spin) expandWilds(grid [][]string) ([][]string, []int) {
	if !s.cfg.Paytable.WildRules.Expanding {
		return grid, nil
	}
	var expanded []int
	out := grid
	for r, reel := range grid {
		for _, id := range reel {
			if !s.table.isWild(id) {
				continue
			}
			if expanded == nil {
				out = copyGrid(grid)
			}
			for row := range out[r] {
				out[r][row] = id
			}
			expanded = append(expanded, r)
			break
		}
	}
	return out, expanded
}

func (s *spin) evaluatePaylines(grid [][]string, multiplier float64) ([]PaylineWin, []int) {
	evalGrid, expanded := s.expandWilds(grid)

	var wins []PaylineWin
	for _, line := range s.cfg.Paytable.Paylines {
		symbols := make([]string, len(line.Rows))
		for reel, row := range line.Rows {
			symbols[reel] = evalGrid[reel][row]
		}

		symbol, count := s.lineRun(symbols)
		pay := s.table.payout(symbol, count)
		if pay <= 0 {
			continue
		}

		positions := make([]Position, count)
		for reel := 0; reel < count; reel++ {
			positions[reel] = Position{Reel: reel, Row: line.Rows[reel]}
		}
		wins = append(wins, PaylineWin{
			Line:       line.ID,
			Symbol:     symbol,
			Symbols:    append([]string(nil), symbols[:count]...),
			MatchCount: count,
			Positions:  positions,
			WinAmount:  winAmount(s.wager, pay, multiplier, 1),
			Multiplier: multiplier,
		})
	}
	return wins, expanded
}

// lineRun 计算从第0轴开始的最长匹配。
// 前导百搭既可按自身赔率计算，也可替代其后的第一个普通符号，取赔率较高者（相同时取替代）。
func (s *spin) lineRun(symbols []string) (string, int) {
	if len(symbols) == 0 {
		return "", 0
	}

	leading := 0
	for leading < len(symbols) && s.table.isWild(symbols[leading]) {
		leading++
	}

	var subSymbol string
	subCount := 0
	if leading < len(symbols) {
		target := symbols[leading]
		if s.table.typeOf(target) == SymbolNormal && (leading == 0 || s.table.canSubstitute(target)) {
			subSymbol = target
			subCount = leading + 1
			for i := leading + 1; i < len(symbols); i++ {
				id := symbols[i]
				if id != target && !(s.table.isWild(id) && s.table.canSubstitute(target)) {
					break
				}
				subCount++
			}
		}
	}

	if leading == 0 {
		return subSymbol, subCount
	}

	// 百搭自身的连线：只统计与第一个百搭相同的符号
	wild := symbols[0]
	wildCount := 0
	for wildCount < leading && symbols[wildCount] == wild {
		wildCount++
	}
	if subCount == 0 || s.table.payout(wild, wildCount) > s.table.payout(subSymbol, subCount) {
		return wild, wildCount
	}
	return subSymbol, subCount
}

// evaluateWays 按路计算：每个可赔付符号从第0轴起逐轴统计匹配数，路数为各轴匹配数之积
func (s *spin) evaluateWays(grid [][]string, multiplier float64) []PaylineWin {
	var wins []PaylineWin
	for _, row := range s.cfg.Paytable.Symbols {
		target := row.Symbol
		if s.table.typeOf(target) != SymbolNormal {
			continue
		}

		ways, reels := 1, 0
		var positions []Position
		var matched []string
		for r, reel := range grid {
			hits := 0
			for rowIdx, id := range reel {
				if id == target || (s.table.isWild(id) && s.table.canSubstitute(target)) {
					hits++
					positions = append(positions, Position{Reel: r, Row: rowIdx})
					matched = append(matched, id)
				}
			}
			if hits == 0 {
				break
			}
			ways *= hits
			reels++
		}

		pay := s.table.payout(target, reels)
		if pay <= 0 {
			continue
		}
		wins = append(wins, PaylineWin{
			Line:       0,
			Symbol:     target,
			Symbols:    matched,
			MatchCount: reels,
			Ways:       ways,
			Positions:  positions,
			WinAmount:  winAmount(s.wager, pay, multiplier, ways),
			Multiplier: multiplier,
		})
	}
	return wins
}
