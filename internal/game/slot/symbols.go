package slot

// symbolTable 由配置派生的符号查找表，每次生成时构建，不共享可变状态
type symbolTable struct {
	ids         []string
	weights     []int
	totalWeight int
	types       map[string]SymbolType
	pays        map[string][]float64
	substitutes map[string]bool // nil 表示替代所有普通符号
}

func newSymbolTable(cfg *GameConfig) *symbolTable {
	t := &symbolTable{
		ids:     make([]string, 0, len(cfg.SymbolWeights)),
		weights: make([]int, 0, len(cfg.SymbolWeights)),
		types:   make(map[string]SymbolType, len(cfg.SymbolWeights)),
		pays:    make(map[string][]float64, len(cfg.Paytable.Symbols)),
	}
	for _, sw := range cfg.SymbolWeights {
		t.ids = append(t.ids, sw.ID)
		t.weights = append(t.weights, sw.Weight)
		t.totalWeight += sw.Weight
		t.types[sw.ID] = sw.Type
	}
	for _, row := range cfg.Paytable.Symbols {
		t.pays[row.Symbol] = row.Payouts
	}
	if len(cfg.Paytable.WildRules.CanSubstitute) > 0 {
		t.substitutes = make(map[string]bool, len(cfg.Paytable.WildRules.CanSubstitute))
		for _, id := range cfg.Paytable.WildRules.CanSubstitute {
			t.substitutes[id] = true
		}
	}
	return t
}

func (t *symbolTable) draw(rng Rng) string {
	return t.ids[pickWeighted(t.weights, t.totalWeight, rng)]
}

func (t *symbolTable) typeOf(id string) SymbolType {
	return t.types[id]
}

func (t *symbolTable) isWild(id string) bool {
	return t.types[id] == SymbolWild
}

// canSubstitute 百搭是否可替代目标符号，分散和奖励符号永不替代
func (t *symbolTable) canSubstitute(target string) bool {
	if t.types[target] != SymbolNormal {
		return false
	}
	return t.substitutes == nil || t.substitutes[target]
}

// payout 查询 count 连的赔率
func (t *symbolTable) payout(symbol string, count int) float64 {
	pays := t.pays[symbol]
	if count <= 0 || count > len(pays) {
		return 0
	}
	return pays[count-1]
}

// positionsOf 统计网格中某符号的所有位置（按轴、行顺序）
func positionsOf(grid [][]string, symbol string) []Position {
	var positions []Position
	for r, reel := range grid {
		for row, id := range reel {
			if id == symbol {
				positions = append(positions, Position{Reel: r, Row: row})
			}
		}
	}
	return positions
}

func copyGrid(grid [][]string) [][]string {
	out := make([][]string, len(grid))
	for i := range grid {
		out[i] = append([]string(nil), grid[i]...)
	}
	return out
}

func cellCount(grid [][]string) int {
	n := 0
	for _, reel := range grid {
		n += len(reel)
	}
	return n
}
