package slot

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidWager = errors.New("无效的下注金额")
	ErrEmptySeed    = errors.New("种子不能为空")
	ErrNilConfig    = errors.New("游戏配置为空")
)

// spinNamespace 旋转ID的UUIDv5命名空间
var spinNamespace = uuid.MustParse("6f1c2a8e-3b7d-4c59-9e0a-5d2f8b41c7e3")

// OutcomeOption 生成选项
type OutcomeOption func(*outcomeOptions)

type outcomeOptions struct {
	spinID    string
	timestamp time.Time
	rng       Rng
}

// WithSpinID 指定旋转ID，默认由 (gameId, wager, seed) 派生
func WithSpinID(id string) OutcomeOption {
	return func(o *outcomeOptions) { o.spinID = id }
}

// WithTimestamp 指定时间戳，默认零值以保证纯函数
func WithTimestamp(t time.Time) OutcomeOption {
	return func(o *outcomeOptions) { o.timestamp = t }
}

// WithRng 替换随机流（测试中强制符号）
func WithRng(rng Rng) OutcomeOption {
	return func(o *outcomeOptions) { o.rng = rng }
}

// GenerateOutcome 根据配置、投注和种子生成唯一权威结果。
// 相同的 (cfg, wager, seed, opts) 必然产生相同结果，不读取时钟或环境随机数。
// 结果不做任何RTP补偿。
func GenerateOutcome(cfg *GameConfig, wager int64, seed string, opts ...OutcomeOption) (*SpinOutcome, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	if seed == "" {
		return nil, ErrEmptySeed
	}
	if wager <= 0 || wager < cfg.MinBet || wager > cfg.MaxBet {
		return nil, fmt.Errorf("%w: %d 不在 [%d, %d] 范围内", ErrInvalidWager, wager, cfg.MinBet, cfg.MaxBet)
	}

	var o outcomeOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.rng == nil {
		o.rng = MakeRng(seed)
	}
	if o.spinID == "" {
		o.spinID = deriveSpinID(cfg.GameID, wager, seed)
	}

	s := &spin{cfg: cfg, table: newSymbolTable(cfg), rng: o.rng, wager: wager}

	reels := s.drawGrid()

	multiplier := 1.0
	if m := cfg.Features.Multiplier; m.Enabled && s.rng() < m.Probability {
		multiplier = pickValue(m.Values, s.rng)
	}

	lineWins, expanded := s.evaluate(reels, multiplier)
	scatterWins := s.evaluateScatters(reels)

	var baseWin int64
	for _, w := range lineWins {
		baseWin += w.WinAmount
	}
	for _, w := range scatterWins {
		baseWin += w.WinAmount
	}

	data, featureType, featureWin := s.resolveFeatures(reels, lineWins, multiplier)
	var trigger *FeatureTrigger
	if featureType != "" {
		trigger = &FeatureTrigger{Type: featureType, Data: data}
	}

	totalWin := baseWin + featureWin
	return &SpinOutcome{
		SpinID: o.spinID,
		Seed:   seed,
		GameID: cfg.GameID,
		Wager:  wager,
		Reels:  reels,
		WinBreakdown: WinBreakdown{
			PaylineWins:   lineWins,
			ScatterWins:   scatterWins,
			ExpandedReels: expanded,
			BaseWin:       baseWin,
			FeatureWin:    featureWin,
			TotalWin:      totalWin,
		},
		FeatureTrigger: trigger,
		TotalWin:       totalWin,
		Multiplier:     multiplier,
		Timestamp:      o.timestamp,
	}, nil
}

func deriveSpinID(gameID string, wager int64, seed string) string {
	name := gameID + ":" + strconv.FormatInt(wager, 10) + ":" + seed
	return uuid.NewSHA1(spinNamespace, []byte(name)).String()
}

// spin 单次生成的上下文，随机数消耗顺序固定：
// 行高 → 网格 → 倍率 → 消除补位 → 锁定重转 → 随机奖励 → 免费旋转
type spin struct {
	cfg   *GameConfig
	table *symbolTable
	rng   Rng
	wager int64
}

// drawGrid 按轴、行顺序抽取符号，megaways 时先抽每轴行数
func (s *spin) drawGrid() [][]string {
	heights := make([]int, s.cfg.ReelLayout.Reels)
	for r := range heights {
		heights[r] = s.cfg.ReelLayout.Rows
	}
	if mw := s.cfg.Features.Megaways; mw.Enabled {
		for r := range heights {
			heights[r] = mw.MinRows + intn(s.rng, mw.MaxRows-mw.MinRows+1)
		}
	}

	grid := make([][]string, len(heights))
	for r, h := range heights {
		grid[r] = make([]string, h)
		for row := 0; row < h; row++ {
			grid[r][row] = s.table.draw(s.rng)
		}
	}
	return grid
}

// evaluate 计算线奖（支付线或路）
func (s *spin) evaluate(grid [][]string, multiplier float64) ([]PaylineWin, []int) {
	if s.cfg.IsWays() {
		return s.evaluateWays(grid, multiplier), nil
	}
	return s.evaluatePaylines(grid, multiplier)
}

func (s *spin) evaluateScatters(grid [][]string) []ScatterWin {
	var wins []ScatterWin
	fs := s.cfg.Features.FreeSpins
	for _, id := range s.table.ids {
		if s.table.typeOf(id) != SymbolScatter {
			continue
		}
		positions := positionsOf(grid, id)
		if len(positions) == 0 {
			continue
		}
		triggers := fs.Enabled && fs.TriggerSymbol == id && len(positions) >= fs.TriggerCount
		pay := scatterPayout(s.cfg.Paytable.ScatterPayouts, len(positions))
		if pay <= 0 && !triggers {
			continue
		}
		wins = append(wins, ScatterWin{
			Symbol:          id,
			Count:           len(positions),
			Positions:       positions,
			WinAmount:       winAmount(s.wager, pay, 1, 1),
			TriggersFeature: triggers,
		})
	}
	return wins
}

// scatterPayout 取不超过 count 的最大阈值对应赔率
func scatterPayout(payouts map[int]float64, count int) float64 {
	best, bestCount := 0.0, 0
	for c, p := range payouts {
		if c <= count && c > bestCount {
			best, bestCount = p, c
		}
	}
	return best
}

// winAmount = floor(wager × payout × multiplier × ways)
func winAmount(wager int64, payout, multiplier float64, ways int) int64 {
	if payout <= 0 {
		return 0
	}
	return decimal.NewFromInt(wager).
		Mul(decimal.NewFromFloat(payout)).
		Mul(decimal.NewFromFloat(multiplier)).
		Mul(decimal.NewFromInt(int64(ways))).
		Floor().
		IntPart()
}

func sumWins(wins []PaylineWin) int64 {
	var total int64
	for _, w := range wins {
		total += w.WinAmount
	}
	return total
}
