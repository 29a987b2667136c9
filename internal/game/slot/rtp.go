package slot

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// SimulationOptions 离线RTP模拟参数
type SimulationOptions struct {
	Spins      int
	Wagers     []int64 // 每次旋转从中均匀抽取，为空时使用最小投注
	SeedPrefix string
	Workers    int
}

// SimulationResult 模拟统计
type SimulationResult struct {
	GameID           string              `json:"game_id"`
	Spins            int                 `json:"spins"`
	TotalWager       int64               `json:"total_wager"`
	TotalPayout      int64               `json:"total_payout"`
	RTP              decimal.Decimal     `json:"rtp"`
	TargetRTP        decimal.Decimal     `json:"target_rtp"`
	Deviation        decimal.Decimal     `json:"deviation"`
	HitFrequency     float64             `json:"hit_frequency"`
	FeatureFrequency float64             `json:"feature_frequency"`
	FeatureCounts    map[FeatureType]int `json:"feature_counts"`
	MaxWin           int64               `json:"max_win"`
	Duration         time.Duration       `json:"duration"`
}

type simTally struct {
	wager, payout, maxWin int64
	hits, features        int
	byFeature             map[FeatureType]int
}

// Simulate 用固定种子序列批量生成结果，统计实际RTP。
// 只观察生成器，不修改任何结果；同样的参数得到同样的统计。
func Simulate(ctx context.Context, cfg *GameConfig, opts SimulationOptions) (*SimulationResult, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	if opts.Spins <= 0 {
		return nil, fmt.Errorf("模拟次数必须大于0: %d", opts.Spins)
	}
	wagers := opts.Wagers
	if len(wagers) == 0 {
		wagers = []int64{cfg.MinBet}
	}
	prefix := opts.SeedPrefix
	if prefix == "" {
		prefix = "sim-" + cfg.GameID
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > opts.Spins {
		workers = opts.Spins
	}

	start := time.Now()
	tallies := make([]simTally, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			t := &tallies[w]
			t.byFeature = make(map[FeatureType]int)
			for i := w; i < opts.Spins; i += workers {
				if i%1024 == 0 {
					if err := ctx.Err(); err != nil {
						errs[w] = err
						return
					}
				}
				seed := fmt.Sprintf("%s-%d", prefix, i)
				wager := wagers[intn(MakeRng(seed+"/wager"), len(wagers))]
				outcome, err := GenerateOutcome(cfg, wager, seed)
				if err != nil {
					errs[w] = err
					return
				}
				t.wager += wager
				t.payout += outcome.TotalWin
				if outcome.TotalWin > 0 {
					t.hits++
				}
				if outcome.TotalWin > t.maxWin {
					t.maxWin = outcome.TotalWin
				}
				if outcome.FeatureTrigger != nil {
					t.features++
					t.byFeature[outcome.FeatureTrigger.Type]++
				}
			}
		}(w)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	res := &SimulationResult{
		GameID:        cfg.GameID,
		Spins:         opts.Spins,
		TargetRTP:     decimal.NewFromFloat(cfg.RTP),
		FeatureCounts: make(map[FeatureType]int),
	}
	hits, features := 0, 0
	for _, t := range tallies {
		res.TotalWager += t.wager
		res.TotalPayout += t.payout
		hits += t.hits
		features += t.features
		if t.maxWin > res.MaxWin {
			res.MaxWin = t.maxWin
		}
		for k, v := range t.byFeature {
			res.FeatureCounts[k] += v
		}
	}
	res.RTP = RTP(res.TotalPayout, res.TotalWager)
	res.Deviation = res.RTP.Sub(res.TargetRTP)
	res.HitFrequency = float64(hits) / float64(opts.Spins)
	res.FeatureFrequency = float64(features) / float64(opts.Spins)
	res.Duration = time.Since(start)
	return res, nil
}

// RTP 计算 Σpayout / Σwager，保留6位小数
func RTP(payout, wager int64) decimal.Decimal {
	if wager == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(payout).DivRound(decimal.NewFromInt(wager), 6)
}
