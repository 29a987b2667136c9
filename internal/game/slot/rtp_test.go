package slot

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uniformWagers(from, to, step int64) []int64 {
	var wagers []int64
	for w := from; w <= to; w += step {
		wagers = append(wagers, w)
	}
	return wagers
}

func TestSimulate_RTPConvergence(t *testing.T) {
	if testing.Short() {
		t.Skip("长时间模拟")
	}
	cfg := twoSymbolConfig()
	res, err := Simulate(context.Background(), cfg, SimulationOptions{
		Spins:      200000,
		Wagers:     uniformWagers(10, 100, 10),
		SeedPrefix: "rtp",
	})
	require.NoError(t, err)

	rtp, _ := res.RTP.Float64()
	t.Logf("RTP=%.4f 目标=%.4f 命中率=%.4f", rtp, cfg.RTP, res.HitFrequency)
	assert.InDelta(t, cfg.RTP, rtp, cfg.RTP*0.02)
	assert.InDelta(t, 0.25, res.HitFrequency, 0.01)
	assert.Equal(t, 200000, res.Spins)
}

func TestSimulate_PresetTargets(t *testing.T) {
	if testing.Short() {
		t.Skip("长时间模拟")
	}
	for _, id := range PresetIDs() {
		cfg := GetConfigByID(id)
		t.Run(id, func(t *testing.T) {
			res, err := Simulate(context.Background(), cfg, SimulationOptions{
				Spins:  2000000,
				Wagers: uniformWagers(cfg.MinBet, cfg.MinBet*10, cfg.MinBet),
			})
			require.NoError(t, err)
			rtp, _ := res.RTP.Float64()
			t.Logf("%s RTP=%.4f 目标=%.4f 功能率=%.4f", id, rtp, cfg.RTP, res.FeatureFrequency)
			assert.InDelta(t, cfg.RTP, rtp, cfg.RTP*0.02)
		})
	}
}

func TestSimulate_Deterministic(t *testing.T) {
	cfg := GetDefaultConfig()
	opts := SimulationOptions{Spins: 5000, Wagers: []int64{10, 20, 50}, SeedPrefix: "det", Workers: 3}
	a, err := Simulate(context.Background(), cfg, opts)
	require.NoError(t, err)
	opts.Workers = 1
	b, err := Simulate(context.Background(), cfg, opts)
	require.NoError(t, err)

	assert.Equal(t, a.TotalWager, b.TotalWager)
	assert.Equal(t, a.TotalPayout, b.TotalPayout)
	assert.True(t, a.RTP.Equal(b.RTP))
	assert.Equal(t, a.FeatureCounts, b.FeatureCounts)
}

func TestSimulate_Errors(t *testing.T) {
	_, err := Simulate(context.Background(), GetDefaultConfig(), SimulationOptions{})
	assert.Error(t, err)

	bad := GetDefaultConfig()
	bad.RTP = 0
	_, err = Simulate(context.Background(), bad, SimulationOptions{Spins: 10})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Simulate(ctx, GetDefaultConfig(), SimulationOptions{Spins: 10})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRTP(t *testing.T) {
	assert.True(t, RTP(0, 0).IsZero())
	assert.Equal(t, "0.95", RTP(95, 100).String())
	assert.Equal(t, "0.333333", RTP(1, 3).String())
}
