package slot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrimaryFeature(t *testing.T) {
	tests := []struct {
		name      string
		triggered []FeatureType
		want      FeatureType
	}{
		{"无", nil, ""},
		{"仅倍率", []FeatureType{FeatureMultiplier}, FeatureMultiplier},
		{"消除优先于倍率", []FeatureType{FeatureMultiplier, FeatureTumble}, FeatureTumble},
		{"免费旋转优先于消除", []FeatureType{FeatureTumble, FeatureFreeSpins}, FeatureFreeSpins},
		{"锁定重转最高", []FeatureType{FeatureFreeSpins, FeatureHoldAndWin, FeatureMultiplier}, FeatureHoldAndWin},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, primaryFeature(tt.triggered))
		})
	}
}

func TestWinningPositions_Dedup(t *testing.T) {
	wins := []PaylineWin{
		{Positions: []Position{{1, 0}, {0, 0}}},
		{Positions: []Position{{0, 0}, {2, 1}}},
	}
	assert.Equal(t, []Position{{0, 0}, {1, 0}, {2, 1}}, winningPositions(wins))
}

func TestPlayHoldAndWin_FullBoardStops(t *testing.T) {
	cfg := GetDragonHoldConfig()
	cfg.Features.HoldAndWin.LandChance = 1
	s := newTestSpin(cfg, 10)
	s.rng = seqRng(0.5, 0)

	reels := [][]string{{"COIN", "A", "A"}, {"A", "A", "A"}, {"A", "A", "A"}, {"A", "A", "A"}, {"A", "A", "A"}}
	data := s.playHoldAndWin(reels, []Position{{0, 0}})

	assert.Len(t, data.HoldPositions, 15)
	assert.Len(t, data.Prizes, 15)
	assert.Equal(t, 1, data.RespinsPlayed)
	assert.Positive(t, data.TotalWin)
}

func TestPlayFreeSpins_RoundsSum(t *testing.T) {
	cfg := twoSymbolConfig()
	s := newTestSpin(cfg, 10)
	s.rng = seqRng(0, 0, 0, 0.9, 0, 0.9)

	data := s.playFreeSpins(2, 2)
	assert.Len(t, data.Rounds, 2)
	assert.Equal(t, int64(80), data.Rounds[0].Win, "AAA × 4 × 2")
	assert.Zero(t, data.Rounds[1].Win)
	assert.Equal(t, int64(80), data.TotalWin)
}
