package slot

import (
	"time"
)

// SymbolType 符号类型
type SymbolType string

const (
	SymbolNormal  SymbolType = "normal"  // 普通符号
	SymbolWild    SymbolType = "wild"    // 百搭
	SymbolScatter SymbolType = "scatter" // 分散
	SymbolBonus   SymbolType = "bonus"   // 奖励（Hold & Win）
)

// Volatility 波动性
type Volatility string

const (
	VolatilityLow     Volatility = "low"
	VolatilityMedium  Volatility = "medium"
	VolatilityHigh    Volatility = "high"
	VolatilityExtreme Volatility = "extreme"
)

// FeatureType 特殊功能类型
type FeatureType string

const (
	FeatureFreeSpins  FeatureType = "FREE_SPINS"   // 免费旋转
	FeatureHoldAndWin FeatureType = "HOLD_AND_WIN" // 锁定重转
	FeatureMultiplier FeatureType = "MULTIPLIER"   // 倍率
	FeatureTumble     FeatureType = "TUMBLE"       // 消除掉落
)

// GameConfig 游戏配置，加载后只读，运行时不得修改
type GameConfig struct {
	GameID        string         `json:"gameId" yaml:"gameId" validate:"required,max=64"`
	Name          string         `json:"name" yaml:"name"`
	ReelLayout    ReelLayout     `json:"reelLayout" yaml:"reelLayout"`
	SymbolWeights []SymbolWeight `json:"symbolWeights" yaml:"symbolWeights" validate:"required,min=1,dive"`
	Paytable      Paytable       `json:"paytable" yaml:"paytable"`
	Features      Features       `json:"features" yaml:"features"`
	RTP           float64        `json:"rtp" yaml:"rtp" validate:"gt=0,lte=1"`
	Volatility    Volatility     `json:"volatility" yaml:"volatility" validate:"oneof=low medium high extreme"`
	MinBet        int64          `json:"minBet" yaml:"minBet" validate:"gt=0"`
	MaxBet        int64          `json:"maxBet" yaml:"maxBet" validate:"gtefield=MinBet"`
}

// ReelLayout 卷轴布局
type ReelLayout struct {
	Reels int `json:"reels" yaml:"reels" validate:"min=1,max=12"`
	Rows  int `json:"rows" yaml:"rows" validate:"min=1,max=12"`
}

// SymbolWeight 符号及其抽取权重
type SymbolWeight struct {
	ID     string     `json:"id" yaml:"id" validate:"required"`
	Weight int        `json:"weight" yaml:"weight" validate:"gt=0"`
	Type   SymbolType `json:"type" yaml:"type" validate:"oneof=normal wild scatter bonus"`
}

// Paytable 赔付表
type Paytable struct {
	// Ways 为true时按"路"计算（每轴匹配数相乘），忽略Paylines
	Ways           bool            `json:"ways" yaml:"ways"`
	Paylines       []Payline       `json:"paylines" yaml:"paylines" validate:"dive"`
	Symbols        []PaytableRow   `json:"symbols" yaml:"symbols" validate:"required,min=1,dive"`
	ScatterPayouts map[int]float64 `json:"scatterPayouts,omitempty" yaml:"scatterPayouts"`
	WildRules      WildRules       `json:"wildRules" yaml:"wildRules"`
}

// Payline 支付线，Rows[i] 为第 i 轴读取的行号
type Payline struct {
	ID   int   `json:"id" yaml:"id" validate:"gt=0"`
	Rows []int `json:"rows" yaml:"rows" validate:"required,dive,gte=0"`
}

// PaytableRow 符号赔率行，Payouts[n-1] 为 n 连的赔率（投注倍数）
type PaytableRow struct {
	Symbol  string    `json:"symbol" yaml:"symbol" validate:"required"`
	Payouts []float64 `json:"payouts" yaml:"payouts" validate:"required,dive,gte=0"`
}

// WildRules 百搭规则
type WildRules struct {
	// CanSubstitute 百搭可替代的符号，为空时替代所有普通符号
	CanSubstitute []string `json:"canSubstitute,omitempty" yaml:"canSubstitute"`
	// Expanding 百搭出现时整轴变为百搭（仅支付线模式）
	Expanding bool `json:"expanding" yaml:"expanding"`
}

// Features 特殊功能配置，各功能独立开关
type Features struct {
	FreeSpins   FreeSpinsConfig   `json:"freeSpins" yaml:"freeSpins"`
	HoldAndWin  HoldAndWinConfig  `json:"holdAndWin" yaml:"holdAndWin"`
	Multiplier  MultiplierConfig  `json:"multiplier" yaml:"multiplier"`
	Megaways    MegawaysConfig    `json:"megaways" yaml:"megaways"`
	Tumble      TumbleConfig      `json:"tumble" yaml:"tumble"`
	RandomBonus RandomBonusConfig `json:"randomBonus" yaml:"randomBonus"`
}

// FreeSpinsConfig 免费旋转：分散符号数量达到阈值时触发
type FreeSpinsConfig struct {
	Enabled       bool    `json:"enabled" yaml:"enabled"`
	TriggerSymbol string  `json:"triggerSymbol" yaml:"triggerSymbol"`
	TriggerCount  int     `json:"triggerCount" yaml:"triggerCount" validate:"gte=0"`
	Spins         int     `json:"spins" yaml:"spins" validate:"gte=0,lte=100"`
	Multiplier    float64 `json:"multiplier" yaml:"multiplier" validate:"gte=0"`
}

// HoldAndWinConfig 锁定重转：奖励符号数量达到阈值时触发
type HoldAndWinConfig struct {
	Enabled       bool            `json:"enabled" yaml:"enabled"`
	TriggerSymbol string          `json:"triggerSymbol" yaml:"triggerSymbol"`
	TriggerCount  int             `json:"triggerCount" yaml:"triggerCount" validate:"gte=0"`
	Respins       int             `json:"respins" yaml:"respins" validate:"gte=0,lte=10"`
	LandChance    float64         `json:"landChance" yaml:"landChance" validate:"gte=0,lte=1"`
	PrizeValues   []WeightedValue `json:"prizeValues" yaml:"prizeValues" validate:"dive"`
}

// MultiplierConfig 随机倍率：按概率触发，倍率作用于本次线奖
type MultiplierConfig struct {
	Enabled     bool            `json:"enabled" yaml:"enabled"`
	Probability float64         `json:"probability" yaml:"probability" validate:"gte=0,lte=1"`
	Values      []WeightedValue `json:"values" yaml:"values" validate:"dive"`
}

// MegawaysConfig 每轴行数随机
type MegawaysConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	MinRows int  `json:"minRows" yaml:"minRows" validate:"gte=0"`
	MaxRows int  `json:"maxRows" yaml:"maxRows" validate:"gte=0"`
}

// TumbleConfig 消除掉落
type TumbleConfig struct {
	Enabled        bool    `json:"enabled" yaml:"enabled"`
	MaxCascades    int     `json:"maxCascades" yaml:"maxCascades" validate:"gte=0,lte=50"`
	MultiplierStep float64 `json:"multiplierStep" yaml:"multiplierStep" validate:"gte=0"`
}

// RandomBonusConfig 与赔付表无关的随机奖励，默认关闭
type RandomBonusConfig struct {
	Enabled     bool    `json:"enabled" yaml:"enabled"`
	Probability float64 `json:"probability" yaml:"probability" validate:"gte=0,lte=1"`
	FreeSpins   int     `json:"freeSpins" yaml:"freeSpins" validate:"gte=0,lte=100"`
}

// WeightedValue 带权重的数值
type WeightedValue struct {
	Value  float64 `json:"value" yaml:"value" validate:"gt=0"`
	Weight int     `json:"weight" yaml:"weight" validate:"gt=0"`
}

// Position 符号位置
type Position struct {
	Reel int `json:"reel"`
	Row  int `json:"row"`
}

// SpinOutcome 一次旋转的唯一权威结果
type SpinOutcome struct {
	SpinID         string          `json:"spinId"`
	Seed           string          `json:"seed"`
	GameID         string          `json:"gameId"`
	Wager          int64           `json:"wager"`
	Reels          [][]string      `json:"reels"`
	WinBreakdown   WinBreakdown    `json:"winBreakdown"`
	FeatureTrigger *FeatureTrigger `json:"featureTrigger"`
	TotalWin       int64           `json:"totalWin"`
	Multiplier     float64         `json:"multiplier"`
	Timestamp      time.Time       `json:"timestamp"`
}

// WinBreakdown 奖金明细
type WinBreakdown struct {
	PaylineWins   []PaylineWin `json:"paylineWins"`
	ScatterWins   []ScatterWin `json:"scatterWins"`
	ExpandedReels []int        `json:"expandedReels,omitempty"`
	BaseWin       int64        `json:"baseWin"`
	FeatureWin    int64        `json:"featureWin"`
	TotalWin      int64        `json:"totalWin"`
}

// PaylineWin 支付线（或路）中奖。Line为0表示按路计算
type PaylineWin struct {
	Line       int        `json:"line"`
	Symbol     string     `json:"symbol"`
	Symbols    []string   `json:"symbols"`
	MatchCount int        `json:"matchCount"`
	Ways       int        `json:"ways,omitempty"`
	Positions  []Position `json:"positions"`
	WinAmount  int64      `json:"winAmount"`
	Multiplier float64    `json:"multiplier"`
}

// ScatterWin 分散符号中奖
type ScatterWin struct {
	Symbol          string     `json:"symbol"`
	Count           int        `json:"count"`
	Positions       []Position `json:"positions"`
	WinAmount       int64      `json:"winAmount"`
	TriggersFeature bool       `json:"triggersFeature"`
}

// FeatureTrigger 特殊功能触发信息。IsActive 仅在功能开始播放时置为true
type FeatureTrigger struct {
	Type     FeatureType `json:"type"`
	Data     FeatureData `json:"data"`
	IsActive bool        `json:"isActive"`
}

// FeatureData 各功能的结算数据，生成时同步结算
type FeatureData struct {
	FreeSpins   *FreeSpinsData  `json:"freeSpins,omitempty"`
	HoldAndWin  *HoldAndWinData `json:"holdAndWin,omitempty"`
	Cascades    []CascadeStep   `json:"cascades,omitempty"`
	Multiplier  float64         `json:"multiplier,omitempty"`
	RandomBonus bool            `json:"randomBonus,omitempty"`
}

// FreeSpinsData 免费旋转结算
type FreeSpinsData struct {
	Spins      int             `json:"spins"`
	Multiplier float64         `json:"multiplier"`
	Rounds     []FreeSpinRound `json:"rounds"`
	TotalWin   int64           `json:"totalWin"`
}

// FreeSpinRound 单次免费旋转
type FreeSpinRound struct {
	Reels       [][]string   `json:"reels"`
	PaylineWins []PaylineWin `json:"paylineWins"`
	Win         int64        `json:"win"`
}

// HoldAndWinData 锁定重转结算
type HoldAndWinData struct {
	HoldPositions []Position `json:"holdPositions"`
	Prizes        []float64  `json:"prizes"`
	RespinsPlayed int        `json:"respinsPlayed"`
	TotalWin      int64      `json:"totalWin"`
}

// CascadeStep 一次消除掉落
type CascadeStep struct {
	Step        int          `json:"step"`
	Removed     []Position   `json:"removed"`
	Reels       [][]string   `json:"reels"`
	PaylineWins []PaylineWin `json:"paylineWins"`
	Multiplier  float64      `json:"multiplier"`
	Win         int64        `json:"win"`
}
