package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"github.com/wfunc/spin-engine/internal/config"
	"github.com/wfunc/spin-engine/internal/game/catalog"
	"github.com/wfunc/spin-engine/internal/game/slot"
	"github.com/wfunc/spin-engine/internal/logger"
	"go.uber.org/zap"
)

// 离线RTP模拟：批量生成结果并与目标RTP对比
func main() {
	var (
		configPath = flag.String("config", "", "配置文件路径")
		gameID     = flag.String("game", "", "游戏ID，为空时模拟全部游戏")
		spins      = flag.Int("spins", 100000, "每个游戏的旋转次数")
		workers    = flag.Int("workers", 0, "并发数，0 为 CPU 核数")
		wagers     = flag.String("wagers", "", "投注额列表，逗号分隔，为空时使用最小投注")
		seed       = flag.String("seed", "", "种子前缀，相同前缀结果可复现")
		asJSON     = flag.Bool("json", false, "以JSON输出结果")
	)
	flag.Parse()

	_, cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("加载配置失败: %v\n", err)
		os.Exit(1)
	}
	cfg.Log.Output = "stdout"
	if *asJSON {
		// 标准输出只留给结果
		cfg.Log.Level = "error"
	}
	if err := logger.Init(&cfg.Log); err != nil {
		fmt.Printf("初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Cleanup()
	log := logger.WithModule(logger.ModuleCatalog)

	wagerList, err := parseWagers(*wagers)
	if err != nil {
		log.Error("投注额参数错误", zap.Error(err))
		os.Exit(1)
	}

	store, err := catalog.NewStaticStore(cfg.Game.ConfigDir, log)
	if err != nil {
		log.Error("加载游戏配置失败", zap.Error(err))
		os.Exit(1)
	}

	ids := store.IDs()
	if *gameID != "" {
		if _, ok := store.Get(*gameID); !ok {
			log.Error("游戏不存在", zap.String("game_id", *gameID), zap.Strings("available", ids))
			os.Exit(1)
		}
		ids = []string{*gameID}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var results []*slot.SimulationResult
	for _, id := range ids {
		gc, _ := store.Get(id)
		res, err := slot.Simulate(ctx, gc, slot.SimulationOptions{
			Spins:      *spins,
			Wagers:     wagerList,
			SeedPrefix: *seed,
			Workers:    *workers,
		})
		if err != nil {
			log.Error("模拟失败", zap.String("game_id", id), zap.Error(err))
			os.Exit(1)
		}
		log.Info("模拟完成",
			zap.String("game_id", id),
			zap.String("rtp", res.RTP.String()),
			zap.Duration("duration", res.Duration))
		results = append(results, res)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			log.Error("输出结果失败", zap.Error(err))
			os.Exit(1)
		}
		return
	}
	printTable(results)
}

func parseWagers(s string) ([]int64, error) {
	if s == "" {
		return nil, nil
	}
	var out []int64
	for _, part := range strings.Split(s, ",") {
		v, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil || v <= 0 {
			return nil, fmt.Errorf("无效的投注额 %q", part)
		}
		out = append(out, v)
	}
	return out, nil
}

func printTable(results []*slot.SimulationResult) {
	fmt.Printf("%-20s %10s %10s %10s %10s %8s %8s %12s\n",
		"GAME", "SPINS", "RTP", "TARGET", "DEVIATION", "HIT%", "FEAT%", "MAX_WIN")
	for _, r := range results {
		fmt.Printf("%-20s %10d %10s %10s %10s %7.2f%% %7.2f%% %12d\n",
			r.GameID, r.Spins,
			r.RTP.StringFixed(4), r.TargetRTP.StringFixed(4), r.Deviation.StringFixed(4),
			r.HitFrequency*100, r.FeatureFrequency*100, r.MaxWin)

		features := make([]string, 0, len(r.FeatureCounts))
		for f := range r.FeatureCounts {
			features = append(features, string(f))
		}
		sort.Strings(features)
		for _, f := range features {
			fmt.Printf("    %-16s %d\n", f, r.FeatureCounts[slot.FeatureType(f)])
		}
	}
}
