package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wfunc/spin-engine/internal/game/slot"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// StaticStore 随程序发布的静态配置：内置预设加上配置目录中的 YAML 文件。
// 加载后只读。
type StaticStore struct {
	configs map[string]*slot.GameConfig
}

// NewStaticStore 加载内置预设和 dir 下的 *.yaml / *.yml。
// dir 为空或不存在时只使用预设。任何配置校验失败都会返回错误，校验失败的游戏不会被收录。
func NewStaticStore(dir string, logger *zap.Logger) (*StaticStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &StaticStore{configs: make(map[string]*slot.GameConfig)}

	var errs []error
	for _, id := range slot.PresetIDs() {
		cfg := slot.GetConfigByID(id)
		if err := slot.ValidateConfig(cfg); err != nil {
			errs = append(errs, err)
			continue
		}
		s.configs[id] = cfg
	}

	if dir != "" {
		files, err := listConfigFiles(dir)
		if err != nil {
			errs = append(errs, err)
		}
		for _, path := range files {
			cfg, err := loadConfigFile(path)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if _, exists := s.configs[cfg.GameID]; exists {
				logger.Info("配置文件覆盖内置游戏", zap.String("game_id", cfg.GameID), zap.String("file", path))
			}
			s.configs[cfg.GameID] = cfg
		}
	}

	logger.Info("静态游戏配置已加载", zap.Int("games", len(s.configs)), zap.String("dir", dir))
	return s, errors.Join(errs...)
}

func listConfigFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("读取配置目录失败: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// loadConfigFile 解析并校验单个配置文件
func loadConfigFile(path string) (*slot.GameConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}
	var cfg slot.GameConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件 %s 失败: %w", filepath.Base(path), err)
	}
	if err := slot.ValidateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return &cfg, nil
}

// Get 获取静态配置
func (s *StaticStore) Get(gameID string) (*slot.GameConfig, bool) {
	cfg, ok := s.configs[gameID]
	return cfg, ok
}

// IDs 已收录的游戏ID（排序）
func (s *StaticStore) IDs() []string {
	ids := make([]string, 0, len(s.configs))
	for id := range s.configs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
