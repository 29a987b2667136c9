package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/spin-engine/internal/config"
	"go.uber.org/zap/zapcore"
)

func TestInit_FileOutput(t *testing.T) {
	dir := t.TempDir()
	err := Init(&config.LogConfig{
		Level:  "debug",
		Format: "json",
		Output: "file",
		File:   config.LogFileConfig{Path: dir, Filename: "test.log", MaxSize: 1},
		Modules: map[string]string{
			ModuleLedger: "error",
		},
	})
	require.NoError(t, err)

	Info("测试日志")
	WithModule(ModuleLedger).Info("不应输出")
	WithModule(ModuleLedger).Error("账本错误")
	require.NoError(t, Sync())

	data, err := os.ReadFile(filepath.Join(dir, "test.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "测试日志")
	assert.Contains(t, string(data), "账本错误")
	assert.NotContains(t, string(data), "不应输出")

	errData, err := os.ReadFile(filepath.Join(dir, "error.log"))
	require.NoError(t, err)
	assert.Contains(t, string(errData), "账本错误")
	assert.NotContains(t, string(errData), "测试日志")
}

func TestSetLevel(t *testing.T) {
	require.NoError(t, Init(&config.LogConfig{Level: "info", Format: "console", Output: "stdout"}))
	assert.Equal(t, zapcore.InfoLevel, Level())

	SetLevel("warn")
	assert.Equal(t, zapcore.WarnLevel, Level())
	assert.False(t, GetLogger().Core().Enabled(zapcore.InfoLevel))

	SetLevel("bogus")
	assert.Equal(t, zapcore.InfoLevel, Level())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel(""))
}
