package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ctxfeed/internal/compaction"
	feedctx "ctxfeed/internal/context"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	Reset()
	defer Reset()

	cfg, err := Load("")
	require.NoError(t, err)

	// 验证默认值
	assert.Equal(t, 8080, cfg.Gateway.Port)
	assert.Equal(t, "127.0.0.1", cfg.Gateway.Host)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "gpt-4o", cfg.Models.Default)
	assert.Equal(t, 0.75, cfg.Budget.WarningThreshold)
	assert.Equal(t, 0.90, cfg.Budget.CriticalThreshold)
	assert.Nil(t, cfg.Budget.ReservedOverride())

	assert.Equal(t, feedctx.DefaultBuilderConfig(), cfg.Builder)
	assert.Equal(t, feedctx.DefaultRelevanceConfig(), cfg.Relevance)
	assert.Equal(t, feedctx.DefaultPackerConfig(), cfg.Packer)
	assert.Equal(t, compaction.DefaultConfig(), cfg.Compaction)
}

func TestLoad_FromFile(t *testing.T) {
	Reset()
	defer Reset()

	path := writeConfig(t, `
gateway:
  port: 9000
  host: "0.0.0.0"
log:
  level: debug
  format: json
builder:
  recent_history_count: 4
  stale_after: 48h
packer:
  compression_margin: 25
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	// 文件中的值覆盖默认值
	assert.Equal(t, 9000, cfg.Gateway.Port)
	assert.Equal(t, "0.0.0.0", cfg.Gateway.Host)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 4, cfg.Builder.RecentHistoryCount)
	assert.Equal(t, 48*time.Hour, cfg.Builder.StaleAfter)
	assert.Equal(t, 25, cfg.Packer.CompressionMargin)

	// 未指定的值使用默认值
	assert.Equal(t, 0.8, cfg.Packer.CompressionTargetRatio)
	assert.Equal(t, path, Path())
}

func TestLoad_EnvOverride(t *testing.T) {
	Reset()
	defer Reset()

	t.Setenv("CTXFEED_GATEWAY_PORT", "7777")
	t.Setenv("CTXFEED_LOG_LEVEL", "warn")
	t.Setenv("CTXFEED_BUDGET_RESERVED_FOR_OUTPUT", "2048")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 7777, cfg.Gateway.Port)
	assert.Equal(t, "warn", cfg.Log.Level)
	require.NotNil(t, cfg.Budget.ReservedOverride())
	assert.Equal(t, 2048, *cfg.Budget.ReservedOverride())
}

func TestLoad_Priority(t *testing.T) {
	Reset()
	defer Reset()

	path := writeConfig(t, "gateway:\n  port: 9000\n")
	t.Setenv("CTXFEED_GATEWAY_PORT", "7777")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7777, cfg.Gateway.Port, "ENV should override file")
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "无效的 YAML",
			content: "gateway:\n  port: [invalid\n",
		},
		{
			name:    "critical 低于 warning",
			content: "budget:\n  warning_threshold: 0.95\n  critical_threshold: 0.9\n",
		},
		{
			name:    "未知日志级别",
			content: "log:\n  level: loud\n",
		},
		{
			name:    "压缩比例越界",
			content: "packer:\n  compression_target_ratio: 1.5\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Reset()
			defer Reset()

			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
			assert.Nil(t, GetConfig())
		})
	}
}

func TestLoad_NonexistentFile(t *testing.T) {
	Reset()
	defer Reset()

	// 加载不存在的文件不报错，使用默认值
	cfg, err := Load("/nonexistent/path/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Gateway.Port)
}

func TestSetPersists(t *testing.T) {
	Reset()
	defer Reset()

	path := filepath.Join(t.TempDir(), "config.yaml")
	_, err := Load(path)
	require.NoError(t, err)

	require.NoError(t, Set("gateway.port", 6666))
	assert.Equal(t, 6666, GetInt("gateway.port"))

	Reset()
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 6666, cfg.Gateway.Port)
	assert.Equal(t, feedctx.DefaultBuilderConfig().StaleAfter, cfg.Builder.StaleAfter)
}

func TestSetWithoutPath(t *testing.T) {
	Reset()
	defer Reset()

	_, err := Load("")
	require.NoError(t, err)

	// 无配置文件时只修改内存中的值
	require.NoError(t, Set("models.default", "claude-3-5-sonnet"))
	assert.Equal(t, "claude-3-5-sonnet", GetString("models.default"))
}

func TestSaveTo_RoundTrip(t *testing.T) {
	Reset()
	defer Reset()

	cfg, err := Load("")
	require.NoError(t, err)
	cfg.Models.Default = "gemini-1.5-pro"
	cfg.Relevance.SameTaskBonus = 20

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, SaveTo(cfg, path))

	Reset()
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gemini-1.5-pro", loaded.Models.Default)
	assert.Equal(t, 20.0, loaded.Relevance.SameTaskBonus)
	assert.Equal(t, cfg.Relevance.StaleRamp, loaded.Relevance.StaleRamp)
}

func TestGetConfig(t *testing.T) {
	Reset()
	defer Reset()

	// 加载前返回 nil
	assert.Nil(t, GetConfig())

	_, err := Load("")
	require.NoError(t, err)
	require.NotNil(t, GetConfig())
	assert.Equal(t, 8080, GetConfig().Gateway.Port)
}

func TestSetRejectsInvalid(t *testing.T) {
	Reset()
	defer Reset()

	path := filepath.Join(t.TempDir(), "config.yaml")
	_, err := Load(path)
	require.NoError(t, err)

	err = Set("gateway.port", 70000)
	require.Error(t, err)
	assert.Equal(t, 8080, GetInt("gateway.port"), "旧值保留")
	assert.NoFileExists(t, path)
}

func TestKeysAndGet(t *testing.T) {
	Reset()
	defer Reset()

	_, err := Load("")
	require.NoError(t, err)

	keys := Keys()
	assert.Contains(t, keys, "gateway.port")
	assert.Contains(t, keys, "relevance.title_weight")
	assert.IsIncreasing(t, keys)

	assert.Equal(t, "127.0.0.1", Get("gateway.host"))
	assert.Nil(t, Get("no.such.key"))
}
