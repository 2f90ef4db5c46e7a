package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ctxfeed/internal/config"
	"ctxfeed/internal/models"
)

type testEnv struct {
	dir        string
	configPath string
	dbPath     string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	config.Reset()
	t.Cleanup(config.Reset)

	env := &testEnv{
		dir:        dir,
		configPath: filepath.Join(dir, "config.yaml"),
		dbPath:     filepath.Join(dir, "data.db"),
	}
	cfg := fmt.Sprintf("log:\n  level: error\nstorage:\n  path: %s\nmodels:\n  default: gpt-4o-mini\n", env.dbPath)
	require.NoError(t, os.WriteFile(env.configPath, []byte(cfg), 0600))
	return env
}

func (e *testEnv) writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// run executes the root command with stdin and returns stdout and stderr.
func (e *testEnv) run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	config.Reset()

	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestVersionCmd(t *testing.T) {
	env := newTestEnv(t)

	out, _, err := env.run(t, "", "version", "--json")
	require.NoError(t, err)

	var info BuildInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, Version, info.Version)
	assert.NotEmpty(t, info.GoVersion)
}

func TestModelsCmd(t *testing.T) {
	env := newTestEnv(t)

	t.Run("列出全部", func(t *testing.T) {
		out, _, err := env.run(t, "", "models", "--json")
		require.NoError(t, err)

		var profiles []models.Profile
		require.NoError(t, json.Unmarshal([]byte(out), &profiles))
		ids := make([]string, len(profiles))
		for i, p := range profiles {
			ids[i] = p.ID
		}
		assert.Contains(t, ids, "gpt-4o")
		assert.IsNonDecreasing(t, ids)
	})

	t.Run("单个模型", func(t *testing.T) {
		out, _, err := env.run(t, "", "models", "claude-sonnet-4.5")
		require.NoError(t, err)

		var p models.Profile
		require.NoError(t, json.Unmarshal([]byte(out), &p))
		assert.Equal(t, "claude-sonnet-4.5", p.ID)
	})

	t.Run("未知模型", func(t *testing.T) {
		_, _, err := env.run(t, "", "models", "nope")
		require.Error(t, err)
		assert.ErrorIs(t, err, models.ErrConfiguration)
	})
}

func TestEstimateCmd(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name     string
		args     []string
		input    string
		wantType models.ContentType
		detected bool
	}{
		{
			name:     "指定类型",
			args:     []string{"estimate", "--type", "text", "--json"},
			input:    "hello world, this is plain prose",
			wantType: models.ContentText,
		},
		{
			name:     "自动检测",
			args:     []string{"estimate", "--json", "-"},
			input:    `{"a": 1, "b": [1, 2, 3]}`,
			wantType: models.ContentStructured,
			detected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := env.run(t, tt.input, tt.args...)
			require.NoError(t, err)

			var res EstimateResult
			require.NoError(t, json.Unmarshal([]byte(out), &res))
			assert.Equal(t, "gpt-4o-mini", res.Model)
			assert.Equal(t, tt.wantType, res.ContentType)
			assert.Equal(t, tt.detected, res.Detected)
			assert.Positive(t, res.Tokens)
			assert.Equal(t, len(tt.input), res.Chars)
		})
	}
}

func TestCompressCmd(t *testing.T) {
	env := newTestEnv(t)

	t.Run("缺少 target", func(t *testing.T) {
		_, _, err := env.run(t, "x", "compress")
		require.Error(t, err)
	})

	t.Run("压缩文本", func(t *testing.T) {
		input := strings.Repeat("The quick brown fox jumps over the lazy dog.\n", 200)
		out, stderr, err := env.run(t, input, "compress", "--type", "text", "--target", "100")
		require.NoError(t, err)
		assert.Less(t, len(out), len(input))
		assert.Contains(t, stderr, "target 100")
	})
}

func TestInitCmd(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.Remove(env.configPath))

	out, _, err := env.run(t, "", "init", "--models")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote configuration to "+env.configPath)
	assert.FileExists(t, env.configPath)
	assert.FileExists(t, filepath.Join(env.dir, ".ctxfeed", "models.yaml"))

	// 已存在时需要 --force
	_, _, err = env.run(t, "", "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--force")

	_, _, err = env.run(t, "", "init", "--force", "--no-store")
	require.NoError(t, err)
}

func TestConfigCmd(t *testing.T) {
	env := newTestEnv(t)

	out, _, err := env.run(t, "", "config", "get", "models.default")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini\n", out)

	out, _, err = env.run(t, "", "config", "set", "gateway.port", "9090")
	require.NoError(t, err)
	assert.Equal(t, "Set gateway.port = 9090\n", out)

	out, _, err = env.run(t, "", "config", "get", "gateway.port")
	require.NoError(t, err)
	assert.Equal(t, "9090\n", out)

	out, _, err = env.run(t, "", "config", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "gateway.port = 9090\n")

	out, _, err = env.run(t, "", "config", "path")
	require.NoError(t, err)
	assert.Equal(t, env.configPath+"\n", out)

	tests := []struct {
		name string
		args []string
	}{
		{name: "未知键", args: []string{"config", "get", "no.such"}},
		{name: "非法取值", args: []string{"config", "set", "gateway.port", "70000"}},
		{name: "设置未知键", args: []string{"config", "set", "no.such", "1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := env.run(t, "", tt.args...)
			require.Error(t, err)
		})
	}
}
