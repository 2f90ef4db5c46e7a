package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"ctxfeed/internal/compaction"
	feedctx "ctxfeed/internal/context"
)

// Config 是应用配置的根结构体
type Config struct {
	Version    string                  `mapstructure:"version" yaml:"version"`
	Log        LogConfig               `mapstructure:"log" yaml:"log"`
	Storage    StorageConfig           `mapstructure:"storage" yaml:"storage"`
	Gateway    GatewayConfig           `mapstructure:"gateway" yaml:"gateway"`
	Models     ModelsConfig            `mapstructure:"models" yaml:"models"`
	Budget     BudgetConfig            `mapstructure:"budget" yaml:"budget"`
	Builder    feedctx.BuilderConfig   `mapstructure:"builder" yaml:"builder"`
	Relevance  feedctx.RelevanceConfig `mapstructure:"relevance" yaml:"relevance"`
	Packer     feedctx.PackerConfig    `mapstructure:"packer" yaml:"packer"`
	Compaction compaction.Config       `mapstructure:"compaction" yaml:"compaction"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"omitempty,oneof=debug info warn warning error fatal"`
	Format string `mapstructure:"format" yaml:"format" validate:"omitempty,oneof=console json"`
	File   string `mapstructure:"file" yaml:"file"`
}

// StorageConfig 存储配置（SQLite 上下文夹具库）
type StorageConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// GatewayConfig 网关配置
type GatewayConfig struct {
	Port int    `mapstructure:"port" yaml:"port" validate:"gte=0,lte=65535"`
	Host string `mapstructure:"host" yaml:"host"`
	// MaxBodyBytes 限制 /api/v1/feed 请求体大小
	MaxBodyBytes int64 `mapstructure:"max_body_bytes" yaml:"max_body_bytes" validate:"gt=0"`
}

// ModelsConfig 模型档案配置
type ModelsConfig struct {
	// File 为空时使用内置档案
	File    string `mapstructure:"file" yaml:"file"`
	Default string `mapstructure:"default" yaml:"default"`
}

// BudgetConfig 令牌预算配置
type BudgetConfig struct {
	WarningThreshold  float64 `mapstructure:"warning_threshold" yaml:"warning_threshold" validate:"gt=0,lt=1"`
	CriticalThreshold float64 `mapstructure:"critical_threshold" yaml:"critical_threshold" validate:"gtfield=WarningThreshold,lte=1"`
	// ReservedForOutput 为 0 时使用模型的 max_output_tokens
	ReservedForOutput int `mapstructure:"reserved_for_output" yaml:"reserved_for_output" validate:"gte=0"`
}

// ReservedOverride 返回请求级的输出预留覆盖值，未配置时返回 nil
func (b BudgetConfig) ReservedOverride() *int {
	if b.ReservedForOutput <= 0 {
		return nil
	}
	v := b.ReservedForOutput
	return &v
}

var (
	globalConfig *Config
	configPath   string
	mu           sync.RWMutex

	validate = validator.New()
)

// Load 加载配置文件
// 优先级: ENV > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	mu.Lock()
	defer mu.Unlock()

	// 设置默认值
	SetDefaults()

	// 设置环境变量前缀
	viper.SetEnvPrefix("CTXFEED")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// 如果提供了配置路径，则加载配置文件
	if path != "" {
		expandedPath, err := ExpandPath(path)
		if err != nil {
			return nil, err
		}
		configPath = expandedPath

		viper.SetConfigFile(expandedPath)
		if err := viper.ReadInConfig(); err != nil {
			// 忽略文件不存在错误，解析错误直接返回
			var pathErr *os.PathError
			if !errors.As(err, &pathErr) && !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", expandedPath, err)
			}
		}
	}

	// 反序列化到结构体
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	globalConfig = &cfg
	return &cfg, nil
}

// Validate 校验配置取值范围
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// GetConfig 获取当前配置
func GetConfig() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return globalConfig
}

// Path 返回当前加载的配置文件路径
func Path() string {
	mu.RLock()
	defer mu.RUnlock()
	return configPath
}

// GetString 获取字符串配置值
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt 获取整数配置值
func GetInt(key string) int {
	return viper.GetInt(key)
}

// Get 获取任意配置值，键不存在时返回 nil
func Get(key string) any {
	return viper.Get(key)
}

// Keys 返回所有点分隔的配置键（已排序）
func Keys() []string {
	keys := flattenSettings("", viper.AllSettings())
	sort.Strings(keys)
	return keys
}

// flattenSettings 将嵌套配置展平为点分隔的键列表
func flattenSettings(prefix string, settings map[string]any) []string {
	var keys []string
	for k, v := range settings {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok {
			keys = append(keys, flattenSettings(key, nested)...)
		} else {
			keys = append(keys, key)
		}
	}
	return keys
}

// Set 设置配置值并持久化，新值须通过校验
func Set(key string, value any) error {
	mu.Lock()
	defer mu.Unlock()

	prev := viper.Get(key)
	viper.Set(key, value)

	var cfg Config
	err := viper.Unmarshal(&cfg)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		viper.Set(key, prev)
		return fmt.Errorf("set %s: %w", key, err)
	}
	globalConfig = &cfg

	// 如果有配置文件路径，则持久化
	if configPath != "" {
		return save()
	}
	return nil
}

// save 内部保存函数，调用者需要持有锁
func save() error {
	if configPath == "" {
		return errors.New("config path not set")
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(viper.AllSettings())
	if err != nil {
		return err
	}
	return os.WriteFile(configPath, data, 0600)
}

// SaveTo 保存配置到指定路径
func SaveTo(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// Reset 重置配置（主要用于测试）
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	globalConfig = nil
	configPath = ""
	viper.Reset()
}
