package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"golang.org/x/term"

	"ctxfeed/internal/config"
	"ctxfeed/internal/models"
	"ctxfeed/internal/server"
	"ctxfeed/internal/storage"
)

// CLIContext CLI 上下文
type CLIContext struct {
	Config     *config.Config
	ConfigPath string
	Logger     *zerolog.Logger
	Verbose    bool
	Quiet      bool

	registry *models.Registry
	storage  *storage.DB
}

// NewCLIContext 创建 CLI 上下文
func NewCLIContext(cfg *config.Config, configPath string, log *zerolog.Logger, verbose, quiet bool) *CLIContext {
	return &CLIContext{
		Config:     cfg,
		ConfigPath: configPath,
		Logger:     log,
		Verbose:    verbose,
		Quiet:      quiet,
	}
}

// Registry 获取模型档案（懒加载）
func (c *CLIContext) Registry() (*models.Registry, error) {
	if c.registry != nil {
		return c.registry, nil
	}
	reg, err := server.LoadRegistry(c.Config)
	if err != nil {
		return nil, err
	}
	c.registry = reg
	return reg, nil
}

// Model resolves the --model flag, falling back to the configured default.
func (c *CLIContext) Model(flag string) (*models.Profile, error) {
	reg, err := c.Registry()
	if err != nil {
		return nil, err
	}
	id := flag
	if id == "" {
		id = c.Config.Models.Default
	}
	return reg.Get(id)
}

// Storage 打开夹具库，path 为空时使用配置中的路径
func (c *CLIContext) Storage(path string) (*storage.DB, error) {
	if c.storage != nil {
		return c.storage, nil
	}
	if path == "" {
		path = c.Config.Storage.Path
	}
	if path == "" {
		return nil, fmt.Errorf("no fixture store configured (set storage.path or pass --db)")
	}
	db, err := storage.Open(path)
	if err != nil {
		return nil, err
	}
	c.storage = db
	return db, nil
}

// Close 关闭资源
func (c *CLIContext) Close() error {
	if c.storage != nil {
		err := c.storage.Close()
		c.storage = nil
		return err
	}
	return nil
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// readInput reads the named file, or stdin for "" and "-".
func readInput(in io.Reader, name string) ([]byte, error) {
	if name == "" || name == "-" {
		return io.ReadAll(in)
	}
	return os.ReadFile(name)
}
