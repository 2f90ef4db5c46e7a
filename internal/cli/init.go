package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"ctxfeed/internal/config"
	"ctxfeed/internal/models"
	"ctxfeed/internal/storage"
)

// InitOptions init 命令选项
type InitOptions struct {
	Force      bool
	WithModels bool
	NoStore    bool
}

// NewInitCmd 创建 init 命令
func NewInitCmd() *cobra.Command {
	opts := &InitOptions{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration",
		Long: `Write the effective configuration to the config path (default
~/.ctxfeed/config.yaml) and create the fixture store.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx := GetCLIContext(cmd)
			if cliCtx == nil {
				return fmt.Errorf("CLI context not initialized")
			}
			return RunInit(cmd, cliCtx, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Force, "force", "f", false, "overwrite existing configuration")
	cmd.Flags().BoolVar(&opts.WithModels, "models", false, "also write an editable copy of the built-in model profiles")
	cmd.Flags().BoolVar(&opts.NoStore, "no-store", false, "do not create the fixture store")
	return cmd
}

// RunInit 执行初始化
func RunInit(cmd *cobra.Command, cliCtx *CLIContext, opts *InitOptions) error {
	out := cmd.OutOrStdout()
	cfg := *cliCtx.Config
	configPath := cliCtx.ConfigPath

	if _, err := os.Stat(configPath); err == nil && !opts.Force {
		return fmt.Errorf("configuration already exists at %s (use --force to overwrite)", configPath)
	}

	if opts.WithModels {
		modelsPath, err := config.DefaultModelsPath()
		if err != nil {
			return err
		}
		if err := writeFile(modelsPath, models.DefaultYAML(), opts.Force); err != nil {
			return err
		}
		cfg.Models.File = modelsPath
		fmt.Fprintf(out, "Wrote model profiles to %s\n", modelsPath)
	}

	if !opts.NoStore && cfg.Storage.Path == "" {
		dataPath, err := config.DefaultDataPath()
		if err != nil {
			return err
		}
		cfg.Storage.Path = dataPath
	}

	if err := config.SaveTo(&cfg, configPath); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	fmt.Fprintf(out, "Wrote configuration to %s\n", configPath)

	if opts.NoStore {
		return nil
	}
	db, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("initialize fixture store: %w", err)
	}
	defer db.Close()
	fmt.Fprintf(out, "Fixture store ready at %s\n", db.Path())
	return nil
}

func writeFile(path string, data []byte, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	expanded, err := config.ExpandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0755); err != nil {
		return err
	}
	return os.WriteFile(expanded, data, 0644)
}
