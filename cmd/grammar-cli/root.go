package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"grammar-api-app/internal/config"
	"grammar-api-app/internal/presentation/di"
)

// globalOptions 全コマンド共通のフラグ
type globalOptions struct {
	cfgFile string
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "grammar-cli",
		Short: "Grammar and spelling correction from the command line",
		Long: `grammar-cli corrects English text with the same backend chain as the
HTTP server: hosted models first, LanguageTool next, and the built-in
rule table as the final fallback.`,
		Version:       di.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(
		&opts.cfgFile, "config", "", "config file (default: $CONFIG_PATH or ~/.grammar-api-app/config.yaml)",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&opts.verbose, "verbose", "v", false, "log backend attempts to stderr",
	)

	rootCmd.AddCommand(
		newCorrectCmd(opts),
		newLanguagesCmd(),
		newHealthCmd(opts),
		newRulesCmd(opts),
	)
	return rootCmd
}

// loadConfig フラグまたは既定のパスから設定を読み込む
func (o *globalOptions) loadConfig() (*config.Config, error) {
	path := o.cfgFile
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	return cfg, nil
}

// newContainer CLI向けにコンテナを組み立てる。メトリクスは出力しない
func (o *globalOptions) newContainer(cmd *cobra.Command) (*di.Container, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	cfg.Metrics.Enabled = false

	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	return di.NewContainer(cfg, logger)
}
