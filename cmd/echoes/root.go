package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/infinite-echoes/echoes/internal/cli"
	"github.com/infinite-echoes/echoes/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "echoes",
	Short: "Echoes is a graph-driven turn engine for tabletop narration",
	Long: `Echoes runs each player turn through a compiled graph of nodes
(router, mechanics, narrator) and persists the session between turns.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Path to a YAML config file")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.String("log-format", "", "Log format: 'text' or 'json'")
	flags.String("graph", "", "Topology file to load instead of the built-in graph")
	flags.String("store", "", "Session store backend: 'memory' or 'redis'")
	flags.String("redis-url", "", "Redis URL for the redis store")
}

// loadConfig reads the config file and environment, then applies flags
// that were set explicitly.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}

	overrides := map[string]*string{
		"log-level":  &cfg.LogLevel,
		"log-format": &cfg.LogFormat,
		"graph":      &cfg.Graph.Path,
		"store":      &cfg.Store.Backend,
		"redis-url":  &cfg.Store.RedisURL,
	}
	for name, dst := range overrides {
		if cmd.Flags().Changed(name) {
			*dst, _ = cmd.Flags().GetString(name)
		}
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// openApp loads config and wires the application for a command.
func openApp(ctx context.Context, cmd *cobra.Command) (*cli.App, *slog.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	logger, err := cli.NewLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return app, logger, nil
}
