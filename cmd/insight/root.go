package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dvloznov/shopping-insight/internal/config"
	"github.com/dvloznov/shopping-insight/internal/failure"
	"github.com/dvloznov/shopping-insight/internal/logger"
)

var (
	configPath string
	envFile    string
	logLevel   string

	// log is replaced once the configured level is known.
	log = logger.New()
)

var rootCmd = &cobra.Command{
	Use:           "insight",
	Short:         "Load shopping insight categories and keyword ranks into BigQuery",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with status 1 on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		event := log.Error().Err(err)
		if stage, ok := failure.StageOf(err); ok {
			event = event.Str("stage", string(stage))
		}
		if kind := failure.Kind(err); kind != nil {
			event = event.Str("kind", kind.Error())
		}
		event.Msg("Run failed")
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Path to a .env file (default: ./.env when present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")

	rootCmd.AddCommand(categoriesCmd, keywordRanksCmd, windowCmd)
}

// loadConfig layers the command's flags over the file and environment config.
// Only flags set explicitly on the command line override.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath, envFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("cid") {
		cfg.CID = flagCID
	}
	if flags.Changed("date-type") {
		cfg.DateType = flagDateType
	}
	if flags.Changed("start-date") {
		cfg.StartDate = flagStartDate
	}
	if flags.Changed("end-date") {
		cfg.EndDate = flagEndDate
	}
	if flags.Changed("stop-on-empty-page") {
		cfg.StopOnEmptyPage = flagStopOnEmptyPage
	}
	return cfg, nil
}

// runContext returns a context bounded by the run timeout and carrying the
// configured logger.
func runContext(parent context.Context, cfg *config.Config) (context.Context, context.CancelFunc, error) {
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("log level: %w", err)
	}
	log = logger.NewWithLevel(level)

	ctx, cancel := context.WithTimeout(parent, cfg.RunTimeout)
	return logger.WithContext(ctx, log), cancel, nil
}
