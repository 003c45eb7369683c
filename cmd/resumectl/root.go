package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"resumeanalyzer/internal/config"
	"resumeanalyzer/internal/logger"
)

const appName = "resumectl"

var (
	// Used for flags.
	cfgFile string
	debug   bool
	jsonLog bool

	rootCmd = &cobra.Command{
		Use:           appName,
		Short:         "resumectl analyses résumés from the command line",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default: $RESUME_CONFIG_FILE, then environment only)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolVarP(&jsonLog, "json", "j", false, "json format for logging")
}

// loadConfig reads configuration and builds a logger honouring the CLI flags.
func loadConfig() (*config.Config, *zap.Logger, error) {
	var (
		cfg *config.Config
		err error
	)
	if cfgFile != "" {
		cfg, err = config.LoadFile(cfgFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	if debug {
		cfg.Log.Level = "debug"
	}
	if jsonLog {
		cfg.Log.Format = "json"
	}
	log, err := logger.NewTo(cfg.Log.Format, cfg.Log.Level, "stderr")
	if err != nil {
		return nil, nil, fmt.Errorf("creating a logger: %w", err)
	}
	return cfg, log, nil
}
