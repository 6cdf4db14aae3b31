package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"pilgrimwatch/internal/config"
	"pilgrimwatch/internal/logging"
)

var (
	rootConfigPath string
	rootSchemaPath string
	rootServerURL  string
)

var rootCmd = &cobra.Command{
	Use:           "pilgrimwatch",
	Short:         "Pilgrim safety monitoring dashboard",
	Long:          "pilgrimwatch follows a pilgrim bracelet simulation in real time and drives its playback controls.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootConfigPath, "config", "", "Path to configuration YAML (defaults apply when empty)")
	rootCmd.PersistentFlags().StringVar(&rootSchemaPath, "schema", "", "Path to a CUE schema overriding the embedded one")
	rootCmd.PersistentFlags().StringVar(&rootServerURL, "server", "", "Simulation backend URL, overrides server.url")

	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(controlCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(generateCmd)
}

// loadConfig reads the configuration and applies the --server flag.
func loadConfig(configPath, schemaPath, serverURL string) (*config.Config, error) {
	cfg, err := config.Load(configPath, schemaPath)
	if err != nil {
		return nil, err
	}
	if serverURL != "" {
		cfg.Server.URL = serverURL
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// newLogger opens the configured log destination. Full-screen views log to
// a file by default since the terminal belongs to the screen.
func newLogger(cfg *config.Config, mode viewMode, fallback io.Writer) (*slog.Logger, func() error, error) {
	path := cfg.Logging.File
	if mode == modeTUI && path == "" {
		path = "pilgrimwatch.log"
	}
	return logging.Open(path, fallback, cfg.Logging.Format, cfg.Logging.Level)
}
