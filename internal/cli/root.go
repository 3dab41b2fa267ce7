package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	configpkg "github.com/drblury/resourcewatch/internal/runtime/config"
	loggingpkg "github.com/drblury/resourcewatch/internal/runtime/logging"
)

var (
	configPath string
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:           "resourcewatch",
	Short:         "Stream console messages of browser targets to a message transport",
	Long:          "Watches console activity of debugging targets and publishes history and live batches\nthrough Kafka, RabbitMQ, NATS, AWS, HTTP, a file or a SQLite archive.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Override the configured log format (json|text)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies the logging flags on top.
func loadConfig() (*configpkg.Config, error) {
	cfg, err := configpkg.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command, cfg *configpkg.Config) (loggingpkg.ServiceLogger, error) {
	log, err := loggingpkg.NewHandlerLogger(cmd.ErrOrStderr(), cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return loggingpkg.NewSlogServiceLogger(log), nil
}
