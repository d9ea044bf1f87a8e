package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dgellow/authgate/internal/config"
	"github.com/dgellow/authgate/internal/log"
)

// BuildVersion is set at link time
var BuildVersion = "dev"

var (
	envFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "authgate",
	Short: "authgate is a social login gateway",
	Long: `authgate signs browsers in with Google, Microsoft or Facebook, keeps the
result in a sealed session cookie and issues short-lived tokens for an API backend.

Configuration is read from AUTHGATE_* environment variables, optionally loaded
from a dotenv file with --env-file.`,
	Version:       BuildVersion,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if logLevel == "" {
			return nil
		}
		return log.SetLogLevel(logLevel)
	},
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Path to a dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (error, warn, info, debug, trace)")
}

// loadConfig loads and validates configuration, logging any warnings
func loadConfig() (config.Config, error) {
	cfg, result, err := config.Load(envFile)
	if err != nil {
		return config.Config{}, err
	}
	for _, w := range result.Warnings {
		log.LogWarnWithFields("config", w.Message, map[string]any{
			"path": w.Path,
		})
	}
	return cfg, nil
}
