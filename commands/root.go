// Package commands is the pulse command line: the API server plus the
// maintenance tasks that share its configuration.
package commands

import (
	"fmt"
	"os"

	"pulse/config"
	"pulse/logger"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "pulse",
	Short: "Pulse - social feed API",
	Long: `Pulse serves the social feed REST API: posts, likes, comments and
user profiles, with live updates over /ws and optional Web Push.

Running pulse without a subcommand starts the server.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")
}

// loadConfig reads the configuration and builds the process logger from it.
func loadConfig() (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger.New(cfg.LogLevel, cfg.Release()), nil
}
