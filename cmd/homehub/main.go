// Command homehub serves the family dashboard API.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dukerupert/homehub/internal/config"
	"github.com/dukerupert/homehub/internal/logging"
)

var (
	configFile string
	envFile    string

	cfg    *config.Config
	logger *slog.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "homehub",
	Short:         "Family hub: calendar, chores, meals and points",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		opts := config.DefaultOptions()
		opts.EnvFile = envFile
		opts.ConfigFile = configFile

		c, err := config.Load(opts)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c
		logger = logging.Setup(cfg.LogLevel, cfg.LogFormat)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: ./homehub.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(shoppingListCmd)
}
