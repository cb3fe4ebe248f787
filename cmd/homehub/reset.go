package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dukerupert/homehub/internal/database"
	"github.com/dukerupert/homehub/internal/store"
)

var resetConfirmed bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all members, chores, events, recipes, meals and points history",
	Long: `Delete all household content in one transaction. Settings, including
stored credentials, are kept.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !resetConfirmed {
			return errors.New("refusing to reset without --yes")
		}

		db, err := database.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()

		if err := store.NewResetStore(db).Reset(cmd.Context()); err != nil {
			return err
		}
		logger.Warn("household data reset", "db", cfg.DBPath)
		fmt.Fprintln(cmd.OutOrStdout(), "reset complete")
		return nil
	},
}

func init() {
	resetCmd.Flags().BoolVar(&resetConfirmed, "yes", false, "confirm the reset")
}
