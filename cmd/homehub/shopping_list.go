package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dukerupert/homehub/internal/database"
	"github.com/dukerupert/homehub/internal/meal"
	"github.com/dukerupert/homehub/internal/store"
)

var (
	listStart string
	listEnd   string
	listJSON  bool
)

var shoppingListCmd = &cobra.Command{
	Use:   "shopping-list",
	Short: "Print the aggregated shopping list for a date range",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := database.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()

		engine := meal.NewEngine(store.NewMealStore(db), store.NewRecipeStore(db), logger,
			meal.WithLocation(cfg.Location))
		list, err := engine.GenerateShoppingList(cmd.Context(), listStart, listEnd)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if listJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(list)
		}

		fmt.Fprintf(out, "%s to %s, %d planned meals\n\n", list.DateRange.Start, list.DateRange.End, list.MealCount)
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		for _, item := range list.Items {
			mark := " "
			if item.Checked {
				mark = "x"
			}
			fmt.Fprintf(tw, "[%s]\t%s\t%s\n", mark, item.Name, item.Category)
		}
		return tw.Flush()
	},
}

func init() {
	shoppingListCmd.Flags().StringVar(&listStart, "start", "", "first date, YYYY-MM-DD")
	shoppingListCmd.Flags().StringVar(&listEnd, "end", "", "last date, YYYY-MM-DD")
	shoppingListCmd.Flags().BoolVar(&listJSON, "json", false, "print JSON instead of a table")
	shoppingListCmd.MarkFlagRequired("start")
	shoppingListCmd.MarkFlagRequired("end")
}
