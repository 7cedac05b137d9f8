package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/deusflow/curator/internal/app"
)

var selectCmd = &cobra.Command{
	Use:   "select category:id [category:id...]",
	Short: "Record the curator's picks in a review record",
	Long:  "Marks items as selected in review_<date>.json so the next learn pass picks them up.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSelect,
}

var selectDate string

func init() {
	selectCmd.Flags().StringVarP(&selectDate, "date", "d", "", "Record date as YYYY-MM-DD (default today)")

	rootCmd.AddCommand(selectCmd)
}

func parseDay(value string, now time.Time) (time.Time, error) {
	if value == "" {
		return now, nil
	}
	day, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q, want YYYY-MM-DD: %w", value, err)
	}
	return day, nil
}

func runSelect(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	day, err := parseDay(selectDate, time.Now())
	if err != nil {
		return err
	}
	n, err := app.MarkSelected(cfg, day, args, log)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Marked %d item(s) for %s\n", n, day.Format("2006-01-02"))
	return nil
}
