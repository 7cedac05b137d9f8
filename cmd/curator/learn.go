package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deusflow/curator/internal/app"
	"github.com/deusflow/curator/internal/personalize"
)

var learnCmd = &cobra.Command{
	Use:   "learn",
	Short: "Rebuild the preference profile from past review records",
	Long:  "Reads review_*.json records in the output directory, updates profile_cache.json incrementally and prints the learned profile.",
	RunE:  runLearn,
}

func init() {
	rootCmd.AddCommand(learnCmd)
}

func runLearn(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	profile, err := app.LearnProfile(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to learn profile: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), personalize.Summary(profile))
	return nil
}
