package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Inspect reconciliation plans",
}

var planShowCmd = &cobra.Command{
	Use:   "show [plan-file]",
	Short: "Show the entries of a plan",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlanShow,
}

func init() {
	planCmd.AddCommand(planShowCmd)
	rootCmd.AddCommand(planCmd)
}

func runPlanShow(cmd *cobra.Command, args []string) error {
	if planStore == nil {
		return errors.New("plan store not configured")
	}
	plan, err := planStore.Load(args[0])
	if err != nil {
		return fmt.Errorf("failed to load plan: %w", err)
	}

	renderPlan(cmd.OutOrStdout(), plan, true)
	if plan.IsEmpty() {
		cmd.Println("The plan is empty.")
	}
	return nil
}
