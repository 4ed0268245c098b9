package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var applyYes bool

var applyCmd = &cobra.Command{
	Use:   "apply [plan-file]",
	Short: "Apply a reconciliation plan",
	Long: `Applies a plan written by 'recon dupes --out' or 'recon orphans --out'.

Every entry is re-checked against the store before it is applied: documents
that are gone or have moved to another tenant are skipped, and fields are
only cleared while they still hold the value recorded in the plan. Applying
the same plan twice changes nothing the second time.

This is destructive. You are asked to confirm unless --yes is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runApply,
}

func init() {
	applyCmd.Flags().BoolVarP(&applyYes, "yes", "y", false, "apply without asking for confirmation")
	rootCmd.AddCommand(applyCmd)
}

func runApply(cmd *cobra.Command, args []string) error {
	if planStore == nil {
		return errors.New("plan store not configured")
	}
	plan, err := planStore.Load(args[0])
	if err != nil {
		return fmt.Errorf("failed to load plan: %w", err)
	}

	renderPlan(cmd.OutOrStdout(), plan, false)
	if plan.IsEmpty() {
		cmd.Println("Nothing to apply.")
		return nil
	}

	if !applyYes {
		ok, err := confirm(cmd, fmt.Sprintf("Apply %d changes to tenant %s?", len(plan.Entries), plan.TenantID))
		if err != nil {
			return err
		}
		if !ok {
			cmd.Println("Aborted.")
			return nil
		}
	}

	if err := ensureServices(cmd); err != nil {
		return err
	}
	if planService == nil {
		return errors.New("plan service not configured")
	}

	res, err := planService.Apply(cmd.Context(), plan)
	if err != nil {
		return fmt.Errorf("failed to apply plan: %w", err)
	}
	renderApplyResult(cmd.OutOrStdout(), res)
	return nil
}

// isInteractive reports whether stdin is a terminal. Replaced in tests.
var isInteractive = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// confirm asks a yes/no question on the command's input.
// Non-interactive sessions must pass --yes instead.
func confirm(cmd *cobra.Command, question string) (bool, error) {
	if !isInteractive() {
		return false, errors.New("refusing to change data without confirmation; re-run with --yes")
	}
	cmd.Printf("%s [y/N]: ", question)
	answer, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("reading confirmation: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
