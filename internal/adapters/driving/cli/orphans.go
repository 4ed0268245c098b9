package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/recon/internal/core/domain"
	"github.com/custodia-labs/recon/internal/core/ports/driving"
	"github.com/custodia-labs/recon/internal/core/services"
)

var (
	orphansSource string
	orphansTarget string
	orphansField  string
	orphansOut    string
)

var orphansCmd = &cobra.Command{
	Use:   "orphans [tenant-id...]",
	Short: "Find references that do not resolve",
	Long: `Checks that every reference field in the source collection points at a
document that exists in the target collection and belongs to the same
tenant. Each broken reference is reported as missing, cross_tenant or
malformed.

Nothing is changed. Use --out to write a plan that clears the broken
fields and 'recon apply' to run it.`,
	RunE: runOrphans,
}

func init() {
	orphansCmd.Flags().StringVar(&orphansSource, "source", "", "collection holding the reference (default: configured source)")
	orphansCmd.Flags().StringVar(&orphansTarget, "target", "", "collection the reference points to (default: configured target)")
	orphansCmd.Flags().StringVar(&orphansField, "field", "", "reference field (default: configured reference field)")
	orphansCmd.Flags().StringVarP(&orphansOut, "out", "o", "", "write a reconciliation plan to this file")
	rootCmd.AddCommand(orphansCmd)
}

type checkTarget struct {
	source string
	target string
	field  string
}

type tenantReferences struct {
	tenantID string
	broken   []domain.BrokenReference
}

func runOrphans(cmd *cobra.Command, args []string) error {
	if err := ensureServices(cmd); err != nil {
		return err
	}
	if referenceService == nil {
		return errors.New("reference service not configured")
	}

	tenants, err := tenantArgs(args)
	if err != nil {
		return err
	}
	defaults := currentSettings.Collections
	target := checkTarget{
		source: orDefault(orphansSource, defaults.Source),
		target: orDefault(orphansTarget, defaults.Target),
		field:  orDefault(orphansField, defaults.ReferenceField),
	}

	results, err := services.ForEachTenant(cmd.Context(), tenants, services.DefaultTenantConcurrency,
		func(ctx context.Context, tenantID string) (tenantReferences, error) {
			broken, err := referenceService.Check(ctx, driving.CheckRequest{
				SourceCollection: target.source,
				ReferenceField:   target.field,
				TargetCollection: target.target,
				TenantID:         tenantID,
			})
			if err != nil {
				return tenantReferences{}, fmt.Errorf("tenant %s: %w", tenantID, err)
			}
			return tenantReferences{tenantID: tenantID, broken: broken}, nil
		})
	if err != nil {
		return err
	}

	for i, res := range results {
		if i > 0 {
			cmd.Println()
		}
		renderBrokenReferences(cmd.OutOrStdout(), res.tenantID, target, res.broken)
		if orphansOut == "" {
			continue
		}
		plan := services.PlanReferences(res.tenantID, res.broken)
		if err := savePlan(cmd, planPath(orphansOut, res.tenantID, len(results) > 1), plan); err != nil {
			return err
		}
	}
	return nil
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}
