package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/recon/internal/core/domain"
	"github.com/custodia-labs/recon/internal/core/ports/driving"
	"github.com/custodia-labs/recon/internal/core/services"
)

var (
	dupesCollection string
	dupesOut        string
)

var dupesCmd = &cobra.Command{
	Use:   "dupes [tenant-id...]",
	Short: "Find duplicate documents",
	Long: `Groups a tenant's documents by external source and external ID and
reports every group with more than one member. The newest record of each
group survives; the others are listed for deletion.

Nothing is deleted. Use --out to write a plan and 'recon apply' to run it.
Several tenants are scanned concurrently; each gets its own plan file.`,
	RunE: runDupes,
}

func init() {
	dupesCmd.Flags().StringVarP(&dupesCollection, "collection", "c", "", "collection to scan (default: configured source collection)")
	dupesCmd.Flags().StringVarP(&dupesOut, "out", "o", "", "write a reconciliation plan to this file")
	rootCmd.AddCommand(dupesCmd)
}

type tenantDuplicates struct {
	tenantID string
	groups   []domain.DuplicateGroup
}

func runDupes(cmd *cobra.Command, args []string) error {
	if err := ensureServices(cmd); err != nil {
		return err
	}
	if duplicateService == nil {
		return errors.New("duplicate service not configured")
	}

	tenants, err := tenantArgs(args)
	if err != nil {
		return err
	}
	collection := dupesCollection
	if collection == "" {
		collection = currentSettings.Collections.Source
	}

	results, err := services.ForEachTenant(cmd.Context(), tenants, services.DefaultTenantConcurrency,
		func(ctx context.Context, tenantID string) (tenantDuplicates, error) {
			groups, err := duplicateService.Detect(ctx, driving.DetectRequest{
				Collection: collection,
				TenantID:   tenantID,
			})
			if err != nil {
				return tenantDuplicates{}, fmt.Errorf("tenant %s: %w", tenantID, err)
			}
			return tenantDuplicates{tenantID: tenantID, groups: groups}, nil
		})
	if err != nil {
		return err
	}

	for i, res := range results {
		if i > 0 {
			cmd.Println()
		}
		renderDuplicates(cmd.OutOrStdout(), res.tenantID, collection, res.groups)
		if dupesOut == "" {
			continue
		}
		plan := services.PlanDuplicates(res.tenantID, collection, res.groups)
		if err := savePlan(cmd, planPath(dupesOut, res.tenantID, len(results) > 1), plan); err != nil {
			return err
		}
	}
	return nil
}

// savePlan writes plan to path and tells the user how to apply it.
func savePlan(cmd *cobra.Command, path string, plan *domain.ReconciliationPlan) error {
	if planStore == nil {
		return errors.New("plan store not configured")
	}
	if err := planStore.Save(path, plan); err != nil {
		return fmt.Errorf("failed to save plan: %w", err)
	}
	cmd.Printf("Wrote plan %s (%d entries) to %s\n", plan.ID, len(plan.Entries), path)
	if !plan.IsEmpty() {
		cmd.Printf("Review it with 'recon plan show %s', then run 'recon apply %s'.\n", path, path)
	}
	return nil
}

// planPath derives a per-tenant file name when several tenants share --out:
// plan.json becomes plan.<tenant>.json.
func planPath(out, tenantID string, perTenant bool) string {
	if !perTenant {
		return out
	}
	ext := filepath.Ext(out)
	return strings.TrimSuffix(out, ext) + "." + tenantID + ext
}
