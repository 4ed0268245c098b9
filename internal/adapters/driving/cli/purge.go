package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/recon/internal/core/domain"
)

var (
	purgeWhere    []string
	purgePageSize int
	purgeYes      bool
)

var purgeCmd = &cobra.Command{
	Use:   "purge [tenant-id] [collection]",
	Short: "Delete every matching document of a tenant",
	Long: `Deletes all documents in a collection that belong to the tenant and
match the --where equalities, one page at a time. Each page is deleted
atomically and progress is printed after every page.

Without --yes only the number of matching documents is printed.
An interrupted purge keeps the pages it finished; running the same
command again deletes what is left.

Examples:
  recon purge tenant-a properties --where external_source=HOMEAWAY
  recon purge tenant-a listings --where canonical_listing_id=null --yes`,
	Args: cobra.ExactArgs(2),
	RunE: runPurge,
}

var countWhere []string

var countCmd = &cobra.Command{
	Use:   "count [tenant-id] [collection]",
	Short: "Count a tenant's documents",
	Long: `Counts the documents in a collection that belong to the tenant and
match the --where equalities. Values null, true, false and numbers are
typed; quote a value ("42") to match it as text.`,
	Args: cobra.ExactArgs(2),
	RunE: runCount,
}

func init() {
	purgeCmd.Flags().StringArrayVarP(&purgeWhere, "where", "w", nil, "field equality, key=value (repeatable)")
	purgeCmd.Flags().IntVar(&purgePageSize, "page-size", 0, "documents deleted per batch (default: configured page_size)")
	purgeCmd.Flags().BoolVarP(&purgeYes, "yes", "y", false, "delete without stopping at the count")
	rootCmd.AddCommand(purgeCmd)

	countCmd.Flags().StringArrayVarP(&countWhere, "where", "w", nil, "field equality, key=value (repeatable)")
	rootCmd.AddCommand(countCmd)
}

func runPurge(cmd *cobra.Command, args []string) error {
	filter, err := buildFilter(args[0], purgeWhere)
	if err != nil {
		return err
	}
	if err := ensureServices(cmd); err != nil {
		return err
	}
	if purgeService == nil {
		return errors.New("purge service not configured")
	}
	collection := args[1]

	n, err := purgeService.Count(cmd.Context(), collection, filter)
	if err != nil {
		return fmt.Errorf("failed to count documents: %w", err)
	}
	cmd.Printf("%d documents in %s match for tenant %s.\n", n, collection, filter.TenantID)
	if n == 0 {
		return nil
	}
	if !purgeYes {
		cmd.Println("Re-run with --yes to delete them.")
		return nil
	}

	pageSize := purgePageSize
	if pageSize == 0 {
		pageSize = currentSettings.PageSize
	}

	res, err := purgeService.Purge(cmd.Context(), domain.PurgeRequest{
		Collection: collection,
		Filter:     filter,
		PageSize:   pageSize,
	}, func(p domain.PurgeProgress) {
		cmd.Printf("  page %d: deleted %d (%d total)\n", p.Page, p.PageDeleted, p.DeletedSoFar)
	})
	if err != nil {
		return err
	}
	cmd.Println(reportStyles.Success.Render(fmt.Sprintf("Deleted %d documents in %d pages.", res.DeletedCount, res.Pages)))
	return nil
}

func runCount(cmd *cobra.Command, args []string) error {
	filter, err := buildFilter(args[0], countWhere)
	if err != nil {
		return err
	}
	if err := ensureServices(cmd); err != nil {
		return err
	}
	if purgeService == nil {
		return errors.New("purge service not configured")
	}

	n, err := purgeService.Count(cmd.Context(), args[1], filter)
	if err != nil {
		return fmt.Errorf("failed to count documents: %w", err)
	}
	cmd.Println(n)
	return nil
}

func buildFilter(tenantID string, where []string) (domain.Filter, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return domain.Filter{}, fmt.Errorf("%w: tenant ID is required", domain.ErrInvalidArgument)
	}
	equals, err := parseWhere(where)
	if err != nil {
		return domain.Filter{}, err
	}
	return domain.Filter{TenantID: tenantID, Equals: equals}, nil
}
