package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/custodia-labs/recon/internal/core/domain"
)

// renderDuplicates prints the duplicate groups found for one tenant.
// Singleton groups are only counted.
func renderDuplicates(w io.Writer, tenantID, collection string, groups []domain.DuplicateGroup) {
	s := reportStyles
	scanned, dupes, redundant := 0, 0, 0
	for i := range groups {
		scanned += groups[i].Size()
		if groups[i].IsDuplicate() {
			dupes++
			redundant += len(groups[i].ToDelete)
		}
	}

	fmt.Fprintln(w, s.Title.Render(fmt.Sprintf("Duplicates in %s for tenant %s", collection, tenantID)))
	fmt.Fprintf(w, "Scanned %d documents: %d keys, %d duplicate groups, %d redundant copies\n",
		scanned, len(groups), dupes, redundant)
	if dupes == 0 {
		fmt.Fprintln(w, s.Success.Render("No duplicates found."))
		return
	}

	for i := range groups {
		g := groups[i]
		if !g.IsDuplicate() {
			continue
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%s (%d members)\n", s.Subtitle.Render(g.Key), g.Size())
		fmt.Fprintf(w, "  keep    %s\n", s.Success.Render(g.Survivor.ID))
		for j := range g.ToDelete {
			fmt.Fprintf(w, "  delete  %s\n", s.Warning.Render(g.ToDelete[j].ID))
		}
	}
}

// renderBrokenReferences prints the broken references found for one tenant.
func renderBrokenReferences(w io.Writer, tenantID string, req checkTarget, refs []domain.BrokenReference) {
	s := reportStyles
	fmt.Fprintln(w, s.Title.Render(fmt.Sprintf("References %s.%s -> %s for tenant %s",
		req.source, req.field, req.target, tenantID)))
	if len(refs) == 0 {
		fmt.Fprintln(w, s.Success.Render("All references resolve."))
		return
	}

	byKind := make(map[domain.BrokenKind]int)
	for i := range refs {
		byKind[refs[i].Kind]++
	}
	kinds := make([]string, 0, len(byKind))
	for k := range byKind {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)

	fmt.Fprintf(w, "%d broken references:", len(refs))
	for _, k := range kinds {
		fmt.Fprintf(w, " %s=%d", k, byKind[domain.BrokenKind(k)])
	}
	fmt.Fprintln(w)

	for i := range refs {
		fmt.Fprintf(w, "  %s  %s = %q  %s\n",
			s.ID.Render(refs[i].SourceID), refs[i].Field, refs[i].DanglingTargetID,
			s.Error.Render(string(refs[i].Kind)))
	}
}

// renderPlan prints a plan summary followed by its entries.
func renderPlan(w io.Writer, plan *domain.ReconciliationPlan, entries bool) {
	s := reportStyles
	sum := plan.Summary()
	fmt.Fprintln(w, s.Box.Render(fmt.Sprintf(
		"Plan %s\nTenant:  %s\nKind:    %s\nCreated: %s\nDeletes: %d\nClears:  %d",
		plan.ID, plan.TenantID, plan.Kind, plan.CreatedAt.Format("2006-01-02 15:04:05 MST"),
		sum.Deletes, sum.ClearFields)))
	if !entries {
		return
	}

	for i := range plan.Entries {
		e := plan.Entries[i]
		switch e.Action {
		case domain.ActionDelete:
			fmt.Fprintf(w, "  %s %s/%s  %s\n", s.Warning.Render("delete"),
				e.Collection, e.TargetID, s.Muted.Render(e.Reason))
		case domain.ActionClearField:
			fmt.Fprintf(w, "  %s  %s/%s.%s (was %q)  %s\n", s.Warning.Render("clear"),
				e.Collection, e.TargetID, e.Field, e.Expected, s.Muted.Render(e.Reason))
		}
	}
}

// renderApplyResult prints what applying a plan changed.
func renderApplyResult(w io.Writer, res domain.ApplyResult) {
	s := reportStyles
	fmt.Fprintln(w, s.Success.Render(fmt.Sprintf("Deleted %d documents, cleared %d fields, skipped %d entries.",
		res.Deleted, res.Cleared, res.Skipped)))
}
