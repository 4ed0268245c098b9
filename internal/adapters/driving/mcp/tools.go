package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/recon/internal/core/domain"
	"github.com/custodia-labs/recon/internal/core/ports/driving"
)

// defaultReportLimit caps how many groups or references a tool lists.
const defaultReportLimit = 50

// FindDuplicatesInput is the input schema for the find_duplicates tool.
type FindDuplicatesInput struct {
	TenantID   string `json:"tenant_id" jsonschema:"the tenant to scan"`
	Collection string `json:"collection,omitempty" jsonschema:"collection to scan (default: the configured source collection)"`
	Limit      int    `json:"limit,omitempty" jsonschema:"maximum number of duplicate groups to list (default 50)"`
}

// FindDuplicatesOutput is the output schema for the find_duplicates tool.
type FindDuplicatesOutput struct {
	Collection string                 `json:"collection"`
	Scanned    int                    `json:"scanned"`
	GroupCount int                    `json:"group_count"`
	Redundant  int                    `json:"redundant"`
	Groups     []DuplicateGroupOutput `json:"groups"`
	Truncated  bool                   `json:"truncated,omitempty"`
}

// DuplicateGroupOutput represents a single duplicate group.
type DuplicateGroupOutput struct {
	Key        string   `json:"key"`
	SurvivorID string   `json:"survivor_id"`
	DeleteIDs  []string `json:"delete_ids"`
}

// CheckReferencesInput is the input schema for the check_references tool.
type CheckReferencesInput struct {
	TenantID         string `json:"tenant_id" jsonschema:"the tenant to check"`
	SourceCollection string `json:"source_collection,omitempty" jsonschema:"collection holding the reference (default: configured source)"`
	TargetCollection string `json:"target_collection,omitempty" jsonschema:"collection the reference points to (default: configured target)"`
	Field            string `json:"field,omitempty" jsonschema:"reference field name (default: configured reference field)"`
	Limit            int    `json:"limit,omitempty" jsonschema:"maximum number of broken references to list (default 50)"`
}

// CheckReferencesOutput is the output schema for the check_references tool.
type CheckReferencesOutput struct {
	Count     int                     `json:"count"`
	ByKind    map[string]int          `json:"by_kind"`
	Broken    []BrokenReferenceOutput `json:"broken"`
	Truncated bool                    `json:"truncated,omitempty"`
}

// BrokenReferenceOutput represents a single broken reference.
type BrokenReferenceOutput struct {
	SourceID string `json:"source_id"`
	Field    string `json:"field"`
	Value    string `json:"value"`
	Kind     string `json:"kind"`
}

// CountDocumentsInput is the input schema for the count_documents tool.
type CountDocumentsInput struct {
	TenantID   string            `json:"tenant_id" jsonschema:"the tenant to count in"`
	Collection string            `json:"collection" jsonschema:"the collection to count"`
	Where      map[string]string `json:"where,omitempty" jsonschema:"field equality constraints; values null, true, false and numbers are typed"`
}

// CountDocumentsOutput is the output schema for the count_documents tool.
type CountDocumentsOutput struct {
	Count int `json:"count"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "find_duplicates",
		Description: "Group a tenant's documents by source and external ID and list redundant copies",
	}, s.handleFindDuplicates)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "check_references",
		Description: "List references that are missing, cross-tenant or malformed",
	}, s.handleCheckReferences)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "count_documents",
		Description: "Count a tenant's documents matching field equalities",
	}, s.handleCountDocuments)
}

// handleFindDuplicates handles the find_duplicates tool invocation.
func (s *Server) handleFindDuplicates(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input FindDuplicatesInput,
) (*mcp.CallToolResult, FindDuplicatesOutput, error) {
	collection := strings.TrimSpace(input.Collection)
	if collection == "" {
		collection = s.ports.settings().Collections.Source
	}

	groups, err := s.ports.Duplicates.Detect(ctx, driving.DetectRequest{
		Collection: collection,
		TenantID:   input.TenantID,
	})
	if err != nil {
		return nil, FindDuplicatesOutput{}, err
	}

	limit := reportLimit(input.Limit)
	output := FindDuplicatesOutput{
		Collection: collection,
		Groups:     []DuplicateGroupOutput{},
	}
	for i := range groups {
		g := groups[i]
		output.Scanned += g.Size()
		if !g.IsDuplicate() {
			continue
		}
		output.GroupCount++
		output.Redundant += len(g.ToDelete)
		if len(output.Groups) == limit {
			output.Truncated = true
			continue
		}
		output.Groups = append(output.Groups, DuplicateGroupOutput{
			Key:        g.Key,
			SurvivorID: g.Survivor.ID,
			DeleteIDs:  g.ToDeleteIDs(),
		})
	}

	return nil, output, nil
}

// handleCheckReferences handles the check_references tool invocation.
func (s *Server) handleCheckReferences(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input CheckReferencesInput,
) (*mcp.CallToolResult, CheckReferencesOutput, error) {
	defaults := s.ports.settings().Collections
	req := driving.CheckRequest{
		SourceCollection: orDefault(input.SourceCollection, defaults.Source),
		TargetCollection: orDefault(input.TargetCollection, defaults.Target),
		ReferenceField:   orDefault(input.Field, defaults.ReferenceField),
		TenantID:         input.TenantID,
	}

	broken, err := s.ports.References.Check(ctx, req)
	if err != nil {
		return nil, CheckReferencesOutput{}, err
	}

	limit := reportLimit(input.Limit)
	output := CheckReferencesOutput{
		Count:  len(broken),
		ByKind: make(map[string]int),
		Broken: []BrokenReferenceOutput{},
	}
	for i := range broken {
		output.ByKind[string(broken[i].Kind)]++
		if len(output.Broken) == limit {
			output.Truncated = true
			continue
		}
		output.Broken = append(output.Broken, BrokenReferenceOutput{
			SourceID: broken[i].SourceID,
			Field:    broken[i].Field,
			Value:    broken[i].DanglingTargetID,
			Kind:     string(broken[i].Kind),
		})
	}

	return nil, output, nil
}

// handleCountDocuments handles the count_documents tool invocation.
func (s *Server) handleCountDocuments(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input CountDocumentsInput,
) (*mcp.CallToolResult, CountDocumentsOutput, error) {
	filter := domain.Filter{TenantID: input.TenantID}
	if len(input.Where) > 0 {
		filter.Equals = make(map[string]any, len(input.Where))
		for k, v := range input.Where {
			if strings.TrimSpace(k) == "" {
				return nil, CountDocumentsOutput{}, fmt.Errorf("%w: empty field name in where", domain.ErrInvalidArgument)
			}
			filter.Equals[k] = domain.ParseFilterValue(v)
		}
	}

	n, err := s.ports.Counter.Count(ctx, input.Collection, filter)
	if err != nil {
		return nil, CountDocumentsOutput{}, err
	}
	return nil, CountDocumentsOutput{Count: n}, nil
}

func reportLimit(n int) int {
	if n <= 0 {
		return defaultReportLimit
	}
	return n
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}
