package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/recon/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for recon resources.
	uriScheme = "recon://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "settings",
		Name:        "settings",
		Description: "Default tenant, collections and store backend",
		MIMEType:    "application/json",
	}, s.handleSettingsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "tenants/{tenantId}/collections/{collection}/count",
		Name:        "collection-count",
		Description: "Number of documents a tenant holds in a collection",
		MIMEType:    "text/plain",
	}, s.handleCountResource)
}

// handleSettingsResource returns the effective settings.
func (s *Server) handleSettingsResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	settings := s.ports.settings()

	info := struct {
		TenantID       string `json:"tenant_id,omitempty"`
		PageSize       int    `json:"page_size"`
		Source         string `json:"source_collection"`
		Target         string `json:"target_collection"`
		ReferenceField string `json:"reference_field"`
		Driver         string `json:"store_driver"`
	}{
		TenantID:       settings.TenantID,
		PageSize:       settings.PageSize,
		Source:         settings.Collections.Source,
		Target:         settings.Collections.Target,
		ReferenceField: settings.Collections.ReferenceField,
		Driver:         settings.Store.Driver.String(),
	}

	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling settings: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handleCountResource returns the document count for one tenant and collection.
func (s *Server) handleCountResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	tenantID, collection := extractCountTarget(req.Params.URI)
	if tenantID == "" || collection == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	n, err := s.ports.Counter.Count(ctx, collection, domain.Filter{TenantID: tenantID})
	if err != nil {
		return nil, fmt.Errorf("counting documents: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     strconv.Itoa(n),
		}},
	}, nil
}

// extractCountTarget extracts tenant and collection from a URI like
// recon://tenants/{tenantId}/collections/{collection}/count.
func extractCountTarget(uri string) (tenantID, collection string) {
	const prefix = uriScheme + "tenants/"
	const suffix = "/count"

	if !strings.HasPrefix(uri, prefix) || !strings.HasSuffix(uri, suffix) {
		return "", ""
	}

	rest := strings.TrimSuffix(strings.TrimPrefix(uri, prefix), suffix)
	tenantID, collection, ok := strings.Cut(rest, "/collections/")
	if !ok || strings.Contains(collection, "/") {
		return "", ""
	}
	return tenantID, collection
}
