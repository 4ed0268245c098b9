// Package mcp provides an MCP (Model Context Protocol) server adapter for recon.
// It lets AI assistants inspect tenant data for duplicates, broken references
// and document counts. It exposes no operation that mutates the store.
package mcp

import "errors"

var (
	// ErrMissingDuplicateService is returned when the duplicate finder is not provided.
	ErrMissingDuplicateService = errors.New("mcp: duplicate service is required")

	// ErrMissingReferenceService is returned when the reference checker is not provided.
	ErrMissingReferenceService = errors.New("mcp: reference service is required")

	// ErrMissingCountService is returned when the document counter is not provided.
	ErrMissingCountService = errors.New("mcp: count service is required")
)
