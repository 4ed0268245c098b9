package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/recon/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

The server exposes read-only tools: find_duplicates, check_references and
count_documents. It never applies plans or deletes documents.

By default the server communicates over stdio using JSON-RPC. Use --port
to start an HTTP server instead.

Examples:
  # Stdio mode (default)
  recon mcp serve

  # HTTP mode (for MCP Inspector, remote access)
  recon mcp serve --port 8080`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}
	if err := ensureServices(cmd); err != nil {
		return err
	}

	ports := &mcp.Ports{
		Duplicates: duplicateService,
		Settings:   settingsService,
	}
	// Leave nil interfaces nil so Validate reports them.
	if referenceService != nil {
		ports.References = referenceService
	}
	if purgeService != nil {
		ports.Counter = purgeService
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}

	return server.Run(cmd.Context())
}
