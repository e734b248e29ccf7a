package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/gdprqa/internal/adapters/driving/mcp"
)

var mcpHTTPAddr string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so AI assistants can search the
GDPR index and ask grounded questions.

Tools:
  search_gdpr  - nearest passages for a query
  ask_gdpr     - grounded answer with sources

Resources:
  index://stats            - vector table row count
  index://context/{query}  - assembled context for a query

By default the server speaks JSON-RPC over stdio. --http serves the
streamable HTTP transport instead, plus Prometheus metrics on /metrics.

Examples:
  gdprqa mcp serve
  gdprqa mcp serve --http :8080

Claude Desktop configuration (claude_desktop_config.json):
  {
    "mcpServers": {
      "gdprqa": {
        "command": "/path/to/gdprqa",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().StringVar(&mcpHTTPAddr, "http", "", "serve streamable HTTP on this address instead of stdio")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

// newMCPServer builds the server from the configured services.
func newMCPServer() (*mcp.Server, error) {
	ports := &mcp.Ports{
		Search:    retrievalService,
		QA:        qaService,
		Index:     indexService,
		Assembler: contextAssembler,
	}

	opts := []mcp.Option{mcp.WithSearchK(defaultSearchK)}
	if metricsHandler != nil {
		opts = append(opts, mcp.WithMetricsHandler(metricsHandler))
	}
	return mcp.NewServer(ports, opts...)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	server, err := newMCPServer()
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	if mcpHTTPAddr != "" {
		cmd.PrintErrf("MCP server listening on http://%s\n", mcpHTTPAddr)
		return server.RunHTTP(ctx, mcpHTTPAddr)
	}
	return server.Run(ctx)
}
