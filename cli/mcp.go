// ABOUTME: MCP server subcommand
// ABOUTME: Serves the report tools on stdio for desktop assistant integration
package cli

import (
	"github.com/iTRMAutomation/mlc-village-recon-tool/handlers"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server on stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		a.log.Info("starting recon MCP server")
		a.prime(cmd.Context())

		server := mcp.NewServer(&mcp.Implementation{
			Name:    "recon",
			Version: version,
		}, nil)
		handlers.NewReportHandlers(a.svc).Register(server)

		return server.Run(cmd.Context(), &mcp.StdioTransport{})
	},
}
