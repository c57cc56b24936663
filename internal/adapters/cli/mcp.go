package cli

import (
	"github.com/spf13/cobra"

	mcpadapter "github.com/kirillkom/f1-penalty-rag/internal/adapters/mcp"
)

func newMCPCmd(load Loader) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the analysis tools over MCP stdio",
		Long: `Starts a Model Context Protocol server on stdin/stdout exposing the
parse_metadata and analyze_penalty tools.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withServices(cmd, load, func(s *Services) error {
				server := mcpadapter.NewServer(s.Analyzer)
				return server.ServeStdio(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
			})
		},
	}
}
