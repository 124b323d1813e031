package main

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
)

var mcpNoStore bool

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run an MCP server on stdio exposing bidicheck_scan and bidicheck_history",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, st, cleanup, err := newService(!mcpNoStore)
		if err != nil {
			return err
		}
		defer cleanup()

		srv := mcp.NewServer(&mcp.Implementation{Name: "bidicheck", Version: version}, nil)
		svc.RegisterMCP(srv)
		if st != nil {
			st.RegisterMCP(srv)
		}
		logger.Info("bidicheck: mcp server starting", "transport", "stdio")
		return srv.Run(cmd.Context(), &mcp.StdioTransport{})
	},
}

func init() {
	mcpCmd.Flags().BoolVar(&mcpNoStore, "no-store", false, "do not record scans or expose bidicheck_history")
}
