package cmd

import (
	"encoding/json"

	"github.com/Laisky/errors/v2"
	"github.com/spf13/cobra"

	"github.com/Laisky/search-mcp/internal/mcp"
)

var toolsCMD = &cobra.Command{
	Use:   "tools <profile>",
	Short: "print the tool catalogue of a profile as JSON",
	Args:  cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return initialize(cmd.Context(), cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		server, err := mcp.NewServer(args[0], mcp.LoadSettingsFromConfig())
		if err != nil {
			return errors.Wrap(err, "new server")
		}
		defer server.Close() // nolint: errcheck

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"tools": server.Registry().List()})
	},
}

func init() {
	rootCMD.AddCommand(toolsCMD)
}
