package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"github.com/spf13/cobra"

	"github.com/Laisky/search-mcp/internal/mcp"
	"github.com/Laisky/search-mcp/internal/mcp/tools"
	"github.com/Laisky/search-mcp/library/log"
)

var queryCMD = &cobra.Command{
	Use:   "query <profile> <tool> <query|url>",
	Short: "invoke one tool and print its text result",
	Example: `  search-mcp query bing bing_browser_search "rust ownership" -n 5
  search-mcp query web-browser visit_page https://go.dev/doc/`,
	Args: cobra.MinimumNArgs(3),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return initialize(cmd.Context(), cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		num, err := cmd.Flags().GetInt("num")
		if err != nil {
			return errors.Wrap(err, "read num flag")
		}

		text, err := runQuery(context.Background(), args[0], args[1], strings.Join(args[2:], " "), num)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), text)
		return nil
	},
}

func runQuery(ctx context.Context, profile, toolName, input string, num int) (string, error) {
	server, err := mcp.NewServer(profile, mcp.LoadSettingsFromConfig())
	if err != nil {
		return "", errors.Wrap(err, "new server")
	}
	defer func() {
		if err := server.Close(); err != nil {
			log.Logger.Warn("close server", zap.Error(err))
		}
	}()

	args := map[string]any{}
	if toolName == tools.VisitPageName {
		args[tools.ArgURL] = input
	} else {
		args[tools.ArgQuery] = input
		if num > 0 {
			args[tools.ArgNumResults] = num
		}
	}

	return server.Call(ctx, toolName, args)
}

func init() {
	queryCMD.Flags().IntP("num", "n", 0, "number of search results, 0 uses the configured default")
	rootCMD.AddCommand(queryCMD)
}
