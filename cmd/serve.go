package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"github.com/spf13/cobra"

	"github.com/Laisky/search-mcp/internal/mcp"
	"github.com/Laisky/search-mcp/library/log"
)

var serveCMD = &cobra.Command{
	Use:   "serve <profile>",
	Short: "run a stdio tool server",
	Long: `Run the tool server for one profile, reading JSON-RPC requests from
stdin and writing one reply line per request to stdout.

Profiles: ` + strings.Join(mcp.ProfileNames(), ", "),
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return initialize(cmd.Context(), cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runServe(ctx, args[0])
	},
}

func runServe(ctx context.Context, profile string) error {
	server, err := mcp.NewServer(profile, mcp.LoadSettingsFromConfig())
	if err != nil {
		return errors.Wrap(err, "new server")
	}
	defer func() {
		if err := server.Close(); err != nil {
			log.Logger.Warn("close server", zap.Error(err))
		}
	}()

	log.Logger.Info("start server",
		zap.String("profile", server.Profile().Name),
		zap.String("server", server.Profile().ServerName),
	)
	return server.Serve(ctx, os.Stdin, os.Stdout)
}

func init() {
	rootCMD.AddCommand(serveCMD)
}
