package tools

import (
	"context"

	logSDK "github.com/Laisky/go-utils/v6/log"

	"github.com/Laisky/search-mcp/internal/mcp/ctxkeys"
)

// loggerFrom prefers the per-call logger installed by the dispatcher.
func loggerFrom(ctx context.Context, fallback logSDK.Logger) logSDK.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(ctxkeys.Logger).(logSDK.Logger); ok && logger != nil {
			return logger
		}
	}
	return fallback
}
