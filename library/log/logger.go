// Package log is a logging package that provides functions to log messages.
//
// Stdout carries protocol replies, so the shared logger writes to stderr.
package log

import (
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
)

var Logger logSDK.Logger

func init() {
	var err error
	if Logger, err = New("search-mcp"); err != nil {
		logSDK.Shared.Panic("new logger", zap.Error(err))
	}
}

// New builds a console logger named name that only ever writes to stderr.
func New(name string) (logSDK.Logger, error) {
	return logSDK.New(
		logSDK.WithName(name),
		logSDK.WithEncoding(logSDK.EncodingConsole),
		logSDK.WithLevel(logSDK.LevelInfo),
		logSDK.WithOutputPaths([]string{"stderr"}),
		logSDK.WithErrorOutputPaths([]string{"stderr"}),
	)
}
