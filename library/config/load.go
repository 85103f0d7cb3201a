package config

import (
	"os"
	"path/filepath"
	"strings"

	gconfig "github.com/Laisky/go-config/v2"
	"github.com/Laisky/zap"

	"github.com/Laisky/search-mcp/library/log"
)

// LoadFromFile loads settings from cfgPath into the shared config.
// An empty or missing path keeps the built-in defaults.
func LoadFromFile(cfgPath string) {
	cfgPath = strings.TrimSpace(cfgPath)
	if cfgPath == "" {
		log.Logger.Debug("no configuration file, use defaults")
		return
	}

	if _, err := os.Stat(cfgPath); err != nil {
		log.Logger.Info("configuration file not found, use defaults",
			zap.String("config", cfgPath))
		return
	}

	gconfig.Shared.Set("cfg_dir", filepath.Dir(cfgPath))
	if err := gconfig.Shared.LoadFromFile(cfgPath); err != nil {
		log.Logger.Panic("load configuration",
			zap.Error(err),
			zap.String("config", cfgPath))
	}

	log.Logger.Info("load configuration",
		zap.String("config", cfgPath))
}
