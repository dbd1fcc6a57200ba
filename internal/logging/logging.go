// Package logging configures the process-wide zap logger.
package logging

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the logger flavour and level.
type Config struct {
	Level string // debug, info, warn, error
	Dev   bool   // console encoder with caller and colours
}

// Init builds a logger from cfg and installs it as zap's global logger.
func Init(cfg Config) error {
	var zapCfg zap.Config
	if cfg.Dev {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	if cfg.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return eris.Wrap(err, "logging: parse level")
		}
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "logging: build logger")
	}
	zap.ReplaceGlobals(logger)
	return nil
}
