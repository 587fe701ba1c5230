// Package logging builds the zap logger used by the command-line shell.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Encodings accepted by Config.Encoding.
const (
	EncodingConsole = "console"
	EncodingJSON    = "json"
)

// Config describes the logger.
type Config struct {
	Development       bool
	Encoding          string
	Level             string
	DisableCaller     bool
	DisableStacktrace bool
	// OutputPaths defaults to stderr.
	OutputPaths []string
}

// DefaultConfig logs warnings and above to stderr in console form.
func DefaultConfig() Config {
	return Config{
		Encoding: EncodingConsole,
		Level:    "warn",
	}
}

// New builds a logger from cfg. An empty level means info, an empty
// encoding means console in development and JSON otherwise.
func New(cfg Config) (*zap.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.DisableCaller = cfg.DisableCaller
	zc.DisableStacktrace = cfg.DisableStacktrace
	zc.Sampling = nil

	switch enc := strings.ToLower(cfg.Encoding); enc {
	case "":
		if cfg.Development {
			zc.Encoding = EncodingConsole
		} else {
			zc.Encoding = EncodingJSON
		}
	case EncodingConsole, EncodingJSON:
		zc.Encoding = enc
	default:
		return nil, fmt.Errorf("unknown log encoding %q", cfg.Encoding)
	}
	if zc.Encoding == EncodingConsole {
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	zc.OutputPaths = []string{"stderr"}
	if len(cfg.OutputPaths) > 0 {
		zc.OutputPaths = cfg.OutputPaths
	}
	zc.ErrorOutputPaths = []string{"stderr"}

	return zc.Build()
}

func parseLevel(s string) (zapcore.Level, error) {
	if s == "" {
		return zapcore.InfoLevel, nil
	}
	level, err := zapcore.ParseLevel(strings.ToLower(s))
	if err != nil {
		return 0, fmt.Errorf("log level: %w", err)
	}
	return level, nil
}
