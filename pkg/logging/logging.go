// Package logging builds the structured loggers used by the engine. Output is
// JSON by default; set LOG_FORMAT=console for colorized development output.
package logging

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New creates a named logger configured from the environment.
func New(name string) *zap.Logger {
	logFormat := os.Getenv("LOG_FORMAT")
	isDevelopment := logFormat == "development" || logFormat == "console"

	var cfg zap.Config
	if isDevelopment {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
		cfg.EncoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
	}

	// ENGINE_LOG_LEVEL takes precedence, fallback to LOG_LEVEL
	logLevel := os.Getenv("ENGINE_LOG_LEVEL")
	if logLevel == "" {
		logLevel = os.Getenv("LOG_LEVEL")
	}
	if logLevel != "" {
		level, err := parseLevel(logLevel)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to parse log level %q: %s\n", logLevel, err)
		} else {
			cfg.Level = zap.NewAtomicLevelAt(level)
		}
	}

	logFile := os.Getenv("LOG_FILE")
	if logFile != "" {
		cfg.OutputPaths = []string{logFile}
		cfg.ErrorOutputPaths = []string{logFile}
	} else {
		cfg.OutputPaths = []string{"stderr"}
		cfg.ErrorOutputPaths = []string{"stderr"}
	}

	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.LevelKey = "severity"
	cfg.EncoderConfig.NameKey = "logger"
	cfg.EncoderConfig.CallerKey = "caller"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.StacktraceKey = "stacktrace"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	cfg.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	cfg.Sampling = nil

	zapLogger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to build logger: %v", err))
	}

	return zapLogger.Named(name)
}

// Sugar is shorthand for New(name).Sugar().
func Sugar(name string) *zap.SugaredLogger {
	return New(name).Sugar()
}

// Nop returns a logger that discards everything. Components accept it as a
// default so callers are never forced to wire logging.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

func parseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level: %s", level)
	}
}
