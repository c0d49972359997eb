// Package logging provides the single package-global sugared logger used
// across the wll core, modeled on the teacher's go-datatrails-common/logger
// convention: one process-wide *zap.SugaredLogger, configured once from the
// WLL_LOG environment variable, exposed as a package var rather than threaded
// through every constructor.
package logging

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Sugar is the package-wide logger. It is safe for concurrent use.
var Sugar = zap.NewNop().Sugar()

var once sync.Once

// Init configures Sugar from the given level name (trace, debug, info, warn,
// error). It is idempotent; only the first call takes effect, matching the
// teacher's logger.New(level) being called once at process startup.
func Init(level string) {
	once.Do(func() {
		Sugar = newSugar(level)
	})
}

// InitFromEnv configures Sugar from WLL_LOG, defaulting to "info" when unset.
func InitFromEnv() {
	level := os.Getenv("WLL_LOG")
	if level == "" {
		level = "info"
	}
	Init(level)
}

func newSugar(level string) *zap.SugaredLogger {
	zlvl := parseLevel(level)
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zlvl)
	cfg.EncoderConfig.TimeKey = "ts"
	if os.Getenv("NO_COLOR") != "" {
		cfg.Encoding = "json"
	}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return logger.Sugar()
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "trace", "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// WithService returns a named child logger, mirroring
// logger.Sugar.WithServiceName(name) in the teacher's convention.
func WithService(name string) *zap.SugaredLogger {
	return Sugar.With("service", name)
}
