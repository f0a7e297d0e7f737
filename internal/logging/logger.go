// Package logging provides categorized structured logging for codemedic.
// Every subsystem logs through a named zap logger so that gateway traffic,
// session control flow, and store activity can be filtered independently.
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category names a logging subsystem.
type Category string

const (
	CategoryGateway Category = "gateway" // backend calls, fallback, classification
	CategorySession Category = "session" // orchestrator state machine
	CategoryAgents  Category = "agents"  // detect/repair/verify invocations
	CategoryExtract Category = "extract" // structured output recovery
	CategoryStore   Category = "store"   // sqlite session history
	CategoryCLI     Category = "cli"     // command-line front end
)

var (
	mu      sync.RWMutex
	base    *zap.SugaredLogger
	loggers map[Category]*zap.SugaredLogger
)

// Init installs the process-wide logger. Safe to call more than once; the
// last call wins. When verbose is false only warnings and errors are emitted.
func Init(verbose bool) error {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	}

	logger, err := cfg.Build()
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	base = logger.Sugar()
	loggers = make(map[Category]*zap.SugaredLogger)
	return nil
}

// Get returns the logger for a category, creating it on first use.
// Before Init is called, a no-op logger is returned so that library code
// never has to check for logging availability.
func Get(cat Category) *zap.SugaredLogger {
	mu.RLock()
	if base != nil {
		if l, ok := loggers[cat]; ok {
			mu.RUnlock()
			return l
		}
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if base == nil {
		return zap.NewNop().Sugar()
	}
	if l, ok := loggers[cat]; ok {
		return l
	}
	l := base.Named(string(cat))
	loggers[cat] = l
	return l
}

// Sync flushes buffered log entries. Called on process shutdown.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	if base != nil {
		_ = base.Sync()
	}
}

// Printf-style helpers mirroring the per-category call sites used
// throughout the codebase.

func Gateway(format string, args ...interface{}) { Get(CategoryGateway).Infof(format, args...) }

func GatewayDebug(format string, args ...interface{}) { Get(CategoryGateway).Debugf(format, args...) }

func GatewayWarn(format string, args ...interface{}) { Get(CategoryGateway).Warnf(format, args...) }

func Session(format string, args ...interface{}) { Get(CategorySession).Infof(format, args...) }

func SessionDebug(format string, args ...interface{}) { Get(CategorySession).Debugf(format, args...) }

func Agents(format string, args ...interface{}) { Get(CategoryAgents).Infof(format, args...) }

func AgentsDebug(format string, args ...interface{}) { Get(CategoryAgents).Debugf(format, args...) }

func Store(format string, args ...interface{}) { Get(CategoryStore).Infof(format, args...) }

func StoreDebug(format string, args ...interface{}) { Get(CategoryStore).Debugf(format, args...) }
