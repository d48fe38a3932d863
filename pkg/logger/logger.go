// Package logger exposes a process-wide structured logger backed by zap.
package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu  sync.RWMutex
	log *zap.SugaredLogger
)

func init() {
	if err := Init(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_ENV")); err != nil {
		panic(err)
	}
}

// Init (re)builds the global logger. env "production" selects JSON output;
// anything else uses the development console encoder.
func Init(level, env string) error {
	var config zap.Config
	if env == "production" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
	}
	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return err
		}
		config.Level = zap.NewAtomicLevelAt(lvl)
	}

	l, err := config.Build(zap.AddCallerSkip(1))
	if err != nil {
		return err
	}

	mu.Lock()
	log = l.Sugar()
	mu.Unlock()
	return nil
}

// Replace swaps the global logger, mostly for tests that want zaptest/observer output.
func Replace(l *zap.Logger) {
	mu.Lock()
	log = l.WithOptions(zap.AddCallerSkip(1)).Sugar()
	mu.Unlock()
}

func get() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

func Info(msg string, keysAndValues ...any)  { get().Infow(msg, keysAndValues...) }
func Warn(msg string, keysAndValues ...any)  { get().Warnw(msg, keysAndValues...) }
func Error(msg string, keysAndValues ...any) { get().Errorw(msg, keysAndValues...) }
func Debug(msg string, keysAndValues ...any) { get().Debugw(msg, keysAndValues...) }

func Fatal(msg string, keysAndValues ...any) { get().Fatalw(msg, keysAndValues...) }

// Sync flushes buffered entries; call it before the process exits.
func Sync() {
	_ = get().Sync()
}
