package umbra

import (
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger      atomic.Pointer[zap.Logger]
	logFileOnce sync.Once
	logFileErr  error
)

func init() {
	logger.Store(zap.NewNop())
}

// Logger returns the package logger. It is a no-op logger until SetLogger or
// InitLogFile is called.
func Logger() *zap.Logger {
	return logger.Load()
}

// SetLogger replaces the package logger. A nil logger restores the no-op logger.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger.Store(l)
}

// InitLogFile installs a JSON file logger writing to path. Only the first call
// in a process has any effect; later calls return the first call's error.
func InitLogFile(path string, level zapcore.Level) error {
	logFileOnce.Do(func() {
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(level)
		cfg.OutputPaths = []string{path}
		cfg.ErrorOutputPaths = []string{path}
		l, err := cfg.Build()
		if err != nil {
			logFileErr = fmt.Errorf("init log file %s: %w", path, err)
			return
		}
		SetLogger(l)
	})
	return logFileErr
}
