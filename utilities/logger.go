package utilities

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"mindtrack-backend/internal/config"
)

var (
	logMutex sync.RWMutex
	sugar    = newDevelopmentLogger()
)

func newDevelopmentLogger() *zap.SugaredLogger {
	l, err := zap.NewDevelopment(zap.AddCallerSkip(1))
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return l.Sugar()
}

// InitLogger replaces the development logger with one writing JSON to a
// rotating file under cfg.Dir and human readable lines to stdout.
func InitLogger(cfg config.LoggingConfig) error {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}

	var level zapcore.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(cfg.Level))); err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	rotating := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Dir, "mindtrack.log"),
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	consoleCfg := encCfg
	consoleCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(rotating), level),
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.Lock(os.Stdout), level),
	)

	logMutex.Lock()
	defer logMutex.Unlock()
	_ = sugar.Sync()
	sugar = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()
	return nil
}

// SetLogger swaps the process logger. Tests use it with zaptest/observer.
func SetLogger(l *zap.Logger) {
	logMutex.Lock()
	defer logMutex.Unlock()
	sugar = l.WithOptions(zap.AddCallerSkip(1)).Sugar()
}

// SyncLogger flushes buffered entries; call it before exit.
func SyncLogger() {
	logMutex.RLock()
	defer logMutex.RUnlock()
	_ = sugar.Sync()
}

func current() *zap.SugaredLogger {
	logMutex.RLock()
	defer logMutex.RUnlock()
	return sugar
}

func Debug(format string, v ...interface{}) {
	current().Debugf(format, v...)
}

func Info(format string, v ...interface{}) {
	current().Infof(format, v...)
}

func Warn(format string, v ...interface{}) {
	current().Warnf(format, v...)
}

func Error(format string, v ...interface{}) {
	current().Errorf(format, v...)
}
