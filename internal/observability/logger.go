// File: internal/observability/logger.go
// Package observability owns the process-wide zap logger. Console output goes
// to stderr so godog formatters (and junit/cucumber output) own stdout.
package observability

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/xkilldash9x/cyberrank-e2e/internal/config"
)

var (
	current  atomic.Pointer[zap.Logger]
	initOnce sync.Once
)

const ansiReset = "\x1b[0m"

var ansiColors = map[string]string{
	"black":   "\x1b[30m",
	"red":     "\x1b[31m",
	"green":   "\x1b[32m",
	"yellow":  "\x1b[33m",
	"blue":    "\x1b[34m",
	"magenta": "\x1b[35m",
	"cyan":    "\x1b[36m",
	"white":   "\x1b[37m",
}

// Sync errors that only mean the console is a terminal or pipe.
var benignSyncErrors = []string{
	"sync /dev/stdout",
	"sync /dev/stderr",
	"invalid argument",
	"inappropriate ioctl",
	"operation not supported",
}

// Initialize builds the global logger. The console core writes to console;
// when cfg.LogFile is set a second core writes JSON to a rotating file.
// Later calls are no-ops until ResetForTest.
func Initialize(cfg config.LoggerConfig, console zapcore.WriteSyncer) {
	initOnce.Do(func() {
		level := zap.NewAtomicLevelAt(zap.InfoLevel)
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			level.SetLevel(zap.InfoLevel)
		}

		cores := []zapcore.Core{zapcore.NewCore(encoderFor(cfg), console, level)}
		if cfg.LogFile != "" {
			cores = append(cores, fileCore(cfg, level))
		}

		opts := []zap.Option{zap.AddStacktrace(zap.ErrorLevel)}
		if cfg.AddSource {
			opts = append(opts, zap.AddCaller())
		}
		logger := zap.New(zapcore.NewTee(cores...), opts...)
		if cfg.ServiceName != "" {
			logger = logger.Named(cfg.ServiceName)
		}

		current.Store(logger)
		zap.ReplaceGlobals(logger)
		zap.RedirectStdLog(logger)
	})
}

// InitializeLogger initializes the global logger on a locked stderr.
func InitializeLogger(cfg config.LoggerConfig) {
	Initialize(cfg, zapcore.Lock(os.Stderr))
}

// ResetForTest forgets the global logger so a test can initialize it again.
func ResetForTest() {
	current.Store(nil)
	initOnce = sync.Once{}
}

// Run logs on disk are always JSON so CI can parse them.
func fileCore(cfg config.LoggerConfig, level zap.AtomicLevel) zapcore.Core {
	w := zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	})
	return zapcore.NewCore(encoderFor(config.LoggerConfig{Format: "json"}), w, level)
}

func encoderFor(cfg config.LoggerConfig) zapcore.Encoder {
	ec := zap.NewProductionEncoderConfig()
	ec.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02T15:04:05.000Z07:00")

	if cfg.Format != "console" {
		ec.EncodeLevel = zapcore.LowercaseLevelEncoder
		return zapcore.NewJSONEncoder(ec)
	}

	palette := levelPalette(cfg.Colors)
	ec.EncodeLevel = func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		label := l.CapitalString()
		if c, ok := palette[l]; ok {
			label = c + label + ansiReset
		}
		enc.AppendString(label)
	}
	// "cyberrank-e2e.pages.team." keeps the component visually separate.
	ec.EncodeName = func(name string, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(name + ".")
	}
	return zapcore.NewConsoleEncoder(ec)
}

// levelPalette resolves configured color names; unknown names leave the
// level uncolored.
func levelPalette(c config.ColorConfig) map[zapcore.Level]string {
	names := map[zapcore.Level]string{
		zapcore.DebugLevel:  c.Debug,
		zapcore.InfoLevel:   c.Info,
		zapcore.WarnLevel:   c.Warn,
		zapcore.ErrorLevel:  c.Error,
		zapcore.DPanicLevel: c.DPanic,
		zapcore.PanicLevel:  c.Panic,
		zapcore.FatalLevel:  c.Fatal,
	}
	palette := make(map[zapcore.Level]string, len(names))
	for l, name := range names {
		if code, ok := ansiColors[strings.ToLower(name)]; ok {
			palette[l] = code
		}
	}
	return palette
}

// GetLogger returns the global logger. Before Initialize it returns a
// development logger named "fallback".
func GetLogger() *zap.Logger {
	if l := current.Load(); l != nil {
		return l
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	l.Warn("Global logger requested before initialization; using fallback.")
	return l.Named("fallback")
}

// Component returns the global logger named for a component, e.g. "runner".
func Component(name string) *zap.Logger {
	return GetLogger().Named(name)
}

// Sync flushes buffered entries. Call it before the process exits.
func Sync() {
	l := current.Load()
	if l == nil {
		return
	}
	err := l.Sync()
	if err == nil {
		return
	}
	msg := err.Error()
	for _, benign := range benignSyncErrors {
		if strings.Contains(msg, benign) {
			return
		}
	}
	fmt.Fprintln(os.Stderr, "Error: failed to sync logger:", err)
}
