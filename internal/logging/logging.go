// Package logging provides structured logging built on slog: a global
// structured (JSON) + human-readable (text) logger pair, plus per-package
// rotated file loggers (used by the VL client).
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/vabforge/vab-orchestrator/internal/conf"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	structuredLogger    *slog.Logger
	humanReadableLogger *slog.Logger
	loggerMu            sync.RWMutex
)

var currentStructuredOutputCloser io.Closer
var currentHumanReadableOutputCloser io.Closer

var currentLogLevel = new(slog.LevelVar)
var initOnce sync.Once
var initialized bool

const (
	LevelTrace = slog.Level(-8)
	LevelFatal = slog.Level(12)
)

var levelNames = map[slog.Leveler]string{
	LevelTrace: "TRACE",
	LevelFatal: "FATAL",
}

// defaultReplaceAttr formats time to second precision, names custom levels,
// and truncates float attributes to 2 decimal places (detector confidences,
// coverage percentages) so logs stay compact.
func defaultReplaceAttr(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
		a.Value = slog.StringValue(a.Value.Time().Format("2006-01-02T15:04:05Z07:00"))
	}
	if a.Key == slog.LevelKey {
		if level, ok := a.Value.Any().(slog.Level); ok {
			label, exists := levelNames[level]
			if !exists {
				label = level.String()
			}
			a.Value = slog.StringValue(label)
		} else {
			a.Value = slog.StringValue(fmt.Sprintf("%v", a.Value.Any()))
		}
	}
	if a.Value.Kind() == slog.KindFloat64 {
		truncated := math.Trunc(a.Value.Float64()*100) / 100.0
		a.Value = slog.Float64Value(truncated)
	}
	return a
}

// Init sets up the global loggers based on configuration. Safe to call
// multiple times; only the first call takes effect.
func Init() {
	initOnce.Do(func() {
		currentLogLevel.Set(slog.LevelInfo)

		if err := os.MkdirAll("logs", 0o755); err != nil { //nolint:gosec
			fmt.Printf("failed to create logs directory: %v\n", err)
			os.Exit(1)
		}

		logCfg := conf.LogConfig{}
		if s := conf.GetSettings(); s != nil {
			logCfg = s.Logging
		}

		path := logCfg.FileOutput.Path
		if path == "" {
			path = "logs/vab.log"
		}

		structuredLogFile, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666) //nolint:gosec
		if err != nil {
			fmt.Printf("failed to open structured log file: %v\n", err)
			structuredLogFile = os.Stderr
		}
		if structuredLogFile != os.Stderr {
			currentStructuredOutputCloser = structuredLogFile
		} else {
			currentStructuredOutputCloser = nil
		}

		structuredHandler := slog.NewJSONHandler(structuredLogFile, &slog.HandlerOptions{
			Level:       currentLogLevel,
			ReplaceAttr: defaultReplaceAttr,
		})

		currentHumanReadableOutputCloser = nil
		humanReadableHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level:       currentLogLevel,
			ReplaceAttr: defaultReplaceAttr,
		})

		loggerMu.Lock()
		structuredLogger = slog.New(structuredHandler)
		humanReadableLogger = slog.New(humanReadableHandler)
		loggerMu.Unlock()

		slog.SetDefault(structuredLogger)
		initialized = true
	})
}

// IsInitialized reports whether Init has run.
func IsInitialized() bool {
	return initialized
}

// SetLevel updates the dynamic log level shared by every logger created
// through this package.
func SetLevel(level slog.Level) {
	currentLogLevel.Set(level)
}

// SetOutput redirects the structured and human-readable loggers, closing
// any previously opened file handles first. Used by tests to capture logs.
func SetOutput(structuredOutput, humanReadableOutput io.Writer) error {
	if structuredOutput == nil {
		return errors.New("structuredOutput writer cannot be nil")
	}
	if humanReadableOutput == nil {
		return errors.New("humanReadableOutput writer cannot be nil")
	}

	var closeErrors []error
	if currentStructuredOutputCloser != nil {
		if err := currentStructuredOutputCloser.Close(); err != nil {
			closeErrors = append(closeErrors, fmt.Errorf("closing previous structured output: %w", err))
		}
		currentStructuredOutputCloser = nil
	}
	if currentHumanReadableOutputCloser != nil {
		if err := currentHumanReadableOutputCloser.Close(); err != nil {
			closeErrors = append(closeErrors, fmt.Errorf("closing previous human-readable output: %w", err))
		}
		currentHumanReadableOutputCloser = nil
	}

	structuredHandler := slog.NewJSONHandler(structuredOutput, &slog.HandlerOptions{
		Level:       currentLogLevel,
		ReplaceAttr: defaultReplaceAttr,
	})
	humanReadableHandler := slog.NewTextHandler(humanReadableOutput, &slog.HandlerOptions{
		Level:       currentLogLevel,
		ReplaceAttr: defaultReplaceAttr,
	})

	loggerMu.Lock()
	structuredLogger = slog.New(structuredHandler)
	humanReadableLogger = slog.New(humanReadableHandler)
	loggerMu.Unlock()

	if c, ok := structuredOutput.(io.Closer); ok {
		currentStructuredOutputCloser = c
	}
	if c, ok := humanReadableOutput.(io.Closer); ok {
		currentHumanReadableOutputCloser = c
	}

	slog.SetDefault(structuredLogger)

	if len(closeErrors) > 0 {
		return errors.Join(closeErrors...)
	}
	return nil
}

// Structured returns the global JSON logger, or nil if Init has not run.
func Structured() *slog.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return structuredLogger
}

// HumanReadable returns the global text logger, or nil if Init has not run.
func HumanReadable() *slog.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return humanReadableLogger
}

// ForComponent returns the global structured logger tagged with a
// "component" attribute (scheduler, gpupool, jobstore, api, ...).
func ForComponent(component string) *slog.Logger {
	loggerMu.RLock()
	logger := structuredLogger
	loggerMu.RUnlock()

	if logger == nil {
		return slog.Default().With("component", component)
	}
	return logger.With("component", component)
}

func Debug(msg string, args ...any) { slog.Debug(msg, args...) }
func Info(msg string, args ...any)  { slog.Info(msg, args...) }
func Warn(msg string, args ...any)  { slog.Warn(msg, args...) }
func Error(msg string, args ...any) { slog.Error(msg, args...) }

// Fatal logs at LevelFatal and exits. Reserved for unrecoverable startup
// failures (e.g. config won't load).
func Fatal(msg string, args ...any) {
	slog.Log(context.TODO(), LevelFatal, msg, args...)
	os.Exit(1)
}

// Trace logs at LevelTrace, for per-detector invocation tracing.
func Trace(msg string, args ...any) {
	slog.Log(context.TODO(), LevelTrace, msg, args...)
}

// NewFileLogger builds a rotated, component-tagged JSON logger writing to
// filePath via lumberjack, driven by the orchestrator's file-output config.
func NewFileLogger(filePath, component string, levelVar *slog.LevelVar) (*slog.Logger, func() error, error) {
	logDir := filepath.Dir(filePath)
	if logDir != "." {
		if err := os.MkdirAll(logDir, 0o755); err != nil { //nolint:gosec
			return nil, nil, fmt.Errorf("creating log directory %s: %w", logDir, err)
		}
	}

	fileCfg := conf.LogConfig{}.FileOutput
	if s := conf.GetSettings(); s != nil {
		fileCfg = s.Logging.FileOutput
	}

	maxSizeMB := 100
	maxBackups := 3
	maxAge := 28
	if fileCfg.MaxSize > 0 {
		maxSizeMB = int(fileCfg.MaxSize)
	}
	if fileCfg.MaxBackups > 0 {
		maxBackups = fileCfg.MaxBackups
	}
	if fileCfg.MaxAge > 0 {
		maxAge = fileCfg.MaxAge
	}

	lj := &lumberjack.Logger{
		Filename:   filePath,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAge,
		Compress:   fileCfg.Compress,
	}

	handler := slog.NewJSONHandler(lj, &slog.HandlerOptions{
		Level:       levelVar,
		ReplaceAttr: defaultReplaceAttr,
	})

	logger := slog.New(handler).With("component", component)

	closeFunc := func() error {
		return lj.Close()
	}

	return logger, closeFunc, nil
}
