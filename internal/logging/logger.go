// Package logging builds the zap loggers used across fluxpost.
package logging

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const timeLayout = "2006-01-02 15:04:05.000"

// Options configures the root logger.
type Options struct {
	Level  string
	Format string // json or console
	File   string
	// Console also writes to stderr when File is set.
	Console    bool
	MaxSizeMB  int
	MaxAgeDays int
	MaxBackups int
	Compress   bool
}

// New returns a logger writing to stderr, or to a rotated file when File is set.
func New(opts Options) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.TrimSpace(strings.ToLower(opts.Level)))
	if err != nil || opts.Level == "" {
		level = zapcore.InfoLevel
	}

	writer, err := writeSyncer(opts)
	if err != nil {
		return nil, err
	}

	core := zapcore.NewCore(encoder(opts.Format), writer, level)
	logger := zap.New(core, zap.AddCaller())
	if level == zapcore.DebugLevel {
		logger = logger.WithOptions(zap.AddStacktrace(zapcore.ErrorLevel))
	}
	return logger, nil
}

// Must is New for mains; it falls back to a production logger on error.
func Must(opts Options) *zap.Logger {
	l, err := New(opts)
	if err != nil {
		fallback, _ := zap.NewProduction()
		fallback.Warn("logger setup failed, using defaults", zap.Error(err))
		return fallback
	}
	return l
}

func encoder(format string) zapcore.Encoder {
	cfg := zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		TimeKey:        "ts",
		NameKey:        "logger",
		CallerKey:      "caller",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout(timeLayout),
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	if strings.EqualFold(format, "console") {
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(cfg)
	}
	return zapcore.NewJSONEncoder(cfg)
}

func writeSyncer(opts Options) (zapcore.WriteSyncer, error) {
	if opts.File == "" {
		return zapcore.Lock(os.Stderr), nil
	}
	if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
		return nil, err
	}

	maxSize := opts.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 100
	}
	maxAge := opts.MaxAgeDays
	if maxAge <= 0 {
		maxAge = 7
	}
	rotated := zapcore.AddSync(&lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    maxSize,
		MaxAge:     maxAge,
		MaxBackups: opts.MaxBackups,
		Compress:   opts.Compress,
		LocalTime:  true,
	})
	if opts.Console {
		return zapcore.NewMultiWriteSyncer(zapcore.Lock(os.Stderr), rotated), nil
	}
	return rotated, nil
}

// Duration is a zap field for elapsed time since start.
func Duration(start time.Time) zap.Field {
	return zap.Duration("duration", time.Since(start))
}
