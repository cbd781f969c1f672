// Package logging builds the server's zap logger from config: a
// console/JSON encoder choice, a lumberjack rotating file sink when
// not logging to stdout, and a level parsed from the config string.
package logging

import (
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/coreh2/h2/internal/config"
)

// FileSink, when non-empty, routes logs to a rotating file instead of
// stdout. The CLI layer leaves this empty for the common case.
type Options struct {
	Level      string
	Format     string
	FileSink   string
	MaxSizeMB  int
	MaxAge     int
	MaxBackups int
}

func FromConfig(cfg config.Logging) Options {
	return Options{Level: cfg.Level, Format: cfg.Format, MaxSizeMB: 100, MaxAge: 28, MaxBackups: 3}
}

func toZapLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// New builds a *zap.Logger per opt. Format "json" uses zapcore's JSON
// encoder (for log aggregators); anything else uses the console
// encoder with a human-readable timestamp.
func New(opt Options) (*zap.Logger, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.UTC().Format("2006-01-02T15:04:05.000Z"))
	}
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	var encoder zapcore.Encoder
	if opt.Format == "json" {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	var w zapcore.WriteSyncer
	if opt.FileSink == "" {
		w = zapcore.AddSync(os.Stdout)
	} else {
		if err := os.MkdirAll(filepath.Dir(opt.FileSink), 0o755); err != nil {
			return nil, err
		}
		w = zapcore.AddSync(&lumberjack.Logger{
			Filename:   opt.FileSink,
			MaxSize:    opt.MaxSizeMB,
			MaxAge:     opt.MaxAge,
			MaxBackups: opt.MaxBackups,
			LocalTime:  true,
		})
	}

	core := zapcore.NewCore(encoder, w, toZapLevel(opt.Level))
	return zap.New(core, zap.AddCaller()), nil
}
