// Package logx holds the process-wide structured logger. Services log
// snake_case events with key/value pairs: logx.L().Infow("api_listen_start", "addr", addr).
package logx

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var lg *zap.SugaredLogger

type Options struct {
	Level   string // debug, info, warn, error
	Format  string // json or console
	Service string
}

// OptionsFromEnv reads LOG_LEVEL, LOG_FORMAT and SERVICE_NAME.
func OptionsFromEnv() Options {
	return Options{
		Level:   os.Getenv("LOG_LEVEL"),
		Format:  os.Getenv("LOG_FORMAT"),
		Service: os.Getenv("SERVICE_NAME"),
	}
}

func Init() { InitWith(OptionsFromEnv()) }

func InitWith(o Options) {
	z, err := build(o)
	if err != nil {
		z = zap.NewNop()
	}
	lg = z.Sugar()
	if o.Service != "" {
		lg = lg.With("service", o.Service)
	}
}

func build(o Options) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(o.Level))
	cfg.Encoding = "json"
	if strings.EqualFold(o.Format, "console") {
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		cfg.DisableStacktrace = true
	}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	}
	return zapcore.InfoLevel
}

func L() *zap.SugaredLogger {
	if lg == nil {
		Init()
	}
	return lg
}

// Replace swaps the global logger and returns a func restoring the previous one.
func Replace(z *zap.Logger) func() {
	prev := lg
	lg = z.Sugar()
	return func() { lg = prev }
}

func Sync() { _ = L().Sync() }
