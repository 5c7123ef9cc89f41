// Package logger builds the application's structured slog logger.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	slogmulti "github.com/samber/slog-multi"
	slogsentry "github.com/samber/slog-sentry/v2"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Proton-105/users-backend/pkg/config"
)

var level = new(slog.LevelVar)

// New creates a slog.Logger configured from cfg. Output goes to stdout and,
// when logger.file.path is set, to a rotating file as well. Sensitive
// attributes are masked, and error records are forwarded to Sentry when it is
// enabled.
func New(cfg config.Config) *slog.Logger {
	return newWithWriter(cfg, output(cfg.Logger.File))
}

func newWithWriter(cfg config.Config, w io.Writer) *slog.Logger {
	SetLevel(cfg.Logger.Level)

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(cfg.Logger.Format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	if cfg.Sentry.Enabled {
		handler = withReporter(handler, slogsentry.Option{Level: slog.LevelError}.NewSentryHandler())
	}

	attrs := []any{slog.String("service", cfg.App.Name)}
	if cfg.AppEnv != "" {
		attrs = append(attrs, slog.String("env", cfg.AppEnv))
	}

	return slog.New(NewMaskingHandler(handler)).With(attrs...)
}

// withReporter sends every record to console and the records reporter
// accepts to reporter as well.
func withReporter(console, reporter slog.Handler) slog.Handler {
	return slogmulti.Fanout(console, reporter)
}

// SetLevel changes the minimum level of every logger built by New.
// Unknown values fall back to info.
func SetLevel(name string) {
	level.Set(ParseLevel(name))
}

// ParseLevel converts a textual level into a slog.Level.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// InitSentry initializes the global Sentry hub. It returns a flush function
// to be called during shutdown; both are no-ops when Sentry is disabled.
func InitSentry(cfg config.Config) (func(time.Duration) bool, error) {
	if !cfg.Sentry.Enabled {
		return func(time.Duration) bool { return true }, nil
	}

	environment := cfg.Sentry.Environment
	if environment == "" {
		environment = cfg.AppEnv
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.Sentry.DSN,
		Environment:      environment,
		ServerName:       cfg.App.Name,
		EnableTracing:    cfg.Sentry.TracesSampleRate > 0,
		TracesSampleRate: cfg.Sentry.TracesSampleRate,
	}); err != nil {
		return nil, fmt.Errorf("init sentry: %w", err)
	}

	return sentry.Flush, nil
}

func output(file config.LogFileConfig) io.Writer {
	if file.Path == "" {
		return os.Stdout
	}

	return io.MultiWriter(os.Stdout, &lumberjack.Logger{
		Filename:   file.Path,
		MaxSize:    file.MaxSizeMB,
		MaxBackups: file.MaxBackups,
		MaxAge:     file.MaxAgeDays,
		Compress:   file.Compress,
	})
}
