package logger

import (
	"os"
	"strings"

	"golang.org/x/exp/slog"

	"fitsync/internal/app/client/config"
	"fitsync/internal/utils/logger/handlers/slogpretty"
)

// New создаёт логгер под окружение: local - цветной вывод,
// dev - JSON с debug, prod - JSON с info
func New(env string) *slog.Logger {
	switch env {
	case config.EnvLocal:
		return setupPrettySlog()
	case config.EnvProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}

// NewWithLevel как New, но явный уровень из LOG_LEVEL имеет приоритет
func NewWithLevel(env, level string) *slog.Logger {
	lvl, ok := parseLevel(level)
	if !ok {
		return New(env)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if env == config.EnvLocal {
		return slog.New(slogpretty.PrettyHandlerOptions{SlogOpts: opts}.NewPrettyHandler(os.Stdout))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func setupPrettySlog() *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	return slog.New(opts.NewPrettyHandler(os.Stdout))
}

func parseLevel(level string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return 0, false
}
