package logger

import (
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"
)

// Logger пишет строку на каждый запрос к управляющему API вместе с доменом
// и изменением, к которым он относится
type Logger struct {
	log *slog.Logger
}

func New(log *slog.Logger) *Logger {
	return &Logger{
		log: log.With(slog.String("component", "control_api")),
	}
}

func (l *Logger) Middleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		start := time.Now()

		next(ctx)

		status := ctx.Status()
		attrs := []slog.Attr{
			slog.String("method", ctx.Method()),
			slog.String("path", ctx.URL().Path),
			slog.Int("status", status),
			slog.Duration("duration", time.Since(start)),
		}
		if op := ctx.Operation(); op != nil && op.OperationID != "" {
			attrs = append(attrs, slog.String("operation", op.OperationID))
		}
		if domain := ctx.Param("domain"); domain != "" {
			attrs = append(attrs, slog.String("domain", domain))
		}
		if id := ctx.Param("id"); id != "" {
			attrs = append(attrs, slog.String("change_id", id))
		}

		l.log.LogAttrs(ctx.Context(), Level(ctx.Method(), status), "control API request", attrs...)
	}
}

// Level: CLI опрашивает статус постоянно, поэтому чтение идёт в Debug,
// изменения очереди и конфликтов в Info, отказы агента в Error
func Level(method string, status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	case method == http.MethodGet || method == http.MethodHead:
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
