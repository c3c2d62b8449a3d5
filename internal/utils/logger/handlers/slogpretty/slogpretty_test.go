package slogpretty

import (
	"bytes"
	"errors"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"golang.org/x/exp/slog"
)

func TestPrettyHandler_Handle(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	h := PrettyHandlerOptions{SlogOpts: &slog.HandlerOptions{Level: slog.LevelDebug}}.NewPrettyHandler(&buf)

	log := slog.New(h).With(slog.String("component", "sync_engine"))
	log.Info("batch sent", slog.Int("items", 3), slog.Any("error", errors.New("boom")))

	out := buf.String()
	assert.Contains(t, out, "INFO:")
	assert.Contains(t, out, "batch sent")
	assert.Contains(t, out, `"component": "sync_engine"`)
	assert.Contains(t, out, `"items": 3`)
	assert.Contains(t, out, `"error": "boom"`)
}

func TestPrettyHandler_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	h := PrettyHandlerOptions{SlogOpts: &slog.HandlerOptions{Level: slog.LevelWarn}}.NewPrettyHandler(&buf)

	log := slog.New(h)
	log.Info("hidden")

	assert.Empty(t, buf.String())
}
