package health

import (
	"context"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/stretchr/testify/assert"
	"golang.org/x/exp/slog"

	"fitsync/internal/domain/sync"
)

type stubStatus struct {
	st sync.Status
}

func (s stubStatus) Status(context.Context) sync.Status {
	return s.st
}

func TestHandler_healthCheck(t *testing.T) {
	lastSync := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		status         sync.StatusSource
		expectedStatus string
		expectedOnline bool
		expectedLast   time.Time
	}{
		{
			name:           "health check returns OK without engine",
			status:         nil,
			expectedStatus: "OK",
		},
		{
			name:           "health check reports connectivity",
			status:         stubStatus{st: sync.Status{IsOnline: true, LastSyncAt: lastSync}},
			expectedStatus: "OK",
			expectedOnline: true,
			expectedLast:   lastSync,
		},
		{
			name:           "offline is still healthy",
			status:         stubStatus{st: sync.Status{IsOnline: false}},
			expectedStatus: "OK",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			handler := NewHandler(tt.status, "device-1", slog.Default(), huma.Middlewares{})

			// Act
			output, err := handler.healthCheck(context.Background(), &Input{})

			// Assert
			assert.NoError(t, err)
			assert.NotNil(t, output)
			assert.Equal(t, tt.expectedStatus, output.Body.Status)
			assert.Equal(t, "device-1", output.Body.DeviceID)
			assert.Equal(t, tt.expectedOnline, output.Body.Online)
			assert.Equal(t, tt.expectedLast, output.Body.LastSyncAt)
		})
	}
}

func TestNewHandler(t *testing.T) {
	// Arrange
	log := slog.Default()
	middleware := huma.Middlewares{}

	// Act
	handler := NewHandler(nil, "", log, middleware)

	// Assert
	assert.NotNil(t, handler)
	assert.NotNil(t, handler.log)
	assert.NotNil(t, handler.middleware)
}
