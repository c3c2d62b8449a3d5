package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fitsync/internal/domain/sync"

	"github.com/nats-io/nats.go"
	"golang.org/x/exp/slog"
)

// NATSClient транспорт пакетов через NATS request/reply
type NATSClient struct {
	nc      *nats.Conn
	subject string
	log     *slog.Logger
}

var _ sync.Transport = (*NATSClient)(nil)

// NewNATSClient подключается к NATS. Недоступный сервер не ошибка:
// соединение переподключается в фоне, а монитор видит его как offline.
func NewNATSClient(url, subject string, log *slog.Logger) (*NATSClient, error) {
	log = log.With(slog.String("component", "nats_transport"))

	nc, err := nats.Connect(url,
		nats.Name("fitsync"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", slog.Any("error", err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("nats reconnected", slog.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	return &NATSClient{nc: nc, subject: subject, log: log}, nil
}

// Probe считает сервер доступным, если соединение установлено и отвечает на flush
func (c *NATSClient) Probe(ctx context.Context) error {
	if !c.nc.IsConnected() {
		return fmt.Errorf("nats status: %s", c.nc.Status())
	}
	return c.nc.FlushWithContext(ctx)
}

func (c *NATSClient) Send(ctx context.Context, batch *sync.BatchRequest) (*sync.BatchResponse, error) {
	data, err := json.Marshal(batch)
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}

	msg, err := c.nc.RequestWithContext(ctx, c.subject, data)
	if err != nil {
		if errors.Is(err, nats.ErrNoResponders) {
			return nil, fmt.Errorf("%w: no responders on %s", sync.ErrNetworkFailure, c.subject)
		}
		return nil, fmt.Errorf("%w: %v", sync.ErrNetworkFailure, err)
	}

	var result sync.BatchResponse
	if err := json.Unmarshal(msg.Data, &result); err != nil {
		return nil, fmt.Errorf("%w: failed to decode reply: %v", sync.ErrNetworkFailure, err)
	}
	return &result, nil
}

// Close дожидается ответов на уже отправленные запросы, если соединение живо
func (c *NATSClient) Close() error {
	if c.nc.IsClosed() {
		return nil
	}
	if !c.nc.IsConnected() {
		c.nc.Close()
		return nil
	}
	return c.nc.Drain()
}
