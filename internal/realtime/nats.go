package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/dukerupert/arena/internal/domain"
)

var ErrClosed = errors.New("realtime feed is closed")

// NATSBus carries insert events over NATS, one subject per order.
type NATSBus struct {
	conn     *nats.Conn
	logger   *slog.Logger
	observer Observer
}

// Connect dials the NATS server at url. The connection reconnects forever.
func Connect(url string, logger *slog.Logger, observer Observer) (*NATSBus, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(url,
		nats.Name("arena"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}

	logger.Info("connected to nats", "url", conn.ConnectedUrl())
	return &NATSBus{conn: conn, logger: logger, observer: observer}, nil
}

// Publish implements Publisher. The payload is the full message row as JSON.
func (b *NATSBus) Publish(ctx context.Context, msg domain.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	if err := b.conn.Publish(Subject(msg.OrderID), data); err != nil {
		if errors.Is(err, nats.ErrConnectionClosed) {
			return ErrClosed
		}
		return fmt.Errorf("failed to publish message: %w", err)
	}

	b.observe("published")
	return nil
}

// Subscribe implements Subscriber. Payloads that do not decode or belong to
// another order are dropped.
func (b *NATSBus) Subscribe(orderID uuid.UUID, fn Handler) (Subscription, error) {
	sub, err := b.conn.Subscribe(Subject(orderID), func(m *nats.Msg) {
		var msg domain.Message
		if err := json.Unmarshal(m.Data, &msg); err != nil {
			b.logger.Warn("dropping malformed realtime payload", "subject", m.Subject, "error", err)
			b.observe("dropped")
			return
		}
		if msg.OrderID != orderID || msg.ID == uuid.Nil {
			b.observe("dropped")
			return
		}
		fn(msg)
		b.observe("delivered")
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to order %s: %w", orderID, err)
	}
	return sub, nil
}

// Ping round-trips to the server.
func (b *NATSBus) Ping(ctx context.Context) error {
	return b.conn.FlushWithContext(ctx)
}

// Close drains subscriptions and closes the connection.
func (b *NATSBus) Close() error {
	return b.conn.Drain()
}

func (b *NATSBus) observe(event string) {
	if b.observer != nil {
		b.observer(event)
	}
}
