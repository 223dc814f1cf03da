package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// NATSBridge mirrors local hub events onto NATS subjects and relays events
// published by other instances back into the hub. Each bridge stamps the
// events it forwards with its own origin id and ignores them on the way
// back in.
type NATSBridge struct {
	nc     *nats.Conn
	hub    *Hub
	prefix string
	origin string
	logger *slog.Logger
}

// NewNATSBridge connects to the NATS server at url.
func NewNATSBridge(url, prefix string, hub *Hub, logger *slog.Logger) (*NATSBridge, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "nats_bridge")

	nc, err := nats.Connect(url,
		nats.Name("todoshare"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSBridge{
		nc:     nc,
		hub:    hub,
		prefix: prefix,
		origin: uuid.New().String(),
		logger: logger,
	}, nil
}

// Subject returns the subject events of collection c are published on.
func Subject(prefix string, c Collection) string {
	return prefix + "." + string(c)
}

// Run relays events in both directions until ctx is cancelled.
func (b *NATSBridge) Run(ctx context.Context) error {
	sub, err := b.nc.Subscribe(b.prefix+".*", b.handleMsg)
	if err != nil {
		return fmt.Errorf("subscribing to %s.*: %w", b.prefix, err)
	}
	defer sub.Unsubscribe()

	local := b.hub.Subscribe(Filter{})
	defer local.Close()

	b.logger.Info("NATS bridge started", "prefix", b.prefix, "origin", b.origin)

	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-local.Events():
			if !ok {
				return nil
			}
			if e.Origin != "" {
				continue
			}
			if err := b.forward(e); err != nil {
				b.logger.Error("Failed to forward event", "error", err, "row", e.RowID())
			}
		}
	}
}

func (b *NATSBridge) forward(e Event) error {
	e.Origin = b.origin
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	return b.nc.Publish(Subject(b.prefix, e.Collection), data)
}

func (b *NATSBridge) handleMsg(msg *nats.Msg) {
	var e Event
	if err := json.Unmarshal(msg.Data, &e); err != nil {
		b.logger.Warn("Dropping malformed NATS message", "subject", msg.Subject, "error", err)
		return
	}
	if e.Origin == b.origin {
		return
	}
	if err := e.Validate(); err != nil {
		b.logger.Warn("Dropping invalid NATS event", "subject", msg.Subject, "error", err)
		return
	}
	b.hub.Publish(e)
}

// Close drains the NATS connection.
func (b *NATSBridge) Close() error {
	return b.nc.Drain()
}
