package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
)

const pingInterval = 90 * time.Second

// PGListener relays postgres NOTIFY payloads emitted by the row-change
// trigger onto a Hub. The underlying lib/pq listener re-establishes its
// own connection after network failures.
type PGListener struct {
	dsn     string
	channel string
	hub     *Hub
	logger  *slog.Logger
}

// NewPGListener creates a listener for channel on the database at dsn.
func NewPGListener(dsn, channel string, hub *Hub, logger *slog.Logger) *PGListener {
	if logger == nil {
		logger = slog.Default()
	}
	return &PGListener{
		dsn:     dsn,
		channel: channel,
		hub:     hub,
		logger:  logger.With("component", "pg_listener"),
	}
}

// Run listens until ctx is cancelled.
func (l *PGListener) Run(ctx context.Context) error {
	listener := pq.NewListener(l.dsn, 10*time.Second, time.Minute, l.onEvent)
	defer listener.Close()

	if err := listener.Listen(l.channel); err != nil {
		return fmt.Errorf("listening on %s: %w", l.channel, err)
	}
	l.logger.Info("Listening for row changes", "channel", l.channel)

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	notifications := listener.NotificationChannel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case n, ok := <-notifications:
			if !ok {
				return fmt.Errorf("listener on %s closed", l.channel)
			}
			if n == nil {
				// Reconnected; notifications sent while down are lost.
				continue
			}
			e, err := DecodeNotification(n.Extra)
			if err != nil {
				l.logger.Warn("Dropping malformed notification", "error", err)
				continue
			}
			l.hub.Publish(e)
		case <-ticker.C:
			go func() {
				if err := listener.Ping(); err != nil {
					l.logger.Warn("Listener ping failed", "error", err)
				}
			}()
		}
	}
}

func (l *PGListener) onEvent(ev pq.ListenerEventType, err error) {
	switch ev {
	case pq.ListenerEventConnected:
		l.logger.Debug("Listener connected")
	case pq.ListenerEventDisconnected:
		l.logger.Warn("Listener disconnected", "error", err)
	case pq.ListenerEventReconnected:
		l.logger.Info("Listener reconnected")
	case pq.ListenerEventConnectionAttemptFailed:
		l.logger.Warn("Listener connection attempt failed", "error", err)
	}
}

// DecodeNotification parses a trigger payload into an Event.
func DecodeNotification(payload string) (Event, error) {
	var e Event
	if err := json.Unmarshal([]byte(payload), &e); err != nil {
		return Event{}, fmt.Errorf("decoding notification: %w", err)
	}
	if err := e.Validate(); err != nil {
		return Event{}, fmt.Errorf("decoding notification: %w", err)
	}
	return e, nil
}
