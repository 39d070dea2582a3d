package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rhuss/alertbridge/pkg/storage"
)

const (
	listenInitialBackoff = time.Second
	listenMaxBackoff     = 30 * time.Second
)

// ErrListenerDown is reported by HealthCheck while a started alert event
// listener has no LISTEN connection.
var ErrListenerDown = errors.New("alert event listener down")

// listenerState tracks whether the alert event listener holds a LISTEN
// connection. A listener that was never started is not a failure.
type listenerState struct {
	started atomic.Bool
	active  atomic.Bool
}

func (l *listenerState) check() error {
	if l.started.Load() && !l.active.Load() {
		return ErrListenerDown
	}
	return nil
}

// ListenAlertEvents subscribes to a notification channel and calls handle
// for every well-formed alert event until ctx is cancelled. Malformed
// notifications and handler errors are logged and skipped. When the LISTEN
// connection is lost it is reacquired with exponential backoff, and
// HealthCheck reports ErrListenerDown in the meantime. It returns nil once
// ctx is cancelled.
//
// Notification payloads have the form {"alert_id": "...", "data": {...}}.
func (s *Store) ListenAlertEvents(ctx context.Context, channel string, handle func(context.Context, storage.AlertEvent) error) error {
	return listenLoop(ctx, &s.listener, listenInitialBackoff, listenMaxBackoff,
		func(ctx context.Context, established func()) error {
			return s.listenOnce(ctx, channel, handle, established)
		})
}

// listenLoop runs listen until ctx is cancelled, waiting between attempts.
// The backoff resets whenever an attempt reports an established connection.
func listenLoop(ctx context.Context, state *listenerState, initial, maxBackoff time.Duration, listen func(ctx context.Context, established func()) error) error {
	state.started.Store(true)
	defer state.active.Store(false)

	backoff := initial
	for {
		err := listen(ctx, func() {
			state.active.Store(true)
			backoff = initial
		})
		state.active.Store(false)
		if ctx.Err() != nil {
			return nil
		}
		slog.Warn("alert event listener disconnected, reconnecting", "error", err, "backoff", backoff)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

// listenOnce holds one LISTEN connection until it fails or ctx is cancelled.
func (s *Store) listenOnce(ctx context.Context, channel string, handle func(context.Context, storage.AlertEvent) error, established func()) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquiring listen connection: %w", err)
	}
	// The session carries the LISTEN, so it never goes back to the pool.
	pgConn := conn.Hijack()
	defer pgConn.Close(context.Background())

	if _, err := pgConn.Exec(ctx, "LISTEN "+pgx.Identifier{channel}.Sanitize()); err != nil {
		return fmt.Errorf("listening on %q: %w", channel, err)
	}
	established()
	slog.Info("listening for alert events", "channel", channel)

	for {
		n, err := pgConn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("waiting for notification: %w", err)
		}

		ev, err := parseAlertEvent(n.Payload)
		if err != nil {
			slog.Warn("skipping malformed alert event", "channel", n.Channel, "error", err)
			continue
		}

		if err := handle(ctx, ev); err != nil {
			slog.Error("alert event handling failed", "alert_id", ev.AlertID, "error", err)
		}
	}
}

func parseAlertEvent(payload string) (storage.AlertEvent, error) {
	var ev storage.AlertEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return storage.AlertEvent{}, fmt.Errorf("decoding payload: %w", err)
	}
	if ev.AlertID == "" {
		return storage.AlertEvent{}, errors.New("missing alert_id")
	}
	if len(ev.Data) == 0 {
		ev.Data = json.RawMessage("{}")
	}
	return ev, nil
}
