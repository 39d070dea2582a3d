// Package alerts pushes alert data to the per-user topics of an alert's
// recipients.
package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/rhuss/alertbridge/pkg/broker"
	"github.com/rhuss/alertbridge/pkg/observability"
	"github.com/rhuss/alertbridge/pkg/storage"
	"github.com/rhuss/alertbridge/pkg/topic"
)

// Connections hands out the process-wide broker connection.
// *broker.Provider satisfies it.
type Connections interface {
	Get() *broker.Connection
}

// Publisher fans alert data out to permitted recipients. Delivery is
// best-effort: failures are logged, never retried or queued.
type Publisher struct {
	conns      Connections
	recipients storage.RecipientSource
	perms      storage.PermissionChecker
}

// NewPublisher creates a Publisher.
func NewPublisher(conns Connections, recipients storage.RecipientSource, perms storage.PermissionChecker) *Publisher {
	return &Publisher{conns: conns, recipients: recipients, perms: perms}
}

// Publish serializes data once and publishes it to the topic of every
// recipient of the alert that holds the view permission. Recipients without
// the permission are skipped silently. An error is returned only when the
// recipients cannot be resolved or data cannot be serialized.
func (p *Publisher) Publish(ctx context.Context, alertID string, data any) error {
	users, err := p.recipients.AlertRecipients(ctx, alertID)
	if err != nil {
		return fmt.Errorf("resolving recipients of alert %s: %w", alertID, err)
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encoding alert %s: %w", alertID, err)
	}

	for _, u := range users {
		allowed, err := p.perms.HasPermission(ctx, u.Email, storage.PermViewAlert)
		if err != nil {
			slog.Warn("permission check failed, skipping recipient",
				"alert_id", alertID, "email", u.Email, "error", err)
			allowed = false
		}
		if !allowed {
			observability.BrokerPublishesTotal.WithLabelValues("skipped").Inc()
			continue
		}

		if err := p.conns.Get().Publish(topic.For(u.Email), payload); err != nil {
			slog.Debug("alert publish dropped", "alert_id", alertID, "email", u.Email, "error", err)
		}
	}
	return nil
}

// HandleEvent publishes a storage.AlertEvent. It matches the handler
// signature of postgres.Store.ListenAlertEvents.
func (p *Publisher) HandleEvent(ctx context.Context, ev storage.AlertEvent) error {
	return p.Publish(ctx, ev.AlertID, ev.Data)
}
