package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/jupiterclapton/cenackle/client/internal/core/domain"
	"github.com/jupiterclapton/cenackle/client/internal/core/ports"
)

// SessionListener écoute les expirations annoncées par les autres processus client.
// Une expiration pour notre utilisateur déclenche une vérification immédiate,
// jamais un logout direct : le backend reste la source de vérité.
type SessionListener struct {
	monitor ports.SessionMonitor
	origin  string
}

func NewSessionListener(monitor ports.SessionMonitor, origin string) *SessionListener {
	return &SessionListener{monitor: monitor, origin: origin}
}

// Subscribe branche le handler et renvoie l'abonnement pour Unsubscribe/Drain.
func (l *SessionListener) Subscribe(nc *nats.Conn) (*nats.Subscription, error) {
	sub, err := nc.Subscribe(domain.SubjectSessionExpired, l.HandleSessionExpired)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", domain.SubjectSessionExpired, err)
	}
	return sub, nil
}

func (l *SessionListener) HandleSessionExpired(msg *nats.Msg) {
	ctx := otel.GetTextMapPropagator().Extract(context.Background(), propagation.HeaderCarrier(msg.Header))
	_, span := otel.Tracer("cenackle-client").Start(ctx, "session.expired.received", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	var event domain.SessionEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		span.RecordError(err)
		slog.Error("❌ Invalid event format", "subject", msg.Subject, "error", err)
		return
	}
	if event.Origin == l.origin {
		return
	}

	user := l.monitor.User()
	if user == nil || user.ID != event.UserID {
		return
	}
	slog.Info("📨 Session expired elsewhere, re-checking", "user_id", event.UserID, "origin", event.Origin)
	l.monitor.Focus()
}
