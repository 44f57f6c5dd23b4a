package eventbroker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/jupiterclapton/cenackle/client/internal/core/domain"
	"github.com/jupiterclapton/cenackle/client/internal/core/ports"
)

// NatsPublisher diffuse les transitions de session aux autres processus client.
type NatsPublisher struct {
	nc     *nats.Conn
	origin string
}

var _ ports.SessionEventPublisher = (*NatsPublisher)(nil)

func NewNatsPublisher(nc *nats.Conn, origin string) *NatsPublisher {
	return &NatsPublisher{nc: nc, origin: origin}
}

func (p *NatsPublisher) PublishSessionStarted(ctx context.Context, user *domain.User) error {
	return p.publish(ctx, domain.SubjectSessionStarted, domain.SessionEvent{
		Origin:   p.origin,
		UserID:   user.ID,
		Username: user.Username,
		At:       time.Now().UTC(),
	})
}

func (p *NatsPublisher) PublishSessionExpired(ctx context.Context, userID int64) error {
	return p.publish(ctx, domain.SubjectSessionExpired, domain.SessionEvent{
		Origin: p.origin,
		UserID: userID,
		At:     time.Now().UTC(),
	})
}

func (p *NatsPublisher) publish(ctx context.Context, subject string, event domain.SessionEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshalling error: %w", err)
	}

	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
		Header:  nats.Header{},
	}
	// Le trace ID suit l'événement
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(msg.Header))

	slog.Debug("📢 Publishing session event", "subject", subject, "user_id", event.UserID)
	return p.nc.PublishMsg(msg)
}

// NoopPublisher est utilisé quand NATS_URL n'est pas configuré.
type NoopPublisher struct{}

var _ ports.SessionEventPublisher = NoopPublisher{}

func (NoopPublisher) PublishSessionStarted(context.Context, *domain.User) error { return nil }
func (NoopPublisher) PublishSessionExpired(context.Context, int64) error        { return nil }
