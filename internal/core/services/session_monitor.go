package services

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/jupiterclapton/cenackle/client/internal/core/domain"
	"github.com/jupiterclapton/cenackle/client/internal/core/ports"
)

const DefaultCheckInterval = 20 * time.Second

var tracer = otel.Tracer("cenackle-client")

// AuthChecker est la seule opération dont le moniteur a besoin.
type AuthChecker interface {
	CheckAuth(ctx context.Context) error
}

type noopSessionMetrics struct{}

func (noopSessionMetrics) ObserveProbe(string, bool) {}
func (noopSessionMetrics) IncExpirations()           {}

// Monitor implémente ports.SessionMonitor.
//
// Deux tâches (ticker + focus) alimentent la même transition Authenticated -> Anonymous,
// protégée par le drapeau transitioning : un seul clear, une seule redirection.
type Monitor struct {
	checker   AuthChecker
	publisher ports.SessionEventPublisher
	navigator ports.Navigator
	metrics   ports.SessionMetrics
	loginURL  string
	interval  time.Duration

	focus chan struct{}

	mu            sync.RWMutex
	user          *domain.User
	transitioning atomic.Bool
}

var _ ports.SessionMonitor = (*Monitor)(nil)

func NewSessionMonitor(checker AuthChecker, pub ports.SessionEventPublisher, nav ports.Navigator, metrics ports.SessionMetrics, loginURL string, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultCheckInterval
	}
	if metrics == nil {
		metrics = noopSessionMetrics{}
	}
	return &Monitor{
		checker:   checker,
		publisher: pub,
		navigator: nav,
		metrics:   metrics,
		loginURL:  loginURL,
		interval:  interval,
		focus:     make(chan struct{}, 1),
	}
}

// Start lance les deux tâches. Elles s'arrêtent quand ctx est annulé.
func (m *Monitor) Start(ctx context.Context) {
	go m.runTicker(ctx)
	go m.runFocus(ctx)
}

// Focus signale un retour au premier plan. Non bloquant : les signaux en rafale sont fusionnés.
func (m *Monitor) Focus() {
	select {
	case m.focus <- struct{}{}:
	default:
	}
}

func (m *Monitor) runTicker(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Probe(ctx, domain.TriggerInterval)
		}
	}
}

func (m *Monitor) runFocus(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.focus:
			m.Probe(ctx, domain.TriggerFocus)
		}
	}
}

// Probe vérifie la session si elle est authentifiée. Retourne true si la session est
// (toujours) valide ou s'il n'y avait rien à vérifier.
func (m *Monitor) Probe(ctx context.Context, trigger domain.ProbeTrigger) bool {
	if m.State() != domain.Authenticated {
		return true
	}

	ctx, span := tracer.Start(ctx, "session.probe")
	defer span.End()
	span.SetAttributes(attribute.String("session.trigger", string(trigger)))

	err := m.checker.CheckAuth(ctx)
	if ctx.Err() != nil {
		// Annulation locale : ce n'est pas un verdict du backend
		return true
	}
	m.metrics.ObserveProbe(string(trigger), err == nil)
	if err == nil {
		return true
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, "session check failed")
	slog.Warn("🔒 Session check failed", "trigger", trigger, "error", err)
	m.expire(ctx)
	return false
}

// expire est la transition unique vers Anonymous.
func (m *Monitor) expire(ctx context.Context) {
	if !m.transitioning.CompareAndSwap(false, true) {
		return
	}

	m.mu.Lock()
	user := m.user
	m.user = nil
	m.mu.Unlock()

	if user == nil {
		// Déconnexion locale entre-temps : rien à rediriger
		m.transitioning.Store(false)
		return
	}

	m.metrics.IncExpirations()
	if m.publisher != nil {
		if err := m.publisher.PublishSessionExpired(ctx, user.ID); err != nil {
			slog.Error("❌ Failed to publish session.expired", "user_id", user.ID, "error", err)
		}
	}
	if m.navigator != nil {
		m.navigator.Navigate(m.loginURL)
	}
}

// SetUser passe en Authenticated et réarme la transition.
func (m *Monitor) SetUser(user *domain.User) {
	if user == nil {
		m.Clear()
		return
	}
	m.mu.Lock()
	m.user = user
	m.mu.Unlock()
	m.transitioning.Store(false)
}

// Clear passe en Anonymous sans redirection (logout volontaire).
func (m *Monitor) Clear() {
	m.mu.Lock()
	m.user = nil
	m.mu.Unlock()
}

func (m *Monitor) User() *domain.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user
}

func (m *Monitor) State() domain.SessionState {
	if m.User() != nil {
		return domain.Authenticated
	}
	return domain.Anonymous
}
