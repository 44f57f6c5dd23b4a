package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jupiterclapton/cenackle/client/internal/core/domain"
	"github.com/jupiterclapton/cenackle/client/internal/core/ports"
)

// SessionService est la coquille de session : bootstrap, login, logout.
// Il n'y a qu'un seul propriétaire de l'utilisateur courant : le moniteur.
type SessionService struct {
	auth      ports.AuthAPI
	monitor   ports.SessionMonitor
	csrf      ports.CSRFResetter
	store     ports.SessionPersister
	publisher ports.SessionEventPublisher
}

var _ ports.SessionShell = (*SessionService)(nil)

func NewSessionService(auth ports.AuthAPI, monitor ports.SessionMonitor, csrf ports.CSRFResetter, store ports.SessionPersister, pub ports.SessionEventPublisher) *SessionService {
	return &SessionService{
		auth:      auth,
		monitor:   monitor,
		csrf:      csrf,
		store:     store,
		publisher: pub,
	}
}

// Bootstrap récupère le profil avec les cookies existants.
// Une réponse HTTP d'échec = Anonymous sans erreur ; une panne réseau est remontée.
func (s *SessionService) Bootstrap(ctx context.Context) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "session.bootstrap")
	defer span.End()

	user, err := s.auth.Profile(ctx)
	if err != nil {
		s.monitor.Clear()
		var apiErr *domain.APIError
		if errors.As(err, &apiErr) {
			slog.Debug("No active session", "status", apiErr.Status)
			return nil, nil
		}
		return nil, fmt.Errorf("bootstrap session: %w", err)
	}

	s.monitor.SetUser(user)
	return user, nil
}

// OnLogged est appelé par les vues Login/Register.
func (s *SessionService) OnLogged(ctx context.Context, user *domain.User) error {
	if user == nil {
		return domain.ErrNotAuthenticated
	}
	s.monitor.SetUser(user)

	if s.store != nil {
		if err := s.store.Persist(ctx); err != nil {
			return fmt.Errorf("persist session: %w", err)
		}
	}
	if s.publisher != nil {
		if err := s.publisher.PublishSessionStarted(ctx, user); err != nil {
			// L'événement est informatif, le login reste valide
			slog.Error("❌ Failed to publish session.started", "user_id", user.ID, "error", err)
		}
	}
	slog.Info("✅ Signed in", "user_id", user.ID, "username", user.Username)
	return nil
}

// Refresh remplace l'utilisateur courant (profil mis à jour) sans événement.
func (s *SessionService) Refresh(user *domain.User) {
	if user != nil && s.monitor.User() != nil {
		s.monitor.SetUser(user)
	}
}

// Logout : on nettoie l'état local même si le backend refuse.
func (s *SessionService) Logout(ctx context.Context) error {
	if err := s.auth.Logout(ctx); err != nil {
		slog.Warn("Backend logout failed, clearing local session anyway", "error", err)
	}

	s.monitor.Clear()
	if s.csrf != nil {
		s.csrf.ResetCSRF()
	}
	if s.store != nil {
		if err := s.store.Clear(ctx); err != nil {
			return fmt.Errorf("clear session store: %w", err)
		}
	}
	return nil
}

func (s *SessionService) CurrentUser() *domain.User {
	return s.monitor.User()
}

func (s *SessionService) Monitor() ports.SessionMonitor {
	return s.monitor
}
