package ports

import (
	"context"

	"github.com/jupiterclapton/cenackle/client/internal/core/domain"
)

// --- DRIVING (Ce que le client expose aux front-ends : CLI, serveur de contrôle, poller) ---

// SessionMonitor est la machine à états Authenticated/Anonymous.
type SessionMonitor interface {
	Start(ctx context.Context)
	Focus()
	SetUser(user *domain.User)
	Clear()
	User() *domain.User
	State() domain.SessionState
}

// FeedLoader est ce dont le poller a besoin.
type FeedLoader interface {
	Load(ctx context.Context) error
}

// SessionShell est ce que les vues voient de la session : lecture de l'utilisateur
// et passage de relais après login / mise à jour du profil.
type SessionShell interface {
	CurrentUser() *domain.User
	OnLogged(ctx context.Context, user *domain.User) error
	Refresh(user *domain.User)
}
