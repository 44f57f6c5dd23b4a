package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/jupiterclapton/cenackle/client/internal/core/domain"
	"github.com/jupiterclapton/cenackle/client/internal/core/ports"
)

// UserPublicView affiche le profil public d'un autre utilisateur.
type UserPublicView struct {
	auth ports.AuthAPI

	mu      sync.Mutex
	user    *domain.UserSummary
	loading bool
	err     string
}

func NewUserPublicView(auth ports.AuthAPI) *UserPublicView {
	return &UserPublicView{auth: auth}
}

func (v *UserPublicView) Load(ctx context.Context, userID int64) (*domain.UserSummary, error) {
	v.mu.Lock()
	v.loading = true
	v.mu.Unlock()

	user, err := v.auth.UserDetail(ctx, userID)

	v.mu.Lock()
	defer v.mu.Unlock()
	v.loading = false
	if err != nil {
		v.err = err.Error()
		return nil, fmt.Errorf("load user %d: %w", userID, err)
	}
	v.user = user
	v.err = ""
	return user, nil
}

// Snapshot renvoie l'utilisateur chargé (copie), l'indicateur de chargement et l'erreur.
func (v *UserPublicView) Snapshot() (*domain.UserSummary, bool, string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.user == nil {
		return nil, v.loading, v.err
	}
	u := *v.user
	return &u, v.loading, v.err
}
