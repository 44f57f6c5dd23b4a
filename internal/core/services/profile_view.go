package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jupiterclapton/cenackle/client/internal/core/domain"
	"github.com/jupiterclapton/cenackle/client/internal/core/ports"
)

type ProfileSnapshot struct {
	User      *domain.User
	Following []domain.UserSummary
	Loading   bool
	Saving    bool
	Err       string
}

// ProfileView : profil de l'utilisateur courant et la liste des comptes qu'il suit.
type ProfileView struct {
	auth    ports.AuthAPI
	session ports.SessionShell

	mu        sync.Mutex
	user      *domain.User
	following []domain.UserSummary
	loading   bool
	saving    bool
	err       string
}

func NewProfileView(auth ports.AuthAPI, session ports.SessionShell) *ProfileView {
	return &ProfileView{auth: auth, session: session}
}

func (v *ProfileView) Load(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "profile.load")
	defer span.End()

	v.mu.Lock()
	v.loading = true
	v.mu.Unlock()
	defer func() {
		v.mu.Lock()
		v.loading = false
		v.mu.Unlock()
	}()

	user, err := v.auth.Profile(ctx)
	if err != nil {
		span.RecordError(err)
		return v.fail(fmt.Errorf("load profile: %w", err))
	}

	v.mu.Lock()
	v.user = user
	v.err = ""
	v.mu.Unlock()
	v.session.Refresh(user)

	// La liste des abonnements est secondaire : un échec n'invalide pas le profil
	following, err := v.auth.Following(ctx, user.ID)
	if err != nil {
		slog.Warn("Failed to load following list", "user_id", user.ID, "error", err)
		following = []domain.UserSummary{}
	}
	v.mu.Lock()
	v.following = following
	v.mu.Unlock()
	return nil
}

// Save met à jour le profil et propage l'utilisateur renvoyé à la session.
func (v *ProfileView) Save(ctx context.Context, cmd ports.UpdateProfileCmd) (*domain.User, error) {
	v.mu.Lock()
	if v.saving {
		v.mu.Unlock()
		return nil, domain.ErrBusy
	}
	v.saving = true
	v.mu.Unlock()
	defer func() {
		v.mu.Lock()
		v.saving = false
		v.mu.Unlock()
	}()

	ctx, span := tracer.Start(ctx, "profile.save")
	defer span.End()

	user, err := v.auth.UpdateProfile(ctx, cmd)
	if err != nil {
		span.RecordError(err)
		return nil, v.fail(fmt.Errorf("update profile: %w", err))
	}

	v.mu.Lock()
	v.user = user
	v.err = ""
	v.mu.Unlock()
	v.session.Refresh(user)
	return user, nil
}

func (v *ProfileView) ChangePassword(ctx context.Context, cmd ports.ChangePasswordCmd) error {
	if cmd.OldPassword == "" || cmd.NewPassword == "" {
		return v.fail(domain.ErrMissingLogin)
	}
	if cmd.NewPassword != cmd.NewPasswordConfirm {
		return v.fail(domain.ErrPasswordMismatch)
	}
	if err := v.auth.ChangePassword(ctx, cmd); err != nil {
		return v.fail(fmt.Errorf("change password: %w", err))
	}
	return nil
}

func (v *ProfileView) Snapshot() ProfileSnapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return ProfileSnapshot{
		User:      v.user,
		Following: append([]domain.UserSummary(nil), v.following...),
		Loading:   v.loading,
		Saving:    v.saving,
		Err:       v.err,
	}
}

func (v *ProfileView) fail(err error) error {
	v.mu.Lock()
	v.err = err.Error()
	v.mu.Unlock()
	return err
}
