package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/jupiterclapton/cenackle/client/internal/core/domain"
	"github.com/jupiterclapton/cenackle/client/internal/core/ports"
)

// --- LOGIN ---

type LoginView struct {
	auth    ports.AuthAPI
	session ports.SessionShell

	mu      sync.Mutex
	loading bool
	err     string
}

func NewLoginView(auth ports.AuthAPI, session ports.SessionShell) *LoginView {
	return &LoginView{auth: auth, session: session}
}

// Submit : login = email ou nom d'utilisateur.
func (v *LoginView) Submit(ctx context.Context, login, password string) (*domain.User, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, v.fail(domain.ErrMissingLogin)
	}
	if !v.begin() {
		return nil, domain.ErrBusy
	}
	defer v.end()

	ctx, span := tracer.Start(ctx, "auth.login")
	defer span.End()

	user, err := v.auth.Login(ctx, ports.LoginCmd{EmailOrUsername: login, Password: password})
	if err != nil {
		span.RecordError(err)
		return nil, v.fail(err)
	}
	if err := v.session.OnLogged(ctx, user); err != nil {
		return nil, v.fail(err)
	}
	_ = v.fail(nil)
	return user, nil
}

func (v *LoginView) Err() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.err
}

func (v *LoginView) begin() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.loading {
		return false
	}
	v.loading = true
	return true
}

func (v *LoginView) end() {
	v.mu.Lock()
	v.loading = false
	v.mu.Unlock()
}

func (v *LoginView) fail(err error) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.err = ""
	if err != nil {
		v.err = err.Error()
	}
	return err
}

// --- INSCRIPTION ---

type RegisterView struct {
	auth    ports.AuthAPI
	session ports.SessionShell

	mu      sync.Mutex
	loading bool
	err     string
}

func NewRegisterView(auth ports.AuthAPI, session ports.SessionShell) *RegisterView {
	return &RegisterView{auth: auth, session: session}
}

// Submit inscrit, connecte automatiquement, confirme via check-auth puis ouvre la session.
func (v *RegisterView) Submit(ctx context.Context, cmd ports.RegisterCmd) (*domain.User, error) {
	cmd.Email = strings.TrimSpace(cmd.Email)
	cmd.Username = strings.TrimSpace(cmd.Username)
	cmd.FirstName = strings.TrimSpace(cmd.FirstName)
	cmd.LastName = strings.TrimSpace(cmd.LastName)

	if cmd.Email == "" || cmd.Username == "" || cmd.Password == "" || cmd.PasswordConfirm == "" {
		return nil, v.fail(domain.ErrMissingFields)
	}
	if cmd.Password != cmd.PasswordConfirm {
		return nil, v.fail(domain.ErrPasswordMismatch)
	}

	v.mu.Lock()
	if v.loading {
		v.mu.Unlock()
		return nil, domain.ErrBusy
	}
	v.loading = true
	v.mu.Unlock()
	defer func() {
		v.mu.Lock()
		v.loading = false
		v.mu.Unlock()
	}()

	ctx, span := tracer.Start(ctx, "auth.register")
	defer span.End()

	// 1. Création du compte
	if err := v.auth.Register(ctx, cmd); err != nil {
		span.RecordError(err)
		return nil, v.fail(err)
	}

	// 2. Login automatique
	user, err := v.auth.Login(ctx, ports.LoginCmd{EmailOrUsername: cmd.Username, Password: cmd.Password})
	if err != nil {
		return nil, v.fail(fmt.Errorf("registered but sign-in failed: %w", err))
	}

	// 3. Les cookies de session sont-ils bien posés ?
	if err := v.auth.CheckAuth(ctx); err != nil {
		return nil, v.fail(fmt.Errorf("registered but session check failed: %w", err))
	}

	if err := v.session.OnLogged(ctx, user); err != nil {
		return nil, v.fail(err)
	}
	_ = v.fail(nil)
	return user, nil
}

func (v *RegisterView) Err() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.err
}

func (v *RegisterView) fail(err error) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.err = ""
	if err != nil {
		v.err = err.Error()
	}
	return err
}
