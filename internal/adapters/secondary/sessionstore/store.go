package sessionstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/jupiterclapton/cenackle/client/internal/core/ports"
)

var ErrNoSession = errors.New("no saved session")

// Cookie est la forme persistée d'un cookie du jar (le jar n'expose que nom et valeur).
type Cookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Snapshot est ce qu'on sauvegarde entre deux exécutions : les cookies du backend.
type Snapshot struct {
	BaseURL string    `json:"base_url"`
	Cookies []Cookie  `json:"cookies"`
	SavedAt time.Time `json:"saved_at"`
}

// Backend est un support de stockage (fichier, Redis, mémoire).
type Backend interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snap *Snapshot) error
	Delete(ctx context.Context) error
}

// Persister relie le cookie jar de la passerelle à un Backend.
type Persister struct {
	jar     http.CookieJar
	base    *url.URL
	backend Backend
}

var _ ports.SessionPersister = (*Persister)(nil)

func NewPersister(jar http.CookieJar, base *url.URL, backend Backend) *Persister {
	return &Persister{jar: jar, base: base, backend: backend}
}

// Restore recharge les cookies sauvegardés dans le jar. Pas de session = pas d'erreur.
func (p *Persister) Restore(ctx context.Context) error {
	snap, err := p.backend.Load(ctx)
	if errors.Is(err, ErrNoSession) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if snap.BaseURL != "" && snap.BaseURL != p.base.String() {
		// Session d'un autre backend : on l'ignore
		slog.Debug("Ignoring session saved for another backend", "saved", snap.BaseURL)
		return nil
	}

	cookies := make([]*http.Cookie, 0, len(snap.Cookies))
	for _, c := range snap.Cookies {
		cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value, Path: "/"})
	}
	p.jar.SetCookies(p.base, cookies)
	slog.Debug("Session restored", "cookies", len(cookies))
	return nil
}

func (p *Persister) Persist(ctx context.Context) error {
	jarCookies := p.jar.Cookies(p.base)
	snap := &Snapshot{
		BaseURL: p.base.String(),
		Cookies: make([]Cookie, 0, len(jarCookies)),
		SavedAt: time.Now().UTC(),
	}
	for _, c := range jarCookies {
		snap.Cookies = append(snap.Cookies, Cookie{Name: c.Name, Value: c.Value})
	}
	return p.backend.Save(ctx, snap)
}

// Clear efface la sauvegarde et expire les cookies du jar.
func (p *Persister) Clear(ctx context.Context) error {
	expired := make([]*http.Cookie, 0)
	for _, c := range p.jar.Cookies(p.base) {
		expired = append(expired, &http.Cookie{Name: c.Name, Value: "", Path: "/", MaxAge: -1})
	}
	p.jar.SetCookies(p.base, expired)
	return p.backend.Delete(ctx)
}
