package httpapi

import (
	"context"
	"fmt"
	"net/http"
)

type csrfResponse struct {
	CSRFToken string `json:"csrfToken"`
}

// CSRFToken renvoie le jeton du cookie csrftoken, sinon le jeton en cache,
// sinon le récupère via /auth/csrf/ et le met en cache.
func (g *Gateway) CSRFToken(ctx context.Context) (string, error) {
	if token := g.cookieToken(); token != "" {
		return token, nil
	}

	g.csrfMu.Lock()
	defer g.csrfMu.Unlock()

	if g.csrfToken != "" {
		return g.csrfToken, nil
	}

	token, err := g.fetchCSRF(ctx)
	if err != nil {
		return "", err
	}
	g.csrfToken = token
	return token, nil
}

// ResetCSRF vide le cache (logout).
func (g *Gateway) ResetCSRF() {
	g.csrfMu.Lock()
	g.csrfToken = ""
	g.csrfMu.Unlock()
}

func (g *Gateway) fetchCSRF(ctx context.Context) (string, error) {
	resp, err := g.Do(ctx, Request{Method: http.MethodGet, Path: "/auth/csrf/"})
	if err != nil {
		return "", err
	}

	// Le cookie posé par la réponse fait foi
	if token := g.cookieToken(); token != "" {
		return token, nil
	}

	var body csrfResponse
	if err := resp.Decode(&body); err != nil {
		return "", fmt.Errorf("decode csrf response: %w", err)
	}
	return body.CSRFToken, nil
}

func (g *Gateway) cookieToken() string {
	if g.client.Jar == nil {
		return ""
	}
	for _, c := range g.client.Jar.Cookies(g.base) {
		if c.Name == CSRFCookie && c.Value != "" {
			return c.Value
		}
	}
	return ""
}
