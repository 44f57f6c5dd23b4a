package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/jupiterclapton/cenackle/client/internal/core/domain"
	"github.com/jupiterclapton/cenackle/client/internal/telemetry"
)

const (
	HeaderCSRF      = "X-CSRFToken"
	HeaderRequestID = "X-Request-ID"
	CSRFCookie      = "csrftoken"
)

var ErrNotJSON = errors.New("response body is not JSON")

// Request décrit un appel vers le backend. Path est relatif à la base de l'API.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	JSON   any        // encodé en JSON si non nil
	Form   *Multipart // prioritaire sur JSON
	Header http.Header
}

// Response contient soit le JSON brut, soit le texte.
type Response struct {
	Status int
	Header http.Header
	JSON   json.RawMessage
	Text   string
}

func (r *Response) Decode(v any) error {
	if len(r.JSON) == 0 {
		return ErrNotJSON
	}
	return json.Unmarshal(r.JSON, v)
}

// Gateway enveloppe tous les appels sortants : cookies, CSRF, Content-Type, décodage.
type Gateway struct {
	base    *url.URL
	client  *http.Client
	metrics *telemetry.Metrics

	csrfMu    sync.Mutex
	csrfToken string
}

type Option func(*Gateway)

// WithHTTPClient remplace le client (tests). Le client doit avoir un Jar.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) { g.client = c }
}

func WithMetrics(m *telemetry.Metrics) Option {
	return func(g *Gateway) { g.metrics = m }
}

// NewGateway : jar nil = jar en mémoire.
func NewGateway(baseURL string, jar http.CookieJar, opts ...Option) (*Gateway, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url must be absolute: %q", baseURL)
	}

	if jar == nil {
		jar, err = cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("cookie jar: %w", err)
		}
	}

	g := &Gateway{
		base: base,
		client: &http.Client{
			Jar:       jar,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.client.Jar == nil {
		g.client.Jar = jar
	}
	return g, nil
}

// BaseURL est la base de l'API (utilisée aussi comme URL des cookies).
func (g *Gateway) BaseURL() *url.URL {
	u := *g.base
	return &u
}

// Jar expose le jar partagé pour la persistance de session.
func (g *Gateway) Jar() http.CookieJar {
	return g.client.Jar
}

func (g *Gateway) endpoint(path string, q url.Values) string {
	u := *g.base
	u.Path = strings.TrimRight(g.base.Path, "/") + "/" + strings.TrimLeft(path, "/")
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// Do exécute la requête. Tout statut hors 2xx devient *domain.APIError avec le corps brut.
func (g *Gateway) Do(ctx context.Context, req Request) (*Response, error) {
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}

	header := http.Header{}
	for k, v := range req.Header {
		header[k] = append([]string(nil), v...)
	}

	if method != http.MethodGet && header.Get(HeaderCSRF) == "" {
		token, err := g.CSRFToken(ctx)
		if err != nil {
			return nil, fmt.Errorf("csrf token: %w", err)
		}
		if token != "" {
			header.Set(HeaderCSRF, token)
		}
	}

	var body io.Reader
	switch {
	case req.Form != nil:
		buf, contentType, err := req.Form.encode()
		if err != nil {
			return nil, fmt.Errorf("encode multipart: %w", err)
		}
		body = buf
		// Le boundary vient de l'encodeur, jamais de application/json
		header.Set("Content-Type", contentType)
	case req.JSON != nil:
		data, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, fmt.Errorf("encode json: %w", err)
		}
		body = bytes.NewReader(data)
		if method != http.MethodGet && header.Get("Content-Type") == "" {
			header.Set("Content-Type", "application/json")
		}
	}

	if header.Get(HeaderRequestID) == "" {
		header.Set(HeaderRequestID, uuid.NewString())
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, g.endpoint(req.Path, req.Query), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header = header

	start := time.Now()
	resp, err := g.client.Do(httpReq)
	if err != nil {
		g.metrics.ObserveRequest(method, 0, time.Since(start))
		return nil, fmt.Errorf("%s %s: %w", method, req.Path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	g.metrics.ObserveRequest(method, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	slog.Debug("backend request",
		"method", method,
		"path", req.Path,
		"status", resp.StatusCode,
		"request_id", header.Get(HeaderRequestID),
	)

	out := &Response{Status: resp.StatusCode, Header: resp.Header}
	isJSON := strings.Contains(resp.Header.Get("Content-Type"), "application/json")
	if isJSON && len(bytes.TrimSpace(raw)) > 0 {
		var compact bytes.Buffer
		if err := json.Compact(&compact, raw); err != nil {
			return nil, fmt.Errorf("%s %s: invalid json body: %w", method, req.Path, err)
		}
		out.JSON = compact.Bytes()
	} else {
		out.Text = string(raw)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := out.Text
		if out.JSON != nil {
			msg = string(out.JSON)
		}
		return nil, &domain.APIError{Status: resp.StatusCode, Body: msg}
	}

	return out, nil
}

// MediaURL résout un chemin de média relatif contre l'origine de l'API.
func (g *Gateway) MediaURL(path string) string {
	if path == "" {
		return ""
	}
	lower := strings.ToLower(path)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return g.base.Scheme + "://" + g.base.Host + path
}
