package control

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/jupiterclapton/cenackle/client/internal/core/domain"
	"github.com/jupiterclapton/cenackle/client/internal/core/ports"
	"github.com/jupiterclapton/cenackle/client/internal/core/services"
)

// FeedSource est la vue Feed telle que la voit la surface de contrôle.
type FeedSource interface {
	ports.FeedLoader
	Snapshot() services.FeedSnapshot
}

// Server est la surface de contrôle locale du mode watch : focus, état, métriques.
type Server struct {
	monitor  ports.SessionMonitor
	feed     FeedSource
	registry *prometheus.Registry
	origins  []string
}

func NewServer(monitor ports.SessionMonitor, feed FeedSource, registry *prometheus.Registry, origins []string) *Server {
	return &Server{monitor: monitor, feed: feed, registry: registry, origins: origins}
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/session", s.getSession).Methods(http.MethodGet)
	r.HandleFunc("/focus", s.postFocus).Methods(http.MethodPost)
	r.HandleFunc("/feed", s.getFeed).Methods(http.MethodGet)
	r.HandleFunc("/feed/refresh", s.postRefresh).Methods(http.MethodPost)
	return r
}

// Handler : CORS pour un tableau de bord local, puis OTEL à la racine.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.Router()

	c := cors.New(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "baggage", "traceparent"},
		AllowCredentials: false,
	})
	h = c.Handler(h)

	return otelhttp.NewHandler(h, "control", otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
		return fmt.Sprintf("HTTP %s %s", r.Method, r.URL.Path)
	}))
}

// Serve bloque jusqu'à l'annulation de ctx puis arrête proprement le serveur.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 3 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("📡 Control surface listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// --- HANDLERS ---

type sessionResponse struct {
	State string       `json:"state"`
	User  *domain.User `json:"user"`
}

type feedResponse struct {
	Posts   []domain.Post `json:"posts"`
	Loading bool          `json:"loading"`
	Error   string        `json:"error,omitempty"`
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionResponse{
		State: s.monitor.State().String(),
		User:  s.monitor.User(),
	})
}

func (s *Server) postFocus(w http.ResponseWriter, r *http.Request) {
	s.monitor.Focus()
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) getFeed(w http.ResponseWriter, r *http.Request) {
	snap := s.feed.Snapshot()
	posts := snap.Posts
	if posts == nil {
		posts = []domain.Post{}
	}
	writeJSON(w, http.StatusOK, feedResponse{Posts: posts, Loading: snap.Loading, Error: snap.Err})
}

func (s *Server) postRefresh(w http.ResponseWriter, r *http.Request) {
	if s.monitor.State() != domain.Authenticated {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": domain.ErrNotAuthenticated.Error()})
		return
	}
	if err := s.feed.Load(r.Context()); err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	s.getFeed(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("❌ Failed to encode response", "error", err)
	}
}
