package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	// Infrastructure
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"

	// Instrumentation
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"

	// Interne
	"github.com/jupiterclapton/cenackle/client/config"
	"github.com/jupiterclapton/cenackle/client/internal/adapters/primary/cli"
	"github.com/jupiterclapton/cenackle/client/internal/adapters/primary/control"
	"github.com/jupiterclapton/cenackle/client/internal/adapters/primary/events"
	"github.com/jupiterclapton/cenackle/client/internal/adapters/primary/scheduler"
	"github.com/jupiterclapton/cenackle/client/internal/adapters/secondary/eventbroker"
	"github.com/jupiterclapton/cenackle/client/internal/adapters/secondary/httpapi"
	"github.com/jupiterclapton/cenackle/client/internal/adapters/secondary/sessionstore"
	"github.com/jupiterclapton/cenackle/client/internal/core/domain"
	"github.com/jupiterclapton/cenackle/client/internal/core/ports"
	"github.com/jupiterclapton/cenackle/client/internal/core/services"
	"github.com/jupiterclapton/cenackle/client/internal/telemetry"
)

func main() {
	os.Exit(run())
}

// run retourne le code de sortie ; les defers s'exécutent avant os.Exit.
func run() int {
	// 1. Config & Logger
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		return 2
	}
	initLogger(cfg)
	slog.Debug("🚀 Starting cenackle client", "api", cfg.APIBaseURL, "store", cfg.SessionStore)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Télémétrie (Tracing), seulement si un collecteur est configuré
	if cfg.OtelEndpoint != "" {
		tp, err := initTracer(ctx, cfg)
		if err != nil {
			slog.Error("Failed to init tracer", "error", err)
		} else {
			defer func() { _ = tp.Shutdown(context.Background()) }()
		}
	}
	metrics := telemetry.NewMetrics()

	// 3. Passerelle HTTP vers le backend (Driven Adapter)
	gw, err := httpapi.NewGateway(cfg.APIBaseURL, nil, httpapi.WithMetrics(metrics))
	if err != nil {
		slog.Error("Invalid API base URL", "error", err)
		return 1
	}
	auth := httpapi.NewAuthClient(gw)
	posts := httpapi.NewPostsClient(gw)

	// 4. Persistance de la session (Driven Adapter)
	backend, closeStore, err := openSessionStore(ctx, cfg)
	if err != nil {
		slog.Error("Unable to open session store", "store", cfg.SessionStore, "error", err)
		return 1
	}
	defer closeStore()
	persister := sessionstore.NewPersister(gw.Jar(), gw.BaseURL(), backend)
	if err := persister.Restore(ctx); err != nil {
		slog.Warn("Stored session ignored", "error", err)
	}

	// 5. Event Broker NATS (optionnel)
	origin := uuid.NewString()
	var publisher ports.SessionEventPublisher = eventbroker.NoopPublisher{}
	var nc *nats.Conn
	if cfg.NatsUrl != "" {
		nc, err = nats.Connect(cfg.NatsUrl, nats.Name(cfg.ServiceName))
		if err != nil {
			slog.Warn("NATS unavailable, session events stay local", "error", err)
		} else {
			defer nc.Close()
			publisher = eventbroker.NewNatsPublisher(nc, origin)
			slog.Debug("✅ Connected to NATS", "origin", origin)
		}
	}

	// 6. Initialisation du Core
	nav := cli.NewTerminalNavigator(os.Stderr)
	monitor := services.NewSessionMonitor(auth, publisher, nav, metrics, cfg.LoginURL, cfg.CheckInterval)
	session := services.NewSessionService(auth, monitor, gw, persister, publisher)

	app := &cli.App{
		Session:  session,
		Profile:  services.NewProfileView(auth, session),
		Login:    services.NewLoginView(auth, session),
		Register: services.NewRegisterView(auth, session),
		Users:    services.NewUserPublicView(auth),
		Auth:     auth,
		Posts:    posts,
		MediaURL: gw.MediaURL,
		Out:      os.Stdout,
		In:       os.Stdin,
	}
	app.Feed = services.NewFeedView(posts, auth, session, app.Confirm)
	app.Watch = func(ctx context.Context) error {
		return watch(ctx, cfg, watchDeps{
			monitor: monitor,
			feed:    app.Feed,
			nav:     nav,
			metrics: metrics,
			nc:      nc,
			origin:  origin,
		})
	}

	// 7. Bootstrap : qui suis-je d'après les cookies restaurés ?
	if _, err := session.Bootstrap(ctx); err != nil {
		slog.Warn("Backend unreachable, continuing anonymously", "error", err)
	}

	// 8. Commande
	err = app.Run(ctx, os.Args[1:])

	// Le backend a pu faire tourner les cookies (csrf, session)
	if session.CurrentUser() != nil {
		if perr := persister.Persist(context.Background()); perr != nil {
			slog.Warn("Failed to persist session", "error", perr)
		}
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, cli.ErrUsage):
		return 2
	case errors.Is(err, context.Canceled):
		return 130
	default:
		slog.Error("❌ Command failed", "error", err)
		return 1
	}
}

type watchDeps struct {
	monitor *services.Monitor
	feed    *services.FeedView
	nav     *cli.TerminalNavigator
	metrics *telemetry.Metrics
	nc      *nats.Conn
	origin  string
}

// watch garde la session vivante : moniteur, poller du fil, écoute NATS et surface de contrôle.
// Il s'arrête sur SIGINT/SIGTERM ou à l'expiration de la session.
func watch(ctx context.Context, cfg *config.Config, d watchDeps) error {
	if d.monitor.State() != domain.Authenticated {
		return fmt.Errorf("watch: %w", domain.ErrNotAuthenticated)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	d.nav.OnNavigate(func(string) { cancel() })

	// A. Moniteur de session (ticker + focus)
	d.monitor.Start(ctx)
	notifyFocus(ctx, d.monitor)

	// B. Expirations annoncées par les autres processus
	if d.nc != nil {
		sub, err := events.NewSessionListener(d.monitor, d.origin).Subscribe(d.nc)
		if err != nil {
			return fmt.Errorf("subscribe to %s: %w", domain.SubjectSessionExpired, err)
		}
		defer func() { _ = sub.Unsubscribe() }()
		slog.Info("👂 Listening for session events (NATS)")
	}

	// C. Rafraîchissement périodique du fil
	poller, err := scheduler.NewFeedPoller(cfg.FeedPollSpec, d.feed, d.monitor, d.metrics)
	if err != nil {
		return err
	}
	poller.RunOnce(ctx)
	poller.Start(ctx)

	// D. Surface de contrôle locale (bloquant)
	srv := control.NewServer(d.monitor, d.feed, d.metrics.Registry(), cfg.ControlOrigins)
	if u := d.monitor.User(); u != nil {
		slog.Info("👀 Watching session", "user", u.Username, "every", cfg.CheckInterval)
	}
	if err := srv.Serve(ctx, cfg.ControlAddr); err != nil {
		return err
	}

	if d.monitor.State() != domain.Authenticated {
		slog.Info("🛑 Session expired, watch stopped")
		return domain.ErrNotAuthenticated
	}
	slog.Info("👋 Watch exited")
	return nil
}

// --- Helpers ---

func openSessionStore(ctx context.Context, cfg *config.Config) (sessionstore.Backend, func(), error) {
	switch cfg.SessionStore {
	case config.StoreRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
		})
		// Instrumentation Redis
		if err := redisotel.InstrumentTracing(rdb); err != nil {
			_ = rdb.Close()
			return nil, nil, err
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, err
		}
		slog.Debug("✅ Connected to Redis", "key", cfg.SessionKey)
		return sessionstore.NewRedisStore(rdb, cfg.SessionKey), func() { _ = rdb.Close() }, nil
	case config.StoreMemory:
		return sessionstore.NewMemoryStore(), func() {}, nil
	default:
		return sessionstore.NewFileStore(cfg.SessionFile), func() {}, nil
	}
}

// Les logs vont sur stderr : stdout est réservé à la sortie des commandes.
func initLogger(cfg *config.Config) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if cfg.Env == "local" {
		opts.Level = slog.LevelDebug
	}
	var handler slog.Handler
	if cfg.Env == "local" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func initTracer(ctx context.Context, cfg *config.Config) (*sdktrace.TracerProvider, error) {
	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OtelEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	res, _ := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.DeploymentEnvironmentKey.String(cfg.Env),
		),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return tp, nil
}
