package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jupiterclapton/cenackle/client/internal/core/domain"
	"github.com/jupiterclapton/cenackle/client/internal/core/ports"
)

// RefreshRecorder est implémenté par telemetry.Metrics.
type RefreshRecorder interface {
	ObserveFeedRefresh(ok bool)
}

// FeedPoller recharge le fil à intervalle régulier (pas de push temps réel côté backend).
type FeedPoller struct {
	cron    *cron.Cron
	loader  ports.FeedLoader
	monitor ports.SessionMonitor
	metrics RefreshRecorder
	timeout time.Duration

	mu  sync.Mutex
	ctx context.Context
}

// NewFeedPoller valide le spec cron ("@every 30s", "*/1 * * * *", ...).
func NewFeedPoller(spec string, loader ports.FeedLoader, monitor ports.SessionMonitor, metrics RefreshRecorder) (*FeedPoller, error) {
	p := &FeedPoller{
		// Un poll lent ne doit pas s'empiler avec le suivant
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		loader:  loader,
		monitor: monitor,
		metrics: metrics,
		timeout: 15 * time.Second,
		ctx:     context.Background(),
	}
	if _, err := p.cron.AddFunc(spec, func() { p.RunOnce(p.context()) }); err != nil {
		return nil, fmt.Errorf("invalid feed poll spec %q: %w", spec, err)
	}
	return p, nil
}

// Start démarre le planificateur ; il s'arrête quand ctx est annulé.
func (p *FeedPoller) Start(ctx context.Context) {
	p.mu.Lock()
	p.ctx = ctx
	p.mu.Unlock()

	p.cron.Start()
	slog.Info("⏱️ Feed poller started", "entries", len(p.cron.Entries()))

	go func() {
		<-ctx.Done()
		<-p.cron.Stop().Done()
		slog.Info("Feed poller stopped")
	}()
}

// RunOnce recharge le fil si la session est ouverte. Retourne true si un chargement a eu lieu.
func (p *FeedPoller) RunOnce(ctx context.Context) bool {
	if p.monitor.State() != domain.Authenticated {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.loader.Load(ctx)
	if p.metrics != nil {
		p.metrics.ObserveFeedRefresh(err == nil)
	}
	if err != nil {
		slog.Warn("Feed refresh failed", "error", err)
		return true
	}
	slog.Debug("Feed refreshed")
	return true
}

func (p *FeedPoller) context() context.Context {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ctx
}
