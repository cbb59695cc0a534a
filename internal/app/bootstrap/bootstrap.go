package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	decisionengine "quorum/contexts/decision-governance/decision-engine"
	"quorum/contexts/decision-governance/decision-engine/adapters/anchorhttp"
	postgresadapter "quorum/contexts/decision-governance/decision-engine/adapters/postgres"
	"quorum/contexts/decision-governance/decision-engine/adapters/rediscache"
	workerapp "quorum/contexts/decision-governance/decision-engine/application/workers"
	"quorum/contexts/decision-governance/decision-engine/ports"
	"quorum/internal/platform/config"
	"quorum/internal/platform/db"
	"quorum/internal/platform/httpserver"
	"quorum/internal/platform/messaging"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	cache    *rediscache.TallyCache
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres         *db.Postgres
	auditRelay       workerapp.AuditRelay
	anchorReconciler workerapp.AnchorReconciler
	runRelay         bool
	runReconciler    bool
	pollInterval     time.Duration
	logger           *slog.Logger
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	var cache *rediscache.TallyCache
	var tallyCache ports.TallyCache
	if strings.TrimSpace(cfg.RedisURL) != "" {
		cache, err = rediscache.NewTallyCache(cfg.RedisURL)
		if err != nil {
			_ = pg.Close()
			return nil, err
		}
		tallyCache = cache
	}

	repo := postgresadapter.NewRepository(pg.DB, logger)
	anchor := buildAnchorClient(cfg)
	module := decisionengine.NewModule(decisionengine.Dependencies{
		Ledger:        repo,
		Directory:     repo,
		Anchor:        anchor,
		Outbox:        repo,
		TallyCache:    tallyCache,
		Clock:         postgresadapter.SystemClock{},
		IDGen:         postgresadapter.UUIDGenerator{},
		AnchorTimeout: cfg.AnchorTimeout,
		TallyCacheTTL: cfg.TallyCacheTTL,
		Logger:        logger,
	})

	server := httpserver.New(module, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:   server,
		postgres: pg,
		cache:    cache,
		logger:   logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	kafka, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
	if err != nil {
		return nil, err
	}

	repo := postgresadapter.NewRepository(pg.DB, logger)
	return &WorkerApp{
		postgres: pg,
		auditRelay: workerapp.AuditRelay{
			Outbox:    repo,
			Publisher: kafka,
			Clock:     postgresadapter.SystemClock{},
			BatchSize: 100,
			Logger:    logger,
		},
		anchorReconciler: workerapp.AnchorReconciler{
			Ledger:    repo,
			Anchor:    buildAnchorClient(cfg),
			Clock:     postgresadapter.SystemClock{},
			BatchSize: 50,
			Logger:    logger,
		},
		runRelay:      cfg.EnableAuditRelay,
		runReconciler: cfg.EnableAnchorReconciler && strings.TrimSpace(cfg.AnchorEndpoint) != "",
		pollInterval:  2 * time.Second,
		logger:        logger,
	}, nil
}

func (a *APIApp) Run(_ context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}
	return a.server.Start()
}

func (a *APIApp) Close() error {
	var closeErr error
	if a.cache != nil {
		closeErr = a.cache.Close()
	}
	if a.postgres != nil {
		if err := a.postgres.Close(); err != nil {
			closeErr = err
		}
	}
	return closeErr
}

func (w *WorkerApp) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
		"audit_relay", w.runRelay,
		"anchor_reconciler", w.runReconciler,
	)

	for {
		if w.runRelay {
			if err := w.auditRelay.RunOnce(ctx); err != nil {
				return err
			}
		}
		if w.runReconciler {
			if err := w.anchorReconciler.RunOnce(ctx); err != nil {
				return err
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
}

// buildAnchorClient returns nil when no anchor endpoint is configured, which
// the engine treats as anchoring disabled.
func buildAnchorClient(cfg config.Config) ports.AnchorClient {
	if strings.TrimSpace(cfg.AnchorEndpoint) == "" {
		return nil
	}
	return anchorhttp.NewClient(cfg.AnchorEndpoint, cfg.AnchorExplorer)
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
