// Package main is the entry point for the caseflow server.
// It wires stores, engines, and the HTTP transport together.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/legalpro/caseflow/internal/activity"
	"github.com/legalpro/caseflow/internal/assignment"
	"github.com/legalpro/caseflow/internal/cases"
	"github.com/legalpro/caseflow/internal/casestore"
	"github.com/legalpro/caseflow/internal/config"
	"github.com/legalpro/caseflow/internal/notify"
	"github.com/legalpro/caseflow/internal/observability"
	"github.com/legalpro/caseflow/internal/stats"
	"github.com/legalpro/caseflow/internal/transport"
	"github.com/legalpro/caseflow/internal/workflow"
	"github.com/legalpro/caseflow/model"
)

// Build-time variables set via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.commit=abc1234"
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Step 1: Parse CLI flags.
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	// Step 2: Load configuration.
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return 1
	}

	// Step 3: Initialize telemetry (logger, tracer, metrics).
	observability.Version = version
	observability.Commit = commit

	logger, err := observability.NewLogger(cfg.Observability)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		return 1
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	tracingShutdown, err := observability.InitTracing(ctx, cfg.Observability.Tracing, "caseflow", version)
	if err != nil {
		logger.Error("tracing initialization failed", zap.Error(err))
		return 1
	}

	metrics := observability.InitMetrics(prometheus.DefaultRegisterer)

	// Step 4: Initialize stores.
	st, storeCloser, err := buildStores(ctx, cfg.Store, logger)
	if err != nil {
		logger.Error("store initialization failed", zap.Error(err))
		return 1
	}

	// Step 5: Initialize the notification dispatcher.
	dispatcher, queueHealth, dispatcherCloser, err := buildDispatcher(ctx, cfg.Notify, logger)
	if err != nil {
		logger.Error("dispatcher initialization failed", zap.Error(err))
		return 1
	}
	dispatcher = &meteredDispatcher{next: dispatcher, metrics: metrics}

	// Step 6: Build services.
	activities := activity.NewLog(st.activities, st.cases, logger, cfg.Environment)

	wfEngine := workflow.NewEngine(st.cases, activities, dispatcher, logger)
	wfEngine.RegisterHook(func(_ context.Context, change model.StatusChange) {
		metrics.RecordStatusChange(change.PreviousStatus, change.NewStatus)
	})
	wfEngine.RegisterHook(statusFollowUps(dispatcher, logger))

	asEngine := assignment.NewEngine(
		st.cases, st.directory, activities, logger,
		cfg.Workflow.MaxActiveCases, cfg.Workflow.DefaultMaxWorkload,
	)
	caseService := cases.NewService(st.cases, activities, logger)
	statsProvider := stats.NewProvider(st.cases, st.directory)

	// Step 7: Build HTTP router.
	jwks := transport.NewJWKSClient(cfg.Identity.JWKSURL, cfg.Identity.JWKSCacheTTL)

	readinessChecks := observability.ReadinessChecks{
		CaseStore:     st.caseHealth,
		ActivityStore: st.activityHealth,
		NotifyQueue:   queueHealth,
	}

	var metricsHandler http.Handler
	if cfg.Observability.Metrics.Enabled {
		metricsHandler = observability.Handler()
	}

	router := transport.NewRouter(transport.Dependencies{
		Config:         cfg,
		Authenticate:   transport.JWTAuthenticator(cfg.Identity, jwks),
		Cases:          caseService,
		Workflow:       wfEngine,
		Assignment:     asEngine,
		Activities:     activities,
		Stats:          statsProvider,
		HealthHandler:  observability.HandleHealth(),
		ReadyHandler:   observability.HandleReady(readinessChecks),
		MetricsHandler: metricsHandler,
		Instrument:     metrics.MetricsMiddleware,
	})

	handler := observability.TracingMiddleware(router)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Step 8: Start background tasks.
	bgCtx, bgCancel := context.WithCancel(ctx)
	defer bgCancel()

	go runRetentionSweeper(bgCtx, activities, cfg.Retention, metrics, logger)

	// Step 9: Start HTTP server.
	logger.Info("server started",
		zap.Int("port", cfg.Server.Port),
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("store_driver", cfg.Store.Driver),
		zap.String("notify_driver", cfg.Notify.Driver),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
		logger.Info("shutdown initiated")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
		return 1
	}

	// Graceful shutdown sequence.
	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout == 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	// Stop accepting new connections and drain in-flight requests.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// Stop background tasks, then release stores and the queue.
	bgCancel()

	if storeCloser != nil {
		storeCloser()
	}
	if dispatcherCloser != nil {
		dispatcherCloser()
	}

	// Flush telemetry.
	if err := tracingShutdown(shutdownCtx); err != nil {
		logger.Error("tracing shutdown error", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return 0
}

// stores bundles the persistence interfaces with their readiness
// checkers. The health fields are nil for memory stores.
type stores struct {
	cases          casestore.CaseStore
	directory      casestore.AdvocateDirectory
	activities     activity.Store
	caseHealth     observability.HealthChecker
	activityHealth observability.HealthChecker
}

// buildStores creates the case and activity stores based on config.
func buildStores(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (*stores, func(), error) {
	switch cfg.Driver {
	case "memory":
		logger.Info("using in-memory stores")
		ms := casestore.NewMemoryStore()
		return &stores{cases: ms, directory: ms, activities: activity.NewMemoryStore()}, nil, nil
	case "postgres", "":
		dsn := os.Getenv(cfg.DSNEnv)
		if dsn == "" {
			if cfg.DSNEnv != "" {
				return nil, nil, fmt.Errorf("store: %s environment variable not set", cfg.DSNEnv)
			}
			logger.Warn("store DSN not configured, using in-memory stores")
			ms := casestore.NewMemoryStore()
			return &stores{cases: ms, directory: ms, activities: activity.NewMemoryStore()}, nil, nil
		}

		poolCfg, err := pgxpool.ParseConfig(dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("store: parse DSN: %w", err)
		}
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
		poolCfg.MinConns = int32(cfg.MaxIdleConns)
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime

		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("store: connect: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("store: ping: %w", err)
		}

		cs := casestore.NewPgStore(pool)
		as := activity.NewPgStore(pool)
		return &stores{
			cases:          cs,
			directory:      cs,
			activities:     as,
			caseHealth:     cs,
			activityHealth: as,
		}, pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store driver: %q", cfg.Driver)
	}
}

// buildDispatcher creates the notification dispatcher based on config.
// The returned HealthChecker is nil for the log driver.
func buildDispatcher(ctx context.Context, cfg config.NotifyConfig, logger *zap.Logger) (notify.Dispatcher, observability.HealthChecker, func(), error) {
	switch cfg.Driver {
	case "log", "":
		logger.Info("using log-only notification dispatcher")
		return notify.NewLogDispatcher(logger), nil, nil, nil
	case "redis":
		addr := os.Getenv(cfg.AddrEnv)
		if addr == "" {
			return nil, nil, nil, fmt.Errorf("notify: %s environment variable not set", cfg.AddrEnv)
		}

		client := redis.NewClient(&redis.Options{Addr: addr, DB: cfg.DB})
		qd := notify.NewQueueDispatcher(client, cfg.Queue)
		if err := qd.Ping(ctx); err != nil {
			client.Close()
			return nil, nil, nil, fmt.Errorf("notify: ping: %w", err)
		}
		return qd, qd, func() { client.Close() }, nil
	default:
		return nil, nil, nil, fmt.Errorf("unsupported notify driver: %q", cfg.Driver)
	}
}

// meteredDispatcher counts queued and failed notifications.
type meteredDispatcher struct {
	next    notify.Dispatcher
	metrics *observability.Metrics
}

func (d *meteredDispatcher) Dispatch(ctx context.Context, msg notify.Message) error {
	if err := d.next.Dispatch(ctx, msg); err != nil {
		d.metrics.RecordNotificationFailed()
		return err
	}
	d.metrics.RecordNotificationQueued()
	return nil
}

// statusFollowUps returns a hook that queues downstream work after a
// status change lands: a closure report when a case closes, a migration
// marker when it is archived, and a review reminder when it goes on
// hold. All of it is best-effort.
func statusFollowUps(dispatcher notify.Dispatcher, logger *zap.Logger) workflow.Hook {
	return func(ctx context.Context, change model.StatusChange) {
		var msg notify.Message
		switch change.NewStatus {
		case model.StatusClosed:
			msg = notify.Message{
				Subject: "Closure report requested",
				Body:    fmt.Sprintf("Case %s closed with outcome %q.", change.Case.CaseNumber, change.Case.Outcome),
				Data:    map[string]any{"task": "closure_report", "outcome": change.Case.Outcome},
			}
		case model.StatusArchived:
			msg = notify.Message{
				Subject: "Archive migration marker",
				Body:    fmt.Sprintf("Case %s is ready for archival migration.", change.Case.CaseNumber),
				Data:    map[string]any{"task": "archive_migration"},
			}
		case model.StatusOnHold:
			msg = notify.Message{
				Subject: "Hold review reminder",
				Body:    fmt.Sprintf("Case %s was placed on hold; schedule a review.", change.Case.CaseNumber),
				Data:    map[string]any{"task": "hold_review"},
			}
		default:
			return
		}

		msg.ID = uuid.NewString()
		msg.CaseID = change.Case.ID
		msg.QueuedAt = time.Now().UTC()
		if change.Case.PrimaryAdvocate != "" {
			msg.Recipients = []notify.Recipient{{UserID: change.Case.PrimaryAdvocate, Role: model.RoleAdvocate}}
		}

		if err := dispatcher.Dispatch(ctx, msg); err != nil {
			logger.Warn("status follow-up dispatch failed",
				zap.String("case_id", change.Case.ID),
				zap.String("status", change.NewStatus),
				zap.Error(err),
			)
		}
	}
}

// runRetentionSweeper periodically hides activity entries older than the
// retention window.
func runRetentionSweeper(ctx context.Context, activities *activity.Log, cfg config.RetentionConfig, metrics *observability.Metrics, logger *zap.Logger) {
	interval := cfg.SweepInterval
	if interval == 0 {
		interval = 24 * time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hidden, err := activities.CleanupOld(ctx, cfg.DaysToKeep)
			if err != nil {
				logger.Error("retention sweep failed", zap.Error(err))
				continue
			}
			metrics.RecordRetentionSweep(hidden)
			if hidden > 0 {
				logger.Info("retention sweep hid old activities", zap.Int("hidden", hidden))
			}
		}
	}
}
