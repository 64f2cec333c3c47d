package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/planly/planly/internal/adapters/events"
	"github.com/planly/planly/internal/adapters/http/api"
	"github.com/planly/planly/internal/adapters/http/auth"
	"github.com/planly/planly/internal/adapters/repository"
	app "github.com/planly/planly/internal/app"
	"github.com/planly/planly/internal/config"
	"github.com/planly/planly/internal/domain/scoring"
	"github.com/planly/planly/internal/domain/week"
	"github.com/planly/planly/internal/roster"
	"github.com/planly/planly/pkg/logger"
	"github.com/planly/planly/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout           = 10 * time.Second
	writeTimeout          = 10 * time.Second
	idleTimeout           = 60 * time.Second
	readHeaderTimeout     = 5 * time.Second
	shutdownTimeout       = 30 * time.Second
	systemMetricsInterval = 10 * time.Second
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	loc := time.Local
	if cfg.Timezone != "" {
		loc, err = time.LoadLocation(cfg.Timezone)
		if err != nil {
			os.Stderr.WriteString("invalid timezone: " + err.Error() + "\n")
			return
		}
	}

	store, err := repository.NewStore(ctx, cfg.StoreBackend, cfg.SQLitePath, cfg.PostgresDSN)
	if err != nil {
		os.Stderr.WriteString("failed to open store: " + err.Error() + "\n")
		return
	}

	var policy app.Policy = roster.Permissive{}
	if cfg.RosterPath != "" {
		r, err := roster.Load(cfg.RosterPath)
		if err != nil {
			os.Stderr.WriteString("failed to load roster: " + err.Error() + "\n")
			return
		}
		policy = r
		log.Info(ctx, "roster loaded", logger.String("path", cfg.RosterPath), logger.Int("users", len(r.Users)))
	}

	var publisher events.Publisher = events.NoopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		log.Info(ctx, "kafka publisher enabled", logger.String("topic", cfg.KafkaTopic))
	}

	engine := scoring.New(scoring.WithParams(scoring.Params{
		Alpha:             cfg.Alpha,
		Beta:              cfg.Beta,
		BonusMax:          cfg.BonusMax,
		Kappa:             cfg.Kappa,
		Lambda:            cfg.Lambda,
		Mu:                cfg.Mu,
		ScoreCap:          cfg.ScoreCap,
		IncompletePenalty: cfg.IncompletePenalty,
	}))

	svc := app.New(
		app.WithLogger(log),
		app.WithStore(store),
		app.WithResolver(week.New(week.WithLocation(loc))),
		app.WithEngine(engine),
		app.WithPolicy(policy),
		app.WithPublisher(publisher),
		app.WithBaseMinutes(cfg.BaseMinutes),
		app.WithPublishQueueSize(cfg.PublishQueueSize),
		app.WithPublishWorkers(cfg.PublishWorkers),
		app.WithMaxLeaderboardUsers(cfg.MaxLeaderboardUsers),
	)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)

	mux := http.NewServeMux()
	apiServer := api.NewServer(svc, svc)
	apiServer.Register(ctx, mux)

	var handler http.Handler = mux
	if cfg.AuthSecret != "" {
		handler = auth.Middleware(auth.Config{Secret: cfg.AuthSecret, Issuer: cfg.AuthIssuer}, auth.DefaultSkipper, mux)
		log.Info(ctx, "bearer token auth enabled")
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}

// startSystemMetricsUpdater periodically samples runtime memory and
// goroutine gauges.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			metrics.UpdateSystemMemoryUsage(m.Alloc)
			metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
		}
	}
}
