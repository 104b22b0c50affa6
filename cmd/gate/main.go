package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"contentgate/internal/config"
	hhttp "contentgate/internal/handler/http"
	"contentgate/internal/handler/http/csrfhandler"
	"contentgate/internal/handler/http/middleware"
	"contentgate/internal/handler/http/requestid"
	"contentgate/internal/observability/logging"
	"contentgate/internal/observability/tracing"
	"contentgate/internal/proxy"
	"contentgate/internal/session"
	"contentgate/pkg/csrf"
	"contentgate/pkg/ratelimit"
)

func main() {
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	cfg, err := config.Load("")
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	limiter := setupLimiter(cfg, logger, registry)
	csrfManager := csrf.NewManager(csrf.Config{
		TokenTTL:      cfg.CSRF.TokenTTL.Std(),
		SweepInterval: cfg.CSRF.SweepInterval.Std(),
	}, nil, csrf.NewPrometheusMetrics(registry))

	provider := setupSessionProvider(cfg, logger, registry)

	handler, err := setupHandler(cfg, logger, registry, limiter, csrfManager, provider)
	if err != nil {
		logger.Error("failed to build handler", slog.Any("error", err))
		os.Exit(1)
	}

	if err := runServer(cfg, logger, handler, limiter, csrfManager); err != nil {
		logger.Error("server exited with error", slog.Any("error", err))
		os.Exit(1)
	}
}

// setupLimiter builds the per-client rate limiter from configuration.
func setupLimiter(cfg *config.GateConfig, logger *slog.Logger, registry *prometheus.Registry) *ratelimit.Limiter {
	rlCfg := ratelimit.Config{
		Window:             cfg.RateLimit.Window.Std(),
		MaxChecks:          cfg.RateLimit.MaxChecks,
		BlockDuration:      cfg.RateLimit.BlockDuration.Std(),
		MaxKeys:            cfg.RateLimit.MaxKeys,
		CompactionInterval: cfg.RateLimit.Compaction.Std(),
		Enabled:            cfg.RateLimit.Enabled == nil || *cfg.RateLimit.Enabled,
	}
	rlCfg.ApplyDefaults()
	if err := rlCfg.Validate(); err != nil {
		logger.Error("invalid rate limit configuration", slog.Any("error", err))
		os.Exit(1)
	}
	if !rlCfg.Enabled {
		logger.Warn("rate limiting is DISABLED - not recommended for production")
	}

	store := ratelimit.NewInMemoryStore(ratelimit.InMemoryStoreConfig{MaxKeys: rlCfg.MaxKeys})
	metrics := ratelimit.NewPrometheusMetrics(registry)
	limiter := ratelimit.NewLimiter(rlCfg, store, &ratelimit.SystemClock{}, metrics)

	logger.Info("rate limiting initialized",
		slog.Bool("enabled", rlCfg.Enabled),
		slog.Duration("window", rlCfg.Window),
		slog.Int("max_checks", rlCfg.MaxChecks),
		slog.Duration("block_duration", rlCfg.BlockDuration),
		slog.Int("max_keys", rlCfg.MaxKeys),
	)
	return limiter
}

// setupSessionProvider selects the session provider from configuration.
func setupSessionProvider(cfg *config.GateConfig, logger *slog.Logger, registry *prometheus.Registry) session.Provider {
	switch cfg.Sessions.Mode {
	case "static":
		key := os.Getenv("GATE_SESSION_SIGNING_KEY")
		if len(key) < 32 {
			logger.Error("GATE_SESSION_SIGNING_KEY must be set and at least 32 characters in static mode")
			os.Exit(1)
		}
		provider, err := session.NewStaticProvider(session.StaticProviderConfig{
			CookieName: cfg.Sessions.CookieName,
			SigningKey: []byte(key),
		})
		if err != nil {
			logger.Error("failed to build static session provider", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Warn("using static session provider - development only")
		return provider

	default:
		providerCfg := session.HTTPProviderConfig{
			BaseURL:           cfg.Sessions.BaseURL,
			SessionPath:       cfg.Sessions.SessionPath,
			Timeout:           cfg.Sessions.Timeout.Std(),
			RequestsPerSecond: cfg.Sessions.RequestsPerSecond,
			Burst:             cfg.Sessions.Burst,
		}
		if err := providerCfg.Validate(); err != nil {
			logger.Error("invalid session provider configuration", slog.Any("error", err))
			os.Exit(1)
		}
		metrics := session.NewPrometheusMetrics(registry)
		logger.Info("session provider initialized",
			slog.String("base_url", providerCfg.BaseURL),
			slog.Duration("timeout", cfg.Sessions.Timeout.Std()),
		)
		return session.NewHTTPProvider(providerCfg, logger, metrics)
	}
}

// setupHandler assembles the routing tree and middleware chain.
//
// Middleware order (outermost first): request ID, tracing, logging,
// recovery. The guard and the CSRF requirement apply only to gated
// traffic; /healthz and /metrics bypass them.
func setupHandler(
	cfg *config.GateConfig,
	logger *slog.Logger,
	registry *prometheus.Registry,
	limiter *ratelimit.Limiter,
	csrfManager *csrf.Manager,
	provider session.Provider,
) (http.Handler, error) {
	downstream, err := proxy.New(cfg.DownstreamURL, logger)
	if err != nil {
		return nil, err
	}

	guard, err := middleware.NewGuard(middleware.GuardConfig{
		Limiter:           limiter,
		Sessions:          provider,
		Routes:            middleware.NewRouteClassifier(cfg.ProtectedPrefixes, cfg.AuthOnlyPrefixes),
		Headers:           middleware.DefaultSecurityHeadersConfig(),
		AuthEntryPath:     cfg.AuthEntryPath,
		AppHomePath:       cfg.AppHomePath,
		FailOpenOnTimeout: cfg.FailOpenOnTimeout,
		Logger:            logger,
		Metrics:           middleware.NewPrometheusGuardMetrics(registry),
	})
	if err != nil {
		return nil, err
	}

	// Everything the guard admits flows through here. Mutations must
	// carry a valid CSRF token before they reach the downstream app.
	appMux := http.NewServeMux()
	appMux.Handle("/api/v1/csrf-token", csrfhandler.Issue(csrfManager))
	appMux.Handle("/", csrfhandler.RequireCSRF(csrfManager, logger)(downstream))

	gated := guard.Middleware()(appMux)
	gated = hhttp.LimitRequestBody(10 << 20)(gated)

	rootMux := http.NewServeMux()
	rootMux.Handle("/healthz", hhttp.Health())
	rootMux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	rootMux.Handle("/", gated)

	chain := http.Handler(rootMux)
	chain = hhttp.Recover(logger)(chain)
	chain = hhttp.Logging(logger)(chain)
	chain = tracing.Middleware(chain)
	chain = requestid.Middleware(chain)
	return chain, nil
}

// runServer starts the HTTP server together with the background
// maintenance tasks and handles graceful shutdown on SIGINT/SIGTERM.
func runServer(
	cfg *config.GateConfig,
	logger *slog.Logger,
	handler http.Handler,
	limiter *ratelimit.Limiter,
	csrfManager *csrf.Manager,
) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("gate starting",
			slog.String("addr", cfg.Listen),
			slog.String("downstream", cfg.DownstreamURL),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		limiter.StartCompaction(gctx)
		return nil
	})

	g.Go(func() error {
		return csrf.StartSweep(gctx, csrfManager)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down gate...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
