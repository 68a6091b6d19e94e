package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/onnwee/telesis/internal/api"
	"github.com/onnwee/telesis/internal/config"
	"github.com/onnwee/telesis/internal/contrast"
	"github.com/onnwee/telesis/internal/health"
	"github.com/onnwee/telesis/internal/middleware"
	"github.com/onnwee/telesis/internal/pagescan"
)

// serviceName identifies the API in traces.
const serviceName = "telesis-api"

// app holds the wired HTTP handler and the resources it owns.
type app struct {
	handler  http.Handler
	registry *prometheus.Registry
	redis    *redis.Client
	memStore *middleware.InMemoryRateLimitStore
	window   time.Duration
}

// newApp wires configuration into handlers, middleware and stores.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{registry: prometheus.NewRegistry()}

	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	engineMetrics := contrast.NewMetrics()
	if err := engineMetrics.Register(a.registry); err != nil {
		return nil, fmt.Errorf("register contrast metrics: %w", err)
	}
	httpMetrics := middleware.NewMetrics()
	if err := httpMetrics.Register(a.registry); err != nil {
		return nil, fmt.Errorf("register http metrics: %w", err)
	}

	engine := contrast.NewEngine(contrast.Options{
		Logger:       logger,
		Metrics:      engineMetrics,
		BroadParsing: cfg.BroadColorParsing,
		Workers:      cfg.EvalWorkers,
	})

	// Rate limit store: Redis when configured so limits hold across replicas
	var store middleware.RateLimitStore
	var redisChecker api.HealthChecker
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		a.redis = redis.NewClient(opts)
		store = middleware.NewRedisRateLimitStore(a.redis,
			middleware.WithRedisMetrics(httpMetrics),
			middleware.WithRedisLogger(logger),
		)
		redisChecker = health.NewRedisChecker(a.redis)
	} else {
		a.memStore = middleware.NewInMemoryRateLimitStore()
		store = a.memStore
	}

	// Page scanning is enabled only when a browser can be reached
	scanner := pagescan.New(pagescan.Options{
		BrowserBin:        cfg.BrowserBin,
		ControlURL:        cfg.BrowserControlURL,
		Headless:          cfg.BrowserHeadless,
		NavigationTimeout: time.Duration(cfg.ScanTimeoutSeconds) * time.Second,
		MaxElements:       cfg.ScanMaxElements,
		BlockPrivate:      cfg.ScanBlockPrivate,
		Logger:            logger,
	})
	var pageScanner api.PageScanner
	if err := scanner.HealthCheck(ctx); err != nil {
		logger.Warn("page scanning disabled", "error", err)
	} else {
		pageScanner = scanner
	}

	healthHandlers := api.NewHealthHandlers(api.HealthHandlersConfig{
		RedisChecker:   redisChecker,
		BrowserChecker: scanner,
		MetricsEnabled: cfg.MetricsEnabled,
	})
	contrastHandlers := api.NewContrastHandlers(api.ContrastHandlersConfig{
		Engine:       engine,
		Scanner:      pageScanner,
		DefaultLevel: cfg.Level(),
		ReportTitle:  cfg.ReportTitle,
		MaxPairs:     api.DefaultMaxPairs,
	})

	routes := http.NewServeMux()
	api.RegisterRoutes(routes, healthHandlers, contrastHandlers)

	a.window = time.Duration(cfg.RateLimitWindowSeconds) * time.Second
	contrastLimit := middleware.RateLimitConfig{
		RequestsPerWindow: cfg.RateLimitRequests,
		WindowDuration:    a.window,
	}
	if err := contrastLimit.Validate(); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}
	ipKey := middleware.IPKeyFunc()
	contrastLimiter := middleware.RateLimiter(store, contrastLimit, prefixedKey("contrast:", ipKey), httpMetrics)
	scanLimiter := middleware.RateLimiter(store, middleware.DefaultScanLimit(), prefixedKey("scan:", ipKey), httpMetrics)

	mux := http.NewServeMux()
	mux.Handle("/v1/contrast/", contrastLimiter(routes))
	mux.Handle("/v1/contrast/scan", scanLimiter(contrastLimiter(routes)))
	if cfg.MetricsEnabled {
		mux.Handle("/metrics", api.InternalAuthMiddleware(cfg.MetricsToken)(api.MetricsHandler(a.registry)))
	}
	mux.Handle("/", routes)

	// Apply middleware: RequestID -> Tracing -> Logging -> HTTPMetrics -> CORS
	a.handler = middleware.RequestID(
		middleware.Tracing(serviceName)(
			middleware.Logging(logger)(
				middleware.HTTPMetrics(httpMetrics)(
					middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSAllowedOrigins))(mux),
				),
			),
		),
	)

	return a, nil
}

// prefixedKey namespaces a rate limit key so separate limits sharing one
// store keep separate counters.
func prefixedKey(prefix string, keyFunc middleware.KeyFunc) middleware.KeyFunc {
	return func(r *http.Request) string {
		return prefix + keyFunc(r)
	}
}

// runBackground runs store maintenance until ctx is cancelled.
func (a *app) runBackground(ctx context.Context) {
	if a.memStore == nil {
		return
	}
	interval := 2 * a.window
	if interval < time.Minute {
		interval = time.Minute
	}
	a.memStore.RunCleanup(ctx, interval)
}

// Close releases external connections.
func (a *app) Close() error {
	if a.redis != nil {
		return a.redis.Close()
	}
	return nil
}

// Server timeouts. Writes get the scan navigation budget on top of the base
// timeout so a slow page scan is not cut off mid-response.
const (
	baseTimeout = 15 * time.Second
	idleTimeout = 60 * time.Second
)

// newServer builds the HTTP server for handler.
func newServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Handler:      handler,
		ReadTimeout:  baseTimeout,
		WriteTimeout: time.Duration(cfg.ScanTimeoutSeconds)*time.Second + baseTimeout,
		IdleTimeout:  idleTimeout,
	}
}

// serve runs srv on ln until ctx is cancelled, then drains in-flight
// requests for up to shutdownTimeout.
func serve(ctx context.Context, srv *http.Server, ln net.Listener, logger *slog.Logger, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
