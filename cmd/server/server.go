package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/janisto/index-api/internal/http/routes"
	"github.com/janisto/index-api/internal/platform/config"
	applog "github.com/janisto/index-api/internal/platform/logging"
	"github.com/janisto/index-api/internal/platform/metrics"
	appmiddleware "github.com/janisto/index-api/internal/platform/middleware"
	"github.com/janisto/index-api/internal/platform/ratelimit"
	"github.com/janisto/index-api/internal/platform/respond"
)

const maxRequestBytes = 1 << 20 // 1 MB

// newRouter assembles the middleware stack and routes. The returned limiter
// owns a background goroutine and must be closed by the caller.
func newRouter(cfg config.Config, version string) (http.Handler, *ratelimit.Limiter) {
	router := chi.NewRouter()
	router.NotFound(respond.NotFoundHandler())
	router.MethodNotAllowed(respond.MethodNotAllowedHandler())

	limiter := ratelimit.New(ratelimit.Options{
		RPS:   cfg.RateLimitRPS,
		Burst: cfg.RateLimitBurst,
	})

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}

	middlewares := []func(http.Handler) http.Handler{
		appmiddleware.Security(cfg.DocsPath),
		appmiddleware.Vary(),
		appmiddleware.CORS(cfg.CORSOrigins...),
		appmiddleware.RequestID(),
		// RealIP trusts X-Forwarded-For and X-Real-IP. Only deploy behind a
		// trusted reverse proxy such as Cloud Run or nginx.
		chimiddleware.RealIP,
		chimiddleware.RequestSize(maxRequestBytes),
		chimiddleware.GetHead,
		applog.RequestLogger(cfg.ProjectID),
		applog.AccessLogger(),
	}
	if m != nil {
		middlewares = append(middlewares, m.Middleware())
	}
	middlewares = append(middlewares, limiter.Middleware(), respond.Recoverer())
	router.Use(middlewares...)

	humaCfg := huma.DefaultConfig("Index API", version)
	humaCfg.DocsPath = cfg.DocsPath
	api := humachi.New(router, humaCfg)
	api.OpenAPI().OnAddOperation = append(api.OpenAPI().OnAddOperation, addCBORContent)

	opts := routes.Options{Version: version}
	if m != nil {
		opts.Metrics = m.Handler()
	}
	routes.Register(router, api, opts)

	return router, limiter
}

// addCBORContent documents application/cbor wherever an operation documents application/json.
func addCBORContent(_ *huma.OpenAPI, op *huma.Operation) {
	if op.RequestBody != nil && op.RequestBody.Content != nil {
		if jsonContent, ok := op.RequestBody.Content["application/json"]; ok {
			op.RequestBody.Content["application/cbor"] = jsonContent
		}
	}
	for _, resp := range op.Responses {
		if resp.Content == nil {
			continue
		}
		if jsonContent, ok := resp.Content["application/json"]; ok {
			resp.Content["application/cbor"] = jsonContent
		}
	}
}

// run listens on the configured port and serves until ctx is cancelled.
func run(ctx context.Context, cfg config.Config, version string) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", cfg.Addr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Addr(), err)
	}
	return serve(ctx, cfg, version, ln)
}

// serve handles requests on ln until ctx is cancelled, then shuts down
// gracefully within cfg.ShutdownTimeout.
func serve(ctx context.Context, cfg config.Config, version string, ln net.Listener) error {
	router, limiter := newRouter(cfg, version)
	defer func() { _ = limiter.Close() }()

	srv := &http.Server{
		Handler:           router,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    64 << 10, // 64 KB
	}

	listenErr := make(chan error, 1)
	go func() {
		applog.LogInfo(ctx, "server listening", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErr <- err
		}
	}()

	select {
	case err := <-listenErr:
		return fmt.Errorf("serve %s: %w", ln.Addr(), err)
	case <-ctx.Done():
		applog.LogInfo(ctx, "shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	applog.LogInfo(ctx, "server exited")
	return nil
}
