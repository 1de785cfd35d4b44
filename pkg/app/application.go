package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"bookit/internal/health"
	"bookit/pkg/config"
	"bookit/pkg/contracts"
	"bookit/pkg/middleware"

	"github.com/julienschmidt/httprouter"
)

// Worker is a long-running loop started next to the HTTP server. It must
// return once ctx is cancelled.
type Worker func(ctx context.Context) error

type Application struct {
	cfg              *config.Config
	server           *http.Server
	idempotencyStore *middleware.InMemoryIdempotencyStore
	rateLimiter      *middleware.RateLimiter
	healthHandler    http.Handler
	appHTTPHandler   http.Handler
	workers          map[string]Worker
	closers          []func() error
}

func NewApplication(cfg *config.Config) *Application {
	return &Application{
		cfg:     cfg,
		workers: map[string]Worker{},
	}
}

// SetApp mounts the API handlers behind the full middleware stack and the
// health endpoints behind a minimal one.
func (a *Application) SetApp(checks map[string]health.Check, appHandlers ...contracts.Handler) {
	a.setHealthHandler(checks)
	a.setAppHandler(appHandlers)
	a.setAppServer()
}

// AddWorker registers a background loop. Workers are cancelled on shutdown
// before the HTTP server stops.
func (a *Application) AddWorker(name string, worker Worker) {
	a.workers[name] = worker
}

// OnShutdown registers a cleanup run after the server has stopped.
func (a *Application) OnShutdown(closer func() error) {
	a.closers = append(a.closers, closer)
}

func (a *Application) setHealthHandler(checks map[string]health.Check) {
	healthRouter := httprouter.New()
	health.NewHandler(a.cfg.Log, checks).RegisterRoutes(healthRouter)

	var healthHTTPHandler http.Handler = healthRouter
	healthHTTPHandler = middleware.RequestLogging(a.cfg.Log)(healthHTTPHandler)
	healthHTTPHandler = middleware.Recovery(a.cfg.Log)(healthHTTPHandler)
	a.healthHandler = healthHTTPHandler
	a.cfg.Log.Info("Health endpoints configured with minimal middleware (Recovery + Logging only)")
}

func (a *Application) setAppHandler(appHandlers []contracts.Handler) {
	appRouter := httprouter.New()
	contracts.Mount(appRouter, appHandlers...)

	a.idempotencyStore = middleware.NewInMemoryIdempotencyStore(a.cfg.IdempotencyTTL)
	a.rateLimiter = middleware.NewRateLimiter(
		a.cfg.RateLimitRequests,
		a.cfg.RateLimitWindow,
		middleware.DefaultUserExtractor,
		a.cfg.Log,
	)

	// Outermost last: Recovery, Logging, size, content type, identity, rate
	// limit, timeout, idempotency, router.
	var appHTTPHandler http.Handler = appRouter
	appHTTPHandler = middleware.Idempotency(a.idempotencyStore, "Idempotency-Key")(appHTTPHandler)
	appHTTPHandler = middleware.RequestTimeout(a.cfg.RequestTimeout)(appHTTPHandler)
	appHTTPHandler = middleware.RateLimit(a.rateLimiter)(appHTTPHandler)
	appHTTPHandler = middleware.Authenticate(a.cfg.Log)(appHTTPHandler)
	appHTTPHandler = middleware.ContentTypeValidation(a.cfg.Log)(appHTTPHandler)
	appHTTPHandler = middleware.MaxRequestSize(int64(a.cfg.MaxRequestSize))(appHTTPHandler)
	appHTTPHandler = middleware.RequestLogging(a.cfg.Log)(appHTTPHandler)
	appHTTPHandler = middleware.Recovery(a.cfg.Log)(appHTTPHandler)
	a.appHTTPHandler = appHTTPHandler
	a.cfg.Log.Info("Application endpoints configured with full middleware stack")
}

func (a *Application) setAppServer() {
	mux := http.NewServeMux()
	mux.Handle("/health", a.healthHandler)
	mux.Handle("/ready", a.healthHandler)
	mux.Handle("/", a.appHTTPHandler)

	a.server = &http.Server{
		Addr:         ":" + a.cfg.Port,
		Handler:      mux,
		ReadTimeout:  a.cfg.ReadTimeout,
		WriteTimeout: a.cfg.WriteTimeout,
		IdleTimeout:  a.cfg.IdleTimeout,
	}

	a.cfg.Log.Info("HTTP server configured", "port", a.cfg.Port)
}

// Handler exposes the mounted mux.
func (a *Application) Handler() http.Handler {
	return a.server.Handler
}

func (a *Application) Run() {
	serverErrors := make(chan error, 1)

	go func() {
		a.cfg.Log.Info("Starting HTTP server", "address", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	workerErrors := make(chan error, len(a.workers))
	for name, worker := range a.workers {
		wg.Add(1)
		go func(name string, worker Worker) {
			defer wg.Done()
			a.cfg.Log.Info("Starting worker", "worker", name)
			if err := worker(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
				a.cfg.Log.Error("Worker stopped", "worker", name, "error", err)
				workerErrors <- err
			}
		}(name, worker)
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		stopWorkers()
		a.cfg.Log.Fatal("HTTP server failed", "error", err)

	case err := <-workerErrors:
		a.cfg.Log.Error("Shutting down after worker failure", "error", err)

	case sig := <-shutdown:
		a.cfg.Log.Info("Shutdown signal received", "signal", sig)
	}

	stopWorkers()
	wg.Wait()
	a.gracefulShutdown()
}

func (a *Application) gracefulShutdown() {
	a.cfg.Log.Info("Starting graceful shutdown...")

	a.cfg.Log.Info("Stopping background workers...")
	a.idempotencyStore.Stop()
	a.rateLimiter.Stop()
	a.cfg.Log.Info("Background workers stopped")

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.cfg.Log.Error("Server shutdown failed", "error", err)
		if err := a.server.Close(); err != nil {
			a.cfg.Log.Fatal("Could not stop server gracefully", "error", err)
		}
	}

	for _, closer := range a.closers {
		if err := closer(); err != nil {
			a.cfg.Log.Error("Cleanup failed", "error", err)
		}
	}

	a.cfg.Log.Info("Server stopped gracefully")
}
