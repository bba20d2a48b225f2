// Package app wires the Real-Debrid client into the HTTP gateway.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"rdwrapper/internal/api"
	"rdwrapper/internal/config"
	"rdwrapper/internal/logger"
	"rdwrapper/pkg/realdebrid"

	"go.uber.org/zap"
)

const (
	breakerThreshold = 5
	breakerReset     = 30 * time.Second
)

type App struct {
	config *config.Config
	client *realdebrid.Client
	cache  io.Closer

	httpServer *http.Server
	router     *api.Router
}

// New authenticates against Real-Debrid and builds the gateway. Nothing
// listens until Start.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts, cache, err := cfg.ClientOptions()
	if err != nil {
		return nil, err
	}

	client, err := realdebrid.New(ctx, opts...)
	if err != nil {
		_ = cache.Close()
		return nil, err
	}

	router := api.NewRouter(cfg.APIKey)
	dh := api.NewDebridHandler(client, api.NewCircuitBreaker("real-debrid", breakerThreshold, breakerReset))
	router.MountV1(dh.Routes())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		config:     cfg,
		client:     client,
		cache:      cache,
		httpServer: srv,
		router:     router,
	}, nil
}

func (a *App) Addr() string {
	return a.httpServer.Addr
}

func (a *App) Mode() realdebrid.CredentialMode {
	return a.client.Mode()
}

func (a *App) Handler() http.Handler {
	return a.router.Handler()
}

// Start listens on the configured port and serves in the background.
func (a *App) Start() error {
	ln, err := net.Listen("tcp", a.httpServer.Addr)
	if err != nil {
		return err
	}

	go func() {
		logger.L.Info("gateway listening", zap.String("addr", ln.Addr().String()))
		if err := a.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L.Error("HTTP server closed", zap.Error(err))
		}
	}()
	return nil
}

func (a *App) Stop() {
	logger.L.Info("shutting down gateway")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		logger.L.Warn("HTTP shutdown", zap.Error(err))
	}
	a.client.Close()
	if err := a.cache.Close(); err != nil {
		logger.L.Warn("closing token cache", zap.Error(err))
	}
}

// Run serves until ctx is cancelled or SIGINT/SIGTERM is received.
func (a *App) Run(ctx context.Context) error {
	if err := a.Start(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	a.Stop()
	return nil
}
