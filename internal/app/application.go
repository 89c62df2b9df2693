// Package app assembles the engine: config -> store -> registries ->
// dispatcher -> transport -> HTTP server, in dependency order.
package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"thoughtswap/internal/api"
	"thoughtswap/internal/bank"
	"thoughtswap/internal/config"
	"thoughtswap/internal/dispatch"
	"thoughtswap/internal/identity"
	"thoughtswap/internal/registry"
	"thoughtswap/internal/websocket"
)

// Application coordinates all components and owns their lifecycles.
type Application struct {
	config     *config.Config
	store      *bank.Store
	rooms      *registry.Registry
	conns      *websocket.Registry
	dispatcher *dispatch.Dispatcher
	httpServer *http.Server

	gcCancel context.CancelFunc
}

// NewApplication builds the full component graph from configuration.
func NewApplication(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	store, err := bank.Open(cfg.Database.Path, cfg.Database.Timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to open prompt bank: %w", err)
	}

	verifier := identity.NewVerifier([]byte(cfg.Auth.SigningKey), cfg.Auth.DevMode)
	rooms := registry.New(time.Now().UnixNano())
	conns := websocket.NewRegistry()
	dispatcher := dispatch.New(rooms, conns)
	wsHandler := websocket.NewHandler(conns, verifier, dispatcher)
	apiServer := api.NewServer(store, verifier)

	mux := http.NewServeMux()
	mux.Handle("/api/", apiServer)
	mux.Handle("/health", apiServer)
	mux.HandleFunc("/ws", wsHandler.HandleWebSocket)

	httpServer := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:     mux,
		ReadTimeout: cfg.HTTP.ReadTimeout,
		// WriteTimeout stays off the server: it would sever long-lived
		// websocket connections. The API handlers are bounded by the
		// store timeout instead.
	}

	return &Application{
		config:     cfg,
		store:      store,
		rooms:      rooms,
		conns:      conns,
		dispatcher: dispatcher,
		httpServer: httpServer,
	}, nil
}

// Start launches the room GC and the HTTP server.
func (app *Application) Start(ctx context.Context) error {
	log.Printf("Starting thoughtswap on %s", app.httpServer.Addr)

	gcCtx, cancel := context.WithCancel(ctx)
	app.gcCancel = cancel
	go app.rooms.RunGC(gcCtx, app.config.Rooms.GCInterval, app.config.Rooms.IdleTimeout)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := app.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	select {
	case err := <-serverErrCh:
		cancel()
		return err
	case <-time.After(100 * time.Millisecond):
		log.Printf("thoughtswap started")
		return nil
	case <-ctx.Done():
		cancel()
		return ctx.Err()
	}
}

// Stop shuts components down in reverse order: HTTP, GC, store.
func (app *Application) Stop(ctx context.Context) error {
	log.Printf("Shutting down thoughtswap")

	if err := app.httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	if app.gcCancel != nil {
		app.gcCancel()
	}
	if err := app.store.Close(); err != nil {
		log.Printf("Prompt bank shutdown error: %v", err)
	}

	log.Printf("Shutdown complete: rooms=%d connections=%d", app.rooms.Count(), app.conns.Count())
	return nil
}

// Addr returns the configured listen address.
func (app *Application) Addr() string {
	return app.httpServer.Addr
}
