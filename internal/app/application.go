// Package app wires the academy backend components together.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"liveacademy/internal/api"
	"liveacademy/internal/chat"
	"liveacademy/internal/config"
	"liveacademy/internal/database"
	"liveacademy/internal/hub"
	"liveacademy/internal/logging"
	"liveacademy/internal/participant"
	"liveacademy/internal/router"
	"liveacademy/internal/session"
	"liveacademy/internal/webhook"
	"liveacademy/internal/websocket"
	"liveacademy/internal/zoom"
)

// Application coordinates all system components
// Clean dependency injection pattern with proper initialization order
type Application struct {
	config     *config.Config
	dbManager  *database.Manager
	registry   *websocket.Registry
	realtime   *hub.Hub
	apiServer  *api.Server
	httpServer *http.Server
	listener   net.Listener
}

// NewApplication creates a new application instance with all components initialized
// Component initialization follows strict dependency order:
// Database → Sessions → Zoom → Participants/Webhooks → Registry/Router → Hub → Chats → API → HTTP
func NewApplication(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	// Validate configuration before component initialization
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// STEP 1: Initialize database manager (foundation layer)
	dbManager, err := database.NewManager(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database manager: %w", err)
	}
	if err := dbManager.Migrate(); err != nil {
		_ = dbManager.Close()
		return nil, fmt.Errorf("failed to apply database migrations: %w", err)
	}
	logging.Info().Str("driver", dbManager.Driver()).Msg("database migrations applied")

	// STEP 2: Session state store over the record store and course directory
	sessions := session.NewManager(dbManager, dbManager)

	// STEP 3: Meeting provider: credential cache, meeting client, signer
	zoomClient := &http.Client{Timeout: cfg.Zoom.RequestTimeout}
	signer := zoom.NewSigner(cfg.Zoom.SDKKey, cfg.Zoom.SDKSecret, cfg.Zoom.SignatureTTL)
	provisioner := zoom.NewProvisioner(cfg.Zoom,
		zoom.NewTokenCache(cfg.Zoom, zoomClient),
		zoom.NewMeetingClient(cfg.Zoom, zoomClient),
		signer, sessions)
	if !cfg.Zoom.ZoomCredentialsLoaded() {
		logging.Warn().Msg("zoom oauth credentials missing, sessions will be created without meetings")
	}
	if !signer.Configured() {
		logging.Warn().
			Bool("sdk_key_loaded", signer.KeyLoaded()).
			Bool("sdk_secret_loaded", signer.SecretLoaded()).
			Msg("zoom sdk credentials missing, join tokens cannot be signed")
	}

	// STEP 4: Participant tracking and webhook ingestion
	tracker := participant.NewTracker(dbManager)
	ingestor := webhook.NewIngestor(sessions, tracker)

	// STEP 5: Realtime: registry, inbound router, outbound hub
	registry := websocket.NewRegistry()
	eventRouter := router.NewRouter(registry, cfg.WebSocket.EventsPerMinute)
	realtime := hub.NewHub(registry)
	wsHandler := websocket.NewHandler(registry, eventRouter, cfg.WebSocket)

	// STEP 6: Chats publish through the hub
	chats := chat.NewService(dbManager, dbManager, realtime)

	// STEP 7: API server with all business dependencies
	apiServer := api.NewServer(api.Dependencies{
		Config:       cfg,
		Sessions:     sessions,
		Provisioner:  provisioner,
		Signer:       signer,
		Participants: tracker,
		Webhooks:     ingestor,
		Chats:        chats,
		Users:        dbManager,
		Health:       dbManager,
		Stats:        registry,
		WebSocket:    http.HandlerFunc(wsHandler.HandleWebSocket),
	})

	httpServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.HTTP.Host, fmt.Sprint(cfg.HTTP.Port)),
		Handler:      apiServer,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	return &Application{
		config:     cfg,
		dbManager:  dbManager,
		registry:   registry,
		realtime:   realtime,
		apiServer:  apiServer,
		httpServer: httpServer,
	}, nil
}

// Start begins application execution
// Hub starts first so emissions are accepted, then the listener is bound
// synchronously so address errors surface here
func (app *Application) Start(ctx context.Context) error {
	if err := app.realtime.Start(ctx); err != nil {
		return fmt.Errorf("failed to start realtime hub: %w", err)
	}

	listener, err := net.Listen("tcp", app.httpServer.Addr)
	if err != nil {
		_ = app.realtime.Stop()
		return fmt.Errorf("failed to listen on %s: %w", app.httpServer.Addr, err)
	}
	app.listener = listener

	go func() {
		if err := app.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error().Err(err).Msg("http server stopped")
		}
	}()

	logging.Info().Str("addr", app.GetAddr()).Msg("liveacademy started")
	return nil
}

// Stop gracefully shuts down the application
// Reverse dependency order: HTTP → Hub → Database
func (app *Application) Stop(ctx context.Context) error {
	logging.Info().Msg("shutting down liveacademy")

	var errs []error
	if err := app.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := app.realtime.Stop(); err != nil && !errors.Is(err, hub.ErrHubNotRunning) {
		errs = append(errs, fmt.Errorf("hub shutdown: %w", err))
	}
	if err := app.dbManager.Close(); err != nil {
		errs = append(errs, fmt.Errorf("database shutdown: %w", err))
	}

	logging.Info().Msg("liveacademy shutdown complete")
	return errors.Join(errs...)
}

// GetAddr returns the bound address once started, else the configured one
func (app *Application) GetAddr() string {
	if app.listener != nil {
		return app.listener.Addr().String()
	}
	return app.httpServer.Addr
}

// Handler exposes the HTTP handler for in-process tests
func (app *Application) Handler() http.Handler {
	return app.apiServer
}
