package web

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fuzzydedup/dedup/internal/dedup"
	"github.com/fuzzydedup/dedup/internal/registry"
	"github.com/fuzzydedup/dedup/internal/web/handlers"
	"github.com/fuzzydedup/dedup/internal/web/middleware"
)

// Server represents the web server
type Server struct {
	config     *Config
	registry   *registry.Registry
	engine     *dedup.Engine
	log        *zap.Logger
	httpServer *http.Server
	router     *mux.Router
}

// NewServer creates a new web server instance. engine must not be nil;
// a nil log is replaced by a no-op logger, and reg may be nil when the
// run registry is disabled.
func NewServer(config *Config, engine *dedup.Engine, reg *registry.Registry, log *zap.Logger) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}

	server := &Server{
		config:   config,
		registry: reg,
		engine:   engine,
		log:      log,
	}

	server.setupRoutes()

	server.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port),
		Handler:      server.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router = mux.NewRouter()

	dedupHandler := &handlers.DedupHandler{Engine: s.engine, Registry: s.registry, Log: s.log}
	runsHandler := &handlers.RunsHandler{Registry: s.registry}

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/dedup", dedupHandler.Dedupe).Methods("POST")
	api.HandleFunc("/dedup/cross", dedupHandler.DedupeCross).Methods("POST")
	api.HandleFunc("/runs", runsHandler.List).Methods("GET")
	api.HandleFunc("/runs/{id}", runsHandler.Get).Methods("GET")

	s.router.HandleFunc("/healthz", handlers.Health).Methods("GET")
	if s.config.Features.MetricsEnabled {
		s.router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	}

	s.router.Use(middleware.CORS())
	s.router.Use(middleware.RequestLogging(s.log))

	if s.config.Auth.Enabled {
		api.Use(middleware.Authentication(s.config.Auth.SessionKey))
	}
}

// Start starts the web server
func (s *Server) Start() error {
	// Setup graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// Start server in background
	go func() {
		fmt.Printf("Starting server on http://%s\n", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("Server error: %v\n", err)
		}
	}()

	// Wait for shutdown signal
	<-stop
	fmt.Println("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := s.httpServer.Shutdown(ctx); err != nil {
		fmt.Printf("Server shutdown error: %v\n", err)
	}

	// Close the run registry connection, if one was configured
	if s.registry != nil {
		if err := s.registry.Close(); err != nil {
			fmt.Printf("Registry close error: %v\n", err)
		}
	}

	fmt.Println("Server stopped")
	return nil
}