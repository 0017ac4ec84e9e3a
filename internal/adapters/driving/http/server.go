package http

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/corpora-labs/corpora-core/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string
	jwtSecret  string

	// Services
	docService      driving.DocumentService
	kbService       driving.KnowledgebaseService
	pipelineService driving.PipelineService

	// Infrastructure
	db          Pinger // PostgreSQL health check
	redisClient Pinger // Redis health check (optional)
}

// Config holds server configuration
type Config struct {
	Host      string
	Port      int
	Version   string
	JWTSecret string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:    "0.0.0.0",
		Port:    8080,
		Version: "dev",
	}
}

// NewServer creates a new HTTP server
func NewServer(
	cfg Config,
	docService driving.DocumentService,
	kbService driving.KnowledgebaseService,
	pipelineService driving.PipelineService,
	db Pinger,
	redisClient Pinger, // can be nil
) *Server {
	s := &Server{
		router:          http.NewServeMux(),
		version:         cfg.Version,
		jwtSecret:       cfg.JWTSecret,
		docService:      docService,
		kbService:       kbService,
		pipelineService: pipelineService,
		db:              db,
		redisClient:     redisClient,
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Create middleware
	authMiddleware := NewAuthMiddleware(s.jwtSecret)

	// Health endpoints (no auth)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)

	// Knowledge base endpoints
	s.router.Handle("POST /api/v1/kbs",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleCreateKB)))
	s.router.Handle("GET /api/v1/kbs",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleListKBs)))
	s.router.Handle("GET /api/v1/kbs/{id}",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleGetKB)))
	s.router.Handle("PUT /api/v1/kbs/{id}",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleUpdateKB)))
	s.router.Handle("DELETE /api/v1/kbs/{id}",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleDeleteKB)))
	s.router.Handle("GET /api/v1/kbs/{id}/knowledge_graph",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleKnowledgeGraph)))

	// Aggregate pipeline endpoints
	s.router.Handle("POST /api/v1/kbs/{id}/pipelines/{kind}/run",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleRunPipeline)))
	s.router.Handle("GET /api/v1/kbs/{id}/pipelines/{kind}/trace",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleTracePipeline)))
	s.router.Handle("DELETE /api/v1/kbs/{id}/pipelines/{kind}",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleUnbindPipeline)))

	// Document endpoints
	s.router.Handle("POST /api/v1/kbs/{id}/documents",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleCreateDocument)))
	s.router.Handle("GET /api/v1/kbs/{id}/documents",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleListDocuments)))
	s.router.Handle("GET /api/v1/documents/{id}",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleGetDocument)))
	s.router.Handle("POST /api/v1/documents/run",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleRunDocuments)))
	s.router.Handle("DELETE /api/v1/documents",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleRemoveDocuments)))
	s.router.Handle("POST /api/v1/documents/status",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleChangeAvailability)))
	s.router.Handle("POST /api/v1/documents/{id}/rename",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleRenameDocument)))
	s.router.Handle("PUT /api/v1/documents/{id}/meta",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleSetDocumentMeta)))
	s.router.Handle("POST /api/v1/documents/{id}/parser",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleChangeParser)))
}

// Start starts the HTTP server with graceful shutdown
func (s *Server) Start() error {
	// Channel to listen for OS signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		log.Printf("Starting server on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-stop
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Println("Server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
