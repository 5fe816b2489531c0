// Package http exposes the learner rule engine as a JSON API on gin.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tkdojang/dojang/internal/application/command"
	"github.com/tkdojang/dojang/internal/application/query"
	"github.com/tkdojang/dojang/internal/infrastructure/exchange"
	"github.com/tkdojang/dojang/internal/interface/http/health"
	"github.com/tkdojang/dojang/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SERVER CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config contains HTTP server configuration.
type Config struct {
	// Addr is host:port to listen on.
	Addr string

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// MaxBodyBytes caps request bodies, including imports.
	MaxBodyBytes int64

	// Debug switches gin to debug mode.
	Debug bool

	// CORSOrigins enables CORS for these browser origins.
	CORSOrigins []string

	// Version is reported by /health.
	Version string
}

// DefaultConfig returns default server configuration.
func DefaultConfig() Config {
	return Config{
		Addr:         "0.0.0.0:8080",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		MaxBodyBytes: exchange.MaxDocumentSize,
		Version:      "v1",
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// Dependencies contains all dependencies required by HTTP handlers.
type Dependencies struct {
	// Commands (write side)
	CreateProfile   *command.CreateProfileHandler
	UpdateProfile   *command.UpdateProfileHandler
	ActivateProfile *command.ActivateProfileHandler
	DeleteProfile   *command.DeleteProfileHandler
	Progress        *command.ProgressHandler
	RecordSession   *command.RecordStudySessionHandler
	RecordGrading   *command.RecordGradingHandler
	ImportProfiles  *command.ImportProfilesHandler

	// Queries (read side)
	Profiles        *query.ProfileQueries
	Learning        *query.LearningQueries
	EligibleContent *query.EligibleContentHandler
	Export          *query.ExportHandler

	// Codec reads and writes .tkdprofile files.
	Codec exchange.Codec

	// Location parses calendar dates in requests.
	Location *time.Location

	Health health.Checker
	Logger *logger.Logger
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER
// ══════════════════════════════════════════════════════════════════════════════

// Server represents the HTTP server.
type Server struct {
	config     Config
	deps       Dependencies
	engine     *gin.Engine
	httpServer *http.Server
	logger     *logger.Logger

	mu        sync.RWMutex
	running   bool
	startedAt time.Time
}

// NewServer creates a new HTTP server with the given configuration and dependencies.
func NewServer(config Config, deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = logger.Default()
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	if deps.Health == nil {
		deps.Health = health.NewComposite(config.Version)
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = exchange.MaxDocumentSize
	}
	if !config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		config: config,
		deps:   deps,
		engine: gin.New(),
		logger: deps.Logger.Named("http"),
	}
	s.engine.Use(s.requestIDMiddleware(), s.loggingMiddleware(), s.recoveryMiddleware(), s.bodyLimitMiddleware())
	if len(config.CORSOrigins) > 0 {
		s.engine.Use(corsMiddleware(config.CORSOrigins))
	}
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         config.Addr,
		Handler:      s.engine,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTING
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) setupRoutes() {
	r := s.engine

	// ─────────────────────────────────────────────────────────────────────────
	// Health & Status Endpoints
	// ─────────────────────────────────────────────────────────────────────────
	r.GET("/health", s.handleHealth)
	r.GET("/live", s.handleLive)

	api := r.Group("/api/v1")

	api.GET("/belts", s.handleListBelts)
	api.GET("/stats", s.handleSystemStats)
	api.GET("/export", s.handleExport)
	api.POST("/import", s.handleImport)

	// ─────────────────────────────────────────────────────────────────────────
	// Profiles
	// ─────────────────────────────────────────────────────────────────────────
	profiles := api.Group("/profiles")
	profiles.GET("", s.handleListProfiles)
	profiles.POST("", s.handleCreateProfile)
	profiles.GET("/active", s.handleGetActiveProfile)
	profiles.GET("/:id", s.handleGetProfile)
	profiles.PATCH("/:id", s.handleUpdateProfile)
	profiles.DELETE("/:id", s.handleDeleteProfile)
	profiles.POST("/:id/activate", s.handleActivateProfile)

	// ─────────────────────────────────────────────────────────────────────────
	// Learning
	// ─────────────────────────────────────────────────────────────────────────
	profiles.GET("/:id/content", s.handleEligibleContent)
	profiles.GET("/:id/progress", s.handleListProgress)
	profiles.GET("/:id/progress/item", s.handleGetProgress)
	profiles.POST("/:id/progress", s.handleGetOrCreateProgress)
	profiles.POST("/:id/practice", s.handleRecordPractice)
	profiles.GET("/:id/sessions", s.handleListSessions)
	profiles.POST("/:id/sessions", s.handleRecordSession)
	profiles.GET("/:id/gradings", s.handleListGradings)
	profiles.POST("/:id/gradings", s.handleRecordGrading)
	profiles.GET("/:id/gradings/stats", s.handleGradingStats)
	profiles.GET("/:id/stats", s.handleProfileStats)
}

// ══════════════════════════════════════════════════════════════════════════════
// MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

const requestIDKey = "request_id"

// requestIDMiddleware tags the request and puts a request-scoped logger in
// its context.
func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Header("X-Request-ID", requestID)

		ctx := logger.WithContext(c.Request.Context(), s.logger.WithRequestID(requestID))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// loggingMiddleware logs all HTTP requests.
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []logger.Field{
			logger.String("method", c.Request.Method),
			logger.String("path", c.FullPath()),
			logger.Int("status", c.Writer.Status()),
			logger.Latency(time.Since(start)),
			logger.String("ip", c.ClientIP()),
			logger.String("request_id", c.GetString(requestIDKey)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, logger.String("errors", c.Errors.String()))
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			s.logger.Error("http request", fields...)
			return
		}
		s.logger.Info("http request", fields...)
	}
}

// recoveryMiddleware recovers from panics and returns 500.
func (s *Server) recoveryMiddleware() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		s.logger.Error("panic recovered",
			logger.Any("error", recovered),
			logger.String("path", c.Request.URL.Path),
			logger.String("request_id", c.GetString(requestIDKey)),
		)
		abortError(c, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	})
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Content-Type", "X-Request-ID"},
		ExposeHeaders: []string{"X-Request-ID", "Content-Disposition"},
		MaxAge:        12 * time.Hour,
	})
}

func (s *Server) bodyLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.config.MaxBodyBytes)
		}
		c.Next()
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start serves until Shutdown.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.running = true
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("starting HTTP server", logger.String("address", s.config.Addr))

	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// Uptime returns the server uptime.
func (s *Server) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return 0
	}
	return time.Since(s.startedAt)
}
