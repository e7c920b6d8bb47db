// Package api exposes the session state machine to the dashboard
// presentation layer over HTTP and WebSocket.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/triage-console/internal/config"
	"github.com/triage-console/internal/session"
)

// Server represents the console's HTTP server.
type Server struct {
	config  *config.Config
	session *session.Service
	logger  *logrus.Logger
	router  *gin.Engine
	hub     *hub
	server  *http.Server
	started time.Time
}

// NewServer creates a new HTTP server instance around the session service.
func NewServer(cfg *config.Config, sess *session.Service, logger *logrus.Logger) *Server {
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(requestIDMiddleware())

	s := &Server{
		config:  cfg,
		session: sess,
		logger:  logger,
		router:  router,
		hub:     newHub(logger),
		started: time.Now(),
	}

	// Every applied session transition is pushed to connected dashboards.
	sess.Subscribe(s.hub.broadcast)

	s.setupRoutes()
	return s
}

// Handler returns the underlying HTTP handler, used by tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server and blocks until the context is cancelled,
// then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.config.Server
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	s.logger.WithField("addr", addr).Info("console server started")

	select {
	case err := <-errChan:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.hub.close()
	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes.
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/session", s.handleSession)
		v1.POST("/analyze", s.handleAnalyze)
		v1.POST("/reset", s.handleReset)
		v1.POST("/probe", s.handleProbe)
		v1.GET("/ws", s.handleWS)
	}
}

// handleHealth reports the console's own health together with the current
// backend indicator, so orchestrators can probe the console itself.
func (s *Server) handleHealth(c *gin.Context) {
	snap := s.session.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"backend":   snap.BackendStatus,
		"uptime":    time.Since(s.started).String(),
		"timestamp": time.Now(),
	})
}

// handleSession returns the current session snapshot.
func (s *Server) handleSession(c *gin.Context) {
	c.JSON(http.StatusOK, s.session.Snapshot())
}

// analyzeBody is the request body of the analyze endpoint.
type analyzeBody struct {
	Text string `json:"text"`
}

// handleAnalyze replaces the session input and dispatches an analysis.
// Whitespace-only input and a submit while a request is in flight are both
// no-ops; the response reports whether a request was issued.
func (s *Server) handleAnalyze(c *gin.Context) {
	var body analyzeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	s.session.SetInput(body.Text)
	accepted := s.session.Submit()

	status := http.StatusAccepted
	if !accepted {
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{"accepted": accepted})
}

// handleReset clears the input, result, and last-analyzed timestamp.
func (s *Server) handleReset(c *gin.Context) {
	s.session.Reset()
	c.Status(http.StatusNoContent)
}

// handleProbe re-invokes the backend health probe.
func (s *Server) handleProbe(c *gin.Context) {
	status := s.session.Probe(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"backend": status})
}

// handleWS upgrades the connection and streams session snapshots.
func (s *Server) handleWS(c *gin.Context) {
	s.hub.serve(c.Writer, c.Request, s.session.Snapshot())
}

// corsMiddleware adds CORS headers so the dashboard can be served from a
// different origin during development.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// requestIDMiddleware adds a unique request ID to each request.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)
		c.Set("request_id", requestID)
		c.Next()
	}
}
