package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/spectrogram-api/api/types"
)

// Options configures the HTTP server and its middleware
type Options struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration // Must exceed the job timeout
	MaxHeaderBytes int
	MaxBodyBytes   int64
	EnableCORS     bool
	CORSOrigins    []string
	MetricsPath    string

	RateLimitEnabled bool
	RatePerMinute    int
	RateBurst        int
}

// DefaultOptions returns the server defaults
func DefaultOptions() Options {
	return Options{
		ReadTimeout:      30 * time.Second,
		WriteTimeout:     5 * time.Minute,
		MaxHeaderBytes:   1 << 20, // 1 MB
		MaxBodyBytes:     64 * 1024,
		EnableCORS:       true,
		CORSOrigins:      []string{"*"},
		MetricsPath:      "/metrics",
		RateLimitEnabled: true,
		RatePerMinute:    30,
		RateBurst:        5,
	}
}

// Server represents the HTTP server
type Server struct {
	engine             *gin.Engine
	httpServer         *http.Server
	options            Options
	rateLimiters       *sync.Map
	cleanupInitialized sync.Once
	cleanupStop        chan struct{}
	stopOnce           sync.Once

	// Dependencies for handlers
	dependencies *types.Dependencies
}

// NewServer creates a new HTTP server
func NewServer(address string, opts Options) *Server {
	// Create Gin engine with recovery middleware only
	engine := gin.New()
	engine.Use(gin.Recovery())

	return &Server{
		engine:       engine,
		options:      opts,
		rateLimiters: &sync.Map{},
		cleanupStop:  make(chan struct{}),
		httpServer: &http.Server{
			Addr:           address,
			Handler:        engine,
			ReadTimeout:    opts.ReadTimeout,
			WriteTimeout:   opts.WriteTimeout,
			IdleTimeout:    60 * time.Second,
			MaxHeaderBytes: opts.MaxHeaderBytes,
		},
	}
}

// SetDependencies sets all handler dependencies
func (s *Server) SetDependencies(deps *types.Dependencies) {
	s.dependencies = deps
}

// Engine returns the Gin engine for testing
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Initialize sets up middleware and routes
func (s *Server) Initialize() error {
	s.setupMiddleware()
	return s.setupRoutes()
}

// setupMiddleware configures global middleware
func (s *Server) setupMiddleware() {
	s.engine.Use(RequestID())
	s.engine.Use(gin.Logger())
	if s.options.EnableCORS {
		s.engine.Use(CORS(s.options.CORSOrigins...))
	}

	if s.options.MaxBodyBytes > 0 {
		s.engine.Use(RequestSizeLimitWithSize(s.options.MaxBodyBytes))
	} else {
		s.engine.Use(RequestSizeLimit())
	}
}

// setupRoutes delegates to the main route registration
func (s *Server) setupRoutes() error {
	return RegisterRoutes(s.engine, s.dependencies, s.options, s.rateLimiters, s.cleanupStop, &s.cleanupInitialized)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	// Stop the rate limiter cleanup goroutine
	s.stopOnce.Do(func() { close(s.cleanupStop) })

	return s.httpServer.Shutdown(ctx)
}
