// Package worker provides the HTTP worker service for readlens.
package worker

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm/logger"

	"github.com/thebtf/readlens/internal/config"
	gormdb "github.com/thebtf/readlens/internal/db/gorm"
	"github.com/thebtf/readlens/internal/insights"
	"github.com/thebtf/readlens/internal/scoring"
	"github.com/thebtf/readlens/internal/snippet"
)

// Service configuration constants
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// MaxRequestBody caps incoming request bodies. Documents arrive as
	// extracted metadata (concepts, counts, one embedding), not full text,
	// so 1 MiB is generous.
	MaxRequestBody = 1 << 20

	// ReprocessCooldownSeconds is the minimum gap between full reprocess
	// runs triggered over the API.
	ReprocessCooldownSeconds = 300

	// ReprocessMaxParallel bounds how many users are rescored concurrently
	// during a full reprocess.
	ReprocessMaxParallel = 4
)

// Service is the main worker service orchestrator.
type Service struct {
	// Version of the worker binary
	version string

	// Configuration
	config *config.Config

	// Database
	store         *gormdb.Store
	documentStore *gormdb.DocumentStore
	scoreStore    *gormdb.ScoreStore

	// Domain services
	engine         *scoring.Engine
	insightService *insights.Service
	scheduler      *insights.Scheduler
	analyzer       *snippet.Analyzer

	// Rate limiting for full reprocess runs
	reprocessLimiter *BulkOperationLimiter

	// HTTP server
	router    *chi.Mux
	server    *http.Server
	startTime time.Time

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Initialization state (for deferred init)
	ready     atomic.Bool
	initError error
	initMu    sync.RWMutex
}

// NewService creates a new worker service with deferred initialization.
// The HTTP surface comes up immediately with health and snippet analysis
// available, while database initialization happens in the background.
func NewService(version string) (*Service, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	svc := &Service{
		version:          version,
		config:           cfg,
		analyzer:         snippet.NewAnalyzer(),
		reprocessLimiter: NewBulkOperationLimiter(ReprocessCooldownSeconds),
		router:           chi.NewRouter(),
		ctx:              ctx,
		cancel:           cancel,
		startTime:        time.Now(),
	}

	// Setup middleware and routes (health endpoint works immediately)
	svc.setupMiddleware()
	svc.setupRoutes()

	// Start async initialization
	go svc.initializeAsync()

	return svc, nil
}

// initializeAsync performs heavy initialization in the background.
func (s *Service) initializeAsync() {
	log.Info().Msg("Starting async initialization...")

	if err := config.EnsureAll(); err != nil {
		s.setInitError(fmt.Errorf("ensure data dir: %w", err))
		return
	}

	// Initialize database (this includes migrations - can be slow)
	store, err := gormdb.NewStore(gormdb.Config{
		DSN:           s.config.DatabaseDSN,
		MaxConns:      s.config.MaxConns,
		EmbeddingDims: s.config.EmbeddingDims,
		LogLevel:      logger.Silent,
	})
	if err != nil {
		s.setInitError(fmt.Errorf("init database: %w", err))
		return
	}

	documentStore := gormdb.NewDocumentStore(store)
	scoreStore := gormdb.NewScoreStore(store)

	engine := scoring.NewEngine(documentStore, scoreStore, s.config.Scoring, log.Logger)
	insightService := insights.NewService(scoreStore, log.Logger)
	scheduler := insights.NewScheduler(insightService, s.config.InsightSchedule, log.Logger)

	s.initMu.Lock()
	s.store = store
	s.documentStore = documentStore
	s.scoreStore = scoreStore
	s.engine = engine
	s.insightService = insightService
	s.scheduler = scheduler
	s.initMu.Unlock()

	if err := scheduler.Start(s.ctx); err != nil {
		s.setInitError(fmt.Errorf("start insight scheduler: %w", err))
		return
	}

	s.ready.Store(true)
	log.Info().Msg("Async initialization complete - service ready")
}

// setInitError records an initialization error.
func (s *Service) setInitError(err error) {
	s.initMu.Lock()
	s.initError = err
	s.initMu.Unlock()
	log.Error().Err(err).Msg("Async initialization failed")
}

// GetInitError returns any initialization error.
func (s *Service) GetInitError() error {
	s.initMu.RLock()
	defer s.initMu.RUnlock()
	return s.initError
}

// setupMiddleware configures HTTP middleware.
func (s *Service) setupMiddleware() {
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(DefaultHTTPTimeout))
	s.router.Use(middleware.RealIP)
	s.router.Use(RequestID)
	s.router.Use(SecurityHeaders)
	s.router.Use(MaxBodySize(MaxRequestBody))
	s.router.Use(RequireJSONContentType)
}

// setupRoutes configures HTTP routes.
func (s *Service) setupRoutes() {
	// Health check (both root and API-prefixed for compatibility).
	// Returns 200 immediately so the extension can connect during init.
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/api/health", s.handleHealth)

	// Version endpoint for clients to check worker compatibility
	s.router.Get("/api/version", s.handleVersion)

	// Readiness check - returns 200 only when fully initialized
	s.router.Get("/api/ready", s.handleReady)

	// Snippet analysis is pure heuristics; works before DB is ready
	s.router.Post("/api/snippets/analyze", s.handleAnalyzeSnippet)

	// Routes that require DB to be ready
	s.router.Group(func(r chi.Router) {
		r.Use(s.requireReady)

		// Document routes
		r.Post("/api/documents", s.handleIngestDocument)
		r.Get("/api/documents/{id}", s.handleGetDocument)
		r.Get("/api/documents/{id}/score", s.handleGetScore)
		r.Get("/api/documents/{id}/similar", s.handleSimilarDocuments)
		r.Post("/api/documents/{id}/rescore", s.handleRescoreDocument)

		// Per-user routes
		r.Get("/api/users/{userID}/documents", s.handleRecentDocuments)
		r.Get("/api/users/{userID}/detections", s.handleListDetections)
		r.Get("/api/users/{userID}/stats", s.handleDashboardStats)
		r.Post("/api/users/{userID}/rescore", s.handleRescoreUser)
		r.Get("/api/users/{userID}/insights", s.handleGetInsight)
		r.Get("/api/users/{userID}/insights/latest", s.handleLatestInsight)
		r.Post("/api/users/{userID}/insights/generate", s.handleGenerateInsight)

		// Admin routes
		r.Post("/api/admin/reprocess", s.handleReprocessAll)
		r.Get("/api/admin/db/health", s.handleDBHealth)
	})
}

// Start starts the worker service. The HTTP server starts immediately;
// database initialization happens async.
func (s *Service) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.WorkerPort),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server error")
		}
	}()

	log.Info().
		Int("port", s.config.WorkerPort).
		Msg("Worker HTTP server started (initialization in progress)")

	return nil
}

// Shutdown gracefully shuts down the service.
func (s *Service) Shutdown(ctx context.Context) error {
	s.cancel()

	s.initMu.RLock()
	scheduler := s.scheduler
	store := s.store
	s.initMu.RUnlock()

	if scheduler != nil {
		scheduler.Stop()
	}

	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("HTTP server shutdown error")
		}
	}

	if store != nil {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("Database close error")
		}
	}

	s.wg.Wait()

	log.Info().Msg("Worker service shutdown complete")
	return nil
}
