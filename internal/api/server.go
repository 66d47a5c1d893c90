package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	apimw "github.com/vabforge/vab-orchestrator/internal/api/middleware"
	"github.com/vabforge/vab-orchestrator/internal/gpupool"
	"github.com/vabforge/vab-orchestrator/internal/jobmanager"
	"github.com/vabforge/vab-orchestrator/internal/jobstore"
	"github.com/vabforge/vab-orchestrator/internal/logging"
	"github.com/vabforge/vab-orchestrator/internal/vlclient"
)

// Server is the Echo-based HTTP boundary in front of the job manager. It
// holds no orchestration state of its own — every route delegates straight
// through to Manager, grounded on the teacher's Controller shape
// (internal/api/v2/api.go) trimmed to this spec's five routes.
type Server struct {
	echo    *echo.Echo
	cfg     Config
	manager *jobmanager.Manager
	store   jobstore.Store
	pool    *gpupool.Pool
	vl      *vlclient.Client
	log     *slog.Logger

	httpServer *http.Server
}

// New builds a Server wired to the given job manager and process-scoped
// collaborators. pool and vl may be nil (health reports them unavailable).
func New(cfg Config, manager *jobmanager.Manager, store jobstore.Store, pool *gpupool.Pool, vl *vlclient.Client) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:    e,
		cfg:     cfg,
		manager: manager,
		store:   store,
		pool:    pool,
		vl:      vl,
		log:     logging.ForComponent("http"),
	}

	e.Use(echomw.Recover())
	e.Use(apimw.NewRequestLogger())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost},
	}))
	e.Use(apimw.NewGzip())

	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.echo.POST("/analyze", s.handleAnalyze)
	s.echo.POST("/ingest", s.handleIngest)
	s.echo.GET("/status/:video_id", s.handleStatus)
	s.echo.GET("/result/:video_id", s.handleResult)
	s.echo.GET("/health", s.handleHealth)
}

// Echo exposes the underlying instance for tests that drive requests
// directly against it without a listening socket.
func (s *Server) Echo() *echo.Echo { return s.echo }

// Start begins serving on cfg.Listen. It blocks until the server stops.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         s.cfg.Listen,
		Handler:      s.echo,
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: DefaultWriteTimeout,
		IdleTimeout:  DefaultIdleTimeout,
	}
	s.log.Info("http server starting", "addr", s.cfg.Listen)
	if err := s.echo.StartServer(s.httpServer); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server within DefaultShutdownTimeout.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultShutdownTimeout)
	defer cancel()
	return s.echo.Shutdown(ctx)
}
