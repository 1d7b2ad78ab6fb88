package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/showrunner/showrunner/internal/api/handlers"
	apimw "github.com/showrunner/showrunner/internal/api/middleware"
	"github.com/showrunner/showrunner/internal/api/ratelimit"
	"github.com/showrunner/showrunner/internal/auth"
	"github.com/showrunner/showrunner/internal/catalog"
	"github.com/showrunner/showrunner/internal/config"
	"github.com/showrunner/showrunner/internal/mirror"
	"github.com/showrunner/showrunner/internal/scheduler"
	syncengine "github.com/showrunner/showrunner/internal/sync"
	"github.com/showrunner/showrunner/internal/watchlist"
	"github.com/showrunner/showrunner/internal/websocket"
)

// Server handles HTTP requests for the Showrunner API.
type Server struct {
	echo   *echo.Echo
	hub    *websocket.Hub
	logger zerolog.Logger
	cfg    *config.Config

	engine      *syncengine.Engine
	authService *auth.Service
	users       *watchlist.Store
	configs     *mirror.ConfigStore
	catalog     *catalog.Client
	sched       *scheduler.Scheduler
	authLimiter *ratelimit.AuthLimiter

	startTime time.Time
}

// NewServer creates a new API server instance. The scheduler may be
// nil, in which case the task endpoints are not registered.
func NewServer(
	engine *syncengine.Engine,
	authService *auth.Service,
	users *watchlist.Store,
	configs *mirror.ConfigStore,
	catalogClient *catalog.Client,
	sched *scheduler.Scheduler,
	hub *websocket.Hub,
	cfg *config.Config,
	logger zerolog.Logger,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:        e,
		hub:         hub,
		logger:      logger,
		cfg:         cfg,
		engine:      engine,
		authService: authService,
		users:       users,
		configs:     configs,
		catalog:     catalogClient,
		sched:       sched,
		authLimiter: ratelimit.NewAuthLimiter(),
		startTime:   time.Now(),
	}

	s.authLimiter.StartCleanup(5 * time.Minute)

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures Echo middleware.
func (s *Server) setupMiddleware() {
	// Recovery middleware
	s.echo.Use(middleware.Recover())

	// Request ID
	s.echo.Use(middleware.RequestID())

	// Security headers
	s.echo.Use(apimw.SecurityHeaders())

	// CORS
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	// Request logging
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogMethod:   true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Err(v.Error).
					Msg("request error")
			} else {
				s.logger.Info().
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Msg("request")
			}
			return nil
		},
	}))

	// Gzip compression
	s.echo.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
		Skipper: func(c echo.Context) bool {
			// Skip compression for WebSocket
			return c.Request().Header.Get("Upgrade") == "websocket"
		},
	}))
}

// setupRoutes configures API routes.
func (s *Server) setupRoutes() {
	// Health check
	s.echo.GET("/health", s.healthCheck)

	// WebSocket endpoint for sync events
	s.echo.GET("/ws", s.hub.HandleWebSocket)

	// API v1 group
	api := s.echo.Group("/api/v1")

	// System routes
	api.GET("/status", s.getStatus)

	// Auth routes; login and signup share the per-IP limiter
	authGroup := api.Group("/auth")
	authGroup.POST("/signup", s.signup, s.authLimiter.Middleware())
	authGroup.POST("/login", s.login, s.authLimiter.Middleware())

	// Authenticated routes
	protected := api.Group("", s.requireAuth())

	protected.GET("/auth/me", s.getProfile)
	protected.PUT("/auth/profile", s.updateProfile)

	// Watchlist routes
	shows := protected.Group("/shows")
	shows.GET("", s.listUserShows)
	shows.GET("/:id", s.getShow)
	shows.POST("/:id", s.addShow)
	shows.DELETE("/:id", s.deleteShow)
	shows.PUT("/:id/watched", s.setWatched)
	shows.PUT("/:id/favorite", s.setFavorite)
	shows.PUT("/:id/rating", s.setRating)

	// Catalog search passthrough
	protected.GET("/search", s.searchShows)

	// Remote user-curated lists, proxied to the catalog
	lists := protected.Group("/lists")
	lists.GET("/:id", s.getList)
	lists.POST("", s.createList)
	lists.PUT("/:id", s.updateList)
	lists.DELETE("/:id", s.deleteList)
	lists.POST("/:id/clear", s.clearList)
	lists.POST("/:id/items", s.addListItems)
	lists.DELETE("/:id/items", s.removeListItems)

	// Catalog user-auth exchange for list writes
	catalogAuth := protected.Group("/catalog")
	catalogAuth.POST("/request-token", s.createCatalogRequestToken)
	catalogAuth.POST("/access-token", s.createCatalogAccessToken)
	catalogAuth.POST("/session", s.createCatalogSession)

	// Remote catalog configuration (image CDN layout)
	protected.GET("/configuration", s.getConfiguration)

	// Scheduler routes
	if s.sched != nil {
		schedulerHandlers := handlers.NewSchedulerHandler(s.sched)
		tasks := protected.Group("/scheduler/tasks")
		tasks.GET("", schedulerHandlers.ListTasks)
		tasks.GET("/:id", schedulerHandlers.GetTask)
		tasks.POST("/:id/run", schedulerHandlers.RunTask)
	}
}

// Start begins listening for HTTP requests.
func (s *Server) Start(address string) error {
	s.logger.Info().Str("address", address).Msg("starting HTTP server")
	return s.echo.Start(address)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down HTTP server")
	return s.echo.Shutdown(ctx)
}

// Echo returns the underlying Echo instance (for serving static files).
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// --- Handler implementations ---

func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"version":          "0.1.0",
		"startTime":        s.startTime.Format(time.RFC3339),
		"uptime":           time.Since(s.startTime).String(),
		"catalogReady":     s.catalog.IsConfigured(),
		"connectedClients": s.hub.ClientCount(),
	})
}
