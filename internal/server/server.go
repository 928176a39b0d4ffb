package server

import (
	"context"
	"net/http"

	"github.com/MadlinksCoding/routelog/internal/config"
	"github.com/MadlinksCoding/routelog/internal/handler"
	"github.com/MadlinksCoding/routelog/internal/logger"
	"github.com/MadlinksCoding/routelog/internal/response"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Server holds the Echo app and dependencies.
type Server struct {
	Echo       *echo.Echo
	Config     *config.Config
	recentLogs *RecentLogsStore
}

// New builds the Echo server and registers routes over the engine.
func New(cfg *config.Config, engine *logger.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover(), middleware.Logger())

	recentLogs := newRecentLogsStore()
	logHandler := &handler.LogHandler{
		Engine: engine,
		OnLog:  recentLogs.AddEntry,
	}

	// Write API
	e.POST("/logs", logHandler.CreateLog)
	e.POST("/logs/batch", logHandler.CreateLogBatch)

	// Read / observability API
	e.GET("/logs/read", logHandler.ReadLog)
	e.GET("/logs/recent", func(c echo.Context) error {
		return response.OK(c, map[string]any{"logs": recentLogs.GetRecent()}, "")
	})
	e.GET("/errors", logHandler.ListErrors)
	e.DELETE("/errors", logHandler.ClearErrors)

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	return &Server{Echo: e, Config: cfg, recentLogs: recentLogs}
}

// Start starts the HTTP server. Blocks until the context is cancelled or
// the server fails; on cancel it shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = s.Shutdown(context.Background())
	}()
	return s.Echo.Start(":" + s.Config.Server.Port)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.Echo.Shutdown(ctx)
}
