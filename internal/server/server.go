package server

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"taskflow/internal/cache"
	"taskflow/internal/models"
	"taskflow/internal/task"
)

// TaskService is the set of task operations the HTTP layer exposes.
type TaskService interface {
	List(ctx context.Context, mode task.SortMode) ([]models.Task, error)
	Create(ctx context.Context, title, dueDate string) (int64, error)
	Complete(ctx context.Context, id int64) error
	Update(ctx context.Context, id int64, title, dueDate string) error
	Delete(ctx context.Context, id int64) error
	Ping(ctx context.Context) error
}

// Server provides HTTP handlers for the task tracker backend.
type Server struct {
	engine    *gin.Engine
	tasks     TaskService
	logger    *slog.Logger
	staticDir string
	index     string
	// cacheStats reports the list cache counters on /healthz when set.
	cacheStats func() cache.Stats
}

// Option customizes a Server.
type Option func(*Server)

// WithCacheStats includes the list cache counters in the health report.
func WithCacheStats(stats func() cache.Stats) Option {
	return func(s *Server) {
		s.cacheStats = stats
	}
}

// New constructs the HTTP server with routes and middleware configured.
func New(tasks TaskService, logger *slog.Logger, staticDir string, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestID())
	router.Use(accessLog(logger))

	srv := &Server{
		engine:    router,
		tasks:     tasks,
		logger:    logger,
		staticDir: staticDir,
	}
	for _, opt := range opts {
		opt(srv)
	}

	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerRoutes wires all API and static handlers together.
func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", s.handleHealth)

	tasks := s.engine.Group("/tasks")
	{
		tasks.GET("", s.handleListTasks)
		tasks.POST("", s.handleCreateTask)
		tasks.PUT(":id/done", s.handleCompleteTask)
		tasks.PUT(":id", s.handleUpdateTask)
		tasks.DELETE(":id", s.handleDeleteTask)
	}

	s.mountStatic()
}

// handleHealth reports whether the task store answers.
func (s *Server) handleHealth(c *gin.Context) {
	if err := s.tasks.Ping(c.Request.Context()); err != nil {
		s.logger.Warn("health check failed", slog.String("error", err.Error()))
		c.JSON(http.StatusServiceUnavailable, s.healthReport("unavailable"))
		return
	}
	c.JSON(http.StatusOK, s.healthReport("ok"))
}

func (s *Server) healthReport(status string) gin.H {
	report := gin.H{"status": status}
	if s.cacheStats != nil {
		report["cache"] = s.cacheStats()
	}
	return report
}

// parseID converts a path parameter to int64. An identifier that is not a
// number cannot match any task, so it is answered as not found.
func parseID(c *gin.Context, name string) (int64, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": task.ErrNotFound.Error()})
		return 0, false
	}
	return id, true
}

// respondError logs the error and returns a JSON payload.
func (s *Server) respondError(c *gin.Context, status int, message string, err error) {
	if err != nil {
		s.logger.Error("request failed",
			slog.String("path", c.FullPath()),
			slog.String("request_id", c.GetString(requestIDKey)),
			slog.String("error", err.Error()))
	}
	c.JSON(status, gin.H{"error": message})
}

// respondSuccess writes a JSON payload, or only the status when payload is nil.
func respondSuccess(c *gin.Context, status int, payload any) {
	if payload == nil {
		c.Status(status)
		return
	}
	c.JSON(status, payload)
}
