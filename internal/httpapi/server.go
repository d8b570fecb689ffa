package httpapi

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-pkgz/lgr"

	"github.com/agalitsyn/artist-scheduler/internal/schedule"
)

type Config struct {
	Addr string
	// Token guards mutating routes when set.
	Token string
	Now   func() time.Time
}

// Server exposes the schedule as a JSON API for the browser front-end.
type Server struct {
	cfg    Config
	sched  *schedule.Schedule
	router *gin.Engine
	log    lgr.L
}

func NewServer(cfg Config, sched *schedule.Schedule, logger lgr.L) *Server {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = lgr.NoOp
	}

	router := gin.New()
	s := &Server{
		cfg:    cfg,
		sched:  sched,
		router: router,
		log:    logger,
	}
	router.Use(gin.Recovery(), s.requestLogger())

	router.GET("/healthz", s.handleHealth)

	api := router.Group("/api")
	{
		api.GET("/tasks", s.handleListTasks)
		api.GET("/tasks/:id", s.handleGetTask)
		api.GET("/years", s.handleYears)
		api.GET("/options", s.handleOptions)
		api.GET("/view", s.handleView)
		api.GET("/stats", s.handleStats)
		api.GET("/export/json", s.handleExportJSON)
		api.GET("/export/csv", s.handleExportCSV)

		// view state is shared by every client of this process
		api.PUT("/filter", s.handleSetFilter)
		api.POST("/year/:direction", s.handleStepYear)

		write := api.Group("", s.requireToken())
		write.POST("/tasks", s.handleCreateTask)
		write.PUT("/tasks/:id", s.handleUpdateTask)
		write.DELETE("/tasks/:id", s.handleDeleteTask)
	}

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Logf("[INFO] http server listening on %s", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		s.log.Logf("[DEBUG] http server stopped: %v", ctx.Err())
		return nil
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Logf("[DEBUG] %s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

func (s *Server) requireToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.cfg.Token == "" {
			c.Next()
			return
		}
		got := []byte(c.GetHeader("Authorization"))
		want := []byte("Bearer " + s.cfg.Token)
		if subtle.ConstantTimeCompare(got, want) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
