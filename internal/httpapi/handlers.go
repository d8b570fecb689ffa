package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/agalitsyn/artist-scheduler/internal/model"
	"github.com/agalitsyn/artist-scheduler/internal/report"
	"github.com/agalitsyn/artist-scheduler/internal/schedule"
	"github.com/agalitsyn/artist-scheduler/version"
)

const maxBodySize = 1 << 20 // 1MB

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": version.String(),
		"tasks":   len(s.sched.Tasks()),
	})
}

// handleListTasks filters the full list by query parameters without touching
// the shared view state.
func (s *Server) handleListTasks(c *gin.Context) {
	var f model.TaskFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tasks := schedule.Apply(s.sched.Tasks(), schedule.NormalizeFilter(f))
	c.JSON(http.StatusOK, gin.H{
		"tasks": tasks,
		"count": len(tasks),
	})
}

func (s *Server) handleGetTask(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}
	task, err := s.sched.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (s *Server) handleCreateTask(c *gin.Context) {
	var task model.Task
	if !bindTask(c, &task) {
		return
	}
	created, err := s.sched.Create(c.Request.Context(), task)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) handleUpdateTask(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}
	var task model.Task
	if !bindTask(c, &task) {
		return
	}
	updated, err := s.sched.Update(c.Request.Context(), id, task)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (s *Server) handleDeleteTask(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}
	confirmed := c.Query("confirm") == "true"
	deleted, err := s.sched.Delete(c.Request.Context(), id, func(model.Task) bool { return confirmed })
	if err != nil {
		respondError(c, err)
		return
	}
	if !deleted {
		c.JSON(http.StatusPreconditionRequired, gin.H{"error": "deletion must be confirmed with ?confirm=true"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleYears(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"years":       s.sched.Years(),
		"currentYear": s.sched.CurrentYear(),
	})
}

func (s *Server) handleOptions(c *gin.Context) {
	c.JSON(http.StatusOK, s.sched.Options())
}

func (s *Server) handleView(c *gin.Context) {
	c.JSON(http.StatusOK, s.sched.Snapshot())
}

func (s *Server) handleSetFilter(c *gin.Context) {
	var f model.TaskFilter
	if err := c.ShouldBindJSON(&f); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.sched.SetFilter(f)
	c.JSON(http.StatusOK, s.sched.Snapshot())
}

func (s *Server) handleStepYear(c *gin.Context) {
	var delta int
	switch c.Param("direction") {
	case "prev":
		delta = -1
	case "next":
		delta = 1
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "direction must be prev or next"})
		return
	}
	moved := s.sched.StepYear(delta)
	c.JSON(http.StatusOK, gin.H{
		"moved": moved,
		"view":  s.sched.Snapshot(),
	})
}

// handleStats summarizes the visible subset, or every task with scope=all.
func (s *Server) handleStats(c *gin.Context) {
	tasks := s.sched.Visible()
	if c.Query("scope") == "all" {
		tasks = s.sched.Tasks()
	}
	c.JSON(http.StatusOK, report.Compute(tasks))
}

func (s *Server) handleExportJSON(c *gin.Context) {
	data, err := report.JSON(s.sched.Tasks())
	if err != nil {
		s.log.Logf("[ERROR] %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+report.FileName(s.cfg.Now(), "json")+`"`)
	c.Data(http.StatusOK, "application/json", data)
}

func (s *Server) handleExportCSV(c *gin.Context) {
	data, err := report.CSV(s.sched.Tasks())
	if err != nil {
		s.log.Logf("[ERROR] %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+report.FileName(s.cfg.Now(), "csv")+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

func bindTask(c *gin.Context, task *model.Task) bool {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodySize)
	if err := c.ShouldBindJSON(task); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

func taskID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return 0, false
	}
	return id, true
}

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, model.ErrTaskNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, model.ErrInvalidTask):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
