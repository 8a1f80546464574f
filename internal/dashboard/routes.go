package dashboard

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/zulandar/outreach/internal/config"
	"github.com/zulandar/outreach/internal/progress"
	"github.com/zulandar/outreach/internal/runner"
)

const defaultQueueLimit = 50

type api struct {
	runCtx context.Context
	runner Runner
	hub    *progress.Hub
	queue  QueueReader
	log    zerolog.Logger
}

// runRequest is the optional body of POST /run.
type runRequest struct {
	UseDispatcher *bool `json:"use_dispatcher"`
	BatchSize     int   `json:"batch_size"`
}

// registerRoutes sets up all API routes on the Gin router.
func registerRoutes(router *gin.Engine, a *api) {
	router.GET("/healthz", a.handleHealth)

	tenants := router.Group("/api/tenants/:slug")
	tenants.POST("/run", a.handleRun)
	tenants.POST("/stop", a.handleStop)
	tenants.GET("/status", a.handleStatus)
	tenants.GET("/events", a.handleEvents)
	tenants.GET("/progress", a.handleProgress)
	if a.queue != nil {
		tenants.GET("/queue", a.handleQueue)
	}
}

func (a *api) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "running": a.runner.Active()})
}

func (a *api) handleRun(c *gin.Context) {
	slug := c.Param("slug")

	var req runRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "detail": err.Error()})
			return
		}
	}

	started, err := a.runner.Start(a.runCtx, slug, runner.RunOpts{
		UseDispatcher: req.UseDispatcher,
		BatchSize:     req.BatchSize,
	})
	switch {
	case errors.Is(err, runner.ErrInvalidSlug):
		c.JSON(http.StatusNotFound, gin.H{"error": "invalid_slug"})
	case err != nil:
		a.log.Error().Err(err).Str("tenant", slug).Msg("start run")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
	case !started:
		c.JSON(http.StatusOK, gin.H{"status": string(runner.StatusAlreadyRunning)})
	default:
		c.JSON(http.StatusAccepted, gin.H{"status": "started"})
	}
}

func (a *api) handleStop(c *gin.Context) {
	slug := c.Param("slug")
	if err := a.runner.RequestStop(c.Request.Context(), slug); err != nil {
		if errors.Is(err, runner.ErrNotRunning) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		a.log.Error().Err(err).Str("tenant", slug).Msg("request stop")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "stopping"})
}

func (a *api) handleStatus(c *gin.Context) {
	slug := c.Param("slug")
	view, err := a.runner.Status(c.Request.Context(), slug)
	if errors.Is(err, runner.ErrInvalidSlug) {
		c.JSON(http.StatusNotFound, gin.H{"error": "invalid_slug"})
		return
	}
	if err != nil {
		a.log.Error().Err(err).Str("tenant", slug).Msg("status")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	c.JSON(http.StatusOK, view)
}

// handleProgress returns the replay state of the tenant's current or last
// run for clients that poll instead of streaming.
func (a *api) handleProgress(c *gin.Context) {
	slug := c.Param("slug")
	if !config.SlugPattern.MatchString(slug) {
		c.JSON(http.StatusNotFound, gin.H{"error": "invalid_slug"})
		return
	}
	snap := a.hub.Snapshot(slug)
	c.JSON(http.StatusOK, gin.H{
		"running": snap.LastStart != nil && snap.LastEnd == nil,
		"events":  snap.Events(),
	})
}

type queueEntry struct {
	Name  string  `json:"name"`
	Phone string  `json:"phone"`
	Niche *string `json:"niche,omitempty"`
}

func (a *api) handleQueue(c *gin.Context) {
	slug := c.Param("slug")
	if !config.SlugPattern.MatchString(slug) {
		c.JSON(http.StatusNotFound, gin.H{"error": "invalid_slug"})
		return
	}
	limit := defaultQueueLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "detail": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	items, err := a.queue.ListQueue(c.Request.Context(), slug, limit)
	if err != nil {
		a.log.Error().Err(err).Str("tenant", slug).Msg("list queue")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	out := make([]queueEntry, len(items))
	for i, it := range items {
		out[i] = queueEntry{Name: it.Name, Phone: it.Phone, Niche: it.Niche}
	}
	c.JSON(http.StatusOK, gin.H{"items": out})
}
