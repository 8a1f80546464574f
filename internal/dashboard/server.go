// Package dashboard serves the operator HTTP API: start and stop runs,
// read tenant status, and stream or poll run progress.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/zulandar/outreach/internal/models"
	"github.com/zulandar/outreach/internal/progress"
	"github.com/zulandar/outreach/internal/runner"
)

// Runner is the run coordinator surface the API drives.
type Runner interface {
	Start(ctx context.Context, slug string, opts runner.RunOpts) (bool, error)
	RequestStop(ctx context.Context, slug string) error
	Status(ctx context.Context, slug string) (runner.StatusView, error)
	Active() []string
}

// QueueReader lists a tenant's pending contacts.
type QueueReader interface {
	ListQueue(ctx context.Context, slug string, limit int) ([]models.QueueItem, error)
}

// StartOpts holds configuration for the API server.
type StartOpts struct {
	Runner Runner
	Hub    *progress.Hub
	Queue  QueueReader // optional; enables GET /api/tenants/:slug/queue
	Port   int
	Out    io.Writer
	Logger zerolog.Logger
}

// Start launches the HTTP server. It blocks until ctx is cancelled, then
// shuts down gracefully. Runs started over the API live on ctx, not on the
// request that started them.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.Runner == nil || opts.Hub == nil {
		return fmt.Errorf("dashboard: runner and hub are required")
	}
	if opts.Port <= 0 {
		opts.Port = 8080
	}

	gin.SetMode(gin.ReleaseMode)
	router := newRouter(ctx, opts)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", opts.Port),
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "API listening on http://localhost:%d\n", opts.Port)
	}
	opts.Logger.Info().Int("port", opts.Port).Msg("api server started")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}

// newRouter builds the gin engine. runCtx is the parent of API-started runs.
func newRouter(runCtx context.Context, opts StartOpts) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	registerRoutes(router, &api{
		runCtx: runCtx,
		runner: opts.Runner,
		hub:    opts.Hub,
		queue:  opts.Queue,
		log:    opts.Logger,
	})
	return router
}
