package dashboard

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/outreach/internal/config"
)

// handleEvents streams a tenant's progress: the replay of the current or
// last run first, then live events and heartbeats until the client leaves.
func (a *api) handleEvents(c *gin.Context) {
	slug := c.Param("slug")
	if !config.SlugPattern.MatchString(slug) {
		c.JSON(http.StatusNotFound, gin.H{"error": "invalid_slug"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	sub := a.hub.Subscribe(slug)
	defer sub.Close()

	writeSSE(c.Writer, "connected", map[string]string{"type": "connected", "tenant": slug})
	c.Writer.Flush()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-sub.C:
			if !ok {
				// The hub dropped this subscriber for falling behind.
				a.log.Warn().Str("tenant", slug).Msg("sse subscriber disconnected")
				return
			}
			writeSSE(c.Writer, string(e.Type), e)
			c.Writer.Flush()
		}
	}
}

// writeSSE writes a single SSE event to the writer.
func writeSSE(w io.Writer, event string, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, string(jsonData))
}
