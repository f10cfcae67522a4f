package ui

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// handleEvents streams every published view model as a "view" event, the
// current one first. The stream ends when the client leaves or the view closes.
func (s *Server) handleEvents(c *gin.Context) {
	v := view(c)
	updates, unsubscribe := v.Subscribe()
	defer unsubscribe()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	log := s.logger.With(zap.String("view_id", v.ID().String()))
	log.Debug("event stream opened")
	defer log.Debug("event stream closed")

	ctx := c.Request.Context()
	ticker := time.NewTicker(s.keepAlive)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case vm, ok := <-updates:
			if !ok {
				c.SSEvent("closed", gin.H{"view_id": v.ID()})
				return false
			}
			c.SSEvent("view", vm)
			return true
		case <-ticker.C:
			c.SSEvent("ping", gin.H{"timestamp": s.now().Format(time.RFC3339)})
			return true
		case <-ctx.Done():
			return false
		}
	})
}
