package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"linkup/backend/internal/hub"
)

const (
	eventBuffer       = 16
	heartbeatInterval = 25 * time.Second
)

func setSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

// StreamEvents godoc
// @Summary      Stream relationship events
// @Description  Opens a server-sent event stream of the relationship events concerning the caller (requests, answers, removals, follows, blocks). Browsers may pass the token as access_token.
// @Tags         events
// @Produce      text/event-stream
// @Security     BearerAuth
// @Param        as   query     string  false  "Act as individual or organization"
// @Success      200  {string}  string  "event stream"
// @Failure      401  {object}  ErrorResponse
// @Failure      503  {object}  ErrorResponse
// @Router       /events [get]
func (h *Handler) StreamEvents(c *gin.Context) {
	if h.hub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Event stream unavailable"})
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	client := make(hub.Client, eventBuffer)
	h.hub.Subscribe(actor, client)
	defer h.hub.Unsubscribe(actor, client)
	h.log.Debug("event stream opened", "account", actor.String())

	setSSEHeaders(c.Writer)
	c.Status(http.StatusOK)
	c.Writer.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case msg, ok := <-client:
			if !ok {
				return false
			}
			c.SSEvent("message", string(msg))
			return true
		case <-heartbeat.C:
			_, _ = io.WriteString(w, ": ping\n\n")
			return true
		}
	})
	h.log.Debug("event stream closed", "account", actor.String())
}
