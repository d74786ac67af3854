package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/ecowell/eco-engine-go/internal/application/services"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/messaging"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/observability/logging"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/observability/performance"
	"github.com/ecowell/eco-engine-go/internal/presentation/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// TriggerHandlers exposes the conversion-trigger endpoints: status reads,
// dismissal, the SSE prompt stream, and the WebSocket heartbeat channel.
type TriggerHandlers struct {
	trigger     *services.TriggerService
	identity    *services.IdentityService
	broadcaster *messaging.PromptBroadcaster
	upgrader    websocket.Upgrader
	logger      *logging.ChanneledLogger
	perf        *performance.Tracker
}

// NewTriggerHandlers creates trigger handlers with injected dependencies.
func NewTriggerHandlers(
	trigger *services.TriggerService,
	identity *services.IdentityService,
	broadcaster *messaging.PromptBroadcaster,
	logger *logging.ChanneledLogger,
	perf *performance.Tracker,
) *TriggerHandlers {
	return &TriggerHandlers{
		trigger:     trigger,
		identity:    identity,
		broadcaster: broadcaster,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin enforcement happens in the CORS layer; the heartbeat
			// carries no sensitive payload.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
		perf:   perf,
	}
}

// GetTrigger reports the trigger status for the caller's session.
func (h *TriggerHandlers) GetTrigger(c *gin.Context) {
	marker := h.perf.StartOperation("handler_trigger_status")
	defer marker.Complete()

	status, err := h.trigger.Status(middleware.SessionID(c))
	if err != nil {
		marker.SetError(err)
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown session"})
		return
	}

	marker.SetSuccess(true)
	c.JSON(http.StatusOK, status)
}

// PostDismiss records a prompt dismissal and opens the cooldown window.
func (h *TriggerHandlers) PostDismiss(c *gin.Context) {
	marker := h.perf.StartOperation("handler_trigger_dismiss")
	defer marker.Complete()

	if err := h.trigger.Dismiss(middleware.SessionID(c)); err != nil {
		marker.SetError(err)
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown session"})
		return
	}

	status, _ := h.trigger.Status(middleware.SessionID(c))
	marker.SetSuccess(true)
	c.JSON(http.StatusOK, status)
}

// GetSSE streams conversion prompts and limit notifications to the caller's
// session until the client disconnects.
func (h *TriggerHandlers) GetSSE(c *gin.Context) {
	sessionID := middleware.SessionID(c)

	ch := h.broadcaster.AddClient(sessionID)
	if ch == nil {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many connections for session"})
		return
	}
	defer h.broadcaster.RemoveClient(ch, sessionID)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	h.logger.LogSSEEvent("stream_open", sessionID, h.broadcaster.GetSessionConnectionCount(sessionID))

	keepalive := time.NewTicker(25 * time.Second)
	defer keepalive.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case message, ok := <-ch:
			if !ok {
				return false
			}
			_, err := io.WriteString(w, message)
			return err == nil
		case <-keepalive.C:
			_, err := io.WriteString(w, ": keepalive\n\n")
			return err == nil
		}
	})

	h.logger.LogSSEEvent("stream_close", sessionID, h.broadcaster.GetSessionConnectionCount(sessionID))
}

// heartbeatFrame is the wire shape of one foreground-time report.
type heartbeatFrame struct {
	DeltaMs int64 `json:"deltaMs"`
}

// GetHeartbeat upgrades to a WebSocket over which the client reports
// foregrounded time. Each frame accrues its delta into the trigger machine;
// a backgrounded tab simply stops sending.
func (h *TriggerHandlers) GetHeartbeat(c *gin.Context) {
	sessionID := middleware.SessionID(c)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Engine().Warn("Heartbeat upgrade failed", "sessionId", sessionID, "error", err.Error())
		return
	}
	defer conn.Close()

	conn.SetReadLimit(512)
	h.logger.Engine().Debug("Heartbeat channel open", "sessionId", sessionID)

	for {
		if err := conn.SetReadDeadline(time.Now().Add(2 * time.Minute)); err != nil {
			return
		}

		var frame heartbeatFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Engine().Debug("Heartbeat channel closed unexpectedly", "sessionId", sessionID, "error", err.Error())
			}
			return
		}

		if err := h.trigger.Heartbeat(sessionID, time.Duration(frame.DeltaMs)*time.Millisecond); err != nil {
			_ = conn.WriteJSON(gin.H{"error": "unknown session"})
			return
		}
		h.identity.TouchSession(sessionID)
	}
}
