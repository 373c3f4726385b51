package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/stemsi/qbank-console/internal/middleware"
	"github.com/stemsi/qbank-console/internal/response"
	ws "github.com/stemsi/qbank-console/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler pushes workspace change events to the operator's browser.
type WSHandler struct {
	log      zerolog.Logger
	upgrader websocket.Upgrader
	buffer   int
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
		buffer:   32,
	}
}

// WorkspaceStream godoc
// WS /ws/v1/workspace?token=...
// Streams "changed" events whenever an entity is saved or deleted in the
// operator's workspace. Clients may send {"action":"ping"}.
func (h *WSHandler) WorkspaceStream(c *gin.Context) {
	s := middleware.GetSession(c)
	if s == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	events, unsubscribe := s.Workspace.Subscribe(h.buffer)
	defer unsubscribe()

	wsLog := h.log.With().Str("user", s.Manager.User()).Logger()
	wsLog.Info().Msg("Operator connected")

	if err := ws.WriteTyped(conn, ws.ReadyResponse{Event: ws.EventReady, User: s.Manager.User()}); err != nil {
		return
	}

	// Only this goroutine writes; the reader hands requests over.
	requests := make(chan ws.RequestEnvelope)
	done := make(chan struct{})
	quit := make(chan struct{})
	defer close(quit)
	go func() {
		defer close(done)
		ws.KeepAlive(conn)
		for {
			var msg ws.RequestEnvelope
			if err := ws.ReadJSON(conn, &msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					wsLog.Warn().Err(err).Msg("Unexpected close")
				} else {
					wsLog.Debug().Msg("Connection closed")
				}
				return
			}
			select {
			case requests <- msg:
			case <-quit:
				return
			}
		}
	}()

	ping := time.NewTicker(ws.PingPeriod)
	defer ping.Stop()

	for {
		var werr error
		select {
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		case ev, open := <-events:
			if !open {
				// Workspace closed: the session ended.
				_ = ws.WriteError(conn, "session ended")
				return
			}
			werr = ws.WriteTyped(conn, ws.NewChangedResponse(ev))
		case msg := <-requests:
			switch msg.Action {
			case ws.ActionPing:
				werr = ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
			default:
				wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
				werr = ws.WriteError(conn, "unknown action: "+string(msg.Action))
			}
		case <-ping.C:
			werr = ws.WritePing(conn)
		}
		if werr != nil {
			wsLog.Debug().Err(werr).Msg("Write failed")
			return
		}
	}
}
