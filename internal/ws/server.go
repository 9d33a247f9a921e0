// Package ws serves the per-session push channel over WebSocket.
package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/autonomia2025/autonomia-suite-landing/internal/config"
	"github.com/autonomia2025/autonomia-suite-landing/internal/hub"
	"github.com/autonomia2025/autonomia-suite-landing/internal/protocol"
)

// SessionChecker reports whether a session is live.
type SessionChecker interface {
	SessionExists(id string) bool
}

// Server handles push channel subscriptions.
type Server struct {
	cfg      *config.Config
	hub      *hub.Hub
	sessions SessionChecker
	upgrader websocket.Upgrader
}

// NewServer creates a new WebSocket server.
func NewServer(cfg *config.Config, h *hub.Hub, sessions SessionChecker) *Server {
	return &Server{
		cfg:      cfg,
		hub:      h,
		sessions: sessions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// RegisterRoutes registers the push channel route.
func (s *Server) RegisterRoutes(e *echo.Echo) {
	e.GET("/v1/sessions/:session_id/events", s.HandleSubscribe)
}

// HandleSubscribe upgrades the request and subscribes the connection to the
// session's events. Unknown sessions are rejected before the upgrade.
func (s *Server) HandleSubscribe(c echo.Context) error {
	sessionID := c.Param("session_id")
	if sessionID == "" || !s.sessions.SessionExists(sessionID) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "session not found"})
	}

	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Printf("Failed to upgrade WebSocket: %v", err)
		return nil
	}
	ws.SetReadLimit(s.cfg.MaxMessageSize)

	conn := s.hub.NewConnection(ws, sessionID)
	s.hub.SendJSON(conn, protocol.Event{
		Type:      protocol.TypeSubscribed,
		SessionID: sessionID,
		Ts:        time.Now().UnixMilli(),
	})
	s.hub.Register(conn)
	if !s.sessions.SessionExists(sessionID) {
		// Expired between the first check and Register; its drop already ran.
		s.hub.Unregister(conn)
		conn.Close()
		return nil
	}

	go s.writePump(conn)
	go s.readPump(conn)

	return nil
}

// readPump keeps the read side alive for control frames and rejects any
// inbound data frame.
func (s *Server) readPump(conn *hub.Connection) {
	defer func() {
		s.hub.Unregister(conn)
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	conn.Conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		return nil
	})

	for {
		_, message, err := conn.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}
		s.handleMessage(conn, message)
	}
}

// writePump drains the connection queue and sends keepalive pings.
func (s *Server) writePump(conn *hub.Connection) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if !ok {
				// Hub closed the channel
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("Failed to write message: %v", err)
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage answers inbound frames. The channel is server-to-client only.
func (s *Server) handleMessage(conn *hub.Connection, data []byte) {
	var raw protocol.RawEvent
	if err := json.Unmarshal(data, &raw); err != nil {
		s.sendError(conn, protocol.ErrorCodeInvalidMessage, "invalid JSON message")
		return
	}
	s.sendError(conn, protocol.ErrorCodeReadOnly, "push channel does not accept messages")
}

func (s *Server) sendError(conn *hub.Connection, code, message string) {
	s.hub.SendJSON(conn, protocol.Event{
		Type:      protocol.TypeError,
		SessionID: conn.SessionID,
		Ts:        time.Now().UnixMilli(),
		Data:      protocol.ErrorData{Code: code, Message: message},
	})
}
