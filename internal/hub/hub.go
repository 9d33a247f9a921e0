// Package hub tracks push channel subscribers per session and fans out
// session events to them.
package hub

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/autonomia2025/autonomia-suite-landing/internal/domain"
	"github.com/autonomia2025/autonomia-suite-landing/internal/protocol"
)

// sendBuffer is the per-connection outbound queue size.
const sendBuffer = 256

var (
	// ErrBufferFull is returned when a connection's send queue is full.
	ErrBufferFull = errors.New("send buffer full")
	// ErrConnectionClosed is returned when the hub already closed the queue.
	ErrConnectionClosed = errors.New("connection closed")
)

// Connection is one subscriber of a session.
type Connection struct {
	ID        string
	SessionID string
	Conn      *websocket.Conn
	Send      chan []byte
	mu        sync.Mutex

	// sendMu guards closed and every send on Send.
	sendMu sync.Mutex
	closed bool
}

// sessionMessage is a payload addressed to every subscriber of a session.
type sessionMessage struct {
	SessionID string
	Data      []byte
}

// Hub manages all subscriber connections.
type Hub struct {
	// Connections indexed by connection ID
	connections map[string]*Connection

	// Sessions maps session_id to set of connection IDs
	sessions map[string]map[string]bool

	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *sessionMessage
	drop       chan string
	done       chan struct{}

	mu sync.RWMutex
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		connections: make(map[string]*Connection),
		sessions:    make(map[string]map[string]bool),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		broadcast:   make(chan *sessionMessage, sendBuffer),
		drop:        make(chan string, sendBuffer),
		done:        make(chan struct{}),
	}
}

// Run processes registrations and broadcasts until ctx is cancelled. On exit
// every remaining connection is closed.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for id, conn := range h.connections {
				delete(h.connections, id)
				conn.closeSend()
			}
			h.sessions = make(map[string]map[string]bool)
			h.mu.Unlock()
			return

		case conn := <-h.register:
			h.mu.Lock()
			h.connections[conn.ID] = conn
			if h.sessions[conn.SessionID] == nil {
				h.sessions[conn.SessionID] = make(map[string]bool)
			}
			h.sessions[conn.SessionID][conn.ID] = true
			h.mu.Unlock()
			log.Printf("Subscriber registered: %s (session: %s)", conn.ID, conn.SessionID)

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.connections[conn.ID]; ok {
				h.removeLocked(conn)
			}
			h.mu.Unlock()

		case sessionID := <-h.drop:
			h.mu.Lock()
			n := 0
			for connID := range h.sessions[sessionID] {
				if conn, ok := h.connections[connID]; ok {
					h.removeLocked(conn)
					n++
				}
			}
			delete(h.sessions, sessionID)
			h.mu.Unlock()
			if n > 0 {
				log.Printf("Dropped %d subscriber(s) of expired session %s", n, sessionID)
			}

		case msg := <-h.broadcast:
			h.mu.RLock()
			for connID := range h.sessions[msg.SessionID] {
				conn, ok := h.connections[connID]
				if !ok {
					continue
				}
				if err := conn.trySend(msg.Data); errors.Is(err, ErrBufferFull) {
					log.Printf("WARN: subscriber %s buffer full, closing", connID)
					go h.Unregister(conn)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// removeLocked deletes conn from the indexes and closes its queue. h.mu must
// be held.
func (h *Hub) removeLocked(conn *Connection) {
	delete(h.connections, conn.ID)
	if set := h.sessions[conn.SessionID]; set != nil {
		delete(set, conn.ID)
		if len(set) == 0 {
			delete(h.sessions, conn.SessionID)
		}
	}
	conn.closeSend()
}

// NewConnection creates a connection subscribed to sessionID. It is not
// registered until Register is called.
func (h *Hub) NewConnection(ws *websocket.Conn, sessionID string) *Connection {
	return &Connection{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Conn:      ws,
		Send:      make(chan []byte, sendBuffer),
	}
}

// Register adds a connection to the hub.
func (h *Hub) Register(conn *Connection) {
	select {
	case h.register <- conn:
	case <-h.done:
		conn.closeSend()
	}
}

// Unregister removes a connection from the hub.
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// DropSession closes and removes every subscriber of sessionID.
func (h *Hub) DropSession(sessionID string) {
	select {
	case h.drop <- sessionID:
	case <-h.done:
	}
}

// Publish delivers an event to every current subscriber of sessionID. It is
// best-effort: nothing is queued for sessions without subscribers.
func (h *Hub) Publish(sessionID string, event domain.EventName, payload interface{}) {
	data, err := json.Marshal(protocol.Event{
		Type:      string(event),
		SessionID: sessionID,
		Ts:        time.Now().UnixMilli(),
		Data:      payload,
	})
	if err != nil {
		log.Printf("WARN: failed to encode %s event: %v", event, err)
		return
	}

	select {
	case h.broadcast <- &sessionMessage{SessionID: sessionID, Data: data}:
	case <-h.done:
	}
}

// SendJSON queues v for a single connection. It returns ErrConnectionClosed
// once the hub has removed the connection.
func (h *Hub) SendJSON(conn *Connection, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.trySend(data)
}

// ConnectionCount returns the number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// SessionCount returns the number of sessions with at least one subscriber.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// HasActiveConnections checks if a session has any subscriber.
func (h *Hub) HasActiveConnections(sessionID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID]) > 0
}

// trySend queues data without blocking.
func (c *Connection) trySend(data []byte) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return ErrConnectionClosed
	}
	select {
	case c.Send <- data:
		return nil
	default:
		return ErrBufferFull
	}
}

// closeSend closes the queue once; later calls are no-ops.
func (c *Connection) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

// WriteMessage writes a frame to the connection with proper locking.
func (c *Connection) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteMessage(messageType, data)
}

// SetWriteDeadline sets the write deadline for the connection.
func (c *Connection) SetWriteDeadline(t time.Time) error {
	return c.Conn.SetWriteDeadline(t)
}

// SetReadDeadline sets the read deadline for the connection.
func (c *Connection) SetReadDeadline(t time.Time) error {
	return c.Conn.SetReadDeadline(t)
}

// Close closes the underlying socket.
func (c *Connection) Close() error {
	return c.Conn.Close()
}
