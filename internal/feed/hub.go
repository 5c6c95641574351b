// Package feed fans step events out to WebSocket observers watching a
// session.
package feed

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/gethired/jobagents/internal/stream"
)

// Frame is the wire shape of one published event.
type Frame struct {
	Type       string                 `json:"type"`
	SessionID  string                 `json:"session_id"`
	Author     string                 `json:"author,omitempty"`
	Text       string                 `json:"text,omitempty"`
	StateDelta map[string]interface{} `json:"state_delta,omitempty"`
	Final      bool                   `json:"final,omitempty"`
	Ts         int64                  `json:"ts,omitempty"`
}

const (
	FrameTypeStep  = "step"
	FrameTypeState = "state"
	FrameTypeFinal = "final"
)

// Connection is one observer socket bound to a session.
type Connection struct {
	ID        string
	SessionID string
	Conn      *websocket.Conn
	Send      chan []byte

	mu sync.Mutex
}

// WriteMessage serializes writes on the underlying socket.
func (c *Connection) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteMessage(messageType, data)
}

// Close closes the underlying socket.
func (c *Connection) Close() error {
	return c.Conn.Close()
}

// Hub indexes observer connections by session id and broadcasts frames to
// them.
type Hub struct {
	mu          sync.RWMutex
	connections map[string]*Connection
	sessions    map[string]map[string]bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		connections: make(map[string]*Connection),
		sessions:    make(map[string]map[string]bool),
	}
}

// Register attaches a socket to the hub under a session.
func (h *Hub) Register(ws *websocket.Conn, sessionID string) *Connection {
	conn := &Connection{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Conn:      ws,
		Send:      make(chan []byte, 256),
	}

	h.mu.Lock()
	h.connections[conn.ID] = conn
	if h.sessions[sessionID] == nil {
		h.sessions[sessionID] = make(map[string]bool)
	}
	h.sessions[sessionID][conn.ID] = true
	h.mu.Unlock()

	logrus.WithFields(logrus.Fields{"connection": conn.ID, "session_id": sessionID}).Debug("observer registered")
	return conn
}

// Unregister detaches a connection and closes its send channel.
func (h *Hub) Unregister(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.connections[conn.ID]; !ok {
		return
	}
	delete(h.connections, conn.ID)
	if set := h.sessions[conn.SessionID]; set != nil {
		delete(set, conn.ID)
		if len(set) == 0 {
			delete(h.sessions, conn.SessionID)
		}
	}
	close(conn.Send)
}

// Publish converts a step event into a frame and broadcasts it to every
// observer of the session. Implements the task manager's feed hook.
func (h *Hub) Publish(sessionID string, ev stream.Event) {
	frame := Frame{
		Type:       FrameTypeStep,
		SessionID:  sessionID,
		Author:     ev.Author,
		Final:      ev.Final,
		Ts:         ev.Ts,
		StateDelta: ev.StateDelta,
	}
	if ev.Content != nil {
		frame.Text = ev.Content.Text()
	}
	if len(ev.StateDelta) > 0 {
		frame.Type = FrameTypeState
	}
	if ev.Final {
		frame.Type = FrameTypeFinal
	}
	h.BroadcastJSON(sessionID, frame)
}

// Broadcast sends raw bytes to every observer of a session. Observers with a
// full buffer are dropped.
func (h *Hub) Broadcast(sessionID string, data []byte) {
	h.mu.RLock()
	var stale []*Connection
	for connID := range h.sessions[sessionID] {
		conn := h.connections[connID]
		if conn == nil {
			continue
		}
		select {
		case conn.Send <- data:
		default:
			logrus.WithField("connection", connID).Warn("observer buffer full, dropping connection")
			stale = append(stale, conn)
		}
	}
	h.mu.RUnlock()

	for _, conn := range stale {
		h.Unregister(conn)
	}
}

// BroadcastJSON marshals v and broadcasts it to a session.
func (h *Hub) BroadcastJSON(sessionID string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(sessionID, data)
	return nil
}

// ObserverCount reports how many sockets watch a session.
func (h *Hub) ObserverCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}
