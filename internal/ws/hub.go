// Package ws contains the broadcast bridge: a hub of open websocket
// sessions that relays aggregation events to every connected observer.
// One slow or broken session never blocks or fails another.
package ws

import (
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// Conn is the subset of *websocket.Conn the hub writes through.
// Narrowed to an interface so hub tests run without real connections.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// sendBuffer bounds the frames queued per session. A session that falls
// this far behind is considered broken and evicted.
const sendBuffer = 16

// Session is one attached streaming client. Writes are serialized by a
// dedicated writer goroutine per session.
type Session struct {
	conn Conn
	send chan []byte

	once sync.Once
	done chan struct{}
}

func newSession(conn Conn) *Session {
	return &Session{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
}

// close shuts the session down exactly once.
func (s *Session) close() {
	s.once.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}

// writeLoop drains the send queue onto the connection. A failed write
// ends the session.
func (s *Session) writeLoop(hub *Hub) {
	defer hub.Detach(s)
	for {
		select {
		case <-s.done:
			return
		case frame := <-s.send:
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				log.Printf("[ws] session write failed, detaching: %v", err)
				return
			}
		}
	}
}

// ─── Hub ────────────────────────────────────────────────────

// Hub maintains the concurrent set of open sessions.
type Hub struct {
	mu       sync.Mutex
	sessions map[*Session]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{sessions: make(map[*Session]struct{})}
}

// Attach registers conn as a new session and starts its writer.
func (h *Hub) Attach(conn Conn) *Session {
	s := newSession(conn)
	h.mu.Lock()
	h.sessions[s] = struct{}{}
	h.mu.Unlock()

	go s.writeLoop(h)
	return s
}

// Detach removes the session from the hub and closes it.
func (h *Hub) Detach(s *Session) {
	h.mu.Lock()
	delete(h.sessions, s)
	h.mu.Unlock()
	s.close()
}

// SessionCount returns the number of attached sessions.
func (h *Hub) SessionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Broadcast queues frame as a text message on every open session.
// Sessions whose queue is full are evicted rather than waited on, so
// the caller never blocks.
func (h *Hub) Broadcast(frame []byte) {
	h.mu.Lock()
	targets := make([]*Session, 0, len(h.sessions))
	for s := range h.sessions {
		targets = append(targets, s)
	}
	h.mu.Unlock()

	for _, s := range targets {
		select {
		case s.send <- frame:
		default:
			log.Printf("[ws] session send buffer full, detaching")
			h.Detach(s)
		}
	}
}

// Close detaches every session.
func (h *Hub) Close() {
	h.mu.Lock()
	targets := make([]*Session, 0, len(h.sessions))
	for s := range h.sessions {
		targets = append(targets, s)
	}
	h.sessions = make(map[*Session]struct{})
	h.mu.Unlock()

	for _, s := range targets {
		s.close()
	}
}
