package ws

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

// Handler upgrades HTTP requests on the streaming endpoint and attaches
// each connection to the hub. The server only pushes frames; anything a
// client sends is read and discarded.
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewHandler creates the websocket handler with the given frame buffers.
func NewHandler(hub *Hub, readBuffer, writeBuffer int) *Handler {
	if readBuffer <= 0 {
		readBuffer = 1024
	}
	if writeBuffer <= 0 {
		writeBuffer = 1024
	}
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  readBuffer,
			WriteBufferSize: writeBuffer,
			// Streaming is read-only and unauthenticated; allow any origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Serve handles GET /ws/pnr.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed: %v", err)
		return
	}

	session := h.hub.Attach(conn)
	log.Printf("[ws] session attached (%d open)", h.hub.SessionCount())

	// Drain inbound frames until the client goes away. Received frames
	// are ignored; the read loop only detects disconnects.
	go func() {
		defer func() {
			h.hub.Detach(session)
			log.Printf("[ws] session detached (%d open)", h.hub.SessionCount())
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
