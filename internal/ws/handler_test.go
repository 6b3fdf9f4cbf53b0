package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiva/pnrview/internal/eventbus"
)

func dialTestServer(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/pnr"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	return conn
}

// Two attached clients each receive one frame per published event,
// relayed from the bus through the hub.
func TestHandler_FanOutToAllClients(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	bus := eventbus.New(16)
	defer bus.Close()
	bus.Subscribe("pnr.fetched", func(ev eventbus.Event) {
		hub.Broadcast(ev.Body)
	})

	router := mux.NewRouter()
	router.HandleFunc("/ws/pnr", NewHandler(hub, 0, 0).Serve).Methods(http.MethodGet)
	srv := httptest.NewServer(router)
	defer srv.Close()

	c1 := dialTestServer(t, srv)
	defer c1.Close()
	c2 := dialTestServer(t, srv)
	defer c2.Close()

	waitFor(t, func() bool { return hub.SessionCount() == 2 })

	bus.Publish("pnr.fetched", json.RawMessage(
		`{"pnr":"GHTW42","status":"SUCCESS","timestamp":1718000000000}`))

	for _, conn := range []*websocket.Conn{c1, c2} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		msgType, frame, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, websocket.TextMessage, msgType)

		var body struct {
			PNR       string `json:"pnr"`
			Status    string `json:"status"`
			Timestamp int64  `json:"timestamp"`
		}
		require.NoError(t, json.Unmarshal(frame, &body))
		assert.Equal(t, "GHTW42", body.PNR)
		assert.Equal(t, "SUCCESS", body.Status)
		assert.Positive(t, body.Timestamp)
	}
}

// Inbound frames from clients are discarded and do not disturb the
// server-push stream.
func TestHandler_InboundFramesIgnored(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	router := mux.NewRouter()
	router.HandleFunc("/ws/pnr", NewHandler(hub, 0, 0).Serve).Methods(http.MethodGet)
	srv := httptest.NewServer(router)
	defer srv.Close()

	conn := dialTestServer(t, srv)
	defer conn.Close()
	waitFor(t, func() bool { return hub.SessionCount() == 1 })

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("hello?")))

	hub.Broadcast([]byte(`{"pnr":"GHTW42","status":"SUCCESS"}`))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, frame, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"pnr":"GHTW42","status":"SUCCESS"}`, string(frame))
}

// A client disconnect detaches its session from the hub.
func TestHandler_DisconnectDetaches(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	router := mux.NewRouter()
	router.HandleFunc("/ws/pnr", NewHandler(hub, 0, 0).Serve).Methods(http.MethodGet)
	srv := httptest.NewServer(router)
	defer srv.Close()

	conn := dialTestServer(t, srv)
	waitFor(t, func() bool { return hub.SessionCount() == 1 })

	conn.Close()
	waitFor(t, func() bool { return hub.SessionCount() == 0 })
}
