package websocket

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialTestServer(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()

	server := httptest.NewServer(ServeWS(hub))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var event Event
	require.NoError(t, json.Unmarshal(raw, &event))
	return event
}

func TestJoinOverSocket(t *testing.T) {
	hub := NewHub(nil)
	conn := dialTestServer(t, hub)

	err := conn.WriteJSON(map[string]interface{}{"type": "join", "payload": "user-42"})
	require.NoError(t, err)

	event := readEvent(t, conn)
	assert.Equal(t, "joined", event.Type)

	assert.Eventually(t, func() bool {
		return hub.RoomSize("user-42") == 1
	}, time.Second, 10*time.Millisecond)
}

func TestJoinWithObjectPayload(t *testing.T) {
	hub := NewHub(nil)
	conn := dialTestServer(t, hub)

	err := conn.WriteJSON(map[string]interface{}{
		"type":    "join",
		"payload": map[string]string{"userId": "user-7"},
	})
	require.NoError(t, err)

	event := readEvent(t, conn)
	assert.Equal(t, "joined", event.Type)
}

func TestPingPongEvent(t *testing.T) {
	hub := NewHub(nil)
	conn := dialTestServer(t, hub)

	err := conn.WriteJSON(map[string]string{"type": "ping"})
	require.NoError(t, err)

	event := readEvent(t, conn)
	assert.Equal(t, "pong", event.Type)
}

func TestPublishReachesSocket(t *testing.T) {
	hub := NewHub(nil)
	conn := dialTestServer(t, hub)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "join", "payload": "user-1"}))
	readEvent(t, conn) // joined ack

	hub.NotifyMessage([]string{"user-1"}, "conv-1", map[string]string{"text": "hello"})

	event := readEvent(t, conn)
	assert.Equal(t, "message", event.Type)
}

func TestDisconnectLeavesRoom(t *testing.T) {
	hub := NewHub(nil)
	conn := dialTestServer(t, hub)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "join", "payload": "user-1"}))
	readEvent(t, conn)

	conn.Close()

	assert.Eventually(t, func() bool {
		return hub.RoomSize("user-1") == 0
	}, time.Second, 10*time.Millisecond)
}
