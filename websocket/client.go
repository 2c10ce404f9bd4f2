package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	readLimit  = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is one live connection. It may join any number of rooms.
type Client struct {
	conn *websocket.Conn
	hub  *Hub
	send chan []byte

	mu    sync.Mutex
	rooms []string
}

func (c *Client) joined(room string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rooms = append(c.rooms, room)
}

func (c *Client) roomList() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.rooms...)
}

// ServeWS upgrades the request and starts the read/write pumps.
func ServeWS(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			zap.S().Warnf("websocket upgrade failed: %v", err)
			return
		}

		client := &Client{
			conn: conn,
			hub:  hub,
			send: make(chan []byte, 256),
		}

		go client.writePump()
		go client.readPump()
	}
}

type inboundEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Leave(c)
		close(c.send)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(readLimit)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				zap.S().Warnf("websocket read error: %v", err)
			}
			return
		}

		var event inboundEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			zap.S().Debugf("websocket event unmarshal error: %v", err)
			continue
		}

		switch event.Type {
		case "join":
			c.handleJoin(event.Payload)
		case "message":
			c.handleMessage(event.Payload)
		case "ping":
			c.sendEvent(Event{Type: "pong"})
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleJoin accepts either a bare user id string or {"userId": "..."}.
func (c *Client) handleJoin(payload json.RawMessage) {
	var userID string
	if err := json.Unmarshal(payload, &userID); err != nil {
		var body struct {
			UserID string `json:"userId"`
		}
		if err := json.Unmarshal(payload, &body); err != nil || body.UserID == "" {
			return
		}
		userID = body.UserID
	}
	if userID == "" {
		return
	}

	c.hub.Join(userID, c)
	c.sendEvent(Event{Type: "joined", Payload: map[string]string{"userId": userID}})
}

func (c *Client) handleMessage(payload json.RawMessage) {
	var body struct {
		ConversationID string          `json:"conversationId"`
		Message        json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(payload, &body); err != nil || body.ConversationID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := c.hub.FanOutMessage(ctx, body.ConversationID, body.Message); err != nil {
		zap.S().Warnf("message fan-out failed for conversation %s: %v", body.ConversationID, err)
	}
}

func (c *Client) sendEvent(e Event) {
	msg, err := json.Marshal(e)
	if err != nil {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}
