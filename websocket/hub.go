package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// ParticipantsFunc resolves a conversation id to its participant user ids.
// The hub is wired to a store lookup at startup.
type ParticipantsFunc func(ctx context.Context, conversationID string) ([]string, error)

// Hub is the connection registry of the real-time layer. A room is keyed by
// a user id and holds every live connection that joined as that user.
type Hub struct {
	mu           sync.RWMutex
	rooms        map[string]map[*Client]struct{}
	participants ParticipantsFunc
}

func NewHub(participants ParticipantsFunc) *Hub {
	return &Hub{
		rooms:        make(map[string]map[*Client]struct{}),
		participants: participants,
	}
}

// Join subscribes a connection to the room keyed by userID.
func (h *Hub) Join(userID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[userID]; !ok {
		h.rooms[userID] = make(map[*Client]struct{})
	}
	h.rooms[userID][c] = struct{}{}
	c.joined(userID)
}

// Leave drops the connection from every room it joined. Called on
// disconnect.
func (h *Hub) Leave(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, room := range c.roomList() {
		if members, ok := h.rooms[room]; ok {
			delete(members, c)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
}

// Publish sends msg to every connection in the user's room. Emits are
// fire-and-forget; a connection with a full send buffer skips the message.
func (h *Hub) Publish(userID string, msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[userID] {
		select {
		case c.send <- msg:
		default:
		}
	}
}

// RoomSize reports how many connections joined the user's room.
func (h *Hub) RoomSize(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[userID])
}

// NotifyMessage publishes a message event to each participant's room. The
// REST send-message handler calls this after persisting, which keeps the
// socket layer a pure notification fan-out.
func (h *Hub) NotifyMessage(participants []string, conversationID string, message interface{}) {
	msg, err := json.Marshal(Event{
		Type: "message",
		Payload: messagePayload{
			ConversationID: conversationID,
			Message:        message,
		},
	})
	if err != nil {
		zap.S().Errorf("marshal message event: %v", err)
		return
	}
	for _, p := range participants {
		h.Publish(p, msg)
	}
}

// FanOutMessage handles the client "message" event: load the conversation's
// participants and re-emit the payload to each participant's room.
func (h *Hub) FanOutMessage(ctx context.Context, conversationID string, message json.RawMessage) error {
	participants, err := h.participants(ctx, conversationID)
	if err != nil {
		return err
	}
	h.NotifyMessage(participants, conversationID, message)
	return nil
}

// Event is the wire envelope on the socket, both directions.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

type messagePayload struct {
	ConversationID string      `json:"conversationId"`
	Message        interface{} `json:"message"`
}
