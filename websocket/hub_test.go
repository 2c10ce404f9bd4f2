package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient() *Client {
	return &Client{send: make(chan []byte, 4)}
}

func TestJoinAndPublish(t *testing.T) {
	hub := NewHub(nil)
	client := newTestClient()

	hub.Join("user-1", client)
	assert.Equal(t, 1, hub.RoomSize("user-1"))

	hub.Publish("user-1", []byte("hello"))

	select {
	case msg := <-client.send:
		assert.Equal(t, "hello", string(msg))
	default:
		t.Fatal("expected a message in the send buffer")
	}
}

func TestPublishToEmptyRoomIsNoop(t *testing.T) {
	hub := NewHub(nil)
	hub.Publish("nobody", []byte("hello"))
	assert.Equal(t, 0, hub.RoomSize("nobody"))
}

func TestLeaveRemovesFromAllRooms(t *testing.T) {
	hub := NewHub(nil)
	client := newTestClient()

	hub.Join("user-1", client)
	hub.Join("user-2", client)
	require.Equal(t, 1, hub.RoomSize("user-1"))
	require.Equal(t, 1, hub.RoomSize("user-2"))

	hub.Leave(client)

	assert.Equal(t, 0, hub.RoomSize("user-1"))
	assert.Equal(t, 0, hub.RoomSize("user-2"))
}

func TestSlowClientSkipsMessage(t *testing.T) {
	hub := NewHub(nil)
	client := &Client{send: make(chan []byte, 1)}

	hub.Join("user-1", client)
	hub.Publish("user-1", []byte("first"))
	hub.Publish("user-1", []byte("dropped"))

	msg := <-client.send
	assert.Equal(t, "first", string(msg))

	select {
	case extra := <-client.send:
		t.Fatalf("buffer should be drained, got %q", extra)
	default:
	}
}

func TestNotifyMessageFansOutToParticipants(t *testing.T) {
	hub := NewHub(nil)
	alice := newTestClient()
	bob := newTestClient()
	eve := newTestClient()

	hub.Join("alice", alice)
	hub.Join("bob", bob)
	hub.Join("eve", eve)

	hub.NotifyMessage([]string{"alice", "bob"}, "conv-1", map[string]string{"text": "hi"})

	for _, client := range []*Client{alice, bob} {
		select {
		case raw := <-client.send:
			var event struct {
				Type    string `json:"type"`
				Payload struct {
					ConversationID string `json:"conversationId"`
					Message        struct {
						Text string `json:"text"`
					} `json:"message"`
				} `json:"payload"`
			}
			require.NoError(t, json.Unmarshal(raw, &event))
			assert.Equal(t, "message", event.Type)
			assert.Equal(t, "conv-1", event.Payload.ConversationID)
			assert.Equal(t, "hi", event.Payload.Message.Text)
		default:
			t.Fatal("participant did not receive the event")
		}
	}

	select {
	case <-eve.send:
		t.Fatal("non-participant received the event")
	default:
	}
}

func TestFanOutMessageUsesParticipantLookup(t *testing.T) {
	alice := newTestClient()
	hub := NewHub(func(ctx context.Context, conversationID string) ([]string, error) {
		assert.Equal(t, "conv-9", conversationID)
		return []string{"alice"}, nil
	})
	hub.Join("alice", alice)

	err := hub.FanOutMessage(context.Background(), "conv-9", json.RawMessage(`{"text":"yo"}`))
	require.NoError(t, err)

	select {
	case raw := <-alice.send:
		assert.Contains(t, string(raw), `"conversationId":"conv-9"`)
		assert.Contains(t, string(raw), `"yo"`)
	default:
		t.Fatal("expected a fanned-out event")
	}
}

func TestFanOutMessageLookupError(t *testing.T) {
	hub := NewHub(func(ctx context.Context, conversationID string) ([]string, error) {
		return nil, errors.New("no such conversation")
	})

	err := hub.FanOutMessage(context.Background(), "missing", json.RawMessage(`{}`))
	assert.Error(t, err)
}
