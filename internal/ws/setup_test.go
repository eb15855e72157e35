package ws

import (
	"encoding/json"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kzhou/parley/internal/config"
	"github.com/kzhou/parley/internal/models"
	"github.com/kzhou/parley/internal/store/sqlstore"
)

// Tests drive the hub and router synchronously: clients are registered via
// onConnect instead of the Run loop, so every broadcast has already landed on
// the send channels when the call returns.

func newTestHub(t *testing.T) (*Hub, *Router, *sqlstore.SQLStore) {
	t.Helper()

	st, err := sqlstore.New("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	cfg := config.WebSocketConfig{
		PingInterval:   30 * time.Second,
		PongWait:       60 * time.Second,
		WriteWait:      10 * time.Second,
		MaxMessageSize: 1 << 16,
		SendBuffer:     32,
	}
	hub := NewHub(st, NewMemoryPresence(), cfg)
	return hub, NewRouter(hub, st), st
}

func seedUser(t *testing.T, st *sqlstore.SQLStore, username string) *models.User {
	t.Helper()
	user := &models.User{
		Name:     "Test " + username,
		Username: username,
		Email:    username + "@example.com",
		Password: "hashed",
	}
	if err := st.CreateUser(user); err != nil {
		t.Fatalf("Failed to create user %s: %v", username, err)
	}
	return user
}

func seedChat(t *testing.T, st *sqlstore.SQLStore, isGroup bool, adminID int64, userIDs ...int64) *models.Chat {
	t.Helper()
	chat := &models.Chat{IsGroupChat: isGroup, AdminID: adminID}
	if isGroup {
		chat.Name = "Test Group"
	}
	for _, id := range userIDs {
		chat.Participants = append(chat.Participants, models.User{ID: id})
	}
	if err := st.CreateChat(chat); err != nil {
		t.Fatalf("Failed to create chat: %v", err)
	}
	return chat
}

// connect registers a client and subscribes it to the user's chat rooms,
// mirroring what ServeWs does after the handshake.
func connect(t *testing.T, hub *Hub, user *models.User, connID string) *Client {
	t.Helper()
	c := NewClient(connID, user.ID, user.Username, hub, nil)
	hub.onConnect(c)
	if err := hub.JoinUserChats(c); err != nil {
		t.Fatalf("JoinUserChats failed: %v", err)
	}
	return c
}

// recv pops the next queued event off the client's send channel.
func recv(t *testing.T, c *Client) Envelope {
	t.Helper()
	select {
	case raw, ok := <-c.send:
		if !ok {
			t.Fatal("Send channel closed")
		}
		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("Failed to decode event %q: %v", raw, err)
		}
		return env
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for an event")
		return Envelope{}
	}
}

func recvEvent(t *testing.T, c *Client, event string) Envelope {
	t.Helper()
	env := recv(t, c)
	if env.Event != event {
		t.Fatalf("Expected event %q, got %q (%s)", event, env.Event, env.Data)
	}
	return env
}

func assertNoEvent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case raw := <-c.send:
		t.Errorf("Expected no event, got %s", raw)
	default:
	}
}

// drain discards everything queued so far, so tests start from a clean slate
// after the connection handshakes.
func drain(clients ...*Client) {
	for _, c := range clients {
		for len(c.send) > 0 {
			<-c.send
		}
	}
}

func decodePayload(t *testing.T, env Envelope, out any) {
	t.Helper()
	if err := json.Unmarshal(env.Data, out); err != nil {
		t.Fatalf("Failed to decode %s payload: %v", env.Event, err)
	}
}
