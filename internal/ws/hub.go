package ws

import (
	"encoding/json"
	"sync"

	"github.com/kzhou/parley/internal/config"
	"github.com/kzhou/parley/internal/logger"
	"github.com/kzhou/parley/internal/store"
)

// Hub owns every live connection and the room subscriptions used to fan
// events out per chat. Connection lifecycle (presence, online flags, the
// user:online/user:offline broadcasts) is handled here; event semantics
// live in the Router.
type Hub struct {
	store    store.Store
	presence Presence
	cfg      config.WebSocketConfig

	mu      sync.RWMutex
	clients map[string]*Client           // connID -> client
	rooms   map[int64]map[string]*Client // chatID -> connID -> client

	register   chan *Client
	unregister chan *Client
}

func NewHub(st store.Store, presence Presence, cfg config.WebSocketConfig) *Hub {
	return &Hub{
		store:      st,
		presence:   presence,
		cfg:        cfg,
		clients:    make(map[string]*Client),
		rooms:      make(map[int64]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.onConnect(client)
		case client := <-h.unregister:
			h.onDisconnect(client)
		}
	}
}

func (h *Hub) Register(client *Client)   { h.register <- client }
func (h *Hub) Unregister(client *Client) { h.unregister <- client }

func (h *Hub) onConnect(client *Client) {
	h.mu.Lock()
	h.clients[client.ID] = client
	h.mu.Unlock()

	h.presence.Connect(client.UserID, client.ID)

	// Persist first, broadcast second.
	if err := h.store.SetOnlineStatus(client.UserID, true); err != nil {
		logger.L().Error().Err(err).Int64("user_id", client.UserID).Msg("persist online status")
		return
	}
	h.BroadcastAll(EventUserOnline, userOnlinePayload{UserID: client.UserID, SocketID: client.ID})
	logger.L().Info().Int64("user_id", client.UserID).Str("conn_id", client.ID).Msg("user connected")
}

// onDisconnect is safe to run twice for the same client; the second pass
// finds nothing to remove.
func (h *Hub) onDisconnect(client *Client) {
	h.mu.Lock()
	_, known := h.clients[client.ID]
	if known {
		delete(h.clients, client.ID)
		for chatID, members := range h.rooms {
			delete(members, client.ID)
			if len(members) == 0 {
				delete(h.rooms, chatID)
			}
		}
		close(client.send)
	}
	h.mu.Unlock()
	if !known {
		return
	}

	// A stale disconnect (user already reconnected elsewhere) must not
	// flip the user offline.
	if !h.presence.Disconnect(client.UserID, client.ID) {
		return
	}

	if err := h.store.SetOnlineStatus(client.UserID, false); err != nil {
		logger.L().Error().Err(err).Int64("user_id", client.UserID).Msg("persist offline status")
		return
	}
	h.BroadcastAll(EventUserOffline, userOfflinePayload{UserID: client.UserID})
	logger.L().Info().Int64("user_id", client.UserID).Str("conn_id", client.ID).Msg("user disconnected")
}

// JoinUserChats subscribes the connection to a room per chat the user
// participates in. Must succeed before any inbound event is processed;
// the caller closes the connection on error.
func (h *Hub) JoinUserChats(client *Client) error {
	chats, err := h.store.GetUserChats(client.UserID)
	if err != nil {
		return err
	}
	for _, chat := range chats {
		h.JoinRoom(client, chat.ID)
	}
	return nil
}

func (h *Hub) JoinRoom(client *Client, chatID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[chatID]; !ok {
		h.rooms[chatID] = make(map[string]*Client)
	}
	h.rooms[chatID][client.ID] = client
}

func (h *Hub) LeaveRoom(client *Client, chatID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.rooms[chatID]; ok {
		delete(members, client.ID)
		if len(members) == 0 {
			delete(h.rooms, chatID)
		}
	}
}

// BroadcastToRoom fans an event out to every connection subscribed to the
// chat's room, except excludeConnID (empty string excludes no one).
func (h *Hub) BroadcastToRoom(chatID int64, event string, data any, excludeConnID string) {
	payload, err := json.Marshal(outbound{Event: event, Data: data})
	if err != nil {
		logger.L().Error().Err(err).Str("event", event).Msg("marshal broadcast")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for connID, client := range h.rooms[chatID] {
		if connID == excludeConnID {
			continue
		}
		h.deliver(client, payload)
	}
}

// BroadcastAll sends an event to every live connection.
func (h *Hub) BroadcastAll(event string, data any) {
	payload, err := json.Marshal(outbound{Event: event, Data: data})
	if err != nil {
		logger.L().Error().Err(err).Str("event", event).Msg("marshal broadcast")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		h.deliver(client, payload)
	}
}

// deliver queues without blocking; a connection that cannot keep up is
// dropped. Caller holds at least a read lock.
func (h *Hub) deliver(client *Client, payload []byte) {
	select {
	case client.send <- payload:
	default:
		go func() { h.unregister <- client }()
	}
}
