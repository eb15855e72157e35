package ws

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/kzhou/parley/internal/auth"
	"github.com/kzhou/parley/internal/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWs authenticates the handshake and hands the connection to the hub.
// The bearer token travels in the ?token= query parameter (or, for clients
// that can set headers on the handshake, Authorization: Bearer). Invalid
// credentials are rejected before the upgrade; the connection is never
// registered on auth failure.
func ServeWs(hub *Hub, router *Router, tokens *auth.Tokens) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		}
		claims, err := tokens.Verify(token)
		if err != nil {
			http.Error(w, "Authentication error: Invalid token", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.L().Error().Err(err).Msg("websocket upgrade")
			return
		}

		client := NewClient(uuid.NewString(), claims.UserID, claims.Username, hub, conn)
		hub.Register(client)

		// Room membership must be in place before any inbound event is
		// processed; if it cannot be established the connection is useless.
		if err := hub.JoinUserChats(client); err != nil {
			logger.L().Error().Err(err).Int64("user_id", claims.UserID).Msg("join chats")
			hub.Unregister(client)
			conn.Close()
			return
		}

		go client.WritePump()
		go client.ReadPump(router.HandleEvent)
	}
}
