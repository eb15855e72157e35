package ws

import "encoding/json"

// Inbound event names (connection → server).
const (
	EventMessageSend   = "message:send"
	EventMessageEdit   = "message:edit"
	EventMessageDelete = "message:delete"
	EventMessageRead   = "message:read"
	EventTypingStart   = "typing:start"
	EventTypingStop    = "typing:stop"
	EventChatJoin      = "chat:join"
	EventChatLeave     = "chat:leave"
)

// Outbound event names (server → connection(s)).
const (
	EventUserOnline     = "user:online"
	EventUserOffline    = "user:offline"
	EventMessageNew     = "message:new"
	EventMessageEdited  = "message:edited"
	EventMessageDeleted = "message:deleted"
	EventMessageReadFan = "message:read"
	EventTypingUser     = "typing:user"
	EventError          = "error"
)

// Envelope is the wire framing for both directions: an event name plus a
// JSON payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type sendPayload struct {
	ChatID      int64  `json:"chatId"`
	Content     string `json:"content"`
	MessageType string `json:"messageType"`
	FileURL     string `json:"fileUrl"`
	FileName    string `json:"fileName"`
	FileSize    int64  `json:"fileSize"`
}

type editPayload struct {
	MessageID int64  `json:"messageId"`
	Content   string `json:"content"`
	ChatID    int64  `json:"chatId"`
}

type messageRefPayload struct {
	MessageID int64 `json:"messageId"`
	ChatID    int64 `json:"chatId"`
}

type chatRefPayload struct {
	ChatID int64 `json:"chatId"`
}

type userOnlinePayload struct {
	UserID   int64  `json:"userId"`
	SocketID string `json:"socketId"`
}

type userOfflinePayload struct {
	UserID int64 `json:"userId"`
}

type messageDeletedPayload struct {
	MessageID int64 `json:"messageId"`
	ChatID    int64 `json:"chatId"`
}

type messageReadPayload struct {
	MessageID int64 `json:"messageId"`
	UserID    int64 `json:"userId"`
	ChatID    int64 `json:"chatId"`
}

type typingPayload struct {
	ChatID   int64 `json:"chatId"`
	UserID   int64 `json:"userId"`
	IsTyping bool  `json:"isTyping"`
}

type errorPayload struct {
	Message string `json:"message"`
}
