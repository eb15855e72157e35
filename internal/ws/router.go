package ws

import (
	"encoding/json"

	"github.com/kzhou/parley/internal/logger"
	"github.com/kzhou/parley/internal/models"
	"github.com/kzhou/parley/internal/store"
)

// Router validates, persists, and fans out every inbound live event.
// Every mutating event re-checks participant/sender identity against the
// persisted entity; client-supplied ids are never trusted on their own.
// Persistence always completes before anything is broadcast, and failures
// are reported only to the originating connection.
type Router struct {
	hub   *Hub
	store store.Store
}

func NewRouter(hub *Hub, st store.Store) *Router {
	return &Router{hub: hub, store: st}
}

// HandleEvent is the single entry point wired into each client's read pump.
func (rt *Router) HandleEvent(c *Client, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.SendError("Invalid event payload")
		return
	}

	switch env.Event {
	case EventMessageSend:
		rt.handleSend(c, env.Data)
	case EventMessageEdit:
		rt.handleEdit(c, env.Data)
	case EventMessageDelete:
		rt.handleDelete(c, env.Data)
	case EventMessageRead:
		rt.handleRead(c, env.Data)
	case EventTypingStart:
		rt.handleTyping(c, env.Data, true)
	case EventTypingStop:
		rt.handleTyping(c, env.Data, false)
	case EventChatJoin:
		rt.handleJoin(c, env.Data)
	case EventChatLeave:
		rt.handleLeave(c, env.Data)
	default:
		c.SendError("Unknown event: " + env.Event)
	}
}

func (rt *Router) handleSend(c *Client, data json.RawMessage) {
	var p sendPayload
	if err := json.Unmarshal(data, &p); err != nil {
		c.SendError("Invalid event payload")
		return
	}
	if p.MessageType == "" {
		p.MessageType = models.MessageTypeText
	}
	if msg := models.ValidateMessage(p.MessageType, p.Content, p.FileSize); msg != "" {
		c.SendError(msg)
		return
	}

	chat, err := rt.store.GetChatByID(p.ChatID)
	if err != nil || !chat.HasParticipant(c.UserID) {
		c.SendError("Chat not found or access denied")
		return
	}

	message := &models.Message{
		ChatID:      p.ChatID,
		SenderID:    c.UserID,
		MessageType: p.MessageType,
		Content:     p.Content,
		FileURL:     p.FileURL,
		FileName:    p.FileName,
		FileSize:    p.FileSize,
	}
	if err := rt.store.CreateMessage(message); err != nil {
		logger.L().Error().Err(err).Int64("chat_id", p.ChatID).Msg("create message")
		c.SendError("Error sending message")
		return
	}
	if err := rt.store.SetLastMessage(p.ChatID, message.ID); err != nil {
		logger.L().Error().Err(err).Int64("chat_id", p.ChatID).Msg("set last message")
	}

	populated, err := rt.store.GetMessageByID(message.ID)
	if err != nil {
		c.SendError("Error sending message")
		return
	}
	rt.hub.BroadcastToRoom(p.ChatID, EventMessageNew, populated, "")
}

func (rt *Router) handleEdit(c *Client, data json.RawMessage) {
	var p editPayload
	if err := json.Unmarshal(data, &p); err != nil {
		c.SendError("Invalid event payload")
		return
	}
	if p.Content == "" || len(p.Content) > models.MaxContentLength {
		c.SendError("Message content is required")
		return
	}

	message, err := rt.store.GetMessageByID(p.MessageID)
	if err != nil || message.SenderID != c.UserID || message.IsDeleted {
		c.SendError("Message not found or access denied")
		return
	}
	if message.MessageType != models.MessageTypeText {
		c.SendError("Only text messages can be edited")
		return
	}

	if err := rt.store.EditMessage(p.MessageID, p.Content); err != nil {
		c.SendError("Error editing message")
		return
	}

	updated, err := rt.store.GetMessageByID(p.MessageID)
	if err != nil {
		c.SendError("Error editing message")
		return
	}
	rt.hub.BroadcastToRoom(message.ChatID, EventMessageEdited, updated, "")
}

func (rt *Router) handleDelete(c *Client, data json.RawMessage) {
	var p messageRefPayload
	if err := json.Unmarshal(data, &p); err != nil {
		c.SendError("Invalid event payload")
		return
	}

	message, err := rt.store.GetMessageByID(p.MessageID)
	if err != nil || message.SenderID != c.UserID {
		c.SendError("Message not found or access denied")
		return
	}

	if err := rt.store.SoftDeleteMessage(p.MessageID); err != nil {
		c.SendError("Error deleting message")
		return
	}
	rt.hub.BroadcastToRoom(message.ChatID, EventMessageDeleted,
		messageDeletedPayload{MessageID: message.ID, ChatID: message.ChatID}, "")
}

func (rt *Router) handleRead(c *Client, data json.RawMessage) {
	var p messageRefPayload
	if err := json.Unmarshal(data, &p); err != nil {
		c.SendError("Invalid event payload")
		return
	}

	message, err := rt.store.GetMessageByID(p.MessageID)
	if err != nil {
		c.SendError("Message not found")
		return
	}

	// Room access follows the chat recorded on the message, not the
	// client-supplied chat id.
	ok, err := rt.store.IsParticipant(message.ChatID, c.UserID)
	if err != nil || !ok {
		c.SendError("You are not a participant of this chat")
		return
	}

	added, err := rt.store.MarkMessageRead(message.ID, c.UserID)
	if err != nil {
		c.SendError("Error marking message as read")
		return
	}
	if !added {
		// Already read; idempotent, no second receipt.
		return
	}
	rt.hub.BroadcastToRoom(message.ChatID, EventMessageReadFan,
		messageReadPayload{MessageID: message.ID, UserID: c.UserID, ChatID: message.ChatID}, "")
}

// Typing indicators are fire-and-forget: nothing is persisted and only
// connection liveness is required. The sender is excluded from the fan-out.
func (rt *Router) handleTyping(c *Client, data json.RawMessage, isTyping bool) {
	var p chatRefPayload
	if err := json.Unmarshal(data, &p); err != nil {
		c.SendError("Invalid event payload")
		return
	}
	rt.hub.BroadcastToRoom(p.ChatID, EventTypingUser,
		typingPayload{ChatID: p.ChatID, UserID: c.UserID, IsTyping: isTyping}, c.ID)
}

func (rt *Router) handleJoin(c *Client, data json.RawMessage) {
	var p chatRefPayload
	if err := json.Unmarshal(data, &p); err != nil {
		c.SendError("Invalid event payload")
		return
	}

	// Membership is re-checked here so a connection cannot subscribe to a
	// room for a chat it does not belong to.
	ok, err := rt.store.IsParticipant(p.ChatID, c.UserID)
	if err != nil || !ok {
		c.SendError("Chat not found or access denied")
		return
	}
	rt.hub.JoinRoom(c, p.ChatID)
}

func (rt *Router) handleLeave(c *Client, data json.RawMessage) {
	var p chatRefPayload
	if err := json.Unmarshal(data, &p); err != nil {
		c.SendError("Invalid event payload")
		return
	}
	rt.hub.LeaveRoom(c, p.ChatID)
}
