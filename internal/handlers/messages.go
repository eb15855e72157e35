package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/kzhou/parley/internal/logger"
	"github.com/kzhou/parley/internal/middleware"
	"github.com/kzhou/parley/internal/models"
	"github.com/kzhou/parley/internal/store"
)

// MessageHandler serves the request/response mirror of the live channel's
// mutations. It shares the Router's persistence contract but never pushes
// to connected clients; only live events reach the rooms.
type MessageHandler struct {
	Store store.Store
}

type sendMessageRequest struct {
	ChatID      int64  `json:"chatId"`
	Content     string `json:"content"`
	MessageType string `json:"messageType"`
	FileURL     string `json:"fileUrl"`
	FileName    string `json:"fileName"`
	FileSize    int64  `json:"fileSize"`
}

func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r)

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.MessageType == "" {
		req.MessageType = models.MessageTypeText
	}
	if msg := models.ValidateMessage(req.MessageType, req.Content, req.FileSize); msg != "" {
		sendError(w, http.StatusBadRequest, msg)
		return
	}

	chat, err := h.Store.GetChatByID(req.ChatID)
	if err != nil || !chat.HasParticipant(claims.UserID) {
		sendError(w, http.StatusNotFound, "Chat not found or you are not a participant")
		return
	}

	message := &models.Message{
		ChatID:      req.ChatID,
		SenderID:    claims.UserID,
		MessageType: req.MessageType,
		Content:     req.Content,
		FileURL:     req.FileURL,
		FileName:    req.FileName,
		FileSize:    req.FileSize,
	}
	if err := h.Store.CreateMessage(message); err != nil {
		logger.L().Error().Err(err).Msg("create message")
		sendError(w, http.StatusInternalServerError, "Error sending message")
		return
	}
	if err := h.Store.SetLastMessage(req.ChatID, message.ID); err != nil {
		logger.L().Error().Err(err).Int64("chat_id", req.ChatID).Msg("set last message")
	}

	populated, err := h.Store.GetMessageByID(message.ID)
	if err != nil {
		sendError(w, http.StatusInternalServerError, "Error sending message")
		return
	}
	sendSuccess(w, http.StatusCreated, populated, "Message sent successfully")
}

func (h *MessageHandler) ListForChat(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r)

	chatID, err := strconv.ParseInt(mux.Vars(r)["chatId"], 10, 64)
	if err != nil {
		sendError(w, http.StatusBadRequest, "Invalid ID format")
		return
	}

	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 50)
	if limit > 100 {
		limit = 100
	}

	if ok, err := h.Store.IsParticipant(chatID, claims.UserID); err != nil || !ok {
		sendError(w, http.StatusNotFound, "Chat not found or you are not a participant")
		return
	}

	messages, total, err := h.Store.GetChatMessages(chatID, page, limit)
	if err != nil {
		sendError(w, http.StatusInternalServerError, "Error fetching messages")
		return
	}
	if messages == nil {
		messages = []models.Message{}
	}

	sendSuccess(w, http.StatusOK, map[string]any{
		"messages":   messages,
		"pagination": NewPagination(page, limit, total),
	}, "")
}

type editMessageRequest struct {
	Content string `json:"content"`
}

func (h *MessageHandler) Edit(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r)

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		sendError(w, http.StatusBadRequest, "Invalid ID format")
		return
	}

	var req editMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Content == "" {
		sendError(w, http.StatusBadRequest, "Message content is required")
		return
	}
	if len(req.Content) > models.MaxContentLength {
		sendError(w, http.StatusBadRequest, "Message content cannot exceed 5000 characters")
		return
	}

	message, err := h.Store.GetMessageByID(id)
	if err != nil || message.SenderID != claims.UserID || message.IsDeleted {
		sendError(w, http.StatusNotFound, "Message not found or you are not the sender")
		return
	}
	if message.MessageType != models.MessageTypeText {
		sendError(w, http.StatusBadRequest, "Only text messages can be edited")
		return
	}

	if err := h.Store.EditMessage(id, req.Content); err != nil {
		sendError(w, http.StatusInternalServerError, "Error editing message")
		return
	}

	updated, err := h.Store.GetMessageByID(id)
	if err != nil {
		sendError(w, http.StatusInternalServerError, "Error editing message")
		return
	}
	sendSuccess(w, http.StatusOK, updated, "Message edited successfully")
}

func (h *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r)

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		sendError(w, http.StatusBadRequest, "Invalid ID format")
		return
	}

	message, err := h.Store.GetMessageByID(id)
	if err != nil || message.SenderID != claims.UserID {
		sendError(w, http.StatusNotFound, "Message not found or you are not the sender")
		return
	}

	if err := h.Store.SoftDeleteMessage(id); err != nil {
		sendError(w, http.StatusInternalServerError, "Error deleting message")
		return
	}
	sendSuccess(w, http.StatusOK, nil, "Message deleted successfully")
}

func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r)

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		sendError(w, http.StatusBadRequest, "Invalid ID format")
		return
	}

	message, err := h.Store.GetMessageByID(id)
	if err != nil {
		sendError(w, http.StatusNotFound, "Message not found")
		return
	}

	if ok, err := h.Store.IsParticipant(message.ChatID, claims.UserID); err != nil || !ok {
		sendError(w, http.StatusForbidden, "You are not a participant of this chat")
		return
	}

	if _, err := h.Store.MarkMessageRead(id, claims.UserID); err != nil {
		sendError(w, http.StatusInternalServerError, "Error marking message as read")
		return
	}

	updated, err := h.Store.GetMessageByID(id)
	if err != nil {
		sendError(w, http.StatusInternalServerError, "Error marking message as read")
		return
	}
	sendSuccess(w, http.StatusOK, updated, "Message marked as read")
}

func (h *MessageHandler) MarkChatRead(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r)

	chatID, err := strconv.ParseInt(mux.Vars(r)["chatId"], 10, 64)
	if err != nil {
		sendError(w, http.StatusBadRequest, "Invalid ID format")
		return
	}

	if ok, err := h.Store.IsParticipant(chatID, claims.UserID); err != nil || !ok {
		sendError(w, http.StatusNotFound, "Chat not found or you are not a participant")
		return
	}

	if err := h.Store.MarkChatMessagesRead(chatID, claims.UserID); err != nil {
		sendError(w, http.StatusInternalServerError, "Error marking messages as read")
		return
	}
	sendSuccess(w, http.StatusOK, nil, "All messages marked as read")
}

func queryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v < 1 {
		return def
	}
	return v
}
