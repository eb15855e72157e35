package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/kzhou/parley/internal/logger"
	"github.com/kzhou/parley/internal/middleware"
	"github.com/kzhou/parley/internal/models"
	"github.com/kzhou/parley/internal/store"
)

type ChatHandler struct {
	Store store.Store
}

type createChatRequest struct {
	Participants []int64 `json:"participants"`
	IsGroupChat  bool    `json:"isGroupChat"`
	Name         string  `json:"name"`
}

func (h *ChatHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r)

	var req createChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Participants) < 1 {
		sendError(w, http.StatusBadRequest, "Participants must be an array with at least one user")
		return
	}

	// Caller is always a member; drop duplicates while keeping order.
	ids := dedupeIDs(append([]int64{claims.UserID}, req.Participants...))

	if len(ids) < 2 {
		sendError(w, http.StatusBadRequest, "A chat must have at least 2 participants")
		return
	}
	if req.IsGroupChat && len(ids) < 3 {
		sendError(w, http.StatusBadRequest, "A group chat must have at least 3 participants")
		return
	}

	// One-on-one chats are deduplicated: return the existing chat instead
	// of creating a second one for the same pair.
	if !req.IsGroupChat && len(ids) == 2 {
		if existing, err := h.Store.FindDirectChat(ids[0], ids[1]); err == nil {
			sendSuccess(w, http.StatusOK, existing, "Chat already exists")
			return
		} else if !errors.Is(err, store.ErrNotFound) {
			sendError(w, http.StatusInternalServerError, "Error creating chat")
			return
		}
	}

	chat := &models.Chat{IsGroupChat: req.IsGroupChat}
	for _, id := range ids {
		chat.Participants = append(chat.Participants, models.User{ID: id})
	}
	if req.IsGroupChat {
		chat.AdminID = claims.UserID
		chat.Name = strings.TrimSpace(req.Name)
		if chat.Name == "" {
			chat.Name = "New Group"
		}
	}

	if err := h.Store.CreateChat(chat); err != nil {
		logger.L().Error().Err(err).Msg("create chat")
		sendError(w, http.StatusInternalServerError, "Error creating chat")
		return
	}

	created, err := h.Store.GetChatByID(chat.ID)
	if err != nil {
		sendError(w, http.StatusInternalServerError, "Error creating chat")
		return
	}
	sendSuccess(w, http.StatusCreated, created, "Chat created successfully")
}

func (h *ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r)
	chats, err := h.Store.GetUserChats(claims.UserID)
	if err != nil {
		sendError(w, http.StatusInternalServerError, "Error fetching chats")
		return
	}
	sendSuccess(w, http.StatusOK, chats, "")
}

func (h *ChatHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r)
	chat, ok := h.loadChatForParticipant(w, r, claims.UserID)
	if !ok {
		return
	}
	sendSuccess(w, http.StatusOK, chat, "")
}

type updateChatRequest struct {
	Name string `json:"name"`
}

func (h *ChatHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r)
	chat, ok := h.loadChatForParticipant(w, r, claims.UserID)
	if !ok {
		return
	}

	if chat.IsGroupChat && chat.AdminID != claims.UserID {
		sendError(w, http.StatusForbidden, "Only group admin can update chat")
		return
	}

	var req updateChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		if len(name) > 100 {
			sendError(w, http.StatusBadRequest, "Chat name cannot exceed 100 characters")
			return
		}
		if err := h.Store.RenameChat(chat.ID, name); err != nil {
			sendError(w, http.StatusInternalServerError, "Error updating chat")
			return
		}
	}

	updated, err := h.Store.GetChatByID(chat.ID)
	if err != nil {
		sendError(w, http.StatusInternalServerError, "Error updating chat")
		return
	}
	sendSuccess(w, http.StatusOK, updated, "Chat updated successfully")
}

func (h *ChatHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r)
	chat, ok := h.loadChatForParticipant(w, r, claims.UserID)
	if !ok {
		return
	}

	if chat.IsGroupChat && chat.AdminID != claims.UserID {
		sendError(w, http.StatusForbidden, "Only group admin can delete chat")
		return
	}

	if err := h.Store.DeleteChat(chat.ID); err != nil {
		sendError(w, http.StatusInternalServerError, "Error deleting chat")
		return
	}
	sendSuccess(w, http.StatusOK, nil, "Chat deleted successfully")
}

type addParticipantRequest struct {
	UserID int64 `json:"userId"`
}

func (h *ChatHandler) AddParticipant(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r)
	chat, ok := h.loadChatForParticipant(w, r, claims.UserID)
	if !ok {
		return
	}

	if !chat.IsGroupChat {
		sendError(w, http.StatusBadRequest, "Cannot add participants to one-on-one chat")
		return
	}
	if chat.AdminID != claims.UserID {
		sendError(w, http.StatusForbidden, "Only group admin can add participants")
		return
	}

	var req addParticipantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if _, err := h.Store.GetUserByID(req.UserID); err != nil {
		sendError(w, http.StatusNotFound, "User not found")
		return
	}

	if err := h.Store.AddParticipant(chat.ID, req.UserID); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			sendError(w, http.StatusBadRequest, "User is already a participant")
			return
		}
		sendError(w, http.StatusInternalServerError, "Error adding participant")
		return
	}

	updated, err := h.Store.GetChatByID(chat.ID)
	if err != nil {
		sendError(w, http.StatusInternalServerError, "Error adding participant")
		return
	}
	sendSuccess(w, http.StatusOK, updated, "Participant added successfully")
}

func (h *ChatHandler) RemoveParticipant(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r)
	chat, ok := h.loadChatForParticipant(w, r, claims.UserID)
	if !ok {
		return
	}

	userID, err := strconv.ParseInt(mux.Vars(r)["userId"], 10, 64)
	if err != nil {
		sendError(w, http.StatusBadRequest, "Invalid ID format")
		return
	}

	if !chat.IsGroupChat {
		sendError(w, http.StatusBadRequest, "Cannot remove participants from one-on-one chat")
		return
	}
	// Admin may remove anyone; everyone else may only remove themselves.
	if chat.AdminID != claims.UserID && userID != claims.UserID {
		sendError(w, http.StatusForbidden, "Only group admin can remove participants")
		return
	}
	if userID == chat.AdminID {
		sendError(w, http.StatusBadRequest, "Cannot remove group admin")
		return
	}

	if err := h.Store.RemoveParticipant(chat.ID, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			sendError(w, http.StatusNotFound, "User is not a participant")
			return
		}
		sendError(w, http.StatusInternalServerError, "Error removing participant")
		return
	}

	updated, err := h.Store.GetChatByID(chat.ID)
	if err != nil {
		sendError(w, http.StatusInternalServerError, "Error removing participant")
		return
	}
	sendSuccess(w, http.StatusOK, updated, "Participant removed successfully")
}

// loadChatForParticipant fetches the chat from the id route variable and
// verifies the caller belongs to it. Non-participants get the same 404 as a
// missing chat so chat existence is not leaked.
func (h *ChatHandler) loadChatForParticipant(w http.ResponseWriter, r *http.Request, userID int64) (*models.Chat, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		sendError(w, http.StatusBadRequest, "Invalid ID format")
		return nil, false
	}

	chat, err := h.Store.GetChatByID(id)
	if err != nil || !chat.HasParticipant(userID) {
		sendError(w, http.StatusNotFound, "Chat not found")
		return nil, false
	}
	return chat, true
}

func dedupeIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
