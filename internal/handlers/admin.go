package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/kzhou/parley/internal/middleware"
	"github.com/kzhou/parley/internal/models"
	"github.com/kzhou/parley/internal/store"
)

// AdminHandler serves the administrative listing and cleanup endpoints.
// Access is gated on the user's persisted role attribute, not on the token,
// so revoking admin takes effect without reissuing credentials.
type AdminHandler struct {
	Store store.Store
}

func (h *AdminHandler) requireAdmin(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	claims := middleware.ClaimsFrom(r)
	user, err := h.Store.GetUserByID(claims.UserID)
	if err != nil || user.Role != models.RoleAdmin {
		sendError(w, http.StatusForbidden, "Access denied. Admin only.")
		return nil, false
	}
	return user, true
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}

	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 20)

	users, total, err := h.Store.ListUsers(page, limit)
	if err != nil {
		sendError(w, http.StatusInternalServerError, "Error fetching users")
		return
	}
	if users == nil {
		users = []models.User{}
	}

	sendSuccess(w, http.StatusOK, map[string]any{
		"users":      users,
		"pagination": NewPagination(page, limit, total),
	}, "")
}

func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	admin, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		sendError(w, http.StatusBadRequest, "Invalid ID format")
		return
	}
	if id == admin.ID {
		sendError(w, http.StatusBadRequest, "Cannot delete your own account")
		return
	}

	if err := h.Store.DeleteUser(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			sendError(w, http.StatusNotFound, "User not found")
			return
		}
		sendError(w, http.StatusInternalServerError, "Error deleting user")
		return
	}
	sendSuccess(w, http.StatusOK, nil, "User deleted successfully")
}

type updateRoleRequest struct {
	Role string `json:"role"`
}

func (h *AdminHandler) UpdateUserRole(w http.ResponseWriter, r *http.Request) {
	admin, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		sendError(w, http.StatusBadRequest, "Invalid ID format")
		return
	}

	var req updateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Role != models.RoleUser && req.Role != models.RoleAdmin {
		sendError(w, http.StatusBadRequest, "Role must be 'user' or 'admin'")
		return
	}
	// Admins cannot demote themselves; another admin has to do it.
	if id == admin.ID {
		sendError(w, http.StatusBadRequest, "Cannot change your own role")
		return
	}

	if err := h.Store.SetRole(id, req.Role); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			sendError(w, http.StatusNotFound, "User not found")
			return
		}
		sendError(w, http.StatusInternalServerError, "Error updating role")
		return
	}

	user, err := h.Store.GetUserByID(id)
	if err != nil {
		sendError(w, http.StatusInternalServerError, "Error updating role")
		return
	}
	sendSuccess(w, http.StatusOK, user, "Role updated successfully")
}

func (h *AdminHandler) ListChats(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}

	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 20)

	chats, total, err := h.Store.ListChats(page, limit)
	if err != nil {
		sendError(w, http.StatusInternalServerError, "Error fetching chats")
		return
	}
	if chats == nil {
		chats = []models.Chat{}
	}

	sendSuccess(w, http.StatusOK, map[string]any{
		"chats":      chats,
		"pagination": NewPagination(page, limit, total),
	}, "")
}

func (h *AdminHandler) DeleteChat(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		sendError(w, http.StatusBadRequest, "Invalid ID format")
		return
	}

	if err := h.Store.DeleteChat(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			sendError(w, http.StatusNotFound, "Chat not found")
			return
		}
		sendError(w, http.StatusInternalServerError, "Error deleting chat")
		return
	}
	sendSuccess(w, http.StatusOK, nil, "Chat deleted successfully")
}

func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}

	stats, err := h.Store.Stats()
	if err != nil {
		sendError(w, http.StatusInternalServerError, "Error fetching stats")
		return
	}
	sendSuccess(w, http.StatusOK, stats, "")
}
