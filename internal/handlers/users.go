package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/kzhou/parley/internal/middleware"
	"github.com/kzhou/parley/internal/store"
)

type UserHandler struct {
	Store store.Store
}

// List returns every user except the caller, optionally filtered by a
// substring match on username, name, or email.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r)
	search := r.URL.Query().Get("search")

	users, err := h.Store.SearchUsers(claims.UserID, search, 50)
	if err != nil {
		sendError(w, http.StatusInternalServerError, "Error fetching users")
		return
	}
	sendSuccess(w, http.StatusOK, users, "")
}

func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r)
	q := r.URL.Query().Get("q")
	if q == "" {
		sendError(w, http.StatusBadRequest, "Search query is required")
		return
	}

	users, err := h.Store.SearchUsers(claims.UserID, q, 20)
	if err != nil {
		sendError(w, http.StatusInternalServerError, "Error searching users")
		return
	}
	sendSuccess(w, http.StatusOK, users, "")
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		sendError(w, http.StatusBadRequest, "Invalid ID format")
		return
	}

	user, err := h.Store.GetUserByID(id)
	if err != nil {
		sendError(w, http.StatusNotFound, "User not found")
		return
	}
	sendSuccess(w, http.StatusOK, user, "")
}

type updateProfileRequest struct {
	Name     *string `json:"name"`
	Username *string `json:"username"`
	Avatar   *string `json:"avatar"`
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r)

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Name != nil {
		trimmed := strings.TrimSpace(*req.Name)
		if len(trimmed) < 2 || len(trimmed) > 50 {
			sendError(w, http.StatusBadRequest, "Name must be between 2 and 50 characters")
			return
		}
		req.Name = &trimmed
	}
	if req.Username != nil {
		trimmed := strings.TrimSpace(*req.Username)
		if len(trimmed) < 3 || len(trimmed) > 30 || !usernameRe.MatchString(trimmed) {
			sendError(w, http.StatusBadRequest, "Username must be between 3 and 30 characters")
			return
		}
		req.Username = &trimmed

		if existing, err := h.Store.GetUserByUsername(trimmed); err == nil && existing.ID != claims.UserID {
			sendError(w, http.StatusBadRequest, "Username already taken")
			return
		}
	}

	user, err := h.Store.UpdateProfile(claims.UserID, req.Name, req.Username, req.Avatar)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicate):
			sendError(w, http.StatusBadRequest, "Username already taken")
		case errors.Is(err, store.ErrNotFound):
			sendError(w, http.StatusNotFound, "User not found")
		default:
			sendError(w, http.StatusInternalServerError, "Error updating profile")
		}
		return
	}
	sendSuccess(w, http.StatusOK, user, "Profile updated successfully")
}

type updateStatusRequest struct {
	IsOnline bool `json:"isOnline"`
}

func (h *UserHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r)

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.Store.SetOnlineStatus(claims.UserID, req.IsOnline); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			sendError(w, http.StatusNotFound, "User not found")
			return
		}
		sendError(w, http.StatusInternalServerError, "Error updating status")
		return
	}

	user, err := h.Store.GetUserByID(claims.UserID)
	if err != nil {
		sendError(w, http.StatusInternalServerError, "Error updating status")
		return
	}
	sendSuccess(w, http.StatusOK, user, "Status updated successfully")
}
