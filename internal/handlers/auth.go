package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/kzhou/parley/internal/auth"
	"github.com/kzhou/parley/internal/logger"
	"github.com/kzhou/parley/internal/middleware"
	"github.com/kzhou/parley/internal/models"
	"github.com/kzhou/parley/internal/store"
)

var usernameRe = regexp.MustCompile(`^[a-z0-9_]+$`)

type AuthHandler struct {
	Store  store.Store
	Tokens *auth.Tokens
}

type registerRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func validateRegistration(req *registerRequest) string {
	req.Name = strings.TrimSpace(req.Name)
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	switch {
	case len(req.Name) < 2 || len(req.Name) > 50:
		return "Name must be between 2 and 50 characters"
	case len(req.Username) < 3 || len(req.Username) > 30:
		return "Username must be between 3 and 30 characters"
	case !usernameRe.MatchString(req.Username):
		return "Username can only contain lowercase letters, numbers, and underscores"
	case req.Email == "":
		return "Email is required"
	case len(req.Password) < 6:
		return "Password must be at least 6 characters"
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return "Please provide a valid email address"
	}
	return ""
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg := validateRegistration(&req); msg != "" {
		sendError(w, http.StatusBadRequest, msg)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		sendError(w, http.StatusInternalServerError, "Error registering user")
		return
	}

	user := &models.User{
		Name:     req.Name,
		Username: req.Username,
		Email:    req.Email,
		Password: string(hashed),
	}
	if err := h.Store.CreateUser(user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			sendError(w, http.StatusBadRequest, "User with this email or username already exists")
			return
		}
		logger.L().Error().Err(err).Msg("create user")
		sendError(w, http.StatusInternalServerError, "Error registering user")
		return
	}

	token, err := h.Tokens.Sign(user.ID, user.Username, user.Email)
	if err != nil {
		sendError(w, http.StatusInternalServerError, "Error registering user")
		return
	}

	sendSuccess(w, http.StatusCreated, map[string]any{"user": user, "token": token}, "User registered successfully")
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.Store.GetUserByEmail(strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		sendError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		sendError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	if err := h.Store.SetOnlineStatus(user.ID, true); err != nil {
		logger.L().Error().Err(err).Int64("user_id", user.ID).Msg("set online status")
	}
	user.IsOnline = true

	token, err := h.Tokens.Sign(user.ID, user.Username, user.Email)
	if err != nil {
		sendError(w, http.StatusInternalServerError, "Error logging in")
		return
	}

	sendSuccess(w, http.StatusOK, map[string]any{"user": user, "token": token}, "Login successful")
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r)
	if err := h.Store.SetOnlineStatus(claims.UserID, false); err != nil {
		sendError(w, http.StatusInternalServerError, "Error logging out")
		return
	}
	sendSuccess(w, http.StatusOK, nil, "Logout successful")
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r)
	user, err := h.Store.GetUserByID(claims.UserID)
	if err != nil {
		sendError(w, http.StatusNotFound, "User not found")
		return
	}
	sendSuccess(w, http.StatusOK, user, "")
}
