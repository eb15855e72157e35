package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/bcrypt"

	"github.com/kzhou/parley/internal/auth"
	"github.com/kzhou/parley/internal/middleware"
	"github.com/kzhou/parley/internal/models"
	"github.com/kzhou/parley/internal/store/sqlstore"
)

// testEnv wires the handlers onto a router the same way main does, backed by
// an in-memory database.
type testEnv struct {
	store  *sqlstore.SQLStore
	tokens *auth.Tokens
	router *mux.Router
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlstore.New("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	tokens := auth.NewTokens("test-secret", time.Hour)

	authHandler := &AuthHandler{Store: st, Tokens: tokens}
	userHandler := &UserHandler{Store: st}
	chatHandler := &ChatHandler{Store: st}
	messageHandler := &MessageHandler{Store: st}
	adminHandler := &AdminHandler{Store: st}

	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	api.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	authed := api.NewRoute().Subrouter()
	authed.Use(middleware.Authenticate(tokens))
	authed.HandleFunc("/auth/logout", authHandler.Logout).Methods("POST")
	authed.HandleFunc("/auth/me", authHandler.Me).Methods("GET")

	authed.HandleFunc("/users", userHandler.List).Methods("GET")
	authed.HandleFunc("/users/search", userHandler.Search).Methods("GET")
	authed.HandleFunc("/users/profile", userHandler.UpdateProfile).Methods("PUT")
	authed.HandleFunc("/users/status", userHandler.UpdateStatus).Methods("PUT")
	authed.HandleFunc("/users/{id:[0-9]+}", userHandler.Get).Methods("GET")

	authed.HandleFunc("/chats", chatHandler.Create).Methods("POST")
	authed.HandleFunc("/chats", chatHandler.List).Methods("GET")
	authed.HandleFunc("/chats/{id:[0-9]+}", chatHandler.Get).Methods("GET")
	authed.HandleFunc("/chats/{id:[0-9]+}", chatHandler.Update).Methods("PUT")
	authed.HandleFunc("/chats/{id:[0-9]+}", chatHandler.Delete).Methods("DELETE")
	authed.HandleFunc("/chats/{id:[0-9]+}/participants", chatHandler.AddParticipant).Methods("POST")
	authed.HandleFunc("/chats/{id:[0-9]+}/participants/{userId:[0-9]+}", chatHandler.RemoveParticipant).Methods("DELETE")

	authed.HandleFunc("/messages", messageHandler.Send).Methods("POST")
	authed.HandleFunc("/messages/chat/{chatId:[0-9]+}/read-all", messageHandler.MarkChatRead).Methods("PUT")
	authed.HandleFunc("/messages/{chatId:[0-9]+}", messageHandler.ListForChat).Methods("GET")
	authed.HandleFunc("/messages/{id:[0-9]+}", messageHandler.Edit).Methods("PUT")
	authed.HandleFunc("/messages/{id:[0-9]+}", messageHandler.Delete).Methods("DELETE")
	authed.HandleFunc("/messages/{id:[0-9]+}/read", messageHandler.MarkRead).Methods("PUT")

	authed.HandleFunc("/admin/users", adminHandler.ListUsers).Methods("GET")
	authed.HandleFunc("/admin/users/{id:[0-9]+}", adminHandler.DeleteUser).Methods("DELETE")
	authed.HandleFunc("/admin/users/{id:[0-9]+}/role", adminHandler.UpdateUserRole).Methods("PUT")
	authed.HandleFunc("/admin/chats", adminHandler.ListChats).Methods("GET")
	authed.HandleFunc("/admin/chats/{id:[0-9]+}", adminHandler.DeleteChat).Methods("DELETE")
	authed.HandleFunc("/admin/stats", adminHandler.GetStats).Methods("GET")

	return &testEnv{store: st, tokens: tokens, router: r}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// signup seeds a user through the store and signs a token, so tests don't
// depend on the register endpoint.
func (e *testEnv) signup(t *testing.T, username, role string) (*models.User, string) {
	t.Helper()

	hashed, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	user := &models.User{
		Name:     "Test " + username,
		Username: username,
		Email:    username + "@example.com",
		Password: string(hashed),
		Role:     role,
	}
	if err := e.store.CreateUser(user); err != nil {
		t.Fatalf("Failed to create user %s: %v", username, err)
	}
	token, err := e.tokens.Sign(user.ID, user.Username, user.Email)
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return user, token
}

// createChat goes through the API so the response matches what clients see.
func (e *testEnv) createChat(t *testing.T, token string, isGroup bool, name string, participants ...int64) int64 {
	t.Helper()

	rec := e.do(t, "POST", "/api/chats", token, map[string]any{
		"participants": participants,
		"isGroupChat":  isGroup,
		"name":         name,
	})
	if rec.Code != http.StatusCreated && rec.Code != http.StatusOK {
		t.Fatalf("Failed to create chat: %d %s", rec.Code, rec.Body.String())
	}
	data := decodeData(t, rec)
	return int64(data["id"].(float64))
}

func (e *testEnv) sendMessage(t *testing.T, token string, chatID int64, content string) int64 {
	t.Helper()

	rec := e.do(t, "POST", "/api/messages", token, map[string]any{
		"chatId":  chatID,
		"content": content,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Failed to send message: %d %s", rec.Code, rec.Body.String())
	}
	data := decodeData(t, rec)
	return int64(data["id"].(float64))
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var envelope map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rec.Body.String(), err)
	}
	return envelope
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	data, ok := decodeEnvelope(t, rec)["data"].(map[string]any)
	if !ok {
		t.Fatalf("Expected object data in response %q", rec.Body.String())
	}
	return data
}

func assertError(t *testing.T, rec *httptest.ResponseRecorder, status int, message string) {
	t.Helper()

	if rec.Code != status {
		t.Errorf("Expected status %d, got %d: %s", status, rec.Code, rec.Body.String())
	}
	envelope := decodeEnvelope(t, rec)
	if envelope["success"] != false {
		t.Errorf("Expected success=false, got %v", envelope["success"])
	}
	if envelope["error"] != message {
		t.Errorf("Expected error %q, got %q", message, envelope["error"])
	}
}

func chatPath(id int64) string         { return fmt.Sprintf("/api/chats/%d", id) }
func messagePath(id int64) string      { return fmt.Sprintf("/api/messages/%d", id) }
func chatMessagesPath(id int64) string { return fmt.Sprintf("/api/messages/%d", id) }
func readAllPath(id int64) string      { return fmt.Sprintf("/api/messages/chat/%d/read-all", id) }
