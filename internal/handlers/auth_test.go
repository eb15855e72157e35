package handlers

import (
	"net/http"
	"testing"
)

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "POST", "/api/auth/register", "", map[string]any{
		"name":     "Alice Example",
		"username": "alice",
		"email":    "Alice@Example.com",
		"password": "password123",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	data := decodeData(t, rec)
	if data["token"] == "" || data["token"] == nil {
		t.Error("Expected a token in the response")
	}
	user := data["user"].(map[string]any)
	if user["username"] != "alice" {
		t.Errorf("Unexpected username: %v", user["username"])
	}
	// Email is normalized to lowercase.
	if user["email"] != "alice@example.com" {
		t.Errorf("Expected normalized email, got %v", user["email"])
	}
	if _, leaked := user["password"]; leaked {
		t.Error("Password must not appear in responses")
	}

	// Same email again.
	rec = env.do(t, "POST", "/api/auth/register", "", map[string]any{
		"name":     "Alice Two",
		"username": "alice2",
		"email":    "alice@example.com",
		"password": "password123",
	})
	assertError(t, rec, http.StatusBadRequest, "User with this email or username already exists")
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name    string
		body    map[string]any
		wantErr string
	}{
		{
			"short name",
			map[string]any{"name": "A", "username": "alice", "email": "a@example.com", "password": "password123"},
			"Name must be between 2 and 50 characters",
		},
		{
			"short username",
			map[string]any{"name": "Alice", "username": "al", "email": "a@example.com", "password": "password123"},
			"Username must be between 3 and 30 characters",
		},
		{
			"uppercase username",
			map[string]any{"name": "Alice", "username": "Alice", "email": "a@example.com", "password": "password123"},
			"Username can only contain lowercase letters, numbers, and underscores",
		},
		{
			"short password",
			map[string]any{"name": "Alice", "username": "alice", "email": "a@example.com", "password": "12345"},
			"Password must be at least 6 characters",
		},
		{
			"bad email",
			map[string]any{"name": "Alice", "username": "alice", "email": "not-an-email", "password": "password123"},
			"Please provide a valid email address",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, "POST", "/api/auth/register", "", tt.body)
			assertError(t, rec, http.StatusBadRequest, tt.wantErr)
		})
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	alice, _ := env.signup(t, "alice", "")

	rec := env.do(t, "POST", "/api/auth/login", "", map[string]any{
		"email":    "alice@example.com",
		"password": "password123",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	data := decodeData(t, rec)
	if data["token"] == nil {
		t.Error("Expected a token")
	}
	user := data["user"].(map[string]any)
	if user["isOnline"] != true {
		t.Error("Expected login to mark the user online")
	}

	got, _ := env.store.GetUserByID(alice.ID)
	if !got.IsOnline {
		t.Error("Expected online flag persisted")
	}

	// Wrong password and unknown email produce the same error.
	rec = env.do(t, "POST", "/api/auth/login", "", map[string]any{
		"email":    "alice@example.com",
		"password": "wrong",
	})
	assertError(t, rec, http.StatusUnauthorized, "Invalid email or password")

	rec = env.do(t, "POST", "/api/auth/login", "", map[string]any{
		"email":    "nobody@example.com",
		"password": "password123",
	})
	assertError(t, rec, http.StatusUnauthorized, "Invalid email or password")
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	alice, token := env.signup(t, "alice", "")
	env.store.SetOnlineStatus(alice.ID, true)

	rec := env.do(t, "POST", "/api/auth/logout", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	got, _ := env.store.GetUserByID(alice.ID)
	if got.IsOnline {
		t.Error("Expected logout to mark the user offline")
	}
}

func TestMe(t *testing.T) {
	env := newTestEnv(t)
	alice, token := env.signup(t, "alice", "")

	rec := env.do(t, "GET", "/api/auth/me", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	data := decodeData(t, rec)
	if int64(data["id"].(float64)) != alice.ID || data["username"] != "alice" {
		t.Errorf("Unexpected user: %+v", data)
	}

	rec = env.do(t, "GET", "/api/auth/me", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without token, got %d", rec.Code)
	}
}
