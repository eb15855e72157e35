package sqlstore

import (
	"errors"
	"testing"
	"time"

	"github.com/kzhou/parley/internal/models"
	"github.com/kzhou/parley/internal/store"
)

func TestCreateUser(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()

	user := mustCreateUser(t, "testuser")
	if user.ID == 0 {
		t.Error("Expected user ID to be set")
	}
	if user.Role != models.RoleUser {
		t.Errorf("Expected default role 'user', got '%s'", user.Role)
	}

	// Duplicate username
	err := testStore.CreateUser(&models.User{Name: "Dup", Username: "testuser", Email: "other@example.com", Password: "x"})
	if !errors.Is(err, store.ErrDuplicate) {
		t.Errorf("Expected ErrDuplicate for duplicate username, got %v", err)
	}

	// Duplicate email
	err = testStore.CreateUser(&models.User{Name: "Dup", Username: "other", Email: "testuser@example.com", Password: "x"})
	if !errors.Is(err, store.ErrDuplicate) {
		t.Errorf("Expected ErrDuplicate for duplicate email, got %v", err)
	}
}

func TestGetUser(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()

	created := mustCreateUser(t, "testuser")

	user, err := testStore.GetUserByUsername("testuser")
	if err != nil {
		t.Fatalf("Failed to get user: %v", err)
	}
	if user.ID != created.ID || user.Email != "testuser@example.com" {
		t.Errorf("Unexpected user: %+v", user)
	}

	if _, err := testStore.GetUserByEmail("testuser@example.com"); err != nil {
		t.Errorf("GetUserByEmail failed: %v", err)
	}

	_, err = testStore.GetUserByID(999)
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSearchUsers(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()

	alice := mustCreateUser(t, "alice")
	mustCreateUser(t, "bob")
	mustCreateUser(t, "alex")

	users, err := testStore.SearchUsers(alice.ID, "al", 10)
	if err != nil {
		t.Fatalf("SearchUsers failed: %v", err)
	}
	// alice is excluded as the caller; only alex matches.
	if len(users) != 1 || users[0].Username != "alex" {
		t.Errorf("Expected [alex], got %+v", users)
	}

	// Empty query matches everyone but the caller.
	users, _ = testStore.SearchUsers(alice.ID, "", 10)
	if len(users) != 2 {
		t.Errorf("Expected 2 users, got %d", len(users))
	}
}

func TestSetOnlineStatus(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()

	user := mustCreateUser(t, "testuser")
	connectTime := time.Now().Add(-time.Second)

	if err := testStore.SetOnlineStatus(user.ID, true); err != nil {
		t.Fatalf("SetOnlineStatus failed: %v", err)
	}
	got, _ := testStore.GetUserByID(user.ID)
	if !got.IsOnline {
		t.Error("Expected user to be online")
	}

	if err := testStore.SetOnlineStatus(user.ID, false); err != nil {
		t.Fatalf("SetOnlineStatus failed: %v", err)
	}
	got, _ = testStore.GetUserByID(user.ID)
	if got.IsOnline {
		t.Error("Expected user to be offline")
	}
	if got.LastSeen.Before(connectTime) {
		t.Errorf("Expected lastSeen >= connect time, got %v", got.LastSeen)
	}

	if err := testStore.SetOnlineStatus(999, true); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()

	user := mustCreateUser(t, "testuser")
	mustCreateUser(t, "taken")

	name := "New Name"
	updated, err := testStore.UpdateProfile(user.ID, &name, nil, nil)
	if err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}
	if updated.Name != "New Name" || updated.Username != "testuser" {
		t.Errorf("Unexpected user after update: %+v", updated)
	}

	taken := "taken"
	if _, err := testStore.UpdateProfile(user.ID, nil, &taken, nil); !errors.Is(err, store.ErrDuplicate) {
		t.Errorf("Expected ErrDuplicate, got %v", err)
	}
}

func TestSetRole(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()

	user := mustCreateUser(t, "testuser")
	if err := testStore.SetRole(user.ID, models.RoleAdmin); err != nil {
		t.Fatalf("SetRole failed: %v", err)
	}
	got, _ := testStore.GetUserByID(user.ID)
	if got.Role != models.RoleAdmin {
		t.Errorf("Expected role 'admin', got '%s'", got.Role)
	}

	if err := testStore.SetRole(999, models.RoleAdmin); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestDeleteUser(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()

	alice := mustCreateUser(t, "alice")
	bob := mustCreateUser(t, "bob")
	chat := mustCreateChat(t, false, 0, alice.ID, bob.ID)
	mustCreateMessage(t, chat.ID, bob.ID, "hi")

	if err := testStore.DeleteUser(bob.ID); err != nil {
		t.Fatalf("DeleteUser failed: %v", err)
	}

	if _, err := testStore.GetUserByID(bob.ID); !errors.Is(err, store.ErrNotFound) {
		t.Error("Expected bob to be gone")
	}
	// Bob's messages are gone with him.
	if _, total, _ := testStore.GetChatMessages(chat.ID, 1, 10); total != 0 {
		t.Errorf("Expected 0 messages after user deletion, got %d", total)
	}
	if ok, _ := testStore.IsParticipant(chat.ID, bob.ID); ok {
		t.Error("Expected bob to be removed from chat")
	}

	if err := testStore.DeleteUser(999); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
