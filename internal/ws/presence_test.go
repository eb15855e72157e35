package ws

import "testing"

func TestPresenceLastConnectionWins(t *testing.T) {
	p := NewMemoryPresence()

	p.Connect(1, "conn-a")
	p.Connect(1, "conn-b")

	connID, ok := p.Lookup(1)
	if !ok || connID != "conn-b" {
		t.Errorf("Expected conn-b, got %q (ok=%v)", connID, ok)
	}
}

func TestPresenceStaleDisconnect(t *testing.T) {
	p := NewMemoryPresence()

	p.Connect(1, "conn-a")
	p.Connect(1, "conn-b")

	// conn-a's disconnect arrives after the reconnect; the user stays online.
	if p.Disconnect(1, "conn-a") {
		t.Error("Stale disconnect must not take the user offline")
	}
	if _, ok := p.Lookup(1); !ok {
		t.Error("Expected user to still be present")
	}

	if !p.Disconnect(1, "conn-b") {
		t.Error("Expected the live connection's disconnect to succeed")
	}
	if _, ok := p.Lookup(1); ok {
		t.Error("Expected user to be gone")
	}
}

func TestPresenceUnknownUser(t *testing.T) {
	p := NewMemoryPresence()

	if p.Disconnect(42, "conn-x") {
		t.Error("Disconnect of unknown user must be a no-op")
	}
	if _, ok := p.Lookup(42); ok {
		t.Error("Expected no entry for unknown user")
	}
}
