package ws

import "sync"

// Presence tracks which live connection currently represents each user.
// It is constructed at server start and injected into the Hub, so a
// distributed implementation can replace the in-memory one without touching
// session code. It holds nothing but the userId → connectionId mapping.
type Presence interface {
	// Connect records connID as the user's live connection, overwriting
	// any previous entry. Last connection wins.
	Connect(userID int64, connID string)
	// Disconnect removes the user's entry if it still points at connID.
	// It reports whether the user actually went offline; a stale
	// disconnect (the user reconnected elsewhere) is a no-op.
	Disconnect(userID int64, connID string) bool
	// Lookup returns the connection currently representing the user.
	Lookup(userID int64) (string, bool)
}

type memoryPresence struct {
	mu    sync.Mutex
	conns map[int64]string
}

// NewMemoryPresence returns the single-process presence table.
func NewMemoryPresence() Presence {
	return &memoryPresence{conns: make(map[int64]string)}
}

func (p *memoryPresence) Connect(userID int64, connID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.conns[userID] = connID
}

func (p *memoryPresence) Disconnect(userID int64, connID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if current, ok := p.conns[userID]; ok && current == connID {
		delete(p.conns, userID)
		return true
	}
	return false
}

func (p *memoryPresence) Lookup(userID int64) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	connID, ok := p.conns[userID]
	return connID, ok
}
