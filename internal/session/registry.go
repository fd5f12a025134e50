package session

import (
	"sync"

	"github.com/google/uuid"
)

// Registry is the connection-id keyed table of live sessions. Registry
// itself only guards the table; per-session mutable fields are guarded by
// the Session's own mutex so a caller never needs to hold the registry
// lock across a broadcast or repository call.
type Registry struct {
	mu       sync.RWMutex
	byConn   map[string]*Session
	byPlayer map[string]string // playerID -> connID, for the takeover scan
}

func NewRegistry() *Registry {
	return &Registry{
		byConn:   make(map[string]*Session),
		byPlayer: make(map[string]string),
	}
}

// NewConnID mints a fresh connection id.
func NewConnID() string {
	return uuid.NewString()
}

// Register installs a new session, replacing any previous registry entry
// for the same player (the caller is responsible for having already torn
// down that prior entry via the takeover algorithm in §4.2).
func (r *Registry) Register(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byConn[s.ConnID] = s
	r.byPlayer[s.PlayerID] = s.ConnID
}

// Remove deletes connID from the registry. It is a no-op if connID is not
// present.
func (r *Registry) Remove(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byConn[connID]
	if !ok {
		return
	}
	delete(r.byConn, connID)
	if r.byPlayer[s.PlayerID] == connID {
		delete(r.byPlayer, s.PlayerID)
	}
}

func (r *Registry) Get(connID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byConn[connID]
	return s, ok
}

// GetByPlayer returns the current live session for a player, if any.
func (r *Registry) GetByPlayer(playerID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	connID, ok := r.byPlayer[playerID]
	if !ok {
		return nil, false
	}
	s, ok := r.byConn[connID]
	return s, ok
}

// New creates and registers a brand-new session for a connection, prior to
// authentication completing. PlayerID is assigned later via SetPlayer.
func (r *Registry) New(c Conn) *Session {
	s := newSession(NewConnID(), c)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byConn[s.ConnID] = s
	return s
}

// BindPlayer finalizes a session's player identity once authentication has
// resolved it, and publishes the player->conn mapping used by the takeover
// scan.
func (r *Registry) BindPlayer(s *Session, playerID, playerName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.PlayerID = playerID
	s.PlayerName = playerName
	r.byPlayer[playerID] = s.ConnID
}

// All returns a snapshot of every live session, used by world-wide
// broadcast and by "who".
func (r *Registry) All() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.byConn))
	for _, s := range r.byConn {
		out = append(out, s)
	}
	return out
}
