// Package broadcast implements the Broadcast Fabric (C3): fan-out of
// structured messages to the world, a room, or a single connection. A
// reverse index room_id -> set of connection ids keeps room fan-out
// O(|room occupants|) instead of O(|world|), per Design Notes.
package broadcast

import (
	"sync"

	"github.com/lawnchairsociety/gridkeep/server/internal/session"
	"github.com/lawnchairsociety/gridkeep/server/internal/templates"
)

// Fabric owns the room reverse index and the session registry it fans out
// against.
type Fabric struct {
	registry *session.Registry
	tmpl     *templates.Cache

	mu    sync.RWMutex
	rooms map[string]map[string]bool // roomID -> set of connID
}

func New(registry *session.Registry, tmpl *templates.Cache) *Fabric {
	return &Fabric{
		registry: registry,
		tmpl:     tmpl,
		rooms:    make(map[string]map[string]bool),
	}
}

// Enter adds connID to roomID's occupant set.
func (f *Fabric) Enter(roomID, connID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	set, ok := f.rooms[roomID]
	if !ok {
		set = make(map[string]bool)
		f.rooms[roomID] = set
	}
	set[connID] = true
}

// Leave removes connID from roomID's occupant set.
func (f *Fabric) Leave(roomID, connID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if set, ok := f.rooms[roomID]; ok {
		delete(set, connID)
		if len(set) == 0 {
			delete(f.rooms, roomID)
		}
	}
}

// send is a silent no-op on a closed channel — never raise (§5 point 5).
func send(s *session.Session, frame map[string]any) {
	if s.Conn == nil || !s.Conn.IsOpen() {
		return
	}
	_ = s.Conn.Send(frame)
}

// ToAll sends frame to every open session, excluding exceptConnID if set.
func (f *Fabric) ToAll(frame map[string]any, exceptConnID string) {
	for _, s := range f.registry.All() {
		if s.ConnID == exceptConnID {
			continue
		}
		send(s, frame)
	}
}

// ToRoom sends frame to every session currently in roomID, excluding
// exceptConnID if set. A room with no occupants is a documented no-op
// (Testable Properties #1).
func (f *Fabric) ToRoom(roomID string, frame map[string]any, exceptConnID string) {
	f.mu.RLock()
	occupants := make([]string, 0, len(f.rooms[roomID]))
	for connID := range f.rooms[roomID] {
		occupants = append(occupants, connID)
	}
	f.mu.RUnlock()

	for _, connID := range occupants {
		if connID == exceptConnID {
			continue
		}
		if s, ok := f.registry.Get(connID); ok {
			send(s, frame)
		}
	}
}

// ToPlayer sends frame to a single connection.
func (f *Fabric) ToPlayer(connID string, frame map[string]any) {
	if s, ok := f.registry.Get(connID); ok {
		send(s, frame)
	}
}

// Template formats a templated string and wraps it as a "message" frame,
// the common case for user-visible prose.
func (f *Fabric) Template(key string, args map[string]any) map[string]any {
	return map[string]any{
		"type":    "message",
		"message": f.tmpl.Format(key, args),
	}
}
