// Package session implements the Session Registry (C4): a connection-id
// keyed table of volatile per-connection state, generalized from the
// teacher's clients map[string]*player.Player + sync.RWMutex idiom into a
// locked registry per Design Notes ("Shared-mutable maps across async
// handlers → locked registries").
package session

import (
	"sync"
	"time"
)

// Conn abstracts the outbound half of a connection so the registry and
// broadcast fabric never depend on the transport package directly.
type Conn interface {
	Send(frame map[string]any) error
	Close() error
	IsOpen() bool
	RemoteAddr() string
}

// FactoryWidget is the two-slot crafting surface a session can hold open
// while standing in a factory room.
type FactoryWidget struct {
	RoomID string
	Slots  [2]string // item ids, empty string = empty slot
}

// GlowCodexState tracks an in-progress glow-codex puzzle engagement (§4.6).
type GlowCodexState struct {
	NPCID        string
	DefinitionID string
}

// AutoNavigation tracks an in-flight auto-navigation run (§4.10).
type AutoNavigation struct {
	Steps       []NavStep
	CurrentStep int
	Timer       *time.Timer
	// PendingPathID, when set, names a path execution to hand off to once
	// navigation-to-origin completes (§4.9 "auto-navigation handoff").
	PendingPathID string
}

// NavStep is one resolved hop of an auto-navigation or path plan.
type NavStep struct {
	Direction string
	RoomID    string
}

// PathExecution tracks an in-flight path/loop playback (§4.9).
type PathExecution struct {
	PathID      string
	Steps       []NavStep
	CurrentStep int
	IsLooping   bool
	IsPaused    bool
	Timer       *time.Timer
}

// EngagementTimer is a scheduled lorekeeper greeting (§4.6), tracked so it
// can be cancelled the moment the session leaves the room.
type EngagementTimer struct {
	NPCID string
	Timer *time.Timer
}

// RecordingStep is one accumulated step of an in-progress path recording
// (§4.9), held server-side between startPathingMode and savePath.
type RecordingStep struct {
	RoomID    string
	Direction string
}

// Session is the engine's live view of one connected, authenticated
// client. Exactly one Session exists per player at a time (§4.2).
type Session struct {
	mu sync.Mutex

	ConnID     string
	PlayerID   string
	PlayerName string
	WindowID   string
	Conn       Conn

	MapID  string
	RoomID string

	NextMoveTime time.Time

	Factory   *FactoryWidget
	GlowCodex *GlowCodexState

	AutoNav       *AutoNavigation
	PathExec      *PathExecution
	engagements   map[string]*EngagementTimer

	// Recording accumulates steps between startPathingMode and savePath.
	Recording []RecordingStep

	// HarvestingNPCID is non-empty while this session holds an active
	// harvest (mirrors npcdef.PlacementState.HarvestingPlayerID so the
	// interruption rule (§4.3) can check it without a repository round
	// trip).
	HarvestingNPCID   string
	HarvestingRoomID  string
	HarvestStartedAt  time.Time
}

func newSession(connID string, c Conn) *Session {
	return &Session{
		ConnID:      connID,
		Conn:        c,
		engagements: make(map[string]*EngagementTimer),
	}
}

func (s *Session) Lock()   { s.mu.Lock() }
func (s *Session) Unlock() { s.mu.Unlock() }

// CancelEngagements stops and clears every pending greeting timer.
func (s *Session) CancelEngagements() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.engagements {
		t.Timer.Stop()
		delete(s.engagements, id)
	}
}

func (s *Session) SetEngagement(npcID string, t *time.Timer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engagements[npcID] = &EngagementTimer{NPCID: npcID, Timer: t}
}

func (s *Session) HasHarvest() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.HarvestingNPCID != ""
}

func (s *Session) SetHarvest(roomID, npcID string, startedAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.HarvestingRoomID = roomID
	s.HarvestingNPCID = npcID
	s.HarvestStartedAt = startedAt
}

func (s *Session) ClearHarvest() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.HarvestingRoomID = ""
	s.HarvestingNPCID = ""
	s.HarvestStartedAt = time.Time{}
}

// CancelAutoNav and CancelPathExec stop the owned timer, if any, and clear
// the field so a racing callback observes nil state (Design Notes:
// "a cancelled step is never visible").
func (s *Session) CancelAutoNav() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.AutoNav != nil && s.AutoNav.Timer != nil {
		s.AutoNav.Timer.Stop()
	}
	s.AutoNav = nil
}

func (s *Session) CancelPathExec() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.PathExec != nil && s.PathExec.Timer != nil {
		s.PathExec.Timer.Stop()
	}
	s.PathExec = nil
}
