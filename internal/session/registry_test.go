package session

import (
	"testing"
	"time"
)

type nopConn struct{ open bool }

func (c *nopConn) Send(frame map[string]any) error { return nil }
func (c *nopConn) Close() error                     { c.open = false; return nil }
func (c *nopConn) IsOpen() bool                     { return c.open }
func (c *nopConn) RemoteAddr() string               { return "test" }

func TestRegistryNewRegistersByConnID(t *testing.T) {
	r := NewRegistry()
	s := r.New(&nopConn{open: true})
	got, ok := r.Get(s.ConnID)
	if !ok || got != s {
		t.Fatalf("Get(%q) = %v, %v", s.ConnID, got, ok)
	}
}

func TestRegistryBindPlayerPublishesByPlayerLookup(t *testing.T) {
	r := NewRegistry()
	s := r.New(&nopConn{open: true})
	r.BindPlayer(s, "player-1", "Alric")

	got, ok := r.GetByPlayer("player-1")
	if !ok || got != s {
		t.Fatalf("GetByPlayer(player-1) = %v, %v", got, ok)
	}
	if s.PlayerName != "Alric" {
		t.Errorf("PlayerName = %q, want Alric", s.PlayerName)
	}
}

func TestRegistryRegisterReplacesPriorEntryForSamePlayer(t *testing.T) {
	r := NewRegistry()
	first := r.New(&nopConn{open: true})
	r.BindPlayer(first, "player-1", "Alric")

	second := newSession(NewConnID(), &nopConn{open: true})
	second.PlayerID = "player-1"
	second.PlayerName = "Alric"
	r.Register(second)

	got, ok := r.GetByPlayer("player-1")
	if !ok || got != second {
		t.Fatalf("GetByPlayer after takeover Register should return the new session, got %v, %v", got, ok)
	}
	// The old connection id is still independently resolvable until the
	// caller explicitly Removes it — Register only republishes the
	// player->conn pointer, it doesn't tear down the old entry itself.
	if _, ok := r.Get(first.ConnID); !ok {
		t.Error("Register should not implicitly remove the prior connection entry")
	}
}

func TestRegistryRemoveIsNoOpForUnknownConnID(t *testing.T) {
	r := NewRegistry()
	r.Remove("does-not-exist")
}

func TestRegistryRemoveClearsPlayerLookupOnlyWhenCurrent(t *testing.T) {
	r := NewRegistry()
	s := r.New(&nopConn{open: true})
	r.BindPlayer(s, "player-1", "Alric")
	r.Remove(s.ConnID)

	if _, ok := r.Get(s.ConnID); ok {
		t.Error("Remove should delete the byConn entry")
	}
	if _, ok := r.GetByPlayer("player-1"); ok {
		t.Error("Remove should clear the byPlayer entry when it still points at the removed connection")
	}
}

func TestRegistryAllReturnsEverySession(t *testing.T) {
	r := NewRegistry()
	r.New(&nopConn{open: true})
	r.New(&nopConn{open: true})
	if got := len(r.All()); got != 2 {
		t.Errorf("All() length = %d, want 2", got)
	}
}

func TestSessionHarvestLifecycle(t *testing.T) {
	s := newSession("conn-1", &nopConn{open: true})
	if s.HasHarvest() {
		t.Fatal("a fresh session should have no harvest")
	}
	now := time.Now()
	s.SetHarvest("room-1", "miner", now)
	if !s.HasHarvest() || s.HarvestingRoomID != "room-1" || s.HarvestingNPCID != "miner" {
		t.Fatalf("SetHarvest did not persist, got room=%q npc=%q", s.HarvestingRoomID, s.HarvestingNPCID)
	}
	s.ClearHarvest()
	if s.HasHarvest() {
		t.Error("ClearHarvest should clear the harvest hold")
	}
}

func TestSessionCancelAutoNavClearsState(t *testing.T) {
	s := newSession("conn-1", &nopConn{open: true})
	s.AutoNav = &AutoNavigation{Steps: []NavStep{{Direction: "north", RoomID: "r1"}}, Timer: time.NewTimer(time.Hour)}
	s.CancelAutoNav()
	if s.AutoNav != nil {
		t.Error("CancelAutoNav should clear AutoNav")
	}
}

func TestSessionCancelPathExecClearsState(t *testing.T) {
	s := newSession("conn-1", &nopConn{open: true})
	s.PathExec = &PathExecution{PathID: "p1", Timer: time.NewTimer(time.Hour)}
	s.CancelPathExec()
	if s.PathExec != nil {
		t.Error("CancelPathExec should clear PathExec")
	}
}

func TestSessionCancelEngagementsStopsAllTimers(t *testing.T) {
	s := newSession("conn-1", &nopConn{open: true})
	s.SetEngagement("oracle", time.NewTimer(time.Hour))
	s.SetEngagement("smith", time.NewTimer(time.Hour))
	s.CancelEngagements()
	if len(s.engagements) != 0 {
		t.Errorf("CancelEngagements should clear every pending engagement, got %d remaining", len(s.engagements))
	}
}
