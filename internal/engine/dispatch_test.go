package engine

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/lawnchairsociety/gridkeep/server/internal/broadcast"
	"github.com/lawnchairsociety/gridkeep/server/internal/database"
	"github.com/lawnchairsociety/gridkeep/server/internal/harvest"
	"github.com/lawnchairsociety/gridkeep/server/internal/itemdef"
	"github.com/lawnchairsociety/gridkeep/server/internal/npcdef"
	"github.com/lawnchairsociety/gridkeep/server/internal/protocol"
	"github.com/lawnchairsociety/gridkeep/server/internal/repository/sqlrepo"
	"github.com/lawnchairsociety/gridkeep/server/internal/session"
	"github.com/lawnchairsociety/gridkeep/server/internal/templates"
)

func TestIsSafeCommandNeverInterruptingTypes(t *testing.T) {
	safe := []protocol.InboundType{
		protocol.Look, protocol.Inventory, protocol.Who, protocol.GetWidgetConfig,
		protocol.UpdateWidgetConfig, protocol.GetMapData, protocol.GetAutoPathMaps,
		protocol.GetAutoPathRooms, protocol.GetAllPlayerPaths, protocol.GetPathDetails,
		protocol.SaveTerminalMessage, protocol.Talk,
	}
	for _, ty := range safe {
		if !isSafeCommand(ty) {
			t.Errorf("isSafeCommand(%q) = false, want true", ty)
		}
	}
}

func TestIsSafeCommandInterruptingTypes(t *testing.T) {
	unsafe := []protocol.InboundType{
		protocol.Move, protocol.Take, protocol.Drop, protocol.Harvest, protocol.Solve,
		protocol.Clue, protocol.Greet, protocol.Store, protocol.Withdraw, protocol.Buy, protocol.Sell,
	}
	for _, ty := range unsafe {
		if isSafeCommand(ty) {
			t.Errorf("isSafeCommand(%q) = true, want false", ty)
		}
	}
}

func newDispatchTestEngine(t *testing.T) *Engine {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("database.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	items := &itemdef.Catalogue{Items: map[string]itemdef.Definition{}}
	npcs := &npcdef.Catalogue{NPCs: map[string]npcdef.Definition{}}
	repo := sqlrepo.New(db, items, npcs, map[string]string{})
	tmpl, err := templates.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("templates.Load: %v", err)
	}
	sessions := session.NewRegistry()

	return New(Config{
		Items:     items,
		NPCs:      npcs,
		Repo:      repo,
		Sessions:  sessions,
		Broadcast: broadcast.New(sessions, tmpl),
		Templates: tmpl,
		Harvest:   harvest.New(repo, harvest.DefaultCycleStrategy{Roll: func() int { return 0 }}),
	})
}

func TestDispatchRejectsUnauthenticatedSession(t *testing.T) {
	e := newDispatchTestEngine(t)
	s := e.Sessions.New(nil)
	err := e.Dispatch(context.Background(), s, protocol.Envelope{Type: protocol.Look})
	if err != errUnauthenticated {
		t.Fatalf("Dispatch on an unauthenticated session = %v, want errUnauthenticated", err)
	}
}

func TestDispatchRejectsUnknownFrameType(t *testing.T) {
	e := newDispatchTestEngine(t)
	s := e.Sessions.New(nil)
	e.Sessions.BindPlayer(s, "player-1", "Alric")

	err := e.Dispatch(context.Background(), s, protocol.Envelope{Type: protocol.InboundType("not-a-real-type")})
	if err != errUnknownType {
		t.Fatalf("Dispatch with an unknown type = %v, want errUnknownType", err)
	}
}

func TestMaybeInterruptHarvestSparesRecentlyStartedHarvest(t *testing.T) {
	e := newDispatchTestEngine(t)
	s := e.Sessions.New(nil)
	e.Sessions.BindPlayer(s, "player-1", "Alric")
	s.SetHarvest("room-1", "miner", time.Now())

	e.maybeInterruptHarvest(context.Background(), s)

	if !s.HasHarvest() {
		t.Error("a harvest started within the grace window should survive maybeInterruptHarvest")
	}
}

func TestMaybeInterruptHarvestClearsStaleHarvestHold(t *testing.T) {
	e := newDispatchTestEngine(t)
	s := e.Sessions.New(nil)
	e.Sessions.BindPlayer(s, "player-1", "Alric")
	s.SetHarvest("room-1", "miner", time.Now().Add(-3*time.Second))

	e.maybeInterruptHarvest(context.Background(), s)

	if s.HasHarvest() {
		t.Error("a harvest started outside the grace window should be cleared by maybeInterruptHarvest")
	}
}
