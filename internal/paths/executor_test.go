package paths

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/lawnchairsociety/gridkeep/server/internal/database"
	"github.com/lawnchairsociety/gridkeep/server/internal/engineerr"
	"github.com/lawnchairsociety/gridkeep/server/internal/itemdef"
	"github.com/lawnchairsociety/gridkeep/server/internal/npcdef"
	"github.com/lawnchairsociety/gridkeep/server/internal/repository"
	"github.com/lawnchairsociety/gridkeep/server/internal/repository/sqlrepo"
	"github.com/lawnchairsociety/gridkeep/server/internal/session"
	"github.com/lawnchairsociety/gridkeep/server/internal/worldmap"
)

// threeRoomLine builds a single map "m1" with rooms r0 -(east)- r1 -(east)- r2.
func threeRoomLine() *worldmap.World {
	w := worldmap.NewWorld()
	m := worldmap.NewMap("m1", "Line")
	m.AddRoom(worldmap.NewRoom("r0", "m1", "r0", "", worldmap.KindNormal, worldmap.Coord{X: 0, Y: 0}))
	m.AddRoom(worldmap.NewRoom("r1", "m1", "r1", "", worldmap.KindNormal, worldmap.Coord{X: 1, Y: 0}))
	m.AddRoom(worldmap.NewRoom("r2", "m1", "r2", "", worldmap.KindNormal, worldmap.Coord{X: 2, Y: 0}))
	w.AddMap(m)
	return w
}

func newExecutorTestRepo(t *testing.T) *sqlrepo.Repo {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("database.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	items := &itemdef.Catalogue{Items: map[string]itemdef.Definition{}}
	npcs := &npcdef.Catalogue{NPCs: map[string]npcdef.Definition{}}
	return sqlrepo.New(db, items, npcs, map[string]string{})
}

func noopMove(ctx context.Context, s *session.Session, dir worldmap.Direction) (string, error) {
	return "", nil
}

func TestStartPathExecutionInstallsImmediatelyWhenAtOrigin(t *testing.T) {
	repo := newExecutorTestRepo(t)
	w := threeRoomLine()
	e := NewExecutor(repo, w, noopMove)

	pathID, err := repo.CreatePath(context.Background(), repository.PathRow{
		PlayerID: "player-1", Name: "loop", Kind: "loop", MapID: "m1", OriginRoomID: "r0",
	}, []repository.PathStepRow{
		{Index: 0, RoomID: "r0", Direction: ""},
		{Index: 1, RoomID: "r1", Direction: "east"},
	})
	if err != nil {
		t.Fatalf("CreatePath: %v", err)
	}

	s := &session.Session{RoomID: "r0"}
	if err := e.StartPathExecution(context.Background(), s, pathID, 2000); err != nil {
		t.Fatalf("StartPathExecution: %v", err)
	}

	if s.PathExec == nil {
		t.Fatal("StartPathExecution at origin should install a PathExecution immediately")
	}
	if !s.PathExec.IsLooping {
		t.Error("a kind=loop path should install with IsLooping true")
	}
	if s.PathExec.Timer == nil {
		t.Error("installExecution should schedule a timer")
	}
	s.PathExec.Timer.Stop()
}

func TestStartPathExecutionNavigatesToOriginFirstWhenElsewhere(t *testing.T) {
	repo := newExecutorTestRepo(t)
	w := threeRoomLine()
	e := NewExecutor(repo, w, noopMove)

	pathID, err := repo.CreatePath(context.Background(), repository.PathRow{
		PlayerID: "player-1", Name: "loop", Kind: "path", MapID: "m1", OriginRoomID: "r0",
	}, []repository.PathStepRow{{Index: 0, RoomID: "r0", Direction: ""}})
	if err != nil {
		t.Fatalf("CreatePath: %v", err)
	}

	s := &session.Session{RoomID: "r2"}
	if err := e.StartPathExecution(context.Background(), s, pathID, 0); err != nil {
		t.Fatalf("StartPathExecution: %v", err)
	}

	if s.AutoNav == nil {
		t.Fatal("StartPathExecution away from origin should install an AutoNavigation")
	}
	if s.AutoNav.PendingPathID != pathID {
		t.Errorf("AutoNav.PendingPathID = %q, want %q", s.AutoNav.PendingPathID, pathID)
	}
	if len(s.AutoNav.Steps) != 2 {
		t.Errorf("expected 2 steps from r2 to r0, got %d", len(s.AutoNav.Steps))
	}
	if s.AutoNav.Timer != nil {
		s.AutoNav.Timer.Stop()
	}
}

func TestStartPathExecutionRejectsUnknownPath(t *testing.T) {
	repo := newExecutorTestRepo(t)
	e := NewExecutor(repo, threeRoomLine(), noopMove)
	s := &session.Session{RoomID: "r0"}
	err := e.StartPathExecution(context.Background(), s, "does-not-exist", 0)
	if !engineerr.Is(err, engineerr.NotFound) {
		t.Fatalf("StartPathExecution on an unknown path should be NotFound, got %v", err)
	}
}

func TestStopPathExecutionRequiresActiveExecution(t *testing.T) {
	repo := newExecutorTestRepo(t)
	e := NewExecutor(repo, threeRoomLine(), noopMove)
	s := &session.Session{}
	if err := e.StopPathExecution(s); !engineerr.Is(err, engineerr.DomainRule) {
		t.Fatalf("StopPathExecution with no active execution should be a DomainRule error, got %v", err)
	}
}

func TestStopPathExecutionPausesWithoutDiscardingProgress(t *testing.T) {
	repo := newExecutorTestRepo(t)
	e := NewExecutor(repo, threeRoomLine(), noopMove)
	s := &session.Session{PathExec: &session.PathExecution{PathID: "p1", Steps: []session.NavStep{{Direction: "east", RoomID: "r1"}}, CurrentStep: 1}}

	if err := e.StopPathExecution(s); err != nil {
		t.Fatalf("StopPathExecution: %v", err)
	}
	if !s.PathExec.IsPaused {
		t.Error("StopPathExecution should mark the execution paused")
	}
	if s.PathExec.CurrentStep != 1 {
		t.Error("StopPathExecution should not discard the current progress index")
	}
}

func TestContinuePathExecutionRejectsMismatchedOrUnpausedState(t *testing.T) {
	repo := newExecutorTestRepo(t)
	e := NewExecutor(repo, threeRoomLine(), noopMove)

	s := &session.Session{}
	if err := e.ContinuePathExecution(s, "p1"); !engineerr.Is(err, engineerr.DomainRule) {
		t.Fatalf("ContinuePathExecution with no execution should be a DomainRule error, got %v", err)
	}

	s.PathExec = &session.PathExecution{PathID: "p1", IsPaused: false}
	if err := e.ContinuePathExecution(s, "p1"); !engineerr.Is(err, engineerr.DomainRule) {
		t.Fatalf("ContinuePathExecution on a non-paused execution should be a DomainRule error, got %v", err)
	}

	s.PathExec.IsPaused = true
	if err := e.ContinuePathExecution(s, "other-path"); !engineerr.Is(err, engineerr.DomainRule) {
		t.Fatalf("ContinuePathExecution with a mismatched pathID should be a DomainRule error, got %v", err)
	}
}

func TestContinuePathExecutionResumesAndReschedules(t *testing.T) {
	repo := newExecutorTestRepo(t)
	e := NewExecutor(repo, threeRoomLine(), noopMove)
	s := &session.Session{PathExec: &session.PathExecution{PathID: "p1", IsPaused: true, Steps: []session.NavStep{{Direction: "east", RoomID: "r1"}}}}

	if err := e.ContinuePathExecution(s, "p1"); err != nil {
		t.Fatalf("ContinuePathExecution: %v", err)
	}
	if s.PathExec.IsPaused {
		t.Error("ContinuePathExecution should clear IsPaused")
	}
	if s.PathExec.Timer == nil {
		t.Error("ContinuePathExecution should reschedule a timer")
	}
	s.PathExec.Timer.Stop()
}
