// Package paths implements the Path Recorder & Executor (§4.9): recording
// a sequence of grid-adjacent moves and replaying them on a timer, with
// pause/resume and loop-wrap semantics.
package paths

import (
	"context"

	"github.com/lawnchairsociety/gridkeep/server/internal/engineerr"
	"github.com/lawnchairsociety/gridkeep/server/internal/repository"
	"github.com/lawnchairsociety/gridkeep/server/internal/worldmap"
)

// Recorder validates and persists a recorded sequence of moves.
type Recorder struct {
	repo repository.Repository
}

func NewRecorder(repo repository.Repository) *Recorder {
	return &Recorder{repo: repo}
}

// RecordedStep is one step accumulated during a recording session, kept
// client-side (or session-side) until SavePath persists it.
type RecordedStep struct {
	RoomID    string
	Direction string
}

// AddStep validates that nextCoord is one of the eight grid neighbours of
// prevCoord (orthogonal or diagonal) and returns the direction of travel.
// The very first step of a recording has no previous room and carries no
// direction.
func AddStep(w *worldmap.World, mapID string, prevCoord, nextCoord worldmap.Coord, hasPrev bool) (worldmap.Direction, error) {
	if !hasPrev {
		return "", nil
	}
	dx := nextCoord.X - prevCoord.X
	dy := nextCoord.Y - prevCoord.Y
	if abs(dx)+abs(dy) != 1 && !(abs(dx) == 1 && abs(dy) == 1) {
		return "", engineerr.Template(engineerr.Validation, "path_step_not_adjacent", nil)
	}
	dir, ok := worldmap.DirectionBetween(prevCoord, nextCoord)
	if !ok {
		return "", engineerr.Template(engineerr.Validation, "path_step_not_adjacent", nil)
	}
	return dir, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// SavePath persists a completed recording.
func (r *Recorder) SavePath(ctx context.Context, playerID, name, kind, mapID, originRoomID string, steps []RecordedStep) (string, error) {
	if kind != "path" && kind != "loop" {
		return "", engineerr.Template(engineerr.Validation, "path_kind_invalid", map[string]any{"kind": kind})
	}
	row := repository.PathRow{
		PlayerID:     playerID,
		Name:         name,
		Kind:         kind,
		MapID:        mapID,
		OriginRoomID: originRoomID,
	}
	stepRows := make([]repository.PathStepRow, len(steps))
	for i, s := range steps {
		stepRows[i] = repository.PathStepRow{Index: i, RoomID: s.RoomID, Direction: s.Direction}
	}
	id, err := r.repo.CreatePath(ctx, row, stepRows)
	if err != nil {
		return "", engineerr.Wrap(err, "save path")
	}
	return id, nil
}
