package engine

import (
	"context"

	"github.com/lawnchairsociety/gridkeep/server/internal/engineerr"
	"github.com/lawnchairsociety/gridkeep/server/internal/pathfind"
	"github.com/lawnchairsociety/gridkeep/server/internal/paths"
	"github.com/lawnchairsociety/gridkeep/server/internal/protocol"
	"github.com/lawnchairsociety/gridkeep/server/internal/session"
)

// handleStartPathingMode begins a recording: after confirming the player's
// room exists, it resets the session's recording buffer to that room as the
// origin and echoes the map and origin room back to the client.
func (e *Engine) handleStartPathingMode(ctx context.Context, s *session.Session, env protocol.Envelope) error {
	s.Lock()
	mapID, roomID := s.MapID, s.RoomID
	s.Unlock()
	if _, ok := e.World.Room(mapID, roomID); !ok {
		return engineerr.Template(engineerr.Infra, "player_room_missing", nil)
	}
	s.Lock()
	s.Recording = []session.RecordingStep{{RoomID: roomID}}
	s.Unlock()
	if s.Conn != nil {
		_ = s.Conn.Send(protocol.Out(protocol.PathingModeStartedFrame, map[string]any{
			"mapId": mapID, "originRoomId": roomID,
		}))
	}
	return nil
}

// handleAddPathStep validates that roomId is grid-adjacent to
// previousRoomId (when one is given), appends the step with its resolved
// direction to the session's recording buffer, and echoes it to the client.
func (e *Engine) handleAddPathStep(ctx context.Context, s *session.Session, env protocol.Envelope) error {
	var msg protocol.AddPathStepMsg
	if err := env.Decode(&msg); err != nil {
		return engineerr.Template(engineerr.Validation, "add_path_step_malformed", nil)
	}
	s.Lock()
	mapID := s.MapID
	s.Unlock()

	room, ok := e.World.Room(mapID, msg.RoomID)
	if !ok {
		return engineerr.Template(engineerr.NotFound, "room_not_found", nil)
	}

	var dir string
	if msg.PreviousRoomID != "" {
		prev, ok := e.World.Room(mapID, msg.PreviousRoomID)
		if !ok {
			return engineerr.Template(engineerr.NotFound, "room_not_found", nil)
		}
		d, err := paths.AddStep(e.World, mapID, prev.Coord, room.Coord, true)
		if err != nil {
			return err
		}
		dir = string(d)
	}

	s.Lock()
	s.Recording = append(s.Recording, session.RecordingStep{RoomID: msg.RoomID, Direction: dir})
	s.Unlock()

	if s.Conn != nil {
		_ = s.Conn.Send(protocol.Out(protocol.PathStepAddedFrame, map[string]any{
			"roomId": msg.RoomID, "direction": dir,
		}))
	}
	return nil
}

func (e *Engine) handleSavePath(ctx context.Context, s *session.Session, env protocol.Envelope) error {
	var msg protocol.SavePathMsg
	if err := env.Decode(&msg); err != nil {
		return engineerr.Template(engineerr.Validation, "save_path_malformed", nil)
	}

	s.Lock()
	playerID := s.PlayerID
	recorded := s.Recording
	s.Recording = nil
	s.Unlock()
	if len(recorded) == 0 {
		return engineerr.Template(engineerr.Validation, "path_empty_recording", nil)
	}

	steps := make([]paths.RecordedStep, len(recorded))
	for i, r := range recorded {
		steps[i] = paths.RecordedStep{RoomID: r.RoomID, Direction: r.Direction}
	}
	id, err := e.Recorder.SavePath(ctx, playerID, msg.Name, msg.Kind, msg.MapID, msg.OriginRoomID, steps)
	if err != nil {
		return err
	}
	if s.Conn != nil {
		_ = s.Conn.Send(protocol.Out(protocol.PathSavedFrame, map[string]any{"pathId": id}))
	}
	return nil
}

// handleCancelPathing discards an in-progress recording without saving it.
func (e *Engine) handleCancelPathing(ctx context.Context, s *session.Session, env protocol.Envelope) error {
	s.Lock()
	s.Recording = nil
	s.Unlock()
	if s.Conn != nil {
		_ = s.Conn.Send(protocol.Out(protocol.PathingCancelledFrame, nil))
	}
	return nil
}

// roomSummary is the rendering-friendly shape a room reduces to for map and
// auto-path queries: enough to draw a node, not the full server-side state.
type roomSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Kind        string `json:"kind"`
	X           int    `json:"x"`
	Y           int    `json:"y"`
}

func (e *Engine) handleGetMapData(ctx context.Context, s *session.Session, env protocol.Envelope) error {
	var msg protocol.GetMapDataMsg
	_ = env.Decode(&msg)
	mapID := msg.MapID
	if mapID == "" {
		s.Lock()
		mapID = s.MapID
		s.Unlock()
	}
	m, ok := e.World.Map(mapID)
	if !ok {
		return engineerr.Template(engineerr.NotFound, "map_not_found", nil)
	}
	rooms := m.Rooms()
	out := make([]roomSummary, len(rooms))
	for i, r := range rooms {
		out[i] = roomSummary{ID: r.ID, Name: r.Name, Description: r.Description, Kind: string(r.Kind), X: r.Coord.X, Y: r.Coord.Y}
	}
	if s.Conn != nil {
		_ = s.Conn.Send(protocol.Out(protocol.MapDataFrame, map[string]any{"mapId": mapID, "rooms": out}))
	}
	return nil
}

func (e *Engine) handleGetAutoPathMaps(ctx context.Context, s *session.Session, env protocol.Envelope) error {
	ids := e.World.MapIDs()
	if s.Conn != nil {
		_ = s.Conn.Send(protocol.Out(protocol.AutoPathMapsFrame, map[string]any{"maps": ids}))
	}
	return nil
}

func (e *Engine) handleGetAutoPathRooms(ctx context.Context, s *session.Session, env protocol.Envelope) error {
	var msg protocol.GetAutoPathRoomsMsg
	if err := env.Decode(&msg); err != nil {
		return engineerr.Template(engineerr.Validation, "get_auto_path_rooms_malformed", nil)
	}
	mapID := msg.MapID
	if mapID == "" {
		s.Lock()
		mapID = s.MapID
		s.Unlock()
	}
	m, ok := e.World.Map(mapID)
	if !ok {
		return engineerr.Template(engineerr.NotFound, "map_not_found", nil)
	}
	rooms := m.Rooms()
	out := make([]roomSummary, len(rooms))
	for i, r := range rooms {
		out[i] = roomSummary{ID: r.ID, Name: r.Name, Description: r.Description, Kind: string(r.Kind), X: r.Coord.X, Y: r.Coord.Y}
	}
	if s.Conn != nil {
		_ = s.Conn.Send(protocol.Out(protocol.AutoPathRoomsFrame, map[string]any{"mapId": mapID, "rooms": out}))
	}
	return nil
}

func (e *Engine) handleGetPathDetails(ctx context.Context, s *session.Session, env protocol.Envelope) error {
	var msg protocol.GetPathDetailsMsg
	if err := env.Decode(&msg); err != nil {
		return engineerr.Template(engineerr.Validation, "get_path_details_malformed", nil)
	}
	row, ok, err := e.Repo.GetPathByID(ctx, msg.PathID)
	if err != nil {
		return engineerr.Wrap(err, "load path")
	}
	if !ok {
		return engineerr.Template(engineerr.NotFound, "path_not_found", nil)
	}
	steps, err := e.Repo.GetPathSteps(ctx, msg.PathID)
	if err != nil {
		return engineerr.Wrap(err, "load path steps")
	}
	if s.Conn != nil {
		_ = s.Conn.Send(protocol.Out(protocol.PathDetailsFrame, map[string]any{
			"path": row, "steps": steps,
		}))
	}
	return nil
}

func (e *Engine) handleGetAllPlayerPaths(ctx context.Context, s *session.Session, env protocol.Envelope) error {
	s.Lock()
	playerID := s.PlayerID
	s.Unlock()
	rows, err := e.Repo.GetAllPathsByPlayer(ctx, playerID)
	if err != nil {
		return engineerr.Wrap(err, "load player paths")
	}
	if s.Conn != nil {
		_ = s.Conn.Send(protocol.Out(protocol.AllPlayerPathsFrame, map[string]any{"paths": rows}))
	}
	return nil
}

func (e *Engine) handleStartPathExecution(ctx context.Context, s *session.Session, env protocol.Envelope) error {
	var msg protocol.StartPathExecutionMsg
	if err := env.Decode(&msg); err != nil {
		return engineerr.Template(engineerr.Validation, "start_path_execution_malformed", nil)
	}
	if err := e.Executor.StartPathExecution(ctx, s, msg.PathID, 0); err != nil {
		return err
	}
	if s.Conn != nil {
		_ = s.Conn.Send(protocol.Out(protocol.PathExecutionStartedFrame, map[string]any{"pathId": msg.PathID}))
	}
	return nil
}

func (e *Engine) handleStopPathExecution(ctx context.Context, s *session.Session, env protocol.Envelope) error {
	if err := e.Executor.StopPathExecution(s); err != nil {
		return err
	}
	if s.Conn != nil {
		_ = s.Conn.Send(protocol.Out(protocol.PathExecutionStoppedFrame, nil))
	}
	return nil
}

func (e *Engine) handleContinuePathExecution(ctx context.Context, s *session.Session, env protocol.Envelope) error {
	var msg protocol.ContinuePathExecutionMsg
	if err := env.Decode(&msg); err != nil {
		return engineerr.Template(engineerr.Validation, "continue_path_execution_malformed", nil)
	}
	if err := e.Executor.ContinuePathExecution(s, msg.PathID); err != nil {
		return err
	}
	if s.Conn != nil {
		_ = s.Conn.Send(protocol.Out(protocol.PathExecutionResumedFrame, map[string]any{"pathId": msg.PathID}))
	}
	return nil
}

func (e *Engine) handleCalculateAutoPath(ctx context.Context, s *session.Session, env protocol.Envelope) error {
	var msg protocol.CalculateAutoPathMsg
	if err := env.Decode(&msg); err != nil {
		return engineerr.Template(engineerr.Validation, "calculate_auto_path_malformed", nil)
	}
	s.Lock()
	mapID, roomID := s.MapID, s.RoomID
	s.Unlock()

	src, ok := e.World.Room(mapID, roomID)
	if !ok {
		return engineerr.Template(engineerr.Infra, "player_room_missing", nil)
	}
	dst, ok := e.World.Room(mapID, msg.DestinationRoomID)
	if !ok {
		return engineerr.Template(engineerr.NotFound, "room_not_found", nil)
	}
	steps, found := pathfind.Find(e.World, src, dst)
	if !found {
		return engineerr.Template(engineerr.DomainRule, "path_unreachable", nil)
	}
	if s.Conn != nil {
		_ = s.Conn.Send(protocol.Out(protocol.AutoPathCalculatedFrame, map[string]any{"steps": steps}))
	}
	return nil
}

func (e *Engine) handleStartAutoNavigation(ctx context.Context, s *session.Session, env protocol.Envelope) error {
	var msg protocol.StartAutoNavigationMsg
	if err := env.Decode(&msg); err != nil {
		return engineerr.Template(engineerr.Validation, "start_auto_navigation_malformed", nil)
	}
	s.Lock()
	mapID, roomID := s.MapID, s.RoomID
	s.Unlock()

	src, ok := e.World.Room(mapID, roomID)
	if !ok {
		return engineerr.Template(engineerr.Infra, "player_room_missing", nil)
	}
	dst, ok := e.World.Room(mapID, msg.DestinationRoomID)
	if !ok {
		return engineerr.Template(engineerr.NotFound, "room_not_found", nil)
	}
	steps, found := pathfind.Find(e.World, src, dst)
	if !found {
		return engineerr.Template(engineerr.DomainRule, "path_unreachable", nil)
	}
	navSteps := make([]session.NavStep, len(steps))
	for i, st := range steps {
		navSteps[i] = session.NavStep{Direction: string(st.Direction), RoomID: st.RoomID}
	}
	s.Lock()
	s.AutoNav = &session.AutoNavigation{Steps: navSteps}
	s.Unlock()

	if s.Conn != nil {
		_ = s.Conn.Send(protocol.Out(protocol.AutoNavigationStartedFrame, map[string]any{
			"destinationRoomId": msg.DestinationRoomID, "steps": len(navSteps),
		}))
	}
	e.Executor.ScheduleAutoNavigation(s)
	return nil
}
