package engine

import (
	"context"

	"github.com/lawnchairsociety/gridkeep/server/internal/engineerr"
	"github.com/lawnchairsociety/gridkeep/server/internal/protocol"
	"github.com/lawnchairsociety/gridkeep/server/internal/session"
	"github.com/lawnchairsociety/gridkeep/server/internal/worldmap"
)

const (
	cooldownHeavy   = 1200 // ms, >= 66.6% encumbrance
	cooldownLaden   = 700  // ms, >= 33.3% encumbrance
)

func (e *Engine) handleMove(ctx context.Context, s *session.Session, env protocol.Envelope) error {
	var msg protocol.MoveMsg
	if err := env.Decode(&msg); err != nil {
		return engineerr.Template(engineerr.Validation, "move_malformed", nil)
	}
	dir, ok := worldmap.ParseDirection(msg.Direction)
	if !ok {
		return engineerr.Template(engineerr.Validation, "move_direction_unsupported", map[string]any{"direction": msg.Direction})
	}

	s.Lock()
	pathActive := s.PathExec != nil && !s.PathExec.IsPaused
	navActive := s.AutoNav != nil
	s.Unlock()
	if pathActive || navActive {
		return engineerr.Template(engineerr.DomainRule, "move_rejected_during_execution", nil)
	}

	_, err := e.performMove(ctx, s, dir, false)
	return err
}

// performMove is the Movement Engine itself (§4.4), shared by manual moves
// and the scheduled path/auto-navigation steps. scheduled distinguishes a
// programmatic step (which bypasses the encumbrance-cooldown gate check
// applied to manual input, since the schedule already paced it) from a
// player-issued one.
func (e *Engine) performMove(ctx context.Context, s *session.Session, dir worldmap.Direction, scheduled bool) (string, error) {
	s.Lock()
	mapID, roomID, playerID := s.MapID, s.RoomID, s.PlayerID
	nextMoveTime := s.NextMoveTime
	s.Unlock()

	if !scheduled {
		if now := nowTime(); now.Before(nextMoveTime) {
			return "", engineerr.Template(engineerr.DomainRule, "move_on_cooldown", map[string]any{"seconds": nextMoveTime.Sub(now).Seconds()})
		}
	}

	room, ok := e.World.Room(mapID, roomID)
	if !ok {
		return "", engineerr.Template(engineerr.Infra, "player_room_missing", nil)
	}

	encumbrance, err := e.Repo.GetCurrentEncumbrance(ctx, playerID)
	if err != nil {
		return "", engineerr.Wrap(err, "read encumbrance")
	}
	stats, _, err := e.Repo.GetPlayerByID(ctx, playerID)
	if err != nil {
		return "", engineerr.Wrap(err, "read player stats")
	}
	pct := 0.0
	if stats.CapacityWeight > 0 {
		pct = encumbrance / stats.CapacityWeight * 100
	}
	if pct >= 100 {
		return "", engineerr.Template(engineerr.DomainRule, "move_too_heavy", nil)
	}

	destMapID, dest, isTransition, found := e.World.Step(room, dir)
	if !found {
		if s.PathExec != nil || s.AutoNav != nil {
			s.CancelAutoNav()
			s.CancelPathExec()
		}
		return "", engineerr.Template(engineerr.DomainRule, "move_wall_collision", nil)
	}

	if err := e.Repo.UpdatePlayerRoom(ctx, playerID, destMapID, dest.ID); err != nil {
		return "", engineerr.Wrap(err, "persist player room")
	}

	if npcID := s.HarvestingNPCID; npcID != "" {
		_ = e.Harvest.Interrupt(ctx, s.HarvestingRoomID, npcID, nowMS())
		s.ClearHarvest()
	}

	s.Lock()
	factory := s.Factory
	s.Factory = nil
	s.GlowCodex = nil
	s.Unlock()
	if room.Kind == worldmap.KindFactory && factory != nil {
		for _, itemID := range factory.Slots {
			if itemID != "" {
				room.AddItemStack(itemID, 1, true)
			}
		}
		room.RemovePlayer(playerID)
		if room.IsEmpty() {
			room.PrunePoofableItems()
		}
	} else {
		room.RemovePlayer(playerID)
		_ = e.Repo.RemovePoofableItemsFromRoom(ctx, room.ID)
	}

	e.Broadcast.ToRoom(room.ID, e.Broadcast.Template("player_left_direction", map[string]any{
		"name": s.PlayerName, "direction": string(dir),
	}), s.ConnID)
	e.broadcastPlayerLeft(room.ID, playerID, s.PlayerName, s.ConnID)
	e.Broadcast.Leave(room.ID, s.ConnID)

	dest.AddPlayer(playerID)
	e.Broadcast.Enter(dest.ID, s.ConnID)

	s.Lock()
	s.MapID, s.RoomID = destMapID, dest.ID
	if !scheduled {
		if pct >= 66.6 {
			s.NextMoveTime = nowTime().Add(msDuration(cooldownHeavy))
		} else if pct >= 33.3 {
			s.NextMoveTime = nowTime().Add(msDuration(cooldownLaden))
		}
	}
	s.Unlock()

	e.sendRoomFrame(ctx, s, dest, isTransition)
	e.Broadcast.ToRoom(dest.ID, e.Broadcast.Template("player_entered_direction", map[string]any{
		"name": s.PlayerName, "direction": string(dir.Opposite()),
	}), s.ConnID)
	e.broadcastPlayerJoined(dest.ID, playerID, s.PlayerName, s.ConnID)

	e.armEngagementTimers(ctx, s, dest)
	return dest.ID, nil
}

func (e *Engine) handleLook(ctx context.Context, s *session.Session, env protocol.Envelope) error {
	s.Lock()
	mapID, roomID := s.MapID, s.RoomID
	s.Unlock()
	room, ok := e.World.Room(mapID, roomID)
	if !ok {
		return engineerr.Template(engineerr.Infra, "player_room_missing", nil)
	}
	e.sendRoomFrame(ctx, s, room, false)
	return nil
}
