package engine

import (
	"context"

	"github.com/lawnchairsociety/gridkeep/server/internal/logger"
	"github.com/lawnchairsociety/gridkeep/server/internal/session"
)

// Disconnect implements Cleanup & Disconnect (§4.11): called once a
// connection's read loop exits, whatever the cause. It tears down every
// piece of volatile per-session state and notifies the room the player
// left, mirroring the teacher's client-close handler.
func (e *Engine) Disconnect(ctx context.Context, s *session.Session) {
	s.CancelEngagements()
	s.CancelAutoNav()
	s.CancelPathExec()

	s.Lock()
	s.GlowCodex = nil
	playerID, connID, mapID, roomID := s.PlayerID, s.ConnID, s.MapID, s.RoomID
	npcID, harvestRoomID := s.HarvestingNPCID, s.HarvestingRoomID
	factory := s.Factory
	s.Unlock()

	if playerID == "" {
		e.Sessions.Remove(connID)
		return
	}

	if npcID != "" {
		if err := e.Harvest.Interrupt(ctx, harvestRoomID, npcID, nowMS()); err != nil {
			logger.Warning("failed to interrupt harvest on disconnect", "npc_id", npcID, "error", err)
		}
		s.ClearHarvest()
	}

	if room, ok := e.World.Room(mapID, roomID); ok {
		if factory != nil {
			for _, itemID := range factory.Slots {
				if itemID != "" {
					room.AddItemStack(itemID, 1, true)
				}
			}
		}
		room.RemovePlayer(playerID)
		if room.IsEmpty() {
			room.PrunePoofableItems()
		}
		e.Broadcast.ToRoom(room.ID, e.Broadcast.Template("player_left_room", nil), connID)
		e.broadcastPlayerLeft(room.ID, playerID, s.PlayerName, connID)
		e.Broadcast.Leave(room.ID, connID)
	}

	e.Sessions.Remove(connID)
	e.Broadcast.ToAll(e.Broadcast.Template("system_left", map[string]any{"name": s.PlayerName}), "")
}
