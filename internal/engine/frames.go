package engine

import (
	"context"
	"time"

	"github.com/lawnchairsociety/gridkeep/server/internal/logger"
	"github.com/lawnchairsociety/gridkeep/server/internal/npcdef"
	"github.com/lawnchairsociety/gridkeep/server/internal/protocol"
	"github.com/lawnchairsociety/gridkeep/server/internal/repository"
	"github.com/lawnchairsociety/gridkeep/server/internal/session"
	"github.com/lawnchairsociety/gridkeep/server/internal/worldmap"
)

// npcStatusLabel classifies a placement's harvest state for the room_update
// contract (§4.1): harvesting/cooldown come straight off the harvest state
// machine, idle vs. ready distinguishes a placement that has never yet
// completed a cycle from one that has and is presently available again.
func npcStatusLabel(state npcdef.PlacementState, nowMS int64) string {
	switch {
	case state.HarvestActive:
		return "harvesting"
	case state.IsOnCooldown(nowMS):
		return "cooldown"
	case state.Cycles > 0:
		return "ready"
	default:
		return "idle"
	}
}

// broadcastPlayerJoined and broadcastPlayerLeft deliver the structured
// per-room arrival/departure frames named in §6.2's outbound tag set,
// alongside (not in place of) the templated prose messages.
func (e *Engine) broadcastPlayerJoined(roomID, playerID, playerName, exceptConnID string) {
	e.Broadcast.ToRoom(roomID, protocol.Out(protocol.PlayerJoinedFrame, map[string]any{
		"playerId": playerID, "name": playerName,
	}), exceptConnID)
}

func (e *Engine) broadcastPlayerLeft(roomID, playerID, playerName, exceptConnID string) {
	e.Broadcast.ToRoom(roomID, protocol.Out(protocol.PlayerLeftFrame, map[string]any{
		"playerId": playerID, "name": playerName,
	}), exceptConnID)
}

// sendRoomFrame renders and delivers the standard "Also here" / "Exits" /
// "On ground" room description to s, optionally also pushing the
// containing map's full room set (on authenticate and map transitions).
func (e *Engine) sendRoomFrame(ctx context.Context, s *session.Session, room *worldmap.Room, pushMap bool) {
	var others []string
	for _, playerID := range room.Players() {
		if playerID == s.PlayerID {
			continue
		}
		others = append(others, playerID)
	}
	var exits []string
	for _, n := range e.World.Neighbors8(room) {
		if dir, ok := worldmap.DirectionBetween(room.Coord, n.Coord); ok {
			exits = append(exits, string(dir))
		}
	}
	if room.Portal != nil {
		exits = append(exits, string(room.Portal.TargetDirection))
	}
	var onGround []string
	for _, it := range room.Items() {
		onGround = append(onGround, it.ItemID)
	}

	var npcs []map[string]any
	if placements, err := e.Repo.GetNPCsInRoom(ctx, room.ID); err != nil {
		logger.Warning("failed to load room npcs for room frame", "room_id", room.ID, "error", err)
	} else {
		now := nowMS()
		for _, p := range placements {
			def, ok := e.NPCs.ByID(p.DefinitionID)
			if !ok {
				continue
			}
			npcs = append(npcs, map[string]any{
				"npcId":  p.NPCID,
				"name":   def.Name,
				"kind":   string(def.Kind),
				"status": npcStatusLabel(p.State, now),
			})
		}
	}

	mapName := ""
	if m, ok := e.World.Map(room.MapID); ok {
		mapName = m.Name
	}

	frame := protocol.Out(protocol.MovedFrame, map[string]any{
		"roomId":      room.ID,
		"name":        room.Name,
		"description": room.Description,
		"kind":        string(room.Kind),
		"mapName":     mapName,
		"alsoHere":    others,
		"npcs":        npcs,
		"exits":       exits,
		"onGround":    onGround,
	})
	if s.Conn != nil {
		_ = s.Conn.Send(frame)
	}

	if pushMap {
		if m, ok := e.World.Map(room.MapID); ok {
			var rooms []map[string]any
			for _, r := range m.Rooms() {
				rooms = append(rooms, map[string]any{
					"roomId": r.ID, "x": r.Coord.X, "y": r.Coord.Y, "kind": string(r.Kind),
				})
			}
			colors, _ := e.Repo.GetAllRoomTypeColors(ctx)
			if s.Conn != nil {
				_ = s.Conn.Send(protocol.Out(protocol.MapDataFrame, map[string]any{"rooms": rooms, "roomTypeColors": colors}))
			}
		}
	}
}

func (e *Engine) sendStatsFrame(ctx context.Context, s *session.Session, stats repository.PlayerStats) {
	if s.Conn == nil {
		return
	}
	_ = s.Conn.Send(protocol.Out(protocol.PlayerStatsFrame, map[string]any{
		"resonance":      stats.Resonance,
		"fortitude":      stats.Fortitude,
		"capacityWeight": stats.CapacityWeight,
	}))
}

// armEngagementTimers implements the lorekeeper engagement scheduling of
// §4.6: cancel prior timers, then for each ungreeted engagement-enabled
// lorekeeper in the room, schedule its initial message.
func (e *Engine) armEngagementTimers(ctx context.Context, s *session.Session, room *worldmap.Room) {
	s.CancelEngagements()

	keepers, err := e.Repo.GetLoreKeepersInRoom(ctx, room.ID)
	if err != nil {
		logger.Warning("failed to load lorekeepers for engagement", "room_id", room.ID, "error", err)
		return
	}
	for _, placement := range keepers {
		def, ok := e.NPCs.ByID(placement.DefinitionID)
		if !ok || def.Lore == nil || !def.Lore.EngagementEnabled || def.Lore.InitialMessage == "" {
			continue
		}
		greeted, err := e.Repo.HasPlayerBeenGreeted(ctx, s.PlayerID, placement.NPCID)
		if err != nil || greeted {
			continue
		}

		npcID := placement.NPCID
		delay := time.Duration(def.Lore.EngagementDelayMS) * time.Millisecond
		timer := time.AfterFunc(delay, func() {
			e.fireEngagement(context.Background(), s, room.ID, npcID)
		})
		s.SetEngagement(npcID, timer)
	}
}

func (e *Engine) fireEngagement(ctx context.Context, s *session.Session, roomID, npcID string) {
	s.Lock()
	stillHere := s.RoomID == roomID
	conn := s.Conn
	s.Unlock()
	if !stillHere || conn == nil || !conn.IsOpen() {
		return
	}

	def, ok := e.NPCs.ByID(npcID)
	if !ok || def.Lore == nil {
		return
	}
	if err := e.Repo.MarkPlayerGreeted(ctx, s.PlayerID, npcID); err != nil {
		logger.Warning("failed to record greeting", "npc_id", npcID, "error", err)
		return
	}
	frame := protocol.Out(protocol.LoreKeeperMessageFrame, protocol.NPCSpeech(def.Name, "", def.Lore.InitialMessage, def.Lore.InitialMessageColor, def.Lore.KeywordColor))
	_ = conn.Send(frame)
	e.recordTerminalLine(ctx, s.PlayerID, def.Lore.InitialMessage)
}
