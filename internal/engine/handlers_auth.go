package engine

import (
	"context"
	"time"

	"github.com/lawnchairsociety/gridkeep/server/internal/engineerr"
	"github.com/lawnchairsociety/gridkeep/server/internal/logger"
	"github.com/lawnchairsociety/gridkeep/server/internal/protocol"
	"github.com/lawnchairsociety/gridkeep/server/internal/session"
)

// handleAuthenticate implements C5 (§4.2): resolve the player, reconcile
// with any existing live session, then place the (possibly new) session
// into the world.
func (e *Engine) handleAuthenticate(ctx context.Context, s *session.Session, env protocol.Envelope) error {
	var msg protocol.AuthenticateSessionMsg
	if err := env.Decode(&msg); err != nil {
		return engineerr.Template(engineerr.Validation, "auth_malformed", nil)
	}

	playerID, err := e.Auth.Resolve(ctx, e.Repo, msg.PlayerName, msg.Token)
	if err != nil {
		return err
	}

	stats, ok, err := e.Repo.GetPlayerByID(ctx, playerID)
	if err != nil {
		return engineerr.Wrap(err, "load player")
	}
	if !ok {
		return engineerr.Template(engineerr.NotFound, "player_unknown", nil)
	}

	if existing, found := e.Sessions.GetByPlayer(playerID); found {
		existing.Lock()
		sameWindow := existing.WindowID == msg.WindowID
		open := existing.Conn != nil && existing.Conn.IsOpen()
		existing.Unlock()

		switch {
		case sameWindow && !open:
			e.Sessions.Remove(existing.ConnID)
		case open:
			e.performTakeover(ctx, existing)
		default:
			e.Sessions.Remove(existing.ConnID)
		}
	}

	mapID, roomID := "", ""
	if stats.AlwaysFirstTime {
		mapID, roomID = e.StartMapID, e.StartRoomID
		if err := e.Repo.UpdatePlayerRoom(ctx, playerID, mapID, roomID); err != nil {
			logger.Warning("failed to place first-time player in starting room", "player_id", playerID, "error", err)
		}
		_ = e.Repo.ClearAlwaysFirstTime(ctx, playerID)
	}

	e.Sessions.BindPlayer(s, playerID, msg.PlayerName)
	s.Lock()
	s.WindowID = msg.WindowID
	if mapID != "" {
		s.MapID, s.RoomID = mapID, roomID
	}
	s.Unlock()

	room, ok := e.World.Room(s.MapID, s.RoomID)
	if !ok {
		return engineerr.Template(engineerr.Infra, "player_room_missing", nil)
	}
	room.AddPlayer(playerID)
	e.Broadcast.Enter(room.ID, s.ConnID)
	e.broadcastPlayerJoined(room.ID, playerID, msg.PlayerName, s.ConnID)

	e.sendRoomFrame(ctx, s, room, true)
	e.sendStatsFrame(ctx, s, stats)
	e.Broadcast.ToAll(e.Broadcast.Template("system_entered", map[string]any{"name": msg.PlayerName}), s.ConnID)

	history, herr := e.Repo.GetTerminalHistory(ctx, playerID, 200)
	if herr == nil && len(history) > 0 {
		s.Conn.Send(protocol.Out(protocol.TerminalHistoryFrame, map[string]any{"lines": history}))
	}

	e.armEngagementTimers(ctx, s, room)
	return nil
}

// performTakeover executes the takeover branch of §4.2 against the prior
// live session for a player.
func (e *Engine) performTakeover(ctx context.Context, old *session.Session) {
	old.Lock()
	roomID, npcID := old.HarvestingRoomID, old.HarvestingNPCID
	factory := old.Factory
	playerID, connID, mapID := old.PlayerID, old.ConnID, old.MapID
	oldRoomID := old.RoomID
	old.Unlock()

	if npcID != "" {
		if err := e.Harvest.Interrupt(ctx, roomID, npcID, nowMS()); err != nil {
			logger.Warning("failed to interrupt harvest during takeover", "npc_id", npcID, "error", err)
		}
	}

	room, ok := e.World.Room(mapID, oldRoomID)
	if ok {
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
		e.broadcastPlayerLeft(room.ID, playerID, old.PlayerName, connID)
		e.Broadcast.Leave(room.ID, connID)
	}

	e.Sessions.Remove(connID)

	old.Lock()
	conn := old.Conn
	old.Unlock()
	if conn != nil {
		_ = conn.Send(protocol.Out(protocol.ForceCloseFrame, nil))
		go func() {
			time.Sleep(200 * time.Millisecond)
			_ = conn.Close()
		}()
	}

	e.Broadcast.ToAll(e.Broadcast.Template("system_left", map[string]any{"name": old.PlayerName}), "")
}
