package engine

import (
	"context"
	"strconv"

	"github.com/lawnchairsociety/gridkeep/server/internal/engineerr"
	"github.com/lawnchairsociety/gridkeep/server/internal/logger"
	"github.com/lawnchairsociety/gridkeep/server/internal/protocol"
	"github.com/lawnchairsociety/gridkeep/server/internal/session"
	"github.com/lawnchairsociety/gridkeep/server/internal/worldmap"
)

func parseQuantity(raw string) int {
	if raw == "" {
		return 1
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 1
	}
	return n
}

// resolveItem runs the catalogue's partial-name cascade and returns a
// single candidate id, or a typed error listing multiple matches or
// reporting zero matches.
func (e *Engine) resolveItem(partial string) (string, error) {
	matches := e.Items.FindByPartialName(partial)
	switch len(matches) {
	case 0:
		return "", engineerr.Template(engineerr.NotFound, "item_no_match", map[string]any{"name": partial})
	case 1:
		return matches[0], nil
	default:
		names := make([]string, len(matches))
		for i, id := range matches {
			if def, ok := e.Items.ByID(id); ok {
				names[i] = def.Name
			}
		}
		return "", engineerr.Template(engineerr.Validation, "item_ambiguous", map[string]any{"matches": names})
	}
}

func (e *Engine) handleTake(ctx context.Context, s *session.Session, env protocol.Envelope) error {
	var msg protocol.TakeMsg
	if err := env.Decode(&msg); err != nil {
		return engineerr.Template(engineerr.Validation, "take_malformed", nil)
	}
	itemID, err := e.resolveItem(msg.ItemName)
	if err != nil {
		return err
	}
	qty := parseQuantity(msg.Quantity)

	s.Lock()
	mapID, roomID, playerID := s.MapID, s.RoomID, s.PlayerID
	s.Unlock()
	room, ok := e.World.Room(mapID, roomID)
	if !ok {
		return engineerr.Template(engineerr.Infra, "player_room_missing", nil)
	}

	taken := room.RemoveItemStack(itemID, qty)
	if taken == 0 {
		return engineerr.Template(engineerr.DomainRule, "item_not_on_ground", map[string]any{"item": itemID})
	}
	if err := e.Repo.RemoveRoomItem(ctx, room.ID, itemID, taken); err != nil {
		return engineerr.Wrap(err, "persist room item removal")
	}
	if err := e.Repo.AddPlayerItem(ctx, playerID, itemID, taken); err != nil {
		return engineerr.Wrap(err, "persist player item gain")
	}

	if s.Conn != nil {
		_ = s.Conn.Send(protocol.Out(protocol.MessageFrame, map[string]any{
			"message": e.Templates.Format("take_success", map[string]any{"item": itemID, "quantity": taken}),
		}))
	}
	return nil
}

func (e *Engine) handleDrop(ctx context.Context, s *session.Session, env protocol.Envelope) error {
	var msg protocol.DropMsg
	if err := env.Decode(&msg); err != nil {
		return engineerr.Template(engineerr.Validation, "drop_malformed", nil)
	}
	itemID, err := e.resolveItem(msg.ItemName)
	if err != nil {
		return err
	}
	qty := parseQuantity(msg.Quantity)

	s.Lock()
	mapID, roomID, playerID := s.MapID, s.RoomID, s.PlayerID
	s.Unlock()
	room, ok := e.World.Room(mapID, roomID)
	if !ok {
		return engineerr.Template(engineerr.Infra, "player_room_missing", nil)
	}

	dropped, err := e.Repo.RemovePlayerItem(ctx, playerID, itemID, qty)
	if err != nil {
		return engineerr.Wrap(err, "persist player item loss")
	}
	if dropped == 0 {
		return engineerr.Template(engineerr.DomainRule, "item_not_held", map[string]any{"item": itemID})
	}

	def, _ := e.Items.ByID(itemID)
	room.AddItemStack(itemID, dropped, def.Poofable)
	if err := e.Repo.AddRoomItem(ctx, room.ID, itemID, dropped); err != nil {
		return engineerr.Wrap(err, "persist room item gain")
	}

	if s.Conn != nil {
		_ = s.Conn.Send(protocol.Out(protocol.MessageFrame, map[string]any{
			"message": e.Templates.Format("drop_success", map[string]any{"item": itemID, "quantity": dropped}),
		}))
	}
	return nil
}

// handleFactoryWidgetAddItem loads one item from the caller's inventory
// into a factory room's two-slot crafting widget, returning any item
// displaced from that slot to the caller. Widget contents spill to the
// floor on room departure (handleMove/Disconnect/performTakeover).
func (e *Engine) handleFactoryWidgetAddItem(ctx context.Context, s *session.Session, env protocol.Envelope) error {
	var msg protocol.FactoryWidgetAddItemMsg
	if err := env.Decode(&msg); err != nil {
		return engineerr.Template(engineerr.Validation, "factory_widget_add_item_malformed", nil)
	}
	if msg.Slot < 0 || msg.Slot > 1 {
		return engineerr.Template(engineerr.Validation, "factory_widget_slot_invalid", nil)
	}

	s.Lock()
	mapID, roomID, playerID := s.MapID, s.RoomID, s.PlayerID
	s.Unlock()
	room, ok := e.World.Room(mapID, roomID)
	if !ok {
		return engineerr.Template(engineerr.Infra, "player_room_missing", nil)
	}
	if room.Kind != worldmap.KindFactory {
		return engineerr.Template(engineerr.DomainRule, "factory_widget_not_in_factory", nil)
	}

	itemID, err := e.resolveItem(msg.ItemName)
	if err != nil {
		return err
	}
	taken, err := e.Repo.RemovePlayerItem(ctx, playerID, itemID, 1)
	if err != nil {
		return engineerr.Wrap(err, "persist player item loss")
	}
	if taken == 0 {
		return engineerr.Template(engineerr.DomainRule, "item_not_held", map[string]any{"item": itemID})
	}

	s.Lock()
	if s.Factory == nil {
		s.Factory = &session.FactoryWidget{RoomID: roomID}
	}
	previous := s.Factory.Slots[msg.Slot]
	s.Factory.Slots[msg.Slot] = itemID
	slots := s.Factory.Slots
	s.Unlock()

	if previous != "" {
		if err := e.Repo.AddPlayerItem(ctx, playerID, previous, 1); err != nil {
			logger.Warning("failed to return displaced factory widget item", "item", previous, "error", err)
		}
	}

	if s.Conn != nil {
		_ = s.Conn.Send(protocol.Out(protocol.FactoryWidgetStateFrame, map[string]any{"slots": slots}))
	}
	return nil
}

func (e *Engine) handleInventory(ctx context.Context, s *session.Session, env protocol.Envelope) error {
	s.Lock()
	playerID := s.PlayerID
	s.Unlock()
	rows, err := e.Repo.GetPlayerItems(ctx, playerID)
	if err != nil {
		return engineerr.Wrap(err, "read inventory")
	}
	if s.Conn != nil {
		_ = s.Conn.Send(protocol.Out(protocol.InventoryListFrame, map[string]any{"items": rows}))
	}
	return nil
}
