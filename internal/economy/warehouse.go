package economy

import (
	"context"

	"github.com/lawnchairsociety/gridkeep/server/internal/engineerr"
	"github.com/lawnchairsociety/gridkeep/server/internal/itemdef"
	"github.com/lawnchairsociety/gridkeep/server/internal/repository"
)

// Warehouse resolves store/withdraw against a deed-gated warehouse, capacity
// clipping per (max_item_types, max_quantity_per_type).
type Warehouse struct {
	repo  repository.Repository
	items *itemdef.Catalogue
}

func NewWarehouse(repo repository.Repository, items *itemdef.Catalogue) *Warehouse {
	return &Warehouse{repo: repo, items: items}
}

// AccessibleWarehouse resolves which warehouse key a player addresses when
// standing in a warehouse room they don't hold a deed for: the first
// warehouse they hold any deed to, in view-only mode.
func (w *Warehouse) AccessibleWarehouse(ctx context.Context, playerID, roomWarehouseKey string) (key string, fullAccess bool, err error) {
	has, err := w.repo.HasPlayerWarehouseDeed(ctx, playerID, roomWarehouseKey)
	if err != nil {
		return "", false, engineerr.Wrap(err, "check warehouse deed")
	}
	if has {
		return roomWarehouseKey, true, nil
	}
	deeds, err := w.repo.GetPlayerWarehouseDeeds(ctx, playerID)
	if err != nil {
		return "", false, engineerr.Wrap(err, "list warehouse deeds")
	}
	if len(deeds) == 0 {
		return "", false, engineerr.Template(engineerr.DomainRule, "warehouse_no_deed", nil)
	}
	return deeds[0], false, nil
}

// Store clips the requested quantity to both the player's held quantity and
// the warehouse's remaining capacity, reporting the clipped amount.
func (w *Warehouse) Store(ctx context.Context, playerID, warehouseKey, itemID string, qty int) (stored int, err error) {
	maxTypes, maxPerType, err := w.repo.GetPlayerWarehouseCapacity(ctx, playerID, warehouseKey)
	if err != nil {
		return 0, engineerr.Wrap(err, "read warehouse capacity")
	}

	existing, err := w.repo.GetWarehouseItems(ctx, playerID, warehouseKey)
	if err != nil {
		return 0, engineerr.Wrap(err, "read warehouse contents")
	}
	existingQty := 0
	typeCount := len(existing)
	isNewType := true
	for _, row := range existing {
		if row.ItemID == itemID {
			existingQty = row.Quantity
			isNewType = false
			break
		}
	}
	if isNewType && typeCount >= maxTypes {
		return 0, engineerr.Template(engineerr.DomainRule, "warehouse_full_types", nil)
	}

	room := qty
	if existingQty+room > maxPerType {
		room = maxPerType - existingQty
	}
	if room <= 0 {
		return 0, engineerr.Template(engineerr.DomainRule, "warehouse_full_quantity", map[string]any{"item": itemID})
	}

	taken, err := w.repo.RemovePlayerItem(ctx, playerID, itemID, room)
	if err != nil {
		return 0, engineerr.Wrap(err, "remove player item")
	}
	if taken == 0 {
		return 0, engineerr.Template(engineerr.DomainRule, "item_not_held", map[string]any{"item": itemID})
	}
	if err := w.repo.AddWarehouseItem(ctx, playerID, warehouseKey, itemID, taken); err != nil {
		return 0, engineerr.Wrap(err, "add warehouse item")
	}
	return taken, nil
}

// Withdraw clips the requested quantity to the warehouse's held amount and
// to the player's remaining encumbrance capacity.
func (w *Warehouse) Withdraw(ctx context.Context, playerID, warehouseKey, itemID string, qty int) (withdrawn int, err error) {
	def, ok := w.items.ByID(itemID)
	if !ok {
		return 0, engineerr.Template(engineerr.NotFound, "item_unknown", map[string]any{"item": itemID})
	}

	stats, found, err := w.repo.GetPlayerByID(ctx, playerID)
	if err != nil {
		return 0, engineerr.Wrap(err, "load player stats")
	}
	if !found {
		return 0, engineerr.Template(engineerr.NotFound, "player_unknown", nil)
	}
	current, err := w.repo.GetCurrentEncumbrance(ctx, playerID)
	if err != nil {
		return 0, engineerr.Wrap(err, "read encumbrance")
	}
	remaining := stats.CapacityWeight - current
	room := qty
	if def.Weight > 0 {
		maxByWeight := int(remaining / def.Weight)
		if maxByWeight < room {
			room = maxByWeight
		}
	}
	if room <= 0 {
		return 0, engineerr.Template(engineerr.DomainRule, "too_heavy", nil)
	}

	taken, err := w.repo.RemoveWarehouseItem(ctx, playerID, warehouseKey, itemID, room)
	if err != nil {
		return 0, engineerr.Wrap(err, "remove warehouse item")
	}
	if taken == 0 {
		return 0, engineerr.Template(engineerr.DomainRule, "warehouse_item_not_held", map[string]any{"item": itemID})
	}
	if err := w.repo.AddPlayerItem(ctx, playerID, itemID, taken); err != nil {
		return 0, engineerr.Wrap(err, "add player item")
	}
	return taken, nil
}
