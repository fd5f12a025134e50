// Package repository declares the engine's only contract with the durable
// store (§6.1). The store itself is an external collaborator — everything
// in this package is an interface plus the reference SQLite/Postgres
// implementation used by tests.
package repository

import (
	"context"
	"time"

	"github.com/lawnchairsociety/gridkeep/server/internal/npcdef"
)

// PlayerStats is the projection §6.1 calls getStats.
type PlayerStats struct {
	PlayerID        string
	Name            string
	Resonance       int
	Fortitude       int
	CurrentWeight   float64
	CapacityWeight  float64
	AlwaysFirstTime bool
}

// ItemStackRow is a (owner, item, quantity) tuple shared by inventory,
// room items, and warehouse contents.
type ItemStackRow struct {
	ItemID   string
	Quantity int
}

// MerchantStockRow is one tradeable line in a merchant's catalogue.
type MerchantStockRow struct {
	ItemID   string
	Price    int
	Stock    int // -1 = unlimited
	Buyable  bool
	Sellable bool
}

// PathRow and PathStepRow back the Path Recorder & Executor (§4.9).
type PathRow struct {
	ID           string
	PlayerID     string
	Name         string
	Kind         string // "path" or "loop"
	MapID        string
	OriginRoomID string
}

type PathStepRow struct {
	Index     int
	RoomID    string
	Direction string
}

// RoomTypeColor names the display color for a room kind, used by the
// "getAllRoomTypeColors" operation.
type RoomTypeColor struct {
	Kind  string
	Color string
}

// Repository is the full set of typed operations the core invokes. Every
// method takes a context so a blocking implementation can be cancelled;
// the SQL implementation in sqlrepo passes it through to every query.
type Repository interface {
	// Players
	GetPlayerByName(ctx context.Context, name string) (PlayerStats, bool, error)
	GetPlayerByID(ctx context.Context, id string) (PlayerStats, bool, error)
	UpdatePlayerRoom(ctx context.Context, playerID, mapID, roomID string) error
	SetWidgetConfig(ctx context.Context, playerID, key, value string) error
	GetWidgetConfig(ctx context.Context, playerID string) (map[string]string, error)
	GetCurrentEncumbrance(ctx context.Context, playerID string) (float64, error)
	ListPlayers(ctx context.Context) ([]PlayerStats, error)

	// PlayerTokenHash returns a player's id and stored bcrypt token hash by
	// name, for the Authentication & Takeover algorithm (C5).
	PlayerTokenHash(ctx context.Context, playerName string) (playerID, tokenHash string, ok bool, err error)
	// CreatePlayer provisions a brand-new player record with an
	// already-hashed token, returning its generated id.
	CreatePlayer(ctx context.Context, name, tokenHash string) (string, error)
	// ClearAlwaysFirstTime clears the always-first-time flag once a player
	// has been placed in the world for the first time.
	ClearAlwaysFirstTime(ctx context.Context, playerID string) error

	// Rooms / Maps
	GetRoomByID(ctx context.Context, mapID, roomID string) (mapIDOut string, exists bool, err error)
	GetAllRoomTypeColors(ctx context.Context) ([]RoomTypeColor, error)

	// NPCs
	GetScriptableNPCByID(ctx context.Context, npcID string) (npcdef.Definition, bool, error)
	GetNPCsInRoom(ctx context.Context, roomID string) ([]npcdef.Placement, error)
	GetLoreKeepersInRoom(ctx context.Context, roomID string) ([]npcdef.Placement, error)
	UpdateNPCState(ctx context.Context, roomID, npcID string, state npcdef.PlacementState) error

	// Greetings & awards
	HasPlayerBeenGreeted(ctx context.Context, playerID, npcID string) (bool, error)
	MarkPlayerGreeted(ctx context.Context, playerID, npcID string) error
	GetLastItemAwardTime(ctx context.Context, playerID, npcID, itemID string) (time.Time, bool, error)
	RecordItemAward(ctx context.Context, playerID, npcID, itemID string, when time.Time) error

	// Items & inventory
	GetItemEncumbrance(ctx context.Context, itemID string) (float64, bool, error)
	GetPlayerItems(ctx context.Context, playerID string) ([]ItemStackRow, error)
	AddPlayerItem(ctx context.Context, playerID, itemID string, qty int) error
	RemovePlayerItem(ctx context.Context, playerID, itemID string, qty int) (int, error)
	GetRoomItems(ctx context.Context, roomID string) ([]ItemStackRow, error)
	AddRoomItem(ctx context.Context, roomID, itemID string, qty int) error
	RemoveRoomItem(ctx context.Context, roomID, itemID string, qty int) (int, error)
	RemovePoofableItemsFromRoom(ctx context.Context, roomID string) error

	// Currency
	GetPlayerCurrency(ctx context.Context, playerID string) ([]ItemStackRow, error)
	AddPlayerCurrency(ctx context.Context, playerID, currencyItemID string, qty int) error
	RemovePlayerCurrency(ctx context.Context, playerID, currencyItemID string, qty int) (int, error)
	GetPlayerBankBalance(ctx context.Context, playerID string) ([]ItemStackRow, error)
	DepositCurrency(ctx context.Context, playerID, currencyItemID string, qty int) error
	WithdrawCurrency(ctx context.Context, playerID, currencyItemID string, qty int) (int, error)

	// Warehouse
	HasPlayerWarehouseDeed(ctx context.Context, playerID, warehouseKey string) (bool, error)
	GetPlayerWarehouseDeeds(ctx context.Context, playerID string) ([]string, error)
	GetPlayerWarehouseCapacity(ctx context.Context, playerID, warehouseKey string) (maxTypes, maxQtyPerType int, err error)
	GetWarehouseItems(ctx context.Context, playerID, warehouseKey string) ([]ItemStackRow, error)
	AddWarehouseItem(ctx context.Context, playerID, warehouseKey, itemID string, qty int) error
	RemoveWarehouseItem(ctx context.Context, playerID, warehouseKey, itemID string, qty int) (int, error)

	// Merchant
	GetMerchantItemsForRoom(ctx context.Context, roomID string) ([]MerchantStockRow, error)
	UpdateMerchantStock(ctx context.Context, roomID, itemID string, delta int) error

	// Paths
	CreatePath(ctx context.Context, p PathRow, steps []PathStepRow) (string, error)
	GetAllPathsByPlayer(ctx context.Context, playerID string) ([]PathRow, error)
	GetPathByID(ctx context.Context, pathID string) (PathRow, bool, error)
	GetPathSteps(ctx context.Context, pathID string) ([]PathStepRow, error)

	// Terminal history
	GetTerminalHistory(ctx context.Context, playerID string, limit int) ([]string, error)
	SaveTerminalMessage(ctx context.Context, playerID, line string) error

	// Messages
	GetAllGameMessages(ctx context.Context) (map[string]string, error)
}
