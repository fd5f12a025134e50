package sqlrepo

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/lawnchairsociety/gridkeep/server/internal/database"
	"github.com/lawnchairsociety/gridkeep/server/internal/itemdef"
	"github.com/lawnchairsociety/gridkeep/server/internal/npcdef"
	"github.com/lawnchairsociety/gridkeep/server/internal/repository"
)

func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("database.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	items := &itemdef.Catalogue{Items: map[string]itemdef.Definition{
		"iron-ore": {ID: "iron-ore", Name: "Iron Ore", Kind: itemdef.KindIngredient, Weight: 2},
	}}
	npcs := &npcdef.Catalogue{NPCs: map[string]npcdef.Definition{
		"miner": {ID: "miner", Name: "Miner", Kind: npcdef.KindRhythm, HarvestableSeconds: 60, CooldownSeconds: 120},
	}}
	return New(db, items, npcs, map[string]string{})
}

func TestCreateAndGetPlayer(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	id, err := r.CreatePlayer(ctx, "Alric", "hashed-token")
	if err != nil {
		t.Fatalf("CreatePlayer: %v", err)
	}

	stats, ok, err := r.GetPlayerByID(ctx, id)
	if err != nil || !ok {
		t.Fatalf("GetPlayerByID: %+v, %v, %v", stats, ok, err)
	}
	if stats.Name != "Alric" || !stats.AlwaysFirstTime {
		t.Errorf("new player should carry the always-first-time flag, got %+v", stats)
	}

	if err := r.ClearAlwaysFirstTime(ctx, id); err != nil {
		t.Fatalf("ClearAlwaysFirstTime: %v", err)
	}
	stats, _, _ = r.GetPlayerByID(ctx, id)
	if stats.AlwaysFirstTime {
		t.Error("ClearAlwaysFirstTime should clear the flag")
	}
}

func TestPlayerItemStacksUpsertAndDecrement(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	id, _ := r.CreatePlayer(ctx, "Bram", "hash")

	if err := r.AddPlayerItem(ctx, id, "iron-ore", 3); err != nil {
		t.Fatalf("AddPlayerItem: %v", err)
	}
	if err := r.AddPlayerItem(ctx, id, "iron-ore", 2); err != nil {
		t.Fatalf("AddPlayerItem: %v", err)
	}
	items, err := r.GetPlayerItems(ctx, id)
	if err != nil || len(items) != 1 || items[0].Quantity != 5 {
		t.Fatalf("expected a merged stack of 5, got %+v, %v", items, err)
	}

	taken, err := r.RemovePlayerItem(ctx, id, "iron-ore", 10)
	if err != nil {
		t.Fatalf("RemovePlayerItem: %v", err)
	}
	if taken != 5 {
		t.Errorf("RemovePlayerItem should clip to held quantity: got %d, want 5", taken)
	}

	items, _ = r.GetPlayerItems(ctx, id)
	if len(items) != 0 {
		t.Errorf("GetPlayerItems should only report quantity > 0 rows, got %+v", items)
	}
}

func TestRemovePlayerItemNeverHeldIsZero(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	id, _ := r.CreatePlayer(ctx, "Cass", "hash")

	taken, err := r.RemovePlayerItem(ctx, id, "iron-ore", 1)
	if err != nil {
		t.Fatalf("RemovePlayerItem: %v", err)
	}
	if taken != 0 {
		t.Errorf("removing an item never held should take 0, got %d", taken)
	}
}

func TestNPCPlacementStateRoundTrip(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	_, err := r.db.DB().ExecContext(ctx, `INSERT INTO npc_placements (room_id, npc_id, slot, definition_id, state_json) VALUES (?, ?, ?, ?, ?)`,
		"room-1", "miner", 0, "miner", "{}")
	if err != nil {
		t.Fatalf("seed placement: %v", err)
	}

	placements, err := r.GetNPCsInRoom(ctx, "room-1")
	if err != nil || len(placements) != 1 {
		t.Fatalf("GetNPCsInRoom = %+v, %v", placements, err)
	}
	if placements[0].State.HarvestActive {
		t.Error("freshly seeded placement should start idle")
	}

	state := placements[0].State
	state.HarvestActive = true
	state.HarvestingPlayerID = "p1"
	state.HarvestStartTime = 12345
	if err := r.UpdateNPCState(ctx, "room-1", "miner", state); err != nil {
		t.Fatalf("UpdateNPCState: %v", err)
	}

	placements, _ = r.GetNPCsInRoom(ctx, "room-1")
	if !placements[0].State.HarvestActive || placements[0].State.HarvestingPlayerID != "p1" {
		t.Errorf("UpdateNPCState did not persist, got %+v", placements[0].State)
	}
}

func TestGreetingIdempotence(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	id, _ := r.CreatePlayer(ctx, "Dara", "hash")

	greeted, err := r.HasPlayerBeenGreeted(ctx, id, "oracle")
	if err != nil || greeted {
		t.Fatalf("HasPlayerBeenGreeted before MarkPlayerGreeted = %v, %v", greeted, err)
	}

	if err := r.MarkPlayerGreeted(ctx, id, "oracle"); err != nil {
		t.Fatalf("MarkPlayerGreeted: %v", err)
	}
	// Marking twice must not error (sticky, idempotent per §3).
	if err := r.MarkPlayerGreeted(ctx, id, "oracle"); err != nil {
		t.Fatalf("MarkPlayerGreeted called twice: %v", err)
	}

	greeted, err = r.HasPlayerBeenGreeted(ctx, id, "oracle")
	if err != nil || !greeted {
		t.Fatalf("HasPlayerBeenGreeted after MarkPlayerGreeted = %v, %v", greeted, err)
	}
}

func TestItemAwardRecordAndLastAwardTime(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	id, _ := r.CreatePlayer(ctx, "Eshe", "hash")

	if _, ok, err := r.GetLastItemAwardTime(ctx, id, "oracle", "medallion"); err != nil || ok {
		t.Fatalf("GetLastItemAwardTime before any award = %v, %v", ok, err)
	}

	when := time.Now()
	if err := r.RecordItemAward(ctx, id, "oracle", "medallion", when); err != nil {
		t.Fatalf("RecordItemAward: %v", err)
	}

	got, ok, err := r.GetLastItemAwardTime(ctx, id, "oracle", "medallion")
	if err != nil || !ok {
		t.Fatalf("GetLastItemAwardTime after award = %v, %v", ok, err)
	}
	if got.Unix() != when.Unix() {
		t.Errorf("recorded award time = %v, want %v", got, when)
	}
}

func TestPathCreateAndRetrieve(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	id, _ := r.CreatePlayer(ctx, "Finn", "hash")

	row := repository.PathRow{PlayerID: id, Name: "patrol loop", Kind: "loop", MapID: "m1", OriginRoomID: "r0"}
	steps := []repository.PathStepRow{
		{Index: 0, RoomID: "r0", Direction: ""},
		{Index: 1, RoomID: "r1", Direction: "north"},
		{Index: 2, RoomID: "r0", Direction: "south"},
	}
	pathID, err := r.CreatePath(ctx, row, steps)
	if err != nil {
		t.Fatalf("CreatePath: %v", err)
	}

	got, ok, err := r.GetPathByID(ctx, pathID)
	if err != nil || !ok || got.Name != "patrol loop" {
		t.Fatalf("GetPathByID = %+v, %v, %v", got, ok, err)
	}

	gotSteps, err := r.GetPathSteps(ctx, pathID)
	if err != nil || len(gotSteps) != 3 {
		t.Fatalf("GetPathSteps = %+v, %v", gotSteps, err)
	}
	if gotSteps[1].Direction != "north" {
		t.Errorf("step 1 direction = %q, want north", gotSteps[1].Direction)
	}

	all, err := r.GetAllPathsByPlayer(ctx, id)
	if err != nil || len(all) != 1 {
		t.Fatalf("GetAllPathsByPlayer = %+v, %v", all, err)
	}
}

func TestMerchantStockDecrementStopsAtZeroNotBelow(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	_, err := r.db.DB().ExecContext(ctx, `INSERT INTO merchant_stock (room_id, item_id, price, stock, buyable, sellable) VALUES (?, ?, ?, ?, 1, 1)`,
		"shop-1", "iron-ore", 10, 2)
	if err != nil {
		t.Fatalf("seed merchant stock: %v", err)
	}

	if err := r.UpdateMerchantStock(ctx, "shop-1", "iron-ore", -2); err != nil {
		t.Fatalf("UpdateMerchantStock: %v", err)
	}
	rows, err := r.GetMerchantItemsForRoom(ctx, "shop-1")
	if err != nil || len(rows) != 1 || rows[0].Stock != 0 {
		t.Fatalf("stock after decrement = %+v, %v", rows, err)
	}

	// Unlimited stock (-1) is never touched by UpdateMerchantStock's guard.
	_, _ = r.db.DB().ExecContext(ctx, `INSERT INTO merchant_stock (room_id, item_id, price, stock, buyable, sellable) VALUES (?, ?, ?, ?, 1, 1)`,
		"shop-1", "potion", 5, -1)
	if err := r.UpdateMerchantStock(ctx, "shop-1", "potion", -1); err != nil {
		t.Fatalf("UpdateMerchantStock on unlimited stock: %v", err)
	}
	rows, _ = r.GetMerchantItemsForRoom(ctx, "shop-1")
	for _, row := range rows {
		if row.ItemID == "potion" && row.Stock != -1 {
			t.Errorf("unlimited stock should stay -1, got %d", row.Stock)
		}
	}
}

func TestWarehouseDeedAndCapacity(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	id, _ := r.CreatePlayer(ctx, "Gwen", "hash")

	if has, err := r.HasPlayerWarehouseDeed(ctx, id, "north-warehouse"); err != nil || has {
		t.Fatalf("HasPlayerWarehouseDeed before granting a deed = %v, %v", has, err)
	}

	_, err := r.db.DB().ExecContext(ctx, `INSERT INTO warehouse_deeds (player_id, warehouse_key) VALUES (?, ?)`, id, "north-warehouse")
	if err != nil {
		t.Fatalf("seed deed: %v", err)
	}
	if has, err := r.HasPlayerWarehouseDeed(ctx, id, "north-warehouse"); err != nil || !has {
		t.Fatalf("HasPlayerWarehouseDeed after granting a deed = %v, %v", has, err)
	}

	if err := r.AddWarehouseItem(ctx, id, "north-warehouse", "iron-ore", 5); err != nil {
		t.Fatalf("AddWarehouseItem: %v", err)
	}
	taken, err := r.RemoveWarehouseItem(ctx, id, "north-warehouse", "iron-ore", 100)
	if err != nil || taken != 5 {
		t.Fatalf("RemoveWarehouseItem should clip to held quantity, got %d, %v", taken, err)
	}
}
