package economy

import (
	"context"
	"testing"

	"github.com/lawnchairsociety/gridkeep/server/internal/engineerr"
)

func TestMerchantBuyDebitsLowestValueCurrencyFirst(t *testing.T) {
	repo, items := newCurrencyTestRepo(t)
	ctx := context.Background()
	id, _ := repo.CreatePlayer(ctx, "Alric", "hash")
	repo.AddPlayerCurrency(ctx, id, "glimmer-crown", 1)
	repo.AddPlayerCurrency(ctx, id, "glimmer-shard", 50)

	if _, err := repo.DB().DB().ExecContext(ctx,
		`INSERT INTO merchant_stock (room_id, item_id, price, stock, buyable, sellable) VALUES (?, ?, ?, ?, 1, 1)`,
		"shop-1", "iron-ore", 30, 5); err != nil {
		t.Fatalf("seed merchant stock: %v", err)
	}

	m := NewMerchant(repo, items)
	if err := m.Buy(ctx, id, "shop-1", "iron-ore", 1); err != nil {
		t.Fatalf("Buy: %v", err)
	}

	wallet, _ := repo.GetPlayerCurrency(ctx, id)
	held := toHeldMap(wallet)
	// Cost is 30 (smallest denom). Shards (value 1) should drain before the crown (value 100) is touched.
	if held["glimmer-crown"] != 1 {
		t.Errorf("Buy should not break the crown while shards can cover the cost, got crown=%d", held["glimmer-crown"])
	}
	if held["glimmer-shard"] != 20 {
		t.Errorf("shards after a 30-unit purchase = %d, want 20", held["glimmer-shard"])
	}

	rows, _ := repo.GetMerchantItemsForRoom(ctx, "shop-1")
	for _, row := range rows {
		if row.ItemID == "iron-ore" && row.Stock != 4 {
			t.Errorf("stock after buy = %d, want 4", row.Stock)
		}
	}
}

func TestMerchantBuyRejectsOutOfStock(t *testing.T) {
	repo, items := newCurrencyTestRepo(t)
	ctx := context.Background()
	id, _ := repo.CreatePlayer(ctx, "Bram", "hash")
	repo.AddPlayerCurrency(ctx, id, "glimmer-crown", 10)
	repo.DB().DB().ExecContext(ctx,
		`INSERT INTO merchant_stock (room_id, item_id, price, stock, buyable, sellable) VALUES (?, ?, ?, ?, 1, 1)`,
		"shop-1", "iron-ore", 10, 0)

	m := NewMerchant(repo, items)
	if err := m.Buy(ctx, id, "shop-1", "iron-ore", 1); !engineerr.Is(err, engineerr.DomainRule) {
		t.Fatalf("Buy against zero stock should be a DomainRule error, got %v", err)
	}
}

func TestMerchantBuyRejectsInsufficientFunds(t *testing.T) {
	repo, items := newCurrencyTestRepo(t)
	ctx := context.Background()
	id, _ := repo.CreatePlayer(ctx, "Cass", "hash")
	repo.DB().DB().ExecContext(ctx,
		`INSERT INTO merchant_stock (room_id, item_id, price, stock, buyable, sellable) VALUES (?, ?, ?, ?, 1, 1)`,
		"shop-1", "iron-ore", 10, 5)

	m := NewMerchant(repo, items)
	if err := m.Buy(ctx, id, "shop-1", "iron-ore", 1); !engineerr.Is(err, engineerr.DomainRule) {
		t.Fatalf("Buy with no funds should be a DomainRule error, got %v", err)
	}
}

func TestMerchantBuyRejectsNotForSale(t *testing.T) {
	repo, items := newCurrencyTestRepo(t)
	ctx := context.Background()
	id, _ := repo.CreatePlayer(ctx, "Dara", "hash")

	m := NewMerchant(repo, items)
	if err := m.Buy(ctx, id, "shop-1", "iron-ore", 1); !engineerr.Is(err, engineerr.DomainRule) {
		t.Fatalf("Buy of an item the room doesn't stock should be a DomainRule error, got %v", err)
	}
}

func TestMerchantSellCreditsHighestValueHeldCurrency(t *testing.T) {
	repo, items := newCurrencyTestRepo(t)
	ctx := context.Background()
	id, _ := repo.CreatePlayer(ctx, "Eshe", "hash")
	repo.AddPlayerItem(ctx, id, "iron-ore", 3)
	repo.AddPlayerCurrency(ctx, id, "glimmer-crown", 1)
	repo.DB().DB().ExecContext(ctx,
		`INSERT INTO merchant_stock (room_id, item_id, price, stock, buyable, sellable) VALUES (?, ?, ?, ?, 1, 1)`,
		"shop-1", "iron-ore", 10, 5)

	m := NewMerchant(repo, items)
	if err := m.Sell(ctx, id, "shop-1", "iron-ore", 2); err != nil {
		t.Fatalf("Sell: %v", err)
	}

	wallet, _ := repo.GetPlayerCurrency(ctx, id)
	held := toHeldMap(wallet)
	// Proceeds 20, highest-value held currency is the crown (value 100) -> 20/100 == 0 units credited.
	if held["glimmer-crown"] != 1 {
		t.Errorf("crediting in crown units at a sub-unit amount should round down, got crown=%d", held["glimmer-crown"])
	}

	rows, _ := repo.GetMerchantItemsForRoom(ctx, "shop-1")
	for _, row := range rows {
		if row.ItemID == "iron-ore" && row.Stock != 7 {
			t.Errorf("stock after sell = %d, want 7", row.Stock)
		}
	}
}

func TestMerchantSellFallsBackToLowestRankCurrencyWhenNoneHeld(t *testing.T) {
	repo, items := newCurrencyTestRepo(t)
	ctx := context.Background()
	id, _ := repo.CreatePlayer(ctx, "Finn", "hash")
	repo.AddPlayerItem(ctx, id, "iron-ore", 1)
	repo.DB().DB().ExecContext(ctx,
		`INSERT INTO merchant_stock (room_id, item_id, price, stock, buyable, sellable) VALUES (?, ?, ?, ?, 1, 1)`,
		"shop-1", "iron-ore", 10, -1)

	m := NewMerchant(repo, items)
	if err := m.Sell(ctx, id, "shop-1", "iron-ore", 1); err != nil {
		t.Fatalf("Sell: %v", err)
	}

	wallet, _ := repo.GetPlayerCurrency(ctx, id)
	held := toHeldMap(wallet)
	if held["glimmer-shard"] != 10 {
		t.Errorf("selling with no currency held should credit the lowest-rank currency (shard), got %+v", held)
	}

	rows, _ := repo.GetMerchantItemsForRoom(ctx, "shop-1")
	for _, row := range rows {
		if row.ItemID == "iron-ore" && row.Stock != -1 {
			t.Errorf("unlimited stock should remain -1 after a sale, got %d", row.Stock)
		}
	}
}

func TestMerchantSellRejectsNotSellable(t *testing.T) {
	repo, items := newCurrencyTestRepo(t)
	ctx := context.Background()
	id, _ := repo.CreatePlayer(ctx, "Gwen", "hash")
	repo.AddPlayerItem(ctx, id, "iron-ore", 1)
	repo.DB().DB().ExecContext(ctx,
		`INSERT INTO merchant_stock (room_id, item_id, price, stock, buyable, sellable) VALUES (?, ?, ?, ?, 1, 0)`,
		"shop-1", "iron-ore", 10, 5)

	m := NewMerchant(repo, items)
	if err := m.Sell(ctx, id, "shop-1", "iron-ore", 1); !engineerr.Is(err, engineerr.DomainRule) {
		t.Fatalf("Sell of a non-sellable item should be a DomainRule error, got %v", err)
	}
}
