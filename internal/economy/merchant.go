package economy

import (
	"context"

	"github.com/lawnchairsociety/gridkeep/server/internal/engineerr"
	"github.com/lawnchairsociety/gridkeep/server/internal/itemdef"
	"github.com/lawnchairsociety/gridkeep/server/internal/repository"
)

// Merchant resolves list/buy/sell against a room's stock (§4.8).
type Merchant struct {
	repo  repository.Repository
	items *itemdef.Catalogue
}

func NewMerchant(repo repository.Repository, items *itemdef.Catalogue) *Merchant {
	return &Merchant{repo: repo, items: items}
}

func (m *Merchant) List(ctx context.Context, roomID string) ([]repository.MerchantStockRow, error) {
	rows, err := m.repo.GetMerchantItemsForRoom(ctx, roomID)
	if err != nil {
		return nil, engineerr.Wrap(err, "read merchant stock")
	}
	return rows, nil
}

func (m *Merchant) findStock(ctx context.Context, roomID, itemID string) (repository.MerchantStockRow, bool, error) {
	rows, err := m.repo.GetMerchantItemsForRoom(ctx, roomID)
	if err != nil {
		return repository.MerchantStockRow{}, false, engineerr.Wrap(err, "read merchant stock")
	}
	for _, row := range rows {
		if row.ItemID == itemID {
			return row, true, nil
		}
	}
	return repository.MerchantStockRow{}, false, nil
}

// Buy debits currency (auto-converting denominations via the smallest-unit
// total), credits inventory, and decrements stock unless unlimited.
func (m *Merchant) Buy(ctx context.Context, playerID, roomID, itemID string, qty int) error {
	stock, ok, err := m.findStock(ctx, roomID, itemID)
	if err != nil {
		return err
	}
	if !ok || !stock.Buyable {
		return engineerr.Template(engineerr.DomainRule, "merchant_not_for_sale", nil)
	}
	if stock.Stock >= 0 && stock.Stock < qty {
		return engineerr.Template(engineerr.DomainRule, "merchant_out_of_stock", nil)
	}

	cost := stock.Price * qty
	wallet, err := m.repo.GetPlayerCurrency(ctx, playerID)
	if err != nil {
		return engineerr.Wrap(err, "read wallet")
	}
	held := toHeldMap(wallet)
	total := ToSmallestDenomination(m.items, held)
	if total < cost {
		return engineerr.Template(engineerr.DomainRule, "merchant_insufficient_funds", nil)
	}

	if err := m.debitSmallestDenomination(ctx, playerID, held, cost); err != nil {
		return err
	}
	if err := m.repo.AddPlayerItem(ctx, playerID, itemID, qty); err != nil {
		return engineerr.Wrap(err, "credit inventory")
	}
	if stock.Stock >= 0 {
		if err := m.repo.UpdateMerchantStock(ctx, roomID, itemID, -qty); err != nil {
			return engineerr.Wrap(err, "decrement stock")
		}
	}
	return nil
}

// Sell credits currency (the highest-value denomination the player already
// holds any of, defaulting to the catalogue's lowest-rank currency) and
// increments stock unless unlimited.
func (m *Merchant) Sell(ctx context.Context, playerID, roomID, itemID string, qty int) error {
	stock, ok, err := m.findStock(ctx, roomID, itemID)
	if err != nil {
		return err
	}
	if !ok || !stock.Sellable || stock.Price <= 0 {
		return engineerr.Template(engineerr.DomainRule, "merchant_not_sellable", nil)
	}

	taken, err := m.repo.RemovePlayerItem(ctx, playerID, itemID, qty)
	if err != nil {
		return engineerr.Wrap(err, "remove inventory item")
	}
	if taken == 0 {
		return engineerr.Template(engineerr.DomainRule, "item_not_held", map[string]any{"item": itemID})
	}

	proceeds := stock.Price * taken
	wallet, err := m.repo.GetPlayerCurrency(ctx, playerID)
	if err != nil {
		return engineerr.Wrap(err, "read wallet")
	}
	def, ok := HighestValueHeld(m.items, toHeldMap(wallet))
	if !ok {
		def, ok = lowestRankCurrency(m.items)
		if !ok {
			return engineerr.Template(engineerr.Infra, "currency_catalogue_empty", nil)
		}
	}
	value := def.CurrencyValue
	if value <= 0 {
		value = 1
	}
	if err := m.repo.AddPlayerCurrency(ctx, playerID, def.ID, proceeds/value); err != nil {
		return engineerr.Wrap(err, "credit wallet")
	}
	if stock.Stock >= 0 {
		if err := m.repo.UpdateMerchantStock(ctx, roomID, itemID, taken); err != nil {
			return engineerr.Wrap(err, "increment stock")
		}
	}
	return nil
}

func lowestRankCurrency(items *itemdef.Catalogue) (itemdef.Definition, bool) {
	var best itemdef.Definition
	found := false
	for _, def := range items.Items {
		if def.Kind != itemdef.KindCurrency {
			continue
		}
		if !found || def.CurrencyRank < best.CurrencyRank {
			best = def
			found = true
		}
	}
	return best, found
}

// debitSmallestDenomination removes cost units (in smallest-denomination
// terms) from the player's wallet, preferring to drain lower-value
// currencies first so high-value coins are only broken when necessary.
func (m *Merchant) debitSmallestDenomination(ctx context.Context, playerID string, held map[string]int, cost int) error {
	type line struct {
		def itemdef.Definition
		qty int
	}
	var lines []line
	for itemID, qty := range held {
		def, ok := m.items.ByID(itemID)
		if !ok || def.Kind != itemdef.KindCurrency || qty <= 0 {
			continue
		}
		lines = append(lines, line{def, qty})
	}
	for i := 0; i < len(lines); i++ {
		for j := i + 1; j < len(lines); j++ {
			if lines[j].def.CurrencyValue < lines[i].def.CurrencyValue {
				lines[i], lines[j] = lines[j], lines[i]
			}
		}
	}

	remaining := cost
	for _, l := range lines {
		if remaining <= 0 {
			break
		}
		value := l.def.CurrencyValue
		if value <= 0 {
			value = 1
		}
		unitsNeeded := (remaining + value - 1) / value
		take := unitsNeeded
		if take > l.qty {
			take = l.qty
		}
		if take <= 0 {
			continue
		}
		if _, err := m.repo.RemovePlayerCurrency(ctx, playerID, l.def.ID, take); err != nil {
			return engineerr.Wrap(err, "debit currency")
		}
		remaining -= take * value
	}
	if remaining > 0 {
		return engineerr.Template(engineerr.DomainRule, "merchant_insufficient_funds", nil)
	}
	return nil
}
