package economy

import (
	"context"

	"github.com/lawnchairsociety/gridkeep/server/internal/engineerr"
	"github.com/lawnchairsociety/gridkeep/server/internal/itemdef"
	"github.com/lawnchairsociety/gridkeep/server/internal/repository"
)

// Bank resolves deposit/withdraw/balance against a player's wallet and
// bank holdings, with dynamic currency-word resolution (§4.8).
type Bank struct {
	repo  repository.Repository
	items *itemdef.Catalogue
}

func NewBank(repo repository.Repository, items *itemdef.Catalogue) *Bank {
	return &Bank{repo: repo, items: items}
}

func toHeldMap(rows []repository.ItemStackRow) map[string]int {
	m := make(map[string]int, len(rows))
	for _, r := range rows {
		m[r.ItemID] = r.Quantity
	}
	return m
}

// Deposit resolves currencyWord against the player's wallet and moves qty
// units of the matched currency into the bank.
func (b *Bank) Deposit(ctx context.Context, playerID, currencyWord string, qty int) (itemID string, deposited int, err error) {
	wallet, err := b.repo.GetPlayerCurrency(ctx, playerID)
	if err != nil {
		return "", 0, engineerr.Wrap(err, "read wallet")
	}
	def, ok := ResolveCurrency(b.items, currencyWord, toHeldMap(wallet))
	if !ok {
		return "", 0, engineerr.Template(engineerr.NotFound, "currency_unknown", map[string]any{"name": currencyWord})
	}
	taken, err := b.repo.RemovePlayerCurrency(ctx, playerID, def.ID, qty)
	if err != nil {
		return "", 0, engineerr.Wrap(err, "remove wallet currency")
	}
	if taken == 0 {
		return "", 0, engineerr.Template(engineerr.DomainRule, "currency_not_held", map[string]any{"name": def.Name})
	}
	if err := b.repo.DepositCurrency(ctx, playerID, def.ID, taken); err != nil {
		return "", 0, engineerr.Wrap(err, "credit bank")
	}
	return def.ID, taken, nil
}

// Withdraw resolves currencyWord against the bank balance and moves qty
// units of the matched currency into the wallet.
func (b *Bank) Withdraw(ctx context.Context, playerID, currencyWord string, qty int) (itemID string, withdrawn int, err error) {
	balance, err := b.repo.GetPlayerBankBalance(ctx, playerID)
	if err != nil {
		return "", 0, engineerr.Wrap(err, "read bank balance")
	}
	def, ok := ResolveCurrency(b.items, currencyWord, toHeldMap(balance))
	if !ok {
		return "", 0, engineerr.Template(engineerr.NotFound, "currency_unknown", map[string]any{"name": currencyWord})
	}
	taken, err := b.repo.WithdrawCurrency(ctx, playerID, def.ID, qty)
	if err != nil {
		return "", 0, engineerr.Wrap(err, "debit bank")
	}
	if taken == 0 {
		return "", 0, engineerr.Template(engineerr.DomainRule, "bank_balance_insufficient", map[string]any{"name": def.Name})
	}
	if err := b.repo.AddPlayerCurrency(ctx, playerID, def.ID, taken); err != nil {
		return "", 0, engineerr.Wrap(err, "credit wallet")
	}
	return def.ID, taken, nil
}

// Wealth reports the player's wallet + bank total, converted to the
// smallest denomination.
func (b *Bank) Wealth(ctx context.Context, playerID string) (int, error) {
	wallet, err := b.repo.GetPlayerCurrency(ctx, playerID)
	if err != nil {
		return 0, engineerr.Wrap(err, "read wallet")
	}
	balance, err := b.repo.GetPlayerBankBalance(ctx, playerID)
	if err != nil {
		return 0, engineerr.Wrap(err, "read bank balance")
	}
	return ToSmallestDenomination(b.items, toHeldMap(wallet)) + ToSmallestDenomination(b.items, toHeldMap(balance)), nil
}
