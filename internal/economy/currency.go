// Package economy implements the Warehouse, Bank, and Merchant
// interactions of §4.8, including the declarative currency table that
// replaces a heuristic stacked-if matcher for resolving a typed currency
// word ("glimmer", "glim", "g", "crown", "shards") to a concrete item id.
package economy

import (
	"sort"
	"strings"

	"github.com/lawnchairsociety/gridkeep/server/internal/itemdef"
)

// ResolveCurrency matches a free-text currency word against the item
// catalogue's currency entries. Candidates the caller actually holds are
// preferred; among ties, higher CurrencyRank wins (§4.8: "crown" over
// "shard"). Singular/plural forms are matched via a simple trailing-"s"
// fold, since the catalogue's synonym lists already spell out both forms
// for anything irregular.
func ResolveCurrency(items *itemdef.Catalogue, word string, held map[string]int) (itemdef.Definition, bool) {
	word = strings.ToLower(strings.TrimSpace(word))
	singular := strings.TrimSuffix(word, "s")

	var candidates []itemdef.Definition
	for _, def := range items.Items {
		if def.Kind != itemdef.KindCurrency {
			continue
		}
		if matchesCurrencyWord(def, word) || matchesCurrencyWord(def, singular) {
			candidates = append(candidates, def)
		}
	}
	if len(candidates) == 0 {
		return itemdef.Definition{}, false
	}
	if len(candidates) == 1 {
		return candidates[0], true
	}

	sort.Slice(candidates, func(i, j int) bool {
		heldI, heldJ := held[candidates[i].ID] > 0, held[candidates[j].ID] > 0
		if heldI != heldJ {
			return heldI
		}
		return candidates[i].CurrencyRank > candidates[j].CurrencyRank
	})
	return candidates[0], true
}

func matchesCurrencyWord(def itemdef.Definition, word string) bool {
	if strings.EqualFold(def.Name, word) {
		return true
	}
	for _, syn := range def.CurrencySynonyms {
		if strings.EqualFold(syn, word) {
			return true
		}
	}
	return false
}

// HighestValueHeld picks, among currency stacks the player/bank actually
// holds, the one with the greatest CurrencyValue — Merchant.Sell pays sale
// proceeds in this currency.
func HighestValueHeld(items *itemdef.Catalogue, held map[string]int) (itemdef.Definition, bool) {
	var best itemdef.Definition
	found := false
	for itemID, qty := range held {
		if qty <= 0 {
			continue
		}
		def, ok := items.ByID(itemID)
		if !ok || def.Kind != itemdef.KindCurrency {
			continue
		}
		if !found || def.CurrencyValue > best.CurrencyValue {
			best = def
			found = true
		}
	}
	return best, found
}

// ToSmallestDenomination converts a set of currency stacks into a total
// expressed in the smallest denomination's units.
func ToSmallestDenomination(items *itemdef.Catalogue, held map[string]int) int {
	total := 0
	for itemID, qty := range held {
		def, ok := items.ByID(itemID)
		if !ok || def.Kind != itemdef.KindCurrency {
			continue
		}
		value := def.CurrencyValue
		if value <= 0 {
			value = 1
		}
		total += qty * value
	}
	return total
}
