// Package itemdef holds item definitions: the catalogue of what an item
// id means (name, kind, weight, currency value) independent of where any
// particular stack of it currently sits.
package itemdef

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Kind classifies an item for the purposes of the rules that care about it
// (encumbrance, the economy, and harvest recipes).
type Kind string

const (
	KindIngredient Kind = "ingredient"
	KindRune       Kind = "rune"
	KindDeed       Kind = "deed"
	KindCurrency   Kind = "currency"
	KindSundries   Kind = "sundries"
)

// Definition is one entry in the item catalogue.
type Definition struct {
	ID          string  `yaml:"-"`
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Kind        Kind    `yaml:"kind"`
	Weight      float64 `yaml:"weight"`
	Poofable    bool    `yaml:"poofable,omitempty"`

	// DeedWarehouseKey, set only on kind=deed items, names the warehouse the
	// deed grants full access to.
	DeedWarehouseKey string `yaml:"deed_warehouse_key,omitempty"`

	// Currency fields, set only on kind=currency items.
	CurrencySynonyms []string `yaml:"currency_synonyms,omitempty"`
	CurrencyValue    int      `yaml:"currency_value,omitempty"` // value in the smallest denomination
	CurrencyRank     int      `yaml:"currency_rank,omitempty"`  // higher rank preferred when ambiguous
}

// Catalogue is the parsed items.yaml contents.
type Catalogue struct {
	Items map[string]Definition `yaml:"items"`
}

// LoadFromYAML loads the item catalogue, following the teacher's
// read-whole-file-then-unmarshal idiom.
func LoadFromYAML(filename string) (*Catalogue, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read item definitions file: %w", err)
	}

	var cat Catalogue
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("failed to parse item definitions YAML: %w", err)
	}

	for id, def := range cat.Items {
		def.ID = id
		cat.Items[id] = def
	}

	return &cat, nil
}

func (c *Catalogue) ByID(id string) (Definition, bool) {
	d, ok := c.Items[id]
	return d, ok
}

// FindByPartialName does the same prefix/word/contains cascade the teacher
// uses for NPC name matching (internal/world.Room.FindNPC), generalized to
// items: exact, then prefix, then word, then substring. Returns the
// matching ids in priority order so a multi-match caller can list them.
func (c *Catalogue) FindByPartialName(partial string) []string {
	partial = normalize(partial)
	var exact, prefix, word, contains []string
	for id, def := range c.Items {
		name := normalize(def.Name)
		switch {
		case name == partial:
			exact = append(exact, id)
		case hasPrefix(name, partial):
			prefix = append(prefix, id)
		case hasWord(name, partial):
			word = append(word, id)
		case hasSubstring(name, partial):
			contains = append(contains, id)
		}
	}
	if len(exact) > 0 {
		return exact
	}
	if len(prefix) > 0 {
		return prefix
	}
	if len(word) > 0 {
		return word
	}
	return contains
}
