// Package npcdef models scriptable NPC definitions (the harvest/dialogue
// machines players interact with) and the per-placement runtime state they
// carry in a room.
package npcdef

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lawnchairsociety/gridkeep/server/internal/logger"
)

// Kind enumerates the ten NPC behaviors the engine recognizes. Only "rhythm"
// drives the harvest state machine (§4.5); "lorekeeper" drives dialogue and
// puzzle resolution (§4.6). The remaining kinds are scriptable flavor slots
// a map author can assign without additional engine support.
type Kind string

const (
	KindRhythm     Kind = "rhythm"
	KindStability  Kind = "stability"
	KindWorker     Kind = "worker"
	KindTending    Kind = "tending"
	KindRotation   Kind = "rotation"
	KindEconomic   Kind = "economic"
	KindFarm       Kind = "farm"
	KindPatrol     Kind = "patrol"
	KindThreshold  Kind = "threshold"
	KindLorekeeper Kind = "lorekeeper"
)

// ItemQuantity names a recipe ingredient or yield.
type ItemQuantity struct {
	ItemID   string `yaml:"item"`
	Quantity int    `yaml:"quantity"`
}

// Definition is the immutable, YAML-loaded description of an NPC. One
// Definition may be placed in many rooms (Placement).
type Definition struct {
	ID                      string         `yaml:"-"`
	Name                    string         `yaml:"name"`
	Kind                    Kind           `yaml:"kind"`
	BaseCycleSeconds        int            `yaml:"base_cycle_seconds"`
	Difficulty              int            `yaml:"difficulty"`
	HarvestPrerequisiteItem string         `yaml:"harvest_prerequisite_item,omitempty"`
	InputItems              []ItemQuantity `yaml:"input_items,omitempty"`
	OutputItems             []ItemQuantity `yaml:"output_items,omitempty"`
	HarvestableSeconds      int            `yaml:"harvestable_seconds"`
	CooldownSeconds         int            `yaml:"cooldown_seconds"`
	HitRatePercent          int            `yaml:"hit_rate_percent"`
	CycleReductionPercent   int            `yaml:"cycle_reduction_percent"`
	VitalisDrainOnHit       int            `yaml:"vitalis_drain_on_hit"`
	VitalisDrainOnMiss      int            `yaml:"vitalis_drain_on_miss"`
	FortitudeBonusEnabled   bool           `yaml:"fortitude_bonus_enabled"`

	Lore *LoreKeeperDefinition `yaml:"lore,omitempty"`
}

// LoreKeeperDefinition carries the dialogue/puzzle configuration for a
// lorekeeper NPC (§3, Lore-Keeper Decoration).
type LoreKeeperDefinition struct {
	Mode                string            `yaml:"mode"` // "dialogue" or "puzzle"
	EngagementEnabled    bool              `yaml:"engagement_enabled"`
	EngagementDelayMS    int               `yaml:"engagement_delay_ms"`
	InitialMessage       string            `yaml:"initial_message"`
	InitialMessageColor  string            `yaml:"initial_message_color"`
	Keywords             map[string]string `yaml:"keywords,omitempty"`
	KeywordColor         string            `yaml:"keyword_color"`
	IncorrectResponse    string            `yaml:"incorrect_response"`
	PuzzleMode           string            `yaml:"puzzle_mode,omitempty"` // "word", "combination", "cipher", "glow_codex"
	Clues                []string          `yaml:"clues,omitempty"`
	ExtractionIndexes    []int             `yaml:"extraction_indexes,omitempty"`
	Solution             string            `yaml:"solution,omitempty"`
	SuccessMessage       string            `yaml:"success_message,omitempty"`
	FailureMessage       string            `yaml:"failure_message,omitempty"`
	HintResponses        []string          `yaml:"hint_responses,omitempty"`
	FollowupResponses    []string          `yaml:"followup_responses,omitempty"`
	IncorrectAttemptResp []string          `yaml:"incorrect_attempt_responses,omitempty"`
	RewardItem           string            `yaml:"reward_item,omitempty"`
	AwardOnceOnly        bool              `yaml:"award_once_only"`
	AwardAfterDelay      bool              `yaml:"award_after_delay"`
	AwardDelaySeconds    int               `yaml:"award_delay_seconds"`
}

// Catalogue is the parsed contents of an npcs.yaml file.
type Catalogue struct {
	NPCs map[string]Definition `yaml:"npcs"`
}

// LoadFromYAML loads NPC definitions the way the teacher loads items/NPCs:
// read the whole file, unmarshal, then run a validation pass that warns and
// auto-corrects rather than failing the whole load.
func LoadFromYAML(filename string) (*Catalogue, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read NPC definitions file: %w", err)
	}

	var cat Catalogue
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("failed to parse NPC definitions YAML: %w", err)
	}

	for id, def := range cat.NPCs {
		def.ID = id
		if def.Kind == KindRhythm && def.HarvestableSeconds <= 0 {
			logger.Warning("NPC definition auto-correction applied",
				"npc_id", id,
				"issue", "rhythm NPC with harvestable_seconds<=0",
				"action", "defaulted to 30s")
			def.HarvestableSeconds = 30
		}
		if def.Kind == KindLorekeeper && def.Lore == nil {
			logger.Warning("NPC definition missing lore block",
				"npc_id", id, "kind", def.Kind)
		}
		cat.NPCs[id] = def
	}

	return &cat, nil
}

func (c *Catalogue) ByID(id string) (Definition, bool) {
	d, ok := c.NPCs[id]
	return d, ok
}
