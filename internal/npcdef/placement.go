package npcdef

import (
	"encoding/json"
)

// Placement is one NPC definition instanced into one room slot, carrying
// its own mutable JSON state (§3, Room-NPC Placement). The state is typed
// here rather than passed around as a raw map — the opaque-JSON-state
// design note in the original design calls for a typed struct with a
// fallback decoder for placements saved before a field existed.
type Placement struct {
	NPCID string
	RoomID string
	Slot  int

	DefinitionID string

	State PlacementState
}

// PlacementState is the harvest/cooldown bookkeeping for a rhythm
// placement. All timestamps are Unix milliseconds; zero means unset.
type PlacementState struct {
	Cycles                     int    `json:"cycles"`
	HarvestActive              bool   `json:"harvest_active"`
	HarvestingPlayerID         string `json:"harvesting_player_id,omitempty"`
	HarvestStartTime           int64  `json:"harvest_start_time,omitempty"`
	CooldownUntil              int64  `json:"cooldown_until,omitempty"`
	EffectiveHarvestableTime   int64  `json:"effective_harvestable_time,omitempty"`
	HarvestingPlayerResonance  int    `json:"harvesting_player_resonance,omitempty"`
	HarvestingPlayerFortitude  int    `json:"harvesting_player_fortitude,omitempty"`
}

// DecodePlacementState parses a placement's persisted JSON state. An empty
// or "{}" payload decodes to the zero value (idle, never harvested) rather
// than an error — this is the legacy-empty-state fallback: placements
// created before harvest tracking existed have no state column at all.
func DecodePlacementState(raw []byte) (PlacementState, error) {
	var s PlacementState
	if len(raw) == 0 {
		return s, nil
	}
	trimmed := raw
	if string(trimmed) == "null" {
		return s, nil
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return PlacementState{}, err
	}
	return s, nil
}

// Encode serializes the state back to JSON for the repository.
func (s PlacementState) Encode() ([]byte, error) {
	return json.Marshal(s)
}

// IsOnCooldown reports whether the placement cannot be harvested yet at
// time nowMS.
func (s PlacementState) IsOnCooldown(nowMS int64) bool {
	return s.CooldownUntil > 0 && s.CooldownUntil > nowMS
}
