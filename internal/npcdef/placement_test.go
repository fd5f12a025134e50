package npcdef

import "testing"

func TestDecodePlacementStateEmptyFallsBackToZeroValue(t *testing.T) {
	for _, raw := range [][]byte{nil, {}, []byte("null"), []byte("{}")} {
		state, err := DecodePlacementState(raw)
		if err != nil {
			t.Fatalf("DecodePlacementState(%q) error: %v", raw, err)
		}
		if state.HarvestActive || state.HarvestingPlayerID != "" || state.Cycles != 0 {
			t.Errorf("legacy/empty state should decode to the zero value, got %+v", state)
		}
	}
}

func TestDecodePlacementStateRoundTrip(t *testing.T) {
	want := PlacementState{
		Cycles:                   3,
		HarvestActive:            true,
		HarvestingPlayerID:       "player-1",
		HarvestStartTime:         1000,
		EffectiveHarvestableTime: 60000,
		HarvestingPlayerResonance: 12,
		HarvestingPlayerFortitude: 7,
	}
	encoded, err := want.Encode()
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	got, err := DecodePlacementState(encoded)
	if err != nil {
		t.Fatalf("DecodePlacementState error: %v", err)
	}
	if got != want {
		t.Errorf("round-trip mismatch: got %+v, want %+v", got, want)
	}
}

func TestDecodePlacementStateInvalidJSON(t *testing.T) {
	if _, err := DecodePlacementState([]byte("not json")); err == nil {
		t.Error("DecodePlacementState should error on malformed JSON")
	}
}

func TestIsOnCooldown(t *testing.T) {
	s := PlacementState{CooldownUntil: 1000}
	if !s.IsOnCooldown(999) {
		t.Error("should be on cooldown before the deadline")
	}
	if s.IsOnCooldown(1000) {
		t.Error("should not be on cooldown exactly at the deadline")
	}
	if s.IsOnCooldown(1001) {
		t.Error("should not be on cooldown after the deadline")
	}
	zero := PlacementState{}
	if zero.IsOnCooldown(999999) {
		t.Error("an unset cooldown should never block a harvest")
	}
}
