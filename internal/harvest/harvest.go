// Package harvest implements the Harvest State Machine (§4.5): idle ->
// harvesting -> cooldown -> idle transitions for rhythm-kind NPC
// placements. State transitions are serialized per placement by the
// caller taking the placement's room mutex before calling into here,
// mirroring the teacher's per-entity lock discipline.
package harvest

import (
	"context"
	"fmt"

	"github.com/lawnchairsociety/gridkeep/server/internal/engineerr"
	"github.com/lawnchairsociety/gridkeep/server/internal/npcdef"
	"github.com/lawnchairsociety/gridkeep/server/internal/repository"
)

// CycleStrategy computes the result of a completed harvest cycle: how many
// output items were granted (hit) and how much vitalis (resonance) was
// drained. The exact hit-rate/drain formula used by the original system is
// not documented in the distilled contract, so this is modeled as an
// external collaborator rather than guessed at; DefaultCycleStrategy below
// is one concrete, documented implementation.
type CycleStrategy interface {
	RollCycle(def npcdef.Definition, state npcdef.PlacementState) (hit bool, vitalisDrain int)
}

// DefaultCycleStrategy applies the NPC definition's configured hit rate
// directly and drains resonance by the configured hit/miss amount. It does
// not consult any external randomness source beyond math/rand via the
// injected Roll func, so callers can make it deterministic in tests.
type DefaultCycleStrategy struct {
	Roll func() int // returns 0-99
}

func (s DefaultCycleStrategy) RollCycle(def npcdef.Definition, state npcdef.PlacementState) (bool, int) {
	roll := s.Roll()
	hit := roll < def.HitRatePercent
	if hit {
		return true, def.VitalisDrainOnHit
	}
	return false, def.VitalisDrainOnMiss
}

// Engine resolves harvest start/interrupt/tick transitions against the
// repository.
type Engine struct {
	repo     repository.Repository
	strategy CycleStrategy
}

func New(repo repository.Repository, strategy CycleStrategy) *Engine {
	return &Engine{repo: repo, strategy: strategy}
}

// StartResult carries what the caller needs to message back to the
// harvester on a successful start.
type StartResult struct {
	NPCName string
}

// Start attempts to begin a harvest against npcID in roomID for playerID,
// nowMS being the caller's wall-clock time in Unix milliseconds.
func (e *Engine) Start(ctx context.Context, roomID, npcID, playerID string, playerResonance, playerFortitude int, nowMS int64) (*StartResult, error) {
	def, ok, err := e.repo.GetScriptableNPCByID(ctx, npcID)
	if err != nil {
		return nil, engineerr.Wrap(err, "load npc definition")
	}
	if !ok || def.Kind != npcdef.KindRhythm {
		return nil, engineerr.Template(engineerr.DomainRule, "harvest_not_harvestable", map[string]any{"name": npcID})
	}

	placements, err := e.repo.GetNPCsInRoom(ctx, roomID)
	if err != nil {
		return nil, engineerr.Wrap(err, "load room placements")
	}
	var placement *npcdef.Placement
	for i := range placements {
		if placements[i].NPCID == npcID {
			placement = &placements[i]
			break
		}
	}
	if placement == nil {
		return nil, engineerr.Template(engineerr.NotFound, "harvest_not_found", nil)
	}

	state := placement.State
	if state.IsOnCooldown(nowMS) {
		return nil, engineerr.Template(engineerr.DomainRule, "harvest_on_cooldown", nil)
	}
	if state.HarvestActive {
		if state.HarvestingPlayerID == playerID {
			return nil, engineerr.Template(engineerr.DomainRule, "harvest_already_self", nil)
		}
		return nil, engineerr.Template(engineerr.DomainRule, "harvest_already_other", nil)
	}

	effective := int64(def.HarvestableSeconds) * 1000
	if def.FortitudeBonusEnabled {
		effective += int64(playerFortitude) * 50 // fortitude curve: +50ms harvestable window per point
	}

	state.HarvestActive = true
	state.HarvestingPlayerID = playerID
	state.HarvestStartTime = nowMS
	state.CooldownUntil = 0
	state.EffectiveHarvestableTime = effective
	state.HarvestingPlayerResonance = playerResonance
	state.HarvestingPlayerFortitude = playerFortitude

	if err := e.repo.UpdateNPCState(ctx, roomID, npcID, state); err != nil {
		return nil, engineerr.Wrap(err, "persist harvest start")
	}
	return &StartResult{NPCName: def.Name}, nil
}

// Interrupt ends an active harvest (by a non-safe command, a move, a
// disconnect, or a takeover) and arms the cooldown.
func (e *Engine) Interrupt(ctx context.Context, roomID, npcID string, nowMS int64) error {
	def, ok, err := e.repo.GetScriptableNPCByID(ctx, npcID)
	if err != nil {
		return engineerr.Wrap(err, "load npc definition")
	}
	placements, err := e.repo.GetNPCsInRoom(ctx, roomID)
	if err != nil {
		return engineerr.Wrap(err, "load room placements")
	}
	for _, p := range placements {
		if p.NPCID != npcID {
			continue
		}
		state := p.State
		if !state.HarvestActive {
			return nil
		}
		state.HarvestActive = false
		state.HarvestingPlayerID = ""
		state.HarvestStartTime = 0
		if ok {
			state.CooldownUntil = nowMS + int64(def.CooldownSeconds)*1000
		}
		return e.repo.UpdateNPCState(ctx, roomID, npcID, state)
	}
	return nil
}

// TickResult reports what a completed cycle produced, for the caller to
// deliver items/messages.
type TickResult struct {
	Completed    bool
	Hit          bool
	OutputItems  []npcdef.ItemQuantity
	VitalisDrain int
}

// Tick completes the active harvest on one rhythm placement once its
// harvestable window has elapsed, and is a no-op otherwise. Nothing in
// this module calls it on a schedule; the caller decides when to tick.
func (e *Engine) Tick(ctx context.Context, roomID, npcID string, nowMS int64) (TickResult, error) {
	def, ok, err := e.repo.GetScriptableNPCByID(ctx, npcID)
	if err != nil {
		return TickResult{}, engineerr.Wrap(err, "load npc definition")
	}
	placements, err := e.repo.GetNPCsInRoom(ctx, roomID)
	if err != nil {
		return TickResult{}, engineerr.Wrap(err, "load room placements")
	}
	for _, p := range placements {
		if p.NPCID != npcID {
			continue
		}
		state := p.State
		if !state.HarvestActive {
			return TickResult{}, nil
		}
		if state.HarvestStartTime+state.EffectiveHarvestableTime > nowMS {
			return TickResult{}, nil
		}

		hit, drain := e.strategy.RollCycle(def, state)

		state.HarvestActive = false
		state.HarvestingPlayerID = ""
		state.HarvestStartTime = 0
		if ok {
			state.CooldownUntil = nowMS + int64(def.CooldownSeconds)*1000
		}
		state.Cycles++

		if err := e.repo.UpdateNPCState(ctx, roomID, npcID, state); err != nil {
			return TickResult{}, fmt.Errorf("persist harvest tick: %w", err)
		}

		result := TickResult{Completed: true, Hit: hit, VitalisDrain: drain}
		if hit {
			result.OutputItems = def.OutputItems
		}
		return result, nil
	}
	return TickResult{}, nil
}
