// Package engine wires the Command Dispatcher (C11) together with the
// rest of the core: session registry, broadcast fabric, world model,
// harvest/economy/path subsystems, and the repository. It is the
// generalization of the teacher's command-table dispatch
// (internal/server + internal/command in the original) to the
// JSON-tagged frame set of §6.2.
package engine

import (
	"context"
	"time"

	"github.com/lawnchairsociety/gridkeep/server/internal/auth"
	"github.com/lawnchairsociety/gridkeep/server/internal/broadcast"
	"github.com/lawnchairsociety/gridkeep/server/internal/economy"
	"github.com/lawnchairsociety/gridkeep/server/internal/harvest"
	"github.com/lawnchairsociety/gridkeep/server/internal/itemdef"
	"github.com/lawnchairsociety/gridkeep/server/internal/logger"
	"github.com/lawnchairsociety/gridkeep/server/internal/npcdef"
	"github.com/lawnchairsociety/gridkeep/server/internal/paths"
	"github.com/lawnchairsociety/gridkeep/server/internal/protocol"
	"github.com/lawnchairsociety/gridkeep/server/internal/repository"
	"github.com/lawnchairsociety/gridkeep/server/internal/session"
	"github.com/lawnchairsociety/gridkeep/server/internal/templates"
	"github.com/lawnchairsociety/gridkeep/server/internal/worldmap"
)

// Engine is the core's single collaborator root: every handler closes
// over it rather than a grab-bag of globals, mirroring the teacher's
// *server.Server receiver pattern.
type Engine struct {
	World     *worldmap.World
	Items     *itemdef.Catalogue
	NPCs      *npcdef.Catalogue
	Repo      repository.Repository
	Sessions  *session.Registry
	Broadcast *broadcast.Fabric
	Templates *templates.Cache

	Harvest   *harvest.Engine
	Warehouse *economy.Warehouse
	Bank      *economy.Bank
	Merchant  *economy.Merchant
	Recorder  *paths.Recorder
	Executor  *paths.Executor
	Auth      *auth.Validator

	StartMapID  string
	StartRoomID string
}

type Config struct {
	World     *worldmap.World
	Items     *itemdef.Catalogue
	NPCs      *npcdef.Catalogue
	Repo      repository.Repository
	Sessions  *session.Registry
	Broadcast *broadcast.Fabric
	Templates *templates.Cache
	Harvest   *harvest.Engine

	StartMapID  string
	StartRoomID string
}

func New(cfg Config) *Engine {
	e := &Engine{
		World:       cfg.World,
		Items:       cfg.Items,
		NPCs:        cfg.NPCs,
		Repo:        cfg.Repo,
		Sessions:    cfg.Sessions,
		Broadcast:   cfg.Broadcast,
		Templates:   cfg.Templates,
		Harvest:     cfg.Harvest,
		Warehouse:   economy.NewWarehouse(cfg.Repo, cfg.Items),
		Bank:        economy.NewBank(cfg.Repo, cfg.Items),
		Merchant:    economy.NewMerchant(cfg.Repo, cfg.Items),
		Recorder:    paths.NewRecorder(cfg.Repo),
		Auth:        auth.NewValidator(cfg.Repo),
		StartMapID:  cfg.StartMapID,
		StartRoomID: cfg.StartRoomID,
	}
	e.Executor = paths.NewExecutor(cfg.Repo, cfg.World, e.move)
	return e
}

// move is the MoveFunc the path/auto-navigation executor drives; it
// calls the same performMove a manual "move" frame uses, flagged as a
// scheduled move so performMove skips the encumbrance-cooldown gate that
// paces manual input (§4.9).
func (e *Engine) move(ctx context.Context, s *session.Session, dir worldmap.Direction) (string, error) {
	return e.performMove(ctx, s, dir, true)
}

// recordTerminalLine appends a delivered message to a player's terminal
// history, best-effort (§4.12) — a repository failure here never fails
// the caller's request.
func (e *Engine) recordTerminalLine(ctx context.Context, playerID, line string) {
	if playerID == "" || line == "" {
		return
	}
	if err := e.Repo.SaveTerminalMessage(ctx, playerID, line); err != nil {
		logger.Warning("failed to persist terminal history line", "player_id", playerID, "error", err)
	}
}

func nowMS() int64 { return time.Now().UnixMilli() }

// Dispatch routes one decoded inbound frame to its handler, enforcing the
// authentication gate and the harvest-interruption rule (§4.3).
func (e *Engine) Dispatch(ctx context.Context, s *session.Session, env protocol.Envelope) error {
	if env.Type == protocol.AuthenticateSession {
		return e.handleAuthenticate(ctx, s, env)
	}

	s.Lock()
	authenticated := s.PlayerID != ""
	s.Unlock()
	if !authenticated {
		return errUnauthenticated
	}

	if env.Type != protocol.Harvest && !isSafeCommand(env.Type) && e.isHarvesting(s) {
		e.maybeInterruptHarvest(ctx, s)
	}

	handler, ok := handlers[env.Type]
	if !ok {
		return errUnknownType
	}
	return handler(e, ctx, s, env)
}

// isSafeCommand names the frame types that never interrupt a harvest in
// progress (§4.3): look, inventory, map query, widget config, chat, who.
func isSafeCommand(t protocol.InboundType) bool {
	switch t {
	case protocol.Look, protocol.Inventory, protocol.Who, protocol.GetWidgetConfig,
		protocol.UpdateWidgetConfig, protocol.GetMapData, protocol.GetAutoPathMaps,
		protocol.GetAutoPathRooms, protocol.GetAllPlayerPaths,
		protocol.GetPathDetails, protocol.SaveTerminalMessage, protocol.Talk:
		return true
	default:
		return false
	}
}

func (e *Engine) isHarvesting(s *session.Session) bool {
	return s.HasHarvest()
}

// maybeInterruptHarvest applies the 2-second grace window: a harvest
// begun less than 2s ago survives the next incoming command, protecting
// against the race between the harvest-start frame and the client's next
// frame.
func (e *Engine) maybeInterruptHarvest(ctx context.Context, s *session.Session) {
	s.Lock()
	roomID, npcID, startedAt := s.HarvestingRoomID, s.HarvestingNPCID, s.HarvestStartedAt
	s.Unlock()
	if npcID == "" {
		return
	}
	if time.Since(startedAt) < 2*time.Second {
		return
	}
	if err := e.Harvest.Interrupt(ctx, roomID, npcID, nowMS()); err != nil {
		logger.Warning("failed to interrupt harvest", "npc_id", npcID, "error", err)
	}
	s.ClearHarvest()
}
