package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lawnchairsociety/gridkeep/server/internal/engineerr"
	"github.com/lawnchairsociety/gridkeep/server/internal/npcdef"
	"github.com/lawnchairsociety/gridkeep/server/internal/protocol"
	"github.com/lawnchairsociety/gridkeep/server/internal/session"
)

// findNPCInRoom locates a scriptable NPC placement in the session's current
// room by partial name match against its definition.
func (e *Engine) findNPCInRoom(ctx context.Context, s *session.Session, target string) (npcdef.Placement, npcdef.Definition, error) {
	s.Lock()
	roomID := s.RoomID
	s.Unlock()

	placements, err := e.Repo.GetNPCsInRoom(ctx, roomID)
	if err != nil {
		return npcdef.Placement{}, npcdef.Definition{}, engineerr.Wrap(err, "load room npcs")
	}
	target = strings.ToLower(strings.TrimSpace(target))

	var match *npcdef.Placement
	var matchDef npcdef.Definition
	for i := range placements {
		def, ok := e.NPCs.ByID(placements[i].DefinitionID)
		if !ok {
			continue
		}
		name := strings.ToLower(def.Name)
		if name == target || strings.Contains(name, target) {
			match = &placements[i]
			matchDef = def
			break
		}
	}
	if match == nil {
		return npcdef.Placement{}, npcdef.Definition{}, engineerr.Template(engineerr.NotFound, "npc_no_match", map[string]any{"name": target})
	}
	return *match, matchDef, nil
}

func (e *Engine) handleHarvest(ctx context.Context, s *session.Session, env protocol.Envelope) error {
	var msg protocol.HarvestMsg
	if err := env.Decode(&msg); err != nil {
		return engineerr.Template(engineerr.Validation, "harvest_malformed", nil)
	}
	placement, _, err := e.findNPCInRoom(ctx, s, msg.Target)
	if err != nil {
		return err
	}

	s.Lock()
	roomID, playerID := s.RoomID, s.PlayerID
	s.Unlock()
	stats, ok, err := e.Repo.GetPlayerByID(ctx, playerID)
	if err != nil {
		return engineerr.Wrap(err, "load player stats")
	}
	if !ok {
		return engineerr.Template(engineerr.NotFound, "player_unknown", nil)
	}

	result, err := e.Harvest.Start(ctx, roomID, placement.NPCID, playerID, stats.Resonance, stats.Fortitude, nowMS())
	if err != nil {
		return err
	}
	s.SetHarvest(roomID, placement.NPCID, nowTime())

	if s.Conn != nil {
		_ = s.Conn.Send(protocol.Out(protocol.MessageFrame, map[string]any{
			"message": e.Templates.Format("harvest_started", map[string]any{"name": result.NPCName}),
		}))
	}
	return nil
}

// mentionsName reports whether lower (an already-lowercased message)
// mentions name, either in full or by any one of its whitespace-delimited
// tokens (so "greet Old Maren" matches the keeper "Maren").
func mentionsName(lower, name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return false
	}
	if strings.Contains(lower, name) {
		return true
	}
	for _, tok := range strings.Fields(name) {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}

// speak broadcasts a lorekeeper's line to the room, per §4.6's "broadcast
// its response to the room" / "broadcast the success message to the room".
func (e *Engine) speak(roomID string, def npcdef.Definition, message string) {
	e.Broadcast.ToRoom(roomID, protocol.Out(protocol.LoreKeeperMessageFrame,
		protocol.NPCSpeech(def.Name, "", message, def.Lore.InitialMessageColor, def.Lore.KeywordColor)), "")
}

// handleTalk implements the dialogue half of §4.6: keyword substring
// matching against the lorekeeper's configured keyword table, the talk-as-
// solve shortcut for ordinary puzzles, and the glow-codex active-puzzle
// routing, broadcast to the room the way the teacher's chat commands are.
func (e *Engine) handleTalk(ctx context.Context, s *session.Session, env protocol.Envelope) error {
	var msg protocol.TalkMsg
	if err := env.Decode(&msg); err != nil {
		return engineerr.Template(engineerr.Validation, "talk_malformed", nil)
	}
	s.Lock()
	roomID, playerName := s.RoomID, s.PlayerName
	activeCodex := s.GlowCodex
	s.Unlock()

	e.Broadcast.ToRoom(roomID, e.Broadcast.Template("player_said", map[string]any{
		"name": playerName, "message": msg.Message,
	}), "")
	e.recordTerminalLine(ctx, s.PlayerID, fmt.Sprintf("%s: %s", playerName, msg.Message))

	keepers, err := e.Repo.GetLoreKeepersInRoom(ctx, roomID)
	if err != nil {
		return nil
	}
	lower := strings.ToLower(msg.Message)
	for _, placement := range keepers {
		def, ok := e.NPCs.ByID(placement.DefinitionID)
		if !ok || def.Lore == nil {
			continue
		}
		lore := def.Lore

		if lore.Mode == "puzzle" && lore.PuzzleMode == "glow_codex" {
			switch {
			case activeCodex != nil && activeCodex.NPCID == placement.NPCID:
				e.resolveGlowCodexAnswer(ctx, s, roomID, def, placement, msg.Message)
			case activeCodex == nil && mentionsName(lower, def.Name):
				e.armGlowCodex(s, placement, def)
			}
			continue
		}

		if lore.Mode == "puzzle" {
			solution := strings.TrimSpace(lore.Solution)
			exact := solution != "" && strings.EqualFold(strings.TrimSpace(msg.Message), solution)
			named := solution != "" && mentionsName(lower, def.Name) && strings.Contains(lower, strings.ToLower(solution))
			if exact || named {
				e.speak(roomID, def, lore.SuccessMessage)
				e.recordTerminalLine(ctx, s.PlayerID, lore.SuccessMessage)
				e.maybeAwardItem(ctx, s, def, placement.NPCID)
			}
			continue
		}

		if lore.Mode != "dialogue" {
			continue
		}
		matched := false
		for keyword, response := range lore.Keywords {
			if strings.Contains(lower, strings.ToLower(keyword)) {
				e.speak(roomID, def, response)
				e.recordTerminalLine(ctx, s.PlayerID, response)
				e.maybeAwardItem(ctx, s, def, placement.NPCID)
				matched = true
				break
			}
		}
		if !matched && mentionsName(lower, def.Name) && lore.IncorrectResponse != "" {
			e.speak(roomID, def, lore.IncorrectResponse)
			e.recordTerminalLine(ctx, s.PlayerID, lore.IncorrectResponse)
		}
	}
	return nil
}

// armGlowCodex implements the glow-codex puzzle's first-address behavior
// (§4.6): every configured clue is pushed to the caller at 1s intervals
// and the session enters an active glow-codex puzzle bound to this NPC.
func (e *Engine) armGlowCodex(s *session.Session, placement npcdef.Placement, def npcdef.Definition) {
	s.Lock()
	s.GlowCodex = &session.GlowCodexState{NPCID: placement.NPCID, DefinitionID: placement.DefinitionID}
	s.Unlock()

	npcID, playerID := placement.NPCID, s.PlayerID
	for i, clue := range def.Lore.Clues {
		delay := time.Duration(i+1) * time.Second
		clueText := clue
		time.AfterFunc(delay, func() {
			e.deliverGlowCodexClue(s, npcID, playerID, def, clueText)
		})
	}
}

// deliverGlowCodexClue fires one scheduled clue push, re-verifying the
// puzzle is still active against this NPC before sending, mirroring the
// engagement timer's "still here, still connected" re-check.
func (e *Engine) deliverGlowCodexClue(s *session.Session, npcID, playerID string, def npcdef.Definition, clue string) {
	s.Lock()
	stillActive := s.GlowCodex != nil && s.GlowCodex.NPCID == npcID
	conn := s.Conn
	s.Unlock()
	if !stillActive || conn == nil || !conn.IsOpen() {
		return
	}
	_ = conn.Send(protocol.Out(protocol.LoreKeeperMessageFrame,
		protocol.NPCSpeech(def.Name, "", clue, def.Lore.InitialMessageColor, def.Lore.KeywordColor)))
	e.recordTerminalLine(context.Background(), playerID, clue)
}

// resolveGlowCodexAnswer routes a talk message from a session with an
// active glow-codex puzzle through the three-way classifier (§4.6).
func (e *Engine) resolveGlowCodexAnswer(ctx context.Context, s *session.Session, roomID string, def npcdef.Definition, placement npcdef.Placement, answer string) {
	lore := def.Lore
	switch classifyGlowCodexAnswer(answer, lore.Solution) {
	case "correct":
		e.speak(roomID, def, lore.SuccessMessage)
		e.recordTerminalLine(ctx, s.PlayerID, lore.SuccessMessage)
		e.maybeAwardItem(ctx, s, def, placement.NPCID)
		s.Lock()
		if s.GlowCodex != nil && s.GlowCodex.NPCID == placement.NPCID {
			s.GlowCodex = nil
		}
		s.Unlock()
	case "hint":
		response := pickResponse(lore.HintResponses, nowMS())
		if response == "" {
			response = pickResponse(lore.FollowupResponses, nowMS())
		}
		if response == "" {
			response = lore.IncorrectResponse
		}
		e.sendGlowCodexResponse(ctx, s, def, response)
	case "attempt":
		e.sendGlowCodexResponse(ctx, s, def, pickResponse(lore.IncorrectAttemptResp, nowMS()))
	default:
		e.sendGlowCodexResponse(ctx, s, def, pickResponse(lore.FollowupResponses, nowMS()))
	}
}

// sendGlowCodexResponse delivers a single-recipient classifier reply; the
// active puzzle stays armed until solved or the keeper leaves the room.
func (e *Engine) sendGlowCodexResponse(ctx context.Context, s *session.Session, def npcdef.Definition, response string) {
	if response == "" || s.Conn == nil {
		return
	}
	_ = s.Conn.Send(protocol.Out(protocol.LoreKeeperMessageFrame,
		protocol.NPCSpeech(def.Name, "", response, def.Lore.InitialMessageColor, def.Lore.KeywordColor)))
	e.recordTerminalLine(ctx, s.PlayerID, response)
}

// handleGreet re-sends a lorekeeper's initial message on demand, without
// the engagement-timer delay.
func (e *Engine) handleGreet(ctx context.Context, s *session.Session, env protocol.Envelope) error {
	var msg protocol.GreetMsg
	if err := env.Decode(&msg); err != nil {
		return engineerr.Template(engineerr.Validation, "greet_malformed", nil)
	}
	_, def, err := e.findNPCInRoom(ctx, s, msg.Target)
	if err != nil {
		return err
	}
	if def.Lore == nil {
		return engineerr.Template(engineerr.DomainRule, "npc_not_lorekeeper", nil)
	}
	if s.Conn != nil {
		_ = s.Conn.Send(protocol.Out(protocol.LoreKeeperMessageFrame,
			protocol.NPCSpeech(def.Name, "", def.Lore.InitialMessage, def.Lore.InitialMessageColor, def.Lore.KeywordColor)))
	}
	e.recordTerminalLine(ctx, s.PlayerID, def.Lore.InitialMessage)
	return nil
}

// clueIndex implements the deliberately preserved wall-clock quirk: which
// clue is shown rotates on a 30-second cadence derived from nowMS, not
// from any per-player or per-puzzle counter.
func clueIndex(nowMS int64, n int) int {
	if n == 0 {
		return 0
	}
	return int((nowMS / 30000) % int64(n))
}

func (e *Engine) handleClue(ctx context.Context, s *session.Session, env protocol.Envelope) error {
	var msg protocol.ClueMsg
	if err := env.Decode(&msg); err != nil {
		return engineerr.Template(engineerr.Validation, "clue_malformed", nil)
	}
	_, def, err := e.findNPCInRoom(ctx, s, msg.Target)
	if err != nil {
		return err
	}
	if def.Lore == nil || def.Lore.Mode != "puzzle" || len(def.Lore.Clues) == 0 {
		return engineerr.Template(engineerr.DomainRule, "npc_no_clues", nil)
	}
	clue := def.Lore.Clues[clueIndex(nowMS(), len(def.Lore.Clues))]
	if s.Conn != nil {
		_ = s.Conn.Send(protocol.Out(protocol.LoreKeeperMessageFrame,
			protocol.NPCSpeech(def.Name, "", clue, def.Lore.InitialMessageColor, def.Lore.KeywordColor)))
	}
	e.recordTerminalLine(ctx, s.PlayerID, clue)
	return nil
}

// classifyGlowCodexAnswer implements §4.6's three-way glow-codex
// classifier: an exact solution match, a hint-interrogative ("what", "how",
// "why", "?"), or a bare attempt that merely shares letters with the solution.
func classifyGlowCodexAnswer(answer, solution string) string {
	a := strings.ToLower(strings.TrimSpace(answer))
	sol := strings.ToLower(strings.TrimSpace(solution))
	if a == sol {
		return "correct"
	}
	if strings.Contains(a, "?") || strings.HasPrefix(a, "what") || strings.HasPrefix(a, "how") || strings.HasPrefix(a, "why") {
		return "hint"
	}
	shared := 0
	seen := make(map[rune]bool)
	for _, r := range a {
		if seen[r] {
			continue
		}
		seen[r] = true
		if strings.ContainsRune(sol, r) {
			shared++
		}
	}
	if shared > 0 {
		return "attempt"
	}
	return "incorrect"
}

// handleSolve implements the explicit puzzle command of §4.6: case-
// insensitive equality against the configured solution, the same check for
// every puzzle mode including glow_codex (the three-way classifier is a
// talk-only routing, not part of the solve command's contract).
func (e *Engine) handleSolve(ctx context.Context, s *session.Session, env protocol.Envelope) error {
	var msg protocol.SolveMsg
	if err := env.Decode(&msg); err != nil {
		return engineerr.Template(engineerr.Validation, "solve_malformed", nil)
	}
	placement, def, err := e.findNPCInRoom(ctx, s, msg.Target)
	if err != nil {
		return err
	}
	if def.Lore == nil || def.Lore.Mode != "puzzle" {
		return engineerr.Template(engineerr.DomainRule, "npc_not_puzzle", nil)
	}

	s.Lock()
	roomID := s.RoomID
	s.Unlock()

	correct := strings.EqualFold(strings.TrimSpace(msg.Answer), strings.TrimSpace(def.Lore.Solution))
	if correct {
		e.speak(roomID, def, def.Lore.SuccessMessage)
		e.recordTerminalLine(ctx, s.PlayerID, def.Lore.SuccessMessage)
		e.maybeAwardItem(ctx, s, def, placement.NPCID)
		s.Lock()
		if s.GlowCodex != nil && s.GlowCodex.NPCID == placement.NPCID {
			s.GlowCodex = nil
		}
		s.Unlock()
		return nil
	}

	response := def.Lore.IncorrectResponse
	if s.Conn != nil {
		_ = s.Conn.Send(protocol.Out(protocol.LoreKeeperMessageFrame,
			protocol.NPCSpeech(def.Name, "", response, def.Lore.InitialMessageColor, def.Lore.KeywordColor)))
	}
	e.recordTerminalLine(ctx, s.PlayerID, response)
	return nil
}

func pickResponse(options []string, nowMS int64) string {
	if len(options) == 0 {
		return ""
	}
	return options[int(nowMS/1000)%len(options)]
}

// maybeAwardItem implements the Award Eligibility algorithm (§4.7).
func (e *Engine) maybeAwardItem(ctx context.Context, s *session.Session, def npcdef.Definition, npcID string) {
	if def.Lore == nil || def.Lore.RewardItem == "" {
		return
	}
	lore := def.Lore
	last, hasPrior, err := e.Repo.GetLastItemAwardTime(ctx, s.PlayerID, npcID, lore.RewardItem)
	if err != nil {
		return
	}

	award := false
	switch {
	case !lore.AwardOnceOnly && !lore.AwardAfterDelay:
		award = true
	case !hasPrior:
		award = true
	case lore.AwardOnceOnly:
		award = false
	case lore.AwardAfterDelay:
		elapsed := time.Since(last)
		if elapsed >= time.Duration(lore.AwardDelaySeconds)*time.Second {
			award = true
		} else if s.Conn != nil {
			remaining := int((time.Duration(lore.AwardDelaySeconds)*time.Second - elapsed).Seconds())
			_ = s.Conn.Send(protocol.Out(protocol.MessageFrame, map[string]any{
				"message": e.Templates.Format("award_wait", map[string]any{"seconds": remaining}),
			}))
		}
	}
	if !award {
		return
	}

	if err := e.Repo.AddPlayerItem(ctx, s.PlayerID, lore.RewardItem, 1); err != nil {
		return
	}
	_ = e.Repo.RecordItemAward(ctx, s.PlayerID, npcID, lore.RewardItem, nowTime())
	if s.Conn != nil {
		_ = s.Conn.Send(protocol.Out(protocol.MessageFrame, map[string]any{
			"message": e.Templates.Format("item_awarded", map[string]any{"item": lore.RewardItem}),
		}))
	}
}
