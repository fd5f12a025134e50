package paths

import (
	"context"
	"time"

	"github.com/lawnchairsociety/gridkeep/server/internal/engineerr"
	"github.com/lawnchairsociety/gridkeep/server/internal/pathfind"
	"github.com/lawnchairsociety/gridkeep/server/internal/repository"
	"github.com/lawnchairsociety/gridkeep/server/internal/session"
	"github.com/lawnchairsociety/gridkeep/server/internal/worldmap"
)

const (
	defaultAutoLoopMS       = 2000
	defaultAutoNavigationMS = 1000
)

// MoveFunc performs one movement-engine step for a session in the given
// direction, returning the room the mover ended up in. It is injected
// rather than imported directly so this package doesn't depend on the
// (higher-level) movement/dispatch packages, avoiding an import cycle.
type MoveFunc func(ctx context.Context, s *session.Session, dir worldmap.Direction) (newRoomID string, err error)

// Executor drives path and auto-navigation playback against a session.
type Executor struct {
	repo repository.Repository
	w    *worldmap.World
	move MoveFunc
}

func NewExecutor(repo repository.Repository, w *worldmap.World, move MoveFunc) *Executor {
	return &Executor{repo: repo, w: w, move: move}
}

func toNavSteps(rows []repository.PathStepRow) []session.NavStep {
	out := make([]session.NavStep, 0, len(rows))
	for _, r := range rows {
		if r.Direction == "" {
			continue // defensive filter per §4.9
		}
		out = append(out, session.NavStep{Direction: r.Direction, RoomID: r.RoomID})
	}
	return out
}

// StartPathExecution loads pathID and either begins playback immediately
// (if the session is already at the origin) or auto-navigates there first.
func (e *Executor) StartPathExecution(ctx context.Context, s *session.Session, pathID string, autoLoopMS int) error {
	row, ok, err := e.repo.GetPathByID(ctx, pathID)
	if err != nil {
		return engineerr.Wrap(err, "load path")
	}
	if !ok {
		return engineerr.Template(engineerr.NotFound, "path_not_found", nil)
	}
	stepRows, err := e.repo.GetPathSteps(ctx, pathID)
	if err != nil {
		return engineerr.Wrap(err, "load path steps")
	}
	steps := toNavSteps(stepRows)

	s.Lock()
	currentRoomID := s.RoomID
	s.Unlock()

	if currentRoomID == row.OriginRoomID {
		if autoLoopMS <= 0 {
			autoLoopMS = defaultAutoLoopMS
		}
		e.installExecution(s, pathID, steps, row.Kind == "loop", autoLoopMS)
		return nil
	}

	origin, ok := e.w.Room(row.MapID, row.OriginRoomID)
	if !ok {
		return engineerr.Template(engineerr.NotFound, "room_not_found", nil)
	}
	current, ok := e.w.Room(row.MapID, currentRoomID)
	if !ok {
		return engineerr.Template(engineerr.NotFound, "room_not_found", nil)
	}
	navSteps, found := pathfind.Find(e.w, current, origin)
	if !found {
		return engineerr.Template(engineerr.DomainRule, "path_unreachable_origin", nil)
	}
	out := make([]session.NavStep, len(navSteps))
	for i, st := range navSteps {
		out[i] = session.NavStep{Direction: string(st.Direction), RoomID: st.RoomID}
	}

	s.Lock()
	s.AutoNav = &session.AutoNavigation{Steps: out, PendingPathID: pathID}
	s.Unlock()
	e.scheduleAutoNavStep(s, defaultAutoNavigationMS)
	return nil
}

func (e *Executor) installExecution(s *session.Session, pathID string, steps []session.NavStep, looping bool, intervalMS int) {
	s.Lock()
	s.PathExec = &session.PathExecution{PathID: pathID, Steps: steps, IsLooping: looping}
	s.Unlock()
	e.schedulePathStep(s, intervalMS)
}

func (e *Executor) schedulePathStep(s *session.Session, intervalMS int) {
	s.Lock()
	pe := s.PathExec
	s.Unlock()
	if pe == nil || len(pe.Steps) == 0 {
		return
	}
	timer := time.AfterFunc(time.Duration(intervalMS)*time.Millisecond, func() {
		e.firePathStep(context.Background(), s, intervalMS)
	})
	s.Lock()
	if s.PathExec != nil {
		s.PathExec.Timer = timer
	}
	s.Unlock()
}

func (e *Executor) firePathStep(ctx context.Context, s *session.Session, intervalMS int) {
	s.Lock()
	pe := s.PathExec
	if pe == nil || pe.IsPaused {
		s.Unlock()
		return
	}
	idx := pe.CurrentStep
	if pe.IsLooping && len(pe.Steps) > 0 {
		idx = idx % len(pe.Steps)
	}
	if idx >= len(pe.Steps) {
		s.PathExec = nil
		s.Unlock()
		return
	}
	step := pe.Steps[idx]
	s.Unlock()

	if _, err := e.move(ctx, s, worldmap.Direction(step.Direction)); err != nil {
		return
	}

	s.Lock()
	if s.PathExec != nil {
		s.PathExec.CurrentStep++
	}
	s.Unlock()
	e.schedulePathStep(s, intervalMS)
}

// StopPathExecution pauses playback without discarding progress.
func (e *Executor) StopPathExecution(s *session.Session) error {
	s.Lock()
	defer s.Unlock()
	if s.PathExec == nil {
		return engineerr.Template(engineerr.DomainRule, "path_not_executing", nil)
	}
	if s.PathExec.Timer != nil {
		s.PathExec.Timer.Stop()
	}
	s.PathExec.IsPaused = true
	return nil
}

// ContinuePathExecution resumes a paused execution matching pathID.
func (e *Executor) ContinuePathExecution(s *session.Session, pathID string) error {
	s.Lock()
	pe := s.PathExec
	if pe == nil || !pe.IsPaused || pe.PathID != pathID {
		s.Unlock()
		return engineerr.Template(engineerr.DomainRule, "path_not_paused", nil)
	}
	pe.IsPaused = false
	s.Unlock()
	e.schedulePathStep(s, defaultAutoLoopMS)
	return nil
}

// ScheduleAutoNavigation starts step scheduling for a freshly-installed
// AutoNavigation (e.g. one built directly by calculateAutoPath rather than
// via StartPathExecution's origin handoff).
func (e *Executor) ScheduleAutoNavigation(s *session.Session) {
	e.scheduleAutoNavStep(s, defaultAutoNavigationMS)
}

// scheduleAutoNavStep arms a timer for the session's next auto-navigation
// hop, or hands off to completeAutoNav once every step has run.
// fireAutoNavStep calls it again after each successful move.
func (e *Executor) scheduleAutoNavStep(s *session.Session, intervalMS int) {
	s.Lock()
	nav := s.AutoNav
	s.Unlock()
	if nav == nil || nav.CurrentStep >= len(nav.Steps) {
		e.completeAutoNav(s)
		return
	}
	timer := time.AfterFunc(time.Duration(intervalMS)*time.Millisecond, func() {
		e.fireAutoNavStep(context.Background(), s, intervalMS)
	})
	s.Lock()
	if s.AutoNav != nil {
		s.AutoNav.Timer = timer
	}
	s.Unlock()
}

func (e *Executor) fireAutoNavStep(ctx context.Context, s *session.Session, intervalMS int) {
	s.Lock()
	nav := s.AutoNav
	if nav == nil {
		s.Unlock()
		return
	}
	if nav.CurrentStep >= len(nav.Steps) {
		s.Unlock()
		e.completeAutoNav(s)
		return
	}
	step := nav.Steps[nav.CurrentStep]
	s.Unlock()

	if _, err := e.move(ctx, s, worldmap.Direction(step.Direction)); err != nil {
		s.Lock()
		s.AutoNav = nil
		s.Unlock()
		return
	}

	s.Lock()
	if s.AutoNav != nil {
		s.AutoNav.CurrentStep++
	}
	s.Unlock()
	e.scheduleAutoNavStep(s, intervalMS)
}

// completeAutoNav promotes a pending path execution to active once
// navigation-to-origin finishes (§4.9 "auto-navigation handoff").
func (e *Executor) completeAutoNav(s *session.Session) {
	s.Lock()
	nav := s.AutoNav
	s.AutoNav = nil
	s.Unlock()
	if nav == nil || nav.PendingPathID == "" {
		return
	}

	ctx := context.Background()
	row, ok, err := e.repo.GetPathByID(ctx, nav.PendingPathID)
	if err != nil || !ok {
		return
	}
	stepRows, err := e.repo.GetPathSteps(ctx, nav.PendingPathID)
	if err != nil {
		return
	}
	e.installExecution(s, nav.PendingPathID, toNavSteps(stepRows), row.Kind == "loop", defaultAutoLoopMS)
}
