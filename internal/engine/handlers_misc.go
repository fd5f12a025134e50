package engine

import (
	"context"

	"github.com/lawnchairsociety/gridkeep/server/internal/engineerr"
	"github.com/lawnchairsociety/gridkeep/server/internal/protocol"
	"github.com/lawnchairsociety/gridkeep/server/internal/session"
)

func (e *Engine) handleWho(ctx context.Context, s *session.Session, env protocol.Envelope) error {
	var names []string
	for _, other := range e.Sessions.All() {
		other.Lock()
		if other.PlayerID != "" {
			names = append(names, other.PlayerName)
		}
		other.Unlock()
	}
	if s.Conn != nil {
		_ = s.Conn.Send(protocol.Out(protocol.MessageFrame, map[string]any{"players": names}))
	}
	return nil
}

func (e *Engine) handleSaveTerminalMessage(ctx context.Context, s *session.Session, env protocol.Envelope) error {
	var msg struct {
		Line string `json:"line"`
	}
	if err := env.Decode(&msg); err != nil {
		return engineerr.Template(engineerr.Validation, "save_terminal_message_malformed", nil)
	}
	s.Lock()
	playerID := s.PlayerID
	s.Unlock()
	e.recordTerminalLine(ctx, playerID, msg.Line)
	return nil
}

func (e *Engine) handleUpdateWidgetConfig(ctx context.Context, s *session.Session, env protocol.Envelope) error {
	var msg protocol.UpdateWidgetConfigMsg
	if err := env.Decode(&msg); err != nil {
		return engineerr.Template(engineerr.Validation, "update_widget_config_malformed", nil)
	}
	s.Lock()
	playerID := s.PlayerID
	s.Unlock()
	if err := e.Repo.SetWidgetConfig(ctx, playerID, msg.Key, msg.Value); err != nil {
		return engineerr.Wrap(err, "persist widget config")
	}
	if s.Conn != nil {
		_ = s.Conn.Send(protocol.Out(protocol.WidgetConfigUpdatedFrame, map[string]any{
			"key": msg.Key, "value": msg.Value,
		}))
	}
	return nil
}

func (e *Engine) handleGetWidgetConfig(ctx context.Context, s *session.Session, env protocol.Envelope) error {
	s.Lock()
	playerID := s.PlayerID
	s.Unlock()
	cfg, err := e.Repo.GetWidgetConfig(ctx, playerID)
	if err != nil {
		return engineerr.Wrap(err, "read widget config")
	}
	if s.Conn != nil {
		_ = s.Conn.Send(protocol.Out(protocol.WidgetConfigFrame, map[string]any{"config": cfg}))
	}
	return nil
}
