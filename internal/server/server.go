// Package server hosts the WebSocket transport: it accepts connections,
// upgrades them, and pumps decoded frames into the engine. All game state
// and rules live in internal/engine; this package only owns the wire.
package server

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lawnchairsociety/gridkeep/server/internal/config"
	"github.com/lawnchairsociety/gridkeep/server/internal/engine"
	"github.com/lawnchairsociety/gridkeep/server/internal/engineerr"
	"github.com/lawnchairsociety/gridkeep/server/internal/logger"
	"github.com/lawnchairsociety/gridkeep/server/internal/protocol"
	"github.com/lawnchairsociety/gridkeep/server/internal/session"
)

// restartPort is the only listen port on which a restartServer frame is
// honored (§6.3): a safety rail so a stray frame against a production
// listener can't take the process down.
const restartPort = 3535

type Server struct {
	address string
	port    int

	engine   *engine.Engine
	sessions *session.Registry

	httpServer *http.Server
	upgrader   websocket.Upgrader

	connLimiter *ConnLimiter
	loginLimit  *LoginRateLimiter

	restartFunc func()
}

func New(address string, port int, cfg *config.ServerConfig, eng *engine.Engine, sessions *session.Registry) *Server {
	s := &Server{
		address:     address,
		port:        port,
		engine:      eng,
		sessions:    sessions,
		connLimiter: NewConnLimiter(cfg.Connections),
		loginLimit:  NewLoginRateLimiter(cfg.RateLimit),
		restartFunc: func() { os.Exit(0) },
	}
	s.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return cfg.WebSocket.IsOriginAllowed(r.Header.Get("Origin"), r.Host)
		},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.serveWS)
	s.httpServer = &http.Server{Addr: address, Handler: mux}
	return s
}

func (s *Server) Start() error {
	logger.Info("server listening", "address", s.address, "port", s.port)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.loginLimit.Stop()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	ip := extractIP(r.RemoteAddr)
	if !s.connLimiter.TryAcquire(ip) {
		http.Error(w, "too many connections", http.StatusTooManyRequests)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.connLimiter.Release(ip)
		logger.Warning("websocket upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}

	wc := newWSConn(conn)
	defer func() {
		_ = wc.Close()
		s.connLimiter.Release(ip)
	}()

	sess := s.sessions.New(wc)
	logger.Info("client connected", "remote_addr", wc.RemoteAddr(), "conn_id", sess.ConnID)

	defer s.engine.Disconnect(context.Background(), sess)

	for {
		data, err := wc.readFrame()
		if err != nil {
			return
		}

		env, err := protocol.DecodeEnvelope(data)
		if err != nil {
			_ = wc.Send(protocol.Out(protocol.ErrorFrame, map[string]any{"message": err.Error()}))
			continue
		}

		if env.Type == protocol.RestartServer {
			s.handleRestartFrame(sess)
			continue
		}

		locked, _ := s.loginLimit.IsLocked(ip)
		if env.Type == protocol.AuthenticateSession && locked {
			_ = wc.Send(protocol.Out(protocol.ErrorFrame, map[string]any{"message": "too many attempts, try again later"}))
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = s.engine.Dispatch(ctx, sess, env)
		cancel()

		if env.Type == protocol.AuthenticateSession {
			if err != nil {
				s.loginLimit.RecordFailure(ip)
			} else {
				s.loginLimit.RecordSuccess(ip)
			}
		}

		if err != nil {
			s.sendError(wc, err)
		}
	}
}

// handleRestartFrame honors the admin restartServer frame only on the
// designated restart port (§6.3); everywhere else it is silently ignored
// so a misrouted frame can never take down a production listener.
func (s *Server) handleRestartFrame(sess *session.Session) {
	if s.port != restartPort {
		return
	}
	logger.Warning("restart requested", "conn_id", sess.ConnID)
	go func() {
		time.Sleep(200 * time.Millisecond)
		s.restartFunc()
	}()
}

// sendError renders an engine error for the client: a templated
// engineerr.Error is formatted through the message cache, everything else
// falls back to its Go error string.
func (s *Server) sendError(conn session.Conn, err error) {
	message := err.Error()
	var ee *engineerr.Error
	if e, ok := err.(*engineerr.Error); ok {
		ee = e
	}
	if ee != nil && ee.TemplateKey != "" {
		message = s.engine.Templates.Format(ee.TemplateKey, ee.Args)
	}
	_ = conn.Send(protocol.Out(protocol.ErrorFrame, map[string]any{"message": message}))
}
