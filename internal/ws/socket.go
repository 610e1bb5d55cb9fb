package ws

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	socketio "github.com/googollee/go-socket.io"
	"github.com/kiliankoe/duelhost/internal/combat"
	"github.com/kiliankoe/duelhost/internal/config"
	"github.com/kiliankoe/duelhost/internal/game"
	"github.com/rs/zerolog/log"
)

const (
	EventJoin       = "join_session"
	EventAction     = "submit_action"
	EventState      = "session_state"
	EventTurnResult = "turn_result"
	EventError      = "error"
)

type ConnCtx struct {
	SessionID string
	PlayerID  string
}

type JoinPayload struct {
	SessionID string `json:"sessionId"`
	PlayerID  string `json:"playerId"`
}

type ActionPayload struct {
	SessionID string `json:"sessionId"`
	PlayerID  string `json:"playerId"`
	Action    string `json:"action"`
}

type roomBroadcaster interface {
	BroadcastToRoom(namespace, room, event string, args ...interface{}) bool
}

type Server struct {
	Registry *game.Registry
	config   config.Config
	rooms    roomBroadcaster

	mu      sync.Mutex
	members map[string]map[string]socketio.Conn // sessionID -> socketID -> Conn

	// export queue; file I/O stays off the session lock
	exportMu     sync.Mutex
	exports      chan game.TurnResult
	exportDone   chan struct{}
	exportClosed bool
	export       func(res game.TurnResult, filename string) error
}

const exportQueueSize = 256

func New(cfg config.Config) *Server {
	srv := &Server{members: make(map[string]map[string]socketio.Conn), config: cfg, export: game.ExportTurn}
	if cfg.ExportEnabled {
		srv.exports = make(chan game.TurnResult, exportQueueSize)
		srv.exportDone = make(chan struct{})
		go srv.exportLoop()
	}
	return srv
}

func (srv *Server) exportLoop() {
	defer close(srv.exportDone)
	for res := range srv.exports {
		if err := srv.export(res, srv.config.ExportFile); err != nil {
			log.Error().Err(err).Str("sessionId", res.SessionID).Msg("failed to export turn result")
		}
	}
}

// Close flushes queued exports. Results resolved afterwards are not exported.
func (srv *Server) Close() {
	srv.exportMu.Lock()
	if srv.exports == nil || srv.exportClosed {
		srv.exportMu.Unlock()
		return
	}
	srv.exportClosed = true
	close(srv.exports)
	srv.exportMu.Unlock()
	<-srv.exportDone
}

func (srv *Server) SetRegistry(reg *game.Registry) { srv.Registry = reg }

// Mount attaches the Socket.IO server with handlers to the given Gin engine.
// The caller runs Serve on the returned server.
func (srv *Server) Mount(r *gin.Engine) *socketio.Server {
	io := socketio.NewServer(nil)
	srv.rooms = io

	io.OnConnect("/", func(s socketio.Conn) error {
		s.SetContext(&ConnCtx{})
		log.Info().Str("sid", s.ID()).Msg("socket connected")
		return nil
	})
	io.OnEvent("/", EventJoin, srv.onJoin)
	io.OnEvent("/", EventAction, srv.onAction)
	io.OnError("/", func(s socketio.Conn, e error) {
		if s == nil {
			log.Error().Err(e).Msg("socket error")
			return
		}
		log.Error().Str("sid", s.ID()).Err(e).Msg("socket error")
	})
	io.OnDisconnect("/", srv.onDisconnect)

	r.GET("/socket.io/*any", gin.WrapH(io))
	r.POST("/socket.io/*any", gin.WrapH(io))

	// Basic CORS preflight for Socket.IO POST
	r.OPTIONS("/socket.io/*any", func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		c.Status(http.StatusNoContent)
	})

	return io
}

func (srv *Server) onJoin(s socketio.Conn, payload JoinPayload) map[string]any {
	if payload.SessionID == "" {
		return srv.err(s, "bad_request", "sessionId is required")
	}
	playerID := payload.PlayerID
	if playerID == "" {
		playerID = uuid.NewString()
	}
	sess := srv.Registry.GetOrCreate(payload.SessionID)
	snap, err := sess.Join(playerID)
	switch {
	case errors.Is(err, game.ErrSessionFull):
		return srv.err(s, "session_full", "Session already has two players")
	case errors.Is(err, game.ErrUnknownSession):
		return srv.err(s, "session_not_found", "Session not found")
	case err != nil:
		return srv.err(s, "bad_request", err.Error())
	}

	if prev, ok := s.Context().(*ConnCtx); ok && prev.SessionID != "" && prev.SessionID != payload.SessionID {
		s.Leave(prev.SessionID)
		srv.removeMember(prev.SessionID, s)
	}
	s.SetContext(&ConnCtx{SessionID: payload.SessionID, PlayerID: playerID})
	s.Join(payload.SessionID)
	srv.addMember(payload.SessionID, s)
	log.Info().Str("sid", s.ID()).Str("sessionId", payload.SessionID).Str("playerId", playerID).Msg(EventJoin)

	// snapshot goes to the joining connection only
	s.Emit(EventState, snap)

	var side combat.Side
	for _, p := range snap.Players {
		if p.ID == playerID {
			side = p.Side
		}
	}
	return map[string]any{"playerId": playerID, "side": side}
}

func (srv *Server) onAction(s socketio.Conn, payload ActionPayload) map[string]any {
	ctx, _ := s.Context().(*ConnCtx)
	if payload.SessionID == "" && ctx != nil {
		payload.SessionID = ctx.SessionID
	}
	if payload.PlayerID == "" && ctx != nil {
		payload.PlayerID = ctx.PlayerID
	}

	sess, err := srv.Registry.Get(payload.SessionID)
	if err != nil {
		log.Warn().Str("sid", s.ID()).Str("sessionId", payload.SessionID).Msg("action for unknown session ignored")
		return map[string]any{"ok": true}
	}
	kind, err := combat.ParseAction(payload.Action)
	if err != nil {
		log.Warn().Str("sessionId", payload.SessionID).Str("playerId", payload.PlayerID).Str("action", payload.Action).Msg("invalid action")
		return srv.err(s, "invalid_action", err.Error())
	}

	err = sess.SubmitAction(payload.PlayerID, kind, sess.Now())
	switch {
	case err == nil:
		log.Info().Str("sessionId", payload.SessionID).Str("playerId", payload.PlayerID).Str("action", string(kind)).Msg(EventAction)
	case errors.Is(err, game.ErrDuplicateSubmission):
		// same ack as an accepted action
		log.Debug().Str("sessionId", payload.SessionID).Str("playerId", payload.PlayerID).Msg("duplicate submission ignored")
	case errors.Is(err, game.ErrUnknownSession):
		log.Warn().Str("sessionId", payload.SessionID).Msg("action for removed session ignored")
	case errors.Is(err, game.ErrNotParticipant):
		return srv.err(s, "not_participant", "Join the session before acting")
	default:
		return srv.err(s, "bad_request", err.Error())
	}
	return map[string]any{"ok": true}
}

func (srv *Server) onDisconnect(s socketio.Conn, reason string) {
	// sessions outlive their connections so players can reconnect
	if ctx, ok := s.Context().(*ConnCtx); ok && ctx.SessionID != "" {
		srv.removeMember(ctx.SessionID, s)
	}
	log.Info().Str("sid", s.ID()).Str("reason", reason).Msg("socket disconnected")
}

// TurnResolved broadcasts a resolved turn to every connection in the session.
func (srv *Server) TurnResolved(sessionID string, res game.TurnResult) {
	if srv.rooms != nil {
		srv.rooms.BroadcastToRoom("/", sessionID, EventTurnResult, res)
	}
	srv.enqueueExport(res)
}

func (srv *Server) enqueueExport(res game.TurnResult) {
	srv.exportMu.Lock()
	defer srv.exportMu.Unlock()
	if srv.exports == nil || srv.exportClosed {
		return
	}
	select {
	case srv.exports <- res:
	default:
		log.Warn().Str("sessionId", res.SessionID).Str("resolutionId", res.ResolutionID).Msg("export queue full, turn result dropped")
	}
}

// Connections returns the number of sockets currently attached to a session.
func (srv *Server) Connections(sessionID string) int {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	return len(srv.members[sessionID])
}

// Forget drops connection bookkeeping for a removed session.
func (srv *Server) Forget(sessionID string) {
	srv.mu.Lock()
	conns := srv.members[sessionID]
	delete(srv.members, sessionID)
	srv.mu.Unlock()
	for _, c := range conns {
		c.Leave(sessionID)
	}
}

func (srv *Server) addMember(sessionID string, c socketio.Conn) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.members[sessionID] == nil {
		srv.members[sessionID] = make(map[string]socketio.Conn)
	}
	srv.members[sessionID][c.ID()] = c
}

func (srv *Server) removeMember(sessionID string, c socketio.Conn) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if m := srv.members[sessionID]; m != nil {
		delete(m, c.ID())
		if len(m) == 0 {
			delete(srv.members, sessionID)
		}
	}
}

func (srv *Server) err(s socketio.Conn, code, message string) map[string]any {
	s.Emit(EventError, map[string]any{"code": code, "message": message})
	return map[string]any{"error": message}
}
