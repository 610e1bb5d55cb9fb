package game

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kiliankoe/duelhost/internal/combat"
	"github.com/rs/zerolog/log"
)

var (
	ErrUnknownSession      = errors.New("session not found")
	ErrDuplicateSubmission = errors.New("action already submitted this turn")
	ErrSessionFull         = errors.New("session already has two players")
	ErrNotParticipant      = errors.New("player has not joined this session")
)

// Session is one two-player match. All fields below mu are guarded by it;
// the turn timer competes for the same lock as incoming actions.
type Session struct {
	ID        string
	CreatedAt time.Time

	opts Options

	mu         sync.Mutex
	players    []*Player // index 0 plays side A
	state      combat.State
	phase      Phase
	pending    map[string]combat.Action
	turnStart  time.Time
	timer      Stopper
	gen        uint64 // bumped on every resolution; timers carry the value they were armed with
	lastActive time.Time
	closed     bool
}

func newSession(id string, opts Options) *Session {
	now := opts.Now()
	return &Session{
		ID:         id,
		CreatedAt:  now,
		opts:       opts,
		state:      combat.NewState(),
		phase:      PhaseAwaitingActions,
		pending:    make(map[string]combat.Action),
		lastActive: now,
	}
}

// Join adds playerID to the session. Joining again with a known id only
// returns the current snapshot so clients can reconnect.
func (s *Session) Join(playerID string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Snapshot{}, ErrUnknownSession
	}
	if s.playerLocked(playerID) == nil {
		if len(s.players) >= 2 {
			return Snapshot{}, ErrSessionFull
		}
		side := combat.SideA
		if len(s.players) == 1 {
			side = combat.SideB
		}
		s.players = append(s.players, &Player{ID: playerID, Side: side, JoinedAt: s.opts.Now().UTC()})
		log.Info().Str("sessionId", s.ID).Str("playerId", playerID).Str("side", string(side)).Msg("player joined")
	}
	s.lastActive = s.opts.Now()
	return s.snapshotLocked(), nil
}

// SubmitAction records playerID's action for the current turn. The first
// action of a turn arms the turn timer; the second resolves immediately.
func (s *Session) SubmitAction(playerID string, kind combat.ActionKind, now time.Time) error {
	if _, err := s.opts.Rules.Lookup(kind); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrUnknownSession
	}
	if s.playerLocked(playerID) == nil {
		return ErrNotParticipant
	}
	if _, ok := s.pending[playerID]; ok {
		return ErrDuplicateSubmission
	}

	s.pending[playerID] = combat.Action{Kind: kind, SubmittedAt: now}
	s.lastActive = now
	if len(s.pending) == 1 {
		s.turnStart = now
		s.armTimerLocked()
	}
	if len(s.players) == 2 && len(s.pending) == 2 {
		s.stopTimerLocked()
		s.resolveLocked(false, now)
	}
	return nil
}

func (s *Session) armTimerLocked() {
	gen := s.gen
	s.timer = s.opts.Schedule(s.opts.TurnDuration, func() {
		s.onTimeout(gen)
	})
}

func (s *Session) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// onTimeout runs on the timer goroutine. A timer armed for an earlier
// turn finds gen moved on and does nothing.
func (s *Session) onTimeout(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != s.gen || len(s.pending) == 0 {
		log.Debug().Str("sessionId", s.ID).Uint64("gen", gen).Msg("stale turn timer ignored")
		return
	}
	s.timer = nil
	s.resolveLocked(true, s.opts.Now())
}

// resolveLocked closes the current turn. Missing actions become the
// default action. A fault inside the resolver is contained here: the turn
// is dropped and the session keeps running.
func (s *Session) resolveLocked(timedOut bool, now time.Time) {
	s.phase = PhaseResolving
	defer func() {
		s.phase = PhaseAwaitingActions
		s.pending = make(map[string]combat.Action)
		s.turnStart = time.Time{}
		s.gen++
		if r := recover(); r != nil {
			log.Error().Str("sessionId", s.ID).Int("turn", s.state.TurnNumber).Err(fmt.Errorf("%v", r)).Msg("turn resolution panicked")
		}
	}()

	turn := combat.Turn{A: s.actionFor(combat.SideA), B: s.actionFor(combat.SideB), TimedOut: timedOut}
	next, lines, err := s.opts.Rules.Resolve(turn, s.state)
	if err != nil {
		log.Error().Str("sessionId", s.ID).Err(err).Msg("turn resolution failed")
		return
	}
	s.state = next
	s.lastActive = now

	res := TurnResult{
		SessionID:    s.ID,
		ResolutionID: uuid.NewString(),
		State:        next.Clone(),
		Log:          lines,
		TimedOut:     timedOut,
		TurnNumber:   next.TurnNumber,
	}
	if !s.turnStart.IsZero() {
		res.TurnDurationMs = now.Sub(s.turnStart).Milliseconds()
	}
	log.Info().Str("sessionId", s.ID).Str("resolutionId", res.ResolutionID).Int("turn", next.TurnNumber-1).
		Bool("timedOut", timedOut).Msg("turn resolved")
	if s.opts.Notifier != nil {
		s.opts.Notifier.TurnResolved(s.ID, res)
	}
}

func (s *Session) actionFor(side combat.Side) combat.ActionKind {
	for _, p := range s.players {
		if p.Side != side {
			continue
		}
		if a, ok := s.pending[p.ID]; ok {
			return a.Kind
		}
	}
	return combat.DefaultAction
}

func (s *Session) playerLocked(id string) *Player {
	for _, p := range s.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	players := make([]Player, 0, len(s.players))
	pending := make(map[string]bool, len(s.players))
	for _, p := range s.players {
		players = append(players, *p)
		_, ok := s.pending[p.ID]
		pending[p.ID] = ok
	}
	sort.Slice(players, func(i, j int) bool { return players[i].Side < players[j].Side })
	return Snapshot{
		SessionID: s.ID,
		State:     s.state.Clone(),
		Players:   players,
		Phase:     s.phase,
		Pending:   pending,
	}
}

// Now reads the session's clock; transports stamp submissions with it.
func (s *Session) Now() time.Time { return s.opts.Now() }

func (s *Session) State() combat.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

func (s *Session) GetPhase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// closeIfIdle closes the session when no turn is open and nothing happened
// for longer than ttl. The check and the close share one critical section so
// an action cannot slip in between.
func (s *Session) closeIfIdle(now time.Time, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || len(s.pending) > 0 || now.Sub(s.lastActive) <= ttl {
		return false
	}
	s.closeLocked()
	return true
}

// close stops the timer and rejects further joins and actions.
func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
}

func (s *Session) closeLocked() {
	s.closed = true
	s.stopTimerLocked()
	s.gen++
}
