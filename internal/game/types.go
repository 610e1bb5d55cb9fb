package game

import (
	"time"

	"github.com/kiliankoe/duelhost/internal/combat"
)

type Phase string

const (
	PhaseAwaitingActions Phase = "AwaitingActions"
	PhaseResolving       Phase = "Resolving"
)

const DefaultTurnDuration = 10 * time.Second

// Options configure every session created by a Registry.
type Options struct {
	TurnDuration time.Duration
	Rules        combat.Ruleset
	Notifier     Notifier

	// test hooks; zero values use the wall clock and time.AfterFunc
	Now      func() time.Time
	Schedule func(d time.Duration, f func()) Stopper
}

// Notifier receives resolved turns. It is called with the session lock
// held so results reach it in turn order; it must not call back into the
// session.
type Notifier interface {
	TurnResolved(sessionID string, res TurnResult)
}

type NotifierFunc func(sessionID string, res TurnResult)

func (f NotifierFunc) TurnResolved(sessionID string, res TurnResult) { f(sessionID, res) }

type Stopper interface {
	Stop() bool
}

type Player struct {
	ID       string      `json:"id"`
	Side     combat.Side `json:"side"`
	JoinedAt time.Time   `json:"joinedAt"`
}

// TurnResult is broadcast to every connection of a session.
type TurnResult struct {
	SessionID      string       `json:"sessionId"`
	ResolutionID   string       `json:"resolutionId"`
	State          combat.State `json:"state"`
	Log            []string     `json:"log"`
	TimedOut       bool         `json:"timedOut"`
	TurnNumber     int          `json:"turnNumber"`
	TurnDurationMs int64        `json:"turnDurationMs"`
}

// Snapshot is the full session view sent to a (re)joining connection.
// Pending reports who has submitted, never what.
type Snapshot struct {
	SessionID string          `json:"sessionId"`
	State     combat.State    `json:"state"`
	Players   []Player        `json:"players"`
	Phase     Phase           `json:"phase"`
	Pending   map[string]bool `json:"pending"`
}
