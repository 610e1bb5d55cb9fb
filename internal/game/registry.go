package game

import (
	"sort"
	"sync"
	"time"

	"github.com/kiliankoe/duelhost/internal/combat"
	"github.com/rs/zerolog/log"
)

// Registry owns every live session, keyed by the client supplied id.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	opts     Options
}

func NewRegistry(opts Options) *Registry {
	if opts.TurnDuration <= 0 {
		opts.TurnDuration = DefaultTurnDuration
	}
	if opts.Rules.Rules == nil {
		regen := opts.Rules.Regen
		opts.Rules = combat.DefaultRules()
		if regen > 0 {
			opts.Rules.Regen = regen
		}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Schedule == nil {
		opts.Schedule = func(d time.Duration, f func()) Stopper { return time.AfterFunc(d, f) }
	}
	return &Registry{sessions: make(map[string]*Session), opts: opts}
}

// GetOrCreate returns the session for id, creating it on first use.
// Concurrent callers with the same id always get the same *Session.
func (r *Registry) GetOrCreate(id string) *Session {
	r.mu.RLock()
	s := r.sessions[id]
	r.mu.RUnlock()
	if s != nil {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s = r.sessions[id]; s != nil {
		return s
	}
	s = newSession(id, r.opts)
	r.sessions[id] = s
	log.Info().Str("sessionId", id).Msg("session created")
	return s
}

func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := r.sessions[id]
	if s == nil {
		return nil, ErrUnknownSession
	}
	return s, nil
}

// Remove destroys a session and cancels its pending turn.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	s := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if s == nil {
		return false
	}
	s.close()
	log.Info().Str("sessionId", id).Msg("session removed")
	return true
}

// Reap removes sessions without an open turn whose last activity is older
// than ttl, and returns their ids.
func (r *Registry) Reap(now time.Time, ttl time.Duration) []string {
	if ttl <= 0 {
		return nil
	}
	r.mu.Lock()
	var reaped []string
	for id, s := range r.sessions {
		if s.closeIfIdle(now, ttl) {
			delete(r.sessions, id)
			reaped = append(reaped, id)
		}
	}
	r.mu.Unlock()

	for _, id := range reaped {
		log.Info().Str("sessionId", id).Msg("idle session reaped")
	}
	sort.Strings(reaped)
	return reaped
}

func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
