package combat

import (
	"errors"
	"fmt"
)

var ErrInvalidAction = errors.New("invalid action")

type ActionKind string

const (
	ActionAttack ActionKind = "attack"
	ActionHeal   ActionKind = "heal"
	ActionDefend ActionKind = "defend"
)

// Kinds lists every action kind in a fixed order.
var Kinds = []ActionKind{ActionAttack, ActionHeal, ActionDefend}

// Rule is one row of the combat table.
type Rule struct {
	Cost     int `json:"cost"`
	Damage   int `json:"damage"`
	Heal     int `json:"heal"`
	Speed    int `json:"speed"`
	Cooldown int `json:"cooldown"`
}

const (
	MaxHealth     = 100
	MaxEnergy     = 100
	DefaultRegen  = 10
	DefaultAction = ActionDefend
)

// Ruleset bundles the rule table with the per-turn energy regeneration.
// Host and client prediction must use identical values.
type Ruleset struct {
	Rules map[ActionKind]Rule
	Regen int
}

// DefaultRules returns the standard table: defend resolves first so its
// flag is visible to an incoming attack, heal resolves last.
func DefaultRules() Ruleset {
	return Ruleset{
		Rules: map[ActionKind]Rule{
			ActionAttack: {Cost: 20, Damage: 25, Speed: 2, Cooldown: 1},
			ActionHeal:   {Cost: 15, Heal: 20, Speed: 1, Cooldown: 2},
			ActionDefend: {Cost: 10, Speed: 3, Cooldown: 1},
		},
		Regen: DefaultRegen,
	}
}

func (rs Ruleset) Lookup(kind ActionKind) (Rule, error) {
	r, ok := rs.Rules[kind]
	if !ok {
		return Rule{}, fmt.Errorf("%w: %q", ErrInvalidAction, kind)
	}
	return r, nil
}

// ParseAction validates a client supplied action name.
func ParseAction(s string) (ActionKind, error) {
	k := ActionKind(s)
	switch k {
	case ActionAttack, ActionHeal, ActionDefend:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidAction, s)
}
