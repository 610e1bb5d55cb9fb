package combat

import (
	"fmt"
	"slices"
)

// Turn is the input to a single resolution.
type Turn struct {
	A        ActionKind
	B        ActionKind
	TimedOut bool
}

type plannedAction struct {
	side Side
	kind ActionKind
	rule Rule
}

type turnContext struct {
	rs    Ruleset
	turn  Turn
	state State
	log   []string
	// cooldowns set during this turn; they survive the end-of-turn tick
	fresh map[Side]map[ActionKind]bool
}

func (tc *turnContext) add(format string, args ...any) {
	tc.log = append(tc.log, fmt.Sprintf(format, args...))
}

func (tc *turnContext) kindOf(side Side) ActionKind {
	if side == SideA {
		return tc.turn.A
	}
	return tc.turn.B
}

// Resolve resolves one turn with the default rules.
func Resolve(turn Turn, s State) (State, []string, error) {
	return DefaultRules().Resolve(turn, s)
}

// Resolve computes the next state and the ordered resolution log. The input
// state is not modified. Unknown kinds fail with ErrInvalidAction.
func (rs Ruleset) Resolve(turn Turn, s State) (State, []string, error) {
	ra, err := rs.Lookup(turn.A)
	if err != nil {
		return s, nil, err
	}
	rb, err := rs.Lookup(turn.B)
	if err != nil {
		return s, nil, err
	}

	tc := &turnContext{
		rs:    rs,
		turn:  turn,
		state: s.Clone(),
		log:   make([]string, 0, 6),
		fresh: map[Side]map[ActionKind]bool{SideA: {}, SideB: {}},
	}
	tc.add("Resolving turn %d", s.TurnNumber)
	if turn.TimedOut {
		tc.add("Turn timed out: missing actions default to %s", DefaultAction)
	}

	plans := []plannedAction{
		{side: SideA, kind: turn.A, rule: ra},
		{side: SideB, kind: turn.B, rule: rb},
	}
	// stable sort keeps A ahead of B on equal speed
	slices.SortStableFunc(plans, func(x, y plannedAction) int {
		return y.rule.Speed - x.rule.Speed
	})
	for _, p := range plans {
		tc.execute(p)
	}

	tc.endOfTurn()
	return tc.state, tc.log, nil
}

func (tc *turnContext) execute(p plannedAction) {
	st := &tc.state
	energy := st.energy(p.side)
	if *energy < p.rule.Cost {
		tc.add("Player %s lacks energy for %s (%d < %d)", p.side, p.kind, *energy, p.rule.Cost)
		return
	}
	if st.Cooldowns[p.side][p.kind] > 0 {
		tc.add("Player %s is on cooldown for %s (%d turns)", p.side, p.kind, st.Cooldowns[p.side][p.kind])
		return
	}

	*energy -= p.rule.Cost
	opp := p.side.Opponent()
	switch p.kind {
	case ActionAttack:
		// judged on the submitted action, not on whether the defend went through
		if tc.kindOf(opp) == ActionDefend {
			tc.add("Player %s attacks but player %s defends", p.side, opp)
		} else {
			*st.health(opp) -= p.rule.Damage
			tc.add("Player %s attacks for %d damage", p.side, p.rule.Damage)
		}
	case ActionHeal:
		h := st.health(p.side)
		*h = min(*h+p.rule.Heal, MaxHealth)
		tc.add("Player %s heals %d points", p.side, p.rule.Heal)
	case ActionDefend:
		tc.add("Player %s defends", p.side)
	}
	st.Cooldowns[p.side][p.kind] = p.rule.Cooldown
	tc.fresh[p.side][p.kind] = true
}

func (tc *turnContext) endOfTurn() {
	st := &tc.state
	for side, m := range st.Cooldowns {
		for k, v := range m {
			if tc.fresh[side][k] {
				continue
			}
			m[k] = max(v-1, 0)
		}
	}
	st.EnergyA = clamp(st.EnergyA+tc.rs.Regen, 0, MaxEnergy)
	st.EnergyB = clamp(st.EnergyB+tc.rs.Regen, 0, MaxEnergy)
	st.HealthA = clamp(st.HealthA, 0, MaxHealth)
	st.HealthB = clamp(st.HealthB, 0, MaxHealth)
	st.TurnNumber++
}
