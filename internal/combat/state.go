package combat

import "time"

type Side string

const (
	SideA Side = "A"
	SideB Side = "B"
)

func (s Side) Opponent() Side {
	if s == SideA {
		return SideB
	}
	return SideA
}

// State is the combat state of one match. Values are copied with Clone
// before the resolver touches them.
type State struct {
	HealthA    int                         `json:"healthA"`
	HealthB    int                         `json:"healthB"`
	EnergyA    int                         `json:"energyA"`
	EnergyB    int                         `json:"energyB"`
	Cooldowns  map[Side]map[ActionKind]int `json:"cooldowns"`
	TurnNumber int                         `json:"turnNumber"`
}

// Action is a player's submission for the current turn.
type Action struct {
	Kind        ActionKind `json:"kind"`
	SubmittedAt time.Time  `json:"submittedAt"`
}

func NewState() State {
	return State{
		HealthA:    MaxHealth,
		HealthB:    MaxHealth,
		EnergyA:    MaxEnergy,
		EnergyB:    MaxEnergy,
		Cooldowns:  newCooldowns(),
		TurnNumber: 1,
	}
}

func newCooldowns() map[Side]map[ActionKind]int {
	cd := make(map[Side]map[ActionKind]int, 2)
	for _, side := range []Side{SideA, SideB} {
		cd[side] = make(map[ActionKind]int, len(Kinds))
		for _, k := range Kinds {
			cd[side][k] = 0
		}
	}
	return cd
}

// Clone returns a deep copy; every side and kind is present in the result.
func (s State) Clone() State {
	out := s
	out.Cooldowns = newCooldowns()
	for side, m := range s.Cooldowns {
		if out.Cooldowns[side] == nil {
			out.Cooldowns[side] = make(map[ActionKind]int, len(m))
		}
		for k, v := range m {
			out.Cooldowns[side][k] = v
		}
	}
	return out
}

func (s *State) health(side Side) *int {
	if side == SideA {
		return &s.HealthA
	}
	return &s.HealthB
}

func (s *State) energy(side Side) *int {
	if side == SideA {
		return &s.EnergyA
	}
	return &s.EnergyB
}

func (s State) Health(side Side) int { return *s.health(side) }
func (s State) Energy(side Side) int { return *s.energy(side) }

func (s State) Cooldown(side Side, kind ActionKind) int {
	return s.Cooldowns[side][kind]
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
