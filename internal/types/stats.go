package types

import "strings"

// Stat names one dimension of a StatProfile
type Stat string

const (
	StatCombat    Stat = "combat"
	StatVigor     Stat = "vigor"
	StatMobility  Stat = "mobility"
	StatCharisma  Stat = "charisma"
	StatIntellect Stat = "intellect"
)

// AllStats lists the five dimensions in display order
var AllStats = []Stat{StatCombat, StatVigor, StatMobility, StatCharisma, StatIntellect}

// ParseStat resolves a stat name, accepting "speed" as an alias for mobility
func ParseStat(name string) (Stat, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "combat":
		return StatCombat, true
	case "vigor":
		return StatVigor, true
	case "mobility", "speed":
		return StatMobility, true
	case "charisma":
		return StatCharisma, true
	case "intellect":
		return StatIntellect, true
	}
	return "", false
}

// StatProfile is the five-dimensional ability vector shared by heroes and missions
type StatProfile struct {
	Combat    int `json:"combat" yaml:"combat"`
	Vigor     int `json:"vigor" yaml:"vigor"`
	Mobility  int `json:"mobility" yaml:"mobility"`
	Charisma  int `json:"charisma" yaml:"charisma"`
	Intellect int `json:"intellect" yaml:"intellect"`
}

// Add returns the per-field sum of two profiles
func (p StatProfile) Add(o StatProfile) StatProfile {
	return StatProfile{
		Combat:    p.Combat + o.Combat,
		Vigor:     p.Vigor + o.Vigor,
		Mobility:  p.Mobility + o.Mobility,
		Charisma:  p.Charisma + o.Charisma,
		Intellect: p.Intellect + o.Intellect,
	}
}

// Get returns the value of a single stat
func (p StatProfile) Get(s Stat) int {
	switch s {
	case StatCombat:
		return p.Combat
	case StatVigor:
		return p.Vigor
	case StatMobility:
		return p.Mobility
	case StatCharisma:
		return p.Charisma
	case StatIntellect:
		return p.Intellect
	}
	return 0
}

// Set assigns a single stat
func (p *StatProfile) Set(s Stat, v int) {
	switch s {
	case StatCombat:
		p.Combat = v
	case StatVigor:
		p.Vigor = v
	case StatMobility:
		p.Mobility = v
	case StatCharisma:
		p.Charisma = v
	case StatIntellect:
		p.Intellect = v
	}
}

// Half returns every field halved and floored
func (p StatProfile) Half() StatProfile {
	return p.Map(func(_ Stat, v int) int { return floorDiv(v, 2) })
}

// FloorAt raises every field below min to min
func (p StatProfile) FloorAt(min int) StatProfile {
	return p.Map(func(_ Stat, v int) int {
		if v < min {
			return min
		}
		return v
	})
}

// Map applies fn to every field
func (p StatProfile) Map(fn func(Stat, int) int) StatProfile {
	var out StatProfile
	for _, s := range AllStats {
		out.Set(s, fn(s, p.Get(s)))
	}
	return out
}

// Total sums every field
func (p StatProfile) Total() int {
	return p.Combat + p.Vigor + p.Mobility + p.Charisma + p.Intellect
}

// IsZero reports whether every field is zero
func (p StatProfile) IsZero() bool {
	return p == StatProfile{}
}

// SwapTransform exchanges combat with intellect and vigor with charisma
func (p StatProfile) SwapTransform() StatProfile {
	return StatProfile{
		Combat:    p.Intellect,
		Vigor:     p.Charisma,
		Mobility:  p.Mobility,
		Charisma:  p.Vigor,
		Intellect: p.Combat,
	}
}

// SumProfiles aggregates any number of profiles
func SumProfiles(profiles ...StatProfile) StatProfile {
	var total StatProfile
	for _, p := range profiles {
		total = total.Add(p)
	}
	return total
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
