package game

import (
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/user/hero-dispatch/config"
	"github.com/user/hero-dispatch/internal/types"
)

// CoverageSpec describes a hero's wheel footprint in roster files.
// Arcs are inclusive degree ranges; every 10 degrees is one slice.
type CoverageSpec struct {
	Arcs   [][]int `yaml:"arcs"`
	Slices []int   `yaml:"slices"`
	Center bool    `yaml:"center"`
}

// HeroDefinition is one hero entry of roster.yaml
type HeroDefinition struct {
	ID        string              `yaml:"id"`
	Name      string              `yaml:"name"`
	Archetype string              `yaml:"archetype"`
	Stats     types.StatProfile   `yaml:"stats"`
	Power     types.PowerKind     `yaml:"power"`
	SlotTable []types.StatProfile `yaml:"slot_table"`
	Coverage  CoverageSpec        `yaml:"coverage"`
	Friends   []string            `yaml:"friends"`
	Enemies   []string            `yaml:"enemies"`
}

// Resolve expands the coverage arcs into sorted, unique slice indices
func (c CoverageSpec) Resolve(sliceCount, centerSlice int) ([]int, error) {
	if sliceCount <= 0 || sliceCount > 360 {
		return nil, fmt.Errorf("slice count %d out of range", sliceCount)
	}
	degreesPerSlice := 360 / sliceCount

	set := make(map[int]struct{})
	for _, arc := range c.Arcs {
		if len(arc) != 2 {
			return nil, fmt.Errorf("coverage arc %v must have exactly two bounds", arc)
		}
		from, to := arc[0]/degreesPerSlice, arc[1]/degreesPerSlice
		for i := from; i <= to; i++ {
			set[i%sliceCount] = struct{}{}
		}
	}
	for _, s := range c.Slices {
		if (s < 0 || s >= sliceCount) && s != centerSlice {
			return nil, fmt.Errorf("coverage slice %d outside the wheel", s)
		}
		set[s] = struct{}{}
	}
	if c.Center {
		set[centerSlice] = struct{}{}
	}
	return sortedSet(set), nil
}

var errEmptyRoster = errors.New("roster is empty")

// BuildRoster turns definitions into fresh heroes with symmetric relationships
func BuildRoster(defs []HeroDefinition, cfg config.GameConfig) ([]*types.Hero, error) {
	if len(defs) == 0 {
		return nil, errEmptyRoster
	}

	heroes := make([]*types.Hero, 0, len(defs))
	byID := make(map[string]*types.Hero, len(defs))

	for _, def := range defs {
		id := def.ID
		if id == "" {
			id = uuid.New().String()
		}
		if _, dup := byID[id]; dup {
			return nil, fmt.Errorf("duplicate hero id %q", id)
		}
		if def.Power != types.PowerNone && !knownPower(def.Power) {
			return nil, fmt.Errorf("hero %q has unknown power %q", id, def.Power)
		}

		shape, err := def.Coverage.Resolve(cfg.SliceCount, cfg.CenterSlice)
		if err != nil {
			return nil, fmt.Errorf("hero %q: %w", id, err)
		}

		hero := &types.Hero{
			ID:            id,
			Name:          def.Name,
			Archetype:     def.Archetype,
			Stats:         def.Stats.FloorAt(0),
			Level:         1,
			XPToNext:      cfg.StartingXPToNext,
			Status:        types.HeroAvailable,
			CoverageShape: shape,
			Power:         def.Power,
			SlotTable:     slices.Clone(def.SlotTable),
		}
		heroes = append(heroes, hero)
		byID[id] = hero
	}

	// Relationships are declared once and mirrored onto both heroes
	for _, def := range defs {
		hero := byID[def.ID]
		if hero == nil {
			continue
		}
		for _, other := range def.Friends {
			if err := link(byID, hero, other, false); err != nil {
				return nil, err
			}
		}
		for _, other := range def.Enemies {
			if err := link(byID, hero, other, true); err != nil {
				return nil, err
			}
		}
	}

	return heroes, nil
}

func link(byID map[string]*types.Hero, hero *types.Hero, otherID string, enemy bool) error {
	other, ok := byID[otherID]
	if !ok {
		return fmt.Errorf("hero %q references unknown hero %q", hero.ID, otherID)
	}
	if other.ID == hero.ID {
		return fmt.Errorf("hero %q cannot relate to itself", hero.ID)
	}
	if enemy {
		if hero.IsFriend(other.ID) {
			return fmt.Errorf("heroes %q and %q are both friends and enemies", hero.ID, other.ID)
		}
		hero.Enemies = appendUnique(hero.Enemies, other.ID)
		other.Enemies = appendUnique(other.Enemies, hero.ID)
		return nil
	}
	if hero.IsEnemy(other.ID) {
		return fmt.Errorf("heroes %q and %q are both friends and enemies", hero.ID, other.ID)
	}
	hero.Friends = appendUnique(hero.Friends, other.ID)
	other.Friends = appendUnique(other.Friends, hero.ID)
	return nil
}

func appendUnique(list []string, id string) []string {
	if slices.Contains(list, id) {
		return list
	}
	return append(list, id)
}

// DefaultRoster is the built-in eight hero team
func DefaultRoster() []HeroDefinition {
	return []HeroDefinition{
		{
			ID: "invisigal", Name: "Invisigal", Archetype: "Lone Wolf",
			Stats:    types.StatProfile{Combat: 3, Vigor: 3, Mobility: 3, Charisma: 1, Intellect: 2},
			Power:    types.PowerSolo,
			Coverage: CoverageSpec{Arcs: [][]int{{0, 70}}},
		},
		{
			ID: "flambae", Name: "Flambae", Archetype: "Hot Streak",
			Stats:    types.StatProfile{Combat: 4, Vigor: 2, Mobility: 3, Charisma: 2, Intellect: 1},
			Power:    types.PowerStreak,
			Coverage: CoverageSpec{Arcs: [][]int{{120, 180}}},
			Enemies:  []string{"sonar"},
		},
		{
			ID: "prism", Name: "Prism", Archetype: "Duplicator",
			Stats:    types.StatProfile{Combat: 4, Vigor: 1, Mobility: 1, Charisma: 4, Intellect: 2},
			Power:    types.PowerDuplication,
			Coverage: CoverageSpec{Arcs: [][]int{{60, 110}}, Center: true},
		},
		{
			ID: "sonar", Name: "Sonar", Archetype: "Transformer",
			Stats:    types.StatProfile{Combat: 2, Vigor: 1, Mobility: 2, Charisma: 3, Intellect: 4},
			Power:    types.PowerTransform,
			Coverage: CoverageSpec{Arcs: [][]int{{190, 230}}},
		},
		{
			ID: "coupe", Name: "Coupé", Archetype: "Assassin",
			Stats: types.StatProfile{Combat: 4, Vigor: 1, Mobility: 3, Charisma: 1, Intellect: 3},
			Power: types.PowerSlotDependent,
			SlotTable: []types.StatProfile{
				{Combat: 1},
				{Mobility: 1},
			},
			Coverage: CoverageSpec{Arcs: [][]int{{240, 300}}},
			Friends:  []string{"invisigal"},
		},
		{
			ID: "punchup", Name: "Punch Up", Archetype: "Tank",
			Stats:    types.StatProfile{Combat: 3, Vigor: 4, Mobility: 1, Charisma: 3, Intellect: 1},
			Power:    types.PowerImmunity,
			Coverage: CoverageSpec{Arcs: [][]int{{180, 260}}, Center: true},
		},
		{
			ID: "malevola", Name: "Malevola", Archetype: "Healer",
			Stats:    types.StatProfile{Combat: 3, Vigor: 2, Mobility: 2, Charisma: 3, Intellect: 2},
			Power:    types.PowerHealing,
			Coverage: CoverageSpec{Arcs: [][]int{{90, 170}}},
			Friends:  []string{"punchup", "prism"},
		},
		{
			ID: "golem", Name: "Golem", Archetype: "Slot-Dependent Tank",
			Stats: types.StatProfile{Combat: 3, Vigor: 4, Mobility: 1, Charisma: 1, Intellect: 3},
			Power: types.PowerSlotDependent,
			SlotTable: []types.StatProfile{
				{Combat: 2, Vigor: -1, Mobility: -1, Charisma: -1, Intellect: -1},
				{Combat: -1, Vigor: 2, Mobility: -1, Charisma: -1, Intellect: -1},
				{Combat: -1, Vigor: -1, Mobility: 2, Charisma: -1, Intellect: -1},
			},
			Coverage: CoverageSpec{Arcs: [][]int{{300, 350}}, Center: true},
			Enemies:  []string{"coupe"},
		},
	}
}
