package game

import (
	"errors"
	"math"

	"github.com/user/hero-dispatch/internal/types"
)

var (
	ErrUnknownStat             = errors.New("unknown stat")
	ErrInvalidPoints           = errors.New("points must be positive")
	ErrInsufficientSkillPoints = errors.New("not enough skill points")
	ErrStatCapped              = errors.New("stat already at cap")
)

// AwardXP adds xp and resolves every level-up it pays for. It reports whether
// the hero gained at least one level; afterwards XP < XPToNext always holds.
func AwardXP(hero *types.Hero, amount int, curve float64) bool {
	if amount > 0 {
		hero.XP += amount
	}
	if hero.XPToNext <= 0 {
		hero.XPToNext = 1
	}

	leveled := false
	for hero.XP >= hero.XPToNext {
		hero.Level++
		hero.XP -= hero.XPToNext
		hero.XPToNext = int(math.Floor(float64(hero.XPToNext) * curve))
		if hero.XPToNext < 1 {
			hero.XPToNext = 1
		}
		hero.SkillPoints++
		leveled = true
	}

	return leveled
}

// AllocateStat spends skill points on one stat, never raising it past statCap.
// It returns how many points were actually spent.
func AllocateStat(hero *types.Hero, stat types.Stat, points, statCap int) (int, error) {
	stat, ok := types.ParseStat(string(stat))
	if !ok {
		return 0, ErrUnknownStat
	}
	if points <= 0 {
		return 0, ErrInvalidPoints
	}
	if hero.SkillPoints < points {
		return 0, ErrInsufficientSkillPoints
	}

	current := hero.Stats.Get(stat)
	room := statCap - current
	if room <= 0 {
		return 0, ErrStatCapped
	}

	spent := min(points, room)
	hero.Stats.Set(stat, current+spent)
	hero.SkillPoints -= spent

	return spent, nil
}
