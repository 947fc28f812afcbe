package game

import (
	"errors"
	"time"

	"github.com/user/hero-dispatch/config"
	"github.com/user/hero-dispatch/internal/types"
)

// ErrNoPendingReview is returned when a hero has no result waiting for acknowledgement
var ErrNoPendingReview = errors.New("hero has no mission result to review")

// Transition is one status change applied by the lifecycle controller
type Transition struct {
	HeroID string           `json:"hero_id"`
	From   types.HeroStatus `json:"from"`
	To     types.HeroStatus `json:"to"`
}

// Lifecycle moves heroes through busy, returning, resting and back to available.
// Each call to Advance applies at most one phase change.
type Lifecycle struct {
	cfg  config.GameConfig
	dice *DiceRoller
}

// NewLifecycle creates a lifecycle controller
func NewLifecycle(cfg config.GameConfig, dice *DiceRoller) *Lifecycle {
	return &Lifecycle{cfg: cfg, dice: dice}
}

// Advance applies the next due phase change for hero at now
func (l *Lifecycle) Advance(hero *types.Hero, now time.Time) (Transition, bool) {
	if now.Before(hero.CooldownEnd) && hero.Status != types.HeroAvailable {
		return Transition{}, false
	}

	from := hero.Status
	switch {
	case hero.Status == types.HeroBusy:
		returnFor := hero.ReturnDuration
		if returnFor <= 0 {
			returnFor = l.cfg.ReturnDurationValue()
		}
		hero.Status = types.HeroReturning
		hero.CooldownEnd = now.Add(returnFor)

	case hero.Status == types.HeroReturning:
		lo, hi := l.cfg.RestDurationRange()
		rest := l.dice.DurationBetween(lo, hi)

		hero.Status = types.HeroResting
		if hero.PendingInjury == types.HeroInjured || hero.PendingInjury == types.HeroDowned {
			hero.Status = hero.PendingInjury
			rest = time.Duration(float64(rest) * l.cfg.InjuryRestMultiplier)
		}
		hero.PendingInjury = ""
		hero.RestDuration = rest
		hero.NeedsReview = true
		hero.CooldownEnd = now.Add(rest)

	case hero.Status.IsRecovering():
		// The rest timer does not re-arm; the hero simply waits for review
		if hero.NeedsReview {
			return Transition{}, false
		}
		hero.Status = types.HeroAvailable
		hero.CurrentMission = ""
		hero.CurrentMissionID = ""
		hero.ReturnDuration = 0
		l.recoverFatigue(hero)

	default:
		return Transition{}, false
	}

	return Transition{HeroID: hero.ID, From: from, To: hero.Status}, true
}

func (l *Lifecycle) recoverFatigue(hero *types.Hero) {
	hero.RestsSinceRecovery++
	if hero.Fatigue > 0 && hero.RestsSinceRecovery >= l.cfg.FatigueRecoveryRests {
		hero.Fatigue--
		hero.RestsSinceRecovery = 0
	}
}

// ReviewMissionResult acknowledges and clears the hero's last result
func ReviewMissionResult(hero *types.Hero) (*types.MissionResult, error) {
	if !hero.NeedsReview || hero.LastMissionResult == nil {
		return nil, ErrNoPendingReview
	}

	result := hero.LastMissionResult
	hero.LastMissionResult = nil
	hero.NeedsReview = false

	return result, nil
}
