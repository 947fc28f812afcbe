package game

import (
	"github.com/user/hero-dispatch/config"
	"github.com/user/hero-dispatch/internal/types"
)

// PowerContext is the lineup a power is evaluated against
type PowerContext struct {
	Team []*types.Hero
	Slot int
	Self *types.Hero
}

// PowerEffect is what a power contributes to a single dispatch
type PowerEffect struct {
	Stats            types.StatProfile
	TravelMultiplier float64
	ImmuneToInjury   bool
}

// HeroPower is a unique ability evaluated once per dispatch
type HeroPower interface {
	Kind() types.PowerKind
	Apply(ctx PowerContext) PowerEffect
}

// MissionAftermath is implemented by powers that mutate their holder once a mission is decided
type MissionAftermath interface {
	AfterMission(self *types.Hero, teamSize int, success bool)
}

func noEffect() PowerEffect {
	return PowerEffect{TravelMultiplier: 1}
}

// SoloPower shortens travel when the hero is dispatched alone
type SoloPower struct {
	TravelMultiplier float64
}

func (SoloPower) Kind() types.PowerKind { return types.PowerSolo }

func (p SoloPower) Apply(ctx PowerContext) PowerEffect {
	effect := noEffect()
	if len(ctx.Team) == 1 {
		effect.TravelMultiplier = p.TravelMultiplier
	}
	return effect
}

// StreakPower grows combat and mobility with every success and resets on failure
type StreakPower struct{}

func (StreakPower) Kind() types.PowerKind { return types.PowerStreak }

func (StreakPower) Apply(PowerContext) PowerEffect { return noEffect() }

func (StreakPower) AfterMission(self *types.Hero, _ int, success bool) {
	if !success {
		self.StreakBonus = types.StatProfile{}
		return
	}
	self.StreakBonus.Combat++
	self.StreakBonus.Mobility++
}

// DuplicationPower adds half of each adjacent teammate's stats
type DuplicationPower struct{}

func (DuplicationPower) Kind() types.PowerKind { return types.PowerDuplication }

func (DuplicationPower) Apply(ctx PowerContext) PowerEffect {
	effect := noEffect()
	for _, i := range []int{ctx.Slot - 1, ctx.Slot + 1} {
		if i < 0 || i >= len(ctx.Team) {
			continue
		}
		effect.Stats = effect.Stats.Add(ctx.Team[i].Stats.Half())
	}
	return effect
}

// TransformPower swaps combat/intellect and vigor/charisma after every mission
type TransformPower struct{}

func (TransformPower) Kind() types.PowerKind { return types.PowerTransform }

func (TransformPower) Apply(PowerContext) PowerEffect { return noEffect() }

func (TransformPower) AfterMission(self *types.Hero, _ int, _ bool) {
	self.Stats = self.Stats.SwapTransform()
	self.Transformed = !self.Transformed
}

// SlotDependentPower reads its bonus from the holder's slot table
type SlotDependentPower struct{}

func (SlotDependentPower) Kind() types.PowerKind { return types.PowerSlotDependent }

func (SlotDependentPower) Apply(ctx PowerContext) PowerEffect {
	effect := noEffect()
	if ctx.Slot >= 0 && ctx.Slot < len(ctx.Self.SlotTable) {
		effect.Stats = ctx.Self.SlotTable[ctx.Slot]
	}
	return effect
}

// HealingPower stacks charisma and vigor on its holder whenever it works with a team
type HealingPower struct{}

func (HealingPower) Kind() types.PowerKind { return types.PowerHealing }

func (HealingPower) Apply(PowerContext) PowerEffect { return noEffect() }

// AfterMission applies regardless of outcome.
func (HealingPower) AfterMission(self *types.Hero, teamSize int, _ bool) {
	if teamSize <= 1 {
		return
	}
	self.HealingBonus.Charisma++
	self.HealingBonus.Vigor++
}

// ImmunityPower removes the injury branch for its holder
type ImmunityPower struct{}

func (ImmunityPower) Kind() types.PowerKind { return types.PowerImmunity }

func (ImmunityPower) Apply(PowerContext) PowerEffect {
	effect := noEffect()
	effect.ImmuneToInjury = true
	return effect
}

// PowerRegistry resolves a hero's power tag to its implementation
type PowerRegistry map[types.PowerKind]HeroPower

// NewPowerRegistry builds the registry with every known power
func NewPowerRegistry(cfg config.GameConfig) PowerRegistry {
	return PowerRegistry{
		types.PowerSolo:          SoloPower{TravelMultiplier: cfg.SoloTravelMultiplier},
		types.PowerStreak:        StreakPower{},
		types.PowerDuplication:   DuplicationPower{},
		types.PowerTransform:     TransformPower{},
		types.PowerSlotDependent: SlotDependentPower{},
		types.PowerHealing:       HealingPower{},
		types.PowerImmunity:      ImmunityPower{},
	}
}

// For returns the hero's power or nil
func (r PowerRegistry) For(hero *types.Hero) HeroPower {
	if hero == nil || hero.Power == types.PowerNone {
		return nil
	}
	return r[hero.Power]
}

// Effect evaluates the hero's power in the lineup, or a neutral effect
func (r PowerRegistry) Effect(team []*types.Hero, slot int) PowerEffect {
	power := r.For(team[slot])
	if power == nil {
		return noEffect()
	}
	effect := power.Apply(PowerContext{Team: team, Slot: slot, Self: team[slot]})
	if effect.TravelMultiplier <= 0 {
		effect.TravelMultiplier = 1
	}
	return effect
}

func knownPower(kind types.PowerKind) bool {
	switch kind {
	case types.PowerSolo, types.PowerStreak, types.PowerDuplication, types.PowerTransform,
		types.PowerSlotDependent, types.PowerHealing, types.PowerImmunity:
		return true
	}
	return false
}
