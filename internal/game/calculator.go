package game

import (
	"math"
	"strings"

	"github.com/user/hero-dispatch/config"
	"github.com/user/hero-dispatch/internal/types"
	"go.uber.org/zap"
)

// SuccessBreakdown is every factor that went into a success probability
type SuccessBreakdown struct {
	Probability    float64                `json:"probability"`
	StatComponent  float64                `json:"stat_component"`
	StatAverage    float64                `json:"stat_average"`
	StatRatios     map[types.Stat]float64 `json:"stat_ratios"`
	TeamStats      types.StatProfile      `json:"team_stats"`
	Coverage       float64                `json:"coverage"`
	Synergy        float64                `json:"synergy"`
	Sabotage       float64                `json:"sabotage"`
	FatiguePenalty float64                `json:"fatigue_penalty"`
	ClassBonus     float64                `json:"class_bonus"`
	FriendPairs    int                    `json:"friend_pairs"`
	EnemyPairs     int                    `json:"enemy_pairs"`

	// Per-dispatch power results, indexed like the team
	Effects []PowerEffect `json:"-"`
}

// View converts the breakdown into its public preview form
func (b SuccessBreakdown) View(mission *types.MissionSpec, heroIDs []string) types.SuccessPreview {
	return types.SuccessPreview{
		MissionID:      mission.ID,
		HeroIDs:        heroIDs,
		Probability:    b.Probability,
		StatAverage:    b.StatAverage,
		StatRatios:     b.StatRatios,
		TeamStats:      b.TeamStats,
		RequiredStats:  mission.RequiredStats,
		Coverage:       b.Coverage,
		Synergy:        b.Synergy,
		Sabotage:       b.Sabotage,
		FatiguePenalty: b.FatiguePenalty,
		ClassBonus:     b.ClassBonus,
	}
}

// RollResult is the stochastic part of a resolution
type RollResult struct {
	Success          bool    `json:"success"`
	Draw             float64 `json:"draw"`
	SabotageOccurred bool    `json:"sabotage_occurred"`
	Flipped          bool    `json:"flipped"`
}

// SuccessCalculator turns a team and a mission into a success probability
type SuccessCalculator struct {
	cfg      config.GameConfig
	dice     *DiceRoller
	powers   PowerRegistry
	coverage *CoverageEngine
	logger   *zap.Logger
}

// NewSuccessCalculator creates a success calculator
func NewSuccessCalculator(cfg config.GameConfig, dice *DiceRoller, powers PowerRegistry, coverage *CoverageEngine, logger *zap.Logger) *SuccessCalculator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SuccessCalculator{
		cfg:      cfg,
		dice:     dice,
		powers:   powers,
		coverage: coverage,
		logger:   logger,
	}
}

// TeamStats aggregates the lineup, including persisted bonuses, power deltas
// and adjacency duplication. Each member contributes no less than zero per stat.
func (c *SuccessCalculator) TeamStats(team []*types.Hero) (types.StatProfile, []PowerEffect) {
	members := make([]types.StatProfile, len(team))
	effects := make([]PowerEffect, len(team))

	for slot, hero := range team {
		effect := c.powers.Effect(team, slot)
		effects[slot] = effect
		members[slot] = hero.EffectiveStats().Add(effect.Stats).FloorAt(0)
	}

	return types.SumProfiles(members...), effects
}

// Compute draws synergy jitter and sabotage from the dice
func (c *SuccessCalculator) Compute(team []*types.Hero, mission *types.MissionSpec) SuccessBreakdown {
	return c.compute(team, mission, true)
}

// Preview uses expected relationship values and consumes no randomness
func (c *SuccessCalculator) Preview(team []*types.Hero, mission *types.MissionSpec) SuccessBreakdown {
	return c.compute(team, mission, false)
}

func (c *SuccessCalculator) compute(team []*types.Hero, mission *types.MissionSpec, draw bool) SuccessBreakdown {
	teamStats, effects := c.TeamStats(team)

	b := SuccessBreakdown{
		TeamStats:  teamStats,
		StatRatios: make(map[types.Stat]float64, len(types.AllStats)),
		Effects:    effects,
	}

	sum := 0.0
	for _, s := range types.AllStats {
		ratio := statRatio(teamStats.Get(s), mission.RequiredStats.Get(s))
		b.StatRatios[s] = ratio
		sum += ratio
	}
	b.StatAverage = sum / float64(len(types.AllStats))
	b.StatComponent = b.StatAverage

	if len(mission.CoverageZone) > 0 {
		b.Coverage = c.coverage.Compute(team, mission)
		w := c.cfg.CoverageWeight
		b.StatComponent = (1-w)*b.StatAverage + w*b.Coverage
	}

	for i := 0; i < len(team); i++ {
		for j := i + 1; j < len(team); j++ {
			a, o := team[i], team[j]
			switch {
			case a.IsFriend(o.ID) || o.IsFriend(a.ID):
				b.FriendPairs++
				jitter := 0.0
				if draw {
					jitter = c.dice.Uniform(-c.cfg.SynergyJitter, c.cfg.SynergyJitter)
				}
				b.Synergy += c.cfg.SynergyBonus + jitter
			case a.IsEnemy(o.ID) || o.IsEnemy(a.ID):
				b.EnemyPairs++
				if draw {
					b.Sabotage += c.dice.Uniform(c.cfg.SabotageMin, c.cfg.SabotageMax)
				} else {
					b.Sabotage += (c.cfg.SabotageMin + c.cfg.SabotageMax) / 2
				}
			}
		}
	}

	fatigue := 0
	for _, hero := range team {
		fatigue += hero.Fatigue
	}
	b.FatiguePenalty = c.cfg.FatigueCoefficient * float64(fatigue)

	if c.hasSupport(team) {
		b.ClassBonus = c.cfg.SupportBonus
	}

	raw := b.StatComponent + b.Synergy - b.Sabotage - b.FatiguePenalty + b.ClassBonus
	b.Probability = c.clamp(raw)

	return b
}

// Roll decides the outcome. The sabotage event is evaluated strictly after the
// primary draw and can only turn a success into a failure.
func (c *SuccessCalculator) Roll(b SuccessBreakdown, teamSize int) RollResult {
	draw := c.dice.Percent()
	result := RollResult{
		Draw:    draw,
		Success: draw < b.Probability,
	}

	return c.applySabotage(result, b, teamSize)
}

func (c *SuccessCalculator) applySabotage(result RollResult, b SuccessBreakdown, teamSize int) RollResult {
	if teamSize < 2 || b.EnemyPairs == 0 {
		return result
	}
	if !c.dice.Chance(c.cfg.SabotageEventChance) {
		return result
	}

	result.SabotageOccurred = true
	if result.Success && c.dice.Chance(c.cfg.SabotageFlipChance) {
		result.Success = false
		result.Flipped = true
	}
	return result
}

// Adjust shifts the probability by delta and re-applies the bounds
func (c *SuccessCalculator) Adjust(b *SuccessBreakdown, delta float64) {
	b.Probability = c.clamp(b.Probability + delta)
}

func (c *SuccessCalculator) hasSupport(team []*types.Hero) bool {
	for _, hero := range team {
		for _, archetype := range c.cfg.SupportArchetypes {
			if strings.EqualFold(hero.Archetype, archetype) {
				return true
			}
		}
	}
	return false
}

func (c *SuccessCalculator) clamp(p float64) float64 {
	if math.IsNaN(p) || math.IsInf(p, 0) {
		c.logger.Error("Success probability is not a finite number, using floor",
			zap.Float64("min_probability", c.cfg.MinProbability))
		return c.cfg.MinProbability
	}
	return math.Max(c.cfg.MinProbability, math.Min(100, p))
}

// statRatio is min(100, team/required × 100); nothing required counts as fully met
func statRatio(team, required int) float64 {
	if required <= 0 {
		return 100
	}
	return math.Min(100, float64(team)/float64(required)*100)
}
