package game

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/hero-dispatch/config"
	"github.com/user/hero-dispatch/internal/types"
)

func newTestCalculator(cfg config.GameConfig, rng RandomSource) *SuccessCalculator {
	return NewSuccessCalculator(cfg, NewDiceRoller(rng), NewPowerRegistry(cfg), NewCoverageEngine(cfg), nil)
}

func TestProbabilityStaysWithinBoundsForExtremeInputs(t *testing.T) {
	// Setup
	cfg := config.DefaultGameConfig()
	rng := rand.New(rand.NewSource(99))
	calc := newTestCalculator(cfg, rng)

	extremes := []int{0, 1, 15, 1000, math.MaxInt32, -math.MaxInt32}
	pick := func() int { return extremes[rng.Intn(len(extremes))] }
	profile := func() types.StatProfile {
		return types.StatProfile{Combat: pick(), Vigor: pick(), Mobility: pick(), Charisma: pick(), Intellect: pick()}
	}

	for i := 0; i < 500; i++ {
		a := testHero("a", profile())
		b := testHero("b", profile())
		a.Fatigue = rng.Intn(1000)
		if rng.Intn(2) == 0 {
			a.Enemies = []string{"b"}
		} else {
			a.Friends = []string{"b"}
		}
		team := []*types.Hero{a, b}[:1+rng.Intn(2)]

		mission := testMission("m", profile())
		if rng.Intn(2) == 0 {
			mission.CoverageZone = []int{0, 1, 2, 36}
		}

		for _, b := range []SuccessBreakdown{calc.Compute(team, mission), calc.Preview(team, mission)} {
			assert.GreaterOrEqual(t, b.Probability, cfg.MinProbability)
			assert.LessOrEqual(t, b.Probability, 100.0)
			assert.False(t, math.IsNaN(b.Probability))
		}
	}
}

func TestCoverageBlendsOnlyWhenZoneIsSet(t *testing.T) {
	// Setup
	cfg := config.DefaultGameConfig()
	calc := newTestCalculator(cfg, &fixedSource{f: 0.5})
	hero := testHero("h", types.StatProfile{Combat: 5})
	hero.CoverageShape = []int{0, 1}

	mission := testMission("m", types.StatProfile{Combat: 10})
	plain := calc.Preview([]*types.Hero{hero}, mission)
	assert.Equal(t, 90.0, plain.Probability)
	assert.Zero(t, plain.Coverage)

	mission.CoverageZone = []int{0, 1, 2, 3}
	blended := calc.Preview([]*types.Hero{hero}, mission)
	assert.Equal(t, 50.0, blended.Coverage)
	// 0.75 × 90 + 0.25 × 50
	assert.InDelta(t, 80.0, blended.Probability, 1e-9)
}

func TestFatigueAndSupportBonus(t *testing.T) {
	// Setup
	cfg := config.DefaultGameConfig()
	calc := newTestCalculator(cfg, &fixedSource{f: 0.5})
	mission := testMission("m", types.StatProfile{Combat: 10})

	tired := testHero("tired", types.StatProfile{Combat: 5})
	tired.Fatigue = 3
	b := calc.Preview([]*types.Hero{tired}, mission)
	assert.Equal(t, 6.0, b.FatiguePenalty)
	assert.Equal(t, 84.0, b.Probability)

	healer := testHero("healer", types.StatProfile{Combat: 5})
	healer.Archetype = "healer"
	b = calc.Preview([]*types.Hero{healer}, mission)
	assert.Equal(t, cfg.SupportBonus, b.ClassBonus)
	assert.Equal(t, 100.0, b.Probability)
}

func TestSynergyJitterStaysInRange(t *testing.T) {
	// Setup
	cfg := config.DefaultGameConfig()
	calc := newTestCalculator(cfg, rand.New(rand.NewSource(5)))
	a := testHero("a", types.StatProfile{})
	b := testHero("b", types.StatProfile{})
	a.Friends = []string{"b"}
	mission := testMission("m", types.StatProfile{Combat: 100})

	for i := 0; i < 200; i++ {
		br := calc.Compute([]*types.Hero{a, b}, mission)
		assert.GreaterOrEqual(t, br.Synergy, cfg.SynergyBonus-cfg.SynergyJitter)
		assert.Less(t, br.Synergy, cfg.SynergyBonus+cfg.SynergyJitter)
	}
}

func TestSabotageIsDrawnAndRelationshipIsSymmetric(t *testing.T) {
	// Setup
	cfg := config.DefaultGameConfig()
	calc := newTestCalculator(cfg, rand.New(rand.NewSource(11)))
	a := testHero("a", types.StatProfile{})
	b := testHero("b", types.StatProfile{})
	// declared on one side only
	b.Enemies = []string{"a"}
	mission := testMission("m", types.StatProfile{})

	for i := 0; i < 200; i++ {
		br := calc.Compute([]*types.Hero{a, b}, mission)
		require.Equal(t, 1, br.EnemyPairs)
		assert.GreaterOrEqual(t, br.Sabotage, cfg.SabotageMin)
		assert.Less(t, br.Sabotage, cfg.SabotageMax)
	}
}

func TestRollSabotageOnlyFlipsSuccess(t *testing.T) {
	// Setup
	cfg := config.DefaultGameConfig()
	breakdown := SuccessBreakdown{Probability: 100, EnemyPairs: 1}

	// draw 0 succeeds, event fires, flip fires
	calc := newTestCalculator(cfg, &fixedSource{f: 0})
	roll := calc.Roll(breakdown, 2)
	assert.True(t, roll.SabotageOccurred)
	assert.True(t, roll.Flipped)
	assert.False(t, roll.Success)

	// a solo team never triggers sabotage
	roll = calc.Roll(breakdown, 1)
	assert.False(t, roll.SabotageOccurred)
	assert.True(t, roll.Success)

	// a failed roll stays failed and is never flipped
	calc = newTestCalculator(cfg, &scriptedSource{floats: []float64{0.99, 0.0, 0.0}, fallback: 0.99})
	roll = calc.Roll(SuccessBreakdown{Probability: 50, EnemyPairs: 1}, 2)
	assert.False(t, roll.Success)
	assert.True(t, roll.SabotageOccurred)
	assert.False(t, roll.Flipped)
}

func TestDisruptionSwingsProbability(t *testing.T) {
	// Setup
	cfg := config.DefaultGameConfig()

	// first disruption, first choice: vigor 3
	calc := newTestCalculator(cfg, &fixedSource{f: 0})
	b := SuccessBreakdown{Probability: 50, TeamStats: types.StatProfile{Vigor: 3}}
	result := calc.Disrupt(&b)
	require.NotNil(t, result)
	assert.Equal(t, "Structural Collapse", result.Name)
	assert.True(t, result.Passed)
	assert.Equal(t, 60.0, b.Probability)

	b = SuccessBreakdown{Probability: 8, TeamStats: types.StatProfile{}}
	result = calc.Disrupt(&b)
	require.NotNil(t, result)
	assert.False(t, result.Passed)
	assert.Equal(t, cfg.MinProbability, b.Probability)

	calm := newTestCalculator(cfg, &fixedSource{f: 0.99})
	assert.Nil(t, calm.Disrupt(&b))
}

func TestTeamStatsIncludesPowersAndFloorsMembers(t *testing.T) {
	// Setup
	cfg := config.DefaultGameConfig()
	calc := newTestCalculator(cfg, &fixedSource{f: 0.5})

	golem := testHero("golem", types.StatProfile{Combat: 3, Vigor: 0})
	golem.Power = types.PowerSlotDependent
	golem.SlotTable = []types.StatProfile{{Combat: 2, Vigor: -1}}

	streaker := testHero("streak", types.StatProfile{Combat: 1})
	streaker.StreakBonus = types.StatProfile{Combat: 2, Mobility: 2}

	stats, effects := calc.TeamStats([]*types.Hero{golem, streaker})
	require.Len(t, effects, 2)
	// golem vigor would be -1 and is floored at zero
	assert.Equal(t, types.StatProfile{Combat: 8, Mobility: 2}, stats)
}

func TestStatRatio(t *testing.T) {
	assert.Equal(t, 100.0, statRatio(0, 0))
	assert.Equal(t, 100.0, statRatio(5, -1))
	assert.Equal(t, 50.0, statRatio(5, 10))
	assert.Equal(t, 100.0, statRatio(50, 10))
	assert.Equal(t, 0.0, statRatio(0, 10))
}
