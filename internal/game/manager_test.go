package game

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/hero-dispatch/config"
	"github.com/user/hero-dispatch/internal/types"
)

var testNow = time.Date(2025, time.March, 14, 9, 0, 0, 0, time.UTC)

// fixedSource always returns the same float and the same bounded int
type fixedSource struct {
	f float64
	i int
}

func (s *fixedSource) Intn(n int) int {
	if s.i >= n {
		return n - 1
	}
	return s.i
}

func (s *fixedSource) Float64() float64 { return s.f }

// scriptedSource plays back floats in order, then falls back to a constant
type scriptedSource struct {
	floats   []float64
	fallback float64
}

func (s *scriptedSource) Intn(int) int { return 0 }

func (s *scriptedSource) Float64() float64 {
	if len(s.floats) == 0 {
		return s.fallback
	}
	f := s.floats[0]
	s.floats = s.floats[1:]
	return f
}

// recordingSink keeps every published event
type recordingSink struct {
	events []types.GameEvent
}

func (r *recordingSink) Publish(event types.GameEvent) {
	r.events = append(r.events, event)
}

func (r *recordingSink) kinds() []types.EventKind {
	kinds := make([]types.EventKind, 0, len(r.events))
	for _, e := range r.events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

func testConfig() config.Config {
	cfg := config.DefaultConfig()
	cfg.Storage.SnapshotPath = ""
	return cfg
}

func testHero(id string, stats types.StatProfile) *types.Hero {
	return &types.Hero{
		ID:        id,
		Name:      id,
		Archetype: "Brawler",
		Stats:     stats,
		Level:     1,
		XPToNext:  100,
		Status:    types.HeroAvailable,
	}
}

func testMission(id string, required types.StatProfile) *types.MissionSpec {
	return &types.MissionSpec{
		ID:             id,
		Title:          "Test Mission",
		Type:           types.MissionCombat,
		Difficulty:     types.DifficultyEasy,
		RequiredStats:  required,
		SlotCount:      1,
		Reward:         types.Reward{Credits: 100, Reputation: 10},
		SpawnTime:      testNow,
		ExpirationTime: testNow.Add(time.Minute),
		Status:         types.MissionAvailable,
	}
}

// newTestManager builds a manager frozen at *now with the given heroes and missions
func newTestManager(cfg config.Config, rng RandomSource, now *time.Time, heroes []*types.Hero, missions ...*types.MissionSpec) *GameManager {
	gm := NewGameManager(cfg,
		WithRandomSource(rng),
		WithClock(func() time.Time { return *now }))
	gm.LoadRoster(heroes)
	gm.state.AvailableMissions = append(gm.state.AvailableMissions, missions...)
	return gm
}

func TestDispatchSoloProbabilityIsStatComponent(t *testing.T) {
	// Setup
	now := testNow
	hero := testHero("solo", types.StatProfile{Combat: 5})
	mission := testMission("m1", types.StatProfile{Combat: 10})
	gm := newTestManager(testConfig(), &fixedSource{f: 0.99}, &now, []*types.Hero{hero}, mission)

	// Combat ratio 50, the other four stats require nothing and count as 100
	preview, err := gm.ComputeSuccessPreview([]string{"solo"}, "m1")
	require.NoError(t, err)
	assert.Equal(t, 90.0, preview.Probability)
	assert.Equal(t, 50.0, preview.StatRatios[types.StatCombat])
	assert.Zero(t, preview.Coverage)
	assert.Zero(t, preview.Synergy)
	assert.Zero(t, preview.Sabotage)

	result := gm.Dispatch("m1", []string{"solo"})
	require.True(t, result.Accepted)
	assert.Equal(t, 90.0, result.Probability)
}

func TestFriendsRaiseProbability(t *testing.T) {
	// Setup
	required := types.StatProfile{Combat: 20, Vigor: 20, Mobility: 20, Charisma: 20, Intellect: 20}
	stats := types.StatProfile{Combat: 2, Vigor: 2, Mobility: 2, Charisma: 2, Intellect: 2}

	strangers := []*types.Hero{testHero("a", stats), testHero("b", stats)}
	friendA, friendB := testHero("a", stats), testHero("b", stats)
	friendA.Friends = []string{"b"}
	friendB.Friends = []string{"a"}
	friends := []*types.Hero{friendA, friendB}

	mission := testMission("m1", required)
	cfg := testConfig().Game
	coverage := NewCoverageEngine(cfg)
	powers := NewPowerRegistry(cfg)

	// Same seed for both runs
	plain := NewSuccessCalculator(cfg, NewSeededDiceRoller(42), powers, coverage, nil).Compute(strangers, mission)
	bonded := NewSuccessCalculator(cfg, NewSeededDiceRoller(42), powers, coverage, nil).Compute(friends, mission)

	assert.Equal(t, 20.0, plain.Probability)
	assert.Greater(t, bonded.Probability, plain.Probability)
	assert.Equal(t, 1, bonded.FriendPairs)
	assert.InDelta(t, cfg.SynergyBonus, bonded.Synergy, cfg.SynergyJitter)
}

func TestExpiredMissionIsRemovedOnTick(t *testing.T) {
	// Setup
	now := testNow
	mission := testMission("stale", types.StatProfile{})
	mission.ExpirationTime = now.Add(-time.Second)
	sink := &recordingSink{}
	gm := newTestManager(testConfig(), &fixedSource{f: 0.99}, &now, nil, mission)
	gm.AddEventSink(sink)

	gm.Tick(now)

	assert.Empty(t, gm.ListAvailableMissions())
	summary := gm.Summary()
	assert.Equal(t, 1, summary.Missed)
	assert.Equal(t, 1, summary.TotalMissed)
	assert.Contains(t, sink.kinds(), types.EventMissionExpired)

	stored, err := gm.GetMission("stale")
	require.NoError(t, err)
	assert.Equal(t, types.MissionExpired, stored.Status)
}

func TestDispatchRejectsRestingHeroNeedingReview(t *testing.T) {
	// Setup
	now := testNow
	hero := testHero("tired", types.StatProfile{Combat: 5})
	hero.Status = types.HeroResting
	hero.NeedsReview = true
	hero.LastMissionResult = &types.MissionResult{MissionID: "old", Success: true}
	mission := testMission("m1", types.StatProfile{Combat: 5})
	gm := newTestManager(testConfig(), &fixedSource{f: 0.5}, &now, []*types.Hero{hero}, mission)

	beforeHero, _ := gm.GetHero("tired")
	beforeMissions := gm.ListAvailableMissions()
	beforeSummary := gm.Summary()

	result := gm.Dispatch("m1", []string{"tired"})

	assert.False(t, result.Accepted)
	assert.ErrorIs(t, result.Rejection, ErrHeroNeedsReview)
	assert.NotEmpty(t, result.Reason)

	afterHero, _ := gm.GetHero("tired")
	assert.Equal(t, beforeHero, afterHero)
	assert.Equal(t, beforeMissions, gm.ListAvailableMissions())
	assert.Equal(t, beforeSummary, gm.Summary())
}

func TestDispatchIsAtomicWhenOneHeroIsBusy(t *testing.T) {
	// Setup
	now := testNow
	ready := testHero("ready", types.StatProfile{Combat: 3})
	busy := testHero("busy", types.StatProfile{Combat: 3})
	busy.Status = types.HeroBusy
	busy.CooldownEnd = now.Add(time.Minute)
	mission := testMission("m1", types.StatProfile{Combat: 5})
	mission.SlotCount = 2
	gm := newTestManager(testConfig(), &fixedSource{f: 0.5}, &now, []*types.Hero{ready, busy}, mission)

	result := gm.Dispatch("m1", []string{"ready", "busy"})

	assert.False(t, result.Accepted)
	assert.ErrorIs(t, result.Rejection, ErrHeroNotAvailable)

	stored, err := gm.GetHero("ready")
	require.NoError(t, err)
	assert.Equal(t, types.HeroAvailable, stored.Status)
	assert.Empty(t, stored.CurrentMissionID)
	assert.Zero(t, stored.XP)
	require.Len(t, gm.ListAvailableMissions(), 1)
	assert.Equal(t, types.MissionAvailable, gm.ListAvailableMissions()[0].Status)
	assert.Empty(t, gm.ListActiveMissions())
}

func TestDispatchRejections(t *testing.T) {
	heroes := func() []*types.Hero {
		list := make([]*types.Hero, 0, 9)
		for _, id := range []string{"h1", "h2", "h3", "h4", "h5", "h6", "h7", "h8", "h9"} {
			list = append(list, testHero(id, types.StatProfile{Combat: 1}))
		}
		return list
	}

	tests := []struct {
		name      string
		mutate    func(cfg *config.Config)
		missionID string
		heroIDs   []string
		want      error
	}{
		{"unknown mission", nil, "missing", []string{"h1"}, ErrMissionNotFound},
		{"empty team", nil, "m1", nil, ErrTeamSize},
		{"team too large", nil, "m1", []string{"h1", "h2", "h3", "h4", "h5", "h6", "h7", "h8", "h9"}, ErrTeamSize},
		{"duplicate hero", nil, "m1", []string{"h1", "h1"}, ErrDuplicateHero},
		{"unknown hero", nil, "m1", []string{"nobody"}, ErrHeroNotFound},
		{
			"exact slots required",
			func(cfg *config.Config) { cfg.Game.RequireExactSlots = true },
			"m1", []string{"h1", "h2"}, ErrTeamSize,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Setup
			now := testNow
			cfg := testConfig()
			if tt.mutate != nil {
				tt.mutate(&cfg)
			}
			gm := newTestManager(cfg, &fixedSource{f: 0.5}, &now, heroes(), testMission("m1", types.StatProfile{}))

			result := gm.Dispatch(tt.missionID, tt.heroIDs)

			assert.False(t, result.Accepted)
			assert.ErrorIs(t, result.Rejection, tt.want)
			assert.Len(t, gm.ListAvailableMissions(), 1)
		})
	}
}

func TestDispatchRejectsMissionAlreadyInTheField(t *testing.T) {
	// Setup
	now := testNow
	heroes := []*types.Hero{testHero("a", types.StatProfile{Combat: 5}), testHero("b", types.StatProfile{Combat: 5})}
	gm := newTestManager(testConfig(), &fixedSource{f: 0.99}, &now, heroes, testMission("m1", types.StatProfile{Combat: 5}))

	first := gm.Dispatch("m1", []string{"a"})
	require.True(t, first.Accepted)

	second := gm.Dispatch("m1", []string{"b"})
	assert.False(t, second.Accepted)
	assert.ErrorIs(t, second.Rejection, ErrMissionUnavailable)
}

func TestDispatchSuccessAppliesRewardsAndXP(t *testing.T) {
	// Setup
	now := testNow
	cfg := testConfig()
	hero := testHero("solo", types.StatProfile{Combat: 5})
	mission := testMission("m1", types.StatProfile{Combat: 5})
	sink := &recordingSink{}
	gm := newTestManager(cfg, &fixedSource{f: 0.99}, &now, []*types.Hero{hero}, mission)
	gm.AddEventSink(sink)

	result := gm.Dispatch("m1", []string{"solo"})

	require.True(t, result.Accepted)
	assert.True(t, result.Success)
	assert.Equal(t, 100.0, result.Probability)
	// Base, no spread, solo bonus, Easy adds nothing, no risk bonus at 100%
	assert.Equal(t, cfg.Game.XPBase+cfg.Game.XPSoloBonus, result.XPAwarded)
	assert.Nil(t, result.Disruption)

	summary := gm.Summary()
	assert.Equal(t, cfg.Game.StartingCredits+100, summary.Credits)
	assert.Equal(t, cfg.Game.StartingReputation+10, summary.Reputation)
	assert.Equal(t, 1, summary.Completed)
	assert.Equal(t, 1, summary.ActiveMissions)
	assert.Zero(t, summary.AvailableMissions)

	stored, err := gm.GetHero("solo")
	require.NoError(t, err)
	assert.Equal(t, types.HeroBusy, stored.Status)
	assert.Equal(t, "m1", stored.CurrentMissionID)
	assert.Equal(t, result.XPAwarded, stored.XP)
	assert.Equal(t, 1, stored.MissionsCompleted)
	require.NotNil(t, stored.LastMissionResult)
	assert.True(t, stored.LastMissionResult.Success)
	assert.False(t, stored.NeedsReview)

	assert.Equal(t, []types.EventKind{types.EventMissionDispatched}, sink.kinds())
}

func TestDispatchFailureAppliesPenaltyFatigueAndInjury(t *testing.T) {
	// Setup
	now := testNow
	cfg := testConfig()
	cfg.Game.StartingReputation = 20
	hero := testHero("weak", types.StatProfile{Combat: 1})
	mission := testMission("m1", types.StatProfile{Combat: 10})
	// no disruption, failed roll, duration draw, injured, not downed
	rng := &scriptedSource{floats: []float64{0.99, 0.99, 0.5, 0.1, 0.5}, fallback: 0.99}
	gm := newTestManager(cfg, rng, &now, []*types.Hero{hero}, mission)

	result := gm.Dispatch("m1", []string{"weak"})

	require.True(t, result.Accepted)
	assert.False(t, result.Success)
	assert.Zero(t, result.XPAwarded)
	assert.Equal(t, types.HeroInjured, result.Injuries["weak"])

	summary := gm.Summary()
	assert.Equal(t, 15, summary.Reputation)
	assert.Equal(t, 1, summary.Failed)

	stored, _ := gm.GetHero("weak")
	assert.Equal(t, 1, stored.Fatigue)
	assert.Equal(t, 1, stored.MissionsFailed)
	assert.True(t, stored.LastMissionFailed)
	assert.Equal(t, types.HeroInjured, stored.PendingInjury)
	assert.Zero(t, stored.XP)
}

func TestDispatchFailureSparesImmuneHero(t *testing.T) {
	// Setup
	now := testNow
	hero := testHero("tough", types.StatProfile{Combat: 1})
	hero.Power = types.PowerImmunity
	mission := testMission("m1", types.StatProfile{Combat: 10})
	rng := &scriptedSource{floats: []float64{0.99, 0.99, 0.5, 0.0, 0.0}, fallback: 0.99}
	gm := newTestManager(testConfig(), rng, &now, []*types.Hero{hero}, mission)

	result := gm.Dispatch("m1", []string{"tough"})

	require.True(t, result.Accepted)
	assert.False(t, result.Success)
	assert.Empty(t, result.Injuries)
	stored, _ := gm.GetHero("tough")
	assert.Empty(t, stored.PendingInjury)
}

func TestReputationPenaltyNeverGoesNegative(t *testing.T) {
	// Setup
	now := testNow
	cfg := testConfig()
	cfg.Game.StartingReputation = 2
	mission := testMission("m1", types.StatProfile{Combat: 10})
	mission.Reward.Reputation = 40
	gm := newTestManager(cfg, &fixedSource{f: 0.99}, &now, []*types.Hero{testHero("weak", types.StatProfile{})}, mission)

	result := gm.Dispatch("m1", []string{"weak"})

	require.True(t, result.Accepted)
	require.False(t, result.Success)
	assert.Zero(t, gm.Summary().Reputation)
}

func TestHeroLifecycleThroughTicksAndReview(t *testing.T) {
	// Setup
	now := testNow
	hero := testHero("solo", types.StatProfile{Combat: 5})
	gm := newTestManager(testConfig(), &fixedSource{f: 0.99}, &now, []*types.Hero{hero}, testMission("m1", types.StatProfile{Combat: 5}))

	require.True(t, gm.Dispatch("m1", []string{"solo"}).Accepted)

	status := func() types.HeroStatus {
		h, err := gm.GetHero("solo")
		require.NoError(t, err)
		return h.Status
	}

	// Mission durations top out at 60s
	gm.Tick(now.Add(61 * time.Second))
	assert.Equal(t, types.HeroReturning, status())
	assert.Equal(t, 1, len(gm.state.ResolvedMissions))
	assert.Equal(t, types.MissionCompleted, gm.state.ResolvedMissions[0].Status)

	gm.Tick(now.Add(82 * time.Second))
	assert.Equal(t, types.HeroResting, status())

	// The review gate holds no matter how long the hero rests
	for _, later := range []time.Duration{time.Hour, 24 * time.Hour, 30 * 24 * time.Hour} {
		gm.Tick(now.Add(later))
		assert.Equal(t, types.HeroResting, status())
	}

	_, err := gm.ReviewMissionResult("solo")
	require.NoError(t, err)
	_, err = gm.ReviewMissionResult("solo")
	assert.ErrorIs(t, err, ErrNoPendingReview)

	gm.Tick(now.Add(31 * 24 * time.Hour))
	assert.Equal(t, types.HeroAvailable, status())
}

func TestShiftEndsAtThresholdAndNextShiftStarts(t *testing.T) {
	// Setup
	now := testNow
	cfg := testConfig()
	cfg.Game.ShiftThreshold = 1
	cfg.Game.ShiftsPerDay = 1
	hero := testHero("solo", types.StatProfile{Combat: 5})
	gm := newTestManager(cfg, &fixedSource{f: 0.99}, &now, []*types.Hero{hero},
		testMission("m1", types.StatProfile{Combat: 5}),
		testMission("m2", types.StatProfile{Combat: 5}))
	gm.state.ShiftActive = true

	result := gm.Dispatch("m1", []string{"solo"})

	require.True(t, result.Accepted)
	assert.True(t, result.ShiftEnded)

	history := gm.ShiftHistory()
	require.Len(t, history, 1)
	assert.Equal(t, 100.0, history[0].SuccessRate)
	assert.True(t, history[0].Promoted)
	assert.Equal(t, "Master Dispatcher", history[0].RankTitle)

	summary := gm.Summary()
	assert.False(t, summary.ShiftActive)
	assert.Zero(t, summary.AvailableMissions)
	assert.Zero(t, summary.Completed)
	assert.Equal(t, 1, summary.TotalCompleted)

	gm.Tick(now.Add(cfg.Game.ShiftBreakValue()))

	summary = gm.Summary()
	assert.True(t, summary.ShiftActive)
	assert.Equal(t, 2, summary.Day)
	assert.Equal(t, 1, summary.Shift)
	assert.Equal(t, 2, summary.Episode)
	assert.Equal(t, cfg.Game.ShiftMissionsMin, summary.AvailableMissions)
}

func TestDispatcherRankNeverDrops(t *testing.T) {
	// Setup
	now := testNow
	gm := newTestManager(testConfig(), &fixedSource{f: 0.99}, &now, nil)
	gm.state.Completed = 9
	gm.state.Failed = 1
	gm.endShiftLocked(now)
	require.Equal(t, "Master Dispatcher", gm.Summary().RankTitle)

	gm.state.Failed = 5
	gm.endShiftLocked(now)

	history := gm.ShiftHistory()
	require.Len(t, history, 2)
	assert.Zero(t, history[1].SuccessRate)
	assert.False(t, history[1].Promoted)
	assert.Equal(t, "Master Dispatcher", gm.Summary().RankTitle)
}

func TestMissedCallsDoNotLowerShiftSuccessRate(t *testing.T) {
	// Setup
	now := testNow
	gm := newTestManager(testConfig(), &fixedSource{f: 0.99}, &now, nil)
	gm.state.Completed = 6
	gm.state.Failed = 4
	gm.state.Missed = 3

	gm.endShiftLocked(now)

	history := gm.ShiftHistory()
	require.Len(t, history, 1)
	assert.Equal(t, 60.0, history[0].SuccessRate)
	assert.Equal(t, 3, history[0].Missed)
	assert.True(t, history[0].Promoted)
	assert.Equal(t, "Dispatcher", gm.Summary().RankTitle)
}

func TestShiftWithOnlyMissedCallsScoresZero(t *testing.T) {
	// Setup
	now := testNow
	gm := newTestManager(testConfig(), &fixedSource{f: 0.99}, &now, nil)
	gm.state.Missed = 4

	gm.endShiftLocked(now)

	history := gm.ShiftHistory()
	require.Len(t, history, 1)
	assert.Zero(t, history[0].SuccessRate)
	assert.Equal(t, 4, history[0].Missed)
}

func TestStartSessionSpawnsInitialMissions(t *testing.T) {
	// Setup
	now := testNow
	cfg := testConfig()
	sink := &recordingSink{}
	gm := newTestManager(cfg, rand.New(rand.NewSource(7)), &now, nil)
	gm.AddEventSink(sink)

	gm.StartSession(now)

	missions := gm.ListAvailableMissions()
	assert.GreaterOrEqual(t, len(missions), cfg.Game.InitialMissionsMin)
	assert.LessOrEqual(t, len(missions), cfg.Game.InitialMissionsMax)
	for _, m := range missions {
		assert.Equal(t, types.MissionAvailable, m.Status)
		assert.True(t, m.ExpirationTime.After(now))
	}
	assert.Contains(t, sink.kinds(), types.EventShiftStarted)

	// A second start keeps the running shift
	gm.StartSession(now)
	assert.Len(t, gm.ListAvailableMissions(), len(missions))
}

func TestSpawnerRespectsOpenMissionCap(t *testing.T) {
	// Setup
	now := testNow
	cfg := testConfig()
	cfg.Game.MaxAvailableMissions = 3
	cfg.Game.SpawnChance = 1
	gm := newTestManager(cfg, rand.New(rand.NewSource(3)), &now, nil)
	gm.StartSession(now)

	for i := 1; i <= 20; i++ {
		now = now.Add(cfg.Game.SpawnIntervalValue())
		// keep the missions alive
		for _, m := range gm.state.AvailableMissions {
			m.ExpirationTime = now.Add(time.Hour)
		}
		gm.Tick(now)
		assert.LessOrEqual(t, len(gm.ListAvailableMissions()), 3)
	}
	assert.Len(t, gm.ListAvailableMissions(), 3)
}

func TestPauseAndResumeThroughManager(t *testing.T) {
	// Setup
	now := testNow
	mission := testMission("m1", types.StatProfile{})
	gm := newTestManager(testConfig(), &fixedSource{f: 0.5}, &now, nil, mission)

	before, err := gm.MissionRemaining("m1")
	require.NoError(t, err)

	require.NoError(t, gm.PauseMission("m1"))
	require.NoError(t, gm.PauseMission("m1"))

	now = now.Add(5 * time.Minute)
	gm.Tick(now)
	assert.Len(t, gm.ListAvailableMissions(), 1, "paused missions do not expire")

	require.NoError(t, gm.ResumeMission("m1"))
	require.NoError(t, gm.ResumeMission("m1"))

	after, err := gm.MissionRemaining("m1")
	require.NoError(t, err)
	assert.Equal(t, before, after)

	assert.ErrorIs(t, gm.PauseMission("missing"), ErrMissionNotFound)
}

func TestAllocateStatThroughManager(t *testing.T) {
	// Setup
	now := testNow
	hero := testHero("h", types.StatProfile{Combat: 14})
	hero.SkillPoints = 3
	gm := newTestManager(testConfig(), &fixedSource{f: 0.5}, &now, []*types.Hero{hero})

	updated, err := gm.AllocateStat("h", "combat", 3)
	require.NoError(t, err)
	assert.Equal(t, 15, updated.Stats.Combat)
	assert.Equal(t, 2, updated.SkillPoints)

	_, err = gm.AllocateStat("h", "luck", 1)
	assert.ErrorIs(t, err, ErrUnknownStat)

	_, err = gm.AllocateStat("nobody", "combat", 1)
	assert.ErrorIs(t, err, ErrHeroNotFound)
}

func TestPreviewConsumesNoRandomness(t *testing.T) {
	// Setup
	now := testNow
	a := testHero("a", types.StatProfile{Combat: 3})
	b := testHero("b", types.StatProfile{Combat: 3})
	a.Enemies = []string{"b"}
	b.Enemies = []string{"a"}
	rng := &scriptedSource{floats: []float64{0.42}, fallback: 0.99}
	gm := newTestManager(testConfig(), rng, &now, []*types.Hero{a, b}, testMission("m1", types.StatProfile{Combat: 10}))

	first, err := gm.ComputeSuccessPreview([]string{"a", "b"}, "m1")
	require.NoError(t, err)
	second, err := gm.ComputeSuccessPreview([]string{"a", "b"}, "m1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 25.0, first.Sabotage)
	assert.Len(t, rng.floats, 1, "preview must not draw")
}

func TestLoadRosterKeepsExistingHeroes(t *testing.T) {
	// Setup
	now := testNow
	original := testHero("h", types.StatProfile{Combat: 1})
	gm := newTestManager(testConfig(), &fixedSource{f: 0.5}, &now, []*types.Hero{original})

	added := gm.LoadRoster([]*types.Hero{testHero("h", types.StatProfile{Combat: 9}), testHero("new", types.StatProfile{})})

	assert.Equal(t, 1, added)
	heroes := gm.ListHeroes()
	require.Len(t, heroes, 2)
	assert.Equal(t, "h", heroes[0].ID)
	assert.Equal(t, 1, heroes[0].Stats.Combat)
	assert.Equal(t, "new", heroes[1].ID)
}

func TestTeamQueriesRejectDuplicateHeroes(t *testing.T) {
	// Setup
	now := testNow
	hero := testHero("a", types.StatProfile{Combat: 5})
	mission := testMission("m1", types.StatProfile{Combat: 10, Vigor: 1, Mobility: 1, Charisma: 1, Intellect: 1})
	gm := newTestManager(testConfig(), &fixedSource{f: 0.99}, &now, []*types.Hero{hero}, mission)
	lineup := []string{"a", "a"}

	_, err := gm.ComputeSuccessPreview(lineup, "m1")
	assert.ErrorIs(t, err, ErrDuplicateHero)

	_, err = gm.GetTeamStats(lineup)
	assert.ErrorIs(t, err, ErrDuplicateHero)

	_, err = gm.ComputeCoverage(lineup, "m1")
	assert.ErrorIs(t, err, ErrDuplicateHero)

	result := gm.Dispatch("m1", lineup)
	assert.False(t, result.Accepted)
	assert.ErrorIs(t, result.Rejection, ErrDuplicateHero)

	single, err := gm.ComputeSuccessPreview([]string{"a"}, "m1")
	require.NoError(t, err)
	assert.Equal(t, 50.0, single.StatRatios[types.StatCombat])
}

// hardRequirements keeps a one-stat hero at the probability floor
var hardRequirements = types.StatProfile{Combat: 20, Vigor: 20, Mobility: 20, Charisma: 20, Intellect: 20}

func TestWheelDispatchSucceedsOnRequiredCoveredSlice(t *testing.T) {
	// Setup
	now := testNow
	cfg := testConfig()
	cfg.Game.DispatchMode = dispatchModeWheel
	hero := testHero("solo", types.StatProfile{Combat: 1})
	hero.CoverageShape = []int{5}
	mission := testMission("m1", hardRequirements)
	mission.CoverageZone = []int{5}
	gm := newTestManager(cfg, &fixedSource{i: 5, f: 0.99}, &now, []*types.Hero{hero}, mission)

	result := gm.Dispatch("m1", []string{"solo"})

	// a 0.99 draw would fail the stat roll, the wheel decides instead
	require.True(t, result.Accepted)
	require.NotNil(t, result.WheelSlice)
	assert.Equal(t, 5, *result.WheelSlice)
	assert.True(t, result.Success)
	assert.False(t, result.SabotageOccurred)
	assert.Less(t, result.Probability, 50.0)
}

func TestWheelDispatchStillFacesSabotage(t *testing.T) {
	// Setup
	now := testNow
	cfg := testConfig()
	cfg.Game.DispatchMode = dispatchModeWheel
	a := testHero("a", types.StatProfile{Combat: 1})
	b := testHero("b", types.StatProfile{Combat: 1})
	a.CoverageShape = []int{5}
	b.CoverageShape = []int{5}
	a.Enemies = []string{"b"}
	b.Enemies = []string{"a"}
	mission := testMission("m1", hardRequirements)
	mission.CoverageZone = []int{5}
	gm := newTestManager(cfg, &fixedSource{i: 5, f: 0}, &now, []*types.Hero{a, b}, mission)

	result := gm.Dispatch("m1", []string{"a", "b"})

	// the spin auto-succeeds, then the sabotage event fires and flips it
	require.True(t, result.Accepted)
	require.NotNil(t, result.WheelSlice)
	assert.Equal(t, 5, *result.WheelSlice)
	assert.True(t, result.SabotageOccurred)
	assert.False(t, result.Success)
}

func TestRollDispatchHasNoWheelSlice(t *testing.T) {
	// Setup
	now := testNow
	hero := testHero("solo", types.StatProfile{Combat: 1})
	hero.CoverageShape = []int{5}
	mission := testMission("m1", hardRequirements)
	mission.CoverageZone = []int{5}
	gm := newTestManager(testConfig(), &fixedSource{i: 5, f: 0.99}, &now, []*types.Hero{hero}, mission)

	result := gm.Dispatch("m1", []string{"solo"})

	require.True(t, result.Accepted)
	assert.Nil(t, result.WheelSlice)
	assert.False(t, result.Success)
}
