package game

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/user/hero-dispatch/config"
	"github.com/user/hero-dispatch/internal/interfaces"
	"github.com/user/hero-dispatch/internal/types"
	"go.uber.org/zap"
)

var (
	ErrMissionNotFound    = errors.New("mission not found")
	ErrMissionUnavailable = errors.New("mission is not available for dispatch")
	ErrHeroNotFound       = errors.New("hero not found")
	ErrHeroNotAvailable   = errors.New("hero is not available")
	ErrHeroNeedsReview    = errors.New("hero has a mission result awaiting review")
	ErrTeamSize           = errors.New("invalid team size")
	ErrDuplicateHero      = errors.New("hero selected more than once")
	ErrNoStorage          = errors.New("snapshot storage is not configured")
)

const dispatchModeWheel = "wheel"

// dispatcherRanks are ordered by the shift success rate they require
var dispatcherRanks = []struct {
	Title   string
	MinRate float64
}{
	{"Basic Dispatcher", 0},
	{"Junior Dispatcher", 50},
	{"Dispatcher", 60},
	{"Senior Dispatcher", 70},
	{"Lead Dispatcher", 80},
	{"Master Dispatcher", 90},
}

// Option customizes a GameManager at construction
type Option func(*GameManager)

// WithRandomSource replaces the seeded random source
func WithRandomSource(rng RandomSource) Option {
	return func(gm *GameManager) {
		gm.rng = rng
	}
}

// WithClock replaces time.Now for commands that need the current time
func WithClock(clock func() time.Time) Option {
	return func(gm *GameManager) {
		gm.clock = clock
	}
}

// WithStorage replaces the snapshot storage built from the config
func WithStorage(storage *GameStateStorage) Option {
	return func(gm *GameManager) {
		gm.storage = storage
	}
}

// GameManager owns the game state and is the only way to mutate it
type GameManager struct {
	state     *types.GameState
	stateLock sync.RWMutex
	storage   *GameStateStorage
	config    config.Config
	Logger    *zap.Logger

	rng        RandomSource
	dice       *DiceRoller
	generator  *MissionGenerator
	coverage   *CoverageEngine
	calculator *SuccessCalculator
	lifecycle  *Lifecycle
	timers     Timers
	powers     PowerRegistry
	clock      func() time.Time

	// Events produced under the state lock, published after it is released
	outbox   []types.GameEvent
	sinks    []interfaces.EventSink
	sinkLock sync.RWMutex
}

// Ensure GameManager satisfies the interfaces.DispatchService interface
var _ interfaces.DispatchService = (*GameManager)(nil)

// NewGameManager creates a new game manager with an empty state
func NewGameManager(cfg config.Config, opts ...Option) *GameManager {
	gm := &GameManager{
		config: cfg,
		Logger: zap.NewNop(), // Will be set by the server
		clock:  time.Now,
	}
	if cfg.Storage.SnapshotPath != "" {
		gm.storage = NewGameStateStorage(cfg.Storage.SnapshotPath)
	}

	for _, opt := range opts {
		opt(gm)
	}

	switch {
	case gm.rng != nil:
		gm.dice = NewDiceRoller(gm.rng)
	case cfg.Game.Seed != 0:
		gm.dice = NewSeededDiceRoller(cfg.Game.Seed)
	default:
		gm.dice = NewDiceRoller(nil)
	}

	gm.powers = NewPowerRegistry(cfg.Game)
	gm.coverage = NewCoverageEngine(cfg.Game)
	gm.generator = NewMissionGenerator(cfg.Game, gm.dice)
	gm.calculator = NewSuccessCalculator(cfg.Game, gm.dice, gm.powers, gm.coverage, gm.Logger)
	gm.lifecycle = NewLifecycle(cfg.Game, gm.dice)
	gm.state = gm.freshState()

	return gm
}

func (gm *GameManager) freshState() *types.GameState {
	state := types.NewGameState()
	state.Credits = gm.config.Game.StartingCredits
	state.Reputation = gm.config.Game.StartingReputation
	state.DispatcherRank = 1
	state.RankTitle = dispatcherRanks[0].Title
	return state
}

// SetLogger replaces the logger of the manager and its components
func (gm *GameManager) SetLogger(logger *zap.Logger) {
	gm.stateLock.Lock()
	defer gm.stateLock.Unlock()

	gm.Logger = logger
	gm.calculator.logger = logger
}

// AddEventSink registers a sink for engine events
func (gm *GameManager) AddEventSink(sink interfaces.EventSink) {
	gm.sinkLock.Lock()
	defer gm.sinkLock.Unlock()

	gm.sinks = append(gm.sinks, sink)
}

// Now returns the manager's notion of the current time
func (gm *GameManager) Now() time.Time {
	return gm.clock()
}

func (gm *GameManager) emit(event types.GameEvent) {
	gm.outbox = append(gm.outbox, event)
}

// takeOutbox must be called with the state lock held
func (gm *GameManager) takeOutbox() []types.GameEvent {
	events := gm.outbox
	gm.outbox = nil
	return events
}

func (gm *GameManager) publish(events []types.GameEvent) {
	if len(events) == 0 {
		return
	}

	gm.sinkLock.RLock()
	sinks := slices.Clone(gm.sinks)
	gm.sinkLock.RUnlock()

	for _, event := range events {
		for _, sink := range sinks {
			sink.Publish(event)
		}
	}
}

// LoadRoster adds heroes that are not already part of the state
func (gm *GameManager) LoadRoster(heroes []*types.Hero) int {
	gm.stateLock.Lock()
	defer gm.stateLock.Unlock()

	added := 0
	for _, hero := range heroes {
		if _, exists := gm.state.Heroes[hero.ID]; exists {
			continue
		}
		gm.state.Heroes[hero.ID] = hero
		gm.state.HeroOrder = append(gm.state.HeroOrder, hero.ID)
		added++
	}

	gm.Logger.Info("Roster loaded", zap.Int("added", added), zap.Int("total", len(gm.state.Heroes)))
	return added
}

// StartSession opens the first shift. A state restored from a snapshot keeps its shift.
func (gm *GameManager) StartSession(now time.Time) {
	gm.stateLock.Lock()
	if gm.state.ShiftActive || !gm.state.NextShiftAt.IsZero() {
		gm.Logger.Info("Resuming session",
			zap.Int("day", gm.state.Day),
			zap.Int("shift", gm.state.Shift))
		gm.stateLock.Unlock()
		return
	}

	cfg := gm.config.Game
	gm.state.ShiftActive = true
	gm.spawnLocked(now, gm.dice.Between(cfg.InitialMissionsMin, cfg.InitialMissionsMax))
	gm.state.NextSpawnAt = now.Add(cfg.SpawnIntervalValue())
	gm.emit(types.GameEvent{
		Kind:    types.EventShiftStarted,
		Time:    now,
		Message: fmt.Sprintf("Day %d, shift %d started", gm.state.Day, gm.state.Shift),
	})

	events := gm.takeOutbox()
	gm.stateLock.Unlock()
	gm.publish(events)
}

// spawnLocked generates up to n missions without exceeding the open mission cap
func (gm *GameManager) spawnLocked(now time.Time, n int) {
	for i := 0; i < n && len(gm.state.AvailableMissions) < gm.config.Game.MaxAvailableMissions; i++ {
		mission := gm.generator.Generate(GenerationContext{Now: now, Episode: gm.state.Episode})
		gm.state.AvailableMissions = append(gm.state.AvailableMissions, mission)

		gm.Logger.Debug("Mission spawned",
			zap.String("mission_id", mission.ID),
			zap.String("type", string(mission.Type)),
			zap.String("difficulty", string(mission.Difficulty)))
		gm.emit(types.GameEvent{
			Kind:      types.EventMissionSpawned,
			Time:      now,
			MissionID: mission.ID,
			Message:   fmt.Sprintf("%s (%s) needs %d hero(es)", mission.Title, mission.Difficulty, mission.SlotCount),
			Data: map[string]interface{}{
				"type":       mission.Type,
				"difficulty": mission.Difficulty,
				"slots":      mission.SlotCount,
				"expires_at": mission.ExpirationTime,
			},
		})
	}
}

// Dispatch sends a team on a mission. A rejected dispatch leaves the state untouched.
func (gm *GameManager) Dispatch(missionID string, heroIDs []string) types.DispatchResult {
	now := gm.clock()

	gm.stateLock.Lock()
	result := gm.dispatchLocked(missionID, heroIDs, now)
	events := gm.takeOutbox()
	gm.stateLock.Unlock()

	gm.publish(events)
	return result
}

func (gm *GameManager) dispatchLocked(missionID string, heroIDs []string, now time.Time) types.DispatchResult {
	result := types.DispatchResult{
		MissionID: missionID,
		HeroIDs:   slices.Clone(heroIDs),
	}

	index, team, err := gm.validateDispatchLocked(missionID, heroIDs, now)
	if err != nil {
		result.Rejection = err
		result.Reason = err.Error()

		gm.Logger.Info("Dispatch rejected",
			zap.String("mission_id", missionID),
			zap.Strings("hero_ids", heroIDs),
			zap.Error(err))
		gm.emit(types.GameEvent{
			Kind:      types.EventDispatchRejected,
			Time:      now,
			MissionID: missionID,
			Message:   err.Error(),
		})
		return result
	}

	cfg := gm.config.Game
	mission := gm.state.AvailableMissions[index]

	breakdown := gm.calculator.Compute(team, mission)
	result.Disruption = gm.calculator.Disrupt(&breakdown)

	var roll RollResult
	if cfg.DispatchMode == dispatchModeWheel && len(mission.CoverageZone) > 0 {
		spin := gm.coverage.Spin(team, mission, gm.dice)
		slice := spin.Slice
		result.WheelSlice = &slice
		roll = gm.calculator.applySabotage(RollResult{Success: spin.Success}, breakdown, len(team))
	} else {
		roll = gm.calculator.Roll(breakdown, len(team))
	}

	result.Accepted = true
	result.Success = roll.Success
	result.Probability = breakdown.Probability
	result.SabotageOccurred = roll.SabotageOccurred

	xp := gm.missionXP(mission, breakdown.Probability, len(team), roll.Success)
	if roll.Success {
		result.XPAwarded = xp
	}

	gm.applyRewardsLocked(mission, roll.Success)

	lo, hi := cfg.MissionDurationRange()
	var longest time.Duration
	for slot, hero := range team {
		effect := breakdown.Effects[slot]
		duration := scaleDuration(gm.dice.DurationBetween(lo, hi), effect.TravelMultiplier)
		if duration > longest {
			longest = duration
		}

		hero.Status = types.HeroBusy
		hero.CurrentMission = mission.Title
		hero.CurrentMissionID = mission.ID
		hero.CooldownEnd = now.Add(duration)
		hero.ReturnDuration = scaleDuration(cfg.ReturnDurationValue(), effect.TravelMultiplier)

		leveled := false
		if roll.Success {
			leveled = AwardXP(hero, xp, cfg.XPCurveMultiplier)
			hero.MissionsCompleted++
			hero.LastMissionFailed = false
		} else {
			hero.MissionsFailed++
			hero.Fatigue++
			hero.LastMissionFailed = true
		}

		if after, ok := gm.powers.For(hero).(MissionAftermath); ok {
			after.AfterMission(hero, len(team), roll.Success)
		}

		injury := gm.rollInjury(effect, roll.Success)
		if injury != "" {
			hero.PendingInjury = injury
			if result.Injuries == nil {
				result.Injuries = make(map[string]types.HeroStatus)
			}
			result.Injuries[hero.ID] = injury
		}

		hero.LastMissionResult = &types.MissionResult{
			MissionID:        mission.ID,
			MissionTitle:     mission.Title,
			Success:          roll.Success,
			Probability:      breakdown.Probability,
			XPGained:         result.XPAwarded,
			LeveledUp:        leveled,
			SabotageOccurred: roll.SabotageOccurred,
			Injury:           injury,
			Timestamp:        now,
		}

		if leveled {
			result.LeveledUp = append(result.LeveledUp, hero.ID)
			gm.emit(types.GameEvent{
				Kind:    types.EventHeroLevelUp,
				Time:    now,
				HeroID:  hero.ID,
				Message: fmt.Sprintf("%s reached level %d", hero.Name, hero.Level),
				Data:    map[string]interface{}{"level": hero.Level, "skill_points": hero.SkillPoints},
			})
		}
	}

	mission.Status = types.MissionActive
	mission.AssignedTeam = slices.Clone(heroIDs)
	mission.DispatchedAt = now
	mission.ResolvesAt = now.Add(longest)
	mission.Outcome = &types.MissionOutcome{
		Success:          roll.Success,
		Probability:      breakdown.Probability,
		SabotageOccurred: roll.SabotageOccurred,
		XPAwarded:        result.XPAwarded,
	}
	if result.Disruption != nil {
		mission.Outcome.Disruption = result.Disruption.Name
	}
	if result.WheelSlice != nil {
		mission.Outcome.WheelSlice = *result.WheelSlice
	}
	result.ResolvesAt = mission.ResolvesAt

	gm.state.AvailableMissions = slices.Delete(gm.state.AvailableMissions, index, index+1)
	gm.state.ActiveMissions = append(gm.state.ActiveMissions, mission)

	gm.Logger.Info("Mission dispatched",
		zap.String("mission_id", mission.ID),
		zap.Strings("hero_ids", heroIDs),
		zap.Float64("probability", breakdown.Probability),
		zap.Bool("success", roll.Success),
		zap.Bool("sabotage", roll.SabotageOccurred))
	gm.emit(types.GameEvent{
		Kind:      types.EventMissionDispatched,
		Time:      now,
		MissionID: mission.ID,
		Message:   fmt.Sprintf("%d hero(es) dispatched to %s", len(team), mission.Title),
		Data: map[string]interface{}{
			"hero_ids":    heroIDs,
			"probability": breakdown.Probability,
			"resolves_at": mission.ResolvesAt,
		},
	})

	if gm.state.Completed+gm.state.Failed >= cfg.ShiftThreshold {
		gm.endShiftLocked(now)
		result.ShiftEnded = true
	}

	return result
}

// validateDispatchLocked checks every precondition without touching the state
func (gm *GameManager) validateDispatchLocked(missionID string, heroIDs []string, now time.Time) (int, []*types.Hero, error) {
	index := slices.IndexFunc(gm.state.AvailableMissions, func(m *types.MissionSpec) bool {
		return m.ID == missionID
	})
	if index < 0 {
		if gm.findMissionLocked(missionID) != nil {
			return -1, nil, fmt.Errorf("%w: %s", ErrMissionUnavailable, missionID)
		}
		return -1, nil, fmt.Errorf("%w: %s", ErrMissionNotFound, missionID)
	}

	mission := gm.state.AvailableMissions[index]
	if mission.Status != types.MissionAvailable || gm.timers.Expired(mission, now) {
		return -1, nil, fmt.Errorf("%w: %s", ErrMissionUnavailable, missionID)
	}

	cfg := gm.config.Game
	if cfg.RequireExactSlots {
		if len(heroIDs) != mission.SlotCount {
			return -1, nil, fmt.Errorf("%w: mission needs exactly %d, got %d", ErrTeamSize, mission.SlotCount, len(heroIDs))
		}
	} else if len(heroIDs) < 1 || len(heroIDs) > cfg.MaxTeamSize {
		return -1, nil, fmt.Errorf("%w: need 1 to %d heroes, got %d", ErrTeamSize, cfg.MaxTeamSize, len(heroIDs))
	}

	team := make([]*types.Hero, 0, len(heroIDs))
	seen := make(map[string]struct{}, len(heroIDs))
	for _, id := range heroIDs {
		if _, dup := seen[id]; dup {
			return -1, nil, fmt.Errorf("%w: %s", ErrDuplicateHero, id)
		}
		seen[id] = struct{}{}

		hero, exists := gm.state.Heroes[id]
		if !exists {
			return -1, nil, fmt.Errorf("%w: %s", ErrHeroNotFound, id)
		}
		if hero.NeedsReview {
			return -1, nil, fmt.Errorf("%w: %s", ErrHeroNeedsReview, hero.Name)
		}
		if !hero.IsSelectable() {
			return -1, nil, fmt.Errorf("%w: %s is %s", ErrHeroNotAvailable, hero.Name, hero.Status)
		}
		team = append(team, hero)
	}

	return index, team, nil
}

func (gm *GameManager) missionXP(mission *types.MissionSpec, probability float64, teamSize int, success bool) int {
	cfg := gm.config.Game

	xp := cfg.XPBase + gm.dice.Intn(cfg.XPSpread)
	if teamSize == 1 {
		xp += cfg.XPSoloBonus
	}
	xp += cfg.DifficultyXPBonus[string(mission.Difficulty)]
	if success && probability < cfg.RiskThreshold {
		xp += cfg.XPRiskBonus
	}
	return xp
}

func (gm *GameManager) applyRewardsLocked(mission *types.MissionSpec, success bool) {
	s := gm.state
	if success {
		s.Credits += mission.Reward.Credits
		s.Reputation += mission.Reward.Reputation
		s.Completed++
		s.TotalCompleted++
		return
	}

	penalty := int(math.Floor(float64(mission.Reward.Reputation) * gm.config.Game.ReputationPenaltyRatio))
	s.Reputation = max(0, s.Reputation-penalty)
	s.Failed++
	s.TotalFailed++
}

// rollInjury decides the injury a hero carries home after a failed mission
func (gm *GameManager) rollInjury(effect PowerEffect, success bool) types.HeroStatus {
	if success || effect.ImmuneToInjury {
		return ""
	}
	if !gm.dice.Chance(gm.config.Game.InjuryChance) {
		return ""
	}
	if gm.dice.Chance(gm.config.Game.DownedChance) {
		return types.HeroDowned
	}
	return types.HeroInjured
}

func scaleDuration(d time.Duration, multiplier float64) time.Duration {
	if multiplier <= 0 {
		return d
	}
	return time.Duration(float64(d) * multiplier)
}

// Tick advances heroes, expires and resolves missions, then runs the shift schedule
func (gm *GameManager) Tick(now time.Time) {
	gm.stateLock.Lock()
	gm.tickLocked(now)
	events := gm.takeOutbox()
	gm.stateLock.Unlock()

	gm.publish(events)
}

func (gm *GameManager) tickLocked(now time.Time) {
	s := gm.state
	cfg := gm.config.Game

	for _, id := range s.HeroOrder {
		hero := s.Heroes[id]
		if hero == nil {
			continue
		}
		if tr, ok := gm.lifecycle.Advance(hero, now); ok {
			gm.Logger.Debug("Hero transition",
				zap.String("hero_id", hero.ID),
				zap.String("from", string(tr.From)),
				zap.String("to", string(tr.To)))
			gm.emit(heroTransitionEvent(hero, tr, now))
		}
	}

	open := s.AvailableMissions[:0]
	for _, mission := range s.AvailableMissions {
		if !gm.timers.Tick(mission, now) {
			open = append(open, mission)
			continue
		}
		s.Missed++
		s.TotalMissed++
		gm.appendResolvedLocked(mission)
		gm.Logger.Debug("Mission expired", zap.String("mission_id", mission.ID))
		gm.emit(types.GameEvent{
			Kind:      types.EventMissionExpired,
			Time:      now,
			MissionID: mission.ID,
			Message:   fmt.Sprintf("%s expired before a team was sent", mission.Title),
		})
	}
	clear(s.AvailableMissions[len(open):])
	s.AvailableMissions = open

	active := s.ActiveMissions[:0]
	for _, mission := range s.ActiveMissions {
		if now.Before(mission.ResolvesAt) {
			active = append(active, mission)
			continue
		}
		mission.Status = types.MissionFailed
		if mission.Outcome != nil && mission.Outcome.Success {
			mission.Status = types.MissionCompleted
		}
		gm.appendResolvedLocked(mission)
		gm.emit(types.GameEvent{
			Kind:      types.EventMissionResolved,
			Time:      now,
			MissionID: mission.ID,
			Message:   fmt.Sprintf("%s %s", mission.Title, mission.Status),
			Data: map[string]interface{}{
				"success":  mission.Status == types.MissionCompleted,
				"hero_ids": mission.AssignedTeam,
			},
		})
	}
	clear(s.ActiveMissions[len(active):])
	s.ActiveMissions = active

	switch {
	case !s.ShiftActive && !s.NextShiftAt.IsZero() && !now.Before(s.NextShiftAt):
		gm.startShiftLocked(now)
	case s.ShiftActive && !now.Before(s.NextSpawnAt):
		s.NextSpawnAt = now.Add(cfg.SpawnIntervalValue())
		if len(s.AvailableMissions) < cfg.MaxAvailableMissions && gm.dice.Chance(cfg.SpawnChance) {
			gm.spawnLocked(now, 1)
		}
	}
}

func heroTransitionEvent(hero *types.Hero, tr Transition, now time.Time) types.GameEvent {
	event := types.GameEvent{
		Time:   now,
		HeroID: hero.ID,
		Data:   map[string]interface{}{"from": tr.From, "to": tr.To},
	}
	switch tr.To {
	case types.HeroReturning:
		event.Kind = types.EventHeroReturning
		event.Message = fmt.Sprintf("%s is returning to base", hero.Name)
	case types.HeroAvailable:
		event.Kind = types.EventHeroAvailable
		event.Message = fmt.Sprintf("%s is available", hero.Name)
	default:
		event.Kind = types.EventHeroResting
		event.Message = fmt.Sprintf("%s is %s, result ready for review", hero.Name, tr.To)
	}
	return event
}

func (gm *GameManager) appendResolvedLocked(mission *types.MissionSpec) {
	s := gm.state
	s.ResolvedMissions = append(s.ResolvedMissions, mission)
	if limit := gm.config.Game.ResolvedHistory; limit > 0 && len(s.ResolvedMissions) > limit {
		s.ResolvedMissions = slices.Clone(s.ResolvedMissions[len(s.ResolvedMissions)-limit:])
	}
}

// endShiftLocked records the shift summary, promotes the dispatcher and schedules the next shift
func (gm *GameManager) endShiftLocked(now time.Time) {
	s := gm.state

	// missed calls are reported but do not count against the rate
	handled := s.Completed + s.Failed
	rate := 0.0
	if handled > 0 {
		rate = float64(s.Completed) / float64(handled) * 100
	}

	promoted := false
	for i := len(dispatcherRanks) - 1; i >= 0; i-- {
		if rate < dispatcherRanks[i].MinRate {
			continue
		}
		if s.DispatcherRank < i+1 {
			s.DispatcherRank = i + 1
			s.RankTitle = dispatcherRanks[i].Title
			promoted = true
		}
		break
	}

	summary := types.ShiftSummary{
		Day:         s.Day,
		Shift:       s.Shift,
		Successful:  s.Completed,
		Failed:      s.Failed,
		Missed:      s.Missed,
		SuccessRate: rate,
		RankTitle:   s.RankTitle,
		Promoted:    promoted,
		EndedAt:     now,
	}
	s.ShiftHistory = append(s.ShiftHistory, summary)

	s.Completed, s.Failed, s.Missed = 0, 0, 0
	s.AvailableMissions = make([]*types.MissionSpec, 0)
	s.ShiftActive = false
	s.NextShiftAt = now.Add(gm.config.Game.ShiftBreakValue())

	gm.Logger.Info("Shift ended",
		zap.Int("day", summary.Day),
		zap.Int("shift", summary.Shift),
		zap.Float64("success_rate", rate),
		zap.String("rank", s.RankTitle))
	gm.emit(types.GameEvent{
		Kind:    types.EventShiftEnded,
		Time:    now,
		Message: fmt.Sprintf("Shift %d ended with %.1f%% success, rank %s", summary.Shift, rate, s.RankTitle),
		Data: map[string]interface{}{
			"day":          summary.Day,
			"shift":        summary.Shift,
			"successful":   summary.Successful,
			"failed":       summary.Failed,
			"missed":       summary.Missed,
			"success_rate": rate,
			"promoted":     promoted,
		},
	})
}

func (gm *GameManager) startShiftLocked(now time.Time) {
	s := gm.state
	cfg := gm.config.Game

	s.Episode++
	s.Shift++
	if s.Shift > cfg.ShiftsPerDay {
		s.Shift = 1
		s.Day++
		gm.emit(types.GameEvent{
			Kind:    types.EventDayStarted,
			Time:    now,
			Message: fmt.Sprintf("Day %d started", s.Day),
		})
	}

	s.ShiftActive = true
	s.NextShiftAt = time.Time{}
	gm.spawnLocked(now, gm.dice.Between(cfg.ShiftMissionsMin, cfg.ShiftMissionsMax))
	s.NextSpawnAt = now.Add(cfg.SpawnIntervalValue())

	gm.Logger.Info("Shift started", zap.Int("day", s.Day), zap.Int("shift", s.Shift), zap.Int("episode", s.Episode))
	gm.emit(types.GameEvent{
		Kind:    types.EventShiftStarted,
		Time:    now,
		Message: fmt.Sprintf("Day %d, shift %d started", s.Day, s.Shift),
	})
}

// ListAvailableMissions returns copies of the open missions
func (gm *GameManager) ListAvailableMissions() []*types.MissionSpec {
	gm.stateLock.RLock()
	defer gm.stateLock.RUnlock()

	missions := make([]*types.MissionSpec, 0, len(gm.state.AvailableMissions))
	for _, mission := range gm.state.AvailableMissions {
		missions = append(missions, mission.Clone())
	}
	return missions
}

// ListActiveMissions returns copies of the missions with a team in the field
func (gm *GameManager) ListActiveMissions() []*types.MissionSpec {
	gm.stateLock.RLock()
	defer gm.stateLock.RUnlock()

	missions := make([]*types.MissionSpec, 0, len(gm.state.ActiveMissions))
	for _, mission := range gm.state.ActiveMissions {
		missions = append(missions, mission.Clone())
	}
	return missions
}

// GetMission looks a mission up in every pool
func (gm *GameManager) GetMission(missionID string) (*types.MissionSpec, error) {
	gm.stateLock.RLock()
	defer gm.stateLock.RUnlock()

	mission := gm.findMissionLocked(missionID)
	if mission == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissionNotFound, missionID)
	}
	return mission.Clone(), nil
}

func (gm *GameManager) findMissionLocked(missionID string) *types.MissionSpec {
	for _, pool := range [][]*types.MissionSpec{
		gm.state.AvailableMissions,
		gm.state.ActiveMissions,
		gm.state.ResolvedMissions,
	} {
		for _, mission := range pool {
			if mission.ID == missionID {
				return mission
			}
		}
	}
	return nil
}

func (gm *GameManager) availableMissionLocked(missionID string) (*types.MissionSpec, error) {
	for _, mission := range gm.state.AvailableMissions {
		if mission.ID == missionID {
			return mission, nil
		}
	}
	if gm.findMissionLocked(missionID) != nil {
		return nil, fmt.Errorf("%w: %s", ErrMissionUnavailable, missionID)
	}
	return nil, fmt.Errorf("%w: %s", ErrMissionNotFound, missionID)
}

// ListHeroes returns copies of the roster in roster order
func (gm *GameManager) ListHeroes() []*types.Hero {
	gm.stateLock.RLock()
	defer gm.stateLock.RUnlock()

	heroes := make([]*types.Hero, 0, len(gm.state.HeroOrder))
	for _, id := range gm.state.HeroOrder {
		if hero, ok := gm.state.Heroes[id]; ok {
			heroes = append(heroes, hero.Clone())
		}
	}
	return heroes
}

// GetHero returns a copy of one hero
func (gm *GameManager) GetHero(heroID string) (*types.Hero, error) {
	gm.stateLock.RLock()
	defer gm.stateLock.RUnlock()

	hero, ok := gm.state.Heroes[heroID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrHeroNotFound, heroID)
	}
	return hero.Clone(), nil
}

func (gm *GameManager) teamLocked(heroIDs []string) ([]*types.Hero, error) {
	team := make([]*types.Hero, 0, len(heroIDs))
	seen := make(map[string]struct{}, len(heroIDs))
	for _, id := range heroIDs {
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateHero, id)
		}
		seen[id] = struct{}{}

		hero, ok := gm.state.Heroes[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrHeroNotFound, id)
		}
		team = append(team, hero)
	}
	return team, nil
}

// GetTeamStats aggregates the lineup in slot order, including power effects
func (gm *GameManager) GetTeamStats(heroIDs []string) (types.StatProfile, error) {
	gm.stateLock.RLock()
	defer gm.stateLock.RUnlock()

	team, err := gm.teamLocked(heroIDs)
	if err != nil {
		return types.StatProfile{}, err
	}
	stats, _ := gm.calculator.TeamStats(team)
	return stats, nil
}

// ComputeCoverage is the percentage of the mission's zone the lineup covers
func (gm *GameManager) ComputeCoverage(heroIDs []string, missionID string) (float64, error) {
	gm.stateLock.RLock()
	defer gm.stateLock.RUnlock()

	team, err := gm.teamLocked(heroIDs)
	if err != nil {
		return 0, err
	}
	mission := gm.findMissionLocked(missionID)
	if mission == nil {
		return 0, fmt.Errorf("%w: %s", ErrMissionNotFound, missionID)
	}
	return gm.coverage.Compute(team, mission), nil
}

// ComputeSuccessPreview estimates the success probability without drawing randomness
func (gm *GameManager) ComputeSuccessPreview(heroIDs []string, missionID string) (types.SuccessPreview, error) {
	gm.stateLock.RLock()
	defer gm.stateLock.RUnlock()

	team, err := gm.teamLocked(heroIDs)
	if err != nil {
		return types.SuccessPreview{}, err
	}
	mission := gm.findMissionLocked(missionID)
	if mission == nil {
		return types.SuccessPreview{}, fmt.Errorf("%w: %s", ErrMissionNotFound, missionID)
	}
	return gm.calculator.Preview(team, mission).View(mission, slices.Clone(heroIDs)), nil
}

// ReviewMissionResult acknowledges a hero's last result, releasing the review gate
func (gm *GameManager) ReviewMissionResult(heroID string) (*types.MissionResult, error) {
	now := gm.clock()

	gm.stateLock.Lock()
	hero, ok := gm.state.Heroes[heroID]
	if !ok {
		gm.stateLock.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrHeroNotFound, heroID)
	}

	result, err := ReviewMissionResult(hero)
	if err != nil {
		gm.stateLock.Unlock()
		return nil, fmt.Errorf("review %s: %w", hero.Name, err)
	}

	gm.emit(types.GameEvent{
		Kind:      types.EventResultReviewed,
		Time:      now,
		HeroID:    hero.ID,
		MissionID: result.MissionID,
		Message:   fmt.Sprintf("%s's report on %s was reviewed", hero.Name, result.MissionTitle),
	})
	events := gm.takeOutbox()
	gm.stateLock.Unlock()

	gm.publish(events)
	return result, nil
}

// AllocateStat spends skill points on a stat and returns the updated hero
func (gm *GameManager) AllocateStat(heroID, stat string, points int) (*types.Hero, error) {
	gm.stateLock.Lock()
	defer gm.stateLock.Unlock()

	hero, ok := gm.state.Heroes[heroID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrHeroNotFound, heroID)
	}

	spent, err := AllocateStat(hero, types.Stat(stat), points, gm.config.Game.StatCap)
	if err != nil {
		return nil, fmt.Errorf("allocate %s for %s: %w", stat, hero.Name, err)
	}

	gm.Logger.Info("Skill points allocated",
		zap.String("hero_id", hero.ID),
		zap.String("stat", stat),
		zap.Int("spent", spent))
	return hero.Clone(), nil
}

// PauseMission freezes an open mission's countdown
func (gm *GameManager) PauseMission(missionID string) error {
	now := gm.clock()

	gm.stateLock.Lock()
	defer gm.stateLock.Unlock()

	mission, err := gm.availableMissionLocked(missionID)
	if err != nil {
		return err
	}
	if gm.timers.Pause(mission, now) {
		gm.Logger.Debug("Mission paused", zap.String("mission_id", missionID))
	}
	return nil
}

// ResumeMission restarts an open mission's countdown
func (gm *GameManager) ResumeMission(missionID string) error {
	now := gm.clock()

	gm.stateLock.Lock()
	defer gm.stateLock.Unlock()

	mission, err := gm.availableMissionLocked(missionID)
	if err != nil {
		return err
	}
	if gm.timers.Resume(mission, now) {
		gm.Logger.Debug("Mission resumed", zap.String("mission_id", missionID))
	}
	return nil
}

// MissionRemaining is the time left on an open mission's countdown
func (gm *GameManager) MissionRemaining(missionID string) (time.Duration, error) {
	now := gm.clock()

	gm.stateLock.RLock()
	defer gm.stateLock.RUnlock()

	mission, err := gm.availableMissionLocked(missionID)
	if err != nil {
		return 0, err
	}
	return gm.timers.Remaining(mission, now), nil
}

// Summary reports the aggregate counters
func (gm *GameManager) Summary() types.GameSummary {
	gm.stateLock.RLock()
	defer gm.stateLock.RUnlock()

	s := gm.state
	summary := types.GameSummary{
		Credits:           s.Credits,
		Reputation:        s.Reputation,
		Day:               s.Day,
		Shift:             s.Shift,
		Episode:           s.Episode,
		ShiftActive:       s.ShiftActive,
		Completed:         s.Completed,
		Failed:            s.Failed,
		Missed:            s.Missed,
		TotalCompleted:    s.TotalCompleted,
		TotalFailed:       s.TotalFailed,
		TotalMissed:       s.TotalMissed,
		RankTitle:         s.RankTitle,
		AvailableMissions: len(s.AvailableMissions),
		ActiveMissions:    len(s.ActiveMissions),
		HeroesByStatus:    make(map[types.HeroStatus]int),
	}
	for _, hero := range s.Heroes {
		summary.HeroesByStatus[hero.Status]++
		if hero.NeedsReview {
			summary.PendingReviews++
		}
	}
	return summary
}

// ShiftHistory returns the recorded shift summaries
func (gm *GameManager) ShiftHistory() []types.ShiftSummary {
	gm.stateLock.RLock()
	defer gm.stateLock.RUnlock()

	return slices.Clone(gm.state.ShiftHistory)
}

// SaveSnapshot persists the current game state
func (gm *GameManager) SaveSnapshot() error {
	if gm.storage == nil {
		return ErrNoStorage
	}

	gm.stateLock.RLock()
	defer gm.stateLock.RUnlock()

	if err := gm.storage.SaveGameState(gm.state); err != nil {
		return fmt.Errorf("failed to save game state: %w", err)
	}
	return nil
}

// LoadSnapshot replaces the state with the stored snapshot and reports whether one existed
func (gm *GameManager) LoadSnapshot() (bool, error) {
	if gm.storage == nil {
		return false, ErrNoStorage
	}

	state, err := gm.storage.LoadGameState()
	if errors.Is(err, ErrNoSnapshot) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load game state: %w", err)
	}

	gm.stateLock.Lock()
	defer gm.stateLock.Unlock()

	gm.state = state
	gm.Logger.Info("Game state restored",
		zap.Int("day", state.Day),
		zap.Int("shift", state.Shift),
		zap.Int("heroes", len(state.Heroes)))
	return true, nil
}
