package types

import "time"

// GameState is the aggregate root of a dispatch session
type GameState struct {
	Credits    int `json:"credits"`
	Reputation int `json:"reputation"`

	Day         int       `json:"day"`
	Shift       int       `json:"shift"`
	Episode     int       `json:"episode"`
	ShiftActive bool      `json:"shift_active"`
	NextShiftAt time.Time `json:"next_shift_at"`
	NextSpawnAt time.Time `json:"next_spawn_at"`

	// Counters for the running shift
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Missed    int `json:"missed"`

	TotalCompleted int `json:"total_completed"`
	TotalFailed    int `json:"total_failed"`
	TotalMissed    int `json:"total_missed"`

	Heroes    map[string]*Hero `json:"heroes"`
	HeroOrder []string         `json:"hero_order"`

	AvailableMissions []*MissionSpec `json:"available_missions"`
	ActiveMissions    []*MissionSpec `json:"active_missions"`
	ResolvedMissions  []*MissionSpec `json:"resolved_missions"`

	DispatcherRank int            `json:"dispatcher_rank"`
	RankTitle      string         `json:"rank_title"`
	ShiftHistory   []ShiftSummary `json:"shift_history"`
}

// NewGameState returns an empty state at day 1, shift 1
func NewGameState() *GameState {
	return &GameState{
		Day:               1,
		Shift:             1,
		Episode:           1,
		Heroes:            make(map[string]*Hero),
		HeroOrder:         make([]string, 0),
		AvailableMissions: make([]*MissionSpec, 0),
		ActiveMissions:    make([]*MissionSpec, 0),
		ResolvedMissions:  make([]*MissionSpec, 0),
		ShiftHistory:      make([]ShiftSummary, 0),
	}
}

// ShiftSummary is recorded when a shift ends
type ShiftSummary struct {
	Day         int       `json:"day"`
	Shift       int       `json:"shift"`
	Successful  int       `json:"successful"`
	Failed      int       `json:"failed"`
	Missed      int       `json:"missed"`
	SuccessRate float64   `json:"success_rate"`
	RankTitle   string    `json:"rank_title"`
	Promoted    bool      `json:"promoted"`
	EndedAt     time.Time `json:"ended_at"`
}

// EventKind names what happened inside the engine
type EventKind string

const (
	EventMissionSpawned    EventKind = "mission_spawned"
	EventMissionExpired    EventKind = "mission_expired"
	EventMissionDispatched EventKind = "mission_dispatched"
	EventMissionResolved   EventKind = "mission_resolved"
	EventDispatchRejected  EventKind = "dispatch_rejected"
	EventHeroReturning     EventKind = "hero_returning"
	EventHeroResting       EventKind = "hero_resting"
	EventHeroAvailable     EventKind = "hero_available"
	EventHeroLevelUp       EventKind = "hero_level_up"
	EventResultReviewed    EventKind = "result_reviewed"
	EventShiftEnded        EventKind = "shift_ended"
	EventShiftStarted      EventKind = "shift_started"
	EventDayStarted        EventKind = "day_started"
)

// GameEvent is published to event sinks after each command or tick
type GameEvent struct {
	Kind      EventKind              `json:"kind"`
	Time      time.Time              `json:"time"`
	MissionID string                 `json:"mission_id,omitempty"`
	HeroID    string                 `json:"hero_id,omitempty"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data,omitempty"`
}
