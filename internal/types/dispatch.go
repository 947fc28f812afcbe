package types

import "time"

// SuccessPreview is the read-only view of a success computation
type SuccessPreview struct {
	MissionID      string           `json:"mission_id"`
	HeroIDs        []string         `json:"hero_ids"`
	Probability    float64          `json:"probability"`
	StatAverage    float64          `json:"stat_average"`
	StatRatios     map[Stat]float64 `json:"stat_ratios"`
	TeamStats      StatProfile      `json:"team_stats"`
	RequiredStats  StatProfile      `json:"required_stats"`
	Coverage       float64          `json:"coverage"`
	Synergy        float64          `json:"synergy"`
	Sabotage       float64          `json:"sabotage"`
	FatiguePenalty float64          `json:"fatigue_penalty"`
	ClassBonus     float64          `json:"class_bonus"`
}

// DisruptionOutcome records a mid-mission complication and the team's answer
type DisruptionOutcome struct {
	Name   string  `json:"name"`
	Choice string  `json:"choice"`
	Passed bool    `json:"passed"`
	Swing  float64 `json:"swing"`
	Text   string  `json:"text"`
}

// DispatchResult is returned by every dispatch attempt. A rejected dispatch
// carries the reason and leaves the game state untouched.
type DispatchResult struct {
	Accepted  bool     `json:"accepted"`
	Rejection error    `json:"-"`
	Reason    string   `json:"reason,omitempty"`
	MissionID string   `json:"mission_id"`
	HeroIDs   []string `json:"hero_ids"`

	Success          bool                  `json:"success"`
	Probability      float64               `json:"probability"`
	XPAwarded        int                   `json:"xp_awarded"`
	SabotageOccurred bool                  `json:"sabotage_occurred"`
	LeveledUp        []string              `json:"leveled_up,omitempty"`
	Injuries         map[string]HeroStatus `json:"injuries,omitempty"`
	Disruption       *DisruptionOutcome    `json:"disruption,omitempty"`
	WheelSlice       *int                  `json:"wheel_slice,omitempty"`
	ResolvesAt       time.Time             `json:"resolves_at"`
	ShiftEnded       bool                  `json:"shift_ended"`
}

// GameSummary is a compact snapshot of the aggregate counters
type GameSummary struct {
	Credits           int                `json:"credits"`
	Reputation        int                `json:"reputation"`
	Day               int                `json:"day"`
	Shift             int                `json:"shift"`
	Episode           int                `json:"episode"`
	ShiftActive       bool               `json:"shift_active"`
	Completed         int                `json:"completed"`
	Failed            int                `json:"failed"`
	Missed            int                `json:"missed"`
	TotalCompleted    int                `json:"total_completed"`
	TotalFailed       int                `json:"total_failed"`
	TotalMissed       int                `json:"total_missed"`
	RankTitle         string             `json:"rank_title"`
	AvailableMissions int                `json:"available_missions"`
	ActiveMissions    int                `json:"active_missions"`
	HeroesByStatus    map[HeroStatus]int `json:"heroes_by_status"`
	PendingReviews    int                `json:"pending_reviews"`
}
