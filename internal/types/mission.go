package types

import (
	"slices"
	"time"
)

// MissionType is the archetype a mission was generated from
type MissionType string

const (
	MissionRescue        MissionType = "Rescue"
	MissionCombat        MissionType = "Combat"
	MissionStealth       MissionType = "Stealth"
	MissionDefense       MissionType = "Defense"
	MissionPursuit       MissionType = "Pursuit"
	MissionInvestigation MissionType = "Investigation"
	MissionDisaster      MissionType = "Disaster"
	MissionExtraction    MissionType = "Extraction"
	MissionDelivery      MissionType = "Delivery"
	MissionNegotiation   MissionType = "Negotiation"
)

// Difficulty classifies a mission
type Difficulty string

const (
	DifficultyEasy     Difficulty = "Easy"
	DifficultyMedium   Difficulty = "Medium"
	DifficultyHard     Difficulty = "Hard"
	DifficultyVeryHard Difficulty = "Very Hard"
)

// AllDifficulties lists difficulties from easiest to hardest
var AllDifficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyVeryHard}

// Rank returns the position of d in AllDifficulties, or -1
func (d Difficulty) Rank() int {
	return slices.Index(AllDifficulties, d)
}

// MissionModifier is an optional tag attached at generation
type MissionModifier string

const (
	ModifierTimeSensitive MissionModifier = "Time-Sensitive"
	ModifierHighRisk      MissionModifier = "High Risk"
	ModifierRewardBonus   MissionModifier = "Reward Bonus"
)

// MissionStatus is the lifecycle phase of a mission
type MissionStatus string

const (
	MissionAvailable MissionStatus = "available"
	MissionActive    MissionStatus = "active"
	MissionCompleted MissionStatus = "completed"
	MissionFailed    MissionStatus = "failed"
	MissionExpired   MissionStatus = "expired"
)

// Reward is granted on success
type Reward struct {
	Credits    int `json:"credits"`
	Reputation int `json:"reputation"`
}

// MissionOutcome is decided at dispatch and revealed when the mission resolves
type MissionOutcome struct {
	Success          bool    `json:"success"`
	Probability      float64 `json:"probability"`
	SabotageOccurred bool    `json:"sabotage_occurred"`
	Disruption       string  `json:"disruption,omitempty"`
	XPAwarded        int     `json:"xp_awarded"`
	WheelSlice       int     `json:"wheel_slice,omitempty"`
}

// MissionSpec is a generated call waiting for, or carrying, a team
type MissionSpec struct {
	ID            string            `json:"id"`
	Title         string            `json:"title"`
	Type          MissionType       `json:"type"`
	Difficulty    Difficulty        `json:"difficulty"`
	Description   string            `json:"description"`
	Keywords      []string          `json:"keywords"`
	RequiredStats StatProfile       `json:"required_stats"`
	CoverageZone  []int             `json:"coverage_zone"`
	SlotCount     int               `json:"slot_count"`
	Reward        Reward            `json:"reward"`
	Modifiers     []MissionModifier `json:"modifiers"`
	Episode       int               `json:"episode"`

	SpawnTime      time.Time `json:"spawn_time"`
	ExpirationTime time.Time `json:"expiration_time"`
	TimePaused     bool      `json:"time_paused"`
	PausedAt       time.Time `json:"paused_at"`

	Status       MissionStatus   `json:"status"`
	AssignedTeam []string        `json:"assigned_team,omitempty"`
	DispatchedAt time.Time       `json:"dispatched_at"`
	ResolvesAt   time.Time       `json:"resolves_at"`
	Outcome      *MissionOutcome `json:"outcome,omitempty"`
}

// HasModifier reports whether m is attached to the mission
func (m *MissionSpec) HasModifier(mod MissionModifier) bool {
	return slices.Contains(m.Modifiers, mod)
}

// Clone returns a deep copy safe to hand out of the engine
func (m *MissionSpec) Clone() *MissionSpec {
	if m == nil {
		return nil
	}
	c := *m
	c.Keywords = slices.Clone(m.Keywords)
	c.CoverageZone = slices.Clone(m.CoverageZone)
	c.Modifiers = slices.Clone(m.Modifiers)
	c.AssignedTeam = slices.Clone(m.AssignedTeam)
	if m.Outcome != nil {
		o := *m.Outcome
		c.Outcome = &o
	}
	return &c
}
