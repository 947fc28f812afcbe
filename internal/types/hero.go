package types

import (
	"slices"
	"time"
)

// HeroStatus is the lifecycle phase a hero is in
type HeroStatus string

const (
	HeroAvailable HeroStatus = "available"
	HeroBusy      HeroStatus = "busy"
	HeroReturning HeroStatus = "returning"
	HeroResting   HeroStatus = "resting"
	HeroInjured   HeroStatus = "injured"
	HeroDowned    HeroStatus = "downed"
)

// IsRecovering reports whether the status is one of the rest phases
func (s HeroStatus) IsRecovering() bool {
	return s == HeroResting || s == HeroInjured || s == HeroDowned
}

// PowerKind tags the unique power a hero carries
type PowerKind string

const (
	PowerNone          PowerKind = ""
	PowerSolo          PowerKind = "solo"
	PowerStreak        PowerKind = "streak"
	PowerDuplication   PowerKind = "duplication"
	PowerTransform     PowerKind = "transform"
	PowerSlotDependent PowerKind = "slot_dependent"
	PowerHealing       PowerKind = "healing"
	PowerImmunity      PowerKind = "immunity"
)

// MissionResult is the outcome record a hero keeps until it is reviewed
type MissionResult struct {
	MissionID        string     `json:"mission_id"`
	MissionTitle     string     `json:"mission_title"`
	Success          bool       `json:"success"`
	Probability      float64    `json:"probability"`
	XPGained         int        `json:"xp_gained"`
	LeveledUp        bool       `json:"leveled_up"`
	SabotageOccurred bool       `json:"sabotage_occurred"`
	Injury           HeroStatus `json:"injury,omitempty"`
	Timestamp        time.Time  `json:"timestamp"`
}

// Hero is a dispatchable unit in the roster
type Hero struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Archetype string      `json:"archetype"`
	Stats     StatProfile `json:"stats"`

	Level       int `json:"level"`
	XP          int `json:"xp"`
	XPToNext    int `json:"xp_to_next"`
	SkillPoints int `json:"skill_points"`

	Status           HeroStatus    `json:"status"`
	CurrentMission   string        `json:"current_mission,omitempty"`
	CurrentMissionID string        `json:"current_mission_id,omitempty"`
	CooldownEnd      time.Time     `json:"cooldown_end"`
	ReturnDuration   time.Duration `json:"return_duration"`
	RestDuration     time.Duration `json:"rest_duration"`

	NeedsReview       bool           `json:"needs_review"`
	LastMissionResult *MissionResult `json:"last_mission_result,omitempty"`

	// Slice indices 0..35 plus the center slice; fixed at creation
	CoverageShape []int `json:"coverage_shape"`

	Power     PowerKind     `json:"power,omitempty"`
	SlotTable []StatProfile `json:"slot_table,omitempty"`

	StreakBonus  StatProfile `json:"streak_bonus"`
	HealingBonus StatProfile `json:"healing_bonus"`
	Transformed  bool        `json:"transformed"`

	Fatigue            int        `json:"fatigue"`
	RestsSinceRecovery int        `json:"rests_since_recovery"`
	PendingInjury      HeroStatus `json:"pending_injury,omitempty"`
	LastMissionFailed  bool       `json:"last_mission_failed"`

	Friends []string `json:"friends,omitempty"`
	Enemies []string `json:"enemies,omitempty"`

	MissionsCompleted int `json:"missions_completed"`
	MissionsFailed    int `json:"missions_failed"`
}

// IsSelectable reports whether the hero can be put on a new team
func (h *Hero) IsSelectable() bool {
	return h.Status == HeroAvailable && !h.NeedsReview
}

// EffectiveStats returns base stats plus the persisted streak and healing bonuses
func (h *Hero) EffectiveStats() StatProfile {
	return h.Stats.Add(h.StreakBonus).Add(h.HealingBonus)
}

// IsFriend reports whether other is listed as a friend
func (h *Hero) IsFriend(other string) bool {
	return slices.Contains(h.Friends, other)
}

// IsEnemy reports whether other is listed as an enemy
func (h *Hero) IsEnemy(other string) bool {
	return slices.Contains(h.Enemies, other)
}

// Clone returns a deep copy safe to hand out of the engine
func (h *Hero) Clone() *Hero {
	if h == nil {
		return nil
	}
	c := *h
	c.CoverageShape = slices.Clone(h.CoverageShape)
	c.SlotTable = slices.Clone(h.SlotTable)
	c.Friends = slices.Clone(h.Friends)
	c.Enemies = slices.Clone(h.Enemies)
	if h.LastMissionResult != nil {
		r := *h.LastMissionResult
		c.LastMissionResult = &r
	}
	return &c
}
