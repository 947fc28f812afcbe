package game

import (
	"slices"
	"sort"

	"github.com/user/hero-dispatch/config"
	"github.com/user/hero-dispatch/internal/types"
)

// CoverageEngine measures how much of a mission's zone a team covers on the wheel
type CoverageEngine struct {
	sliceCount  int
	centerSlice int
}

// NewCoverageEngine creates a coverage engine for the configured wheel
func NewCoverageEngine(cfg config.GameConfig) *CoverageEngine {
	return &CoverageEngine{
		sliceCount:  cfg.SliceCount,
		centerSlice: cfg.CenterSlice,
	}
}

// WheelResult is where the pointer landed and what it meant
type WheelResult struct {
	Slice       int     `json:"slice"`
	Required    bool    `json:"required"`
	Covered     bool    `json:"covered"`
	AutoSuccess bool    `json:"auto_success"`
	Success     bool    `json:"success"`
	Coverage    float64 `json:"coverage"`
}

// TeamShape is the union of every member's coverage shape
func TeamShape(team []*types.Hero) map[int]struct{} {
	covered := make(map[int]struct{})
	for _, hero := range team {
		for _, s := range hero.CoverageShape {
			covered[s] = struct{}{}
		}
	}
	return covered
}

// ComputeCoverage returns |zone ∩ covered| / |zone| × 100, or 0 for an empty team or zone
func ComputeCoverage(team []*types.Hero, zone []int) float64 {
	if len(team) == 0 || len(zone) == 0 {
		return 0
	}

	required := make(map[int]struct{}, len(zone))
	for _, s := range zone {
		required[s] = struct{}{}
	}

	covered := TeamShape(team)
	hits := 0
	for s := range required {
		if _, ok := covered[s]; ok {
			hits++
		}
	}

	return float64(hits) / float64(len(required)) * 100
}

// Compute is ComputeCoverage against a mission
func (ce *CoverageEngine) Compute(team []*types.Hero, mission *types.MissionSpec) float64 {
	return ComputeCoverage(team, mission.CoverageZone)
}

// Spin lands the pointer on one of the slices or the center. A slice that is
// both required and covered succeeds outright; anything else falls back to a
// draw weighted by coverage.
func (ce *CoverageEngine) Spin(team []*types.Hero, mission *types.MissionSpec, dice *DiceRoller) WheelResult {
	coverage := ce.Compute(team, mission)

	slice := dice.Intn(ce.sliceCount + 1)
	if slice == ce.sliceCount {
		slice = ce.centerSlice
	}

	_, covered := TeamShape(team)[slice]
	required := slices.Contains(mission.CoverageZone, slice)

	result := WheelResult{
		Slice:    slice,
		Required: required,
		Covered:  covered,
		Coverage: coverage,
	}

	if required && covered {
		result.AutoSuccess = true
		result.Success = true
		return result
	}

	result.Success = dice.Chance(coverage / 100)
	return result
}

func sortedSet(set map[int]struct{}) []int {
	out := make([]int, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}
