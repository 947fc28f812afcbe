package game

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/user/hero-dispatch/config"
	"github.com/user/hero-dispatch/internal/types"
)

// MissionTemplate fixes the flavour, stat bias and base reward of a mission type
type MissionTemplate struct {
	Type           types.MissionType
	Focus          []types.Stat
	Irrelevant     []types.Stat
	Keywords       []string
	Descriptions   []string
	BaseCredits    int
	BaseReputation int
}

var missionTemplates = []MissionTemplate{
	{
		Type:       types.MissionRescue,
		Focus:      []types.Stat{types.StatVigor, types.StatMobility},
		Irrelevant: []types.Stat{types.StatIntellect, types.StatCharisma},
		Keywords:   []string{"rescue", "evacuate", "save"},
		Descriptions: []string{
			"Civilians trapped in a burning building need immediate evacuation. Need heroes to rescue them quickly.",
			"Hostages taken by criminals require a rescue operation. Time is critical.",
			"People stranded after a natural disaster need assistance. Must evacuate safely.",
		},
		BaseCredits: 200, BaseReputation: 15,
	},
	{
		Type:       types.MissionCombat,
		Focus:      []types.Stat{types.StatCombat, types.StatVigor},
		Irrelevant: []types.Stat{types.StatCharisma, types.StatIntellect},
		Keywords:   []string{"fight", "battle", "subdue", "defeat"},
		Descriptions: []string{
			"A supervillain is attacking the city center. Need heroes to fight and subdue the threat.",
			"Criminal organization has taken over a facility. Must defeat them in combat.",
			"Monster sighting requires immediate response. Prepare for battle.",
		},
		BaseCredits: 350, BaseReputation: 25,
	},
	{
		Type:       types.MissionStealth,
		Focus:      []types.Stat{types.StatMobility, types.StatIntellect},
		Irrelevant: []types.Stat{types.StatVigor, types.StatCharisma},
		Keywords:   []string{"sneak", "infiltrate", "stealth"},
		Descriptions: []string{
			"Infiltrate enemy base undetected to gather intelligence. Stealth is essential.",
			"Retrieve stolen item without alerting security. Sneak in quietly.",
			"Sneak into restricted area for investigation. Avoid detection.",
		},
		BaseCredits: 250, BaseReputation: 20,
	},
	{
		Type:       types.MissionDefense,
		Focus:      []types.Stat{types.StatCombat, types.StatVigor},
		Irrelevant: []types.Stat{types.StatMobility, types.StatIntellect},
		Keywords:   []string{"protect", "defend", "shield"},
		Descriptions: []string{
			"Protect critical facility from incoming attack. Defend at all costs.",
			"Defend VIP during public event. Shield them from harm.",
			"Secure perimeter during crisis situation. Protect the area.",
		},
		BaseCredits: 400, BaseReputation: 30,
	},
	{
		Type:       types.MissionPursuit,
		Focus:      []types.Stat{types.StatMobility},
		Irrelevant: []types.Stat{types.StatCharisma, types.StatVigor},
		Keywords:   []string{"chase", "pursue", "catch", "track"},
		Descriptions: []string{
			"High-speed chase after fleeing criminals. Need to catch them quickly.",
			"Track down escaped suspect. Pursue before they escape.",
			"Intercept vehicle before it reaches destination. Chase required.",
		},
		BaseCredits: 150, BaseReputation: 10,
	},
	{
		Type:       types.MissionInvestigation,
		Focus:      []types.Stat{types.StatIntellect, types.StatCharisma},
		Irrelevant: []types.Stat{types.StatCombat, types.StatVigor},
		Keywords:   []string{"investigate", "analyze", "solve", "examine"},
		Descriptions: []string{
			"Solve mysterious crime with limited clues. Need to investigate thoroughly.",
			"Investigate strange occurrences at location. Analyze the situation.",
			"Analyze evidence to identify perpetrator. Solve the mystery.",
		},
		BaseCredits: 220, BaseReputation: 18,
	},
	{
		Type:       types.MissionDisaster,
		Focus:      []types.Stat{types.StatVigor, types.StatCombat},
		Irrelevant: []types.Stat{types.StatCharisma, types.StatIntellect},
		Keywords:   []string{"disaster", "emergency", "crisis"},
		Descriptions: []string{
			"Earthquake relief efforts needed immediately. Emergency response required.",
			"Flood rescue operation in progress. Crisis situation.",
			"Building collapse requires emergency response. Disaster relief needed.",
		},
		BaseCredits: 450, BaseReputation: 35,
	},
	{
		Type:       types.MissionExtraction,
		Focus:      []types.Stat{types.StatMobility, types.StatCombat, types.StatVigor},
		Irrelevant: []types.Stat{types.StatCharisma},
		Keywords:   []string{"extract", "rescue", "retrieve"},
		Descriptions: []string{
			"Extract undercover agent from dangerous situation. Rescue operation needed.",
			"Rescue team member trapped behind enemy lines. Extract safely.",
			"Evacuate personnel from hostile territory. Retrieve them quickly.",
		},
		BaseCredits: 500, BaseReputation: 40,
	},
	{
		Type:       types.MissionDelivery,
		Focus:      []types.Stat{types.StatMobility, types.StatCharisma},
		Irrelevant: []types.Stat{types.StatCombat, types.StatIntellect},
		Keywords:   []string{"deliver", "transport", "move"},
		Descriptions: []string{
			"Time-sensitive package delivery required. Transport urgently.",
			"Transport critical supplies to remote location. Deliver safely.",
			"Deliver important documents securely. Move quickly.",
		},
		BaseCredits: 180, BaseReputation: 12,
	},
	{
		Type:       types.MissionNegotiation,
		Focus:      []types.Stat{types.StatCharisma, types.StatIntellect},
		Irrelevant: []types.Stat{types.StatCombat, types.StatMobility},
		Keywords:   []string{"negotiate", "persuade", "talk", "diplomacy"},
		Descriptions: []string{
			"Resolve hostage situation through diplomacy. Need to negotiate carefully.",
			"Negotiate with criminal organization. Persuade them to stand down.",
			"Mediate conflict between factions. Talk them down peacefully.",
		},
		BaseCredits: 300, BaseReputation: 22,
	},
}

// MissionTemplates returns a copy of the template table
func MissionTemplates() []MissionTemplate {
	return slices.Clone(missionTemplates)
}

// GenerationContext carries the scaling inputs of one generation
type GenerationContext struct {
	Now       time.Time
	Episode   int
	SlotCount int
}

// MissionGenerator produces missions from the template table
type MissionGenerator struct {
	cfg       config.GameConfig
	dice      *DiceRoller
	templates []MissionTemplate
}

// NewMissionGenerator creates a mission generator
func NewMissionGenerator(cfg config.GameConfig, dice *DiceRoller) *MissionGenerator {
	return &MissionGenerator{
		cfg:       cfg,
		dice:      dice,
		templates: missionTemplates,
	}
}

// Generate always returns a fully formed, available mission
func (g *MissionGenerator) Generate(ctx GenerationContext) *types.MissionSpec {
	if ctx.Episode < 1 {
		ctx.Episode = 1
	}

	tmpl := g.templates[g.dice.Intn(len(g.templates))]

	slotCount := ctx.SlotCount
	if slotCount <= 0 {
		slotCount = g.rollSlotCount()
	}
	if g.cfg.MaxTeamSize > 0 && slotCount > g.cfg.MaxTeamSize {
		slotCount = g.cfg.MaxTeamSize
	}

	required := g.requiredStats(tmpl, ctx.Episode, slotCount)

	var modifiers []types.MissionModifier
	if g.dice.Chance(g.cfg.TimeSensitiveChance) {
		modifiers = append(modifiers, types.ModifierTimeSensitive)
	}
	if g.dice.Chance(g.cfg.HighRiskChance) {
		modifiers = append(modifiers, types.ModifierHighRisk)
	}
	if g.dice.Chance(g.cfg.RewardBonusChance) {
		modifiers = append(modifiers, types.ModifierRewardBonus)
	}

	difficulty := types.AllDifficulties[g.dice.Intn(len(types.AllDifficulties))]
	if slices.Contains(modifiers, types.ModifierHighRisk) && difficulty.Rank() < types.DifficultyHard.Rank() {
		difficulty = types.DifficultyHard
	}

	lo, hi := g.cfg.ExpiryRange()
	if slices.Contains(modifiers, types.ModifierTimeSensitive) {
		lo, hi = g.cfg.UrgentExpiryRange()
	}

	reward := types.Reward{
		Credits:    tmpl.BaseCredits + g.dice.Intn(100),
		Reputation: tmpl.BaseReputation + g.dice.Intn(10),
	}
	if slices.Contains(modifiers, types.ModifierRewardBonus) {
		reward.Credits = int(math.Floor(float64(reward.Credits) * g.cfg.RewardBonusMultiplier))
	}

	return &types.MissionSpec{
		ID:             uuid.New().String(),
		Title:          fmt.Sprintf("%s Mission", tmpl.Type),
		Type:           tmpl.Type,
		Difficulty:     difficulty,
		Description:    tmpl.Descriptions[g.dice.Intn(len(tmpl.Descriptions))],
		Keywords:       slices.Clone(tmpl.Keywords),
		RequiredStats:  required,
		CoverageZone:   g.coverageZone(),
		SlotCount:      slotCount,
		Reward:         reward,
		Modifiers:      modifiers,
		Episode:        ctx.Episode,
		SpawnTime:      ctx.Now,
		ExpirationTime: ctx.Now.Add(g.dice.DurationBetween(lo, hi)),
		Status:         types.MissionAvailable,
	}
}

// rollSlotCount is 1 half the time, otherwise 2 (70%) or 3
func (g *MissionGenerator) rollSlotCount() int {
	if g.dice.Chance(0.5) {
		return 1
	}
	if g.dice.Chance(0.7) {
		return 2
	}
	return 3
}

func (g *MissionGenerator) requiredStats(tmpl MissionTemplate, episode, slotCount int) types.StatProfile {
	var required types.StatProfile
	for _, s := range types.AllStats {
		required.Set(s, g.dice.Between(g.cfg.StatDrawMin, g.cfg.StatDrawMax))
	}

	// Type bias: raise the focus stats, lower one or two irrelevant ones
	for _, s := range tmpl.Focus {
		required.Set(s, g.dice.Between(g.cfg.FocusStatMin, g.cfg.FocusStatMax))
	}
	if len(tmpl.Irrelevant) > 0 {
		pool := slices.Clone(tmpl.Irrelevant)
		count := g.dice.Between(1, min(2, len(pool)))
		for i := 0; i < count; i++ {
			j := g.dice.Intn(len(pool))
			s := pool[j]
			pool = slices.Delete(pool, j, j+1)
			required.Set(s, required.Get(s)-g.dice.Between(1, 2))
		}
	}
	required = required.FloorAt(1)

	if episode > 1 && g.cfg.EpisodeScaling > 0 {
		factor := 1 + float64(episode-1)*g.cfg.EpisodeScaling
		required = required.Map(func(_ types.Stat, v int) int {
			return int(math.Round(float64(v) * factor))
		}).FloorAt(1)
	}

	// Keep the requirement reachable by a correctly sized team
	target := float64(slotCount * g.cfg.RequirementPerSlot)
	total := float64(required.Total())
	if target > 0 && total > 1.2*target {
		scale := target / total
		required = required.Map(func(_ types.Stat, v int) int {
			return int(math.Floor(float64(v) * scale))
		}).FloorAt(1)
	}

	return required
}

// coverageZone draws one of five shapes: a single arc, two arcs, center plus
// an arc, scattered slices, or a large block
func (g *MissionGenerator) coverageZone() []int {
	n := g.cfg.SliceCount
	set := make(map[int]struct{})
	arc := func(start, length int) {
		for i := 0; i < length; i++ {
			set[(start+i)%n] = struct{}{}
		}
	}

	switch g.dice.Intn(5) {
	case 0:
		arc(g.dice.Intn(n), g.dice.Between(6, 17))
	case 1:
		for i := 0; i < 2; i++ {
			arc(g.dice.Intn(n), g.dice.Between(3, 8))
		}
	case 2:
		set[g.cfg.CenterSlice] = struct{}{}
		arc(g.dice.Intn(n), g.dice.Between(4, 11))
	case 3:
		for i := 0; i < 8; i++ {
			set[g.dice.Intn(n)] = struct{}{}
		}
	default:
		arc(g.dice.Intn(n), 15)
	}

	return sortedSet(set)
}
