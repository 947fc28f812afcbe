package game

import "github.com/user/hero-dispatch/internal/types"

// DisruptionChoice is one way a team can react to a disruption
type DisruptionChoice struct {
	Text        string
	Stat        types.Stat
	Value       int
	SuccessText string
	FailureText string
}

// Disruption is a complication that can hit a mission mid-dispatch
type Disruption struct {
	Name        string
	Description string
	Choices     []DisruptionChoice
}

var disruptions = []Disruption{
	{
		Name:        "Structural Collapse",
		Description: "The building begins to crumble around your team!",
		Choices: []DisruptionChoice{
			{"Tough it out", types.StatVigor, 3, "Your team pushes through the debris!", "The team is overwhelmed by the collapse."},
			{"Find another route", types.StatMobility, 4, "You quickly navigate to safety!", "The alternate path is blocked."},
			{"Use technology", types.StatIntellect, 4, "Tech solutions clear the way!", "The technology fails under pressure."},
		},
	},
	{
		Name:        "Enemy Ambush",
		Description: "Hostile forces have set a trap!",
		Choices: []DisruptionChoice{
			{"Fight through", types.StatCombat, 4, "Your team defeats the ambushers!", "The ambush overwhelms your team."},
			{"Retreat and regroup", types.StatMobility, 5, "You escape and find a better position!", "The retreat is cut off."},
			{"Negotiate", types.StatCharisma, 4, "Your words turn enemies into allies!", "The negotiation fails."},
		},
	},
	{
		Name:        "Mystical Barrier",
		Description: "An arcane force field blocks your path!",
		Choices: []DisruptionChoice{
			{"Break through with force", types.StatCombat, 5, "Raw power shatters the barrier!", "The barrier is too strong."},
			{"Dispel with magic", types.StatIntellect, 5, "Your magic unravels the barrier!", "The magic is too complex."},
			{"Find the source", types.StatIntellect, 4, "You locate and disable the source!", "The source is well hidden."},
		},
	},
	{
		Name:        "Environmental Hazard",
		Description: "Toxic gas fills the area!",
		Choices: []DisruptionChoice{
			{"Endure the exposure", types.StatVigor, 4, "Your team's resilience overcomes the toxin!", "The team is weakened by the gas."},
			{"Create a barrier", types.StatIntellect, 5, "You create a protective field!", "The barrier doesn't hold."},
			{"Find clean air", types.StatMobility, 4, "You quickly reach safety!", "The toxic area is too large."},
		},
	},
	{
		Name:        "Technological Failure",
		Description: "Critical systems are malfunctioning!",
		Choices: []DisruptionChoice{
			{"Force the systems", types.StatCombat, 3, "Brute force gets things working!", "The systems are too damaged."},
			{"Repair the systems", types.StatIntellect, 5, "Your technical expertise fixes everything!", "The damage is too extensive."},
			{"Work around it", types.StatIntellect, 4, "You find an alternative solution!", "No alternatives are available."},
		},
	},
	{
		Name:        "Mental Attack",
		Description: "Psionic waves assault your team's minds!",
		Choices: []DisruptionChoice{
			{"Resist with willpower", types.StatVigor, 4, "Your mental fortitude protects you!", "The attack overwhelms your minds."},
			{"Counter with telepathy", types.StatIntellect, 5, "You turn the attack back on the source!", "The attack is too powerful."},
			{"Shield your thoughts", types.StatIntellect, 4, "Mental barriers protect the team!", "The barriers are breached."},
		},
	},
	{
		Name:        "Time Distortion",
		Description: "Reality itself seems to be warping!",
		Choices: []DisruptionChoice{
			{"Anchor yourself", types.StatVigor, 5, "Your stability resists the distortion!", "The distortion pulls you apart."},
			{"Navigate the waves", types.StatMobility, 5, "You move through the distortion safely!", "The waves are too chaotic."},
			{"Understand the pattern", types.StatIntellect, 5, "You predict and avoid the worst effects!", "The pattern is too complex."},
		},
	},
	{
		Name:        "Resource Depletion",
		Description: "Your team is running low on supplies!",
		Choices: []DisruptionChoice{
			{"Push forward anyway", types.StatVigor, 5, "Sheer determination carries you through!", "Exhaustion takes its toll."},
			{"Scavenge for resources", types.StatMobility, 4, "You find what you need!", "Nothing useful can be found."},
			{"Improvise solutions", types.StatIntellect, 4, "Creative thinking solves the problem!", "No solutions present themselves."},
		},
	},
}

// Disrupt may hit the dispatch with a disruption. The team answers with a
// random choice; meeting its stat threshold raises the probability by the
// configured swing, missing it lowers it by the same amount.
func (c *SuccessCalculator) Disrupt(b *SuccessBreakdown) *types.DisruptionOutcome {
	if !c.dice.Chance(c.cfg.DisruptionChance) {
		return nil
	}

	d := disruptions[c.dice.Intn(len(disruptions))]
	choice := d.Choices[c.dice.Intn(len(d.Choices))]

	result := &types.DisruptionOutcome{
		Name:   d.Name,
		Choice: choice.Text,
		Passed: b.TeamStats.Get(choice.Stat) >= choice.Value,
	}
	if result.Passed {
		result.Swing = c.cfg.DisruptionSwing
		result.Text = choice.SuccessText
	} else {
		result.Swing = -c.cfg.DisruptionSwing
		result.Text = choice.FailureText
	}

	c.Adjust(b, result.Swing)
	return result
}
