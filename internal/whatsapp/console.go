package whatsapp

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/user/hero-dispatch/internal/interfaces"
	"github.com/user/hero-dispatch/internal/types"
	"go.uber.org/zap"
)

// shortIDLen is how much of a mission id the console prints
const shortIDLen = 8

// Console turns chat commands into dispatch operations
type Console struct {
	service interfaces.DispatchService
	logger  *zap.Logger
}

// NewConsole creates a console over service
func NewConsole(service interfaces.DispatchService, logger *zap.Logger) *Console {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Console{service: service, logger: logger}
}

// Handle runs one command and returns the reply
func (c *Console) Handle(sender, command string) string {
	command = cleanCommand(command)
	if !strings.HasPrefix(command, "/") {
		return "Commands start with '/'. Send /help to see them."
	}

	fields := strings.Fields(strings.TrimPrefix(command, "/"))
	if len(fields) == 0 {
		return c.handleHelpCommand()
	}
	name, args := fields[0], fields[1:]

	c.logger.Debug("Console command",
		zap.String("sender", sender),
		zap.String("command", name),
		zap.Strings("args", args))

	switch name {
	case "help", "h":
		return c.handleHelpCommand()
	case "missions", "m":
		return c.handleMissionsCommand()
	case "heroes":
		return c.handleHeroesCommand()
	case "hero":
		return c.handleHeroCommand(args)
	case "preview":
		return c.handlePreviewCommand(args)
	case "dispatch", "d":
		return c.handleDispatchCommand(args)
	case "review":
		return c.handleReviewCommand(args)
	case "allocate":
		return c.handleAllocateCommand(args)
	case "pause":
		return c.handleTimerCommand(args, true)
	case "resume":
		return c.handleTimerCommand(args, false)
	case "status":
		return c.handleStatusCommand()
	}

	return "Unknown command. Send /help to see the available commands."
}

func (c *Console) handleHelpCommand() string {
	var b strings.Builder
	b.WriteString("🚨 HERO DISPATCH COMMANDS 🚨\n\n")
	b.WriteString("CALLS:\n")
	b.WriteString("/missions - open calls\n")
	b.WriteString("/pause [call] - freeze a call timer\n")
	b.WriteString("/resume [call] - restart a call timer\n\n")
	b.WriteString("HEROES:\n")
	b.WriteString("/heroes - roster and status\n")
	b.WriteString("/hero [hero] - hero details\n")
	b.WriteString("/review [hero] - read a mission report\n")
	b.WriteString("/allocate [hero] [stat] [points] - spend skill points\n\n")
	b.WriteString("DISPATCH:\n")
	b.WriteString("/preview [call] [hero...] - success chance\n")
	b.WriteString("/dispatch [call] [hero...] - send a team\n")
	b.WriteString("/status - shift summary\n\n")
	b.WriteString("Calls can be given by list number or id prefix.")
	return b.String()
}

func (c *Console) handleMissionsCommand() string {
	missions := c.service.ListAvailableMissions()
	if len(missions) == 0 {
		return "No open calls right now."
	}

	var b strings.Builder
	b.WriteString("📟 OPEN CALLS\n")
	for i, m := range missions {
		fmt.Fprintf(&b, "\n%d. %s [%s] %s\n", i+1, m.Title, shortID(m.ID), m.Difficulty)
		fmt.Fprintf(&b, "   Team: %d | Needs: %s\n", m.SlotCount, formatStats(m.RequiredStats))
		fmt.Fprintf(&b, "   Reward: %d credits, %d rep", m.Reward.Credits, m.Reward.Reputation)
		if m.TimePaused {
			b.WriteString(" | ⏸ paused")
		} else {
			fmt.Fprintf(&b, " | expires %s", m.ExpirationTime.Format("15:04:05"))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (c *Console) handleHeroesCommand() string {
	heroes := c.service.ListHeroes()
	if len(heroes) == 0 {
		return "The roster is empty."
	}

	var b strings.Builder
	b.WriteString("🦸 ROSTER\n\n")
	for _, h := range heroes {
		fmt.Fprintf(&b, "%s (%s) Lv%d - %s", h.Name, h.ID, h.Level, h.Status)
		if h.NeedsReview {
			b.WriteString(" 📋 report waiting")
		}
		if h.SkillPoints > 0 {
			fmt.Fprintf(&b, " ⭐ %d SP", h.SkillPoints)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (c *Console) handleHeroCommand(args []string) string {
	if len(args) != 1 {
		return "Usage: /hero [hero]"
	}
	hero, err := c.resolveHero(args[0])
	if err != nil {
		return err.Error()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🦸 %s - %s\n", hero.Name, hero.Archetype)
	fmt.Fprintf(&b, "Level %d (%d/%d XP), %d skill points\n", hero.Level, hero.XP, hero.XPToNext, hero.SkillPoints)
	fmt.Fprintf(&b, "Status: %s\n", hero.Status)
	fmt.Fprintf(&b, "Stats: %s\n", formatStats(hero.Stats))
	if hero.Power != types.PowerNone {
		fmt.Fprintf(&b, "Power: %s\n", hero.Power)
	}
	fmt.Fprintf(&b, "Record: %d won, %d lost", hero.MissionsCompleted, hero.MissionsFailed)
	return b.String()
}

func (c *Console) handlePreviewCommand(args []string) string {
	if len(args) < 2 {
		return "Usage: /preview [call] [hero...]"
	}
	mission, heroIDs, err := c.resolveTeam(args)
	if err != nil {
		return err.Error()
	}

	preview, err := c.service.ComputeSuccessPreview(heroIDs, mission.ID)
	if err != nil {
		return fmt.Sprintf("Cannot preview: %v", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🎯 %s: %.0f%% success\n", mission.Title, preview.Probability)
	fmt.Fprintf(&b, "Team: %s\n", formatStats(preview.TeamStats))
	fmt.Fprintf(&b, "Needs: %s\n", formatStats(preview.RequiredStats))
	fmt.Fprintf(&b, "Coverage: %.0f%%", preview.Coverage)
	if preview.Synergy != 0 {
		fmt.Fprintf(&b, " | Synergy: +%.0f", preview.Synergy)
	}
	if preview.Sabotage != 0 {
		fmt.Fprintf(&b, " | Sabotage: -%.0f", preview.Sabotage)
	}
	return b.String()
}

func (c *Console) handleDispatchCommand(args []string) string {
	if len(args) < 2 {
		return "Usage: /dispatch [call] [hero...]"
	}
	mission, heroIDs, err := c.resolveTeam(args)
	if err != nil {
		return err.Error()
	}

	result := c.service.Dispatch(mission.ID, heroIDs)
	if !result.Accepted {
		return fmt.Sprintf("❌ Dispatch refused: %s", result.Reason)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🚀 Team sent to %s (%.0f%% chance)\n", mission.Title, result.Probability)
	if result.Disruption != nil {
		fmt.Fprintf(&b, "⚠️ %s\n", result.Disruption.Text)
	}
	fmt.Fprintf(&b, "Back at %s. Use /review when they return.", result.ResolvesAt.Format("15:04:05"))
	if result.ShiftEnded {
		b.WriteString("\n🏁 Shift over! Send /status for the summary.")
	}
	return b.String()
}

func (c *Console) handleReviewCommand(args []string) string {
	if len(args) != 1 {
		return "Usage: /review [hero]"
	}
	hero, err := c.resolveHero(args[0])
	if err != nil {
		return err.Error()
	}

	report, err := c.service.ReviewMissionResult(hero.ID)
	if err != nil {
		return fmt.Sprintf("Cannot review %s: %v", hero.Name, err)
	}

	outcome := "✅ SUCCESS"
	if !report.Success {
		outcome = "❌ FAILURE"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📋 %s - %s\n%s (%.0f%% chance)\n", hero.Name, report.MissionTitle, outcome, report.Probability)
	fmt.Fprintf(&b, "XP: +%d", report.XPGained)
	if report.LeveledUp {
		b.WriteString(" ⬆️ level up!")
	}
	if report.SabotageOccurred {
		b.WriteString("\nThe team turned on itself.")
	}
	if report.Injury != "" {
		fmt.Fprintf(&b, "\nCame back %s.", report.Injury)
	}
	return b.String()
}

func (c *Console) handleAllocateCommand(args []string) string {
	if len(args) != 3 {
		return "Usage: /allocate [hero] [stat] [points]"
	}
	hero, err := c.resolveHero(args[0])
	if err != nil {
		return err.Error()
	}
	points, err := strconv.Atoi(args[2])
	if err != nil {
		return "Points must be a number."
	}

	updated, err := c.service.AllocateStat(hero.ID, args[1], points)
	if err != nil {
		return fmt.Sprintf("Cannot allocate: %v", err)
	}
	return fmt.Sprintf("⭐ %s: %s (%d SP left)", updated.Name, formatStats(updated.Stats), updated.SkillPoints)
}

func (c *Console) handleTimerCommand(args []string, pause bool) string {
	if len(args) != 1 {
		if pause {
			return "Usage: /pause [call]"
		}
		return "Usage: /resume [call]"
	}
	mission, err := c.resolveMission(args[0])
	if err != nil {
		return err.Error()
	}

	if pause {
		if err := c.service.PauseMission(mission.ID); err != nil {
			return fmt.Sprintf("Cannot pause: %v", err)
		}
		return fmt.Sprintf("⏸ %s paused", mission.Title)
	}
	if err := c.service.ResumeMission(mission.ID); err != nil {
		return fmt.Sprintf("Cannot resume: %v", err)
	}
	return fmt.Sprintf("▶️ %s resumed", mission.Title)
}

func (c *Console) handleStatusCommand() string {
	s := c.service.Summary()

	var b strings.Builder
	fmt.Fprintf(&b, "📊 DAY %d, SHIFT %d\n\n", s.Day, s.Shift)
	fmt.Fprintf(&b, "Rank: %s\n", s.RankTitle)
	fmt.Fprintf(&b, "Credits: %d | Reputation: %d\n", s.Credits, s.Reputation)
	fmt.Fprintf(&b, "This shift: %d won, %d lost, %d missed\n", s.Completed, s.Failed, s.Missed)
	fmt.Fprintf(&b, "Open calls: %d | In the field: %d\n", s.AvailableMissions, s.ActiveMissions)
	fmt.Fprintf(&b, "Available heroes: %d", s.HeroesByStatus[types.HeroAvailable])
	if s.PendingReviews > 0 {
		fmt.Fprintf(&b, "\nReports waiting: %d", s.PendingReviews)
	}
	if !s.ShiftActive {
		b.WriteString("\nBetween shifts.")
	}
	return b.String()
}

// resolveTeam reads a mission reference followed by hero references
func (c *Console) resolveTeam(args []string) (*types.MissionSpec, []string, error) {
	mission, err := c.resolveMission(args[0])
	if err != nil {
		return nil, nil, err
	}

	heroIDs := make([]string, 0, len(args)-1)
	for _, ref := range args[1:] {
		hero, err := c.resolveHero(ref)
		if err != nil {
			return nil, nil, err
		}
		heroIDs = append(heroIDs, hero.ID)
	}
	return mission, heroIDs, nil
}

// resolveMission accepts a 1-based list number, a full id or a unique id prefix
func (c *Console) resolveMission(ref string) (*types.MissionSpec, error) {
	missions := c.service.ListAvailableMissions()

	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(missions) {
			return nil, fmt.Errorf("No call number %d. Send /missions to see the list.", n)
		}
		return missions[n-1], nil
	}

	var match *types.MissionSpec
	for _, m := range missions {
		if m.ID == ref {
			return m, nil
		}
		if strings.HasPrefix(m.ID, ref) {
			if match != nil {
				return nil, fmt.Errorf("Call %q is ambiguous, use more characters.", ref)
			}
			match = m
		}
	}
	if match == nil {
		return nil, fmt.Errorf("Call %q not found.", ref)
	}
	return match, nil
}

// resolveHero accepts an id or a case-insensitive name without spaces
func (c *Console) resolveHero(ref string) (*types.Hero, error) {
	hero, err := c.service.GetHero(ref)
	if err == nil {
		return hero, nil
	}

	for _, h := range c.service.ListHeroes() {
		if strings.EqualFold(strings.ReplaceAll(h.Name, " ", ""), ref) {
			return h, nil
		}
	}
	return nil, fmt.Errorf("Hero %q not found.", ref)
}

func shortID(id string) string {
	if len(id) > shortIDLen {
		return id[:shortIDLen]
	}
	return id
}

func formatStats(p types.StatProfile) string {
	parts := make([]string, 0, len(types.AllStats))
	for _, s := range types.AllStats {
		parts = append(parts, fmt.Sprintf("%s %d", strings.ToUpper(string(s)[:3]), p.Get(s)))
	}
	return strings.Join(parts, " ")
}

// cleanCommand normalizes case, spacing and accents
func cleanCommand(command string) string {
	command = strings.ToLower(strings.TrimSpace(command))
	return accentReplacer.Replace(command)
}

var accentReplacer = strings.NewReplacer(
	"á", "a", "à", "a", "â", "a", "ã", "a",
	"é", "e", "ê", "e",
	"í", "i",
	"ó", "o", "ô", "o", "õ", "o",
	"ú", "u",
	"ç", "c",
)
