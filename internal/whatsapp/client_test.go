package whatsapp

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/user/hero-dispatch/internal/types"
	"go.uber.org/zap"
)

// Mock DispatchService for testing
type MockDispatchService struct {
	mock.Mock
}

func (m *MockDispatchService) ListAvailableMissions() []*types.MissionSpec {
	args := m.Called()
	return args.Get(0).([]*types.MissionSpec)
}

func (m *MockDispatchService) GetMission(missionID string) (*types.MissionSpec, error) {
	args := m.Called(missionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.MissionSpec), args.Error(1)
}

func (m *MockDispatchService) ListHeroes() []*types.Hero {
	args := m.Called()
	return args.Get(0).([]*types.Hero)
}

func (m *MockDispatchService) GetHero(heroID string) (*types.Hero, error) {
	args := m.Called(heroID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Hero), args.Error(1)
}

func (m *MockDispatchService) GetTeamStats(heroIDs []string) (types.StatProfile, error) {
	args := m.Called(heroIDs)
	return args.Get(0).(types.StatProfile), args.Error(1)
}

func (m *MockDispatchService) ComputeCoverage(heroIDs []string, missionID string) (float64, error) {
	args := m.Called(heroIDs, missionID)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockDispatchService) ComputeSuccessPreview(heroIDs []string, missionID string) (types.SuccessPreview, error) {
	args := m.Called(heroIDs, missionID)
	return args.Get(0).(types.SuccessPreview), args.Error(1)
}

func (m *MockDispatchService) Dispatch(missionID string, heroIDs []string) types.DispatchResult {
	args := m.Called(missionID, heroIDs)
	return args.Get(0).(types.DispatchResult)
}

func (m *MockDispatchService) ReviewMissionResult(heroID string) (*types.MissionResult, error) {
	args := m.Called(heroID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.MissionResult), args.Error(1)
}

func (m *MockDispatchService) AllocateStat(heroID, stat string, points int) (*types.Hero, error) {
	args := m.Called(heroID, stat, points)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Hero), args.Error(1)
}

func (m *MockDispatchService) PauseMission(missionID string) error {
	return m.Called(missionID).Error(0)
}

func (m *MockDispatchService) ResumeMission(missionID string) error {
	return m.Called(missionID).Error(0)
}

func (m *MockDispatchService) Summary() types.GameSummary {
	return m.Called().Get(0).(types.GameSummary)
}

// Mock MessageSender for testing
type MockMessageSender struct {
	mock.Mock
}

func (m *MockMessageSender) SendMessage(phoneNumber, recipient, message string) (string, error) {
	args := m.Called(phoneNumber, recipient, message)
	return args.String(0), args.Error(1)
}

var errHeroNotFound = errors.New("hero not found")

func testMissions() []*types.MissionSpec {
	return []*types.MissionSpec{
		{
			ID:             "3f2a9c10-aaaa-4bbb-8ccc-000000000001",
			Title:          "Bank Heist",
			Difficulty:     types.DifficultyHard,
			SlotCount:      2,
			RequiredStats:  types.StatProfile{Combat: 6, Vigor: 3, Mobility: 4, Charisma: 1, Intellect: 2},
			Reward:         types.Reward{Credits: 200, Reputation: 20},
			ExpirationTime: time.Date(2025, 3, 14, 9, 1, 30, 0, time.UTC),
		},
		{
			ID:         "7b1d0e22-bbbb-4ccc-8ddd-000000000002",
			Title:      "Cat in a Tree",
			Difficulty: types.DifficultyEasy,
			SlotCount:  1,
			TimePaused: true,
		},
	}
}

func testHeroes() []*types.Hero {
	return []*types.Hero{
		{ID: "punchup", Name: "Punch Up", Archetype: "Tank", Level: 2, Status: types.HeroAvailable,
			Stats: types.StatProfile{Combat: 3, Vigor: 4, Mobility: 1, Charisma: 3, Intellect: 1}},
		{ID: "prism", Name: "Prism", Archetype: "Duplicator", Level: 1, Status: types.HeroResting, NeedsReview: true},
	}
}

func newTestConsole() (*Console, *MockDispatchService) {
	service := new(MockDispatchService)
	return NewConsole(service, zap.NewNop()), service
}

func TestConsoleHelpAndUnknown(t *testing.T) {
	// Setup
	console, service := newTestConsole()

	response := console.Handle("5521999999999", "/help")
	assert.Contains(t, response, "HERO DISPATCH COMMANDS")
	assert.Contains(t, response, "/dispatch [call] [hero...]")
	assert.Contains(t, response, "/review [hero]")

	assert.Contains(t, console.Handle("5521999999999", "missions"), "Commands start with '/'")
	assert.Contains(t, console.Handle("5521999999999", "/teleport"), "Unknown command")

	service.AssertExpectations(t)
}

func TestConsoleListsMissionsAndHeroes(t *testing.T) {
	// Setup
	console, service := newTestConsole()
	service.On("ListAvailableMissions").Return(testMissions())
	service.On("ListHeroes").Return(testHeroes())

	response := console.Handle("5521999999999", "/MISSIONS")
	assert.Contains(t, response, "1. Bank Heist [3f2a9c10] Hard")
	assert.Contains(t, response, "COM 6 VIG 3 MOB 4 CHA 1 INT 2")
	assert.Contains(t, response, "expires 09:01:30")
	assert.Contains(t, response, "2. Cat in a Tree")
	assert.Contains(t, response, "paused")

	response = console.Handle("5521999999999", "/heroes")
	assert.Contains(t, response, "Punch Up (punchup) Lv2 - available")
	assert.Contains(t, response, "Prism (prism) Lv1 - resting 📋 report waiting")

	service.AssertExpectations(t)
}

func TestConsoleDispatch(t *testing.T) {
	// Setup
	console, service := newTestConsole()
	missions := testMissions()
	heroes := testHeroes()
	service.On("ListAvailableMissions").Return(missions)
	service.On("GetHero", "punchup").Return(heroes[0], nil)
	service.On("GetHero", "prism").Return(heroes[1], nil)

	service.On("Dispatch", missions[0].ID, []string{"punchup"}).Return(types.DispatchResult{
		Accepted:    true,
		MissionID:   missions[0].ID,
		Probability: 72.4,
		ResolvesAt:  time.Date(2025, 3, 14, 9, 0, 12, 0, time.UTC),
		Disruption:  &types.DisruptionOutcome{Text: "Structural Collapse: the team pulled through"},
	})
	service.On("Dispatch", missions[0].ID, []string{"prism"}).Return(types.DispatchResult{
		Reason: "hero is not available",
	})

	// by list number
	response := console.Handle("5521999999999", "/dispatch 1 punchup")
	assert.Contains(t, response, "Team sent to Bank Heist (72% chance)")
	assert.Contains(t, response, "Structural Collapse")
	assert.Contains(t, response, "Back at 09:00:12")

	// by id prefix
	response = console.Handle("5521999999999", "/dispatch 3f2a prism")
	assert.Contains(t, response, "Dispatch refused: hero is not available")

	assert.Contains(t, console.Handle("5521999999999", "/dispatch 9 punchup"), "No call number 9")
	assert.Contains(t, console.Handle("5521999999999", "/dispatch ffff punchup"), "not found")
	assert.Contains(t, console.Handle("5521999999999", "/dispatch 1"), "Usage: /dispatch")

	service.AssertExpectations(t)
}

func TestConsoleResolvesHeroByName(t *testing.T) {
	// Setup
	console, service := newTestConsole()
	heroes := testHeroes()
	service.On("GetHero", "punchup").Return(heroes[0], nil)
	service.On("GetHero", "punch").Return(nil, errHeroNotFound)
	service.On("GetHero", "nobody").Return(nil, errHeroNotFound)
	service.On("ListHeroes").Return(heroes)

	response := console.Handle("5521999999999", "/hero punchup")
	assert.Contains(t, response, "Punch Up - Tank")
	assert.Contains(t, response, "COM 3 VIG 4")

	assert.Contains(t, console.Handle("5521999999999", "/hero punch"), `Hero "punch" not found`)
	assert.Contains(t, console.Handle("5521999999999", "/hero nobody"), "not found")

	service.AssertExpectations(t)
}

func TestConsolePreview(t *testing.T) {
	// Setup
	console, service := newTestConsole()
	missions := testMissions()
	heroes := testHeroes()
	service.On("ListAvailableMissions").Return(missions)
	service.On("GetHero", "punchup").Return(heroes[0], nil)
	service.On("GetHero", "prism").Return(heroes[1], nil)
	service.On("ComputeSuccessPreview", []string{"punchup", "prism"}, missions[0].ID).Return(types.SuccessPreview{
		Probability: 64,
		Coverage:    50,
		Synergy:     15,
		TeamStats:   types.StatProfile{Combat: 7},
	}, nil)

	response := console.Handle("5521999999999", "/preview 1 punchup prism")

	assert.Contains(t, response, "Bank Heist: 64% success")
	assert.Contains(t, response, "Coverage: 50%")
	assert.Contains(t, response, "Synergy: +15")
	assert.NotContains(t, response, "Sabotage")
	service.AssertExpectations(t)
}

func TestConsoleReview(t *testing.T) {
	// Setup
	console, service := newTestConsole()
	heroes := testHeroes()
	service.On("GetHero", "prism").Return(heroes[1], nil)
	service.On("GetHero", "punchup").Return(heroes[0], nil)
	service.On("ReviewMissionResult", "prism").Return(&types.MissionResult{
		MissionTitle: "Bank Heist",
		Success:      false,
		Probability:  41,
		XPGained:     0,
		Injury:       types.HeroInjured,
	}, nil)
	service.On("ReviewMissionResult", "punchup").Return(nil, errors.New("no mission result to review"))

	response := console.Handle("5521999999999", "/review prism")
	assert.Contains(t, response, "Prism - Bank Heist")
	assert.Contains(t, response, "FAILURE (41% chance)")
	assert.Contains(t, response, "Came back injured.")

	response = console.Handle("5521999999999", "/review punchup")
	assert.Contains(t, response, "Cannot review Punch Up: no mission result to review")

	service.AssertExpectations(t)
}

func TestConsoleAllocate(t *testing.T) {
	// Setup
	console, service := newTestConsole()
	heroes := testHeroes()
	service.On("GetHero", "punchup").Return(heroes[0], nil)
	updated := heroes[0].Clone()
	updated.Stats.Vigor = 6
	service.On("AllocateStat", "punchup", "vigor", 2).Return(updated, nil)

	response := console.Handle("5521999999999", "/allocate punchup vigor 2")
	assert.Contains(t, response, "Punch Up: COM 3 VIG 6")

	assert.Contains(t, console.Handle("5521999999999", "/allocate punchup vigor lots"), "Points must be a number")
	assert.Contains(t, console.Handle("5521999999999", "/allocate punchup"), "Usage: /allocate")

	service.AssertExpectations(t)
}

func TestConsolePauseResume(t *testing.T) {
	// Setup
	console, service := newTestConsole()
	missions := testMissions()
	service.On("ListAvailableMissions").Return(missions)
	service.On("PauseMission", missions[0].ID).Return(nil)
	service.On("ResumeMission", missions[1].ID).Return(nil)
	service.On("ResumeMission", missions[0].ID).Return(errors.New("mission is not paused"))

	assert.Contains(t, console.Handle("5521999999999", "/pause 1"), "Bank Heist paused")
	assert.Contains(t, console.Handle("5521999999999", "/resume 2"), "Cat in a Tree resumed")
	assert.Contains(t, console.Handle("5521999999999", "/resume 1"), "Cannot resume: mission is not paused")
	assert.Contains(t, console.Handle("5521999999999", "/pause"), "Usage: /pause")

	service.AssertExpectations(t)
}

func TestConsoleStatus(t *testing.T) {
	// Setup
	console, service := newTestConsole()
	service.On("Summary").Return(types.GameSummary{
		Credits:           450,
		Reputation:        32,
		Day:               2,
		Shift:             1,
		ShiftActive:       true,
		Completed:         3,
		Failed:            1,
		Missed:            2,
		RankTitle:         "Junior Dispatcher",
		AvailableMissions: 4,
		ActiveMissions:    1,
		HeroesByStatus:    map[types.HeroStatus]int{types.HeroAvailable: 5},
		PendingReviews:    2,
	})

	response := console.Handle("5521999999999", "/status")

	assert.Contains(t, response, "DAY 2, SHIFT 1")
	assert.Contains(t, response, "Rank: Junior Dispatcher")
	assert.Contains(t, response, "Credits: 450 | Reputation: 32")
	assert.Contains(t, response, "3 won, 1 lost, 2 missed")
	assert.Contains(t, response, "Available heroes: 5")
	assert.Contains(t, response, "Reports waiting: 2")
	assert.NotContains(t, response, "Between shifts")
	service.AssertExpectations(t)
}

func TestConsoleCommand(t *testing.T) {
	tests := []struct {
		name    string
		content string
		isGroup bool
		want    string
		ok      bool
	}{
		{"private command", " /status ", false, "/status", true},
		{"private chatter", "hello", false, "", false},
		{"group command", "/ missions", true, "/missions", true},
		{"group without space", "/missions", true, "", false},
		{"empty", "", false, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := consoleCommand(tt.content, tt.isGroup)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestCleanCommand(t *testing.T) {
	assert.Equal(t, "/missoes 1 coupe", cleanCommand("  /MISSÕES 1 Coupé "))
}

func TestParseJID(t *testing.T) {
	jid, err := parseJID("5521999999999")
	require.NoError(t, err)
	assert.Equal(t, "5521999999999", jid.User)
	assert.Equal(t, "s.whatsapp.net", jid.Server)

	jid, err = parseJID("123456789@g.us")
	require.NoError(t, err)
	assert.Equal(t, "g.us", jid.Server)
}

func TestNotifierForwardsSelectedEvents(t *testing.T) {
	// Setup
	sender := new(MockMessageSender)
	sender.On("SendMessage", "bot", "5521999999999", "📟 New call: Bank Heist (Hard) needs 2 hero(es) [3f2a9c10]").Return("msg1", nil)
	sender.On("SendMessage", "bot", "5521999999999", "❌ Bank Heist failed").Return("", errors.New("offline"))
	sender.On("SendMessage", "bot", "5521999999999", "🏁 Shift 1 ended").Return("msg3", nil)

	notifier := NewNotifier(sender, "bot", "5521999999999", zap.NewNop())

	notifier.Publish(types.GameEvent{Kind: types.EventMissionSpawned, MissionID: testMissions()[0].ID,
		Message: "Bank Heist (Hard) needs 2 hero(es)"})
	notifier.Publish(types.GameEvent{Kind: types.EventHeroReturning, Message: "ignored"})
	notifier.Publish(types.GameEvent{Kind: types.EventMissionResolved, Message: "Bank Heist failed",
		Data: map[string]interface{}{"success": false}})
	notifier.Publish(types.GameEvent{Kind: types.EventShiftEnded, Message: "Shift 1 ended"})
	notifier.Close()

	// publishing after close is ignored
	notifier.Publish(types.GameEvent{Kind: types.EventShiftEnded, Message: "late"})

	sender.AssertExpectations(t)
	sender.AssertNumberOfCalls(t, "SendMessage", 3)
}

func TestSessionFiles(t *testing.T) {
	// Setup
	dir := t.TempDir()
	older := filepath.Join(dir, sessionFileName("5521999999999", "old-session"))
	newer := filepath.Join(dir, sessionFileName("5521999999999", "new-session"))
	other := filepath.Join(dir, sessionFileName("5511888888888", "abc"))
	for _, f := range []string{older, newer, other} {
		require.NoError(t, os.WriteFile(f, []byte("db"), 0644))
	}
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(older, past, past))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "store_garbage.db"), nil, 0644))

	sm := NewSessionManager(dir, zap.NewNop())
	sessions, err := sm.ListSessions()
	require.NoError(t, err)
	assert.Len(t, sessions, 3)

	latest, err := latestSessionFiles(dir, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"5521999999999": "new-session",
		"5511888888888": "abc",
	}, latest)
	_, err = os.Stat(older)
	assert.True(t, os.IsNotExist(err), "stale session removed")

	require.NoError(t, sm.DeleteSession("5511888888888", "abc"))
	require.NoError(t, sm.DeleteSession("5511888888888", "abc"), "deleting twice is fine")
	sessions, err = sm.ListSessions()
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "new-session", sessions[0].ID)
}

func TestParseSessionFileName(t *testing.T) {
	phone, session, ok := parseSessionFileName("store_5521999999999_3f2a9c10-aaaa.db")
	assert.True(t, ok)
	assert.Equal(t, "5521999999999", phone)
	assert.Equal(t, "3f2a9c10-aaaa", session)

	for _, bad := range []string{"store_.db", "store_5521.db", "other_1_2.db", "store_1_2.sqlite"} {
		_, _, ok := parseSessionFileName(bad)
		assert.False(t, ok, bad)
	}
}

func TestWriteQRCode(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "qrcodes")

	path, err := WriteQRCode(dir, "5521999999999", "2@abc,def,ghi")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "5521999999999.png"), path)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}
