package interfaces

import "github.com/user/hero-dispatch/internal/types"

// MessageSender defines the interface for sending messages
type MessageSender interface {
	SendMessage(phoneNumber, recipient, message string) (string, error)
}

// EventSink receives engine events after the state lock is released
type EventSink interface {
	Publish(event types.GameEvent)
}

// DispatchService defines the interface for dispatch operations
type DispatchService interface {
	ListAvailableMissions() []*types.MissionSpec
	GetMission(missionID string) (*types.MissionSpec, error)
	ListHeroes() []*types.Hero
	GetHero(heroID string) (*types.Hero, error)
	GetTeamStats(heroIDs []string) (types.StatProfile, error)
	ComputeCoverage(heroIDs []string, missionID string) (float64, error)
	ComputeSuccessPreview(heroIDs []string, missionID string) (types.SuccessPreview, error)
	Dispatch(missionID string, heroIDs []string) types.DispatchResult
	ReviewMissionResult(heroID string) (*types.MissionResult, error)
	AllocateStat(heroID, stat string, points int) (*types.Hero, error)
	PauseMission(missionID string) error
	ResumeMission(missionID string) error
	Summary() types.GameSummary
}
