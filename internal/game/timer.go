package game

import (
	"time"

	"github.com/user/hero-dispatch/internal/types"
)

// Timers tracks mission countdowns. A paused mission keeps its remaining time;
// resuming pushes the expiration forward by however long it was paused.
type Timers struct{}

// Pause freezes the countdown; pausing a paused mission is a no-op
func (Timers) Pause(mission *types.MissionSpec, now time.Time) bool {
	if mission.TimePaused {
		return false
	}
	mission.TimePaused = true
	mission.PausedAt = now
	return true
}

// Resume restarts the countdown; resuming a running mission is a no-op
func (Timers) Resume(mission *types.MissionSpec, now time.Time) bool {
	if !mission.TimePaused {
		return false
	}
	if now.After(mission.PausedAt) {
		mission.ExpirationTime = mission.ExpirationTime.Add(now.Sub(mission.PausedAt))
	}
	mission.TimePaused = false
	mission.PausedAt = time.Time{}
	return true
}

// Remaining is the time left before expiry, frozen while paused
func (Timers) Remaining(mission *types.MissionSpec, now time.Time) time.Duration {
	ref := now
	if mission.TimePaused {
		ref = mission.PausedAt
	}
	left := mission.ExpirationTime.Sub(ref)
	if left < 0 {
		return 0
	}
	return left
}

// Expired reports whether an available, running mission has passed its expiration
func (Timers) Expired(mission *types.MissionSpec, now time.Time) bool {
	if mission.TimePaused || mission.Status != types.MissionAvailable {
		return false
	}
	return !now.Before(mission.ExpirationTime)
}

// Tick marks the mission expired once its countdown runs out and reports whether it did
func (t Timers) Tick(mission *types.MissionSpec, now time.Time) bool {
	if !t.Expired(mission, now) {
		return false
	}
	mission.Status = types.MissionExpired
	return true
}
