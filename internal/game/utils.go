package game

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// DataLoader handles loading game data from files
type DataLoader struct {
	basePath string
}

// NewDataLoader creates a new data loader
func NewDataLoader(basePath string) *DataLoader {
	return &DataLoader{
		basePath: basePath,
	}
}

// RosterFile is the on-disk layout of roster.yaml
type RosterFile struct {
	Heroes []HeroDefinition `yaml:"heroes"`
}

// LoadRoster loads hero definitions from roster.yaml
func (dl *DataLoader) LoadRoster() ([]HeroDefinition, error) {
	path := filepath.Join(dl.basePath, "roster.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read roster file: %w", err)
	}

	var roster RosterFile
	if err := yaml.Unmarshal(data, &roster); err != nil {
		return nil, fmt.Errorf("failed to parse roster data: %w", err)
	}

	if len(roster.Heroes) == 0 {
		return nil, fmt.Errorf("roster file %s declares no heroes", path)
	}

	return roster.Heroes, nil
}

// RandomSource is the randomness the engine draws from. *rand.Rand satisfies it.
type RandomSource interface {
	Intn(n int) int
	Float64() float64
}

// NewSeed generates a seed using crypto/rand
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}

	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// DiceRoller wraps a RandomSource with the draws the engine needs.
// It is not safe for concurrent use; the GameManager lock serializes it.
type DiceRoller struct {
	rng RandomSource
}

// NewDiceRoller creates a dice roller over rng, seeding one when rng is nil
func NewDiceRoller(rng RandomSource) *DiceRoller {
	if rng == nil {
		seed, err := NewSeed()
		if err != nil {
			seed = time.Now().UnixNano()
		}
		rng = rand.New(rand.NewSource(seed))
	}
	return &DiceRoller{rng: rng}
}

// NewSeededDiceRoller creates a deterministic dice roller
func NewSeededDiceRoller(seed int64) *DiceRoller {
	return &DiceRoller{rng: rand.New(rand.NewSource(seed))}
}

// Intn returns a value in [0, n), or 0 when n <= 0
func (dr *DiceRoller) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return dr.rng.Intn(n)
}

// Between returns a value in [min, max]
func (dr *DiceRoller) Between(min, max int) int {
	if max <= min {
		return min
	}
	return min + dr.rng.Intn(max-min+1)
}

// Chance returns true with probability p
func (dr *DiceRoller) Chance(p float64) bool {
	return dr.rng.Float64() < p
}

// Percent returns a uniform draw in [0, 100)
func (dr *DiceRoller) Percent() float64 {
	return dr.rng.Float64() * 100
}

// Uniform returns a uniform draw in [min, max)
func (dr *DiceRoller) Uniform(min, max float64) float64 {
	if max <= min {
		return min
	}
	return min + dr.rng.Float64()*(max-min)
}

// DurationBetween returns a uniform duration in [min, max]
func (dr *DiceRoller) DurationBetween(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(dr.rng.Float64()*float64(max-min))
}

// GameClock drives the engine with wall-clock ticks and periodic snapshots
type GameClock struct {
	gameManager      *GameManager
	tickInterval     time.Duration
	snapshotInterval time.Duration
	stopChan         chan struct{}
	doneChan         chan struct{}
}

// NewGameClock creates a new game clock
func NewGameClock(gameManager *GameManager, tickInterval, snapshotInterval time.Duration) *GameClock {
	return &GameClock{
		gameManager:      gameManager,
		tickInterval:     tickInterval,
		snapshotInterval: snapshotInterval,
		stopChan:         make(chan struct{}),
		doneChan:         make(chan struct{}),
	}
}

// Start begins ticking the engine
func (gc *GameClock) Start() {
	go func() {
		defer close(gc.doneChan)

		ticker := time.NewTicker(gc.tickInterval)
		defer ticker.Stop()

		var snapshots <-chan time.Time
		if gc.snapshotInterval > 0 {
			snapshotTicker := time.NewTicker(gc.snapshotInterval)
			defer snapshotTicker.Stop()
			snapshots = snapshotTicker.C
		}

		for {
			select {
			case now := <-ticker.C:
				gc.gameManager.Tick(now)
			case <-snapshots:
				if err := gc.gameManager.SaveSnapshot(); err != nil {
					gc.gameManager.Logger.Error("Failed to save snapshot", zap.Error(err))
				}
			case <-gc.stopChan:
				return
			}
		}
	}()

	gc.gameManager.Logger.Info("Game clock started",
		zap.Duration("tick_interval", gc.tickInterval),
		zap.Duration("snapshot_interval", gc.snapshotInterval))
}

// Stop halts the clock and waits for the loop to exit
func (gc *GameClock) Stop() {
	close(gc.stopChan)
	<-gc.doneChan
	gc.gameManager.Logger.Info("Game clock stopped")
}
