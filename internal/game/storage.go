package game

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/user/hero-dispatch/internal/types"
)

// ErrNoSnapshot is returned when no snapshot has been written yet
var ErrNoSnapshot = errors.New("no game state snapshot")

const snapshotVersion = 1

// snapshotHeader is the first JSON line of a snapshot
type snapshotHeader struct {
	Version int       `json:"version"`
	SavedAt time.Time `json:"saved_at"`
	Day     int       `json:"day"`
	Shift   int       `json:"shift"`
}

// GameStateStorage handles persistence of game state as zstd-compressed JSON
type GameStateStorage struct {
	savePath  string
	stateLock sync.Mutex
}

// NewGameStateStorage creates a new game state storage
func NewGameStateStorage(savePath string) *GameStateStorage {
	return &GameStateStorage{
		savePath: savePath,
	}
}

// SaveGameState writes the state to a temporary file and renames it over the snapshot
func (gss *GameStateStorage) SaveGameState(state *types.GameState) error {
	gss.stateLock.Lock()
	defer gss.stateLock.Unlock()

	// Create directory if it doesn't exist
	dir := filepath.Dir(gss.savePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp := gss.savePath + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create snapshot file: %w", err)
	}

	if err := writeSnapshot(f, state); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close snapshot file: %w", err)
	}

	if err := os.Rename(tmp, gss.savePath); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

func writeSnapshot(f *os.File, state *types.GameState) error {
	zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("failed to create zstd writer: %w", err)
	}
	w := bufio.NewWriter(zw)
	enc := json.NewEncoder(w)

	header := snapshotHeader{
		Version: snapshotVersion,
		SavedAt: time.Now().UTC(),
		Day:     state.Day,
		Shift:   state.Shift,
	}
	if err := enc.Encode(header); err != nil {
		zw.Close()
		return fmt.Errorf("failed to encode snapshot header: %w", err)
	}
	if err := enc.Encode(state); err != nil {
		zw.Close()
		return fmt.Errorf("failed to encode game state: %w", err)
	}

	if err := w.Flush(); err != nil {
		zw.Close()
		return fmt.Errorf("failed to flush snapshot: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finish snapshot: %w", err)
	}
	return nil
}

// LoadGameState reads the snapshot back, returning ErrNoSnapshot when there is none
func (gss *GameStateStorage) LoadGameState() (*types.GameState, error) {
	gss.stateLock.Lock()
	defer gss.stateLock.Unlock()

	f, err := os.Open(gss.savePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd reader: %w", err)
	}
	defer zr.Close()

	dec := json.NewDecoder(bufio.NewReader(zr))

	var header snapshotHeader
	if err := dec.Decode(&header); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot header: %w", err)
	}
	if header.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", header.Version)
	}

	var state types.GameState
	if err := dec.Decode(&state); err != nil {
		return nil, fmt.Errorf("failed to parse game state: %w", err)
	}

	normalizeState(&state)
	return &state, nil
}

// normalizeState ensures all collections are initialized and the roster order is complete
func normalizeState(state *types.GameState) {
	if state.Heroes == nil {
		state.Heroes = make(map[string]*types.Hero)
	}
	if state.AvailableMissions == nil {
		state.AvailableMissions = make([]*types.MissionSpec, 0)
	}
	if state.ActiveMissions == nil {
		state.ActiveMissions = make([]*types.MissionSpec, 0)
	}
	if state.ResolvedMissions == nil {
		state.ResolvedMissions = make([]*types.MissionSpec, 0)
	}
	if state.ShiftHistory == nil {
		state.ShiftHistory = make([]types.ShiftSummary, 0)
	}

	ordered := make(map[string]bool, len(state.HeroOrder))
	order := make([]string, 0, len(state.Heroes))
	for _, id := range state.HeroOrder {
		if _, ok := state.Heroes[id]; ok && !ordered[id] {
			ordered[id] = true
			order = append(order, id)
		}
	}

	var missing []string
	for id := range state.Heroes {
		if !ordered[id] {
			missing = append(missing, id)
		}
	}
	sort.Strings(missing)
	state.HeroOrder = append(order, missing...)
}
