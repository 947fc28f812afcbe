package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig `json:"server"`

	// Storage configuration
	Storage StorageConfig `json:"storage"`

	// WhatsApp configuration
	WhatsApp WhatsAppConfig `json:"whatsapp"`

	// Game configuration
	Game GameConfig `json:"game"`
}

// ServerConfig holds server specific configuration
type ServerConfig struct {
	// Server port
	Port string `json:"port" env:"DISPATCH_PORT"`

	// Log level (debug, info, warn, error)
	LogLevel string `json:"log_level" env:"DISPATCH_LOG_LEVEL"`

	// Game clock interval in milliseconds
	TickIntervalMs int `json:"tick_interval_ms" env:"DISPATCH_TICK_INTERVAL_MS"`
}

// StorageConfig holds persistence configuration
type StorageConfig struct {
	// Path of the compressed game state snapshot
	SnapshotPath string `json:"snapshot_path" env:"DISPATCH_SNAPSHOT_PATH"`

	// Seconds between snapshots, 0 disables periodic saves
	SnapshotIntervalSec int `json:"snapshot_interval_sec"`

	// Path of the mission history database
	HistoryPath string `json:"history_path" env:"DISPATCH_HISTORY_PATH"`

	// Directory holding roster.yaml
	DataDir string `json:"data_dir" env:"DISPATCH_DATA_DIR"`
}

// WhatsAppConfig holds WhatsApp specific configuration
type WhatsAppConfig struct {
	// Enable the WhatsApp dispatcher console
	Enabled bool `json:"enabled" env:"DISPATCH_WHATSAPP_ENABLED"`

	// Path to store WhatsApp session data
	StoreDir string `json:"store_dir"`

	// Client device name
	ClientName string `json:"client_name"`

	// Phone number that receives engine notifications
	DispatcherPhone string `json:"dispatcher_phone" env:"DISPATCH_DISPATCHER_PHONE"`

	// Logged-in account the notifier sends from
	BotPhone string `json:"bot_phone" env:"DISPATCH_BOT_PHONE"`

	// Directory where login QR codes are written
	QRCodeDir string `json:"qrcode_dir"`
}

// GameConfig holds every tunable of the dispatch engine
type GameConfig struct {
	// Random seed, 0 draws one from crypto/rand
	Seed int64 `json:"seed" env:"DISPATCH_SEED"`

	// Resolution mode: "roll" or "wheel"
	DispatchMode string `json:"dispatch_mode" env:"DISPATCH_MODE"`

	// Team size bounds
	MaxTeamSize       int  `json:"max_team_size"`
	RequireExactSlots bool `json:"require_exact_slots"`

	// Hero timings in seconds
	MissionDurationMin int `json:"mission_duration_min"`
	MissionDurationMax int `json:"mission_duration_max"`
	ReturnDuration     int `json:"return_duration"`
	RestDurationMin    int `json:"rest_duration_min"`
	RestDurationMax    int `json:"rest_duration_max"`

	// Injury branch
	InjuryRestMultiplier float64 `json:"injury_rest_multiplier"`
	InjuryChance         float64 `json:"injury_chance"`
	DownedChance         float64 `json:"downed_chance"`

	// Solo power travel multiplier
	SoloTravelMultiplier float64 `json:"solo_travel_multiplier"`

	// Relationship effects in percentage points
	SynergyBonus        float64 `json:"synergy_bonus"`
	SynergyJitter       float64 `json:"synergy_jitter"`
	SabotageMin         float64 `json:"sabotage_min"`
	SabotageMax         float64 `json:"sabotage_max"`
	SabotageEventChance float64 `json:"sabotage_event_chance"`
	SabotageFlipChance  float64 `json:"sabotage_flip_chance"`

	// Fatigue
	FatigueCoefficient   float64 `json:"fatigue_coefficient"`
	FatigueRecoveryRests int     `json:"fatigue_recovery_rests"`

	// Archetype bonus
	SupportBonus      float64  `json:"support_bonus"`
	SupportArchetypes []string `json:"support_archetypes"`

	// Probability shaping
	MinProbability float64 `json:"min_probability"`
	CoverageWeight float64 `json:"coverage_weight"`

	// Wheel geometry
	SliceCount  int `json:"slice_count"`
	CenterSlice int `json:"center_slice"`

	// Progression
	XPCurveMultiplier float64        `json:"xp_curve_multiplier"`
	StartingXPToNext  int            `json:"starting_xp_to_next"`
	StatCap           int            `json:"stat_cap"`
	XPBase            int            `json:"xp_base"`
	XPSpread          int            `json:"xp_spread"`
	XPSoloBonus       int            `json:"xp_solo_bonus"`
	XPRiskBonus       int            `json:"xp_risk_bonus"`
	RiskThreshold     float64        `json:"risk_threshold"`
	DifficultyXPBonus map[string]int `json:"difficulty_xp_bonus"`

	// Failure penalty as a share of mission reputation
	ReputationPenaltyRatio float64 `json:"reputation_penalty_ratio"`

	// Mission generation
	StatDrawMin           int     `json:"stat_draw_min"`
	StatDrawMax           int     `json:"stat_draw_max"`
	FocusStatMin          int     `json:"focus_stat_min"`
	FocusStatMax          int     `json:"focus_stat_max"`
	RequirementPerSlot    int     `json:"requirement_per_slot"`
	EpisodeScaling        float64 `json:"episode_scaling"`
	ExpiryMin             int     `json:"expiry_min"`
	ExpiryMax             int     `json:"expiry_max"`
	UrgentExpiryMin       int     `json:"urgent_expiry_min"`
	UrgentExpiryMax       int     `json:"urgent_expiry_max"`
	TimeSensitiveChance   float64 `json:"time_sensitive_chance"`
	HighRiskChance        float64 `json:"high_risk_chance"`
	RewardBonusChance     float64 `json:"reward_bonus_chance"`
	RewardBonusMultiplier float64 `json:"reward_bonus_multiplier"`

	// Spawning and shifts
	SpawnInterval        int     `json:"spawn_interval"`
	SpawnChance          float64 `json:"spawn_chance"`
	MaxAvailableMissions int     `json:"max_available_missions"`
	InitialMissionsMin   int     `json:"initial_missions_min"`
	InitialMissionsMax   int     `json:"initial_missions_max"`
	ShiftMissionsMin     int     `json:"shift_missions_min"`
	ShiftMissionsMax     int     `json:"shift_missions_max"`
	ShiftThreshold       int     `json:"shift_threshold"`
	ShiftBreak           int     `json:"shift_break"`
	ShiftsPerDay         int     `json:"shifts_per_day"`
	ResolvedHistory      int     `json:"resolved_history"`

	// Mid-mission disruptions
	DisruptionChance float64 `json:"disruption_chance"`
	DisruptionSwing  float64 `json:"disruption_swing"`

	// Starting treasury
	StartingCredits    int `json:"starting_credits"`
	StartingReputation int `json:"starting_reputation"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:           "8080",
			LogLevel:       "info",
			TickIntervalMs: 500,
		},
		Storage: StorageConfig{
			SnapshotPath:        "./data/game_state.json.zst",
			SnapshotIntervalSec: 30,
			HistoryPath:         "./data/history.db",
			DataDir:             "./assets/data",
		},
		WhatsApp: WhatsAppConfig{
			Enabled:    false,
			StoreDir:   "./whatsapp-store",
			ClientName: "HERO DISPATCH",
			QRCodeDir:  "./assets/qrcodes",
		},
		Game: DefaultGameConfig(),
	}
}

// DefaultGameConfig returns the standard engine tuning
func DefaultGameConfig() GameConfig {
	return GameConfig{
		DispatchMode:      "roll",
		MaxTeamSize:       8,
		RequireExactSlots: false,

		MissionDurationMin: 30,
		MissionDurationMax: 60,
		ReturnDuration:     20,
		RestDurationMin:    50,
		RestDurationMax:    80,

		InjuryRestMultiplier: 1.5,
		InjuryChance:         0.3,
		DownedChance:         0.1,
		SoloTravelMultiplier: 0.7,

		SynergyBonus:        15,
		SynergyJitter:       5,
		SabotageMin:         10,
		SabotageMax:         40,
		SabotageEventChance: 0.15,
		SabotageFlipChance:  0.7,

		FatigueCoefficient:   2,
		FatigueRecoveryRests: 2,

		SupportBonus:      10,
		SupportArchetypes: []string{"Healer", "Support"},

		MinProbability: 5,
		CoverageWeight: 0.25,

		SliceCount:  36,
		CenterSlice: 36,

		XPCurveMultiplier: 1.5,
		StartingXPToNext:  100,
		StatCap:           15,
		XPBase:            20,
		XPSpread:          15,
		XPSoloBonus:       15,
		XPRiskBonus:       10,
		RiskThreshold:     60,
		DifficultyXPBonus: map[string]int{
			"Easy":      0,
			"Medium":    5,
			"Hard":      10,
			"Very Hard": 20,
		},

		ReputationPenaltyRatio: 0.5,

		StatDrawMin:           2,
		StatDrawMax:           9,
		FocusStatMin:          4,
		FocusStatMax:          9,
		RequirementPerSlot:    15,
		EpisodeScaling:        0.1,
		ExpiryMin:             45,
		ExpiryMax:             90,
		UrgentExpiryMin:       30,
		UrgentExpiryMax:       45,
		TimeSensitiveChance:   0.3,
		HighRiskChance:        0.2,
		RewardBonusChance:     0.25,
		RewardBonusMultiplier: 1.5,

		SpawnInterval:        30,
		SpawnChance:          0.6,
		MaxAvailableMissions: 10,
		InitialMissionsMin:   2,
		InitialMissionsMax:   4,
		ShiftMissionsMin:     5,
		ShiftMissionsMax:     9,
		ShiftThreshold:       10,
		ShiftBreak:           3,
		ShiftsPerDay:         3,
		ResolvedHistory:      50,

		DisruptionChance: 0.25,
		DisruptionSwing:  10,
	}
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// MissionDurationRange returns the bounds of a hero's time on mission
func (g GameConfig) MissionDurationRange() (time.Duration, time.Duration) {
	return seconds(g.MissionDurationMin), seconds(g.MissionDurationMax)
}

// ReturnDurationValue returns the fixed travel-back time
func (g GameConfig) ReturnDurationValue() time.Duration {
	return seconds(g.ReturnDuration)
}

// RestDurationRange returns the bounds of a regular rest
func (g GameConfig) RestDurationRange() (time.Duration, time.Duration) {
	return seconds(g.RestDurationMin), seconds(g.RestDurationMax)
}

// ExpiryRange returns the bounds of a regular mission timer
func (g GameConfig) ExpiryRange() (time.Duration, time.Duration) {
	return seconds(g.ExpiryMin), seconds(g.ExpiryMax)
}

// UrgentExpiryRange returns the bounds of a time-sensitive mission timer
func (g GameConfig) UrgentExpiryRange() (time.Duration, time.Duration) {
	return seconds(g.UrgentExpiryMin), seconds(g.UrgentExpiryMax)
}

// SpawnIntervalValue returns the time between spawn attempts
func (g GameConfig) SpawnIntervalValue() time.Duration {
	return seconds(g.SpawnInterval)
}

// ShiftBreakValue returns the pause between two shifts
func (g GameConfig) ShiftBreakValue() time.Duration {
	return seconds(g.ShiftBreak)
}

// TickInterval returns the game clock period
func (s ServerConfig) TickInterval() time.Duration {
	return time.Duration(s.TickIntervalMs) * time.Millisecond
}

// SnapshotInterval returns the period between snapshots
func (s StorageConfig) SnapshotInterval() time.Duration {
	return seconds(s.SnapshotIntervalSec)
}

// Validate checks cross-field constraints the schema cannot express
func (c Config) Validate() error {
	g := c.Game
	var errs []error
	if g.MissionDurationMin > g.MissionDurationMax {
		errs = append(errs, errors.New("mission_duration_min exceeds mission_duration_max"))
	}
	if g.RestDurationMin > g.RestDurationMax {
		errs = append(errs, errors.New("rest_duration_min exceeds rest_duration_max"))
	}
	if g.ExpiryMin > g.ExpiryMax {
		errs = append(errs, errors.New("expiry_min exceeds expiry_max"))
	}
	if g.UrgentExpiryMin > g.UrgentExpiryMax {
		errs = append(errs, errors.New("urgent_expiry_min exceeds urgent_expiry_max"))
	}
	if g.StatDrawMin > g.StatDrawMax || g.FocusStatMin > g.FocusStatMax {
		errs = append(errs, errors.New("stat draw bounds are inverted"))
	}
	if g.SabotageMin > g.SabotageMax {
		errs = append(errs, errors.New("sabotage_min exceeds sabotage_max"))
	}
	if g.InitialMissionsMin > g.InitialMissionsMax || g.ShiftMissionsMin > g.ShiftMissionsMax {
		errs = append(errs, errors.New("mission batch bounds are inverted"))
	}
	if g.DispatchMode != "roll" && g.DispatchMode != "wheel" {
		errs = append(errs, fmt.Errorf("unknown dispatch_mode %q", g.DispatchMode))
	}
	return errors.Join(errs...)
}

// LoadConfig loads configuration from a file
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()

	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return config, err
	}

	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		// Create default config file
		if err := SaveConfig(config, path); err != nil {
			return config, err
		}
		if err := ApplyEnv(&config); err != nil {
			return config, err
		}
		return config, config.Validate()
	}

	// Read config file
	data, err := os.ReadFile(path)
	if err != nil {
		return config, err
	}

	if err := ValidateDocument(data); err != nil {
		return config, fmt.Errorf("invalid config %s: %w", path, err)
	}

	if err := json.Unmarshal(data, &config); err != nil {
		return config, err
	}

	if err := ApplyEnv(&config); err != nil {
		return config, err
	}

	return config, config.Validate()
}

// SaveConfig saves configuration to a file
func SaveConfig(config Config, path string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	// Create or truncate file
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	// Write config to file
	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(config); err != nil {
		return err
	}

	return nil
}
