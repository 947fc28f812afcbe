package config

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaURL = "config.schema.json"

const schemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "server": {
      "type": "object",
      "properties": {
        "port": {"type": "string", "pattern": "^[0-9]{1,5}$"},
        "log_level": {"enum": ["debug", "info", "warn", "error"]},
        "tick_interval_ms": {"type": "integer", "minimum": 10}
      }
    },
    "storage": {
      "type": "object",
      "properties": {
        "snapshot_path": {"type": "string"},
        "snapshot_interval_sec": {"type": "integer", "minimum": 0},
        "history_path": {"type": "string"},
        "data_dir": {"type": "string"}
      }
    },
    "whatsapp": {
      "type": "object",
      "properties": {
        "enabled": {"type": "boolean"},
        "store_dir": {"type": "string"},
        "client_name": {"type": "string"},
        "dispatcher_phone": {"type": "string"},
        "bot_phone": {"type": "string"},
        "qrcode_dir": {"type": "string"}
      }
    },
    "game": {
      "type": "object",
      "properties": {
        "seed": {"type": "integer"},
        "dispatch_mode": {"enum": ["roll", "wheel"]},
        "max_team_size": {"type": "integer", "minimum": 1},
        "require_exact_slots": {"type": "boolean"},
        "mission_duration_min": {"type": "integer", "minimum": 0},
        "mission_duration_max": {"type": "integer", "minimum": 0},
        "return_duration": {"type": "integer", "minimum": 0},
        "rest_duration_min": {"type": "integer", "minimum": 0},
        "rest_duration_max": {"type": "integer", "minimum": 0},
        "injury_rest_multiplier": {"type": "number", "minimum": 1},
        "injury_chance": {"$ref": "#/definitions/chance"},
        "downed_chance": {"$ref": "#/definitions/chance"},
        "solo_travel_multiplier": {"type": "number", "exclusiveMinimum": 0},
        "synergy_bonus": {"type": "number", "minimum": 0},
        "synergy_jitter": {"type": "number", "minimum": 0},
        "sabotage_min": {"type": "number", "minimum": 0},
        "sabotage_max": {"type": "number", "minimum": 0},
        "sabotage_event_chance": {"$ref": "#/definitions/chance"},
        "sabotage_flip_chance": {"$ref": "#/definitions/chance"},
        "fatigue_coefficient": {"type": "number", "minimum": 0},
        "fatigue_recovery_rests": {"type": "integer", "minimum": 1},
        "support_bonus": {"type": "number"},
        "support_archetypes": {"type": "array", "items": {"type": "string"}},
        "min_probability": {"type": "number", "minimum": 0, "maximum": 100},
        "coverage_weight": {"$ref": "#/definitions/chance"},
        "slice_count": {"type": "integer", "minimum": 1},
        "center_slice": {"type": "integer", "minimum": 0},
        "xp_curve_multiplier": {"type": "number", "minimum": 1},
        "starting_xp_to_next": {"type": "integer", "minimum": 1},
        "stat_cap": {"type": "integer", "minimum": 1},
        "xp_base": {"type": "integer", "minimum": 0},
        "xp_spread": {"type": "integer", "minimum": 0},
        "xp_solo_bonus": {"type": "integer", "minimum": 0},
        "xp_risk_bonus": {"type": "integer", "minimum": 0},
        "risk_threshold": {"type": "number", "minimum": 0, "maximum": 100},
        "difficulty_xp_bonus": {
          "type": "object",
          "additionalProperties": {"type": "integer", "minimum": 0}
        },
        "reputation_penalty_ratio": {"$ref": "#/definitions/chance"},
        "stat_draw_min": {"type": "integer", "minimum": 1},
        "stat_draw_max": {"type": "integer", "minimum": 1},
        "focus_stat_min": {"type": "integer", "minimum": 1},
        "focus_stat_max": {"type": "integer", "minimum": 1},
        "requirement_per_slot": {"type": "integer", "minimum": 5},
        "episode_scaling": {"type": "number", "minimum": 0},
        "expiry_min": {"type": "integer", "minimum": 1},
        "expiry_max": {"type": "integer", "minimum": 1},
        "urgent_expiry_min": {"type": "integer", "minimum": 1},
        "urgent_expiry_max": {"type": "integer", "minimum": 1},
        "time_sensitive_chance": {"$ref": "#/definitions/chance"},
        "high_risk_chance": {"$ref": "#/definitions/chance"},
        "reward_bonus_chance": {"$ref": "#/definitions/chance"},
        "reward_bonus_multiplier": {"type": "number", "minimum": 1},
        "spawn_interval": {"type": "integer", "minimum": 1},
        "spawn_chance": {"$ref": "#/definitions/chance"},
        "max_available_missions": {"type": "integer", "minimum": 1},
        "initial_missions_min": {"type": "integer", "minimum": 0},
        "initial_missions_max": {"type": "integer", "minimum": 0},
        "shift_missions_min": {"type": "integer", "minimum": 0},
        "shift_missions_max": {"type": "integer", "minimum": 0},
        "shift_threshold": {"type": "integer", "minimum": 1},
        "shift_break": {"type": "integer", "minimum": 0},
        "shifts_per_day": {"type": "integer", "minimum": 1},
        "resolved_history": {"type": "integer", "minimum": 0},
        "disruption_chance": {"$ref": "#/definitions/chance"},
        "disruption_swing": {"type": "number", "minimum": 0},
        "starting_credits": {"type": "integer"},
        "starting_reputation": {"type": "integer", "minimum": 0}
      }
    }
  },
  "definitions": {
    "chance": {"type": "number", "minimum": 0, "maximum": 1}
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func configSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiledSchema, schemaErr = jsonschema.CompileString(schemaURL, schemaJSON)
	})
	return compiledSchema, schemaErr
}

// ValidateDocument checks a raw config document against the embedded schema
func ValidateDocument(data []byte) error {
	schema, err := configSchema()
	if err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	if err := schema.Validate(doc); err != nil {
		return err
	}
	return nil
}

// ApplyEnv overrides configuration fields from DISPATCH_* environment variables
func ApplyEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
