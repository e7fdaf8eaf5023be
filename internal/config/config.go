// Package config provides Viper-based configuration loading for the skirmish engine.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// AIDelayConfig holds the opponent thinking delay per difficulty.
type AIDelayConfig struct {
	Easy   time.Duration `mapstructure:"easy"`
	Normal time.Duration `mapstructure:"normal"`
	Hard   time.Duration `mapstructure:"hard"`
}

// CombatConfig holds rules-engine settings.
type CombatConfig struct {
	// GridCellFeet is the real-world size of one grid cell.
	GridCellFeet int `mapstructure:"grid_cell_feet"`
	// MaxAIActions caps the actions a scripted opponent takes per turn.
	MaxAIActions int `mapstructure:"max_ai_actions"`
	// Difficulty is "easy", "normal" or "hard".
	Difficulty string `mapstructure:"difficulty"`
	// AIDelay is the thinking delay before each opponent action.
	AIDelay AIDelayConfig `mapstructure:"ai_delay"`
	// MaxRounds stops an unattended match after this many rounds.
	MaxRounds int `mapstructure:"max_rounds"`
	// Seed selects a deterministic dice source when non-zero.
	Seed int64 `mapstructure:"seed"`
}

// ContentConfig holds content file and directory paths.
type ContentConfig struct {
	Encounter  string `mapstructure:"encounter"`
	Conditions string `mapstructure:"conditions"`
	AIDomains  string `mapstructure:"ai_domains"`
	AIScripts  string `mapstructure:"ai_scripts"`
}

// ScriptingConfig holds Lua sandbox settings.
type ScriptingConfig struct {
	// InstructionLimit bounds the VM instructions per hook call.
	InstructionLimit int `mapstructure:"instruction_limit"`
}

// Config is the top-level application configuration.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging"`
	Combat    CombatConfig    `mapstructure:"combat"`
	Content   ContentConfig   `mapstructure:"content"`
	Scripting ScriptingConfig `mapstructure:"scripting"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateCombat(c.Combat); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Scripting.InstructionLimit < 1 {
		errs = append(errs, fmt.Sprintf("scripting.instruction_limit must be >= 1, got %d", c.Scripting.InstructionLimit))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateCombat(c CombatConfig) error {
	var errs []string
	if c.GridCellFeet < 1 {
		errs = append(errs, fmt.Sprintf("combat.grid_cell_feet must be >= 1, got %d", c.GridCellFeet))
	}
	if c.MaxAIActions < 1 {
		errs = append(errs, fmt.Sprintf("combat.max_ai_actions must be >= 1, got %d", c.MaxAIActions))
	}
	validDifficulties := map[string]bool{"easy": true, "normal": true, "hard": true}
	if !validDifficulties[c.Difficulty] {
		errs = append(errs, fmt.Sprintf("combat.difficulty must be one of [easy, normal, hard], got %q", c.Difficulty))
	}
	if c.AIDelay.Easy < 0 || c.AIDelay.Normal < 0 || c.AIDelay.Hard < 0 {
		errs = append(errs, "combat.ai_delay must not be negative")
	}
	if c.MaxRounds < 1 {
		errs = append(errs, fmt.Sprintf("combat.max_rounds must be >= 1, got %d", c.MaxRounds))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result. An empty path uses defaults and the
// environment only.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()

	// Environment variable overrides with SKIRMISH_ prefix
	v.SetEnvPrefix("SKIRMISH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}
	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// SetDefaults installs every default key on v.
func SetDefaults(v *viper.Viper) { setDefaults(v) }

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("combat.grid_cell_feet", 5)
	v.SetDefault("combat.max_ai_actions", 3)
	v.SetDefault("combat.difficulty", "normal")
	v.SetDefault("combat.ai_delay.easy", "1200ms")
	v.SetDefault("combat.ai_delay.normal", "800ms")
	v.SetDefault("combat.ai_delay.hard", "400ms")
	v.SetDefault("combat.max_rounds", 20)
	v.SetDefault("combat.seed", 0)

	v.SetDefault("content.encounter", "content/encounters/ambush.yaml")
	v.SetDefault("content.conditions", "content/conditions")
	v.SetDefault("content.ai_domains", "content/ai")
	v.SetDefault("content.ai_scripts", "content/scripts/ai")

	v.SetDefault("scripting.instruction_limit", 100000)
}
