package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func validConfig() Config {
	return Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Combat: CombatConfig{
			GridCellFeet: 5,
			MaxAIActions: 3,
			Difficulty:   "normal",
			AIDelay: AIDelayConfig{
				Easy:   1200 * time.Millisecond,
				Normal: 800 * time.Millisecond,
				Hard:   400 * time.Millisecond,
			},
			MaxRounds: 20,
		},
		Content: ContentConfig{
			Encounter: "content/encounters/ambush.yaml",
		},
		Scripting: ScriptingConfig{InstructionLimit: 100000},
	}
}

func TestValidConfig(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	err := os.WriteFile(path, []byte(`
logging:
  level: debug
  format: console
combat:
  grid_cell_feet: 10
  difficulty: hard
  ai_delay:
    hard: 250ms
  seed: 42
content:
  encounter: arena.yaml
`), 0644)
	require.NoError(t, err)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 10, cfg.Combat.GridCellFeet)
	assert.Equal(t, "hard", cfg.Combat.Difficulty)
	assert.Equal(t, 250*time.Millisecond, cfg.Combat.AIDelay.Hard)
	assert.Equal(t, 800*time.Millisecond, cfg.Combat.AIDelay.Normal)
	assert.Equal(t, int64(42), cfg.Combat.Seed)
	assert.Equal(t, "arena.yaml", cfg.Content.Encounter)
	assert.Equal(t, 3, cfg.Combat.MaxAIActions)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, 5, cfg.Combat.GridCellFeet)
	assert.Equal(t, "normal", cfg.Combat.Difficulty)
	assert.Equal(t, 1200*time.Millisecond, cfg.Combat.AIDelay.Easy)
	assert.Equal(t, 400*time.Millisecond, cfg.Combat.AIDelay.Hard)
	assert.Equal(t, 20, cfg.Combat.MaxRounds)
	assert.Equal(t, int64(0), cfg.Combat.Seed)
	assert.Equal(t, 100000, cfg.Scripting.InstructionLimit)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("SKIRMISH_COMBAT_DIFFICULTY", "easy")
	t.Setenv("SKIRMISH_COMBAT_MAX_ROUNDS", "7")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "easy", cfg.Combat.Difficulty)
	assert.Equal(t, 7, cfg.Combat.MaxRounds)
}

func TestLoadInvalidPath(t *testing.T) {
	_, err := Load("/nonexistent/path.yaml")
	assert.Error(t, err)
}

func TestLoadFromViper(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("combat.max_ai_actions", 5)

	cfg, err := LoadFromViper(v)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Combat.MaxAIActions)
}

func TestLoadFromViper_InvalidRejected(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("combat.difficulty", "nightmare")

	_, err := LoadFromViper(v)
	assert.ErrorContains(t, err, "combat.difficulty")
}

func TestValidateLoggingLevel(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		cfg := validConfig()
		cfg.Logging.Level = level
		assert.NoError(t, cfg.Validate(), "level %q should be valid", level)
	}
	cfg := validConfig()
	cfg.Logging.Level = "trace"
	assert.Error(t, cfg.Validate())
}

func TestValidateLoggingFormat(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		cfg := validConfig()
		cfg.Logging.Format = format
		assert.NoError(t, cfg.Validate(), "format %q should be valid", format)
	}
	cfg := validConfig()
	cfg.Logging.Format = "xml"
	assert.Error(t, cfg.Validate())
}

func TestValidateDifficulty(t *testing.T) {
	for _, d := range []string{"easy", "normal", "hard"} {
		cfg := validConfig()
		cfg.Combat.Difficulty = d
		assert.NoError(t, cfg.Validate(), "difficulty %q should be valid", d)
	}
	cfg := validConfig()
	cfg.Combat.Difficulty = "HARD"
	assert.Error(t, cfg.Validate())
}

func TestValidateNegativeDelay(t *testing.T) {
	cfg := validConfig()
	cfg.Combat.AIDelay.Hard = -time.Millisecond
	assert.Error(t, cfg.Validate())
}

func TestValidateScriptingLimit(t *testing.T) {
	cfg := validConfig()
	cfg.Scripting.InstructionLimit = 0
	assert.Error(t, cfg.Validate())
}

func TestValidateAggregatesViolations(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Level = "trace"
	cfg.Combat.GridCellFeet = 0
	cfg.Combat.MaxRounds = 0

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "logging.level")
	assert.Contains(t, msg, "combat.grid_cell_feet")
	assert.Contains(t, msg, "combat.max_rounds")
	assert.Equal(t, 2, strings.Count(msg, "; "))
}

// Property-based tests

func TestPropertyPositiveCellFeetAccepted(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		feet := rapid.IntRange(1, 100).Draw(t, "feet")
		cfg := validConfig()
		cfg.Combat.GridCellFeet = feet
		if err := cfg.Validate(); err != nil {
			t.Fatalf("valid cell size %d rejected: %v", feet, err)
		}
	})
}

func TestPropertyNonPositiveActionCapRejected(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(-100, 0).Draw(t, "max_ai_actions")
		cfg := validConfig()
		cfg.Combat.MaxAIActions = n
		if err := cfg.Validate(); err == nil {
			t.Fatalf("action cap %d accepted", n)
		}
	})
}
