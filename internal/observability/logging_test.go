package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/skirmish/internal/config"
	"github.com/cory-johannsen/skirmish/internal/game/event"
	"github.com/cory-johannsen/skirmish/internal/game/grid"
)

func TestNewLogger_JSON(t *testing.T) {
	cfg := config.LoggingConfig{Level: "info", Format: "json"}
	logger, err := NewLogger(cfg)
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestNewLogger_Console(t *testing.T) {
	cfg := config.LoggingConfig{Level: "debug", Format: "console"}
	logger, err := NewLogger(cfg)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	cfg := config.LoggingConfig{Level: "trace", Format: "json"}
	_, err := NewLogger(cfg)
	assert.Error(t, err)
}

func TestNewLogger_InvalidFormat(t *testing.T) {
	cfg := config.LoggingConfig{Level: "info", Format: "xml"}
	_, err := NewLogger(cfg)
	assert.Error(t, err)
}

func TestNewLogger_AllLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		cfg := config.LoggingConfig{Level: level, Format: "json"}
		logger, err := NewLogger(cfg)
		require.NoError(t, err, "level %q should be valid", level)
		assert.NotNil(t, logger)
	}
}

func TestTraceTelemetry_LogsEveryEvent(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	bus := event.NewBus(zap.NewNop())
	unsubscribe := TraceTelemetry(bus, zap.New(core))

	bus.Publish(event.UnitMove{UnitID: "a", From: grid.Position{}, To: grid.Position{X: 1}, Cost: 5})
	bus.Publish(event.UnitAttack{AttackerID: "a", TargetID: "b", AbilityID: "sword"})
	unsubscribe()
	bus.Publish(event.UnitSustain{UnitID: "a", SpellID: "bless"})

	entries := logs.FilterMessage("telemetry").All()
	require.Len(t, entries, 2)
	assert.Equal(t, "unit_move", entries[0].ContextMap()["type"])
	assert.Equal(t, int64(5), entries[0].ContextMap()["cost"])
	assert.Equal(t, "b", entries[1].ContextMap()["target"])
}

func TestTraceTelemetry_SilentAboveDebug(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	bus := event.NewBus(zap.NewNop())
	TraceTelemetry(bus, zap.New(core))

	bus.Publish(event.UnitCast{CasterID: "a", AbilityID: "fireball"})
	assert.Equal(t, 0, logs.Len())
}

func TestNarrationFields_OmitsEmptyOptionalFields(t *testing.T) {
	fields := NarrationFields(event.LogEntry{ID: "1", Type: event.LogSystem, Message: "Round 2 begins!"})
	assert.Len(t, fields, 3)

	fields = NarrationFields(event.LogEntry{ID: "2", Type: event.LogDamage, Message: "hit", CharacterID: "a", TargetIDs: []string{"b"}})
	assert.Len(t, fields, 5)
}
