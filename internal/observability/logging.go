// Package observability provides structured logging for the engine and its
// telemetry and narration streams.
package observability

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/skirmish/internal/config"
	"github.com/cory-johannsen/skirmish/internal/game/event"
)

// NewLogger creates a structured logger from the given logging configuration.
//
// Precondition: cfg.Level must be one of "debug", "info", "warn", "error".
// Precondition: cfg.Format must be "json" or "console".
// Postcondition: Returns a configured zap.Logger or a non-nil error.
func NewLogger(cfg config.LoggingConfig, opts ...zap.Option) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", cfg.Level, err)
	}

	var zapCfg zap.Config
	switch cfg.Format {
	case "json":
		zapCfg = zap.NewProductionConfig()
	case "console":
		zapCfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zapCfg.Build(opts...)
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger.Named("skirmish"), nil
}

// TraceTelemetry logs every event published on bus at Debug and returns the
// unsubscribe function.
//
// Precondition: bus and logger must be non-nil.
func TraceTelemetry(bus *event.Bus, logger *zap.Logger) (unsubscribe func()) {
	return bus.SubscribeAll(func(e event.Event) {
		if ce := logger.Check(zap.DebugLevel, "telemetry"); ce != nil {
			ce.Write(TelemetryFields(e)...)
		}
	})
}

// TelemetryFields flattens a telemetry event into zap fields.
func TelemetryFields(e event.Event) []zap.Field {
	fields := []zap.Field{zap.String("type", string(e.Type()))}
	switch ev := e.(type) {
	case event.UnitMove:
		fields = append(fields,
			zap.String("unit", ev.UnitID),
			zap.Stringer("from", ev.From),
			zap.Stringer("to", ev.To),
			zap.Int("cost", ev.Cost),
			zap.Bool("forced", ev.Forced),
		)
	case event.UnitAttack:
		fields = append(fields,
			zap.String("attacker", ev.AttackerID),
			zap.String("target", ev.TargetID),
			zap.String("ability", ev.AbilityID),
			zap.Bool("reaction", ev.Reaction),
		)
	case event.UnitCast:
		fields = append(fields,
			zap.String("caster", ev.CasterID),
			zap.String("ability", ev.AbilityID),
			zap.Strings("targets", ev.TargetIDs),
		)
		if ev.Target != nil {
			fields = append(fields, zap.Stringer("point", *ev.Target))
		}
	case event.UnitSustain:
		fields = append(fields, zap.String("unit", ev.UnitID), zap.String("spell", ev.SpellID))
	case event.UnitEnterArea:
		fields = append(fields, zap.String("unit", ev.UnitID), zap.String("zone", ev.ZoneID), zap.Stringer("at", ev.Position))
	case event.UnitExitArea:
		fields = append(fields, zap.String("unit", ev.UnitID), zap.String("zone", ev.ZoneID), zap.Stringer("at", ev.Position))
	}
	return fields
}

// NarrationFields flattens a narrated log entry into zap fields.
func NarrationFields(e event.LogEntry) []zap.Field {
	fields := []zap.Field{
		zap.String("entry", e.ID),
		zap.String("type", string(e.Type)),
		zap.String("message", e.Message),
	}
	if e.CharacterID != "" {
		fields = append(fields, zap.String("character", e.CharacterID))
	}
	if len(e.TargetIDs) > 0 {
		fields = append(fields, zap.Strings("targets", e.TargetIDs))
	}
	return fields
}
