package event

import (
	"context"
	"sync"

	"github.com/KirkDiggler/rpg-toolkit/core"
	"github.com/KirkDiggler/rpg-toolkit/events"
	"go.uber.org/zap"
)

// payloadKey holds the typed Event in the toolkit event's context.
const payloadKey = "payload"

// Types lists every telemetry type; SubscribeAll listens on each of them.
var Types = []Type{
	TypeUnitMove,
	TypeUnitAttack,
	TypeUnitCast,
	TypeUnitSustain,
	TypeUnitEnterArea,
	TypeUnitExitArea,
}

// Unit is a combatant ID presented to the toolkit as an entity.
type Unit string

// GetID returns the combatant ID.
func (u Unit) GetID() string { return string(u) }

// GetType returns the toolkit entity type.
func (u Unit) GetType() string { return "combatant" }

var _ core.Entity = Unit("")

// Handler receives published events synchronously.
type Handler func(Event)

// Bus is a publish/subscribe channel owned by one simulation session, backed
// by an rpg-toolkit event bus. Every typed Event travels as the context
// payload of a toolkit event whose source and target are the units involved.
// All methods are safe for concurrent use.
type Bus struct {
	bus    *events.Bus
	logger *zap.Logger

	mu    sync.Mutex
	seq   int
	chans map[chan<- Event]func()
}

// NewBus returns an empty Bus. A nil logger is replaced with a no-op logger.
func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{bus: events.NewBus(), chans: make(map[chan<- Event]func()), logger: logger}
}

// Toolkit returns the underlying rpg-toolkit bus, for subscribers that want
// the raw event with its source and target entities.
func (b *Bus) Toolkit() events.EventBus { return b.bus }

// Subscribe registers handler for events of type t and returns a function that
// removes it. Handlers run in subscription order.
func (b *Bus) Subscribe(t Type, handler Handler) (unsubscribe func()) {
	return b.subscribe([]Type{t}, handler)
}

// SubscribeAll registers handler for every event type.
func (b *Bus) SubscribeAll(handler Handler) (unsubscribe func()) {
	return b.subscribe(Types, handler)
}

// subscribe gives each registration a strictly lower priority than the last
// so the toolkit runs handlers in subscription order.
func (b *Bus) subscribe(types []Type, handler Handler) func() {
	b.mu.Lock()
	b.seq++
	priority := -b.seq
	b.mu.Unlock()

	ids := make([]string, 0, len(types))
	for _, t := range types {
		ids = append(ids, b.bus.SubscribeFunc(string(t), priority, b.wrap(handler)))
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			for _, id := range ids {
				if err := b.bus.Unsubscribe(id); err != nil {
					b.logger.Debug("event: unsubscribe", zap.String("subscription", id), zap.Error(err))
				}
			}
		})
	}
}

// wrap unpacks the typed payload and shields the bus from a panicking handler.
func (b *Bus) wrap(handler Handler) events.HandlerFunc {
	return func(_ context.Context, ge events.Event) error {
		v, ok := ge.Context().Get(payloadKey)
		if !ok {
			return nil
		}
		e, ok := v.(Event)
		if !ok {
			return nil
		}
		defer func() {
			if r := recover(); r != nil {
				b.logger.Warn("event: subscriber panicked",
					zap.String("type", string(e.Type())),
					zap.Any("panic", r),
				)
			}
		}()
		handler(e)
		return nil
	}
}

// SubscribeChan registers ch to receive every event. If ch is full the event
// is dropped for that subscriber.
//
// Precondition: ch must not be nil.
func (b *Bus) SubscribeChan(ch chan<- Event) {
	unsub := b.SubscribeAll(func(e Event) {
		select {
		case ch <- e:
		default:
		}
	})
	b.mu.Lock()
	defer b.mu.Unlock()
	if prev, ok := b.chans[ch]; ok {
		prev()
	}
	b.chans[ch] = unsub
}

// UnsubscribeChan removes ch.
func (b *Bus) UnsubscribeChan(ch chan<- Event) {
	b.mu.Lock()
	unsub, ok := b.chans[ch]
	delete(b.chans, ch)
	b.mu.Unlock()
	if ok {
		unsub()
	}
}

// Publish delivers e to every matching subscriber. A panicking handler is
// logged and does not stop delivery to the rest.
func (b *Bus) Publish(e Event) {
	source, target := Parties(e)
	ge := events.NewGameEvent(string(e.Type()), entity(source), entity(target))
	ge.Context().Set(payloadKey, e)
	if err := b.bus.Publish(context.Background(), ge); err != nil {
		b.logger.Warn("event: publish failed", zap.String("type", string(e.Type())), zap.Error(err))
	}
}

// Parties returns the acting unit and, when there is exactly one, the unit
// acted upon.
func Parties(e Event) (source, target string) {
	switch e := e.(type) {
	case UnitMove:
		return e.UnitID, ""
	case UnitAttack:
		return e.AttackerID, e.TargetID
	case UnitCast:
		if len(e.TargetIDs) == 1 {
			return e.CasterID, e.TargetIDs[0]
		}
		return e.CasterID, ""
	case UnitSustain:
		return e.UnitID, ""
	case UnitEnterArea:
		return e.UnitID, ""
	case UnitExitArea:
		return e.UnitID, ""
	}
	return "", ""
}

func entity(id string) core.Entity {
	if id == "" {
		return nil
	}
	return Unit(id)
}
