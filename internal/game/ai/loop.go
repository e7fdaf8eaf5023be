package ai

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
)

// Decision loop states.
const (
	StateIdle     = "idle"
	StateThinking = "thinking"
	StateActing   = "acting"
	StateDone     = "done"
)

const (
	evThink    = "think"
	evAct      = "act"
	evContinue = "continue"
	evFinish   = "finish"
	evReset    = "reset"
)

// DefaultMaxActions is the per-turn action cap.
const DefaultMaxActions = 3

// Turns is the slice of the turn scheduler the loop needs.
type Turns interface {
	CurrentID() string
	EndTurn()
}

// Executor submits actions. action.Executor satisfies it.
type Executor interface {
	Execute(a combat.Action) bool
}

// LoopConfig tunes the decision loop.
type LoopConfig struct {
	Difficulty Difficulty
	Delays     Delays
	MaxActions int
}

// Loop drives one scripted opponent's turn through idle, thinking, acting
// and done. A Loop is reused across turns and is not safe for concurrent use.
type Loop struct {
	eng     *combat.Engine
	turns   Turns
	exec    Executor
	eval    Evaluator
	clock   Clock
	cfg     LoopConfig
	logger  *zap.Logger
	machine *fsm.FSM
	actions int
	actor   string
}

// NewLoop wires a Loop.
//
// Precondition: eng, turns, exec and eval must be non-nil. A nil clock is a
// RealClock; a non-positive MaxActions is DefaultMaxActions; a zero Delays
// is DefaultDelays; a nil logger is a no-op logger.
func NewLoop(eng *combat.Engine, turns Turns, exec Executor, eval Evaluator, clock Clock, cfg LoopConfig, logger *zap.Logger) *Loop {
	if eng == nil || turns == nil || exec == nil || eval == nil {
		panic("ai.NewLoop: engine, turns, executor and evaluator must not be nil")
	}
	if clock == nil {
		clock = RealClock{}
	}
	if cfg.MaxActions <= 0 {
		cfg.MaxActions = DefaultMaxActions
	}
	if cfg.Delays == (Delays{}) {
		cfg.Delays = DefaultDelays()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Loop{eng: eng, turns: turns, exec: exec, eval: eval, clock: clock, cfg: cfg, logger: logger}
	l.machine = fsm.NewFSM(
		StateIdle,
		fsm.Events{
			{Name: evThink, Src: []string{StateIdle}, Dst: StateThinking},
			{Name: evAct, Src: []string{StateThinking}, Dst: StateActing},
			{Name: evContinue, Src: []string{StateActing}, Dst: StateThinking},
			{Name: evFinish, Src: []string{StateThinking, StateActing}, Dst: StateDone},
			{Name: evReset, Src: []string{StateDone}, Dst: StateIdle},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				l.logger.Debug("ai: loop transition",
					zap.String("actor", l.actor),
					zap.String("event", e.Event),
					zap.String("from", e.Src),
					zap.String("to", e.Dst),
				)
			},
		},
	)
	return l
}

// State returns the loop's current state.
func (l *Loop) State() string { return l.machine.Current() }

// Actions returns the number of actions executed in the current or last turn.
func (l *Loop) Actions() int { return l.actions }

// TakeTurn plays the current combatant's turn to completion.
//
// Precondition: the current combatant is AI-controlled and alive.
// Postcondition: on nil return the turn has ended and the loop is idle. A
// cancelled ctx returns ctx.Err() with the turn still open and the loop idle.
func (l *Loop) TakeTurn(ctx context.Context) error {
	actorID := l.turns.CurrentID()
	c, ok := l.eng.Get(actorID)
	if !ok {
		return fmt.Errorf("ai: no current combatant")
	}
	if !c.AIControlled {
		return fmt.Errorf("ai: %s is not AI-controlled", c.Name)
	}
	l.actor = actorID
	l.actions = 0
	defer func() {
		if l.machine.Current() == StateDone {
			_ = l.fire(ctx, evReset)
			return
		}
		l.machine.SetState(StateIdle)
	}()

	delay := l.cfg.Delays.For(l.cfg.Difficulty)
	if err := l.clock.Sleep(ctx, delay); err != nil {
		return err
	}
	if err := l.fire(ctx, evThink); err != nil {
		return err
	}

	for {
		if l.actions >= l.cfg.MaxActions {
			l.logger.Debug("ai: action cap reached", zap.String("actor", actorID), zap.Int("actions", l.actions))
			return l.finish(ctx, actorID)
		}
		a, err := l.eval.Evaluate(l.eng, actorID)
		if err != nil {
			l.logger.Warn("ai: evaluator failed; ending turn", zap.String("actor", actorID), zap.Error(err))
			return l.finish(ctx, actorID)
		}
		if a.Kind == combat.ActionEndTurn {
			return l.finish(ctx, actorID)
		}
		if err := l.fire(ctx, evAct); err != nil {
			return err
		}
		a.ActorID = actorID
		if !l.exec.Execute(a) {
			l.logger.Warn("ai: action rejected; ending turn",
				zap.String("actor", actorID),
				zap.String("kind", string(a.Kind)),
				zap.String("ability", a.AbilityID),
			)
			return l.finish(ctx, actorID)
		}
		l.actions++
		if l.turns.CurrentID() != actorID {
			return l.fire(ctx, evFinish)
		}
		if self, ok := l.eng.Get(actorID); !ok || !self.Alive() {
			return l.finish(ctx, actorID)
		}
		if l.actions >= l.cfg.MaxActions {
			continue
		}
		if err := l.clock.Sleep(ctx, delay); err != nil {
			return err
		}
		if err := l.fire(ctx, evContinue); err != nil {
			return err
		}
	}
}

// finish moves to done and ends actorID's turn, falling back to the
// scheduler when the executor refuses (a defeated actor cannot submit end_turn).
func (l *Loop) finish(ctx context.Context, actorID string) error {
	if err := l.fire(ctx, evFinish); err != nil {
		return err
	}
	if l.turns.CurrentID() != actorID {
		return nil
	}
	if !l.exec.Execute(endTurn(actorID)) && l.turns.CurrentID() == actorID {
		l.turns.EndTurn()
	}
	return nil
}

func (l *Loop) fire(ctx context.Context, ev string) error {
	if err := l.machine.Event(context.WithoutCancel(ctx), ev); err != nil {
		return fmt.Errorf("ai: loop event %q from %q: %w", ev, l.machine.Current(), err)
	}
	return nil
}
