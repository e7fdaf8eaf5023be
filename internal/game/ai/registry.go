package ai

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrNoScripts is returned when a script-controlled combatant joins a match
// that loaded no AI scripts.
var ErrNoScripts = errors.New("no AI scripts are loaded")

// Registry resolves the evaluators of one match. Planners are keyed by domain
// ID and share the match's script caller, scoped to the match ID so Lua
// preconditions and evaluate_turn run in that match's VM.
//
// Invariant: each domain ID is registered at most once; the default domain is
// always present.
type Registry struct {
	matchID  string
	caller   ScriptCaller
	logger   *zap.Logger
	planners map[string]*Planner
	loaded   map[string]bool
}

// NewRegistry returns a Registry for matchID holding only DefaultDomain. A
// nil caller disables script evaluators and Lua preconditions.
func NewRegistry(matchID string, caller ScriptCaller, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{matchID: matchID, caller: caller, logger: logger, planners: make(map[string]*Planner), loaded: make(map[string]bool)}
	def := DefaultDomain()
	r.planners[def.ID] = r.plannerFor(def)
	return r
}

// MatchID returns the scope every planner and script evaluator calls into.
func (r *Registry) MatchID() string { return r.matchID }

// Register adds a planner for domain. A loaded domain may replace the default
// domain once; any other collision is an error.
//
// Precondition: domain must not be nil.
func (r *Registry) Register(domain *Domain) error {
	if r.loaded[domain.ID] {
		return fmt.Errorf("ai.Registry: domain %q already registered in match %s", domain.ID, r.matchID)
	}
	r.loaded[domain.ID] = true
	r.planners[domain.ID] = r.plannerFor(domain)
	return nil
}

func (r *Registry) plannerFor(domain *Domain) *Planner {
	return NewPlanner(domain, r.caller, r.matchID).WithLogger(r.logger.With(zap.String("domain", domain.ID)))
}

// PlannerFor returns the Planner for domainID; an empty ID selects the default domain.
func (r *Registry) PlannerFor(domainID string) (*Planner, bool) {
	if domainID == "" {
		domainID = DefaultDomain().ID
	}
	p, ok := r.planners[domainID]
	return p, ok
}

// EvaluatorFor picks the evaluator for one controlled combatant: the match's
// evaluate_turn script when script is set, else the planner for domainID.
func (r *Registry) EvaluatorFor(script bool, domainID string) (Evaluator, error) {
	if script {
		if r.caller == nil {
			return nil, fmt.Errorf("script-controlled: %w", ErrNoScripts)
		}
		return NewScriptEvaluator(r.caller, r.matchID), nil
	}
	p, ok := r.PlannerFor(domainID)
	if !ok {
		return nil, fmt.Errorf("unknown AI domain %q", domainID)
	}
	return p, nil
}
