// Package main provides the skirmish binary that loads an encounter and plays
// it out with every combatant driven by its scripted opponent loop.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/config"
	"github.com/cory-johannsen/skirmish/internal/game/ai"
	"github.com/cory-johannsen/skirmish/internal/game/condition"
	"github.com/cory-johannsen/skirmish/internal/game/content"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/session"
	"github.com/cory-johannsen/skirmish/internal/observability"
	"github.com/cory-johannsen/skirmish/internal/server"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file; empty = defaults and environment only")
	encounterPath := flag.String("encounter", "", "encounter YAML file; overrides content.encounter")
	seed := flag.Int64("seed", -1, "dice seed; overrides combat.seed, 0 = crypto randomness")
	instant := flag.Bool("instant", false, "skip AI thinking delays")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if *encounterPath != "" {
		cfg.Content.Encounter = *encounterPath
	}
	if *seed >= 0 {
		cfg.Combat.Seed = *seed
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	conditions, err := condition.LoadDirectory(cfg.Content.Conditions)
	if err != nil {
		logger.Fatal("loading condition definitions", zap.Error(err))
	}
	logger.Info("loaded condition definitions", zap.Int("count", len(conditions.All())))

	domains, err := ai.LoadDomains(cfg.Content.AIDomains)
	if err != nil {
		logger.Fatal("loading AI domains", zap.Error(err))
	}
	logger.Info("loaded AI domains", zap.Int("count", len(domains)))

	enc, err := content.LoadEncounterFile(cfg.Content.Encounter, conditions)
	if err != nil {
		logger.Fatal("loading encounter", zap.String("path", cfg.Content.Encounter), zap.Error(err))
	}
	for _, c := range enc.Combatants {
		if _, ok := enc.Controllers[c.ID]; !ok {
			logger.Fatal("every combatant must be AI-controlled to play an encounter unattended",
				zap.String("combatant", c.ID))
		}
	}

	difficulty, err := ai.ParseDifficulty(cfg.Combat.Difficulty)
	if err != nil {
		logger.Fatal("parsing difficulty", zap.Error(err))
	}

	deps := session.Deps{
		Conditions: conditions,
		Domains:    domains,
		ScriptDir:  cfg.Content.AIScripts,
		NewSource: func(string) dice.Source {
			if cfg.Combat.Seed == 0 {
				return dice.NewCryptoSource()
			}
			return dice.NewSeededSource(uint64(cfg.Combat.Seed))
		},
		Settings: session.Settings{
			CellFeet:   cfg.Combat.GridCellFeet,
			Difficulty: difficulty,
			Delays: ai.Delays{
				Easy:   cfg.Combat.AIDelay.Easy,
				Normal: cfg.Combat.AIDelay.Normal,
				Hard:   cfg.Combat.AIDelay.Hard,
			},
			MaxActions:       cfg.Combat.MaxAIActions,
			InstructionLimit: cfg.Scripting.InstructionLimit,
		},
		Logger: logger,
	}
	if *instant {
		deps.Clock = &ai.SimClock{}
	}

	mgr := session.NewManager(deps)
	defer mgr.Close()

	match, err := mgr.Create("", enc)
	if err != nil {
		logger.Fatal("creating match", zap.Error(err))
	}
	logger.Info("encounter ready",
		zap.String("encounter", enc.Name),
		zap.String("match", match.ID()),
		zap.Duration("elapsed", time.Since(start)),
	)

	for _, e := range match.Log() {
		fmt.Println(e.Message)
	}
	console := match.Watch("console", 1024)
	var outcome session.Outcome

	lc := server.NewLifecycle(logger)
	lc.Add("combat", server.ServiceFunc(func(ctx context.Context) error {
		defer match.Unwatch(console.ID())
		var err error
		outcome, err = match.RunAI(ctx, cfg.Combat.MaxRounds)
		return err
	}))
	lc.Add("narration", server.ServiceFunc(func(ctx context.Context) error {
		for {
			select {
			case e, ok := <-console.Entries():
				if !ok {
					return nil
				}
				fmt.Println(e.Message)
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}))
	if err := lc.Run(context.Background()); err != nil {
		logger.Error("combat interrupted", zap.Error(err))
	}
	if n := console.Dropped(); n > 0 {
		logger.Warn("narration entries dropped", zap.Int("count", n))
	}

	switch {
	case outcome.Over && outcome.Winner != "":
		fmt.Printf("\n%s wins in round %d.\n", outcome.Winner, outcome.Round)
	case outcome.Over:
		fmt.Printf("\nNo one is left standing after round %d.\n", outcome.Round)
	default:
		fmt.Printf("\nCombat halted in round %d.\n", outcome.Round)
	}
	for _, c := range match.Combatants() {
		fmt.Printf("  %-16s %-7s %3d/%-3d HP\n", c.Name, c.Team, c.CurrentHP, c.MaxHP)
	}
}
