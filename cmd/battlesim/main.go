// Package main provides the battle simulator command line, which resolves one
// scenario or the whole catalog and prints the outcome.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/warsim/internal/battle"
	"github.com/cory-johannsen/warsim/internal/battlelog"
	"github.com/cory-johannsen/warsim/internal/config"
	"github.com/cory-johannsen/warsim/internal/content"
	"github.com/cory-johannsen/warsim/internal/observability"
	"github.com/cory-johannsen/warsim/internal/render"
	"github.com/cory-johannsen/warsim/internal/scenario"
	"github.com/cory-johannsen/warsim/internal/scripting"
	"github.com/cory-johannsen/warsim/internal/simulation"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	ref := flag.String("scenario", "", "scenario reference (name, path or number); overrides -choice")
	choice := flag.Int("choice", 0, "numbered scenario choice; 0 prompts on stdin")
	all := flag.Bool("all", false, "resolve every catalog scenario concurrently")
	renderRounds := flag.Bool("render", false, "render both forces after every round")
	narrate := flag.Bool("narrate", false, "print a line for every battle event")
	color := flag.Bool("color", true, "colour health bars")
	battleLog := flag.String("battle-log", "", "write battle events as JSON lines to this rotating file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, _, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	lib, err := content.Load(cfg.Content.Dir, scripting.NewEvaluator(cfg.Content.ScriptInstructionLimit, logger))
	if err != nil {
		logger.Fatal("loading content", zap.Error(err))
	}
	logger.Info("content loaded",
		zap.Int("units", len(lib.UnitIDs())),
		zap.Int("effects", len(lib.EffectIDs())),
		zap.Duration("elapsed", time.Since(start)),
	)

	source := scenario.NewSource(cfg.Scenario)
	catalog := scenario.NewCatalog(cfg.Scenario)

	opts := []simulation.Option{}
	if *battleLog != "" {
		eventLog, w := battlelog.NewFileLogger(*battleLog, battlelog.Rotation{
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
			MaxAgeDays: cfg.Logging.MaxAgeDays,
			Compress:   cfg.Logging.Compress,
		})
		defer w.Close()
		defer eventLog.Sync()
		opts = append(opts, simulation.WithEventLogger(eventLog))
	}

	svc, err := simulation.NewService(cfg.Battle.ToBattleConfig(), source, lib, logger, opts...)
	if err != nil {
		logger.Fatal("creating simulation service", zap.Error(err))
	}

	if *all {
		reports, err := svc.RunBatch(ctx, catalog.Refs())
		if err != nil {
			logger.Fatal("running catalog", zap.Error(err))
		}
		for _, r := range reports {
			printSummary(r)
		}
		return
	}

	if *ref == "" {
		n := *choice
		if n == 0 {
			n = prompt(catalog)
		}
		*ref = catalog.Resolve(n)
	}

	sc, err := source.Fetch(ctx, *ref)
	if err != nil {
		logger.Fatal("fetching scenario", zap.String("scenario", *ref), zap.Error(err))
	}

	var observers []battle.Sink
	if *narrate {
		observers = append(observers, battle.SinkFunc(func(e battle.Event) {
			if e.Kind != battle.EventStatus {
				fmt.Println(battlelog.Narrate(e))
			}
		}))
	}
	if *renderRounds {
		fx, err := appliedEffects(lib, sc)
		if err != nil {
			logger.Fatal("building forces", zap.Error(err))
		}
		text := render.Text{Width: render.DefaultWidth, Color: *color}
		observers = append(observers, battle.SinkFunc(func(e battle.Event) {
			if e.Kind == battle.EventStatus && e.Status != nil {
				fmt.Print(text.Render(*e.Status, fx))
				fmt.Println()
			}
		}))
	}

	r, err := svc.Simulate(ctx, *ref, sc, observers...)
	if err != nil {
		logger.Fatal("resolving battle", zap.String("scenario", sc.Name), zap.Error(err))
	}
	printSummary(r)
}

func prompt(catalog scenario.Catalog) int {
	fmt.Printf("Choose a scenario (1-%d, default %d): ", catalog.Count, catalog.Default)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return 0
	}
	return scenario.ParseChoice(line)
}

func appliedEffects(lib *content.Library, sc *scenario.Scenario) (render.Effects, error) {
	_, a, err := lib.BuildForce(sc.Sides[0])
	if err != nil {
		return render.Effects{}, err
	}
	_, b, err := lib.BuildForce(sc.Sides[1])
	if err != nil {
		return render.Effects{}, err
	}
	return render.Effects{SideA: a, SideB: b}, nil
}

func printSummary(r *simulation.Report) {
	last := battle.Event{Round: r.Outcome.Round, Kind: battle.EventOutcome, Outcome: &r.Outcome}
	fmt.Printf("%s (%s)\n", r.Scenario, r.Ref)
	fmt.Println(battlelog.Narrate(last))
	fmt.Printf("digest %s\n", r.Digest)
}
