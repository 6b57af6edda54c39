package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"metis/internal/storage"
	metisapi "metis/pkg/metis"
)

const artifactsDir = "artifacts"

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "init":
		return runInit(ctx, args[1:])
	case "run":
		return runRun(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "episodes":
		return runEpisodes(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func runInit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "metis.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := metisapi.NewClient(ctx, metisapi.Options{StoreKind: *storeKind, DBPath: *dbPath, ArtifactsDir: artifactsDir})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	fmt.Printf("initialized %s store\n", *storeKind)
	return nil
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "metis.db", "sqlite database path")
	configPath := fs.String("config", "", "JSON run config path")

	req := metisapi.NewRunRequest()
	fs.StringVar(&req.Scenario, "scenario", req.Scenario, "scenario: random-walk|integrator|drift")
	fs.StringVar(&req.Measure, "measure", req.Measure, "exploration measure: information-gain|variance|random")
	fs.IntVar(&req.Episodes, "episodes", req.Episodes, "planning episodes to run")
	fs.IntVar(&req.StateSize, "state-size", req.StateSize, "state dimension")
	fs.IntVar(&req.ActionSize, "action-size", req.ActionSize, "action dimension")
	fs.IntVar(&req.EnsembleSize, "ensemble-size", req.EnsembleSize, "dynamics ensemble members")
	fs.IntVar(&req.PlanHorizon, "plan-horizon", req.PlanHorizon, "simulated steps per rollout")
	fs.IntVar(&req.OptimisationIters, "optimisation-iters", req.OptimisationIters, "CEM iterations")
	fs.IntVar(&req.NCandidates, "candidates", req.NCandidates, "candidate action sequences")
	fs.IntVar(&req.TopCandidates, "top-candidates", req.TopCandidates, "elite set size")
	fs.BoolVar(&req.UseReward, "use-reward", req.UseReward, "score candidates by predicted reward")
	fs.BoolVar(&req.UseExploration, "use-exploration", req.UseExploration, "score candidates by exploration bonus")
	fs.Float64Var(&req.ExplScale, "expl-scale", req.ExplScale, "exploration bonus scale")
	fs.Int64Var(&req.Seed, "seed", req.Seed, "random seed")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *configPath != "" {
		loaded, err := loadRunRequestFromConfig(*configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		req = applyFlagOverrides(loaded, fs)
	}

	client, err := metisapi.NewClient(ctx, metisapi.Options{StoreKind: *storeKind, DBPath: *dbPath, ArtifactsDir: artifactsDir})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	result, err := client.RunEpisodes(ctx, req)
	if err != nil {
		return err
	}

	fmt.Printf("run %s: %d episodes, artifacts in %s\n", result.RunID, len(result.Episodes), result.RunDir)
	for _, ep := range result.Episodes {
		fmt.Printf("  episode %d: action=%v reward(max=%.4g mean=%.4g min=%.4g std=%.4g)\n",
			ep.Episode, ep.Action, ep.Reward.Max, ep.Reward.Mean, ep.Reward.Min, ep.Reward.Std)
	}
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "metis.db", "sqlite database path")
	asJSON := fs.Bool("json", false, "emit JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := metisapi.NewClient(ctx, metisapi.Options{StoreKind: *storeKind, DBPath: *dbPath, ArtifactsDir: artifactsDir})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	runs, err := client.Runs(ctx)
	if err != nil {
		return err
	}
	if *asJSON {
		return json.NewEncoder(os.Stdout).Encode(runs)
	}
	for _, summary := range runs {
		fmt.Printf("%s scenario=%s measure=%s episodes=%d seed=%d\n",
			summary.ID, summary.Scenario, summary.Measure, summary.Episodes, summary.Seed)
	}
	return nil
}

func runEpisodes(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("episodes", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "metis.db", "sqlite database path")
	runID := fs.String("run", "", "run id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID == "" {
		return usageError("episodes requires -run")
	}

	client, err := metisapi.NewClient(ctx, metisapi.Options{StoreKind: *storeKind, DBPath: *dbPath, ArtifactsDir: artifactsDir})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	episodes, err := client.Episodes(ctx, *runID)
	if err != nil {
		return err
	}
	return json.NewEncoder(os.Stdout).Encode(episodes)
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "metis.db", "sqlite database path")
	runID := fs.String("run", "", "run id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID == "" {
		return usageError("export requires -run")
	}

	client, err := metisapi.NewClient(ctx, metisapi.Options{StoreKind: *storeKind, DBPath: *dbPath, ArtifactsDir: artifactsDir})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	runDir, err := client.Export(ctx, *runID)
	if err != nil {
		return err
	}
	fmt.Printf("exported %s to %s\n", *runID, runDir)
	return nil
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: metisctl <init|run|runs|episodes|export> [flags]", msg)
}
