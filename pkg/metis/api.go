// Package metis is the public entry point: a Client that runs planning
// episodes against built-in scenarios, records the drained statistics
// to a store, and writes run artifacts for inspection.
package metis

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"metis/internal/dynamics"
	"metis/internal/measure"
	"metis/internal/model"
	"metis/internal/planner"
	"metis/internal/stats"
	"metis/internal/storage"
)

const (
	defaultArtifactsDir = "artifacts"
	defaultDBPath       = "metis.db"
)

type Options struct {
	StoreKind    string
	DBPath       string
	ArtifactsDir string
}

type Client struct {
	store        storage.Store
	artifactsDir string
}

func NewClient(ctx context.Context, opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	artifactsDir := opts.ArtifactsDir
	if artifactsDir == "" {
		artifactsDir = defaultArtifactsDir
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	return &Client{store: store, artifactsDir: artifactsDir}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

// RunRequest configures one planning run: the synthetic scenario, the
// planner dimensions and the objective mix.
type RunRequest struct {
	Scenario          string
	Measure           string
	Episodes          int
	StateSize         int
	ActionSize        int
	EnsembleSize      int
	PlanHorizon       int
	OptimisationIters int
	NCandidates       int
	TopCandidates     int
	UseReward         bool
	UseExploration    bool
	ExplScale         float64
	Seed              int64
}

// NewRunRequest returns the default request: the random-walk scenario
// scored by reward and information gain.
func NewRunRequest() RunRequest {
	return RunRequest{
		Scenario:          "random-walk",
		Measure:           "information-gain",
		Episodes:          1,
		StateSize:         2,
		ActionSize:        2,
		EnsembleSize:      5,
		PlanHorizon:       12,
		OptimisationIters: 5,
		NCandidates:       100,
		TopCandidates:     10,
		UseReward:         true,
		UseExploration:    true,
		ExplScale:         1,
	}
}

func (r RunRequest) validate() error {
	if r.Episodes <= 0 {
		return fmt.Errorf("episodes must be positive, got %d", r.Episodes)
	}
	if r.StateSize <= 0 {
		return fmt.Errorf("state size must be positive, got %d", r.StateSize)
	}
	if r.Scenario == "integrator" && r.ActionSize != r.StateSize {
		return fmt.Errorf("integrator scenario requires action size %d to equal state size %d", r.ActionSize, r.StateSize)
	}
	return nil
}

type RunResult struct {
	RunID    string
	RunDir   string
	Episodes []model.EpisodeStats
}

// RunEpisodes executes the requested number of planning calls, drains
// the statistics after each one, persists everything under a fresh run
// ID and writes run artifacts.
func (c *Client) RunEpisodes(ctx context.Context, req RunRequest) (RunResult, error) {
	if err := req.validate(); err != nil {
		return RunResult{}, err
	}

	scenario, err := dynamics.NewScenario(req.Scenario, req.StateSize, req.EnsembleSize, uint64(req.Seed))
	if err != nil {
		return RunResult{}, err
	}
	m, err := newMeasure(req.Measure, req.Seed)
	if err != nil {
		return RunResult{}, err
	}

	cfg := planner.NewConfig(scenario.Ensemble, scenario.Reward, m)
	cfg.ActionSize = req.ActionSize
	cfg.PlanHorizon = req.PlanHorizon
	cfg.OptimisationIters = req.OptimisationIters
	cfg.NCandidates = req.NCandidates
	cfg.TopCandidates = req.TopCandidates
	cfg.UseReward = req.UseReward
	cfg.UseExploration = req.UseExploration
	cfg.ExplScale = req.ExplScale
	cfg.Rand = rand.New(rand.NewSource(req.Seed))

	p, err := planner.New(cfg)
	if err != nil {
		return RunResult{}, err
	}

	runID := uuid.NewString()
	episodes := make([]model.EpisodeStats, 0, req.Episodes)
	for ep := 0; ep < req.Episodes; ep++ {
		if err := ctx.Err(); err != nil {
			return RunResult{}, err
		}
		action, err := p.Plan(scenario.InitialState)
		if err != nil {
			return RunResult{}, fmt.Errorf("episode %d: %w", ep, err)
		}

		record := model.EpisodeStats{
			VersionedRecord: storage.Stamp(),
			RunID:           runID,
			Episode:         ep,
			Action:          action,
		}
		switch {
		case req.UseReward:
			expl, reward, err := p.Drain()
			if err != nil {
				return RunResult{}, fmt.Errorf("episode %d: drain: %w", ep, err)
			}
			record.Exploration = expl
			record.Reward = reward
		case req.UseExploration:
			record.Exploration = m.Stats()
		}
		episodes = append(episodes, record)
	}

	summary := model.RunSummary{
		VersionedRecord:   storage.Stamp(),
		ID:                runID,
		Scenario:          scenario.Name,
		Measure:           m.Name(),
		Episodes:          req.Episodes,
		StateSize:         req.StateSize,
		ActionSize:        req.ActionSize,
		EnsembleSize:      req.EnsembleSize,
		PlanHorizon:       req.PlanHorizon,
		OptimisationIters: req.OptimisationIters,
		NCandidates:       req.NCandidates,
		TopCandidates:     req.TopCandidates,
		UseReward:         req.UseReward,
		UseExploration:    req.UseExploration,
		ExplScale:         req.ExplScale,
		Seed:              req.Seed,
		CreatedUnix:       time.Now().Unix(),
	}

	if err := c.store.SaveRunSummary(ctx, summary); err != nil {
		return RunResult{}, err
	}
	if err := c.store.SaveEpisodeStats(ctx, runID, episodes); err != nil {
		return RunResult{}, err
	}
	runDir, err := stats.WriteRunArtifacts(c.artifactsDir, stats.RunArtifacts{Summary: summary, Episodes: episodes})
	if err != nil {
		return RunResult{}, err
	}

	return RunResult{RunID: runID, RunDir: runDir, Episodes: episodes}, nil
}

// Runs lists the persisted run summaries.
func (c *Client) Runs(ctx context.Context) ([]model.RunSummary, error) {
	return c.store.ListRuns(ctx)
}

// Episodes returns the persisted episode records of one run.
func (c *Client) Episodes(ctx context.Context, runID string) ([]model.EpisodeStats, error) {
	episodes, ok, err := c.store.GetEpisodeStats(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("unknown run: %s", runID)
	}
	return episodes, nil
}

// Export rewrites the artifacts of a stored run from the store's copy.
func (c *Client) Export(ctx context.Context, runID string) (string, error) {
	summary, ok, err := c.store.GetRunSummary(ctx, runID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("unknown run: %s", runID)
	}
	episodes, ok, err := c.store.GetEpisodeStats(ctx, runID)
	if err != nil {
		return "", err
	}
	if !ok {
		episodes = nil
	}
	return stats.WriteRunArtifacts(c.artifactsDir, stats.RunArtifacts{Summary: summary, Episodes: episodes})
}

func newMeasure(name string, seed int64) (measure.Measure, error) {
	switch name {
	case "", "information-gain":
		return measure.NewInformationGain(), nil
	case "variance":
		return measure.NewVariance(), nil
	case "random":
		return measure.NewRandom(rand.New(rand.NewSource(seed + 1))), nil
	default:
		return nil, fmt.Errorf("unsupported measure: %s", name)
	}
}
