package storage

import (
	"context"

	"metis/internal/model"
)

// Store defines persistence operations for planning-run records.
type Store interface {
	Init(ctx context.Context) error
	SaveRunSummary(ctx context.Context, summary model.RunSummary) error
	GetRunSummary(ctx context.Context, id string) (model.RunSummary, bool, error)
	ListRuns(ctx context.Context) ([]model.RunSummary, error)
	SaveEpisodeStats(ctx context.Context, runID string, episodes []model.EpisodeStats) error
	GetEpisodeStats(ctx context.Context, runID string) ([]model.EpisodeStats, bool, error)
}
