package storage

import (
	"context"

	"sortforge/internal/model"
)

// Store defines persistence for training artifacts: resumable checkpoints,
// the deduplicated discovery log, per-run reward history, and run
// summaries.
type Store interface {
	Init(ctx context.Context) error
	SaveCheckpoint(ctx context.Context, checkpoint model.Checkpoint) error
	GetCheckpoint(ctx context.Context, runID string) (model.Checkpoint, bool, error)
	SaveDiscoveries(ctx context.Context, runID string, records []model.DiscoveryRecord) error
	GetDiscoveries(ctx context.Context, runID string) ([]model.DiscoveryRecord, bool, error)
	SaveRewardHistory(ctx context.Context, runID string, history []float64) error
	GetRewardHistory(ctx context.Context, runID string) ([]float64, bool, error)
	SaveRunSummary(ctx context.Context, summary model.RunSummary) error
	GetRunSummary(ctx context.Context, runID string) (model.RunSummary, bool, error)
}
