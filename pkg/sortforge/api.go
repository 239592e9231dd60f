package sortforge

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"sortforge/internal/config"
	"sortforge/internal/model"
	"sortforge/internal/storage"
	"sortforge/internal/trainer"
)

const defaultDBPath = "sortforge.db"

// Options configures a client. Zero values select the default store
// backend for the build, the default database path, and a no-op logger.
type Options struct {
	StoreKind string
	DBPath    string
	Logger    *zap.Logger
}

// Client is the embedding API over the training core: it owns the store
// and hands results back as plain values.
type Client struct {
	store storage.Store
	log   *zap.Logger
}

// TrainRequest selects a stage and optionally overrides run plumbing from
// the loaded configuration. ResumeRunID continues a checkpointed run.
type TrainRequest struct {
	Stage       int
	Episodes    int
	Seed        int64
	Workers     int
	ConfigPath  string
	ResumeRunID string
}

// TrainSummary is the reportable outcome of one training run.
type TrainSummary struct {
	RunID           string
	Stage           int
	Episodes        int
	BestReward      float64
	BestProgram     string
	Correct         bool
	CurriculumIndex int
}

type DiscoveriesRequest struct {
	RunID string
	Limit int
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{store: store, log: logger}, nil
}

func (c *Client) Init(ctx context.Context) error {
	return c.store.Init(ctx)
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

// Train runs one stage to completion (or clean cancellation) and returns
// its summary.
func (c *Client) Train(ctx context.Context, req TrainRequest) (TrainSummary, error) {
	cfg, err := config.Load(req.ConfigPath)
	if err != nil {
		return TrainSummary{}, err
	}
	if req.Episodes > 0 {
		cfg.Episodes = req.Episodes
	}
	if req.Seed != 0 {
		cfg.Seed = req.Seed
	}
	if req.Workers > 0 {
		cfg.Workers = req.Workers
	}

	t, err := trainer.New(cfg, trainer.Stage(req.Stage), c.store, c.log)
	if err != nil {
		return TrainSummary{}, err
	}
	if req.ResumeRunID != "" {
		t.SetRunID(req.ResumeRunID)
	}

	result, err := t.Run(ctx)
	if err != nil {
		return TrainSummary{}, err
	}
	return TrainSummary{
		RunID:           result.RunID,
		Stage:           int(result.Stage),
		Episodes:        result.Episodes,
		BestReward:      result.BestReward,
		BestProgram:     result.BestProgram.String(),
		Correct:         result.BestCorrect,
		CurriculumIndex: result.CurriculumIndex,
	}, nil
}

// Discoveries returns the persisted discovery log for a run, best first.
func (c *Client) Discoveries(ctx context.Context, req DiscoveriesRequest) ([]model.DiscoveryRecord, error) {
	records, ok, err := c.store.GetDiscoveries(ctx, req.RunID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no discoveries for run %s", req.RunID)
	}
	if req.Limit > 0 && len(records) > req.Limit {
		records = records[:req.Limit]
	}
	return records, nil
}

// Checkpoint returns the persisted checkpoint for a run.
func (c *Client) Checkpoint(ctx context.Context, runID string) (model.Checkpoint, error) {
	checkpoint, ok, err := c.store.GetCheckpoint(ctx, runID)
	if err != nil {
		return model.Checkpoint{}, err
	}
	if !ok {
		return model.Checkpoint{}, fmt.Errorf("no checkpoint for run %s", runID)
	}
	return checkpoint, nil
}

// RewardHistory returns the per-episode rewards of a run, optionally
// truncated to the most recent limit entries.
func (c *Client) RewardHistory(ctx context.Context, runID string, limit int) ([]float64, error) {
	history, ok, err := c.store.GetRewardHistory(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no reward history for run %s", runID)
	}
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	return history, nil
}

// Summary returns the persisted run summary.
func (c *Client) Summary(ctx context.Context, runID string) (model.RunSummary, error) {
	summary, ok, err := c.store.GetRunSummary(ctx, runID)
	if err != nil {
		return model.RunSummary{}, err
	}
	if !ok {
		return model.RunSummary{}, fmt.Errorf("no summary for run %s", runID)
	}
	return summary, nil
}
