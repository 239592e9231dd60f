package trainer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sortforge/internal/config"
	"sortforge/internal/storage"
)

func testTrainerConfig() config.Config {
	cfg := config.Default()
	cfg.Episodes = 150
	cfg.CheckpointEvery = 50
	cfg.RollingWindow = 10
	cfg.LatencyRepetitions = 5
	cfg.HiddenSizes = []int{16}
	cfg.Seed = 7
	return cfg
}

func newInitializedStore(t *testing.T) storage.Store {
	t.Helper()
	store := storage.NewMemoryStore()
	require.NoError(t, store.Init(context.Background()))
	return store
}

func TestStageSyntaxRunFindsWellFormedProgram(t *testing.T) {
	store := newInitializedStore(t)
	tr, err := New(testTrainerConfig(), StageSyntax, store, nil)
	require.NoError(t, err)

	result, err := tr.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 150, result.Episodes)
	assert.Len(t, result.Rewards, 150)
	// Any sequence ending in done is well-formed; 150 episodes cannot miss.
	assert.Equal(t, 1.0, result.BestReward)
	assert.True(t, result.BestProgram.WellFormed(8))
}

func TestRunPersistsCheckpointAndArtifacts(t *testing.T) {
	store := newInitializedStore(t)
	tr, err := New(testTrainerConfig(), StageCorrectness, store, nil)
	require.NoError(t, err)

	result, err := tr.Run(context.Background())
	require.NoError(t, err)

	ctx := context.Background()
	checkpoint, ok, err := store.GetCheckpoint(ctx, result.RunID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int(StageCorrectness), checkpoint.Stage)
	assert.Equal(t, 150, checkpoint.Episode)
	assert.Equal(t, result.CurriculumIndex, checkpoint.CurriculumIndex)
	assert.NotEmpty(t, checkpoint.Policy.Weights)
	assert.Nil(t, checkpoint.Value) // no critic outside stage 3

	records, ok, err := store.GetDiscoveries(ctx, result.RunID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEmpty(t, records)
	for i := 1; i < len(records); i++ {
		assert.GreaterOrEqual(t, records[i-1].Reward, records[i].Reward)
	}

	history, ok, err := store.GetRewardHistory(ctx, result.RunID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, history, 150)

	summary, ok, err := store.GetRunSummary(ctx, result.RunID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, result.BestReward, summary.BestReward)
}

func TestRunResumesFromCheckpoint(t *testing.T) {
	store := newInitializedStore(t)
	cfg := testTrainerConfig()
	cfg.Episodes = 60

	first, err := New(cfg, StageCorrectness, store, nil)
	require.NoError(t, err)
	firstResult, err := first.Run(context.Background())
	require.NoError(t, err)

	// Same run ID and budget: the resumed trainer has nothing left to do.
	second, err := New(cfg, StageCorrectness, store, nil)
	require.NoError(t, err)
	second.SetRunID(firstResult.RunID)
	secondResult, err := second.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 60, secondResult.Episodes)
	assert.Equal(t, firstResult.BestReward, secondResult.BestReward)
	assert.Len(t, secondResult.Rewards, 60)
}

func TestRunRejectsStageMismatchedCheckpoint(t *testing.T) {
	store := newInitializedStore(t)
	cfg := testTrainerConfig()
	cfg.Episodes = 20

	first, err := New(cfg, StageSyntax, store, nil)
	require.NoError(t, err)
	firstResult, err := first.Run(context.Background())
	require.NoError(t, err)

	second, err := New(cfg, StageCorrectness, store, nil)
	require.NoError(t, err)
	second.SetRunID(firstResult.RunID)
	_, err = second.Run(context.Background())
	assert.Error(t, err)
}

func TestRunStopsCleanlyWhenCancelled(t *testing.T) {
	store := newInitializedStore(t)
	tr, err := New(testTrainerConfig(), StageCorrectness, store, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := tr.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Episodes)

	// The final checkpoint still lands despite the dead context.
	_, ok, err := store.GetCheckpoint(context.Background(), result.RunID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStageLatencyRunCompletes(t *testing.T) {
	store := newInitializedStore(t)
	cfg := testTrainerConfig()
	cfg.Episodes = 40

	tr, err := New(cfg, StageLatency, store, nil)
	require.NoError(t, err)

	result, err := tr.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 40, result.Episodes)

	checkpoint, ok, err := store.GetCheckpoint(context.Background(), result.RunID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotNil(t, checkpoint.Value, "stage 3 checkpoints carry the critic")

	// Stage 3 rewards are bounded by the configured weights.
	for _, r := range result.Rewards {
		assert.LessOrEqual(t, r, cfg.WeightCorrectness+cfg.WeightLatencyMax+cfg.WeightLengthMax)
		assert.GreaterOrEqual(t, r, -cfg.InvalidPenalty)
	}
}

func TestNewRejectsUnknownStage(t *testing.T) {
	_, err := New(testTrainerConfig(), Stage(9), nil, nil)
	assert.Error(t, err)
}
