package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sortforge/internal/model"
)

func versioned() model.VersionedRecord {
	return model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
}

func TestMemoryStoreCheckpointRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Init(ctx))

	input := model.Checkpoint{
		VersionedRecord: versioned(),
		RunID:           "run-1",
		Stage:           3,
		Episode:         420,
		CurriculumIndex: 2,
		Policy: model.NetworkParams{
			Sizes:   []int{2, 2},
			Weights: [][][]float64{{{0.1, -0.2}, {0.3, 0.4}}},
			Biases:  [][]float64{{0.0, 0.5}},
		},
		Baseline: 1.25,
	}
	require.NoError(t, store.SaveCheckpoint(ctx, input))

	output, ok, err := store.GetCheckpoint(ctx, "run-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, input, output)

	_, ok, err = store.GetCheckpoint(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStoreDiscoveriesRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Init(ctx))

	input := []model.DiscoveryRecord{
		{VersionedRecord: versioned(), Sequence: "swap_bc swap_ab swap_bc done", Reward: 2.1, Correct: true, Episode: 17},
		{VersionedRecord: versioned(), Sequence: "swap_ab done", Reward: 0.4, Episode: 3},
	}
	require.NoError(t, store.SaveDiscoveries(ctx, "run-1", input))

	output, ok, err := store.GetDiscoveries(ctx, "run-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, input, output)

	// The store must hand back copies, not aliases.
	output[0].Reward = -99
	again, _, err := store.GetDiscoveries(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 2.1, again[0].Reward)
}

func TestMemoryStoreRewardHistoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Init(ctx))

	input := []float64{-1, 0.2, 1.6, 1.6}
	require.NoError(t, store.SaveRewardHistory(ctx, "run-1", input))

	output, ok, err := store.GetRewardHistory(ctx, "run-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, input, output)
}

func TestMemoryStoreRunSummaryRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Init(ctx))

	input := model.RunSummary{
		VersionedRecord: versioned(),
		RunID:           "run-1",
		Stage:           2,
		Episodes:        300,
		BestReward:      1.48,
		BestSequence:    "swap_bc swap_ab swap_bc done",
		FinalStage:      3,
		Solved:          true,
	}
	require.NoError(t, store.SaveRunSummary(ctx, input))

	output, ok, err := store.GetRunSummary(ctx, "run-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, input, output)
}
