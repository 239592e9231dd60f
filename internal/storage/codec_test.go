package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sortforge/internal/model"
)

func TestCheckpointCodecRoundTrip(t *testing.T) {
	input := model.Checkpoint{
		VersionedRecord: versioned(),
		RunID:           "run-codec",
		Stage:           1,
		Episode:         9,
		Policy: model.NetworkParams{
			Sizes:   []int{3, 4, 2},
			Weights: [][][]float64{{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}, {0, 1, 0}}, {{1, 0, 0, 1}, {0, 1, 1, 0}}},
			Biases:  [][]float64{{0, 0, 0, 0}, {0.5, -0.5}},
		},
	}

	data, err := EncodeCheckpoint(input)
	require.NoError(t, err)

	output, err := DecodeCheckpoint(data)
	require.NoError(t, err)
	assert.Equal(t, input, output)
}

func TestDecodeCheckpointRejectsVersionMismatch(t *testing.T) {
	input := model.Checkpoint{
		VersionedRecord: model.VersionedRecord{SchemaVersion: 99, CodecVersion: CurrentCodecVersion},
		RunID:           "run-bad",
	}
	data, err := EncodeCheckpoint(input)
	require.NoError(t, err)

	_, err = DecodeCheckpoint(data)
	assert.ErrorIs(t, err, ErrVersionMismatch)
}

func TestDiscoveriesCodecRejectsVersionMismatch(t *testing.T) {
	records := []model.DiscoveryRecord{
		{VersionedRecord: versioned(), Sequence: "done", Reward: -1},
		{VersionedRecord: model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: 7}, Sequence: "done"},
	}
	data, err := EncodeDiscoveries(records)
	require.NoError(t, err)

	_, err = DecodeDiscoveries(data)
	assert.ErrorIs(t, err, ErrVersionMismatch)
}

func TestRewardHistoryCodecRoundTrip(t *testing.T) {
	input := []float64{0.25, -1, 2}
	data, err := EncodeRewardHistory(input)
	require.NoError(t, err)

	output, err := DecodeRewardHistory(data)
	require.NoError(t, err)
	assert.Equal(t, input, output)
}
