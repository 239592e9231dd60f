package trainer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sortforge/internal/isa"
)

func TestDiscoveryLogDeduplicatesBySequence(t *testing.T) {
	log := NewDiscoveryLog()

	improved, newBest := log.Record(isa.Reference(), 1.0, true, 1)
	assert.True(t, improved)
	assert.True(t, newBest)

	// Same sequence with a worse reward changes nothing.
	improved, newBest = log.Record(isa.Reference(), 0.5, true, 2)
	assert.False(t, improved)
	assert.False(t, newBest)
	assert.Equal(t, 1, log.Len())

	// A better reward updates the existing entry in place.
	improved, _ = log.Record(isa.Reference(), 2.0, true, 3)
	assert.True(t, improved)
	assert.Equal(t, 1, log.Len())

	best, ok := log.Best()
	require.True(t, ok)
	assert.Equal(t, 2.0, best.Reward)
	assert.Equal(t, 3, best.Episode)
}

func TestDiscoveryLogSnapshotSortedByReward(t *testing.T) {
	log := NewDiscoveryLog()
	log.Record(isa.Program{isa.Done}, -1, false, 1)
	log.Record(isa.Reference(), 1.5, true, 2)
	log.Record(isa.Program{isa.SwapAB, isa.Done}, 0.3, false, 3)

	snapshot := log.Snapshot()
	require.Len(t, snapshot, 3)
	for i := 1; i < len(snapshot); i++ {
		assert.GreaterOrEqual(t, snapshot[i-1].Reward, snapshot[i].Reward)
	}
	assert.Equal(t, isa.Reference().String(), snapshot[0].Sequence)
}

func TestDiscoveryLogTopCorrect(t *testing.T) {
	log := NewDiscoveryLog()
	log.Record(isa.Program{isa.SwapAB, isa.Done}, 3.0, false, 1) // high reward, incorrect
	log.Record(isa.Reference(), 2.0, true, 2)
	log.Record(isa.Program{isa.SwapBC, isa.SwapAC, isa.SwapBC, isa.Done}, 1.0, true, 3)

	top := log.TopCorrect(2)
	require.Len(t, top, 2)
	assert.Equal(t, isa.Reference().String(), top[0].String())
	for _, prog := range top {
		assert.NotEqual(t, "swap_ab done", prog.String())
	}
}

func TestDiscoveryLogRestoreRoundTrip(t *testing.T) {
	log := NewDiscoveryLog()
	log.Record(isa.Reference(), 2.0, true, 5)
	log.Record(isa.Program{isa.Done}, -1, false, 6)

	restored := NewDiscoveryLog()
	restored.Restore(log.Snapshot())
	assert.Equal(t, log.Len(), restored.Len())

	best, ok := restored.Best()
	require.True(t, ok)
	assert.Equal(t, isa.Reference().String(), best.Sequence)

	// Recording after restore still deduplicates against old entries.
	improved, _ := restored.Record(isa.Reference(), 1.0, true, 7)
	assert.False(t, improved)
}
