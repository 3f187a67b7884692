package store

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/plague/internal/game"
	"github.com/eigerco/plague/pkg/db/pebble"
)

func newSnapshots(t *testing.T) *Snapshots {
	t.Helper()
	kv, err := pebble.NewKVStore()
	require.NoError(t, err)
	return NewSnapshots(kv)
}

func snapshot(epoch uint32, phase game.Phase, healthy int) game.Snapshot {
	s := game.Snapshot{Phase: uint8(phase), Statuses: []byte{1, 1, 0, 2}}
	for i := uint32(1); i <= epoch; i++ {
		s.Epochs = append(s.Epochs, game.EpochSnapshot{Index: i, InfectionRate: 2000})
	}
	for i := 0; i < healthy; i++ {
		s.Members = append(s.Members, uint32(i))
	}
	s.Pool[31] = 100
	return s
}

func TestSnapshots_LatestAndAt(t *testing.T) {
	s := newSnapshots(t)
	defer s.Close()

	_, err := s.Latest()
	assert.ErrorIs(t, err, ErrSnapshotNotFound)

	require.NoError(t, s.Put(snapshot(0, game.PhaseNotStarted, 4)))
	require.NoError(t, s.Put(snapshot(1, game.PhaseEpochPending, 4)))
	require.NoError(t, s.Put(snapshot(1, game.PhaseEpochActive, 3)))
	require.NoError(t, s.Put(snapshot(2, game.PhaseEpochPending, 2)))

	latest, err := s.Latest()
	require.NoError(t, err)
	assert.Equal(t, uint32(2), latest.CurrentEpoch())
	assert.Equal(t, uint32(2), latest.HealthyCount())
	assert.Equal(t, uint64(100), latest.PoolAmount().Uint64())
	assert.Equal(t, []byte{1, 1, 0, 2}, latest.Statuses)

	one, err := s.At(1)
	require.NoError(t, err)
	assert.Equal(t, uint8(game.PhaseEpochActive), one.Phase)
	assert.Equal(t, uint32(3), one.HealthyCount())

	_, err = s.At(7)
	assert.ErrorIs(t, err, ErrSnapshotNotFound)

	epochs, err := s.Epochs()
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 1, 2}, epochs)
}

func TestSnapshots_AtLastEpoch(t *testing.T) {
	s := newSnapshots(t)
	defer s.Close()

	last := game.Snapshot{
		Phase:  uint8(game.PhaseOver),
		Epochs: []game.EpochSnapshot{{Index: math.MaxUint32 - 1}, {Index: math.MaxUint32}},
	}
	require.NoError(t, s.Put(last))
	require.NoError(t, s.Put(game.Snapshot{
		Phase:  uint8(game.PhaseEpochActive),
		Epochs: []game.EpochSnapshot{{Index: math.MaxUint32 - 1}},
	}))

	got, err := s.At(math.MaxUint32)
	require.NoError(t, err)
	assert.Equal(t, uint8(game.PhaseOver), got.Phase)
	assert.Equal(t, uint32(math.MaxUint32), got.CurrentEpoch())

	prev, err := s.At(math.MaxUint32 - 1)
	require.NoError(t, err)
	assert.Equal(t, uint8(game.PhaseEpochActive), prev.Phase)
}

func TestSnapshots_Close(t *testing.T) {
	s := newSnapshots(t)
	require.NoError(t, s.Close())
	// Closing twice has no effect
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Put(snapshot(1, game.PhaseEpochActive, 1)), ErrStoreClosed)
	_, err := s.Latest()
	assert.ErrorIs(t, err, ErrStoreClosed)
}

func TestPrefixToString(t *testing.T) {
	assert.Equal(t, "snapshot", PrefixToString(prefixSnapshot))
	assert.Equal(t, "brewLogByDoctor", PrefixToString(prefixBrewLogByDoctor))
	assert.Equal(t, "unknown", PrefixToString(0xff))
}
