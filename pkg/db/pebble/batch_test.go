package pebble

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/plague/pkg/db"
)

func seqKey(prefix byte, seq uint64) []byte {
	k := make([]byte, 9)
	k[0] = prefix
	binary.BigEndian.PutUint64(k[1:], seq)
	return k
}

func TestBatch(t *testing.T) {
	tests := []struct {
		name string
		fn   func(t *testing.T, store db.KVStore)
	}{
		{name: "entry and index in one commit", fn: testBatchEntryWithIndex},
		{name: "invisible until commit", fn: testBatchInvisibleUntilCommit},
		{name: "close discards", fn: testBatchCloseDiscards},
		{name: "done after commit", fn: testBatchDoneAfterCommit},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store, err := NewKVStore()
			require.NoError(t, err)
			t.Cleanup(func() { _ = store.Close() })

			tc.fn(t, store)
		})
	}
}

func testBatchEntryWithIndex(t *testing.T, store db.KVStore) {
	batch := store.NewBatch()
	defer batch.Close() //nolint:errcheck

	for seq := uint64(1); seq <= 3; seq++ {
		require.NoError(t, batch.Put(seqKey(0x10, seq), []byte{byte(seq)}))
		require.NoError(t, batch.Put(seqKey(0x11, seq), nil))
	}
	// a delete later in the batch wins over the earlier put
	require.NoError(t, batch.Delete(seqKey(0x11, 2)))
	require.NoError(t, batch.Commit())

	v, err := store.Get(seqKey(0x10, 3))
	require.NoError(t, err)
	assert.Equal(t, []byte{3}, v)

	_, err = store.Get(seqKey(0x11, 1))
	assert.NoError(t, err)
	_, err = store.Get(seqKey(0x11, 2))
	assert.ErrorIs(t, err, ErrNotFound)
}

func testBatchInvisibleUntilCommit(t *testing.T, store db.KVStore) {
	batch := store.NewBatch()
	defer batch.Close() //nolint:errcheck

	require.NoError(t, batch.Put(seqKey(0x10, 7), []byte("pending")))
	_, err := store.Get(seqKey(0x10, 7))
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, batch.Commit())
	v, err := store.Get(seqKey(0x10, 7))
	require.NoError(t, err)
	assert.Equal(t, []byte("pending"), v)
}

func testBatchCloseDiscards(t *testing.T, store db.KVStore) {
	batch := store.NewBatch()
	require.NoError(t, batch.Put(seqKey(0x10, 1), []byte("dropped")))
	require.NoError(t, batch.Close())

	_, err := store.Get(seqKey(0x10, 1))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, batch.Commit(), ErrBatchDone)
}

func testBatchDoneAfterCommit(t *testing.T, store db.KVStore) {
	batch := store.NewBatch()
	require.NoError(t, batch.Put(seqKey(0x10, 1), []byte("a")))
	require.NoError(t, batch.Commit())

	assert.ErrorIs(t, batch.Put(seqKey(0x10, 2), []byte("b")), ErrBatchDone)
	assert.ErrorIs(t, batch.Delete(seqKey(0x10, 1)), ErrBatchDone)
	assert.ErrorIs(t, batch.Commit(), ErrBatchDone)

	assert.NoError(t, batch.Close())
	assert.NoError(t, batch.Close())
}
