package store

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/eigerco/plague/internal/game"
	"github.com/eigerco/plague/pkg/db"
	"github.com/eigerco/plague/pkg/log"
)

// Snapshots keeps rlp encoded game snapshots keyed by epoch and phase, so
// the latest key is always the most advanced state
type Snapshots struct {
	db     db.KVStore
	closed atomic.Bool
}

func NewSnapshots(db db.KVStore) *Snapshots {
	return &Snapshots{db: db}
}

func snapshotKey(epoch uint32, phase uint8) []byte {
	return makeKey(prefixSnapshot, be32(epoch), []byte{phase})
}

// Put stores snap, replacing an earlier snapshot of the same epoch and phase
func (s *Snapshots) Put(snap game.Snapshot) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	b, err := rlp.EncodeToBytes(&snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := s.db.Put(snapshotKey(snap.CurrentEpoch(), snap.Phase), b); err != nil {
		return fmt.Errorf("put snapshot: %w", err)
	}

	log.Store.Debug().
		Uint32("epoch", snap.CurrentEpoch()).
		Uint8("phase", snap.Phase).
		Int("bytes", len(b)).
		Msg("snapshot stored")
	return nil
}

// Latest returns the most advanced snapshot
func (s *Snapshots) Latest() (game.Snapshot, error) {
	return s.last(nil, nil)
}

// At returns the last snapshot taken in epoch
func (s *Snapshots) At(epoch uint32) (game.Snapshot, error) {
	end := []byte{prefixSnapshot + 1}
	if epoch < math.MaxUint32 {
		end = snapshotKey(epoch+1, 0)
	}
	return s.last(snapshotKey(epoch, 0), end)
}

// Epochs lists the epochs that have snapshots, ascending
func (s *Snapshots) Epochs() ([]uint32, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}
	iter, err := s.db.NewIterator([]byte{prefixSnapshot}, []byte{prefixSnapshot + 1})
	if err != nil {
		return nil, fmt.Errorf("create iterator: %w", err)
	}
	defer iter.Close()

	var epochs []uint32
	for iter.Next() {
		key := iter.Key()
		if len(key) != 6 {
			continue
		}
		e := binary.BigEndian.Uint32(key[1:5])
		if len(epochs) == 0 || epochs[len(epochs)-1] != e {
			epochs = append(epochs, e)
		}
	}
	return epochs, nil
}

func (s *Snapshots) last(start, end []byte) (game.Snapshot, error) {
	if s.closed.Load() {
		return game.Snapshot{}, ErrStoreClosed
	}
	if start == nil {
		start, end = []byte{prefixSnapshot}, []byte{prefixSnapshot + 1}
	}
	iter, err := s.db.NewIterator(start, end)
	if err != nil {
		return game.Snapshot{}, fmt.Errorf("create iterator: %w", err)
	}
	defer iter.Close()

	if !iter.Last() {
		return game.Snapshot{}, ErrSnapshotNotFound
	}
	b, err := iter.Value()
	if err != nil {
		return game.Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}

	var snap game.Snapshot
	if err := rlp.DecodeBytes(b, &snap); err != nil {
		return game.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

// Close closes the underlying store
func (s *Snapshots) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.db.Close()
}
