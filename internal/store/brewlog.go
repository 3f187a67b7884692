package store

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/eigerco/plague/internal/brew"
	"github.com/eigerco/plague/pkg/db"
	"github.com/eigerco/plague/pkg/log"
)

// BrewLogs is the persistent brew journal. Logs are keyed by sequence
// number with a secondary index by doctor.
type BrewLogs struct {
	db db.KVStore

	mu     sync.RWMutex
	next   uint64
	closed bool
}

// NewBrewLogs opens the journal and resumes numbering after the last log
func NewBrewLogs(db db.KVStore) (*BrewLogs, error) {
	l := &BrewLogs{db: db}

	iter, err := db.NewIterator([]byte{prefixBrewLog}, []byte{prefixBrewLog + 1})
	if err != nil {
		return nil, fmt.Errorf("create iterator: %w", err)
	}
	defer iter.Close()

	if iter.Last() {
		key := iter.Key()
		if len(key) != 9 {
			return nil, fmt.Errorf("malformed brew log key %x", key)
		}
		l.next = binary.BigEndian.Uint64(key[1:]) + 1
	}
	return l, nil
}

// Append writes logs and their index entries in one batch
func (l *BrewLogs) Append(logs ...brew.Log) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrStoreClosed
	}

	batch := l.db.NewBatch()
	defer batch.Close()

	seq := l.next
	for _, entry := range logs {
		b, err := rlp.EncodeToBytes(&entry)
		if err != nil {
			return fmt.Errorf("encode brew log: %w", err)
		}
		if err := batch.Put(makeKey(prefixBrewLog, be64(seq)), b); err != nil {
			return fmt.Errorf("store brew log: %w", err)
		}
		if err := batch.Put(makeKey(prefixBrewLogByDoctor, be32(entry.Doctor), be64(seq)), nil); err != nil {
			return fmt.Errorf("index brew log: %w", err)
		}
		seq++
	}
	if err := batch.Commit(); err != nil {
		return fmt.Errorf(ErrFailedBatchCommit, err)
	}
	l.next = seq

	log.Store.Debug().Int("logs", len(logs)).Uint64("next", seq).Msg("brew logs appended")
	return nil
}

func (l *BrewLogs) All() ([]brew.Log, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return nil, ErrStoreClosed
	}
	iter, err := l.db.NewIterator([]byte{prefixBrewLog}, []byte{prefixBrewLog + 1})
	if err != nil {
		return nil, fmt.Errorf("create iterator: %w", err)
	}
	defer iter.Close()

	var out []brew.Log
	for iter.Next() {
		entry, err := decodeLog(iter)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}

func (l *BrewLogs) ByDoctor(doctor uint32) ([]brew.Log, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return nil, ErrStoreClosed
	}
	prefix := makeKey(prefixBrewLogByDoctor, be32(doctor))
	end := []byte{prefixBrewLogByDoctor + 1}
	if doctor < math.MaxUint32 {
		end = makeKey(prefixBrewLogByDoctor, be32(doctor+1))
	}
	iter, err := l.db.NewIterator(prefix, end)
	if err != nil {
		return nil, fmt.Errorf("create iterator: %w", err)
	}
	defer iter.Close()

	var out []brew.Log
	for iter.Next() {
		key := iter.Key()
		b, err := l.db.Get(makeKey(prefixBrewLog, key[len(prefix):]))
		if err != nil {
			return nil, fmt.Errorf("get indexed brew log: %w", err)
		}
		var entry brew.Log
		if err := rlp.DecodeBytes(b, &entry); err != nil {
			return nil, fmt.Errorf("decode brew log: %w", err)
		}
		out = append(out, entry)
	}
	return out, nil
}

// Recent returns the last n logs, oldest first
func (l *BrewLogs) Recent(n int) ([]brew.Log, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return nil, ErrStoreClosed
	}
	if n <= 0 {
		return nil, nil
	}
	iter, err := l.db.NewIterator([]byte{prefixBrewLog}, []byte{prefixBrewLog + 1})
	if err != nil {
		return nil, fmt.Errorf("create iterator: %w", err)
	}
	defer iter.Close()

	out := make([]brew.Log, 0, n)
	for ok := iter.Last(); ok && len(out) < n; ok = iter.Prev() {
		entry, err := decodeLog(iter)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (l *BrewLogs) Len() (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return 0, ErrStoreClosed
	}
	return l.next, nil
}

// Close marks the journal closed. The underlying store is owned by the caller.
func (l *BrewLogs) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
}

func decodeLog(iter db.Iterator) (brew.Log, error) {
	b, err := iter.Value()
	if err != nil {
		return brew.Log{}, fmt.Errorf("read brew log: %w", err)
	}
	var entry brew.Log
	if err := rlp.DecodeBytes(b, &entry); err != nil {
		return brew.Log{}, fmt.Errorf("decode brew log: %w", err)
	}
	return entry, nil
}
