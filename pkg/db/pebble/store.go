package pebble

import (
	"errors"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
)

// KVStore is a pebble backed implementation of db.KVStore
type KVStore struct {
	db     *pebble.DB
	closed bool
	mu     sync.RWMutex
}

type options struct {
	path     string
	cacheMiB int64
}

// Option configures NewKVStore
type Option func(*options)

// WithPath stores the database on disk under dir. Without it the store lives
// in memory and is discarded on Close.
func WithPath(dir string) Option {
	return func(o *options) {
		o.path = dir
	}
}

// WithCacheSize sets the block cache size in MiB
func WithCacheSize(mib int64) Option {
	return func(o *options) {
		o.cacheMiB = mib
	}
}

// NewKVStore opens a pebble database
func NewKVStore(opts ...Option) (*KVStore, error) {
	o := options{cacheMiB: 64}
	for _, opt := range opts {
		opt(&o)
	}

	cache := pebble.NewCache(o.cacheMiB * 1024 * 1024)
	defer cache.Unref()

	pebbleOpts := &pebble.Options{
		Cache:        cache,
		MemTableSize: 32 * 1024 * 1024, // 32MB
	}
	if o.path == "" {
		pebbleOpts.FS = vfs.NewMem()
	}

	db, err := pebble.Open(o.path, pebbleOpts)
	if err != nil {
		return nil, err
	}

	return &KVStore{db: db}, nil
}

func (p *KVStore) Get(key []byte) ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, ErrClosed
	}

	value, closer, err := p.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close() //nolint:errcheck

	result := make([]byte, len(value))
	copy(result, value)
	return result, nil
}

func (p *KVStore) Put(key, value []byte) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrClosed
	}

	return p.db.Set(key, value, pebble.Sync)
}

func (p *KVStore) Delete(key []byte) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrClosed
	}

	return p.db.Delete(key, pebble.Sync)
}

func (p *KVStore) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	return p.db.Close()
}
