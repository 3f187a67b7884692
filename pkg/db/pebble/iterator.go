package pebble

import (
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/eigerco/plague/pkg/db"
)

type Iterator struct {
	iter       *pebble.Iterator
	positioned bool
}

func (p *KVStore) NewIterator(start, end []byte) (db.Iterator, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, ErrClosed
	}

	iter, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: start,
		UpperBound: end,
	})
	if err != nil {
		return nil, fmt.Errorf(ErrInIteratorCreation, err)
	}
	return &Iterator{iter: iter}, nil
}

// Next advances the iterator. The first call positions it at the first key
// of the range.
func (it *Iterator) Next() bool {
	if !it.positioned {
		it.positioned = true
		return it.iter.First()
	}
	return it.iter.Next()
}

// Last positions the iterator at the final key of the range
func (it *Iterator) Last() bool {
	it.positioned = true
	return it.iter.Last()
}

// Prev moves the iterator backwards
func (it *Iterator) Prev() bool {
	if !it.positioned {
		return it.Last()
	}
	return it.iter.Prev()
}

func (it *Iterator) Key() []byte {
	key := it.iter.Key()
	result := make([]byte, len(key))
	copy(result, key)
	return result
}

func (it *Iterator) Value() ([]byte, error) {
	if !it.iter.Valid() {
		return nil, ErrIteratorInvalid
	}

	val, err := it.iter.ValueAndErr()
	if err != nil {
		return nil, fmt.Errorf(ErrIteratorValue, err)
	}

	result := make([]byte, len(val))
	copy(result, val)
	return result, nil
}

func (it *Iterator) Valid() bool {
	return it.positioned && it.iter.Valid()
}

func (it *Iterator) Close() error {
	return it.iter.Close()
}
