// Package oracle provides a local verifiable randomness provider. Words are
// derived from a seed and the request id, so a whole game can be replayed
// from its seed.
package oracle

import (
	"context"
	"encoding/binary"
	"errors"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/eigerco/plague/internal/crypto"
	"github.com/eigerco/plague/internal/randomness"
	"github.com/eigerco/plague/pkg/log"
)

var ErrBacklogFull = errors.New("oracle backlog is full")

// DeliverFunc is the callback receiving words, usually randomness.Router.Deliver
type DeliverFunc func(ctx context.Context, caller common.Address, id randomness.RequestID, words []uint256.Int) error

type request struct {
	id       randomness.RequestID
	numWords uint32
}

// Local queues requests and delivers them from Run or DeliverPending, never
// from inside SubmitRequest
type Local struct {
	identity common.Address
	seed     []byte
	nonce    atomic.Uint64
	backlog  chan request

	delivered atomic.Uint64
	rejected  atomic.Uint64
}

func NewLocal(identity common.Address, seed []byte, backlog int) *Local {
	if backlog <= 0 {
		backlog = 1024
	}
	return &Local{
		identity: identity,
		seed:     append([]byte(nil), seed...),
		backlog:  make(chan request, backlog),
	}
}

func (l *Local) Identity() common.Address {
	return l.identity
}

// SubmitRequest queues a request and returns its id
func (l *Local) SubmitRequest(ctx context.Context, numWords uint32) (randomness.RequestID, error) {
	var nonce [8]byte
	binary.BigEndian.PutUint64(nonce[:], l.nonce.Add(1))
	id := randomness.RequestID(crypto.KeccakData(l.seed, []byte("request"), nonce[:]))

	select {
	case l.backlog <- request{id: id, numWords: numWords}:
		return id, nil
	default:
		return randomness.RequestID{}, ErrBacklogFull
	}
}

// Words derives the words answering request id
func (l *Local) Words(id randomness.RequestID, numWords uint32) []uint256.Int {
	words := make([]uint256.Int, numWords)
	for j := range words {
		var idx [4]byte
		binary.BigEndian.PutUint32(idx[:], uint32(j))
		h := crypto.KeccakData(l.seed, id[:], idx[:])
		words[j].SetBytes32(h[:])
	}
	return words
}

// Run delivers queued requests until ctx is done
func (l *Local) Run(ctx context.Context, deliver DeliverFunc) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case r := <-l.backlog:
			l.deliver(ctx, deliver, r)
		}
	}
}

// DeliverPending delivers everything queued so far and returns how many
// requests it answered
func (l *Local) DeliverPending(ctx context.Context, deliver DeliverFunc) int {
	n := 0
	for {
		select {
		case r := <-l.backlog:
			l.deliver(ctx, deliver, r)
			n++
		default:
			return n
		}
	}
}

func (l *Local) deliver(ctx context.Context, deliver DeliverFunc, r request) {
	if err := deliver(ctx, l.identity, r.id, l.Words(r.id, r.numWords)); err != nil {
		l.rejected.Add(1)
		log.Oracle.Warn().Err(err).Str("request", r.id.Hex()).Msg("delivery rejected")
		return
	}
	l.delivered.Add(1)
}

// Queued is the number of requests waiting for delivery
func (l *Local) Queued() int {
	return len(l.backlog)
}

// Delivered is the number of accepted deliveries
func (l *Local) Delivered() uint64 {
	return l.delivered.Load()
}

// Rejected is the number of deliveries the callback refused
func (l *Local) Rejected() uint64 {
	return l.rejected.Load()
}
