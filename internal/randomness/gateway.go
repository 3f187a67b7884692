package randomness

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/eigerco/plague/internal/metrics"
	"github.com/eigerco/plague/pkg/log"
)

type request struct {
	slot      Slot
	id        RequestID
	words     []uint256.Int
	fulfilled bool
}

// Result is the state of the request issued for one slot
type Result struct {
	Slot      Slot
	RequestID RequestID
	Words     []uint256.Int
	Fulfilled bool
}

// Gateway pairs oracle requests with the slots they serve. It enforces a
// single request per slot and accepts exactly one delivery for it, from the
// oracle identity only.
//
// Consumers that apply a word to their own state must call Fulfill while
// holding their own lock, so the delivery is ordered with their other calls.
type Gateway struct {
	mu       sync.RWMutex
	oracle   Oracle
	numWords uint32
	metrics  *metrics.Metrics

	bySlot map[Slot]*request
	byID   map[RequestID]*request
}

// NewGateway creates a gateway issuing requests for numWords words each.
// A zero numWords requests a single word.
func NewGateway(oracle Oracle, numWords uint32, m *metrics.Metrics) *Gateway {
	if numWords == 0 {
		numWords = 1
	}
	return &Gateway{
		oracle:   oracle,
		numWords: numWords,
		metrics:  m,
		bySlot:   make(map[Slot]*request),
		byID:     make(map[RequestID]*request),
	}
}

// Request issues the oracle request for slot
func (g *Gateway) Request(ctx context.Context, slot Slot) (RequestID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if r, ok := g.bySlot[slot]; ok {
		if r.fulfilled {
			return RequestID{}, fmt.Errorf("%w: %s", ErrAlreadyFulfilled, slot)
		}
		return RequestID{}, fmt.Errorf("%w: %s", ErrAlreadyRequested, slot)
	}

	id, err := g.oracle.SubmitRequest(ctx, g.numWords)
	if err != nil {
		return RequestID{}, fmt.Errorf("submit randomness request for %s: %w", slot, err)
	}
	if _, ok := g.byID[id]; ok {
		return RequestID{}, fmt.Errorf("%w: %s", ErrDuplicateRequestID, id)
	}

	r := &request{slot: slot, id: id}
	g.bySlot[slot] = r
	g.byID[id] = r
	g.metrics.Requested(slot.Kind.String())

	log.Oracle.Debug().
		Stringer("slot", slot).
		Str("request", id.Hex()).
		Msg("randomness requested")
	return id, nil
}

// Cancel withdraws an outstanding request so the slot can be requested
// again. It is meant for rolling back a transition that failed after its
// request was issued; a late delivery for the cancelled id is rejected.
func (g *Gateway) Cancel(slot Slot) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	r, ok := g.bySlot[slot]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRequest, slot)
	}
	if r.fulfilled {
		return fmt.Errorf("%w: %s", ErrAlreadyFulfilled, slot)
	}
	delete(g.bySlot, slot)
	delete(g.byID, r.id)
	return nil
}

// Authenticate checks that caller is the oracle identity
func (g *Gateway) Authenticate(caller common.Address) error {
	if caller != g.oracle.Identity() {
		g.metrics.Rejected("unauthorized")
		return fmt.Errorf("%w: %s", ErrUnauthorized, caller.Hex())
	}
	return nil
}

// Resolve returns the slot a request id was issued for
func (g *Gateway) Resolve(id RequestID) (Slot, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	r, ok := g.byID[id]
	if !ok {
		return Slot{}, fmt.Errorf("%w: %s", ErrUnknownRequest, id.Hex())
	}
	return r.slot, nil
}

// Fulfill records the words delivered for request id and returns its slot
func (g *Gateway) Fulfill(caller common.Address, id RequestID, words []uint256.Int) (Slot, error) {
	if err := g.Authenticate(caller); err != nil {
		return Slot{}, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	r, ok := g.byID[id]
	if !ok || g.bySlot[r.slot] != r {
		g.metrics.Rejected("unknown")
		return Slot{}, fmt.Errorf("%w: %s", ErrUnknownRequest, id.Hex())
	}
	if r.fulfilled {
		g.metrics.Rejected("duplicate")
		return Slot{}, fmt.Errorf("%w: %s", ErrAlreadyFulfilled, r.slot)
	}
	if len(words) == 0 {
		g.metrics.Rejected("empty")
		return Slot{}, ErrNoRandomWords
	}

	r.words = append([]uint256.Int(nil), words...)
	r.fulfilled = true
	g.metrics.Delivered(r.slot.Kind.String())

	log.Oracle.Debug().
		Stringer("slot", r.slot).
		Str("request", id.Hex()).
		Int("words", len(words)).
		Msg("randomness fulfilled")
	return r.slot, nil
}

// Word returns the first word delivered for slot
func (g *Gateway) Word(slot Slot) (*uint256.Int, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	r, ok := g.bySlot[slot]
	if !ok || !r.fulfilled {
		return nil, false
	}
	return new(uint256.Int).Set(&r.words[0]), true
}

// Words returns every word delivered for slot
func (g *Gateway) Words(slot Slot) ([]uint256.Int, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	r, ok := g.bySlot[slot]
	if !ok || !r.fulfilled {
		return nil, false
	}
	return append([]uint256.Int(nil), r.words...), true
}

// Pending reports whether slot has a request awaiting delivery
func (g *Gateway) Pending(slot Slot) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	r, ok := g.bySlot[slot]
	return ok && !r.fulfilled
}

// Requested reports whether a request was ever issued for slot
func (g *Gateway) Requested(slot Slot) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	_, ok := g.bySlot[slot]
	return ok
}

// Outstanding counts the requests awaiting delivery
func (g *Gateway) Outstanding() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	n := 0
	for _, r := range g.bySlot {
		if !r.fulfilled {
			n++
		}
	}
	return n
}

// Results lists every issued request ordered by slot
func (g *Gateway) Results() []Result {
	g.mu.RLock()
	defer g.mu.RUnlock()

	results := make([]Result, 0, len(g.bySlot))
	for _, r := range g.bySlot {
		results = append(results, Result{
			Slot:      r.slot,
			RequestID: r.id,
			Words:     append([]uint256.Int(nil), r.words...),
			Fulfilled: r.fulfilled,
		})
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Slot.less(results[j].Slot)
	})
	return results
}
