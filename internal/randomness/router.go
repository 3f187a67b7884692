package randomness

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Consumer applies delivered words to the state it owns. Implementations
// take their own lock and call Gateway.Fulfill under it.
type Consumer interface {
	ConsumeRandomness(ctx context.Context, caller common.Address, id RequestID, words []uint256.Int) error
}

// Router is the single entry point for oracle deliveries. It hands each
// delivery to the consumer registered for the kind of its slot.
type Router struct {
	gateway *Gateway

	mu        sync.RWMutex
	consumers map[Kind]Consumer
}

func NewRouter(gateway *Gateway) *Router {
	return &Router{
		gateway:   gateway,
		consumers: make(map[Kind]Consumer),
	}
}

// Register sets the consumer of the given slot kind
func (r *Router) Register(kind Kind, c Consumer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.consumers[kind] = c
}

// Deliver is the oracle callback
func (r *Router) Deliver(ctx context.Context, caller common.Address, id RequestID, words []uint256.Int) error {
	if err := r.gateway.Authenticate(caller); err != nil {
		return err
	}
	slot, err := r.gateway.Resolve(id)
	if err != nil {
		r.gateway.metrics.Rejected("unknown")
		return err
	}

	r.mu.RLock()
	c, ok := r.consumers[slot.Kind]
	r.mu.RUnlock()
	if !ok {
		return ErrNoConsumer
	}
	return c.ConsumeRandomness(ctx, caller, id, words)
}
