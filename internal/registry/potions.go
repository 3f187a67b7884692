package registry

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Potions is an enumerable, burnable potion collection
type Potions struct {
	mu     sync.RWMutex
	nextID uint64
	owners map[uint64]common.Address
	// owned keeps each owner's tokens in enumeration order
	owned map[common.Address][]uint64
}

func NewPotions() *Potions {
	return &Potions{
		owners: make(map[uint64]common.Address),
		owned:  make(map[common.Address][]uint64),
	}
}

// Mint creates n potions for to and returns their ids
func (p *Potions) Mint(to common.Address, n uint32) []uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	ids := make([]uint64, 0, n)
	for i := uint32(0); i < n; i++ {
		id := p.nextID
		p.nextID++
		p.owners[id] = to
		p.owned[to] = append(p.owned[to], id)
		ids = append(ids, id)
	}
	return ids
}

func (p *Potions) OwnerOf(id uint64) (common.Address, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	owner, ok := p.owners[id]
	if !ok {
		return common.Address{}, fmt.Errorf("%w: potion %d", ErrNonexistentToken, id)
	}
	return owner, nil
}

func (p *Potions) BalanceOf(owner common.Address) uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return uint64(len(p.owned[owner]))
}

func (p *Potions) TokenOfOwnerByIndex(owner common.Address, index uint64) (uint64, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	tokens := p.owned[owner]
	if index >= uint64(len(tokens)) {
		return 0, fmt.Errorf("%w: %s has %d", ErrOwnerIndexBounds, owner.Hex(), len(tokens))
	}
	return tokens[index], nil
}

func (p *Potions) Transfer(from, to common.Address, id uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	owner, ok := p.owners[id]
	if !ok {
		return fmt.Errorf("%w: potion %d", ErrNonexistentToken, id)
	}
	if owner != from {
		return fmt.Errorf("%w: potion %d", ErrNotTokenOwner, id)
	}
	p.unlink(from, id)
	p.owners[id] = to
	p.owned[to] = append(p.owned[to], id)
	return nil
}

func (p *Potions) Burn(id uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	owner, ok := p.owners[id]
	if !ok {
		return fmt.Errorf("%w: potion %d", ErrNonexistentToken, id)
	}
	p.unlink(owner, id)
	delete(p.owners, id)
	return nil
}

// unlink removes id from the list of owner, swapping with the last entry
func (p *Potions) unlink(owner common.Address, id uint64) {
	tokens := p.owned[owner]
	for i, t := range tokens {
		if t == id {
			last := len(tokens) - 1
			tokens[i] = tokens[last]
			p.owned[owner] = tokens[:last]
			return
		}
	}
}
