// Package registry holds in-memory versions of the token collections and the
// fund custody a game talks to.
package registry

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Doctors is a fixed-size doctor collection
type Doctors struct {
	mu     sync.RWMutex
	owners []common.Address
}

// NewDoctors mints one doctor per entry of owners; doctor i belongs to owners[i]
func NewDoctors(owners []common.Address) *Doctors {
	return &Doctors{owners: append([]common.Address(nil), owners...)}
}

// NewDoctorsRoundRobin mints total doctors spread over holders in turn
func NewDoctorsRoundRobin(total uint32, holders []common.Address) *Doctors {
	owners := make([]common.Address, total)
	for i := range owners {
		owners[i] = holders[i%len(holders)]
	}
	return &Doctors{owners: owners}
}

func (d *Doctors) TotalCount() uint32 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return uint32(len(d.owners))
}

func (d *Doctors) OwnerOf(id uint32) (common.Address, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if int(id) >= len(d.owners) {
		return common.Address{}, fmt.Errorf("%w: doctor %d", ErrNonexistentToken, id)
	}
	return d.owners[id], nil
}

// Transfer moves a doctor between owners
func (d *Doctors) Transfer(from, to common.Address, id uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if int(id) >= len(d.owners) {
		return fmt.Errorf("%w: doctor %d", ErrNonexistentToken, id)
	}
	if d.owners[id] != from {
		return fmt.Errorf("%w: doctor %d", ErrNotTokenOwner, id)
	}
	d.owners[id] = to
	return nil
}

// OwnedBy lists the doctors of owner in id order
func (d *Doctors) OwnedBy(owner common.Address) []uint32 {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var ids []uint32
	for id, o := range d.owners {
		if o == owner {
			ids = append(ids, uint32(id))
		}
	}
	return ids
}
