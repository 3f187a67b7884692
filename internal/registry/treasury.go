package registry

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Treasury is the custody holding the prize funds
type Treasury struct {
	mu       sync.Mutex
	reserve  uint256.Int
	balances map[common.Address]*uint256.Int
}

func NewTreasury() *Treasury {
	return &Treasury{balances: make(map[common.Address]*uint256.Int)}
}

// Fund adds amount to the reserve backing payouts
func (t *Treasury) Fund(amount *uint256.Int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reserve.Add(&t.reserve, amount)
}

// Transfer pays amount from the reserve to an account
func (t *Treasury) Transfer(to common.Address, amount *uint256.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.reserve.Lt(amount) {
		return fmt.Errorf("%w: reserve %s, need %s", ErrInsufficientFunds, t.reserve.Dec(), amount.Dec())
	}
	t.reserve.Sub(&t.reserve, amount)
	b, ok := t.balances[to]
	if !ok {
		b = new(uint256.Int)
		t.balances[to] = b
	}
	b.Add(b, amount)
	return nil
}

func (t *Treasury) BalanceOf(account common.Address) *uint256.Int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if b, ok := t.balances[account]; ok {
		return new(uint256.Int).Set(b)
	}
	return new(uint256.Int)
}

func (t *Treasury) Reserve() *uint256.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return new(uint256.Int).Set(&t.reserve)
}
