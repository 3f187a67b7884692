package game

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/eigerco/plague/internal/population"
	"github.com/eigerco/plague/pkg/log"
)

// Deposit adds funds to the prize pool while the game is still running
func (g *Game) Deposit(from common.Address, amount *uint256.Int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.over {
		return ErrGameClosed
	}
	if amount.IsZero() {
		return ErrZeroDeposit
	}
	g.pool.Add(&g.pool, amount)
	g.metrics.Deposited()

	log.Game.Debug().
		Str("from", from.Hex()).
		Str("amount", amount.Dec()).
		Str("pool", g.pool.Dec()).
		Msg("prize deposit")
	return nil
}

// AllowWithdrawals opens or closes prize withdrawals once the game is over
func (g *Game) AllowWithdrawals(caller common.Address, allow bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if caller != g.cfg.Admin {
		return ErrUnauthorized
	}
	if !g.over {
		return ErrGameNotOver
	}
	if g.withdrawalsAllowed == allow {
		return fmt.Errorf("%w: withdrawals allowed is %t", ErrNoChange, allow)
	}
	g.withdrawalsAllowed = allow
	return nil
}

// Withdraw pays the prize of a surviving doctor to its owner. The pool and
// the survivor count are frozen at game over, so every survivor gets the
// same share.
func (g *Game) Withdraw(caller common.Address, doctor population.ID) (*uint256.Int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.withdrawalsAllowed {
		return nil, ErrWithdrawalsDisabled
	}
	s, err := g.statuses.Get(doctor)
	if err != nil {
		return nil, err
	}
	if s != population.Healthy {
		return nil, fmt.Errorf("%w: doctor %d is %s", ErrNotSurvivor, doctor, s)
	}
	owner, err := g.doctors.OwnerOf(doctor)
	if err != nil {
		return nil, fmt.Errorf("owner of doctor %d: %w", doctor, err)
	}
	if owner != caller {
		return nil, fmt.Errorf("%w: doctor %d", ErrNotOwner, doctor)
	}
	if g.withdrawn[doctor] {
		return nil, fmt.Errorf("%w: doctor %d", ErrAlreadyWithdrawn, doctor)
	}

	prize := g.prize()
	g.withdrawn[doctor] = true
	g.totalWithdrawn.Add(&g.totalWithdrawn, prize)

	if err := g.payout.Transfer(caller, prize); err != nil {
		delete(g.withdrawn, doctor)
		g.totalWithdrawn.Sub(&g.totalWithdrawn, prize)
		return nil, fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}
	g.metrics.Withdrew()

	log.Game.Info().
		Uint32("doctor", doctor).
		Str("to", caller.Hex()).
		Str("amount", prize.Dec()).
		Msg("prize withdrawn")
	return prize, nil
}

func (g *Game) prize() *uint256.Int {
	if g.survivors == 0 {
		return new(uint256.Int)
	}
	return new(uint256.Int).Div(&g.pool, uint256.NewInt(uint64(g.survivors)))
}

// Prize is the share of one survivor, zero before the game is over
func (g *Game) Prize() *uint256.Int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.prize()
}

// Pool is the total deposited into the prize pool
func (g *Game) Pool() *uint256.Int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return new(uint256.Int).Set(&g.pool)
}

// TotalWithdrawn is the sum of every prize paid out
func (g *Game) TotalWithdrawn() *uint256.Int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return new(uint256.Int).Set(&g.totalWithdrawn)
}

// Survivors is the healthy count frozen at game over
func (g *Game) Survivors() uint32 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.survivors
}

// Withdrawn reports whether a doctor's prize was paid
func (g *Game) Withdrawn(doctor population.ID) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.withdrawn[doctor]
}

// WithdrawalsAllowed reports the admin switch
func (g *Game) WithdrawalsAllowed() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.withdrawalsAllowed
}
