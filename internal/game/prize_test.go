package game

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/plague/internal/population"
)

// finishedHarness plays a 20 doctor game down to 10 survivors with a pool of 1000
func finishedHarness(t *testing.T, opts ...option) *harness {
	h := newHarness(t, 20, Config{SurvivorThreshold: 10, InfectionRates: []uint16{5000}}, opts...)
	h.treasury.Fund(uint256.NewInt(1000))

	require.NoError(t, h.game.Deposit(bob, uint256.NewInt(400)))
	require.NoError(t, h.game.StartGame(h.ctx))
	require.NoError(t, h.game.Deposit(bob, uint256.NewInt(600)))
	assert.ErrorIs(t, h.game.Deposit(bob, new(uint256.Int)), ErrZeroDeposit)
	assert.ErrorIs(t, h.game.AllowWithdrawals(admin, true), ErrGameNotOver)

	h.runEpoch()
	h.endEpoch()
	require.Equal(t, PhaseOver, h.game.Phase())
	return h
}

func deadDoctor(t *testing.T, g *Game) population.ID {
	t.Helper()
	for id := population.ID(0); id < g.statuses.Len(); id++ {
		if s, _ := g.Status(id); s == population.Dead {
			return id
		}
	}
	t.Fatal("no dead doctor")
	return 0
}

func TestPrize_Withdraw(t *testing.T) {
	h := finishedHarness(t)
	survivor := healthyDoctor(t, h.game)

	assert.Equal(t, uint64(1000), h.game.Pool().Uint64())
	assert.Equal(t, uint64(100), h.game.Prize().Uint64())
	assert.ErrorIs(t, h.game.Deposit(bob, uint256.NewInt(1)), ErrGameClosed)

	_, err := h.game.Withdraw(alice, survivor)
	assert.ErrorIs(t, err, ErrWithdrawalsDisabled)

	assert.ErrorIs(t, h.game.AllowWithdrawals(alice, true), ErrUnauthorized)
	require.NoError(t, h.game.AllowWithdrawals(admin, true))
	assert.ErrorIs(t, h.game.AllowWithdrawals(admin, true), ErrNoChange)
	assert.True(t, h.game.WithdrawalsAllowed())

	_, err = h.game.Withdraw(alice, deadDoctor(t, h.game))
	assert.ErrorIs(t, err, ErrNotSurvivor)
	_, err = h.game.Withdraw(bob, survivor)
	assert.ErrorIs(t, err, ErrNotOwner)

	prize, err := h.game.Withdraw(alice, survivor)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), prize.Uint64())
	assert.Equal(t, uint64(100), h.treasury.BalanceOf(alice).Uint64())
	assert.True(t, h.game.Withdrawn(survivor))

	_, err = h.game.Withdraw(alice, survivor)
	assert.ErrorIs(t, err, ErrAlreadyWithdrawn)
	assert.Equal(t, uint64(100), h.game.TotalWithdrawn().Uint64())
	assert.Equal(t, uint64(100), h.game.Prize().Uint64())
}

func TestPrize_TransferFailureRollsBack(t *testing.T) {
	payout := new(mockPayout)
	payout.On("Transfer", alice, mock.Anything).Return(errors.New("out of gas")).Once()
	payout.On("Transfer", alice, mock.Anything).Return(nil).Once()

	h := finishedHarness(t, withCollaborators(func(c *Collaborators) { c.Payout = payout }))
	require.NoError(t, h.game.AllowWithdrawals(admin, true))
	survivor := healthyDoctor(t, h.game)

	_, err := h.game.Withdraw(alice, survivor)
	assert.ErrorIs(t, err, ErrTransferFailed)
	assert.False(t, h.game.Withdrawn(survivor))
	assert.True(t, h.game.TotalWithdrawn().IsZero())

	prize, err := h.game.Withdraw(alice, survivor)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), prize.Uint64())
	payout.AssertExpectations(t)
}

func TestSnapshot(t *testing.T) {
	h := finishedHarness(t)
	s := h.game.Snapshot()

	assert.Equal(t, uint8(PhaseOver), s.Phase)
	assert.Equal(t, uint32(1), s.CurrentEpoch())
	assert.Equal(t, uint32(10), s.HealthyCount())
	assert.Equal(t, uint32(10), s.Survivors)
	assert.Equal(t, uint64(1000), s.PoolAmount().Uint64())
	assert.Len(t, s.Statuses, 20)
	require.Len(t, s.Epochs, 1)
	assert.True(t, s.Epochs[0].Ended)
	assert.Equal(t, uint32(10), s.Epochs[0].DeadCount)
}
