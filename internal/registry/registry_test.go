package registry

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = common.HexToAddress("0xa11ce")
	bob   = common.HexToAddress("0xb0b")
)

func TestDoctors(t *testing.T) {
	d := NewDoctorsRoundRobin(5, []common.Address{alice, bob})
	assert.Equal(t, uint32(5), d.TotalCount())
	assert.Equal(t, []uint32{0, 2, 4}, d.OwnedBy(alice))

	owner, err := d.OwnerOf(3)
	require.NoError(t, err)
	assert.Equal(t, bob, owner)

	_, err = d.OwnerOf(5)
	assert.ErrorIs(t, err, ErrNonexistentToken)

	assert.ErrorIs(t, d.Transfer(alice, bob, 1), ErrNotTokenOwner)
	require.NoError(t, d.Transfer(bob, alice, 1))
	assert.Equal(t, []uint32{0, 1, 2, 4}, d.OwnedBy(alice))
}

func TestPotions_MintTransferBurn(t *testing.T) {
	p := NewPotions()
	ids := p.Mint(alice, 3)
	assert.Equal(t, []uint64{0, 1, 2}, ids)
	assert.Equal(t, uint64(3), p.BalanceOf(alice))

	require.NoError(t, p.Transfer(alice, bob, 0))
	assert.Equal(t, uint64(2), p.BalanceOf(alice))
	assert.Equal(t, uint64(1), p.BalanceOf(bob))

	first, err := p.TokenOfOwnerByIndex(alice, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), first)
	_, err = p.TokenOfOwnerByIndex(alice, 2)
	assert.ErrorIs(t, err, ErrOwnerIndexBounds)

	assert.ErrorIs(t, p.Transfer(alice, bob, 0), ErrNotTokenOwner)

	require.NoError(t, p.Burn(0))
	assert.Zero(t, p.BalanceOf(bob))
	_, err = p.OwnerOf(0)
	assert.ErrorIs(t, err, ErrNonexistentToken)
	assert.ErrorIs(t, p.Burn(0), ErrNonexistentToken)
}

func TestTreasury(t *testing.T) {
	tr := NewTreasury()
	tr.Fund(uint256.NewInt(100))

	require.NoError(t, tr.Transfer(alice, uint256.NewInt(60)))
	assert.Equal(t, uint64(60), tr.BalanceOf(alice).Uint64())
	assert.Equal(t, uint64(40), tr.Reserve().Uint64())

	assert.ErrorIs(t, tr.Transfer(bob, uint256.NewInt(41)), ErrInsufficientFunds)
	assert.True(t, tr.BalanceOf(bob).IsZero())
}
