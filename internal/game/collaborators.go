package game

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ParticipantRegistry is the doctor token collection
type ParticipantRegistry interface {
	OwnerOf(id uint32) (common.Address, error)
	TotalCount() uint32
}

// CredentialBurner is the potion token collection. Drinking a potion burns it.
type CredentialBurner interface {
	OwnerOf(id uint64) (common.Address, error)
	Burn(id uint64) error
}

// Payout moves prize funds out of custody
type Payout interface {
	Transfer(to common.Address, amount *uint256.Int) error
}
