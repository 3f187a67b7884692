package brew

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

const (
	// BatchSize is the number of doctors brewed per call
	BatchSize = 5

	MaxDifficulty = 1000
)

// Config holds the schedule and odds of a brewing game
type Config struct {
	Admin common.Address
	// Inventory holds the potions handed out by claims and brews
	Inventory common.Address
	// ClaimStart opens the claim window. Zero leaves the schedule unset.
	ClaimStart  time.Time
	ClaimWindow time.Duration
	// EpochDuration is the length of a brew epoch. Epoch 1 starts when the
	// claim window closes.
	EpochDuration time.Duration
	// Difficulty per brew epoch, indexed by epoch-1 and clamped to the last
	// entry. One brew in Difficulty*BatchSize succeeds on average.
	Difficulty []uint32
	// Clock defaults to time.Now
	Clock func() time.Time
}

func (c Config) Validate() error {
	if c.EpochDuration <= 0 {
		return fmt.Errorf("%w: epoch duration must be positive", ErrInvalidConfig)
	}
	if c.ClaimWindow <= 0 {
		return fmt.Errorf("%w: claim window must be positive", ErrInvalidConfig)
	}
	return validateDifficulty(c.Difficulty)
}

func validateDifficulty(schedule []uint32) error {
	if len(schedule) == 0 {
		return fmt.Errorf("%w: empty schedule", ErrInvalidDifficulty)
	}
	for i, d := range schedule {
		if d == 0 || d > MaxDifficulty {
			return fmt.Errorf("%w: epoch %d has %d", ErrInvalidDifficulty, i+1, d)
		}
	}
	return nil
}

func difficulty(schedule []uint32, epoch uint64) uint32 {
	if epoch == 0 {
		epoch = 1
	}
	if epoch > uint64(len(schedule)) {
		return schedule[len(schedule)-1]
	}
	return schedule[epoch-1]
}
