package game

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// MaxBasisPoints is a rate of 100%
const MaxBasisPoints = 10_000

// Config holds the immutable parameters of a game
type Config struct {
	Admin common.Address
	// EpochDuration is the minimum time between the start and the end of an epoch
	EpochDuration time.Duration
	// SurvivorThreshold ends the game once the healthy count drops to it. The
	// game always ends with a single healthy doctor left, since no epoch can
	// infect the last one.
	SurvivorThreshold uint32
	// MaxEpochs ends the game after that many epochs. Zero means unbounded.
	MaxEpochs uint32
	// InfectionRates in basis points, indexed by epoch-1. Epochs past the end
	// of the schedule use the last entry.
	InfectionRates []uint16
	// StartTime is the earliest time StartGame succeeds. Zero means no schedule.
	StartTime time.Time
	// Clock defaults to time.Now
	Clock func() time.Time
}

func (c Config) Validate() error {
	if c.EpochDuration <= 0 {
		return fmt.Errorf("%w: epoch duration must be positive", ErrInvalidConfig)
	}
	if len(c.InfectionRates) == 0 {
		return fmt.Errorf("%w: empty infection schedule", ErrInvalidConfig)
	}
	for i, r := range c.InfectionRates {
		if r == 0 || r > MaxBasisPoints {
			return fmt.Errorf("%w: epoch %d has %d", ErrInvalidInfectionRate, i+1, r)
		}
	}
	return nil
}

// survivorFloor is the healthy count at or below which the game is over
func (c Config) survivorFloor() uint32 {
	if c.SurvivorThreshold == 0 {
		return 1
	}
	return c.SurvivorThreshold
}

// InfectionRate returns the rate of epoch, clamped to the end of the schedule
func (c Config) InfectionRate(epoch uint32) uint16 {
	if epoch == 0 {
		epoch = 1
	}
	if int(epoch) > len(c.InfectionRates) {
		return c.InfectionRates[len(c.InfectionRates)-1]
	}
	return c.InfectionRates[epoch-1]
}
