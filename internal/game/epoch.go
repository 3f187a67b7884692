package game

import (
	"time"

	"github.com/holiman/uint256"

	"github.com/eigerco/plague/internal/randomness"
)

// Phase is the position of the game in its lifecycle
type Phase uint8

const (
	PhaseNotStarted Phase = iota
	// PhaseEpochPending waits for the current epoch's randomness or its start
	PhaseEpochPending
	// PhaseEpochActive runs between the infection pass and the epoch end
	PhaseEpochActive
	PhaseOver
)

func (p Phase) String() string {
	switch p {
	case PhaseNotStarted:
		return "not-started"
	case PhaseEpochPending:
		return "epoch-pending"
	case PhaseEpochActive:
		return "epoch-active"
	case PhaseOver:
		return "over"
	default:
		return "unknown"
	}
}

// Epoch is one round of the game
type Epoch struct {
	Index         uint32
	InfectionRate uint16
	RequestID     randomness.RequestID
	Word          uint256.Int
	Fulfilled     bool
	Started       bool
	StartedAt     time.Time
	InfectedCount uint32
	DeadCount     uint32
	Ended         bool
}

// EndsAt is the earliest time the epoch may end
func (e Epoch) EndsAt(d time.Duration) time.Time {
	return e.StartedAt.Add(d)
}

// InfectionCount is how many of healthy doctors an epoch at rate infects.
// With two or more healthy doctors at least one is infected and at least
// one stays healthy. A single doctor is never infected.
func InfectionCount(healthy uint32, rate uint16) uint32 {
	n := uint32(uint64(healthy) * uint64(rate) / MaxBasisPoints)
	if n == 0 {
		n = 1
	}
	if n >= healthy {
		if healthy == 0 {
			return 0
		}
		n = healthy - 1
	}
	return n
}
