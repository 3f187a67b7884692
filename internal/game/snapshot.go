package game

import (
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Snapshot is a consistent, rlp friendly copy of the whole game state
type Snapshot struct {
	Phase              uint8
	StartTime          uint64
	Statuses           []byte
	Members            []uint32
	Epochs             []EpochSnapshot
	CureAttempts       []AttemptSnapshot
	Cures              []CureSnapshot
	Pool               [32]byte
	Survivors          uint32
	WithdrawalsAllowed bool
	Withdrawn          []uint32
	TotalWithdrawn     [32]byte
}

type EpochSnapshot struct {
	Index         uint32
	InfectionRate uint16
	RequestID     common.Hash
	Word          [32]byte
	Fulfilled     bool
	Started       bool
	StartedAt     uint64
	InfectedCount uint32
	DeadCount     uint32
	Ended         bool
}

type AttemptSnapshot struct {
	Doctor   uint32
	Attempts uint32
}

type CureSnapshot struct {
	Doctor    uint32
	Attempt   uint32
	Epoch     uint32
	Rate      uint16
	Roll      uint64
	Immediate bool
	Cured     bool
}

// Snapshot copies the game state under the read lock
func (g *Game) Snapshot() Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()

	s := Snapshot{
		Phase:              uint8(g.phase()),
		StartTime:          unixSeconds(g.startTime),
		Statuses:           g.statuses.Raw(),
		Members:            g.population.Members(),
		Pool:               g.pool.Bytes32(),
		Survivors:          g.survivors,
		WithdrawalsAllowed: g.withdrawalsAllowed,
		TotalWithdrawn:     g.totalWithdrawn.Bytes32(),
	}

	for _, e := range g.epochs {
		s.Epochs = append(s.Epochs, EpochSnapshot{
			Index:         e.Index,
			InfectionRate: e.InfectionRate,
			RequestID:     e.RequestID,
			Word:          e.Word.Bytes32(),
			Fulfilled:     e.Fulfilled,
			Started:       e.Started,
			StartedAt:     unixSeconds(e.StartedAt),
			InfectedCount: e.InfectedCount,
			DeadCount:     e.DeadCount,
			Ended:         e.Ended,
		})
	}

	for doctor, n := range g.cureAttempts {
		s.CureAttempts = append(s.CureAttempts, AttemptSnapshot{Doctor: doctor, Attempts: n})
	}
	sort.Slice(s.CureAttempts, func(i, j int) bool {
		return s.CureAttempts[i].Doctor < s.CureAttempts[j].Doctor
	})

	for _, c := range g.cures {
		s.Cures = append(s.Cures, CureSnapshot(c))
	}

	for doctor := range g.withdrawn {
		s.Withdrawn = append(s.Withdrawn, doctor)
	}
	sort.Slice(s.Withdrawn, func(i, j int) bool { return s.Withdrawn[i] < s.Withdrawn[j] })
	return s
}

// CurrentEpoch is the index of the latest epoch, zero before the start
func (s Snapshot) CurrentEpoch() uint32 {
	if len(s.Epochs) == 0 {
		return 0
	}
	return s.Epochs[len(s.Epochs)-1].Index
}

func (s Snapshot) HealthyCount() uint32 {
	return uint32(len(s.Members))
}

// PoolAmount decodes the prize pool
func (s Snapshot) PoolAmount() *uint256.Int {
	return new(uint256.Int).SetBytes32(s.Pool[:])
}

func unixSeconds(t time.Time) uint64 {
	if t.IsZero() {
		return 0
	}
	return uint64(t.Unix())
}
