package randomness

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// RequestID is the identifier the oracle assigns to a randomness request
type RequestID = common.Hash

// Kind distinguishes the consumers of random words
type Kind uint8

const (
	// KindEpoch is the infection draw of a game epoch
	KindEpoch Kind = iota + 1
	// KindCure is a single cure attempt of one doctor
	KindCure
	// KindBrew is the draw shared by every batch brewed in one brew epoch
	KindBrew
)

func (k Kind) String() string {
	switch k {
	case KindEpoch:
		return "epoch"
	case KindCure:
		return "cure"
	case KindBrew:
		return "brew"
	default:
		return "unknown"
	}
}

// Slot is the logical key a randomness request serves. At most one request
// is ever issued per slot.
type Slot struct {
	Kind  Kind
	Index uint64
	Sub   uint64
}

// EpochSlot is the slot of the infection draw for a game epoch
func EpochSlot(epoch uint32) Slot {
	return Slot{Kind: KindEpoch, Index: uint64(epoch)}
}

// CureSlot is the slot of the given cure attempt of a doctor
func CureSlot(doctor uint32, attempt uint32) Slot {
	return Slot{Kind: KindCure, Index: uint64(doctor), Sub: uint64(attempt)}
}

// BrewSlot is the slot of the shared draw of a brew epoch
func BrewSlot(epoch uint64) Slot {
	return Slot{Kind: KindBrew, Index: epoch}
}

func (s Slot) String() string {
	if s.Kind == KindCure {
		return fmt.Sprintf("%s/%d/%d", s.Kind, s.Index, s.Sub)
	}
	return fmt.Sprintf("%s/%d", s.Kind, s.Index)
}

// less orders slots by kind, index and sub index
func (s Slot) less(o Slot) bool {
	if s.Kind != o.Kind {
		return s.Kind < o.Kind
	}
	if s.Index != o.Index {
		return s.Index < o.Index
	}
	return s.Sub < o.Sub
}
