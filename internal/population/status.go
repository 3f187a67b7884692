package population

import "fmt"

// ID identifies a doctor, in [0, N)
type ID = uint32

// Status is the state of a doctor in the game
type Status uint8

const (
	Dead Status = iota
	Healthy
	Infected
)

func (s Status) String() string {
	switch s {
	case Dead:
		return "dead"
	case Healthy:
		return "healthy"
	case Infected:
		return "infected"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// StatusTable maps every doctor to its status. Doctors start Dead until the
// population installs them.
type StatusTable struct {
	statuses []Status
	counts   [3]uint32
}

func NewStatusTable(size uint32) *StatusTable {
	t := &StatusTable{statuses: make([]Status, size)}
	t.counts[Dead] = size
	return t
}

func (t *StatusTable) Len() uint32 {
	return uint32(len(t.statuses))
}

func (t *StatusTable) Get(id ID) (Status, error) {
	if id >= t.Len() {
		return Dead, fmt.Errorf("%w: %d", ErrUnknownParticipant, id)
	}
	return t.statuses[id], nil
}

func (t *StatusTable) Set(id ID, s Status) error {
	if id >= t.Len() {
		return fmt.Errorf("%w: %d", ErrUnknownParticipant, id)
	}
	if s > Infected {
		return fmt.Errorf("invalid status %d", uint8(s))
	}
	t.counts[t.statuses[id]]--
	t.counts[s]++
	t.statuses[id] = s
	return nil
}

// Count returns the number of doctors with status s
func (t *StatusTable) Count(s Status) uint32 {
	if s > Infected {
		return 0
	}
	return t.counts[s]
}

// CollapseInfected turns every Infected doctor Dead and returns how many
// died. Healthy and Dead doctors are untouched.
func (t *StatusTable) CollapseInfected() uint32 {
	deaths := t.counts[Infected]
	if deaths == 0 {
		return 0
	}
	for i, s := range t.statuses {
		if s == Infected {
			t.statuses[i] = Dead
		}
	}
	t.counts[Dead] += deaths
	t.counts[Infected] = 0
	return deaths
}

// Raw returns a copy of the table, one byte per doctor
func (t *StatusTable) Raw() []byte {
	out := make([]byte, len(t.statuses))
	for i, s := range t.statuses {
		out[i] = byte(s)
	}
	return out
}
