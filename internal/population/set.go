package population

import "fmt"

// Set is the unordered collection of healthy doctors. Removal swaps the
// victim with the last live entry, so positions are not stable across calls;
// randomness selects victims by position.
type Set struct {
	members []ID
	live    uint32
	target  uint32
	// installed counts ids handed out by Initialize
	installed uint32
}

func NewSet(target uint32) *Set {
	return &Set{target: target}
}

// Initialize installs the next count ids. The full population is built over
// several calls to bound the cost of each.
func (s *Set) Initialize(count uint32) ([]ID, error) {
	if uint64(s.installed)+uint64(count) > uint64(s.target) {
		return nil, fmt.Errorf("%w: %d installed, %d requested, target %d",
			ErrPopulationOverflow, s.installed, count, s.target)
	}

	ids := make([]ID, 0, count)
	for i := uint32(0); i < count; i++ {
		id := s.installed + i
		s.Add(id)
		ids = append(ids, id)
	}
	s.installed += count
	return ids, nil
}

// Full reports whether every id up to the target has been installed
func (s *Set) Full() bool {
	return s.installed == s.target
}

func (s *Set) Installed() uint32 {
	return s.installed
}

func (s *Set) Target() uint32 {
	return s.target
}

// Len is the live cardinality
func (s *Set) Len() uint32 {
	return s.live
}

// At returns the id at index
func (s *Set) At(index uint32) (ID, error) {
	if index >= s.live {
		return 0, fmt.Errorf("%w: %d >= %d", ErrIndexOutOfRange, index, s.live)
	}
	return s.members[index], nil
}

// RemoveAt removes and returns the id at index
func (s *Set) RemoveAt(index uint32) (ID, error) {
	if index >= s.live {
		return 0, fmt.Errorf("%w: %d >= %d", ErrIndexOutOfRange, index, s.live)
	}
	last := s.live - 1
	id := s.members[index]
	s.members[index] = s.members[last]
	s.members[last] = id
	s.live = last
	return id, nil
}

// Add appends id at the live length
func (s *Set) Add(id ID) {
	if s.live < uint32(len(s.members)) {
		s.members[s.live] = id
	} else {
		s.members = append(s.members, id)
	}
	s.live++
}

// Members returns a copy of the live entries
func (s *Set) Members() []ID {
	return append([]ID(nil), s.members[:s.live]...)
}
