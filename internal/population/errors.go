package population

import "errors"

var (
	// ErrPopulationOverflow is returned when an initialization installment would
	// grow the set past its target size
	ErrPopulationOverflow = errors.New("population would exceed target size")

	// ErrIndexOutOfRange is returned for an index past the live length of the set
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrUnknownParticipant is returned for an id outside [0, N)
	ErrUnknownParticipant = errors.New("unknown participant")
)
