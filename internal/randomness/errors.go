package randomness

import "errors"

var (
	// ErrAlreadyRequested is returned when a slot already has an outstanding request
	ErrAlreadyRequested = errors.New("randomness already requested")

	// ErrAlreadyFulfilled is returned when a slot was already served, either by a
	// second delivery or by a new request for the same slot
	ErrAlreadyFulfilled = errors.New("randomness already fulfilled")

	// ErrUnauthorized is returned when a delivery does not come from the oracle identity
	ErrUnauthorized = errors.New("caller is not the randomness oracle")

	// ErrUnknownRequest is returned for a request id that is not the outstanding
	// request of any slot
	ErrUnknownRequest = errors.New("unknown randomness request")

	// ErrNoRandomWords is returned when a delivery carries no words
	ErrNoRandomWords = errors.New("delivery carries no random words")

	// ErrDuplicateRequestID is returned when the oracle hands out an id it already used
	ErrDuplicateRequestID = errors.New("oracle reused a request id")

	// ErrNoConsumer is returned when no consumer is registered for a slot kind
	ErrNoConsumer = errors.New("no consumer registered for slot kind")

	// ErrZeroModulus is returned when a draw is taken over an empty range
	ErrZeroModulus = errors.New("draw modulus is zero")
)
