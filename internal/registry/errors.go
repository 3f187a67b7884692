package registry

import "errors"

var (
	ErrNonexistentToken  = errors.New("token does not exist")
	ErrNotTokenOwner     = errors.New("sender does not own the token")
	ErrOwnerIndexBounds  = errors.New("owner index out of bounds")
	ErrInsufficientFunds = errors.New("insufficient funds")
)
