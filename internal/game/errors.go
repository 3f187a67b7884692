package game

import "errors"

var (
	ErrUnauthorized             = errors.New("caller is not the game admin")
	ErrInvalidConfig            = errors.New("invalid game configuration")
	ErrInvalidInfectionRate     = errors.New("infection rate must be in (0, 10000] basis points")
	ErrPopulationNotInitialized = errors.New("population is not fully initialized")
	ErrPopulationTooSmall       = errors.New("population is already at the survivor threshold")
	ErrGameAlreadyStarted       = errors.New("game already started")
	ErrGameNotStarted           = errors.New("game not started")
	ErrStartTimeNotReached      = errors.New("start time not reached")
	ErrGameClosed               = errors.New("game closed")
	ErrGameNotOver              = errors.New("game is not over")

	ErrRandomnessPending   = errors.New("epoch randomness not fulfilled")
	ErrEpochAlreadyStarted = errors.New("epoch already started")
	ErrEpochNotStarted     = errors.New("epoch not started")
	ErrEpochNotElapsed     = errors.New("epoch duration has not elapsed")
	ErrEpochAlreadyEnded   = errors.New("epoch already ended")
	ErrEpochEnded          = errors.New("epoch has ended")
	ErrUnknownEpoch        = errors.New("unknown epoch")

	ErrNotOwner       = errors.New("caller does not own the token")
	ErrNotInfected    = errors.New("doctor is not infected")
	ErrCureInProgress = errors.New("doctor has a cure attempt awaiting randomness")
	ErrBurnFailed     = errors.New("burn potion")
	ErrUnexpectedSlot = errors.New("randomness slot not handled by the game")

	ErrWithdrawalsDisabled = errors.New("prize withdrawals are not allowed")
	ErrNoChange            = errors.New("value already set")
	ErrNotSurvivor         = errors.New("doctor is not a survivor")
	ErrAlreadyWithdrawn    = errors.New("prize already withdrawn")
	ErrTransferFailed      = errors.New("prize transfer failed")
	ErrZeroDeposit         = errors.New("deposit amount is zero")
)
