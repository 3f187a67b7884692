package brew

import "errors"

var (
	ErrUnauthorized           = errors.New("caller is not the admin")
	ErrInvalidConfig          = errors.New("invalid brew config")
	ErrInvalidDifficulty      = errors.New("difficulty out of range")
	ErrInvalidBatch           = errors.New("batch must hold exactly five doctors")
	ErrDuplicateDoctor        = errors.New("doctor appears twice in batch")
	ErrNotOwner               = errors.New("caller does not own the doctor")
	ErrNotEligible            = errors.New("doctor is not dead")
	ErrGameNotStarted         = errors.New("main game has not started")
	ErrAlreadyBrewed          = errors.New("doctor already brewed this epoch")
	ErrAlreadyClaimed         = errors.New("doctor already claimed its potion")
	ErrClaimNotStarted        = errors.New("claim window has not opened")
	ErrClaimClosed            = errors.New("claim window is closed")
	ErrScheduleLocked         = errors.New("claim window already opened")
	ErrBrewingNotStarted      = errors.New("brewing has not started")
	ErrRandomnessNotRequested = errors.New("epoch randomness was not requested")
	ErrRandomnessPending      = errors.New("epoch randomness not yet fulfilled")
	ErrPotionsNotEnough       = errors.New("not enough potions in inventory")
	ErrUnexpectedSlot         = errors.New("delivery is not for a brew slot")
)
