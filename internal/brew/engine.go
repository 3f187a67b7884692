// Package brew runs the potion brewing side game. Dead doctors first claim a
// potion each during a claim window, then brew in batches once per epoch
// against a word shared by the whole epoch.
package brew

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/eigerco/plague/internal/metrics"
	"github.com/eigerco/plague/internal/population"
	"github.com/eigerco/plague/internal/randomness"
	"github.com/eigerco/plague/pkg/log"
)

// StatusReader exposes the doctor statuses of the main game. Statuses only
// mean something once the game has started.
type StatusReader interface {
	Status(id population.ID) (population.Status, error)
	Started() bool
}

type DoctorOwners interface {
	OwnerOf(id uint32) (common.Address, error)
}

// RewardTokens is the potion collection the inventory lives in
type RewardTokens interface {
	BalanceOf(owner common.Address) uint64
	TokenOfOwnerByIndex(owner common.Address, index uint64) (uint64, error)
	Transfer(from, to common.Address, id uint64) error
}

type Collaborators struct {
	Statuses StatusReader
	Doctors  DoctorOwners
	Potions  RewardTokens
	Gateway  *randomness.Gateway
	Logs     LogStore
	Metrics  *metrics.Metrics
}

// Stats are the running totals of the engine
type Stats struct {
	Claims    uint64
	Attempts  uint64
	Successes uint64
}

type epochState struct {
	requestID randomness.RequestID
	word      uint256.Int
	fulfilled bool
	brewed    map[uint32]bool
}

type Engine struct {
	mu sync.RWMutex

	cfg      Config
	now      func() time.Time
	statuses StatusReader
	doctors  DoctorOwners
	potions  RewardTokens
	gateway  *randomness.Gateway
	logs     LogStore
	metrics  *metrics.Metrics

	claimed map[uint32]bool
	epochs  map[uint64]*epochState
	stats   Stats
}

func New(cfg Config, c Collaborators) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if c.Statuses == nil || c.Doctors == nil || c.Potions == nil || c.Gateway == nil {
		return nil, fmt.Errorf("%w: missing collaborator", ErrInvalidConfig)
	}
	if c.Logs == nil {
		c.Logs = NewMemoryLogs()
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	cfg.Difficulty = append([]uint32(nil), cfg.Difficulty...)

	return &Engine{
		cfg:      cfg,
		now:      now,
		statuses: c.Statuses,
		doctors:  c.Doctors,
		potions:  c.Potions,
		gateway:  c.Gateway,
		logs:     c.Logs,
		metrics:  c.Metrics,
		claimed:  make(map[uint32]bool),
		epochs:   make(map[uint64]*epochState),
	}, nil
}

// SetClaimStartTime reschedules the claim window until it opens
func (e *Engine) SetClaimStartTime(caller common.Address, t time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.cfg.Admin {
		return ErrUnauthorized
	}
	if !e.cfg.ClaimStart.IsZero() && !e.now().Before(e.cfg.ClaimStart) {
		return ErrScheduleLocked
	}
	e.cfg.ClaimStart = t
	return nil
}

// SetDifficulty replaces the difficulty schedule
func (e *Engine) SetDifficulty(caller common.Address, schedule []uint32) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.cfg.Admin {
		return ErrUnauthorized
	}
	if err := validateDifficulty(schedule); err != nil {
		return err
	}
	e.cfg.Difficulty = append([]uint32(nil), schedule...)
	return nil
}

// ClaimPotion hands one inventory potion to the owner of a dead doctor.
// Every doctor claims at most once, inside the claim window.
func (e *Engine) ClaimPotion(caller common.Address, doctor uint32) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	if e.cfg.ClaimStart.IsZero() || now.Before(e.cfg.ClaimStart) {
		return 0, ErrClaimNotStarted
	}
	if !now.Before(e.brewStart()) {
		return 0, ErrClaimClosed
	}
	if e.claimed[doctor] {
		return 0, fmt.Errorf("%w: doctor %d", ErrAlreadyClaimed, doctor)
	}
	if err := e.requireEligible(caller, doctor); err != nil {
		return 0, err
	}
	if e.potions.BalanceOf(e.cfg.Inventory) == 0 {
		return 0, ErrPotionsNotEnough
	}
	potion, err := e.potions.TokenOfOwnerByIndex(e.cfg.Inventory, 0)
	if err != nil {
		return 0, err
	}
	if err := e.potions.Transfer(e.cfg.Inventory, caller, potion); err != nil {
		return 0, fmt.Errorf("transfer potion %d: %w", potion, err)
	}

	e.claimed[doctor] = true
	e.stats.Claims++
	e.metrics.Claimed()

	log.Brew.Info().
		Uint32("doctor", doctor).
		Uint64("potion", potion).
		Str("owner", caller.Hex()).
		Msg("potion claimed")
	return potion, nil
}

// RequestEpochRandomness issues the request for the current brew epoch's word
func (e *Engine) RequestEpochRandomness(ctx context.Context) (randomness.RequestID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	epoch, err := e.currentEpoch()
	if err != nil {
		return randomness.RequestID{}, err
	}
	id, err := e.gateway.Request(ctx, randomness.BrewSlot(epoch))
	if err != nil {
		return randomness.RequestID{}, fmt.Errorf("request randomness for brew epoch %d: %w", epoch, err)
	}
	e.epochs[epoch] = &epochState{requestID: id, brewed: make(map[uint32]bool)}
	return id, nil
}

// ConsumeRandomness applies the word of a brew epoch. Deliveries the engine
// cannot use are refused before the gateway records them.
func (e *Engine) ConsumeRandomness(ctx context.Context, caller common.Address, id randomness.RequestID, words []uint256.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.gateway.Authenticate(caller); err != nil {
		return err
	}
	slot, err := e.gateway.Resolve(id)
	if err != nil {
		return err
	}
	if slot.Kind != randomness.KindBrew {
		return fmt.Errorf("%w: %s", ErrUnexpectedSlot, slot)
	}
	es, ok := e.epochs[slot.Index]
	if !ok || es.requestID != id {
		return fmt.Errorf("%w: %s", ErrRandomnessNotRequested, slot)
	}
	if _, err := e.gateway.Fulfill(caller, id, words); err != nil {
		return err
	}
	es.word.Set(&words[0])
	es.fulfilled = true

	log.Brew.Debug().Uint64("epoch", slot.Index).Msg("brew randomness fulfilled")
	return nil
}

// MakePotions brews a batch of dead doctors owned by caller. Either every
// attempt is recorded and every success paid, or nothing changes.
func (e *Engine) MakePotions(caller common.Address, doctors []uint32) ([]Log, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(doctors) != BatchSize {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidBatch, len(doctors))
	}
	epoch, err := e.currentEpoch()
	if err != nil {
		return nil, err
	}
	es, ok := e.epochs[epoch]
	if !ok {
		return nil, fmt.Errorf("%w: epoch %d", ErrRandomnessNotRequested, epoch)
	}
	if !es.fulfilled {
		return nil, fmt.Errorf("%w: epoch %d", ErrRandomnessPending, epoch)
	}

	seen := make(map[uint32]bool, BatchSize)
	for _, d := range doctors {
		if seen[d] {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateDoctor, d)
		}
		seen[d] = true
		if err := e.requireEligible(caller, d); err != nil {
			return nil, err
		}
		if es.brewed[d] {
			return nil, fmt.Errorf("%w: doctor %d in epoch %d", ErrAlreadyBrewed, d, epoch)
		}
	}

	modulus := uint64(difficulty(e.cfg.Difficulty, epoch)) * BatchSize
	ts := uint64(e.now().Unix())
	logs := make([]Log, len(doctors))
	successes := uint64(0)
	for i, d := range doctors {
		ok, err := Succeeds(&es.word, d, modulus)
		if err != nil {
			return nil, err
		}
		logs[i] = Log{Timestamp: ts, Doctor: d, Succeeded: ok, Epoch: epoch}
		if ok {
			successes++
		}
	}

	if have := e.potions.BalanceOf(e.cfg.Inventory); have < successes {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrPotionsNotEnough, have, successes)
	}
	rewards := make([]uint64, 0, successes)
	for i := uint64(0); i < successes; i++ {
		id, err := e.potions.TokenOfOwnerByIndex(e.cfg.Inventory, i)
		if err != nil {
			return nil, err
		}
		rewards = append(rewards, id)
	}
	for i, id := range rewards {
		if err := e.potions.Transfer(e.cfg.Inventory, caller, id); err != nil {
			e.refund(caller, rewards[:i])
			return nil, fmt.Errorf("transfer potion %d: %w", id, err)
		}
	}
	if err := e.logs.Append(logs...); err != nil {
		e.refund(caller, rewards)
		return nil, fmt.Errorf("append brew logs: %w", err)
	}

	for _, l := range logs {
		es.brewed[l.Doctor] = true
		e.metrics.Brewed(l.Succeeded)
	}
	e.stats.Attempts += uint64(len(logs))
	e.stats.Successes += successes

	log.Brew.Info().
		Uint64("epoch", epoch).
		Str("owner", caller.Hex()).
		Uint64("successes", successes).
		Uint64("modulus", modulus).
		Msg("batch brewed")
	return logs, nil
}

// Succeeds reports whether doctor brews a potion with word at the given odds
func Succeeds(word *uint256.Int, doctor uint32, modulus uint64) (bool, error) {
	r, err := randomness.Draw(word, uint64(doctor), modulus)
	if err != nil {
		return false, err
	}
	return r == 0, nil
}

func (e *Engine) refund(caller common.Address, ids []uint64) {
	for _, id := range ids {
		if err := e.potions.Transfer(caller, e.cfg.Inventory, id); err != nil {
			log.Brew.Error().Err(err).Uint64("potion", id).Msg("refund potion")
		}
	}
}

func (e *Engine) requireEligible(caller common.Address, doctor uint32) error {
	if !e.statuses.Started() {
		return ErrGameNotStarted
	}
	owner, err := e.doctors.OwnerOf(doctor)
	if err != nil {
		return fmt.Errorf("owner of doctor %d: %w", doctor, err)
	}
	if owner != caller {
		return fmt.Errorf("%w: doctor %d", ErrNotOwner, doctor)
	}
	s, err := e.statuses.Status(doctor)
	if err != nil {
		return err
	}
	if s != population.Dead {
		return fmt.Errorf("%w: doctor %d is %s", ErrNotEligible, doctor, s)
	}
	return nil
}

func (e *Engine) brewStart() time.Time {
	return e.cfg.ClaimStart.Add(e.cfg.ClaimWindow)
}

func (e *Engine) currentEpoch() (uint64, error) {
	if e.cfg.ClaimStart.IsZero() {
		return 0, ErrBrewingNotStarted
	}
	elapsed := e.now().Sub(e.brewStart())
	if elapsed < 0 {
		return 0, ErrBrewingNotStarted
	}
	return uint64(elapsed/e.cfg.EpochDuration) + 1, nil
}

// CurrentEpoch is the brew epoch in progress, starting at 1
func (e *Engine) CurrentEpoch() (uint64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.currentEpoch()
}

// TimeUntilNextEpoch is the countdown to the next brew epoch, or to the
// first one while claims are open
func (e *Engine) TimeUntilNextEpoch() (time.Duration, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.cfg.ClaimStart.IsZero() {
		return 0, ErrBrewingNotStarted
	}
	epoch, err := e.currentEpoch()
	if err != nil {
		return e.brewStart().Sub(e.now()), nil
	}
	next := e.brewStart().Add(time.Duration(epoch) * e.cfg.EpochDuration)
	return next.Sub(e.now()), nil
}

// Difficulty is the difficulty of a brew epoch
func (e *Engine) Difficulty(epoch uint64) uint32 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return difficulty(e.cfg.Difficulty, epoch)
}

func (e *Engine) Claimed(doctor uint32) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.claimed[doctor]
}

// Brewed reports whether doctor brewed in epoch
func (e *Engine) Brewed(epoch uint64, doctor uint32) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	es, ok := e.epochs[epoch]
	return ok && es.brewed[doctor]
}

func (e *Engine) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stats
}

func (e *Engine) Logs() ([]Log, error) {
	return e.logs.All()
}

func (e *Engine) LogsOf(doctor uint32) ([]Log, error) {
	return e.logs.ByDoctor(doctor)
}

func (e *Engine) RecentLogs(n int) ([]Log, error) {
	return e.logs.Recent(n)
}
