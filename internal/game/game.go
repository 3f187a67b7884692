package game

import (
	"context"
	"errors"
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

// Collaborators are the external systems a game talks to
type Collaborators struct {
	Doctors ParticipantRegistry
	Potions CredentialBurner
	Payout  Payout
	Gateway *randomness.Gateway
	Metrics *metrics.Metrics
}

// Game is the epoch state machine of one elimination game. Every mutating
// call, randomness deliveries included, is serialized behind one lock;
// queries take the read side and never see a half applied transition.
type Game struct {
	mu sync.RWMutex

	cfg     Config
	now     func() time.Time
	doctors ParticipantRegistry
	potions CredentialBurner
	payout  Payout
	gateway *randomness.Gateway
	metrics *metrics.Metrics

	population *population.Set
	statuses   *population.StatusTable

	startTime time.Time
	started   bool
	over      bool
	// epochs[i] is epoch i+1
	epochs []*Epoch

	cureAttempts map[population.ID]uint32
	pendingCures map[population.ID]pendingCure
	cures        []CureRecord

	pool               uint256.Int
	survivors          uint32
	withdrawalsAllowed bool
	withdrawn          map[population.ID]bool
	totalWithdrawn     uint256.Int
}

// New creates a game over every doctor of the registry
func New(cfg Config, c Collaborators) (*Game, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if c.Doctors == nil || c.Potions == nil || c.Payout == nil || c.Gateway == nil {
		return nil, fmt.Errorf("%w: missing collaborator", ErrInvalidConfig)
	}

	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	cfg.InfectionRates = append([]uint16(nil), cfg.InfectionRates...)

	total := c.Doctors.TotalCount()
	return &Game{
		cfg:          cfg,
		now:          now,
		doctors:      c.Doctors,
		potions:      c.Potions,
		payout:       c.Payout,
		gateway:      c.Gateway,
		metrics:      c.Metrics,
		population:   population.NewSet(total),
		statuses:     population.NewStatusTable(total),
		startTime:    cfg.StartTime,
		cureAttempts: make(map[population.ID]uint32),
		pendingCures: make(map[population.ID]pendingCure),
		withdrawn:    make(map[population.ID]bool),
	}, nil
}

// InitializePopulation installs the next count doctors as Healthy
func (g *Game) InitializePopulation(caller common.Address, count uint32) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if caller != g.cfg.Admin {
		return ErrUnauthorized
	}
	if g.started {
		return ErrGameAlreadyStarted
	}
	ids, err := g.population.Initialize(count)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := g.statuses.Set(id, population.Healthy); err != nil {
			return err
		}
	}

	log.Game.Debug().
		Uint32("installed", g.population.Installed()).
		Uint32("target", g.population.Target()).
		Msg("population installment")
	return nil
}

// SetStartTime schedules the earliest start of the game
func (g *Game) SetStartTime(caller common.Address, t time.Time) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if caller != g.cfg.Admin {
		return ErrUnauthorized
	}
	if g.started {
		return ErrGameAlreadyStarted
	}
	g.startTime = t
	return nil
}

// StartGame opens epoch 1 and requests its randomness
func (g *Game) StartGame(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.started {
		return ErrGameAlreadyStarted
	}
	if !g.population.Full() {
		return fmt.Errorf("%w: %d of %d", ErrPopulationNotInitialized,
			g.population.Installed(), g.population.Target())
	}
	if g.population.Len() <= g.cfg.survivorFloor() {
		return fmt.Errorf("%w: %d doctors, threshold %d", ErrPopulationTooSmall,
			g.population.Len(), g.cfg.survivorFloor())
	}
	if !g.startTime.IsZero() && g.now().Before(g.startTime) {
		return fmt.Errorf("%w: starts at %s", ErrStartTimeNotReached, g.startTime.Format(time.RFC3339))
	}

	e, err := g.openEpoch(ctx, 1)
	if err != nil {
		return err
	}
	g.started = true

	log.Game.Info().
		Uint32("doctors", g.population.Len()).
		Uint16("rate", e.InfectionRate).
		Msg("game started")
	return nil
}

// StartEpoch runs the infection pass of the current epoch and returns the
// doctors it infected, in draw order
func (g *Game) StartEpoch() ([]population.ID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.requireOpen(); err != nil {
		return nil, err
	}
	e := g.current()
	if e.Started {
		return nil, fmt.Errorf("%w: epoch %d", ErrEpochAlreadyStarted, e.Index)
	}
	if !e.Fulfilled {
		w, ok := g.gateway.Word(randomness.EpochSlot(e.Index))
		if !ok {
			return nil, fmt.Errorf("%w: epoch %d", ErrRandomnessPending, e.Index)
		}
		e.Word.Set(w)
		e.Fulfilled = true
	}

	n := InfectionCount(g.population.Len(), e.InfectionRate)
	infected := make([]population.ID, 0, n)
	for i := uint32(0); i < n; i++ {
		idx, err := randomness.Draw(&e.Word, uint64(i), uint64(g.population.Len()))
		if err != nil {
			return nil, err
		}
		id, err := g.population.RemoveAt(uint32(idx))
		if err != nil {
			return nil, err
		}
		if err := g.statuses.Set(id, population.Infected); err != nil {
			return nil, err
		}
		infected = append(infected, id)
	}

	e.Started = true
	e.StartedAt = g.now()
	e.InfectedCount = n
	g.metrics.EpochStarted(int(n), int(g.population.Len()))

	log.Game.Info().
		Uint32("epoch", e.Index).
		Uint32("infected", n).
		Uint32("healthy", g.population.Len()).
		Uint16("rate", e.InfectionRate).
		Msg("epoch started")
	return infected, nil
}

// EndEpoch kills every doctor still infected, then either ends the game or
// opens the next epoch
func (g *Game) EndEpoch(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.requireOpen(); err != nil {
		return err
	}
	e := g.current()
	if !e.Started {
		return fmt.Errorf("%w: epoch %d", ErrEpochNotStarted, e.Index)
	}
	if e.Ended {
		return fmt.Errorf("%w: epoch %d", ErrEpochAlreadyEnded, e.Index)
	}
	if g.now().Before(e.EndsAt(g.cfg.EpochDuration)) {
		return fmt.Errorf("%w: epoch %d ends at %s", ErrEpochNotElapsed, e.Index,
			e.EndsAt(g.cfg.EpochDuration).Format(time.RFC3339))
	}

	healthy := g.population.Len()
	over := healthy <= g.cfg.survivorFloor() ||
		(g.cfg.MaxEpochs > 0 && e.Index >= g.cfg.MaxEpochs)

	// the next request goes first so a failing oracle leaves the epoch open
	var next *Epoch
	if !over {
		var err error
		next, err = g.openEpoch(ctx, e.Index+1)
		if err != nil {
			return err
		}
	}

	e.DeadCount = g.statuses.CollapseInfected()
	e.Ended = true
	g.metrics.EpochEnded(e.DeadCount, int(healthy))

	if over {
		g.over = true
		g.survivors = healthy
		log.Game.Info().
			Uint32("epoch", e.Index).
			Uint32("dead", e.DeadCount).
			Uint32("survivors", healthy).
			Msg("game over")
		return nil
	}

	log.Game.Info().
		Uint32("epoch", e.Index).
		Uint32("dead", e.DeadCount).
		Uint32("healthy", healthy).
		Uint32("next", next.Index).
		Msg("epoch ended")
	return nil
}

// ConsumeRandomness applies an oracle delivery for an epoch or cure slot. The
// delivery is checked against the game's own bookkeeping before the gateway
// records it, so a rejected delivery leaves the slot outstanding.
func (g *Game) ConsumeRandomness(ctx context.Context, caller common.Address, id randomness.RequestID, words []uint256.Int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.gateway.Authenticate(caller); err != nil {
		return err
	}
	slot, err := g.gateway.Resolve(id)
	if err != nil {
		return err
	}

	switch slot.Kind {
	case randomness.KindEpoch:
		e := g.epoch(uint32(slot.Index))
		if e == nil || uint64(e.Index) != slot.Index {
			return fmt.Errorf("%w: %d", ErrUnknownEpoch, slot.Index)
		}
		if _, err := g.gateway.Fulfill(caller, id, words); err != nil {
			return err
		}
		e.Word.Set(&words[0])
		e.Fulfilled = true
		log.Game.Debug().Uint32("epoch", e.Index).Msg("epoch randomness fulfilled")
		return nil
	case randomness.KindCure:
		p, err := g.pendingCure(slot)
		if err != nil {
			return err
		}
		if _, err := g.gateway.Fulfill(caller, id, words); err != nil {
			return err
		}
		return g.resolveCure(slot, p, &words[0])
	default:
		return fmt.Errorf("%w: %s", ErrUnexpectedSlot, slot)
	}
}

func (g *Game) openEpoch(ctx context.Context, index uint32) (*Epoch, error) {
	id, err := g.gateway.Request(ctx, randomness.EpochSlot(index))
	if err != nil {
		return nil, fmt.Errorf("request randomness for epoch %d: %w", index, err)
	}
	e := &Epoch{
		Index:         index,
		InfectionRate: g.cfg.InfectionRate(index),
		RequestID:     id,
	}
	g.epochs = append(g.epochs, e)
	return e, nil
}

func (g *Game) requireOpen() error {
	if !g.started {
		return ErrGameNotStarted
	}
	if g.over {
		return ErrGameClosed
	}
	return nil
}

func (g *Game) current() *Epoch {
	if len(g.epochs) == 0 {
		return nil
	}
	return g.epochs[len(g.epochs)-1]
}

func (g *Game) epoch(index uint32) *Epoch {
	if index == 0 || int(index) > len(g.epochs) {
		return nil
	}
	return g.epochs[index-1]
}

func (g *Game) heal(id population.ID) error {
	if err := g.statuses.Set(id, population.Healthy); err != nil {
		return err
	}
	g.population.Add(id)
	return nil
}

// Phase returns the lifecycle position of the game
func (g *Game) Phase() Phase {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.phase()
}

func (g *Game) phase() Phase {
	switch {
	case !g.started:
		return PhaseNotStarted
	case g.over:
		return PhaseOver
	case g.current().Started:
		return PhaseEpochActive
	default:
		return PhaseEpochPending
	}
}

// Started reports whether StartGame succeeded. It stays true after game over.
func (g *Game) Started() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.started
}

// Status returns the status of a doctor
func (g *Game) Status(id population.ID) (population.Status, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.statuses.Get(id)
}

// HealthyCount is the number of doctors currently healthy
func (g *Game) HealthyCount() uint32 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.population.Len()
}

// Count returns how many doctors have status s
func (g *Game) Count(s population.Status) uint32 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.statuses.Count(s)
}

// CurrentEpoch returns a copy of the latest epoch
func (g *Game) CurrentEpoch() (Epoch, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	e := g.current()
	if e == nil {
		return Epoch{}, ErrGameNotStarted
	}
	return *e, nil
}

// Epoch returns a copy of epoch index
func (g *Game) Epoch(index uint32) (Epoch, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	e := g.epoch(index)
	if e == nil {
		return Epoch{}, fmt.Errorf("%w: %d", ErrUnknownEpoch, index)
	}
	return *e, nil
}

// Epochs returns copies of every epoch opened so far
func (g *Game) Epochs() []Epoch {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]Epoch, 0, len(g.epochs))
	for _, e := range g.epochs {
		out = append(out, *e)
	}
	return out
}

// TimeUntilStart is the countdown to the scheduled start, zero once reached
func (g *Game) TimeUntilStart() time.Duration {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.started || g.startTime.IsZero() {
		return 0
	}
	return max(g.startTime.Sub(g.now()), 0)
}

// TimeUntilEpochEnd is the countdown to the earliest end of the active epoch
func (g *Game) TimeUntilEpochEnd() (time.Duration, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if err := g.requireOpen(); err != nil {
		return 0, err
	}
	e := g.current()
	if !e.Started {
		return 0, fmt.Errorf("%w: epoch %d", ErrEpochNotStarted, e.Index)
	}
	return max(e.EndsAt(g.cfg.EpochDuration).Sub(g.now()), 0), nil
}

// RandomnessResults lists the oracle results of every slot
func (g *Game) RandomnessResults() []randomness.Result {
	return g.gateway.Results()
}

// IsClosed reports errors that mean the game can no longer progress
func IsClosed(err error) bool {
	return errors.Is(err, ErrGameClosed)
}
