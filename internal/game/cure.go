package game

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/eigerco/plague/internal/curve"
	"github.com/eigerco/plague/internal/population"
	"github.com/eigerco/plague/internal/randomness"
	"github.com/eigerco/plague/pkg/log"
)

// CureResult is the immediate outcome of drinking a potion
type CureResult struct {
	Doctor  population.ID
	Attempt uint32
	Rate    uint16
	// Cured is set when the attempt succeeded without randomness
	Cured bool
	// Pending is set when the outcome waits for RequestID
	Pending   bool
	RequestID randomness.RequestID
}

// CureRecord is the final outcome of one cure attempt
type CureRecord struct {
	Doctor    population.ID
	Attempt   uint32
	Epoch     uint32
	Rate      uint16
	Roll      uint64
	Immediate bool
	Cured     bool
}

type pendingCure struct {
	slot    randomness.Slot
	attempt uint32
	epoch   uint32
	rate    uint16
}

// DrinkPotion spends a potion on an infected doctor. The first attempts of
// every doctor succeed outright; later ones request randomness and are
// settled on delivery.
func (g *Game) DrinkPotion(ctx context.Context, caller common.Address, doctor population.ID, potion uint64) (CureResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.requireOpen(); err != nil {
		return CureResult{}, err
	}
	s, err := g.statuses.Get(doctor)
	if err != nil {
		return CureResult{}, err
	}
	if s != population.Infected {
		return CureResult{}, fmt.Errorf("%w: doctor %d is %s", ErrNotInfected, doctor, s)
	}
	e := g.current()
	if e.Ended || !g.now().Before(e.EndsAt(g.cfg.EpochDuration)) {
		return CureResult{}, fmt.Errorf("%w: epoch %d", ErrEpochEnded, e.Index)
	}
	if err := g.requireOwner(caller, doctor, potion); err != nil {
		return CureResult{}, err
	}
	if _, ok := g.pendingCures[doctor]; ok {
		return CureResult{}, fmt.Errorf("%w: doctor %d", ErrCureInProgress, doctor)
	}

	attempt := g.cureAttempts[doctor]
	rate := curve.SuccessRate(attempt)
	result := CureResult{Doctor: doctor, Attempt: attempt, Rate: rate}

	if curve.Guaranteed(rate) {
		if err := g.potions.Burn(potion); err != nil {
			return CureResult{}, fmt.Errorf("%w %d: %w", ErrBurnFailed, potion, err)
		}
		g.cureAttempts[doctor] = attempt + 1
		if err := g.heal(doctor); err != nil {
			return CureResult{}, err
		}
		g.cures = append(g.cures, CureRecord{
			Doctor: doctor, Attempt: attempt, Epoch: e.Index, Rate: rate, Immediate: true, Cured: true,
		})
		g.metrics.Cure("success", int(g.population.Len()))
		result.Cured = true

		log.Game.Info().
			Uint32("doctor", doctor).
			Uint32("attempt", attempt).
			Msg("doctor cured")
		return result, nil
	}

	slot := randomness.CureSlot(doctor, attempt)
	id, err := g.gateway.Request(ctx, slot)
	if err != nil {
		return CureResult{}, fmt.Errorf("request cure randomness: %w", err)
	}
	if err := g.potions.Burn(potion); err != nil {
		if cerr := g.gateway.Cancel(slot); cerr != nil {
			log.Game.Error().Err(cerr).Stringer("slot", slot).Msg("cancel cure request")
		}
		return CureResult{}, fmt.Errorf("%w %d: %w", ErrBurnFailed, potion, err)
	}

	g.cureAttempts[doctor] = attempt + 1
	g.pendingCures[doctor] = pendingCure{slot: slot, attempt: attempt, epoch: e.Index, rate: rate}
	result.Pending = true
	result.RequestID = id

	log.Game.Info().
		Uint32("doctor", doctor).
		Uint32("attempt", attempt).
		Uint16("rate", rate).
		Str("request", id.Hex()).
		Msg("cure awaiting randomness")
	return result, nil
}

func (g *Game) requireOwner(caller common.Address, doctor population.ID, potion uint64) error {
	owner, err := g.doctors.OwnerOf(doctor)
	if err != nil {
		return fmt.Errorf("owner of doctor %d: %w", doctor, err)
	}
	if owner != caller {
		return fmt.Errorf("%w: doctor %d", ErrNotOwner, doctor)
	}
	owner, err = g.potions.OwnerOf(potion)
	if err != nil {
		return fmt.Errorf("owner of potion %d: %w", potion, err)
	}
	if owner != caller {
		return fmt.Errorf("%w: potion %d", ErrNotOwner, potion)
	}
	return nil
}

// pendingCure returns the attempt awaiting the word of slot
func (g *Game) pendingCure(slot randomness.Slot) (pendingCure, error) {
	p, ok := g.pendingCures[population.ID(slot.Index)]
	if !ok || p.slot != slot {
		return pendingCure{}, fmt.Errorf("%w: no pending cure for %s", randomness.ErrUnknownRequest, slot)
	}
	return p, nil
}

// resolveCure settles a randomness gated attempt. The doctor is restored
// only if it is still infected in the epoch the potion was drunk in.
func (g *Game) resolveCure(slot randomness.Slot, p pendingCure, word *uint256.Int) error {
	doctor := population.ID(slot.Index)
	delete(g.pendingCures, doctor)

	roll, err := randomness.Roll(word, uint64(curve.MaxRate))
	if err != nil {
		return err
	}
	e := g.current()
	s, err := g.statuses.Get(doctor)
	if err != nil {
		return err
	}
	cured := roll < uint64(p.rate) &&
		s == population.Infected &&
		!g.over &&
		e.Index == p.epoch && !e.Ended

	if cured {
		if err := g.heal(doctor); err != nil {
			return err
		}
		g.metrics.Cure("success", int(g.population.Len()))
	} else {
		g.metrics.Cure("failure", int(g.population.Len()))
	}
	g.cures = append(g.cures, CureRecord{
		Doctor: doctor, Attempt: p.attempt, Epoch: p.epoch, Rate: p.rate, Roll: roll, Cured: cured,
	})

	log.Game.Info().
		Uint32("doctor", doctor).
		Uint32("attempt", p.attempt).
		Uint64("roll", roll).
		Uint16("rate", p.rate).
		Bool("cured", cured).
		Msg("cure settled")
	return nil
}

// CureAttempts is the number of potions a doctor has drunk
func (g *Game) CureAttempts(doctor population.ID) uint32 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.cureAttempts[doctor]
}

// CurePending reports whether a doctor's last attempt awaits randomness
func (g *Game) CurePending(doctor population.ID) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.pendingCures[doctor]
	return ok
}

// Cures returns the settled attempts of a doctor, oldest first
func (g *Game) Cures(doctor population.ID) []CureRecord {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []CureRecord
	for _, c := range g.cures {
		if c.Doctor == doctor {
			out = append(out, c)
		}
	}
	return out
}

// CureWindow is the time left to drink potions in the active epoch
func (g *Game) CureWindow() time.Duration {
	d, err := g.TimeUntilEpochEnd()
	if err != nil {
		return 0
	}
	return d
}
