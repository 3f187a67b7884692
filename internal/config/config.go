// Package config loads the simulator settings from PLAGUE_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/ethereum/go-ethereum/common"

	"github.com/eigerco/plague/internal/brew"
	"github.com/eigerco/plague/internal/game"
	"github.com/eigerco/plague/pkg/log"
)

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	LogLevel  string `env:"PLAGUE_LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"PLAGUE_LOG_FORMAT" envDefault:"console"`

	// DataDir holds the pebble database. Empty keeps everything in memory.
	DataDir     string `env:"PLAGUE_DATA_DIR"`
	CacheMiB    int64  `env:"PLAGUE_CACHE_MIB"    envDefault:"64"`
	MetricsAddr string `env:"PLAGUE_METRICS_ADDR"`

	Seed          string `env:"PLAGUE_SEED"           envDefault:"plague"`
	OracleBacklog int    `env:"PLAGUE_ORACLE_BACKLOG" envDefault:"1024"`

	Doctors           uint32        `env:"PLAGUE_DOCTORS"             envDefault:"1000"`
	Holders           uint32        `env:"PLAGUE_HOLDERS"             envDefault:"10"`
	Installment       uint32        `env:"PLAGUE_INSTALLMENT"         envDefault:"250"`
	EpochDuration     time.Duration `env:"PLAGUE_EPOCH_DURATION"      envDefault:"1h"`
	SurvivorThreshold uint32        `env:"PLAGUE_SURVIVOR_THRESHOLD"  envDefault:"10"`
	MaxEpochs         uint32        `env:"PLAGUE_MAX_EPOCHS"          envDefault:"0"`
	InfectionRates    []uint16      `env:"PLAGUE_INFECTION_RATES"     envDefault:"2000,2500,3000" envSeparator:","`
	PotionsPerHolder  uint32        `env:"PLAGUE_POTIONS_PER_HOLDER"  envDefault:"30"`
	PrizePool         uint64        `env:"PLAGUE_PRIZE_POOL"          envDefault:"1000000"`

	BrewClaimWindow   time.Duration `env:"PLAGUE_BREW_CLAIM_WINDOW"   envDefault:"2h"`
	BrewEpochDuration time.Duration `env:"PLAGUE_BREW_EPOCH_DURATION" envDefault:"1h"`
	BrewDifficulty    []uint32      `env:"PLAGUE_BREW_DIFFICULTY"     envDefault:"1,2,4" envSeparator:","`
	BrewInventory     uint32        `env:"PLAGUE_BREW_INVENTORY"      envDefault:"500"`
	BrewEpochs        uint32        `env:"PLAGUE_BREW_EPOCHS"         envDefault:"3"`
}

// Load parses the environment and validates the result
func Load() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// LogOptions converts the log settings for log.Init
func (c Config) LogOptions() log.Options {
	level, _ := log.ParseLogLevel(c.LogLevel)
	typ, _ := log.ParseLoggerType(c.LogFormat)
	return log.Options{LogLevel: level, Type: typ}
}

func (c Config) Validate() error {
	if _, err := log.ParseLogLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if _, err := log.ParseLoggerType(c.LogFormat); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if c.Doctors == 0 {
		return fmt.Errorf("%w: no doctors", ErrInvalid)
	}
	if c.Holders == 0 || c.Holders > c.Doctors {
		return fmt.Errorf("%w: %d holders for %d doctors", ErrInvalid, c.Holders, c.Doctors)
	}
	if c.Installment == 0 {
		return fmt.Errorf("%w: zero installment", ErrInvalid)
	}
	if err := c.Game(common.Address{}).Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := c.Brew(common.Address{}, common.Address{}, time.Time{}).Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// Game returns the game parameters administered by admin
func (c Config) Game(admin common.Address) game.Config {
	return game.Config{
		Admin:             admin,
		EpochDuration:     c.EpochDuration,
		SurvivorThreshold: c.SurvivorThreshold,
		MaxEpochs:         c.MaxEpochs,
		InfectionRates:    append([]uint16(nil), c.InfectionRates...),
	}
}

// Brew returns the brewing parameters with claims opening at claimStart
func (c Config) Brew(admin, inventory common.Address, claimStart time.Time) brew.Config {
	return brew.Config{
		Admin:         admin,
		Inventory:     inventory,
		ClaimStart:    claimStart,
		ClaimWindow:   c.BrewClaimWindow,
		EpochDuration: c.BrewEpochDuration,
		Difficulty:    append([]uint32(nil), c.BrewDifficulty...),
	}
}
