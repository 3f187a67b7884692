package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"gopkg.in/urfave/cli.v1"

	"github.com/eigerco/plague/internal/brew"
	"github.com/eigerco/plague/internal/config"
	"github.com/eigerco/plague/internal/crypto"
	"github.com/eigerco/plague/internal/game"
	"github.com/eigerco/plague/internal/metrics"
	"github.com/eigerco/plague/internal/oracle"
	"github.com/eigerco/plague/internal/population"
	"github.com/eigerco/plague/internal/randomness"
	"github.com/eigerco/plague/internal/registry"
	"github.com/eigerco/plague/internal/store"
	"github.com/eigerco/plague/pkg/db"
	"github.com/eigerco/plague/pkg/db/pebble"
	"github.com/eigerco/plague/pkg/log"
)

var genesis = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func simulate(ctx *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	applyFlags(ctx, &cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	log.Init(cfg.LogOptions())

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, err = runSimulation(runCtx, cfg, ctx.App.Writer)
	return err
}

func applyFlags(ctx *cli.Context, cfg *config.Config) {
	if ctx.IsSet(DataDirFlag.Name) {
		cfg.DataDir = ctx.String(DataDirFlag.Name)
	}
	if ctx.IsSet(SeedFlag.Name) {
		cfg.Seed = ctx.String(SeedFlag.Name)
	}
	if ctx.IsSet(DoctorsFlag.Name) {
		cfg.Doctors = uint32(ctx.Uint(DoctorsFlag.Name))
	}
	if ctx.IsSet(HoldersFlag.Name) {
		cfg.Holders = uint32(ctx.Uint(HoldersFlag.Name))
	}
	if ctx.IsSet(MaxEpochsFlag.Name) {
		cfg.MaxEpochs = uint32(ctx.Uint(MaxEpochsFlag.Name))
	}
	if ctx.IsSet(MetricsAddrFlag.Name) {
		cfg.MetricsAddr = ctx.String(MetricsAddrFlag.Name)
	}
	if ctx.IsSet(VerbosityFlag.Name) {
		cfg.LogLevel = ctx.String(VerbosityFlag.Name)
	}
	if ctx.IsSet(LogFormatFlag.Name) {
		cfg.LogFormat = ctx.String(LogFormatFlag.Name)
	}
}

// clock is the simulated time shared by the engines
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// account derives a stable address for a simulation role
func account(seed, role string, i uint32) common.Address {
	h := crypto.KeccakData([]byte(seed), []byte(role), []byte{byte(i >> 24), byte(i >> 16), byte(i >> 8), byte(i)})
	return common.BytesToAddress(h[12:])
}

type summary struct {
	Epochs      uint32
	Survivors   uint32
	Dead        uint32
	Cures       int
	Prize       *uint256.Int
	Paid        *uint256.Int
	Claims      uint64
	BrewAttempt uint64
	Brewed      uint64
}

type simulation struct {
	cfg   config.Config
	clock *clock

	admin     common.Address
	inventory common.Address
	holders   []common.Address

	doctors  *registry.Doctors
	potions  *registry.Potions
	treasury *registry.Treasury
	oracle   *oracle.Local
	gateway  *randomness.Gateway
	router   *randomness.Router

	game      *game.Game
	brew      *brew.Engine
	snapshots *store.Snapshots
}

func runSimulation(ctx context.Context, cfg config.Config, out io.Writer) (summary, error) {
	opts := []pebble.Option{pebble.WithCacheSize(cfg.CacheMiB)}
	if cfg.DataDir != "" {
		opts = append(opts, pebble.WithPath(cfg.DataDir))
	}
	kv, err := pebble.NewKVStore(opts...)
	if err != nil {
		return summary{}, fmt.Errorf("open store: %w", err)
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	s, err := newSimulation(cfg, kv, m)
	if err != nil {
		kv.Close()
		return summary{}, err
	}
	defer s.snapshots.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var result summary
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.oracle.Run(gctx, s.router.Deliver); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	if cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			return srv.Close()
		})
	}
	g.Go(func() error {
		defer cancel()
		var err error
		result, err = s.run(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return summary{}, err
	}

	fmt.Fprintf(out, "epochs: %d\n", result.Epochs)
	fmt.Fprintf(out, "survivors: %d, dead: %d, cures: %d\n", result.Survivors, result.Dead, result.Cures)
	fmt.Fprintf(out, "prize per survivor: %s, paid: %s\n", result.Prize.Dec(), result.Paid.Dec())
	fmt.Fprintf(out, "potions claimed: %d, brew attempts: %d, brewed: %d\n", result.Claims, result.BrewAttempt, result.Brewed)
	return result, nil
}

func newSimulation(cfg config.Config, kv db.KVStore, m *metrics.Metrics) (*simulation, error) {
	s := &simulation{
		cfg:       cfg,
		clock:     &clock{now: genesis},
		admin:     account(cfg.Seed, "admin", 0),
		inventory: account(cfg.Seed, "inventory", 0),
		potions:   registry.NewPotions(),
		treasury:  registry.NewTreasury(),
		snapshots: store.NewSnapshots(kv),
	}
	for i := uint32(0); i < cfg.Holders; i++ {
		s.holders = append(s.holders, account(cfg.Seed, "holder", i))
	}
	s.doctors = registry.NewDoctorsRoundRobin(cfg.Doctors, s.holders)
	for _, h := range s.holders {
		s.potions.Mint(h, cfg.PotionsPerHolder)
	}
	s.potions.Mint(s.inventory, cfg.BrewInventory)
	s.treasury.Fund(uint256.NewInt(cfg.PrizePool))

	s.oracle = oracle.NewLocal(account(cfg.Seed, "oracle", 0), []byte(cfg.Seed), cfg.OracleBacklog)
	s.gateway = randomness.NewGateway(s.oracle, 1, m)

	gcfg := cfg.Game(s.admin)
	gcfg.Clock = s.clock.Now
	var err error
	s.game, err = game.New(gcfg, game.Collaborators{
		Doctors: s.doctors,
		Potions: s.potions,
		Payout:  s.treasury,
		Gateway: s.gateway,
		Metrics: m,
	})
	if err != nil {
		return nil, fmt.Errorf("create game: %w", err)
	}

	logs, err := store.NewBrewLogs(kv)
	if err != nil {
		return nil, fmt.Errorf("open brew logs: %w", err)
	}
	bcfg := cfg.Brew(s.admin, s.inventory, time.Time{})
	bcfg.Clock = s.clock.Now
	s.brew, err = brew.New(bcfg, brew.Collaborators{
		Statuses: s.game,
		Doctors:  s.doctors,
		Potions:  s.potions,
		Gateway:  s.gateway,
		Logs:     logs,
		Metrics:  m,
	})
	if err != nil {
		return nil, fmt.Errorf("create brew engine: %w", err)
	}

	s.router = randomness.NewRouter(s.gateway)
	s.router.Register(randomness.KindEpoch, s.game)
	s.router.Register(randomness.KindCure, s.game)
	s.router.Register(randomness.KindBrew, s.brew)
	return s, nil
}

func (s *simulation) run(ctx context.Context) (summary, error) {
	if err := s.install(); err != nil {
		return summary{}, err
	}
	if err := s.game.Deposit(s.admin, uint256.NewInt(s.cfg.PrizePool)); err != nil {
		return summary{}, fmt.Errorf("fund prize pool: %w", err)
	}
	if err := s.game.StartGame(ctx); err != nil {
		return summary{}, fmt.Errorf("start game: %w", err)
	}
	if err := s.snapshot(); err != nil {
		return summary{}, err
	}

	var result summary
	for s.game.Phase() != game.PhaseOver {
		cures, err := s.playEpoch(ctx)
		if err != nil {
			return summary{}, err
		}
		result.Cures += cures
		result.Epochs++
	}

	paid, err := s.payout()
	if err != nil {
		return summary{}, err
	}
	result.Survivors = s.game.Survivors()
	result.Dead = s.game.Count(population.Dead)
	result.Prize = s.game.Prize()
	result.Paid = paid

	if err := s.brewSeason(ctx); err != nil {
		return summary{}, err
	}
	stats := s.brew.Stats()
	result.Claims = stats.Claims
	result.BrewAttempt = stats.Attempts
	result.Brewed = stats.Successes
	return result, nil
}

// install bootstraps the population in installments
func (s *simulation) install() error {
	for remaining := s.cfg.Doctors; remaining > 0; {
		n := min(remaining, s.cfg.Installment)
		if err := s.game.InitializePopulation(s.admin, n); err != nil {
			return fmt.Errorf("initialize population: %w", err)
		}
		remaining -= n
	}
	return nil
}

func (s *simulation) playEpoch(ctx context.Context) (int, error) {
	var infected []population.ID
	err := waitUntil(ctx, func() (bool, error) {
		var err error
		infected, err = s.game.StartEpoch()
		if errors.Is(err, game.ErrRandomnessPending) {
			return false, nil
		}
		return err == nil, err
	})
	if err != nil {
		return 0, fmt.Errorf("start epoch: %w", err)
	}

	cures := 0
	for _, d := range infected {
		owner, err := s.doctors.OwnerOf(d)
		if err != nil {
			return 0, err
		}
		if s.potions.BalanceOf(owner) == 0 {
			continue
		}
		potion, err := s.potions.TokenOfOwnerByIndex(owner, 0)
		if err != nil {
			return 0, err
		}
		if _, err := s.game.DrinkPotion(ctx, owner, d, potion); err != nil {
			return 0, fmt.Errorf("drink potion: %w", err)
		}
		cures++
	}
	// every cure settles before the epoch may end
	if err := waitUntil(ctx, func() (bool, error) { return s.gateway.Outstanding() == 0, nil }); err != nil {
		return 0, err
	}
	if err := s.snapshot(); err != nil {
		return 0, err
	}

	s.clock.Advance(s.cfg.EpochDuration)
	if err := s.game.EndEpoch(ctx); err != nil {
		return 0, fmt.Errorf("end epoch: %w", err)
	}
	return cures, s.snapshot()
}

// payout pays every survivor its share
func (s *simulation) payout() (*uint256.Int, error) {
	if err := s.game.AllowWithdrawals(s.admin, true); err != nil {
		return nil, fmt.Errorf("allow withdrawals: %w", err)
	}
	paid := new(uint256.Int)
	for d := population.ID(0); d < s.cfg.Doctors; d++ {
		if st, _ := s.game.Status(d); st != population.Healthy {
			continue
		}
		owner, err := s.doctors.OwnerOf(d)
		if err != nil {
			return nil, err
		}
		prize, err := s.game.Withdraw(owner, d)
		if err != nil {
			return nil, fmt.Errorf("withdraw prize of doctor %d: %w", d, err)
		}
		paid.Add(paid, prize)
	}
	return paid, nil
}

// brewSeason lets the dead claim potions, then brews in batches
func (s *simulation) brewSeason(ctx context.Context) error {
	if err := s.brew.SetClaimStartTime(s.admin, s.clock.Now()); err != nil {
		return fmt.Errorf("schedule claims: %w", err)
	}

	byOwner := make(map[common.Address][]uint32)
	for _, h := range s.holders {
		for _, d := range s.doctors.OwnedBy(h) {
			if st, _ := s.game.Status(d); st == population.Dead {
				byOwner[h] = append(byOwner[h], d)
			}
		}
	}

claims:
	for _, h := range s.holders {
		for _, d := range byOwner[h] {
			_, err := s.brew.ClaimPotion(h, d)
			if errors.Is(err, brew.ErrPotionsNotEnough) {
				break claims
			}
			if err != nil {
				return fmt.Errorf("claim potion: %w", err)
			}
		}
	}
	s.clock.Advance(s.cfg.BrewClaimWindow)

	for i := uint32(0); i < s.cfg.BrewEpochs; i++ {
		epoch, err := s.brew.CurrentEpoch()
		if err != nil {
			return err
		}
		if _, err := s.brew.RequestEpochRandomness(ctx); err != nil {
			return err
		}
		slot := randomness.BrewSlot(epoch)
		if err := waitUntil(ctx, func() (bool, error) { return !s.gateway.Pending(slot), nil }); err != nil {
			return err
		}

	batches:
		for _, h := range s.holders {
			dead := byOwner[h]
			for len(dead) >= brew.BatchSize {
				_, err := s.brew.MakePotions(h, dead[:brew.BatchSize])
				if errors.Is(err, brew.ErrPotionsNotEnough) {
					break batches
				}
				if err != nil {
					return fmt.Errorf("make potions: %w", err)
				}
				dead = dead[brew.BatchSize:]
			}
		}
		s.clock.Advance(s.cfg.BrewEpochDuration)
	}
	return nil
}

func (s *simulation) snapshot() error {
	if err := s.snapshots.Put(s.game.Snapshot()); err != nil {
		return fmt.Errorf("store snapshot: %w", err)
	}
	return nil
}

// waitUntil polls cond until it holds, fails or ctx is done
func waitUntil(ctx context.Context, cond func() (bool, error)) error {
	t := time.NewTicker(time.Millisecond)
	defer t.Stop()
	for {
		ok, err := cond()
		if err != nil || ok {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}
