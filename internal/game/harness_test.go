package game

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/plague/internal/metrics"
	"github.com/eigerco/plague/internal/oracle"
	"github.com/eigerco/plague/internal/randomness"
	"github.com/eigerco/plague/internal/registry"
)

var (
	admin    = common.HexToAddress("0x00000000000000000000000000000000000000ad")
	alice    = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob      = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	oracleID = common.HexToAddress("0x0000000000000000000000000000000000000f00")
	genesis  = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
)

type harness struct {
	t        *testing.T
	ctx      context.Context
	now      time.Time
	game     *Game
	oracle   *oracle.Local
	gateway  *randomness.Gateway
	router   *randomness.Router
	doctors  *registry.Doctors
	potions  *registry.Potions
	treasury *registry.Treasury
	registry *prometheus.Registry
	metrics  *metrics.Metrics
}

type option func(*Config, *Collaborators)

func withCollaborators(f func(*Collaborators)) option {
	return func(_ *Config, c *Collaborators) { f(c) }
}

// newHarness builds a game over doctors all owned by alice, who also holds
// 50 potions, and installs the whole population
func newHarness(t *testing.T, total uint32, cfg Config, opts ...option) *harness {
	t.Helper()

	h := &harness{
		t:        t,
		ctx:      context.Background(),
		now:      genesis,
		oracle:   oracle.NewLocal(oracleID, []byte(t.Name()), 64),
		doctors:  registry.NewDoctorsRoundRobin(total, []common.Address{alice}),
		potions:  registry.NewPotions(),
		treasury: registry.NewTreasury(),
		registry: prometheus.NewRegistry(),
	}
	h.metrics = metrics.New(h.registry)
	h.potions.Mint(alice, 50)
	h.gateway = randomness.NewGateway(h.oracle, 1, h.metrics)

	cfg.Admin = admin
	if cfg.EpochDuration == 0 {
		cfg.EpochDuration = time.Hour
	}
	if len(cfg.InfectionRates) == 0 {
		cfg.InfectionRates = []uint16{2000}
	}
	cfg.Clock = func() time.Time { return h.now }

	c := Collaborators{
		Doctors: h.doctors,
		Potions: h.potions,
		Payout:  h.treasury,
		Gateway: h.gateway,
		Metrics: h.metrics,
	}
	for _, o := range opts {
		o(&cfg, &c)
	}

	g, err := New(cfg, c)
	require.NoError(t, err)
	require.NoError(t, g.InitializePopulation(admin, total))
	h.game = g

	h.router = randomness.NewRouter(h.gateway)
	h.router.Register(randomness.KindEpoch, g)
	h.router.Register(randomness.KindCure, g)
	return h
}

func (h *harness) advance(d time.Duration) {
	h.now = h.now.Add(d)
}

// deliver answers every queued oracle request
func (h *harness) deliver() {
	h.oracle.DeliverPending(h.ctx, h.router.Deliver)
}

// runEpoch delivers randomness and runs the infection pass
func (h *harness) runEpoch() []uint32 {
	h.t.Helper()
	h.deliver()
	infected, err := h.game.StartEpoch()
	require.NoError(h.t, err)
	return infected
}

func (h *harness) endEpoch() {
	h.t.Helper()
	h.advance(h.game.cfg.EpochDuration)
	require.NoError(h.t, h.game.EndEpoch(h.ctx))
}

// potion returns a potion still owned by alice
func (h *harness) potion() uint64 {
	h.t.Helper()
	id, err := h.potions.TokenOfOwnerByIndex(alice, 0)
	require.NoError(h.t, err)
	return id
}

// wordFor searches a word whose cure roll satisfies accept
func wordFor(t *testing.T, accept func(roll uint64) bool) []uint256.Int {
	t.Helper()
	for i := uint64(1); i < 10_000; i++ {
		w := uint256.NewInt(i)
		roll, err := randomness.Roll(w, 65535)
		require.NoError(t, err)
		if accept(roll) {
			return []uint256.Int{*w}
		}
	}
	t.Fatal("no word found")
	return nil
}

type mockPayout struct {
	mock.Mock
}

func (m *mockPayout) Transfer(to common.Address, amount *uint256.Int) error {
	args := m.Called(to, amount)
	return args.Error(0)
}

type mockBurner struct {
	mock.Mock
}

func (m *mockBurner) OwnerOf(id uint64) (common.Address, error) {
	args := m.Called(id)
	return args.Get(0).(common.Address), args.Error(1)
}

func (m *mockBurner) Burn(id uint64) error {
	args := m.Called(id)
	return args.Error(0)
}
