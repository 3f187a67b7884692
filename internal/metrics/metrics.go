package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "plague"

// Metrics holds the collectors of one game instance. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	EpochsStarted        prometheus.Counter
	EpochsEnded          prometheus.Counter
	Infections           prometheus.Counter
	Deaths               prometheus.Counter
	Healthy              prometheus.Gauge
	Cures                *prometheus.CounterVec
	RandomnessRequests   *prometheus.CounterVec
	RandomnessDeliveries *prometheus.CounterVec
	RandomnessRejected   *prometheus.CounterVec
	Brews                *prometheus.CounterVec
	PotionsClaimed       prometheus.Counter
	Deposits             prometheus.Counter
	Withdrawals          prometheus.Counter
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EpochsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "game", Name: "epochs_started_total",
			Help: "Epochs whose infection pass ran.",
		}),
		EpochsEnded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "game", Name: "epochs_ended_total",
			Help: "Epochs that were finalized.",
		}),
		Infections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "game", Name: "infections_total",
			Help: "Doctors infected by epoch draws.",
		}),
		Deaths: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "game", Name: "deaths_total",
			Help: "Infected doctors that died at epoch end.",
		}),
		Healthy: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "game", Name: "healthy",
			Help: "Doctors currently healthy.",
		}),
		Cures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "game", Name: "cures_total",
			Help: "Cure attempts by outcome.",
		}, []string{"outcome"}),
		RandomnessRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "randomness", Name: "requests_total",
			Help: "Randomness requests issued by slot kind.",
		}, []string{"kind"}),
		RandomnessDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "randomness", Name: "deliveries_total",
			Help: "Accepted randomness deliveries by slot kind.",
		}, []string{"kind"}),
		RandomnessRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "randomness", Name: "rejected_total",
			Help: "Rejected randomness deliveries by reason.",
		}, []string{"reason"}),
		Brews: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "brew", Name: "attempts_total",
			Help: "Brew attempts by outcome.",
		}, []string{"outcome"}),
		PotionsClaimed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "brew", Name: "claims_total",
			Help: "Potions claimed by dead doctors.",
		}),
		Deposits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "prize", Name: "deposits_total",
			Help: "Deposits into the prize pool.",
		}),
		Withdrawals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "prize", Name: "withdrawals_total",
			Help: "Prize withdrawals paid out.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.EpochsStarted, m.EpochsEnded, m.Infections, m.Deaths, m.Healthy,
			m.Cures, m.RandomnessRequests, m.RandomnessDeliveries, m.RandomnessRejected,
			m.Brews, m.PotionsClaimed, m.Deposits, m.Withdrawals,
		)
	}
	return m
}

func (m *Metrics) EpochStarted(infected int, healthy int) {
	if m == nil {
		return
	}
	m.EpochsStarted.Inc()
	m.Infections.Add(float64(infected))
	m.Healthy.Set(float64(healthy))
}

func (m *Metrics) EpochEnded(deaths uint32, healthy int) {
	if m == nil {
		return
	}
	m.EpochsEnded.Inc()
	m.Deaths.Add(float64(deaths))
	m.Healthy.Set(float64(healthy))
}

func (m *Metrics) Cure(outcome string, healthy int) {
	if m == nil {
		return
	}
	m.Cures.WithLabelValues(outcome).Inc()
	m.Healthy.Set(float64(healthy))
}

func (m *Metrics) Requested(kind string) {
	if m == nil {
		return
	}
	m.RandomnessRequests.WithLabelValues(kind).Inc()
}

func (m *Metrics) Delivered(kind string) {
	if m == nil {
		return
	}
	m.RandomnessDeliveries.WithLabelValues(kind).Inc()
}

func (m *Metrics) Rejected(reason string) {
	if m == nil {
		return
	}
	m.RandomnessRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) Brewed(succeeded bool) {
	if m == nil {
		return
	}
	if succeeded {
		m.Brews.WithLabelValues("success").Inc()
		return
	}
	m.Brews.WithLabelValues("failure").Inc()
}

func (m *Metrics) Claimed() {
	if m == nil {
		return
	}
	m.PotionsClaimed.Inc()
}

func (m *Metrics) Deposited() {
	if m == nil {
		return
	}
	m.Deposits.Inc()
}

func (m *Metrics) Withdrew() {
	if m == nil {
		return
	}
	m.Withdrawals.Inc()
}
