package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "formyfuture"

// Metrics holds the server's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	RPCRequests *prometheus.CounterVec
	RPCDuration *prometheus.HistogramVec

	ProposalsCreated  prometheus.Counter
	ProposalsPaused   prometheus.Counter
	Contributions     prometheus.Counter
	ContributedAmount prometheus.Counter
	Settlements       *prometheus.CounterVec
	SettledAmount     prometheus.Counter
}

// NewMetrics creates the collectors and registers them on a fresh registry
// together with the Go and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		RPCRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_requests_total",
			Help:      "RPC calls by procedure and result code.",
		}, []string{"procedure", "code"}),
		RPCDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_duration_seconds",
			Help:      "RPC latency by procedure.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"procedure"}),
		ProposalsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proposals_created_total",
			Help:      "Proposals opened.",
		}),
		ProposalsPaused: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proposals_paused_total",
			Help:      "Proposals paused by an administrator.",
		}),
		Contributions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contributions_total",
			Help:      "Contributions recorded.",
		}),
		ContributedAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contributed_amount_total",
			Help:      "Value contributed, in the smallest currency unit.",
		}),
		Settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlements_total",
			Help:      "Reclaim attempts by outcome.",
		}, []string{"outcome"}),
		SettledAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settled_amount_total",
			Help:      "Value paid out to proposal owners.",
		}),
	}

	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		m.RPCRequests,
		m.RPCDuration,
		m.ProposalsCreated,
		m.ProposalsPaused,
		m.Contributions,
		m.ContributedAmount,
		m.Settlements,
		m.SettledAmount,
	)
	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRPC records one finished call.
func (m *Metrics) ObserveRPC(procedure, code string, seconds float64) {
	m.RPCRequests.WithLabelValues(procedure, code).Inc()
	m.RPCDuration.WithLabelValues(procedure).Observe(seconds)
}

// ObserveProposalCreated records a new proposal.
func (m *Metrics) ObserveProposalCreated() {
	m.ProposalsCreated.Inc()
}

// ObserveProposalPaused records an administrative pause.
func (m *Metrics) ObserveProposalPaused() {
	m.ProposalsPaused.Inc()
}

// ObserveContribution records an accepted contribution.
func (m *Metrics) ObserveContribution(amount uint64) {
	m.Contributions.Inc()
	m.ContributedAmount.Add(float64(amount))
}

// ObserveSettlement records a reclaim attempt. outcome is "settled" or the
// error code that stopped it.
func (m *Metrics) ObserveSettlement(outcome string, amount uint64) {
	m.Settlements.WithLabelValues(outcome).Inc()
	if outcome == OutcomeSettled {
		m.SettledAmount.Add(float64(amount))
	}
}

// OutcomeSettled labels a successful reclaim.
const OutcomeSettled = "settled"
