// Package metrics is a domain-stack addition: Prometheus counters/gauges
// for session and relay activity, exposed only when the operator opts in
// with --metrics-addr. No Non-goal in the specification excludes it.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Sink is what Server and Session record into. Noop satisfies it without
// touching a registry, so tests never need a live Prometheus instance.
type Sink interface {
	SessionStarted()
	SessionEnded(version, result string)
	BytesRelayed(direction string, n int)
}

// Prometheus registers the proxy's counters/gauges against reg and returns a
// Sink backed by them.
type Prometheus struct {
	active prometheus.Gauge
	total  *prometheus.CounterVec
	bytes  *prometheus.CounterVec
}

func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	factory := promauto.With(reg)
	return &Prometheus{
		active: factory.NewGauge(prometheus.GaugeOpts{
			Name: "socks_sessions_active",
			Help: "Number of SOCKS sessions currently in the relay or negotiation phase.",
		}),
		total: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "socks_sessions_total",
			Help: "Total SOCKS sessions, labeled by protocol version and terminal result.",
		}, []string{"version", "result"}),
		bytes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "socks_bytes_total",
			Help: "Total bytes relayed, labeled by direction (upstream/downstream).",
		}, []string{"direction"}),
	}
}

func (p *Prometheus) SessionStarted() {
	p.active.Inc()
}

func (p *Prometheus) SessionEnded(version, result string) {
	p.active.Dec()
	p.total.WithLabelValues(version, result).Inc()
}

func (p *Prometheus) BytesRelayed(direction string, n int) {
	p.bytes.WithLabelValues(direction).Add(float64(n))
}

// Noop discards every observation.
type Noop struct{}

func (Noop) SessionStarted()             {}
func (Noop) SessionEnded(string, string) {}
func (Noop) BytesRelayed(string, int)    {}
