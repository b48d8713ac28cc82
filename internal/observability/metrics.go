package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the provisioning service.
type Metrics struct {
	registry *prometheus.Registry

	DialinRequests *prometheus.CounterVec
	ProvisionTime  prometheus.Histogram
	ActiveAgents   prometheus.Gauge
	AgentExits     *prometheus.CounterVec
}

// NewMetrics registers instruments on a fresh registry so that tests can build
// more than one instance per process.
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		DialinRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dialin_requests_total",
			Help:      "Dial-in webhook requests by outcome.",
		}, []string{"outcome"}),
		ProvisionTime: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dialin_provision_seconds",
			Help:      "Time from webhook receipt to agent launch.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8},
		}),
		ActiveAgents: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "agents_active",
			Help:      "Number of running call agent processes.",
		}),
		AgentExits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_exits_total",
			Help:      "Call agent process exits by result.",
		}, []string{"result"}),
	}
}

func (m *Metrics) ObserveProvision(d time.Duration) {
	m.ProvisionTime.Observe(d.Seconds())
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
