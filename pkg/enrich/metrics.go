package enrich

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	gobreaker "github.com/sony/gobreaker/v2"
)

// Metrics holds the remote lookup collectors.
type Metrics struct {
	Lookups      *prometheus.CounterVec
	BreakerState prometheus.Gauge
	Persisted    prometheus.Counter
}

// NewMetrics registers the collectors with reg. A nil reg yields
// unregistered collectors, which is convenient in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Lookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mediashelf_remote_lookups_total",
				Help: "Remote catalog lookups by outcome",
			},
			[]string{"outcome"},
		),
		BreakerState: f.NewGauge(prometheus.GaugeOpts{
			Name: "mediashelf_remote_breaker_state",
			Help: "Remote catalog circuit breaker state (0=closed, 1=half-open, 2=open)",
		}),
		Persisted: f.NewCounter(prometheus.CounterOpts{
			Name: "mediashelf_remote_records_persisted_total",
			Help: "Remote records folded back into the catalog",
		}),
	}
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
