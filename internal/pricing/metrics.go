package pricing

import "github.com/prometheus/client_golang/prometheus"

// Metrics captures pricing health signals. A nil *Metrics is a no-op so
// tests and tools can skip registration.
type Metrics struct {
	quotes            *prometheus.CounterVec
	baselineFallbacks prometheus.Counter
	reverts           prometheus.Counter
	overridesCleared  prometheus.Counter
	storeErrors       *prometheus.CounterVec
}

// NewMetrics registers the pricing collectors on registerer
// (prometheus.DefaultRegisterer when nil).
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		quotes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pricing_quotes_total",
			Help: "Display price quotes served, by source (rule or override).",
		}, []string{"source"}),
		baselineFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pricing_baseline_fallbacks_total",
			Help: "Quotes that used the default nightly rate because no reference rate was found.",
		}),
		reverts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pricing_reverts_total",
			Help: "Weekly override reverts performed by this process.",
		}),
		overridesCleared: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pricing_overrides_cleared_total",
			Help: "Overrides removed by weekly reverts.",
		}),
		storeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pricing_store_errors_total",
			Help: "Override/boundary store failures by operation.",
		}, []string{"op"}),
	}
	registerer.MustRegister(m.quotes, m.baselineFallbacks, m.reverts, m.overridesCleared, m.storeErrors)
	return m
}

func (m *Metrics) IncQuote(source QuoteSource) {
	if m == nil {
		return
	}
	m.quotes.WithLabelValues(string(source)).Inc()
}

func (m *Metrics) IncBaselineFallback() {
	if m == nil {
		return
	}
	m.baselineFallbacks.Inc()
}

func (m *Metrics) ObserveRevert(cleared int) {
	if m == nil {
		return
	}
	m.reverts.Inc()
	if cleared > 0 {
		m.overridesCleared.Add(float64(cleared))
	}
}

func (m *Metrics) IncStoreError(op string) {
	if m == nil {
		return
	}
	m.storeErrors.WithLabelValues(op).Inc()
}
