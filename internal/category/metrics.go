package category

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts store activity. A nil *Metrics is valid and records nothing.
type Metrics struct {
	CacheHits  prometheus.Counter
	Fetches    *prometheus.CounterVec
	Failures   *prometheus.CounterVec
	Discarded  prometheus.Counter
	Coalesced  prometheus.Counter
	LazyLoads  prometheus.Counter
	collectors []prometheus.Collector
}

// NewMetrics creates the store counters and registers them with reg when it
// is not nil.
func NewMetrics(namespace string, reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "category_store",
			Name:      "cache_hits_total",
			Help:      "Loads answered from the cached scope without a fetch",
		}),
		Fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "category_store",
			Name:      "fetches_total",
			Help:      "Backend fetches issued, by category kind",
		}, []string{"kind"}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "category_store",
			Name:      "fetch_failures_total",
			Help:      "Backend fetches that returned an error, by category kind",
		}, []string{"kind"}),
		Discarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "category_store",
			Name:      "stale_results_total",
			Help:      "Fetch results dropped because a newer load superseded them",
		}),
		Coalesced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "category_store",
			Name:      "coalesced_loads_total",
			Help:      "Loads that attached to an in-flight fetch",
		}),
		LazyLoads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "category_store",
			Name:      "lazy_loads_total",
			Help:      "Background loads started by a name lookup on an empty store",
		}),
	}
	m.collectors = []prometheus.Collector{m.CacheHits, m.Fetches, m.Failures, m.Discarded, m.Coalesced, m.LazyLoads}

	if reg != nil {
		for _, c := range m.collectors {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) cacheHit() {
	if m != nil {
		m.CacheHits.Inc()
	}
}

func (m *Metrics) fetch(kind Kind) {
	if m != nil {
		m.Fetches.WithLabelValues(kind.String()).Inc()
	}
}

func (m *Metrics) failure(kind Kind) {
	if m != nil {
		m.Failures.WithLabelValues(kind.String()).Inc()
	}
}

func (m *Metrics) discarded() {
	if m != nil {
		m.Discarded.Inc()
	}
}

func (m *Metrics) coalesced() {
	if m != nil {
		m.Coalesced.Inc()
	}
}

func (m *Metrics) lazyLoad() {
	if m != nil {
		m.LazyLoads.Inc()
	}
}
