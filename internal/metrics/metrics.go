// Package metrics holds the Prometheus collectors of the funnel server.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jpalmerr/funnel/params"
)

const namespace = "funnel"

// Metrics is the set of funnel collectors registered on one registry.
type Metrics struct {
	gatherer prometheus.Gatherer

	PageViews         *prometheus.CounterVec
	CheckoutRedirects *prometheus.CounterVec
	StepDecisions     *prometheus.CounterVec
	ParamsCaptured    *prometheus.CounterVec
	StoreFailures     *prometheus.CounterVec
}

// New registers the funnel collectors on reg. A nil reg creates a private
// registry, which keeps tests and multiple instances from colliding.
// sessions, if non-nil, is exported as the active session gauge.
func New(reg *prometheus.Registry, sessions func() int) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	m := &Metrics{
		gatherer: reg,
		PageViews: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "page_views_total",
			Help:      "Total number of funnel page views",
		}, []string{"page"}),
		CheckoutRedirects: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_redirects_total",
			Help:      "Total number of redirects to a checkout address",
		}, []string{"offer"}),
		StepDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "step_decisions_total",
			Help:      "Upsell and downsell accept/decline decisions",
		}, []string{"step", "choice"}),
		ParamsCaptured: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "params_captured_total",
			Help:      "Attribution parameters read from visitor addresses",
		}, []string{"source"}),
		StoreFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "param_store_failures_total",
			Help:      "Session parameter store operations that failed",
		}, []string{"op"}),
	}

	if sessions != nil {
		factory.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of sessions currently held in memory",
		}, func() float64 { return float64(sessions()) })
	}

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// InstrumentStore wraps st so failed calls are counted. Missing keys
// reported as [params.ErrNotFound] are not failures.
func (m *Metrics) InstrumentStore(st params.Store) params.Store {
	return &instrumentedStore{next: st, failures: m.StoreFailures}
}

type instrumentedStore struct {
	next     params.Store
	failures *prometheus.CounterVec
}

func (s *instrumentedStore) Get(key string) (string, error) {
	v, err := s.next.Get(key)
	if err != nil && !errors.Is(err, params.ErrNotFound) {
		s.failures.WithLabelValues("get").Inc()
	}
	return v, err
}

func (s *instrumentedStore) Set(key, value string) error {
	err := s.next.Set(key, value)
	if err != nil {
		s.failures.WithLabelValues("set").Inc()
	}
	return err
}
