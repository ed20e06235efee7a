// Package promadapters implements allocation.MetricsCollector on the Prometheus client library,
// for scraping through promhttp.
package promadapters

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/AntonStoeckl/resource-allocations-go/allocation"
)

// DurationBuckets spans 0.5ms to about 4s.
var DurationBuckets = prometheus.ExponentialBuckets(0.0005, 2, 14)

// MetricsCollector creates one vector per metric name on first use. The label names of a metric are
// fixed by its first measurement; later measurements with different label names are dropped.
type MetricsCollector struct {
	registerer prometheus.Registerer

	mu         sync.Mutex
	histograms map[string]*prometheus.HistogramVec
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
}

// NewMetricsCollector registers vectors with registerer, e.g., prometheus.DefaultRegisterer.
func NewMetricsCollector(registerer prometheus.Registerer) *MetricsCollector {
	return &MetricsCollector{
		registerer: registerer,
		histograms: make(map[string]*prometheus.HistogramVec),
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
	}
}

func (m *MetricsCollector) RecordDuration(name string, duration time.Duration, labels map[string]string) {
	vec := m.histogram(name, labelNames(labels))
	if vec == nil {
		return
	}

	if observer, err := vec.GetMetricWith(labels); err == nil {
		observer.Observe(duration.Seconds())
	}
}

func (m *MetricsCollector) IncrementCounter(name string, labels map[string]string) {
	vec := m.counter(name, labelNames(labels))
	if vec == nil {
		return
	}

	if counter, err := vec.GetMetricWith(labels); err == nil {
		counter.Inc()
	}
}

func (m *MetricsCollector) RecordValue(name string, value float64, labels map[string]string) {
	vec := m.gauge(name, labelNames(labels))
	if vec == nil {
		return
	}

	if gauge, err := vec.GetMetricWith(labels); err == nil {
		gauge.Set(value)
	}
}

func (m *MetricsCollector) histogram(name string, labels []string) *prometheus.HistogramVec {
	m.mu.Lock()
	defer m.mu.Unlock()

	if vec, ok := m.histograms[name]; ok {
		return vec
	}

	vec, ok := register(m.registerer, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    name,
		Help:    allocation.MetricHelp(name),
		Buckets: DurationBuckets,
	}, labels))
	if !ok {
		return nil
	}

	m.histograms[name] = vec

	return vec
}

func (m *MetricsCollector) counter(name string, labels []string) *prometheus.CounterVec {
	m.mu.Lock()
	defer m.mu.Unlock()

	if vec, ok := m.counters[name]; ok {
		return vec
	}

	vec, ok := register(m.registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: name,
		Help: allocation.MetricHelp(name),
	}, labels))
	if !ok {
		return nil
	}

	m.counters[name] = vec

	return vec
}

func (m *MetricsCollector) gauge(name string, labels []string) *prometheus.GaugeVec {
	m.mu.Lock()
	defer m.mu.Unlock()

	if vec, ok := m.gauges[name]; ok {
		return vec
	}

	vec, ok := register(m.registerer, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: name,
		Help: allocation.MetricHelp(name),
	}, labels))
	if !ok {
		return nil
	}

	m.gauges[name] = vec

	return vec
}

// register returns the already registered collector if an equal one exists, e.g., from a second
// MetricsCollector on the same registry.
func register[C prometheus.Collector](registerer prometheus.Registerer, collector C) (C, bool) {
	err := registerer.Register(collector)
	if err == nil {
		return collector, true
	}

	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		existing, ok := already.ExistingCollector.(C)
		return existing, ok
	}

	var zero C

	return zero, false
}

func labelNames(labels map[string]string) []string {
	names := make([]string, 0, len(labels))
	for name := range labels {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

var _ allocation.MetricsCollector = (*MetricsCollector)(nil)
