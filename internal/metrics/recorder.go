package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const namespace = "metobs"

var breakerStates = []string{"closed", "half-open", "open"}

// Recorder is the Prometheus implementation of the resolver and provider
// client recorders. It owns a private registry so tests can build as many
// as they like.
type Recorder struct {
	registry *prometheus.Registry

	probes          *prometheus.CounterVec
	resolutions     *prometheus.CounterVec
	attempts        *prometheus.HistogramVec
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	breakerState    *prometheus.GaugeVec
}

func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()

	// Register Go standard metrics and process/OS metrics.
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Recorder{
		registry: registry,
		probes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "station_probes_total",
			Help:      "Stations probed for observations, by parameter and whether data was found.",
		}, []string{"parameter", "found"}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Nearest-station resolutions, by parameter and outcome.",
		}, []string{"parameter", "found"}),
		attempts: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resolution_attempts",
			Help:      "Stations probed per resolution.",
			Buckets:   []float64{1, 2, 3, 5, 10, 20, 50},
		}, []string{"found"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Requests to the observations API, by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Latency of requests to the observations API.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "1 for the current state of each upstream circuit breaker, 0 otherwise.",
		}, []string{"breaker", "state"}),
	}

	registry.MustRegister(r.probes)
	registry.MustRegister(r.resolutions)
	registry.MustRegister(r.attempts)
	registry.MustRegister(r.requests)
	registry.MustRegister(r.requestDuration)
	registry.MustRegister(r.breakerState)

	return r
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

func (r *Recorder) RecordProbe(parameterKey string, found bool) {
	r.probes.WithLabelValues(parameterKey, strconv.FormatBool(found)).Inc()
}

func (r *Recorder) RecordResolution(parameterKey string, found bool, attempts int) {
	r.resolutions.WithLabelValues(parameterKey, strconv.FormatBool(found)).Inc()
	r.attempts.WithLabelValues(strconv.FormatBool(found)).Observe(float64(attempts))
}

func (r *Recorder) RecordRequest(endpoint, outcome string, elapsed time.Duration) {
	r.requests.WithLabelValues(endpoint, outcome).Inc()
	r.requestDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// RecordBreakerState marks state as the current one for breaker.
func (r *Recorder) RecordBreakerState(breaker, state string) {
	for _, s := range breakerStates {
		value := 0.0
		if s == state {
			value = 1
		}
		r.breakerState.WithLabelValues(breaker, s).Set(value)
	}
	log.Debug().Str("breaker", breaker).Str("state", state).Msg("Metrics: breaker state recorded")
}
