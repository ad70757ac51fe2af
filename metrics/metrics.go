// Package metrics exports tracker activity to Prometheus.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"tracker-bot/models"
	"tracker-bot/tracker"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics implements tracker.Observer and records cycle outcomes.
type Metrics struct {
	postsIngested   *prometheus.CounterVec
	postsModerated  *prometheus.CounterVec
	digestPublishes *prometheus.CounterVec
	pendingDepth    prometheus.Gauge
	cycleFailures   prometheus.Counter
	cycleDuration   prometheus.Histogram
	lastSuccess     prometheus.Gauge
}

// New registers the tracker metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		postsIngested: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_posts_ingested_total",
			Help: "Posts recorded by the ingest phase",
		}, []string{"author"}),
		postsModerated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_posts_moderated_total",
			Help: "Moderation decisions stored, by resulting status",
		}, []string{"status"}),
		digestPublishes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_digest_publishes_total",
			Help: "Digest posts created, edited or deleted on the source",
		}, []string{"kind"}),
		pendingDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tracker_pending_threads",
			Help: "Threads waiting for a digest update",
		}),
		cycleFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "tracker_cycle_failures_total",
			Help: "Polling cycles that reported an error",
		}),
		cycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "tracker_cycle_duration_seconds",
			Help:    "Duration of polling cycles",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		lastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tracker_last_successful_cycle_timestamp_seconds",
			Help: "Unix time of the last cycle without errors",
		}),
	}
}

func (m *Metrics) PostIngested(author string) {
	m.postsIngested.WithLabelValues(models.Key(author)).Inc()
}

func (m *Metrics) PostModerated(status models.ApprovalStatus) {
	m.postsModerated.WithLabelValues(status.String()).Inc()
}

func (m *Metrics) DigestPublished(kind string) {
	m.digestPublishes.WithLabelValues(kind).Inc()
}

func (m *Metrics) PendingDepth(n int) {
	m.pendingDepth.Set(float64(n))
}

// CycleFinished records the outcome of a polling cycle.
func (m *Metrics) CycleFinished(_ tracker.CycleResult, err error, took time.Duration) {
	m.cycleDuration.Observe(took.Seconds())
	if err != nil {
		m.cycleFailures.Inc()
		return
	}
	m.lastSuccess.SetToCurrentTime()
}

// Server serves /metrics for a registry.
type Server struct {
	http *http.Server
}

// NewServer exposes gatherer on addr under /metrics.
func NewServer(addr string, gatherer prometheus.Gatherer) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return &Server{http: &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}}
}

// Start serves in the background.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] serving on %s", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[metrics] server stopped: %v", err)
		}
	}()
}

// Stop shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("metrics server shutdown: %w", err)
	}
	return nil
}
