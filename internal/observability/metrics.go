// Package observability — metrics.go
//
// Prometheus metrics for the SAIREN-OS rig agent.
//
// Endpoint: GET /metrics on 127.0.0.1:9091 (configurable).
// Format: Prometheus text exposition format (OpenMetrics compatible).
// Bind: loopback only — no external exposure.
//
// Metric naming convention: sairen_<subsystem>_<name>_<unit>
//
// All metrics are registered on a dedicated prometheus.Registry (not the
// default global registry) to avoid collisions with other instrumented
// libraries in the same process.
package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metric descriptors for the rig agent.
type Metrics struct {
	registry *prometheus.Registry

	// ─── Pipeline ─────────────────────────────────────────────────────────────

	// PipelineCycleSeconds records the wall-clock duration of one
	// coordinator.Process call.
	PipelineCycleSeconds prometheus.Histogram

	// PacketsProcessedTotal counts packets the pipeline has processed.
	PacketsProcessedTotal prometheus.Counter

	// ─── CfC / anomaly detector ───────────────────────────────────────────────

	// AnomalyScoreHistogram records the distribution of dual-network
	// anomaly scores.
	AnomalyScoreHistogram prometheus.Histogram

	// TrainLossGauge is the most recent feature-weighted MSE training loss.
	TrainLossGauge prometheus.Gauge

	// ─── Tickets / advisories ─────────────────────────────────────────────────

	// TicketsTotal counts AdvisoryTickets raised by the tactical agent, by
	// category.
	TicketsTotal *prometheus.CounterVec

	// AdvisoriesTotal counts StrategicAdvisory values emitted, by severity.
	AdvisoriesTotal *prometheus.CounterVec

	// VerificationsTotal counts strategic verification outcomes, by status.
	VerificationsTotal *prometheus.CounterVec

	// ─── Baseline / checkpoint ────────────────────────────────────────────────

	// BaselineLockedGauge is the current number of locked baselines.
	BaselineLockedGauge prometheus.Gauge

	// CheckpointWriteLatency records checkpoint-write (single bbolt
	// transaction) latency.
	CheckpointWriteLatency prometheus.Histogram

	// ─── Federation ───────────────────────────────────────────────────────────

	// FederationUploadsTotal counts checkpoint uploads, by accepted status.
	FederationUploadsTotal *prometheus.CounterVec

	// FederationPullsTotal counts federated model pulls, by found status.
	FederationPullsTotal *prometheus.CounterVec

	// ─── Agent ────────────────────────────────────────────────────────────────

	// AgentUptimeSeconds is the number of seconds since agent start.
	AgentUptimeSeconds prometheus.Gauge

	startTime time.Time
}

// NewMetrics creates and registers all SAIREN-OS Prometheus metrics.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		PipelineCycleSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sairen",
			Subsystem: "pipeline",
			Name:      "cycle_seconds",
			Help:      "Wall-clock duration of one packet's full coordinator cycle.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}),

		PacketsProcessedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sairen",
			Subsystem: "pipeline",
			Name:      "packets_processed_total",
			Help:      "Total WITS packets processed by the coordinator.",
		}),

		AnomalyScoreHistogram: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sairen",
			Subsystem: "cfc",
			Name:      "anomaly_score",
			Help:      "Distribution of dual-network anomaly scores in [0,1].",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 0.95, 0.99},
		}),

		TrainLossGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sairen",
			Subsystem: "cfc",
			Name:      "train_loss",
			Help:      "Most recent feature-weighted MSE training loss.",
		}),

		TicketsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sairen",
			Subsystem: "tactical",
			Name:      "tickets_total",
			Help:      "Total AdvisoryTickets raised, by category.",
		}, []string{"category"}),

		AdvisoriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sairen",
			Subsystem: "advisory",
			Name:      "emitted_total",
			Help:      "Total StrategicAdvisory values emitted, by severity.",
		}, []string{"severity"}),

		VerificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sairen",
			Subsystem: "strategic",
			Name:      "verifications_total",
			Help:      "Total strategic verification outcomes, by status.",
		}, []string{"status"}),

		BaselineLockedGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sairen",
			Subsystem: "baseline",
			Name:      "locked_count",
			Help:      "Current number of locked (equipment, metric) baselines.",
		}),

		CheckpointWriteLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sairen",
			Subsystem: "checkpoint",
			Name:      "write_latency_seconds",
			Help:      "Checkpoint write (single bbolt transaction) latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}),

		FederationUploadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sairen",
			Subsystem: "federation",
			Name:      "uploads_total",
			Help:      "Total checkpoint uploads to the federation hub, by acceptance.",
		}, []string{"accepted"}),

		FederationPullsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sairen",
			Subsystem: "federation",
			Name:      "pulls_total",
			Help:      "Total federated model pulls, by whether a newer round was found.",
		}, []string{"found"}),

		AgentUptimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sairen",
			Subsystem: "agent",
			Name:      "uptime_seconds",
			Help:      "Number of seconds since the agent started.",
		}),
	}

	reg.MustRegister(
		m.PipelineCycleSeconds,
		m.PacketsProcessedTotal,
		m.AnomalyScoreHistogram,
		m.TrainLossGauge,
		m.TicketsTotal,
		m.AdvisoriesTotal,
		m.VerificationsTotal,
		m.BaselineLockedGauge,
		m.CheckpointWriteLatency,
		m.FederationUploadsTotal,
		m.FederationPullsTotal,
		m.AgentUptimeSeconds,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	return m
}

// ObserveCycle records one coordinator cycle's duration and increments
// the packets-processed counter. Satisfies pipeline.Metrics.
func (m *Metrics) ObserveCycle(d time.Duration) {
	m.PipelineCycleSeconds.Observe(d.Seconds())
	m.PacketsProcessedTotal.Inc()
}

// ObserveAnomalyScore records one packet's dual-network anomaly score.
// Satisfies pipeline.Metrics.
func (m *Metrics) ObserveAnomalyScore(score float64) {
	m.AnomalyScoreHistogram.Observe(score)
}

// IncTickets increments the ticket counter for category. Satisfies
// pipeline.Metrics.
func (m *Metrics) IncTickets(category string) {
	m.TicketsTotal.WithLabelValues(category).Inc()
}

// IncAdvisories increments the advisory counter for severity. Satisfies
// pipeline.Metrics.
func (m *Metrics) IncAdvisories(severity string) {
	m.AdvisoriesTotal.WithLabelValues(severity).Inc()
}

// ServeMetrics starts the Prometheus HTTP metrics server on the given address.
// Blocks until ctx is cancelled or the server fails.
func (m *Metrics) ServeMetrics(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go m.updateUptime(ctx)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("metrics server on %s: %w", addr, err)
	}
	return nil
}

// updateUptime periodically updates the AgentUptimeSeconds gauge.
func (m *Metrics) updateUptime(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.AgentUptimeSeconds.Set(time.Since(m.startTime).Seconds())
		case <-ctx.Done():
			return
		}
	}
}
