// Package pipeline wires every stage (tactical, strategic, specialists +
// orchestrator, advisory composer) into the single per-packet coordinator:
// ingest, tactical, history-ring update, periodic-summary synthesis,
// strategic verification, voting, composition, and emission, grounded on
// the original implementation's phased processing loop and the teacher's
// backpressure-aware coordinator idiom (single cooperative loop, no
// pipeline overlap across packets).
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ashton-dyke/sairen-os/internal/advisory"
	"github.com/ashton-dyke/sairen-os/internal/agents"
	"github.com/ashton-dyke/sairen-os/internal/baseline"
	"github.com/ashton-dyke/sairen-os/internal/cfc"
	"github.com/ashton-dyke/sairen-os/internal/cluster"
	"github.com/ashton-dyke/sairen-os/internal/formation"
	"github.com/ashton-dyke/sairen-os/internal/orchestrator"
	"github.com/ashton-dyke/sairen-os/internal/physics"
	"github.com/ashton-dyke/sairen-os/internal/ticket"
	"github.com/ashton-dyke/sairen-os/internal/wits"
)

const (
	historyCapacity = 60
	summaryInterval = 10 * time.Minute
	cycleTarget     = 100 * time.Millisecond
)

// HistoryEntry is one ring-buffer slot: the packet, its derived metrics,
// and its MSE contribution to the rolling window.
type HistoryEntry struct {
	Packet          wits.Packet
	Report          physics.EnhancedPhysicsReport
	MSEContribution float64
}

// Metrics is the subset of observability recording the coordinator needs.
// Implemented by internal/observability.Metrics; a nil Metrics is safe to
// use (every method is a no-op).
type Metrics interface {
	ObserveCycle(d time.Duration)
	ObserveAnomalyScore(score float64)
	IncTickets(category string)
	IncAdvisories(severity string)
}

type noopMetrics struct{}

func (noopMetrics) ObserveCycle(time.Duration)   {}
func (noopMetrics) ObserveAnomalyScore(float64)  {}
func (noopMetrics) IncTickets(string)            {}
func (noopMetrics) IncAdvisories(string)         {}

// Sink receives every StrategicAdvisory the coordinator emits.
type Sink interface {
	Emit(ctx context.Context, adv ticket.StrategicAdvisory) error
}

// Coordinator runs the full per-packet phase sequence. It is not safe for
// concurrent use: packets must be fed to Process in order, one at a time,
// matching the "no pipeline overlap" ordering guarantee.
type Coordinator struct {
	dual       *cfc.Dual
	clusterer  *cluster.Clusterer
	formation  *formation.Detector
	tactical   *agents.Tactical
	strategic  *agents.Strategic
	orch       *orchestrator.Orchestrator
	composer   *advisory.Composer
	sink       Sink
	metrics    Metrics
	log        *zap.Logger
	featureNames []string

	history       []HistoryEntry
	historyHead   int
	lastSummaryAt time.Time
	haveSummary   bool

	hardness         float64
	fractureGradient float64
	prevDXCAvg       float64
}

// Config bundles the coordinator's dependencies.
type Config struct {
	Seed             uint64
	Baselines        *baseline.Manager
	TriggerThresholds agents.TriggerThresholds
	Sink             Sink
	Metrics          Metrics
	Logger           *zap.Logger
	FeatureNames     []string
	Hardness         float64
	FractureGradient float64
}

// New constructs a Coordinator. Hardness and fracture-gradient are
// site-specific physics inputs; they may be updated later via
// UpdateFormationContext.
func New(cfg Config) *Coordinator {
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{
		dual:             cfc.NewDual(cfg.Seed),
		clusterer:        cluster.New(),
		formation:        formation.New(),
		tactical:         agents.NewTactical(cfg.TriggerThresholds, cfg.Baselines),
		strategic:        agents.NewStrategic(),
		orch:             orchestrator.New(),
		composer:         advisory.New(),
		sink:             cfg.Sink,
		metrics:          metrics,
		log:              log,
		featureNames:     cfg.FeatureNames,
		hardness:         cfg.Hardness,
		fractureGradient: cfg.FractureGradient,
	}
}

// Tactical returns the coordinator's tactical agent, so an operator
// console registry adapter can clear its per-category cooldowns.
func (co *Coordinator) Tactical() *agents.Tactical {
	return co.tactical
}

// Dual returns the coordinator's fast/slow CfC network pair, so a caller
// can periodically snapshot it for checkpoint persistence and federation
// upload.
func (co *Coordinator) Dual() *cfc.Dual {
	return co.dual
}

// UpdateFormationContext swaps in new site-specific physics context
// (formation hardness curve input, fracture gradient). Never applied
// mid-packet.
func (co *Coordinator) UpdateFormationContext(hardness, fractureGradient float64) {
	co.hardness = hardness
	co.fractureGradient = fractureGradient
}

// Process runs the full 8-phase sequence for one packet.
func (co *Coordinator) Process(ctx context.Context, p wits.Packet, dt time.Duration) (*ticket.StrategicAdvisory, error) {
	start := time.Now()
	defer func() { co.metrics.ObserveCycle(time.Since(start)) }()

	// Phase 2: tactical (physics + ticket decision). The CfC anomaly
	// verdict runs alongside it so regime_id is available for voting.
	history := co.historySamples()
	report, adv := co.tactical.Process(p, history, co.hardness, co.fractureGradient, co.prevDXCAvg, dt.Hours(), start)
	co.prevDXCAvg = report.DXC

	dualResult, err := co.dual.Process(ctx, p.Features(), dt.Seconds(), co.featureNames)
	if err != nil {
		return nil, fmt.Errorf("pipeline: dual network process: %w", err)
	}
	co.metrics.ObserveAnomalyScore(dualResult.AnomalyScore)
	regimeID := co.clusterer.Assign(p.Features())
	sigmas := make([]float64, len(dualResult.FeatureSigmas))
	for i, fs := range dualResult.FeatureSigmas {
		sigmas[i] = fs.Sigma
	}
	if event, fired := co.formation.Observe(sigmas, p.Timestamp, p.BitDepth, int64(len(co.history)), adv != nil); fired {
		co.log.Info("pipeline: formation transition detected",
			zap.Float64("bit_depth", event.BitDepth), zap.Ints("surprised_features", event.SurprisedFeatures))
	}

	// Phase 3: history ring update.
	entry := HistoryEntry{Packet: p, Report: report, MSEContribution: report.MSE}
	co.pushHistory(entry)

	// Phase 4: periodic summary synthesis when no ticket fired and the
	// window has elapsed (bypassed by an existing Critical ticket).
	if adv == nil {
		if summary := co.maybeSynthesizeSummary(start); summary != nil {
			adv = summary
		}
	}
	if adv == nil {
		return nil, nil
	}
	if adv.Severity == ticket.Critical {
		co.lastSummaryAt = start
		co.haveSummary = true
	}
	co.metrics.IncTickets(adv.Category.String())

	// Phase 5: strategic verification.
	verification := co.verify(adv, report)
	if verification.Status == ticket.Rejected || verification.Status == ticket.Pending {
		return nil, nil
	}

	// Phase 6: specialists + orchestrator.
	context := map[string]float64{"anomaly_score": dualResult.AnomalyScore, "regime_id": float64(regimeID)}
	voting := co.orch.Vote(adv, verification.PhysicsReport, context,
		recommendationFor(adv.Category), expectedBenefitFor(adv.Category), verification.Reasoning, regimeID)

	// Phase 7: advisory composer.
	result, ok := co.composer.Compose(voting, verification.PhysicsReport, context, adv.TraceLog, start)
	if !ok {
		return nil, nil
	}
	co.metrics.IncAdvisories(result.Severity.String())

	// Phase 8: emit.
	if co.sink != nil {
		if err := co.sink.Emit(ctx, *result); err != nil {
			co.log.Warn("pipeline: sink emit failed", zap.Error(err))
		}
	}

	if elapsed := time.Since(start); elapsed > cycleTarget {
		co.log.Warn("pipeline: cycle exceeded target", zap.Duration("elapsed", elapsed), zap.Duration("target", cycleTarget))
	}

	return result, nil
}

func (co *Coordinator) verify(adv *ticket.Advisory, report physics.EnhancedPhysicsReport) ticket.Verification {
	n := len(co.history)
	window := 5
	if window > n {
		window = n
	}
	flowBal := make([]float64, 0, window)
	pitRate := make([]float64, 0, window)
	ecdMargin := make([]float64, 0, 10)
	sppDelta := make([]float64, 0, 10)

	for i := 0; i < window; i++ {
		e := co.historyAt(n - 1 - i)
		flowBal = append(flowBal, e.Report.FlowBalance)
		pitRate = append(pitRate, e.Report.PitRate)
	}
	for i := 0; i < n && i < 10; i++ {
		e := co.historyAt(n - 1 - i)
		ecdMargin = append(ecdMargin, e.Report.ECDMargin)
	}

	dxcTrend := 0.0
	if n >= 2 {
		oldest := co.historyAt(max(0, n-10))
		newest := co.historyAt(n - 1)
		if oldest.Report.DXC != 0 {
			dxcTrend = (newest.Report.DXC - oldest.Report.DXC) / oldest.Report.DXC
		}
	}

	return co.strategic.VerifyTicket(adv, report, flowBal, pitRate, ecdMargin, sppDelta, dxcTrend)
}

func (co *Coordinator) maybeSynthesizeSummary(now time.Time) *ticket.Advisory {
	if co.haveSummary && now.Sub(co.lastSummaryAt) < summaryInterval {
		return nil
	}
	if len(co.history) == 0 {
		return nil
	}
	co.lastSummaryAt = now
	co.haveSummary = true

	var sumMSE, sumROP, sumECDMargin float64
	var anomalies int
	worst := ticket.None
	for _, e := range co.history {
		sumMSE += e.Report.MSE
		sumROP += e.Packet.ROP
		sumECDMargin += e.Report.ECDMargin
		if len(e.Report.Dysfunctions) > 0 {
			anomalies++
			worst = ticket.Mechanical
		}
	}
	n := float64(len(co.history))
	adv := &ticket.Advisory{
		Timestamp:  now,
		TicketType: ticket.Optimization,
		Category:   worst,
		Severity:   ticket.Low,
		CurrentMetrics: map[string]float64{
			"avg_mse":        sumMSE / n,
			"avg_rop":        sumROP / n,
			"avg_ecd_margin": sumECDMargin / n,
			"anomaly_rate":   float64(anomalies) / n,
		},
		Description: "periodic window summary",
	}
	adv.AddTrace(now, "pipeline", "periodic summary synthesized, no trigger fired in window")
	return adv
}

func (co *Coordinator) pushHistory(e HistoryEntry) {
	if len(co.history) < historyCapacity {
		co.history = append(co.history, e)
		return
	}
	co.history[co.historyHead] = e
	co.historyHead = (co.historyHead + 1) % historyCapacity
}

// historyAt returns the i-th entry in chronological (oldest-first) order,
// 0 <= i < len(history).
func (co *Coordinator) historyAt(i int) HistoryEntry {
	if len(co.history) < historyCapacity {
		return co.history[i]
	}
	return co.history[(co.historyHead+i)%historyCapacity]
}

func (co *Coordinator) historySamples() []physics.Sample {
	n := len(co.history)
	out := make([]physics.Sample, n)
	for i := 0; i < n; i++ {
		e := co.historyAt(i)
		out[i] = physics.Sample{WOB: e.Packet.WOB, ROP: e.Packet.ROP, Torque: e.Packet.Torque}
	}
	return out
}

func recommendationFor(cat ticket.Category) string {
	switch cat {
	case ticket.WellControl:
		return "shut in and monitor pit volumes"
	case ticket.Hydraulics:
		return "increase mud weight or reduce flow rate"
	case ticket.Mechanical:
		return "reduce WOB toward the founder point"
	case ticket.DrillingEfficiency:
		return "adjust WOB/RPM combination toward the efficiency optimum"
	case ticket.Formation:
		return "confirm formation top with offset logs"
	default:
		return "continue monitoring"
	}
}

func expectedBenefitFor(cat ticket.Category) string {
	switch cat {
	case ticket.DrillingEfficiency:
		return "improved ROP at equivalent MSE"
	case ticket.Mechanical:
		return "reduced bit/BHA wear"
	default:
		return "reduced risk exposure"
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
