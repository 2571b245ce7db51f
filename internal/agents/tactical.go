// Package agents implements the tactical and strategic decision agents:
// per-packet trigger evaluation and history-based verification, grounded
// on the teacher's mutex-guarded ProcessState pattern (escalation engine)
// generalized from a five-level isolation ladder to the five-category
// trigger table drilling operations need.
package agents

import (
	"sync"
	"time"

	"github.com/ashton-dyke/sairen-os/internal/baseline"
	"github.com/ashton-dyke/sairen-os/internal/physics"
	"github.com/ashton-dyke/sairen-os/internal/ticket"
	"github.com/ashton-dyke/sairen-os/internal/wits"
)

// TriggerThresholds holds the default, user-tunable trigger-rule
// boundaries evaluated against every packet's derived metrics.
type TriggerThresholds struct {
	MSEEffMedium      float64 // below this: DrillingEfficiency/Medium
	MSEEffHigh        float64 // below this: DrillingEfficiency/High
	FlowBalanceHigh    float64 // abs gpm: WellControl/High
	FlowBalanceCritical float64 // abs gpm: WellControl/Critical
	PitRateHigh        float64 // bbl/hr: WellControl/High
	PitRateCritical    float64 // bbl/hr: WellControl/Critical
	TorqueDeltaMedium  float64 // fraction: Mechanical/Medium
	TorqueDeltaHigh    float64 // fraction: Mechanical/High
	ECDMarginHigh      float64 // ppg: Hydraulics/High
	ECDMarginCritical  float64 // ppg: Hydraulics/Critical
	SPPDeviationMedium float64 // psi: Hydraulics/Medium
	DExpTrendLow       float64 // fraction: Formation/Low
}

// DefaultTriggerThresholds returns the field-default trigger table.
func DefaultTriggerThresholds() TriggerThresholds {
	return TriggerThresholds{
		MSEEffMedium:        70,
		MSEEffHigh:          50,
		FlowBalanceHigh:     10,
		FlowBalanceCritical: 20,
		PitRateHigh:         5,
		PitRateCritical:     15,
		TorqueDeltaMedium:   0.15,
		TorqueDeltaHigh:     0.25,
		ECDMarginHigh:       0.3,
		ECDMarginCritical:   0.1,
		SPPDeviationMedium:  100,
		DExpTrendLow:        0.15,
	}
}

const categoryCooldown = 60 * time.Second
const commissioningWindowPackets = 500

// Tactical runs physics, advances the rig-state classifier, and decides
// whether a packet warrants an AdvisoryTicket. All mutable state is
// guarded by a single mutex, mirroring the teacher's per-PID ProcessState
// pattern generalized to a per-category cooldown table.
type Tactical struct {
	mu sync.Mutex

	th         TriggerThresholds
	classifier *wits.Classifier
	params     *wits.ParamTracker
	baselines  *baseline.Manager

	packetsSeen     int64
	lastSPP         float64
	haveLastSPP     bool
	lastTorque      float64
	haveLastTorque  bool
	lastPitVolume   float64
	haveLastPitVol  bool

	lastTicketAt map[ticket.Category]time.Time
}

// NewTactical constructs a Tactical agent with the given thresholds and
// baseline manager and a fresh classifier/param-tracker.
func NewTactical(th TriggerThresholds, baselines *baseline.Manager) *Tactical {
	return &Tactical{
		th:           th,
		classifier:   wits.NewClassifier(wits.DefaultClassifierThresholds()),
		params:       wits.NewParamTracker(0.5),
		baselines:    baselines,
		lastTicketAt: make(map[ticket.Category]time.Time),
	}
}

// Process runs physics on p against the rolling history, advances the
// classifier, feeds mse_efficiency and ecd_margin samples to the baseline
// manager during the first commissioningWindowPackets packets, and returns
// the physics report plus an optional AdvisoryTicket. After the window the
// baseline manager is not consulted: no anomaly check feeds the triggers.
func (t *Tactical) Process(p wits.Packet, history []physics.Sample, hardness float64,
	fractureGradient float64, prevDXCAvg float64, dtHours float64, now time.Time) (physics.EnhancedPhysicsReport, *ticket.Advisory) {

	t.mu.Lock()
	defer t.mu.Unlock()

	prevPitVolume := p.PitVolume
	if t.haveLastPitVol {
		prevPitVolume = t.lastPitVolume
	}
	t.lastPitVolume, t.haveLastPitVol = p.PitVolume, true

	report := physics.Evaluate(p.WOB, p.ROP, p.RPM, p.Torque, 8.5, p.MudWeightIn,
		p.FlowIn, p.FlowOut, prevPitVolume, p.PitVolume,
		dtHours, fractureGradient, p.ECD, hardness, history, prevDXCAvg)
	enhanced := physics.Enhance(report, history, 5)

	state := t.classifier.Classify(p.FlowIn, p.WOB, p.RPM)
	t.params.Observe(p.WOB, p.RPM, p.MudWeightIn, 1)
	t.packetsSeen++

	if t.baselines != nil {
		if t.packetsSeen <= commissioningWindowPackets {
			t.baselines.AddSample("rig", "mse_efficiency", report.MSEEfficiency, now)
			t.baselines.AddSample("rig", "ecd_margin", report.ECDMargin, now)
		}
	}

	torqueDelta := 0.0
	if t.haveLastTorque && t.lastTorque != 0 {
		torqueDelta = (p.Torque - t.lastTorque) / t.lastTorque
	}
	t.lastTorque, t.haveLastTorque = p.Torque, true

	sppDeviation := 0.0
	if t.haveLastSPP {
		sppDeviation = p.SPP - t.lastSPP
	}
	t.lastSPP, t.haveLastSPP = p.SPP, true

	adv := t.evaluateTriggers(report, torqueDelta, sppDeviation, state, p, now)
	return enhanced, adv
}

// evaluateTriggers walks the trigger-rule table in priority order and
// returns the first match, subject to the state filter and per-category
// cooldown.
func (t *Tactical) evaluateTriggers(r physics.DrillingPhysicsReport, torqueDelta, sppDeviation float64,
	state wits.RigState, p wits.Packet, now time.Time) *ticket.Advisory {

	if state != wits.Drilling && state != wits.Reaming {
		return nil
	}

	type candidate struct {
		category ticket.Category
		severity ticket.Severity
		param    string
		value    float64
		threshold float64
		desc     string
	}

	var c *candidate
	switch {
	case abs(r.FlowBalance) > t.th.FlowBalanceCritical:
		c = &candidate{ticket.WellControl, ticket.Critical, "flow_balance", r.FlowBalance, t.th.FlowBalanceCritical, "flow balance critically out of tolerance"}
	case abs(r.FlowBalance) > t.th.FlowBalanceHigh:
		c = &candidate{ticket.WellControl, ticket.High, "flow_balance", r.FlowBalance, t.th.FlowBalanceHigh, "flow balance out of tolerance"}
	case r.PitRate > t.th.PitRateCritical:
		c = &candidate{ticket.WellControl, ticket.Critical, "pit_rate", r.PitRate, t.th.PitRateCritical, "pit gain/loss rate critical"}
	case r.PitRate > t.th.PitRateHigh:
		c = &candidate{ticket.WellControl, ticket.High, "pit_rate", r.PitRate, t.th.PitRateHigh, "pit gain/loss rate elevated"}
	case r.ECDMargin < t.th.ECDMarginCritical:
		c = &candidate{ticket.Hydraulics, ticket.Critical, "ecd_margin", r.ECDMargin, t.th.ECDMarginCritical, "ECD margin critically thin"}
	case r.ECDMargin < t.th.ECDMarginHigh:
		c = &candidate{ticket.Hydraulics, ticket.High, "ecd_margin", r.ECDMargin, t.th.ECDMarginHigh, "ECD margin thin"}
	case abs(sppDeviation) > t.th.SPPDeviationMedium:
		c = &candidate{ticket.Hydraulics, ticket.Medium, "spp_deviation", sppDeviation, t.th.SPPDeviationMedium, "standpipe pressure deviation"}
	case abs(torqueDelta) > t.th.TorqueDeltaHigh:
		c = &candidate{ticket.Mechanical, ticket.High, "torque_delta", torqueDelta, t.th.TorqueDeltaHigh, "torque step change, possible pack-off"}
	case abs(torqueDelta) > t.th.TorqueDeltaMedium:
		c = &candidate{ticket.Mechanical, ticket.Medium, "torque_delta", torqueDelta, t.th.TorqueDeltaMedium, "torque trending"}
	case r.MSEEfficiency < t.th.MSEEffHigh:
		c = &candidate{ticket.DrillingEfficiency, ticket.High, "mse_efficiency", r.MSEEfficiency, t.th.MSEEffHigh, "drilling efficiency critically low"}
	case r.MSEEfficiency < t.th.MSEEffMedium:
		c = &candidate{ticket.DrillingEfficiency, ticket.Medium, "mse_efficiency", r.MSEEfficiency, t.th.MSEEffMedium, "drilling efficiency degraded"}
	case r.FormationChange:
		c = &candidate{ticket.Formation, ticket.Low, "d_exponent_trend", r.DExponent, t.th.DExpTrendLow, "d-exponent trend shift"}
	}

	if c == nil {
		return nil
	}
	if !t.cooldownClear(c.category, c.severity, now) {
		return nil
	}
	t.lastTicketAt[c.category] = now

	adv := &ticket.Advisory{
		Timestamp:  now,
		TicketType: ticketTypeFor(c.category),
		Category:   c.category,
		Severity:   c.severity,
		CurrentMetrics: map[string]float64{
			"mse_efficiency": r.MSEEfficiency,
			"flow_balance":   r.FlowBalance,
			"pit_rate":       r.PitRate,
			"ecd_margin":     r.ECDMargin,
		},
		TriggerParameter: c.param,
		TriggerValue:     c.value,
		ThresholdValue:   c.threshold,
		Description:      c.desc,
		Depth:            p.BitDepth,
	}
	adv.AddTrace(now, "tactical", "trigger matched: "+c.desc)
	return adv
}

// ClearCooldown force-clears the per-category cooldown timer so the next
// matching packet can raise a ticket regardless of how recently one fired.
// Used by the operator console's clear_cooldown command.
func (t *Tactical) ClearCooldown(cat ticket.Category) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.lastTicketAt, cat)
}

func (t *Tactical) cooldownClear(cat ticket.Category, sev ticket.Severity, now time.Time) bool {
	if sev == ticket.Critical {
		return true
	}
	last, ok := t.lastTicketAt[cat]
	if !ok {
		return true
	}
	return now.Sub(last) >= categoryCooldown
}

func ticketTypeFor(cat ticket.Category) ticket.Type {
	switch cat {
	case ticket.WellControl:
		return ticket.RiskWarning
	case ticket.DrillingEfficiency:
		return ticket.Optimization
	default:
		return ticket.Intervention
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
