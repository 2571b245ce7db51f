package agents

import (
	"fmt"

	"github.com/ashton-dyke/sairen-os/internal/physics"
	"github.com/ashton-dyke/sairen-os/internal/ticket"
)

// Strategic verifies an AdvisoryTicket against a rolling history window,
// applying per-category rules that look past the single triggering
// packet for sustained, trend-consistent evidence.
type Strategic struct{}

// NewStrategic returns a Strategic agent. It is stateless: every call to
// VerifyTicket is a pure function of its arguments.
func NewStrategic() *Strategic { return &Strategic{} }

// VerifyTicket applies category-specific verification rules to adv given
// the last few history entries' derived metrics.
func (s *Strategic) VerifyTicket(adv *ticket.Advisory, report physics.EnhancedPhysicsReport,
	recentFlowBalance, recentPitRate []float64, recentECDMargin []float64,
	recentSPPDelta []float64, dxcTrend float64) ticket.Verification {

	v := ticket.Verification{Ticket: adv, PhysicsReport: report}

	switch adv.Category {
	case ticket.WellControl:
		s.verifyWellControl(&v, recentFlowBalance, recentPitRate, report)
	case ticket.Hydraulics:
		s.verifyHydraulics(&v, recentECDMargin, recentSPPDelta, report)
	case ticket.Mechanical:
		s.verifyMechanical(&v, report)
	case ticket.DrillingEfficiency:
		s.verifyDrillingEfficiency(&v, report)
	case ticket.Formation:
		s.verifyFormation(&v, dxcTrend, report)
	default:
		v.Status = ticket.Pending
		v.FinalSeverity = ticket.Healthy
		v.Reasoning = "no category to verify"
	}

	v.Ticket.AddTrace(adv.Timestamp, "strategic", fmt.Sprintf("%s -> %s", v.Status, v.FinalSeverity))
	v.SendToDashboard = v.Status == ticket.Confirmed || v.Status == ticket.Uncertain
	return v
}

func avg(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func (s *Strategic) verifyWellControl(v *ticket.Verification, flowBal, pitRate []float64, r physics.EnhancedPhysicsReport) {
	avgFlow := avg(flowBal)
	avgPit := avg(pitRate)
	sustained := r.IsSustained

	switch {
	case abs(avgFlow) > 15 || abs(avgPit) > 10:
		v.Status, v.FinalSeverity = ticket.Confirmed, ticket.Critical
		v.Reasoning = "sustained flow/pit imbalance exceeds critical band"
	case sustained && (abs(avgFlow) > 5 || abs(avgPit) > 3):
		v.Status, v.FinalSeverity = ticket.Confirmed, ticket.High
		v.Reasoning = "sustained flow/pit imbalance exceeds high band"
	case !sustained && abs(avgFlow) < 5:
		v.Status, v.FinalSeverity = ticket.Rejected, ticket.Healthy
		v.Reasoning = "transient reading, flow balance within tolerance"
	default:
		v.Status, v.FinalSeverity = ticket.Uncertain, ticket.Medium
		v.Reasoning = "inconclusive well control signal"
	}
}

func (s *Strategic) verifyHydraulics(v *ticket.Verification, ecdMargin, sppDelta []float64, r physics.EnhancedPhysicsReport) {
	avgECD := avg(ecdMargin)
	sustainedSPPHigh := r.IsSustained && maxAbs(sppDelta) > 150
	lowSPPAndGoodECD := maxAbs(sppDelta) < 50 && avgECD > 0.3

	switch {
	case avgECD < 0.1:
		v.Status, v.FinalSeverity = ticket.Confirmed, ticket.Critical
		v.Reasoning = "ECD margin averaged below critical threshold"
	case avgECD < 0.3:
		v.Status, v.FinalSeverity = ticket.Confirmed, ticket.Medium
		v.Reasoning = "ECD margin averaged below comfortable threshold"
	case sustainedSPPHigh:
		v.Status, v.FinalSeverity = ticket.Confirmed, ticket.High
		v.Reasoning = "standpipe pressure deviation sustained beyond tolerance"
	case lowSPPAndGoodECD:
		v.Status, v.FinalSeverity = ticket.Rejected, ticket.Healthy
		v.Reasoning = "standpipe pressure and ECD margin both within tolerance"
	default:
		v.Status, v.FinalSeverity = ticket.Uncertain, ticket.Medium
		v.Reasoning = "inconclusive hydraulics signal"
	}
}

func maxAbs(xs []float64) float64 {
	m := 0.0
	for _, x := range xs {
		if a := abs(x); a > m {
			m = a
		}
	}
	return m
}

func (s *Strategic) verifyMechanical(v *ticket.Verification, r physics.EnhancedPhysicsReport) {
	hasPackOff := false
	hasStickSlip := false
	for _, d := range r.Dysfunctions {
		if d == physics.PackOff {
			hasPackOff = true
		}
		if d == physics.StickSlip {
			hasStickSlip = true
		}
	}

	switch {
	case r.FounderDetected:
		sev := ticket.Low
		switch {
		case r.FounderSeverity > 0.7:
			sev = ticket.High
		case r.FounderSeverity > 0.4:
			sev = ticket.Medium
		}
		v.Status, v.FinalSeverity = ticket.Confirmed, sev
		v.Reasoning = fmt.Sprintf("founder point detected, reduce WOB toward %.0f", r.OptimalWOB)
	case hasStickSlip && r.TrendConsistency > 0.5:
		v.Status, v.FinalSeverity = ticket.Confirmed, ticket.Medium
		v.Reasoning = "stick-slip signature with consistent trend"
	case hasPackOff:
		v.Status, v.FinalSeverity = ticket.Confirmed, ticket.High
		v.Reasoning = "pack-off signature detected"
	case abs(r.WOBTrend) > 0 && r.TrendConsistency > 0.5:
		v.Status, v.FinalSeverity = ticket.Uncertain, ticket.Medium
		v.Reasoning = "torque trend without confirmed dysfunction signature"
	default:
		v.Status, v.FinalSeverity = ticket.Rejected, ticket.Healthy
		v.Reasoning = "no mechanical dysfunction signature"
	}
}

func (s *Strategic) verifyDrillingEfficiency(v *ticket.Verification, r physics.EnhancedPhysicsReport) {
	switch {
	case r.MSEEfficiency < 50 && r.TrendConsistency > 0.5:
		v.Status, v.FinalSeverity = ticket.Confirmed, ticket.Medium
		v.Reasoning = "efficiency critically low with consistent trend, parameter adjustment recommended"
	case r.MSEEfficiency < 70 && r.IsSustained:
		v.Status, v.FinalSeverity = ticket.Confirmed, ticket.Low
		v.Reasoning = "efficiency sustained below target"
	case r.MSEEfficiency >= 70:
		v.Status, v.FinalSeverity = ticket.Rejected, ticket.Healthy
		v.Reasoning = "efficiency within target range"
	default:
		v.Status, v.FinalSeverity = ticket.Uncertain, ticket.Medium
		v.Reasoning = "inconclusive efficiency signal"
	}
}

func (s *Strategic) verifyFormation(v *ticket.Verification, dxcTrend float64, r physics.EnhancedPhysicsReport) {
	switch {
	case abs(dxcTrend) > 0.1 && r.TrendConsistency > 0.6:
		v.Status, v.FinalSeverity = ticket.Confirmed, ticket.Low
		v.Reasoning = "d-exponent trend consistent with formation change"
	case dxcTrend < -0.15:
		v.Status, v.FinalSeverity = ticket.Confirmed, ticket.Medium
		v.Reasoning = "d-exponent trending sharply down"
	default:
		v.Status, v.FinalSeverity = ticket.Uncertain, ticket.Low
		v.Reasoning = "inconclusive formation signal"
	}
}
