// Package specialists implements the four domain specialists the
// orchestrator polls for a vote on every verified ticket. Each one
// implements the small {Name, Evaluate} capability set, grounded on the
// teacher's plugin-style scorer contract generalized from a single numeric
// score to a full SpecialistVote with weight and reasoning.
package specialists

import (
	"fmt"

	"github.com/ashton-dyke/sairen-os/internal/physics"
	"github.com/ashton-dyke/sairen-os/internal/ticket"
)

// Specialist is the capability set every specialist implements: a stable
// name and an evaluation of one ticket against the current physics report.
type Specialist interface {
	Name() string
	Evaluate(t *ticket.Advisory, report physics.EnhancedPhysicsReport) ticket.SpecialistVote
}

// DefaultWeights returns the baseline (regime-0) weight for each
// specialist before per-regime adjustment.
func DefaultWeights() map[string]float64 {
	return map[string]float64{
		"mse":        0.25,
		"hydraulic":  0.25,
		"wellcontrol": 0.30,
		"formation":  0.20,
	}
}

// All returns the four specialists in a fixed, deterministic order.
func All() []Specialist {
	return []Specialist{
		MSESpecialist{},
		HydraulicSpecialist{},
		WellControlSpecialist{},
		FormationSpecialist{},
	}
}

// MSESpecialist votes on drilling-efficiency health.
type MSESpecialist struct{}

func (MSESpecialist) Name() string { return "mse" }

func (MSESpecialist) Evaluate(t *ticket.Advisory, r physics.EnhancedPhysicsReport) ticket.SpecialistVote {
	var sev ticket.Severity
	switch {
	case r.MSEEfficiency < 50:
		sev = ticket.High
	case r.MSEEfficiency < 70:
		sev = ticket.Medium
	case r.MSEEfficiency < 85:
		sev = ticket.Low
	default:
		sev = ticket.Healthy
	}
	return ticket.SpecialistVote{
		Name:      "mse",
		Vote:      sev,
		Weight:    DefaultWeights()["mse"],
		Reasoning: fmt.Sprintf("MSE efficiency %.1f%%", r.MSEEfficiency),
	}
}

// HydraulicSpecialist votes on ECD-margin/hydraulics health.
type HydraulicSpecialist struct{}

func (HydraulicSpecialist) Name() string { return "hydraulic" }

func (HydraulicSpecialist) Evaluate(t *ticket.Advisory, r physics.EnhancedPhysicsReport) ticket.SpecialistVote {
	var sev ticket.Severity
	switch {
	case r.ECDMargin < 0.1:
		sev = ticket.Critical
	case r.ECDMargin < 0.3:
		sev = ticket.Medium
	case r.ECDMargin < 0.5:
		sev = ticket.Low
	default:
		sev = ticket.Healthy
	}
	return ticket.SpecialistVote{
		Name:      "hydraulic",
		Vote:      sev,
		Weight:    DefaultWeights()["hydraulic"],
		Reasoning: fmt.Sprintf("ECD margin %.2f ppg", r.ECDMargin),
	}
}

// WellControlSpecialist votes on flow-balance/pit-rate health, the single
// specialist able to force a safety override in the orchestrator.
type WellControlSpecialist struct{}

func (WellControlSpecialist) Name() string { return "wellcontrol" }

func (WellControlSpecialist) Evaluate(t *ticket.Advisory, r physics.EnhancedPhysicsReport) ticket.SpecialistVote {
	fb, pr := r.FlowBalance, r.PitRate
	var sev ticket.Severity
	switch {
	case abs(fb) > 20 || pr > 15:
		sev = ticket.Critical
	case abs(fb) > 10 || pr > 5:
		sev = ticket.High
	case abs(fb) > 3 || pr > 2:
		sev = ticket.Medium
	default:
		sev = ticket.Healthy
	}
	return ticket.SpecialistVote{
		Name:      "wellcontrol",
		Vote:      sev,
		Weight:    DefaultWeights()["wellcontrol"],
		Reasoning: fmt.Sprintf("flow balance %.1f gpm, pit rate %.1f bbl/hr", fb, pr),
	}
}

// FormationSpecialist votes on formation-change/d-exponent health.
type FormationSpecialist struct{}

func (FormationSpecialist) Name() string { return "formation" }

func (FormationSpecialist) Evaluate(t *ticket.Advisory, r physics.EnhancedPhysicsReport) ticket.SpecialistVote {
	var sev ticket.Severity
	switch {
	case r.FormationChange && r.TrendConsistency > 0.6:
		sev = ticket.Medium
	case r.FormationChange:
		sev = ticket.Low
	default:
		sev = ticket.Healthy
	}
	return ticket.SpecialistVote{
		Name:      "formation",
		Vote:      sev,
		Weight:    DefaultWeights()["formation"],
		Reasoning: fmt.Sprintf("d-exponent %.3f, formation change=%v", r.DExponent, r.FormationChange),
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
