// Package ticket defines the shared decision-pipeline vocabulary: the
// tactical agent's AdvisoryTicket, the strategic agent's verification
// result, the specialists' votes, and the final StrategicAdvisory emitted
// to the outside world. Kept separate from the agents/specialists/
// orchestrator packages that produce and consume them so none of those
// packages need to import each other directly.
package ticket

import (
	"time"

	"github.com/ashton-dyke/sairen-os/internal/physics"
)

// Severity is the shared five-band scale used by tickets, votes, and the
// final advisory.
type Severity int

const (
	Healthy Severity = iota
	Low
	Medium
	High
	Critical
)

func (s Severity) String() string {
	switch s {
	case Low:
		return "Low"
	case Medium:
		return "Medium"
	case High:
		return "High"
	case Critical:
		return "Critical"
	default:
		return "Healthy"
	}
}

// Numeric maps Severity onto the 1..4 scale used for weighted-mean voting.
// Healthy maps to 0, so a specialist's Healthy vote adds nothing to the
// weighted sum.
func (s Severity) Numeric() float64 {
	switch s {
	case Low:
		return 1
	case Medium:
		return 2
	case High:
		return 3
	case Critical:
		return 4
	default:
		return 0
	}
}

// SeverityFromNumeric maps a weighted-mean score back onto a band.
func SeverityFromNumeric(v float64) Severity {
	switch {
	case v >= 3.5:
		return Critical
	case v >= 3.0:
		return High
	case v >= 2.25:
		return Medium
	case v >= 1.5:
		return Low
	default:
		return Healthy
	}
}

// Category buckets tickets by the dysfunction domain they address.
type Category int

const (
	None Category = iota
	WellControl
	Hydraulics
	Mechanical
	DrillingEfficiency
	Formation
)

func (c Category) String() string {
	switch c {
	case WellControl:
		return "WellControl"
	case Hydraulics:
		return "Hydraulics"
	case Mechanical:
		return "Mechanical"
	case DrillingEfficiency:
		return "DrillingEfficiency"
	case Formation:
		return "Formation"
	default:
		return "None"
	}
}

// Type classifies the intent behind a ticket.
type Type int

const (
	Optimization Type = iota
	RiskWarning
	Intervention
)

func (t Type) String() string {
	switch t {
	case RiskWarning:
		return "RiskWarning"
	case Intervention:
		return "Intervention"
	default:
		return "Optimization"
	}
}

// TraceEvent is one entry in a ticket's audit trail: which component made
// a decision, what it decided, and when.
type TraceEvent struct {
	Timestamp time.Time
	Component string
	Message   string
}

// Advisory is the tactical agent's output: a candidate finding that may or
// may not survive strategic verification and voting.
type Advisory struct {
	Timestamp        time.Time
	TicketType       Type
	Category         Category
	Severity         Severity
	CurrentMetrics   map[string]float64
	TriggerParameter string
	TriggerValue     float64
	ThresholdValue   float64
	Description      string
	Depth            float64
	TraceLog         []TraceEvent
}

// AddTrace appends a trace event with the given component and message,
// stamped at ts.
func (a *Advisory) AddTrace(ts time.Time, component, message string) {
	a.TraceLog = append(a.TraceLog, TraceEvent{Timestamp: ts, Component: component, Message: message})
}

// VerificationStatus is the strategic agent's verdict on an Advisory.
type VerificationStatus int

const (
	Confirmed VerificationStatus = iota
	Rejected
	Uncertain
	Pending
)

func (v VerificationStatus) String() string {
	switch v {
	case Confirmed:
		return "Confirmed"
	case Rejected:
		return "Rejected"
	case Uncertain:
		return "Uncertain"
	default:
		return "Pending"
	}
}

// Verification is the strategic agent's full result.
type Verification struct {
	Ticket          *Advisory
	Status          VerificationStatus
	PhysicsReport   physics.EnhancedPhysicsReport
	Reasoning       string
	FinalSeverity   Severity
	SendToDashboard bool
}

// SpecialistVote is one specialist's assessment of a ticket.
type SpecialistVote struct {
	Name      string
	Vote      Severity
	Weight    float64
	Reasoning string
}

// VotingResult is the orchestrator's output. Reasoning is the base
// explanation carried in from the caller (e.g. strategic verification or
// an external explainer); VotingReasoning is the panel's own summary of
// how it reached FinalSeverity. The advisory composer concatenates the
// two as "Reasoning\n\nVoting: VotingReasoning".
type VotingResult struct {
	Votes           []SpecialistVote
	FinalSeverity   Severity
	RiskLevel       RiskLevel
	EfficiencyScore int
	Recommendation  string
	ExpectedBenefit string
	Reasoning       string
	VotingReasoning string
}

// RiskLevel is the orchestrator's fleet-facing risk assessment.
type RiskLevel int

const (
	RiskLow RiskLevel = iota
	RiskElevated
	RiskHigh
	RiskCritical
)

func (r RiskLevel) String() string {
	switch r {
	case RiskElevated:
		return "Elevated"
	case RiskHigh:
		return "High"
	case RiskCritical:
		return "Critical"
	default:
		return "Low"
	}
}

// StrategicAdvisory is emitted to the outside world.
type StrategicAdvisory struct {
	Timestamp       time.Time
	EfficiencyScore int
	RiskLevel       RiskLevel
	Severity        Severity
	Recommendation  string
	ExpectedBenefit string
	Reasoning       string
	Votes           []SpecialistVote
	PhysicsReport   physics.EnhancedPhysicsReport
	ContextUsed     map[string]float64
	TraceLog        []TraceEvent
}
