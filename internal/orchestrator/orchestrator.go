// Package orchestrator implements the weighted-vote ensemble that turns a
// verified ticket plus the specialists' votes into a single VotingResult,
// applying per-regime weight adjustment and a well-control safety
// override.
package orchestrator

import (
	"fmt"

	"github.com/ashton-dyke/sairen-os/internal/physics"
	"github.com/ashton-dyke/sairen-os/internal/specialists"
	"github.com/ashton-dyke/sairen-os/internal/ticket"
)

// RegimeFactors holds the per-specialist weight multiplier for one
// clustering regime.
type RegimeFactors struct {
	MSE, Hydraulic, WellControl, Formation float64
}

// DefaultRegimeFactors returns the four-regime weighting table: regime 0
// is baseline (no adjustment), regimes 1-3 emphasize the specialist most
// relevant to that operating condition.
func DefaultRegimeFactors() map[int]RegimeFactors {
	return map[int]RegimeFactors{
		0: {MSE: 1.0, Hydraulic: 1.0, WellControl: 1.0, Formation: 1.0},
		1: {MSE: 0.8, Hydraulic: 1.4, WellControl: 1.0, Formation: 0.8},
		2: {MSE: 1.4, Hydraulic: 0.8, WellControl: 1.0, Formation: 1.1},
		3: {MSE: 0.7, Hydraulic: 1.0, WellControl: 1.5, Formation: 0.8},
	}
}

func (f RegimeFactors) forSpecialist(name string) float64 {
	switch name {
	case "mse":
		return f.MSE
	case "hydraulic":
		return f.Hydraulic
	case "wellcontrol":
		return f.WellControl
	case "formation":
		return f.Formation
	default:
		return 1.0
	}
}

// Orchestrator runs the specialist panel and weighted vote.
type Orchestrator struct {
	regimeFactors map[int]RegimeFactors
}

// New returns an Orchestrator using the default four-regime weighting
// table.
func New() *Orchestrator {
	return &Orchestrator{regimeFactors: DefaultRegimeFactors()}
}

// Vote runs every specialist against t and report, regime-weights and
// renormalizes their votes, applies the well-control safety override, and
// derives risk_level and efficiency_score.
func (o *Orchestrator) Vote(t *ticket.Advisory, report physics.EnhancedPhysicsReport,
	context map[string]float64, recommendation, expectedBenefit, reasoning string, regimeID int) ticket.VotingResult {

	factors, ok := o.regimeFactors[regimeID]
	if !ok {
		factors = o.regimeFactors[0]
	}

	votes := make([]ticket.SpecialistVote, 0, 4)
	weightSum := 0.0
	adjusted := make([]float64, 0, 4)
	for _, sp := range specialists.All() {
		v := sp.Evaluate(t, report)
		adj := v.Weight * factors.forSpecialist(sp.Name())
		adjusted = append(adjusted, adj)
		weightSum += adj
		votes = append(votes, v)
	}
	if weightSum <= 0 {
		weightSum = 1
	}
	for i := range votes {
		votes[i].Weight = adjusted[i] / weightSum
	}

	safetyOverride := false
	weightedSum := 0.0
	for _, v := range votes {
		weightedSum += v.Vote.Numeric() * v.Weight
		if v.Name == "wellcontrol" && v.Vote == ticket.Critical {
			safetyOverride = true
		}
	}

	var finalSeverity ticket.Severity
	if safetyOverride {
		finalSeverity = ticket.Critical
	} else {
		finalSeverity = ticket.SeverityFromNumeric(weightedSum)
	}

	risk := riskLevel(votes, safetyOverride)
	efficiency := efficiencyScore(report, finalSeverity)

	votingReasoning := fmt.Sprintf("weighted severity %.2f across %d specialists", weightedSum, len(votes))

	return ticket.VotingResult{
		Votes:           votes,
		FinalSeverity:   finalSeverity,
		RiskLevel:       risk,
		EfficiencyScore: efficiency,
		Recommendation:  recommendation,
		ExpectedBenefit: expectedBenefit,
		Reasoning:       reasoning,
		VotingReasoning: votingReasoning,
	}
}

func riskLevel(votes []ticket.SpecialistVote, safetyOverride bool) ticket.RiskLevel {
	if safetyOverride {
		return ticket.RiskCritical
	}
	highCount := 0
	for _, v := range votes {
		if v.Vote == ticket.Critical {
			return ticket.RiskCritical
		}
		if v.Vote == ticket.High {
			highCount++
		}
	}
	if highCount >= 2 {
		return ticket.RiskHigh
	}
	if highCount == 1 {
		return ticket.RiskElevated
	}
	return ticket.RiskLow
}

func efficiencyScore(report physics.EnhancedPhysicsReport, finalSeverity ticket.Severity) int {
	score := report.MSEEfficiency

	penalty := map[ticket.Severity]float64{
		ticket.Healthy:  0,
		ticket.Low:      5,
		ticket.Medium:   15,
		ticket.High:     30,
		ticket.Critical: 50,
	}[finalSeverity]
	score -= penalty

	trendBonus := 0.0
	if report.ROPTrend > 0 && report.ROPTrendR2 > 0.5 {
		trendBonus = 5
	}
	score += trendBonus

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return int(score)
}
