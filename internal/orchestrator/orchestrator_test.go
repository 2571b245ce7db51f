package orchestrator_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ashton-dyke/sairen-os/internal/orchestrator"
	"github.com/ashton-dyke/sairen-os/internal/physics"
	"github.com/ashton-dyke/sairen-os/internal/ticket"
)

func TestVote_WeightsSumToOne(t *testing.T) {
	o := orchestrator.New()
	report := physics.EnhancedPhysicsReport{DrillingPhysicsReport: physics.DrillingPhysicsReport{MSEEfficiency: 80}}
	result := o.Vote(&ticket.Advisory{}, report, nil, "", "", "", 2)

	sum := 0.0
	for _, v := range result.Votes {
		sum += v.Weight
	}
	require.InDelta(t, 1.0, sum, 1e-9)
}

func TestVote_SafetyOverrideForcesCritical(t *testing.T) {
	o := orchestrator.New()
	report := physics.EnhancedPhysicsReport{DrillingPhysicsReport: physics.DrillingPhysicsReport{
		FlowBalance:   25,
		MSEEfficiency: 95,
		ECDMargin:     0.6,
	}}
	result := o.Vote(&ticket.Advisory{}, report, nil, "", "", "", 0)
	require.Equal(t, ticket.Critical, result.FinalSeverity)
	require.Equal(t, ticket.RiskCritical, result.RiskLevel)
}

func TestVote_HealthyReportYieldsHealthySeverity(t *testing.T) {
	o := orchestrator.New()
	report := physics.EnhancedPhysicsReport{DrillingPhysicsReport: physics.DrillingPhysicsReport{
		MSEEfficiency: 95, ECDMargin: 0.6, FlowBalance: 0, PitRate: 0,
	}}
	result := o.Vote(&ticket.Advisory{}, report, nil, "", "", "", 0)
	require.Equal(t, ticket.Healthy, result.FinalSeverity)
	require.Equal(t, ticket.RiskLow, result.RiskLevel)
	require.Equal(t, 95, result.EfficiencyScore)
}

func TestVote_RegimeWeightingShiftsInfluence(t *testing.T) {
	o := orchestrator.New()
	report := physics.EnhancedPhysicsReport{DrillingPhysicsReport: physics.DrillingPhysicsReport{
		ECDMargin: 0.05, MSEEfficiency: 95,
	}}
	baseline := o.Vote(&ticket.Advisory{}, report, nil, "", "", "", 0)
	stressed := o.Vote(&ticket.Advisory{}, report, nil, "", "", "", 1)

	var hydroBase, hydroStressed float64
	for _, v := range baseline.Votes {
		if v.Name == "hydraulic" {
			hydroBase = v.Weight
		}
	}
	for _, v := range stressed.Votes {
		if v.Name == "hydraulic" {
			hydroStressed = v.Weight
		}
	}
	require.Greater(t, hydroStressed, hydroBase)
}
