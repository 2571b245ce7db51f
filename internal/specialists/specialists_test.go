package specialists_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ashton-dyke/sairen-os/internal/physics"
	"github.com/ashton-dyke/sairen-os/internal/specialists"
	"github.com/ashton-dyke/sairen-os/internal/ticket"
)

func TestAll_ReturnsFourSpecialistsInFixedOrder(t *testing.T) {
	all := specialists.All()
	require.Len(t, all, 4)
	require.Equal(t, "mse", all[0].Name())
	require.Equal(t, "hydraulic", all[1].Name())
	require.Equal(t, "wellcontrol", all[2].Name())
	require.Equal(t, "formation", all[3].Name())
}

func TestWellControlSpecialist_VotesCriticalOnSevereImbalance(t *testing.T) {
	s := specialists.WellControlSpecialist{}
	r := physics.EnhancedPhysicsReport{DrillingPhysicsReport: physics.DrillingPhysicsReport{FlowBalance: 25}}
	vote := s.Evaluate(&ticket.Advisory{}, r)
	require.Equal(t, ticket.Critical, vote.Vote)
	require.InDelta(t, 0.30, vote.Weight, 1e-9)
}

func TestMSESpecialist_VotesHealthyOnGoodEfficiency(t *testing.T) {
	s := specialists.MSESpecialist{}
	r := physics.EnhancedPhysicsReport{DrillingPhysicsReport: physics.DrillingPhysicsReport{MSEEfficiency: 92}}
	vote := s.Evaluate(&ticket.Advisory{}, r)
	require.Equal(t, ticket.Healthy, vote.Vote)
}

func TestHydraulicSpecialist_VotesCriticalOnThinMargin(t *testing.T) {
	s := specialists.HydraulicSpecialist{}
	r := physics.EnhancedPhysicsReport{DrillingPhysicsReport: physics.DrillingPhysicsReport{ECDMargin: 0.05}}
	vote := s.Evaluate(&ticket.Advisory{}, r)
	require.Equal(t, ticket.Critical, vote.Vote)
}
