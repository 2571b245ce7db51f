package advisory_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ashton-dyke/sairen-os/internal/advisory"
	"github.com/ashton-dyke/sairen-os/internal/physics"
	"github.com/ashton-dyke/sairen-os/internal/ticket"
)

func criticalResult() ticket.VotingResult {
	return ticket.VotingResult{
		FinalSeverity:   ticket.Critical,
		Reasoning:       "well control critical",
		VotingReasoning: "wellcontrol=Critical",
	}
}

func TestCompose_EmitsCriticalOnFirstOccurrence(t *testing.T) {
	c := advisory.New()
	adv, ok := c.Compose(criticalResult(), physics.EnhancedPhysicsReport{}, nil, nil, time.Now())
	require.True(t, ok)
	require.NotNil(t, adv)
	require.Equal(t, "well control critical\n\nVoting: wellcontrol=Critical", adv.Reasoning)
}

func TestCompose_SuppressesSecondCriticalWithinCooldown(t *testing.T) {
	c := advisory.New()
	now := time.Now()
	_, ok := c.Compose(criticalResult(), physics.EnhancedPhysicsReport{}, nil, nil, now)
	require.True(t, ok)

	_, ok = c.Compose(criticalResult(), physics.EnhancedPhysicsReport{}, nil, nil, now.Add(10*time.Second))
	require.False(t, ok)
}

func TestCompose_EmitsCriticalAgainAfterCooldown(t *testing.T) {
	c := advisory.New()
	now := time.Now()
	_, ok := c.Compose(criticalResult(), physics.EnhancedPhysicsReport{}, nil, nil, now)
	require.True(t, ok)

	_, ok = c.Compose(criticalResult(), physics.EnhancedPhysicsReport{}, nil, nil, now.Add(31*time.Second))
	require.True(t, ok)
}

func TestCompose_NeverSuppressesNonCritical(t *testing.T) {
	c := advisory.New()
	now := time.Now()
	result := ticket.VotingResult{FinalSeverity: ticket.Medium, VotingReasoning: "mse=Medium"}

	_, ok := c.Compose(result, physics.EnhancedPhysicsReport{}, nil, nil, now)
	require.True(t, ok)
	_, ok = c.Compose(result, physics.EnhancedPhysicsReport{}, nil, nil, now.Add(time.Millisecond))
	require.True(t, ok)
}
