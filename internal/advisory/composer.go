// Package advisory implements the final composition stage: folding a
// VotingResult into a StrategicAdvisory, gated by a global 30 s cooldown
// on Critical output. Grounded on the teacher's token-bucket mutex
// pattern, generalized from a refilling counter to a single
// last-Critical timestamp gate.
package advisory

import (
	"sync"
	"time"

	"github.com/ashton-dyke/sairen-os/internal/physics"
	"github.com/ashton-dyke/sairen-os/internal/ticket"
)

const criticalCooldown = 30 * time.Second

// Composer tracks the timestamp of the last emitted Critical advisory and
// suppresses any new Critical advisory within the cooldown window.
// Non-Critical output is never suppressed.
type Composer struct {
	mu             sync.Mutex
	lastCriticalAt time.Time
	haveCritical   bool
}

// New returns an empty Composer.
func New() *Composer { return &Composer{} }

// Compose folds a VotingResult into a StrategicAdvisory. It returns
// (nil, false) when the result is Critical and falls within the global
// cooldown of the last emitted Critical advisory.
func (c *Composer) Compose(result ticket.VotingResult, report physics.EnhancedPhysicsReport,
	context map[string]float64, trace []ticket.TraceEvent, now time.Time) (*ticket.StrategicAdvisory, bool) {

	c.mu.Lock()
	defer c.mu.Unlock()

	if result.FinalSeverity == ticket.Critical {
		if c.haveCritical && now.Sub(c.lastCriticalAt) < criticalCooldown {
			return nil, false
		}
		c.lastCriticalAt = now
		c.haveCritical = true
	}

	reasoning := "Voting: " + result.VotingReasoning
	if result.Reasoning != "" {
		reasoning = result.Reasoning + "\n\nVoting: " + result.VotingReasoning
	}

	return &ticket.StrategicAdvisory{
		Timestamp:       now,
		EfficiencyScore: result.EfficiencyScore,
		RiskLevel:       result.RiskLevel,
		Severity:        result.FinalSeverity,
		Recommendation:  result.Recommendation,
		ExpectedBenefit: result.ExpectedBenefit,
		Reasoning:       reasoning,
		Votes:           result.Votes,
		PhysicsReport:   report,
		ContextUsed:     context,
		TraceLog:        trace,
	}, true
}
