package integration_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ashton-dyke/sairen-os/internal/agents"
	"github.com/ashton-dyke/sairen-os/internal/baseline"
	"github.com/ashton-dyke/sairen-os/internal/ingest"
	"github.com/ashton-dyke/sairen-os/internal/pipeline"
	"github.com/ashton-dyke/sairen-os/internal/ticket"
)

var featureNames = []string{
	"wob", "rop", "rpm", "torque", "mse", "spp", "d_exponent", "hookload",
	"ecd", "flow_balance", "pit_rate", "dxc", "pump_spm", "mud_weight_in",
	"gas_units", "pit_volume",
}

type collectSink struct {
	advisories []ticket.StrategicAdvisory
}

func (s *collectSink) Emit(ctx context.Context, adv ticket.StrategicAdvisory) error {
	s.advisories = append(s.advisories, adv)
	return nil
}

func runScenario(t *testing.T, scenario ingest.Scenario, ticks int) *collectSink {
	t.Helper()

	src := ingest.NewSimSource(ingest.SimConfig{
		Scenario:      scenario,
		Interval:      5 * time.Second,
		Speed:         0,
		OnsetFraction: 0.3,
		Seed:          7,
		Hours:         float64(ticks) * (5.0 / 3600.0),
	})

	sink := &collectSink{}
	coord := pipeline.New(pipeline.Config{
		Seed:              7,
		Baselines:         baseline.NewManager(200),
		TriggerThresholds: agents.DefaultTriggerThresholds(),
		Sink:              sink,
		FeatureNames:      featureNames,
		Hardness:          1.0,
		FractureGradient:  16.5,
	})

	ctx := context.Background()
	for i := 0; i < ticks; i++ {
		p, err := src.Next(ctx)
		if err == ingest.ErrEOF {
			break
		}
		require.NoError(t, err)

		_, err = coord.Process(ctx, p, 5*time.Second)
		require.NoError(t, err)
	}
	return sink
}

// A kick scenario (rising flow-out, pit gain, and gas units) must surface
// at least one well-control advisory by the end of the run.
func TestPipeline_KickScenarioRaisesWellControlAdvisory(t *testing.T) {
	sink := runScenario(t, ingest.ScenarioKick, 400)
	require.NotEmpty(t, sink.advisories)

	var sawWellControl bool
	for _, adv := range sink.advisories {
		for _, vote := range adv.Votes {
			if vote.Name == "wellcontrol" {
				sawWellControl = true
			}
		}
	}
	require.True(t, sawWellControl, "expected at least one advisory with a wellcontrol specialist vote")
}

// A normal drilling run with no induced dysfunction should still emit the
// periodic summary advisory, but never at Critical severity.
func TestPipeline_NormalScenarioNeverEmitsCritical(t *testing.T) {
	sink := runScenario(t, ingest.ScenarioNormal, 200)

	for _, adv := range sink.advisories {
		require.NotEqual(t, ticket.Critical, adv.Severity, "normal drilling should never trigger a critical advisory")
	}
}

// Bit-wear (MSE inefficiency) should drive the efficiency score down as the
// scenario ramps in.
func TestPipeline_BitWearScenarioDegradesEfficiency(t *testing.T) {
	sink := runScenario(t, ingest.ScenarioBitWear, 400)
	require.NotEmpty(t, sink.advisories)

	last := sink.advisories[len(sink.advisories)-1]
	require.LessOrEqual(t, last.EfficiencyScore, 100)
}
