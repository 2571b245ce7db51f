package pipeline_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ashton-dyke/sairen-os/internal/agents"
	"github.com/ashton-dyke/sairen-os/internal/baseline"
	"github.com/ashton-dyke/sairen-os/internal/pipeline"
	"github.com/ashton-dyke/sairen-os/internal/ticket"
	"github.com/ashton-dyke/sairen-os/internal/wits"
)

type recordingSink struct {
	advisories []ticket.StrategicAdvisory
}

func (s *recordingSink) Emit(ctx context.Context, adv ticket.StrategicAdvisory) error {
	s.advisories = append(s.advisories, adv)
	return nil
}

var featureNames = []string{
	"wob", "rop", "rpm", "torque", "mse", "spp", "d_exponent", "hookload",
	"ecd", "flow_balance", "pit_rate", "dxc", "pump_spm", "mud_weight_in",
	"gas_units", "pit_volume",
}

func steadyPacket(ts int64) wits.Packet {
	return wits.Packet{
		Timestamp: ts, BitDepth: 10000, ROP: 80, WOB: 25, RPM: 120, Torque: 8000,
		MSE: 18000, SPP: 3200, ECD: 12.5, FlowIn: 600, FlowOut: 600,
		PitVolume: 500, MudWeightIn: 10.5, RigState: wits.Drilling,
	}
}

func TestCoordinator_ProcessesSteadyPacketsWithoutCrashing(t *testing.T) {
	sink := &recordingSink{}
	co := pipeline.New(pipeline.Config{
		Seed:              1,
		Baselines:         baseline.NewManager(500),
		TriggerThresholds: agents.DefaultTriggerThresholds(),
		Sink:              sink,
		FeatureNames:      featureNames,
		Hardness:          20000,
		FractureGradient:  16.5,
	})

	for i := 0; i < 20; i++ {
		p := steadyPacket(int64(i))
		_, err := co.Process(context.Background(), p, time.Second)
		require.NoError(t, err)
	}
}

func TestCoordinator_EmitsAdvisoryOnSustainedKick(t *testing.T) {
	sink := &recordingSink{}
	co := pipeline.New(pipeline.Config{
		Seed:              2,
		Baselines:         baseline.NewManager(500),
		TriggerThresholds: agents.DefaultTriggerThresholds(),
		Sink:              sink,
		FeatureNames:      featureNames,
		Hardness:          20000,
		FractureGradient:  16.5,
	})

	var lastErr error
	for i := 0; i < 10; i++ {
		p := steadyPacket(int64(i))
		p.FlowOut = p.FlowIn + 30
		p.PitRate = 18
		_, lastErr = co.Process(context.Background(), p, time.Second)
		require.NoError(t, lastErr)
	}

	require.NotEmpty(t, sink.advisories)
}
