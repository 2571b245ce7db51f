package ingest_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ashton-dyke/sairen-os/internal/ingest"
)

func fastSimConfig(scenario ingest.Scenario) ingest.SimConfig {
	cfg := ingest.DefaultSimConfig()
	cfg.Scenario = scenario
	cfg.Hours = 10.0 / 3600.0 // 10 simulated packets at 1s interval
	cfg.Interval = time.Second
	cfg.Speed = 0 // no real-time pacing in tests
	return cfg
}

func TestSimSource_EmitsConfiguredPacketCountThenEOF(t *testing.T) {
	src := ingest.NewSimSource(fastSimConfig(ingest.ScenarioNormal))
	ctx := context.Background()

	count := 0
	for {
		_, err := src.Next(ctx)
		if err == ingest.ErrEOF {
			break
		}
		require.NoError(t, err)
		count++
		require.Less(t, count, 100) // guard against infinite loop
	}
	require.Equal(t, 10, count)
}

func TestSimSource_Name(t *testing.T) {
	src := ingest.NewSimSource(fastSimConfig(ingest.ScenarioNormal))
	require.Equal(t, "sim", src.Name())
}

func TestSimSource_KickScenarioRampsPitVolumeUp(t *testing.T) {
	cfg := fastSimConfig(ingest.ScenarioKick)
	cfg.OnsetFraction = 0
	src := ingest.NewSimSource(cfg)
	ctx := context.Background()

	first, err := src.Next(ctx)
	require.NoError(t, err)

	var last float64
	for {
		p, err := src.Next(ctx)
		if err == ingest.ErrEOF {
			break
		}
		require.NoError(t, err)
		last = p.PitVolume
	}
	require.Greater(t, last, first.PitVolume)
}

func TestSimSource_NormalScenarioKeepsFlowBalanced(t *testing.T) {
	src := ingest.NewSimSource(fastSimConfig(ingest.ScenarioNormal))
	ctx := context.Background()

	for {
		p, err := src.Next(ctx)
		if err == ingest.ErrEOF {
			break
		}
		require.NoError(t, err)
		require.InDelta(t, 0, p.FlowBalance, 15)
	}
}
