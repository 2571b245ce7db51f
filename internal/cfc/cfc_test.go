package cfc_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ashton-dyke/sairen-os/internal/cfc"
	"github.com/ashton-dyke/sairen-os/internal/wiring"
)

func rawFeatures(v float64) []float64 {
	x := make([]float64, cfc.NumFeatures)
	for i := range x {
		x[i] = v + float64(i)*0.01
	}
	return x
}

func TestForward_ProducesFiniteOutputAndCache(t *testing.T) {
	w := wiring.New(7, wiring.DefaultSlowGroups())
	wt := cfc.NewWeights(w)
	wt.Init(7)

	hPrev := make([]float64, w.NumNeurons())
	hNew, c := cfc.Forward(w, wt, hPrev, rawFeatures(1.0), 1.0)

	require.Len(t, hNew, w.NumNeurons())
	require.Len(t, c.Output, cfc.NumOutputs)
	for _, v := range c.Output {
		require.False(t, isNaNOrInf(v))
	}
}

func TestTrain_IsDeterministicGivenFixedCacheAndSeed(t *testing.T) {
	w := wiring.New(11, wiring.DefaultFastGroups())
	cfg := cfc.FastConfig()

	run := func() []float64 {
		wt := cfc.NewWeights(w)
		wt.Init(11)
		adam := cfc.NewAdam(wt, cfg)

		h := make([]float64, w.NumNeurons())
		var hist []*cfc.Cache
		for i := 0; i < 3; i++ {
			var c *cfc.Cache
			h, c = cfc.Forward(w, wt, h, rawFeatures(float64(i)), 1.0)
			hist = append([]*cfc.Cache{c}, hist...)
		}
		target := rawFeatures(3.0)
		cfc.Train(hist, target, w, wt, adam, cfg)
		return append([]float64(nil), wt.WOut...)
	}

	a := run()
	b := run()
	require.Equal(t, a, b)
}

func TestNetwork_AnomalyScoreZeroBeforeCalibration(t *testing.T) {
	net := cfc.New(3, cfc.NetworkConfig{Groups: wiring.DefaultFastGroups(), Train: cfc.FastConfig()})
	for i := 0; i < 5; i++ {
		net.Process(rawFeatures(2.0), 1.0)
	}
	require.Equal(t, 0.0, net.AnomalyScore())
	require.False(t, net.IsCalibrated())
}

func TestNetwork_ResetStatePreservesWeights(t *testing.T) {
	net := cfc.New(3, cfc.NetworkConfig{Groups: wiring.DefaultSlowGroups(), Train: cfc.SlowConfig()})
	for i := 0; i < 20; i++ {
		net.Process(rawFeatures(1.5), 1.0)
	}
	before := append([]float64(nil), net.Weight.WOut...)
	net.ResetState()

	require.Equal(t, before, net.Weight.WOut)
	require.Nil(t, net.CacheHist)
	require.Equal(t, int64(0), net.TrainSteps)
}

func TestCheckpoint_RoundTripPreservesWeights(t *testing.T) {
	net := cfc.New(9, cfc.NetworkConfig{Groups: wiring.DefaultSlowGroups(), Train: cfc.SlowConfig()})
	for i := 0; i < 5; i++ {
		net.Process(rawFeatures(0.5), 1.0)
	}
	ck := net.Snapshot()
	restored, err := cfc.Restore(ck)
	require.NoError(t, err)
	require.Equal(t, net.Weight.WOut, restored.Weight.WOut)
	require.Equal(t, net.PacketsProcessed, restored.PacketsProcessed)
	require.Len(t, restored.HiddenState, net.Wiring.NumNeurons())
	for _, v := range restored.HiddenState {
		require.Zero(t, v)
	}
}

func isNaNOrInf(v float64) bool {
	return v != v || v > 1e300 || v < -1e300
}
