package federation_test

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ashton-dyke/sairen-os/internal/cfc"
	"github.com/ashton-dyke/sairen-os/internal/federation"
	"github.com/ashton-dyke/sairen-os/internal/normalizer"
	"github.com/ashton-dyke/sairen-os/internal/wiring"
)

func TestMergeNormalizers_MatchesSinglePassOverConcatenatedSamples(t *testing.T) {
	a := normalizer.New(1)
	b := normalizer.New(1)
	combined := normalizer.New(1)

	for i := 0; i < 100; i++ {
		v := float64(i)
		a.NormalizeAndUpdate([]float64{v})
		combined.NormalizeAndUpdate([]float64{v})
	}
	for i := 100; i < 200; i++ {
		v := float64(i)
		b.NormalizeAndUpdate([]float64{v})
		combined.NormalizeAndUpdate([]float64{v})
	}

	merged := federation.MergeNormalizers(a, b)
	require.Equal(t, combined.Count, merged.Count)
	require.InDelta(t, combined.Mean[0], merged.Mean[0], 1e-10)
	require.InDelta(t, combined.M2[0], merged.M2[0], 1e-6)
}

func TestFederatedAverage_RequiresAtLeastTwoCheckpoints(t *testing.T) {
	net := cfc.New(1, cfc.NetworkConfig{Groups: wiring.DefaultFastGroups(), Train: cfc.FastConfig()})
	ck := &cfc.DualCheckpoint{Fast: net.Snapshot(), Slow: net.Snapshot(), Metadata: cfc.DualMetadata{PacketsProcessed: 10}}
	_, err := federation.FederatedAverage([]*cfc.DualCheckpoint{ck})
	require.Error(t, err)
}

func TestFederatedAverage_WeightsBySamplesProcessed(t *testing.T) {
	cfg := cfc.NetworkConfig{Groups: wiring.DefaultSlowGroups(), Train: cfc.SlowConfig()}
	a := cfc.New(1, cfg)
	b := cfc.New(1, cfg)
	for i := range a.Weight.WOut {
		a.Weight.WOut[i] = 1.0
		b.Weight.WOut[i] = 3.0
	}
	ckA := &cfc.DualCheckpoint{Fast: a.Snapshot(), Slow: a.Snapshot(), Metadata: cfc.DualMetadata{PacketsProcessed: 100}}
	ckB := &cfc.DualCheckpoint{Fast: b.Snapshot(), Slow: b.Snapshot(), Metadata: cfc.DualMetadata{PacketsProcessed: 100}}

	merged, err := federation.FederatedAverage([]*cfc.DualCheckpoint{ckA, ckB})
	require.NoError(t, err)
	require.InDelta(t, 2.0, merged.Slow.Weights.WOut[0], 1e-9)
	require.Equal(t, int64(200), merged.Metadata.PacketsProcessed)
}

func TestEnvelope_VerifyRejectsTamperedPayload(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	_ = pub
	env := federation.Sign("rig-1", []byte(`{"x":1}`), priv)
	require.NoError(t, env.Verify())

	env.Payload = []byte(`{"x":2}`)
	require.Error(t, env.Verify())
}

func TestShouldAccept_Policies(t *testing.T) {
	require.True(t, federation.ShouldAccept(federation.FreshOnly, 0, 500))
	require.False(t, federation.ShouldAccept(federation.FreshOnly, 10, 500))
	require.True(t, federation.ShouldAccept(federation.BetterModel, 10, 500))
	require.False(t, federation.ShouldAccept(federation.UploadOnly, 0, 500))
}
