package wits_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ashton-dyke/sairen-os/internal/wits"
)

func TestClassify_OnBottomWithFlowAndRotationIsDrilling(t *testing.T) {
	c := wits.NewClassifier(wits.DefaultClassifierThresholds())
	require.Equal(t, wits.Drilling, c.Classify(300, 20, 120))
}

func TestClassify_NoFlowNoRotationNoWOBIsConnection(t *testing.T) {
	c := wits.NewClassifier(wits.DefaultClassifierThresholds())
	require.Equal(t, wits.Connection, c.Classify(0, 0, 0))
}

func TestParamTracker_ResetsOnChange(t *testing.T) {
	pt := wits.NewParamTracker(0.5)
	pt.Observe(20, 120, 10.5, 1)
	for i := 0; i < 5; i++ {
		pt.Observe(20, 120, 10.5, 1)
	}
	require.Equal(t, int64(5), pt.SecondsSinceChange())

	pt.Observe(25, 120, 10.5, 1)
	require.Equal(t, int64(0), pt.SecondsSinceChange())
}

func TestPacket_FeaturesOrder(t *testing.T) {
	p := wits.Packet{WOB: 1, ROP: 2, RPM: 3, Torque: 4}
	f := p.Features()
	require.Equal(t, 16, len(f))
	require.Equal(t, 1.0, f[0])
	require.Equal(t, 2.0, f[1])
}
