// Package federation implements the federated checkpoint protocol: weighted
// averaging of neural weights across rigs, parallel Welford merge of
// normalizer statistics, and the fleet hub RPC surface rigs use to publish
// and pull shared models.
//
// The merge math is grounded directly on the teacher's federated baseline
// gossip: the same weighted-average-by-sample-count and parallel Welford
// combination formula, generalized from a single mean/covariance-diagonal
// baseline to an entire CfC weight tensor plus its per-feature normalizer.
package federation

import (
	"fmt"

	"github.com/ashton-dyke/sairen-os/internal/cfc"
	"github.com/ashton-dyke/sairen-os/internal/normalizer"
)

// FederatedAverage combines k>=2 DualCfcCheckpoints with identical topology
// into a single checkpoint: neural weights are averaged weighted by each
// rig's packets_processed, normalizers are merged via the parallel Welford
// combination, and the optimizer state is reset fresh rather than averaged.
func FederatedAverage(checkpoints []*cfc.DualCheckpoint) (*cfc.DualCheckpoint, error) {
	if len(checkpoints) < 2 {
		return nil, fmt.Errorf("federation: need at least 2 checkpoints, got %d", len(checkpoints))
	}

	totalPackets := int64(0)
	weights := make([]float64, len(checkpoints))
	for _, ck := range checkpoints {
		totalPackets += ck.Metadata.PacketsProcessed
	}
	if totalPackets == 0 {
		return nil, fmt.Errorf("federation: all input checkpoints report zero packets processed")
	}
	for i, ck := range checkpoints {
		weights[i] = float64(ck.Metadata.PacketsProcessed) / float64(totalPackets)
	}

	fastCks := make([]*cfc.NetworkCheckpoint, len(checkpoints))
	slowCks := make([]*cfc.NetworkCheckpoint, len(checkpoints))
	for i, ck := range checkpoints {
		fastCks[i] = ck.Fast
		slowCks[i] = ck.Slow
	}

	fast, err := averageNetwork(fastCks, weights)
	if err != nil {
		return nil, fmt.Errorf("federation: fast network: %w", err)
	}
	slow, err := averageNetwork(slowCks, weights)
	if err != nil {
		return nil, fmt.Errorf("federation: slow network: %w", err)
	}

	avgLoss := 0.0
	anyCalibrated := false
	for i, ck := range checkpoints {
		avgLoss += weights[i] * ck.Metadata.AvgLoss
		anyCalibrated = anyCalibrated || ck.Metadata.IsCalibrated
	}

	return &cfc.DualCheckpoint{
		Version: 1,
		Fast:    fast,
		Slow:    slow,
		Metadata: cfc.DualMetadata{
			RigID:            "federated",
			WellID:           "fleet",
			PacketsProcessed: totalPackets,
			AvgLoss:          avgLoss,
			IsCalibrated:     anyCalibrated,
		},
	}, nil
}

// averageNetwork builds one federated NetworkCheckpoint from k rig
// checkpoints of the same sub-network (all fast, or all slow).
func averageNetwork(cks []*cfc.NetworkCheckpoint, weights []float64) (*cfc.NetworkCheckpoint, error) {
	for i := 1; i < len(cks); i++ {
		if cks[i].Weights.NumParams() != cks[0].Weights.NumParams() {
			return nil, fmt.Errorf("topology mismatch: %d params vs %d params",
				cks[i].Weights.NumParams(), cks[0].Weights.NumParams())
		}
	}

	avgWeights, err := averageWeights(cks, weights)
	if err != nil {
		return nil, err
	}

	norm := cks[0].Normalizer
	for i := 1; i < len(cks); i++ {
		norm = MergeNormalizers(norm, cks[i].Normalizer)
	}

	packets := int64(0)
	errorEMA := 0.0
	for i, ck := range cks {
		packets += ck.PacketsProcessed
		errorEMA += weights[i] * ck.ErrorEMA
	}

	return &cfc.NetworkCheckpoint{
		Config:           cks[0].Config,
		Seed:             cks[0].Seed,
		Weights:          avgWeights,
		Normalizer:       norm,
		Optimizer:        freshOptimizerState(avgWeights, cks[0].Config),
		PacketsProcessed: packets,
		ErrorEMA:         errorEMA,
	}, nil
}

func freshOptimizerState(wt *cfc.Weights, cfg cfc.NetworkConfig) *cfc.OptimizerState {
	return cfc.NewAdam(wt, cfg.Train).State()
}

func averageWeights(cks []*cfc.NetworkCheckpoint, w []float64) (*cfc.Weights, error) {
	first := cks[0].Weights
	out := &cfc.Weights{
		WIn:      make([]float64, len(first.WIn)),
		Offset:   append([]int(nil), first.Offset...),
		Count:    append([]int(nil), first.Count...),
		WTau:     make([]float64, len(first.WTau)),
		WF:       make([]float64, len(first.WF)),
		WG:       make([]float64, len(first.WG)),
		BTau:     make([]float64, len(first.BTau)),
		BF:       make([]float64, len(first.BF)),
		BG:       make([]float64, len(first.BG)),
		WOut:     make([]float64, len(first.WOut)),
		BOut:     make([]float64, len(first.BOut)),
		NumMotor: first.NumMotor,
	}

	accumulate := func(dst []float64, pick func(*cfc.Weights) []float64) error {
		for i, ck := range cks {
			src := pick(ck.Weights)
			if len(src) != len(dst) {
				return fmt.Errorf("parameter slice length mismatch between checkpoints")
			}
			for j, v := range src {
				dst[j] += w[i] * v
			}
		}
		return nil
	}

	fields := []struct {
		dst  []float64
		pick func(*cfc.Weights) []float64
	}{
		{out.WIn, func(wt *cfc.Weights) []float64 { return wt.WIn }},
		{out.WTau, func(wt *cfc.Weights) []float64 { return wt.WTau }},
		{out.WF, func(wt *cfc.Weights) []float64 { return wt.WF }},
		{out.WG, func(wt *cfc.Weights) []float64 { return wt.WG }},
		{out.BTau, func(wt *cfc.Weights) []float64 { return wt.BTau }},
		{out.BF, func(wt *cfc.Weights) []float64 { return wt.BF }},
		{out.BG, func(wt *cfc.Weights) []float64 { return wt.BG }},
		{out.WOut, func(wt *cfc.Weights) []float64 { return wt.WOut }},
		{out.BOut, func(wt *cfc.Weights) []float64 { return wt.BOut }},
	}
	for _, f := range fields {
		if err := accumulate(f.dst, f.pick); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// MergeNormalizers combines two Welford normalizers using the parallel
// combination formula: the merged mean/variance are exact, not an
// approximation, regardless of how the two input sample sets were split.
func MergeNormalizers(a, b *normalizer.Normalizer) *normalizer.Normalizer {
	if a.Count == 0 {
		return b
	}
	if b.Count == 0 {
		return a
	}
	n := a.NumFeatures()
	out := normalizer.New(n)
	nA, nB := float64(a.Count), float64(b.Count)
	out.Count = a.Count + b.Count
	for i := 0; i < n; i++ {
		delta := b.Mean[i] - a.Mean[i]
		out.Mean[i] = (nA*a.Mean[i] + nB*b.Mean[i]) / (nA + nB)
		out.M2[i] = a.M2[i] + b.M2[i] + delta*delta*nA*nB/(nA+nB)
	}
	return out
}
