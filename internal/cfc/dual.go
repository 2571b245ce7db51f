// dual.go — the fast/slow dual-network wrapper that SAIREN-OS actually runs
// in production: two CfC networks processing the same packet at different
// time constants, combined into one anomaly verdict.
package cfc

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/ashton-dyke/sairen-os/internal/wiring"
)

// DualResult is the combined output of one packet processed by both
// networks.
type DualResult struct {
	AnomalyScore     float64
	FeatureSurprises []FeatureSurprise
	FeatureSigmas    []FeatureSigma
	MotorOutputs     []float64
}

// Dual runs a Fast and a Slow CfC network side by side. The slow network's
// seed is always the fast network's seed plus 100, so a single fast seed
// fully determines the pair.
type Dual struct {
	Fast *CfcNetwork
	Slow *CfcNetwork
}

// NewDual constructs a fast/slow pair from one seed.
func NewDual(seed uint64) *Dual {
	fastCfg := NetworkConfig{Groups: wiring.DefaultFastGroups(), Train: FastConfig()}
	slowCfg := NetworkConfig{Groups: wiring.DefaultSlowGroups(), Train: SlowConfig()}
	return &Dual{
		Fast: New(seed, fastCfg),
		Slow: New(seed+100, slowCfg),
	}
}

// Process runs both networks on the same packet concurrently and combines
// their scores: anomaly_score is the max of the two, feature_surprises come
// from whichever network scored higher, feature_sigmas always come from
// Slow (the stable baseline), and motor_outputs always come from Fast (the
// responsive network).
func (d *Dual) Process(ctx context.Context, raw []float64, dt float64, featureNames []string) (DualResult, error) {
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		d.Fast.Process(raw, dt)
		return nil
	})
	g.Go(func() error {
		d.Slow.Process(raw, dt)
		return nil
	})
	if err := g.Wait(); err != nil {
		return DualResult{}, err
	}

	fastScore := d.Fast.AnomalyScore()
	slowScore := d.Slow.AnomalyScore()

	res := DualResult{
		AnomalyScore:  math.Max(fastScore, slowScore),
		FeatureSigmas: d.Slow.AllFeatureSigmas(featureNames),
		MotorOutputs:  motorOutputs(d.Fast),
	}
	if fastScore >= slowScore {
		res.FeatureSurprises = d.Fast.FeatureSurprises(featureNames)
	} else {
		res.FeatureSurprises = d.Slow.FeatureSurprises(featureNames)
	}
	return res, nil
}

func motorOutputs(net *CfcNetwork) []float64 {
	if len(net.CacheHist) == 0 {
		return nil
	}
	newest := net.CacheHist[0]
	out := make([]float64, len(net.Wiring.MotorIndices))
	for i, idx := range net.Wiring.MotorIndices {
		out[i] = newest.HNew[idx]
	}
	return out
}

// DualCheckpoint is the serializable snapshot of a fast/slow pair, plus
// fleet-level metadata attached at snapshot time.
type DualCheckpoint struct {
	Version  int                `json:"version"`
	Fast     *NetworkCheckpoint `json:"fast"`
	Slow     *NetworkCheckpoint `json:"slow"`
	Metadata DualMetadata       `json:"metadata"`
}

// DualMetadata identifies where and when a DualCheckpoint was produced.
type DualMetadata struct {
	RigID            string  `json:"rig_id"`
	WellID           string  `json:"well_id"`
	Timestamp        int64   `json:"timestamp"`
	PacketsProcessed int64   `json:"packets_processed"`
	AvgLoss          float64 `json:"avg_loss"`
	IsCalibrated     bool    `json:"is_calibrated"`
}

// Snapshot captures both networks plus fleet identification metadata.
func (d *Dual) Snapshot(rigID, wellID string, timestamp int64) *DualCheckpoint {
	packets := d.Fast.PacketsProcessed + d.Slow.PacketsProcessed
	var avgLoss float64
	if d.Fast.TrainSteps+d.Slow.TrainSteps > 0 {
		avgLoss = (d.Fast.TotalLoss + d.Slow.TotalLoss) / float64(d.Fast.TrainSteps+d.Slow.TrainSteps)
	}
	return &DualCheckpoint{
		Version: 1,
		Fast:    d.Fast.Snapshot(),
		Slow:    d.Slow.Snapshot(),
		Metadata: DualMetadata{
			RigID:            rigID,
			WellID:           wellID,
			Timestamp:        timestamp,
			PacketsProcessed: packets,
			AvgLoss:          avgLoss,
			IsCalibrated:     d.Fast.IsCalibrated() || d.Slow.IsCalibrated(),
		},
	}
}

// RestoreDual rebuilds a fast/slow pair from a checkpoint.
func RestoreDual(ck *DualCheckpoint) (*Dual, error) {
	fast, err := Restore(ck.Fast)
	if err != nil {
		return nil, err
	}
	slow, err := Restore(ck.Slow)
	if err != nil {
		return nil, err
	}
	return &Dual{Fast: fast, Slow: slow}, nil
}
