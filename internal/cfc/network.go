// network.go — the single-owner CfC network: wiring + weights + normalizer
// + optimizer + runtime state, wrapped with calibrated anomaly scoring.
package cfc

import (
	"math"
	"sort"

	"github.com/ashton-dyke/sairen-os/internal/normalizer"
	"github.com/ashton-dyke/sairen-os/internal/wiring"
)

const (
	calibrationPackets = 500
	minTrainStepsScore = 2
	minTrainStepsSurp  = 10
	surpriseMultiplier = 1.5
	featureErrorAlpha  = 0.01
	minFeatureStd      = 1e-8
)

// FeatureSurprise names one feature whose recent prediction error has
// exceeded its running error EMA by more than surpriseMultiplier.
type FeatureSurprise struct {
	Index     int
	Name      string
	Magnitude float64
}

// FeatureSigma reports, for every feature, how many EMA-derived standard
// deviations its latest error sits from the running error mean.
type FeatureSigma struct {
	Index int
	Name  string
	Sigma float64
}

// NetworkConfig bundles everything needed to construct a CfcNetwork
// deterministically: the NCP group sizes and the BPTT/Adam schedule.
type NetworkConfig struct {
	Groups wiring.GroupSizes
	Train  TrainConfig
}

// CfcNetwork is the single owner of one wiring/weights pair and its entire
// runtime state: hidden state, bounded cache history, and the error EMAs
// that drive calibrated anomaly scoring.
type CfcNetwork struct {
	Seed   uint64
	Cfg    NetworkConfig
	Wiring *wiring.Wiring
	Weight *Weights
	Norm   *normalizer.Normalizer
	Opt    *Adam

	HiddenState []float64
	CacheHist   []*Cache // newest at index 0

	PacketsProcessed int64
	TrainSteps       int64
	TotalLoss        float64

	ErrorEMA   float64
	ErrorSqEMA float64
	LastRMSE   float64

	FeatureErrorEMA   []float64
	FeatureErrorSqEMA []float64
	LastFeatureErrors []float64
}

// New constructs a CfcNetwork from a seed and config; wiring and weight
// initialization are both deterministic functions of seed.
func New(seed uint64, cfg NetworkConfig) *CfcNetwork {
	w := wiring.New(seed, cfg.Groups)
	wt := NewWeights(w)
	wt.Init(seed)
	n := w.NumNeurons()
	net := &CfcNetwork{
		Seed:              seed,
		Cfg:               cfg,
		Wiring:            w,
		Weight:            wt,
		Norm:              normalizer.New(NumFeatures),
		Opt:               NewAdam(wt, cfg.Train),
		HiddenState:       make([]float64, n),
		FeatureErrorEMA:   make([]float64, NumFeatures),
		FeatureErrorSqEMA: make([]float64, NumFeatures),
		LastFeatureErrors: make([]float64, NumFeatures),
	}
	return net
}

// Process runs one packet through the network: normalize, train against the
// previous step's prediction (if any), forward, and push the new cache.
func (net *CfcNetwork) Process(raw []float64, dt float64) {
	normalized := net.Norm.NormalizeAndUpdate(raw)

	if len(net.CacheHist) > 0 {
		prev := net.CacheHist[0]
		n := NumOutputs
		if len(normalized) < n {
			n = len(normalized)
		}
		sqSum := 0.0
		for i := 0; i < n; i++ {
			errI := prev.Output[i] - normalized[i]
			net.LastFeatureErrors[i] = errI
			abs := math.Abs(errI)
			net.FeatureErrorEMA[i] = (1-featureErrorAlpha)*net.FeatureErrorEMA[i] + featureErrorAlpha*abs
			net.FeatureErrorSqEMA[i] = (1-featureErrorAlpha)*net.FeatureErrorSqEMA[i] + featureErrorAlpha*errI*errI
			sqSum += errI * errI
		}
		rmse := math.Sqrt(sqSum / float64(n))
		net.LastRMSE = rmse
		net.ErrorEMA = (1-featureErrorAlpha)*net.ErrorEMA + featureErrorAlpha*rmse
		net.ErrorSqEMA = (1-featureErrorAlpha)*net.ErrorSqEMA + featureErrorAlpha*rmse*rmse

		loss := Train(net.CacheHist, normalized, net.Wiring, net.Weight, net.Opt, net.Cfg.Train)
		net.TotalLoss += loss
		net.TrainSteps++
	}

	hNew, cache := Forward(net.Wiring, net.Weight, net.HiddenState, normalized, dt)
	net.HiddenState = hNew

	net.CacheHist = append([]*Cache{cache}, net.CacheHist...)
	if len(net.CacheHist) > net.Cfg.Train.BPTTDepth {
		net.CacheHist = net.CacheHist[:net.Cfg.Train.BPTTDepth]
	}
	net.PacketsProcessed++
}

// IsCalibrated reports whether enough packets have been processed for the
// anomaly score to be meaningful.
func (net *CfcNetwork) IsCalibrated() bool { return net.PacketsProcessed >= calibrationPackets }

// AnomalyScore returns 0 until the network is calibrated and has taken at
// least two training steps; otherwise a sigmoid-squashed z-score of the
// latest RMSE against the running error distribution.
func (net *CfcNetwork) AnomalyScore() float64 {
	if !net.IsCalibrated() || net.TrainSteps < minTrainStepsScore {
		return 0
	}
	variance := math.Max(net.ErrorSqEMA-net.ErrorEMA*net.ErrorEMA, 1e-12)
	std := math.Sqrt(variance)
	z := (net.LastRMSE - net.ErrorEMA) / std
	return sigmoid(z - 2)
}

// FeatureSurprises reports, in descending order of magnitude, the features
// whose latest error exceeds surpriseMultiplier times their running EMA.
// Returns nil before minTrainStepsSurp training steps.
func (net *CfcNetwork) FeatureSurprises(names []string) []FeatureSurprise {
	if net.TrainSteps < minTrainStepsSurp {
		return nil
	}
	var out []FeatureSurprise
	for i, errI := range net.LastFeatureErrors {
		mag := math.Abs(errI)
		if mag > surpriseMultiplier*net.FeatureErrorEMA[i] {
			out = append(out, FeatureSurprise{Index: i, Name: nameAt(names, i), Magnitude: mag})
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Magnitude > out[b].Magnitude })
	return out
}

// AllFeatureSigmas returns, for every feature, its signed deviation from
// the running error EMA measured in EMA-derived standard deviations.
func (net *CfcNetwork) AllFeatureSigmas(names []string) []FeatureSigma {
	out := make([]FeatureSigma, len(net.LastFeatureErrors))
	for i, errI := range net.LastFeatureErrors {
		abs := math.Abs(errI)
		ema := net.FeatureErrorEMA[i]
		variance := math.Max(net.FeatureErrorSqEMA[i]-ema*ema, 1e-12)
		std := math.Max(math.Sqrt(variance), minFeatureStd)
		out[i] = FeatureSigma{Index: i, Name: nameAt(names, i), Sigma: (abs - ema) / std}
	}
	return out
}

func nameAt(names []string, i int) string {
	if i < len(names) {
		return names[i]
	}
	return ""
}

// ResetState clears hidden state, cache history, and all error EMAs while
// preserving the learned weights and normalizer statistics.
func (net *CfcNetwork) ResetState() {
	n := net.Wiring.NumNeurons()
	net.HiddenState = make([]float64, n)
	net.CacheHist = nil
	net.ErrorEMA = 0
	net.ErrorSqEMA = 0
	net.LastRMSE = 0
	net.TotalLoss = 0
	net.TrainSteps = 0
	for i := range net.FeatureErrorEMA {
		net.FeatureErrorEMA[i] = 0
		net.FeatureErrorSqEMA[i] = 0
		net.LastFeatureErrors[i] = 0
	}
}

// Reset recreates the network from scratch with the same seed and config:
// fresh wiring, fresh weights, fresh normalizer and optimizer.
func (net *CfcNetwork) Reset() {
	fresh := New(net.Seed, net.Cfg)
	*net = *fresh
}
