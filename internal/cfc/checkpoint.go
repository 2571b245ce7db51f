package cfc

import (
	"fmt"

	"github.com/ashton-dyke/sairen-os/internal/normalizer"
)

// OptimizerState is the JSON-serializable form of an Adam optimizer's
// moment estimates, used only by checkpointing; normal training never
// touches it directly.
type OptimizerState struct {
	Step int     `json:"step"`
	LR   float64 `json:"lr"`

	MWIn, VWIn   []float64 `json:"m_w_in,omitempty"`
	MWTau, VWTau []float64 `json:"m_w_tau,omitempty"`
	MWF, VWF     []float64 `json:"m_w_f,omitempty"`
	MWG, VWG     []float64 `json:"m_w_g,omitempty"`
	MBTau, VBTau []float64 `json:"m_b_tau,omitempty"`
	MBF, VBF     []float64 `json:"m_b_f,omitempty"`
	MBG, VBG     []float64 `json:"m_b_g,omitempty"`
	MWOut, VWOut []float64 `json:"m_w_out,omitempty"`
	MBOut, VBOut []float64 `json:"m_b_out,omitempty"`
}

// State captures the optimizer's current moment estimates.
func (a *Adam) State() *OptimizerState {
	return &OptimizerState{
		Step: a.t, LR: a.lr,
		MWIn: a.mWIn, VWIn: a.vWIn,
		MWTau: a.mWTau, VWTau: a.vWTau,
		MWF: a.mWF, VWF: a.vWF,
		MWG: a.mWG, VWG: a.vWG,
		MBTau: a.mBTau, VBTau: a.vBTau,
		MBF: a.mBF, VBF: a.vBF,
		MBG: a.mBG, VBG: a.vBG,
		MWOut: a.mWOut, VWOut: a.vWOut,
		MBOut: a.mBOut, VBOut: a.vBOut,
	}
}

// RestoreState overwrites the optimizer's moment estimates from s.
func (a *Adam) RestoreState(s *OptimizerState) {
	a.t, a.lr = s.Step, s.LR
	a.mWIn, a.vWIn = s.MWIn, s.VWIn
	a.mWTau, a.vWTau = s.MWTau, s.VWTau
	a.mWF, a.vWF = s.MWF, s.VWF
	a.mWG, a.vWG = s.MWG, s.VWG
	a.mBTau, a.vBTau = s.MBTau, s.VBTau
	a.mBF, a.vBF = s.MBF, s.VBF
	a.mBG, a.vBG = s.MBG, s.VBG
	a.mWOut, a.vWOut = s.MWOut, s.VWOut
	a.mBOut, a.vBOut = s.MBOut, s.VBOut
}

// NetworkCheckpoint is the serializable snapshot of one CfcNetwork: enough
// to restore weights, normalizer statistics, and optimizer momentum
// exactly, with runtime hidden state and cache history deliberately
// dropped (they are zeroed on restore).
type NetworkCheckpoint struct {
	Config           NetworkConfig          `json:"config"`
	Seed             uint64                 `json:"seed"`
	Weights          *Weights               `json:"weights"`
	Normalizer       *normalizer.Normalizer `json:"normalizer"`
	Optimizer        *OptimizerState        `json:"optimizer"`
	PacketsProcessed int64                  `json:"packets_processed"`
	ErrorEMA         float64                `json:"error_ema"`
}

// Snapshot captures everything needed to restore this network elsewhere.
func (net *CfcNetwork) Snapshot() *NetworkCheckpoint {
	return &NetworkCheckpoint{
		Config:           net.Cfg,
		Seed:             net.Seed,
		Weights:          net.Weight,
		Normalizer:       net.Norm,
		Optimizer:        net.Opt.State(),
		PacketsProcessed: net.PacketsProcessed,
		ErrorEMA:         net.ErrorEMA,
	}
}

// Restore rebuilds a CfcNetwork from a checkpoint. Wiring is rebuilt fresh
// from seed+config (it is never serialized); the checkpoint's weight count
// must match the rebuilt wiring's expected parameter count, or restore
// fails rather than silently producing a mismatched network.
func Restore(ck *NetworkCheckpoint) (*CfcNetwork, error) {
	net := New(ck.Seed, ck.Config)
	if ck.Weights.NumParams() != net.Weight.NumParams() {
		return nil, fmt.Errorf("cfc: checkpoint has %d params, wiring for this config expects %d",
			ck.Weights.NumParams(), net.Weight.NumParams())
	}
	net.Weight = ck.Weights
	net.Norm = ck.Normalizer
	net.Opt = NewAdam(net.Weight, net.Cfg.Train)
	net.Opt.RestoreState(ck.Optimizer)
	net.PacketsProcessed = ck.PacketsProcessed
	net.ErrorEMA = ck.ErrorEMA
	// Hidden state starts zeroed; cache history starts empty.
	return net, nil
}
