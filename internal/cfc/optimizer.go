package cfc

import "math"

// Grads mirrors Weights' shape, accumulating partial derivatives over one
// BPTT window before a single Adam step is applied.
type Grads struct {
	WIn  []float64
	WTau []float64
	WF   []float64
	WG   []float64
	BTau []float64
	BF   []float64
	BG   []float64
	WOut []float64
	BOut []float64
}

func newGrads(wt *Weights) *Grads {
	return &Grads{
		WIn:  make([]float64, len(wt.WIn)),
		WTau: make([]float64, len(wt.WTau)),
		WF:   make([]float64, len(wt.WF)),
		WG:   make([]float64, len(wt.WG)),
		BTau: make([]float64, len(wt.BTau)),
		BF:   make([]float64, len(wt.BF)),
		BG:   make([]float64, len(wt.BG)),
		WOut: make([]float64, len(wt.WOut)),
		BOut: make([]float64, len(wt.BOut)),
	}
}

// norm returns the global L2 norm across every gradient slice.
func (g *Grads) norm() float64 {
	sum := 0.0
	for _, s := range [][]float64{g.WIn, g.WTau, g.WF, g.WG, g.BTau, g.BF, g.BG, g.WOut, g.BOut} {
		for _, v := range s {
			sum += v * v
		}
	}
	return math.Sqrt(sum)
}

// clip rescales every gradient slice in place so the global L2 norm does
// not exceed maxNorm.
func (g *Grads) clip(maxNorm float64) {
	n := g.norm()
	if n <= maxNorm || n == 0 {
		return
	}
	scale := maxNorm / n
	for _, s := range [][]float64{g.WIn, g.WTau, g.WF, g.WG, g.BTau, g.BF, g.BG, g.WOut, g.BOut} {
		for i := range s {
			s[i] *= scale
		}
	}
}

// Adam holds first/second moment estimates for every parameter slice,
// matching Weights' shape exactly, plus the step counter and current
// learning rate.
type Adam struct {
	cfg TrainConfig
	t   int
	lr  float64

	mWIn, vWIn   []float64
	mWTau, vWTau []float64
	mWF, vWF     []float64
	mWG, vWG     []float64
	mBTau, vBTau []float64
	mBF, vBF     []float64
	mBG, vBG     []float64
	mWOut, vWOut []float64
	mBOut, vBOut []float64
}

// NewAdam allocates zero moment state sized to wt and seeds the learning
// rate from cfg.
func NewAdam(wt *Weights, cfg TrainConfig) *Adam {
	return &Adam{
		cfg:   cfg,
		lr:    cfg.LRInitial,
		mWIn:  make([]float64, len(wt.WIn)), vWIn: make([]float64, len(wt.WIn)),
		mWTau: make([]float64, len(wt.WTau)), vWTau: make([]float64, len(wt.WTau)),
		mWF:   make([]float64, len(wt.WF)), vWF: make([]float64, len(wt.WF)),
		mWG:   make([]float64, len(wt.WG)), vWG: make([]float64, len(wt.WG)),
		mBTau: make([]float64, len(wt.BTau)), vBTau: make([]float64, len(wt.BTau)),
		mBF:   make([]float64, len(wt.BF)), vBF: make([]float64, len(wt.BF)),
		mBG:   make([]float64, len(wt.BG)), vBG: make([]float64, len(wt.BG)),
		mWOut: make([]float64, len(wt.WOut)), vWOut: make([]float64, len(wt.WOut)),
		mBOut: make([]float64, len(wt.BOut)), vBOut: make([]float64, len(wt.BOut)),
	}
}

// LR returns the current effective learning rate.
func (a *Adam) LR() float64 { return a.lr }

// Step applies one Adam update to wt using grads, then decays the learning
// rate toward cfg.LRFloor.
func (a *Adam) Step(wt *Weights, g *Grads) {
	a.t++
	b1, b2, eps := a.cfg.Beta1, a.cfg.Beta2, a.cfg.Epsilon
	biasCorr1 := 1 - math.Pow(b1, float64(a.t))
	biasCorr2 := 1 - math.Pow(b2, float64(a.t))
	lrT := a.lr * math.Sqrt(biasCorr2) / biasCorr1

	update := func(w, grad, m, v []float64) {
		for i := range w {
			m[i] = b1*m[i] + (1-b1)*grad[i]
			v[i] = b2*v[i] + (1-b2)*grad[i]*grad[i]
			w[i] -= lrT * m[i] / (math.Sqrt(v[i]) + eps)
		}
	}

	update(wt.WIn, g.WIn, a.mWIn, a.vWIn)
	update(wt.WTau, g.WTau, a.mWTau, a.vWTau)
	update(wt.WF, g.WF, a.mWF, a.vWF)
	update(wt.WG, g.WG, a.mWG, a.vWG)
	update(wt.BTau, g.BTau, a.mBTau, a.vBTau)
	update(wt.BF, g.BF, a.mBF, a.vBF)
	update(wt.BG, g.BG, a.mBG, a.vBG)
	update(wt.WOut, g.WOut, a.mWOut, a.vWOut)
	update(wt.BOut, g.BOut, a.mBOut, a.vBOut)

	a.lr = math.Max(a.lr*a.cfg.LRDecay, a.cfg.LRFloor)
}
