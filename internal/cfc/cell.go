// cell.go — one forward step of the time-gated CfC recurrent update
// (closed-form continuous-time gating over NCP-sparse wiring).
package cfc

import (
	"math"

	"github.com/ashton-dyke/sairen-os/internal/wiring"
)

func sigmoid(x float64) float64 { return 1.0 / (1.0 + math.Exp(-x)) }

func softplus(x float64) float64 {
	// Numerically stable softplus: log(1+e^x), computed as
	// max(x,0) + log1p(e^-|x|) to avoid overflow for large |x|.
	if x > 0 {
		return x + math.Log1p(math.Exp(-x))
	}
	return math.Log1p(math.Exp(x))
}

// Forward runs one step of the CfC cell: builds sensory activations from
// the raw input, sweeps non-sensory neurons in ascending index order
// (matching the DAG of inter-group edges), and projects motor outputs.
// Returns the new hidden state and the Cache needed for the next train step.
func Forward(w *wiring.Wiring, wt *Weights, hPrev []float64, x []float64, dt float64) ([]float64, *Cache) {
	n := w.NumNeurons()
	c := newCache(n, x, dt)
	copy(c.HPrev, hPrev)
	copy(c.HNew, hPrev)

	// Step 1: sensory activations driven only by W_in.
	for feat, neurons := range w.FeatureMap {
		if feat >= len(x) {
			break
		}
		for _, k := range neurons {
			c.HNew[k] = x[feat] * wt.WIn[k]
		}
	}

	// Step 2: non-sensory neurons in ascending index order.
	for nrn := w.SensoryEnd; nrn < n; nrn++ {
		src := w.Incoming[nrn]
		o := wt.Offset[nrn]

		preTau := wt.BTau[nrn]
		preF := wt.BF[nrn]
		preG := wt.BG[nrn]
		for j, s := range src {
			h := c.HNew[s]
			preTau += wt.WTau[o+j] * h
			preF += wt.WF[o+j] * h
			preG += wt.WG[o+j] * h
		}

		tau := softplus(preTau)
		f := sigmoid(-dt * tau * preF)
		g := math.Tanh(preG)
		hNew := f*g + (1-f)*c.HPrev[nrn]

		c.PreTau[nrn], c.PreF[nrn], c.PreG[nrn] = preTau, preF, preG
		c.Tau[nrn], c.F[nrn], c.G[nrn] = tau, f, g
		c.HNew[nrn] = hNew
	}

	// Step 3: output projection over motor neurons.
	for o := 0; o < NumOutputs; o++ {
		y := wt.BOut[o]
		for m, motorIdx := range w.MotorIndices {
			y += wt.WOut[o*wt.NumMotor+m] * c.HNew[motorIdx]
		}
		c.Output[o] = y
	}

	return c.HNew, c
}
