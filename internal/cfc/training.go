package cfc

import (
	"github.com/ashton-dyke/sairen-os/internal/wiring"
)

// featureWeight returns the loss weight for output feature o: the primary
// eight features (WOB, ROP, RPM, torque, MSE, SPP, d-exponent, hookload) count twice
// as heavily toward the prediction loss as the remaining derived features.
func featureWeight(o int) float64 {
	if o < NumOutputs/2 {
		return 2.0
	}
	return 1.0
}

func sumWeights() float64 {
	sum := 0.0
	for o := 0; o < NumOutputs; o++ {
		sum += featureWeight(o)
	}
	return sum
}

// Train runs one manual backprop-through-time pass given the cache history
// (newest cache first, at most cfg.BPTTDepth long) and the current
// normalized feature vector as the training target. Only the newest cache's
// output is compared against target; the resulting gradient is then
// propagated backward through the remaining cached steps, picking up an
// extra factor of cfg.Decay per step further back in time. It accumulates
// gradients across the whole window, clips them to a global L2 norm, and
// applies one Adam step. Returns the feature-weighted MSE loss at the
// newest step.
func Train(cacheHistory []*Cache, target []float64, w *wiring.Wiring, wt *Weights, adam *Adam, cfg TrainConfig) float64 {
	n := w.NumNeurons()
	grads := newGrads(wt)

	wSum := sumWeights()
	newest := cacheHistory[0]

	loss := 0.0
	dOutput := make([]float64, NumOutputs)
	for o := 0; o < NumOutputs; o++ {
		fw := featureWeight(o)
		diff := newest.Output[o] - target[o]
		loss += fw * diff * diff
		dOutput[o] = 2 * fw * diff / wSum
	}

	dH := make([]float64, n)
	for o := 0; o < NumOutputs; o++ {
		for m, motorIdx := range w.MotorIndices {
			grads.WOut[o*wt.NumMotor+m] += dOutput[o] * newest.HNew[motorIdx]
			dH[motorIdx] += dOutput[o] * wt.WOut[o*wt.NumMotor+m]
		}
		grads.BOut[o] += dOutput[o]
	}

	for t, c := range cacheHistory {
		dHPrevAccum := make([]float64, n)

		for nrn := n - 1; nrn >= w.SensoryEnd; nrn-- {
			f := c.F[nrn]
			g := c.G[nrn]
			tau := c.Tau[nrn]
			preTau := c.PreTau[nrn]
			hPrevN := c.HPrev[nrn]

			dG := dH[nrn] * f
			dF := dH[nrn] * (g - hPrevN)
			dHPrevAccum[nrn] += dH[nrn] * (1 - f)

			dPreG := dG * (1 - g*g)
			dZ := dF * f * (1 - f)
			dPreTau := dZ * (-c.Dt * c.PreF[nrn]) * sigmoid(preTau)
			dPreF := dZ * (-c.Dt * tau)

			grads.BTau[nrn] += dPreTau
			grads.BF[nrn] += dPreF
			grads.BG[nrn] += dPreG

			o := wt.Offset[nrn]
			for j, s := range w.Incoming[nrn] {
				var hUsed float64
				if s < nrn {
					hUsed = c.HNew[s]
				} else {
					hUsed = c.HPrev[s]
				}
				grads.WTau[o+j] += dPreTau * hUsed
				grads.WF[o+j] += dPreF * hUsed
				grads.WG[o+j] += dPreG * hUsed

				contrib := dPreTau*wt.WTau[o+j] + dPreF*wt.WF[o+j] + dPreG*wt.WG[o+j]
				if s < nrn {
					dH[s] += contrib
				} else {
					dHPrevAccum[s] += contrib
				}
			}
		}

		for feat, neurons := range w.FeatureMap {
			if feat >= len(c.X) {
				break
			}
			for _, k := range neurons {
				grads.WIn[k] += dH[k] * c.X[feat]
			}
		}

		if t == len(cacheHistory)-1 {
			break
		}
		// Step one further back in time: the next-older cache supplied this
		// step's h_prev, so its contribution picks up one more factor of decay.
		for i := range dHPrevAccum {
			dHPrevAccum[i] *= cfg.Decay
		}
		dH = dHPrevAccum
	}

	grads.clip(cfg.ClipNorm)
	adam.Step(wt, grads)

	return loss / wSum
}
