package cfc

// TrainConfig bundles the constants governing one network's backprop depth,
// gradient clipping, and learning-rate schedule. Fast and slow networks
// train at different depths and decay rates: the fast network reacts over
// a short window with a quickly-decaying trace, the slow network integrates
// a longer window more gently.
type TrainConfig struct {
	BPTTDepth    int
	Decay        float64
	ClipNorm     float64
	LRInitial    float64
	LRFloor      float64
	LRDecay      float64
	Beta1        float64
	Beta2        float64
	Epsilon      float64
}

// FastConfig is the training schedule for the 128-neuron fast network.
func FastConfig() TrainConfig {
	return TrainConfig{
		BPTTDepth: 4,
		Decay:     0.7,
		ClipNorm:  5.0,
		LRInitial: 0.001,
		LRFloor:   0.0001,
		LRDecay:   0.9999,
		Beta1:     0.9,
		Beta2:     0.999,
		Epsilon:   1e-8,
	}
}

// SlowConfig is the training schedule for the 68-neuron slow network.
func SlowConfig() TrainConfig {
	return TrainConfig{
		BPTTDepth: 8,
		Decay:     0.85,
		ClipNorm:  5.0,
		LRInitial: 0.0001,
		LRFloor:   0.00001,
		LRDecay:   0.9999,
		Beta1:     0.9,
		Beta2:     0.999,
		Epsilon:   1e-8,
	}
}
