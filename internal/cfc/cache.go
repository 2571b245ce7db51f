package cfc

// Cache holds every intermediate value produced by one forward pass, needed
// by a later training step's BPTT and then discarded once it falls out of
// the backprop depth window.
type Cache struct {
	X      []float64 // raw input feature vector
	Dt     float64
	HPrev  []float64 // hidden state entering this step
	HNew   []float64 // hidden state leaving this step (post-gate, all neurons)
	PreTau []float64 // pre-activation, indexed by neuron (sensory entries unused)
	PreF   []float64
	PreG   []float64
	Tau    []float64 // post-softplus
	F      []float64 // post-sigmoid gate
	G      []float64 // post-tanh candidate
	Output []float64 // NumOutputs-wide output projection
}

// newCache allocates a Cache sized for numNeurons neurons.
func newCache(numNeurons int, x []float64, dt float64) *Cache {
	return &Cache{
		X:      append([]float64(nil), x...),
		Dt:     dt,
		HPrev:  make([]float64, numNeurons),
		HNew:   make([]float64, numNeurons),
		PreTau: make([]float64, numNeurons),
		PreF:   make([]float64, numNeurons),
		PreG:   make([]float64, numNeurons),
		Tau:    make([]float64, numNeurons),
		F:      make([]float64, numNeurons),
		G:      make([]float64, numNeurons),
		Output: make([]float64, NumOutputs),
	}
}
