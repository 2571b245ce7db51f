package wits

// ClassifierThresholds holds the hysteresis bands used to tell drilling
// states apart. The exact numeric thresholds are site-tunable (the source
// material defers them to configuration); these are reasonable field
// defaults for a land rig.
type ClassifierThresholds struct {
	MinFlowIn      float64 // below this, pumps are considered off
	MinWOBDrilling float64 // WOB above this plus rotation implies on-bottom
	MinRPM         float64
	ReamWOBCeil    float64 // WOB below this with rotation+flow implies reaming, not drilling
}

// DefaultClassifierThresholds returns field-typical values.
func DefaultClassifierThresholds() ClassifierThresholds {
	return ClassifierThresholds{
		MinFlowIn:      50,
		MinWOBDrilling: 5,
		MinRPM:         20,
		ReamWOBCeil:    2,
	}
}

// Classifier applies hysteresis on flow_in, WOB, and RPM to assign a
// RigState to each packet, holding the previous state as a tiebreaker so
// borderline packets don't flicker between states.
type Classifier struct {
	th   ClassifierThresholds
	prev RigState
}

// NewClassifier returns a Classifier starting from Idle.
func NewClassifier(th ClassifierThresholds) *Classifier {
	return &Classifier{th: th, prev: Idle}
}

// Classify assigns a RigState to one packet's flow/WOB/RPM reading.
func (c *Classifier) Classify(flowIn, wob, rpm float64) RigState {
	th := c.th
	pumping := flowIn >= th.MinFlowIn
	rotating := rpm >= th.MinRPM
	onBottom := wob >= th.MinWOBDrilling

	var next RigState
	switch {
	case pumping && rotating && onBottom:
		next = Drilling
	case pumping && rotating && wob <= th.ReamWOBCeil:
		next = Reaming
	case pumping && !rotating && !onBottom:
		next = Circulating
	case !pumping && !rotating && wob <= th.ReamWOBCeil:
		next = Connection
	default:
		// Ambiguous reading: hold the previous state rather than flicker.
		next = c.prev
	}

	c.prev = next
	return next
}
