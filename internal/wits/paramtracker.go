package wits

import "math"

// ParamTracker watches a small set of driller-set parameters (target WOB,
// target RPM, mud weight) and stamps every packet with how long it has
// been since the last deliberate change, so downstream components can
// distinguish a transient caused by the driller from one caused by the
// formation.
type ParamTracker struct {
	epsilon float64

	haveLast    bool
	lastWOB     float64
	lastRPM     float64
	lastMudWt   float64
	secondsSince int64
}

// NewParamTracker returns a tracker with the given change-detection
// tolerance (differences smaller than epsilon are considered noise, not a
// deliberate change).
func NewParamTracker(epsilon float64) *ParamTracker {
	return &ParamTracker{epsilon: epsilon}
}

// Observe advances the tracker by one packet (dtSeconds apart from the
// previous one) and returns the updated seconds-since-change counter.
func (t *ParamTracker) Observe(targetWOB, targetRPM, mudWeight float64, dtSeconds int64) int64 {
	if !t.haveLast {
		t.haveLast = true
		t.lastWOB, t.lastRPM, t.lastMudWt = targetWOB, targetRPM, mudWeight
		t.secondsSince = 0
		return t.secondsSince
	}

	changed := math.Abs(targetWOB-t.lastWOB) > t.epsilon ||
		math.Abs(targetRPM-t.lastRPM) > t.epsilon ||
		math.Abs(mudWeight-t.lastMudWt) > t.epsilon

	if changed {
		t.lastWOB, t.lastRPM, t.lastMudWt = targetWOB, targetRPM, mudWeight
		t.secondsSince = 0
	} else {
		t.secondsSince += dtSeconds
	}
	return t.secondsSince
}

// SecondsSinceChange returns the counter without advancing it.
func (t *ParamTracker) SecondsSinceChange() int64 { return t.secondsSince }
