// Package formation — detector.go
//
// Formation-transition detector: a rolling counter over the dual CfC's
// per-feature sigma deviations. A genuine formation change tends to push
// several features out of their learned baseline at once and keep them
// there for a few consecutive packets, rather than a single noisy spike;
// this detector requires both breadth (>=3 surprised features) and
// persistence (>=5 consecutive packets) before it fires, and stays silent
// while an advisory is already active to avoid compounding alerts.
package formation

import "sync"

const (
	sigmaThreshold        = 2.0
	minSurprisedFeatures  = 3
	minConsecutivePackets = 5
)

// Event is emitted once the detector fires.
type Event struct {
	Timestamp         int64
	BitDepth          float64
	SurprisedFeatures []int
	PacketIndex       int64
}

// Detector tracks consecutive packets meeting the surprise-breadth
// threshold and fires an Event when the run reaches minConsecutivePackets.
type Detector struct {
	mu        sync.Mutex
	streak    int64
	lastFired []int
}

// New returns a Detector with an empty streak.
func New() *Detector {
	return &Detector{}
}

// Observe feeds one packet's per-feature sigma deviations (indexed to match
// the caller's feature ordering) through the detector. advisoryActive
// suppresses firing even if the breadth/persistence conditions are met.
// Returns the fired Event (ok=true) or zero value (ok=false).
func (d *Detector) Observe(sigmas []float64, timestamp int64, bitDepth float64, packetIndex int64, advisoryActive bool) (Event, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var surprised []int
	for i, s := range sigmas {
		if s > sigmaThreshold {
			surprised = append(surprised, i)
		}
	}

	if len(surprised) < minSurprisedFeatures {
		d.streak = 0
		return Event{}, false
	}

	d.streak++
	d.lastFired = surprised
	if d.streak < minConsecutivePackets || advisoryActive {
		return Event{}, false
	}

	ev := Event{
		Timestamp:         timestamp,
		BitDepth:          bitDepth,
		SurprisedFeatures: surprised,
		PacketIndex:       packetIndex,
	}
	d.streak = 0
	return ev, true
}
