package ingest

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/ashton-dyke/sairen-os/internal/wits"
)

// Scenario names a synthetic drilling scenario a SimSource can play out,
// grounded on the original simulation driver's scenario set (normal
// drilling, MSE inefficiency, well-control events, mechanical issues).
type Scenario int

const (
	// ScenarioNormal drills steadily with only measurement noise.
	ScenarioNormal Scenario = iota
	// ScenarioBitWear ramps MSE up and ROP down as the bit dulls.
	ScenarioBitWear
	// ScenarioKick ramps flow-out above flow-in and pit volume climbing,
	// simulating an influx.
	ScenarioKick
	// ScenarioLostCirculation ramps flow-out below flow-in and pit volume
	// falling, simulating losses to the formation.
	ScenarioLostCirculation
	// ScenarioPackOff ramps SPP and torque up sharply, simulating a
	// restriction around the BHA.
	ScenarioPackOff
	// ScenarioStickSlip oscillates torque and RPM, simulating downhole
	// stick-slip.
	ScenarioStickSlip
)

// SimConfig parameterizes a SimSource run.
type SimConfig struct {
	Scenario Scenario
	// Hours is the simulated duration; combined with Interval this bounds
	// the number of packets SimSource emits before returning ErrEOF.
	Hours float64
	// Interval is the simulated time between packets (WITS Level 0 is
	// typically sampled every few seconds).
	Interval time.Duration
	// Speed scales real-clock pacing: Speed=1 sleeps Interval between
	// packets in real time; Speed=0 emits as fast as possible (back-test
	// mode, no sleeping).
	Speed float64
	// OnsetFraction is how far into the run (0..1) an anomalous scenario
	// begins ramping; ScenarioNormal ignores it.
	OnsetFraction float64
	Seed          int64
}

// DefaultSimConfig returns a one-hour normal-drilling run at 10x speed.
func DefaultSimConfig() SimConfig {
	return SimConfig{
		Scenario:      ScenarioNormal,
		Hours:         1,
		Interval:      5 * time.Second,
		Speed:         10,
		OnsetFraction: 0.5,
		Seed:          1,
	}
}

// SimSource synthesizes a WITS packet stream for a chosen drilling
// scenario, grounded on the original simulation driver's scenario set and
// its --hours/--speed pacing flags.
type SimSource struct {
	cfg        SimConfig
	rng        *rand.Rand
	totalTicks int64
	tick       int64
	start      time.Time
	lastReal   time.Time
}

// NewSimSource constructs a SimSource that will emit floor(Hours*3600/Interval)
// packets before returning ErrEOF.
func NewSimSource(cfg SimConfig) *SimSource {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	totalSeconds := cfg.Hours * 3600
	total := int64(totalSeconds / cfg.Interval.Seconds())
	return &SimSource{
		cfg:        cfg,
		rng:        rand.New(rand.NewSource(cfg.Seed)),
		totalTicks: total,
		start:      time.Unix(1_700_000_000, 0),
	}
}

// Name identifies the source for logging.
func (s *SimSource) Name() string { return "sim" }

// Next synthesizes the next packet, pacing against the wall clock when
// Speed > 0, or returns ErrEOF once the configured duration elapses.
func (s *SimSource) Next(ctx context.Context) (wits.Packet, error) {
	if s.tick >= s.totalTicks {
		return wits.Packet{}, ErrEOF
	}

	if s.cfg.Speed > 0 {
		wait := time.Duration(float64(s.cfg.Interval) / s.cfg.Speed)
		if !s.lastReal.IsZero() {
			elapsed := time.Since(s.lastReal)
			if elapsed < wait {
				select {
				case <-ctx.Done():
					return wits.Packet{}, ctx.Err()
				case <-time.After(wait - elapsed):
				}
			}
		}
		s.lastReal = time.Now()
	}

	progress := float64(s.tick) / float64(s.totalTicks)
	ts := s.start.Add(time.Duration(s.tick) * s.cfg.Interval)
	pkt := s.basePacket(ts)
	s.applyScenario(&pkt, progress)
	s.tick++
	return pkt, nil
}

// basePacket returns a steady-state drilling packet plus small Gaussian
// measurement noise on every channel.
func (s *SimSource) basePacket(ts time.Time) wits.Packet {
	n := func(mean, stddev float64) float64 { return mean + s.rng.NormFloat64()*stddev }

	flowIn := n(800, 5)
	return wits.Packet{
		Timestamp:   ts.Unix(),
		BitDepth:    8000 + float64(s.tick)*0.02,
		ROP:         n(60, 3),
		WOB:         n(25, 1),
		RPM:         n(120, 2),
		Torque:      n(12000, 200),
		MSE:         n(35000, 1000),
		SPP:         n(3200, 30),
		DExponent:   n(1.4, 0.02),
		HookLoad:    n(180, 2),
		ECD:         n(12.6, 0.05),
		FlowIn:      flowIn,
		FlowOut:     flowIn + n(0, 3),
		PitVolume:   n(500, 2),
		PitRate:     n(0, 1),
		FlowBalance: 0,
		DXC:         n(1.4, 0.02),
		PumpSPM:     n(120, 1),
		MudWeightIn: n(12.5, 0.02),
		GasUnits:    n(20, 2),
		H2S:         0,
		RigState:    wits.Drilling,
	}
}

// applyScenario perturbs pkt according to the configured scenario once
// progress has passed OnsetFraction, ramping linearly from onset to the
// end of the run so the anomaly develops rather than stepping instantly.
func (s *SimSource) applyScenario(pkt *wits.Packet, progress float64) {
	if s.cfg.Scenario == ScenarioNormal || progress < s.cfg.OnsetFraction {
		pkt.FlowBalance = pkt.FlowOut - pkt.FlowIn
		pkt.PitRate = pkt.FlowBalance / 42 * 60
		return
	}

	ramp := (progress - s.cfg.OnsetFraction) / (1 - s.cfg.OnsetFraction)
	ramp = math.Min(ramp, 1)

	switch s.cfg.Scenario {
	case ScenarioBitWear:
		pkt.MSE += ramp * 25000
		pkt.ROP -= ramp * 35
		if pkt.ROP < 5 {
			pkt.ROP = 5
		}

	case ScenarioKick:
		pkt.FlowOut += ramp * 60
		pkt.PitVolume += ramp * 80
		pkt.GasUnits += ramp * 400

	case ScenarioLostCirculation:
		pkt.FlowOut -= ramp * 80
		if pkt.FlowOut < 0 {
			pkt.FlowOut = 0
		}
		pkt.PitVolume -= ramp * 100

	case ScenarioPackOff:
		pkt.SPP += ramp * 1500
		pkt.Torque += ramp * 8000

	case ScenarioStickSlip:
		osc := math.Sin(float64(s.tick) * 0.8)
		pkt.Torque += ramp * osc * 6000
		pkt.RPM += ramp * osc * -40
	}

	pkt.FlowBalance = pkt.FlowOut - pkt.FlowIn
	pkt.PitRate = pkt.FlowBalance / 42 * 60
}
