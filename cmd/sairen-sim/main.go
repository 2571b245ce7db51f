// Package main — cmd/sairen-sim/main.go
//
// SAIREN-OS simulation/replay driver: runs a synthetic drilling scenario
// or replays a recorded CSV (e.g. the Volve field dataset) through a
// standalone pipeline coordinator and prints every emitted advisory to
// stdout, grounded on the original simulation and replay binaries'
// --hours/--speed/--file flag surface.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ashton-dyke/sairen-os/internal/agents"
	"github.com/ashton-dyke/sairen-os/internal/baseline"
	"github.com/ashton-dyke/sairen-os/internal/ingest"
	"github.com/ashton-dyke/sairen-os/internal/pipeline"
	"github.com/ashton-dyke/sairen-os/internal/ticket"
	"github.com/ashton-dyke/sairen-os/internal/wits"
)

var featureNames = []string{
	"wob", "rop", "rpm", "torque", "mse", "spp", "d_exponent", "hookload",
	"ecd", "flow_balance", "pit_rate", "dxc", "pump_spm", "mud_weight_in",
	"gas_units", "pit_volume",
}

func main() {
	file := flag.String("file", "", "CSV file to replay (mutually exclusive with -scenario)")
	scenario := flag.String("scenario", "normal", "Synthetic scenario: normal, bit-wear, kick, lost-circulation, pack-off, stick-slip")
	hours := flag.Float64("hours", 1, "Simulated duration in hours (ignored with -file)")
	speed := flag.Float64("speed", 100, "Pacing multiplier; 0 runs as fast as possible")
	onset := flag.Float64("onset", 0.5, "Fraction of the run where the scenario begins ramping")
	seed := flag.Int64("seed", 1, "RNG seed for the synthetic generator and CfC network")
	flag.Parse()

	log := zap.NewNop()

	src, err := buildSource(*file, *scenario, *hours, *speed, *onset, *seed)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}

	baselines := baseline.NewManager(500)
	sink := &stdoutSink{}
	coord := pipeline.New(pipeline.Config{
		Seed:              uint64(*seed),
		Baselines:         baselines,
		TriggerThresholds: agents.DefaultTriggerThresholds(),
		Sink:              sink,
		Logger:            log,
		FeatureNames:      featureNames,
		Hardness:          1.0,
		FractureGradient:  16.5,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	var lastTimestamp int64
	first := true

	proc := ingest.NewProcessor(src, func(ctx context.Context, p wits.Packet) error {
		dt := time.Second
		if !first && p.Timestamp > lastTimestamp {
			dt = time.Duration(p.Timestamp-lastTimestamp) * time.Second
		}
		first = false
		lastTimestamp = p.Timestamp

		if _, err := coord.Process(ctx, p, dt); err != nil {
			fmt.Fprintf(os.Stderr, "process error: %v\n", err)
		}
		return nil
	}, log)

	if err := proc.Run(ctx); err != nil && err != context.Canceled {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "simulation complete: %d advisories emitted\n", sink.count)
}

// stdoutSink prints each advisory as a JSON line, suitable for piping into
// jq or a log aggregator during offline testing.
type stdoutSink struct {
	count int
}

func (s *stdoutSink) Emit(ctx context.Context, adv ticket.StrategicAdvisory) error {
	s.count++
	data, err := json.Marshal(adv)
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func buildSource(file, scenario string, hours, speed, onset float64, seed int64) (ingest.Source, error) {
	if file != "" {
		return ingest.OpenCSVSource(file)
	}
	s, err := parseScenario(scenario)
	if err != nil {
		return nil, err
	}
	cfg := ingest.SimConfig{
		Scenario:      s,
		Hours:         hours,
		Interval:      5 * time.Second,
		Speed:         speed,
		OnsetFraction: onset,
		Seed:          seed,
	}
	return ingest.NewSimSource(cfg), nil
}

func parseScenario(name string) (ingest.Scenario, error) {
	switch name {
	case "normal":
		return ingest.ScenarioNormal, nil
	case "bit-wear":
		return ingest.ScenarioBitWear, nil
	case "kick":
		return ingest.ScenarioKick, nil
	case "lost-circulation":
		return ingest.ScenarioLostCirculation, nil
	case "pack-off":
		return ingest.ScenarioPackOff, nil
	case "stick-slip":
		return ingest.ScenarioStickSlip, nil
	default:
		return 0, fmt.Errorf("unknown scenario %q", name)
	}
}
