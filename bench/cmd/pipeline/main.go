// Package bench — bench/cmd/pipeline/main.go
//
// Pipeline cycle latency measurement tool.
//
// Measures the wall-clock time of Coordinator.Process for a synthetic
// packet stream, end to end: tactical ticket decision, dual CfC network
// inference, clustering, formation-change detection, strategic
// verification, specialist voting, and advisory composition.
//
// Method:
//  1. Builds a standalone coordinator, the same way cmd/sairen-sim does,
//     with an in-memory sink that discards advisories.
//  2. Feeds it packets from ingest.SimSource, one call to Process per
//     packet, timed with time.Now()/time.Since around the call.
//  3. Results are written to a CSV file and summarized as a latency
//     histogram (p50/p95/p99).
//
// The measurement includes every in-process phase of one cycle. It does
// NOT include ingest decoding time (sim packets are synthesized, not
// parsed) or sink I/O (the sink is a no-op).
//
// Output CSV columns:
//
//	iteration, latency_us, advisory_emitted (true/false)
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/ashton-dyke/sairen-os/internal/agents"
	"github.com/ashton-dyke/sairen-os/internal/baseline"
	"github.com/ashton-dyke/sairen-os/internal/ingest"
	"github.com/ashton-dyke/sairen-os/internal/pipeline"
	"github.com/ashton-dyke/sairen-os/internal/ticket"
)

var featureNames = []string{
	"wob", "rop", "rpm", "torque", "mse", "spp", "d_exponent", "hookload",
	"ecd", "flow_balance", "pit_rate", "dxc", "pump_spm", "mud_weight_in",
	"gas_units", "pit_volume",
}

const targetP99Micros = 100000 // 100ms, matching pipeline.cycleTarget

func main() {
	iterations := flag.Int("iterations", 5000, "Number of packets to process")
	outputFile := flag.String("output", "pipeline_latency_raw.csv", "Output CSV file path")
	scenario := flag.String("scenario", "kick", "Synthetic scenario to drive through the pipeline")
	flag.Parse()

	// Lock to OS thread to minimise scheduling jitter.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	s, err := parseScenario(*scenario)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}

	src := ingest.NewSimSource(ingest.SimConfig{
		Scenario:      s,
		Hours:         float64(*iterations) * (5.0 / 3600.0),
		Interval:      5 * time.Second,
		Speed:         0,
		OnsetFraction: 0.3,
		Seed:          1,
	})

	sink := &discardSink{}
	coord := pipeline.New(pipeline.Config{
		Seed:              1,
		Baselines:         baseline.NewManager(500),
		TriggerThresholds: agents.DefaultTriggerThresholds(),
		Sink:              sink,
		Logger:            zap.NewNop(),
		FeatureNames:      featureNames,
		Hardness:          1.0,
		FractureGradient:  16.5,
	})

	f, err := os.Create(*outputFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create output: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()
	_ = w.Write([]string{"iteration", "latency_us", "advisory_emitted"})

	ctx := context.Background()
	var emitted int
	var bucket [200001]int // histogram buckets: 0-200000us

	i := 0
	for ; i < *iterations; i++ {
		p, err := src.Next(ctx)
		if err == ingest.ErrEOF {
			break
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "sim source error: %v\n", err)
			os.Exit(1)
		}

		start := time.Now()
		adv, err := coord.Process(ctx, p, 5*time.Second)
		latency := time.Since(start)
		if err != nil {
			fmt.Fprintf(os.Stderr, "process error: %v\n", err)
			os.Exit(1)
		}

		fired := adv != nil
		if fired {
			emitted++
		}

		latencyUs := int(latency.Microseconds())
		if latencyUs < len(bucket) {
			bucket[latencyUs]++
		}

		_ = w.Write([]string{
			strconv.Itoa(i),
			strconv.Itoa(latencyUs),
			strconv.FormatBool(fired),
		})
	}

	total := i
	p50, p95, p99 := computePercentiles(bucket[:], total)

	fmt.Printf("Pipeline Cycle Latency Results (%d iterations)\n", total)
	fmt.Printf("  Advisories emitted: %d/%d\n", emitted, total)
	fmt.Printf("  p50: %dus\n", p50)
	fmt.Printf("  p95: %dus\n", p95)
	fmt.Printf("  p99: %dus\n", p99)
	fmt.Printf("  Output: %s\n", *outputFile)

	if p99 > targetP99Micros {
		fmt.Fprintf(os.Stderr, "FAIL: p99 %dus exceeds %dus target\n", p99, targetP99Micros)
		os.Exit(1)
	}
}

type discardSink struct{}

func (discardSink) Emit(ctx context.Context, adv ticket.StrategicAdvisory) error { return nil }

func computePercentiles(hist []int, total int) (p50, p95, p99 int) {
	targets := []struct {
		pct float64
		out *int
	}{
		{0.50, &p50},
		{0.95, &p95},
		{0.99, &p99},
	}
	cumulative := 0
	ti := 0
	for i, count := range hist {
		cumulative += count
		for ti < len(targets) && float64(cumulative) >= targets[ti].pct*float64(total) {
			*targets[ti].out = i
			ti++
		}
		if ti == len(targets) {
			break
		}
	}
	return
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
