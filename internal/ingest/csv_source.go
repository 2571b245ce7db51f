package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/ashton-dyke/sairen-os/internal/wits"
)

// csvColumns is the expected header row for a WITS replay file, grounded
// on the field replay driver's column layout (volve_replay.rs) with the
// same sixteen ML-feature channels wits.Packet.Features returns plus
// bookkeeping fields.
var csvColumns = []string{
	"timestamp", "bit_depth", "rop", "wob", "rpm", "torque", "mse", "spp",
	"d_exponent", "hookload", "ecd", "flow_in", "flow_out", "pit_volume",
	"pit_rate", "flow_balance", "dxc", "pump_spm", "mud_weight_in",
	"gas_units", "h2s", "rig_state",
}

// CSVSource replays WITS packets from a CSV stream, one row per packet, in
// stream order. Used by the simulation/replay binary to feed recorded
// field data (e.g. the Volve dataset) through the pipeline, and by the
// main agent to accept a piped simulation stream on stdin.
type CSVSource struct {
	c      io.Closer
	name   string
	r      *csv.Reader
	index  map[string]int
	closed bool
}

// OpenCSVSource opens path and validates its header against csvColumns.
// Extra columns are ignored; missing required columns return an error.
func OpenCSVSource(path string) (*CSVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: open CSV source %q: %w", path, err)
	}
	src, err := NewCSVSource(f, "csv:"+path)
	if err != nil {
		f.Close()
		return nil, err
	}
	return src, nil
}

// NewCSVSource wraps an already-open stream (a file, or stdin piped from a
// simulation process) as a CSVSource, validating its header row.
func NewCSVSource(rc io.ReadCloser, name string) (*CSVSource, error) {
	r := csv.NewReader(rc)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("ingest: read CSV header from %q: %w", name, err)
	}

	index := make(map[string]int, len(header))
	for i, col := range header {
		index[col] = i
	}
	for _, required := range csvColumns {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("ingest: CSV source %q missing column %q", name, required)
		}
	}

	return &CSVSource{c: rc, name: name, r: r, index: index}, nil
}

// Next returns the next packet in the file, or ErrEOF at end of file.
func (s *CSVSource) Next(ctx context.Context) (wits.Packet, error) {
	select {
	case <-ctx.Done():
		return wits.Packet{}, ctx.Err()
	default:
	}

	row, err := s.r.Read()
	if err == io.EOF {
		return wits.Packet{}, ErrEOF
	}
	if err != nil {
		return wits.Packet{}, fmt.Errorf("ingest: CSV read: %w", err)
	}
	return s.parseRow(row)
}

func (s *CSVSource) parseRow(row []string) (wits.Packet, error) {
	col := func(name string) float64 {
		v, _ := strconv.ParseFloat(row[s.index[name]], 64)
		return v
	}
	ts, err := strconv.ParseInt(row[s.index["timestamp"]], 10, 64)
	if err != nil {
		return wits.Packet{}, fmt.Errorf("ingest: CSV timestamp parse: %w", err)
	}

	return wits.Packet{
		Timestamp:   ts,
		BitDepth:    col("bit_depth"),
		ROP:         col("rop"),
		WOB:         col("wob"),
		RPM:         col("rpm"),
		Torque:      col("torque"),
		MSE:         col("mse"),
		SPP:         col("spp"),
		DExponent:   col("d_exponent"),
		HookLoad:    col("hookload"),
		ECD:         col("ecd"),
		FlowIn:      col("flow_in"),
		FlowOut:     col("flow_out"),
		PitVolume:   col("pit_volume"),
		PitRate:     col("pit_rate"),
		FlowBalance: col("flow_balance"),
		DXC:         col("dxc"),
		PumpSPM:     col("pump_spm"),
		MudWeightIn: col("mud_weight_in"),
		GasUnits:    col("gas_units"),
		H2S:         col("h2s"),
		RigState:    parseRigState(row[s.index["rig_state"]]),
	}, nil
}

func parseRigState(s string) wits.RigState {
	switch s {
	case "Drilling":
		return wits.Drilling
	case "Reaming":
		return wits.Reaming
	case "Circulating":
		return wits.Circulating
	case "Connection":
		return wits.Connection
	case "TrippingIn":
		return wits.TrippingIn
	case "TrippingOut":
		return wits.TrippingOut
	default:
		return wits.Idle
	}
}

// Name identifies the source for logging.
func (s *CSVSource) Name() string { return s.name }

// Close releases the underlying stream.
func (s *CSVSource) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.c.Close()
}
