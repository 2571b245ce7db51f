package ingest_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ashton-dyke/sairen-os/internal/ingest"
	"github.com/ashton-dyke/sairen-os/internal/wits"
)

const csvHeader = "timestamp,bit_depth,rop,wob,rpm,torque,mse,spp,d_exponent,hookload,ecd," +
	"flow_in,flow_out,pit_volume,pit_rate,flow_balance,dxc,pump_spm,mud_weight_in,gas_units,h2s,rig_state\n"

func writeCSV(t *testing.T, rows string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "replay.csv")
	require.NoError(t, os.WriteFile(path, []byte(csvHeader+rows), 0o644))
	return path
}

func TestOpenCSVSource_MissingColumnErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("timestamp,rop\n1,60\n"), 0o644))

	_, err := ingest.OpenCSVSource(path)
	require.Error(t, err)
}

func TestCSVSource_ParsesRowsThenEOF(t *testing.T) {
	path := writeCSV(t, "1700000000,8000,60,25,120,12000,35000,3200,1.4,180,12.6,800,800,500,0,0,1.4,120,12.5,20,0,Drilling\n")

	src, err := ingest.OpenCSVSource(path)
	require.NoError(t, err)
	defer src.Close()

	p, err := src.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1700000000), p.Timestamp)
	require.Equal(t, 60.0, p.ROP)
	require.Equal(t, wits.Drilling, p.RigState)

	_, err = src.Next(context.Background())
	require.ErrorIs(t, err, ingest.ErrEOF)
}

func TestCSVSource_Name(t *testing.T) {
	path := writeCSV(t, "")
	src, err := ingest.OpenCSVSource(path)
	require.NoError(t, err)
	defer src.Close()
	require.Contains(t, src.Name(), "csv:")
}

func TestNewCSVSource_WrapsArbitraryReader(t *testing.T) {
	rows := "1700000001,8000,60,25,120,12000,35000,3200,1.4,180,12.6,800,800,500,0,0,1.4,120,12.5,20,0,Drilling\n"
	src, err := ingest.NewCSVSource(io.NopCloser(strings.NewReader(csvHeader+rows)), "stdin")
	require.NoError(t, err)
	defer src.Close()
	require.Equal(t, "stdin", src.Name())

	p, err := src.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1700000001), p.Timestamp)
}

func TestCSVSource_UnknownRigStateDefaultsToIdle(t *testing.T) {
	path := writeCSV(t, "1,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,Bogus\n")
	src, err := ingest.OpenCSVSource(path)
	require.NoError(t, err)
	defer src.Close()

	p, err := src.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, wits.Idle, p.RigState)
}
