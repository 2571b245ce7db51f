package ingest_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ashton-dyke/sairen-os/internal/ingest"
	"github.com/ashton-dyke/sairen-os/internal/wits"
)

type sliceSource struct {
	packets []wits.Packet
	i       int
}

func (s *sliceSource) Next(ctx context.Context) (wits.Packet, error) {
	if s.i >= len(s.packets) {
		return wits.Packet{}, ingest.ErrEOF
	}
	p := s.packets[s.i]
	s.i++
	return p, nil
}

func (s *sliceSource) Name() string { return "slice" }

func TestProcessor_RunsHandlerForEveryPacketThenEOF(t *testing.T) {
	src := &sliceSource{packets: []wits.Packet{{Timestamp: 1}, {Timestamp: 2}, {Timestamp: 3}}}
	var seen []int64
	proc := ingest.NewProcessor(src, func(ctx context.Context, p wits.Packet) error {
		seen = append(seen, p.Timestamp)
		return nil
	}, nil)

	err := proc.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, []int64{1, 2, 3}, seen)
}

func TestProcessor_PropagatesHandlerError(t *testing.T) {
	src := &sliceSource{packets: []wits.Packet{{Timestamp: 1}}}
	boom := errors.New("boom")
	proc := ingest.NewProcessor(src, func(ctx context.Context, p wits.Packet) error {
		return boom
	}, nil)

	err := proc.Run(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestProcessor_StopsOnContextCancellation(t *testing.T) {
	src := &sliceSource{packets: make([]wits.Packet, 1000)}
	ctx, cancel := context.WithCancel(context.Background())
	count := 0
	proc := ingest.NewProcessor(src, func(ctx context.Context, p wits.Packet) error {
		count++
		if count == 3 {
			cancel()
		}
		return nil
	}, nil)

	err := proc.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.GreaterOrEqual(t, count, 3)
}
