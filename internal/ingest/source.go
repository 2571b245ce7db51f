// Package ingest defines the packet source abstraction and a
// backpressure-aware processor loop that feeds packets to a pipeline
// coordinator, grounded on the original implementation's PacketSource
// trait and unified processing loop, adapted to Go's context/channel
// idioms in place of async trait objects and a cancellation token.
package ingest

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/ashton-dyke/sairen-os/internal/wits"
)

// ErrEOF is returned by Source.Next when the underlying source has no
// more packets (CSV replay exhausted, stdin closed, permanent TCP
// disconnect).
var ErrEOF = errors.New("ingest: end of packet source")

// Source abstracts where WITS packets come from. Implementations handle
// format parsing, reconnection, and pacing internally; the processor
// calls Next until it returns ErrEOF or a fatal error.
type Source interface {
	// Next blocks until a packet is available, ctx is cancelled, or the
	// source is exhausted (ErrEOF).
	Next(ctx context.Context) (wits.Packet, error)
	// Name identifies the source for logging ("CSV", "stdin", "WITS-TCP").
	Name() string
}

// Handler processes one packet read from a Source. Handlers run
// sequentially: the coordinator enforces no pipeline overlap across
// packets so ticket history observes a consistent order.
type Handler func(ctx context.Context, packet wits.Packet) error

// Processor drives a Source, calling Handler for every packet until the
// source is exhausted, ctx is cancelled, or the handler returns a fatal
// error.
type Processor struct {
	source  Source
	handler Handler
	log     *zap.Logger
}

// NewProcessor returns a Processor over source, dispatching every packet
// to handler.
func NewProcessor(source Source, handler Handler, log *zap.Logger) *Processor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Processor{source: source, handler: handler, log: log}
}

// Run drives the processor loop until ctx is cancelled or the source is
// exhausted. It returns nil on a clean EOF, ctx.Err() on cancellation, or
// the handler's error if the handler signals a fatal condition.
func (p *Processor) Run(ctx context.Context) error {
	p.log.Info("ingest: starting", zap.String("source", p.source.Name()))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		packet, err := p.source.Next(ctx)
		if errors.Is(err, ErrEOF) {
			p.log.Info("ingest: source exhausted", zap.String("source", p.source.Name()))
			return nil
		}
		if err != nil {
			p.log.Error("ingest: source error", zap.String("source", p.source.Name()), zap.Error(err))
			return err
		}

		if err := p.handler(ctx, packet); err != nil {
			p.log.Error("ingest: handler error", zap.Error(err))
			return err
		}
	}
}
