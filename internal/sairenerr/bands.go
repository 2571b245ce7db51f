// Package sairenerr defines the three error bands the core distinguishes
// between, grounded on the teacher's plain fmt.Errorf/%w wrapping
// convention: Recoverable (drop the packet, keep running), Surfaced
// (typed error returned to an already-logging caller), and Fatal (signal
// shutdown via the cancellation channel).
package sairenerr

import (
	"errors"
	"fmt"
)

// Band classifies how severely an error should affect the caller.
type Band int

const (
	// Recoverable covers bad single-packet values (NaN, negative RPM,
	// out-of-range MSE). The packet is dropped from ML updates but
	// metrics are still emitted, clamped to safe ranges.
	Recoverable Band = iota
	// Surfaced covers checkpoint restore mismatches, federated-average
	// rejections, and baseline-not-locked queries. The caller logs and
	// continues.
	Surfaced
	// Fatal covers loss of the packet source's cancellation invariants
	// and unrecoverable serialization corruption. The core signals
	// shutdown via the cancellation channel.
	Fatal
)

func (b Band) String() string {
	switch b {
	case Recoverable:
		return "recoverable"
	case Surfaced:
		return "surfaced"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// BandedError wraps an underlying error with its band.
type BandedError struct {
	Band Band
	Err  error
}

func (e *BandedError) Error() string { return fmt.Sprintf("%s: %v", e.Band, e.Err) }
func (e *BandedError) Unwrap() error { return e.Err }

// New wraps err with band, using fmt.Errorf-style %w wrapping so
// errors.Is/errors.As continue to see through to the underlying cause.
func New(band Band, format string, args ...interface{}) error {
	return &BandedError{Band: band, Err: fmt.Errorf(format, args...)}
}

// Wrap attaches band to an existing error.
func Wrap(band Band, err error) error {
	if err == nil {
		return nil
	}
	return &BandedError{Band: band, Err: err}
}

// BandOf extracts the band from err, defaulting to Surfaced for errors
// that were never classified (a classification bug, not a protocol
// violation — it should still fail loud enough to get logged).
func BandOf(err error) Band {
	var be *BandedError
	if errors.As(err, &be) {
		return be.Band
	}
	return Surfaced
}

// IsFatal reports whether err (or anything it wraps) is Fatal-banded.
func IsFatal(err error) bool { return BandOf(err) == Fatal }
