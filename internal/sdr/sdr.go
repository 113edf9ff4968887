// Package sdr defines the hardware/network collaborator boundary of
// spec.md §6: initialize, tune, stream, and block-capture of IQ
// samples. The core pipeline only ever talks to the Device interface;
// this package supplies the external implementations spec.md treats as
// out of scope for the pipeline itself.
package sdr

import (
	"context"

	"github.com/cwsl/voicescan/internal/buffer"
)

// Device is the SDR hardware/network collaborator injected into the
// scan controller (spec.md §6).
type Device interface {
	// Initialize acquires the device and applies sample rate and gain.
	Initialize(ctx context.Context) error
	// Tune sets the center frequency and blocks until settled.
	Tune(ctx context.Context, frequencyHz uint64) error
	// StartStream and StopStream are idempotent.
	StartStream(ctx context.Context) error
	StopStream(ctx context.Context) error
	// CaptureSamples blocks until exactly n samples are returned, or
	// fails with *scanerr.IOError on an unrecoverable error.
	CaptureSamples(ctx context.Context, n int) ([]buffer.Sample, error)
	// Close releases all resources. Safe to call multiple times.
	Close() error
}
