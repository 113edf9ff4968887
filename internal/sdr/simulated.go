package sdr

import (
	"context"
	"errors"
	"sync"

	"github.com/cwsl/voicescan/internal/buffer"
	"github.com/cwsl/voicescan/internal/scanerr"
)

// GenerateFunc synthesizes n contiguous IQ samples for centerHz
// starting at sample index startSample (so callers can produce
// phase-continuous tones across successive captures).
type GenerateFunc func(centerHz uint64, startSample int64, n int) []buffer.Sample

// SimulatedDevice is a synthetic Device used for tests and demos: no
// hardware, no network, a caller-supplied signal generator standing in
// for capture_samples. Grounded on the retry-and-raise-IOError shape of
// the original SDRDevice.capture_samples, simplified since there is no
// real short-read condition to retry against.
type SimulatedDevice struct {
	sampleRateHz int
	generate     GenerateFunc

	mu          sync.Mutex
	center      uint64
	sampleIndex map[uint64]int64
	streaming   bool
}

// NewSimulated builds a simulated device at the given sample rate,
// synthesizing samples with generate.
func NewSimulated(sampleRateHz int, generate GenerateFunc) *SimulatedDevice {
	return &SimulatedDevice{
		sampleRateHz: sampleRateHz,
		generate:     generate,
		sampleIndex:  make(map[uint64]int64),
	}
}

func (d *SimulatedDevice) Initialize(ctx context.Context) error { return nil }

func (d *SimulatedDevice) Tune(ctx context.Context, frequencyHz uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.center = frequencyHz
	if _, ok := d.sampleIndex[frequencyHz]; !ok {
		d.sampleIndex[frequencyHz] = 0
	}
	return nil
}

func (d *SimulatedDevice) StartStream(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.streaming = true
	return nil
}

func (d *SimulatedDevice) StopStream(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.streaming = false
	return nil
}

func (d *SimulatedDevice) CaptureSamples(ctx context.Context, n int) ([]buffer.Sample, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.streaming {
		return nil, &scanerr.IOError{Op: "capture_samples", Err: errors.New("stream not started")}
	}
	start := d.sampleIndex[d.center]
	out := d.generate(d.center, start, n)
	if len(out) != n {
		return nil, &scanerr.IOError{Op: "capture_samples", Err: errors.New("generator returned short read")}
	}
	d.sampleIndex[d.center] = start + int64(n)
	return out, nil
}

func (d *SimulatedDevice) Close() error { return nil }
